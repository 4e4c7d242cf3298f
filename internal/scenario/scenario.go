// Package scenario runs reconciler scenarios written in YAML against the
// in-memory host and records a trace of every host mutation.
package scenario

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario is a sequence of steps applied to one root.
type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`

	// Concurrent roots bucket updates by priority and can be worked on
	// one unit at a time.
	Concurrent bool `yaml:"concurrent,omitempty"`

	Steps []Step `yaml:"steps"`
}

// Step does exactly one thing, then checks Expect.
type Step struct {
	// Render schedules new root content.
	Render *Tree `yaml:"render,omitempty"`

	// Flush is "all" or "sync".
	Flush string `yaml:"flush,omitempty"`

	// Units performs that many units of work.
	Units int `yaml:"units,omitempty"`

	// Resolve resolves the named async value.
	Resolve string `yaml:"resolve,omitempty"`

	// AdvanceMs moves the scenario clock forward.
	AdvanceMs int64 `yaml:"advance_ms,omitempty"`

	Expect *Expect `yaml:"expect,omitempty"`
}

// Tree is an element tree kept as raw YAML. It is decoded by the builder,
// outside of the strict field checking applied to the scenario itself.
type Tree struct {
	Node *yaml.Node
}

func (t *Tree) UnmarshalYAML(value *yaml.Node) error {
	t.Node = value
	return nil
}

type Expect struct {
	Markup *string `yaml:"markup,omitempty"`
	// Error is a substring of the error the step must return.
	Error string `yaml:"error,omitempty"`
	// Pending tells whether work is left after the step.
	Pending *bool `yaml:"pending,omitempty"`
}

// Kind names what the step does.
func (s Step) Kind() string {
	switch {
	case s.Render != nil:
		return "render"
	case s.Flush != "":
		return "flush " + s.Flush
	case s.Units > 0:
		return fmt.Sprintf("units %d", s.Units)
	case s.Resolve != "":
		return "resolve " + s.Resolve
	case s.AdvanceMs > 0:
		return fmt.Sprintf("advance %dms", s.AdvanceMs)
	}
	return "expect"
}

func (s Step) actions() int {
	n := 0
	for _, set := range []bool{s.Render != nil, s.Flush != "", s.Units > 0, s.Resolve != "", s.AdvanceMs > 0} {
		if set {
			n++
		}
	}
	return n
}

// Load reads a scenario and rejects unknown fields.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}

	return Parse(data)
}

func Parse(data []byte) (*Scenario, error) {
	var s Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&s); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}

	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &s, nil
}

// Validate checks the structure of the scenario, including that every
// rendered tree can be built.
func (s *Scenario) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps must not be empty")
	}

	b := newBuilder()
	for i, step := range s.Steps {
		if step.actions() > 1 {
			return fmt.Errorf("step %d: only one action per step", i+1)
		}
		if step.actions() == 0 && step.Expect == nil {
			return fmt.Errorf("step %d: nothing to do", i+1)
		}
		switch step.Flush {
		case "", "all", "sync":
		default:
			return fmt.Errorf("step %d: flush must be all or sync, got %q", i+1, step.Flush)
		}
		if step.Render != nil {
			if _, err := b.build(step.Render.Node); err != nil {
				return fmt.Errorf("step %d: %w", i+1, err)
			}
		}
	}
	return nil
}
