package scenario

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/AnatoleLucet/fiber"
	"github.com/AnatoleLucet/fiber/internal/config"
	"github.com/AnatoleLucet/fiber/internal/memhost"
)

// ErrExpectation is returned when a step does not match its expectation.
var ErrExpectation = errors.New("scenario: expectation failed")

// StepResult is what one step did to the host.
type StepResult struct {
	Kind    string
	Ops     []string
	Markup  string
	Pending bool
	Err     error
}

type Result struct {
	Name  string
	Steps []StepResult
}

// String is the trace compared against golden files.
func (r *Result) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "scenario %s\n", r.Name)
	for i, step := range r.Steps {
		fmt.Fprintf(&b, "\nstep %d: %s\n", i+1, step.Kind)
		for _, op := range step.Ops {
			fmt.Fprintf(&b, "  %s\n", op)
		}
		if step.Err != nil {
			fmt.Fprintf(&b, "  error: %v\n", step.Err)
		}
		fmt.Fprintf(&b, "  markup: %q\n", step.Markup)
		if step.Pending {
			b.WriteString("  pending\n")
		}
	}
	return b.String()
}

type Option func(*runner)

func WithLogger(log *slog.Logger) Option {
	return func(r *runner) { r.log = log }
}

func WithConfig(cfg config.Config) Option {
	return func(r *runner) { r.cfg = &cfg }
}

type runner struct {
	log *slog.Logger
	cfg *config.Config
}

// Run executes s on a fresh runtime. Expectation failures are returned
// together with the result collected so far.
func Run(s *Scenario, opts ...Option) (*Result, error) {
	run := &runner{log: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(run)
	}

	clock := fiber.NewManualClock()
	host := memhost.New(memhost.WithLogger(run.log))
	container := host.NewContainer("root")

	rtOpts := []fiber.Option{fiber.WithClock(clock), fiber.WithLogger(run.log)}
	if run.cfg != nil {
		rtOpts = append(rtOpts, fiber.WithConfig(*run.cfg))
	}
	rt := fiber.New(host, rtOpts...)
	root := rt.CreateRoot(container, s.Concurrent)

	b := newBuilder()
	result := &Result{Name: s.Name}

	for i, step := range s.Steps {
		log := run.log.With("scenario", s.Name, "step", i+1, "kind", step.Kind())
		log.Debug("step started")

		err := run.apply(rt, root, b, clock, step)
		res := StepResult{
			Kind:    step.Kind(),
			Ops:     host.Reset(),
			Markup:  container.String(),
			Pending: rt.HasPendingWork(),
			Err:     err,
		}
		result.Steps = append(result.Steps, res)

		if err := check(step.Expect, res); err != nil {
			return result, fmt.Errorf("step %d (%s): %w", i+1, step.Kind(), err)
		}
		if err != nil && (step.Expect == nil || step.Expect.Error == "") {
			return result, fmt.Errorf("step %d (%s): %w", i+1, step.Kind(), err)
		}
	}

	return result, nil
}

func (run *runner) apply(rt *fiber.Runtime, root *fiber.Root, b *builder, clock *fiber.ManualClock, step Step) error {
	switch {
	case step.Render != nil:
		tree, err := b.build(step.Render.Node)
		if err != nil {
			return err
		}
		return root.Render(tree, nil)

	case step.Flush == "all":
		return rt.FlushAll()

	case step.Flush == "sync":
		return rt.FlushSync()

	case step.Units > 0:
		_, err := rt.PerformWork(fiber.NewUnitDeadline(step.Units))
		return err

	case step.Resolve != "":
		d, ok := b.deferreds[step.Resolve]
		if !ok {
			return fmt.Errorf("nothing waits on %q", step.Resolve)
		}
		d.Resolve(step.Resolve)
		return nil

	case step.AdvanceMs > 0:
		clock.Advance(time.Duration(step.AdvanceMs) * time.Millisecond)
	}

	return nil
}

func check(expect *Expect, res StepResult) error {
	if expect == nil {
		return nil
	}

	if expect.Markup != nil && *expect.Markup != res.Markup {
		return fmt.Errorf("%w: markup is %q, want %q", ErrExpectation, res.Markup, *expect.Markup)
	}

	if expect.Error != "" {
		if res.Err == nil {
			return fmt.Errorf("%w: no error, want %q", ErrExpectation, expect.Error)
		}
		if !strings.Contains(res.Err.Error(), expect.Error) {
			return fmt.Errorf("%w: error is %q, want %q", ErrExpectation, res.Err, expect.Error)
		}
	}

	if expect.Pending != nil && *expect.Pending != res.Pending {
		return fmt.Errorf("%w: pending is %t, want %t", ErrExpectation, res.Pending, *expect.Pending)
	}

	return nil
}
