package internal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEffectTag(t *testing.T) {
	t.Run("names", func(t *testing.T) {
		assert.Equal(t, "NoEffect", NoEffect.String())
		assert.Equal(t, "Placement|Update|Ref", (Placement | UpdateEffect | RefEffect).String())
	})

	t.Run("add and remove", func(t *testing.T) {
		var e EffectTag
		e.Add(UpdateEffect | RefEffect)
		assert.True(t, e.Has(UpdateEffect))
		assert.True(t, e.HasCommitEffect())

		e.Remove(UpdateEffect)
		assert.False(t, e.Has(UpdateEffect))
		assert.True(t, e.Has(RefEffect))

		e.Replace(RefEffect, PerformedWork)
		assert.Equal(t, PerformedWork, e)
		assert.False(t, e.HasCommitEffect())
	})

	t.Run("tags and queue updates live side by side", func(t *testing.T) {
		u := &Update{ExpirationTime: Sync, Tag: ForceUpdate}
		ref := &Ref{}

		assert.Equal(t, Sync, u.ExpirationTime)
		assert.Nil(t, ref.Current)
		assert.NotEqual(t, UpdateEffect, RefEffect)
	})
}
