package embed

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCapability_States(t *testing.T) {
	var zero Capability
	assert.False(t, zero.IsReady())
	assert.Equal(t, "uninitialized", zero.String())

	u := Uninitialized()
	e, ok := u.Embedder()
	assert.False(t, ok)
	assert.Nil(t, e)

	mock := newCountingEmbedder(2)
	r := Ready(mock)
	e, ok = r.Embedder()
	assert.True(t, ok)
	assert.Same(t, mock, e)
	assert.Equal(t, "ready", r.String())

	assert.False(t, Ready(nil).IsReady())
}

func TestCapability_IsItsOwnSource(t *testing.T) {
	var src CapabilitySource = Ready(newCountingEmbedder(2))
	assert.True(t, src.Current().IsReady())
}

func TestSlot_Transitions(t *testing.T) {
	// Given a slot that starts uninitialized
	slot := NewSlot(Uninitialized())
	assert.False(t, slot.Current().IsReady())

	// When a model becomes ready
	prev := slot.Set(Ready(newCountingEmbedder(2)))

	// Then readers observe the new state
	assert.False(t, prev.IsReady())
	assert.True(t, slot.Current().IsReady())
}
