package embed

import "sync"

// Capability is the embedding capability held by the indexer: either
// Uninitialized, or Ready with a usable Embedder. The zero value is
// Uninitialized.
type Capability struct {
	embedder Embedder
}

// Uninitialized returns a capability with no embedder.
func Uninitialized() Capability {
	return Capability{}
}

// Ready returns a capability backed by e. A nil e is Uninitialized.
func Ready(e Embedder) Capability {
	return Capability{embedder: e}
}

// Embedder returns the handle and true when the capability is Ready.
func (c Capability) Embedder() (Embedder, bool) {
	return c.embedder, c.embedder != nil
}

// IsReady reports whether an embedder is present.
func (c Capability) IsReady() bool {
	return c.embedder != nil
}

// String returns "ready" or "uninitialized".
func (c Capability) String() string {
	if c.IsReady() {
		return "ready"
	}
	return "uninitialized"
}

// Current lets a fixed Capability act as a CapabilitySource.
func (c Capability) Current() Capability {
	return c
}

// CapabilitySource yields the capability to use for one operation.
type CapabilitySource interface {
	Current() Capability
}

// Slot is a CapabilitySource whose state can change at runtime, for example
// when a long-running server finishes loading its model after startup.
type Slot struct {
	mu    sync.RWMutex
	state Capability
}

// NewSlot returns a slot holding c.
func NewSlot(c Capability) *Slot {
	return &Slot{state: c}
}

// Current returns the capability held now.
func (s *Slot) Current() Capability {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Set replaces the held capability and returns the previous one.
func (s *Slot) Set(c Capability) Capability {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.state
	s.state = c
	return prev
}
