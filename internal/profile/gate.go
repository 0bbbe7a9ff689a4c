// ABOUTME: One-shot gate intercepting the first outgoing message
// ABOUTME: State machine with re-entrancy guard around held-message release

package profile

import "sync"

// GateState is the gate's position in its lifecycle.
type GateState string

const (
	// GateIdle means the gate has not intercepted anything yet.
	GateIdle GateState = "idle"
	// GateAwaitingInput means a message is held pending profile input.
	GateAwaitingInput GateState = "awaiting-input"
	// GateResolved means the profile question has been answered (or
	// skipped) and the gate is permanently bypassed.
	GateResolved GateState = "resolved"
)

// Gate intercepts the first message of a fresh conversation so the
// user can optionally provide a profile before anything is sent.
// All methods are safe for concurrent use; the mutex doubles as the
// re-entrancy guard that makes a double Resolve release the held
// message at most once.
type Gate struct {
	mu      sync.Mutex
	state   GateState
	held    string
	profile *Profile
}

// NewGate creates a gate in the idle state.
func NewGate() *Gate {
	return &Gate{state: GateIdle}
}

// Restore creates a gate from a persisted profile. A non-nil profile
// means the gate was resolved in a previous run and must not re-arm.
func Restore(p *Profile) *Gate {
	if p == nil {
		return NewGate()
	}
	cp := *p
	return &Gate{state: GateResolved, profile: &cp}
}

// Intercept decides whether an outgoing message must be held for
// profile collection. held is true only when the gate was idle and
// the conversation has no server identity yet; pending is true when
// an earlier message is already held awaiting input. Both checks
// happen under one lock so concurrent first sends cannot slip past an
// armed gate. Callers must not send the message when either is true.
func (g *Gate) Intercept(text string, hasConversation bool) (held, pending bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state == GateAwaitingInput {
		return false, true
	}
	if g.state != GateIdle || hasConversation {
		return false, false
	}
	g.state = GateAwaitingInput
	g.held = text
	return true, false
}

// Resolve answers the profile question. When a message is held, it is
// released exactly once: the first caller gets the raw held text and
// released=true; any concurrent or repeated call gets released=false.
// Annotating is the sender's job: the message log keeps the raw text,
// only the outgoing request carries the profile prefix. Resolving
// while idle (the explicit edit-profile action before any send)
// records the profile without releasing anything.
func (g *Gate) Resolve(p Profile) (text string, released bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	switch g.state {
	case GateAwaitingInput:
		g.profile = &p
		g.state = GateResolved
		held := g.held
		g.held = ""
		return held, true
	case GateIdle:
		g.profile = &p
		g.state = GateResolved
		return "", false
	default: // GateResolved: edit-profile reuses submit semantics
		g.profile = &p
		return "", false
	}
}

// Skip resolves the gate with an empty profile. The held message, if
// any, is released.
func (g *Gate) Skip() (text string, released bool) {
	return g.Resolve(Profile{})
}

// State returns the current gate state.
func (g *Gate) State() GateState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Profile returns a copy of the resolved profile, or nil if the gate
// has not been resolved.
func (g *Gate) Profile() *Profile {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.profile == nil {
		return nil
	}
	cp := *g.profile
	return &cp
}

// Reset re-arms the gate. Only clearing the conversation calls this.
func (g *Gate) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.state = GateIdle
	g.held = ""
	g.profile = nil
}
