package lockmgr

import (
	"sync"
	"sync/atomic"
	"time"
)

// State is the lifecycle state of a Handle
type State int32

const (
	StateHeld     State = iota // the lease is believed to be valid
	StateReleased              // released by the owner
	StateLost                  // the store reported that someone else owns the lock (or nobody)
	StateExpired               // the local lease deadline passed without a renewal
)

func (s State) String() string {
	switch s {
	case StateHeld:
		return "Held"
	case StateReleased:
		return "Released"
	case StateLost:
		return "Lost"
	case StateExpired:
		return "Expired"
	default:
		return "Unknown"
	}
}

// Handle is the proof of ownership returned by a successful Acquire.
//
// A Handle is only ever created in StateHeld. Released, Lost and Expired are
// terminal. Renew and Release calls on the same Handle are serialized.
type Handle struct {
	name  string
	key   string
	token string
	lease time.Duration
	clock func() time.Time

	// serializes renew and release
	opMu sync.Mutex

	state    atomic.Int32
	deadline atomic.Int64 // unix nanoseconds
}

func newHandle(name, key, token string, lease time.Duration, requested time.Time, clock func() time.Time) *Handle {
	h := &Handle{
		name:  name,
		key:   key,
		token: token,
		lease: lease,
		clock: clock,
	}
	h.state.Store(int32(StateHeld))
	h.extendFrom(requested)
	return h
}

// Name returns the lock name
func (h *Handle) Name() string { return h.name }

// Token returns the owner token stored in the lock record
func (h *Handle) Token() string { return h.token }

// Lease returns the lease duration requested on acquire and on every renewal
func (h *Handle) Lease() time.Duration { return h.lease }

// Deadline returns the local estimate of when the lease runs out. It is
// computed from the time the last successful request was sent, so it never
// lies after the store-side expiry.
func (h *Handle) Deadline() time.Time {
	return time.Unix(0, h.deadline.Load())
}

// State returns the current state. A held handle whose local deadline has
// passed reports StateExpired.
func (h *Handle) State() State {
	s := State(h.state.Load())
	if s == StateHeld && !h.clock().Before(h.Deadline()) {
		return StateExpired
	}
	return s
}

// IsHeld reports whether guarded work may proceed
func (h *Handle) IsHeld() bool {
	return h.State() == StateHeld
}

// extendFrom moves the local deadline to requested+lease
func (h *Handle) extendFrom(requested time.Time) {
	h.deadline.Store(requested.Add(h.lease).UnixNano())
}

// finish moves a held handle into a terminal state
func (h *Handle) finish(s State) {
	h.state.CompareAndSwap(int32(StateHeld), int32(s))
}
