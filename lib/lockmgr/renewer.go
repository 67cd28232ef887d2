package lockmgr

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// RenewerOption configures a Renewer
type RenewerOption func(*Renewer)

// WithInterval sets the renewal interval (default: lease/3)
func WithInterval(d time.Duration) RenewerOption {
	return func(r *Renewer) { r.interval = d }
}

// Renewer keeps one held lock alive by renewing it on a fixed interval.
//
// It stops when
//   - the lock is lost (Err returns an OwnershipLost error),
//   - the store stays unavailable until the lease runs out (OwnershipLost),
//   - the handle is released (Err returns nil),
//   - Stop is called or the context passed to Start is done.
//
// Context returns a context that is canceled as soon as the renewer stops, so
// work guarded by the lock can be tied to it.
type Renewer struct {
	mgr      ILockManager
	handle   *Handle
	interval time.Duration

	mu      sync.RWMutex
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	started bool
	err     error
}

// NewRenewer creates a renewer for h. It does nothing until Start is called.
func NewRenewer(mgr ILockManager, h *Handle, opts ...RenewerOption) (*Renewer, error) {
	if mgr == nil || h == nil {
		return nil, newError(KindInvalidArgument, "", "lock manager and handle must not be nil", nil)
	}

	r := &Renewer{
		mgr:      mgr,
		handle:   h,
		interval: h.lease / 3,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}

	if r.interval <= 0 || r.interval >= h.lease {
		return nil, newError(KindInvalidArgument, h.name,
			fmt.Sprintf("renewal interval (%v) must be positive and shorter than the lease (%v)", r.interval, h.lease), nil)
	}

	// a renewer that never started is already done
	r.ctx, r.cancel = context.WithCancel(context.Background())
	r.cancel()

	return r, nil
}

// Start launches the renewal loop. Calling Start more than once has no effect.
func (r *Renewer) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return
	}
	r.started = true
	r.ctx, r.cancel = context.WithCancel(ctx)

	go r.run(r.ctx)
}

// Stop stops the renewal loop and waits for it to exit. Returns Err().
func (r *Renewer) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.started {
		r.started = true
		close(r.done)
	}
	cancel := r.cancel
	r.mu.Unlock()

	cancel()

	select {
	case <-r.done:
		return r.Err()
	case <-ctx.Done():
		return fmt.Errorf("timeout waiting for renewer to stop: %w", ctx.Err())
	}
}

// Done returns a channel that is closed when the renewal loop has exited
func (r *Renewer) Done() <-chan struct{} {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.started {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return r.done
}

// Context returns a context canceled when the renewer stops for any reason
func (r *Renewer) Context() context.Context {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ctx
}

// Err returns the error that stopped the renewer. It is nil while running,
// after Stop and after the handle was released.
func (r *Renewer) Err() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.err
}

func (r *Renewer) setError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

// run is the renewal loop
func (r *Renewer) run(ctx context.Context) {
	defer close(r.done)
	defer r.cancel()

	h := r.handle
	timer := time.NewTimer(r.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		switch h.State() {
		case StateReleased:
			return
		case StateLost, StateExpired:
			r.setError(newError(KindOwnershipLost, h.name, "renewer found the lease "+h.State().String(), nil))
			return
		}

		err := r.mgr.Renew(ctx, h)
		switch KindOf(err) {
		case KindUnknown:
			timer.Reset(r.interval)
		case KindStoreUnavailable:
			// try again, but give up the moment the lease runs out
			next := r.interval
			if untilDeadline := h.Deadline().Sub(h.clock()); untilDeadline < next {
				next = max(untilDeadline, 0)
			}
			timer.Reset(next)
		case KindOwnershipLost:
			// a concurrent Release also ends up here
			if h.State() != StateReleased {
				r.setError(err)
			}
			return
		case KindCanceled, KindTimeout:
			return
		default:
			r.setError(err)
			return
		}
	}
}
