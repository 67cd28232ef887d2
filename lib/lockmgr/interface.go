package lockmgr

import (
	"context"
	"time"
)

// ILockManager defines the interface for a lock manager.
//
// All methods return *Error values; use errors.Is with the Err* sentinels or
// KindOf to tell the failure kinds apart.
type ILockManager interface {
	// Acquire tries to become the owner of the lock name for lease. On success the
	// returned Handle is in StateHeld. What happens when the lock is already held
	// is decided by policy. A failed Acquire never returns a Handle.
	Acquire(ctx context.Context, name string, lease time.Duration, policy WaitPolicy) (h *Handle, err error)

	// Renew resets the lease of a held lock to h.Lease(). Returns an
	// OwnershipLost error if the caller is no longer the owner; the handle is
	// then terminal.
	Renew(ctx context.Context, h *Handle) (err error)

	// Release gives up the lock. Returns an OwnershipLost error if the record was
	// already gone or owned by someone else, including on a second Release.
	Release(ctx context.Context, h *Handle) (err error)

	// WithLock acquires the lock, keeps it alive with a Renewer while fn runs and
	// releases it afterwards. The context passed to fn is canceled when ownership
	// is lost; the returned error then matches ErrOwnershipLost, joined with
	// fn's own error if it returned one.
	WithLock(ctx context.Context, name string, lease time.Duration, policy WaitPolicy, fn func(ctx context.Context) error) (err error)

	// KeepAlive starts a Renewer for h.
	KeepAlive(ctx context.Context, h *Handle, opts ...RenewerOption) (r *Renewer, err error)
}
