// Package lockmgr implements a distributed mutual-exclusion lock on top of
// key-value stores that implement the store.IStore interface.
//
// The lock manager only ever stores in the provided IStore and has no other
// shared state. It is safe to create it multiple times on the same store, in
// the same process or in many processes. As long as the same store (and key
// prefix) is used, all locks work as expected.
//
// Core Functionality:
//   - Lock acquisition with a lease, failing fast or waiting with backoff
//   - Lease renewal and release guarded by a per-acquire owner token
//   - Background renewal (Renewer) that cancels dependent work when the lock is lost
//   - A WithLock helper that ties all of the above to one function call
//
// Implementation Approach:
//
//	Every operation is exactly one atomic conditional store operation. No
//	operation reads the record first and acts on it afterwards.
//
//	- Lock Acquisition: SetEIfUnset(key, token, lease). Only one requester can
//	  create the key. The value is a fresh random owner token (uuid v4).
//
//	- Lease Renewal: ExtendIfEqual(key, token, lease) resets the expiry only if
//	  the record still carries our token.
//
//	- Release: DeleteIfEqual(key, token) removes the record only if it still
//	  carries our token, so a process whose lease ran out can never delete the
//	  lock of the next owner.
//
//	- Expiry: the store drops records whose lease was not renewed, so a crashed
//	  owner blocks others for at most one lease.
//
// Errors:
//
//	All operations return *Error values classified by Kind: InvalidArgument,
//	Contended, Timeout, OwnershipLost, StoreUnavailable and Canceled. Store
//	calls failing because the store is unavailable are retried with backoff a
//	bounded number of times before StoreUnavailable is returned.
//
// Usage Example:
//
//	mgr := lockmgr.NewLockManager(store)
//
//	h, err := mgr.Acquire(ctx, "resource:123", 30*time.Second, lockmgr.WaitUpTo(5*time.Second))
//	if err != nil {
//	    // errors.Is(err, lockmgr.ErrTimeout), ...
//	}
//	defer mgr.Release(ctx, h)
//
//	r, _ := mgr.KeepAlive(ctx, h)
//	defer r.Stop(ctx)
//	doWork(r.Context())
//
// or simply
//
//	err := mgr.WithLock(ctx, "resource:123", 30*time.Second, lockmgr.NoWait(), doWork)
//
// Clock Considerations:
//
//	The local lease deadline of a Handle is computed from the time the request
//	was sent, so the handle reports StateExpired no later than the store drops
//	the record, as long as the clocks advance at the same rate. The lock gives
//	no fencing guarantees beyond that.
package lockmgr
