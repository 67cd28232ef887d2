// Package lstore implements a local, in-memory, single-node key-value store based on the
// store.IStore interface. It provides a thin wrapper around any db.KVDB
// implementation and supplies the engine with the current time on every call.
// Data is stored entirely in memory and is not persisted between process restarts.
//
// Key Features:
//   - Pure in-memory storage without persistence
//   - Direct integration with db.KVDB implementations
//   - Injectable clock, so lease expiry can be driven by tests
//   - Feature detection to handle unsupported operations gracefully
//   - Thread-safe operations for concurrent access
//
// Implementation Details:
//
//   - Clock: every operation reads the store clock once and hands that instant to
//     the engine, which uses it both as "now" for the expiry check and as the base
//     for the new deadline.
//
//   - Feature Detection: Before executing operations, the store checks if the underlying
//     db.KVDB implementation supports the requested feature through the SupportsFeature
//     method. Unsupported operations return RetCUnsupportedOperation.
//
//   - Lifecycle: after Close, every operation fails with RetCUnavailable, the same
//     code a network store reports when its connection is gone.
//
// Usage Example:
//
//	st := lstore.NewLocalStore(func() db.KVDB { return maple.NewMapleDB(nil) })
//	defer st.Close()
//
//	ok, err := st.SetEIfUnset(ctx, "lock:report", []byte(token), 10*time.Second)
//
// Suitable Use Cases:
//
//   - Coordinating goroutines of a single process with the same API as Redis locks
//   - Testing and development environments
package lstore
