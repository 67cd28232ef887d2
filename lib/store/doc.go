// Package store defines the key-value store contract used by the lock manager,
// together with unified error handling for store implementations.
//
// The package focuses on:
//   - A unified interface (IStore) built around three atomic primitives:
//     set-if-unset with ttl, compare-and-extend and compare-and-delete
//   - Pluggable storage backends (in-process or Redis)
//
// Key Components:
//
//   - IStore Interface: The abstraction every backend implements. Ordinary
//     outcomes (key already present, owner token mismatch) are booleans, store
//     failures are errors.
//
//   - Error System: *Error carries a RetCode. RetCUnavailable marks transport
//     failures (connection refused, timeouts, a closed client, an open circuit
//     breaker) so callers can tell "the store said no" apart from "the store
//     could not be asked".
//
//   - DBFactory: creates the db.KVDB used by the local store.
//
// Implementations:
//
//   - Local Store (lstore): in-process store over a db.KVDB engine. Suitable for
//     tests and for coordinating goroutines of a single process.
//     Available in the "github.com/hand/redislock/lib/store/lstore" package.
//
//   - Redis Store (rstore): store over a go-redis client. Compare-and-act
//     operations are Lua scripts, acquisition is SET NX PX.
//     Available in the "github.com/hand/redislock/lib/store/rstore" package.
//
// Conformance tests shared by all implementations live in
// "github.com/hand/redislock/lib/store/testing".
package store
