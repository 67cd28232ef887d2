// Package db defines the contract for in-memory key-value engines that back the
// local lock store.
//
// The package focuses on:
//   - A small interface tailored to lease records (set, set-if-unset,
//     compare-and-extend, compare-and-delete, get)
//   - Feature discovery through capability flags
//   - Metadata reporting
//
// Note on Time-Based Operations:
//
//	All operations take the current time as a parameter. The engine treats it as
//	the logical "now" for that call, which keeps expiry decisions deterministic
//	and lets callers (and tests) drive time with their own clock. An entry whose
//	deadline is at or before `now` is invisible to every operation, exactly as if
//	it had been deleted; background garbage collection only reclaims its memory.
//
// Implementations:
//   - engines/maple: sharded concurrent map with a deadline heap for GC
package db
