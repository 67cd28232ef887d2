package db

import "time"

// --------------------------------------------------------------------------
// Helper Types
// --------------------------------------------------------------------------

type Implementation string

const (
	ImplMaple Implementation = "maple"
)

// Feature represents database features as bit flags
type Feature uint64

const (
	FeatureSetE           Feature = 1 << iota // Support for SetE operations
	FeatureSetEIfUnset                        // Support for SetEIfUnset operations
	FeatureExtendIfEqual                      // Support for ExtendIfEqual operations
	FeatureDeleteIfEqual                      // Support for DeleteIfEqual operations
	FeatureGet                                // Support for Get operations
	FeatureGarbageCollect                     // Support for background removal of expired entries
)

func (f Feature) String() string {
	switch f {
	case FeatureSetE:
		return "SetE"
	case FeatureSetEIfUnset:
		return "SetEIfUnset"
	case FeatureExtendIfEqual:
		return "ExtendIfEqual"
	case FeatureDeleteIfEqual:
		return "DeleteIfEqual"
	case FeatureGet:
		return "Get"
	case FeatureGarbageCollect:
		return "GarbageCollect"
	default:
		return "Unknown"
	}
}

type DatabaseInfo struct {
	Keys              int            `json:"keys"`
	DbType            Implementation `json:"db_type"`
	SupportedFeatures []Feature      `json:"supported_features"`
}

// --------------------------------------------------------------------------
// Database Interface
// --------------------------------------------------------------------------

// KVDB defines an interface for in-memory key-value database implementations with
// per-entry time to live.
//
// Every operation receives the current time from the caller. The database never
// reads the wall clock for expiry decisions on its own, so an entry is expired at
// `now` iff now >= its deadline. A ttl of 0 means the entry never expires.
//
// All compare-and-act operations are atomic with respect to each other for the
// same key: no other write to the key can happen between the comparison and the
// effect.
type KVDB interface {

	// --------------------------------------------------------------------------
	// Write Operations
	// --------------------------------------------------------------------------

	// SetE inserts or overwrites an entry. Any previous deadline is replaced.
	SetE(key string, value []byte, now time.Time, ttl time.Duration)

	// SetEIfUnset inserts an entry only if no live entry exists for the key.
	// Returns true if the entry was written.
	SetEIfUnset(key string, value []byte, now time.Time, ttl time.Duration) (ok bool)

	// ExtendIfEqual resets the deadline of the entry to now+ttl, but only if a live
	// entry exists and its value equals expected. Returns true if the deadline moved.
	ExtendIfEqual(key string, expected []byte, now time.Time, ttl time.Duration) (ok bool)

	// DeleteIfEqual removes the entry, but only if a live entry exists and its value
	// equals expected. Returns true if the entry was removed.
	DeleteIfEqual(key string, expected []byte, now time.Time) (ok bool)

	// --------------------------------------------------------------------------
	// Query Operations
	// --------------------------------------------------------------------------

	// Get retrieves a copy of the live value for a key.
	// The boolean return value indicates whether a live value was found.
	Get(key string, now time.Time) (value []byte, loaded bool)

	// --------------------------------------------------------------------------
	// Feature Support
	// --------------------------------------------------------------------------

	// SupportsFeature checks if the database implementation supports the specified feature.
	// Multiple features can be checked at once using bitwise OR (|) operator.
	SupportsFeature(feature Feature) (ok bool)

	// GetInfo returns information about the database.
	GetInfo() (info DatabaseInfo)

	// Close stops background work of the database.
	Close() (err error)
}
