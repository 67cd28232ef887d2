package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hand/redislock/lib/db"
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// DBFactory is a function type that creates a new db used by the store.
// This is used to abstract the creation of the db from the store implementation.
type DBFactory func() db.KVDB

// IStore is the contract a lock manager needs from a key-value store.
//
// The three compare-and-act methods (SetEIfUnset, ExtendIfEqual, DeleteIfEqual)
// must each be a single atomic operation in the store: no other client may write
// the key between the comparison and the effect. A ttl of 0 means no expiry.
//
// Outcomes that are not errors (key present, value mismatch, key absent) are
// reported through the boolean result. Errors are reserved for failures of the
// store itself and are returned as *Error.
type IStore interface {
	// SetE inserts or overwrites a key–value pair with an optional ttl.
	SetE(ctx context.Context, key string, value []byte, ttl time.Duration) (err error)
	// SetEIfUnset inserts a key–value pair with ttl only if the key does not exist.
	// Returns true if the pair was written.
	SetEIfUnset(ctx context.Context, key string, value []byte, ttl time.Duration) (ok bool, err error)
	// ExtendIfEqual resets the ttl of the key, but only if its current value equals expected.
	// Returns true if the ttl was reset.
	ExtendIfEqual(ctx context.Context, key string, expected []byte, ttl time.Duration) (ok bool, err error)
	// DeleteIfEqual deletes the key, but only if its current value equals expected.
	// Returns true if the key was deleted.
	DeleteIfEqual(ctx context.Context, key string, expected []byte) (ok bool, err error)
	// Get returns the value for a key. The boolean return value indicates whether a value for the key was found.
	Get(ctx context.Context, key string) (value []byte, loaded bool, err error)
	// Ping checks that the store is reachable.
	Ping(ctx context.Context) (err error)
	// Close releases resources owned by the store. Stores built around an injected
	// client do not close that client.
	Close() (err error)
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is a custom error type that wraps a return code (of type RetCode),
// an error message and the underlying cause, if any.
type Error struct {
	Code RetCode // The return code
	Msg  string  // The error message.
	Err  error   // The underlying cause.
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("KVStoreError (code %s): %s: %v", e.Code, e.Msg, e.Err)
	}
	return fmt.Sprintf("KVStoreError (code %s): %s", e.Code, e.Msg)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a new KVStoreError with the given code and message.
func NewError(code RetCode, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
	}
}

// WrapError creates a new KVStoreError with the given code, message and cause.
func WrapError(code RetCode, msg string, err error) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
		Err:  err,
	}
}

// CodeOf returns the return code of err, RetCSuccess for nil and
// RetCInternalError for errors that are not a *Error.
func CodeOf(err error) RetCode {
	if err == nil {
		return RetCSuccess
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return RetCInternalError
}

// IsUnavailable reports whether err means the store could not be reached.
func IsUnavailable(err error) bool {
	return CodeOf(err) == RetCUnavailable
}

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

type RetCode uint64

const (
	RetCSuccess              RetCode = iota // 0: Command executed successfully.
	RetCInternalError                       // 1: Command failed due to an internal error.
	RetCUnsupportedOperation                // 2: Operation is not supported by underlying database.
	RetCInvalidOperation                    // 3: Invalid operation.
	RetCUnavailable                         // 4: The store could not be reached (transport, timeout, closed).
)

func (c RetCode) String() string {
	switch c {
	case RetCSuccess:
		return "Success"
	case RetCInternalError:
		return "InternalError"
	case RetCUnsupportedOperation:
		return "UnsupportedOperation"
	case RetCInvalidOperation:
		return "InvalidOperation"
	case RetCUnavailable:
		return "Unavailable"
	default:
		return "Unknown"
	}
}
