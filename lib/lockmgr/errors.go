package lockmgr

import (
	"context"
	"errors"
	"fmt"
)

// --------------------------------------------------------------------------
// Error Kinds
// --------------------------------------------------------------------------

// Kind classifies why a lock operation failed
type Kind int

const (
	KindUnknown          Kind = iota // not a lock manager error
	KindInvalidArgument              // bad input, never retried
	KindContended                    // lock is held by another owner
	KindTimeout                      // wait deadline passed before the lock became free
	KindOwnershipLost                // the caller no longer owns the lock
	KindStoreUnavailable             // the store could not be reached after all retries
	KindCanceled                     // the caller's context was canceled
)

func (k Kind) String() string {
	switch k {
	case KindInvalidArgument:
		return "InvalidArgument"
	case KindContended:
		return "Contended"
	case KindTimeout:
		return "Timeout"
	case KindOwnershipLost:
		return "OwnershipLost"
	case KindStoreUnavailable:
		return "StoreUnavailable"
	case KindCanceled:
		return "Canceled"
	default:
		return "Unknown"
	}
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is returned by every lock manager operation. Name is the lock name the
// operation was called with, Err the underlying cause, if any.
type Error struct {
	Kind Kind
	Name string
	Msg  string
	Err  error
}

// Sentinels for errors.Is. They match any *Error of the same Kind.
var (
	ErrInvalidArgument  = &Error{Kind: KindInvalidArgument}
	ErrContended        = &Error{Kind: KindContended}
	ErrTimeout          = &Error{Kind: KindTimeout}
	ErrOwnershipLost    = &Error{Kind: KindOwnershipLost}
	ErrStoreUnavailable = &Error{Kind: KindStoreUnavailable}
	ErrCanceled         = &Error{Kind: KindCanceled}
)

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Name != "" {
		msg = fmt.Sprintf("%s (lock %q)", msg, e.Name)
	}
	if e.Msg != "" {
		msg += ": " + e.Msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return "lockmgr: " + msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel of e's kind
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Name == "" && t.Msg == "" && t.Err == nil
}

// KindOf returns the kind of err, KindUnknown if err is nil or not an *Error
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func newError(kind Kind, name, msg string, err error) *Error {
	return &Error{Kind: kind, Name: name, Msg: msg, Err: err}
}

// contextError converts a finished context into Timeout or Canceled
func contextError(name string, err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return newError(KindTimeout, name, "context deadline exceeded", err)
	}
	return newError(KindCanceled, name, "", err)
}
