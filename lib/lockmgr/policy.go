package lockmgr

import (
	"context"
	"math/rand/v2"
	"time"
)

const (
	defaultWaitBaseDelay = 10 * time.Millisecond
	defaultWaitMaxDelay  = 500 * time.Millisecond
)

// WaitPolicy controls what Acquire does when the lock is held by someone else.
//
// The zero value (and NoWait) fails immediately with a Contended error. With a
// positive Timeout, Acquire retries with exponential backoff and full jitter
// starting at BaseDelay and capped at MaxDelay, and returns a Timeout error
// once Timeout has elapsed.
type WaitPolicy struct {
	Timeout   time.Duration
	BaseDelay time.Duration // 0 = 10ms
	MaxDelay  time.Duration // 0 = 500ms
}

// NoWait fails immediately if the lock is held
func NoWait() WaitPolicy {
	return WaitPolicy{}
}

// WaitUpTo retries for at most d with the default backoff
func WaitUpTo(d time.Duration) WaitPolicy {
	return WaitPolicy{Timeout: d}
}

func (p WaitPolicy) waits() bool {
	return p.Timeout > 0
}

func (p WaitPolicy) withDefaults() WaitPolicy {
	if p.BaseDelay <= 0 {
		p.BaseDelay = defaultWaitBaseDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = defaultWaitMaxDelay
	}
	if p.MaxDelay < p.BaseDelay {
		p.MaxDelay = p.BaseDelay
	}
	return p
}

func (p WaitPolicy) validate() error {
	if p.Timeout < 0 || p.BaseDelay < 0 || p.MaxDelay < 0 {
		return newError(KindInvalidArgument, "", "wait policy durations must not be negative", nil)
	}
	return nil
}

// --------------------------------------------------------------------------
// Backoff
// --------------------------------------------------------------------------

// backoff returns a random delay in [0, min(maxDelay, base*2^attempt)]
func backoff(attempt int, base, maxDelay time.Duration) time.Duration {
	d := base
	for i := 0; i < attempt && d < maxDelay; i++ {
		d *= 2
	}
	if d > maxDelay {
		d = maxDelay
	}
	if d <= 0 {
		return 0
	}
	return time.Duration(rand.Int64N(int64(d) + 1))
}

// sleepWithContext waits for d or until ctx is done
func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
