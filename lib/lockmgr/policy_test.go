package lockmgr

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoffBounds(t *testing.T) {
	base := 10 * time.Millisecond
	maxDelay := 80 * time.Millisecond

	for attempt := 0; attempt < 10; attempt++ {
		ceiling := base << attempt
		if ceiling > maxDelay {
			ceiling = maxDelay
		}
		for i := 0; i < 100; i++ {
			d := backoff(attempt, base, maxDelay)
			assert.GreaterOrEqual(t, d, time.Duration(0))
			assert.LessOrEqual(t, d, ceiling, "attempt %d", attempt)
		}
	}
}

func TestBackoffIsJittered(t *testing.T) {
	seen := make(map[time.Duration]bool)
	for i := 0; i < 50; i++ {
		seen[backoff(3, 10*time.Millisecond, time.Second)] = true
	}
	assert.Greater(t, len(seen), 1)
}

func TestWaitPolicyDefaults(t *testing.T) {
	p := NoWait()
	assert.False(t, p.waits())

	p = WaitUpTo(time.Second).withDefaults()
	assert.True(t, p.waits())
	assert.Equal(t, defaultWaitBaseDelay, p.BaseDelay)
	assert.Equal(t, defaultWaitMaxDelay, p.MaxDelay)

	p = WaitPolicy{Timeout: time.Second, BaseDelay: time.Second, MaxDelay: time.Millisecond}.withDefaults()
	assert.Equal(t, time.Second, p.MaxDelay)

	assert.Error(t, WaitPolicy{Timeout: -1}.validate())
	assert.NoError(t, NoWait().validate())
}

func TestSleepWithContext(t *testing.T) {
	assert.NoError(t, sleepWithContext(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sleepWithContext(ctx, time.Hour), context.Canceled)
	assert.ErrorIs(t, sleepWithContext(ctx, 0), context.Canceled)
}
