package lockmgr

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestWithLock(t *testing.T) {
	mgr := newTestManager(newLocalStore(t, nil))
	ctx := context.Background()

	ran := false
	err := mgr.WithLock(ctx, "jobs", time.Second, NoWait(), func(ctx context.Context) error {
		ran = true

		_, err := mgr.Acquire(ctx, "jobs", time.Second, NoWait())
		assert.ErrorIs(t, err, ErrContended)
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)

	// released afterwards
	h, err := mgr.Acquire(ctx, "jobs", time.Second, NoWait())
	require.NoError(t, err)
	require.NoError(t, mgr.Release(ctx, h))
}

func TestWithLockFunctionError(t *testing.T) {
	mgr := newTestManager(newLocalStore(t, nil))
	ctx := context.Background()
	boom := errors.New("boom")

	err := mgr.WithLock(ctx, "jobs", time.Second, NoWait(), func(context.Context) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)

	h, err := mgr.Acquire(ctx, "jobs", time.Second, NoWait())
	require.NoError(t, err, "lock must be released after a failing function")
	require.NoError(t, mgr.Release(ctx, h))
}

func TestWithLockReleasesOnPanic(t *testing.T) {
	mgr := newTestManager(newLocalStore(t, nil))
	ctx := context.Background()

	assert.Panics(t, func() {
		_ = mgr.WithLock(ctx, "jobs", time.Second, NoWait(), func(context.Context) error {
			panic("boom")
		})
	})

	h, err := mgr.Acquire(ctx, "jobs", time.Second, NoWait())
	require.NoError(t, err)
	require.NoError(t, mgr.Release(ctx, h))
}

func TestWithLockContended(t *testing.T) {
	mgr := newTestManager(newLocalStore(t, nil))
	ctx := context.Background()

	_, err := mgr.Acquire(ctx, "jobs", time.Minute, NoWait())
	require.NoError(t, err)

	err = mgr.WithLock(ctx, "jobs", time.Second, NoWait(), func(context.Context) error {
		t.Fatal("function must not run without the lock")
		return nil
	})
	assert.ErrorIs(t, err, ErrContended)
}

func TestWithLockOwnershipLost(t *testing.T) {
	inner := newLocalStore(t, nil)
	mgr := newTestManager(inner)
	ctx := context.Background()

	err := mgr.WithLock(ctx, "jobs", 150*time.Millisecond, NoWait(), func(lockCtx context.Context) error {
		require.NoError(t, inner.SetE(ctx, DefaultKeyPrefix+"jobs", []byte("intruder"), 0))

		select {
		case <-lockCtx.Done():
		case <-time.After(2 * time.Second):
			t.Error("lock context was not canceled after the lock was lost")
		}
		return nil
	})
	assert.ErrorIs(t, err, ErrOwnershipLost)

	value, ok, err := inner.Get(ctx, DefaultKeyPrefix+"jobs")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "intruder", string(value))
}

func TestWithLockOwnershipLostWithFunctionError(t *testing.T) {
	inner := newLocalStore(t, nil)
	mgr := newTestManager(inner)
	ctx := context.Background()

	err := mgr.WithLock(ctx, "jobs", 150*time.Millisecond, NoWait(), func(lockCtx context.Context) error {
		require.NoError(t, inner.SetE(ctx, DefaultKeyPrefix+"jobs", []byte("intruder"), 0))

		select {
		case <-lockCtx.Done():
			return lockCtx.Err()
		case <-time.After(2 * time.Second):
			return errors.New("lock context was not canceled")
		}
	})
	assert.ErrorIs(t, err, ErrOwnershipLost)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWithLockNilFunction(t *testing.T) {
	fs := newFaultStore(newLocalStore(t, nil))
	mgr := newTestManager(fs)

	err := mgr.WithLock(context.Background(), "jobs", time.Second, NoWait(), nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.Equal(t, 0, fs.TotalCalls())
}

// --------------------------------------------------------------------------
// Observability
// --------------------------------------------------------------------------

func TestSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	mgr := newTestManager(newLocalStore(t, nil), WithTracerProvider(tp))
	ctx := context.Background()

	h, err := mgr.Acquire(ctx, "jobs", time.Second, NoWait())
	require.NoError(t, err)
	_, err = mgr.Acquire(ctx, "jobs", time.Second, NoWait())
	require.ErrorIs(t, err, ErrContended)
	require.NoError(t, mgr.Renew(ctx, h))
	require.NoError(t, mgr.Release(ctx, h))

	spans := recorder.Ended()
	require.Len(t, spans, 4)

	names := make([]string, len(spans))
	for i, s := range spans {
		names[i] = s.Name()
	}
	assert.Equal(t, []string{"lockmgr.acquire", "lockmgr.acquire", "lockmgr.renew", "lockmgr.release"}, names)

	assert.Equal(t, codes.Unset, spans[0].Status().Code)
	assert.Equal(t, codes.Error, spans[1].Status().Code)

	found := false
	for _, kv := range spans[0].Attributes() {
		if string(kv.Key) == "lock.name" {
			found = true
			assert.Equal(t, "jobs", kv.Value.AsString())
		}
	}
	assert.True(t, found, "lock.name attribute missing")
}

func TestMetrics(t *testing.T) {
	mgr := newTestManager(newLocalStore(t, nil))
	ctx := context.Background()

	ok := metrics.GetOrCreateCounter(`redislock_acquire_total{result="ok"}`)
	contended := metrics.GetOrCreateCounter(`redislock_acquire_total{result="contended"}`)
	released := metrics.GetOrCreateCounter(`redislock_release_total{result="ok"}`)
	okBefore, contendedBefore, releasedBefore := ok.Get(), contended.Get(), released.Get()

	h, err := mgr.Acquire(ctx, "metrics", time.Second, NoWait())
	require.NoError(t, err)
	_, err = mgr.Acquire(ctx, "metrics", time.Second, NoWait())
	require.Error(t, err)
	require.NoError(t, mgr.Release(ctx, h))

	// other tests may run in parallel and count as well
	assert.GreaterOrEqual(t, ok.Get()-okBefore, uint64(1))
	assert.GreaterOrEqual(t, contended.Get()-contendedBefore, uint64(1))
	assert.GreaterOrEqual(t, released.Get()-releasedBefore, uint64(1))
}
