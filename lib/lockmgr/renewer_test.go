package lockmgr

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitDone(t *testing.T, r *Renewer, within time.Duration) {
	t.Helper()
	select {
	case <-r.Done():
	case <-time.After(within):
		t.Fatal("renewer did not stop in time")
	}
}

func TestRenewerKeepsLockAlive(t *testing.T) {
	mgr := newTestManager(newLocalStore(t, nil))
	ctx := context.Background()

	h, err := mgr.Acquire(ctx, "jobs", 150*time.Millisecond, NoWait())
	require.NoError(t, err)

	r, err := mgr.KeepAlive(ctx, h)
	require.NoError(t, err)

	time.Sleep(500 * time.Millisecond)
	assert.True(t, h.IsHeld())
	assert.NoError(t, r.Context().Err())

	_, err = mgr.Acquire(ctx, "jobs", time.Second, NoWait())
	assert.ErrorIs(t, err, ErrContended)

	require.NoError(t, r.Stop(ctx))
	waitDone(t, r, time.Second)
	assert.Error(t, r.Context().Err())
	require.NoError(t, mgr.Release(ctx, h))
}

func TestRenewerStopsOnOwnershipLost(t *testing.T) {
	inner := newLocalStore(t, nil)
	mgr := newTestManager(inner)
	ctx := context.Background()

	h, err := mgr.Acquire(ctx, "jobs", 150*time.Millisecond, NoWait())
	require.NoError(t, err)

	r, err := mgr.KeepAlive(ctx, h)
	require.NoError(t, err)

	// someone force-releases and takes over the lock
	require.NoError(t, inner.SetE(ctx, DefaultKeyPrefix+"jobs", []byte("intruder"), 0))

	waitDone(t, r, time.Second)
	assert.ErrorIs(t, r.Err(), ErrOwnershipLost)
	assert.ErrorIs(t, r.Context().Err(), context.Canceled)
	assert.Equal(t, StateLost, h.State())
	assert.ErrorIs(t, r.Stop(ctx), ErrOwnershipLost)
}

func TestRenewerStopsAfterRelease(t *testing.T) {
	fs := newFaultStore(newLocalStore(t, nil))
	mgr := newTestManager(fs)
	ctx := context.Background()

	h, err := mgr.Acquire(ctx, "jobs", time.Second, NoWait())
	require.NoError(t, err)

	r, err := mgr.KeepAlive(ctx, h, WithInterval(20*time.Millisecond))
	require.NoError(t, err)

	time.Sleep(70 * time.Millisecond)
	require.NoError(t, mgr.Release(ctx, h))
	renewals := fs.Calls("ExtendIfEqual")

	waitDone(t, r, time.Second)
	assert.NoError(t, r.Err())

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, renewals, fs.Calls("ExtendIfEqual"), "store was called after release")
}

func TestRenewerGivesUpWhenLeaseRunsOut(t *testing.T) {
	fs := newFaultStore(newLocalStore(t, nil))
	mgr := newTestManager(fs, WithStoreRetries(0))
	ctx := context.Background()

	h, err := mgr.Acquire(ctx, "jobs", 200*time.Millisecond, NoWait())
	require.NoError(t, err)

	r, err := mgr.KeepAlive(ctx, h, WithInterval(40*time.Millisecond))
	require.NoError(t, err)

	fs.FailAll(true)

	waitDone(t, r, time.Second)
	assert.ErrorIs(t, r.Err(), ErrOwnershipLost)
	assert.GreaterOrEqual(t, fs.Calls("ExtendIfEqual"), 2, "renewer should keep trying while the lease lasts")
	assert.False(t, h.IsHeld())
}

func TestRenewerSurvivesShortOutage(t *testing.T) {
	fs := newFaultStore(newLocalStore(t, nil))
	mgr := newTestManager(fs, WithStoreRetries(0))
	ctx := context.Background()

	h, err := mgr.Acquire(ctx, "jobs", 300*time.Millisecond, NoWait())
	require.NoError(t, err)

	r, err := mgr.KeepAlive(ctx, h, WithInterval(50*time.Millisecond))
	require.NoError(t, err)

	fs.FailNext(2)
	time.Sleep(400 * time.Millisecond)

	assert.True(t, h.IsHeld())
	assert.NoError(t, r.Err())
	require.NoError(t, r.Stop(ctx))
	require.NoError(t, mgr.Release(ctx, h))
}

func TestRenewerParentContextCanceled(t *testing.T) {
	mgr := newTestManager(newLocalStore(t, nil))

	h, err := mgr.Acquire(context.Background(), "jobs", time.Second, NoWait())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	r, err := mgr.KeepAlive(ctx, h)
	require.NoError(t, err)

	cancel()
	waitDone(t, r, time.Second)
	assert.NoError(t, r.Err())
	assert.Error(t, r.Context().Err())
}

func TestRenewerInterval(t *testing.T) {
	mgr := newTestManager(newLocalStore(t, nil))

	h, err := mgr.Acquire(context.Background(), "jobs", 300*time.Millisecond, NoWait())
	require.NoError(t, err)

	r, err := NewRenewer(mgr, h)
	require.NoError(t, err)
	assert.Equal(t, 100*time.Millisecond, r.interval)

	_, err = NewRenewer(mgr, h, WithInterval(300*time.Millisecond))
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = NewRenewer(mgr, h, WithInterval(0))
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = NewRenewer(nil, h)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = NewRenewer(mgr, nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestRenewerNotStarted(t *testing.T) {
	mgr := newTestManager(newLocalStore(t, nil))

	h, err := mgr.Acquire(context.Background(), "jobs", time.Second, NoWait())
	require.NoError(t, err)

	r, err := NewRenewer(mgr, h)
	require.NoError(t, err)

	waitDone(t, r, time.Second)
	assert.Error(t, r.Context().Err())
	assert.NoError(t, r.Stop(context.Background()))

	// a stopped renewer can't be started again
	r.Start(context.Background())
	waitDone(t, r, time.Second)
}
