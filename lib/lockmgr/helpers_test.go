package lockmgr

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/hand/redislock/lib/db"
	"github.com/hand/redislock/lib/db/engines/maple"
	"github.com/hand/redislock/lib/logging"
	"github.com/hand/redislock/lib/store"
	"github.com/hand/redislock/lib/store/lstore"
)

// manualClock is a clock that only moves when told to
type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Unix(1_700_000_000, 0)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newMapleDB() db.KVDB {
	return maple.NewMapleDB(nil)
}

// newLocalStore creates an in-process store, clock may be nil for the wall clock
func newLocalStore(t *testing.T, clock func() time.Time) store.IStore {
	t.Helper()
	var opts []lstore.Option
	if clock != nil {
		opts = append(opts, lstore.WithClock(clock))
	}
	st := lstore.NewLocalStore(newMapleDB, opts...)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

// newTestManager creates a manager with fast store retries and no log output
func newTestManager(s store.IStore, opts ...Option) ILockManager {
	base := []Option{
		WithLogger(logging.NewNop()),
		WithStoreRetryDelay(time.Millisecond),
	}
	return NewLockManager(s, append(base, opts...)...)
}

// --------------------------------------------------------------------------
// Fault injecting store
// --------------------------------------------------------------------------

// faultStore wraps a store, counts calls and injects failures
type faultStore struct {
	store.IStore

	mu       sync.Mutex
	calls    map[string]int
	failures int  // the next n calls fail as unavailable
	failAll  bool // every call fails as unavailable

	// afterSet runs after a SetEIfUnset reached the wrapped store; it may
	// replace the result
	afterSet func(ctx context.Context, ok bool, err error) (bool, error)
}

func newFaultStore(inner store.IStore) *faultStore {
	return &faultStore{IStore: inner, calls: make(map[string]int)}
}

func (f *faultStore) count(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op]++
	if f.failAll {
		return store.NewError(store.RetCUnavailable, "injected outage")
	}
	if f.failures > 0 {
		f.failures--
		return store.NewError(store.RetCUnavailable, "injected failure")
	}
	return nil
}

func (f *faultStore) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *faultStore) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.calls {
		total += n
	}
	return total
}

func (f *faultStore) FailNext(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures = n
}

func (f *faultStore) FailAll(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failAll = fail
}

func (f *faultStore) SetEIfUnset(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	if err := f.count("SetEIfUnset"); err != nil {
		return false, err
	}
	ok, err := f.IStore.SetEIfUnset(ctx, key, value, ttl)
	f.mu.Lock()
	hook := f.afterSet
	f.mu.Unlock()
	if hook != nil {
		return hook(ctx, ok, err)
	}
	return ok, err
}

func (f *faultStore) ExtendIfEqual(ctx context.Context, key string, expected []byte, ttl time.Duration) (bool, error) {
	if err := f.count("ExtendIfEqual"); err != nil {
		return false, err
	}
	return f.IStore.ExtendIfEqual(ctx, key, expected, ttl)
}

func (f *faultStore) DeleteIfEqual(ctx context.Context, key string, expected []byte) (bool, error) {
	if err := f.count("DeleteIfEqual"); err != nil {
		return false, err
	}
	return f.IStore.DeleteIfEqual(ctx, key, expected)
}
