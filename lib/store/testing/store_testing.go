package testing

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hand/redislock/lib/store"
)

// Harness bundles a fresh store with a way to move the store's clock forward.
type Harness struct {
	Store   store.IStore
	Advance func(d time.Duration)
}

// Factory creates a new, empty store for one test.
type Factory func(t *testing.T) Harness

// RunStoreTests runs the conformance suite for a store.IStore implementation.
func RunStoreTests(t *testing.T, name string, factory Factory) {
	t.Run(name, func(t *testing.T) {
		t.Run("SetE&Get", func(t *testing.T) {
			testSetEGet(t, factory(t))
		})

		t.Run("SetEIfUnset", func(t *testing.T) {
			testSetEIfUnset(t, factory(t))
		})

		t.Run("KeyExpiry", func(t *testing.T) {
			testKeyExpiry(t, factory(t))
		})

		t.Run("ExtendIfEqual", func(t *testing.T) {
			testExtendIfEqual(t, factory(t))
		})

		t.Run("DeleteIfEqual", func(t *testing.T) {
			testDeleteIfEqual(t, factory(t))
		})

		t.Run("Ping", func(t *testing.T) {
			testPing(t, factory(t))
		})

		t.Run("ConcurrentSetEIfUnset", func(t *testing.T) {
			testConcurrentSetEIfUnset(t, factory(t))
		})
	})
}

func mustGet(t *testing.T, s store.IStore, key string) ([]byte, bool) {
	t.Helper()
	v, ok, err := s.Get(context.Background(), key)
	if err != nil {
		t.Fatalf("Get(%q) failed: %v", key, err)
	}
	return v, ok
}

func testSetEGet(t *testing.T, h Harness) {
	ctx := context.Background()

	// the smoke write the original project used to check its connection
	if err := h.Store.SetE(ctx, "test", []byte("hello world"), 0); err != nil {
		t.Fatalf("SetE failed: %v", err)
	}
	v, ok := mustGet(t, h.Store, "test")
	if !ok || !bytes.Equal(v, []byte("hello world")) {
		t.Errorf("expected 'hello world', got %q (found=%v)", v, ok)
	}

	if err := h.Store.SetE(ctx, "test", []byte("overwritten"), time.Minute); err != nil {
		t.Fatalf("SetE failed: %v", err)
	}
	v, _ = mustGet(t, h.Store, "test")
	if !bytes.Equal(v, []byte("overwritten")) {
		t.Errorf("SetE should overwrite, got %q", v)
	}

	if _, ok := mustGet(t, h.Store, "missing"); ok {
		t.Error("Get on a missing key should report not found")
	}
}

func testSetEIfUnset(t *testing.T, h Harness) {
	ctx := context.Background()

	ok, err := h.Store.SetEIfUnset(ctx, "lock", []byte("owner-1"), time.Minute)
	if err != nil || !ok {
		t.Fatalf("first SetEIfUnset should succeed, got ok=%v err=%v", ok, err)
	}

	ok, err = h.Store.SetEIfUnset(ctx, "lock", []byte("owner-2"), time.Minute)
	if err != nil {
		t.Fatalf("SetEIfUnset failed: %v", err)
	}
	if ok {
		t.Error("SetEIfUnset on an existing key must not succeed")
	}

	v, _ := mustGet(t, h.Store, "lock")
	if !bytes.Equal(v, []byte("owner-1")) {
		t.Errorf("value must be unchanged, got %q", v)
	}
}

func testKeyExpiry(t *testing.T, h Harness) {
	ctx := context.Background()

	if ok, err := h.Store.SetEIfUnset(ctx, "lease", []byte("a"), time.Second); err != nil || !ok {
		t.Fatalf("SetEIfUnset failed: ok=%v err=%v", ok, err)
	}
	if err := h.Store.SetE(ctx, "forever", []byte("v"), 0); err != nil {
		t.Fatalf("SetE failed: %v", err)
	}

	h.Advance(500 * time.Millisecond)
	if _, ok := mustGet(t, h.Store, "lease"); !ok {
		t.Error("key should still be live before its ttl")
	}

	h.Advance(600 * time.Millisecond)
	if _, ok := mustGet(t, h.Store, "lease"); ok {
		t.Error("key should be gone after its ttl")
	}
	if _, ok := mustGet(t, h.Store, "forever"); !ok {
		t.Error("key without ttl should not expire")
	}

	// an expired key is free for the next owner
	ok, err := h.Store.SetEIfUnset(ctx, "lease", []byte("b"), time.Second)
	if err != nil || !ok {
		t.Errorf("SetEIfUnset after expiry should succeed, got ok=%v err=%v", ok, err)
	}
}

func testExtendIfEqual(t *testing.T, h Harness) {
	ctx := context.Background()

	if ok, err := h.Store.SetEIfUnset(ctx, "lease", []byte("a"), time.Second); err != nil || !ok {
		t.Fatalf("SetEIfUnset failed: ok=%v err=%v", ok, err)
	}

	ok, err := h.Store.ExtendIfEqual(ctx, "lease", []byte("b"), time.Minute)
	if err != nil {
		t.Fatalf("ExtendIfEqual failed: %v", err)
	}
	if ok {
		t.Error("ExtendIfEqual with the wrong value must not succeed")
	}

	h.Advance(800 * time.Millisecond)
	ok, err = h.Store.ExtendIfEqual(ctx, "lease", []byte("a"), time.Second)
	if err != nil || !ok {
		t.Fatalf("ExtendIfEqual with the right value should succeed, got ok=%v err=%v", ok, err)
	}

	h.Advance(800 * time.Millisecond)
	if _, ok := mustGet(t, h.Store, "lease"); !ok {
		t.Error("extended key should still be live")
	}

	h.Advance(300 * time.Millisecond)
	if _, ok := mustGet(t, h.Store, "lease"); ok {
		t.Error("extended key should expire one ttl after the extension")
	}

	ok, err = h.Store.ExtendIfEqual(ctx, "lease", []byte("a"), time.Second)
	if err != nil {
		t.Fatalf("ExtendIfEqual failed: %v", err)
	}
	if ok {
		t.Error("ExtendIfEqual on an expired key must not succeed")
	}
	if _, ok := mustGet(t, h.Store, "lease"); ok {
		t.Error("ExtendIfEqual on an expired key must not recreate it")
	}
}

func testDeleteIfEqual(t *testing.T, h Harness) {
	ctx := context.Background()

	if ok, err := h.Store.SetEIfUnset(ctx, "lock", []byte("a"), time.Minute); err != nil || !ok {
		t.Fatalf("SetEIfUnset failed: ok=%v err=%v", ok, err)
	}

	ok, err := h.Store.DeleteIfEqual(ctx, "lock", []byte("b"))
	if err != nil {
		t.Fatalf("DeleteIfEqual failed: %v", err)
	}
	if ok {
		t.Error("DeleteIfEqual with the wrong value must not succeed")
	}
	if _, ok := mustGet(t, h.Store, "lock"); !ok {
		t.Error("key must survive a mismatching delete")
	}

	ok, err = h.Store.DeleteIfEqual(ctx, "lock", []byte("a"))
	if err != nil || !ok {
		t.Fatalf("DeleteIfEqual with the right value should succeed, got ok=%v err=%v", ok, err)
	}
	if _, ok := mustGet(t, h.Store, "lock"); ok {
		t.Error("key should be gone after delete")
	}

	ok, err = h.Store.DeleteIfEqual(ctx, "lock", []byte("a"))
	if err != nil {
		t.Fatalf("DeleteIfEqual failed: %v", err)
	}
	if ok {
		t.Error("second DeleteIfEqual must report false")
	}
}

func testPing(t *testing.T, h Harness) {
	if err := h.Store.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func testConcurrentSetEIfUnset(t *testing.T, h Harness) {
	const (
		workers = 32
		rounds  = 20
	)
	ctx := context.Background()

	for r := 0; r < rounds; r++ {
		key := fmt.Sprintf("contended-%d", r)

		var (
			wg      sync.WaitGroup
			winners atomic.Int32
			errs    atomic.Int32
		)
		start := make(chan struct{})
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				<-start
				ok, err := h.Store.SetEIfUnset(ctx, key, []byte(fmt.Sprintf("owner-%d", i)), time.Minute)
				if err != nil {
					errs.Add(1)
					return
				}
				if ok {
					winners.Add(1)
				}
			}(i)
		}
		close(start)
		wg.Wait()

		if errs.Load() != 0 {
			t.Fatalf("round %d: %d SetEIfUnset calls failed", r, errs.Load())
		}
		if winners.Load() != 1 {
			t.Fatalf("round %d: expected exactly one winner, got %d", r, winners.Load())
		}
	}
}
