package lstore

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/hand/redislock/lib/db"
	"github.com/hand/redislock/lib/store"
)

// Clock returns the current time.
type Clock func() time.Time

// Option configures a local store.
type Option func(*storeImpl)

// WithClock replaces time.Now as the store clock.
func WithClock(clock Clock) Option {
	return func(s *storeImpl) {
		s.clock = clock
	}
}

type storeImpl struct {
	db     db.KVDB
	clock  Clock
	closed atomic.Bool
}

// NewLocalStore creates a new local store instance.
// This store implementation is not distributed and only works in a single process.
func NewLocalStore(factory store.DBFactory, opts ...Option) store.IStore {
	s := &storeImpl{
		db:    factory(),
		clock: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// check fails fast for a closed store, a finished context or a missing feature.
func (s *storeImpl) check(ctx context.Context, feature db.Feature, op string) error {
	if s.closed.Load() {
		return store.NewError(store.RetCUnavailable, "store is closed")
	}
	if err := ctx.Err(); err != nil {
		return store.WrapError(store.RetCUnavailable, op+" aborted", err)
	}
	if !s.db.SupportsFeature(feature) {
		return store.NewError(store.RetCUnsupportedOperation, op+" operation is not supported")
	}
	return nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *storeImpl) SetE(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.check(ctx, db.FeatureSetE, "SetE"); err != nil {
		return err
	}
	s.db.SetE(key, value, s.clock(), ttl)
	return nil
}

func (s *storeImpl) SetEIfUnset(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	if err := s.check(ctx, db.FeatureSetEIfUnset, "SetEIfUnset"); err != nil {
		return false, err
	}
	return s.db.SetEIfUnset(key, value, s.clock(), ttl), nil
}

func (s *storeImpl) ExtendIfEqual(ctx context.Context, key string, expected []byte, ttl time.Duration) (bool, error) {
	if err := s.check(ctx, db.FeatureExtendIfEqual, "ExtendIfEqual"); err != nil {
		return false, err
	}
	return s.db.ExtendIfEqual(key, expected, s.clock(), ttl), nil
}

func (s *storeImpl) DeleteIfEqual(ctx context.Context, key string, expected []byte) (bool, error) {
	if err := s.check(ctx, db.FeatureDeleteIfEqual, "DeleteIfEqual"); err != nil {
		return false, err
	}
	return s.db.DeleteIfEqual(key, expected, s.clock()), nil
}

func (s *storeImpl) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := s.check(ctx, db.FeatureGet, "Get"); err != nil {
		return nil, false, err
	}
	val, ok := s.db.Get(key, s.clock())
	return val, ok, nil
}

func (s *storeImpl) Ping(ctx context.Context) error {
	if s.closed.Load() {
		return store.NewError(store.RetCUnavailable, "store is closed")
	}
	if err := ctx.Err(); err != nil {
		return store.WrapError(store.RetCUnavailable, "Ping aborted", err)
	}
	return nil
}

func (s *storeImpl) Close() error {
	if s.closed.CompareAndSwap(false, true) {
		return s.db.Close()
	}
	return nil
}
