package rstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hand/redislock/lib/store"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
)

var extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	if tonumber(ARGV[2]) > 0 then
		return redis.call("PEXPIRE", KEYS[1], ARGV[2])
	end
	redis.call("PERSIST", KEYS[1])
	return 1
end
return 0
`)

var deleteScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Option configures a Redis store.
type Option func(*storeImpl)

// WithBreaker wraps every call in a circuit breaker built from settings.
// ReadyToTrip defaults to five consecutive failures and IsSuccessful is always
// replaced so that only unavailability trips the breaker.
func WithBreaker(settings gobreaker.Settings) Option {
	return func(s *storeImpl) {
		if settings.Name == "" {
			settings.Name = "redis-store"
		}
		if settings.ReadyToTrip == nil {
			settings.ReadyToTrip = func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			}
		}
		settings.IsSuccessful = func(err error) bool {
			return !store.IsUnavailable(err)
		}
		s.breaker = gobreaker.NewCircuitBreaker(settings)
	}
}

type storeImpl struct {
	client     redis.UniversalClient
	ownsClient bool
	breaker    *gobreaker.CircuitBreaker
}

// NewRedisStore connects to Redis as described by cfg and verifies the
// connection with a PING. The returned store owns the client and closes it on Close.
func NewRedisStore(ctx context.Context, cfg Config, opts ...Option) (store.IStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Breaker {
		opts = append([]Option{WithBreaker(gobreaker.Settings{Timeout: 5 * time.Second})}, opts...)
	}

	client := redis.NewUniversalClient(cfg.universalOptions())
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, classify("Ping", err)
	}

	s := newStore(client, opts...)
	s.ownsClient = true
	return s, nil
}

// NewRedisStoreFromClient wraps an existing client. The client stays owned by the
// caller: Close on the store does not close it.
func NewRedisStoreFromClient(client redis.UniversalClient, opts ...Option) store.IStore {
	return newStore(client, opts...)
}

func newStore(client redis.UniversalClient, opts ...Option) *storeImpl {
	s := &storeImpl{client: client}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// classify turns a go-redis error into a *store.Error.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var replyErr redis.Error
	if errors.As(err, &replyErr) {
		return store.WrapError(store.RetCInternalError, op+" rejected by redis", err)
	}
	return store.WrapError(store.RetCUnavailable, op+" failed", err)
}

// do runs fn through the circuit breaker, if any, and classifies its error.
func (s *storeImpl) do(op string, fn func() error) error {
	if s.breaker == nil {
		return classify(op, fn())
	}
	_, err := s.breaker.Execute(func() (interface{}, error) {
		return nil, classify(op, fn())
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return store.WrapError(store.RetCUnavailable, op+" short-circuited", err)
	}
	return err
}

// millis converts ttl to whole milliseconds, rounding positive sub-millisecond
// values up so they still expire.
func millis(ttl time.Duration) int64 {
	if ttl <= 0 {
		return 0
	}
	ms := ttl.Milliseconds()
	if ms == 0 {
		return 1
	}
	return ms
}

func roundTTL(ttl time.Duration) time.Duration {
	return time.Duration(millis(ttl)) * time.Millisecond
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *storeImpl) SetE(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.do("SetE", func() error {
		return s.client.Set(ctx, key, value, roundTTL(ttl)).Err()
	})
}

func (s *storeImpl) SetEIfUnset(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	var ok bool
	err := s.do("SetEIfUnset", func() (err error) {
		ok, err = s.client.SetNX(ctx, key, value, roundTTL(ttl)).Result()
		return err
	})
	return ok, err
}

func (s *storeImpl) ExtendIfEqual(ctx context.Context, key string, expected []byte, ttl time.Duration) (bool, error) {
	var n int64
	err := s.do("ExtendIfEqual", func() (err error) {
		n, err = extendScript.Run(ctx, s.client, []string{key}, expected, millis(ttl)).Int64()
		return err
	})
	return n == 1, err
}

func (s *storeImpl) DeleteIfEqual(ctx context.Context, key string, expected []byte) (bool, error) {
	var n int64
	err := s.do("DeleteIfEqual", func() (err error) {
		n, err = deleteScript.Run(ctx, s.client, []string{key}, expected).Int64()
		return err
	})
	return n == 1, err
}

func (s *storeImpl) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var (
		val   []byte
		found bool
	)
	err := s.do("Get", func() error {
		b, err := s.client.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return err
		}
		val, found = b, true
		return nil
	})
	return val, found, err
}

func (s *storeImpl) Ping(ctx context.Context) error {
	return s.do("Ping", func() error {
		return s.client.Ping(ctx).Err()
	})
}

func (s *storeImpl) Close() error {
	if !s.ownsClient {
		return nil
	}
	if err := s.client.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
		return fmt.Errorf("redis store: close: %w", err)
	}
	return nil
}
