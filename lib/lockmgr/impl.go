package lockmgr

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hand/redislock/lib/logging"
	"github.com/hand/redislock/lib/store"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultKeyPrefix       = "lock:"
	DefaultStoreRetries    = 3
	DefaultStoreRetryDelay = 50 * time.Millisecond

	// MinLease is the smallest lease the Redis store can represent (PX)
	MinLease = time.Millisecond

	cleanupTimeout = 2 * time.Second
	maxRetryShift  = 16
	tracerName     = "github.com/hand/redislock/lib/lockmgr"
)

// --------------------------------------------------------------------------
// Options
// --------------------------------------------------------------------------

// Option configures a lock manager
type Option func(*lockMgrImpl)

// WithKeyPrefix sets the prefix put in front of every lock name to form the store key
func WithKeyPrefix(prefix string) Option {
	return func(m *lockMgrImpl) { m.prefix = prefix }
}

// WithLogger sets the logger (default: logging.CreateLogger("lockmgr"))
func WithLogger(l logging.ILogger) Option {
	return func(m *lockMgrImpl) { m.logger = l }
}

// WithStoreRetries sets how often a store call failing with an unavailable
// store is retried before giving up (0 = no retries)
func WithStoreRetries(n int) Option {
	return func(m *lockMgrImpl) {
		if n >= 0 {
			m.storeRetries = n
		}
	}
}

// WithStoreRetryDelay sets the base delay of the store retry backoff
func WithStoreRetryDelay(d time.Duration) Option {
	return func(m *lockMgrImpl) {
		if d > 0 {
			m.storeRetryDelay = d
		}
	}
}

// WithClock replaces time.Now for lease deadlines and wait timeouts
func WithClock(clock func() time.Time) Option {
	return func(m *lockMgrImpl) { m.clock = clock }
}

// WithTracerProvider sets the OpenTelemetry tracer provider (default: the global one)
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(m *lockMgrImpl) { m.tracer = tp.Tracer(tracerName) }
}

// --------------------------------------------------------------------------
// Implementation
// --------------------------------------------------------------------------

type lockMgrImpl struct {
	store           store.IStore
	prefix          string
	storeRetries    int
	storeRetryDelay time.Duration
	clock           func() time.Time
	logger          logging.ILogger
	tracer          trace.Tracer
}

// NewLockManager creates a lock manager on top of the given store.
//
// The manager holds no state of its own besides its configuration: all mutual
// exclusion comes from the atomic operations of the store. Any number of
// managers may be created on the same store. The store is not closed by the
// manager.
func NewLockManager(s store.IStore, opts ...Option) ILockManager {
	m := &lockMgrImpl{
		store:           s,
		prefix:          DefaultKeyPrefix,
		storeRetries:    DefaultStoreRetries,
		storeRetryDelay: DefaultStoreRetryDelay,
		clock:           time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = logging.CreateLogger("lockmgr")
	}
	if m.tracer == nil {
		m.tracer = otel.Tracer(tracerName)
	}
	return m
}

// startSpan starts the span for one manager operation
func (m *lockMgrImpl) startSpan(ctx context.Context, op, name string) (context.Context, trace.Span) {
	return m.tracer.Start(ctx, "lockmgr."+op, trace.WithAttributes(attribute.String("lock.name", name)))
}

// endOp finishes the span and the metrics of one manager operation
func endOp(span trace.Span, op string, err error) {
	observe(op, err)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
		span.SetAttributes(attribute.String("lock.result", resultLabel(err)))
	}
	span.End()
}

func validateArgs(name string, lease time.Duration) error {
	if strings.TrimSpace(name) == "" {
		return newError(KindInvalidArgument, name, "lock name must not be empty", nil)
	}
	if lease < MinLease {
		return newError(KindInvalidArgument, name, fmt.Sprintf("lease must be at least %v, got %v", MinLease, lease), nil)
	}
	return nil
}

// --------------------------------------------------------------------------
// Acquire
// --------------------------------------------------------------------------

func (m *lockMgrImpl) Acquire(ctx context.Context, name string, lease time.Duration, policy WaitPolicy) (h *Handle, err error) {
	ctx, span := m.startSpan(ctx, opAcquire, name)
	defer func() { endOp(span, opAcquire, err) }()

	if err = validateArgs(name, lease); err != nil {
		return nil, err
	}
	if err = policy.validate(); err != nil {
		return nil, err
	}

	start := m.clock()
	h, err = m.acquire(ctx, name, lease, policy.withDefaults(), start)
	if err != nil {
		m.logger.Debugf("acquire %q failed: %v", name, err)
		return nil, err
	}

	observeAcquireWait(m.clock().Sub(start))
	m.logger.Debugf("lock %q acquired (lease %v)", name, lease)
	return h, nil
}

func (m *lockMgrImpl) acquire(ctx context.Context, name string, lease time.Duration, policy WaitPolicy, start time.Time) (*Handle, error) {
	key := m.prefix + name
	deadline := start.Add(policy.Timeout)

	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, contextError(name, err)
		}

		// fresh token per attempt so a late reply of an earlier attempt can't be
		// mistaken for this one
		token := newOwnerToken()
		requested := m.clock()

		var (
			ok        bool
			uncertain bool // an earlier try may have written the record without us hearing back
		)
		err := m.withStoreRetry(ctx, name, func(ctx context.Context) (err error) {
			ok, err = m.store.SetEIfUnset(ctx, key, []byte(token), lease)
			if store.IsUnavailable(err) {
				uncertain = true
			}
			return err
		})

		if ctx.Err() != nil {
			// the write may have reached the store before the caller gave up
			if ok || err != nil || uncertain {
				m.cleanup(ctx, key, token)
			}
			return nil, contextError(name, ctx.Err())
		}
		if err != nil {
			if uncertain {
				m.cleanup(ctx, key, token)
			}
			return nil, newError(KindStoreUnavailable, name, "acquire", err)
		}
		if !ok && uncertain {
			// the key may hold our own token from a try whose reply was lost
			ok, err = m.ownsRecord(ctx, key, token)
			if err != nil {
				m.cleanup(ctx, key, token)
				if ctx.Err() != nil {
					return nil, contextError(name, ctx.Err())
				}
				return nil, newError(KindStoreUnavailable, name, "acquire", err)
			}
		}
		if ok {
			return newHandle(name, key, token, lease, requested, m.clock), nil
		}

		if !policy.waits() {
			return nil, newError(KindContended, name, "", nil)
		}

		remaining := deadline.Sub(m.clock())
		if remaining <= 0 {
			return nil, newError(KindTimeout, name, fmt.Sprintf("lock still held after %v", policy.Timeout), nil)
		}
		wait := backoff(attempt, policy.BaseDelay, policy.MaxDelay)
		if wait > remaining {
			wait = remaining
		}
		if err := sleepWithContext(ctx, wait); err != nil {
			return nil, contextError(name, err)
		}
	}
}

// ownsRecord reports whether key currently holds token
func (m *lockMgrImpl) ownsRecord(ctx context.Context, key, token string) (bool, error) {
	var (
		value  []byte
		loaded bool
	)
	err := m.withStoreRetry(ctx, key, func(ctx context.Context) (err error) {
		value, loaded, err = m.store.Get(ctx, key)
		return err
	})
	if err != nil {
		return false, err
	}
	return loaded && string(value) == token, nil
}

// cleanup deletes a record this manager may have created for an acquire that
// did not return a handle. It runs on a context detached from the caller's.
func (m *lockMgrImpl) cleanup(ctx context.Context, key, token string) {
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	deleted, err := m.store.DeleteIfEqual(cleanupCtx, key, []byte(token))
	switch {
	case err != nil:
		m.logger.Warningf("could not clean up lock record %q of a failed acquire, it expires with its lease: %v", key, err)
	case deleted:
		m.logger.Debugf("removed lock record %q of a failed acquire", key)
	}
}

// withStoreRetry runs fn and retries it with backoff as long as the store is
// unavailable, at most storeRetries times
func (m *lockMgrImpl) withStoreRetry(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = fn(ctx)
		if err == nil || !store.IsUnavailable(err) || attempt >= m.storeRetries {
			return err
		}
		m.logger.Debugf("store unavailable for lock %q (attempt %d/%d): %v", name, attempt+1, m.storeRetries+1, err)

		// full jitter, but never less than half the step so retries stay spread out
		step := backoff(attempt, m.storeRetryDelay, m.storeRetryCeiling())
		if sleepWithContext(ctx, m.storeRetryDelay/2+step/2) != nil {
			return err
		}
	}
}

// storeRetryCeiling is the largest step of the store retry backoff
func (m *lockMgrImpl) storeRetryCeiling() time.Duration {
	return m.storeRetryDelay << min(m.storeRetries, maxRetryShift)
}

// --------------------------------------------------------------------------
// Renew
// --------------------------------------------------------------------------

func (m *lockMgrImpl) Renew(ctx context.Context, h *Handle) (err error) {
	if h == nil {
		return newError(KindInvalidArgument, "", "handle must not be nil", nil)
	}
	ctx, span := m.startSpan(ctx, opRenew, h.name)
	defer func() { endOp(span, opRenew, err) }()

	h.opMu.Lock()
	defer h.opMu.Unlock()

	switch s := h.State(); s {
	case StateHeld:
	case StateExpired:
		h.finish(StateLost)
		return newError(KindOwnershipLost, h.name, "lease expired before renewal", nil)
	default:
		return newError(KindOwnershipLost, h.name, "handle is "+s.String(), nil)
	}

	requested := m.clock()
	var ok bool
	err = m.withStoreRetry(ctx, h.name, func(ctx context.Context) (err error) {
		ok, err = m.store.ExtendIfEqual(ctx, h.key, []byte(h.token), h.lease)
		return err
	})
	if err != nil {
		if ctx.Err() != nil {
			return contextError(h.name, ctx.Err())
		}
		return newError(KindStoreUnavailable, h.name, "renew", err)
	}
	if !ok {
		h.finish(StateLost)
		m.logger.Warningf("lock %q was lost before renewal", h.name)
		return newError(KindOwnershipLost, h.name, "lock record is gone or owned by someone else", nil)
	}

	h.extendFrom(requested)
	return nil
}

// --------------------------------------------------------------------------
// Release
// --------------------------------------------------------------------------

func (m *lockMgrImpl) Release(ctx context.Context, h *Handle) (err error) {
	if h == nil {
		return newError(KindInvalidArgument, "", "handle must not be nil", nil)
	}
	ctx, span := m.startSpan(ctx, opRelease, h.name)
	defer func() { endOp(span, opRelease, err) }()

	h.opMu.Lock()
	defer h.opMu.Unlock()

	state := h.State()
	if state == StateReleased || state == StateLost {
		return newError(KindOwnershipLost, h.name, "handle is "+state.String(), nil)
	}

	// an expired handle still tries the delete, the record may outlive the local
	// estimate, but the caller has lost the guarantee either way
	var ok bool
	err = m.withStoreRetry(ctx, h.name, func(ctx context.Context) (err error) {
		ok, err = m.store.DeleteIfEqual(ctx, h.key, []byte(h.token))
		return err
	})
	if err != nil {
		if ctx.Err() != nil {
			return contextError(h.name, ctx.Err())
		}
		return newError(KindStoreUnavailable, h.name, "release", err)
	}

	switch {
	case state == StateExpired:
		h.finish(StateLost)
		return newError(KindOwnershipLost, h.name, "lease expired before release", nil)
	case !ok:
		h.finish(StateLost)
		return newError(KindOwnershipLost, h.name, "lock record is gone or owned by someone else", nil)
	}

	h.finish(StateReleased)
	m.logger.Debugf("lock %q released", h.name)
	return nil
}

// --------------------------------------------------------------------------
// Helpers
// --------------------------------------------------------------------------

func (m *lockMgrImpl) KeepAlive(ctx context.Context, h *Handle, opts ...RenewerOption) (*Renewer, error) {
	r, err := NewRenewer(m, h, opts...)
	if err != nil {
		return nil, err
	}
	r.Start(ctx)
	return r, nil
}

func (m *lockMgrImpl) WithLock(ctx context.Context, name string, lease time.Duration, policy WaitPolicy, fn func(ctx context.Context) error) (err error) {
	if fn == nil {
		return newError(KindInvalidArgument, name, "lock function must not be nil", nil)
	}

	h, err := m.Acquire(ctx, name, lease, policy)
	if err != nil {
		return err
	}

	r, err := m.KeepAlive(ctx, h)
	if err != nil {
		_ = m.Release(ctx, h)
		return err
	}

	// release even if fn panics or ctx is done by now
	defer func() {
		cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
		defer cancel()

		stopErr := r.Stop(cleanupCtx)
		relErr := m.Release(cleanupCtx, h)

		switch {
		case KindOf(stopErr) == KindOwnershipLost:
			// fn usually fails too once its context is canceled, keep both
			err = errors.Join(err, stopErr)
		case err != nil:
		case relErr != nil:
			err = relErr
		}
	}()

	if err := fn(r.Context()); err != nil {
		return fmt.Errorf("lock %q: function execution: %w", name, err)
	}
	return nil
}
