package maple

import (
	"hash/maphash"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hand/redislock/lib/db"
	"github.com/hand/redislock/lib/db/engines/maple/internal"
)

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

const (
	defaultGCInterval = 100 * time.Millisecond // Default interval between GC runs
)

var supportedFeatures = []db.Feature{
	db.FeatureSetE,
	db.FeatureSetEIfUnset,
	db.FeatureExtendIfEqual,
	db.FeatureDeleteIfEqual,
	db.FeatureGet,
	db.FeatureGarbageCollect,
}

// --------------------------------------------------------------------------
// Core Maple database structure
// --------------------------------------------------------------------------

// mapleImpl implements db.KVDB on top of sharded concurrent maps
type mapleImpl struct {
	seed     maphash.Seed
	shards   []*internal.Shard
	features db.Feature

	// latest "now" seen by any operation (unix nanoseconds), drives the GC
	currTime atomic.Int64

	// garbage collection
	gcInterval  time.Duration
	gcIsRunning atomic.Bool
	gcStop      chan struct{}
	gcDone      sync.WaitGroup
}

// DBOptions configures the mapleImpl behavior during initialization
type DBOptions struct {
	NumShards  int           // Number of shards (0 = runtime.NumCPU())
	GCInterval time.Duration // Time between GC runs (0 = default, negative = GC disabled)
}

// DefaultOptions returns the default mapleImpl options
func DefaultOptions() *DBOptions {
	return &DBOptions{
		NumShards:  runtime.NumCPU(),
		GCInterval: defaultGCInterval,
	}
}

// --------------------------------------------------------------------------
// Initialization and Setup
// --------------------------------------------------------------------------

// NewMapleDB creates a new MapleDB instance with the specified options (optional)
func NewMapleDB(opts *DBOptions) db.KVDB {
	if opts == nil {
		opts = DefaultOptions()
	}
	numShards := opts.NumShards
	if numShards <= 0 {
		numShards = runtime.NumCPU()
	}
	gcInterval := opts.GCInterval
	if gcInterval == 0 {
		gcInterval = defaultGCInterval
	}

	shards := make([]*internal.Shard, numShards)
	for i := range shards {
		shards[i] = internal.NewShard()
	}

	newDB := &mapleImpl{
		seed:       maphash.MakeSeed(),
		shards:     shards,
		gcInterval: gcInterval,
		gcStop:     make(chan struct{}),
	}
	for _, f := range supportedFeatures {
		newDB.features |= f
	}

	if gcInterval > 0 {
		newDB.startGC()
	}

	return newDB
}

// observe records now as the latest logical time if it is newer
func (maple *mapleImpl) observe(now int64) {
	for {
		curr := maple.currTime.Load()
		if now <= curr || maple.currTime.CompareAndSwap(curr, now) {
			return
		}
	}
}

func deadline(now time.Time, ttl time.Duration) int64 {
	if ttl <= 0 {
		return 0
	}
	return now.Add(ttl).UnixNano()
}

// compute is the shared implementation of all write operations.
//
// fn receives the current live entry (loaded=false if absent or expired) and
// returns the entry to store, whether to delete the key, and whether the call
// had an effect. Everything runs inside one atomic map computation, so no other
// write to the key interleaves between the check in fn and its effect.
//
// Thread-safety: This function is thread-safe and can be called concurrently.
func (maple *mapleImpl) compute(key string, now time.Time, fn func(old internal.Entry, loaded bool) (entry internal.Entry, del bool, changed bool)) bool {
	nowNano := now.UnixNano()
	maple.observe(nowNano)

	shard := internal.GetShard(key, maple.seed, maple.shards)

	var (
		changed bool
		removed bool
	)

	shard.Data.Compute(key, func(old internal.Entry, loaded bool) (internal.Entry, bool) {
		live := loaded && !old.IsExpired(nowNano)

		entry, del, ok := fn(old, live)
		changed = ok

		if !ok {
			// an expired leftover that nobody replaced is dropped right away
			if loaded && !live {
				removed = true
				return old, true
			}
			return old, !loaded
		}
		if del {
			removed = loaded
			return old, true
		}

		return entry, false
	})

	if removed || changed {
		shard.Reschedule(key)
	}

	return changed
}

// --------------------------------------------------------------------------
// Core KVDB Interface Methods - Write Operations
// --------------------------------------------------------------------------

// SetE stores a value for a key, replacing any previous value and deadline.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (maple *mapleImpl) SetE(key string, value []byte, now time.Time, ttl time.Duration) {
	valueCopy := append([]byte(nil), value...)
	maple.compute(key, now, func(_ internal.Entry, _ bool) (internal.Entry, bool, bool) {
		return internal.Entry{Value: valueCopy, DeleteAt: deadline(now, ttl)}, false, true
	})
}

// SetEIfUnset stores a value only if the key has no live entry.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (maple *mapleImpl) SetEIfUnset(key string, value []byte, now time.Time, ttl time.Duration) bool {
	valueCopy := append([]byte(nil), value...)
	return maple.compute(key, now, func(old internal.Entry, loaded bool) (internal.Entry, bool, bool) {
		if loaded {
			return old, false, false
		}
		return internal.Entry{Value: valueCopy, DeleteAt: deadline(now, ttl)}, false, true
	})
}

// ExtendIfEqual moves the deadline of a live entry holding expected to now+ttl.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (maple *mapleImpl) ExtendIfEqual(key string, expected []byte, now time.Time, ttl time.Duration) bool {
	return maple.compute(key, now, func(old internal.Entry, loaded bool) (internal.Entry, bool, bool) {
		if !loaded || !old.Holds(expected) {
			return old, false, false
		}
		old.DeleteAt = deadline(now, ttl)
		return old, false, true
	})
}

// DeleteIfEqual removes a live entry holding expected.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (maple *mapleImpl) DeleteIfEqual(key string, expected []byte, now time.Time) bool {
	return maple.compute(key, now, func(old internal.Entry, loaded bool) (internal.Entry, bool, bool) {
		if !loaded || !old.Holds(expected) {
			return old, false, false
		}
		return old, true, true
	})
}

// --------------------------------------------------------------------------
// Core KVDB Interface Methods - Read Operations
// --------------------------------------------------------------------------

// Get retrieves a copy of the live value for a key.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (maple *mapleImpl) Get(key string, now time.Time) ([]byte, bool) {
	nowNano := now.UnixNano()
	maple.observe(nowNano)

	shard := internal.GetShard(key, maple.seed, maple.shards)
	e, ok := shard.Data.Load(key)
	if !ok || e.IsExpired(nowNano) {
		return nil, false
	}
	return append([]byte(nil), e.Value...), true
}

// --------------------------------------------------------------------------
// Feature Support and Info
// --------------------------------------------------------------------------

func (maple *mapleImpl) SupportsFeature(feature db.Feature) bool {
	return maple.features&feature == feature
}

func (maple *mapleImpl) GetInfo() db.DatabaseInfo {
	keys := 0
	for _, shard := range maple.shards {
		keys += shard.Data.Size()
	}
	return db.DatabaseInfo{
		Keys:              keys,
		DbType:            db.ImplMaple,
		SupportedFeatures: append([]db.Feature(nil), supportedFeatures...),
	}
}

// Close stops the garbage collector. It is safe to call Close more than once.
func (maple *mapleImpl) Close() error {
	maple.stopGC()
	return nil
}

// --------------------------------------------------------------------------
// Garbage Collection
// --------------------------------------------------------------------------

// startGC starts the garbage collector
// if the GC is already running, this function does nothing
func (maple *mapleImpl) startGC() {
	if maple.gcIsRunning.CompareAndSwap(false, true) {
		maple.gcDone.Add(1)
		go maple.garbageCollector()
	}
}

// stopGC stops the garbage collector and waits for it to exit.
// the gc can't be started again after it has been stopped!
func (maple *mapleImpl) stopGC() {
	if maple.gcIsRunning.CompareAndSwap(true, false) {
		close(maple.gcStop)
		maple.gcDone.Wait()
	}
}

// garbageCollector is the main garbage collection loop
// WARNING: this method should never be called directly, use startGC() and stopGC()
func (maple *mapleImpl) garbageCollector() {
	defer maple.gcDone.Done()

	ticker := time.NewTicker(maple.gcInterval)
	defer ticker.Stop()

	for {
		select {
		case <-maple.gcStop:
			return
		case <-ticker.C:
			maple.collect()
		}
	}
}

// collect reclaims every entry whose deadline is at or before the latest observed time
func (maple *mapleImpl) collect() {
	/*
		Note: the time is read once per cycle so a busy writer can't keep the
		collector looping forever.
	*/
	now := maple.currTime.Load()

	for _, shard := range maple.shards {
		shard.GCMu.Lock()
		for {
			item, exists := shard.DeleteHeap.Peek()
			if !exists || item.Priority > now {
				break
			}
			key := item.Key
			shard.DeleteHeap.RemoveByKey(key)

			shard.Data.Compute(key, func(e internal.Entry, loaded bool) (internal.Entry, bool) {
				if !loaded {
					return e, true
				}
				// the entry may have been extended since it was scheduled
				if !e.IsExpired(now) {
					if e.DeleteAt != 0 {
						shard.DeleteHeap.AddItem(key, e.DeleteAt)
					}
					return e, false
				}
				return e, true
			})
		}
		shard.GCMu.Unlock()
	}
}
