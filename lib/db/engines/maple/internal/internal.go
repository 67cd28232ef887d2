package internal

import (
	"bytes"
	"hash/maphash"
	"sync"

	"github.com/hand/redislock/lib/db/util"
	"github.com/puzpuzpuz/xsync/v3"
)

// --------------------------------------------------------------------------
// Entry Type (key-value pair with metadata)
// --------------------------------------------------------------------------

// Entry stores a value with its deadline
type Entry struct {
	Value    []byte // Stored data
	DeleteAt int64  // Deadline in unix nanoseconds (0 = never)
}

// IsExpired returns whether the entry is past its deadline at now (unix nanoseconds)
func (e Entry) IsExpired(now int64) bool {
	return e.DeleteAt != 0 && now >= e.DeleteAt
}

// Holds reports whether the entry carries exactly the given value
func (e Entry) Holds(value []byte) bool {
	return bytes.Equal(e.Value, value)
}

// --------------------------------------------------------------------------
// Shard Type (partition of the database)
// --------------------------------------------------------------------------

// Shard represents a partition of the database.
// Data is safe for concurrent use on its own, GCMu guards DeleteHeap.
type Shard struct {
	Data       *xsync.MapOf[string, Entry]
	GCMu       sync.Mutex
	DeleteHeap *util.MapHeap
}

// NewShard creates an empty shard
func NewShard() *Shard {
	return &Shard{
		Data:       xsync.NewMapOf[string, Entry](),
		DeleteHeap: util.NewMapHeap(),
	}
}

// Reschedule makes the GC slot of key match the entry currently stored for it:
// a slot at its deadline if it has one, no slot otherwise. Writers call it after
// every change, so whichever call runs last sees the final state of the key.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (s *Shard) Reschedule(key string) {
	s.GCMu.Lock()
	defer s.GCMu.Unlock()
	e, ok := s.Data.Load(key)
	if !ok || e.DeleteAt == 0 {
		s.DeleteHeap.RemoveByKey(key)
		return
	}
	s.DeleteHeap.AddItem(key, e.DeleteAt)
}

// GetShard returns the appropriate shard for a given key
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func GetShard[T any](key string, seed maphash.Seed, shards []*T) *T {
	return shards[maphash.String(seed, key)%uint64(len(shards))]
}
