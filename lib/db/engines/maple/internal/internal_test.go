package internal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRescheduleFollowsStoredEntry(t *testing.T) {
	s := NewShard()

	s.Data.Store("k", Entry{Value: []byte("v"), DeleteAt: 100})
	s.Reschedule("k")
	item, ok := s.DeleteHeap.GetByKey("k")
	assert.True(t, ok)
	assert.Equal(t, int64(100), item.Priority)

	s.Data.Store("k", Entry{Value: []byte("v"), DeleteAt: 200})
	s.Reschedule("k")
	item, _ = s.DeleteHeap.GetByKey("k")
	assert.Equal(t, int64(200), item.Priority)

	// no deadline, no slot
	s.Data.Store("k", Entry{Value: []byte("v")})
	s.Reschedule("k")
	assert.False(t, s.DeleteHeap.Contains("k"))
}

func TestRescheduleAfterStaleDelete(t *testing.T) {
	s := NewShard()

	// a delete reschedules late, after a newer insert already stored its entry
	s.Data.Store("k", Entry{Value: []byte("new"), DeleteAt: 300})
	s.Reschedule("k")
	s.Reschedule("k")
	assert.True(t, s.DeleteHeap.Contains("k"), "live entry lost its GC slot")

	s.Data.Delete("k")
	s.Reschedule("k")
	assert.False(t, s.DeleteHeap.Contains("k"))
}
