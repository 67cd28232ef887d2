// Package util
//
// This file provides a deadline queue for garbage collection of expiring entries.
//
// The queue combines a binary min-heap ordered by deadline with a map from key to
// heap slot, so the earliest deadline is found in O(1), a key can be rescheduled
// or removed in O(log n), and membership checks are O(1).
//
// Concurrency: MapHeap is not thread-safe. Callers synchronize externally.
//
// Example usage:
//
//	q := NewMapHeap()
//	q.AddItem("lock:a", deadlineA.UnixNano())
//	q.AddItem("lock:b", deadlineB.UnixNano())
//
//	for {
//	    it, ok := q.Peek()
//	    if !ok || it.Priority > now.UnixNano() {
//	        break
//	    }
//	    q.RemoveByKey(it.Key)
//	    // reclaim it.Key
//	}
package util

import (
	"container/heap"
	"strconv"
)

// Item is one scheduled key. Priority is a deadline in unix nanoseconds.
type Item struct {
	Key      string
	Priority int64
	index    int // maintained by the heap package
}

func (i *Item) String() string {
	return "{Key: " + i.Key + ", Priority: " + strconv.FormatInt(i.Priority, 10) + "}"
}

// MapHeap is a min-heap of deadlines with key-based access.
type MapHeap struct {
	items    []*Item
	itemsMap map[string]*Item
}

// NewMapHeap creates an empty queue.
func NewMapHeap() *MapHeap {
	return &MapHeap{
		items:    make([]*Item, 0),
		itemsMap: make(map[string]*Item),
	}
}

// Len is part of heap.Interface.
func (q *MapHeap) Len() int { return len(q.items) }

// Less is part of heap.Interface. Earliest deadline first.
func (q *MapHeap) Less(i, j int) bool {
	return q.items[i].Priority < q.items[j].Priority
}

// Swap is part of heap.Interface.
func (q *MapHeap) Swap(i, j int) {
	q.items[i], q.items[j] = q.items[j], q.items[i]
	q.items[i].index = i
	q.items[j].index = j
}

// Push is part of heap.Interface. Use AddItem instead.
func (q *MapHeap) Push(x any) {
	it := x.(*Item)
	it.index = len(q.items)
	q.items = append(q.items, it)
	q.itemsMap[it.Key] = it
}

// Pop is part of heap.Interface. Use RemoveByKey instead.
func (q *MapHeap) Pop() any {
	old := q.items
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	it.index = -1
	q.items = old[:n-1]
	delete(q.itemsMap, it.Key)
	return it
}

// AddItem schedules key at priority, or reschedules it if it is already queued.
func (q *MapHeap) AddItem(key string, priority int64) {
	if it, exists := q.itemsMap[key]; exists {
		it.Priority = priority
		heap.Fix(q, it.index)
		return
	}
	heap.Push(q, &Item{Key: key, Priority: priority})
}

// RemoveByKey unschedules key and returns its priority.
func (q *MapHeap) RemoveByKey(key string) (int64, bool) {
	it, exists := q.itemsMap[key]
	if !exists {
		return 0, false
	}
	heap.Remove(q, it.index)
	return it.Priority, true
}

// Peek returns the item with the earliest deadline without removing it.
func (q *MapHeap) Peek() (*Item, bool) {
	if len(q.items) == 0 {
		return nil, false
	}
	return q.items[0], true
}

// Contains reports whether key is scheduled.
func (q *MapHeap) Contains(key string) bool {
	_, exists := q.itemsMap[key]
	return exists
}

// GetByKey returns the scheduled item for key without removing it.
func (q *MapHeap) GetByKey(key string) (*Item, bool) {
	it, exists := q.itemsMap[key]
	return it, exists
}
