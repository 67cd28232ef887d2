package util

import (
	"container/heap"
	"fmt"
	"sort"
	"testing"
)

// TestNewMapHeap tests the creation of a new MapHeap
func TestNewMapHeap(t *testing.T) {
	mh := NewMapHeap()

	if mh == nil {
		t.Fatal("NewMapHeap() returned nil")
	}
	if mh.Len() != 0 {
		t.Errorf("New heap should be empty, but has length %d", mh.Len())
	}
	if len(mh.itemsMap) != 0 {
		t.Errorf("New heap's map should be empty, but has %d items", len(mh.itemsMap))
	}
}

// TestAddItem tests adding items to the heap
func TestAddItem(t *testing.T) {
	mh := NewMapHeap()

	mh.AddItem("a", 100)
	mh.AddItem("b", 200)
	mh.AddItem("c", 50)

	if mh.Len() != 3 {
		t.Errorf("Heap should have 3 items, but has %d", mh.Len())
	}
	for _, k := range []string{"a", "b", "c"} {
		if !mh.Contains(k) {
			t.Errorf("Heap should contain key %q", k)
		}
	}

	it, exists := mh.Peek()
	if !exists {
		t.Fatal("Peek() should return an item")
	}
	if it.Key != "c" || it.Priority != 50 {
		t.Errorf("Expected earliest item to be (c,50), got %s", it)
	}
}

// TestRescheduleItem tests moving an existing deadline
func TestRescheduleItem(t *testing.T) {
	mh := NewMapHeap()

	mh.AddItem("a", 100)
	mh.AddItem("b", 200)
	mh.AddItem("a", 300)

	if mh.Len() != 2 {
		t.Fatalf("Rescheduling must not duplicate keys, heap has %d items", mh.Len())
	}

	it, _ := mh.GetByKey("a")
	if it.Priority != 300 {
		t.Errorf("Item a should have priority 300, got %d", it.Priority)
	}

	first, _ := mh.Peek()
	if first.Key != "b" {
		t.Errorf("Earliest item should now be b, got %s", first.Key)
	}

	mh.AddItem("b", 50)
	first, _ = mh.Peek()
	if first.Key != "b" || first.Priority != 50 {
		t.Errorf("Earliest item should now be (b,50), got %s", first)
	}
}

// TestRemoveByKey tests removing items by key
func TestRemoveByKey(t *testing.T) {
	mh := NewMapHeap()

	mh.AddItem("a", 100)
	mh.AddItem("b", 200)
	mh.AddItem("c", 300)

	prio, exists := mh.RemoveByKey("b")
	if !exists {
		t.Fatal("RemoveByKey should return true for existing key")
	}
	if prio != 200 {
		t.Errorf("RemoveByKey should return priority 200, got %d", prio)
	}
	if mh.Len() != 2 {
		t.Errorf("Heap should have 2 items after removal, has %d", mh.Len())
	}
	if mh.Contains("b") {
		t.Error("Heap should not contain key b after removal")
	}

	if _, exists = mh.RemoveByKey("missing"); exists {
		t.Error("RemoveByKey should return false for unknown key")
	}
}

// TestPopOrder tests that deadlines come out earliest first
func TestPopOrder(t *testing.T) {
	mh := NewMapHeap()

	items := []struct {
		key  string
		prio int64
	}{
		{"e", 50}, {"c", 30}, {"a", 10}, {"d", 40}, {"b", 20},
	}
	for _, it := range items {
		mh.AddItem(it.key, it.prio)
	}

	sort.Slice(items, func(i, j int) bool { return items[i].prio < items[j].prio })

	for i, expected := range items {
		if mh.Len() == 0 {
			t.Fatalf("Heap empty after %d items, expected %d items", i, len(items))
		}
		it := heap.Pop(mh).(*Item)
		if it.Key != expected.key || it.Priority != expected.prio {
			t.Errorf("Pop %d: expected (%s,%d), got %s", i, expected.key, expected.prio, it)
		}
	}
	if len(mh.itemsMap) != 0 {
		t.Errorf("Map should be empty after popping all items, has %d", len(mh.itemsMap))
	}
}

// TestPeekEmptyHeap tests behavior when peeking an empty heap
func TestPeekEmptyHeap(t *testing.T) {
	if _, exists := NewMapHeap().Peek(); exists {
		t.Error("Peek on empty heap should return exists=false")
	}
}

// TestManyItems drains a large heap and checks the order holds
func TestManyItems(t *testing.T) {
	mh := NewMapHeap()
	const n = 1000

	for i := n; i > 0; i-- {
		mh.AddItem(fmt.Sprintf("k%d", i), int64(i))
	}
	for i := 0; i < n; i += 2 {
		mh.RemoveByKey(fmt.Sprintf("k%d", i+1))
	}

	last := int64(-1)
	for mh.Len() > 0 {
		it := heap.Pop(mh).(*Item)
		if it.Priority < last {
			t.Fatalf("heap order violated: %d after %d", it.Priority, last)
		}
		if it.Priority%2 != 0 {
			t.Fatalf("removed key %s came out of the heap", it.Key)
		}
		last = it.Priority
	}
}
