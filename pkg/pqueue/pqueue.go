// Package pqueue implements an addressable min-priority-queue:
// decrease-key and delete-any by identity, on top of container/heap
// (spec §4.8, §9's call for "priority queues with decrease-key"). It
// backs the RTE executor's active_waits per-node queues (pkg/rte); the
// executor's glb/gub minima do not use it.
//
// No repo in the example pack carries a third-party addressable-heap
// library (not even aws-karpenter-provider-aws's large dependency
// list); container/heap plus an id->index map is the idiomatic Go
// primitive for this, the same pattern Kubernetes' own scheduler queues
// use.
package pqueue

import "container/heap"

// Item is one entry: an identity and its priority (lower pops first).
type Item struct {
	ID       string
	Priority int
}

// Queue is an addressable min-heap keyed by string identity.
type Queue struct {
	data  []*Item
	index map[string]int // ID -> position in data, for decrease-key/remove
}

// New creates an empty queue.
func New() *Queue {
	return &Queue{index: make(map[string]int)}
}

func (q *Queue) fix(i int) {
	heap.Fix(&indexedHeap{q}, i)
}

// indexedHeap adapts Queue's backing slice to container/heap while
// keeping Queue's index map in sync on every swap.
type indexedHeap struct{ q *Queue }

func (h *indexedHeap) Len() int { return len(h.q.data) }
func (h *indexedHeap) Less(i, j int) bool {
	return h.q.data[i].Priority < h.q.data[j].Priority
}
func (h *indexedHeap) Swap(i, j int) {
	h.q.data[i], h.q.data[j] = h.q.data[j], h.q.data[i]
	h.q.index[h.q.data[i].ID] = i
	h.q.index[h.q.data[j].ID] = j
}
func (h *indexedHeap) Push(x interface{}) {
	it := x.(*Item)
	h.q.index[it.ID] = len(h.q.data)
	h.q.data = append(h.q.data, it)
}
func (h *indexedHeap) Pop() interface{} {
	old := h.q.data
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	h.q.data = old[:n-1]
	delete(h.q.index, it.ID)
	return it
}

// Push inserts id with the given priority, or updates its priority if
// already present (decrease-key or increase-key, whichever direction).
func (q *Queue) Push(id string, priority int) {
	if i, ok := q.index[id]; ok {
		q.data[i].Priority = priority
		q.fix(i)
		return
	}
	heap.Push(&indexedHeap{q}, &Item{ID: id, Priority: priority})
}

// Pop removes and returns the minimum-priority item. ok is false if the
// queue is empty.
func (q *Queue) Pop() (item Item, ok bool) {
	if len(q.data) == 0 {
		return Item{}, false
	}
	it := heap.Pop(&indexedHeap{q}).(*Item)
	return *it, true
}

// Peek returns the minimum-priority item without removing it.
func (q *Queue) Peek() (item Item, ok bool) {
	if len(q.data) == 0 {
		return Item{}, false
	}
	return *q.data[0], true
}

// Remove deletes id from the queue, wherever it currently sits
// (delete-any). Returns true if id was present.
func (q *Queue) Remove(id string) bool {
	i, ok := q.index[id]
	if !ok {
		return false
	}
	heap.Remove(&indexedHeap{q}, i)
	return true
}

// Contains reports whether id is currently queued.
func (q *Queue) Contains(id string) bool {
	_, ok := q.index[id]
	return ok
}

// PriorityOf returns id's current priority, if queued.
func (q *Queue) PriorityOf(id string) (int, bool) {
	i, ok := q.index[id]
	if !ok {
		return 0, false
	}
	return q.data[i].Priority, true
}

// Len reports the number of queued items.
func (q *Queue) Len() int {
	return len(q.data)
}
