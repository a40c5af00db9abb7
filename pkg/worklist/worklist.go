// Package worklist implements the edges-to-check work-set used by the
// fixed-point drivers of spec §4.4: a FIFO queue of edges with
// membership tracking so the same edge is never queued twice
// concurrently, mirroring the teacher's ConstraintManager dispatch queue
// (constraint_manager.go) generalized from "constraint" to "edge".
package worklist

import "github.com/gitrdm/cstnu/pkg/tnetwork"

// key identifies an edge by endpoint pair; tnetwork guarantees at most
// one Edge per ordered pair, so this is a stable identity for dedup.
type key struct{ from, to string }

// WorkList is a FIFO queue of edges, deduplicated by endpoint pair.
type WorkList struct {
	queue []*tnetwork.Edge
	queued map[key]bool
}

// New creates an empty work-list.
func New() *WorkList {
	return &WorkList{queued: make(map[key]bool)}
}

// Push enqueues e unless it is already queued. Returns true if e was
// actually enqueued.
func (w *WorkList) Push(e *tnetwork.Edge) bool {
	k := key{e.From, e.To}
	if w.queued[k] {
		return false
	}
	w.queued[k] = true
	w.queue = append(w.queue, e)
	return true
}

// Pop removes and returns the earliest-queued edge. ok is false if the
// work-list is empty.
func (w *WorkList) Pop() (e *tnetwork.Edge, ok bool) {
	if len(w.queue) == 0 {
		return nil, false
	}
	e = w.queue[0]
	w.queue = w.queue[1:]
	delete(w.queued, key{e.From, e.To})
	return e, true
}

// Len reports the number of queued edges.
func (w *WorkList) Len() int {
	return len(w.queue)
}

// Empty reports whether the work-list has no queued edges.
func (w *WorkList) Empty() bool {
	return len(w.queue) == 0
}

// PushAll enqueues every edge in es, skipping ones already queued.
func (w *WorkList) PushAll(es []*tnetwork.Edge) {
	for _, e := range es {
		w.Push(e)
	}
}
