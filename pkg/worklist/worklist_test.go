package worklist

import (
	"testing"

	"github.com/gitrdm/cstnu/pkg/tnetwork"
)

func TestPushPopFIFO(t *testing.T) {
	w := New()
	e1 := tnetwork.NewEdge("A", "B", tnetwork.Requirement)
	e2 := tnetwork.NewEdge("B", "C", tnetwork.Requirement)
	w.Push(e1)
	w.Push(e2)

	got, ok := w.Pop()
	if !ok || got != e1 {
		t.Fatalf("first pop = %v, want e1", got)
	}
	got, ok = w.Pop()
	if !ok || got != e2 {
		t.Fatalf("second pop = %v, want e2", got)
	}
	if !w.Empty() {
		t.Error("work-list should be empty after draining")
	}
	if _, ok := w.Pop(); ok {
		t.Error("pop on empty work-list should report ok=false")
	}
}

func TestPushDedup(t *testing.T) {
	w := New()
	e1 := tnetwork.NewEdge("A", "B", tnetwork.Requirement)
	if !w.Push(e1) {
		t.Error("first push should succeed")
	}
	if w.Push(e1) {
		t.Error("second push of the same edge should be a no-op")
	}
	if w.Len() != 1 {
		t.Errorf("Len() = %d, want 1", w.Len())
	}
}

func TestPushAll(t *testing.T) {
	w := New()
	e1 := tnetwork.NewEdge("A", "B", tnetwork.Requirement)
	e2 := tnetwork.NewEdge("B", "C", tnetwork.Requirement)
	w.PushAll([]*tnetwork.Edge{e1, e2, e1})
	if w.Len() != 2 {
		t.Errorf("Len() = %d, want 2", w.Len())
	}
}

func TestRequeueAfterPop(t *testing.T) {
	w := New()
	e1 := tnetwork.NewEdge("A", "B", tnetwork.Requirement)
	w.Push(e1)
	w.Pop()
	if !w.Push(e1) {
		t.Error("edge should be re-queueable once popped")
	}
}
