package labelmap

import (
	"testing"

	"github.com/gitrdm/cstnu/pkg/alabel"
	"github.com/gitrdm/cstnu/pkg/label"
)

func TestPutGetRemove(t *testing.T) {
	m := New()
	a := label.MustLiteral('a', label.Straight)
	if !m.Put(a, 5) {
		t.Fatal("first insert should succeed")
	}
	v, ok := m.Get(a)
	if !ok || v != 5 {
		t.Fatalf("Get = %d, %v; want 5, true", v, ok)
	}
	if !m.Remove(a) {
		t.Fatal("remove should report present")
	}
	if _, ok := m.Get(a); ok {
		t.Fatal("entry should be gone")
	}
}

func TestDominanceRejectsRedundantInsert(t *testing.T) {
	m := New()
	ab, _ := label.Conjunction(label.MustLiteral('a', label.Straight), label.MustLiteral('b', label.Straight))
	a := label.MustLiteral('a', label.Straight)

	// (ab, 3) present; ab subsumes a (every literal of a is in ab).
	m.Put(ab, 3)
	// Inserting (a, 5) should be rejected: existing (ab,3) subsumes the
	// new label a with 3 <= 5.
	if m.Put(a, 5) {
		t.Error("insert of dominated (a,5) should be rejected")
	}
	if _, ok := m.Get(a); ok {
		t.Error("(a,5) should not be present")
	}
}

func TestDominanceRemovesDominatedEntries(t *testing.T) {
	m := New()
	ab, _ := label.Conjunction(label.MustLiteral('a', label.Straight), label.MustLiteral('b', label.Straight))
	a := label.MustLiteral('a', label.Straight)

	m.Put(a, 10)
	// Inserting (ab, 2): ab subsumes a and 2 <= 10, so the existing (a,10)
	// should be removed.
	if !m.Put(ab, 2) {
		t.Fatal("insert of (ab,2) should succeed")
	}
	if _, ok := m.Get(a); ok {
		t.Error("(a,10) should have been removed by dominance")
	}
	if v, ok := m.Get(ab); !ok || v != 2 {
		t.Errorf("Get(ab) = %d, %v; want 2, true", v, ok)
	}
}

func TestGetMinValueSubsumedByAndConsistentWith(t *testing.T) {
	m := New()
	a := label.MustLiteral('a', label.Straight)
	notA := label.MustLiteral('a', label.Negated)
	m.Put(a, 4)
	m.Put(notA, 9)
	m.Put(label.Empty, 20)

	// subsumed by a: entries whose label's literals are all in 'a' -> only
	// a itself, since (⊡, 20) was rejected as dominated by (a, 4).
	v, ok := m.GetMinValueSubsumedBy(a)
	if !ok || v != 4 {
		t.Errorf("GetMinValueSubsumedBy(a) = %d, %v; want 4, true", v, ok)
	}

	// consistent with a: a only (not notA, which conflicts).
	v, ok = m.GetMinValueConsistentWith(a)
	if !ok || v != 4 {
		t.Errorf("GetMinValueConsistentWith(a) = %d, %v; want 4, true", v, ok)
	}
}

func TestGetMinMaxValue(t *testing.T) {
	m := New()
	m.Put(label.MustLiteral('a', label.Straight), 7)
	m.Put(label.MustLiteral('b', label.Straight), 2)
	min, ok := m.GetMinValue()
	if !ok || min != 2 {
		t.Errorf("GetMinValue = %d, %v; want 2, true", min, ok)
	}
	max, ok := m.GetMaxValue()
	if !ok || max != 7 {
		t.Errorf("GetMaxValue = %d, %v; want 7, true", max, ok)
	}
}

func TestBaseSimplification(t *testing.T) {
	m := New()
	// All 4 consistent components over {a,b} present with value 3: should
	// collapse to a single (⊡, 3) entry.
	for _, c := range label.AllComponentsOfBaseGenerator([]byte{'a', 'b'}) {
		m.Put(c, 3)
	}
	if m.Len() != 1 {
		t.Fatalf("expected base collapse to 1 entry, got %d: %v", m.Len(), m.Entries())
	}
	v, ok := m.Get(label.Empty)
	if !ok || v != 3 {
		t.Errorf("Get(⊡) = %d, %v; want 3, true", v, ok)
	}
}

func TestStringParseRoundTrip(t *testing.T) {
	m := New()
	m.Put(label.MustLiteral('a', label.Straight), 5)
	m.Put(label.MustLiteral('a', label.Negated), -3)

	s := m.String()
	parsed, err := Parse(s)
	if err != nil {
		t.Fatalf("Parse(%q): %v", s, err)
	}
	if parsed.Len() != m.Len() {
		t.Fatalf("round trip entry count mismatch: %d vs %d", parsed.Len(), m.Len())
	}
	for _, e := range m.Entries() {
		v, ok := parsed.Get(e.Label)
		if !ok || v != e.Value {
			t.Errorf("round trip entry %v: got %d,%v want %d,true", e.Label, v, ok, e.Value)
		}
	}
}

func TestEmptyMapString(t *testing.T) {
	m := New()
	if m.String() != "{}" {
		t.Errorf("String() = %q, want {}", m.String())
	}
	parsed, err := Parse("{}")
	if err != nil || parsed.Len() != 0 {
		t.Errorf("Parse({}) = %v, %v; want empty map", parsed, err)
	}
}

func TestALabelMapOrdinaryDominatesUpperCase(t *testing.T) {
	t.Parallel()
	m := NewALabelMap()
	ab, _ := label.Conjunction(label.MustLiteral('a', label.Straight), label.MustLiteral('b', label.Straight))
	a := label.MustLiteral('a', label.Straight)
	C := alabel.Single('C')

	// Ordinary map has (ab, 2); upper-case C map attempts (a, 5): since ab
	// subsumes a and 2 <= 5, this insertion should be rejected.
	if !m.Merge(alabel.Empty, ab, 2) {
		t.Fatal("ordinary insert should succeed")
	}
	if m.Merge(C, a, 5) {
		t.Error("upper-case insert dominated by ordinary entry should be rejected")
	}
}

func TestALabelMapNewOrdinaryEntryPrunesUpperCase(t *testing.T) {
	m := NewALabelMap()
	a := label.MustLiteral('a', label.Straight)
	ab, _ := label.Conjunction(a, label.MustLiteral('b', label.Straight))
	C := alabel.Single('C')

	if !m.Merge(C, a, 10) {
		t.Fatal("upper-case insert should succeed")
	}
	// Now insert (ab, 1) at the ordinary level: ab subsumes a, 1 <= 10, so
	// the upper-case entry should be pruned.
	if !m.Merge(alabel.Empty, ab, 1) {
		t.Fatal("ordinary insert should succeed")
	}
	if _, ok := m.MapFor(C).Get(a); ok {
		t.Error("upper-case entry should have been pruned by new ordinary dominance")
	}
}

func TestALabelMapIndependentALabelsDoNotInteract(t *testing.T) {
	m := NewALabelMap()
	a := label.MustLiteral('a', label.Straight)
	C := alabel.Single('C')
	D := alabel.Single('D')

	m.Merge(C, a, 5)
	m.Merge(D, a, 1)

	if v, ok := m.MapFor(C).Get(a); !ok || v != 5 {
		t.Errorf("C map entry = %d,%v; want 5,true", v, ok)
	}
	if v, ok := m.MapFor(D).Get(a); !ok || v != 1 {
		t.Errorf("D map entry = %d,%v; want 1,true", v, ok)
	}
}
