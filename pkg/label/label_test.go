package label

import "testing"

func TestConjunctionCommutativeAssociative(t *testing.T) {
	a := MustLiteral('a', Straight)
	b := MustLiteral('b', Negated)
	c := MustLiteral('c', Straight)

	ab, ok := Conjunction(a, b)
	if !ok {
		t.Fatal("a∧b should be consistent")
	}
	ba, ok := Conjunction(b, a)
	if !ok || !ab.Equal(ba) {
		t.Error("conjunction not commutative")
	}

	abc1, ok := Conjunction(ab, c)
	if !ok {
		t.Fatal("(a∧b)∧c should be consistent")
	}
	bc, _ := Conjunction(b, c)
	abc2, ok := Conjunction(a, bc)
	if !ok || !abc1.Equal(abc2) {
		t.Error("conjunction not associative")
	}
}

func TestConjunctionIdentityAndSubsumption(t *testing.T) {
	a := MustLiteral('a', Straight)
	id, ok := Conjunction(a, Empty)
	if !ok || !id.Equal(a) {
		t.Errorf("conjunction(l, ⊡) = %v, want %v", id, a)
	}
	if !a.Subsumes(Empty) {
		t.Error("every label subsumes ⊡")
	}
	if !a.Subsumes(a) {
		t.Error("label subsumes itself")
	}
}

func TestConjunctionInconsistent(t *testing.T) {
	a := MustLiteral('a', Straight)
	notA := MustLiteral('a', Negated)
	if _, ok := Conjunction(a, notA); ok {
		t.Error("a ∧ ¬a should be inconsistent")
	}
}

func TestConjunctionExtendedNeverFails(t *testing.T) {
	a := MustLiteral('a', Straight)
	notA := MustLiteral('a', Negated)
	got := ConjunctionExtended(a, notA)
	if !got.ContainsUnknown() {
		t.Error("opposite states should collapse to unknown")
	}
	st, ok := got.StateOf('a')
	if !ok || st != Unknown {
		t.Errorf("got state %v, want Unknown", st)
	}
}

func TestSubsumes(t *testing.T) {
	ab, _ := Conjunction(MustLiteral('a', Straight), MustLiteral('b', Negated))
	a := MustLiteral('a', Straight)
	if !ab.Subsumes(a) {
		t.Error("ab should subsume a")
	}
	if a.Subsumes(ab) {
		t.Error("a should not subsume ab")
	}
}

func TestRemove(t *testing.T) {
	ab, _ := Conjunction(MustLiteral('a', Straight), MustLiteral('b', Negated))
	onlyB := ab.Remove('a')
	if onlyB.HasProposition('a') {
		t.Error("a should be removed")
	}
	if !onlyB.HasProposition('b') {
		t.Error("b should remain")
	}
}

func TestAllComponentsOfBaseGenerator(t *testing.T) {
	props := []byte{'a', 'b'}
	labels := AllComponentsOfBaseGenerator(props)
	if len(labels) != 4 {
		t.Fatalf("expected 2^2=4 labels, got %d", len(labels))
	}
	seen := map[string]bool{}
	for _, l := range labels {
		seen[l.String()] = true
	}
	for _, want := range []string{"ab", "a¬b", "¬ab", "¬a¬b"} {
		if !seen[want] {
			t.Errorf("missing component %q among %v", want, seen)
		}
	}
}

func TestStringParseRoundTrip(t *testing.T) {
	cases := []Label{
		Empty,
		MustLiteral('a', Straight),
		MustLiteral('a', Negated),
		MustLiteral('a', Unknown),
	}
	ab, _ := Conjunction(MustLiteral('a', Straight), MustLiteral('b', Negated))
	cases = append(cases, ab)

	for _, l := range cases {
		s := l.String()
		parsed, err := Parse(s)
		if err != nil {
			t.Fatalf("Parse(%q) error: %v", s, err)
		}
		if !parsed.Equal(l) {
			t.Errorf("round trip %q -> %v, want %v", s, parsed, l)
		}
	}
}

func TestParseExample(t *testing.T) {
	l, err := Parse("¬ab¿c")
	if err != nil {
		t.Fatal(err)
	}
	if st, _ := l.StateOf('a'); st != Negated {
		t.Errorf("a should be negated")
	}
	if st, _ := l.StateOf('b'); st != Straight {
		t.Errorf("b should be straight")
	}
	if st, _ := l.StateOf('c'); st != Unknown {
		t.Errorf("c should be unknown")
	}
}
