package alabel

import "testing"

func TestEmptyIsEmpty(t *testing.T) {
	if !Empty.IsEmpty() {
		t.Error("Empty should be empty")
	}
	if Empty.String() != "∅" {
		t.Errorf("Empty.String() = %q, want ∅", Empty.String())
	}
}

func TestSingleAndContains(t *testing.T) {
	c := Single('C')
	if !c.Contains('C') {
		t.Error("singleton should contain its letter")
	}
	if c.Contains('D') {
		t.Error("singleton should not contain other letters")
	}
	if c.Size() != 1 {
		t.Errorf("size = %d, want 1", c.Size())
	}
}

func TestUnionAndWithout(t *testing.T) {
	cd := Union(Single('C'), Single('D'))
	if cd.Size() != 2 || !cd.Contains('C') || !cd.Contains('D') {
		t.Errorf("union wrong: %v", cd)
	}
	onlyD := cd.Without('C')
	if onlyD.Contains('C') || !onlyD.Contains('D') {
		t.Errorf("without wrong: %v", onlyD)
	}
}

func TestEqualAndString(t *testing.T) {
	a := FromLetters('C', 'D')
	b := FromLetters('D', 'C')
	if !a.Equal(b) {
		t.Error("A-label equality should be order independent")
	}
	if a.String() != "CD" {
		t.Errorf("String() = %q, want CD", a.String())
	}
}

func TestSortALabels(t *testing.T) {
	labels := []ALabel{FromLetters('D'), Empty, FromLetters('C', 'D'), FromLetters('C')}
	sorted := SortALabels(labels)
	if !sorted[0].IsEmpty() {
		t.Error("empty A-label should sort first")
	}
	if sorted[len(sorted)-1].Size() != 2 {
		t.Error("largest A-label should sort last")
	}
}
