// Package labelmap implements LabeledIntMap (spec §4.2) and
// LabeledALabelIntTreeMap (spec §3/§4.2's A-label-keyed extension): a map
// from propositional label to integer weight maintaining the dominance
// invariant, plus a two-level map keyed additionally by A-label for
// CSTNU upper-case values.
//
// The simplification algorithm follows the teacher's general approach in
// propagation.go's AllDifferent/Arithmetic constraints: every mutating
// operation keeps the structure in its smallest, canonical form rather
// than deferring cleanup to a separate pass.
package labelmap

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/gitrdm/cstnu/pkg/alabel"
	"github.com/gitrdm/cstnu/pkg/label"
	"github.com/gitrdm/cstnu/pkg/overflow"
)

// maxBaseSize bounds how many propositions a candidate base set may
// contain during base detection. Base detection is an O(2^|B|) canonical-
// compaction optimization (spec §4.2); it never affects correctness
// (dominance alone guarantees that), only compactness, so it is safe to
// bound it rather than exhaustively search every subset of every label's
// propositions.
const maxBaseSize = 6

// Entry pairs a label with its weight, in LabeledIntMap's insertion
// order.
type Entry struct {
	Label label.Label
	Value int
}

// LabeledIntMap is a map from label to int maintaining the dominance
// invariant of spec §4.2/§8: no two present entries (l1, v1), (l2, v2)
// have l1 subsuming l2 with v1 <= v2.
type LabeledIntMap struct {
	order []label.Label       // insertion order
	vals  map[label.Label]int // current value per label
}

// New creates an empty LabeledIntMap.
func New() *LabeledIntMap {
	return &LabeledIntMap{vals: make(map[label.Label]int)}
}

// Len returns the number of entries currently stored.
func (m *LabeledIntMap) Len() int {
	return len(m.order)
}

// Get returns the value stored at exactly l, if any.
func (m *LabeledIntMap) Get(l label.Label) (int, bool) {
	v, ok := m.vals[l]
	return v, ok
}

// Remove deletes the entry at exactly l. Reports whether an entry was
// present.
func (m *LabeledIntMap) Remove(l label.Label) bool {
	if _, ok := m.vals[l]; !ok {
		return false
	}
	delete(m.vals, l)
	for i, ol := range m.order {
		if ol.Equal(l) {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return true
}

// Put inserts (l, v) maintaining the dominance invariant (spec §4.2):
//  1. if an existing (l', v') has l' subsuming l with v' <= v, the new
//     entry is redundant and is rejected. This includes l'=l itself, so
//     re-inserting the same label with an equal or worse value is a
//     no-op.
//  2. otherwise every existing (l'', v'') with l subsuming l'' and
//     v'' >= v is removed (including l''=l itself, when strictly
//     improving it), then (l, v) is inserted;
//  3. a best-effort base-simplification pass runs afterward.
//
// Returns true if the entry was inserted (false if rejected as
// redundant, including the no-better-value case for an already-present
// label).
func (m *LabeledIntMap) Put(l label.Label, v int) bool {
	for _, existing := range m.order {
		ev := m.vals[existing]
		if existing.Subsumes(l) && ev <= v {
			return false
		}
	}

	var toRemove []label.Label
	for _, existing := range m.order {
		ev := m.vals[existing]
		if l.Subsumes(existing) && v <= ev {
			toRemove = append(toRemove, existing)
		}
	}
	for _, r := range toRemove {
		m.Remove(r)
	}

	if _, already := m.vals[l]; !already {
		m.order = append(m.order, l)
	}
	m.vals[l] = v

	m.simplifyBase()
	return true
}

// Merge is equivalent to Put (spec §4.2: "merge(l, v): equivalent to put
// after checking dominance" — the dominance check is Put's own job).
func (m *LabeledIntMap) Merge(l label.Label, v int) bool {
	return m.Put(l, v)
}

// Entries returns all entries in insertion order.
func (m *LabeledIntMap) Entries() []Entry {
	out := make([]Entry, 0, len(m.order))
	for _, l := range m.order {
		out = append(out, Entry{Label: l, Value: m.vals[l]})
	}
	return out
}

// GetMinValue returns the minimum value across all entries.
func (m *LabeledIntMap) GetMinValue() (int, bool) {
	min := 0
	found := false
	for _, v := range m.vals {
		if !found || v < min {
			min = v
			found = true
		}
	}
	return min, found
}

// GetMaxValue returns the maximum value across all entries.
func (m *LabeledIntMap) GetMaxValue() (int, bool) {
	max := 0
	found := false
	for _, v := range m.vals {
		if !found || v > max {
			max = v
			found = true
		}
	}
	return max, found
}

// GetMinValueSubsumedBy returns the minimum value among entries whose
// label is subsumed by l (i.e. every literal of the entry's label is
// present in l — spec §4.2).
func (m *LabeledIntMap) GetMinValueSubsumedBy(l label.Label) (int, bool) {
	min := 0
	found := false
	for _, entryLabel := range m.order {
		if !l.Subsumes(entryLabel) {
			continue
		}
		v := m.vals[entryLabel]
		if !found || v < min {
			min = v
			found = true
		}
	}
	return min, found
}

// GetMinValueConsistentWith returns the minimum value among entries
// whose label is consistent with l (spec §4.2: uses is_consistent_with
// rather than subsumption).
func (m *LabeledIntMap) GetMinValueConsistentWith(l label.Label) (int, bool) {
	min := 0
	found := false
	for _, entryLabel := range m.order {
		if !entryLabel.IsConsistentWith(l) {
			continue
		}
		v := m.vals[entryLabel]
		if !found || v < min {
			min = v
			found = true
		}
	}
	return min, found
}

// usedPropositions returns the distinct propositions mentioned across
// all current entries, sorted.
func (m *LabeledIntMap) usedPropositions() []byte {
	seen := map[byte]bool{}
	for _, l := range m.order {
		for _, p := range l.GetPropositions() {
			seen[p] = true
		}
	}
	out := make([]byte, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// simplifyBase implements spec §4.2's base-detection step: a candidate
// set B of propositions is a base iff all 2^|B| consistent labels over B
// are present with the same value v*, and v* is <= the value of every
// other entry whose label is subsumed by B. When found, the 2^|B|
// components are replaced with a single (⊡, v*) entry.
//
// Search is bounded to subsets of size <= maxBaseSize of the currently
// used propositions; this keeps the optimization O(1) amortized for the
// label sizes this checker targets (spec §7: <= 22 propositions total)
// without an exhaustive exponential search over every possible subset.
func (m *LabeledIntMap) simplifyBase() {
	props := m.usedPropositions()
	if len(props) > maxBaseSize {
		props = props[:maxBaseSize]
	}
	for size := len(props); size >= 1; size-- {
		if m.tryBaseOfSize(props, size) {
			return
		}
	}
}

func (m *LabeledIntMap) tryBaseOfSize(props []byte, size int) bool {
	combo := make([]int, size)
	for i := range combo {
		combo[i] = i
	}
	n := len(props)
	for {
		B := make([]byte, size)
		for i, idx := range combo {
			B[i] = props[idx]
		}
		if m.tryBase(B) {
			return true
		}
		// advance combo (standard combinations-without-repetition iterator)
		i := size - 1
		for i >= 0 && combo[i] == n-size+i {
			i--
		}
		if i < 0 {
			break
		}
		combo[i]++
		for j := i + 1; j < size; j++ {
			combo[j] = combo[j-1] + 1
		}
	}
	return false
}

func (m *LabeledIntMap) tryBase(B []byte) bool {
	components := label.AllComponentsOfBaseGenerator(B)
	var common int
	for i, c := range components {
		v, ok := m.vals[c]
		if !ok {
			return false
		}
		if i == 0 {
			common = v
		} else if v != common {
			return false
		}
	}
	// common must be <= every other entry subsumed by B (i.e. every
	// entry whose label is one of the components or more specific still
	// consistent); conservatively check against every present entry
	// subsumed by any component.
	for _, entryLabel := range m.order {
		isComponent := false
		for _, c := range components {
			if entryLabel.Equal(c) {
				isComponent = true
				break
			}
		}
		if isComponent {
			continue
		}
		for _, c := range components {
			if c.Subsumes(entryLabel) && m.vals[entryLabel] < common {
				return false
			}
		}
	}

	for _, c := range components {
		m.Remove(c)
	}
	m.order = append(m.order, label.Empty)
	if existing, ok := m.vals[label.Empty]; ok {
		common = overflow.Min(common, existing)
		m.order = m.order[:len(m.order)-1]
	}
	m.vals[label.Empty] = common
	return true
}

// String serializes the map per spec §6: "{[(v, l) ]+}|{}".
func (m *LabeledIntMap) String() string {
	if len(m.order) == 0 {
		return "{}"
	}
	var sb strings.Builder
	sb.WriteString("{")
	for i, l := range m.order {
		if i > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString("(")
		sb.WriteString(formatValue(m.vals[l]))
		sb.WriteString(", ")
		sb.WriteString(l.String())
		sb.WriteString(")")
	}
	sb.WriteString("}")
	return sb.String()
}

func formatValue(v int) string {
	switch {
	case overflow.IsPosInf(v):
		return "∞"
	case overflow.IsNegInf(v):
		return "-∞"
	default:
		return strconv.Itoa(v)
	}
}

func parseValue(s string) (int, error) {
	switch s {
	case "∞", "+∞":
		return overflow.PosInf, nil
	case "-∞":
		return overflow.NegInf, nil
	default:
		return strconv.Atoi(s)
	}
}

// Parse parses the spec §6 serialization back into a LabeledIntMap.
func Parse(s string) (*LabeledIntMap, error) {
	s = strings.TrimSpace(s)
	m := New()
	if s == "{}" {
		return m, nil
	}
	if !strings.HasPrefix(s, "{") || !strings.HasSuffix(s, "}") {
		return nil, fmt.Errorf("labelmap: malformed serialization %q", s)
	}
	body := s[1 : len(s)-1]
	for _, tok := range splitEntries(body) {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		if !strings.HasPrefix(tok, "(") || !strings.HasSuffix(tok, ")") {
			return nil, fmt.Errorf("labelmap: malformed entry %q", tok)
		}
		inner := tok[1 : len(tok)-1]
		parts := strings.SplitN(inner, ",", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("labelmap: malformed entry %q", tok)
		}
		v, err := parseValue(strings.TrimSpace(parts[0]))
		if err != nil {
			return nil, fmt.Errorf("labelmap: bad value in %q: %w", tok, err)
		}
		l, err := label.Parse(strings.TrimSpace(parts[1]))
		if err != nil {
			return nil, fmt.Errorf("labelmap: bad label in %q: %w", tok, err)
		}
		m.Put(l, v)
	}
	return m, nil
}

func splitEntries(body string) []string {
	var out []string
	depth := 0
	start := 0
	for i, r := range body {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				out = append(out, body[start:i+1])
				start = i + 1
			}
		}
	}
	return out
}

// ALabelMap is LabeledALabelIntTreeMap (spec §3): a mapping from A-label
// to LabeledIntMap. The empty A-label holds ordinary labeled values; a
// non-empty A-label holds upper-case values for that contingent set.
// Merging maintains dominance across A-labels: a value stored at the
// empty A-label dominates the same (label, value) stored at any
// non-empty A-label.
type ALabelMap struct {
	order []alabel.ALabel
	inner map[alabel.ALabel]*LabeledIntMap
}

// NewALabelMap creates an empty LabeledALabelIntTreeMap.
func NewALabelMap() *ALabelMap {
	return &ALabelMap{inner: make(map[alabel.ALabel]*LabeledIntMap)}
}

// MapFor returns (creating if necessary) the LabeledIntMap for a.
func (t *ALabelMap) MapFor(a alabel.ALabel) *LabeledIntMap {
	if m, ok := t.inner[a]; ok {
		return m
	}
	m := New()
	t.inner[a] = m
	t.order = append(t.order, a)
	return m
}

// ALabels returns the A-labels with at least one entry, in insertion
// order.
func (t *ALabelMap) ALabels() []alabel.ALabel {
	out := make([]alabel.ALabel, 0, len(t.order))
	for _, a := range t.order {
		if t.inner[a].Len() > 0 {
			out = append(out, a)
		}
	}
	return out
}

// Ordinary is a convenience accessor for the A-label-∅ submap (ordinary
// labeled values).
func (t *ALabelMap) Ordinary() *LabeledIntMap {
	return t.MapFor(alabel.Empty)
}

// Merge inserts (l, v) under A-label a, then enforces cross-A-label
// dominance: if the ordinary (∅) map already has an entry at a label
// subsuming l with a value <= v, the insertion under a non-empty a is
// redundant and is skipped; conversely, inserting (l, v) at ∅ removes
// any now-dominated entries at every non-empty A-label.
func (t *ALabelMap) Merge(a alabel.ALabel, l label.Label, v int) bool {
	if !a.IsEmpty() {
		for _, e := range t.Ordinary().Entries() {
			if e.Label.Subsumes(l) && e.Value <= v {
				return false
			}
		}
	}
	inserted := t.MapFor(a).Put(l, v)
	if !inserted {
		return false
	}
	if a.IsEmpty() {
		for _, other := range t.order {
			if other.IsEmpty() {
				continue
			}
			m := t.inner[other]
			for _, e := range m.Entries() {
				if l.Subsumes(e.Label) && v <= e.Value {
					m.Remove(e.Label)
				}
			}
		}
	}
	return true
}
