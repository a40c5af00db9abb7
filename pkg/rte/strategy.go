package rte

import (
	"math/rand"
	"sort"
)

// Candidate is one node eligible for a controller/environment decision:
// its name and its current time window (spec §4.8).
type Candidate struct {
	Name  string
	Lower int
	Upper int
}

// Strategy selects a dispatch instant and a subset of candidates within
// window, generalizing the teacher's pluggable LabelingStrategy
// interface (SelectVariable/Name/Description in labeling.go) to RTE's
// controller/environment decision point. Controller and environment
// strategies share this one interface (spec §4.8: "interchangeable").
type Strategy interface {
	Name() string
	Select(candidates []Candidate, window Window) (time int, chosen []string)
}

// Window is a closed allowed interval [Lower, Upper].
type Window struct {
	Lower, Upper int
}

func sortedNames(candidates []Candidate) []string {
	names := make([]string, len(candidates))
	for i, c := range candidates {
		names[i] = c.Name
	}
	sort.Strings(names)
	return names
}

func readyAt(candidates []Candidate, t int) []string {
	var out []string
	for _, c := range candidates {
		if c.Lower <= t {
			out = append(out, c.Name)
		}
	}
	sort.Strings(out)
	return out
}

type earlyStrategy struct{}

func (earlyStrategy) Name() string { return "EARLY" }
func (earlyStrategy) Select(candidates []Candidate, w Window) (int, []string) {
	return w.Lower, readyAt(candidates, w.Lower)
}

type middleStrategy struct{}

func (middleStrategy) Name() string { return "MIDDLE" }
func (middleStrategy) Select(candidates []Candidate, w Window) (int, []string) {
	t := w.Lower + (w.Upper-w.Lower)/2
	return t, readyAt(candidates, t)
}

type lateStrategy struct{}

func (lateStrategy) Name() string { return "LATE" }
func (lateStrategy) Select(candidates []Candidate, w Window) (int, []string) {
	return w.Upper, readyAt(candidates, w.Upper)
}

type randomStrategy struct{}

func (randomStrategy) Name() string { return "RANDOM" }
func (randomStrategy) Select(candidates []Candidate, w Window) (int, []string) {
	span := w.Upper - w.Lower
	t := w.Lower
	if span > 0 {
		t += rand.Intn(span + 1)
	}
	return t, readyAt(candidates, t)
}

type firstNodeStrategy struct {
	name string
	pick func(Window) int
}

func (f firstNodeStrategy) Name() string { return f.name }
func (f firstNodeStrategy) Select(candidates []Candidate, w Window) (int, []string) {
	t := f.pick(w)
	names := readyAt(candidates, t)
	if len(names) == 0 {
		return t, nil
	}
	return t, names[:1]
}

// Built-in strategies (spec §4.8).
var (
	Early  Strategy = earlyStrategy{}
	Middle Strategy = middleStrategy{}
	Late   Strategy = lateStrategy{}
	Random Strategy = randomStrategy{}

	FirstNodeEarly  Strategy = firstNodeStrategy{name: "FIRST-NODE-EARLY", pick: func(w Window) int { return w.Lower }}
	FirstNodeMiddle Strategy = firstNodeStrategy{name: "FIRST-NODE-MIDDLE", pick: func(w Window) int { return w.Lower + (w.Upper-w.Lower)/2 }}
	FirstNodeLate   Strategy = firstNodeStrategy{name: "FIRST-NODE-LATE", pick: func(w Window) int { return w.Upper }}
)

var byName = map[string]Strategy{
	Early.Name():           Early,
	Middle.Name():          Middle,
	Late.Name():            Late,
	Random.Name():          Random,
	FirstNodeEarly.Name():  FirstNodeEarly,
	FirstNodeMiddle.Name(): FirstNodeMiddle,
	FirstNodeLate.Name():   FirstNodeLate,
}

// Lookup resolves one of the built-in strategy names (case-sensitive,
// spec §4.8's own spelling: EARLY, MIDDLE, LATE, RANDOM,
// FIRST-NODE-EARLY, FIRST-NODE-MIDDLE, FIRST-NODE-LATE) for callers,
// such as cmd/rte-sim, that select a strategy by flag value.
func Lookup(name string) (Strategy, bool) {
	s, ok := byName[name]
	return s, ok
}
