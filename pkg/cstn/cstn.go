// Package cstn implements the CSTN propagation rules and fixed-point
// drivers of spec §4.3/§4.4: label propagation (LP/qLP), observation
// simplification (R0/qR0), and source-label simplification (R3/qR3),
// iterated to a fixed point by either an edge-list driver or a
// Z-restricted driver.
//
// The propagation core is grounded on the teacher's
// PropagationConstraint/ConstraintManager split (propagation.go,
// constraint_manager.go): individual rules are small, stateless
// functions over a shared Graph, and a driver loop owns the
// fixed-point/worklist machinery, the same separation the teacher uses
// between AllDifferent/Arithmetic/Inequality and ConstraintManager's
// registry-and-convergence loop. SemanticsConfig plays the role the
// teacher's labeling.go strategy interface plays for search order: a
// small predicate bag selected by the caller rather than a parallel
// class hierarchy per semantics variant (Design Note §9).
package cstn

import (
	"context"
	"fmt"

	"github.com/gitrdm/cstnu/pkg/label"
	"github.com/gitrdm/cstnu/pkg/overflow"
	"github.com/gitrdm/cstnu/pkg/tnetwork"
	"github.com/gitrdm/cstnu/pkg/worklist"
)

// SemanticsConfig selects among the CSTN semantics variants (Design Note
// §9): rather than a family of propagator subclasses, one core engine is
// parameterized by a small set of predicates/flags.
type SemanticsConfig struct {
	// MustRestrictToConsistentLabel is IR semantics (spec §4.3's "u >=
	// 0" branch always uses plain conjunction and fails on
	// inconsistency, rather than ever falling back to extended
	// conjunction). True by default; ε-semantics callers set it false.
	MustRestrictToConsistentLabel bool

	// SkipInR0/SkipInR3 disable the corresponding local simplification
	// rule entirely — used by callers (e.g. pkg/potential's own R3 pass)
	// that implement an equivalent simplification on a different
	// representation and don't want this engine's version to compete
	// with it.
	SkipInR0 bool
	SkipInR3 bool

	// OnlyToZ selects the Z-restricted driver (spec §4.4): only edge
	// pairs whose second component ends at Z are propagated. Faster, but
	// only decides DC for the sub-network reachable from Z; the caller
	// is responsible for knowing that's sufficient for their query.
	OnlyToZ bool

	// MaxCycles overrides the safety-limit cycle counter; 0 means
	// "compute maxWeight * |V|^2 * |P|^3 * |K|^2 per spec §4.4".
	MaxCycles int
}

// DefaultSemanticsConfig is IR semantics with both local rules enabled
// and the edge-list driver.
func DefaultSemanticsConfig() SemanticsConfig {
	return SemanticsConfig{MustRestrictToConsistentLabel: true}
}

// Result is the outcome of a Check.
type Result struct {
	Consistent     bool
	Finished       bool // false: max_cycles safety limit was hit ("not finished")
	Cycles         int
	NegativeLoopAt string // node where a negative cycle was detected, if !Consistent
}

// Checker runs CSTN propagation over a Graph (spec §4.3/§4.4).
type Checker struct {
	Graph  *tnetwork.Graph
	Config SemanticsConfig
}

// NewChecker builds a Checker over g with the given configuration.
func NewChecker(g *tnetwork.Graph, cfg SemanticsConfig) *Checker {
	return &Checker{Graph: g, Config: cfg}
}

// maxAbsWeight returns the largest absolute finite ordinary edge value
// in the graph, used for the horizon and max_cycles estimates.
func (c *Checker) maxAbsWeight() int {
	max := 0
	for _, n := range c.Graph.Nodes() {
		for _, e := range c.Graph.OutEdges(n.Name) {
			for _, entry := range e.Values.Ordinary().Entries() {
				v := entry.Value
				if overflow.IsPosInf(v) || overflow.IsNegInf(v) {
					continue
				}
				if v < 0 {
					v = -v
				}
				if v > max {
					max = v
				}
			}
		}
	}
	return max
}

// propositionCount returns the number of distinct observed propositions
// in the graph.
func (c *Checker) propositionCount() int {
	count := 0
	for _, n := range c.Graph.Nodes() {
		if n.IsObserver {
			count++
		}
	}
	return count
}

func (c *Checker) contingentCount() int {
	return len(c.Graph.ContingentLinks())
}

// maxCycles computes the spec §4.4 safety limit, or returns the
// caller-supplied override.
func (c *Checker) maxCycles() int {
	if c.Config.MaxCycles > 0 {
		return c.Config.MaxCycles
	}
	v := c.Graph.Nodes()
	n := len(v)
	p := c.propositionCount()
	k := c.contingentCount()
	if p == 0 {
		p = 1
	}
	if k == 0 {
		k = 1
	}
	w := c.maxAbsWeight()
	if w == 0 {
		w = 1
	}
	return w * n * n * p * p * p * k * k
}

// Check runs the fixed-point propagation to completion, to the safety
// limit, or until ctx is cancelled.
func (c *Checker) Check(ctx context.Context) (*Result, error) {
	limit := c.maxCycles()
	w := worklist.New()
	for _, n := range c.Graph.Nodes() {
		w.PushAll(c.Graph.OutEdges(n.Name))
	}

	cycles := 0
	for !w.Empty() {
		select {
		case <-ctx.Done():
			return &Result{Finished: false, Cycles: cycles}, ctx.Err()
		default:
		}
		cycles++
		if cycles > limit {
			return &Result{Finished: false, Cycles: cycles}, nil
		}

		e, _ := w.Pop()
		if c.applyLocalSimplifications(e) {
			w.Push(e)
		}

		for _, bc := range c.Graph.OutEdges(e.To) {
			if c.Config.OnlyToZ && bc.To != c.Graph.Z {
				continue
			}
			ac, negLoop, err := c.applyLP(e, bc)
			if err != nil {
				return nil, err
			}
			if negLoop != "" {
				return &Result{Consistent: false, Finished: true, Cycles: cycles, NegativeLoopAt: negLoop}, nil
			}
			if ac != nil {
				w.Push(ac)
			}
		}
		for _, ca := range c.Graph.InEdges(e.From) {
			if c.Config.OnlyToZ && e.To != c.Graph.Z {
				continue
			}
			cb, negLoop, err := c.applyLP(ca, e)
			if err != nil {
				return nil, err
			}
			if negLoop != "" {
				return &Result{Consistent: false, Finished: true, Cycles: cycles, NegativeLoopAt: negLoop}, nil
			}
			if cb != nil {
				w.Push(cb)
			}
		}
	}
	return &Result{Consistent: true, Finished: true, Cycles: cycles}, nil
}

// applyLocalSimplifications runs R0 then R3 on e's own ordinary values
// until no more changes apply, returning whether e was modified at all.
func (c *Checker) applyLocalSimplifications(e *tnetwork.Edge) bool {
	changed := false
	for {
		didR0 := false
		if !c.Config.SkipInR0 {
			didR0 = c.ruleR0(e)
		}
		didR3 := false
		if !c.Config.SkipInR3 {
			didR3 = c.ruleR3Local(e)
		}
		if !didR0 && !didR3 {
			break
		}
		changed = true
	}
	return changed
}

// ruleR0 strips the observed proposition p from e's labels when e leaves
// P? (p's observer) and the label carries the straight literal p at a
// non-positive value (spec §4.3's R0/qR0).
func (c *Checker) ruleR0(e *tnetwork.Edge) bool {
	from, ok := c.Graph.Node(e.From)
	if !ok || !from.IsObserver {
		return false
	}
	p := from.ObservedProposition
	changed := false
	for _, entry := range e.Values.Ordinary().Entries() {
		st, has := entry.Label.StateOf(p)
		if !has || st != label.Straight || entry.Value > 0 {
			continue
		}
		newLabel := entry.Label.Remove(p)
		if newLabel.Equal(entry.Label) {
			continue
		}
		e.Values.Ordinary().Remove(entry.Label)
		if e.Values.Ordinary().Put(newLabel, entry.Value) {
			changed = true
		}
	}
	return changed
}

// ruleR3Local is the local, single-edge simplification mentioned in the
// LP paragraph of spec §4.3: an edge into observer C whose label already
// carries ¬p or ¿p for C's own observed proposition p is simplified by
// dropping that literal, since the scenario reaching C has not yet
// branched on p. This is distinct from (and a cheap complement to) the
// full two-edge R3/qR3 rule in ruleR3Global.
func (c *Checker) ruleR3Local(e *tnetwork.Edge) bool {
	to, ok := c.Graph.Node(e.To)
	if !ok || !to.IsObserver {
		return false
	}
	p := to.ObservedProposition
	changed := false
	for _, entry := range e.Values.Ordinary().Entries() {
		st, has := entry.Label.StateOf(p)
		if !has || (st != label.Negated && st != label.Unknown) || entry.Value > 0 {
			continue
		}
		newLabel := entry.Label.Remove(p)
		e.Values.Ordinary().Remove(entry.Label)
		if e.Values.Ordinary().Put(newLabel, entry.Value) {
			changed = true
		}
	}
	return changed
}

// applyLP applies rule LP (spec §4.3) combining edge ab (A->B) with edge
// bc (B->C), deriving/merging a value into edge A->C (creating it as a
// Derived edge if necessary). Returns the modified A->C edge (nil if
// nothing changed), and a non-empty NegativeLoopAt node name if a
// self-loop proved the network not DC.
func (c *Checker) applyLP(ab, bc *tnetwork.Edge) (*tnetwork.Edge, string, error) {
	if ab.To != bc.From {
		return nil, "", fmt.Errorf("cstn: applyLP edges do not share a midpoint: %s->%s, %s->%s", ab.From, ab.To, bc.From, bc.To)
	}
	A, C := ab.From, bc.To
	var modified *tnetwork.Edge

	for _, ae := range ab.Values.Ordinary().Entries() {
		for _, be := range bc.Values.Ordinary().Entries() {
			u, v := ae.Value, be.Value
			sum := overflow.Sum(u, v)
			if sum >= 0 {
				continue
			}
			// Spec §4.3: the u >= 0 branch restricts to consistent
			// labels under IR semantics (that restriction is IR's
			// defining property for this rule; non-IR configurations
			// relax it via MustRestrictToConsistentLabel); the u < 0
			// branch always uses extended conjunction, independent of
			// the semantics configuration, since a negative bound can
			// only be sound under a conditionally-committed ("unknown")
			// label.
			var gamma label.Label
			if u >= 0 && c.Config.MustRestrictToConsistentLabel {
				g, ok := label.Conjunction(ae.Label, be.Label)
				if !ok {
					continue
				}
				gamma = g
			} else {
				gamma = label.ConjunctionExtended(ae.Label, be.Label)
			}

			if A == C {
				if !gamma.ContainsUnknown() {
					return nil, A, nil
				}
				loop, err := c.Graph.AddEdge(tnetwork.NewEdge(A, A, tnetwork.Derived))
				if err != nil {
					return nil, "", err
				}
				loop.MergeOrdinary(gamma, overflow.NegInf)
				continue
			}

			ac, err := c.Graph.AddEdge(tnetwork.NewEdge(A, C, tnetwork.Derived))
			if err != nil {
				return nil, "", err
			}
			if ac.MergeOrdinary(gamma, sum) {
				modified = ac
			}
		}
	}
	return modified, "", nil
}

// ApplyLP exposes applyLP to other propagators (pkg/cstnu, pkg/ostnu)
// that layer additional rules atop the same LP combinator rather than
// reimplementing it.
func (c *Checker) ApplyLP(ab, bc *tnetwork.Edge) (*tnetwork.Edge, string, error) {
	return c.applyLP(ab, bc)
}

// ApplyLocalSimplifications exposes applyLocalSimplifications to other
// propagators sharing this engine.
func (c *Checker) ApplyLocalSimplifications(e *tnetwork.Edge) bool {
	return c.applyLocalSimplifications(e)
}

// MaxCycles exposes the spec §4.4 safety-limit computation for drivers
// built atop this engine (pkg/cstnu, pkg/ostnu) that want the same
// horizon-derived cycle bound.
func (c *Checker) MaxCycles() int {
	return c.maxCycles()
}

// RuleR3Global runs the full two-edge R3/qR3 rule (spec §4.3) once over
// every (observer-edge, sibling-edge) pair sharing a destination, for
// callers that want it as a distinct pass rather than relying solely on
// ruleR3Local. Returns whether any edge was modified.
func (c *Checker) RuleR3Global() bool {
	changed := false
	for _, p := range c.Graph.Nodes() {
		if !p.IsObserver {
			continue
		}
		prop := p.ObservedProposition
		for _, pd := range c.Graph.OutEdges(p.Name) {
			d := pd.To
			for _, pdEntry := range pd.Values.Ordinary().Entries() {
				if pdEntry.Value > 0 {
					continue
				}
				gamma, w := pdEntry.Label, pdEntry.Value
				for _, sd := range c.Graph.InEdges(d) {
					if sd.From == p.Name {
						continue
					}
					for _, sdEntry := range sd.Values.Ordinary().Entries() {
						st, has := sdEntry.Label.StateOf(prop)
						if !has || (st != label.Negated && st != label.Unknown) {
							continue
						}
						beta, v := sdEntry.Label, sdEntry.Value
						newLabel := label.ConjunctionExtended(gamma, beta.Remove(prop))
						newValue := overflow.Max(w, v)
						if sd.Values.Ordinary().Put(newLabel, newValue) {
							changed = true
						}
					}
				}
			}
		}
	}
	return changed
}
