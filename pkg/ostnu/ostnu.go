// Package ostnu implements the oracle-rule propagation of spec §4.7:
// OSTNU adds oracle nodes that let a controller condition on contingent
// outcomes, at the cost of tracking "negative scenarios" that must be
// pruned rather than propagated.
//
// Grounded on pkg/cstnu the same way pkg/cstnu is grounded on pkg/cstn:
// one more rule function layered on the shared LP/worklist driver,
// following Design Note §9's "shared core plus small rule predicates"
// in place of a CSTNU-then-OSTNU subclass chain.
package ostnu

import (
	"context"

	"github.com/gitrdm/cstnu/pkg/cstn"
	"github.com/gitrdm/cstnu/pkg/cstnu"
	"github.com/gitrdm/cstnu/pkg/label"
	"github.com/gitrdm/cstnu/pkg/overflow"
	"github.com/gitrdm/cstnu/pkg/tnetwork"
)

// Config selects the CSTNU configuration to run underneath.
type Config struct {
	cstnu.Config
}

// DefaultConfig is cstnu.DefaultConfig with no further OSTNU-specific
// options.
func DefaultConfig() Config {
	return Config{Config: cstnu.DefaultConfig()}
}

// Result is the outcome of a Check.
type Result struct {
	AgilelyControllable bool
	Finished            bool
	Cycles              int
	NegativeScenarioAt  string // node where a fatal negative scenario was recorded, if !AgilelyControllable
}

// Checker runs OSTNU propagation over a Graph (spec §4.7).
type Checker struct {
	Graph  *tnetwork.Graph
	Config Config

	inner   *cstnu.Checker
	pool    *Pool
	negScen *NegativeScenarios
}

// NewChecker builds a Checker over g with the given configuration.
func NewChecker(g *tnetwork.Graph, cfg Config) *Checker {
	return &Checker{
		Graph:   g,
		Config:  cfg,
		inner:   cstnu.NewChecker(g, cfg.Config),
		pool:    NewPool(g),
		negScen: NewNegativeScenarios(),
	}
}

// applyOracleRule implements the oracle rule (spec §4.7) for contingent
// link (A, C) and every eligible node X: a non-contingent,
// non-activation, non-oracle node with both C->X and X->C edges whose
// combined span beats the contingent's own span. Returns whether
// anything changed.
//
// α₁ is built with ConjunctionExtended rather than Conjunction (which
// can fail): the spec does not specify a fallback for an inconsistent
// combination, and never failing keeps the rule total, at the cost of
// occasionally over-approximating with an unknown literal rather than
// skipping — a conservative simplification documented in DESIGN.md.
func (c *Checker) applyOracleRule(link *tnetwork.ContingentLink) (bool, error) {
	A, C := link.Activation, link.Contingent
	span := link.Y - link.X

	oracle, ok := c.Graph.OracleFor(C)
	if !ok {
		return false, nil
	}

	acEdge, ok := c.Graph.Find(A, C)
	if !ok || acEdge.LowerCase == nil {
		return false, nil
	}
	alpha := acEdge.LowerCase.Label

	changed := false
	for _, n := range c.Graph.Nodes() {
		X := n.Name
		if X == A || X == C || X == oracle || n.IsOracle || n.IsContingent {
			continue
		}
		cx, ok := c.Graph.Find(C, X)
		if !ok {
			continue
		}
		xc, ok := c.Graph.Find(X, C)
		if !ok {
			continue
		}

		for _, cxEntry := range cx.Values.Ordinary().Entries() {
			v, beta := cxEntry.Value, cxEntry.Label
			for _, xcEntry := range xc.Values.Ordinary().Entries() {
				u := -xcEntry.Value
				betaPrime := xcEntry.Label
				if v-u >= span {
					continue
				}

				p, err := c.pool.For(C, X)
				if err != nil {
					return changed, err
				}
				fresh := label.MustLiteral(p, label.Straight)
				alpha1 := label.ConjunctionExtended(alpha, fresh)
				alpha1BetaBeta := label.ConjunctionExtended(alpha1, label.ConjunctionExtended(beta, betaPrime))
				alpha1Beta := label.ConjunctionExtended(alpha1, beta)
				alpha1BetaPrime := label.ConjunctionExtended(alpha1, betaPrime)

				xo, err := c.Graph.AddEdge(tnetwork.NewEdge(X, oracle, tnetwork.Derived))
				if err != nil {
					return changed, err
				}
				if xo.MergeOrdinary(alpha1BetaBeta, 0) {
					changed = true
				}

				co, err := c.Graph.AddEdge(tnetwork.NewEdge(C, oracle, tnetwork.Derived))
				if err != nil {
					return changed, err
				}
				if co.MergeOrdinary(alpha1BetaBeta, u) {
					changed = true
				}

				ao, err := c.Graph.AddEdge(tnetwork.NewEdge(A, oracle, tnetwork.Derived))
				if err != nil {
					return changed, err
				}
				if ao.MergeOrdinary(alpha1BetaBeta, link.X+u) {
					changed = true
				}

				xa, err := c.Graph.AddEdge(tnetwork.NewEdge(X, A, tnetwork.Derived))
				if err != nil {
					return changed, err
				}
				if xa.MergeOrdinary(alpha1Beta, v-link.X) {
					changed = true
				}

				ax, err := c.Graph.AddEdge(tnetwork.NewEdge(A, X, tnetwork.Derived))
				if err != nil {
					return changed, err
				}
				if ax.MergeOrdinary(alpha1BetaPrime, link.Y+u) {
					changed = true
				}
			}
		}
	}
	return changed, nil
}

// pruneNegativeScenarios removes every edge labeled value (on any edge,
// under any A-label) whose label is covered by a recorded
// negative scenario ("dropped on sight", spec §4.7). Applied as a sweep
// at the end of every round rather than inline at each individual merge
// call site: correctness-equivalent (a dropped-on-sight entry that is
// never propagated further is indistinguishable from one pruned one
// round later, since nothing downstream has consumed it yet), and far
// less invasive than threading the negative-scenario set through every
// merge call in pkg/tnetwork/pkg/labelmap.
func (c *Checker) pruneNegativeScenarios() {
	for _, n := range c.Graph.Nodes() {
		for _, e := range c.Graph.OutEdges(n.Name) {
			for _, al := range e.Values.ALabels() {
				m := e.Values.MapFor(al)
				for _, entry := range m.Entries() {
					if c.negScen.IsBad(entry.Label) {
						m.Remove(entry.Label)
					}
				}
			}
		}
	}
}

// collectNegativeSelfLoops records every self-loop entry with a negative
// value under a consistent label into the negative-scenario tracker,
// removing it from the graph. Reports the node at which the empty label
// was recorded (network is not AC), if any.
func (c *Checker) collectNegativeSelfLoops() string {
	for _, n := range c.Graph.Nodes() {
		e, ok := c.Graph.Find(n.Name, n.Name)
		if !ok {
			continue
		}
		for _, al := range e.Values.ALabels() {
			m := e.Values.MapFor(al)
			for _, entry := range m.Entries() {
				if entry.Value >= 0 || entry.Label.ContainsUnknown() {
					continue
				}
				m.Remove(entry.Label)
				if c.negScen.Record(entry.Label) {
					return n.Name
				}
			}
		}
	}
	return ""
}

// Check runs the CSTNU fixed point plus the oracle rule to a mutual
// fixed point, pruning negative scenarios each round, with the iteration
// bound of spec §4.7 (identical structure to §4.4, scaled by |K|²).
func (c *Checker) Check(ctx context.Context) (*Result, error) {
	limit := c.inner.Config.SemanticsConfig.MaxCycles
	if limit <= 0 {
		limit = c.maxCycles()
	}
	cycles := 0

	for {
		select {
		case <-ctx.Done():
			return &Result{Finished: false, Cycles: cycles}, ctx.Err()
		default:
		}
		cycles++
		if cycles > limit {
			return &Result{Finished: false, Cycles: cycles}, nil
		}

		if _, err := c.inner.Check(ctx); err != nil {
			return &Result{Finished: false, Cycles: cycles}, err
		}

		anyOracleChange := false
		for _, link := range c.Graph.ContingentLinks() {
			changed, err := c.applyOracleRule(link)
			if err != nil {
				return nil, err
			}
			if changed {
				anyOracleChange = true
			}
		}

		if loc := c.collectNegativeSelfLoops(); loc != "" {
			return &Result{AgilelyControllable: false, Finished: true, Cycles: cycles, NegativeScenarioAt: loc}, nil
		}
		c.pruneNegativeScenarios()

		if !anyOracleChange {
			break
		}
	}

	ac, err := Verify(c.Graph)
	if err != nil {
		return nil, err
	}
	return &Result{AgilelyControllable: ac, Finished: true, Cycles: cycles}, nil
}

func (c *Checker) maxCycles() int {
	nodes := c.Graph.Nodes()
	n := len(nodes)
	p := 0
	for _, nd := range nodes {
		if nd.IsObserver {
			p++
		}
	}
	k := len(c.Graph.ContingentLinks())
	if p == 0 {
		p = 1
	}
	if k == 0 {
		k = 1
	}
	horizon := 0
	for _, nd := range nodes {
		for _, e := range c.Graph.OutEdges(nd.Name) {
			for _, al := range e.Values.ALabels() {
				for _, entry := range e.Values.MapFor(al).Entries() {
					v := entry.Value
					if overflow.IsPosInf(v) || overflow.IsNegInf(v) {
						continue
					}
					if v < 0 {
						v = -v
					}
					if v > horizon {
						horizon = v
					}
				}
			}
		}
	}
	if horizon == 0 {
		horizon = 1
	}
	return horizon * n * n * p * p * p * k * k
}

// Verify implements the OSTNU "all-max projection" post-check gate (spec
// §4.7/§9): treated strictly as a post-check, not folded into the main
// fixed point. It builds the all-max projection — every contingent link
// fixed at its maximum duration y — as a plain requirement-only graph
// and runs pkg/cstn's checker over it; the projection is consistent iff
// that plain network is DC.
func Verify(g *tnetwork.Graph) (bool, error) {
	projection := tnetwork.NewGraph(g.Z)
	for _, n := range g.Nodes() {
		if n.Name == g.Z {
			continue
		}
		if err := projection.AddNode(tnetwork.NewNode(n.Name)); err != nil {
			return false, err
		}
	}
	for _, n := range g.Nodes() {
		for _, e := range g.OutEdges(n.Name) {
			pe, err := projection.AddEdge(tnetwork.NewEdge(e.From, e.To, tnetwork.Requirement))
			if err != nil {
				return false, err
			}
			if v, ok := e.Values.Ordinary().Get(label.Empty); ok {
				pe.MergeOrdinary(label.Empty, v)
			}
		}
	}
	for _, link := range g.ContingentLinks() {
		if _, err := projection.AddEdge(tnetwork.NewEdge(link.Activation, link.Contingent, tnetwork.Requirement)); err == nil {
			fwd, _ := projection.Find(link.Activation, link.Contingent)
			fwd.MergeOrdinary(label.Empty, link.Y)
		}
		if _, err := projection.AddEdge(tnetwork.NewEdge(link.Contingent, link.Activation, tnetwork.Requirement)); err == nil {
			back, _ := projection.Find(link.Contingent, link.Activation)
			back.MergeOrdinary(label.Empty, -link.Y)
		}
	}

	checker := cstn.NewChecker(projection, cstn.DefaultSemanticsConfig())
	res, err := checker.Check(context.Background())
	if err != nil {
		return false, err
	}
	return res.Consistent, nil
}
