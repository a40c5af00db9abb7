// Package cstnu layers the CSTNU contingent-link rules of spec §4.6 atop
// pkg/cstn's LP/R0/R3 engine: upper-case propagation (z!/LUC), lower-case
// cross-case propagation, letter removal (Lr), and negative-self-loop
// detection generalized to upper-case entries.
//
// Grounded on the same PropagationConstraint/ConstraintManager split the
// teacher uses for AllDifferent/Arithmetic/Inequality: CSTNU's rules are
// additional small, stateless functions consulted by a driver that reuses
// pkg/cstn's engine rather than a parallel class hierarchy for "CSTNU vs
// CSTN" (Design Note §9).
package cstnu

import (
	"context"

	"github.com/gitrdm/cstnu/pkg/alabel"
	"github.com/gitrdm/cstnu/pkg/cstn"
	"github.com/gitrdm/cstnu/pkg/label"
	"github.com/gitrdm/cstnu/pkg/overflow"
	"github.com/gitrdm/cstnu/pkg/tnetwork"
	"github.com/gitrdm/cstnu/pkg/worklist"
)

// Config selects the CSTN semantics to run underneath, plus the CSTNU-
// specific options of spec §4.6.
type Config struct {
	cstn.SemanticsConfig

	// ContingentAlsoAsOrdinary lets pkg/cstn's plain LP rule combine
	// across contingent edges as if they were ordinary requirement edges,
	// in addition to the dedicated lower-case/upper-case rules below
	// (spec §9: "some downstream rules rely on this duplication"). The
	// contingent bounds are stored as ordinary labeled values by
	// tnetwork.AddContingentLink whatever this flag says; when false, LP
	// skips contingent edges (see includeForLP). Default true.
	ContingentAlsoAsOrdinary bool
}

// DefaultConfig is IR semantics with contingentAlsoAsOrdinary enabled.
func DefaultConfig() Config {
	return Config{SemanticsConfig: cstn.DefaultSemanticsConfig(), ContingentAlsoAsOrdinary: true}
}

// Result is the outcome of a Check.
type Result struct {
	Consistent     bool
	Finished       bool
	Cycles         int
	NegativeLoopAt string
}

// Checker runs CSTNU propagation over a Graph (spec §4.6).
type Checker struct {
	Graph  *tnetwork.Graph
	Config Config

	inner *cstn.Checker
}

// NewChecker builds a Checker over g with the given configuration.
func NewChecker(g *tnetwork.Graph, cfg Config) *Checker {
	return &Checker{Graph: g, Config: cfg, inner: cstn.NewChecker(g, cfg.SemanticsConfig)}
}

func firstLetter(a alabel.ALabel) (byte, bool) {
	letters := a.Letters()
	if len(letters) == 0 {
		return 0, false
	}
	return letters[0], true
}

// includeForLP reports whether e should participate in pkg/cstn's plain
// LP combination: always, unless e is a Contingent edge and the caller
// disabled contingentAlsoAsOrdinary, in which case contingent bounds are
// only visible to the dedicated lower-case/upper-case rules below.
func (c *Checker) includeForLP(e *tnetwork.Edge) bool {
	return e.Type != tnetwork.Contingent || c.Config.ContingentAlsoAsOrdinary
}

// ruleLUC is upper-case propagation z!/LUC (spec §4.6): X->Y with (u, α)
// (an ordinary value) combined with Y->W with (v, ℵ, β) (any A-label)
// derives X->W with (u+v, ℵ, α∧β). Returns the modified X->W edge (nil if
// nothing changed) and a non-empty negative-loop node name if a definite
// (non-unknown) empty-A-label self-loop proved the network not DC.
func (c *Checker) ruleLUC(xy, yw *tnetwork.Edge) (*tnetwork.Edge, string) {
	if xy.To != yw.From {
		return nil, ""
	}
	X, W := xy.From, yw.To
	var modified *tnetwork.Edge

	for _, ae := range xy.Values.Ordinary().Entries() {
		for _, al := range yw.Values.ALabels() {
			if al.Size() > 1 && W != c.Graph.Z {
				continue
			}
			for _, be := range yw.Values.MapFor(al).Entries() {
				u, v := ae.Value, be.Value
				sum := overflow.Sum(u, v)
				gamma := label.ConjunctionExtended(ae.Label, be.Label)

				if X == W {
					if sum >= 0 {
						continue
					}
					loop, err := c.Graph.AddEdge(tnetwork.NewEdge(X, X, tnetwork.Derived))
					if err != nil {
						continue
					}
					if al.IsEmpty() && !gamma.ContainsUnknown() {
						return nil, X
					}
					loop.Values.Merge(al, gamma, sum)
					continue
				}

				xw, err := c.Graph.AddEdge(tnetwork.NewEdge(X, W, tnetwork.Derived))
				if err != nil {
					continue
				}
				if xw.Values.Merge(al, gamma, sum) {
					modified = xw
				}
			}
		}
	}
	return modified, ""
}

// ruleLowerCross is the lower-case/cross-case rule (spec §4.6): A->C
// carries a lower-case triple (c, α, u) with u > 0 (the contingent's
// minimum duration); C->X carries (v, ℵ, β) with v <= 0 and C not a
// member of ℵ. Derives A->X with (u+v, ℵ, α∧β), skipped when A=X and the
// sum is non-negative.
func (c *Checker) ruleLowerCross(ac, cx *tnetwork.Edge) *tnetwork.Edge {
	if ac.LowerCase == nil || ac.To != cx.From {
		return nil
	}
	cByte, ok := firstLetter(ac.LowerCase.Node)
	if !ok {
		return nil
	}
	A, X := ac.From, cx.To
	u, alpha := ac.LowerCase.Value, ac.LowerCase.Label
	var modified *tnetwork.Edge

	for _, al := range cx.Values.ALabels() {
		if al.Contains(cByte) {
			continue
		}
		for _, entry := range cx.Values.MapFor(al).Entries() {
			v := entry.Value
			if v > 0 {
				continue
			}
			sum := overflow.Sum(u, v)
			if A == X && sum >= 0 {
				continue
			}
			gamma := label.ConjunctionExtended(alpha, entry.Label)
			ax, err := c.Graph.AddEdge(tnetwork.NewEdge(A, X, tnetwork.Derived))
			if err != nil {
				continue
			}
			if ax.Values.Merge(al, gamma, sum) {
				modified = ax
			}
		}
	}
	return modified
}

// ruleLetterRemoval is Lr (spec §4.6): for X->A carrying upper-case
// (v, ℵ, β) with contingent letter C in ℵ, and the lower-case contingent
// A->C carrying (c, α, x), if β subsumes α then ℵ loses C and v becomes
// max(v, -x); if ℵ becomes empty the entry is promoted to an ordinary
// value (handled automatically by ALabelMap.Merge). Runs once over every
// contingent link and reports whether anything changed.
func (c *Checker) ruleLetterRemoval() bool {
	changed := false
	for _, link := range c.Graph.ContingentLinks() {
		ac, ok := c.Graph.Find(link.Activation, link.Contingent)
		if !ok || ac.LowerCase == nil {
			continue
		}
		cByte, ok := firstLetter(ac.LowerCase.Node)
		if !ok {
			continue
		}
		alpha, x := ac.LowerCase.Label, ac.LowerCase.Value

		for _, xa := range c.Graph.InEdges(link.Activation) {
			for _, al := range xa.Values.ALabels() {
				if !al.Contains(cByte) {
					continue
				}
				m := xa.Values.MapFor(al)
				for _, entry := range m.Entries() {
					if !entry.Label.Subsumes(alpha) {
						continue
					}
					newALabel := al.Without(cByte)
					newValue := entry.Value
					if -x > newValue {
						newValue = -x
					}
					if newALabel.Equal(al) && newValue == entry.Value {
						continue
					}
					m.Remove(entry.Label)
					if xa.Values.Merge(newALabel, entry.Label, newValue) {
						changed = true
					}
				}
			}
		}
	}
	return changed
}

// checkNegativeSelfLoops implements rule 4 of spec §4.6: a self-loop on
// any node with a consistent (non-unknown-labeled) value < 0, under any
// A-label, is fatal.
func (c *Checker) checkNegativeSelfLoops() (string, bool) {
	for _, n := range c.Graph.Nodes() {
		e, ok := c.Graph.Find(n.Name, n.Name)
		if !ok {
			continue
		}
		for _, al := range e.Values.ALabels() {
			for _, entry := range e.Values.MapFor(al).Entries() {
				if entry.Value < 0 && !entry.Label.ContainsUnknown() {
					return n.Name, true
				}
			}
		}
	}
	return "", false
}

// runLPRound drains the worklist, applying pkg/cstn's local
// simplifications and LP rule plus ruleLUC and ruleLowerCross on every
// popped edge's neighborhood. Returns whether the safety limit was
// exceeded, any negative-loop node found, or an error.
func (c *Checker) runLPRound(ctx context.Context, limit int, cycles *int) (string, error) {
	w := worklist.New()
	for _, n := range c.Graph.Nodes() {
		w.PushAll(c.Graph.OutEdges(n.Name))
	}

	for !w.Empty() {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}
		*cycles++
		if *cycles > limit {
			return "", errMaxCycles
		}

		e, _ := w.Pop()
		if c.inner.ApplyLocalSimplifications(e) {
			w.Push(e)
		}

		for _, bc := range c.Graph.OutEdges(e.To) {
			if c.includeForLP(e) && c.includeForLP(bc) {
				ac, negLoop, err := c.inner.ApplyLP(e, bc)
				if err != nil {
					return "", err
				}
				if negLoop != "" {
					return negLoop, nil
				}
				if ac != nil {
					w.Push(ac)
				}
			}
			if xw, negLoop := c.ruleLUC(e, bc); negLoop != "" {
				return negLoop, nil
			} else if xw != nil {
				w.Push(xw)
			}
			if ax := c.ruleLowerCross(e, bc); ax != nil {
				w.Push(ax)
			}
		}
		for _, ca := range c.Graph.InEdges(e.From) {
			if c.includeForLP(ca) && c.includeForLP(e) {
				cb, negLoop, err := c.inner.ApplyLP(ca, e)
				if err != nil {
					return "", err
				}
				if negLoop != "" {
					return negLoop, nil
				}
				if cb != nil {
					w.Push(cb)
				}
			}
			if xw, negLoop := c.ruleLUC(ca, e); negLoop != "" {
				return negLoop, nil
			} else if xw != nil {
				w.Push(xw)
			}
			if ax := c.ruleLowerCross(ca, e); ax != nil {
				w.Push(ax)
			}
		}
	}
	return "", nil
}

type maxCyclesErr struct{}

func (maxCyclesErr) Error() string { return "cstnu: max_cycles safety limit exceeded" }

var errMaxCycles = maxCyclesErr{}

// Check runs LP/R0/R3/LUC/lower-cross to a mutual fixed point, then
// letter removal, alternating the two phases until neither changes
// anything, then checks for a fatal negative self-loop (spec §4.6).
func (c *Checker) Check(ctx context.Context) (*Result, error) {
	limit := c.inner.MaxCycles()
	cycles := 0

	for {
		negLoop, err := c.runLPRound(ctx, limit, &cycles)
		if err == errMaxCycles {
			return &Result{Finished: false, Cycles: cycles}, nil
		}
		if err != nil {
			return &Result{Finished: false, Cycles: cycles}, err
		}
		if negLoop != "" {
			return &Result{Consistent: false, Finished: true, Cycles: cycles, NegativeLoopAt: negLoop}, nil
		}

		if !c.ruleLetterRemoval() {
			break
		}
		cycles++
		if cycles > limit {
			return &Result{Finished: false, Cycles: cycles}, nil
		}
	}

	if loc, bad := c.checkNegativeSelfLoops(); bad {
		return &Result{Consistent: false, Finished: true, Cycles: cycles, NegativeLoopAt: loc}, nil
	}
	return &Result{Consistent: true, Finished: true, Cycles: cycles}, nil
}
