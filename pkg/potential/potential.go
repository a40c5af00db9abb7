// Package potential implements the HP20 single-sink Bellman-Ford-style
// potential solver of spec §4.5: an alternative to the rule-based fixed
// point for CSTN under IR semantics with no node labels.
//
// Nodes are relaxed in plain FIFO order (nodeQueue, not pkg/pqueue),
// generalizing the teacher's interval_arithmetic.go bounds-propagation
// style (cheap relaxations iterated to a fixed point) to a single-sink
// Bellman-Ford pass over labeled potentials.
package potential

import (
	"context"

	"github.com/gitrdm/cstnu/pkg/label"
	"github.com/gitrdm/cstnu/pkg/labelmap"
	"github.com/gitrdm/cstnu/pkg/overflow"
	"github.com/gitrdm/cstnu/pkg/tnetwork"
)

// Result is the outcome of Solve.
type Result struct {
	Consistent bool
}

// Solver runs the HP20 potential algorithm over a Graph.
type Solver struct {
	Graph *tnetwork.Graph
}

// NewSolver builds a Solver over g.
func NewSolver(g *tnetwork.Graph) *Solver {
	return &Solver{Graph: g}
}

func (s *Solver) numNodes() int {
	return len(s.Graph.Nodes())
}

// nodeQueue is a FIFO queue of node names deduplicated by membership,
// matching the plain (non-priority) queue spec §4.5's BFCT main loop
// describes ("Enqueue Z. While the queue is non-empty: pop A...").
type nodeQueue struct {
	items  []string
	queued map[string]bool
}

func newNodeQueue() *nodeQueue {
	return &nodeQueue{queued: make(map[string]bool)}
}

func (q *nodeQueue) push(name string) {
	if q.queued[name] {
		return
	}
	q.queued[name] = true
	q.items = append(q.items, name)
}

func (q *nodeQueue) pop() (string, bool) {
	if len(q.items) == 0 {
		return "", false
	}
	name := q.items[0]
	q.items = q.items[1:]
	delete(q.queued, name)
	return name, true
}

func (q *nodeQueue) empty() bool { return len(q.items) == 0 }

// QLoopFinder completes the graph with temporary derived edges for
// |V| rounds, applying LP only, to discover q-loops (spec §4.5 step 2):
// a self-loop with γ containing unknown records (γ, -inf) directly in
// the looping node's potential map. Edges created for this pass are
// removed afterward. Exported so its discovered potentials (spec §8
// scenario 3) can be inspected directly, independent of Solve's later
// full-potential reset.
func (s *Solver) QLoopFinder() {
	g := s.Graph
	created := make(map[[2]string]bool)
	rounds := s.numNodes()
	if rounds == 0 {
		rounds = 1
	}
	for round := 0; round < rounds; round++ {
		changed := false
		for _, n := range g.Nodes() {
			for _, ab := range g.OutEdges(n.Name) {
				for _, bc := range g.OutEdges(ab.To) {
					A, C := ab.From, bc.To
					for _, ae := range ab.Values.Ordinary().Entries() {
						for _, be := range bc.Values.Ordinary().Entries() {
							sum := overflow.Sum(ae.Value, be.Value)
							if sum >= 0 {
								continue
							}
							gamma := label.ConjunctionExtended(ae.Label, be.Label)
							if A == C {
								if !gamma.ContainsUnknown() {
									continue
								}
								node, _ := g.Node(A)
								if node.Potential.Put(gamma, overflow.NegInf) {
									changed = true
								}
								continue
							}
							_, existed := g.Find(A, C)
							ac, _ := g.AddEdge(tnetwork.NewEdge(A, C, tnetwork.Derived))
							if !existed {
								created[[2]string{A, C}] = true
							}
							if ac.MergeOrdinary(gamma, sum) {
								changed = true
							}
						}
					}
				}
			}
		}
		if !changed {
			break
		}
	}
	for k := range created {
		g.RemoveEdge(k[0], k[1])
	}
}

// updatePotential merges (l, v) into node.Potential, tracking the
// per-label update counter for negative-cycle detection (spec §4.5): if
// the counter for (node, l) exceeds |V|, the stored value is forced to
// -inf. Returns whether the node's potential map actually changed.
func (s *Solver) updatePotential(node *tnetwork.Node, l label.Label, v int) bool {
	if node.IncrementUpdateCount(l) > s.numNodes() {
		v = overflow.NegInf
	}
	return node.Potential.Put(l, v)
}

// bfct runs the single-sink Bellman-Ford main loop (spec §4.5) to a
// fixed point, seeding the queue with the given node names (just Z at
// the first call, every node on Solve's re-run).
func (s *Solver) bfct(seed []string) map[byte]bool {
	g := s.Graph
	q := newNodeQueue()
	for _, name := range seed {
		q.push(name)
	}
	touchedObserverProps := make(map[byte]bool)

	for !q.empty() {
		name, _ := q.pop()
		node, ok := g.Node(name)
		if !ok {
			continue
		}
		for _, in := range g.InEdges(name) {
			B := in.From
			bNode, ok := g.Node(B)
			if !ok {
				continue
			}
			for _, entry := range in.Values.Ordinary().Entries() {
				v := entry.Value
				beta := entry.Label
				for _, pot := range node.Potential.Entries() {
					alpha, u := pot.Label, pot.Value
					w := overflow.Sum(u, v)
					if w >= 0 {
						continue
					}
					if overflow.IsNegInf(w) && v > 0 {
						continue
					}
					var gamma label.Label
					if v >= 0 {
						g2, ok := label.Conjunction(alpha, beta)
						if !ok {
							continue
						}
						gamma = g2
					} else {
						gamma = label.ConjunctionExtended(alpha, beta)
					}
					if s.updatePotential(bNode, gamma, w) {
						q.push(B)
						for _, p := range gamma.GetPropositions() {
							touchedObserverProps[p] = true
						}
					}
				}
			}
		}
	}
	return touchedObserverProps
}

// potentialR3 re-derives potentials across observation nodes (spec
// §4.5): for every observation node Obs with potential (α, u) and every
// node X with potential (βp, v) where p = observed(Obs), derives
// (α ⋆ β, max(u, v)) on X. Observation nodes are aligned among
// themselves to a fixed point first, then ordinary nodes are updated.
func (s *Solver) potentialR3() bool {
	g := s.Graph
	observers := make([]*tnetwork.Node, 0)
	var others []*tnetwork.Node
	for _, n := range g.Nodes() {
		if n.IsObserver {
			observers = append(observers, n)
		} else {
			others = append(others, n)
		}
	}

	changed := false
	applyOnce := func(targets []*tnetwork.Node) bool {
		localChanged := false
		for _, obs := range observers {
			p := obs.ObservedProposition
			for _, opEntry := range obs.Potential.Entries() {
				alpha, u := opEntry.Label, opEntry.Value
				for _, x := range targets {
					if x == obs {
						continue
					}
					for _, xEntry := range x.Potential.Entries() {
						if !xEntry.Label.HasProposition(p) {
							continue
						}
						beta, v := xEntry.Label, xEntry.Value
						gamma := label.ConjunctionExtended(alpha, beta)
						newVal := overflow.Max(u, v)
						if s.updatePotential(x, gamma, newVal) {
							localChanged = true
						}
					}
				}
			}
		}
		return localChanged
	}

	for applyOnce(observers) {
		changed = true
	}
	for applyOnce(others) {
		changed = true
	}
	return changed
}

// Solve runs the full HP20 algorithm (spec §4.5) and reports DC/not-DC.
func (s *Solver) Solve(ctx context.Context) (*Result, error) {
	g := s.Graph
	s.QLoopFinder()

	for _, n := range g.Nodes() {
		n.Potential = labelmap.New()
	}
	z, _ := g.Node(g.Z)
	z.Potential.Put(label.Empty, 0)

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		s.bfct([]string{g.Z})
		if !s.potentialR3() {
			break
		}
		// potentialR3 changed potentials; re-run BFCT seeded from every
		// node so newly derived bounds propagate further.
		seed := make([]string, 0, len(g.Nodes()))
		for _, n := range g.Nodes() {
			seed = append(seed, n.Name)
		}
		s.bfct(seed)
	}

	return &Result{Consistent: s.isConsistent()}, nil
}

func (s *Solver) isConsistent() bool {
	g := s.Graph
	for _, n := range g.Nodes() {
		for _, entry := range n.Potential.Entries() {
			if entry.Label.ContainsUnknown() {
				continue
			}
			if overflow.IsNegInf(entry.Value) {
				return false
			}
			if n.Name == g.Z && entry.Value < 0 {
				return false
			}
		}
	}
	return true
}
