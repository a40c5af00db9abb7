// Package tnetwork implements the shared temporal-network data model of
// spec §3: Node, Edge, Graph, and contingent links, reused by every
// propagator in pkg/cstn, pkg/cstnu, pkg/ostnu, pkg/potential and
// pkg/rte.
//
// A Graph is "exclusively owned by one propagator at a time" (spec §3):
// like the teacher's SolverState, it is a plain mutable value passed by
// pointer into exactly one Check/Propagate call at a time — there is no
// internal locking here, callers (internal/batchcheck in particular)
// are responsible for giving each goroutine its own Graph.
package tnetwork

import (
	"fmt"

	"github.com/gitrdm/cstnu/pkg/alabel"
	"github.com/gitrdm/cstnu/pkg/label"
	"github.com/gitrdm/cstnu/pkg/labelmap"
)

// ConstraintType classifies an edge (spec §3).
type ConstraintType int

const (
	Requirement ConstraintType = iota
	Derived
	Contingent
	Internal
)

func (c ConstraintType) String() string {
	switch c {
	case Requirement:
		return "requirement"
	case Derived:
		return "derived"
	case Contingent:
		return "contingent"
	case Internal:
		return "internal"
	default:
		return "unknown"
	}
}

// LowerCaseValue is an edge's optional lower-case triple (spec §3):
// (A-label of the contingent child, label, non-negative value).
type LowerCaseValue struct {
	Node  alabel.ALabel
	Label label.Label
	Value int
}

// WaitValue is an edge's optional wait entry (spec §3): an upper-case
// entry denoting "wait for contingent C by amount -Value" (Value <= 0).
type WaitValue struct {
	Node  alabel.ALabel
	Label label.Label
	Value int
}

// Node is a temporal-network time-point (spec §3).
type Node struct {
	Name string

	// IsObserver/ObservedProposition: set together when this node
	// observes a proposition.
	IsObserver         bool
	ObservedProposition byte

	// IsContingent/ContingentLetter: set together when this node is the
	// contingent endpoint of a contingent link; ContingentLetter is its
	// single-letter A-label.
	IsContingent     bool
	ContingentLetter byte

	// IsOracle/OracleForContingent: set together when this node is an
	// oracle O_C (spec §4.7) observing contingent node OracleForContingent's
	// outcome. Kept as an explicit field rather than reusing
	// IsObserver/ObservedProposition: a contingent node's A-label letter
	// lives in the uppercase alabel.ALabel namespace, disjoint from the
	// lowercase proposition namespace label.Label encodes, so "observing
	// C's outcome" cannot be expressed as an ordinary observed
	// proposition in this representation.
	IsOracle            bool
	OracleForContingent string

	Label label.Label // node label, default empty (CSTN well-definedness)

	X, Y float64 // opaque coordinates for spec §6 writers

	Potential      *labelmap.LabeledIntMap // labeled potential (pkg/potential)
	UpperPotential *labelmap.LabeledIntMap

	updateCount map[label.Label]int // per-label potential update count
}

// NewNode creates a bare node named name.
func NewNode(name string) *Node {
	return &Node{
		Name:           name,
		Potential:      labelmap.New(),
		UpperPotential: labelmap.New(),
		updateCount:    make(map[label.Label]int),
	}
}

// UpdateCount returns the number of times Potential has been updated
// under l, used by pkg/potential's negative-cycle detector (spec §4.5).
func (n *Node) UpdateCount(l label.Label) int {
	return n.updateCount[l]
}

// IncrementUpdateCount records one more update to Potential under l and
// returns the new count.
func (n *Node) IncrementUpdateCount(l label.Label) int {
	n.updateCount[l]++
	return n.updateCount[l]
}

// Edge is a directed temporal constraint (spec §3).
type Edge struct {
	From, To string
	Type     ConstraintType
	Values   *labelmap.ALabelMap // labeled and upper-case labeled values

	LowerCase *LowerCaseValue
	Wait      *WaitValue
}

// NewEdge creates a bare edge.
func NewEdge(from, to string, t ConstraintType) *Edge {
	return &Edge{From: from, To: to, Type: t, Values: labelmap.NewALabelMap()}
}

// MergeOrdinary inserts an ordinary (A-label ∅) labeled value, spec
// §4.2/§4.3's `merge`.
func (e *Edge) MergeOrdinary(l label.Label, v int) bool {
	return e.Values.Merge(alabel.Empty, l, v)
}

// MergeUpperCase inserts an upper-case labeled value under A-label a.
func (e *Edge) MergeUpperCase(a alabel.ALabel, l label.Label, v int) bool {
	return e.Values.Merge(a, l, v)
}

// ContingentLink is the triple (activation, contingent, [x,y]) of spec
// §3, with 0 < x <= y.
type ContingentLink struct {
	Activation string
	Contingent string
	X, Y       int
}

// Graph owns nodes and edges for one temporal network (spec §3).
type Graph struct {
	Z string // name of the zero time-point

	nodes     map[string]*Node
	nodeOrder []string

	out map[string]map[string]*Edge // From -> To -> Edge
	in  map[string]map[string]*Edge // To -> From -> Edge

	observers   map[byte]string // proposition -> observer node name
	contingents map[string]*ContingentLink // contingent node name -> link
}

// NewGraph creates an empty graph whose zero time-point is named z. Z is
// registered as an ordinary node automatically.
func NewGraph(z string) *Graph {
	g := &Graph{
		Z:           z,
		nodes:       make(map[string]*Node),
		out:         make(map[string]map[string]*Edge),
		in:          make(map[string]map[string]*Edge),
		observers:   make(map[byte]string),
		contingents: make(map[string]*ContingentLink),
	}
	g.AddNode(NewNode(z))
	return g
}

// AddNode registers n, indexing it as an observer/contingent node if its
// fields say so. Returns an error if a node of the same name already
// exists, or if it would be a second observer of the same proposition
// (spec §3: "at most one observer per proposition").
func (g *Graph) AddNode(n *Node) error {
	if _, exists := g.nodes[n.Name]; exists {
		return fmt.Errorf("tnetwork: duplicate node %q", n.Name)
	}
	if n.IsObserver {
		if other, ok := g.observers[n.ObservedProposition]; ok {
			return fmt.Errorf("tnetwork: proposition %q already observed by %q", n.ObservedProposition, other)
		}
		g.observers[n.ObservedProposition] = n.Name
	}
	g.nodes[n.Name] = n
	g.nodeOrder = append(g.nodeOrder, n.Name)
	g.out[n.Name] = make(map[string]*Edge)
	g.in[n.Name] = make(map[string]*Edge)
	return nil
}

// RegisterObserver records that node is the observer of proposition,
// enforcing the "at most one observer per proposition" invariant (spec
// §3). Exposed for callers (e.g. graphio.Read) that must set Z's
// observer status after NewGraph already created it as a bare node,
// bypassing AddNode's own registration.
func (g *Graph) RegisterObserver(node string, proposition byte) error {
	if other, ok := g.observers[proposition]; ok && other != node {
		return fmt.Errorf("tnetwork: proposition %q already observed by %q", proposition, other)
	}
	g.observers[proposition] = node
	return nil
}

// Node returns the node named name.
func (g *Graph) Node(name string) (*Node, bool) {
	n, ok := g.nodes[name]
	return n, ok
}

// Nodes returns all nodes in insertion order.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, 0, len(g.nodeOrder))
	for _, name := range g.nodeOrder {
		out = append(out, g.nodes[name])
	}
	return out
}

// Find returns the edge u->v, if present (spec §3: `find(u,v)`).
func (g *Graph) Find(u, v string) (*Edge, bool) {
	m, ok := g.out[u]
	if !ok {
		return nil, false
	}
	e, ok := m[v]
	return e, ok
}

// AddEdge registers e, or returns the existing edge between the same
// pair if one is already present (edges are never duplicated; callers
// that want to add values to an existing edge should mutate the
// returned edge in place).
func (g *Graph) AddEdge(e *Edge) (*Edge, error) {
	if _, ok := g.nodes[e.From]; !ok {
		return nil, fmt.Errorf("tnetwork: edge source %q not a node", e.From)
	}
	if _, ok := g.nodes[e.To]; !ok {
		return nil, fmt.Errorf("tnetwork: edge destination %q not a node", e.To)
	}
	if existing, ok := g.out[e.From][e.To]; ok {
		return existing, nil
	}
	g.out[e.From][e.To] = e
	g.in[e.To][e.From] = e
	return e, nil
}

// RemoveEdge deletes the edge u->v. Spec §3: edges are never removed
// during ordinary propagation, only "during clean-up and during
// qLoopFinder" (pkg/potential's temporary completion pass). Reports
// whether an edge was present.
func (g *Graph) RemoveEdge(u, v string) bool {
	if _, ok := g.out[u][v]; !ok {
		return false
	}
	delete(g.out[u], v)
	delete(g.in[v], u)
	return true
}

// OutEdges returns the edges leaving u (spec §3: `out_edges(u)`).
func (g *Graph) OutEdges(u string) []*Edge {
	m := g.out[u]
	out := make([]*Edge, 0, len(m))
	for _, e := range m {
		out = append(out, e)
	}
	return out
}

// InEdges returns the edges entering u (spec §3: `in_edges(u)`).
func (g *Graph) InEdges(u string) []*Edge {
	m := g.in[u]
	out := make([]*Edge, 0, len(m))
	for _, e := range m {
		out = append(out, e)
	}
	return out
}

// OracleFor returns the name of the oracle node observing contingent's
// outcome, if any (spec §4.7).
func (g *Graph) OracleFor(contingent string) (string, bool) {
	for _, name := range g.nodeOrder {
		n := g.nodes[name]
		if n.IsOracle && n.OracleForContingent == contingent {
			return name, true
		}
	}
	return "", false
}

// Observer returns the name of the node observing proposition p, if any
// (spec §3: `observer(p)`).
func (g *Graph) Observer(p byte) (string, bool) {
	name, ok := g.observers[p]
	return name, ok
}

// AddContingentLink wires the two-edge representation of a contingent
// link (spec §3): activation->contingent carries a lower-case triple
// (c, ∅, x) and a positive ordinary value y; contingent->activation
// carries an upper-case triple (c, ∅, -y) and a negative ordinary value
// -x. Requires 0 < x <= y and that contingent has no activation node
// yet.
func (g *Graph) AddContingentLink(activation, contingent string, x, y int) error {
	if x <= 0 || x > y {
		return fmt.Errorf("tnetwork: contingent bounds must satisfy 0 < x <= y, got x=%d y=%d", x, y)
	}
	if _, exists := g.contingents[contingent]; exists {
		return fmt.Errorf("tnetwork: contingent node %q already has an activation node", contingent)
	}
	actNode, ok := g.nodes[activation]
	if !ok {
		return fmt.Errorf("tnetwork: activation node %q not found", activation)
	}
	conNode, ok := g.nodes[contingent]
	if !ok {
		return fmt.Errorf("tnetwork: contingent node %q not found", contingent)
	}
	if !conNode.IsContingent || conNode.ContingentLetter == 0 {
		return fmt.Errorf("tnetwork: node %q must carry a contingent A-label letter", contingent)
	}
	c := alabel.Single(conNode.ContingentLetter)
	_ = actNode

	fwd, err := g.AddEdge(NewEdge(activation, contingent, Contingent))
	if err != nil {
		return err
	}
	fwd.LowerCase = &LowerCaseValue{Node: c, Label: label.Empty, Value: x}
	fwd.MergeOrdinary(label.Empty, y)

	back, err := g.AddEdge(NewEdge(contingent, activation, Contingent))
	if err != nil {
		return err
	}
	back.Wait = &WaitValue{Node: c, Label: label.Empty, Value: -y}
	back.MergeUpperCase(c, label.Empty, -y)
	back.MergeOrdinary(label.Empty, -x)

	g.contingents[contingent] = &ContingentLink{Activation: activation, Contingent: contingent, X: x, Y: y}
	return nil
}

// ContingentLinks returns every registered contingent link.
func (g *Graph) ContingentLinks() []*ContingentLink {
	out := make([]*ContingentLink, 0, len(g.contingents))
	for _, l := range g.contingents {
		out = append(out, l)
	}
	return out
}

// ContingentLinkFor returns the contingent link for which contingent is
// the contingent node, if any.
func (g *Graph) ContingentLinkFor(contingent string) (*ContingentLink, bool) {
	l, ok := g.contingents[contingent]
	return l, ok
}
