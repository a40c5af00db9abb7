package cstn

import (
	"context"
	"testing"

	"github.com/gitrdm/cstnu/pkg/label"
	"github.com/gitrdm/cstnu/pkg/overflow"
	"github.com/gitrdm/cstnu/pkg/tnetwork"
)

// buildZX is spec §8 scenario 1/2: nodes {Z, X}, edge Z->X (⊡, w1), edge
// X->Z (⊡, w2).
func buildZX(t *testing.T, w1, w2 int) *tnetwork.Graph {
	t.Helper()
	g := tnetwork.NewGraph("Z")
	if err := g.AddNode(tnetwork.NewNode("X")); err != nil {
		t.Fatal(err)
	}
	zx, err := g.AddEdge(tnetwork.NewEdge("Z", "X", tnetwork.Requirement))
	if err != nil {
		t.Fatal(err)
	}
	zx.MergeOrdinary(label.Empty, w1)
	xz, err := g.AddEdge(tnetwork.NewEdge("X", "Z", tnetwork.Requirement))
	if err != nil {
		t.Fatal(err)
	}
	xz.MergeOrdinary(label.Empty, w2)
	return g
}

func TestScenario1TrivialDC(t *testing.T) {
	g := buildZX(t, 5, -3)
	res, err := NewChecker(g, DefaultSemanticsConfig()).Check(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !res.Consistent {
		t.Errorf("expected DC, got not-DC at %q", res.NegativeLoopAt)
	}
	if !res.Finished {
		t.Error("expected fixed point to finish")
	}
}

func TestScenario2TrivialNegativeLoop(t *testing.T) {
	g := buildZX(t, 5, -7)
	res, err := NewChecker(g, DefaultSemanticsConfig()).Check(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Consistent {
		t.Fatal("expected not-DC due to negative loop")
	}
	if res.NegativeLoopAt != "Z" && res.NegativeLoopAt != "X" {
		t.Errorf("NegativeLoopAt = %q, want Z or X", res.NegativeLoopAt)
	}
}

func TestScenario3QLoopWithUnknownLiteral(t *testing.T) {
	g := tnetwork.NewGraph("Z")
	p := tnetwork.NewNode("P")
	p.IsObserver = true
	p.ObservedProposition = 'a'
	if err := g.AddNode(p); err != nil {
		t.Fatal(err)
	}
	if err := g.AddNode(tnetwork.NewNode("X")); err != nil {
		t.Fatal(err)
	}

	a := label.MustLiteral('a', label.Straight)
	notA := label.MustLiteral('a', label.Negated)

	px, err := g.AddEdge(tnetwork.NewEdge("P", "X", tnetwork.Requirement))
	if err != nil {
		t.Fatal(err)
	}
	px.MergeOrdinary(a, -5)
	xp, err := g.AddEdge(tnetwork.NewEdge("X", "P", tnetwork.Requirement))
	if err != nil {
		t.Fatal(err)
	}
	xp.MergeOrdinary(notA, -5)

	checker := NewChecker(g, DefaultSemanticsConfig())
	res, err := checker.Check(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !res.Consistent {
		t.Fatalf("expected DC under q-loop semantics, got not-DC at %q", res.NegativeLoopAt)
	}

	loop, ok := g.Find("P", "P")
	if !ok {
		t.Fatal("expected a P->P self-loop edge to have been created for the q-loop potential")
	}
	foundUnknownNegInf := false
	for _, entry := range loop.Values.Ordinary().Entries() {
		if entry.Label.ContainsUnknown() && overflow.IsNegInf(entry.Value) {
			foundUnknownNegInf = true
		}
	}
	if !foundUnknownNegInf {
		t.Errorf("expected a (¿a, -inf) entry on the self-loop, got %v", loop.Values.Ordinary().Entries())
	}
}

func TestApplyLPDirectSelfLoopDefiniteNegative(t *testing.T) {
	g := tnetwork.NewGraph("Z")
	g.AddNode(tnetwork.NewNode("A"))
	g.AddNode(tnetwork.NewNode("B"))
	ab, _ := g.AddEdge(tnetwork.NewEdge("A", "B", tnetwork.Requirement))
	ab.MergeOrdinary(label.Empty, 1)
	ba, _ := g.AddEdge(tnetwork.NewEdge("B", "A", tnetwork.Requirement))
	ba.MergeOrdinary(label.Empty, -5)

	c := NewChecker(g, DefaultSemanticsConfig())
	_, negLoop, err := c.applyLP(ab, ba)
	if err != nil {
		t.Fatal(err)
	}
	if negLoop != "A" {
		t.Errorf("negLoop = %q, want A", negLoop)
	}
}

func TestRuleR0StripsObservedLiteral(t *testing.T) {
	g := tnetwork.NewGraph("Z")
	p := tnetwork.NewNode("P")
	p.IsObserver = true
	p.ObservedProposition = 'a'
	g.AddNode(p)
	g.AddNode(tnetwork.NewNode("X"))

	e, _ := g.AddEdge(tnetwork.NewEdge("P", "X", tnetwork.Requirement))
	e.MergeOrdinary(label.MustLiteral('a', label.Straight), -3)

	c := NewChecker(g, DefaultSemanticsConfig())
	if !c.ruleR0(e) {
		t.Fatal("expected R0 to fire")
	}
	if v, ok := e.Values.Ordinary().Get(label.Empty); !ok || v != -3 {
		t.Errorf("expected (⊡,-3) after R0, got %d,%v; entries=%v", v, ok, e.Values.Ordinary().Entries())
	}
}

func TestCheckIdempotent(t *testing.T) {
	g := buildZX(t, 5, -3)
	if _, err := NewChecker(g, DefaultSemanticsConfig()).Check(context.Background()); err != nil {
		t.Fatal(err)
	}
	nodesAfterFirst := len(g.Nodes())
	zxEntriesAfterFirst := len((func() *tnetwork.Edge { e, _ := g.Find("Z", "X"); return e })().Values.Ordinary().Entries())

	res2, err := NewChecker(g, DefaultSemanticsConfig()).Check(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !res2.Consistent {
		t.Fatal("second run should still be DC")
	}
	if len(g.Nodes()) != nodesAfterFirst {
		t.Errorf("second run changed node count: %d vs %d", len(g.Nodes()), nodesAfterFirst)
	}
	zxEntriesAfterSecond := len((func() *tnetwork.Edge { e, _ := g.Find("Z", "X"); return e })().Values.Ordinary().Entries())
	if zxEntriesAfterSecond != zxEntriesAfterFirst {
		t.Errorf("second run changed Z->X entry count: %d vs %d", zxEntriesAfterSecond, zxEntriesAfterFirst)
	}
}
