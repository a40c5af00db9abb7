package graphio

import (
	"bytes"
	"strings"
	"testing"

	"github.com/gitrdm/cstnu/pkg/label"
	"github.com/gitrdm/cstnu/pkg/tnetwork"
)

func buildSample(t *testing.T) *tnetwork.Graph {
	t.Helper()
	g := tnetwork.NewGraph("Z")
	p := tnetwork.NewNode("P")
	p.IsObserver = true
	p.ObservedProposition = 'p'
	if err := g.AddNode(p); err != nil {
		t.Fatal(err)
	}
	if err := g.AddNode(tnetwork.NewNode("X")); err != nil {
		t.Fatal(err)
	}
	zx, err := g.AddEdge(tnetwork.NewEdge("Z", "X", tnetwork.Requirement))
	if err != nil {
		t.Fatal(err)
	}
	zx.MergeOrdinary(label.Empty, 3)
	straight := label.MustLiteral('p', label.Straight)
	zx.MergeOrdinary(straight, 5)

	c := tnetwork.NewNode("C")
	c.IsContingent = true
	c.ContingentLetter = 'C'
	if err := g.AddNode(c); err != nil {
		t.Fatal(err)
	}
	if err := g.AddContingentLink("X", "C", 1, 4); err != nil {
		t.Fatal(err)
	}
	return g
}

func TestWriteReadRoundTrip(t *testing.T) {
	g := buildSample(t)

	var buf bytes.Buffer
	if err := Write(&buf, g); err != nil {
		t.Fatal(err)
	}

	got, err := Read(&buf)
	if err != nil {
		t.Fatalf("Read: %v\ninput:\n%s", err, buf.String())
	}

	if got.Z != g.Z {
		t.Errorf("Z = %q, want %q", got.Z, g.Z)
	}
	for _, name := range []string{"Z", "P", "X", "C"} {
		if _, ok := got.Node(name); !ok {
			t.Errorf("missing node %q after round-trip", name)
		}
	}

	zx, ok := got.Find("Z", "X")
	if !ok {
		t.Fatal("missing edge Z->X after round-trip")
	}
	if v, ok := zx.Values.Ordinary().Get(label.Empty); !ok || v != 3 {
		t.Errorf("Z->X ordinary value = %d, %v, want 3, true", v, ok)
	}
	straight := label.MustLiteral('p', label.Straight)
	if v, ok := zx.Values.Ordinary().Get(straight); !ok || v != 5 {
		t.Errorf("Z->X labeled value under p = %d, %v, want 5, true", v, ok)
	}

	links := got.ContingentLinks()
	if len(links) != 1 || links[0].Activation != "X" || links[0].Contingent != "C" {
		t.Errorf("contingent links after round-trip = %+v, want one (X, C, [1,4])", links)
	}
}

func TestReadRejectsDuplicateNode(t *testing.T) {
	doc := `<graph z="Z"><node name="A"/><node name="A"/></graph>`
	if _, err := Read(strings.NewReader(doc)); err == nil {
		t.Error("expected an error for a duplicate node name")
	}
}

func TestReadRejectsMissingZ(t *testing.T) {
	doc := `<graph><node name="A"/></graph>`
	if _, err := Read(strings.NewReader(doc)); err == nil {
		t.Error("expected an error for a graph with no z attribute")
	}
}

func TestReadFixtureBuildsContingentLink(t *testing.T) {
	yamlDoc := `
z: Z
nodes:
  - name: A
  - name: C
    contingentLetter: C
edges:
  - from: Z
    to: A
    value: 2
  - from: A
    to: Z
    value: -2
contingentLinks:
  - activation: A
    contingent: C
    x: 1
    y: 3
`
	g, err := ReadFixture(strings.NewReader(yamlDoc))
	if err != nil {
		t.Fatal(err)
	}
	links := g.ContingentLinks()
	if len(links) != 1 || links[0].X != 1 || links[0].Y != 3 {
		t.Errorf("contingent links = %+v, want one (A, C, [1,3])", links)
	}
	za, ok := g.Find("Z", "A")
	if !ok {
		t.Fatal("missing edge Z->A")
	}
	if v, ok := za.Values.Ordinary().Get(label.Empty); !ok || v != 2 {
		t.Errorf("Z->A value = %d, %v, want 2, true", v, ok)
	}
}
