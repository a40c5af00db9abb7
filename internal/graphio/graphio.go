// Package graphio reads and writes the GraphML-subset textual format of
// spec §6: node elements carrying name/x/y/Label/Obs/ALabel/Potential,
// edge elements carrying source/target/Type/LabeledValues/
// LowerCaseLabeledValues/UpperCaseLabeledValues.
//
// Nothing in the teacher carries a serialization layer (its solver state
// lives and dies in one process); this format, and the use of
// encoding/xml plus gopkg.in/yaml.v3 for the companion fixture format,
// is grounded on how the rest of the example pack reaches for yaml.v3
// for structured test/config fixtures.
package graphio

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/gitrdm/cstnu/pkg/alabel"
	"github.com/gitrdm/cstnu/pkg/label"
	"github.com/gitrdm/cstnu/pkg/labelmap"
	"github.com/gitrdm/cstnu/pkg/tnetwork"
	"gopkg.in/yaml.v3"
)

type xmlGraph struct {
	XMLName xml.Name  `xml:"graph"`
	Z       string    `xml:"z,attr"`
	Nodes   []xmlNode `xml:"node"`
	Edges   []xmlEdge `xml:"edge"`
}

type xmlNode struct {
	Name      string  `xml:"name,attr"`
	X         float64 `xml:"x,attr"`
	Y         float64 `xml:"y,attr"`
	Label     string  `xml:"Label,attr,omitempty"`
	Obs       string  `xml:"Obs,attr,omitempty"`
	ALabel    string  `xml:"ALabel,attr,omitempty"`
	Potential string  `xml:"Potential,attr,omitempty"`
	Oracle    string  `xml:"Oracle,attr,omitempty"`
}

type xmlEdge struct {
	Source                 string `xml:"source,attr"`
	Target                 string `xml:"target,attr"`
	Type                   string `xml:"Type,attr"`
	LabeledValues          string `xml:"LabeledValues,attr,omitempty"`
	LowerCaseLabeledValues string `xml:"LowerCaseLabeledValues,attr,omitempty"`
	UpperCaseLabeledValues string `xml:"UpperCaseLabeledValues,attr,omitempty"`
}

func typeToString(t tnetwork.ConstraintType) string {
	switch t {
	case tnetwork.Requirement:
		return "normal"
	case tnetwork.Contingent:
		return "contingent"
	case tnetwork.Derived:
		return "derived"
	case tnetwork.Internal:
		return "internal"
	default:
		return "normal"
	}
}

func typeFromString(s string) (tnetwork.ConstraintType, error) {
	switch s {
	case "normal", "constraint", "":
		return tnetwork.Requirement, nil
	case "contingent":
		return tnetwork.Contingent, nil
	case "derived":
		return tnetwork.Derived, nil
	case "internal":
		return tnetwork.Internal, nil
	default:
		return 0, fmt.Errorf("graphio: unknown edge Type %q", s)
	}
}

// formatUpperCase renders every non-empty A-label submap of vals as
// "ALABEL{...} ALABEL{...}", skipping the ordinary (A-label ∅) submap
// which is carried separately as LabeledValues.
func formatUpperCase(vals *labelmap.ALabelMap) string {
	var parts []string
	for _, a := range vals.ALabels() {
		if a.IsEmpty() {
			continue
		}
		parts = append(parts, a.String()+vals.MapFor(a).String())
	}
	return strings.Join(parts, " ")
}

// parseUpperCase parses formatUpperCase's output back into vals.
func parseUpperCase(s string, vals *labelmap.ALabelMap) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, tok := range splitTopLevel(s) {
		i := strings.IndexByte(tok, '{')
		if i < 0 {
			return fmt.Errorf("graphio: malformed upper-case entry %q", tok)
		}
		aleph, body := tok[:i], tok[i:]
		var a alabel.ALabel
		if aleph != "∅" {
			a = alabel.FromLetters([]byte(aleph)...)
		}
		m, err := labelmap.Parse(body)
		if err != nil {
			return fmt.Errorf("graphio: bad upper-case map %q: %w", tok, err)
		}
		for _, e := range m.Entries() {
			vals.Merge(a, e.Label, e.Value)
		}
	}
	return nil
}

func splitTopLevel(s string) []string {
	var out []string
	depth, start := 0, 0
	for i, r := range s {
		switch r {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				out = append(out, s[start:i+1])
				start = i + 1
			}
		}
	}
	return out
}

// formatLowerCase renders an edge's optional lower-case triple as
// "LETTER(x,label)".
func formatLowerCase(lc *tnetwork.LowerCaseValue) string {
	if lc == nil {
		return ""
	}
	return fmt.Sprintf("%s(%d,%s)", lc.Node.String(), lc.Value, lc.Label.String())
}

func parseLowerCase(s string) (*tnetwork.LowerCaseValue, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	i := strings.IndexByte(s, '(')
	if i < 0 || !strings.HasSuffix(s, ")") {
		return nil, fmt.Errorf("graphio: malformed lower-case value %q", s)
	}
	aleph := s[:i]
	inner := s[i+1 : len(s)-1]
	parts := strings.SplitN(inner, ",", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("graphio: malformed lower-case value %q", s)
	}
	v, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return nil, fmt.Errorf("graphio: bad lower-case value %q: %w", s, err)
	}
	l, err := label.Parse(strings.TrimSpace(parts[1]))
	if err != nil {
		return nil, fmt.Errorf("graphio: bad lower-case label %q: %w", s, err)
	}
	return &tnetwork.LowerCaseValue{Node: alabel.FromLetters([]byte(aleph)...), Value: v, Label: l}, nil
}

// Write serializes g to w in the GraphML-subset format of spec §6.
func Write(w io.Writer, g *tnetwork.Graph) error {
	out := xmlGraph{Z: g.Z}
	for _, n := range g.Nodes() {
		xn := xmlNode{Name: n.Name, X: n.X, Y: n.Y}
		if !n.Label.IsEmpty() {
			xn.Label = n.Label.String()
		}
		if n.IsObserver {
			xn.Obs = string(n.ObservedProposition)
		}
		if n.IsContingent {
			xn.ALabel = string(n.ContingentLetter)
		}
		if n.Potential.Len() > 0 {
			xn.Potential = n.Potential.String()
		}
		if n.IsOracle {
			xn.Oracle = n.OracleForContingent
		}
		out.Nodes = append(out.Nodes, xn)
	}
	for _, n := range g.Nodes() {
		for _, e := range g.OutEdges(n.Name) {
			out.Edges = append(out.Edges, xmlEdge{
				Source:                 e.From,
				Target:                 e.To,
				Type:                   typeToString(e.Type),
				LabeledValues:          e.Values.Ordinary().String(),
				LowerCaseLabeledValues: formatLowerCase(e.LowerCase),
				UpperCaseLabeledValues: formatUpperCase(e.Values),
			})
		}
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	return enc.Encode(out)
}

// Read parses the GraphML-subset format of spec §6 from r into a fresh
// Graph.
func Read(r io.Reader) (*tnetwork.Graph, error) {
	var in xmlGraph
	if err := xml.NewDecoder(r).Decode(&in); err != nil {
		return nil, fmt.Errorf("graphio: malformed input: %w", err)
	}
	if in.Z == "" {
		return nil, fmt.Errorf("graphio: missing required graph attribute \"z\"")
	}

	g := tnetwork.NewGraph(in.Z)
	seen := make(map[string]bool)
	for _, xn := range in.Nodes {
		if seen[xn.Name] {
			return nil, fmt.Errorf("graphio: duplicate node %q", xn.Name)
		}
		seen[xn.Name] = true

		n := tnetwork.NewNode(xn.Name)
		n.X, n.Y = xn.X, xn.Y
		if xn.Label != "" {
			l, err := label.Parse(xn.Label)
			if err != nil {
				return nil, fmt.Errorf("graphio: node %q: bad Label: %w", xn.Name, err)
			}
			n.Label = l
		}
		if xn.Obs != "" {
			n.IsObserver = true
			n.ObservedProposition = xn.Obs[0]
		}
		if xn.ALabel != "" {
			n.IsContingent = true
			n.ContingentLetter = xn.ALabel[0]
		}
		if xn.Potential != "" {
			m, err := labelmap.Parse(xn.Potential)
			if err != nil {
				return nil, fmt.Errorf("graphio: node %q: bad Potential: %w", xn.Name, err)
			}
			n.Potential = m
		}
		if xn.Oracle != "" {
			n.IsOracle = true
			n.OracleForContingent = xn.Oracle
		}

		if xn.Name == in.Z {
			// NewGraph already registered Z as a bare node; Write always
			// emits Z like any other node (spec §6 gives it no special
			// serialization), so fold the parsed attributes into the
			// existing node instead of re-adding it.
			existing, _ := g.Node(xn.Name)
			*existing = *n
			if n.IsObserver {
				if err := g.RegisterObserver(xn.Name, n.ObservedProposition); err != nil {
					return nil, err
				}
			}
			continue
		}
		if err := g.AddNode(n); err != nil {
			return nil, err
		}
	}

	for _, xe := range in.Edges {
		t, err := typeFromString(xe.Type)
		if err != nil {
			return nil, err
		}
		e, err := g.AddEdge(tnetwork.NewEdge(xe.Source, xe.Target, t))
		if err != nil {
			return nil, err
		}
		if xe.LabeledValues != "" {
			m, err := labelmap.Parse(xe.LabeledValues)
			if err != nil {
				return nil, fmt.Errorf("graphio: edge %s->%s: bad LabeledValues: %w", xe.Source, xe.Target, err)
			}
			for _, entry := range m.Entries() {
				e.MergeOrdinary(entry.Label, entry.Value)
			}
		}
		if xe.LowerCaseLabeledValues != "" {
			lc, err := parseLowerCase(xe.LowerCaseLabeledValues)
			if err != nil {
				return nil, fmt.Errorf("graphio: edge %s->%s: %w", xe.Source, xe.Target, err)
			}
			e.LowerCase = lc
			if t == tnetwork.Contingent {
				y, ok := e.Values.Ordinary().Get(label.Empty)
				if !ok {
					return nil, fmt.Errorf("graphio: contingent edge %s->%s: no unlabeled upper bound", xe.Source, xe.Target)
				}
				if err := g.AddContingentLink(xe.Source, xe.Target, lc.Value, y); err != nil {
					return nil, fmt.Errorf("graphio: edge %s->%s: %w", xe.Source, xe.Target, err)
				}
			}
		}
		if xe.UpperCaseLabeledValues != "" {
			if err := parseUpperCase(xe.UpperCaseLabeledValues, e.Values); err != nil {
				return nil, fmt.Errorf("graphio: edge %s->%s: %w", xe.Source, xe.Target, err)
			}
		}
	}
	return g, nil
}

// Fixture is the YAML test-fixture shape: a plain-data description of a
// graph convenient to hand-author in _test.go-adjacent .yaml files,
// lighter than the full GraphML-subset format.
type Fixture struct {
	Z          string        `yaml:"z"`
	Nodes      []FixtureNode `yaml:"nodes"`
	Edges      []FixtureEdge `yaml:"edges"`
	Contingent []FixtureLink `yaml:"contingentLinks,omitempty"`
}

// FixtureNode is one node in a Fixture.
type FixtureNode struct {
	Name                string `yaml:"name"`
	Obs                 string `yaml:"obs,omitempty"`
	ContingentLetter    string `yaml:"contingentLetter,omitempty"`
	OracleForContingent string `yaml:"oracleFor,omitempty"`
}

// FixtureEdge is one ordinary-valued edge in a Fixture.
type FixtureEdge struct {
	From  string `yaml:"from"`
	To    string `yaml:"to"`
	Type  string `yaml:"type,omitempty"`
	Value int    `yaml:"value"`
}

// FixtureLink is one contingent link in a Fixture.
type FixtureLink struct {
	Activation string `yaml:"activation"`
	Contingent string `yaml:"contingent"`
	X          int    `yaml:"x"`
	Y          int    `yaml:"y"`
}

// ReadFixture parses the YAML fixture format into a Graph.
func ReadFixture(r io.Reader) (*tnetwork.Graph, error) {
	var f Fixture
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("graphio: malformed fixture: %w", err)
	}
	if f.Z == "" {
		return nil, fmt.Errorf("graphio: fixture missing required \"z\"")
	}

	g := tnetwork.NewGraph(f.Z)
	for _, fn := range f.Nodes {
		n := tnetwork.NewNode(fn.Name)
		if fn.Obs != "" {
			n.IsObserver = true
			n.ObservedProposition = fn.Obs[0]
		}
		if fn.ContingentLetter != "" {
			n.IsContingent = true
			n.ContingentLetter = fn.ContingentLetter[0]
		}
		if fn.OracleForContingent != "" {
			n.IsOracle = true
			n.OracleForContingent = fn.OracleForContingent
		}

		if fn.Name == f.Z {
			existing, _ := g.Node(fn.Name)
			*existing = *n
			if n.IsObserver {
				if err := g.RegisterObserver(fn.Name, n.ObservedProposition); err != nil {
					return nil, err
				}
			}
			continue
		}
		if err := g.AddNode(n); err != nil {
			return nil, err
		}
	}
	for _, fe := range f.Edges {
		t, err := typeFromString(fe.Type)
		if err != nil {
			return nil, err
		}
		e, err := g.AddEdge(tnetwork.NewEdge(fe.From, fe.To, t))
		if err != nil {
			return nil, err
		}
		e.MergeOrdinary(label.Empty, fe.Value)
	}
	for _, fl := range f.Contingent {
		if err := g.AddContingentLink(fl.Activation, fl.Contingent, fl.X, fl.Y); err != nil {
			return nil, err
		}
	}
	return g, nil
}
