// Package rte implements the STNU real-time executor of spec §4.8: given
// a dispatchable STNU, deterministically dispatch every node to a
// concrete time consistent with the requirement network and whatever
// contingent durations the environment strategy picks.
//
// Grounded on the teacher's labeling.go pluggable-strategy interface,
// generalized into one Strategy interface shared by the controller and
// the environment (spec: "controller and environment are
// interchangeable"). active_waits are backed by pkg/pqueue's addressable
// heap; glb/gub are not kept in heaps but taken as minima by a scan over
// the enabled candidates at each decision.
package rte

import (
	"context"
	"fmt"
	"sort"

	"github.com/gitrdm/cstnu/pkg/label"
	"github.com/gitrdm/cstnu/pkg/overflow"
	"github.com/gitrdm/cstnu/pkg/pqueue"
	"github.com/gitrdm/cstnu/pkg/tnetwork"
)

// Decision is the outcome of a controller or environment step: either a
// dispatch instant and the nodes/contingents chosen, or Wait.
type Decision struct {
	Wait   bool
	Time   int
	Chosen []string
}

// Executor runs one STNU execution to completion (spec §4.8).
type Executor struct {
	Graph       *tnetwork.Graph
	Controller  Strategy
	Environment Strategy

	schedule    map[string]int
	window      map[string]*Window
	activeWaits map[string]*pqueue.Queue // waiting-node name -> (contingent name, lift instant)
	activeLinks map[string]*tnetwork.ContingentLink // activation node -> its pending link
	linkByCon   map[string]*tnetwork.ContingentLink // contingent node -> its link
	currentTime int
}

// NewExecutor builds an Executor over g with the given controller and
// environment strategies.
func NewExecutor(g *tnetwork.Graph, controller, environment Strategy) *Executor {
	e := &Executor{
		Graph:       g,
		Controller:  controller,
		Environment: environment,
		schedule:    make(map[string]int),
		window:      make(map[string]*Window),
		activeWaits: make(map[string]*pqueue.Queue),
		activeLinks: make(map[string]*tnetwork.ContingentLink),
		linkByCon:   make(map[string]*tnetwork.ContingentLink),
	}
	for _, link := range g.ContingentLinks() {
		l := link
		e.linkByCon[link.Contingent] = l
	}
	for _, n := range g.Nodes() {
		e.window[n.Name] = &Window{Lower: 0, Upper: overflow.PosInf}
	}
	return e
}

// Schedule returns the final schedule after Run completes.
func (e *Executor) Schedule() map[string]int {
	return e.schedule
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// scheduleNode records N's execution time and applies the neighbour
// update of spec §4.8.
func (e *Executor) scheduleNode(name string, t int) {
	e.schedule[name] = t
	if w := e.window[name]; w != nil {
		w.Lower, w.Upper = t, t
	}

	for _, out := range e.Graph.OutEdges(name) {
		if out.Type == tnetwork.Contingent || out.Wait != nil {
			continue
		}
		v, ok := out.Values.Ordinary().Get(label.Empty)
		if !ok || overflow.IsPosInf(v) || overflow.IsNegInf(v) {
			continue
		}
		if w := e.window[out.To]; w != nil {
			w.Upper = minInt(w.Upper, t+v)
		}
	}
	for _, in := range e.Graph.InEdges(name) {
		if in.Type == tnetwork.Contingent || in.Wait != nil {
			continue
		}
		v, ok := in.Values.Ordinary().Get(label.Empty)
		if !ok || overflow.IsPosInf(v) || overflow.IsNegInf(v) {
			continue
		}
		lb := t - v
		if lb < 0 {
			continue // spec §4.8: drop if negative
		}
		if w := e.window[in.From]; w != nil {
			w.Lower = maxInt(w.Lower, lb)
		}
	}

	if link, ok := e.linkByContingent(name); ok {
		// N is this link's contingent node, just executed: close the
		// link and lift every wait referencing it.
		delete(e.activeLinks, link.Activation)
		for _, q := range e.activeWaits {
			q.Remove(name)
		}
	}
	if link, isActivation := e.activationLink(name); isActivation {
		e.activeLinks[name] = link
		if w := e.window[link.Contingent]; w != nil {
			w.Lower = t + link.X
			w.Upper = t + link.Y
		}
		for _, in := range e.Graph.InEdges(name) {
			if in.Wait == nil || in.From == link.Contingent {
				continue
			}
			wait := -in.Wait.Value
			q, ok := e.activeWaits[in.From]
			if !ok {
				q = pqueue.New()
				e.activeWaits[in.From] = q
			}
			q.Push(link.Contingent, t+wait)
		}
	}
}

func (e *Executor) linkByContingent(name string) (*tnetwork.ContingentLink, bool) {
	l, ok := e.linkByCon[name]
	return l, ok
}

func (e *Executor) activationLink(name string) (*tnetwork.ContingentLink, bool) {
	for _, l := range e.linkByCon {
		if l.Activation == name {
			return l, true
		}
	}
	return nil, false
}

func (e *Executor) liftExpiredWaits(name string) {
	q, ok := e.activeWaits[name]
	if !ok {
		return
	}
	for {
		it, ok := q.Peek()
		if !ok || it.Priority > e.currentTime {
			return
		}
		q.Pop()
	}
}

// isEnabled implements spec §4.8's enabling predicate: every outgoing
// requirement edge with a negative weight points to an already-scheduled
// node, and the node is not waiting on any contingent.
func (e *Executor) isEnabled(name string) bool {
	if _, done := e.schedule[name]; done {
		return false
	}
	if _, isContingent := e.linkByContingent(name); isContingent {
		return false // dispatched by the environment, not the controller
	}
	e.liftExpiredWaits(name)
	if q, ok := e.activeWaits[name]; ok && q.Len() > 0 {
		return false
	}
	for _, out := range e.Graph.OutEdges(name) {
		if out.Type == tnetwork.Contingent {
			continue
		}
		v, ok := out.Values.Ordinary().Get(label.Empty)
		if !ok || v >= 0 {
			continue
		}
		if _, scheduled := e.schedule[out.To]; !scheduled {
			return false
		}
	}
	return true
}

func (e *Executor) enabledCandidates() []Candidate {
	var out []Candidate
	for _, n := range e.Graph.Nodes() {
		if !e.isEnabled(n.Name) {
			continue
		}
		w := e.window[n.Name]
		out = append(out, Candidate{Name: n.Name, Lower: w.Lower, Upper: w.Upper})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (e *Executor) pendingContingentCandidates() []Candidate {
	var out []Candidate
	for con, link := range e.linkByCon {
		if _, done := e.schedule[con]; done {
			continue
		}
		if _, pending := e.activeLinks[link.Activation]; !pending {
			continue
		}
		w := e.window[con]
		out = append(out, Candidate{Name: con, Lower: w.Lower, Upper: w.Upper})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// rteDecision is step 1 of spec §4.8.
func (e *Executor) rteDecision(candidates []Candidate) Decision {
	if len(candidates) == 0 {
		return Decision{Wait: true}
	}
	glbMin, gubMin := candidates[0].Lower, candidates[0].Upper
	for _, c := range candidates[1:] {
		glbMin = minInt(glbMin, c.Lower)
		gubMin = minInt(gubMin, c.Upper)
	}
	lower := maxInt(glbMin, e.currentTime)
	window := Window{Lower: lower, Upper: gubMin}
	t, chosen := e.Controller.Select(candidates, window)
	return Decision{Time: t, Chosen: chosen}
}

// observe is step 2 of spec §4.8: the environment picks an occurrence
// time and subset of currently active contingents within the window
// bounded by the controller's decision.
func (e *Executor) observe(pending []Candidate, decisionWindowUpper int) Decision {
	if len(pending) == 0 {
		return Decision{Wait: true}
	}
	lower, upper := pending[0].Lower, pending[0].Upper
	for _, c := range pending[1:] {
		lower = minInt(lower, c.Lower)
		upper = minInt(upper, c.Upper)
	}
	lower = maxInt(lower, e.currentTime)
	if decisionWindowUpper < upper {
		upper = decisionWindowUpper
	}
	if upper < lower {
		upper = lower
	}
	t, chosen := e.Environment.Select(pending, Window{Lower: lower, Upper: upper})
	return Decision{Time: t, Chosen: chosen}
}

// Run executes the STNU to completion, alternating controller decisions
// and environment observations (spec §4.8 steps 1-3) until every node is
// scheduled.
func (e *Executor) Run(ctx context.Context) (map[string]int, error) {
	e.scheduleNode(e.Graph.Z, 0)

	for len(e.schedule) < len(e.Graph.Nodes()) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		candidates := e.enabledCandidates()
		decision := e.rteDecision(candidates)
		pending := e.pendingContingentCandidates()

		upperBound := overflow.PosInf
		if !decision.Wait {
			upperBound = decision.Time
		}
		obs := e.observe(pending, upperBound)

		if decision.Wait && obs.Wait {
			return nil, fmt.Errorf("rte: deadlocked: no enabled node and no active contingent to observe")
		}

		switch {
		case obs.Wait || (!decision.Wait && decision.Time <= obs.Time):
			e.currentTime = decision.Time
			for _, name := range decision.Chosen {
				e.scheduleNode(name, decision.Time)
			}
			if !obs.Wait && obs.Time == decision.Time {
				for _, name := range obs.Chosen {
					e.scheduleNode(name, obs.Time)
				}
			}
		default:
			e.currentTime = obs.Time
			for _, name := range obs.Chosen {
				e.scheduleNode(name, obs.Time)
			}
		}
	}
	return e.schedule, nil
}
