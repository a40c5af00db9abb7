package ostnu

import "github.com/gitrdm/cstnu/pkg/label"

// NegativeScenarios tracks the minimal set of labels under which a
// self-loop has produced a negative value under a consistent label
// (spec §4.7). Stored minimally under subsumption, using this codebase's
// Subsumes convention (label.Label.Subsumes(other): the receiver
// contains every literal of other, i.e. the receiver is the more
// specific refinement): a candidate label already covered by a recorded,
// more general scenario is redundant; a newly recorded, more general
// scenario supersedes any previously recorded refinement of it.
type NegativeScenarios struct {
	scenarios []label.Label
}

// NewNegativeScenarios creates an empty tracker.
func NewNegativeScenarios() *NegativeScenarios {
	return &NegativeScenarios{}
}

// IsBad reports whether l is covered by (subsumes) a recorded scenario —
// the "dropped on sight" test of spec §4.7.
func (s *NegativeScenarios) IsBad(l label.Label) bool {
	for _, m := range s.scenarios {
		if l.Subsumes(m) {
			return true
		}
	}
	return false
}

// Record adds l to the tracked scenarios, pruning any previously
// recorded scenario that l now supersedes (a more general scenario
// covers every specialization a more specific one would have). Returns
// true if the network is no longer AC (the empty label was recorded, or
// already covered).
func (s *NegativeScenarios) Record(l label.Label) bool {
	if s.IsBad(l) {
		return l.IsEmpty()
	}
	kept := s.scenarios[:0:0]
	for _, m := range s.scenarios {
		if m.Subsumes(l) && !m.Equal(l) {
			continue // m is a specialization of the new, more general l
		}
		kept = append(kept, m)
	}
	kept = append(kept, l)
	s.scenarios = kept
	return l.IsEmpty()
}
