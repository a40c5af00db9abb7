package ostnu

import (
	"fmt"

	"github.com/gitrdm/cstnu/pkg/tnetwork"
)

// Pool allocates fresh propositions lazily, one per (contingent, node)
// pair, for the oracle rule's data augmentation (spec §4.7).
//
// The spec describes a two-tier pool "a..z, A..F"; this implementation
// allocates only from the lowercase range label.Label already supports.
// label.Label caps a label at 26 lowercase propositions total (spec §7:
// more than 22 is itself a fatal overflow upstream), so a second,
// uppercase tier would contradict that ceiling rather than extend it —
// exhaustion of the lowercase range is already the hard error the spec
// calls for.
type Pool struct {
	used     map[byte]bool
	assigned map[[2]string]byte
}

// NewPool seeds the pool with every proposition already claimed by an
// observer node in g, so fresh allocations never collide with existing
// observations.
func NewPool(g *tnetwork.Graph) *Pool {
	used := make(map[byte]bool)
	for _, n := range g.Nodes() {
		if n.IsObserver {
			used[n.ObservedProposition] = true
		}
	}
	return &Pool{used: used, assigned: make(map[[2]string]byte)}
}

// For returns the proposition assigned to (contingent, node), allocating
// a new one from the pool on first request.
func (p *Pool) For(contingent, node string) (byte, error) {
	key := [2]string{contingent, node}
	if b, ok := p.assigned[key]; ok {
		return b, nil
	}
	for c := byte('a'); c <= 'z'; c++ {
		if !p.used[c] {
			p.used[c] = true
			p.assigned[key] = c
			return c, nil
		}
	}
	return 0, fmt.Errorf("ostnu: fresh-proposition pool exhausted allocating for (%s, %s)", contingent, node)
}
