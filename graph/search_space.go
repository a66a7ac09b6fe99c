// SPDX-License-Identifier: MIT
//
// File: search_space.go
// Role: SearchSpace, a Graph of search nodes plus a weight-sorted open frontier.
//
// Implementation:
//   - Two parallel slices, openIDs and weights, sorted ascending by weight.
//   - OpenNode: binary search (right-bisect for SelectMax, left-bisect for SelectMin), then shift-insert.
//   - CloseNode: left-bisect on the weight, forward scan among equal weights for the id, then remove.
//   - OpenNodes: traverses high->low for SelectMax, low->high for SelectMin.
//
// Tie-break:
//   - Equal weights are consumed newest-first under both selectors: SelectMax inserts
//     after its equals and reads from the end; SelectMin inserts before and reads from the start.
//
// Complexity:
//   - OpenNode / CloseNode: O(log n) search + O(n) shift.
//   - OpenNodes: O(n) snapshot, then one GetNode per yielded element.

package graph

import (
	"fmt"
	"iter"
	"slices"
	"sort"
	"strings"
	"sync"
)

// Selector fixes the frontier read direction for a search run.
type Selector int

const (
	// SelectMax consumes the highest weight first.
	SelectMax Selector = iota
	// SelectMin consumes the lowest weight first.
	SelectMin
)

// String returns "max" or "min".
func (s Selector) String() string {
	if s == SelectMin {
		return "min"
	}

	return "max"
}

// ParseSelector maps "max" / "min" (case-insensitive) to a Selector.
func ParseSelector(s string) (Selector, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "max", "":
		return SelectMax, nil
	case "min":
		return SelectMin, nil
	default:
		return SelectMax, fmt.Errorf("graph: unknown selector %q", s)
	}
}

// SearchSpace is a Graph of instantiated search nodes with an ordered open frontier.
type SearchSpace struct {
	*Graph

	fmu      sync.RWMutex
	selector Selector
	openIDs  []string
	weights  []float64
}

// NewSearchSpace returns an empty search space reading its frontier per selector.
func NewSearchSpace(selector Selector, opts ...GraphOption) *SearchSpace {
	return &SearchSpace{Graph: NewGraph(opts...), selector: selector}
}

// Selector returns the frontier read direction.
func (s *SearchSpace) Selector() Selector { return s.selector }

// OpenNode inserts n into the frontier at its weight. Errors: ErrNilNode, ErrNoWeight.
func (s *SearchSpace) OpenNode(n *Node) error {
	if n == nil {
		return ErrNilNode
	}
	if n.Weight == nil {
		return fmt.Errorf("%w: %s", ErrNoWeight, n.ID)
	}
	w := *n.Weight

	s.fmu.Lock()
	defer s.fmu.Unlock()

	var i int
	if s.selector == SelectMax {
		i = sort.Search(len(s.weights), func(k int) bool { return s.weights[k] > w })
	} else {
		i = sort.Search(len(s.weights), func(k int) bool { return s.weights[k] >= w })
	}
	s.weights = slices.Insert(s.weights, i, w)
	s.openIDs = slices.Insert(s.openIDs, i, n.ID)

	return nil
}

// CloseNode removes exactly the (weight, id) entry of n from the frontier.
// Errors: ErrNilNode, ErrNoWeight, ErrNodeNotOpen.
func (s *SearchSpace) CloseNode(n *Node) error {
	if n == nil {
		return ErrNilNode
	}
	if n.Weight == nil {
		return fmt.Errorf("%w: %s", ErrNoWeight, n.ID)
	}
	w := *n.Weight

	s.fmu.Lock()
	defer s.fmu.Unlock()

	i := sort.Search(len(s.weights), func(k int) bool { return s.weights[k] >= w })
	for ; i < len(s.weights) && s.weights[i] == w; i++ {
		if s.openIDs[i] == n.ID {
			s.weights = slices.Delete(s.weights, i, i+1)
			s.openIDs = slices.Delete(s.openIDs, i, i+1)

			return nil
		}
	}

	return fmt.Errorf("%w: %s (weight %g)", ErrNodeNotOpen, n.ID, w)
}

// CloseAll empties the frontier. Nodes stay in the graph.
func (s *SearchSpace) CloseAll() {
	s.fmu.Lock()
	defer s.fmu.Unlock()

	s.weights = s.weights[:0]
	s.openIDs = s.openIDs[:0]
}

// OpenNodes yields open nodes in selection order.
//
// The order is fixed from a snapshot taken when iteration starts, so closing nodes
// while ranging is safe; calling OpenNodes again recomputes from the current frontier.
func (s *SearchSpace) OpenNodes() iter.Seq2[*Node, error] {
	return func(yield func(*Node, error) bool) {
		for n, err := range s.GetNodes(s.OpenIDs()) {
			if !yield(n, err) || err != nil {
				return
			}
		}
	}
}

// OpenIDs returns the frontier ids in selection order.
func (s *SearchSpace) OpenIDs() []string {
	s.fmu.RLock()
	ids := slices.Clone(s.openIDs)
	s.fmu.RUnlock()

	if s.selector == SelectMax {
		slices.Reverse(ids)
	}

	return ids
}

// LenOpen returns the frontier size.
func (s *SearchSpace) LenOpen() int {
	s.fmu.RLock()
	defer s.fmu.RUnlock()

	return len(s.openIDs)
}
