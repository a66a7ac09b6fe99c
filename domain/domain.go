// Package domain loads problem definitions written in HCL into a domain graph.
//
// A domain file declares the start set, the initial facts and one block per domain node:
//
//	start = ["root"]
//
//	facts {
//	  person = { age = 15 }
//	}
//
//	node "root" {}
//
//	node "can_vote" {
//	  after  = ["root"]
//	  test   = read("person").age >= 18
//	  action = write("result", "Can vote")
//	  label  = "adult"
//	}
//
// test and action are rules (package rules) stored as source text and compiled on load.
// after / before wire arcs from / to the named nodes. Every other attribute is a static
// node field and may only use literals. Nodes are created in file order, arcs afterwards,
// so relationships may point forward. Without a start attribute the start set is every
// node without predecessors.
package domain

import (
	"errors"
	"maps"
	"slices"

	"github.com/katalvlaran/lvplan/graph"
	"github.com/katalvlaran/lvplan/scope"
)

// Sentinel errors.
var (
	// ErrUnknownNode indicates a start entry or relationship naming an undeclared node.
	ErrUnknownNode = errors.New("domain: unknown node")

	// ErrReservedAttribute indicates a node attribute that clashes with a graph field.
	ErrReservedAttribute = errors.New("domain: reserved attribute")

	// ErrDuplicateFact indicates a fact declared in more than one facts block.
	ErrDuplicateFact = errors.New("domain: duplicate fact")

	// ErrNoFiles indicates Load found no .hcl file under the given paths.
	ErrNoFiles = errors.New("domain: no domain files")
)

// Domain is a loaded problem definition.
type Domain struct {
	Graph *graph.Graph
	Start []*graph.Node
	Facts map[string]any

	// Unreachable lists the ids no path from Start reaches, in declaration order.
	Unreachable []string
}

// StartIDs returns the ids of the start set.
func (d *Domain) StartIDs() []string {
	ids := make([]string, len(d.Start))
	for i, n := range d.Start {
		ids[i] = n.ID
	}

	return ids
}

// FactNames returns the declared fact names in order.
func (d *Domain) FactNames() []string {
	return slices.Sorted(maps.Keys(d.Facts))
}

// Seed writes every fact into s.
func (d *Domain) Seed(s *scope.Scope) {
	for _, k := range d.FactNames() {
		s.Set(k, d.Facts[k])
	}
}
