// SPDX-License-Identifier: MIT
//
// File: adjacency_list.go
// Role: Graph over a Collection: node creation, relationship wiring, lazy neighbour iteration.
// Determinism:
//   - Neighbours are produced in relationship insertion order (IDSet order).
//   - Nodes() follows Collection.Keys() order.
// Concurrency:
//   - mu serializes mutations so read-modify-write on records is atomic per Graph.
//   - Iterators take the read lock per lookup, never across a yield.

package graph

import (
	"fmt"
	"iter"
	"sync"
)

// Graph is a directed graph whose nodes live in a pluggable Collection.
//
// Every Node handed out is a detached copy of the stored record. Relationship
// operations update both the caller's copies and the stored records; other
// attribute changes are persisted with UpdateNode.
type Graph struct {
	mu   sync.RWMutex
	coll Collection
	ser  *NodeSerializer
}

// GraphOption configures a Graph before creation.
type GraphOption func(g *Graph)

// WithCollection sets the backing store. Default: NewMemoryCollection().
func WithCollection(c Collection) GraphOption {
	return func(g *Graph) {
		if c != nil {
			g.coll = c
		}
	}
}

// WithSerializer sets the Node <-> Record mapper. Default: DefaultSerializer().
func WithSerializer(s *NodeSerializer) GraphOption {
	return func(g *Graph) {
		if s != nil {
			g.ser = s
		}
	}
}

// NewGraph creates an empty Graph.
func NewGraph(opts ...GraphOption) *Graph {
	g := &Graph{}
	for _, opt := range opts {
		opt(g)
	}
	if g.coll == nil {
		g.coll = NewMemoryCollection()
	}
	if g.ser == nil {
		g.ser = DefaultSerializer()
	}

	return g
}

// Collection returns the backing store.
func (g *Graph) Collection() Collection { return g.coll }

// Serializer returns the Node <-> Record mapper.
func (g *Graph) Serializer() *NodeSerializer { return g.ser }

// CreateNode builds, persists and wires a new node.
//
// Field values are passed through the serializer's codecs first, so raw forms are
// accepted. Without WithID the id comes from Collection.NextID.
// Relationship targets given with WithIn / WithOut must already exist.
//
// Errors: ErrDuplicateNode, ErrNodeNotFound (relationship target),
// *SerializationError (codec failure), or a backend error.
func (g *Graph) CreateNode(opts ...NodeOption) (*Node, error) {
	var spec nodeSpec
	for _, opt := range opts {
		opt(&spec)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	id := spec.id
	if id == "" {
		next, err := g.coll.NextID()
		if err != nil {
			return nil, fmt.Errorf("graph: allocate id: %w", err)
		}
		id = next
	}

	fields, err := g.ser.DecodeFields(id, spec.fields)
	if err != nil {
		return nil, err
	}
	n := &Node{
		ID:        id,
		Weight:    spec.weight,
		Reference: spec.reference,
		ContextID: spec.contextID,
		Fields:    fields,
	}

	rec, err := g.ser.ToRecord(n)
	if err != nil {
		return nil, err
	}
	if err = g.coll.Insert(id, rec); err != nil {
		return nil, err
	}

	for _, src := range spec.in {
		if err = g.relate(src, n); err != nil {
			return nil, err
		}
	}
	for _, dst := range spec.out {
		if err = g.relate(n, dst); err != nil {
			return nil, err
		}
	}

	return n, nil
}

// CreateRelationship adds the arc src -> dst. Idempotent.
//
// Each side is checked and persisted independently: if only one side is missing,
// only that side is written. Persistence across the two records is best-effort;
// a backend failure after the first write leaves the arc half-applied and is returned.
func (g *Graph) CreateRelationship(src, dst *Node) error {
	if src == nil || dst == nil {
		return ErrNilNode
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.relate(src, dst)
}

// CreateRelationships applies CreateRelationship to every (src, dst) pair.
func (g *Graph) CreateRelationships(srcs, dsts []*Node) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, src := range srcs {
		for _, dst := range dsts {
			if src == nil || dst == nil {
				return ErrNilNode
			}
			if err := g.relate(src, dst); err != nil {
				return err
			}
		}
	}

	return nil
}

// relate wires src -> dst on the caller copies and the stored records. Caller holds mu.
func (g *Graph) relate(src, dst *Node) error {
	src.OutIDs.Add(dst.ID)
	if err := g.link(src.ID, func(r *Record) *[]string { return &r.OutIDs }, dst.ID); err != nil {
		return err
	}
	dst.InIDs.Add(src.ID)

	return g.link(dst.ID, func(r *Record) *[]string { return &r.InIDs }, src.ID)
}

// link appends id to one adjacency list of the stored record key, persisting only on change.
func (g *Graph) link(key string, side func(*Record) *[]string, id string) error {
	rec, err := g.coll.Get(key)
	if err != nil {
		return err
	}
	ids := side(&rec)
	for _, have := range *ids {
		if have == id {
			return nil
		}
	}
	*ids = append(*ids, id)

	return g.coll.Put(key, rec)
}

// GetNode loads the node stored under id. Errors: ErrNodeNotFound.
func (g *Graph) GetNode(id string) (*Node, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return g.load(id)
}

func (g *Graph) load(id string) (*Node, error) {
	rec, err := g.coll.Get(id)
	if err != nil {
		return nil, err
	}

	return g.ser.FromRecord(rec)
}

// GetNodes lazily loads ids in order. Iteration stops after the first error.
func (g *Graph) GetNodes(ids []string) iter.Seq2[*Node, error] {
	return func(yield func(*Node, error) bool) {
		for _, id := range ids {
			n, err := g.GetNode(id)
			if !yield(n, err) || err != nil {
				return
			}
		}
	}
}

// Successors lazily yields the targets of n's outgoing arcs.
func (g *Graph) Successors(n *Node) iter.Seq2[*Node, error] {
	return g.GetNodes(n.OutIDs.IDs())
}

// Predecessors lazily yields the sources of n's incoming arcs.
func (g *Graph) Predecessors(n *Node) iter.Seq2[*Node, error] {
	return g.GetNodes(n.InIDs.IDs())
}

// Nodes lazily yields every stored node.
func (g *Graph) Nodes() iter.Seq2[*Node, error] {
	return func(yield func(*Node, error) bool) {
		g.mu.RLock()
		keys, err := g.coll.Keys()
		g.mu.RUnlock()
		if err != nil {
			yield(nil, err)
			return
		}
		for n, err := range g.GetNodes(keys) {
			if !yield(n, err) || err != nil {
				return
			}
		}
	}
}

// IsSuccessor reports whether child is a target of parent.
func (g *Graph) IsSuccessor(child, parent *Node) bool {
	return parent.OutIDs.Has(child.ID)
}

// IsPredecessor reports whether parent is a source of child.
// Defined on parent's outgoing set, exactly like IsSuccessor.
func (g *Graph) IsPredecessor(parent, child *Node) bool {
	return parent.OutIDs.Has(child.ID)
}

// HasRelationship reports whether the arc src -> dst exists.
func (g *Graph) HasRelationship(src, dst *Node) bool {
	return src.OutIDs.Has(dst.ID)
}

// UpdateNode persists the current state of n.
func (g *Graph) UpdateNode(n *Node) error {
	if n == nil {
		return ErrNilNode
	}
	rec, err := g.ser.ToRecord(n)
	if err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.coll.Put(n.ID, rec)
}

// UpdateNodes persists each of ns, stopping at the first failure.
func (g *Graph) UpdateNodes(ns []*Node) error {
	for _, n := range ns {
		if err := g.UpdateNode(n); err != nil {
			return err
		}
	}

	return nil
}

// Len returns the number of stored nodes.
func (g *Graph) Len() (int, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	keys, err := g.coll.Keys()
	if err != nil {
		return 0, err
	}

	return len(keys), nil
}

// Collect drains seq into a slice, returning the first error.
func Collect(seq iter.Seq2[*Node, error]) ([]*Node, error) {
	var out []*Node
	for n, err := range seq {
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}

	return out, nil
}
