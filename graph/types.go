// SPDX-License-Identifier: MIT
//
// File: types.go
// Role: Node, IDSet, node construction options and sentinel errors.
// Policy:
//   - Node identity is its ID; every other field is payload.
//   - IDSet preserves insertion order so neighbour traversal is reproducible.

package graph

import (
	"errors"
	"fmt"
	"maps"
	"strings"
)

// Reserved field names used by the NodeSerializer for the typed search attributes.
const (
	FieldWeight    = "weight"
	FieldReference = "reference"
	FieldContextID = "context_id"
)

// Sentinel errors for graph operations.
var (
	// ErrNodeNotFound indicates an operation referenced a node id absent from the collection.
	ErrNodeNotFound = errors.New("graph: node not found")

	// ErrDuplicateNode indicates an explicit node id is already present in the collection.
	ErrDuplicateNode = errors.New("graph: duplicate node id")

	// ErrNilNode indicates a nil *Node was passed where a live node is required.
	ErrNilNode = errors.New("graph: node is nil")

	// ErrNoWeight indicates a node without a weight was opened in a SearchSpace.
	ErrNoWeight = errors.New("graph: node has no weight")

	// ErrNodeNotOpen indicates CloseNode referenced a node that is not on the frontier.
	ErrNodeNotOpen = errors.New("graph: node is not open")
)

// IDSet is an insertion-ordered set of node ids.
// The zero value is an empty set ready for use through a pointer receiver.
type IDSet struct {
	ids   []string
	index map[string]struct{}
}

// NewIDSet builds a set from ids, dropping duplicates and keeping first occurrence order.
func NewIDSet(ids ...string) IDSet {
	var s IDSet
	for _, id := range ids {
		s.Add(id)
	}

	return s
}

// Add inserts id and reports whether the set changed.
func (s *IDSet) Add(id string) bool {
	if s.index == nil {
		s.index = make(map[string]struct{})
	}
	if _, ok := s.index[id]; ok {
		return false
	}
	s.index[id] = struct{}{}
	s.ids = append(s.ids, id)

	return true
}

// Has reports membership. Complexity O(1).
func (s IDSet) Has(id string) bool {
	_, ok := s.index[id]

	return ok
}

// Len returns the number of ids in the set.
func (s IDSet) Len() int { return len(s.ids) }

// IDs returns a copy of the ids in insertion order.
func (s IDSet) IDs() []string {
	out := make([]string, len(s.ids))
	copy(out, s.ids)

	return out
}

// Clone returns an independent copy of the set.
func (s IDSet) Clone() IDSet { return NewIDSet(s.ids...) }

// Node is a vertex of a Graph.
//
// A Node is either a domain node (a decision or action of the problem definition,
// carrying test/action payload in Fields) or a search node (an instantiation of a
// domain node inside a SearchSpace, carrying Weight, Reference and ContextID).
//
// Nodes returned by Graph are detached copies of the stored record: mutate them and
// call Graph.UpdateNode to persist the change.
type Node struct {
	// ID uniquely identifies the node in its Graph.
	ID string

	// InIDs holds ids of nodes with an arc into this node.
	InIDs IDSet

	// OutIDs holds ids of nodes this node has an arc to.
	OutIDs IDSet

	// Weight is the evaluation assigned to a search node; nil until evaluated.
	Weight *float64

	// Reference is the id of the domain node a search node instantiates.
	Reference string

	// ContextID is the id of the scope a search node's writes belong to.
	// The empty string denotes the root scope.
	ContextID string

	// Fields stores arbitrary domain attributes (rules, labels, user data).
	Fields map[string]any
}

// Equal reports whether two nodes have the same identity.
func (n *Node) Equal(other *Node) bool {
	if n == nil || other == nil {
		return n == other
	}

	return n.ID == other.ID
}

// Field returns the named domain attribute.
func (n *Node) Field(name string) (any, bool) {
	v, ok := n.Fields[name]

	return v, ok
}

// SetWeight assigns the node's evaluation weight.
func (n *Node) SetWeight(w float64) { n.Weight = &w }

// HasWeight reports whether the node has been evaluated.
func (n *Node) HasWeight() bool { return n.Weight != nil }

// WeightOr returns the weight, or def when the node is not weighted.
func (n *Node) WeightOr(def float64) float64 {
	if n.Weight == nil {
		return def
	}

	return *n.Weight
}

// Clone returns a deep copy of the node structure; field values are shared.
func (n *Node) Clone() *Node {
	c := &Node{
		ID:        n.ID,
		InIDs:     n.InIDs.Clone(),
		OutIDs:    n.OutIDs.Clone(),
		Reference: n.Reference,
		ContextID: n.ContextID,
		Fields:    maps.Clone(n.Fields),
	}
	if n.Weight != nil {
		c.SetWeight(*n.Weight)
	}
	if c.Fields == nil {
		c.Fields = make(map[string]any)
	}

	return c
}

// String renders the identity and search attributes, e.g. Node(id=3, weight=1.5, reference=up).
func (n *Node) String() string {
	if n == nil {
		return "Node(nil)"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Node(id=%s", n.ID)
	if n.Weight != nil {
		fmt.Fprintf(&b, ", weight=%g", *n.Weight)
	}
	if n.Reference != "" {
		fmt.Fprintf(&b, ", reference=%s", n.Reference)
	}
	b.WriteByte(')')

	return b.String()
}

// NodeOption configures a node passed to Graph.CreateNode.
type NodeOption func(*nodeSpec)

// nodeSpec collects CreateNode options before the node is built.
type nodeSpec struct {
	id        string
	in        []*Node
	out       []*Node
	weight    *float64
	reference string
	contextID string
	fields    map[string]any
}

// WithID sets an explicit node id. Without it the collection allocates one.
func WithID(id string) NodeOption {
	return func(s *nodeSpec) { s.id = id }
}

// WithIn adds arcs from each of nodes into the created node. Nil nodes are skipped.
func WithIn(nodes ...*Node) NodeOption {
	return func(s *nodeSpec) { s.in = appendLive(s.in, nodes) }
}

// WithOut adds arcs from the created node to each of nodes. Nil nodes are skipped.
func WithOut(nodes ...*Node) NodeOption {
	return func(s *nodeSpec) { s.out = appendLive(s.out, nodes) }
}

// WithWeight sets the initial weight.
func WithWeight(w float64) NodeOption {
	return func(s *nodeSpec) { s.weight = &w }
}

// WithReference sets the domain node id a search node instantiates.
func WithReference(id string) NodeOption {
	return func(s *nodeSpec) { s.reference = id }
}

// WithContextID sets the scope id the node's writes belong to.
func WithContextID(id string) NodeOption {
	return func(s *nodeSpec) { s.contextID = id }
}

// WithField sets a single domain attribute. The value passes through the
// graph's FieldCodec for name, so raw forms (e.g. rule source text) are accepted.
func WithField(name string, value any) NodeOption {
	return func(s *nodeSpec) {
		if s.fields == nil {
			s.fields = make(map[string]any)
		}
		s.fields[name] = value
	}
}

// WithFields sets several domain attributes at once.
func WithFields(fields map[string]any) NodeOption {
	return func(s *nodeSpec) {
		if s.fields == nil {
			s.fields = make(map[string]any, len(fields))
		}
		maps.Copy(s.fields, fields)
	}
}

func appendLive(dst, nodes []*Node) []*Node {
	for _, n := range nodes {
		if n != nil {
			dst = append(dst, n)
		}
	}

	return dst
}
