// Package scope implements chained key-value variable scopes for backtracking search.
//
// A Scope is either the Root (one per Store, id InitID) or Chained: a private
// layer plus a parent link. Reads fall through the chain towards Root; writes
// always land in the private layer of the scope written to.
package scope

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
)

// InitID is the id of the root scope. Search nodes that never wrote carry it as ContextID.
const InitID = ""

// Sentinel errors.
var (
	ErrScopeNotFound = errors.New("scope: scope not found")
	ErrKeyNotFound   = errors.New("scope: key not found")
	ErrReservedID    = errors.New("scope: id is reserved for the root scope")
)

// Kind tags a Scope variant.
type Kind int

const (
	Root Kind = iota
	Chained
)

func (k Kind) String() string {
	if k == Chained {
		return "chained"
	}

	return "root"
}

// Scope is one layer of variables. Safe for concurrent use.
type Scope struct {
	mu     sync.RWMutex
	id     string
	kind   Kind
	vars   map[string]any
	parent *Scope // non-owning; read traversal only
}

// NewRoot returns an empty root scope.
func NewRoot() *Scope {
	return &Scope{id: InitID, kind: Root, vars: make(map[string]any)}
}

// NewChained returns an empty scope reading through to parent.
func NewChained(id string, parent *Scope) *Scope {
	return &Scope{id: id, kind: Chained, vars: make(map[string]any), parent: parent}
}

// ID returns the scope id; InitID for the root.
func (s *Scope) ID() string { return s.id }

// Kind returns Root or Chained.
func (s *Scope) Kind() Kind { return s.kind }

// Parent returns the scope reads fall through to, nil for the root.
func (s *Scope) Parent() *Scope { return s.parent }

// Depth is the number of links to the root; the root has depth 0.
func (s *Scope) Depth() int {
	d := 0
	for p := s.parent; p != nil; p = p.parent {
		d++
	}

	return d
}

// Get reads key from the nearest layer that defines it.
func (s *Scope) Get(key string) (any, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if v, ok := cur.Local(key); ok {
			return v, true
		}
	}

	return nil, false
}

// Lookup is Get with an error. Errors: ErrKeyNotFound.
func (s *Scope) Lookup(key string) (any, error) {
	v, ok := s.Get(key)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrKeyNotFound, key)
	}

	return v, nil
}

// Local reads key from this layer only.
func (s *Scope) Local(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.vars[key]

	return v, ok
}

// Set writes key into this layer. Ancestors are never touched.
func (s *Scope) Set(key string, v any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.vars[key] = v
}

// Keys returns the sorted union of keys visible through this scope.
func (s *Scope) Keys() []string {
	return slices.Sorted(maps.Keys(s.Snapshot()))
}

// Snapshot flattens the chain into one map; nearer layers shadow farther ones.
// Values are shared, the map is new.
func (s *Scope) Snapshot() map[string]any {
	var chain []*Scope
	for cur := s; cur != nil; cur = cur.parent {
		chain = append(chain, cur)
	}

	out := make(map[string]any)
	for i := len(chain) - 1; i >= 0; i-- {
		chain[i].mu.RLock()
		maps.Copy(out, chain[i].vars)
		chain[i].mu.RUnlock()
	}

	return out
}
