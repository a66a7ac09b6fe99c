package scope

import (
	"fmt"
	"sync"
)

// Store owns the scopes of one search run.
type Store interface {
	// Init returns the root scope.
	Init() *Scope

	// Create registers a new scope under id, chained to parentID (InitID for the root).
	Create(id, parentID string) (*Scope, error)

	// Get returns the scope registered under id; InitID yields the root.
	Get(id string) (*Scope, error)

	// Delete drops the private layer registered under id.
	Delete(id string) error
}

// ChainStore is the backtracking Store: every Create adds an isolated layer, so
// sibling branches never observe each other's writes.
type ChainStore struct {
	mu     sync.RWMutex
	init   *Scope
	scopes map[string]*Scope
}

// NewChainStore returns a store holding only the root scope.
func NewChainStore() *ChainStore {
	return &ChainStore{init: NewRoot(), scopes: make(map[string]*Scope)}
}

func (c *ChainStore) Init() *Scope { return c.init }

// Create errors: ErrReservedID for InitID, ErrScopeNotFound for an unknown parent.
// Re-creating an existing id replaces it.
func (c *ChainStore) Create(id, parentID string) (*Scope, error) {
	if id == InitID {
		return nil, ErrReservedID
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	parent := c.init
	if parentID != InitID {
		p, ok := c.scopes[parentID]
		if !ok {
			return nil, fmt.Errorf("%w: parent %q", ErrScopeNotFound, parentID)
		}
		parent = p
	}
	s := NewChained(id, parent)
	c.scopes[id] = s

	return s, nil
}

func (c *ChainStore) Get(id string) (*Scope, error) {
	if id == InitID {
		return c.init, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	s, ok := c.scopes[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrScopeNotFound, id)
	}

	return s, nil
}

// Delete unregisters id. Children keep reading through the removed layer until
// they are deleted themselves.
func (c *ChainStore) Delete(id string) error {
	if id == InitID {
		return ErrReservedID
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.scopes[id]; !ok {
		return fmt.Errorf("%w: %q", ErrScopeNotFound, id)
	}
	delete(c.scopes, id)

	return nil
}

// Len returns the number of registered non-root scopes.
func (c *ChainStore) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.scopes)
}

// FlatStore is the non-backtracking Store: every id resolves to the root, so all
// writes are global immediately.
type FlatStore struct {
	init *Scope
}

// NewFlatStore returns a store with a fresh root scope.
func NewFlatStore() *FlatStore { return &FlatStore{init: NewRoot()} }

func (f *FlatStore) Init() *Scope { return f.init }

func (f *FlatStore) Create(string, string) (*Scope, error) { return f.init, nil }

func (f *FlatStore) Get(string) (*Scope, error) { return f.init, nil }

func (f *FlatStore) Delete(string) error { return nil }

var (
	_ Store = (*ChainStore)(nil)
	_ Store = (*FlatStore)(nil)
)
