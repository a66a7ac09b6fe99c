// SPDX-License-Identifier: MIT
//
// File: collection.go
// Role: Backing key-value store contract for graph nodes, plus the in-memory default.
// Concurrency:
//   - MemoryCollection guards its catalog with a sync.RWMutex.
//   - Persistent implementations live in package storage.

package graph

import (
	"fmt"
	"maps"
	"strconv"
	"sync"
)

// Record is the persisted form of a Node, produced by a NodeSerializer.
type Record struct {
	ID     string         `msgpack:"id"`
	InIDs  []string       `msgpack:"in_ids,omitempty"`
	OutIDs []string       `msgpack:"out_ids,omitempty"`
	Fields map[string]any `msgpack:"fields,omitempty"`
}

// Clone returns a copy whose slices and field map are independent of r.
func (r Record) Clone() Record {
	return Record{
		ID:     r.ID,
		InIDs:  append([]string(nil), r.InIDs...),
		OutIDs: append([]string(nil), r.OutIDs...),
		Fields: maps.Clone(r.Fields),
	}
}

// Collection is a key-value store of node records.
//
// Implementations must:
//   - return ErrNodeNotFound (possibly wrapped) from Get for unknown keys;
//   - return ErrDuplicateNode (possibly wrapped) from Insert for live keys;
//   - never return a live key from NextID.
type Collection interface {
	// Keys returns all record keys in insertion order when the backend tracks it,
	// otherwise in backend order.
	Keys() ([]string, error)

	// Insert stores a new record under key.
	Insert(key string, rec Record) error

	// Put stores or replaces the record under key.
	Put(key string, rec Record) error

	// Get loads the record stored under key.
	Get(key string) (Record, error)

	// NextID allocates a key for the next node.
	NextID() (string, error)
}

// MemoryCollection is a Collection whose records live in process memory.
// Records are copied on the way in and out, so callers never alias stored state.
type MemoryCollection struct {
	mu      sync.RWMutex
	records map[string]Record
	order   []string
	next    uint64
}

// NewMemoryCollection returns an empty in-memory collection.
func NewMemoryCollection() *MemoryCollection {
	return &MemoryCollection{records: make(map[string]Record)}
}

// Keys returns keys in insertion order. Complexity O(N).
func (c *MemoryCollection) Keys() ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return append([]string(nil), c.order...), nil
}

// Insert stores a new record; ErrDuplicateNode if key is live.
func (c *MemoryCollection) Insert(key string, rec Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.records[key]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateNode, key)
	}
	c.records[key] = rec.Clone()
	c.order = append(c.order, key)

	return nil
}

// Put stores or replaces the record under key.
func (c *MemoryCollection) Put(key string, rec Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.records[key]; !ok {
		c.order = append(c.order, key)
	}
	c.records[key] = rec.Clone()

	return nil
}

// Get returns a copy of the stored record; ErrNodeNotFound if absent.
func (c *MemoryCollection) Get(key string) (Record, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	rec, ok := c.records[key]
	if !ok {
		return Record{}, fmt.Errorf("%w: %q", ErrNodeNotFound, key)
	}

	return rec.Clone(), nil
}

// NextID returns the lowest unused decimal key not smaller than the internal counter.
// Keys chosen explicitly by callers are skipped, so a live key is never returned.
func (c *MemoryCollection) NextID() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for {
		id := strconv.FormatUint(c.next, 10)
		c.next++
		if _, taken := c.records[id]; !taken {
			return id, nil
		}
	}
}

// Len returns the number of stored records.
func (c *MemoryCollection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.records)
}
