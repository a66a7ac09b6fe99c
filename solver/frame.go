// SPDX-License-Identifier: MIT
//
// File: frame.go
// Role: Per-run execution context: current scope, selected node, step counters.
//
// Write-scope derivation:
//   - A search node starts with its parent's ContextID (scope.InitID on the first step).
//   - The first write through the node creates a scope under the node's own id, chained to
//     its current ContextID, sets ContextID = ID and persists the node in the SearchSpace.
//   - Later writes in the same step reuse that scope.

package solver

import (
	"fmt"
	"log/slog"

	"github.com/katalvlaran/lvplan/graph"
	"github.com/katalvlaran/lvplan/scope"
)

// Frame binds a Solver to one SearchSpace and one scope.Store for a run.
type Frame struct {
	solver      *Solver
	space       *graph.SearchSpace
	store       scope.Store
	nodeCounter int
	openNodes   int
	selected    *graph.Node
	context     *scope.Scope
	logger      *slog.Logger

	env  *Env
	wenv *WriteEnv
}

// NewFrame returns the initial frame of a run: counter 0, no selection, root scope.
func NewFrame(s *Solver, store scope.Store, space *graph.SearchSpace) *Frame {
	f := &Frame{
		solver:  s,
		space:   space,
		store:   store,
		context: store.Init(),
		logger:  s.opts.Logger,
	}
	f.env = &Env{frame: f}
	f.wenv = &WriteEnv{Env: f.env}
	f.openNodes = space.LenOpen()

	return f
}

// Env returns the read-only namespace.
func (f *Frame) Env() *Env { return f.env }

// WriteEnv returns the read-write namespace.
func (f *Frame) WriteEnv() *WriteEnv { return f.wenv }

// NodeCounter is the number of completed steps.
func (f *Frame) NodeCounter() int { return f.nodeCounter }

// Selected is the last selected search node; the solution node after a successful Eval.
func (f *Frame) Selected() *graph.Node { return f.selected }

// SetSelected replaces the selected search node without touching the current scope.
func (f *Frame) SetSelected(n *graph.Node) { f.selected = n }

// Context is the scope currently in effect; the solution state after a successful Eval.
func (f *Frame) Context() *scope.Scope { return f.context }

// Store returns the run's scope store.
func (f *Frame) Store() scope.Store { return f.store }

// SearchSpace returns the run's search space.
func (f *Frame) SearchSpace() *graph.SearchSpace { return f.space }

// WriteContext returns the selected node's own scope, materializing it on first use.
// Errors: ErrNoSelection, or a store / search space failure.
func (f *Frame) WriteContext() (*scope.Scope, error) {
	sel := f.selected
	if sel == nil {
		return nil, ErrNoSelection
	}
	if sel.ContextID == sel.ID {
		return f.context, nil
	}

	s, err := f.store.Create(sel.ID, sel.ContextID)
	if err != nil {
		return nil, fmt.Errorf("solver: create scope for %s: %w", sel.ID, err)
	}
	f.context = s
	sel.ContextID = sel.ID
	if err = f.space.UpdateNode(sel); err != nil {
		return nil, err
	}
	f.logger.Debug("scope created", slog.String("node", sel.ID), slog.Int("depth", s.Depth()))

	return s, nil
}

// Next advances to the following step: bumps the counter, re-derives the scope
// from the selected node and refreshes the frontier counter.
func (f *Frame) Next() error {
	f.nodeCounter++
	if f.selected != nil {
		s, err := f.store.Get(f.selected.ContextID)
		if err != nil {
			return err
		}
		f.context = s
	}
	f.openNodes = f.space.LenOpen()

	return nil
}

// Path returns the selected nodes from the first step to the current selection,
// following each search node's single parent link.
func (f *Frame) Path() ([]*graph.Node, error) {
	var path []*graph.Node
	for cur := f.selected; cur != nil; {
		path = append(path, cur)
		parents := cur.InIDs.IDs()
		if len(parents) == 0 {
			break
		}
		next, err := f.space.GetNode(parents[0])
		if err != nil {
			return nil, err
		}
		cur = next
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}

	return path, nil
}
