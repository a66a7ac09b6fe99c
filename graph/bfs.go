// SPDX-License-Identifier: MIT
//
// File: bfs.go
// Role: Multi-source breadth-first traversal along outgoing arcs.
// Used by the domain loader to detect nodes unreachable from the start set.

package graph

import (
	"context"
	"fmt"
)

// BFSOptions configures breadth-first search behavior.
type BFSOptions struct {
	// Ctx is optional. If non-nil, traversal aborts when ctx.Done() is signaled.
	Ctx context.Context

	// OnEnqueue(n, depth) is called immediately after n is enqueued.
	OnEnqueue func(n *Node, depth int)

	// OnVisit(n, depth) is called the moment n is visited.
	// Returning a non-nil error aborts the traversal, but n will already be in Order.
	OnVisit func(n *Node, depth int) error

	// MaxDepth bounds the traversal when positive; nodes deeper than MaxDepth are not enqueued.
	MaxDepth int
}

// BFSResult holds the outcome of a BFS traversal.
type BFSResult struct {
	Order   []*Node           // visited nodes in visit order
	Depth   map[string]int    // Depth[id] = distance from the nearest source
	Parent  map[string]string // Parent[id] = predecessor id; sources have none
	Visited map[string]bool   // set of all visited ids
}

// BFS traverses from every id in startIDs at depth 0, in the given order.
// Errors: ErrNodeNotFound (wrapped) if a source does not exist, ctx.Err(), or an OnVisit error.
func (g *Graph) BFS(startIDs []string, opts *BFSOptions) (*BFSResult, error) {
	topts := BFSOptions{}
	ctx := context.Background()
	if opts != nil {
		topts = *opts
		if opts.Ctx != nil {
			ctx = opts.Ctx
		}
	}

	res := &BFSResult{
		Order:   make([]*Node, 0),
		Depth:   make(map[string]int),
		Parent:  make(map[string]string),
		Visited: make(map[string]bool),
	}

	type item struct {
		node  *Node
		depth int
	}
	queue := make([]item, 0, len(startIDs))
	for _, id := range startIDs {
		if res.Visited[id] {
			continue
		}
		n, err := g.GetNode(id)
		if err != nil {
			return nil, fmt.Errorf("bfs source: %w", err)
		}
		res.Visited[id] = true
		res.Depth[id] = 0
		queue = append(queue, item{n, 0})
		if topts.OnEnqueue != nil {
			topts.OnEnqueue(n, 0)
		}
	}

	for len(queue) > 0 {
		select {
		case <-ctx.Done():
			return res, ctx.Err()
		default:
		}

		it := queue[0]
		queue = queue[1:]

		res.Order = append(res.Order, it.node)
		if topts.OnVisit != nil {
			if err := topts.OnVisit(it.node, it.depth); err != nil {
				return res, err
			}
		}

		nd := it.depth + 1
		if topts.MaxDepth > 0 && nd > topts.MaxDepth {
			continue
		}
		for nbr, err := range g.Successors(it.node) {
			if err != nil {
				return res, err
			}
			if res.Visited[nbr.ID] {
				continue
			}
			res.Visited[nbr.ID] = true
			res.Parent[nbr.ID] = it.node.ID
			res.Depth[nbr.ID] = nd
			if topts.OnEnqueue != nil {
				topts.OnEnqueue(nbr, nd)
			}
			queue = append(queue, item{nbr, nd})
		}
	}

	return res, nil
}
