package graph_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/lvplan/graph"
)

// chain builds a -> b -> c plus an isolated d.
func chain(t *testing.T) *graph.Graph {
	t.Helper()
	g := graph.NewGraph()
	a, err := g.CreateNode(graph.WithID("a"))
	require.NoError(t, err)
	b, err := g.CreateNode(graph.WithID("b"), graph.WithIn(a))
	require.NoError(t, err)
	_, err = g.CreateNode(graph.WithID("c"), graph.WithIn(b))
	require.NoError(t, err)
	_, err = g.CreateNode(graph.WithID("d"))
	require.NoError(t, err)

	return g
}

func TestBFS_MissingSource(t *testing.T) {
	g := graph.NewGraph()
	_, err := g.BFS([]string{"x"}, nil)
	assert.ErrorIs(t, err, graph.ErrNodeNotFound)
}

func TestBFS_LinearDepthAndParent(t *testing.T) {
	res, err := chain(t).BFS([]string{"a"}, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b", "c"}, ids(res.Order))
	assert.Equal(t, 2, res.Depth["c"])
	assert.Equal(t, "b", res.Parent["c"])
	assert.False(t, res.Visited["d"])
}

func TestBFS_MultiSource(t *testing.T) {
	res, err := chain(t).BFS([]string{"d", "b", "d"}, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"d", "b", "c"}, ids(res.Order))
	assert.Equal(t, 0, res.Depth["b"])
	assert.Equal(t, 1, res.Depth["c"])
	assert.False(t, res.Visited["a"])
}

func TestBFS_CycleAndMaxDepth(t *testing.T) {
	g := chain(t)
	c, err := g.GetNode("c")
	require.NoError(t, err)
	a, err := g.GetNode("a")
	require.NoError(t, err)
	require.NoError(t, g.CreateRelationship(c, a))

	res, err := g.BFS([]string{"a"}, nil)
	require.NoError(t, err)
	assert.Len(t, res.Order, 3)

	res, err = g.BFS([]string{"a"}, &graph.BFSOptions{MaxDepth: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids(res.Order))
}

func TestBFS_HooksAndAbort(t *testing.T) {
	var enqueued []string
	stop := errors.New("stop at b")
	res, err := chain(t).BFS([]string{"a"}, &graph.BFSOptions{
		OnEnqueue: func(n *graph.Node, _ int) { enqueued = append(enqueued, n.ID) },
		OnVisit: func(n *graph.Node, _ int) error {
			if n.ID == "b" {
				return stop
			}
			return nil
		},
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, []string{"a", "b"}, ids(res.Order))
	assert.Equal(t, []string{"a", "b"}, enqueued)
}

func TestBFS_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := chain(t).BFS([]string{"a"}, &graph.BFSOptions{Ctx: ctx})
	assert.ErrorIs(t, err, context.Canceled)
}
