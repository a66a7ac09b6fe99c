package solver_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/lvplan/graph"
	"github.com/katalvlaran/lvplan/scope"
	"github.com/katalvlaran/lvplan/solver"
)

type frameFixture struct {
	frame *solver.Frame
	store *scope.ChainStore
	space *graph.SearchSpace
}

func newFrameFixture(t *testing.T) frameFixture {
	t.Helper()
	s, err := solver.New(graph.NewGraph(), func(*solver.Env) (bool, error) { return true, nil })
	require.NoError(t, err)

	store := scope.NewChainStore()
	space := graph.NewSearchSpace(graph.SelectMax)
	f := solver.NewFrame(s, store, space)

	sel, err := space.CreateNode(graph.WithID("7"), graph.WithContextID(scope.InitID))
	require.NoError(t, err)
	f.SetSelected(sel)

	return frameFixture{frame: f, store: store, space: space}
}

// TestFrame_LazyMaterialization checks one scope per node, created on first write only.
func TestFrame_LazyMaterialization(t *testing.T) {
	fx := newFrameFixture(t)
	w := fx.frame.WriteEnv()

	assert.Equal(t, scope.InitID, fx.frame.Selected().ContextID)
	assert.Equal(t, 0, fx.store.Len())

	require.NoError(t, w.Write("hello", "world"))
	assert.Equal(t, "7", fx.frame.Selected().ContextID)
	assert.Equal(t, 1, fx.store.Len())

	stored, err := fx.space.GetNode("7")
	require.NoError(t, err)
	assert.Equal(t, "7", stored.ContextID, "materialization persists the node")

	require.NoError(t, w.Write("again", 2))
	assert.Equal(t, 1, fx.store.Len(), "second write reuses the scope")

	v, err := w.Read("hello")
	require.NoError(t, err)
	assert.Equal(t, "world", v)

	_, ok := fx.store.Init().Get("hello")
	assert.False(t, ok, "chained writes stay out of the root")
}

func TestFrame_WriteGlobal(t *testing.T) {
	fx := newFrameFixture(t)
	w := fx.frame.WriteEnv()

	w.WriteGlobal("hello", "world")

	v, err := w.Read("hello")
	require.NoError(t, err)
	assert.Equal(t, "world", v)
	v, err = fx.store.Init().Lookup("hello")
	require.NoError(t, err)
	assert.Equal(t, "world", v)
	assert.Equal(t, scope.InitID, fx.frame.Selected().ContextID, "global writes do not materialize")
}

func TestFrame_ReadOrAndMissing(t *testing.T) {
	fx := newFrameFixture(t)
	env := fx.frame.Env()

	_, err := env.Read("nope")
	assert.ErrorIs(t, err, scope.ErrKeyNotFound)
	assert.Equal(t, 42, env.ReadOr("nope", 42))
	assert.Nil(t, env.ReadOr("nope", nil))
}

func TestFrame_NoSelection(t *testing.T) {
	s, err := solver.New(graph.NewGraph(), func(*solver.Env) (bool, error) { return true, nil })
	require.NoError(t, err)
	f := solver.NewFrame(s, scope.NewChainStore(), graph.NewSearchSpace(graph.SelectMax))

	assert.ErrorIs(t, f.WriteEnv().Write("k", 1), solver.ErrNoSelection)
	assert.Nil(t, f.Env().Selected())
	assert.Same(t, f.Store().Init(), f.Context())
}

// TestFrame_Next checks the counter and scope re-derivation on the step transition.
func TestFrame_Next(t *testing.T) {
	fx := newFrameFixture(t)
	require.NoError(t, fx.frame.WriteEnv().Write("k", "v"))

	n, err := fx.space.CreateNode(graph.WithWeight(1))
	require.NoError(t, err)
	require.NoError(t, fx.space.OpenNode(n))

	require.NoError(t, fx.frame.Next())
	assert.Equal(t, 1, fx.frame.NodeCounter())
	assert.Equal(t, 1, fx.frame.Env().NodeCounter())
	assert.Equal(t, 1, fx.frame.Env().OpenNodesCounter())
	assert.Equal(t, "7", fx.frame.Context().ID())

	// A selection that never wrote falls back to the root.
	other, err := fx.space.CreateNode(graph.WithID("8"))
	require.NoError(t, err)
	fx.frame.SetSelected(other)
	require.NoError(t, fx.frame.Next())
	assert.Same(t, fx.store.Init(), fx.frame.Context())

	// An unknown context id surfaces the store error.
	other.ContextID = "ghost"
	assert.ErrorIs(t, fx.frame.Next(), scope.ErrScopeNotFound)
}

func TestFrame_WriteChainsToParentScope(t *testing.T) {
	fx := newFrameFixture(t)
	require.NoError(t, fx.frame.WriteEnv().Write("depth", 1))
	parent := fx.frame.Selected()

	child, err := fx.space.CreateNode(graph.WithID("9"), graph.WithIn(parent), graph.WithContextID(parent.ContextID))
	require.NoError(t, err)
	fx.frame.SetSelected(child)
	require.NoError(t, fx.frame.WriteEnv().Write("depth", 2))

	childScope, err := fx.store.Get("9")
	require.NoError(t, err)
	assert.Equal(t, "7", childScope.Parent().ID())

	parentScope, err := fx.store.Get("7")
	require.NoError(t, err)
	v, _ := parentScope.Get("depth")
	assert.Equal(t, 1, v)
	v, _ = childScope.Get("depth")
	assert.Equal(t, 2, v)

	path, err := fx.frame.Path()
	require.NoError(t, err)
	require.Len(t, path, 2)
	assert.Equal(t, "7", path[0].ID)
	assert.Equal(t, "9", path[1].ID)
}
