package solver_test

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/lvplan/graph"
	"github.com/katalvlaran/lvplan/scope"
	"github.com/katalvlaran/lvplan/solver"
)

func hasResult(env *solver.Env) (bool, error) {
	return env.ReadOr("result", nil) != nil, nil
}

func never(*solver.Env) (bool, error) { return false, nil }

// ageTest builds a predicate over the "person" fact.
func ageTest(adult bool) solver.PredicateFunc {
	return func(env *solver.Env) (bool, error) {
		p, err := env.Read("person")
		if err != nil {
			return false, err
		}
		age := p.(map[string]any)["age"].(int)

		return (age >= 18) == adult, nil
	}
}

func writeResult(v string) solver.ActionFunc {
	return func(env *solver.WriteEnv) error { return env.Write("result", v) }
}

// votingDomain is root -> {can_vote, can_not_vote}.
func votingDomain(t *testing.T) (*graph.Graph, *graph.Node) {
	t.Helper()
	domain := graph.NewGraph()
	root, err := domain.CreateNode(graph.WithID("root"))
	require.NoError(t, err)
	_, err = domain.CreateNode(graph.WithID("can_vote"), graph.WithIn(root),
		graph.WithField(solver.FieldTest, ageTest(true)),
		graph.WithField(solver.FieldAction, writeResult("Can vote")))
	require.NoError(t, err)
	_, err = domain.CreateNode(graph.WithID("can_not_vote"), graph.WithIn(root),
		graph.WithField(solver.FieldTest, ageTest(false)),
		graph.WithField(solver.FieldAction, writeResult("Can not vote")))
	require.NoError(t, err)

	return domain, root
}

// TestSolver_Voting runs the two-branch decision without backtracking over a flat store.
func TestSolver_Voting(t *testing.T) {
	domain, root := votingDomain(t)
	store := scope.NewFlatStore()
	store.Init().Set("person", map[string]any{"age": 15})

	s, err := solver.New(domain, hasResult, solver.WithBacktracking(false))
	require.NoError(t, err)

	frame, err := s.Eval(context.Background(), []*graph.Node{root}, solver.WithStore(store))
	require.NoError(t, err)

	v, err := store.Init().Lookup("result")
	require.NoError(t, err)
	assert.Equal(t, "Can not vote", v)
	assert.Equal(t, "can_not_vote", frame.Selected().Reference)
	assert.Equal(t, 2, frame.NodeCounter())
	assert.Equal(t, 0, frame.SearchSpace().LenOpen())
}

// TestSolver_VotingChained checks the same domain with backtracking keeps the root clean.
func TestSolver_VotingChained(t *testing.T) {
	domain, root := votingDomain(t)
	store := scope.NewChainStore()
	store.Init().Set("person", map[string]any{"age": 30})

	s, err := solver.New(domain, hasResult)
	require.NoError(t, err)
	frame, err := s.Eval(context.Background(), []*graph.Node{root}, solver.WithStore(store))
	require.NoError(t, err)

	v, err := frame.Context().Lookup("result")
	require.NoError(t, err)
	assert.Equal(t, "Can vote", v)
	_, ok := store.Init().Get("result")
	assert.False(t, ok)
}

func TestSolver_NoCandidates(t *testing.T) {
	s, err := solver.New(graph.NewGraph(), never)
	require.NoError(t, err)

	frame, err := s.Eval(context.Background(), nil)
	assert.ErrorIs(t, err, solver.ErrNoCandidates)
	require.NotNil(t, frame)
	assert.Equal(t, 0, frame.NodeCounter())
}

// loopDomain is a single node with a self loop: the search never runs dry.
func loopDomain(t *testing.T) (*graph.Graph, *graph.Node) {
	t.Helper()
	domain := graph.NewGraph()
	n, err := domain.CreateNode(graph.WithID("loop"))
	require.NoError(t, err)
	require.NoError(t, domain.CreateRelationship(n, n))

	return domain, n
}

func TestSolver_BudgetExceeded(t *testing.T) {
	domain, n := loopDomain(t)
	steps := 0
	s, err := solver.New(domain, never,
		solver.WithMaxNodes(5),
		solver.WithExecutor(func(*graph.Node, *graph.Graph, *solver.WriteEnv) error {
			steps++
			return nil
		}),
	)
	require.NoError(t, err)

	_, err = s.Eval(context.Background(), []*graph.Node{n})
	require.ErrorIs(t, err, solver.ErrBudgetExceeded)

	var be *solver.BudgetExceededError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, 5, be.NodeCounter)
	assert.Equal(t, 5, steps)
}

func TestSolver_ContextCancelled(t *testing.T) {
	domain, n := loopDomain(t)
	ctx, cancel := context.WithCancel(context.Background())
	s, err := solver.New(domain, never,
		solver.WithExecutor(func(_ *graph.Node, _ *graph.Graph, env *solver.WriteEnv) error {
			if env.NodeCounter() == 2 {
				cancel()
			}
			return nil
		}),
	)
	require.NoError(t, err)

	frame, err := s.Eval(ctx, []*graph.Node{n})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 3, frame.NodeCounter())
}

func TestSolver_StrategyErrors(t *testing.T) {
	boom := errors.New("boom")
	domain, n := loopDomain(t)

	cases := []struct {
		name string
		opt  solver.Option
		cap  solver.Capability
	}{
		{"test", solver.WithTest(func(*graph.Node, *graph.Graph, *solver.Env) (bool, error) { return false, boom }), solver.CapabilityTest},
		{"execute", solver.WithExecutor(func(*graph.Node, *graph.Graph, *solver.WriteEnv) error { return boom }), solver.CapabilityExecution},
		{"generate", solver.WithGenerator(func(*graph.Node, *graph.Graph) ([]*graph.Node, error) { return nil, boom }), solver.CapabilityGeneration},
		{"evaluate", solver.WithEvaluator(func(*graph.Node, []*graph.Node, *solver.Env) ([]solver.Weight, error) { return nil, boom }), solver.CapabilityEvaluation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s, err := solver.New(domain, never, tc.opt)
			require.NoError(t, err)

			_, err = s.Eval(context.Background(), []*graph.Node{n})
			assert.ErrorIs(t, err, boom)

			var se *solver.StrategyError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tc.cap, se.Capability)
		})
	}

	s, err := solver.New(domain, func(*solver.Env) (bool, error) { return false, boom })
	require.NoError(t, err)
	_, err = s.Eval(context.Background(), []*graph.Node{n})
	var se *solver.StrategyError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, solver.CapabilitySolution, se.Capability)
}

func TestSolver_TestErrorKeepsReachedScope(t *testing.T) {
	boom := errors.New("boom")
	domain := graph.NewGraph()
	a, err := domain.CreateNode(graph.WithID("a"), graph.WithField(solver.FieldAction,
		solver.ActionFunc(func(env *solver.WriteEnv) error { return env.Write("at", "a") })))
	require.NoError(t, err)
	b, err := domain.CreateNode(graph.WithID("b"))
	require.NoError(t, err)
	_, err = domain.CreateNode(graph.WithID("c"), graph.WithIn(a))
	require.NoError(t, err)

	// Step 1 selects a. Step 2 rejects c, then backtracks to b, whose test fails.
	s, err := solver.New(domain, never, solver.WithTest(
		func(n *graph.Node, _ *graph.Graph, _ *solver.Env) (bool, error) {
			switch n.Reference {
			case "b":
				return false, boom
			case "c":
				return false, nil
			}
			return true, nil
		}))
	require.NoError(t, err)

	frame, err := s.Eval(context.Background(), []*graph.Node{a, b})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, "a", frame.Selected().Reference)
	v, err := frame.Context().Lookup("at")
	require.NoError(t, err)
	assert.Equal(t, "a", v)
}

func TestSolver_EvaluatorLengthMismatch(t *testing.T) {
	domain, n := loopDomain(t)
	s, err := solver.New(domain, never,
		solver.WithEvaluator(func(*graph.Node, []*graph.Node, *solver.Env) ([]solver.Weight, error) {
			return []solver.Weight{solver.Score(1), solver.Score(2)}, nil
		}))
	require.NoError(t, err)

	_, err = s.Eval(context.Background(), []*graph.Node{n})
	var se *solver.StrategyError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, solver.CapabilityEvaluation, se.Capability)
}

func TestSolver_UnsupportedField(t *testing.T) {
	domain := graph.NewGraph()
	n, err := domain.CreateNode(graph.WithID("x"), graph.WithField(solver.FieldTest, "age > 3"))
	require.NoError(t, err)

	s, err := solver.New(domain, never)
	require.NoError(t, err)
	_, err = s.Eval(context.Background(), []*graph.Node{n})
	assert.ErrorIs(t, err, solver.ErrUnsupportedField)
}

func TestNew_OptionViolations(t *testing.T) {
	_, err := solver.New(nil, never)
	assert.ErrorIs(t, err, solver.ErrNilDomain)

	g := graph.NewGraph()
	_, err = solver.New(g, nil)
	assert.ErrorIs(t, err, solver.ErrOptionViolation)
	_, err = solver.New(g, never, solver.WithMaxNodes(-1))
	assert.ErrorIs(t, err, solver.ErrOptionViolation)
	_, err = solver.New(g, never, solver.WithSelector(graph.Selector(9)))
	assert.ErrorIs(t, err, solver.ErrOptionViolation)
	_, err = solver.New(g, never, solver.WithBuiltins(map[string]any{"read": 1}))
	assert.ErrorIs(t, err, solver.ErrOptionViolation)

	s, err := solver.New(g, never, solver.WithMaxNodes(0), solver.WithSelector(graph.SelectMin))
	require.NoError(t, err)
	assert.Equal(t, 0, s.Options().MaxNodes)
	assert.Equal(t, graph.SelectMin, s.Options().Selector)
	assert.True(t, s.Options().Backtrack)
	assert.Same(t, g, s.Domain())
}

// TestSolver_BacktrackingIsolation drives a dead-end branch first and checks its writes
// are invisible once the search backtracks into the sibling.
func TestSolver_BacktrackingIsolation(t *testing.T) {
	domain := graph.NewGraph()
	root, err := domain.CreateNode(graph.WithID("root"))
	require.NoError(t, err)
	dead, err := domain.CreateNode(graph.WithID("dead"), graph.WithIn(root),
		graph.WithField(solver.FieldAction, solver.ActionFunc(func(env *solver.WriteEnv) error {
			return env.Write("visited_dead", true)
		})))
	require.NoError(t, err)
	_, err = domain.CreateNode(graph.WithID("dead_end"), graph.WithIn(dead),
		graph.WithField(solver.FieldTest, false))
	require.NoError(t, err)
	_, err = domain.CreateNode(graph.WithID("good"), graph.WithIn(root),
		graph.WithField(solver.FieldTest, solver.PredicateFunc(func(env *solver.Env) (bool, error) {
			// Runs against its own branch: the dead branch's write must not leak in.
			return env.ReadOr("visited_dead", false) == false, nil
		})),
		graph.WithField(solver.FieldAction, writeResult("ok")))
	require.NoError(t, err)

	s, err := solver.New(domain, hasResult)
	require.NoError(t, err)
	frame, err := s.Eval(context.Background(), []*graph.Node{root})
	require.NoError(t, err)

	assert.Equal(t, "good", frame.Selected().Reference)
	_, ok := frame.Context().Get("visited_dead")
	assert.False(t, ok)

	path, err := frame.Path()
	require.NoError(t, err)
	refs := make([]string, len(path))
	for i, n := range path {
		refs[i] = n.Reference
	}
	assert.Equal(t, []string{"root", "good"}, refs)
}

func TestSolver_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := solver.NewMetrics(reg)
	require.NoError(t, err)

	domain, root := votingDomain(t)
	store := scope.NewFlatStore()
	store.Init().Set("person", map[string]any{"age": 15})
	s, err := solver.New(domain, hasResult, solver.WithBacktracking(false), solver.WithMetrics(m))
	require.NoError(t, err)
	_, err = s.Eval(context.Background(), []*graph.Node{root}, solver.WithStore(store))
	require.NoError(t, err)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Steps))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.Candidates.WithLabelValues("opened")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Tests.WithLabelValues("pass")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Tests.WithLabelValues("fail")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Runs.WithLabelValues("solved")))

	_, err = solver.NewMetrics(reg)
	assert.Error(t, err, "double registration is reported")
}

func TestSolver_Builtins(t *testing.T) {
	domain, n := loopDomain(t)
	var seen any
	s, err := solver.New(domain,
		func(env *solver.Env) (bool, error) {
			seen, _ = env.Builtin("limit")
			_, missing := env.Builtin("nope")
			return !missing, nil
		},
		solver.WithBuiltins(map[string]any{"limit": 3}),
	)
	require.NoError(t, err)
	_, err = s.Eval(context.Background(), []*graph.Node{n})
	require.NoError(t, err)
	assert.Equal(t, 3, seen)
}
