// Package solver runs a weighted best-first search over a domain graph.
//
// What
//
//   - Each step instantiates the current domain candidates as search nodes, weighs them,
//     tests the open frontier in selector order, executes the first node that passes and
//     generates the next candidates from it.
//   - Strategies are plain functions: GenerateFunc, EvaluateFunc, TestFunc, ExecuteFunc
//     and the SolutionFunc that ends the search. Defaults follow domain successors in
//     arrival order and run the Predicate / Action stored in a domain node's
//     "test" / "action" fields.
//   - State lives in chained scopes (package scope). A search node gets its own scope
//     on its first write, so sibling branches never see each other's writes and
//     backtracking resumes from an intact ancestor chain.
//
// Namespaces
//
//	Env       read-only: NodeCounter, OpenNodesCounter, Read, ReadOr, Builtin, Logger, Selected, Domain
//	WriteEnv  Env + Write (selected node's scope) + WriteGlobal (root scope)
//
// Termination
//
//   - SolutionFunc true: Eval returns the final Frame and nil.
//   - Every open candidate failed its test: ErrNoCandidates.
//   - MaxNodes steps done: *BudgetExceededError (errors.Is ErrBudgetExceeded).
//   - ctx cancelled: ctx.Err(), checked once per step.
//   - Strategy failure: *StrategyError wrapping the original error.
//
// Observability
//
//	Steps are logged at Debug on the configured slog.Logger with a per-run run_id.
//	Each Eval opens an OpenTelemetry span "lvplan.eval"; Metrics exposes Prometheus counters.
//
// Usage
//
//	s, err := solver.New(domain, func(env *solver.Env) (bool, error) {
//	    return env.ReadOr("result", nil) != nil, nil
//	}, solver.WithBacktracking(false))
//	frame, err := s.Eval(ctx, []*graph.Node{root}, solver.WithStore(store))
//	result, _ := frame.Context().Lookup("result")
package solver
