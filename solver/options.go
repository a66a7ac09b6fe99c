package solver

import (
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"github.com/katalvlaran/lvplan/graph"
	"github.com/katalvlaran/lvplan/scope"
)

// Names that strategies already see through Env accessors and may not be shadowed by builtins.
var reservedBuiltins = map[string]struct{}{
	"node_counter":       {},
	"open_nodes_counter": {},
	"selected":           {},
	"read":               {},
	"write":              {},
	"write_global":       {},
}

// Options holds the strategies and limits of a Solver.
// Invalid values supplied through an Option are recorded and surfaced by New
// as ErrOptionViolation.
type Options struct {
	Evaluate  EvaluateFunc
	Selector  graph.Selector
	Test      TestFunc
	Execute   ExecuteFunc
	Generate  GenerateFunc
	MaxNodes  int // 0 disables the budget
	Backtrack bool
	Builtins  map[string]any
	Logger    *slog.Logger
	Tracer    trace.Tracer // nil: global otel tracer
	Metrics   *Metrics     // nil: no metrics

	err error
}

// DefaultOptions returns the default strategy set:
//   - EvaluateOrder, SelectMax, TestField, ExecuteField, GenerateSuccessors
//   - no node budget, backtracking enabled
//   - discard logger, no builtins
func DefaultOptions() Options {
	return Options{
		Evaluate:  EvaluateOrder,
		Selector:  graph.SelectMax,
		Test:      TestField,
		Execute:   ExecuteField,
		Generate:  GenerateSuccessors,
		Backtrack: true,
		Builtins:  map[string]any{},
		Logger:    slog.New(slog.DiscardHandler),
	}
}

// Option configures a Solver.
type Option func(*Options)

// WithEvaluator sets the evaluation strategy.
func WithEvaluator(fn EvaluateFunc) Option {
	return func(o *Options) {
		if fn != nil {
			o.Evaluate = fn
		}
	}
}

// WithSelector sets the frontier read direction.
func WithSelector(sel graph.Selector) Option {
	return func(o *Options) {
		if sel != graph.SelectMax && sel != graph.SelectMin {
			o.err = fmt.Errorf("%w: unknown selector %d", ErrOptionViolation, sel)
			return
		}
		o.Selector = sel
	}
}

// WithTest sets the test strategy.
func WithTest(fn TestFunc) Option {
	return func(o *Options) {
		if fn != nil {
			o.Test = fn
		}
	}
}

// WithExecutor sets the execution strategy.
func WithExecutor(fn ExecuteFunc) Option {
	return func(o *Options) {
		if fn != nil {
			o.Execute = fn
		}
	}
}

// WithGenerator sets the generation strategy.
func WithGenerator(fn GenerateFunc) Option {
	return func(o *Options) {
		if fn != nil {
			o.Generate = fn
		}
	}
}

// WithMaxNodes bounds the number of steps.
//
//	n > 0: Eval fails with *BudgetExceededError once n steps completed
//	n == 0: no budget
//	n < 0: ErrOptionViolation
func WithMaxNodes(n int) Option {
	return func(o *Options) {
		if n < 0 {
			o.err = fmt.Errorf("%w: max nodes cannot be negative (%d)", ErrOptionViolation, n)
			return
		}
		o.MaxNodes = n
	}
}

// WithBacktracking toggles revisiting earlier frontier entries. When disabled the
// frontier is cleared after every execution and the default store is flat.
func WithBacktracking(enabled bool) Option {
	return func(o *Options) { o.Backtrack = enabled }
}

// WithBuiltins exposes read-only utilities through Env.Builtin.
func WithBuiltins(b map[string]any) Option {
	return func(o *Options) {
		for name := range b {
			if _, ok := reservedBuiltins[name]; ok {
				o.err = fmt.Errorf("%w: builtin name %q is reserved", ErrOptionViolation, name)
				return
			}
		}
		o.Builtins = make(map[string]any, len(b))
		for k, v := range b {
			o.Builtins[k] = v
		}
	}
}

// WithLogger sets the logger. Steps are logged at Debug.
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) {
		if l != nil {
			o.Logger = l
		}
	}
}

// WithTracer sets the tracer used for the lvplan.eval span.
func WithTracer(t trace.Tracer) Option {
	return func(o *Options) { o.Tracer = t }
}

// WithMetrics records run statistics into m.
func WithMetrics(m *Metrics) Option {
	return func(o *Options) { o.Metrics = m }
}

// EvalOption configures a single Eval call.
type EvalOption func(*evalConfig)

type evalConfig struct {
	store scope.Store
	space *graph.SearchSpace
}

// WithStore runs Eval against store, e.g. one pre-seeded with facts.
func WithStore(store scope.Store) EvalOption {
	return func(c *evalConfig) { c.store = store }
}

// WithSearchSpace runs Eval against space, e.g. one backed by a persistent collection.
func WithSearchSpace(space *graph.SearchSpace) EvalOption {
	return func(c *evalConfig) { c.space = space }
}
