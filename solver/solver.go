// SPDX-License-Identifier: MIT
//
// File: solver.go
// Role: The search loop.
//
// Step (repeated until the solution predicate holds):
//  a. budget check: node counter == MaxNodes -> *BudgetExceededError; ctx cancellation -> ctx.Err().
//  b. instantiate: one search node per domain candidate, child of the selected node,
//     inheriting its ContextID (scope.InitID on the first step).
//  c. evaluate: weighted nodes are persisted and opened, Discard-ed ones are dropped.
//  d. select: test open nodes in selector order, closing each; the first pass wins.
//     Exhausting the frontier -> ErrNoCandidates.
//  e. execute the selected node with the read-write namespace.
//  f. without backtracking, clear the frontier.
//  g. generate the next domain candidates from the selected node.
//  h. Frame.Next.
//
// Determinism: with deterministic strategies, two runs over equal inputs select the same nodes.

package solver

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/katalvlaran/lvplan/graph"
	"github.com/katalvlaran/lvplan/scope"
)

// Solver searches a domain graph with pluggable strategies.
// A Solver holds no run state; Eval may be called repeatedly.
type Solver struct {
	domain     *graph.Graph
	isSolution SolutionFunc
	opts       Options
}

// New returns a Solver over domain that stops when isSolution reports true.
// Errors: ErrNilDomain, ErrOptionViolation.
func New(domain *graph.Graph, isSolution SolutionFunc, opts ...Option) (*Solver, error) {
	if domain == nil {
		return nil, ErrNilDomain
	}
	if isSolution == nil {
		return nil, fmt.Errorf("%w: nil solution predicate", ErrOptionViolation)
	}
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.err != nil {
		return nil, o.err
	}

	return &Solver{domain: domain, isSolution: isSolution, opts: o}, nil
}

// Domain returns the problem definition graph.
func (s *Solver) Domain() *graph.Graph { return s.domain }

// Options returns a copy of the effective options.
func (s *Solver) Options() Options { return s.opts }

// Eval runs the search from the domain nodes in start.
//
// The returned Frame is never nil: on success Frame.Context and Frame.Selected hold the
// solution state; on failure they hold the state reached. Expected terminal failures are
// ErrNoCandidates and *BudgetExceededError; strategy failures arrive as *StrategyError.
func (s *Solver) Eval(ctx context.Context, start []*graph.Node, opts ...EvalOption) (frame *Frame, err error) {
	var cfg evalConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	space := cfg.space
	if space == nil {
		space = graph.NewSearchSpace(s.opts.Selector)
	}
	store := cfg.store
	if store == nil {
		if s.opts.Backtrack {
			store = scope.NewChainStore()
		} else {
			store = scope.NewFlatStore()
		}
	}

	runID := uuid.NewString()
	ctx, span := s.startSpan(ctx, runID)
	frame = NewFrame(s, store, space)
	frame.logger = loggerWithTrace(ctx, s.opts.Logger).With(slog.String("run_id", runID))
	defer func() { s.endSpan(span, frame, err) }()

	frame.logger.Debug("search started",
		slog.Int("start", len(start)),
		slog.Int("max_nodes", s.opts.MaxNodes),
		slog.Bool("backtrack", s.opts.Backtrack),
		slog.String("selector", space.Selector().String()),
	)

	candidates := start
	for {
		solved, serr := s.isSolution(frame.env)
		if serr != nil {
			return frame, strategyErr(CapabilitySolution, "", serr)
		}
		if solved {
			break
		}
		if candidates, err = s.step(ctx, frame, candidates); err != nil {
			frame.logger.Debug("search stopped", slog.Int("node_counter", frame.nodeCounter), slog.Any("error", err))
			return frame, err
		}
		if err = frame.Next(); err != nil {
			return frame, err
		}
		span.AddEvent("step", trace.WithAttributes(
			attribute.Int("lvplan.node_counter", frame.nodeCounter),
			attribute.Int("lvplan.open_nodes", frame.openNodes),
		))
	}
	frame.logger.Debug("search solved", slog.Int("node_counter", frame.nodeCounter))

	return frame, nil
}

// step runs one iteration and returns the next domain candidates.
func (s *Solver) step(ctx context.Context, f *Frame, candidates []*graph.Node) ([]*graph.Node, error) {
	if s.opts.MaxNodes > 0 && f.nodeCounter == s.opts.MaxNodes {
		return nil, &BudgetExceededError{NodeCounter: f.nodeCounter}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.logger.Debug("step", slog.Int("node_counter", f.nodeCounter), slog.Int("open_nodes", f.openNodes))

	instances, err := s.instantiate(f, candidates)
	if err != nil {
		return nil, err
	}
	if err = s.evaluate(f, instances); err != nil {
		return nil, err
	}

	selected, err := s.selectNode(f)
	if err != nil {
		return nil, err
	}
	f.selected = selected
	f.logger.Debug("selected", slog.String("node", selected.String()))

	if err = s.opts.Execute(selected, s.domain, f.wenv); err != nil {
		return nil, strategyErr(CapabilityExecution, selected.ID, err)
	}
	if !s.opts.Backtrack {
		f.space.CloseAll()
	}
	s.opts.Metrics.step(f.space.LenOpen())

	next, err := s.opts.Generate(selected, s.domain)
	if err != nil {
		return nil, strategyErr(CapabilityGeneration, selected.ID, err)
	}

	return next, nil
}

// instantiate creates one search node per domain candidate under the current selection.
func (s *Solver) instantiate(f *Frame, candidates []*graph.Node) ([]*graph.Node, error) {
	parent := f.selected
	contextID := scope.InitID
	if parent != nil {
		contextID = parent.ContextID
	}

	out := make([]*graph.Node, 0, len(candidates))
	for _, c := range candidates {
		n, err := f.space.CreateNode(
			graph.WithReference(c.ID),
			graph.WithIn(parent),
			graph.WithContextID(contextID),
		)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}

	return out, nil
}

// evaluate weighs instances and opens those with a valid weight.
func (s *Solver) evaluate(f *Frame, instances []*graph.Node) error {
	weights, err := s.opts.Evaluate(f.selected, instances, f.env)
	if err != nil {
		return strategyErr(CapabilityEvaluation, selectedID(f), err)
	}
	if len(weights) != len(instances) {
		return strategyErr(CapabilityEvaluation, selectedID(f),
			fmt.Errorf("got %d weights for %d nodes", len(weights), len(instances)))
	}

	for i, n := range instances {
		w := weights[i]
		s.opts.Metrics.candidate(w.Valid)
		if !w.Valid {
			f.logger.Debug("candidate discarded", slog.String("node", n.ID), slog.String("reference", n.Reference))
			continue
		}
		n.SetWeight(w.Value)
		if err = f.space.UpdateNode(n); err != nil {
			return err
		}
		if err = f.space.OpenNode(n); err != nil {
			return err
		}
		f.logger.Debug("candidate opened", slog.String("node", n.ID),
			slog.String("reference", n.Reference), slog.Float64("weight", w.Value))
	}

	return nil
}

// selectNode tests open nodes in selector order, closing each, and returns the first pass.
// Each test reads through the candidate's own branch scope; on failure the scope in
// effect before selection is restored.
func (s *Solver) selectNode(f *Frame) (*graph.Node, error) {
	current := f.context
	fail := func(err error) (*graph.Node, error) {
		f.context = current
		return nil, err
	}
	for n, err := range f.space.OpenNodes() {
		if err != nil {
			return fail(err)
		}
		branch, err := f.store.Get(n.ContextID)
		if err != nil {
			return fail(err)
		}
		f.context = branch
		ok, err := s.opts.Test(n, s.domain, f.env)
		if err != nil {
			return fail(strategyErr(CapabilityTest, n.ID, err))
		}
		if err = f.space.CloseNode(n); err != nil {
			return fail(err)
		}
		s.opts.Metrics.test(ok)
		f.logger.Debug("tested", slog.String("node", n.String()), slog.Bool("pass", ok))
		if ok {
			return n, nil
		}
	}

	return fail(ErrNoCandidates)
}

func selectedID(f *Frame) string {
	if f.selected == nil {
		return ""
	}

	return f.selected.ID
}
