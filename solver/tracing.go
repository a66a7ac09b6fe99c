package solver

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/katalvlaran/lvplan/solver"

// Run results used for the runs metric and the span status.
const (
	resultSolved         = "solved"
	resultNoCandidates   = "no_candidates"
	resultBudgetExceeded = "budget_exceeded"
	resultError          = "error"
)

func (s *Solver) startSpan(ctx context.Context, runID string) (context.Context, trace.Span) {
	tracer := s.opts.Tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}

	return tracer.Start(ctx, "lvplan.eval",
		trace.WithAttributes(
			attribute.String("lvplan.run_id", runID),
			attribute.Int("lvplan.max_nodes", s.opts.MaxNodes),
			attribute.Bool("lvplan.backtrack", s.opts.Backtrack),
			attribute.String("lvplan.selector", s.opts.Selector.String()),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// endSpan classifies err, records it on span and metrics, and closes the span.
func (s *Solver) endSpan(span trace.Span, f *Frame, err error) {
	result := classify(err)
	s.opts.Metrics.run(result)

	span.SetAttributes(
		attribute.Int("lvplan.node_counter", f.nodeCounter),
		attribute.String("lvplan.result", result),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, result)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

func classify(err error) string {
	switch {
	case err == nil:
		return resultSolved
	case errors.Is(err, ErrNoCandidates):
		return resultNoCandidates
	case errors.Is(err, ErrBudgetExceeded):
		return resultBudgetExceeded
	default:
		return resultError
	}
}

// loggerWithTrace adds trace_id / span_id when ctx carries a valid span.
func loggerWithTrace(ctx context.Context, logger *slog.Logger) *slog.Logger {
	spanCtx := trace.SpanContextFromContext(ctx)
	if !spanCtx.IsValid() {
		return logger
	}

	return logger.With(
		slog.String("trace_id", spanCtx.TraceID().String()),
		slog.String("span_id", spanCtx.SpanID().String()),
	)
}
