package solver

import (
	"log/slog"
	"maps"

	"github.com/katalvlaran/lvplan/graph"
)

// Env is the read-only namespace handed to strategies.
// Counters are the values fixed at the start of the current step.
type Env struct {
	frame *Frame
}

// NodeCounter is the number of completed steps.
func (e *Env) NodeCounter() int { return e.frame.nodeCounter }

// OpenNodesCounter is the frontier size at the start of the step.
func (e *Env) OpenNodesCounter() int { return e.frame.openNodes }

// Read resolves key through the current scope chain. Errors: scope.ErrKeyNotFound.
func (e *Env) Read(key string) (any, error) { return e.frame.context.Lookup(key) }

// ReadOr resolves key, returning def when it is not visible.
func (e *Env) ReadOr(key string, def any) any {
	if v, ok := e.frame.context.Get(key); ok {
		return v
	}

	return def
}

// Builtin returns an embedder-supplied utility by name.
func (e *Env) Builtin(name string) (any, bool) {
	v, ok := e.frame.solver.opts.Builtins[name]

	return v, ok
}

// Builtins returns a copy of all embedder-supplied utilities.
func (e *Env) Builtins() map[string]any { return maps.Clone(e.frame.solver.opts.Builtins) }

// Logger is the run logger, carrying run and trace ids.
func (e *Env) Logger() *slog.Logger { return e.frame.logger }

// Selected is the node chosen by the previous step (nil on the first step)
// or, during execution, the node being executed.
func (e *Env) Selected() *graph.Node { return e.frame.selected }

// Domain is the problem definition graph.
func (e *Env) Domain() *graph.Graph { return e.frame.solver.domain }

// WriteEnv extends Env with scope writes. Only execution strategies receive it.
type WriteEnv struct {
	*Env
}

// Write stores key in the selected node's own scope, creating it on first use.
func (w *WriteEnv) Write(key string, v any) error {
	s, err := w.frame.WriteContext()
	if err != nil {
		return err
	}
	s.Set(key, v)

	return nil
}

// WriteGlobal stores key in the root scope, visible to every branch.
func (w *WriteEnv) WriteGlobal(key string, v any) {
	w.frame.store.Init().Set(key, v)
}
