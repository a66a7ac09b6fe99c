// SPDX-License-Identifier: MIT
//
// File: strategy.go
// Role: Strategy contracts and the default strategy set.
// Defaults:
//   - generation: successors of the selected node's reference in the domain.
//   - evaluation: arrival order (open+len ... open+1), so earlier candidates rank higher under SelectMax.
//   - test / execution: run the Predicate / Action stored in the reference node's "test" / "action" field.

package solver

import (
	"fmt"

	"github.com/katalvlaran/lvplan/graph"
)

// Domain node fields read by the default test and execution strategies.
const (
	FieldTest   = "test"
	FieldAction = "action"
)

// Weight is an evaluation result: a score, or Discard (zero value) to drop the candidate.
type Weight struct {
	Value float64
	Valid bool
}

// Score returns a valid weight.
func Score(v float64) Weight { return Weight{Value: v, Valid: true} }

// Discard drops a candidate without opening it.
var Discard = Weight{}

// SolutionFunc reports whether the current state is a solution.
type SolutionFunc func(env *Env) (bool, error)

// GenerateFunc returns the domain candidates for the next step.
type GenerateFunc func(selected *graph.Node, domain *graph.Graph) ([]*graph.Node, error)

// EvaluateFunc returns one Weight per node, in order. parent is nil on the first step.
type EvaluateFunc func(parent *graph.Node, nodes []*graph.Node, env *Env) ([]Weight, error)

// TestFunc decides whether a search candidate is applicable. It must not write.
type TestFunc func(candidate *graph.Node, domain *graph.Graph, env *Env) (bool, error)

// ExecuteFunc performs the side effects of the selected search node.
type ExecuteFunc func(selected *graph.Node, domain *graph.Graph, env *WriteEnv) error

// Predicate is a test stored in a domain node's "test" field.
type Predicate interface {
	Eval(env *Env) (bool, error)
}

// Action is an effect stored in a domain node's "action" field.
type Action interface {
	Run(env *WriteEnv) error
}

// PredicateFunc adapts a function to Predicate.
type PredicateFunc func(env *Env) (bool, error)

func (f PredicateFunc) Eval(env *Env) (bool, error) { return f(env) }

// ActionFunc adapts a function to Action.
type ActionFunc func(env *WriteEnv) error

func (f ActionFunc) Run(env *WriteEnv) error { return f(env) }

// GenerateSuccessors yields the domain successors of the node selected referenced.
func GenerateSuccessors(selected *graph.Node, domain *graph.Graph) ([]*graph.Node, error) {
	ref, err := domain.GetNode(selected.Reference)
	if err != nil {
		return nil, err
	}

	return graph.Collect(domain.Successors(ref))
}

// EvaluateOrder scores nodes by arrival: open+len for the first down to open+1 for the last.
func EvaluateOrder(_ *graph.Node, nodes []*graph.Node, env *Env) ([]Weight, error) {
	base := env.OpenNodesCounter()
	out := make([]Weight, len(nodes))
	for i := range nodes {
		out[i] = Score(float64(base + len(nodes) - i))
	}

	return out, nil
}

// TestField runs the "test" field of the candidate's reference node.
// A missing or nil field passes; a bool field is used as is.
func TestField(candidate *graph.Node, domain *graph.Graph, env *Env) (bool, error) {
	ref, err := domain.GetNode(candidate.Reference)
	if err != nil {
		return false, err
	}
	switch t := ref.Fields[FieldTest].(type) {
	case nil:
		return true, nil
	case Predicate:
		return t.Eval(env)
	case bool:
		return t, nil
	default:
		return false, fmt.Errorf("%w: %s.%s is %T", ErrUnsupportedField, ref.ID, FieldTest, t)
	}
}

// ExecuteField runs the "action" field of the selected node's reference node, if any.
func ExecuteField(selected *graph.Node, domain *graph.Graph, env *WriteEnv) error {
	ref, err := domain.GetNode(selected.Reference)
	if err != nil {
		return err
	}
	switch a := ref.Fields[FieldAction].(type) {
	case nil:
		return nil
	case Action:
		return a.Run(env)
	default:
		return fmt.Errorf("%w: %s.%s is %T", ErrUnsupportedField, ref.ID, FieldAction, a)
	}
}
