package solver_test

import (
	"context"
	"fmt"

	"github.com/katalvlaran/lvplan/graph"
	"github.com/katalvlaran/lvplan/scope"
	"github.com/katalvlaran/lvplan/solver"
)

// ExampleSolver_Eval counts down a fact in the root scope until it reaches zero.
func ExampleSolver_Eval() {
	domain := graph.NewGraph()
	tick, _ := domain.CreateNode(graph.WithID("tick"),
		graph.WithField(solver.FieldAction, solver.ActionFunc(func(env *solver.WriteEnv) error {
			n, err := env.Read("n")
			if err != nil {
				return err
			}
			env.WriteGlobal("n", n.(int)-1)
			return nil
		})))
	_ = domain.CreateRelationship(tick, tick)

	store := scope.NewFlatStore()
	store.Init().Set("n", 3)

	s, _ := solver.New(domain, func(env *solver.Env) (bool, error) {
		n, err := env.Read("n")
		return err == nil && n.(int) == 0, err
	}, solver.WithBacktracking(false))

	frame, err := s.Eval(context.Background(), []*graph.Node{tick}, solver.WithStore(store))
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	fmt.Println("steps:", frame.NodeCounter())
	// Output:
	// steps: 3
}
