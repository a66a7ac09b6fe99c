// SPDX-License-Identifier: MIT

package solver

import (
	"errors"
	"fmt"
)

// Sentinel errors for solver execution.
var (
	// ErrNoCandidates is returned when every open candidate failed its test.
	// Terminal, expected outcome: the search ended without a solution.
	ErrNoCandidates = errors.New("solver: no candidate passed its test")

	// ErrBudgetExceeded is matched by *BudgetExceededError.
	ErrBudgetExceeded = errors.New("solver: node budget exceeded")

	// ErrNoSelection is returned by write operations attempted before any node was selected.
	ErrNoSelection = errors.New("solver: no node selected")

	// ErrUnsupportedField is returned when a test/action field holds a value the
	// default strategies cannot run.
	ErrUnsupportedField = errors.New("solver: unsupported field value")

	// ErrOptionViolation is returned by New when an invalid Option was supplied.
	ErrOptionViolation = errors.New("solver: invalid option supplied")

	// ErrNilDomain is returned by New for a nil domain graph.
	ErrNilDomain = errors.New("solver: domain graph is nil")
)

// BudgetExceededError reports the step count reached when the node budget ran out.
type BudgetExceededError struct {
	NodeCounter int
}

func (e *BudgetExceededError) Error() string {
	return fmt.Sprintf("%v (nodes: %d)", ErrBudgetExceeded, e.NodeCounter)
}

// Is makes errors.Is(err, ErrBudgetExceeded) hold.
func (e *BudgetExceededError) Is(target error) bool { return target == ErrBudgetExceeded }

// Capability names a pluggable strategy role.
type Capability string

const (
	CapabilitySolution   Capability = "solution"
	CapabilityGeneration Capability = "generation"
	CapabilityEvaluation Capability = "evaluation"
	CapabilityTest       Capability = "test"
	CapabilityExecution  Capability = "execution"
)

// StrategyError wraps a failure raised by an embedder-supplied strategy with the
// capability and node that produced it. Unwrap returns the original error untouched.
type StrategyError struct {
	Capability Capability
	NodeID     string // search node id; empty when no node is involved
	Err        error
}

func (e *StrategyError) Error() string {
	if e.NodeID == "" {
		return fmt.Sprintf("solver: %s strategy: %v", e.Capability, e.Err)
	}

	return fmt.Sprintf("solver: %s strategy on node %s: %v", e.Capability, e.NodeID, e.Err)
}

func (e *StrategyError) Unwrap() error { return e.Err }

func strategyErr(c Capability, nodeID string, err error) error {
	if err == nil {
		return nil
	}

	return &StrategyError{Capability: c, NodeID: nodeID, Err: err}
}
