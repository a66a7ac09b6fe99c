// SPDX-License-Identifier: MIT
//
// File: expr.go
// Role: HCL expressions as solver predicates and actions.
// Policy:
//   - An Expr is parsed once and evaluated per call against a fresh EvalContext.
//   - Tests see read-only functions; actions additionally get write / write_global.
//   - Failures raised by Env (e.g. scope.ErrKeyNotFound) stay matchable through EvalError.
//   - HCL evaluates both arms of a conditional and both sides of && / ||, so Parse rejects
//     write / write_global calls in any position that reads as skippable.

package rules

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"

	"github.com/katalvlaran/lvplan/solver"
)

// Expr is a compiled rule. It implements solver.Predicate and solver.Action.
type Expr struct {
	src  string
	expr hclsyntax.Expression
}

var (
	_ solver.Predicate = (*Expr)(nil)
	_ solver.Action    = (*Expr)(nil)
)

// ParseError reports a syntax error with its position inside the rule source.
type ParseError struct {
	Source  string
	Line    int
	Column  int
	Summary string
	Detail  string
}

func (e *ParseError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "rules: %d:%d: %s", e.Line, e.Column, e.Summary)
	if e.Detail != "" {
		fmt.Fprintf(&b, "; %s", e.Detail)
	}
	if line := e.SourceLine(); line != "" {
		fmt.Fprintf(&b, "\n\t%s\n\t%s^", line, strings.Repeat(" ", max(e.Column-1, 0)))
	}

	return b.String()
}

// SourceLine returns the offending line of Source.
func (e *ParseError) SourceLine() string {
	lines := strings.Split(e.Source, "\n")
	if e.Line < 1 || e.Line > len(lines) {
		return ""
	}

	return lines[e.Line-1]
}

// EvalError reports a failed evaluation. Unwrap yields the error returned by a
// called function when there is one, otherwise the diagnostics.
type EvalError struct {
	Source string
	Diags  hcl.Diagnostics
	cause  error
}

func (e *EvalError) Error() string {
	return fmt.Sprintf("rules: eval %q: %s", e.Source, e.Diags.Error())
}

func (e *EvalError) Unwrap() error {
	if e.cause != nil {
		return e.cause
	}

	return e.Diags
}

// Parse compiles src. Errors: *ParseError.
func Parse(src string) (*Expr, error) {
	expr, diags := hclsyntax.ParseExpression([]byte(src), "rule", hcl.Pos{Line: 1, Column: 1})
	if diags.HasErrors() {
		d := firstError(diags)
		pe := &ParseError{Source: src, Summary: d.Summary, Detail: d.Detail, Line: 1, Column: 1}
		if d.Subject != nil {
			pe.Line, pe.Column = d.Subject.Start.Line, d.Subject.Start.Column
		}

		return nil, pe
	}
	if call := guardedWrite(expr); call != nil {
		return nil, &ParseError{
			Source:  src,
			Line:    call.NameRange.Start.Line,
			Column:  call.NameRange.Start.Column,
			Summary: fmt.Sprintf("%s inside a conditional branch", call.Name),
			Detail:  "both branches are evaluated; write the chosen value instead, e.g. write(key, cond ? a : b)",
		}
	}

	return &Expr{src: src, expr: expr}, nil
}

// guardedWrite returns the first write call placed in a conditional arm or on the
// right-hand side of a logical operator, or nil.
func guardedWrite(expr hclsyntax.Expression) *hclsyntax.FunctionCallExpr {
	var hit *hclsyntax.FunctionCallExpr
	_ = hclsyntax.VisitAll(expr, func(n hclsyntax.Node) hcl.Diagnostics {
		var arms []hclsyntax.Expression
		switch x := n.(type) {
		case *hclsyntax.ConditionalExpr:
			arms = []hclsyntax.Expression{x.TrueResult, x.FalseResult}
		case *hclsyntax.BinaryOpExpr:
			if x.Op == hclsyntax.OpLogicalAnd || x.Op == hclsyntax.OpLogicalOr {
				arms = []hclsyntax.Expression{x.RHS}
			}
		}
		for _, arm := range arms {
			if hit == nil {
				hit = firstWrite(arm)
			}
		}
		return nil
	})

	return hit
}

func firstWrite(expr hclsyntax.Expression) *hclsyntax.FunctionCallExpr {
	var hit *hclsyntax.FunctionCallExpr
	_ = hclsyntax.VisitAll(expr, func(n hclsyntax.Node) hcl.Diagnostics {
		if call, ok := n.(*hclsyntax.FunctionCallExpr); ok && hit == nil {
			if call.Name == FuncWrite || call.Name == FuncWriteGlobal {
				hit = call
			}
		}
		return nil
	})

	return hit
}

// MustParse is Parse that panics on error. For static rules in tests and examples.
func MustParse(src string) *Expr {
	e, err := Parse(src)
	if err != nil {
		panic(err)
	}

	return e
}

// Source returns the text the rule was parsed from.
func (e *Expr) Source() string { return e.src }

func (e *Expr) String() string { return e.src }

// References returns the sorted root names of the variables the rule reads.
func (e *Expr) References() []string {
	seen := make(map[string]struct{})
	for _, tr := range e.expr.Variables() {
		seen[tr.RootName()] = struct{}{}
	}

	return sortedNames(seen)
}

// Functions returns the sorted names of the functions the rule calls.
func (e *Expr) Functions() []string {
	seen := make(map[string]struct{})
	_ = hclsyntax.VisitAll(e.expr, func(n hclsyntax.Node) hcl.Diagnostics {
		if call, ok := n.(*hclsyntax.FunctionCallExpr); ok {
			seen[call.Name] = struct{}{}
		}
		return nil
	})

	return sortedNames(seen)
}

// Value evaluates the rule read-only.
func (e *Expr) Value(env *solver.Env) (cty.Value, error) {
	return e.value(newEvalContext(env, nil))
}

// Eval runs the rule as a test. Null is false; strings "true"/"false" convert.
func (e *Expr) Eval(env *solver.Env) (bool, error) {
	v, err := e.Value(env)
	if err != nil {
		return false, err
	}
	v, _ = v.UnmarkDeep()
	if v.IsNull() {
		return false, nil
	}
	if !v.IsKnown() {
		return false, fmt.Errorf("rules: %q evaluated to an unknown value", e.src)
	}
	b, err := convert.Convert(v, cty.Bool)
	if err != nil {
		return false, fmt.Errorf("rules: %q is not a condition: %w", e.src, err)
	}

	return b.True(), nil
}

// Run evaluates the rule as an action for its write side effects. The result is ignored.
func (e *Expr) Run(env *solver.WriteEnv) error {
	_, err := e.value(newEvalContext(env.Env, env))

	return err
}

func (e *Expr) value(ctx *hcl.EvalContext) (cty.Value, error) {
	v, diags := e.expr.Value(ctx)
	if diags.HasErrors() {
		return cty.NilVal, &EvalError{Source: e.src, Diags: diags, cause: callError(diags)}
	}

	return v, nil
}

// callError extracts the first error returned by a function implementation.
func callError(diags hcl.Diagnostics) error {
	for _, d := range diags {
		if extra, ok := hcl.DiagnosticExtra[hclsyntax.FunctionCallDiagExtra](d); ok {
			if err := extra.FunctionCallError(); err != nil {
				return unwrapFuncError(err)
			}
		}
	}

	return nil
}

// unwrapFuncError strips cty's argument wrapper so sentinel errors match directly.
func unwrapFuncError(err error) error {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
}

func firstError(diags hcl.Diagnostics) *hcl.Diagnostic {
	for _, d := range diags {
		if d.Severity == hcl.DiagError {
			return d
		}
	}

	return diags[0]
}
