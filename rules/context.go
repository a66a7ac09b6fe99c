package rules

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"

	"github.com/katalvlaran/lvplan/scope"
	"github.com/katalvlaran/lvplan/solver"
)

// Names visible to every rule.
const (
	VarNodeCounter      = "node_counter"
	VarOpenNodesCounter = "open_nodes_counter"
	VarSelected         = "selected"

	FuncRead        = "read"
	FuncWrite       = "write"
	FuncWriteGlobal = "write_global"
)

// stdFunctions is shared by every EvalContext; function.Function values are immutable.
var stdFunctions = map[string]function.Function{
	"abs":       stdlib.AbsoluteFunc,
	"ceil":      stdlib.CeilFunc,
	"floor":     stdlib.FloorFunc,
	"max":       stdlib.MaxFunc,
	"min":       stdlib.MinFunc,
	"upper":     stdlib.UpperFunc,
	"lower":     stdlib.LowerFunc,
	"length":    stdlib.LengthFunc,
	"concat":    stdlib.ConcatFunc,
	"contains":  stdlib.ContainsFunc,
	"keys":      stdlib.KeysFunc,
	"values":    stdlib.ValuesFunc,
	"merge":     stdlib.MergeFunc,
	"format":    stdlib.FormatFunc,
	"coalesce":  stdlib.CoalesceFunc,
	"join":      stdlib.JoinFunc,
	"split":     stdlib.SplitFunc,
	"strlen":    stdlib.StrlenFunc,
	"substr":    stdlib.SubstrFunc,
	"lookup":    stdlib.LookupFunc,
	"element":   stdlib.ElementFunc,
	"range":     stdlib.RangeFunc,
	"reverse":   stdlib.ReverseListFunc,
	"sort":      stdlib.SortFunc,
	"distinct":  stdlib.DistinctFunc,
	"flatten":   stdlib.FlattenFunc,
	"index":     stdlib.IndexFunc,
	"slice":     stdlib.SliceFunc,
	"trimspace": stdlib.TrimSpaceFunc,
	"zipmap":    stdlib.ZipmapFunc,
}

// StdFunctionNames lists the library functions available to rules.
func StdFunctionNames() []string { return sortedNames(stdFunctions) }

// newEvalContext builds the variables and functions of one evaluation.
// wenv == nil yields a read-only context without write / write_global.
func newEvalContext(env *solver.Env, wenv *solver.WriteEnv) *hcl.EvalContext {
	vars := map[string]cty.Value{
		VarNodeCounter:      cty.NumberIntVal(int64(env.NodeCounter())),
		VarOpenNodesCounter: cty.NumberIntVal(int64(env.OpenNodesCounter())),
		VarSelected:         selectedVal(env),
	}

	funcs := make(map[string]function.Function, len(stdFunctions)+3)
	for name, fn := range stdFunctions {
		funcs[name] = fn
	}
	funcs[FuncRead] = readFunc(env)
	if wenv != nil {
		funcs[FuncWrite] = writeFunc(wenv.Write)
		funcs[FuncWriteGlobal] = writeFunc(func(key string, v any) error {
			wenv.WriteGlobal(key, v)
			return nil
		})
	}

	builtins := env.Builtins()
	for _, name := range sortedNames(builtins) {
		switch b := builtins[name].(type) {
		case function.Function:
			funcs[name] = b
		case *function.Function:
			funcs[name] = *b
		default:
			v, err := ToCty(b)
			if err != nil {
				// Go-only utilities stay reachable through solver.Env.Builtin.
				env.Logger().Debug("builtin not visible to rules",
					slog.String("name", name), slog.String("error", err.Error()))
				continue
			}
			vars[name] = v
		}
	}

	return &hcl.EvalContext{Variables: vars, Functions: funcs}
}

func selectedVal(env *solver.Env) cty.Value {
	sel := env.Selected()
	if sel == nil {
		return cty.NullVal(cty.Object(map[string]cty.Type{"id": cty.String, "reference": cty.String}))
	}

	return cty.ObjectVal(map[string]cty.Value{
		"id":        cty.StringVal(sel.ID),
		"reference": cty.StringVal(sel.Reference),
	})
}

// readFunc implements read(key[, default]).
func readFunc(env *solver.Env) function.Function {
	return function.New(&function.Spec{
		Description: "Resolves key through the current scope chain.",
		Params: []function.Parameter{
			{Name: "key", Type: cty.String},
		},
		VarParam: &function.Parameter{
			Name:             "default",
			Type:             cty.DynamicPseudoType,
			AllowNull:        true,
			AllowDynamicType: true,
		},
		Type: function.StaticReturnType(cty.DynamicPseudoType),
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			if len(args) > 2 {
				return cty.NilVal, fmt.Errorf("read takes at most one default, got %d", len(args)-1)
			}
			key := args[0].AsString()
			v, err := env.Read(key)
			if err != nil {
				if errors.Is(err, scope.ErrKeyNotFound) && len(args) == 2 {
					return args[1], nil
				}
				return cty.NilVal, err
			}

			return ToCty(v)
		},
	})
}

// writeFunc implements write / write_global. The call evaluates to the written value.
func writeFunc(set func(key string, v any) error) function.Function {
	return function.New(&function.Spec{
		Params: []function.Parameter{
			{Name: "key", Type: cty.String},
			{Name: "value", Type: cty.DynamicPseudoType, AllowNull: true, AllowDynamicType: true},
		},
		Type: function.StaticReturnType(cty.DynamicPseudoType),
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			g, err := FromCty(args[1])
			if err != nil {
				return cty.NilVal, err
			}
			if err = set(args[0].AsString(), g); err != nil {
				return cty.NilVal, err
			}

			return args[1], nil
		},
	})
}

// StaticEvalContext exposes the library functions without variables or scope access,
// for literal values such as domain facts.
func StaticEvalContext() *hcl.EvalContext {
	funcs := make(map[string]function.Function, len(stdFunctions))
	for name, fn := range stdFunctions {
		funcs[name] = fn
	}

	return &hcl.EvalContext{Functions: funcs}
}
