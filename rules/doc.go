// Package rules compiles HCL expressions into solver predicates and actions.
//
// A rule is a single HCL expression. Tests must evaluate to a bool (null counts as
// false); actions are evaluated for their side effects and their value is ignored.
//
// Evaluation context
//
//	variables  node_counter, open_nodes_counter, selected ({id, reference} or null)
//	functions  read(key[, default]), plus the cty standard library (StdFunctionNames)
//	actions    write(key, value), write_global(key, value)
//
// Builtins passed to the solver are exposed too: function.Function values as
// functions, anything ToCty accepts as variables.
//
//	test   = read("person").age >= 18
//	action = write("result", format("%s can vote", read("person").name))
//
// HCL evaluates both arms of a conditional and both operands of && and ||, so Parse
// rejects write / write_global in a conditional arm or on the right of a logical
// operator. Choose the value instead: write("verdict", adult ? "yes" : "no").
//
// Values cross the Go / cty boundary through ToCty and FromCty; numbers come back
// as float64. Codec plugs rule sources into a graph.NodeSerializer so domain
// nodes holding rules can live in any graph.Collection.
package rules
