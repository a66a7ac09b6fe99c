// Package lvplan is a generic state-space search engine: describe a problem as a
// graph of candidate steps, plug in how steps are weighed, tested and applied,
// and let the solver walk it until the goal state is reached.
//
// 🚀 What is lvplan?
//
//	A small planning toolkit built around best-first search with backtracking:
//		• graph/   : node records, pluggable collections, BFS and the weighted frontier
//		• scope/   : hierarchical key/value state, one scope per executed step
//		• solver/  : the search loop, strategies, budgets, metrics and tracing
//		• rules/   : HCL expressions as node tests and actions
//		• domain/  : HCL domain files: nodes, ordering, start set and facts
//		• storage/ : Badger and SQLite collections for large search spaces
//		• config/  : YAML + environment configuration and logging setup
//
// ✨ How a run works
//
//	Every step turns the current domain candidates into search nodes, weighs them,
//	opens the weighted ones on the frontier, tests open nodes in selector order until
//	one passes, executes it and asks the domain for its successors. State written by
//	an executed node lives in that node's scope, so a different branch never sees it.
//
// Quick ASCII example:
//
//	        [root]
//	        /    \
//	[can_vote]  [can_not_vote]
//
//	test   = read("person").age >= 18
//	action = write("result", "Can vote")
//
// Dive into examples/ for a rule-driven domain (voting) and a heuristic search over
// a sliding puzzle (puzzle), or run a domain straight from the command line:
//
//	go run ./cmd/lvplan run examples/voting/voting.hcl --path
package lvplan
