// Package graph provides the node graph and weighted search frontier used by the solver.
//
// What
//
//   - Node: identity-bearing vertex with insertion-ordered in/out id sets,
//     typed search attributes (Weight, Reference, ContextID) and free-form Fields.
//   - Graph: nodes stored in a pluggable Collection (in-memory by default),
//     symmetric relationship wiring, lazy neighbour iteration via iter.Seq2.
//   - SearchSpace: a Graph plus an open frontier kept sorted by weight, read
//     high-to-low (SelectMax) or low-to-high (SelectMin).
//   - NodeSerializer / FieldCodec: Node <-> Record mapping with per-field codecs,
//     so fields such as rule expressions persist as source text.
//   - BFS: multi-source breadth-first traversal with hooks and cancellation.
//
// Invariants
//
//   - B.ID ∈ A.OutIDs ⇔ A.ID ∈ B.InIDs for every relationship created through Graph.
//   - Collection.NextID never returns a live id.
//   - Frontier slices stay sorted ascending; equal weights are read newest-first.
//
// Complexity (N = nodes, F = frontier size)
//
//   - CreateNode / GetNode / UpdateNode: O(fields) plus one backend call each.
//   - CreateRelationship: two record loads and at most two writes.
//   - OpenNode / CloseNode: O(log F) search + O(F) shift.
//   - BFS: O(N + arcs).
//
// Usage
//
//	g := graph.NewGraph()
//	a, _ := g.CreateNode(graph.WithID("a"))
//	b, _ := g.CreateNode(graph.WithID("b"), graph.WithIn(a))
//	for n, err := range g.Successors(a) { ... }
//
//	ss := graph.NewSearchSpace(graph.SelectMin)
//	n, _ := ss.CreateNode(graph.WithWeight(3), graph.WithReference(b.ID))
//	_ = ss.OpenNode(n)
package graph
