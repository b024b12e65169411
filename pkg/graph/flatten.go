package graph

// Flatten produces the complete deduplicated set of nodes reachable from
// roots via the structural child relationship.
//
// Roots are deduplicated by identity first: scanning overlapping inputs can
// hand the pipeline the same top-level node more than once, and each
// distinct identity must be persisted exactly once. Traversal follows only
// Children (semantic relations are ignored, so cycles through them cannot
// cause non-termination), and an already-visited identity is never expanded
// again, which keeps shared substructure linear instead of exponential.
//
// The result preserves discovery order (roots first, then descendants in
// depth-first order) so that batch writes and tests are deterministic. It is
// always a superset of the deduplicated roots. Flatten has no side effects
// on the borrowed nodes.
func Flatten(roots []*Node) []*Node {
	seen := make(map[string]struct{}, len(roots))
	out := make([]*Node, 0, len(roots))

	for _, root := range roots {
		if root == nil {
			continue
		}
		if _, dup := seen[root.ID]; dup {
			continue
		}

		// Iterative traversal: deeply nested declaration trees must not
		// be limited by goroutine stack growth.
		stack := []*Node{root}
		for len(stack) > 0 {
			n := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			if _, ok := seen[n.ID]; ok {
				continue
			}
			seen[n.ID] = struct{}{}
			out = append(out, n)

			// Push children in reverse so they pop in insertion order.
			for i := len(n.children) - 1; i >= 0; i-- {
				if c := n.children[i]; c != nil {
					stack = append(stack, c)
				}
			}
		}
	}
	return out
}
