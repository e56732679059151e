package represent

import "sort"

// Enumerator visits cliques of a compatibility graph and returns how many it visited.
// The slice passed to visit holds ascending vertex indices and is only valid for the
// duration of the call.
type Enumerator func(g *CompatibilityGraph, visit func(clique []int)) int

// enumeratorFor returns the enumerator named by strategy
func enumeratorFor(strategy string) Enumerator {
	if strategy == StrategyMaximal {
		return EnumerateMaximalCliques
	}
	return EnumerateCliques
}

// EnumerateCliques visits every clique of g, the empty set included.
// It decides each vertex in index order, first trying to include it (only when it
// is compatible with everything already included) and then excluding it. A subset
// is visited once every vertex has been decided.
func EnumerateCliques(g *CompatibilityGraph, visit func(clique []int)) int {
	n := g.Len()
	current := make([]int, 0, n)
	visited := 0

	var decide func(i int)
	decide = func(i int) {
		if i == n {
			visited++
			visit(current)
			return
		}
		if g.CompatibleWithAll(i, current) {
			current = append(current, i)
			decide(i + 1)
			current = current[:len(current)-1]
		}
		decide(i + 1)
	}
	decide(0)
	return visited
}

// EnumerateMaximalCliques visits every maximal clique of g using Bron–Kerbosch
// with pivoting. An empty graph yields a single empty clique.
func EnumerateMaximalCliques(g *CompatibilityGraph, visit func(clique []int)) int {
	n := g.Len()
	all := make([]int, n)
	for i := range all {
		all[i] = i
	}

	visited := 0
	sorted := make([]int, 0, n)
	emit := func(r []int) {
		sorted = append(sorted[:0], r...)
		sort.Ints(sorted)
		visited++
		visit(sorted)
	}

	var expand func(r, p, x []int)
	expand = func(r, p, x []int) {
		if len(p) == 0 {
			if len(x) == 0 {
				emit(r)
			}
			return
		}

		pivot := choosePivot(g, p, x)
		var branches []int
		for _, v := range p {
			if !g.Compatible(pivot, v) {
				branches = append(branches, v)
			}
		}

		for _, v := range branches {
			expand(append(r, v), g.neighbours(p, v), g.neighbours(x, v))
			p = without(p, v)
			x = append(x, v)
		}
	}
	expand(make([]int, 0, n), all, nil)
	return visited
}

// choosePivot picks the vertex of p ∪ x with the most neighbours in p
func choosePivot(g *CompatibilityGraph, p, x []int) int {
	best, bestDegree := -1, -1
	consider := func(u int) {
		degree := 0
		for _, v := range p {
			if g.Compatible(u, v) {
				degree++
			}
		}
		if degree > bestDegree {
			best, bestDegree = u, degree
		}
	}
	for _, u := range p {
		consider(u)
	}
	for _, u := range x {
		consider(u)
	}
	return best
}

// without returns a copy of set with v removed
func without(set []int, v int) []int {
	out := make([]int, 0, len(set))
	for _, u := range set {
		if u != v {
			out = append(out, u)
		}
	}
	return out
}
