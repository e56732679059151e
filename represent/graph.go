package represent

// CompatibilityGraph records which candidates of one cluster may be kept together.
// The relation is symmetric and purely geometric.
type CompatibilityGraph struct {
	adj [][]bool
}

// BuildGraph connects every pair of candidates whose overlap fraction is below threshold.
// Candidates sharing no residue are always connected.
func BuildGraph(candidates []*Candidate, threshold float64) *CompatibilityGraph {
	n := len(candidates)
	adj := make([][]bool, n)
	for i := range adj {
		adj[i] = make([]bool, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if OverlapFraction(candidates[i].Coverage, candidates[j].Coverage) < threshold {
				adj[i][j] = true
				adj[j][i] = true
			}
		}
	}
	return &CompatibilityGraph{adj: adj}
}

// Len returns the number of vertices
func (g *CompatibilityGraph) Len() int {
	return len(g.adj)
}

// Compatible reports whether candidates i and j may coexist. A vertex is not
// compatible with itself.
func (g *CompatibilityGraph) Compatible(i, j int) bool {
	return g.adj[i][j]
}

// CompatibleWithAll reports whether v is compatible with every vertex in set
func (g *CompatibilityGraph) CompatibleWithAll(v int, set []int) bool {
	for _, u := range set {
		if !g.adj[v][u] {
			return false
		}
	}
	return true
}

// IsClique reports whether every pair in set is compatible
func (g *CompatibilityGraph) IsClique(set []int) bool {
	for i, u := range set {
		if !g.CompatibleWithAll(u, set[i+1:]) {
			return false
		}
	}
	return true
}

// neighbours returns the members of set compatible with v, as a new slice
func (g *CompatibilityGraph) neighbours(set []int, v int) []int {
	out := make([]int, 0, len(set))
	for _, u := range set {
		if g.adj[v][u] {
			out = append(out, u)
		}
	}
	return out
}
