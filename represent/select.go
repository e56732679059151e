package represent

import "slices"

// Selection is the outcome of one cluster
type Selection struct {
	// Winners are the candidates of the best clique, in considered order
	Winners []*Candidate
	// Considered are the candidates left after capping, in the order enumerated
	Considered []*Candidate
	// Dropped are the candidates removed by the cap
	Dropped []*Candidate
	// Coverage is the number of distinct residues covered by the winners
	Coverage int
	// PrimaryCount is how many winners come from the highest-priority database
	PrimaryCount int
	// Cliques is how many cliques were scored
	Cliques int
}

// score of one clique; higher coverage wins, then more rank-0 members, then the
// lexicographically smallest index tuple
type score struct {
	coverage int
	primary  int
	members  []int
}

func (s score) beats(o score) bool {
	if s.coverage != o.coverage {
		return s.coverage > o.coverage
	}
	if s.primary != o.primary {
		return s.primary > o.primary
	}
	return slices.Compare(s.members, o.members) < 0
}

// SelectBest scores every clique the enumerator visits and returns the best one.
// Candidates must already be capped; their slice order defines clique indices.
func SelectBest(candidates []*Candidate, g *CompatibilityGraph, enumerate Enumerator) Selection {
	sel := Selection{Considered: candidates}
	if len(candidates) == 0 {
		return sel
	}

	first, last := candidates[0].Coverage.First(), candidates[0].Coverage.Last()
	for _, c := range candidates[1:] {
		first = min(first, c.Coverage.First())
		last = max(last, c.Coverage.Last())
	}

	residues := make([]residueSet, len(candidates))
	for i, c := range candidates {
		residues[i] = newResidueSet(first, last)
		residues[i].add(c.Coverage)
	}
	union := newResidueSet(first, last)

	var best score
	found := false
	sel.Cliques = enumerate(g, func(clique []int) {
		union.clear()
		primary := 0
		for _, idx := range clique {
			union.union(residues[idx])
			if candidates[idx].Rank == 0 {
				primary++
			}
		}
		s := score{coverage: union.count(), primary: primary, members: clique}
		if !found || s.beats(best) {
			s.members = slices.Clone(clique)
			best = s
			found = true
		}
	})

	sel.Coverage = best.coverage
	sel.PrimaryCount = best.primary
	for _, idx := range best.members {
		sel.Winners = append(sel.Winners, candidates[idx])
	}
	return sel
}

// selectCluster runs capping, graph construction and best-subset selection for one cluster
func selectCluster(cluster Cluster, cfg Config, enumerate Enumerator) Selection {
	kept, dropped := CapCluster(cluster.Candidates, cfg.MaxDomainsPerGroup)
	g := BuildGraph(kept, cfg.OverlapThreshold)
	sel := SelectBest(kept, g, enumerate)
	sel.Dropped = dropped
	return sel
}
