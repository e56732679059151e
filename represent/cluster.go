package represent

import "sort"

// Cluster is a run of candidates whose spans chain together by positional overlap
type Cluster struct {
	Candidates []*Candidate
	Start      int
	End        int
}

// ClusterCandidates sorts candidates by (first fragment start, last fragment end)
// and groups them in a single pass: a candidate starting at or before the running
// cluster end joins the current cluster. Ties are ordered by rank, accession and
// extraction order so the result does not depend on input map order.
func ClusterCandidates(candidates []*Candidate) []Cluster {
	if len(candidates) == 0 {
		return nil
	}

	sorted := make([]*Candidate, len(candidates))
	copy(sorted, candidates)
	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Start() != b.Start() {
			return a.Start() < b.Start()
		}
		if a.End() != b.End() {
			return a.End() < b.End()
		}
		if a.Rank != b.Rank {
			return a.Rank < b.Rank
		}
		if a.Accession != b.Accession {
			return a.Accession < b.Accession
		}
		return a.order < b.order
	})

	var clusters []Cluster
	current := Cluster{Start: sorted[0].Start(), End: sorted[0].End()}
	for _, cand := range sorted {
		if len(current.Candidates) > 0 && cand.Start() > current.End {
			clusters = append(clusters, current)
			current = Cluster{Start: cand.Start(), End: cand.End()}
		}
		current.Candidates = append(current.Candidates, cand)
		current.End = max(current.End, cand.End())
	}
	return append(clusters, current)
}

// CapCluster bounds the number of candidates considered for one cluster.
// When the cluster holds more than limit candidates they are ordered by
// (coverage size desc, rank asc) and only the first limit are kept; the rest
// are returned as dropped and can never become representative.
// A cluster within the limit is returned unchanged.
func CapCluster(candidates []*Candidate, limit int) (kept, dropped []*Candidate) {
	if len(candidates) <= limit {
		return candidates, nil
	}

	ordered := make([]*Candidate, len(candidates))
	copy(ordered, candidates)
	sort.SliceStable(ordered, func(i, j int) bool {
		si, sj := ordered[i].Coverage.Size(), ordered[j].Coverage.Size()
		if si != sj {
			return si > sj
		}
		return ordered[i].Rank < ordered[j].Rank
	})
	return ordered[:limit], ordered[limit:]
}
