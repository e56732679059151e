// Package represent selects representative domain hits.
//
// For one protein the engine takes every location of a match from an eligible
// member database, groups locations whose spans chain together by overlap into
// clusters, and within each cluster picks the subset of pairwise-compatible
// locations that covers the most distinct residues. Those locations are flagged
// representative; every other eligible location is flagged false.
//
// The pipeline for one protein:
//
//	Extract            eligible locations -> []*Candidate (malformed ones rejected)
//	ClusterCandidates  sort by span, chain by positional overlap
//	CapCluster         keep the MaxDomainsPerGroup largest (coverage desc, rank asc)
//	BuildGraph         edge when OverlapFraction < OverlapThreshold
//	Enumerator         every clique, or maximal cliques only
//	SelectBest         coverage, then rank-0 count, then smallest index tuple
//
// Engine ties the stages together. Annotate handles one protein; AnnotateAll
// spreads a whole match.Set over a worker pool. Both are deterministic: the same
// input always produces the same flags.
//
// Two candidates are compatible when their shared residue count divided by the
// smaller coverage is below the threshold. A location with fragments covers the
// union of its fragments, so the gap between two discontinuous pieces is not
// counted as covered.
package represent
