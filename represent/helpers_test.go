package represent

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/c360/represent/match"
)

// newTestCandidate builds a candidate covering the given inclusive spans
func newTestCandidate(t *testing.T, acc string, rank int, spans ...[2]int) *Candidate {
	t.Helper()
	frags := make([]match.Fragment, len(spans))
	for i, s := range spans {
		frags[i] = match.Fragment{Start: s[0], End: s[1], DCStatus: match.Continuous}
	}
	cov, err := NewCoverage(frags)
	require.NoError(t, err)
	return &Candidate{
		Accession: acc,
		MemberDB:  DefaultDatabases[rank],
		Rank:      rank,
		Fragments: frags,
		Coverage:  cov,
		Location:  match.NewLocation(spans[0][0], spans[len(spans)-1][1]),
	}
}

// addMatch adds a single-location match to p and returns the location
func addMatch(p *match.Protein, acc, db string, start, end int) *match.Location {
	loc := match.NewLocation(start, end)
	m, ok := p.Matches[acc]
	if !ok {
		m = &match.Match{Accession: acc, MemberDB: db}
		p.Add(m)
	}
	m.Locations = append(m.Locations, loc)
	return loc
}

// randomProtein builds a protein with n locations spread over a short sequence.
// Roughly one location in six comes from an ineligible database and one in five
// is discontinuous.
func randomProtein(rng *rand.Rand, id string, n int) *match.Protein {
	dbs := append(append([]string{}, DefaultDatabases...), "PANTHER")
	p := match.NewProtein(id)
	for i := 0; i < n; i++ {
		start := 1 + rng.Intn(150)
		length := 10 + rng.Intn(70)
		loc := match.NewLocation(start, start+length-1)
		if rng.Intn(5) == 0 && length > 20 {
			gap := 2 + rng.Intn(length/2)
			loc.Fragments = []match.Fragment{
				{Start: start, End: start + gap - 2, DCStatus: match.CTerminalDisc},
				{Start: start + gap + 2, End: start + length - 1, DCStatus: match.NTerminalDisc},
			}
		}
		p.Add(&match.Match{
			Accession: fmt.Sprintf("SIG%03d", i),
			MemberDB:  dbs[rng.Intn(len(dbs))],
			Locations: []*match.Location{loc},
		})
	}
	return p
}

// residues returns the distinct residues covered by the candidates
func residues(cands ...*Candidate) map[int]struct{} {
	out := make(map[int]struct{})
	for _, c := range cands {
		for _, s := range c.Coverage {
			for pos := s.Start; pos <= s.End; pos++ {
				out[pos] = struct{}{}
			}
		}
	}
	return out
}

// bruteForceBest returns the best coverage and rank-0 count over every
// pairwise-compatible subset of cands
func bruteForceBest(cands []*Candidate, threshold float64) (coverage, primary int) {
	n := len(cands)
	for mask := 0; mask < 1<<n; mask++ {
		var subset []*Candidate
		for i := 0; i < n; i++ {
			if mask&(1<<i) != 0 {
				subset = append(subset, cands[i])
			}
		}
		if !pairwiseCompatible(subset, threshold) {
			continue
		}
		cov := len(residues(subset...))
		p := 0
		for _, c := range subset {
			if c.Rank == 0 {
				p++
			}
		}
		if cov > coverage || (cov == coverage && p > primary) {
			coverage, primary = cov, p
		}
	}
	return coverage, primary
}

func pairwiseCompatible(cands []*Candidate, threshold float64) bool {
	for i := range cands {
		for j := i + 1; j < len(cands); j++ {
			if OverlapFraction(cands[i].Coverage, cands[j].Coverage) >= threshold {
				return false
			}
		}
	}
	return true
}
