package represent

import (
	"fmt"
	"sort"

	"github.com/c360/represent/errors"
	"github.com/c360/represent/match"
)

// Candidate is one eligible location under consideration for one protein.
// It lives only for the duration of a single protein's selection.
type Candidate struct {
	Accession string
	MemberDB  string
	Rank      int
	Fragments []match.Fragment
	Coverage  Coverage

	// Location is the record the representative flag is written to
	Location *match.Location

	// order is the candidate's position in extraction order, used as the final sort key
	order int
}

// Start returns the start of the candidate's first fragment
func (c *Candidate) Start() int {
	return c.Fragments[0].Start
}

// End returns the end of the candidate's last fragment
func (c *Candidate) End() int {
	return c.Fragments[len(c.Fragments)-1].End
}

// String identifies the candidate in logs
func (c *Candidate) String() string {
	return fmt.Sprintf("%s[%d-%d]", c.Accession, c.Start(), c.End())
}

// Rejection records an eligible location that could not become a candidate
type Rejection struct {
	Accession string
	Location  *match.Location
	Err       error
}

// Extract builds candidates from every location of every match whose member
// database is eligible. Accessions are visited in sorted order and locations in
// document order. Malformed locations are returned as rejections rather than errors.
func Extract(p *match.Protein, cfg Config) ([]*Candidate, []Rejection) {
	ranks := cfg.ranks()

	var candidates []*Candidate
	var rejected []Rejection
	for _, acc := range p.Accessions() {
		m := p.Matches[acc]
		rank, eligible := ranks[NormalizeDatabase(m.MemberDB)]
		if !eligible {
			continue
		}
		for _, loc := range m.Locations {
			cand, err := newCandidate(acc, m.MemberDB, rank, loc)
			if err != nil {
				rejected = append(rejected, Rejection{Accession: acc, Location: loc, Err: err})
				continue
			}
			cand.order = len(candidates)
			candidates = append(candidates, cand)
		}
	}
	return candidates, rejected
}

// newCandidate derives the fragment list and coverage of one location
func newCandidate(acc, db string, rank int, loc *match.Location) (*Candidate, error) {
	if err := loc.Err(); err != nil {
		return nil, err
	}

	frags := loc.Fragments
	if len(frags) == 0 {
		frags = []match.Fragment{{Start: loc.Start, End: loc.End, DCStatus: match.Continuous}}
	}

	cov, err := NewCoverage(frags)
	if err != nil {
		return nil, errors.WrapInvalid(fmt.Errorf("%w: %s: %v", errors.ErrMalformedLocation, acc, err),
			"Engine", "extract", "build coverage")
	}

	ordered := make([]match.Fragment, len(frags))
	copy(ordered, frags)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Start != ordered[j].Start {
			return ordered[i].Start < ordered[j].Start
		}
		return ordered[i].End < ordered[j].End
	})

	return &Candidate{
		Accession: acc,
		MemberDB:  db,
		Rank:      rank,
		Fragments: ordered,
		Coverage:  cov,
		Location:  loc,
	}, nil
}
