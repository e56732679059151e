package represent

import (
	"fmt"
	"math/bits"
	"sort"

	"github.com/c360/represent/match"
)

// Span is an inclusive residue range
type Span struct {
	Start int
	End   int
}

// Len returns the number of residues in the span
func (s Span) Len() int {
	return s.End - s.Start + 1
}

// Coverage is the set of residues a candidate spans, held as sorted disjoint spans
type Coverage []Span

// NewCoverage builds the residue set of a fragment list.
// A fragment with end before start, or a non-positive start, is rejected.
func NewCoverage(frags []match.Fragment) (Coverage, error) {
	if len(frags) == 0 {
		return nil, fmt.Errorf("no fragments")
	}
	spans := make([]Span, 0, len(frags))
	for _, f := range frags {
		if f.Start < 1 {
			return nil, fmt.Errorf("fragment start %d is not positive", f.Start)
		}
		if f.End < f.Start {
			return nil, fmt.Errorf("fragment end %d before start %d", f.End, f.Start)
		}
		spans = append(spans, Span{Start: f.Start, End: f.End})
	}
	sort.Slice(spans, func(i, j int) bool {
		if spans[i].Start != spans[j].Start {
			return spans[i].Start < spans[j].Start
		}
		return spans[i].End < spans[j].End
	})

	merged := Coverage{spans[0]}
	for _, s := range spans[1:] {
		last := &merged[len(merged)-1]
		if s.Start <= last.End+1 {
			if s.End > last.End {
				last.End = s.End
			}
			continue
		}
		merged = append(merged, s)
	}
	return merged, nil
}

// Size returns the number of residues covered
func (c Coverage) Size() int {
	n := 0
	for _, s := range c {
		n += s.Len()
	}
	return n
}

// First returns the lowest covered residue
func (c Coverage) First() int {
	return c[0].Start
}

// Last returns the highest covered residue
func (c Coverage) Last() int {
	return c[len(c)-1].End
}

// Intersect returns the number of residues covered by both c and o
func (c Coverage) Intersect(o Coverage) int {
	shared := 0
	i, j := 0, 0
	for i < len(c) && j < len(o) {
		lo := max(c[i].Start, o[j].Start)
		hi := min(c[i].End, o[j].End)
		if lo <= hi {
			shared += hi - lo + 1
		}
		if c[i].End < o[j].End {
			i++
		} else {
			j++
		}
	}
	return shared
}

// OverlapFraction returns the shared residue count divided by the smaller coverage size
func OverlapFraction(a, b Coverage) float64 {
	smaller := min(a.Size(), b.Size())
	if smaller == 0 {
		return 0
	}
	return float64(a.Intersect(b)) / float64(smaller)
}

// residueSet is a bitset over the residues of one cluster, offset by origin
type residueSet struct {
	origin int
	words  []uint64
}

func newResidueSet(origin, last int) residueSet {
	width := last - origin + 1
	return residueSet{origin: origin, words: make([]uint64, (width+63)/64)}
}

func (r residueSet) add(c Coverage) {
	for _, s := range c {
		for pos := s.Start; pos <= s.End; pos++ {
			off := pos - r.origin
			r.words[off/64] |= 1 << (uint(off) % 64)
		}
	}
}

func (r residueSet) clear() {
	for i := range r.words {
		r.words[i] = 0
	}
}

func (r residueSet) union(o residueSet) {
	for i, w := range o.words {
		r.words[i] |= w
	}
}

func (r residueSet) count() int {
	n := 0
	for _, w := range r.words {
		n += bits.OnesCount64(w)
	}
	return n
}
