package match

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/c360/represent/errors"
)

// JSON keys of the canonical match artifact
const (
	keyMemberDB       = "member_db"
	keyLocations      = "locations"
	keyStart          = "start"
	keyEnd            = "end"
	keyFragments      = "location-fragments"
	keyDCStatus       = "dc-status"
	keyRepresentative = "representative"
)

// DCStatus describes whether a fragment is continuous or discontinuous at its termini
type DCStatus string

// Fragment discontinuity states
const (
	Continuous     DCStatus = "CONTINUOUS"
	NTerminalDisc  DCStatus = "N_TERMINAL_DISC"
	CTerminalDisc  DCStatus = "C_TERMINAL_DISC"
	NCTerminalDisc DCStatus = "NC_TERMINAL_DISC"

	defaultDCStatus = Continuous
)

// coordinates are held in 32-bit range
const coordinateBits = 32

// ParseDCStatus parses a dc-status value. An empty value means CONTINUOUS.
func ParseDCStatus(s string) (DCStatus, error) {
	switch DCStatus(strings.ToUpper(strings.TrimSpace(s))) {
	case "":
		return defaultDCStatus, nil
	case Continuous:
		return Continuous, nil
	case NTerminalDisc:
		return NTerminalDisc, nil
	case CTerminalDisc:
		return CTerminalDisc, nil
	case NCTerminalDisc:
		return NCTerminalDisc, nil
	default:
		return "", fmt.Errorf("unknown dc-status %q", s)
	}
}

// Fragment is one contiguous piece of a location, 1-based and inclusive
type Fragment struct {
	Start    int
	End      int
	DCStatus DCStatus
}

// Location is one hit of a signature on a protein.
type Location struct {
	Start          int
	End            int
	Fragments      []Fragment
	Representative bool

	err   error
	dirty bool
	raw   map[string]json.RawMessage
}

// NewLocation builds a continuous location without explicit fragments
func NewLocation(start, end int) *Location {
	return &Location{Start: start, End: end}
}

// Err reports why the location's coordinates could not be interpreted, or nil
func (l *Location) Err() error {
	return l.err
}

// SetRepresentative records the representative flag; it is written back on encode
func (l *Location) SetRepresentative(v bool) {
	l.Representative = v
	l.dirty = true
}

// UnmarshalJSON decodes a location object. Unusable coordinates do not fail decoding;
// they are reported through Err so a single bad record cannot abort a document.
func (l *Location) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return errors.WrapFatal(errors.ErrMalformedInput, "Location", "UnmarshalJSON", "decode location object")
	}
	*l = Location{raw: raw}

	if v, ok := raw[keyRepresentative]; ok {
		l.Representative = parseFlag(v)
	}

	start, err := requiredCoordinate(raw, keyStart)
	if err != nil {
		l.err = err
		return nil
	}
	end, err := requiredCoordinate(raw, keyEnd)
	if err != nil {
		l.err = err
		return nil
	}
	l.Start, l.End = start, end

	if v, ok := raw[keyFragments]; ok && !isNull(v) {
		frags, err := parseFragments(v)
		if err != nil {
			l.err = err
			return nil
		}
		l.Fragments = frags
	}
	return nil
}

// MarshalJSON re-encodes the location, preserving keys the engine does not own
func (l *Location) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(l.raw)+1)
	for k, v := range l.raw {
		out[k] = v
	}
	if l.raw == nil {
		out[keyStart] = l.Start
		out[keyEnd] = l.End
		if len(l.Fragments) > 0 {
			frags := make([]map[string]any, 0, len(l.Fragments))
			for _, f := range l.Fragments {
				frags = append(frags, map[string]any{
					keyStart:    f.Start,
					keyEnd:      f.End,
					keyDCStatus: string(f.DCStatus),
				})
			}
			out[keyFragments] = frags
		}
	}
	if l.dirty || l.raw == nil {
		out[keyRepresentative] = l.Representative
	}
	return json.Marshal(out)
}

// Match is the record of one signature on one protein
type Match struct {
	Accession string
	MemberDB  string
	Locations []*Location

	raw map[string]json.RawMessage
}

// UnmarshalJSON decodes a match object
func (m *Match) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return errors.WrapFatal(errors.ErrMalformedInput, "Match", "UnmarshalJSON", "decode match object")
	}
	*m = Match{raw: raw}

	if v, ok := raw[keyMemberDB]; ok {
		if err := json.Unmarshal(v, &m.MemberDB); err != nil {
			return errors.WrapFatal(errors.ErrMalformedInput, "Match", "UnmarshalJSON", "decode member_db")
		}
	}
	if v, ok := raw[keyLocations]; ok && !isNull(v) {
		if err := json.Unmarshal(v, &m.Locations); err != nil {
			return errors.WrapFatal(errors.ErrMalformedInput, "Match", "UnmarshalJSON", "decode locations")
		}
	}
	return nil
}

// MarshalJSON re-encodes the match with its (possibly updated) locations
func (m *Match) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(m.raw)+2)
	for k, v := range m.raw {
		out[k] = v
	}
	if m.raw == nil {
		out[keyMemberDB] = m.MemberDB
	}
	locations := m.Locations
	if locations == nil {
		locations = []*Location{}
	}
	out[keyLocations] = locations
	return json.Marshal(out)
}

// Protein holds every signature match of one sequence
type Protein struct {
	ID      string
	Matches map[string]*Match
}

// NewProtein creates an empty protein record
func NewProtein(id string) *Protein {
	return &Protein{ID: id, Matches: make(map[string]*Match)}
}

// Add registers a match under its accession
func (p *Protein) Add(m *Match) {
	p.Matches[m.Accession] = m
}

// Accessions returns the protein's signature accessions in sorted order
func (p *Protein) Accessions() []string {
	accs := make([]string, 0, len(p.Matches))
	for acc := range p.Matches {
		accs = append(accs, acc)
	}
	sort.Strings(accs)
	return accs
}

// Set is a decoded match document, keyed by sequence id
type Set struct {
	Proteins map[string]*Protein
}

// NewSet creates an empty document
func NewSet() *Set {
	return &Set{Proteins: make(map[string]*Protein)}
}

// Add registers a protein under its id
func (s *Set) Add(p *Protein) {
	s.Proteins[p.ID] = p
}

// IDs returns the sequence ids in sorted order
func (s *Set) IDs() []string {
	ids := make([]string, 0, len(s.Proteins))
	for id := range s.Proteins {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of proteins in the document
func (s *Set) Len() int {
	return len(s.Proteins)
}

func requiredCoordinate(raw map[string]json.RawMessage, key string) (int, error) {
	v, ok := raw[key]
	if !ok || isNull(v) {
		return 0, errors.WrapInvalid(errors.ErrMalformedLocation, "Location", "UnmarshalJSON", "missing "+key)
	}
	n, err := parseCoordinate(v)
	if err != nil {
		return 0, errors.WrapInvalid(fmt.Errorf("%w: %s: %v", errors.ErrMalformedLocation, key, err),
			"Location", "UnmarshalJSON", "parse "+key)
	}
	return n, nil
}

// parseCoordinate accepts JSON integers and integer strings
func parseCoordinate(v json.RawMessage) (int, error) {
	var num json.Number
	if err := json.Unmarshal(v, &num); err != nil {
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return 0, fmt.Errorf("not a number: %s", string(v))
		}
		num = json.Number(strings.TrimSpace(s))
	}
	n, err := strconv.ParseInt(num.String(), 10, coordinateBits)
	if err != nil {
		return 0, fmt.Errorf("not an integer: %s", num)
	}
	return int(n), nil
}

func parseFragments(v json.RawMessage) ([]Fragment, error) {
	var items []map[string]json.RawMessage
	if err := json.Unmarshal(v, &items); err != nil {
		return nil, errors.WrapInvalid(errors.ErrMalformedLocation, "Location", "parseFragments", "decode fragments")
	}
	frags := make([]Fragment, 0, len(items))
	for _, item := range items {
		start, err := requiredCoordinate(item, keyStart)
		if err != nil {
			return nil, err
		}
		end, err := requiredCoordinate(item, keyEnd)
		if err != nil {
			return nil, err
		}
		var status string
		if s, ok := item[keyDCStatus]; ok && !isNull(s) {
			if err := json.Unmarshal(s, &status); err != nil {
				return nil, errors.WrapInvalid(errors.ErrMalformedLocation, "Location", "parseFragments", "decode dc-status")
			}
		}
		dc, err := ParseDCStatus(status)
		if err != nil {
			return nil, errors.WrapInvalid(fmt.Errorf("%w: %v", errors.ErrMalformedLocation, err),
				"Location", "parseFragments", "parse dc-status")
		}
		frags = append(frags, Fragment{Start: start, End: end, DCStatus: dc})
	}
	return frags, nil
}

// parseFlag reads a representative value written either as a bool or a string
func parseFlag(v json.RawMessage) bool {
	var b bool
	if err := json.Unmarshal(v, &b); err == nil {
		return b
	}
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		parsed, err := strconv.ParseBool(strings.TrimSpace(s))
		return err == nil && parsed
	}
	return false
}

func isNull(v json.RawMessage) bool {
	return strings.TrimSpace(string(v)) == "null"
}
