package match

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/c360/represent/errors"
)

// maxDocumentSize bounds how much of a reader Decode will consume
const maxDocumentSize = 4 << 30

// Decode reads and validates a match document.
// A document that is not JSON or lacks the sequence → accession → match nesting
// is fatal and reported as errors.ErrMalformedInput.
func Decode(r io.Reader) (*Set, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxDocumentSize))
	if err != nil {
		return nil, errors.WrapFatal(err, "Decoder", "Decode", "read document")
	}
	return DecodeBytes(data)
}

// DecodeBytes decodes a match document held in memory
func DecodeBytes(data []byte) (*Set, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.WrapFatal(errors.ErrMalformedInput, "Decoder", "Decode", "empty document")
	}
	if err := Validate(data); err != nil {
		return nil, err
	}

	var doc map[string]map[string]*Match
	if err := json.Unmarshal(data, &doc); err != nil {
		if errors.IsFatal(err) {
			return nil, err
		}
		return nil, errors.WrapFatal(errors.ErrMalformedInput, "Decoder", "Decode", "parse document: "+err.Error())
	}

	set := NewSet()
	for id, matches := range doc {
		protein := NewProtein(id)
		for acc, m := range matches {
			if m == nil {
				return nil, errors.WrapFatal(errors.ErrMalformedInput, "Decoder", "Decode",
					"null match "+acc+" on "+id)
			}
			m.Accession = acc
			for _, loc := range m.Locations {
				if loc == nil {
					return nil, errors.WrapFatal(errors.ErrMalformedInput, "Decoder", "Decode",
						"null location in "+acc+" on "+id)
				}
			}
			protein.Add(m)
		}
		set.Add(protein)
	}
	return set, nil
}

// Encode writes the document in the canonical artifact shape.
// Output is deterministic: object keys are emitted in sorted order.
func Encode(w io.Writer, set *Set, indent bool) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(set); err != nil {
		return errors.Wrap(err, "Encoder", "Encode", "write document")
	}
	return nil
}

// MarshalJSON encodes the set as sequence id → accession → match
func (s *Set) MarshalJSON() ([]byte, error) {
	doc := make(map[string]map[string]*Match, len(s.Proteins))
	for id, p := range s.Proteins {
		matches := make(map[string]*Match, len(p.Matches))
		for acc, m := range p.Matches {
			matches[acc] = m
		}
		doc[id] = matches
	}
	return json.Marshal(doc)
}
