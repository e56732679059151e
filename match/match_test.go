package match

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/represent/errors"
)

const sampleDocument = `{
  "seq1": {
    "PF00069": {
      "member_db": "Pfam",
      "name": "Pkinase",
      "evalue": 1.2e-40,
      "locations": [
        {
          "start": 10,
          "end": 250,
          "score": 140.5,
          "representative": "",
          "location-fragments": [
            {"start": 10, "end": 100, "dc-status": "C_TERMINAL_DISC"},
            {"start": 150, "end": 250, "dc-status": "N_TERMINAL_DISC"}
          ]
        }
      ]
    },
    "PTHR24356": {
      "member_db": "PANTHER",
      "locations": [{"start": 1, "end": 300, "representative": "true"}]
    }
  },
  "seq2": {
    "SM00220": {
      "member_db": "SMART",
      "locations": [
        {"start": "5", "end": "60", "representative": false},
        {"end": 90},
        {"start": 70, "end": 90, "location-fragments": [{"start": 70, "end": 90, "dc-status": "SIDEWAYS"}]}
      ]
    }
  }
}`

func TestDecode_Sample(t *testing.T) {
	set, err := DecodeBytes([]byte(sampleDocument))
	require.NoError(t, err)

	assert.Equal(t, []string{"seq1", "seq2"}, set.IDs())
	assert.Equal(t, 2, set.Len())

	seq1 := set.Proteins["seq1"]
	assert.Equal(t, []string{"PF00069", "PTHR24356"}, seq1.Accessions())

	pfam := seq1.Matches["PF00069"]
	assert.Equal(t, "PF00069", pfam.Accession)
	assert.Equal(t, "Pfam", pfam.MemberDB)
	require.Len(t, pfam.Locations, 1)

	loc := pfam.Locations[0]
	require.NoError(t, loc.Err())
	assert.Equal(t, 10, loc.Start)
	assert.Equal(t, 250, loc.End)
	assert.False(t, loc.Representative)
	assert.Equal(t, []Fragment{
		{Start: 10, End: 100, DCStatus: CTerminalDisc},
		{Start: 150, End: 250, DCStatus: NTerminalDisc},
	}, loc.Fragments)

	assert.True(t, seq1.Matches["PTHR24356"].Locations[0].Representative)
}

func TestDecode_MalformedLocationsAreRecoverable(t *testing.T) {
	set, err := DecodeBytes([]byte(sampleDocument))
	require.NoError(t, err)

	locs := set.Proteins["seq2"].Matches["SM00220"].Locations
	require.Len(t, locs, 3)

	assert.NoError(t, locs[0].Err(), "string coordinates are accepted")
	assert.Equal(t, 5, locs[0].Start)
	assert.Equal(t, 60, locs[0].End)

	assert.True(t, errors.Is(locs[1].Err(), errors.ErrMalformedLocation), "missing start")
	assert.True(t, errors.IsInvalid(locs[1].Err()))

	assert.True(t, errors.Is(locs[2].Err(), errors.ErrMalformedLocation), "unknown dc-status")
}

func TestDecode_FatalDocuments(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"empty", "   "},
		{"not json", "{not json"},
		{"top level array", `[{"a": 1}]`},
		{"protein not object", `{"seq1": [1, 2]}`},
		{"match missing locations", `{"seq1": {"PF1": {"member_db": "Pfam"}}}`},
		{"match missing member_db", `{"seq1": {"PF1": {"locations": []}}}`},
		{"locations not array", `{"seq1": {"PF1": {"member_db": "Pfam", "locations": {}}}}`},
		{"location not object", `{"seq1": {"PF1": {"member_db": "Pfam", "locations": [3]}}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeBytes([]byte(tt.doc))
			require.Error(t, err)
			assert.True(t, errors.IsFatal(err), "error should be fatal: %v", err)
			assert.True(t, errors.Is(err, errors.ErrMalformedInput), "error should be ErrMalformedInput: %v", err)
		})
	}
}

func TestEncode_PreservesUnknownKeys(t *testing.T) {
	set, err := DecodeBytes([]byte(sampleDocument))
	require.NoError(t, err)

	set.Proteins["seq1"].Matches["PF00069"].Locations[0].SetRepresentative(true)

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, set, false))

	var got, want map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.NoError(t, json.Unmarshal([]byte(sampleDocument), &want))

	// Only the flag that was set should differ
	wantLoc := want["seq1"].(map[string]any)["PF00069"].(map[string]any)["locations"].([]any)[0].(map[string]any)
	wantLoc["representative"] = true

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("re-encoded document mismatch (-want +got):\n%s", diff)
	}
}

func TestEncode_Deterministic(t *testing.T) {
	encode := func() string {
		set, err := Decode(strings.NewReader(sampleDocument))
		require.NoError(t, err)
		var buf bytes.Buffer
		require.NoError(t, Encode(&buf, set, true))
		return buf.String()
	}

	first := encode()
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, encode())
	}
}

func TestLocation_MarshalBuiltInMemory(t *testing.T) {
	loc := NewLocation(3, 40)
	loc.Fragments = []Fragment{{Start: 3, End: 40, DCStatus: Continuous}}

	data, err := json.Marshal(loc)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"start":3,"end":40,"representative":false,"location-fragments":[{"start":3,"end":40,"dc-status":"CONTINUOUS"}]}`,
		string(data))

	m := &Match{Accession: "PF1", MemberDB: "Pfam", Locations: []*Location{loc}}
	data, err = json.Marshal(m)
	require.NoError(t, err)

	var decoded Match
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "Pfam", decoded.MemberDB)
	require.Len(t, decoded.Locations, 1)
	assert.Equal(t, 40, decoded.Locations[0].End)
}

func TestParseDCStatus(t *testing.T) {
	tests := []struct {
		in      string
		want    DCStatus
		wantErr bool
	}{
		{"", Continuous, false},
		{"CONTINUOUS", Continuous, false},
		{"n_terminal_disc", NTerminalDisc, false},
		{"C_TERMINAL_DISC", CTerminalDisc, false},
		{"NC_TERMINAL_DISC", NCTerminalDisc, false},
		{"BROKEN", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDCStatus(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
