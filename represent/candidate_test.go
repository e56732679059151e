package represent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/represent/errors"
	"github.com/c360/represent/match"
)

func TestExtract_Eligibility(t *testing.T) {
	p := match.NewProtein("P1")
	addMatch(p, "PF00001", "PFAM", 1, 50)
	addMatch(p, "cd00002", "CDD", 10, 60)
	addMatch(p, "PS50001", "PROSITE profiles", 5, 40)
	addMatch(p, "PTHR0001", "PANTHER", 1, 300)
	addMatch(p, "G3DSA:1", "Gene3D", 1, 300)

	cands, rejected := Extract(p, DefaultConfig())
	require.Empty(t, rejected)
	require.Len(t, cands, 3)

	// Accessions are visited in sorted order
	assert.Equal(t, "PF00001", cands[0].Accession)
	assert.Equal(t, 0, cands[0].Rank)
	assert.Equal(t, "PS50001", cands[1].Accession)
	assert.Equal(t, 2, cands[1].Rank, "spelling variants normalise to PROSITE_PROFILES")
	assert.Equal(t, "cd00002", cands[2].Accession)
	assert.Equal(t, 1, cands[2].Rank)

	for i, c := range cands {
		assert.Equal(t, i, c.order)
	}
}

func TestExtract_CustomDatabaseList(t *testing.T) {
	p := match.NewProtein("P1")
	addMatch(p, "PF00001", "PFAM", 1, 50)
	addMatch(p, "SM00001", "SMART", 1, 50)

	cfg := DefaultConfig()
	cfg.Databases = []string{"smart", "pfam"}
	cands, _ := Extract(p, cfg)
	require.Len(t, cands, 2)
	assert.Equal(t, 1, cands[0].Rank)
	assert.Equal(t, 0, cands[1].Rank)
}

func TestExtract_Fragments(t *testing.T) {
	p := match.NewProtein("P1")
	loc := addMatch(p, "PF00001", "PFAM", 1, 100)
	loc.Fragments = []match.Fragment{
		{Start: 61, End: 100, DCStatus: match.NTerminalDisc},
		{Start: 1, End: 40, DCStatus: match.CTerminalDisc},
	}
	addMatch(p, "PF00002", "PFAM", 30, 80)

	cands, rejected := Extract(p, DefaultConfig())
	require.Empty(t, rejected)
	require.Len(t, cands, 2)

	disc := cands[0]
	assert.Equal(t, 1, disc.Start())
	assert.Equal(t, 100, disc.End())
	assert.Equal(t, 80, disc.Coverage.Size())
	assert.Same(t, loc, disc.Location)
	assert.Equal(t, 61, loc.Fragments[0].Start, "the source location is not reordered")

	cont := cands[1]
	require.Len(t, cont.Fragments, 1)
	assert.Equal(t, match.Continuous, cont.Fragments[0].DCStatus)
	assert.Equal(t, Coverage{{30, 80}}, cont.Coverage)
}

func TestExtract_MalformedLocations(t *testing.T) {
	p := match.NewProtein("P1")
	good := addMatch(p, "PF00001", "PFAM", 1, 50)
	bad := addMatch(p, "PF00002", "PFAM", 60, 40)
	zero := addMatch(p, "PF00003", "PFAM", 0, 10)

	cands, rejected := Extract(p, DefaultConfig())
	require.Len(t, cands, 1)
	assert.Same(t, good, cands[0].Location)

	require.Len(t, rejected, 2)
	assert.Same(t, bad, rejected[0].Location)
	assert.Same(t, zero, rejected[1].Location)
	for _, r := range rejected {
		assert.True(t, errors.Is(r.Err, errors.ErrMalformedLocation))
		assert.True(t, errors.IsInvalid(r.Err))
	}
}

func TestExtract_DecodedMalformedLocation(t *testing.T) {
	set, err := match.DecodeBytes([]byte(`{
		"P1": {
			"PF00001": {"member_db": "PFAM", "locations": [
				{"start": 1, "representative": ""},
				{"start": "5", "end": "25", "representative": ""}
			]}
		}
	}`))
	require.NoError(t, err)

	cands, rejected := Extract(set.Proteins["P1"], DefaultConfig())
	require.Len(t, cands, 1)
	assert.Equal(t, Coverage{{5, 25}}, cands[0].Coverage)
	require.Len(t, rejected, 1)
	assert.True(t, errors.Is(rejected[0].Err, errors.ErrMalformedLocation))
}
