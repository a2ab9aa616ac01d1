package genesis

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"solusd/crypto"
	"solusd/native/fixedpoint"
)

func TestLoadGenesisSpec(t *testing.T) {
	var raw crypto.Address
	raw[19] = 7
	contents := `{
  "genesisTime": "2024-01-01T00:00:00Z",
  "frontEnds": [{"address": "` + raw.String() + `", "kickbackRate": "0.8"}]
}`
	path := filepath.Join(t.TempDir(), "genesis.json")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	spec, err := LoadGenesisSpec(path)
	require.NoError(t, err)
	require.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), spec.GenesisTimestamp())
	require.Len(t, spec.FrontEnds, 1)
	require.Equal(t, raw, spec.FrontEnds[0].Owner())
	require.Equal(t, fixedpoint.MustParseDecimal("0.8"), spec.FrontEnds[0].Kickback())
}

func TestGenesisSpecValidation(t *testing.T) {
	var raw crypto.Address
	raw[0] = 1

	cases := []GenesisSpec{
		{GenesisTime: ""},
		{GenesisTime: "yesterday"},
		{GenesisTime: "2024-01-01T00:00:00Z", FrontEnds: []FrontEndSpec{{Address: "nope", KickbackRate: "1"}}},
		{GenesisTime: "2024-01-01T00:00:00Z", FrontEnds: []FrontEndSpec{{Address: raw.String(), KickbackRate: "1.5"}}},
		{GenesisTime: "2024-01-01T00:00:00Z", FrontEnds: []FrontEndSpec{
			{Address: raw.String(), KickbackRate: "1"},
			{Address: raw.String(), KickbackRate: "0.5"},
		}},
	}
	for i := range cases {
		require.Error(t, cases[i].Validate(), "case %d", i)
	}

	path := filepath.Join(t.TempDir(), "genesis.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"genesisTime":"2024-01-01T00:00:00Z","extra":1}`), 0o644))
	_, err := LoadGenesisSpec(path)
	require.Error(t, err)
}

func TestNewGenesisSpec(t *testing.T) {
	ts := time.Unix(1_700_000_000, 500)
	spec := NewGenesisSpec(ts)
	require.NoError(t, spec.Validate())
	require.Equal(t, int64(1_700_000_000), spec.GenesisTimestamp().Unix())
}
