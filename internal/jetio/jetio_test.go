package jetio

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielpatrickdp/jetid/internal/jetid"
)

func sampleJets() []jetid.Candidate {
	return []jetid.Candidate{
		{
			P4:  jetid.FourVector{Pt: 30, Eta: 0.5, Phi: 1.2, Mass: 4},
			EMF: 0.5,
			ID:  jetid.IDInfo{FHPD: 0.9, N90Hits: 5},
		},
		{
			P4:          jetid.FourVector{Pt: 100, Eta: 3.0},
			EMF:         -0.25,
			ID:          jetid.IDInfo{FHPD: 0.5, N90Hits: 5},
			Corrections: map[jetid.CorrectionLevel]float64{jetid.L3: 1.2},
		},
	}
}

func TestRoundTripAllLayouts(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"jets.json", "jets.json.gz", "jets.jsonl.zst", "jets.yaml", "jets.yml.gz"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			require.NoError(t, WriteFile(path, sampleJets()))

			got, err := ReadFile(path)
			require.NoError(t, err)
			if diff := cmp.Diff(sampleJets(), got); diff != "" {
				t.Fatalf("jets mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDecodeJSONArrayAndStream(t *testing.T) {
	array := `[
  {"p4": {"pt": 30, "eta": 0.5}, "emf": 0.5, "id": {"fhpd": 0.9, "n90hits": 5}},
  {"p4": {"pt": 40, "eta": -1.0}, "emf": 0.2, "id": {"fhpd": 0.1, "n90hits": 3}, "corrections": {"L3": 1.25}}
]`
	jets, err := Decode(strings.NewReader(array), FormatJSON)
	require.NoError(t, err)
	require.Len(t, jets, 2)
	assert.Equal(t, 50.0, jets[1].CorrectedP4(jetid.L3).Pt)

	stream := `{"p4": {"pt": 30, "eta": 0.5}, "emf": 0.5, "id": {"fhpd": 0.9, "n90hits": 5}}
{"p4": {"pt": 40}, "emf": 0.2, "id": {"n90hits": 3}}
`
	jets, err = Decode(strings.NewReader(stream), FormatJSON)
	require.NoError(t, err)
	require.Len(t, jets, 2)
	assert.Equal(t, 3, jets[1].ID.N90Hits)
}

func TestDecodeEmptyAndInvalid(t *testing.T) {
	jets, err := Decode(strings.NewReader("  \n"), FormatJSON)
	require.NoError(t, err)
	assert.Empty(t, jets)

	_, err = Decode(strings.NewReader(`{"p4": {"pt": 30}, "fhpd": 0.9}`), FormatJSON)
	assert.Error(t, err, "flat fhpd is not a Candidate field")

	_, err = Decode(strings.NewReader(`{"p4": `), FormatJSON)
	assert.Error(t, err)

	_, err = Decode(strings.NewReader("- p4: [1, 2\n"), FormatYAML)
	assert.Error(t, err)
}

func TestDecodeRejectsTrailingDataAfterArray(t *testing.T) {
	in := `[{"p4": {"pt": 30}}]` + "\n" + `{"p4": {"pt": 40}}`
	_, err := Decode(strings.NewReader(in), FormatJSON)
	assert.ErrorContains(t, err, "trailing data")

	jets, err := Decode(strings.NewReader(`[{"p4": {"pt": 30}}]`+"\n\n"), FormatJSON)
	require.NoError(t, err)
	assert.Len(t, jets, 1)
}

func TestDecodeRejectsUnknownCorrectionLevel(t *testing.T) {
	_, err := Decode(strings.NewReader(`{"p4": {"pt": 40}, "corrections": {"L3Absolute": 2.5}}`), FormatJSON)
	assert.ErrorIs(t, err, jetid.ErrUnknownCorrection)

	yml := "- p4: {pt: 40, eta: 3.0}\n  corrections: {L3Absolute: 2.5}\n"
	_, err = Decode(strings.NewReader(yml), FormatYAML)
	assert.ErrorIs(t, err, jetid.ErrUnknownCorrection)

	jets, err := Decode(strings.NewReader("- p4: {pt: 40}\n  corrections: {L3: 2.5}\n"), FormatYAML)
	require.NoError(t, err)
	require.Len(t, jets, 1)
	assert.Equal(t, 100.0, jets[0].CorrectedP4(jetid.L3).Pt)
}

func TestOpenRejectsCorruptGzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json.gz")
	require.NoError(t, os.WriteFile(path, []byte("not gzip"), 0o644))
	_, err := ReadFile(path)
	assert.Error(t, err)

	_, err = ReadFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestFormatFor(t *testing.T) {
	assert.Equal(t, FormatYAML, FormatFor("a/b.YAML.gz"))
	assert.Equal(t, FormatYAML, FormatFor("b.yml"))
	assert.Equal(t, FormatJSON, FormatFor("b.jsonl.zst"))
	assert.Equal(t, FormatJSON, FormatFor("b"))
}
