package runner

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielpatrickdp/jetid/internal/jetid"
	"github.com/danielpatrickdp/jetid/internal/logging"
	"github.com/danielpatrickdp/jetid/internal/store"
)

func jets() []jetid.Candidate {
	return []jetid.Candidate{
		{P4: jetid.FourVector{Pt: 30, Eta: 0.5}, EMF: 0.5, ID: jetid.IDInfo{FHPD: 0.90, N90Hits: 5}},
		{P4: jetid.FourVector{Pt: 30, Eta: 0.5}, EMF: 0.5, ID: jetid.IDInfo{FHPD: 0.99, N90Hits: 5}},
		{P4: jetid.FourVector{Pt: 100, Eta: 3.0}, EMF: -0.25, ID: jetid.IDInfo{FHPD: 0.50, N90Hits: 5}},
	}
}

func TestRunWithoutStore(t *testing.T) {
	r := NewRunner(jetid.New(jetid.CRAFT08, jetid.Tight), nil, nil)

	var progress []int
	res, err := r.Run(context.Background(), jets(), Options{Progress: func(n int) { progress = append(progress, n) }})
	require.NoError(t, err)

	assert.Empty(t, res.RunID)
	assert.Equal(t, 1, res.Selected)
	assert.Equal(t, []int{1, 2, 3}, progress)
	require.Len(t, res.Jets, 3)
	assert.True(t, res.Jets[0].Passed)
	assert.Equal(t, []string{jetid.LooseFHPD}, res.Jets[1].FailedCuts)
	assert.Equal(t, []string{jetid.TightEMF}, res.Jets[2].FailedCuts)
	assert.Len(t, res.Cutflow, len(jetid.CutNames()))
}

func TestRunAccumulatesLifetimeCutflow(t *testing.T) {
	r := NewRunner(jetid.New(jetid.CRAFT08, jetid.Loose), nil, nil)
	for i := 0; i < 2; i++ {
		_, err := r.Run(context.Background(), jets(), Options{})
		require.NoError(t, err)
	}
	total, selected := r.Totals()
	assert.Equal(t, 6, total)
	assert.Equal(t, 4, selected)

	rows := r.Cutflow()
	assert.Equal(t, jetid.LooseFHPD, rows[0].Cut)
	assert.Equal(t, 6, rows[0].Evaluated)
	assert.Equal(t, 4, rows[0].Passed)
	assert.Zero(t, rows[3].Evaluated, "TIGHT cuts take no part under LOOSE")
}

func TestRunCancelled(t *testing.T) {
	r := NewRunner(jetid.New(jetid.CRAFT08, jetid.Loose), nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Run(ctx, jets(), Options{})
	require.ErrorIs(t, err, context.Canceled)
	total, _ := r.Totals()
	assert.Zero(t, total)
}

func TestRunRecordsToStore(t *testing.T) {
	st, err := store.NewStore(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	sel := jetid.New(jetid.CRAFT08, jetid.Tight)
	require.NoError(t, sel.Disable(jetid.TightFHPD))
	r := NewRunner(sel, st, nil)

	res, err := r.Run(context.Background(), jets(), Options{Source: "unit", Trigger: "test"})
	require.NoError(t, err)
	require.NotEmpty(t, res.RunID)

	run, err := st.GetRun(res.RunID)
	require.NoError(t, err)
	assert.Equal(t, "TIGHT", run.Quality)
	assert.Equal(t, "unit", run.Source)
	assert.Equal(t, []string{jetid.TightFHPD}, run.DisabledCuts)

	summary, err := logging.ParseSummary(run.SummaryJSON)
	require.NoError(t, err)
	require.NotNil(t, summary)
	assert.Equal(t, 3, summary.Jets)
	assert.Equal(t, 1, summary.Selected)

	decisions, err := st.Decisions(res.RunID)
	require.NoError(t, err)
	require.Len(t, decisions, 3)
	for i, d := range decisions {
		assert.Equal(t, res.Jets[i].Passed, d.Passed)
		assert.Equal(t, res.Jets[i].Cuts.String(), d.Bitset(sel).String())
	}

	runs, err := st.ListRunsWithLog(5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "complete", runs[0].Decision)
	assert.Equal(t, "1 of 3 jets selected", runs[0].Reason)
}

func TestRunStoreFailureLeavesNoTrace(t *testing.T) {
	st, err := store.NewStore(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	_, err = st.DB().Exec(`DROP TABLE jet_decisions`)
	require.NoError(t, err)

	r := NewRunner(jetid.New(jetid.CRAFT08, jetid.Tight), st, nil)
	_, err = r.Run(context.Background(), jets(), Options{Source: "unit"})
	require.Error(t, err)

	total, selected := r.Totals()
	assert.Zero(t, total)
	assert.Zero(t, selected)

	runs, err := st.ListRuns(10)
	require.NoError(t, err)
	assert.Empty(t, runs, "run row must roll back with its decisions")
}

func TestRunRejectsUnknownCorrectionLevel(t *testing.T) {
	r := NewRunner(jetid.New(jetid.CRAFT08, jetid.Tight), nil, nil)
	batch := jets()
	batch[2].Corrections = map[jetid.CorrectionLevel]float64{"L3Absolute": 2.5}

	_, err := r.Run(context.Background(), batch, Options{})
	require.ErrorIs(t, err, jetid.ErrUnknownCorrection)
	total, _ := r.Totals()
	assert.Zero(t, total)
}

func TestDescribe(t *testing.T) {
	sel := jetid.New(jetid.CRAFT08, jetid.Loose)
	require.NoError(t, sel.Disable(jetid.LooseEMF))
	d := NewRunner(sel, nil, nil).Describe()

	assert.Equal(t, "CRAFT08", d.Version)
	assert.Equal(t, "LOOSE", d.Quality)
	require.Len(t, d.Cuts, 5)
	assert.Equal(t, CutInfo{Name: jetid.LooseEMF, Ignored: true}, d.Cuts[2])
	assert.Equal(t, CutInfo{Name: jetid.TightEMF, Ignored: false}, d.Cuts[4])
}
