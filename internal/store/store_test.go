package store

import (
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/danielpatrickdp/jetid/internal/jetid"
	"github.com/danielpatrickdp/jetid/internal/logging"
)

func tempDB(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := NewStore(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleDecisions(t *testing.T) (*jetid.Selector, []Decision) {
	t.Helper()
	sel := jetid.New(jetid.CRAFT08, jetid.Tight)
	if err := sel.Disable(jetid.TightFHPD); err != nil {
		t.Fatal(err)
	}
	jets := []jetid.Candidate{
		{P4: jetid.FourVector{Pt: 30, Eta: 0.5}, EMF: 0.5, ID: jetid.IDInfo{FHPD: 0.9, N90Hits: 5}},
		{P4: jetid.FourVector{Pt: 100, Eta: 3.0}, EMF: -0.25, ID: jetid.IDInfo{FHPD: 0.5, N90Hits: 5},
			Corrections: map[jetid.CorrectionLevel]float64{jetid.L3: 1.1}},
	}
	var out []Decision
	for i, j := range jets {
		ret, ok := sel.Evaluate(j)
		out = append(out, NewDecision(i, j, ret, ok))
	}
	return sel, out
}

func TestCreateAndGetRun(t *testing.T) {
	s := tempDB(t)

	rec, err := s.CreateRun(RunRecord{
		Version:      "CRAFT08",
		Quality:      "TIGHT",
		DisabledCuts: []string{jetid.TightFHPD},
		Source:       "jets.json",
	})
	if err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	if rec.RunID == "" {
		t.Fatal("expected run ID")
	}
	if rec.CreatedAt.IsZero() {
		t.Fatal("expected created_at")
	}

	got, err := s.GetRun(rec.RunID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.Quality != "TIGHT" || got.Source != "jets.json" {
		t.Fatalf("unexpected run %+v", got)
	}
	if !reflect.DeepEqual(got.DisabledCuts, []string{jetid.TightFHPD}) {
		t.Fatalf("disabled cuts: %v", got.DisabledCuts)
	}
	if !got.CreatedAt.Equal(rec.CreatedAt) {
		t.Fatalf("created_at %v != %v", got.CreatedAt, rec.CreatedAt)
	}

	if _, err := s.GetRun("missing"); err == nil {
		t.Fatal("expected error for missing run")
	}
}

func TestRecordDecisionsRoundTrip(t *testing.T) {
	s := tempDB(t)
	sel, decisions := sampleDecisions(t)

	rec, err := s.CreateRun(RunRecord{Version: "CRAFT08", Quality: "TIGHT"})
	if err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	if err := s.RecordDecisions(rec.RunID, decisions); err != nil {
		t.Fatalf("RecordDecisions: %v", err)
	}

	got, err := s.Decisions(rec.RunID)
	if err != nil {
		t.Fatalf("Decisions: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 decisions, got %d", len(got))
	}
	if !reflect.DeepEqual(got, decisions) {
		t.Fatalf("decisions mismatch:\n got %+v\nwant %+v", got, decisions)
	}
	if !got[0].Passed || got[1].Passed {
		t.Fatalf("unexpected pass flags %v %v", got[0].Passed, got[1].Passed)
	}

	// Rebuilt bitsets match a fresh evaluation.
	for _, d := range got {
		want, _ := sel.Evaluate(d.Jet)
		if rebuilt := d.Bitset(sel); rebuilt.String() != want.String() || rebuilt.Bool() != d.Passed {
			t.Fatalf("jet %d: rebuilt %s, want %s", d.JetIndex, rebuilt, want)
		}
	}
}

func TestRecordDecisionsUnknownRun(t *testing.T) {
	s := tempDB(t)
	_, decisions := sampleDecisions(t)
	if err := s.RecordDecisions("no-such-run", decisions); err == nil {
		t.Fatal("expected foreign key error")
	}
}

func TestRecordRunAtomic(t *testing.T) {
	s := tempDB(t)
	_, decisions := sampleDecisions(t)

	rec, err := s.RecordRun(RunRecord{Version: "CRAFT08", Quality: "TIGHT"}, decisions, `{"jets":2}`)
	if err != nil {
		t.Fatalf("RecordRun: %v", err)
	}
	got, err := s.GetRun(rec.RunID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.SummaryJSON != `{"jets":2}` {
		t.Errorf("summary = %q", got.SummaryJSON)
	}
	stored, err := s.Decisions(rec.RunID)
	if err != nil {
		t.Fatalf("Decisions: %v", err)
	}
	if len(stored) != len(decisions) {
		t.Fatalf("decisions = %d, want %d", len(stored), len(decisions))
	}

	if _, err := s.DB().Exec(`DROP TABLE jet_decisions`); err != nil {
		t.Fatal(err)
	}
	if _, err := s.RecordRun(RunRecord{Version: "CRAFT08", Quality: "TIGHT"}, decisions, "{}"); err == nil {
		t.Fatal("expected error with decisions table missing")
	}
	runs, err := s.ListRuns(10)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 1 {
		t.Errorf("runs = %d, want 1 (failed run must roll back)", len(runs))
	}
}

func TestFinishRunAndListWithLog(t *testing.T) {
	s := tempDB(t)
	_, decisions := sampleDecisions(t)

	older, err := s.CreateRun(RunRecord{Version: "CRAFT08", Quality: "LOOSE", CreatedAt: time.Now().UTC().Add(-time.Hour)})
	if err != nil {
		t.Fatal(err)
	}
	newer, err := s.CreateRun(RunRecord{Version: "CRAFT08", Quality: "TIGHT"})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.RecordDecisions(newer.RunID, decisions); err != nil {
		t.Fatal(err)
	}
	if err := s.FinishRun(newer.RunID, `{"jets":2}`); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}
	if err := s.FinishRun("missing", `{}`); err == nil {
		t.Fatal("expected error finishing a missing run")
	}
	err = logging.LogDecision(s.DB(), logging.SelectionEntry{
		RunID: newer.RunID, TriggerType: "cli", Decision: "complete", Reason: "1 of 2 jets selected",
	})
	if err != nil {
		t.Fatalf("LogDecision: %v", err)
	}

	runs, err := s.ListRunsWithLog(10)
	if err != nil {
		t.Fatalf("ListRunsWithLog: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].RunID != newer.RunID || runs[1].RunID != older.RunID {
		t.Fatal("expected newest first")
	}
	if runs[0].Jets != 2 || runs[0].Selected != 1 {
		t.Fatalf("counts: %d jets %d selected", runs[0].Jets, runs[0].Selected)
	}
	if runs[0].Decision != "complete" || runs[0].Reason != "1 of 2 jets selected" {
		t.Fatalf("log: %q %q", runs[0].Decision, runs[0].Reason)
	}
	if runs[0].SummaryJSON != `{"jets":2}` {
		t.Fatalf("summary: %q", runs[0].SummaryJSON)
	}
	if runs[1].Decision != "" || runs[1].Jets != 0 {
		t.Fatalf("older run should have no log or jets: %+v", runs[1])
	}

	limited, err := s.ListRuns(1)
	if err != nil || len(limited) != 1 {
		t.Fatalf("ListRuns(1): %v %d", err, len(limited))
	}
}
