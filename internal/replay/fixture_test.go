package replay

import (
	"path/filepath"
	"slices"
	"testing"

	"github.com/danielpatrickdp/jetid/internal/jetid"
	"github.com/danielpatrickdp/jetid/internal/store"
)

// #region fixture-tests

// TestFixture_Scenarios replays every checked-in fixture. A drift in any cut
// threshold or region edge shows up here as a mismatch.
func TestFixture_Scenarios(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("testdata", "*.json"))
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) == 0 {
		t.Fatal("no fixtures under testdata")
	}

	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			f, err := LoadFixture(path)
			if err != nil {
				t.Fatalf("LoadFixture: %v", err)
			}
			results, mismatches, err := f.Run()
			if err != nil {
				t.Fatalf("Run: %v", err)
			}
			if len(results) != len(f.Jets) {
				t.Fatalf("expected %d results, got %d", len(f.Jets), len(results))
			}
			for _, m := range mismatches {
				t.Error(m.String())
			}
		})
	}
}

func TestFixture_LengthMismatch(t *testing.T) {
	f := &Fixture{
		Config: FixtureConfig{Version: "CRAFT08", Quality: "LOOSE"},
		Jets:   []jetid.Candidate{{P4: jetid.FourVector{Pt: 30}, ID: jetid.IDInfo{N90Hits: 5}}},
	}
	if _, _, err := f.Run(); err == nil {
		t.Fatal("expected error when expected_results is short")
	}
}

func TestFixture_BadConfig(t *testing.T) {
	f := &Fixture{Config: FixtureConfig{Version: "CRAFT08", Quality: "MEDIUM"}}
	if _, _, err := f.Run(); err == nil {
		t.Fatal("expected error for unknown quality")
	}

	f = &Fixture{Config: FixtureConfig{Version: "CRAFT08", Quality: "LOOSE", DisabledCuts: []string{"NOPE"}}}
	if _, _, err := f.Run(); err == nil {
		t.Fatal("expected error for unknown disabled cut")
	}
}

func TestFixture_ReportsMismatch(t *testing.T) {
	f := &Fixture{
		Config: FixtureConfig{Version: "CRAFT08", Quality: "LOOSE"},
		Jets: []jetid.Candidate{
			{P4: jetid.FourVector{Pt: 30, Eta: 0.5}, EMF: 0.5, ID: jetid.IDInfo{FHPD: 0.99, N90Hits: 5}},
		},
		ExpectedResults: []FixtureExpectedResult{{Index: 0, Passed: false, FailedCuts: []string{jetid.LooseEMF}}},
	}
	_, mismatches, err := f.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(mismatches) != 1 {
		t.Fatalf("expected 1 mismatch, got %d", len(mismatches))
	}
	if !slices.Equal(mismatches[0].Actual.FailedCuts, []string{jetid.LooseFHPD}) {
		t.Fatalf("actual failed cuts: %v", mismatches[0].Actual.FailedCuts)
	}

	// Without failed_cuts only the pass flag is compared.
	f.ExpectedResults[0].FailedCuts = nil
	if _, mismatches, _ := f.Run(); len(mismatches) != 0 {
		t.Fatalf("unexpected mismatches: %v", mismatches)
	}
}

// TestFixture_ExportRoundTrip stores a run, exports it as a fixture, writes
// and reloads it, then replays it with no mismatches.
func TestFixture_ExportRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s, err := store.NewStore(filepath.Join(dir, "runs.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer s.Close()

	src, err := LoadFixture(filepath.Join("testdata", "craft08_tight.json"))
	if err != nil {
		t.Fatal(err)
	}
	sel, err := src.Config.Selector()
	if err != nil {
		t.Fatal(err)
	}

	run, err := s.CreateRun(store.RunRecord{
		Version:      sel.Version().String(),
		Quality:      sel.Quality().String(),
		DisabledCuts: sel.Disabled(),
		Source:       "test",
	})
	if err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	var decisions []store.Decision
	for i, jet := range src.Jets {
		ret, ok := sel.Evaluate(jet)
		decisions = append(decisions, store.NewDecision(i, jet, ret, ok))
	}
	if err := s.RecordDecisions(run.RunID, decisions); err != nil {
		t.Fatalf("RecordDecisions: %v", err)
	}

	stored, err := s.Decisions(run.RunID)
	if err != nil {
		t.Fatal(err)
	}
	exported := FixtureFromRun(run, stored, "exported")

	path := filepath.Join(dir, "exported.json")
	if err := WriteFixture(path, exported); err != nil {
		t.Fatalf("WriteFixture: %v", err)
	}
	f, err := LoadFixture(path)
	if err != nil {
		t.Fatalf("LoadFixture: %v", err)
	}
	if f.Description != "exported" || f.Config.Quality != "TIGHT" {
		t.Fatalf("unexpected header %+v", f.Config)
	}

	_, mismatches, err := f.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for _, m := range mismatches {
		t.Error(m.String())
	}
	for i, exp := range f.ExpectedResults {
		want := src.ExpectedResults[i]
		if exp.Passed != want.Passed || !slices.Equal(exp.FailedCuts, want.FailedCuts) {
			t.Errorf("jet %d: exported %+v, hand-written %+v", i, exp, want)
		}
	}
}

// #endregion fixture-tests
