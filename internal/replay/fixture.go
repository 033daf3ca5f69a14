package replay

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"

	"github.com/danielpatrickdp/jetid/internal/config"
	"github.com/danielpatrickdp/jetid/internal/jetid"
	"github.com/danielpatrickdp/jetid/internal/store"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture.
type Fixture struct {
	Description     string                  `json:"description"`
	Config          FixtureConfig           `json:"config"`
	Jets            []jetid.Candidate       `json:"jets"`
	ExpectedResults []FixtureExpectedResult `json:"expected_results"`
}

// FixtureConfig is the selector setup the expectations were recorded with.
type FixtureConfig struct {
	Version      string   `json:"version"`
	Quality      string   `json:"quality"`
	DisabledCuts []string `json:"disabled_cuts,omitempty"`
}

// FixtureExpectedResult captures the expected outcome per jet.
// FailedCuts is only checked when present.
type FixtureExpectedResult struct {
	Index      int      `json:"index"`
	Passed     bool     `json:"passed"`
	FailedCuts []string `json:"failed_cuts,omitempty"`
}

// Mismatch describes one jet whose replay disagrees with the fixture.
type Mismatch struct {
	Index    int
	Expected FixtureExpectedResult
	Actual   ReplayResult
}

func (m Mismatch) String() string {
	return fmt.Sprintf("jet %d: expected passed=%v failed=%v, got passed=%v failed=%v (%s)",
		m.Index, m.Expected.Passed, m.Expected.FailedCuts, m.Actual.Passed, m.Actual.FailedCuts, m.Actual.Bits)
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return &f, nil
}

// Selector builds the selector the fixture was recorded with.
func (fc *FixtureConfig) Selector() (*jetid.Selector, error) {
	cfg := config.Default()
	cfg.Version = fc.Version
	cfg.Quality = fc.Quality
	cfg.DisabledCuts = fc.DisabledCuts
	return cfg.Selector()
}

// Run replays the fixture and returns every disagreement.
func (f *Fixture) Run() ([]ReplayResult, []Mismatch, error) {
	sel, err := f.Config.Selector()
	if err != nil {
		return nil, nil, err
	}
	results := Replay(sel, f.Jets)
	if len(results) != len(f.ExpectedResults) {
		return results, nil, fmt.Errorf("fixture has %d jets but %d expected results", len(results), len(f.ExpectedResults))
	}

	var mismatches []Mismatch
	for i, exp := range f.ExpectedResults {
		got := results[i]
		if exp.Index != got.Index || exp.Passed != got.Passed ||
			(exp.FailedCuts != nil && !slices.Equal(exp.FailedCuts, got.FailedCuts)) {
			mismatches = append(mismatches, Mismatch{Index: i, Expected: exp, Actual: got})
		}
	}
	return results, mismatches, nil
}

// #endregion fixture-loader

// #region fixture-export

// FixtureFromRun turns a stored run into a fixture, with the stored
// decisions as expectations.
func FixtureFromRun(run store.RunRecord, decisions []store.Decision, description string) *Fixture {
	f := &Fixture{
		Description: description,
		Config: FixtureConfig{
			Version:      run.Version,
			Quality:      run.Quality,
			DisabledCuts: run.DisabledCuts,
		},
	}
	for _, d := range decisions {
		var failed []string
		for _, name := range d.Flagged {
			if !d.Cuts[name] {
				failed = append(failed, name)
			}
		}
		f.Jets = append(f.Jets, d.Jet)
		f.ExpectedResults = append(f.ExpectedResults, FixtureExpectedResult{
			Index:      len(f.ExpectedResults),
			Passed:     d.Passed,
			FailedCuts: failed,
		})
	}
	return f
}

// WriteFixture writes f as indented JSON.
func WriteFixture(path string, f *Fixture) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal fixture: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write fixture %s: %w", path, err)
	}
	return nil
}

// #endregion fixture-export
