package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/danielpatrickdp/jetid/internal/config"
	"github.com/danielpatrickdp/jetid/internal/cutflow"
	"github.com/danielpatrickdp/jetid/internal/logging"
	"github.com/danielpatrickdp/jetid/internal/store"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to jetid.db")
	last := flag.Int("last", 20, "show N most recent runs")
	runID := flag.String("run", "", "show single run detail")
	cut := flag.String("cut", "", "limit cut flow output to one cut")
	jsonOut := flag.Bool("json", false, "output as JSON instead of table")
	flag.Parse()

	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "usage: inspect --db path/to/jetid.db [--last N] [--run id] [--cut name] [--json]")
		os.Exit(2)
	}

	st, err := store.NewStore(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	if *runID != "" {
		err = runDetailMode(os.Stdout, st, *runID, *cut, *jsonOut)
	} else {
		err = runListMode(os.Stdout, st, *last, *jsonOut)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region list-mode

type listRow struct {
	RunID     string   `json:"run_id"`
	Version   string   `json:"version"`
	Quality   string   `json:"quality"`
	Disabled  []string `json:"disabled_cuts"`
	Source    string   `json:"source,omitempty"`
	Jets      int      `json:"jets"`
	Selected  int      `json:"selected"`
	Decision  string   `json:"decision"`
	Reason    string   `json:"reason,omitempty"`
	CreatedAt string   `json:"created_at"`
}

func runListMode(w io.Writer, st *store.Store, last int, jsonOut bool) error {
	runs, err := st.ListRunsWithLog(last)
	if err != nil {
		return err
	}
	if len(runs) == 0 && !jsonOut {
		fmt.Fprintln(w, "no runs found")
		return nil
	}

	// Store returns DESC, reverse for chronological
	rows := make([]listRow, len(runs))
	for i, r := range runs {
		rows[len(runs)-1-i] = listRow{
			RunID:     r.RunID,
			Version:   r.Version,
			Quality:   r.Quality,
			Disabled:  r.DisabledCuts,
			Source:    r.Source,
			Jets:      r.Jets,
			Selected:  r.Selected,
			Decision:  r.Decision,
			Reason:    r.Reason,
			CreatedAt: r.CreatedAt.Format("2006-01-02T15:04:05Z"),
		}
	}

	if jsonOut {
		return printJSON(w, rows)
	}

	fmt.Fprintf(w, "%-10s  %-8s  %-6s  %6s  %8s  %-10s  %-20s  %s\n",
		"Run", "Version", "Tier", "Jets", "Selected", "Decision", "Time", "Disabled")
	fmt.Fprintf(w, "%-10s+-%-8s+-%-6s+-%6s+-%8s+-%-10s+-%-20s+-%s\n",
		"----------", "--------", "------", "------", "--------", "----------", "--------------------", "--------")
	for _, r := range rows {
		fmt.Fprintf(w, "%-10s  %-8s  %-6s  %6d  %8d  %-10s  %-20s  %s\n",
			shortID(r.RunID), r.Version, r.Quality, r.Jets, r.Selected, orDash(r.Decision), r.CreatedAt, orDash(strings.Join(r.Disabled, ",")))
	}
	return nil
}

// #endregion list-mode

// #region detail-mode

type detailOutput struct {
	RunID      string        `json:"run_id"`
	Version    string        `json:"version"`
	Quality    string        `json:"quality"`
	Disabled   []string      `json:"disabled_cuts"`
	Source     string        `json:"source,omitempty"`
	CreatedAt  string        `json:"created_at"`
	Jets       int           `json:"jets"`
	Selected   int           `json:"selected"`
	Cutflow    []cutflow.Row `json:"cutflow"`
	Consistent bool          `json:"consistent"` // stored summary matches the recomputed cut flow
}

func runDetailMode(w io.Writer, st *store.Store, runID, cutFilter string, jsonOut bool) error {
	run, err := st.GetRun(runID)
	if err != nil {
		return err
	}
	decisions, err := st.Decisions(runID)
	if err != nil {
		return err
	}

	cfg := config.Default()
	cfg.Version, cfg.Quality, cfg.DisabledCuts = run.Version, run.Quality, run.DisabledCuts
	sel, err := cfg.Selector()
	if err != nil {
		return fmt.Errorf("run %s: %w", runID, err)
	}

	counter := cutflow.New(sel.Cuts())
	for _, d := range decisions {
		counter.Add(d.Bitset(sel), d.Passed)
	}

	out := detailOutput{
		RunID:     run.RunID,
		Version:   run.Version,
		Quality:   run.Quality,
		Disabled:  run.DisabledCuts,
		Source:    run.Source,
		CreatedAt: run.CreatedAt.Format("2006-01-02T15:04:05Z"),
		Jets:      counter.Total(),
		Selected:  counter.Selected(),
		Cutflow:   filterRows(counter.Rows(), cutFilter),
	}

	summary, err := logging.ParseSummary(run.SummaryJSON)
	if err != nil {
		return err
	}
	out.Consistent = summary != nil && summary.Jets == out.Jets && summary.Selected == out.Selected

	if jsonOut {
		return printJSON(w, out)
	}

	fmt.Fprintf(w, "Run:        %s\n", out.RunID)
	fmt.Fprintf(w, "Version:    %s\n", out.Version)
	fmt.Fprintf(w, "Quality:    %s\n", out.Quality)
	fmt.Fprintf(w, "Disabled:   %s\n", orDash(strings.Join(out.Disabled, ",")))
	fmt.Fprintf(w, "Source:     %s\n", orDash(out.Source))
	fmt.Fprintf(w, "Created:    %s\n", out.CreatedAt)
	fmt.Fprintf(w, "Selected:   %d of %d\n", out.Selected, out.Jets)
	fmt.Fprintf(w, "Consistent: %v\n", out.Consistent)

	fmt.Fprintf(w, "\nCut flow:\n")
	for _, r := range out.Cutflow {
		fmt.Fprintf(w, "  %-14s %6d/%-6d surviving %6d  eff %.4f [%.4f, %.4f]\n",
			r.Cut, r.Passed, r.Evaluated, r.Surviving, r.Efficiency, r.Low, r.High)
	}
	return nil
}

func filterRows(rows []cutflow.Row, cut string) []cutflow.Row {
	if cut == "" {
		return rows
	}
	var out []cutflow.Row
	for _, r := range rows {
		if r.Cut == cut {
			out = append(out, r)
		}
	}
	return out
}

// #endregion detail-mode

// #region output

func printJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	fmt.Fprintln(w, string(data))
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// #endregion output
