package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/danielpatrickdp/jetid/internal/replay"
	"github.com/danielpatrickdp/jetid/internal/store"
)

// #region main

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run parses args and returns the exit code: 0 all match, 1 divergence,
// 2 usage or load error.
func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("replay", flag.ContinueOnError)
	fs.SetOutput(stderr)
	dbPath := fs.String("db", "", "path to jetid.db (DB mode)")
	runID := fs.String("run", "", "run to re-evaluate (DB mode, default latest)")
	fixturePath := fs.String("fixture", "", "path to fixture JSON (fixture mode)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if (*dbPath == "" && *fixturePath == "") || (*dbPath != "" && *fixturePath != "") {
		fmt.Fprintln(stderr, "usage: replay --db path/to/jetid.db [--run id]")
		fmt.Fprintln(stderr, "       replay --fixture path/to/fixture.json")
		return 2
	}

	if *fixturePath != "" {
		return runFixtureMode(*fixturePath, stdout, stderr)
	}
	return runDBMode(*dbPath, *runID, stdout, stderr)
}

// #endregion main

// #region db-mode

// runDBMode re-evaluates a stored run with today's cuts and compares against
// the stored decisions.
func runDBMode(dbPath, runID string, stdout, stderr io.Writer) int {
	st, err := store.NewStore(dbPath)
	if err != nil {
		fmt.Fprintf(stderr, "open db: %v\n", err)
		return 2
	}
	defer st.Close()

	if runID == "" {
		runs, err := st.ListRuns(1)
		if err != nil {
			fmt.Fprintf(stderr, "list runs: %v\n", err)
			return 2
		}
		if len(runs) == 0 {
			fmt.Fprintln(stderr, "no runs found")
			return 2
		}
		runID = runs[0].RunID
	}

	run, err := st.GetRun(runID)
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return 2
	}
	decisions, err := st.Decisions(run.RunID)
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return 2
	}
	if len(decisions) == 0 {
		fmt.Fprintf(stderr, "run %s has no decisions\n", run.RunID)
		return 2
	}

	f := replay.FixtureFromRun(run, decisions, "run "+run.RunID)
	return compare(f, stdout, stderr)
}

// #endregion db-mode

// #region output

func runFixtureMode(path string, stdout, stderr io.Writer) int {
	f, err := replay.LoadFixture(path)
	if err != nil {
		fmt.Fprintf(stderr, "load fixture: %v\n", err)
		return 2
	}
	return compare(f, stdout, stderr)
}

// compare replays f, prints a comparison table and returns the exit code.
// The verdict is Fixture.Run's mismatch list.
func compare(f *replay.Fixture, stdout, stderr io.Writer) int {
	results, mismatches, err := f.Run()
	if err != nil {
		fmt.Fprintf(stderr, "replay: %v\n", err)
		return 2
	}
	diff := make(map[int]bool, len(mismatches))
	for _, m := range mismatches {
		diff[m.Index] = true
	}

	if f.Description != "" {
		fmt.Fprintf(stdout, "%s\n\n", f.Description)
	}
	fmt.Fprintf(stdout, "%-6s| %-28s| %-28s| %s\n", "Jet", "Expected", "Replayed", "Match")
	fmt.Fprintf(stdout, "%-6s+%-29s+%-29s+%s\n",
		"------", "-----------------------------", "-----------------------------", "------")

	for i, exp := range f.ExpectedResults {
		got := results[i]
		match := "OK"
		if diff[i] {
			match = "DIFF"
		}
		fmt.Fprintf(stdout, "%-6d| %-28s| %-28s| %s\n", i, outcome(exp.Passed, exp.FailedCuts), outcome(got.Passed, got.FailedCuts), match)
	}

	total := len(f.ExpectedResults)
	fmt.Fprintf(stdout, "\nSummary: %d total, %d match, %d diverge\n", total, total-len(mismatches), len(mismatches))
	for _, m := range mismatches {
		fmt.Fprintln(stderr, m)
	}

	if len(mismatches) > 0 {
		return 1
	}
	return 0
}

func outcome(passed bool, failed []string) string {
	if passed {
		return "pass"
	}
	if len(failed) == 0 {
		return "fail"
	}
	return "fail " + strings.Join(failed, ",")
}

// #endregion output
