package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/danielpatrickdp/jetid/internal/replay"
	"github.com/danielpatrickdp/jetid/internal/store"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to jetid.db")
	runID := flag.String("run", "", "run to export (default latest)")
	outPath := flag.String("out", "", "output fixture JSON path")
	flag.Parse()

	if *dbPath == "" || *outPath == "" {
		fmt.Fprintln(os.Stderr, "usage: fixture-export --db path/to/jetid.db --out path/to/fixture.json [--run id]")
		os.Exit(2)
	}

	if err := run(*dbPath, *runID, *outPath, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region extract

func run(dbPath, runID, outPath string, w io.Writer) error {
	st, err := store.NewStore(dbPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer st.Close()

	if runID == "" {
		runs, err := st.ListRuns(1)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			return fmt.Errorf("no runs in %s", dbPath)
		}
		runID = runs[0].RunID
	}

	rec, err := st.GetRun(runID)
	if err != nil {
		return err
	}
	decisions, err := st.Decisions(rec.RunID)
	if err != nil {
		return err
	}
	if len(decisions) == 0 {
		return fmt.Errorf("run %s has no decisions", rec.RunID)
	}

	fmt.Fprintf(w, "Found %d decisions in run %s\n", len(decisions), rec.RunID)

	desc := fmt.Sprintf("Export of run %s: %s %s, %d jets from %s",
		rec.RunID, rec.Version, rec.Quality, len(decisions), orUnknown(rec.Source))
	f := replay.FixtureFromRun(rec, decisions, desc)
	if err := replay.WriteFixture(outPath, f); err != nil {
		return err
	}

	fmt.Fprintf(w, "Wrote fixture to %s (%d jets)\n", outPath, len(f.Jets))
	return nil
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown source"
	}
	return s
}

// #endregion extract
