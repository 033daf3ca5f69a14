package main

import (
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/cheggaaa/pb/v3"
	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/jetid/internal/cutflow"
	"github.com/danielpatrickdp/jetid/internal/jetid"
	"github.com/danielpatrickdp/jetid/internal/jetio"
	"github.com/danielpatrickdp/jetid/internal/rpc"
	"github.com/danielpatrickdp/jetid/internal/runner"
	"github.com/danielpatrickdp/jetid/internal/store"
)

var (
	selectOut      string
	selectNoStore  bool
	selectProgress bool
	selectRemote   string
	selectJets     bool
)

var selectCmd = &cobra.Command{
	Use:   "select FILE",
	Short: "Evaluate a jet file and record the run",
	Long: `Evaluate every jet in FILE and print the cut flow.

FILE may be a JSON array, a JSON object stream or a YAML sequence, optionally
compressed with .gz or .zst. Each run is stored in the SQLite database unless
--no-store is given. With --out the selected jets are written to a new file in
the layout implied by its extension.

With --remote the jets are sent to a running jetid server; the server's
configuration applies and nothing is stored locally.

Example:
  jetid select jets.json.gz -q TIGHT
  jetid select jets.yaml --disable LOOSE_EMF --out selected.jsonl.zst
  jetid select jets.json --remote localhost:50061 -o json`,
	Args: cobra.ExactArgs(1),
	RunE: runSelect,
}

func init() {
	selectCmd.Flags().StringVar(&selectOut, "out", "", "Write selected jets to this file")
	selectCmd.Flags().BoolVar(&selectNoStore, "no-store", false, "Do not record the run")
	selectCmd.Flags().BoolVar(&selectProgress, "progress", true, "Show a progress bar on stderr")
	selectCmd.Flags().StringVar(&selectRemote, "remote", "", "gRPC address of a jetid server")
	selectCmd.Flags().BoolVar(&selectJets, "jets", false, "Print one line per jet in table output")
	rootCmd.AddCommand(selectCmd)
}

func runSelect(cmd *cobra.Command, args []string) error {
	path := args[0]
	jets, err := jetio.ReadFile(path)
	if err != nil {
		return err
	}
	if len(jets) == 0 {
		return fmt.Errorf("%s: no jets", path)
	}

	var res runner.Result
	if selectRemote != "" {
		res, err = selectRemoteRun(cmd, jets)
	} else {
		res, err = selectLocalRun(cmd, path, jets)
	}
	if err != nil {
		return err
	}

	if selectOut != "" {
		var kept []jetid.Candidate
		for _, jr := range res.Jets {
			if jr.Passed {
				kept = append(kept, jets[jr.Index])
			}
		}
		if err := jetio.WriteFile(selectOut, kept); err != nil {
			return err
		}
		logger.Info("selected jets written", "path", selectOut, "jets", len(kept))
	}

	return printResult(cmd.OutOrStdout(), res, len(jets))
}

func selectLocalRun(cmd *cobra.Command, path string, jets []jetid.Candidate) (runner.Result, error) {
	sel, err := cfg.Selector()
	if err != nil {
		return runner.Result{}, err
	}

	var st *store.Store
	if !selectNoStore {
		st, err = store.NewStore(cfg.DBPath)
		if err != nil {
			return runner.Result{}, err
		}
		defer st.Close()
	}

	bar := pb.New(len(jets))
	bar.SetWriter(cmd.ErrOrStderr())
	if !selectProgress {
		bar.SetWriter(io.Discard)
	}
	bar.Start()
	defer bar.Finish()

	r := runner.NewRunner(sel, st, logger)
	return r.Run(cmd.Context(), jets, runner.Options{
		Source:   filepath.Base(path),
		Trigger:  "cli",
		Progress: func(n int) { bar.SetCurrent(int64(n)) },
	})
}

// selectRemoteRun adapts a gRPC response to the local result shape.
func selectRemoteRun(cmd *cobra.Command, jets []jetid.Candidate) (runner.Result, error) {
	client, err := rpc.NewClient(selectRemote)
	if err != nil {
		return runner.Result{}, err
	}
	defer client.Close()

	resp, err := client.Select(cmd.Context(), jets)
	if err != nil {
		return runner.Result{}, err
	}
	desc, err := client.Cuts(cmd.Context())
	if err != nil {
		return runner.Result{}, err
	}

	// Rebuild bitsets against a selector with the server's cut registry.
	version, err := jetid.ParseVersion(desc.Version)
	if err != nil {
		return runner.Result{}, err
	}
	quality, err := jetid.ParseQuality(desc.Quality)
	if err != nil {
		return runner.Result{}, err
	}
	sel := jetid.New(version, quality)

	res := runner.Result{RunID: resp.RunID, Selected: resp.Selected, Cutflow: resp.Cutflow}
	for _, d := range resp.Jets {
		// A cut took part when it passed or is listed as failed.
		decision := store.Decision{JetIndex: d.Index, Cuts: d.Cuts, Passed: d.Passed}
		for _, name := range sel.Cuts() {
			if d.Cuts[name] || slices.Contains(d.FailedCuts, name) {
				decision.Flagged = append(decision.Flagged, name)
			}
		}
		res.Jets = append(res.Jets, runner.JetResult{
			Index:      d.Index,
			Passed:     d.Passed,
			Cuts:       decision.Bitset(sel),
			FailedCuts: d.FailedCuts,
		})
	}
	return res, nil
}

func printResult(w io.Writer, res runner.Result, total int) error {
	if ok, err := writeStructured(w, res); ok || err != nil {
		return err
	}

	if selectJets {
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "JET\tPASSED\tFAILED CUTS")
		for _, jr := range res.Jets {
			fmt.Fprintf(tw, "%d\t%v\t%s\n", jr.Index, jr.Passed, strings.Join(jr.FailedCuts, ","))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		fmt.Fprintln(w)
	}

	if res.RunID != "" {
		fmt.Fprintf(w, "run %s\n", res.RunID)
	}
	fmt.Fprintf(w, "%d of %d jets selected\n\n", res.Selected, total)
	return cutflow.WriteRows(w, res.Cutflow)
}
