// Package runner evaluates batches of jets, keeps a running cut flow and
// records each batch as a selection run.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/danielpatrickdp/jetid/internal/cutflow"
	"github.com/danielpatrickdp/jetid/internal/jetid"
	"github.com/danielpatrickdp/jetid/internal/logging"
	"github.com/danielpatrickdp/jetid/internal/selector"
	"github.com/danielpatrickdp/jetid/internal/store"
)

// #region types

// JetResult is the outcome for one jet of a batch.
type JetResult struct {
	Index      int             `json:"index"`
	Passed     bool            `json:"passed"`
	Cuts       selector.Bitset `json:"cuts"`
	FailedCuts []string        `json:"failed_cuts,omitempty"`
}

// Result is the outcome of one batch.
type Result struct {
	RunID    string        `json:"run_id,omitempty"`
	Jets     []JetResult   `json:"jets"`
	Selected int           `json:"selected"`
	Cutflow  []cutflow.Row `json:"cutflow"`
}

// Options tune a single Run call.
type Options struct {
	Source   string    // recorded on the run: file name, "grpc", "http"
	Trigger  string    // selection_log trigger_type
	Progress func(int) // called with the number of jets done so far
}

// SelectRequest is the request body shared by the gRPC and HTTP APIs.
type SelectRequest struct {
	Jets []jetid.Candidate `json:"jets"`
}

// CutInfo describes one registered cut.
type CutInfo struct {
	Name    string `json:"name"`
	Ignored bool   `json:"ignored"`
}

// CutsResponse describes the selector configuration.
type CutsResponse struct {
	Version string    `json:"version"`
	Quality string    `json:"quality"`
	Cuts    []CutInfo `json:"cuts"`
}

// #endregion types

// #region runner-struct

// Runner is the coordinator shared by the CLI and both servers. The selector
// must be fully configured before NewRunner; it is only read afterwards.
type Runner struct {
	sel      *jetid.Selector
	store    *store.Store // nil disables run recording
	lifetime *cutflow.Counter
	logger   *slog.Logger
}

// NewRunner wires a runner. st may be nil.
func NewRunner(sel *jetid.Selector, st *store.Store, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = logging.NewLogger(logging.ModeSilent, nil)
	}
	return &Runner{
		sel:      sel,
		store:    st,
		lifetime: cutflow.New(sel.Cuts()),
		logger:   logger,
	}
}

// Selector returns the selector batches are evaluated with.
func (r *Runner) Selector() *jetid.Selector { return r.sel }

// Describe lists the selector's cuts in registration order.
func (r *Runner) Describe() CutsResponse {
	resp := CutsResponse{Version: r.sel.Version().String(), Quality: r.sel.Quality().String()}
	for _, name := range r.sel.Cuts() {
		ignored, _ := r.sel.IsIgnored(name)
		resp.Cuts = append(resp.Cuts, CutInfo{Name: name, Ignored: ignored})
	}
	return resp
}

// Cutflow returns the cut flow over every batch this runner has seen.
func (r *Runner) Cutflow() []cutflow.Row { return r.lifetime.Rows() }

// Totals returns the jets seen and selected over every batch.
func (r *Runner) Totals() (total, selected int) {
	return r.lifetime.Total(), r.lifetime.Selected()
}

// #endregion runner-struct

// #region run

// Run evaluates jets in order. Cancelling ctx stops between jets; nothing is
// recorded for a cancelled batch.
func (r *Runner) Run(ctx context.Context, jets []jetid.Candidate, opts Options) (Result, error) {
	start := time.Now()
	counter := cutflow.New(r.sel.Cuts())
	res := Result{Jets: make([]JetResult, 0, len(jets))}
	ret := r.sel.NewBitset()

	for i := range jets {
		if err := jets[i].Validate(); err != nil {
			return Result{}, fmt.Errorf("jet %d: %w", i, err)
		}
	}

	for i, jet := range jets {
		if err := ctx.Err(); err != nil {
			return Result{}, fmt.Errorf("run cancelled after %d of %d jets: %w", i, len(jets), err)
		}
		passed := r.sel.EvaluateInto(jet, &ret)
		counter.Add(ret, passed)

		jr := JetResult{Index: i, Passed: passed, Cuts: ret.Clone()}
		for _, name := range ret.Names() {
			if ret.Flagged(name) && !ret.Test(name) {
				jr.FailedCuts = append(jr.FailedCuts, name)
			}
		}
		if passed {
			res.Selected++
		}
		res.Jets = append(res.Jets, jr)

		if opts.Progress != nil {
			opts.Progress(i + 1)
		}
	}
	res.Cutflow = counter.Rows()

	if r.store != nil {
		runID, err := r.record(jets, res, counter, opts)
		if err != nil {
			return Result{}, err
		}
		res.RunID = runID
	}

	// Only batches that were recorded count towards the lifetime totals.
	if err := r.lifetime.Merge(counter); err != nil {
		return Result{}, err
	}

	r.logger.Info("batch evaluated",
		"run_id", res.RunID,
		"source", opts.Source,
		"jets", len(jets),
		"selected", res.Selected,
		"elapsed", time.Since(start))
	return res, nil
}

// #endregion run

// #region record

func (r *Runner) record(jets []jetid.Candidate, res Result, counter *cutflow.Counter, opts Options) (string, error) {
	version, quality := r.sel.Version().String(), r.sel.Quality().String()
	disabled := r.sel.Disabled()

	decisions := make([]store.Decision, len(res.Jets))
	for i, jr := range res.Jets {
		decisions[i] = store.NewDecision(jr.Index, jets[i], jr.Cuts, jr.Passed)
	}
	summary, err := logging.Summarize(version, quality, disabled, counter).JSON()
	if err != nil {
		return "", err
	}

	run, err := r.store.RecordRun(store.RunRecord{
		Version:      version,
		Quality:      quality,
		DisabledCuts: disabled,
		Source:       opts.Source,
	}, decisions, summary)
	if err != nil {
		return "", err
	}

	trigger := opts.Trigger
	if trigger == "" {
		trigger = "batch"
	}
	err = logging.LogDecision(r.store.DB(), logging.SelectionEntry{
		RunID:       run.RunID,
		TriggerType: trigger,
		Decision:    "complete",
		Reason:      fmt.Sprintf("%d of %d jets selected", res.Selected, len(jets)),
	})
	if err != nil {
		// The run itself is stored; a missing log row only affects inspect.
		r.logger.Warn("selection log write failed", "run_id", run.RunID, "err", err)
	}
	return run.RunID, nil
}

// #endregion record
