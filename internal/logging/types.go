package logging

import (
	"time"

	"github.com/danielpatrickdp/jetid/internal/cutflow"
)

// #region selection-entry
// SelectionEntry is a single row in the selection_log table.
type SelectionEntry struct {
	RunID       string
	TriggerType string // "cli" | "grpc" | "http" | "replay"
	Decision    string // "complete" | "failed"
	Reason      string
	CreatedAt   time.Time
}

// #endregion selection-entry

// #region run-summary
// RunSummary captures the selector setup and cut flow for one run.
// Serialized as JSON into selection_runs.summary_json.
type RunSummary struct {
	Version      string   `json:"version"`
	Quality      string   `json:"quality"`
	DisabledCuts []string `json:"disabled_cuts"`

	Jets     int `json:"jets"`
	Selected int `json:"selected"`

	Cutflow []cutflow.Row `json:"cutflow"`
}

// #endregion run-summary
