package logging

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/danielpatrickdp/jetid/internal/cutflow"
)

// #region log-decision
// LogDecision writes an entry to the selection_log table.
func LogDecision(db *sql.DB, entry SelectionEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := db.Exec(
		`INSERT INTO selection_log (run_id, trigger_type, decision, reason, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		entry.RunID,
		entry.TriggerType,
		entry.Decision,
		nullIfEmpty(entry.Reason),
		entry.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log decision: %w", err)
	}
	return nil
}

// #endregion log-decision

// #region summarize
// Summarize builds a RunSummary from a finished counter.
func Summarize(version, quality string, disabled []string, c *cutflow.Counter) RunSummary {
	if disabled == nil {
		disabled = []string{}
	}
	return RunSummary{
		Version:      version,
		Quality:      quality,
		DisabledCuts: disabled,
		Jets:         c.Total(),
		Selected:     c.Selected(),
		Cutflow:      c.Rows(),
	}
}

// JSON encodes the summary for storage.
func (s RunSummary) JSON() (string, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("marshal summary: %w", err)
	}
	return string(b), nil
}

// ParseSummary decodes a stored summary; an empty string yields nil.
func ParseSummary(raw string) (*RunSummary, error) {
	if raw == "" {
		return nil, nil
	}
	var s RunSummary
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return nil, fmt.Errorf("parse summary: %w", err)
	}
	return &s, nil
}

// #endregion summarize

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
