package store

import (
	"time"

	"github.com/danielpatrickdp/jetid/internal/jetid"
	"github.com/danielpatrickdp/jetid/internal/selector"
)

// #region run-record
// RunRecord describes one batch of jets evaluated with a fixed selector setup.
type RunRecord struct {
	RunID        string
	Version      string
	Quality      string
	DisabledCuts []string
	Source       string // input file, "grpc", "http", ...
	CreatedAt    time.Time
	SummaryJSON  string // cut flow rows, written when the run finishes
}

// #endregion run-record

// #region decision
// Decision is the stored outcome for one jet of a run.
type Decision struct {
	JetIndex int
	Jet      jetid.Candidate
	Cuts     map[string]bool
	Flagged  []string
	Passed   bool
}

// NewDecision captures ret for storage.
func NewDecision(index int, jet jetid.Candidate, ret selector.Bitset, passed bool) Decision {
	d := Decision{
		JetIndex: index,
		Jet:      jet,
		Cuts:     ret.Map(),
		Passed:   passed,
	}
	for _, name := range ret.Names() {
		if ret.Flagged(name) {
			d.Flagged = append(d.Flagged, name)
		}
	}
	return d
}

// Bitset rebuilds the evaluation result against sel's registry.
func (d Decision) Bitset(sel *jetid.Selector) selector.Bitset {
	ret := sel.NewBitset()
	for _, name := range d.Flagged {
		ret.Flag(name)
	}
	for name, on := range d.Cuts {
		if on {
			ret.Pass(name)
		}
	}
	return ret
}

// #endregion decision

// #region run-with-log
// RunWithLog pairs a run with its latest selection_log row.
type RunWithLog struct {
	RunRecord
	Decision string
	Reason   string
	Jets     int
	Selected int
}

// #endregion run-with-log
