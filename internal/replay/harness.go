package replay

import (
	"github.com/danielpatrickdp/jetid/internal/cutflow"
	"github.com/danielpatrickdp/jetid/internal/jetid"
	"github.com/danielpatrickdp/jetid/internal/selector"
)

// #region types
// ReplayResult captures the outcome of replaying one jet through the selector.
type ReplayResult struct {
	Index      int
	Passed     bool
	Bits       selector.Bitset
	FailedCuts []string // flagged cuts whose bit stayed unset
}

// ReplaySummary provides aggregate stats from a replay run.
type ReplaySummary struct {
	TotalJets int
	Selected  int
	Rejected  int
	Cutflow   []cutflow.Row
}

// #endregion types

// #region replay
// Replay evaluates jets in order with sel, reusing one bitset.
func Replay(sel *jetid.Selector, jets []jetid.Candidate) []ReplayResult {
	results := make([]ReplayResult, 0, len(jets))
	ret := sel.NewBitset()

	for i, jet := range jets {
		passed := sel.EvaluateInto(jet, &ret)

		var failed []string
		for _, name := range ret.Names() {
			if ret.Flagged(name) && !ret.Test(name) {
				failed = append(failed, name)
			}
		}
		results = append(results, ReplayResult{
			Index:      i,
			Passed:     passed,
			Bits:       ret.Clone(),
			FailedCuts: failed,
		})
	}
	return results
}

// Summarize computes aggregate stats and the cut flow from replay results.
func Summarize(sel *jetid.Selector, results []ReplayResult) ReplaySummary {
	c := cutflow.New(sel.Cuts())
	s := ReplaySummary{TotalJets: len(results)}
	for _, r := range results {
		c.Add(r.Bits, r.Passed)
		if r.Passed {
			s.Selected++
		} else {
			s.Rejected++
		}
	}
	s.Cutflow = c.Rows()
	return s
}

// #endregion replay
