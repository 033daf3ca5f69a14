package cutflow

import (
	"fmt"
	"io"
	"sync"
	"text/tabwriter"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/danielpatrickdp/jetid/internal/selector"
)

// DefaultConfidence is the central interval used for efficiencies (1 sigma).
const DefaultConfidence = 0.6827

// #region row
// Row is one line of a cut flow.
type Row struct {
	Cut        string  `json:"cut"`
	Evaluated  int     `json:"evaluated"`  // jets where the cut took part
	Passed     int     `json:"passed"`     // of those, jets that passed it
	Surviving  int     `json:"surviving"`  // jets passing this and every earlier cut
	Efficiency float64 `json:"efficiency"` // Passed / Evaluated
	Low        float64 `json:"low"`
	High       float64 `json:"high"`
}

// #endregion row

// #region counter
// Counter accumulates per-cut pass counts in registration order.
// It is safe for concurrent use.
type Counter struct {
	mu        sync.Mutex
	names     []string
	total     int
	selected  int
	evaluated []int
	passed    []int
	surviving []int
}

// New creates a counter over names in cut order.
func New(names []string) *Counter {
	n := len(names)
	return &Counter{
		names:     append([]string(nil), names...),
		evaluated: make([]int, n),
		passed:    make([]int, n),
		surviving: make([]int, n),
	}
}

// Add records one evaluated jet. Cuts that did not take part never remove
// a jet from the surviving count.
func (c *Counter) Add(ret selector.Bitset, selected bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.total++
	if selected {
		c.selected++
	}
	alive := true
	for i, name := range c.names {
		if ret.Flagged(name) {
			c.evaluated[i]++
			if ret.Test(name) {
				c.passed[i]++
			} else {
				alive = false
			}
		}
		if alive {
			c.surviving[i]++
		}
	}
}

// Merge adds other's counts into c. Both must share the same cut order.
func (c *Counter) Merge(other *Counter) error {
	other.mu.Lock()
	names := append([]string(nil), other.names...)
	total, selected := other.total, other.selected
	evaluated := append([]int(nil), other.evaluated...)
	passed := append([]int(nil), other.passed...)
	surviving := append([]int(nil), other.surviving...)
	other.mu.Unlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if len(names) != len(c.names) {
		return fmt.Errorf("merge cutflow: %d cuts vs %d", len(names), len(c.names))
	}
	for i := range names {
		if names[i] != c.names[i] {
			return fmt.Errorf("merge cutflow: cut %d is %q, want %q", i, names[i], c.names[i])
		}
	}
	c.total += total
	c.selected += selected
	for i := range c.names {
		c.evaluated[i] += evaluated[i]
		c.passed[i] += passed[i]
		c.surviving[i] += surviving[i]
	}
	return nil
}

// Total returns the number of jets recorded.
func (c *Counter) Total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.total
}

// Selected returns the number of jets that passed overall.
func (c *Counter) Selected() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selected
}

// Rows returns the cut flow with intervals at DefaultConfidence.
func (c *Counter) Rows() []Row {
	c.mu.Lock()
	defer c.mu.Unlock()

	rows := make([]Row, len(c.names))
	for i, name := range c.names {
		lo, hi := ClopperPearson(c.passed[i], c.evaluated[i], DefaultConfidence)
		eff := 0.0
		if c.evaluated[i] > 0 {
			eff = float64(c.passed[i]) / float64(c.evaluated[i])
		}
		rows[i] = Row{
			Cut:        name,
			Evaluated:  c.evaluated[i],
			Passed:     c.passed[i],
			Surviving:  c.surviving[i],
			Efficiency: eff,
			Low:        lo,
			High:       hi,
		}
	}
	return rows
}

// WriteTable prints the cut flow as an aligned table.
func (c *Counter) WriteTable(w io.Writer) error {
	tw := newTable(w)
	writeRows(tw, c.Rows())
	fmt.Fprintf(tw, "selected\t%d\t%d\t\t\n", c.Total(), c.Selected())
	return tw.Flush()
}

// WriteRows prints rows in the WriteTable layout, without the totals line.
func WriteRows(w io.Writer, rows []Row) error {
	tw := newTable(w)
	writeRows(tw, rows)
	return tw.Flush()
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func writeRows(tw *tabwriter.Writer, rows []Row) {
	fmt.Fprintln(tw, "CUT\tEVALUATED\tPASSED\tSURVIVING\tEFFICIENCY")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%.4f [%.4f, %.4f]\n",
			r.Cut, r.Evaluated, r.Passed, r.Surviving, r.Efficiency, r.Low, r.High)
	}
}

// #endregion counter

// #region interval
// ClopperPearson returns the exact binomial interval for k successes out of n
// at confidence level cl. n == 0 gives the uninformative [0, 1].
func ClopperPearson(k, n int, cl float64) (low, high float64) {
	if n <= 0 {
		return 0, 1
	}
	alpha := 1 - cl
	low, high = 0, 1
	if k > 0 {
		low = distuv.Beta{Alpha: float64(k), Beta: float64(n - k + 1)}.Quantile(alpha / 2)
	}
	if k < n {
		high = distuv.Beta{Alpha: float64(k + 1), Beta: float64(n - k)}.Quantile(1 - alpha/2)
	}
	return low, high
}

// #endregion interval
