package selector

import (
	"fmt"
	"sync/atomic"
)

// #region cuts
// Cuts is an ordered registry of named cuts, each with an enabled flag.
// Registration happens once, before the first bitset is handed out; after
// that the name table is shared read-only by every Bitset. NewBitset may be
// called from many goroutines at once.
type Cuts struct {
	names   []string
	index   map[string]int
	enabled []bool
	sealed  atomic.Bool
}

// NewCuts registers names in order and enables all of them.
func NewCuts(names ...string) *Cuts {
	c := &Cuts{index: make(map[string]int, len(names))}
	for _, n := range names {
		c.Register(n)
	}
	return c
}

// Register appends an enabled cut. Duplicate names, empty names and
// registration after a bitset was created are programming errors.
func (c *Cuts) Register(name string) {
	if c.sealed.Load() {
		panic(fmt.Sprintf("selector: register %q after bitsets were created", name))
	}
	if name == "" {
		panic("selector: empty cut name")
	}
	if c.index == nil {
		c.index = make(map[string]int)
	}
	if _, dup := c.index[name]; dup {
		panic(fmt.Sprintf("selector: duplicate cut %q", name))
	}
	c.index[name] = len(c.names)
	c.names = append(c.names, name)
	c.enabled = append(c.enabled, true)
}

// Enable turns a cut back on.
func (c *Cuts) Enable(name string) error {
	return c.setEnabled(name, true)
}

// Disable makes a cut pass unconditionally.
func (c *Cuts) Disable(name string) error {
	return c.setEnabled(name, false)
}

func (c *Cuts) setEnabled(name string, on bool) error {
	i, ok := c.index[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownCut, name)
	}
	c.enabled[i] = on
	return nil
}

// IsIgnored reports whether a cut is disabled.
func (c *Cuts) IsIgnored(name string) (bool, error) {
	i, ok := c.index[name]
	if !ok {
		return false, fmt.Errorf("%w: %q", ErrUnknownCut, name)
	}
	return !c.enabled[i], nil
}

// IgnoreCut is IsIgnored for use inside cut evaluation, where the name is a
// compile-time constant. It panics on an unregistered name.
func (c *Cuts) IgnoreCut(name string) bool {
	i, ok := c.index[name]
	if !ok {
		panic(fmt.Sprintf("selector: %v: %q", ErrUnknownCut, name))
	}
	return !c.enabled[i]
}

// Names returns the registered names in registration order.
func (c *Cuts) Names() []string {
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}

// Len returns the number of registered cuts.
func (c *Cuts) Len() int {
	return len(c.names)
}

// Disabled returns the names of ignored cuts in registration order.
func (c *Cuts) Disabled() []string {
	var out []string
	for i, n := range c.names {
		if !c.enabled[i] {
			out = append(out, n)
		}
	}
	return out
}

// NewBitset returns an all-false bitset over the registered names.
func (c *Cuts) NewBitset() Bitset {
	if !c.sealed.Load() {
		c.sealed.Store(true)
	}
	return Bitset{
		names:   c.names,
		index:   c.index,
		bits:    make([]bool, len(c.names)),
		flagged: make([]bool, len(c.names)),
	}
}

// Owns reports whether b was created by this registry.
func (c *Cuts) Owns(b Bitset) bool {
	if len(b.names) != len(c.names) {
		return false
	}
	for i := range c.names {
		if b.names[i] != c.names[i] {
			return false
		}
	}
	return true
}

// #endregion cuts
