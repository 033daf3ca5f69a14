package selector

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// #region bitset
// Bitset holds one pass bit per registered cut. A cut is flagged when it took
// part in a decision; the bitset is true when every flagged bit is set.
type Bitset struct {
	names   []string
	index   map[string]int
	bits    []bool
	flagged []bool
}

func (b *Bitset) pos(name string) int {
	i, ok := b.index[name]
	if !ok {
		panic(fmt.Sprintf("selector: %v: %q", ErrUnknownCut, name))
	}
	return i
}

// Flag marks a cut as taking part in the decision without passing it.
func (b *Bitset) Flag(name string) {
	b.flagged[b.pos(name)] = true
}

// Pass flags a cut and sets its bit.
func (b *Bitset) Pass(name string) {
	i := b.pos(name)
	b.flagged[i] = true
	b.bits[i] = true
}

// Test returns the bit for name.
func (b Bitset) Test(name string) bool {
	return b.bits[b.pos(name)]
}

// Flagged reports whether name took part in the last decision.
func (b Bitset) Flagged(name string) bool {
	return b.flagged[b.pos(name)]
}

// Reset clears every bit and flag.
func (b *Bitset) Reset() {
	for i := range b.bits {
		b.bits[i] = false
		b.flagged[i] = false
	}
}

// Bool is true iff every flagged bit is set.
func (b Bitset) Bool() bool {
	for i, f := range b.flagged {
		if f && !b.bits[i] {
			return false
		}
	}
	return true
}

// Count returns the number of set bits.
func (b Bitset) Count() int {
	n := 0
	for _, v := range b.bits {
		if v {
			n++
		}
	}
	return n
}

// Names returns the cut names in registration order.
func (b Bitset) Names() []string {
	out := make([]string, len(b.names))
	copy(out, b.names)
	return out
}

// Map returns the bits keyed by cut name.
func (b Bitset) Map() map[string]bool {
	m := make(map[string]bool, len(b.names))
	for i, n := range b.names {
		m[n] = b.bits[i]
	}
	return m
}

// Clone returns an independent copy sharing the name table.
func (b Bitset) Clone() Bitset {
	c := b
	c.bits = append([]bool(nil), b.bits...)
	c.flagged = append([]bool(nil), b.flagged...)
	return c
}

// String renders "name=1 name=0 ..." in registration order.
func (b Bitset) String() string {
	var sb strings.Builder
	for i, n := range b.names {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(n)
		if b.bits[i] {
			sb.WriteString("=1")
		} else {
			sb.WriteString("=0")
		}
	}
	return sb.String()
}

// MarshalJSON encodes the bits as an object in registration order.
func (b Bitset) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, n := range b.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(n)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		if b.bits[i] {
			buf.WriteString(":true")
		} else {
			buf.WriteString(":false")
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalYAML encodes the bits as a mapping of cut name to bit.
func (b Bitset) MarshalYAML() (interface{}, error) {
	return b.Map(), nil
}

// #endregion bitset
