package selector

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestCutsRegisterAndToggle(t *testing.T) {
	c := NewCuts("a", "b", "c")
	assert.Equal(t, []string{"a", "b", "c"}, c.Names())
	assert.Equal(t, 3, c.Len())

	ignored, err := c.IsIgnored("b")
	require.NoError(t, err)
	assert.False(t, ignored, "cuts are enabled on registration")

	require.NoError(t, c.Disable("b"))
	ignored, err = c.IsIgnored("b")
	require.NoError(t, err)
	assert.True(t, ignored)
	assert.True(t, c.IgnoreCut("b"))
	assert.Equal(t, []string{"b"}, c.Disabled())

	require.NoError(t, c.Enable("b"))
	assert.False(t, c.IgnoreCut("b"))
	assert.Empty(t, c.Disabled())
}

func TestCutsUnknownNameFailsLoudly(t *testing.T) {
	c := NewCuts("a")

	err := c.Enable("typo")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownCut))

	err = c.Disable("typo")
	assert.True(t, errors.Is(err, ErrUnknownCut))

	_, err = c.IsIgnored("typo")
	assert.True(t, errors.Is(err, ErrUnknownCut))

	assert.Panics(t, func() { c.IgnoreCut("typo") })
}

func TestCutsRegisterPanics(t *testing.T) {
	assert.Panics(t, func() { NewCuts("a", "a") }, "duplicate")
	assert.Panics(t, func() { NewCuts("") }, "empty")

	c := NewCuts("a")
	_ = c.NewBitset()
	assert.Panics(t, func() { c.Register("b") }, "register after seal")
}

func TestBitsetFlaggedSemantics(t *testing.T) {
	c := NewCuts("a", "b", "c")
	b := c.NewBitset()

	assert.True(t, b.Bool(), "nothing flagged is vacuously true")
	assert.Equal(t, 0, b.Count())

	b.Pass("a")
	b.Flag("b")
	assert.False(t, b.Bool(), "flagged b is unset")
	assert.True(t, b.Test("a"))
	assert.False(t, b.Test("b"))
	assert.False(t, b.Flagged("c"))

	b.Pass("b")
	assert.True(t, b.Bool(), "c is not flagged so it does not veto")
	assert.Equal(t, 2, b.Count())

	b.Reset()
	assert.Equal(t, 0, b.Count())
	assert.False(t, b.Flagged("a"))

	assert.Panics(t, func() { b.Pass("zzz") })
	assert.Panics(t, func() { _ = b.Test("zzz") })
}

func TestBitsetCloneIsIndependent(t *testing.T) {
	c := NewCuts("a", "b")
	b := c.NewBitset()
	b.Pass("a")

	cl := b.Clone()
	cl.Pass("b")
	assert.False(t, b.Test("b"))
	assert.True(t, cl.Test("b"))
	assert.True(t, c.Owns(cl))
	assert.False(t, NewCuts("x", "y").Owns(cl))
}

func TestBitsetStringAndJSON(t *testing.T) {
	c := NewCuts("LOOSE_fHPD", "LOOSE_EMF")
	b := c.NewBitset()
	b.Pass("LOOSE_EMF")

	assert.Equal(t, "LOOSE_fHPD=0 LOOSE_EMF=1", b.String())

	raw, err := json.Marshal(b)
	require.NoError(t, err)
	assert.Equal(t, `{"LOOSE_fHPD":false,"LOOSE_EMF":true}`, string(raw))
	assert.Equal(t, map[string]bool{"LOOSE_fHPD": false, "LOOSE_EMF": true}, b.Map())

	raw, err = yaml.Marshal(struct {
		Cuts Bitset `yaml:"cuts"`
	}{b})
	require.NoError(t, err)
	assert.Equal(t, "cuts:\n    LOOSE_EMF: true\n    LOOSE_fHPD: false\n", string(raw))
}
