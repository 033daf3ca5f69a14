package selector

import "errors"

// #region errors
// ErrUnknownCut is returned when a cut name was never registered.
var ErrUnknownCut = errors.New("unknown cut")

// #endregion errors

// #region selector-interface
// Selector is the capability shared by every cut-based selector: toggle named
// cuts, then evaluate a value into a fresh bitset.
type Selector[T any] interface {
	Enable(name string) error
	Disable(name string) error
	IsIgnored(name string) (bool, error)
	Evaluate(v T) (Bitset, bool)
}

// #endregion selector-interface
