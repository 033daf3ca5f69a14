package jetid

import (
	"fmt"
	"math"

	"github.com/danielpatrickdp/jetid/internal/selector"
)

// #region selector
// Selector applies the calorimeter noise jet-ID cuts for one version and
// quality. Configure cuts before sharing it; Evaluate itself is read-only.
type Selector struct {
	version Version
	quality Quality
	cuts    *selector.Cuts
}

var _ selector.Selector[Jet] = (*Selector)(nil)

type cutFunc func(s *Selector, jet Jet, ret *selector.Bitset) bool

// cutFuncs maps each supported version to its cut definition.
var cutFuncs = map[Version]cutFunc{
	CRAFT08: (*Selector).craft08Cuts,
}

// New registers every cut, all enabled. An unsupported version is accepted
// here and fails every evaluation.
func New(version Version, quality Quality) *Selector {
	return &Selector{
		version: version,
		quality: quality,
		cuts:    selector.NewCuts(CutNames()...),
	}
}

// Version returns the calibration era the selector was built for.
func (s *Selector) Version() Version { return s.version }

// Quality returns the tightness tier.
func (s *Selector) Quality() Quality { return s.quality }

// Enable puts a disabled cut back into the decision. Unknown names return
// an error wrapping selector.ErrUnknownCut.
func (s *Selector) Enable(name string) error { return s.cuts.Enable(name) }

// Disable ignores a cut: it is still reported but no longer decides the jet.
func (s *Selector) Disable(name string) error { return s.cuts.Disable(name) }

// IsIgnored reports whether name is disabled.
func (s *Selector) IsIgnored(name string) (bool, error) { return s.cuts.IsIgnored(name) }

// Cuts returns the registered cut names in order.
func (s *Selector) Cuts() []string { return s.cuts.Names() }

// Disabled returns the ignored cut names in order.
func (s *Selector) Disabled() []string { return s.cuts.Disabled() }

// NewBitset returns an empty result for this selector.
func (s *Selector) NewBitset() selector.Bitset { return s.cuts.NewBitset() }

// Evaluate runs the cuts against jet into a fresh bitset.
func (s *Selector) Evaluate(jet Jet) (selector.Bitset, bool) {
	ret := s.cuts.NewBitset()
	ok := s.EvaluateInto(jet, &ret)
	return ret, ok
}

// EvaluateInto resets ret and runs the cuts into it. A zero Bitset is
// initialised; a bitset from another registry is a programming error.
func (s *Selector) EvaluateInto(jet Jet, ret *selector.Bitset) bool {
	if !s.cuts.Owns(*ret) {
		if len(ret.Names()) != 0 {
			panic(fmt.Sprintf("jetid: bitset %v does not belong to this selector", ret.Names()))
		}
		*ret = s.cuts.NewBitset()
	}
	ret.Reset()

	fn, ok := cutFuncs[s.version]
	if !ok {
		return false
	}
	return fn(s, jet, ret)
}

// #endregion selector

// #region craft08
const (
	hbheEdge = 2.55 // |eta| upper edge of barrel+endcap
	heHFEdge = 3.25 // |eta| upper edge of the HE/HF transition
)

// craft08Cuts are the cuts from the CRAFT08 noise studies.
func (s *Selector) craft08Cuts(jet Jet, ret *selector.Bitset) bool {
	if s.quality != Loose && s.quality != Tight {
		return false
	}

	absEta := math.Abs(jet.Eta())
	corrPt := jet.CorrectedP4(L3).Pt
	emf := jet.EMEnergyFraction()
	id := jet.JetID()

	s.apply(ret, LooseFHPD, id.FHPD < 0.98)
	s.apply(ret, LooseN90Hits, id.N90Hits > 1)

	emfLoose := true
	if absEta <= hbheEdge {
		if emf <= 0.01 {
			emfLoose = false
		}
	} else {
		if emf <= -0.9 {
			emfLoose = false
		}
		if corrPt > 80 && emf >= 1 {
			emfLoose = false
		}
	}
	s.apply(ret, LooseEMF, emfLoose)

	if s.quality == Tight {
		tightFHPD := !(jet.Pt() >= 25 && id.FHPD >= 0.95)
		s.apply(ret, TightFHPD, tightFHPD)
		s.apply(ret, TightEMF, craft08TightEMF(absEta, corrPt, emf))
	}

	return ret.Bool()
}

// craft08TightEMF evaluates every region condition; any failure sticks.
func craft08TightEMF(absEta, corrPt, emf float64) bool {
	ok := true
	if absEta >= 1 && corrPt >= 80 && emf >= 1 { // outside HB
		ok = false
	}
	if absEta >= hbheEdge {
		if emf <= -0.3 {
			ok = false
		}
		if absEta < heHFEdge { // HE-HF transition
			if corrPt >= 50 && emf <= -0.2 {
				ok = false
			}
			if corrPt >= 80 && emf <= -0.1 {
				ok = false
			}
			if corrPt >= 340 && emf >= 0.95 {
				ok = false
			}
		} else { // HF
			if emf >= 0.9 {
				ok = false
			}
			if corrPt >= 50 && emf <= -0.2 {
				ok = false
			}
			if corrPt >= 50 && emf >= 0.8 {
				ok = false
			}
			if corrPt >= 130 && emf <= -0.1 {
				ok = false
			}
			if corrPt >= 130 && emf >= 0.7 {
				ok = false
			}
		}
	}
	return ok
}

// apply flags name and passes it when ignored or when cond holds.
func (s *Selector) apply(ret *selector.Bitset, name string, cond bool) {
	ret.Flag(name)
	if s.cuts.IgnoreCut(name) || cond {
		ret.Pass(name)
	}
}

// #endregion craft08
