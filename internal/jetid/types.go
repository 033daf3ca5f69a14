package jetid

import (
	"errors"
	"fmt"
	"strings"
)

// #region errors
var (
	ErrUnknownVersion = errors.New("unknown jet-id version")
	ErrUnknownQuality = errors.New("unknown jet-id quality")
	// ErrUnknownCorrection rejects correction labels such as "L3Absolute"
	// that would otherwise fall back to the raw four-vector.
	ErrUnknownCorrection = errors.New("unknown correction level")
)

// #endregion errors

// #region version
// Version selects the calibration era the cuts were derived for.
type Version int

const (
	CRAFT08 Version = iota
	NVersions
)

func (v Version) String() string {
	switch v {
	case CRAFT08:
		return "CRAFT08"
	default:
		return fmt.Sprintf("Version(%d)", int(v))
	}
}

// Valid reports whether v names a supported calibration era.
func (v Version) Valid() bool {
	_, ok := cutFuncs[v]
	return ok
}

// ParseVersion maps a name such as "CRAFT08" (case-insensitive) to a Version.
func ParseVersion(s string) (Version, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "CRAFT08":
		return CRAFT08, nil
	}
	return NVersions, fmt.Errorf("%w: %q", ErrUnknownVersion, s)
}

// #endregion version

// #region quality
// Quality is the tightness tier. TIGHT runs every LOOSE cut plus its own.
type Quality int

const (
	Loose Quality = iota
	Tight
	NQuality
)

func (q Quality) String() string {
	switch q {
	case Loose:
		return "LOOSE"
	case Tight:
		return "TIGHT"
	default:
		return fmt.Sprintf("Quality(%d)", int(q))
	}
}

// ParseQuality maps "LOOSE" or "TIGHT" (case-insensitive) to a Quality.
func ParseQuality(s string) (Quality, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "LOOSE":
		return Loose, nil
	case "TIGHT":
		return Tight, nil
	}
	return NQuality, fmt.Errorf("%w: %q", ErrUnknownQuality, s)
}

// #endregion quality

// #region cut-names
const (
	LooseFHPD    = "LOOSE_fHPD"
	LooseN90Hits = "LOOSE_N90Hits"
	LooseEMF     = "LOOSE_EMF"
	TightFHPD    = "TIGHT_fHPD"
	TightEMF     = "TIGHT_EMF"
)

// CutNames lists every cut in registration order.
func CutNames() []string {
	return []string{LooseFHPD, LooseN90Hits, LooseEMF, TightFHPD, TightEMF}
}

// #endregion cut-names

// #region jet
// CorrectionLevel names a jet energy correction step.
type CorrectionLevel string

const (
	Raw CorrectionLevel = "Raw"
	L1  CorrectionLevel = "L1"
	L2  CorrectionLevel = "L2"
	L3  CorrectionLevel = "L3"
)

// Valid reports whether l is one of Raw, L1, L2 or L3. Names are case-sensitive.
func (l CorrectionLevel) Valid() bool {
	switch l {
	case Raw, L1, L2, L3:
		return true
	}
	return false
}

// UnmarshalText rejects unknown levels, so a misspelled corrections key
// fails the decode instead of being ignored.
func (l *CorrectionLevel) UnmarshalText(b []byte) error {
	v := CorrectionLevel(b)
	if !v.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownCorrection, string(b))
	}
	*l = v
	return nil
}

// FourVector is a (pt, eta, phi, mass) momentum.
type FourVector struct {
	Pt   float64 `json:"pt" yaml:"pt"`
	Eta  float64 `json:"eta" yaml:"eta"`
	Phi  float64 `json:"phi" yaml:"phi"`
	Mass float64 `json:"mass" yaml:"mass"`
}

// IDInfo carries the calorimeter noise variables.
type IDInfo struct {
	FHPD    float64 `json:"fhpd" yaml:"fhpd"`       // energy fraction in the hottest HPD
	N90Hits int     `json:"n90hits" yaml:"n90hits"` // cells holding 90% of the energy
}

// Jet is the read-only view the selector needs.
type Jet interface {
	Eta() float64
	Pt() float64
	CorrectedP4(level CorrectionLevel) FourVector
	EMEnergyFraction() float64
	JetID() IDInfo
}

// Candidate is a plain Jet value, as decoded from jet files and RPC requests.
// Corrections holds scale factors relative to P4; a missing level scales by 1.
type Candidate struct {
	P4          FourVector                  `json:"p4" yaml:"p4"`
	EMF         float64                     `json:"emf" yaml:"emf"`
	ID          IDInfo                      `json:"id" yaml:"id"`
	Corrections map[CorrectionLevel]float64 `json:"corrections,omitempty" yaml:"corrections,omitempty"`
}

// Validate checks every corrections key names a known level.
func (c Candidate) Validate() error {
	for level := range c.Corrections {
		if !level.Valid() {
			return fmt.Errorf("%w: %q", ErrUnknownCorrection, string(level))
		}
	}
	return nil
}

func (c Candidate) Eta() float64              { return c.P4.Eta }
func (c Candidate) Pt() float64               { return c.P4.Pt }
func (c Candidate) EMEnergyFraction() float64 { return c.EMF }
func (c Candidate) JetID() IDInfo             { return c.ID }

// CorrectedP4 scales pt and mass by the factor stored for level.
func (c Candidate) CorrectedP4(level CorrectionLevel) FourVector {
	f, ok := c.Corrections[level]
	if !ok || level == Raw {
		f = 1
	}
	return FourVector{
		Pt:   c.P4.Pt * f,
		Eta:  c.P4.Eta,
		Phi:  c.P4.Phi,
		Mass: c.P4.Mass * f,
	}
}

// #endregion jet
