package classify

import (
	"github.com/RyanBlaney/sonido-voice/algorithms/common"
)

// Laryngeal mechanisms
const (
	MechanismM0     = "M0"
	MechanismM1     = "M1"
	MechanismM2     = "M2"
	MechanismM3     = "M3"
	MechanismMix    = "Mix"
	MechanismStrain = "Strain"
)

const (
	pulseMaxF0   = 70.0
	whistleMinF0 = 1000.0
	chestSlope   = -9.0
	headSlope    = -15.0
	strainSlope  = -5.0
	strainJitter = 1.2
)

// Register is the estimated laryngeal mechanism
type Register struct {
	Mechanism string `json:"mechanism"`
	Label     string `json:"label"`
	// MixRatio is the head-voice share between the chest and head
	// thresholds, set only for Mix
	MixRatio *float64 `json:"mix_ratio,omitempty"`
	Feedback string   `json:"feedback"`
}

var registerInfo = map[string][2]string{
	MechanismM0:     {"Pulse (vocal fry)", "Vocal fry. Raise pitch or add breath support to leave pulse register."},
	MechanismM1:     {"Chest (M1)", "Chest register. Full fold contact with a steep harmonic balance."},
	MechanismM2:     {"Head (M2)", "Head register. Thin fold contact; keep it supported."},
	MechanismM3:     {"Whistle (M3)", "Whistle register."},
	MechanismMix:    {"Mix", "Mixed register between chest and head."},
	MechanismStrain: {"Strain", "Flat spectrum with unstable pitch. Back off the pressure before continuing."},
}

func newRegister(mechanism string) *Register {
	info := registerInfo[mechanism]
	return &Register{Mechanism: mechanism, Label: info[0], Feedback: info[1]}
}

// ClassifyRegister decides the mechanism from F0 and spectral tilt slope.
// Pitch extremes decide first, then the strain override (slope above -5
// dB/octave with jitter above 1.2%), then the slope buckets with a linear
// mix ratio between -9 and -15 dB/octave. Returns nil when F0 is missing, or
// when the slope is missing and F0 is in the modal range.
func ClassifyRegister(f0, slope, jitter *float64) *Register {
	if f0 == nil {
		return nil
	}
	switch {
	case *f0 < pulseMaxF0:
		return newRegister(MechanismM0)
	case *f0 > whistleMinF0:
		return newRegister(MechanismM3)
	}
	if slope == nil {
		return nil
	}

	s := *slope
	switch {
	case s > strainSlope && gt(jitter, strainJitter):
		return newRegister(MechanismStrain)
	case s > chestSlope:
		return newRegister(MechanismM1)
	case s < headSlope:
		return newRegister(MechanismM2)
	}
	r := newRegister(MechanismMix)
	r.MixRatio = ptr(common.Clamp((chestSlope-s)/(chestSlope-headSlope), 0, 1))
	return r
}
