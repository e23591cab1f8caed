// Package classify maps global acoustic measurements onto perceptual voice
// quality scores and labels. Every function here is pure; a missing input is
// a nil pointer and results that cannot be derived are nil as well.
package classify

import (
	"math"

	"github.com/RyanBlaney/sonido-voice/algorithms/common"
)

// Input gathers the global measurements the classifiers read
type Input struct {
	CPP       *float64
	HNR       *float64
	H1H2      *float64
	Jitter    *float64
	Shimmer   *float64
	RBIMean   *float64
	F3Noise   *float64
	TiltSlope *float64
	F0Mean    *float64
}

// Summary is the classification of one recording or streaming window
type Summary struct {
	Label            string        `json:"overall_label"`
	BreathinessScore *float64      `json:"breathiness_score"`
	BreathinessGRBAS *int          `json:"breathiness_grbas"`
	BreathinessGrade string        `json:"breathiness_grade,omitempty"`
	BreathinessBasis string        `json:"breathiness_method,omitempty"`
	RoughnessScore   *float64      `json:"roughness_score"`
	StrainScore      *float64      `json:"strain_score"`
	RBIScore         *int          `json:"rbi_score"`
	ResonanceLabel   string        `json:"resonance_label"`
	Phonation        *Phonation    `json:"phonation"`
	Register         *Register     `json:"register"`
	Ventricular      *Ventricular  `json:"ventricular"`
	OpenQuotient     *OpenQuotient `json:"open_quotient"`
	Confidence       *float64      `json:"confidence"`
}

// Confidence rates how reliable the measurements are, not how good the
// voice is: 60% HNR (20 dB scores 100) and 40% CPP (10 dB scores 100).
func Confidence(hnr, cpp *float64) *float64 {
	var sub [2]*float64
	if hnr != nil {
		sub[0] = ptr(common.Clamp(*hnr/20*100, 0, 100))
	}
	if cpp != nil {
		sub[1] = ptr(common.Clamp(*cpp/10*100, 0, 100))
	}
	c, ok := common.WeightedMean(sub[:], []float64{0.6, 0.4})
	if !ok {
		return nil
	}
	return &c
}

// Classify runs every classifier over in
func Classify(in Input) Summary {
	s := Summary{
		RoughnessScore: Roughness(in.Jitter, in.Shimmer),
		StrainScore:    Strain(in.H1H2),
		ResonanceLabel: ResonanceLabel(in.RBIMean),
		Phonation:      ClassifyPhonation(in.TiltSlope, in.H1H2, in.Jitter, in.Shimmer, in.HNR),
		Register:       ClassifyRegister(in.F0Mean, in.TiltSlope, in.Jitter),
		Ventricular:    ClassifyVentricular(in.Jitter, in.Shimmer, in.HNR, in.H1H2),
		OpenQuotient:   ClassifyOpenQuotient(in.H1H2, in.TiltSlope, in.CPP, in.HNR),
		Confidence:     Confidence(in.HNR, in.CPP),
	}

	if b := ClassifyBreathiness(in.F3Noise, in.HNR, in.CPP, in.H1H2); b != nil {
		s.BreathinessScore = &b.Score
		s.BreathinessGRBAS = &b.GRBAS
		s.BreathinessGrade = GRBASLabel(b.GRBAS)
		s.BreathinessBasis = b.Method
	}
	if in.RBIMean != nil {
		v := int(math.Trunc(*in.RBIMean))
		s.RBIScore = &v
	}
	s.Label = OverallLabel(s.BreathinessScore, s.RoughnessScore, s.StrainScore)
	return s
}
