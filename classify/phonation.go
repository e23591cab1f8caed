package classify

import (
	"github.com/RyanBlaney/sonido-voice/algorithms/common"
)

// Phonation states
const (
	PhonationBreathy = "breathy"
	PhonationFlow    = "flow"
	PhonationNeutral = "neutral"
	PhonationPressed = "pressed"
)

// Phonation is the phonation-state assessment derived from the dB/octave
// spectral tilt
type Phonation struct {
	State      string  `json:"state"`
	Confidence float64 `json:"confidence"`
	Stability  float64 `json:"stability"`
	Feedback   string  `json:"feedback"`
}

var phonationFeedback = map[string]string{
	PhonationBreathy: "Breathy phonation. The folds are not closing fully; add a little more closure.",
	PhonationFlow:    "Flow phonation. Light, efficient closure with free airflow.",
	PhonationNeutral: "Neutral phonation. Balanced closure.",
	PhonationPressed: "Pressed phonation. The folds are squeezing; release some effort.",
}

// h1h2Agreement is the H1-H2 range (dB) that corroborates each state
var h1h2Agreement = map[string][2]float64{
	PhonationBreathy: {4, 1e9},
	PhonationFlow:    {1, 8},
	PhonationNeutral: {-2, 4},
	PhonationPressed: {-1e9, 0},
}

// PhonationState buckets a spectral tilt slope: >=8 breathy, [3,8) flow,
// [-2,3) neutral, below -2 pressed. The slope is the dB/octave regression
// over 300-4000 Hz, which is negative for most voices (roughly -12 to -3
// dB/octave), so typical modal speech falls in pressed and only very flat
// or rising spectra reach the other states.
func PhonationState(slope float64) string {
	switch {
	case slope >= 8:
		return PhonationBreathy
	case slope >= 3:
		return PhonationFlow
	case slope >= -2:
		return PhonationNeutral
	default:
		return PhonationPressed
	}
}

// ClassifyPhonation returns nil without a tilt slope. Confidence starts at
// 0.7 and moves by 0.2 depending on whether H1-H2 agrees with the state.
func ClassifyPhonation(slope, h1h2, jitter, shimmer, hnr *float64) *Phonation {
	if slope == nil {
		return nil
	}
	state := PhonationState(*slope)

	confidence := 0.7
	if h1h2 != nil {
		r := h1h2Agreement[state]
		if *h1h2 >= r[0] && *h1h2 < r[1] {
			confidence += 0.2
		} else {
			confidence -= 0.2
		}
	}

	return &Phonation{
		State:      state,
		Confidence: confidence,
		Stability:  Stability(jitter, shimmer, hnr),
		Feedback:   phonationFeedback[state],
	}
}

// Stability scores steadiness from 0 to 100: jitter and shimmer cost 20 and
// 6 points per percent, HNR above 15 dB earns 2 points per dB (and costs the
// same below). Missing measures contribute nothing.
func Stability(jitter, shimmer, hnr *float64) float64 {
	s := 100.0
	if jitter != nil {
		s -= 20 * *jitter
	}
	if shimmer != nil {
		s -= 6 * *shimmer
	}
	if hnr != nil {
		s += 2 * (*hnr - 15)
	}
	return common.Clamp(s, 0, 100)
}
