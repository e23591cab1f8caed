package classify

import (
	"github.com/RyanBlaney/sonido-voice/algorithms/common"
)

// Ventricular severities
const (
	VentricularNone     = "none"
	VentricularPossible = "possible"
	VentricularLikely   = "likely"
)

// Ventricular is the risk that the false folds are engaging
type Ventricular struct {
	Detected bool    `json:"detected"`
	Severity string  `json:"severity"`
	Risk     float64 `json:"risk"`
	Feedback string  `json:"feedback"`
}

var ventricularFeedback = map[string]string{
	VentricularNone:     "No sign of false-fold engagement.",
	VentricularPossible: "Some constriction above the vocal folds. Try a yawn-sigh to open the throat.",
	VentricularLikely:   "Likely false-fold engagement. Stop, release the throat, and restart on a gentle hum.",
}

// VentricularRisk blends four indicators, each in [0,1]: jitter above 0.5%,
// shimmer above 2%, HNR deficit below 20 dB and pressed phonation from H1-H2
// below 2 dB. Missing indicators drop out of the weighted mean.
func VentricularRisk(jitter, shimmer, hnr, h1h2 *float64) (float64, bool) {
	var ind [4]*float64
	if jitter != nil {
		ind[0] = ptr(common.Clamp((*jitter-0.5)/2, 0, 1))
	}
	if shimmer != nil {
		ind[1] = ptr(common.Clamp((*shimmer-2)/6, 0, 1))
	}
	if hnr != nil {
		ind[2] = ptr(common.Clamp((20-*hnr)/15, 0, 1))
	}
	if h1h2 != nil {
		ind[3] = ptr(common.Clamp((2-*h1h2)/8, 0, 1))
	}
	return common.WeightedMean(ind[:], []float64{0.3, 0.25, 0.25, 0.2})
}

// VentricularSeverity bands a risk: below 0.4 none, below 0.6 possible,
// otherwise likely
func VentricularSeverity(risk float64) string {
	switch {
	case risk < 0.4:
		return VentricularNone
	case risk < 0.6:
		return VentricularPossible
	default:
		return VentricularLikely
	}
}

// ClassifyVentricular returns nil when no indicator is available
func ClassifyVentricular(jitter, shimmer, hnr, h1h2 *float64) *Ventricular {
	risk, ok := VentricularRisk(jitter, shimmer, hnr, h1h2)
	if !ok {
		return nil
	}
	sev := VentricularSeverity(risk)
	return &Ventricular{
		Detected: sev != VentricularNone,
		Severity: sev,
		Risk:     risk,
		Feedback: ventricularFeedback[sev],
	}
}
