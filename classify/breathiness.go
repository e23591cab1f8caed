package classify

import (
	"github.com/RyanBlaney/sonido-voice/algorithms/common"
)

// Breathiness methods
const (
	MethodComposite = "composite"
	MethodThreshold = "threshold"
)

// Composite weights. Missing sub-scores drop out and the remaining weights
// are renormalized.
const (
	weightF3   = 0.40
	weightHNR  = 0.25
	weightCPP  = 0.20
	weightH1H2 = 0.15
)

// Breathiness is the breathiness assessment
type Breathiness struct {
	Score  float64 `json:"score"`
	GRBAS  int     `json:"grbas"`
	Method string  `json:"method"`
}

// GRBAS buckets a 0-100 breathiness score: [0,25) modal, [25,50) slight,
// [50,75) moderate, [75,100] severe
func GRBAS(score float64) int {
	switch {
	case score < 25:
		return 0
	case score < 50:
		return 1
	case score < 75:
		return 2
	default:
		return 3
	}
}

// GRBASLabel names a GRBAS breathiness grade
func GRBASLabel(grade int) string {
	switch grade {
	case 0:
		return "modal"
	case 1:
		return "slight"
	case 2:
		return "moderate"
	default:
		return "severe"
	}
}

// BreathinessComposite blends the F3 noise ratio with HNR, CPP and H1-H2
// sub-scores, each mapped to 0-100 where higher is breathier.
func BreathinessComposite(f3Noise, hnr, cpp, h1h2 *float64) (float64, bool) {
	var sub [4]*float64
	if f3Noise != nil {
		sub[0] = ptr(common.Scale01(*f3Noise, -2.0, -0.5))
	}
	if hnr != nil {
		sub[1] = ptr(common.Scale01(*hnr, 20, 5))
	}
	if cpp != nil {
		sub[2] = ptr(common.Clamp((14-*cpp)/12*100, 0, 100))
	}
	if h1h2 != nil {
		sub[3] = ptr(common.Clamp((*h1h2+2)/14*100, 0, 100))
	}
	return common.WeightedMean(sub[:], []float64{weightF3, weightHNR, weightCPP, weightH1H2})
}

// BreathinessThreshold is the coarse ladder used when no F3 measurement
// exists. Later rungs override earlier ones; a missing input never satisfies
// a condition.
func BreathinessThreshold(cpp, hnr, h1h2 *float64) float64 {
	score := 0.0
	if lt(cpp, 2.5) || lt(hnr, 10) || gt(h1h2, 6) {
		score = 70
	}
	if lt(cpp, 1.5) || lt(hnr, 7) || gt(h1h2, 10) {
		score = 90
	}
	if gt(cpp, 4.5) && gt(hnr, 15) && lt(h1h2, 4) {
		score = 20
	}
	return score
}

// ClassifyBreathiness uses the composite when an F3 noise ratio is available
// and the threshold ladder otherwise. It returns nil when none of the
// periodicity measures exist.
func ClassifyBreathiness(f3Noise, hnr, cpp, h1h2 *float64) *Breathiness {
	if f3Noise != nil {
		if score, ok := BreathinessComposite(f3Noise, hnr, cpp, h1h2); ok {
			return &Breathiness{Score: score, GRBAS: GRBAS(score), Method: MethodComposite}
		}
	}
	if cpp == nil && hnr == nil && h1h2 == nil {
		return nil
	}
	score := BreathinessThreshold(cpp, hnr, h1h2)
	return &Breathiness{Score: score, GRBAS: GRBAS(score), Method: MethodThreshold}
}

func ptr(v float64) *float64 { return &v }

func lt(v *float64, limit float64) bool { return v != nil && *v < limit }

func gt(v *float64, limit float64) bool { return v != nil && *v > limit }

func ge(v *float64, limit float64) bool { return v != nil && *v >= limit }
