package classify

import (
	"github.com/RyanBlaney/sonido-voice/algorithms/common"
)

// Open quotient zones
const (
	OQLow      = "low"
	OQBalanced = "balanced"
	OQHigh     = "high"
)

// OpenQuotient estimates the share of each glottal cycle the folds spend open
type OpenQuotient struct {
	Percent  float64 `json:"percent"`
	Zone     string  `json:"zone"`
	Feedback string  `json:"feedback"`
}

var oqFeedback = map[string]string{
	OQLow:      "Low open quotient. Closure is firm; let a little more air through.",
	OQBalanced: "Balanced open quotient.",
	OQHigh:     "High open quotient. The folds stay open long; firm up closure slightly.",
}

// OpenQuotientPercent maps each measure onto a 0-100 OQ scale and blends
// them with weights H1-H2 0.5, tilt 0.25, CPP 0.15, HNR 0.1:
//
//	H1-H2: 50 + 5·h1h2
//	tilt:  50 + 5·(-slope - 12)
//	CPP:   100 - (cpp - 2)/12·100
//	HNR:   100 - hnr/30·100
func OpenQuotientPercent(h1h2, slope, cpp, hnr *float64) (float64, bool) {
	var m [4]*float64
	if h1h2 != nil {
		m[0] = ptr(common.Clamp(50+5*(*h1h2), 0, 100))
	}
	if slope != nil {
		m[1] = ptr(common.Clamp(50+(-*slope-12)*5, 0, 100))
	}
	if cpp != nil {
		m[2] = ptr(common.Clamp(100-(*cpp-2)/12*100, 0, 100))
	}
	if hnr != nil {
		m[3] = ptr(common.Clamp(100-*hnr*100/30, 0, 100))
	}
	return common.WeightedMean(m[:], []float64{0.5, 0.25, 0.15, 0.1})
}

// OQZone buckets an OQ percentage: below 35 low, below 65 balanced, else high
func OQZone(percent float64) string {
	switch {
	case percent < 35:
		return OQLow
	case percent < 65:
		return OQBalanced
	default:
		return OQHigh
	}
}

// ClassifyOpenQuotient returns nil when no measure is available
func ClassifyOpenQuotient(h1h2, slope, cpp, hnr *float64) *OpenQuotient {
	p, ok := OpenQuotientPercent(h1h2, slope, cpp, hnr)
	if !ok {
		return nil
	}
	zone := OQZone(p)
	return &OpenQuotient{Percent: p, Zone: zone, Feedback: oqFeedback[zone]}
}
