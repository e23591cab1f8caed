package speech

import (
	"math"
)

// speedOfSoundCmPerS is the speed of sound in warm, humid air
const speedOfSoundCmPerS = 35000.0

// VocalTract is a vocal tract length estimate from formant dispersion
type VocalTract struct {
	LengthCm     float64   `json:"vtl_cm"`
	DeltaFHz     float64   `json:"delta_f"`
	FormantMeans []float64 `json:"formant_means"`
	Confidence   float64   `json:"confidence"`
	Method       string    `json:"method"`
}

// EstimateVTL models the tract as a closed-open tube where
// F_i = (2i-1)/2 · Δf. Δf is the regression slope of the formants on
// (2i-1)/2, VTL = c/(2Δf). Confidence falls linearly with the RMS error of
// the zero-intercept model, reaching 0 at 500 Hz. Needs at least two
// formants.
func EstimateVTL(formants []float64) *VocalTract {
	n := len(formants)
	if n < 2 {
		return nil
	}

	x := make([]float64, n)
	var meanX, meanY float64
	for i := range formants {
		x[i] = float64(2*(i+1)-1) / 2
		meanX += x[i]
		meanY += formants[i]
	}
	meanX /= float64(n)
	meanY /= float64(n)

	var cov, varX float64
	for i := range formants {
		cov += (x[i] - meanX) * (formants[i] - meanY)
		varX += (x[i] - meanX) * (x[i] - meanX)
	}

	deltaF := (formants[n-1] - formants[0]) / float64(n-1)
	if varX > 0 {
		deltaF = cov / varX
	}
	if deltaF <= 0 {
		return nil
	}

	var sq float64
	for i := range formants {
		d := formants[i] - x[i]*deltaF
		sq += d * d
	}
	rmse := math.Sqrt(sq / float64(n))

	means := make([]float64, n)
	copy(means, formants)
	return &VocalTract{
		LengthCm:     speedOfSoundCmPerS / (2 * deltaF),
		DeltaFHz:     deltaF,
		FormantMeans: means,
		Confidence:   math.Max(0, 1-rmse/500),
		Method:       "formant_dispersion_regression",
	}
}
