package analysis

import (
	"math"

	"github.com/RyanBlaney/sonido-voice/algorithms/common"
	"github.com/RyanBlaney/sonido-voice/algorithms/spectral"
	"github.com/RyanBlaney/sonido-voice/algorithms/speech"
	"github.com/RyanBlaney/sonido-voice/algorithms/tonal"
	"github.com/RyanBlaney/sonido-voice/classify"
	"github.com/RyanBlaney/sonido-voice/goals"
)

// GlobalFeatures are whole-signal aggregates. Every field is either a finite
// number or nil when it could not be measured.
type GlobalFeatures struct {
	CPPMean           *float64 `json:"cpp_mean"`
	HNRMean           *float64 `json:"hnr_mean"`
	H1H2Mean          *float64 `json:"h1_h2_mean"`
	JitterPercent     *float64 `json:"jitter_percent"`
	ShimmerPercent    *float64 `json:"shimmer_percent"`
	F0MeanHz          *float64 `json:"f0_mean_hz"`
	F0RangeHz         *float64 `json:"f0_range_hz"`
	F3NoiseRatio      *float64 `json:"f3_noise_ratio"`
	SpectralTiltSlope *float64 `json:"spectral_tilt_slope"`
	RBIMean           *float64 `json:"rbi_mean"`
}

// MeasureGlobal computes every global feature except the RBI mean, which
// comes from the brightness series. A nil analyzer uses the default
// peak-picking period analyzer.
func MeasureGlobal(signal []float64, sampleRate int, periods speech.PeriodAnalyzer) GlobalFeatures {
	var g GlobalFeatures

	g.F0MeanHz, g.F0RangeHz = F0Stats(signal, sampleRate)
	g.CPPMean = speech.CPP(signal, sampleRate)
	g.HNRMean = speech.HNR(signal, sampleRate)
	g.JitterPercent, g.ShimmerPercent = speech.Perturbation(signal, sampleRate, periods)
	if g.F0MeanHz != nil {
		g.H1H2Mean = speech.H1H2(signal, sampleRate, *g.F0MeanHz)
	}
	g.F3NoiseRatio = spectral.F3NoiseRatio(signal, sampleRate)
	g.SpectralTiltSlope = spectral.TiltSlope(signal, sampleRate, spectral.TiltMinHz, spectral.TiltMaxHz)
	return g
}

// F0Stats returns the mean and the max-min range of the voiced F0 track
func F0Stats(signal []float64, sampleRate int) (mean, span *float64) {
	track := tonal.NewTracker(sampleRate).Track(signal)

	var voiced []float64
	for _, f := range track {
		if !math.IsNaN(f) && f > 0 {
			voiced = append(voiced, f)
		}
	}
	if len(voiced) == 0 {
		return nil, nil
	}

	lo, hi := voiced[0], voiced[0]
	for _, f := range voiced[1:] {
		lo = math.Min(lo, f)
		hi = math.Max(hi, f)
	}
	return common.Float(common.Mean(voiced)), common.Float(hi - lo)
}

// ClassifierInput maps the features onto the classifier's inputs
func (g GlobalFeatures) ClassifierInput() classify.Input {
	return classify.Input{
		CPP:       g.CPPMean,
		HNR:       g.HNRMean,
		H1H2:      g.H1H2Mean,
		Jitter:    g.JitterPercent,
		Shimmer:   g.ShimmerPercent,
		RBIMean:   g.RBIMean,
		F3Noise:   g.F3NoiseRatio,
		TiltSlope: g.SpectralTiltSlope,
		F0Mean:    g.F0MeanHz,
	}
}

// GoalMeasures returns the measurements goal presets check directly
func (g GlobalFeatures) GoalMeasures() goals.Measures {
	return goals.Measures{HNRMean: g.HNRMean, CPPMean: g.CPPMean}
}
