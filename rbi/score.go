package rbi

import (
	"gonum.org/v1/gonum/mat"

	"github.com/RyanBlaney/sonido-voice/algorithms/common"
	"github.com/RyanBlaney/sonido-voice/algorithms/spectral"
)

// Score weights and smoothing
const (
	WeightRatio    = 0.4
	WeightCentroid = 0.25
	WeightTilt     = 0.25
	WeightF0       = 0.1

	Alpha = 0.2
	Seed  = 50.0

	F0LowHz  = 120.0
	F0HighHz = 300.0
)

var weights = []float64{WeightRatio, WeightCentroid, WeightTilt, WeightF0}

// NormalizeF0 clamps f0 to [120, 300] Hz and maps it linearly to [0, 1]
func NormalizeF0(f0 float64) float64 {
	return (common.Clamp(f0, F0LowHz, F0HighHz) - F0LowHz) / (F0HighHz - F0LowHz)
}

func featureVector(b spectral.Brightness, f0 float64, s Stats) []float64 {
	return []float64{
		s.Ratio.Normalize(b.RatioHL),
		s.Centroid.Normalize(b.CentroidHz),
		s.Tilt.Normalize(b.Tilt),
		NormalizeF0(f0),
	}
}

// RawScore is the unsmoothed brightness of one voiced frame in [0, 100]
func RawScore(b spectral.Brightness, f0 float64, s Stats) float64 {
	sum := 0.0
	for i, v := range featureVector(b, f0, s) {
		sum += weights[i] * v
	}
	return common.Clamp(sum*100, 0, 100)
}

// Smoother is the exponential moving average over voiced frames
type Smoother struct {
	value   float64
	started bool
}

// NewSmoother returns a smoother seeded at 50
func NewSmoother() *Smoother {
	return &Smoother{value: Seed}
}

// Update folds a raw score in and returns the new smoothed value
func (s *Smoother) Update(raw float64) float64 {
	s.value = Alpha*raw + (1-Alpha)*s.value
	s.started = true
	return s.value
}

// Value returns the current smoothed value (the seed before any update)
func (s *Smoother) Value() float64 {
	return s.value
}

// Started reports whether any voiced frame has been folded in
func (s *Smoother) Started() bool {
	return s.started
}

// Scorer is the per-frame scoring path used while streaming
type Scorer struct {
	stats    StatsSource
	smoother *Smoother
}

// NewScorer creates a scorer reading bounds from stats
func NewScorer(stats StatsSource) *Scorer {
	return &Scorer{stats: stats, smoother: NewSmoother()}
}

// Score returns the smoothed value after frame. Unvoiced frames hold the
// previous value; before the first voiced frame they have no value.
func (sc *Scorer) Score(f Frame) *float64 {
	if f.Voiced {
		v := sc.smoother.Update(RawScore(f.Features, f.F0, sc.stats.Stats()))
		return &v
	}
	if !sc.smoother.Started() {
		return nil
	}
	v := sc.smoother.Value()
	return &v
}

// Value returns the current smoothed value
func (sc *Scorer) Value() float64 {
	return sc.smoother.Value()
}

// ScoreBatch scores a whole frame sequence against fixed bounds. Raw scores
// of all voiced frames are computed as one matrix-vector product; the
// smoothing recurrence then runs left to right.
func ScoreBatch(frames []Frame, s Stats) []*float64 {
	out := make([]*float64, len(frames))

	var rows []int
	for i, f := range frames {
		if f.Voiced {
			rows = append(rows, i)
		}
	}

	raw := make(map[int]float64, len(rows))
	if len(rows) > 0 {
		features := mat.NewDense(len(rows), len(weights), nil)
		for r, i := range rows {
			features.SetRow(r, featureVector(frames[i].Features, frames[i].F0, s))
		}
		var scores mat.VecDense
		scores.MulVec(features, mat.NewVecDense(len(weights), weights))
		for r, i := range rows {
			raw[i] = common.Clamp(scores.AtVec(r)*100, 0, 100)
		}
	}

	smoother := NewSmoother()
	for i, f := range frames {
		if f.Voiced {
			v := smoother.Update(raw[i])
			out[i] = &v
			continue
		}
		if smoother.Started() {
			v := smoother.Value()
			out[i] = &v
		}
	}
	return out
}
