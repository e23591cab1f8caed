package rbi

import (
	"github.com/RyanBlaney/sonido-voice/algorithms/common"
	"github.com/RyanBlaney/sonido-voice/algorithms/spectral"
)

// Percentile bounds for whole-signal normalization
const (
	LowerPercentile = 0.05
	UpperPercentile = 0.95
)

// Bounds is the normalization range of one feature. Max >= Min always holds.
type Bounds struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Normalize maps v into [0, 1]. A degenerate range yields exactly 0.5.
func (b Bounds) Normalize(v float64) float64 {
	if b.Max <= b.Min {
		return 0.5
	}
	return common.Clamp((v-b.Min)/(b.Max-b.Min), 0, 1)
}

func (b *Bounds) extend(v float64) {
	if v < b.Min {
		b.Min = v
	}
	if v > b.Max {
		b.Max = v
	}
}

// Stats holds the normalization bounds of the three brightness features
type Stats struct {
	Ratio    Bounds `json:"ratio"`
	Centroid Bounds `json:"centroid"`
	Tilt     Bounds `json:"tilt"`
}

// StatsSource provides the bounds a scorer normalizes against
type StatsSource interface {
	Stats() Stats
}

// FixedStats is a StatsSource that never changes
type FixedStats Stats

// Stats implements StatsSource
func (f FixedStats) Stats() Stats { return Stats(f) }

// PercentileStats computes 5th/95th percentile bounds over the voiced frames
func PercentileStats(frames []Frame) Stats {
	var ratio, centroid, tilt []float64
	for _, f := range frames {
		if !f.Voiced {
			continue
		}
		ratio = append(ratio, f.Features.RatioHL)
		centroid = append(centroid, f.Features.CentroidHz)
		tilt = append(tilt, f.Features.Tilt)
	}

	bounds := func(v []float64) Bounds {
		if len(v) == 0 {
			return Bounds{}
		}
		return Bounds{
			Min: common.Percentile(v, LowerPercentile),
			Max: common.Percentile(v, UpperPercentile),
		}
	}
	return Stats{Ratio: bounds(ratio), Centroid: bounds(centroid), Tilt: bounds(tilt)}
}

// RunningStats tracks the observed min and max of each feature for the life
// of a streaming session. Bounds only ever widen.
type RunningStats struct {
	stats Stats
	seen  bool
}

// NewRunningStats creates empty running bounds
func NewRunningStats() *RunningStats {
	return &RunningStats{}
}

// Observe widens the bounds to include b
func (r *RunningStats) Observe(b spectral.Brightness) {
	if !r.seen {
		r.stats = Stats{
			Ratio:    Bounds{Min: b.RatioHL, Max: b.RatioHL},
			Centroid: Bounds{Min: b.CentroidHz, Max: b.CentroidHz},
			Tilt:     Bounds{Min: b.Tilt, Max: b.Tilt},
		}
		r.seen = true
		return
	}
	r.stats.Ratio.extend(b.RatioHL)
	r.stats.Centroid.extend(b.CentroidHz)
	r.stats.Tilt.extend(b.Tilt)
}

// Stats implements StatsSource
func (r *RunningStats) Stats() Stats {
	return r.stats
}

// Observed reports whether any frame has been seen
func (r *RunningStats) Observed() bool {
	return r.seen
}
