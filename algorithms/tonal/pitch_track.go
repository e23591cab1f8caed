package tonal

import (
	"math"

	"github.com/RyanBlaney/sonido-voice/algorithms/common"
)

// TrackerParams configures the autocorrelation F0 tracker
type TrackerParams struct {
	SampleRate int `json:"sample_rate"`
	FrameSize  int `json:"frame_size"`
	HopSize    int `json:"hop_size"`

	MinFreq float64 `json:"min_freq"` // Pitch floor (Hz)
	MaxFreq float64 `json:"max_freq"` // Pitch ceiling (Hz)

	// VoicingThreshold is the minimum normalized autocorrelation for a frame
	// to count as voiced
	VoicingThreshold float64 `json:"voicing_threshold"`

	// SilenceRatio rejects frames whose peak is below this fraction of the
	// signal peak
	SilenceRatio float64 `json:"silence_ratio"`

	// OctaveTolerance picks the shortest lag whose correlation is within
	// this fraction of the best one, which avoids sub-octave errors
	OctaveTolerance float64 `json:"octave_tolerance"`
}

// DefaultTrackerParams returns 40 ms frames at a 10 ms hop, 75-600 Hz
func DefaultTrackerParams(sampleRate int) TrackerParams {
	return TrackerParams{
		SampleRate:       sampleRate,
		FrameSize:        int(0.04 * float64(sampleRate)),
		HopSize:          int(0.01 * float64(sampleRate)),
		MinFreq:          75,
		MaxFreq:          600,
		VoicingThreshold: 0.45,
		SilenceRatio:     0.03,
		OctaveTolerance:  0.9,
	}
}

// Tracker estimates F0 frame by frame with a normalized autocorrelation
type Tracker struct {
	params TrackerParams
	minLag int
	maxLag int
}

// NewTracker creates a tracker with default parameters
func NewTracker(sampleRate int) *Tracker {
	return NewTrackerWithParams(DefaultTrackerParams(sampleRate))
}

// NewTrackerWithParams creates a tracker with custom parameters
func NewTrackerWithParams(params TrackerParams) *Tracker {
	minLag := int(math.Floor(float64(params.SampleRate) / params.MaxFreq))
	maxLag := int(math.Ceil(float64(params.SampleRate) / params.MinFreq))
	if minLag < 2 {
		minLag = 2
	}
	return &Tracker{params: params, minLag: minLag, maxLag: maxLag}
}

// Params returns the tracker configuration
func (t *Tracker) Params() TrackerParams {
	return t.params
}

// FrameCount returns the number of analysis frames in n samples
func (t *Tracker) FrameCount(n int) int {
	return common.FrameCount(n, t.params.FrameSize, t.params.HopSize)
}

// Track returns one F0 value per hop. Frame i starts at sample i*HopSize.
// Unvoiced frames are NaN, never a guessed value.
func (t *Tracker) Track(signal []float64) []float64 {
	numFrames := t.FrameCount(len(signal))
	f0 := make([]float64, numFrames)
	gate := t.params.SilenceRatio * common.PeakAbs(signal)

	for i := range numFrames {
		start := i * t.params.HopSize
		frame := signal[start : start+t.params.FrameSize]
		if common.PeakAbs(frame) <= gate {
			f0[i] = math.NaN()
			continue
		}
		f0[i], _ = t.Estimate(frame)
	}
	return f0
}

// Estimate returns the F0 of a single frame and its clarity (the
// normalized autocorrelation at the chosen lag). F0 is NaN when the frame is
// unvoiced.
func (t *Tracker) Estimate(frame []float64) (float64, float64) {
	n := len(frame)
	maxLag := t.maxLag
	if maxLag > n-2 {
		maxLag = n - 2
	}
	if maxLag <= t.minLag {
		return math.NaN(), 0
	}

	mean := common.Mean(frame)
	x := make([]float64, n)
	for i, v := range frame {
		x[i] = v - mean
	}

	corr := make([]float64, maxLag+2)
	best := 0.0
	for lag := t.minLag - 1; lag <= maxLag+1 && lag < n; lag++ {
		corr[lag] = normalizedCorrelation(x, lag)
		if lag >= t.minLag && lag <= maxLag && corr[lag] > best {
			best = corr[lag]
		}
	}
	if best < t.params.VoicingThreshold {
		return math.NaN(), best
	}

	for lag := t.minLag; lag <= maxLag; lag++ {
		c := corr[lag]
		if c < t.params.OctaveTolerance*best {
			continue
		}
		if c >= corr[lag-1] && c >= corr[lag+1] {
			offset, value := common.ParabolicPeak(corr, lag)
			f0 := float64(t.params.SampleRate) / (float64(lag) + offset)
			if f0 < t.params.MinFreq || f0 > t.params.MaxFreq {
				return math.NaN(), value
			}
			return f0, math.Min(value, 1)
		}
	}
	return math.NaN(), best
}

// normalizedCorrelation is the Pearson-style correlation between x[0:n-lag]
// and x[lag:n]
func normalizedCorrelation(x []float64, lag int) float64 {
	n := len(x) - lag
	if n <= 0 {
		return 0
	}
	var xy, xx, yy float64
	for i := range n {
		a, b := x[i], x[i+lag]
		xy += a * b
		xx += a * a
		yy += b * b
	}
	den := math.Sqrt(xx * yy)
	if den <= 0 {
		return 0
	}
	return xy / den
}
