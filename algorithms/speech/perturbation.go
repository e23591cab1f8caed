package speech

import (
	"fmt"
	"math"

	"github.com/RyanBlaney/sonido-voice/algorithms/common"
	"github.com/RyanBlaney/sonido-voice/algorithms/tonal"
)

// PeriodAnalyzer extracts consecutive glottal periods (seconds) and the peak
// amplitude of each cycle from a signal, searching only the plausible pitch
// range [floor, ceiling] Hz. Implementations may wrap any point-process
// engine.
type PeriodAnalyzer interface {
	Periods(signal []float64, sampleRate int, floor, ceiling float64) (periods, amplitudes []float64, err error)
}

const (
	// maxPeriodFactor discards neighbouring periods whose ratio exceeds it
	maxPeriodFactor = 1.3

	minPeriods = 3

	peakSearchLow  = 0.8
	peakSearchHigh = 1.2
)

// PeakPeriodAnalyzer marks one waveform peak per cycle, guided by the F0
// track: from each accepted peak the next one is the maximum within
// [0.8T, 1.2T] samples ahead, where T is the local period. Peaks are refined
// by parabolic interpolation.
type PeakPeriodAnalyzer struct{}

// NewPeakPeriodAnalyzer creates the default period analyzer
func NewPeakPeriodAnalyzer() *PeakPeriodAnalyzer {
	return &PeakPeriodAnalyzer{}
}

// Periods implements PeriodAnalyzer
func (a *PeakPeriodAnalyzer) Periods(signal []float64, sampleRate int, floor, ceiling float64) ([]float64, []float64, error) {
	if sampleRate <= 0 {
		return nil, nil, fmt.Errorf("invalid sample rate: %d", sampleRate)
	}

	params := tonal.DefaultTrackerParams(sampleRate)
	params.MinFreq, params.MaxFreq = floor, ceiling
	tracker := tonal.NewTrackerWithParams(params)
	f0 := tracker.Track(signal)
	if len(f0) == 0 {
		return nil, nil, nil
	}

	sr := float64(sampleRate)
	localPeriod := func(pos float64) float64 {
		i := int((pos - float64(params.FrameSize)/2) / float64(params.HopSize))
		i = max(0, min(i, len(f0)-1))
		if math.IsNaN(f0[i]) {
			return math.NaN()
		}
		return sr / f0[i]
	}

	var periods, amplitudes []float64
	pos := -1.0
	for i := 0; i < len(f0); i++ {
		if math.IsNaN(f0[i]) {
			pos = -1
			continue
		}
		start := i * params.HopSize
		if pos < float64(start) {
			// seed a new run at the largest peak of one period
			T := sr / f0[i]
			p, _, ok := peakIn(signal, start, start+int(math.Ceil(T)))
			if !ok {
				continue
			}
			pos = p
		}

		frameEnd := float64(start + params.HopSize)
		for pos < frameEnd {
			T := localPeriod(pos)
			if math.IsNaN(T) {
				break
			}
			lo := int(math.Ceil(pos + peakSearchLow*T))
			hi := int(math.Floor(pos + peakSearchHigh*T))
			next, amp, ok := peakIn(signal, lo, hi)
			if !ok {
				pos = math.Inf(1)
				break
			}
			period := (next - pos) / sr
			if period > 0 && 1/period >= floor && 1/period <= ceiling {
				periods = append(periods, period)
				amplitudes = append(amplitudes, amp)
			}
			pos = next
		}
	}

	return periods, amplitudes, nil
}

// peakIn returns the interpolated position and height of the maximum of
// signal[lo:hi]
func peakIn(signal []float64, lo, hi int) (float64, float64, bool) {
	lo = max(lo, 0)
	hi = min(hi, len(signal)-1)
	if hi <= lo {
		return 0, 0, false
	}

	best := lo
	for i := lo + 1; i <= hi; i++ {
		if signal[i] > signal[best] {
			best = i
		}
	}
	offset, value := common.ParabolicPeak(signal, best)
	return float64(best) + offset, value, true
}

// Perturbation returns local jitter and local shimmer in percent: the mean
// absolute difference between consecutive periods (amplitudes) divided by
// the mean period (amplitude). Pairs whose ratio exceeds 1.3 are ignored.
// Either result is nil with fewer than three periods.
func Perturbation(signal []float64, sampleRate int, analyzer PeriodAnalyzer) (jitter, shimmer *float64) {
	if analyzer == nil {
		analyzer = NewPeakPeriodAnalyzer()
	}
	periods, amplitudes, err := analyzer.Periods(signal, sampleRate, PitchFloorHz, PitchCeilingHz)
	if err != nil || len(periods) < minPeriods {
		return nil, nil
	}

	jitter = localPerturbation(periods)
	if len(amplitudes) == len(periods) {
		shimmer = localPerturbation(amplitudes)
	}
	return jitter, shimmer
}

func localPerturbation(values []float64) *float64 {
	var diffSum float64
	var pairs int
	for i := 1; i < len(values); i++ {
		a, b := values[i-1], values[i]
		if a <= 0 || b <= 0 {
			continue
		}
		if math.Max(a, b)/math.Min(a, b) > maxPeriodFactor {
			continue
		}
		diffSum += math.Abs(b - a)
		pairs++
	}
	if pairs < minPeriods-1 {
		return nil
	}

	mean := common.Mean(values)
	if mean <= 0 {
		return nil
	}
	return common.Float(diffSum / float64(pairs) / mean * 100)
}
