package speech

import (
	"math"
	"math/cmplx"

	"github.com/RyanBlaney/sonido-voice/algorithms/common"
	"github.com/RyanBlaney/sonido-voice/algorithms/spectral"
	"github.com/RyanBlaney/sonido-voice/algorithms/windowing"
)

const (
	h1h2FrameSeconds = 0.04
	h1h2FFTSize      = 4096

	// harmonicTolerance is the relative search width around each harmonic
	harmonicTolerance = 0.1
)

// H1H2 returns the level of the first harmonic minus the second in dB, read
// from the Hann-windowed spectrum of the 40 ms frame at the centre of the
// signal. Each harmonic level is the spectral maximum within ±10% of f0 and
// 2·f0. Positive values are breathier, negative values more pressed. Returns
// nil for a non-positive f0 or a frame with no energy.
func H1H2(signal []float64, sampleRate int, f0 float64) *float64 {
	if f0 <= 0 || math.IsNaN(f0) || 2*f0*(1+harmonicTolerance) >= float64(sampleRate)/2 {
		return nil
	}

	n := int(h1h2FrameSeconds * float64(sampleRate))
	if len(signal) < n {
		n = len(signal)
	}
	if n < 16 {
		return nil
	}
	start := (len(signal) - n) / 2

	fftSize := max(h1h2FFTSize, common.NextPowerOfTwo(n))
	padded := make([]float64, fftSize)
	copy(padded, windowing.NewHann(n).Apply(signal[start:start+n]))

	spectrum := spectral.NewFFT().Compute(padded)
	freqs := spectral.BinFrequencies(fftSize, sampleRate)

	h1, ok1 := harmonicLevel(spectrum, freqs, f0)
	h2, ok2 := harmonicLevel(spectrum, freqs, 2*f0)
	if !ok1 || !ok2 {
		return nil
	}
	return common.Float(h1 - h2)
}

func harmonicLevel(spectrum []complex128, freqs []float64, target float64) (float64, bool) {
	lo, hi := target*(1-harmonicTolerance), target*(1+harmonicTolerance)
	best := 0.0
	found := false
	for k, f := range freqs {
		if f < lo || f > hi {
			continue
		}
		if mag := cmplx.Abs(spectrum[k]); mag > best {
			best = mag
			found = true
		}
	}
	if !found || best <= 0 {
		return 0, false
	}
	return common.AmplitudeDB(best), true
}
