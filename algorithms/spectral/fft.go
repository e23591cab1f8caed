package spectral

import (
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

// FFT provides Fast Fourier Transform functionality
type FFT struct{}

// NewFFT creates a new FFT calculator
func NewFFT() *FFT {
	return &FFT{}
}

// Compute computes Fast Fourier Transform using mjibson/go-dsp
// Takes []float64 input and returns []complex128 output
func (f *FFT) Compute(x []float64) []complex128 {
	if len(x) == 0 {
		return []complex128{}
	}

	// mjibson/go-dsp handles all sizes efficiently, including non-power-of-2
	return fft.FFTReal(x)
}

// Power returns |X[k]|² for the non-negative frequency bins k = 0..n/2
func (f *FFT) Power(x []float64) []float64 {
	spectrum := f.Compute(x)
	bins := len(x)/2 + 1
	if len(spectrum) < bins {
		bins = len(spectrum)
	}

	power := make([]float64, bins)
	for k := range power {
		mag := cmplx.Abs(spectrum[k])
		power[k] = mag * mag
	}
	return power
}

// BinFrequencies returns the centre frequency of each of the n/2+1 bins of
// an n-point transform at sampleRate.
func BinFrequencies(n, sampleRate int) []float64 {
	freqs := make([]float64, n/2+1)
	for k := range freqs {
		freqs[k] = float64(k) * float64(sampleRate) / float64(n)
	}
	return freqs
}

// BandEnergy sums power over bins with lo <= f < hi
func BandEnergy(power, freqs []float64, lo, hi float64) float64 {
	sum := 0.0
	for k, f := range freqs {
		if k >= len(power) {
			break
		}
		if f >= lo && f < hi {
			sum += power[k]
		}
	}
	return sum
}
