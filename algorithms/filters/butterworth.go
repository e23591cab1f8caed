package filters

import (
	"fmt"
	"math"
)

// Biquad is a second-order section using the cookbook formulas from Robert
// Bristow-Johnson's "Cookbook formulae for audio EQ biquad filter coefficients".
// Reference: https://webaudio.github.io/Audio-EQ-Cookbook/audio-eq-cookbook.html
//
// Coefficients are normalized so that a0 = 1. State uses transposed direct
// form II.
type Biquad struct {
	b0, b1, b2 float64
	a1, a2     float64

	z1, z2 float64
}

// butterworthQ4 holds the pole-pair Q factors of a 4th-order Butterworth
// prototype: 1/(2cos(π/8)) and 1/(2cos(3π/8)).
var butterworthQ4 = [2]float64{0.5412, 1.3066}

// NewLowpassBiquad creates a lowpass section at cutoff Hz with quality q
func NewLowpassBiquad(sampleRate int, cutoff, q float64) *Biquad {
	w0 := 2 * math.Pi * cutoff / float64(sampleRate)
	cosW, alpha := math.Cos(w0), math.Sin(w0)/(2*q)
	a0 := 1 + alpha
	return &Biquad{
		b0: (1 - cosW) / 2 / a0,
		b1: (1 - cosW) / a0,
		b2: (1 - cosW) / 2 / a0,
		a1: -2 * cosW / a0,
		a2: (1 - alpha) / a0,
	}
}

// NewHighpassBiquad creates a highpass section at cutoff Hz with quality q
func NewHighpassBiquad(sampleRate int, cutoff, q float64) *Biquad {
	w0 := 2 * math.Pi * cutoff / float64(sampleRate)
	cosW, alpha := math.Cos(w0), math.Sin(w0)/(2*q)
	a0 := 1 + alpha
	return &Biquad{
		b0: (1 + cosW) / 2 / a0,
		b1: -(1 + cosW) / a0,
		b2: (1 + cosW) / 2 / a0,
		a1: -2 * cosW / a0,
		a2: (1 - alpha) / a0,
	}
}

// Process filters a single sample
func (b *Biquad) Process(x float64) float64 {
	y := b.b0*x + b.z1
	b.z1 = b.b1*x - b.a1*y + b.z2
	b.z2 = b.b2*x - b.a2*y
	return y
}

// Reset clears the delay line
func (b *Biquad) Reset() {
	b.z1, b.z2 = 0, 0
}

// ButterworthBandpass is a 4th-order Butterworth highpass cascaded with a
// 4th-order Butterworth lowpass.
type ButterworthBandpass struct {
	sampleRate int
	lowCut     float64
	highCut    float64
	sections   []*Biquad
}

// NewButterworthBandpass designs the cascade. The high cutoff is clamped to
// 0.45 of the sample rate.
func NewButterworthBandpass(sampleRate int, lowCut, highCut float64) (*ButterworthBandpass, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate: %d", sampleRate)
	}
	highCut = math.Min(highCut, 0.45*float64(sampleRate))
	if lowCut <= 0 || lowCut >= highCut {
		return nil, fmt.Errorf("invalid band: %.1f-%.1f Hz at %d Hz", lowCut, highCut, sampleRate)
	}

	bp := &ButterworthBandpass{
		sampleRate: sampleRate,
		lowCut:     lowCut,
		highCut:    highCut,
	}
	for _, q := range butterworthQ4 {
		bp.sections = append(bp.sections, NewHighpassBiquad(sampleRate, lowCut, q))
	}
	for _, q := range butterworthQ4 {
		bp.sections = append(bp.sections, NewLowpassBiquad(sampleRate, highCut, q))
	}
	return bp, nil
}

// Band returns the effective cutoffs
func (bp *ButterworthBandpass) Band() (low, high float64) {
	return bp.lowCut, bp.highCut
}

// Filter runs the cascade forward once from a cleared state
func (bp *ButterworthBandpass) Filter(input []float64) []float64 {
	out := make([]float64, len(input))
	copy(out, input)
	for _, s := range bp.sections {
		s.Reset()
		for i, x := range out {
			out[i] = s.Process(x)
		}
	}
	return out
}

// FiltFilt applies the cascade forward and backward for zero phase. The
// signal is extended at both ends by odd reflection to reduce edge
// transients.
func (bp *ButterworthBandpass) FiltFilt(input []float64) ([]float64, error) {
	n := len(input)
	if n < 2 {
		return nil, fmt.Errorf("signal too short for zero-phase filtering: %d samples", n)
	}

	padLen := 3 * (2*len(bp.sections) + 1)
	if padLen > n-1 {
		padLen = n - 1
	}

	ext := make([]float64, 0, n+2*padLen)
	for i := padLen; i >= 1; i-- {
		ext = append(ext, 2*input[0]-input[i])
	}
	ext = append(ext, input...)
	for i := n - 2; i >= n-1-padLen; i-- {
		ext = append(ext, 2*input[n-1]-input[i])
	}

	fwd := bp.Filter(ext)
	reverse(fwd)
	back := bp.Filter(fwd)
	reverse(back)

	out := back[padLen : padLen+n]
	for _, v := range out {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("filter output is not finite")
		}
	}
	return out, nil
}

func reverse(x []float64) {
	for i, j := 0, len(x)-1; i < j; i, j = i+1, j-1 {
		x[i], x[j] = x[j], x[i]
	}
}
