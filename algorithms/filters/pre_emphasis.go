package filters

// PreEmphasis implements a first-order pre-emphasis filter for speech analysis.
// Pre-emphasis compensates for the natural spectral roll-off of voiced speech
// (roughly -6 dB/octave from the glottal source and lip radiation), so that
// the high-frequency resonances carry enough weight for linear prediction and
// frame energy measurements.
//
// The filter implements the transfer function:
// H(z) = 1 - α*z^-1
//
// With the difference equation:
// y[n] = x[n] - α*x[n-1]
//
// Where α is the pre-emphasis coefficient (0.97 for speech).
//
// References:
//   - L.R. Rabiner, R.W. Schafer, "Digital Processing of Speech Signals",
//     Prentice-Hall, 1978, Chapter 4
//   - J.R. Deller, J.G. Proakis, J.H.L. Hansen, "Discrete-Time Processing
//     of Speech Signals", Macmillan, 1993
type PreEmphasis struct {
	coefficient float64 // Pre-emphasis coefficient α
	lastSample  float64 // Previous input sample x[n-1]
}

// SpeechCoefficient is the coefficient used for voice analysis
const SpeechCoefficient = 0.97

// NewPreEmphasis creates a pre-emphasis filter with specified coefficient.
//
// Parameters:
//   - coefficient: Pre-emphasis coefficient α (0.0 < α < 1.0)
//     Higher values = more emphasis of high frequencies
func NewPreEmphasis(coefficient float64) *PreEmphasis {
	return &PreEmphasis{coefficient: coefficient}
}

// NewPreEmphasisDefault creates a pre-emphasis filter with the speech coefficient (0.97).
func NewPreEmphasisDefault() *PreEmphasis {
	return NewPreEmphasis(SpeechCoefficient)
}

// Process applies pre-emphasis filtering to a single sample.
// Implements: y[n] = x[n] - α*x[n-1]
func (pe *PreEmphasis) Process(input float64) float64 {
	output := input - pe.coefficient*pe.lastSample
	pe.lastSample = input
	return output
}

// ProcessBuffer applies pre-emphasis to an entire buffer of samples.
func (pe *PreEmphasis) ProcessBuffer(input []float64) []float64 {
	output := make([]float64, len(input))
	for i, sample := range input {
		output[i] = pe.Process(sample)
	}
	return output
}

// Reset clears the filter's internal state.
// Call this when processing discontinuous audio segments.
func (pe *PreEmphasis) Reset() {
	pe.lastSample = 0.0
}

// Coefficient returns α
func (pe *PreEmphasis) Coefficient() float64 {
	return pe.coefficient
}

// Emphasize runs a fresh speech pre-emphasis filter over a frame. The first
// sample passes through unchanged.
func Emphasize(frame []float64) []float64 {
	return NewPreEmphasisDefault().ProcessBuffer(frame)
}
