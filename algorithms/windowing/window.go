package windowing

import (
	"fmt"

	"github.com/mjibson/go-dsp/window"
)

// Type identifies a window function
type Type int

const (
	TypeHann Type = iota
	TypeHamming
)

func (t Type) String() string {
	switch t {
	case TypeHann:
		return "hann"
	case TypeHamming:
		return "hamming"
	default:
		return "unknown"
	}
}

// Window holds precomputed symmetric window coefficients
type Window struct {
	kind         Type
	coefficients []float64
}

// New creates a window of the given type and size using go-dsp
func New(kind Type, size int) *Window {
	var coeffs []float64
	switch kind {
	case TypeHamming:
		coeffs = window.Hamming(size)
	default:
		coeffs = window.Hann(size)
	}
	return &Window{kind: kind, coefficients: coeffs}
}

// NewHann creates a Hann window
func NewHann(size int) *Window {
	return New(TypeHann, size)
}

// NewHamming creates a Hamming window
func NewHamming(size int) *Window {
	return New(TypeHamming, size)
}

// Apply applies the window to a signal (creates new array). Signals shorter
// than the window are zero padded, longer ones are truncated.
func (w *Window) Apply(signal []float64) []float64 {
	windowed := make([]float64, len(w.coefficients))
	for i := range windowed {
		if i >= len(signal) {
			break
		}
		windowed[i] = signal[i] * w.coefficients[i]
	}
	return windowed
}

// ApplyInPlace applies the window to a signal in-place
func (w *Window) ApplyInPlace(signal []float64) error {
	if len(signal) != len(w.coefficients) {
		return fmt.Errorf("signal length (%d) doesn't match window size (%d)", len(signal), len(w.coefficients))
	}
	for i := range signal {
		signal[i] *= w.coefficients[i]
	}
	return nil
}

// Coefficients returns a copy of the window coefficients
func (w *Window) Coefficients() []float64 {
	out := make([]float64, len(w.coefficients))
	copy(out, w.coefficients)
	return out
}

// Size returns the window size
func (w *Window) Size() int {
	return len(w.coefficients)
}

// Type returns the window type
func (w *Window) Type() Type {
	return w.kind
}
