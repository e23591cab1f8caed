package speech

import (
	"fmt"
	"math"
)

// LPCAnalyzer performs Linear Predictive Coding analysis.
// LPC models the vocal tract as an all-pole filter, essential for
// formant extraction and vocal tract modeling
type LPCAnalyzer struct {
	sampleRate int
	order      int // LPC order (2 + fs/1000 for formant work)
}

// LPCResult contains LPC analysis results
type LPCResult struct {
	// Coefficients holds a1..ap of the predictor x[n] ≈ Σ a_k x[n-k]
	Coefficients    []float64 `json:"coefficients"`
	ReflectionCoeff []float64 `json:"reflection_coeff"` // Reflection coefficients (k1, k2, ..., kp)
	Gain            float64   `json:"gain"`             // LPC gain
	ResidualEnergy  float64   `json:"residual_energy"`  // Prediction error energy
	Order           int       `json:"order"`            // LPC order used
}

// DefaultLPCOrder is the usual rule of thumb for formant analysis
func DefaultLPCOrder(sampleRate int) int {
	return 2 + sampleRate/1000
}

// NewLPCAnalyzer creates a new LPC analyzer
func NewLPCAnalyzer(sampleRate int, order int) *LPCAnalyzer {
	if order <= 0 {
		order = DefaultLPCOrder(sampleRate)
	}

	return &LPCAnalyzer{
		sampleRate: sampleRate,
		order:      order,
	}
}

// Order returns the prediction order
func (lpc *LPCAnalyzer) Order() int {
	return lpc.order
}

// Analyze performs LPC analysis on an already windowed frame using the
// autocorrelation method
func (lpc *LPCAnalyzer) Analyze(frame []float64) (*LPCResult, error) {
	if len(frame) < lpc.order*2 {
		return nil, fmt.Errorf("signal too short for LPC analysis of order %d", lpc.order)
	}

	R := make([]float64, lpc.order+1)
	for lag := range R {
		for i := lag; i < len(frame); i++ {
			R[lag] += frame[i] * frame[i-lag]
		}
	}

	coeffs, reflection, gain, residual, err := lpc.levinsonDurbin(R)
	if err != nil {
		return nil, fmt.Errorf("Levinson-Durbin algorithm failed: %w", err)
	}

	return &LPCResult{
		Coefficients:    coeffs,
		ReflectionCoeff: reflection,
		Gain:            gain,
		ResidualEnergy:  residual,
		Order:           lpc.order,
	}, nil
}

// levinsonDurbin solves the normal equations for the predictor. Each order
// update reads the previous order's coefficients from a copy.
func (lpc *LPCAnalyzer) levinsonDurbin(R []float64) ([]float64, []float64, float64, float64, error) {
	p := lpc.order

	if len(R) < p+1 {
		return nil, nil, 0, 0, fmt.Errorf("insufficient autocorrelation values")
	}

	if R[0] <= 0 {
		return nil, nil, 0, 0, fmt.Errorf("zero energy signal")
	}

	a := make([]float64, p+1)
	prev := make([]float64, p+1)
	k := make([]float64, p)
	E := R[0]

	for i := 1; i <= p; i++ {
		acc := R[i]
		for j := 1; j < i; j++ {
			acc -= a[j] * R[i-j]
		}
		ki := acc / E
		k[i-1] = ki

		copy(prev, a)
		a[i] = ki
		for j := 1; j < i; j++ {
			a[j] = prev[j] - ki*prev[i-j]
		}

		E *= 1 - ki*ki
		if E <= 0 {
			return nil, nil, 0, 0, fmt.Errorf("prediction error energy became non-positive at order %d", i)
		}
	}

	return a[1:], k, math.Sqrt(E), E, nil
}
