package temporal

import (
	"math"
)

// Envelope provides amplitude envelope extraction
type Envelope struct {
	// No state needed - stateless calculation
}

// NewEnvelope creates a new envelope extractor
func NewEnvelope() *Envelope {
	return &Envelope{}
}

// ComputeRMS computes RMS envelope with given frame and hop sizes
func (e *Envelope) ComputeRMS(signal []float64, frameSize, hopSize int) []float64 {
	if len(signal) < frameSize || frameSize <= 0 || hopSize <= 0 {
		return []float64{}
	}

	numFrames := (len(signal)-frameSize)/hopSize + 1
	envelope := make([]float64, numFrames)

	for i := range numFrames {
		startIdx := i * hopSize
		endIdx := startIdx + frameSize

		sumSquares := 0.0
		for j := startIdx; j < endIdx; j++ {
			sumSquares += signal[j] * signal[j]
		}
		envelope[i] = math.Sqrt(sumSquares / float64(frameSize))
	}

	return envelope
}

// Amplitude envelope framing used by the articulation analyses
const (
	EnvelopeFrameSeconds = 0.005
	EnvelopeHopSeconds   = 0.001
)

// AmplitudeEnvelope is an RMS envelope sampled every HopMs milliseconds
type AmplitudeEnvelope struct {
	Values []float64
	HopMs  float64
}

// Peak returns the largest envelope value and its index
func (a *AmplitudeEnvelope) Peak() (float64, int) {
	peak, idx := 0.0, -1
	for i, v := range a.Values {
		if v > peak {
			peak, idx = v, i
		}
	}
	return peak, idx
}

// NewAmplitudeEnvelope computes the 5 ms / 1 ms RMS envelope of signal
func NewAmplitudeEnvelope(signal []float64, sampleRate int) *AmplitudeEnvelope {
	frame := int(EnvelopeFrameSeconds * float64(sampleRate))
	hop := int(EnvelopeHopSeconds * float64(sampleRate))
	if hop <= 0 {
		hop = 1
	}
	return &AmplitudeEnvelope{
		Values: NewEnvelope().ComputeRMS(signal, frame, hop),
		HopMs:  float64(hop) * 1000 / float64(sampleRate),
	}
}
