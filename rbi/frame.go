// Package rbi computes the resonance brightness index: a smoothed 0-100
// brightness trajectory built from per-frame spectral features, normalized
// either against whole-signal percentiles or against running bounds.
package rbi

import (
	"math"

	"github.com/RyanBlaney/sonido-voice/algorithms/common"
	"github.com/RyanBlaney/sonido-voice/algorithms/filters"
	"github.com/RyanBlaney/sonido-voice/algorithms/spectral"
	"github.com/RyanBlaney/sonido-voice/algorithms/tonal"
)

// Framing shared by extraction and pitch tracking
const (
	FrameSeconds = 0.04
	HopSeconds   = 0.01
)

// Frame is one analysis frame
type Frame struct {
	Index    int                 `json:"index"`
	Time     float64             `json:"time"`
	EnergyDB float64             `json:"energy_db"`
	F0       float64             `json:"-"` // NaN when the tracker found no pitch
	Voiced   bool                `json:"voiced"`
	Features spectral.Brightness `json:"features"`
}

// F0Ptr returns the frame's F0, or nil when there is none
func (f Frame) F0Ptr() *float64 {
	return common.Float(f.F0)
}

// Gate decides which frames are voiced. Energy is the dBFS RMS of the
// pre-emphasized frame and both comparisons are strict.
type Gate struct {
	// Adaptive derives the threshold from the frames: mean energy minus
	// OffsetDB, never below FloorDB. Otherwise ThresholdDB is used as is.
	Adaptive    bool
	OffsetDB    float64
	FloorDB     float64
	ThresholdDB float64

	MinF0 float64
	MaxF0 float64
}

var (
	// BatchGate is used for whole-file analysis
	BatchGate = Gate{Adaptive: true, OffsetDB: 20, FloorDB: -50, MinF0: 75, MaxF0: 500}

	// LiveGate is used on streaming windows
	LiveGate = Gate{ThresholdDB: -40, MinF0: 80, MaxF0: 400}
)

// Threshold returns the energy threshold for a set of frames
func (g Gate) Threshold(frames []Frame) float64 {
	if !g.Adaptive {
		return g.ThresholdDB
	}
	if len(frames) == 0 {
		return g.FloorDB
	}
	sum := 0.0
	for _, f := range frames {
		sum += f.EnergyDB
	}
	return math.Max(sum/float64(len(frames))-g.OffsetDB, g.FloorDB)
}

// Voiced applies the gate to one frame
func (g Gate) Voiced(energyDB, f0, threshold float64) bool {
	if math.IsNaN(f0) {
		return false
	}
	return energyDB > threshold && f0 > g.MinF0 && f0 < g.MaxF0
}

// Extractor runs pass 1: framing, pitch, energy and brightness features
type Extractor struct {
	sampleRate int
	frameSize  int
	hopSize    int
	gate       Gate
	brightness *spectral.BrightnessExtractor
	tracker    *tonal.Tracker
}

// NewExtractor creates an extractor for signals at sampleRate
func NewExtractor(sampleRate int, gate Gate) *Extractor {
	frameSize := int(FrameSeconds * float64(sampleRate))
	hopSize := int(HopSeconds * float64(sampleRate))

	params := tonal.DefaultTrackerParams(sampleRate)
	params.FrameSize = frameSize
	params.HopSize = hopSize

	return &Extractor{
		sampleRate: sampleRate,
		frameSize:  frameSize,
		hopSize:    hopSize,
		gate:       gate,
		brightness: spectral.NewBrightness(frameSize, sampleRate),
		tracker:    tonal.NewTrackerWithParams(params),
	}
}

// FrameSize returns the frame length in samples
func (e *Extractor) FrameSize() int { return e.frameSize }

// HopSize returns the hop in samples
func (e *Extractor) HopSize() int { return e.hopSize }

// Gate returns the voicing gate
func (e *Extractor) Gate() Gate { return e.gate }

// Extract frames the whole signal. It returns the frames and the energy
// threshold that was applied.
func (e *Extractor) Extract(signal []float64) ([]Frame, float64) {
	return e.ExtractFrom(signal, 0)
}

// ExtractFrom frames signal[start:]. The sample before start, when there is
// one, primes the pre-emphasis filter so that frames match a continuous
// extraction.
func (e *Extractor) ExtractFrom(signal []float64, start int) ([]Frame, float64) {
	if start < 0 || start >= len(signal) {
		return nil, e.gate.Threshold(nil)
	}

	pe := filters.NewPreEmphasisDefault()
	if start > 0 {
		pe.Process(signal[start-1])
	}
	emphasized := pe.ProcessBuffer(signal[start:])
	f0 := e.tracker.Track(signal[start:])

	frames := make([]Frame, len(f0))
	for i := range frames {
		s := i * e.hopSize
		frame := emphasized[s : s+e.frameSize]
		frames[i] = Frame{
			Index:    i,
			Time:     float64(s) / float64(e.sampleRate),
			EnergyDB: common.AmplitudeDB(common.RMS(frame)),
			F0:       f0[i],
		}
	}

	threshold := e.gate.Threshold(frames)
	for i := range frames {
		f := &frames[i]
		f.Voiced = e.gate.Voiced(f.EnergyDB, f.F0, threshold)
		if f.Voiced {
			s := i * e.hopSize
			f.Features = e.brightness.Compute(emphasized[s : s+e.frameSize])
		}
	}
	return frames, threshold
}
