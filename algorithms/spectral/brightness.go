package spectral

import (
	"math"

	"github.com/RyanBlaney/sonido-voice/algorithms/common"
	"github.com/RyanBlaney/sonido-voice/algorithms/windowing"
)

// Band edges for the brightness features
const (
	LowBandMaxHz  = 1500.0
	HighBandMinHz = 3000.0
	HighBandMaxHz = 6000.0
	TiltMinHz     = 300.0
	TiltMaxHz     = 4000.0
)

// Brightness holds the three spectral measures that drive the resonance
// brightness index.
type Brightness struct {
	// RatioHL is log10 of the 3-6 kHz energy over the 0-1.5 kHz energy
	RatioHL float64 `json:"ratio_hl"`

	// CentroidHz is the power-weighted mean frequency
	CentroidHz float64 `json:"centroid_hz"`

	// Tilt is the negated regression slope of the dB power spectrum against
	// frequency over 300-4000 Hz. Higher is brighter.
	Tilt float64 `json:"tilt"`
}

// BrightnessExtractor computes Brightness for fixed-size frames
type BrightnessExtractor struct {
	frameSize  int
	sampleRate int
	window     *windowing.Window
	fft        *FFT
	freqs      []float64
}

// NewBrightness creates an extractor for frames of frameSize samples
func NewBrightness(frameSize, sampleRate int) *BrightnessExtractor {
	return &BrightnessExtractor{
		frameSize:  frameSize,
		sampleRate: sampleRate,
		window:     windowing.NewHann(frameSize),
		fft:        NewFFT(),
		freqs:      BinFrequencies(frameSize, sampleRate),
	}
}

// Compute returns the brightness features of one frame. Frames shorter than
// the configured size are zero padded.
func (b *BrightnessExtractor) Compute(frame []float64) Brightness {
	power := b.fft.Power(b.window.Apply(frame))

	lf := BandEnergy(power, b.freqs, 0, LowBandMaxHz)
	hf := BandEnergy(power, b.freqs, HighBandMinHz, HighBandMaxHz)

	var num, total float64
	for k, p := range power {
		num += b.freqs[k] * p
		total += p
	}

	var x, y []float64
	for k, f := range b.freqs {
		if f >= TiltMinHz && f <= TiltMaxHz {
			x = append(x, f)
			y = append(y, common.PowerDB(power[k]))
		}
	}
	tilt := 0.0
	if len(x) > 1 {
		slope, _, _ := common.LinRegression(x, y)
		tilt = -slope
	}

	return Brightness{
		RatioHL:    math.Log10((hf + common.Eps) / (lf + common.Eps)),
		CentroidHz: num / (total + common.Eps),
		Tilt:       tilt,
	}
}

// FrameSize returns the frame length the extractor was built for
func (b *BrightnessExtractor) FrameSize() int {
	return b.frameSize
}
