package spectral

// ZeroCrossingRate calculates zero crossing rate per frame.
// High ZCR indicates fricatives and other consonants, low ZCR indicates
// voiced speech.
type ZeroCrossingRate struct {
	sampleRate int
	frameSize  int
	hopSize    int
}

// Normalized ZCR thresholds separating consonant frames from voiced ones
const (
	ConsonantZCRMin    = 0.15
	ConsonantEnergyMin = 1e-4
)

// NewZeroCrossingRate creates calculator with custom parameters
func NewZeroCrossingRate(sampleRate, frameSize, hopSize int) *ZeroCrossingRate {
	return &ZeroCrossingRate{
		sampleRate: sampleRate,
		frameSize:  frameSize,
		hopSize:    hopSize,
	}
}

// ComputeNormalized calculates normalized ZCR (0-1 range)
func (zcr *ZeroCrossingRate) ComputeNormalized(frame []float64) float64 {
	if len(frame) < 2 {
		return 0.0
	}

	crossings := 0
	for i := 1; i < len(frame); i++ {
		if (frame[i-1] >= 0 && frame[i] < 0) || (frame[i-1] < 0 && frame[i] >= 0) {
			crossings++
		}
	}

	// Normalize by maximum possible crossings (alternating signal)
	return float64(crossings) / float64(len(frame)-1)
}

// ComputeFrames calculates normalized ZCR for overlapping frames of a signal
func (zcr *ZeroCrossingRate) ComputeFrames(signal []float64) []float64 {
	if len(signal) < zcr.frameSize || zcr.hopSize <= 0 {
		return []float64{}
	}

	numFrames := (len(signal)-zcr.frameSize)/zcr.hopSize + 1
	values := make([]float64, numFrames)
	for i := range numFrames {
		start := i * zcr.hopSize
		values[i] = zcr.ComputeNormalized(signal[start : start+zcr.frameSize])
	}
	return values
}

// ConsonantFrames flags frames whose ZCR and mean energy mark them as
// consonant-like (fricatives, bursts). Silent frames are never flagged.
func (zcr *ZeroCrossingRate) ConsonantFrames(signal []float64) []bool {
	values := zcr.ComputeFrames(signal)
	flags := make([]bool, len(values))
	for i, v := range values {
		start := i * zcr.hopSize
		energy := 0.0
		for _, s := range signal[start : start+zcr.frameSize] {
			energy += s * s
		}
		energy /= float64(zcr.frameSize)
		flags[i] = v >= ConsonantZCRMin && energy >= ConsonantEnergyMin
	}
	return flags
}

// HopSize returns the frame advance in samples
func (zcr *ZeroCrossingRate) HopSize() int {
	return zcr.hopSize
}

// FrameSize returns the frame length in samples
func (zcr *ZeroCrossingRate) FrameSize() int {
	return zcr.frameSize
}
