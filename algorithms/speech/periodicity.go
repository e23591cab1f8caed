package speech

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/RyanBlaney/sonido-voice/algorithms/common"
	"github.com/RyanBlaney/sonido-voice/algorithms/windowing"
)

// Pitch range that bounds every lag and quefrency search
const (
	PitchFloorHz   = 75.0
	PitchCeilingHz = 600.0
)

const (
	cppFrameSize = 1024
	cppHopSize   = 256

	// cppSilenceDB skips frames this far below the loudest one
	cppSilenceDB = -30.0

	hnrFrameSeconds = 0.04
	hnrHopSeconds   = 0.01
	hnrPeakRatio    = 0.1
	hnrMaxDB        = 30.0
	hnrMaxR         = 0.999
)

// CPP returns the mean cepstral peak prominence in dB over non-silent
// frames. For each frame the power cepstrum is the inverse transform of the
// dB power spectrum; the prominence is the height of its peak inside the
// plausible pitch quefrency range above the regression line fitted to that
// range. Returns nil when no frame qualifies.
func CPP(signal []float64, sampleRate int) *float64 {
	n := cppFrameSize
	frames := framesOf(signal, n, cppHopSize)
	if len(frames) == 0 {
		return nil
	}

	gate := frameGate(frames, cppSilenceDB)
	win := windowing.NewHann(n)
	fft := fourier.NewFFT(n)

	qMin := int(math.Floor(float64(sampleRate) / PitchCeilingHz))
	qMax := int(math.Ceil(float64(sampleRate) / PitchFloorHz))
	if qMax > n/2 {
		qMax = n / 2
	}
	if qMax-qMin < 3 {
		return nil
	}

	x := make([]float64, 0, qMax-qMin+1)
	for q := qMin; q <= qMax; q++ {
		x = append(x, float64(q))
	}

	var values []float64
	coeffs := make([]complex128, n/2+1)
	ceps := make([]float64, n)
	for _, frame := range frames {
		if common.RMS(frame) <= gate {
			continue
		}

		spectrum := fft.Coefficients(coeffs, win.Apply(frame))
		for k, c := range spectrum {
			re, im := real(c), imag(c)
			coeffs[k] = complex(common.PowerDB(re*re+im*im), 0)
		}
		fft.Sequence(ceps, coeffs)

		y := make([]float64, 0, len(x))
		peakIdx, peakVal := 0, math.Inf(-1)
		for i, q := range x {
			c := ceps[int(q)] / float64(n)
			db := common.PowerDB(c * c)
			y = append(y, db)
			if db > peakVal {
				peakIdx, peakVal = i, db
			}
		}

		slope, intercept, _ := common.LinRegression(x, y)
		values = append(values, peakVal-(slope*x[peakIdx]+intercept))
	}

	if len(values) == 0 {
		return nil
	}
	return common.Float(common.Mean(values))
}

// HNR returns the harmonics-to-noise ratio in dB from per-frame normalized
// autocorrelation peaks in the lag range sr/600 to sr/75. Each frame
// contributes 10*log10(r/(1-r)); the mean is clamped to [0, 30]. Frames
// whose peak is below a tenth of the signal peak, and frames with no
// positive correlation, are skipped. Returns nil when nothing qualifies.
func HNR(signal []float64, sampleRate int) *float64 {
	frameSize := int(hnrFrameSeconds * float64(sampleRate))
	hop := int(hnrHopSeconds * float64(sampleRate))
	frames := framesOf(signal, frameSize, hop)
	if len(frames) == 0 {
		return nil
	}

	minLag := int(math.Floor(float64(sampleRate) / PitchCeilingHz))
	maxLag := int(math.Ceil(float64(sampleRate) / PitchFloorHz))
	if maxLag >= frameSize-1 {
		maxLag = frameSize - 2
	}
	if minLag < 1 || maxLag <= minLag {
		return nil
	}

	globalPeak := common.PeakAbs(signal)
	if globalPeak <= 0 {
		return nil
	}

	var values []float64
	corr := make([]float64, maxLag+2)
	for _, frame := range frames {
		if common.PeakAbs(frame) < hnrPeakRatio*globalPeak {
			continue
		}

		x := make([]float64, len(frame))
		mean := common.Mean(frame)
		for i, v := range frame {
			x[i] = v - mean
		}

		best, bestLag := 0.0, 0
		for lag := minLag - 1; lag <= maxLag+1; lag++ {
			corr[lag] = crossCorrelation(x, lag)
			if lag >= minLag && lag <= maxLag && corr[lag] > best {
				best, bestLag = corr[lag], lag
			}
		}
		if bestLag == 0 || best <= 0 {
			continue
		}

		_, r := common.ParabolicPeak(corr, bestLag)
		r = math.Min(r, hnrMaxR)
		if r <= 0 {
			continue
		}
		values = append(values, 10*math.Log10(r/(1-r)))
	}

	if len(values) == 0 {
		return nil
	}
	return common.Float(common.Clamp(common.Mean(values), 0, hnrMaxDB))
}

// crossCorrelation is the normalized correlation of x[0:n-lag] with x[lag:n]
func crossCorrelation(x []float64, lag int) float64 {
	n := len(x) - lag
	if n <= 0 {
		return 0
	}
	var xy, xx, yy float64
	for i := range n {
		a, b := x[i], x[i+lag]
		xy += a * b
		xx += a * a
		yy += b * b
	}
	den := math.Sqrt(xx * yy)
	if den <= 0 {
		return 0
	}
	return xy / den
}

// framesOf slices signal into full frames. A signal shorter than one frame
// yields a single zero-padded frame.
func framesOf(signal []float64, frameSize, hop int) [][]float64 {
	if len(signal) == 0 || frameSize <= 0 {
		return nil
	}
	if len(signal) < frameSize {
		frame := make([]float64, frameSize)
		copy(frame, signal)
		return [][]float64{frame}
	}

	count := common.FrameCount(len(signal), frameSize, hop)
	frames := make([][]float64, count)
	for i := range frames {
		frames[i] = signal[i*hop : i*hop+frameSize]
	}
	return frames
}

// frameGate returns the RMS level relDB below the loudest frame
func frameGate(frames [][]float64, relDB float64) float64 {
	loudest := 0.0
	for _, f := range frames {
		loudest = math.Max(loudest, common.RMS(f))
	}
	return loudest * math.Pow(10, relDB/20)
}
