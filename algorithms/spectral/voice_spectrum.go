package spectral

import (
	"math"

	"github.com/RyanBlaney/sonido-voice/algorithms/common"
	"github.com/RyanBlaney/sonido-voice/algorithms/windowing"
)

const (
	// averagedFrameSize is the frame length of the long-term spectra
	averagedFrameSize = 1024

	f3WindowSeconds = 0.1
)

// F3NoiseRatio returns log10 of the energy in the third-formant region
// (2300-3500 Hz) over the energy in 100-1000 Hz, measured on a 100 ms window
// at the centre of the signal. Higher values mean more aperiodic energy
// around F3. Returns nil when the signal has no energy in either band.
func F3NoiseRatio(signal []float64, sampleRate int) *float64 {
	n := int(f3WindowSeconds * float64(sampleRate))
	if len(signal) < n {
		n = len(signal)
	}
	if n < 64 {
		return nil
	}

	start := (len(signal) - n) / 2
	frame := windowing.NewHann(n).Apply(signal[start : start+n])
	power := NewFFT().Power(frame)
	freqs := BinFrequencies(n, sampleRate)

	noise := BandEnergy(power, freqs, 2300, 3500)
	base := BandEnergy(power, freqs, 100, 1000)
	if noise <= 0 || base <= 0 {
		return nil
	}
	return common.Float(math.Log10(noise / base))
}

// TiltSlope regresses the long-term average spectrum in dB against log2
// frequency over [lo, hi] Hz and returns the slope in dB/octave.
func TiltSlope(signal []float64, sampleRate int, lo, hi float64) *float64 {
	power, freqs := averagedPower(signal, sampleRate)
	if power == nil {
		return nil
	}

	var x, y []float64
	for k, f := range freqs {
		if f >= lo && f <= hi && f > 0 {
			x = append(x, math.Log2(f))
			y = append(y, common.PowerDB(power[k]))
		}
	}
	if len(x) < 2 {
		return nil
	}

	slope, _, _ := common.LinRegression(x, y)
	return common.Float(slope)
}

// LTASBin is one band of a long-term average spectrum
type LTASBin struct {
	FrequencyHz float64 `json:"freq"`
	DB          float64 `json:"db"`
}

// LTAS summarizes the long-term average spectrum
type LTAS struct {
	MeanDB        float64   `json:"mean_db"`
	SlopeDBPerKHz float64   `json:"slope_db_per_khz"`
	Bins          []LTASBin `json:"spectral_data"`
}

// maxLTASBins bounds the number of bins reported to callers
const maxLTASBins = 80

// ComputeLTAS groups the averaged power spectrum into bands of bandwidth Hz.
// The slope is a dB per kHz regression over the bands centred in 1-4 kHz.
func ComputeLTAS(signal []float64, sampleRate int, bandwidth float64) *LTAS {
	power, freqs := averagedPower(signal, sampleRate)
	if power == nil || bandwidth <= 0 {
		return nil
	}

	nyquist := float64(sampleRate) / 2
	numBands := int(math.Ceil(nyquist / bandwidth))
	sums := make([]float64, numBands)
	counts := make([]int, numBands)
	for k, f := range freqs {
		b := int(f / bandwidth)
		if b >= numBands {
			b = numBands - 1
		}
		sums[b] += power[k]
		counts[b]++
	}

	ltas := &LTAS{}
	var dbs, x, y []float64
	for b := range numBands {
		if counts[b] == 0 {
			continue
		}
		centre := (float64(b) + 0.5) * bandwidth
		db := common.PowerDB(sums[b] / float64(counts[b]))
		dbs = append(dbs, db)
		if len(ltas.Bins) < maxLTASBins {
			ltas.Bins = append(ltas.Bins, LTASBin{FrequencyHz: centre, DB: db})
		}
		if centre >= 1000 && centre <= 4000 {
			x = append(x, centre/1000)
			y = append(y, db)
		}
	}

	ltas.MeanDB = common.Mean(dbs)
	if len(x) >= 2 {
		ltas.SlopeDBPerKHz, _, _ = common.LinRegression(x, y)
	}
	return ltas
}

// averagedPower averages Hann-windowed power spectra over half-overlapping
// frames. Signals shorter than one frame are zero padded.
func averagedPower(signal []float64, sampleRate int) ([]float64, []float64) {
	if len(signal) == 0 || sampleRate <= 0 {
		return nil, nil
	}

	n := averagedFrameSize
	hop := n / 2
	win := windowing.NewHann(n)
	f := NewFFT()

	avg := make([]float64, n/2+1)
	frames := 0
	for start := 0; start == 0 || start+n <= len(signal); start += hop {
		end := min(start+n, len(signal))
		p := f.Power(win.Apply(signal[start:end]))
		for k := range avg {
			avg[k] += p[k]
		}
		frames++
	}

	total := 0.0
	for k := range avg {
		avg[k] /= float64(frames)
		total += avg[k]
	}
	if total <= 0 {
		return nil, nil
	}
	return avg, BinFrequencies(n, sampleRate)
}
