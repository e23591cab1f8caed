package speech

import (
	"math"
	"math/cmplx"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/RyanBlaney/sonido-voice/algorithms/common"
	"github.com/RyanBlaney/sonido-voice/algorithms/filters"
	"github.com/RyanBlaney/sonido-voice/algorithms/windowing"
)

// FormantBand is the plausible frequency range of one formant slot
type FormantBand struct {
	MinHz float64
	MaxHz float64
}

var (
	// FormantBands for F1, F2 and F3 in order
	FormantBands = [3]FormantBand{
		{MinHz: 200, MaxHz: 1200},
		{MinHz: 600, MaxHz: 3500},
		{MinHz: 1400, MaxHz: 4500},
	}
)

const (
	maxFormantBandwidth = 500.0
	minFormantSpacing   = 200.0

	formantFrameSeconds = 0.025
	formantHopSeconds   = 0.01
)

// FormantSet holds F1-F3 in Hz. A nil slot means no candidate satisfied the
// band, bandwidth and spacing constraints.
type FormantSet struct {
	F1 *float64 `json:"f1"`
	F2 *float64 `json:"f2"`
	F3 *float64 `json:"f3"`
}

// Slice returns the assigned formants in order, stopping at the first gap
func (fs FormantSet) Slice() []float64 {
	var out []float64
	for _, f := range []*float64{fs.F1, fs.F2, fs.F3} {
		if f == nil {
			break
		}
		out = append(out, *f)
	}
	return out
}

// FormantCandidate is one pole of the LPC model
type FormantCandidate struct {
	FrequencyHz float64
	BandwidthHz float64
}

// Formants estimates F1-F3 from a single frame. The frame is pre-emphasized
// and Hamming windowed before LPC analysis of the given order (order <= 0
// selects 2 + sr/1000).
func Formants(frame []float64, sampleRate, order int) FormantSet {
	candidates := FormantCandidates(frame, sampleRate, order)
	return assignFormants(candidates)
}

// FormantCandidates returns the upper half-plane LPC poles sorted by frequency
func FormantCandidates(frame []float64, sampleRate, order int) []FormantCandidate {
	lpc := NewLPCAnalyzer(sampleRate, order)
	emphasized := filters.Emphasize(frame)
	windowed := windowing.NewHamming(len(frame)).Apply(emphasized)

	result, err := lpc.Analyze(windowed)
	if err != nil {
		return nil
	}

	roots := polynomialRoots(result.Coefficients)
	sr := float64(sampleRate)
	var candidates []FormantCandidate
	for _, r := range roots {
		if imag(r) <= 0 {
			continue
		}
		mag := cmplx.Abs(r)
		if mag <= 0 {
			continue
		}
		candidates = append(candidates, FormantCandidate{
			FrequencyHz: cmplx.Phase(r) * sr / (2 * math.Pi),
			BandwidthHz: -(sr / math.Pi) * math.Log(mag),
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].FrequencyHz < candidates[j].FrequencyHz
	})
	return candidates
}

// assignFormants fills F1, F2, F3 in order with the lowest candidate that
// lies in the slot's band, is narrower than 500 Hz, and is at least 200 Hz
// from every formant already assigned.
func assignFormants(candidates []FormantCandidate) FormantSet {
	var assigned []float64
	slots := [3]*float64{}

	for s, band := range FormantBands {
		for _, c := range candidates {
			if c.FrequencyHz < band.MinHz || c.FrequencyHz > band.MaxHz {
				continue
			}
			if c.BandwidthHz >= maxFormantBandwidth {
				continue
			}
			tooClose := false
			for _, f := range assigned {
				if math.Abs(c.FrequencyHz-f) < minFormantSpacing {
					tooClose = true
					break
				}
			}
			if tooClose {
				continue
			}
			v := c.FrequencyHz
			slots[s] = &v
			assigned = append(assigned, v)
			break
		}
	}

	return FormantSet{F1: slots[0], F2: slots[1], F3: slots[2]}
}

// polynomialRoots finds the roots of z^p - a1 z^(p-1) - ... - ap as the
// eigenvalues of its companion matrix
func polynomialRoots(a []float64) []complex128 {
	p := len(a)
	if p == 0 {
		return nil
	}

	companion := mat.NewDense(p, p, nil)
	for j := range p {
		companion.Set(0, j, a[j])
	}
	for i := 1; i < p; i++ {
		companion.Set(i, i-1, 1)
	}

	var eig mat.Eigen
	if ok := eig.Factorize(companion, mat.EigenNone); !ok {
		return nil
	}
	return eig.Values(nil)
}

// TrackFormants runs Formants over 25 ms frames at a 10 ms hop and returns
// the per-slot median over frames where the slot was assigned. Frames more
// than 30 dB below the loudest frame are skipped.
func TrackFormants(signal []float64, sampleRate int) FormantSet {
	frameSize := int(formantFrameSeconds * float64(sampleRate))
	hop := int(formantHopSeconds * float64(sampleRate))
	numFrames := common.FrameCount(len(signal), frameSize, hop)
	if numFrames == 0 {
		return FormantSet{}
	}

	rms := make([]float64, numFrames)
	loudest := 0.0
	for i := range rms {
		rms[i] = common.RMS(signal[i*hop : i*hop+frameSize])
		loudest = math.Max(loudest, rms[i])
	}
	gate := loudest * math.Pow(10, -30.0/20)

	order := DefaultLPCOrder(sampleRate)
	var values [3][]float64
	for i := range numFrames {
		if rms[i] <= gate || rms[i] == 0 {
			continue
		}
		fs := Formants(signal[i*hop:i*hop+frameSize], sampleRate, order)
		for s, f := range []*float64{fs.F1, fs.F2, fs.F3} {
			if f != nil {
				values[s] = append(values[s], *f)
			}
		}
	}

	var out [3]*float64
	for s := range values {
		if len(values[s]) > 0 {
			out[s] = common.Float(common.Percentile(values[s], 0.5))
		}
	}
	return FormantSet{F1: out[0], F2: out[1], F3: out[2]}
}
