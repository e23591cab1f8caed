package speech

import (
	"math"
	"math/rand"
	"testing"

	"github.com/RyanBlaney/sonido-voice/algorithms/common"
)

const testRate = 16000

// cleanVowel is a 150 Hz tone with 25 harmonics at 1/k amplitude
func cleanVowel(seconds float64) []float64 {
	n := int(seconds * testRate)
	out := make([]float64, n)
	for i := range out {
		tt := float64(i) / testRate
		for k := 1; k <= 25; k++ {
			out[i] += math.Sin(2*math.Pi*150*float64(k)*tt) / float64(k)
		}
	}
	return normalize(out)
}

// noisyVowel adds white noise at the RMS of the clean vowel
func noisyVowel(seconds float64) []float64 {
	clean := cleanVowel(seconds)
	std := common.RMS(clean)
	r := rand.New(rand.NewSource(7))
	out := make([]float64, len(clean))
	for i, v := range clean {
		out[i] = v + r.NormFloat64()*std
	}
	return normalize(out)
}

func normalize(x []float64) []float64 {
	peak := common.PeakAbs(x) + 1e-9
	for i := range x {
		x[i] /= peak
	}
	return x
}

// resonated excites three second-order resonators in cascade with seeded
// white noise
func resonated(formants, bandwidths []float64, seconds float64) []float64 {
	n := int(seconds * testRate)
	r := rand.New(rand.NewSource(3))
	x := make([]float64, n)
	for i := range x {
		x[i] = r.NormFloat64()
	}
	for j, f := range formants {
		rad := math.Exp(-math.Pi * bandwidths[j] / testRate)
		c1 := 2 * rad * math.Cos(2*math.Pi*f/testRate)
		c2 := -rad * rad
		y := make([]float64, n)
		for i := range x {
			y[i] = x[i]
			if i >= 1 {
				y[i] += c1 * y[i-1]
			}
			if i >= 2 {
				y[i] += c2 * y[i-2]
			}
		}
		x = y
	}
	return normalize(x)
}

func TestPeriodicityScenarios(t *testing.T) {
	clean := cleanVowel(2)
	noisy := noisyVowel(2)

	cleanHNR := HNR(clean, testRate)
	noisyHNR := HNR(noisy, testRate)
	if cleanHNR == nil || noisyHNR == nil {
		t.Fatalf("HNR() returned nil: clean=%v noisy=%v", cleanHNR, noisyHNR)
	}
	if *cleanHNR <= 20 {
		t.Errorf("HNR(clean) = %.2f dB, want > 20", *cleanHNR)
	}
	if *noisyHNR >= *cleanHNR {
		t.Errorf("HNR(noisy) = %.2f, want < HNR(clean) = %.2f", *noisyHNR, *cleanHNR)
	}

	cleanCPP := CPP(clean, testRate)
	noisyCPP := CPP(noisy, testRate)
	if cleanCPP == nil || noisyCPP == nil {
		t.Fatalf("CPP() returned nil: clean=%v noisy=%v", cleanCPP, noisyCPP)
	}
	if *cleanCPP <= 8 {
		t.Errorf("CPP(clean) = %.2f dB, want > 8", *cleanCPP)
	}
	if *noisyCPP >= *cleanCPP {
		t.Errorf("CPP(noisy) = %.2f, want < CPP(clean) = %.2f", *noisyCPP, *cleanCPP)
	}
}

func TestPeriodicityNilOnSilence(t *testing.T) {
	silent := make([]float64, testRate)
	if got := HNR(silent, testRate); got != nil {
		t.Errorf("HNR(silence) = %v, want nil", *got)
	}
	if got := CPP(silent, testRate); got != nil {
		t.Errorf("CPP(silence) = %v, want nil", *got)
	}
	j, s := Perturbation(silent, testRate, nil)
	if j != nil || s != nil {
		t.Errorf("Perturbation(silence) = (%v, %v), want nil", j, s)
	}
}

func TestFormantsOfResonatedNoise(t *testing.T) {
	signal := resonated([]float64{700, 1220, 2600}, []float64{80, 90, 120}, 1)
	fs := TrackFormants(signal, testRate)

	tests := []struct {
		name   string
		got    *float64
		lo, hi float64
	}{
		{"F1", fs.F1, 600, 800},
		{"F2", fs.F2, 1050, 1400},
		{"F3", fs.F3, 2300, 2900},
	}
	for _, tt := range tests {
		if tt.got == nil {
			t.Errorf("%s = nil, want [%v, %v]", tt.name, tt.lo, tt.hi)
			continue
		}
		if *tt.got < tt.lo || *tt.got > tt.hi {
			t.Errorf("%s = %.1f, want [%v, %v]", tt.name, *tt.got, tt.lo, tt.hi)
		}
	}
}

func TestAssignFormantsConstraints(t *testing.T) {
	candidates := []FormantCandidate{
		{FrequencyHz: 150, BandwidthHz: 50},  // below every band
		{FrequencyHz: 500, BandwidthHz: 700}, // too wide
		{FrequencyHz: 650, BandwidthHz: 100},
		{FrequencyHz: 760, BandwidthHz: 100}, // too close to F1
		{FrequencyHz: 1800, BandwidthHz: 200},
	}
	fs := assignFormants(candidates)
	if fs.F1 == nil || *fs.F1 != 650 {
		t.Errorf("F1 = %v, want 650", fs.F1)
	}
	if fs.F2 == nil || *fs.F2 != 1800 {
		t.Errorf("F2 = %v, want 1800", fs.F2)
	}
	if fs.F3 != nil {
		t.Errorf("F3 = %v, want nil", *fs.F3)
	}
	if got := fs.Slice(); len(got) != 2 {
		t.Errorf("Slice() = %v, want two formants", got)
	}
}

func TestPolynomialRoots(t *testing.T) {
	// z^2 - 3z + 2 has roots 1 and 2; in predictor form a = [3, -2]
	roots := polynomialRoots([]float64{3, -2})
	if len(roots) != 2 {
		t.Fatalf("len(roots) = %d, want 2", len(roots))
	}
	sum := real(roots[0]) + real(roots[1])
	prod := real(roots[0]) * real(roots[1])
	if math.Abs(sum-3) > 1e-9 || math.Abs(prod-2) > 1e-9 {
		t.Errorf("roots = %v, want {1, 2}", roots)
	}
}

func TestPerturbationOfCleanVowel(t *testing.T) {
	jitter, shimmer := Perturbation(cleanVowel(1), testRate, nil)
	if jitter == nil || shimmer == nil {
		t.Fatalf("Perturbation() = (%v, %v), want values", jitter, shimmer)
	}
	if *jitter > 1 {
		t.Errorf("jitter = %.3f%%, want < 1%%", *jitter)
	}
	if *shimmer > 3 {
		t.Errorf("shimmer = %.3f%%, want < 3%%", *shimmer)
	}
}

type fixedPeriods struct {
	periods, amplitudes []float64
}

func (f fixedPeriods) Periods([]float64, int, float64, float64) ([]float64, []float64, error) {
	return f.periods, f.amplitudes, nil
}

func TestPerturbationUsesAnalyzer(t *testing.T) {
	analyzer := fixedPeriods{
		periods:    []float64{0.010, 0.011, 0.010, 0.011},
		amplitudes: []float64{1, 1, 1, 1},
	}
	jitter, shimmer := Perturbation(nil, testRate, analyzer)
	if jitter == nil || math.Abs(*jitter-0.001/0.0105*100) > 1e-9 {
		t.Errorf("jitter = %v, want %v", jitter, 0.001/0.0105*100)
	}
	if shimmer == nil || *shimmer != 0 {
		t.Errorf("shimmer = %v, want 0", shimmer)
	}

	short := fixedPeriods{periods: []float64{0.01, 0.01}, amplitudes: []float64{1, 1}}
	if j, _ := Perturbation(nil, testRate, short); j != nil {
		t.Errorf("jitter with two periods = %v, want nil", *j)
	}
}

func TestH1H2(t *testing.T) {
	got := H1H2(cleanVowel(0.5), testRate, 150)
	want := 20 * math.Log10(2)
	if got == nil || math.Abs(*got-want) > 0.5 {
		t.Errorf("H1H2() = %v, want %.2f", got, want)
	}
	if H1H2(cleanVowel(0.5), testRate, 0) != nil {
		t.Error("H1H2() with f0 = 0 must be nil")
	}
}

func TestEstimateVTL(t *testing.T) {
	vt := EstimateVTL([]float64{500, 1500, 2500})
	if vt == nil {
		t.Fatal("EstimateVTL() = nil")
	}
	if math.Abs(vt.DeltaFHz-1000) > 1e-9 {
		t.Errorf("DeltaFHz = %v, want 1000", vt.DeltaFHz)
	}
	if math.Abs(vt.LengthCm-17.5) > 1e-9 {
		t.Errorf("LengthCm = %v, want 17.5", vt.LengthCm)
	}
	if math.Abs(vt.Confidence-1) > 1e-9 {
		t.Errorf("Confidence = %v, want 1", vt.Confidence)
	}
	if EstimateVTL([]float64{500}) != nil {
		t.Error("EstimateVTL() with one formant must be nil")
	}
}
