package spectral

import (
	"math"
	"math/rand"
	"testing"
)

const testRate = 16000

func sine(freq float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Sin(2 * math.Pi * freq * float64(i) / testRate)
	}
	return out
}

func whiteNoise(n int, seed int64) []float64 {
	r := rand.New(rand.NewSource(seed))
	out := make([]float64, n)
	for i := range out {
		out[i] = r.NormFloat64() * 0.1
	}
	return out
}

func harmonicVowel(f0 float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		tt := float64(i) / testRate
		for k := 1; k <= 25; k++ {
			out[i] += math.Sin(2*math.Pi*f0*float64(k)*tt) / float64(k)
		}
	}
	return out
}

func TestBrightnessOrdersFrames(t *testing.T) {
	b := NewBrightness(640, testRate)
	low := b.Compute(sine(500, 640))
	high := b.Compute(sine(4000, 640))

	if low.RatioHL >= 0 {
		t.Errorf("RatioHL(500 Hz) = %v, want < 0", low.RatioHL)
	}
	if high.RatioHL <= 0 {
		t.Errorf("RatioHL(4 kHz) = %v, want > 0", high.RatioHL)
	}
	if math.Abs(low.CentroidHz-500) > 100 {
		t.Errorf("CentroidHz(500 Hz) = %v, want ~500", low.CentroidHz)
	}
	if math.Abs(high.CentroidHz-4000) > 100 {
		t.Errorf("CentroidHz(4 kHz) = %v, want ~4000", high.CentroidHz)
	}
	if math.IsNaN(low.Tilt) || math.IsNaN(high.Tilt) {
		t.Error("Tilt must be finite")
	}
}

func TestF3NoiseRatio(t *testing.T) {
	tests := []struct {
		name   string
		signal []float64
		lo, hi float64
	}{
		{"white noise", whiteNoise(testRate, 1), -0.3, 0.5},
		{"low sine", sine(310, testRate), -40, -3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := F3NoiseRatio(tt.signal, testRate)
			if got == nil {
				t.Fatal("F3NoiseRatio() = nil")
			}
			if *got < tt.lo || *got > tt.hi {
				t.Errorf("F3NoiseRatio() = %v, want [%v, %v]", *got, tt.lo, tt.hi)
			}
		})
	}

	if got := F3NoiseRatio(make([]float64, testRate), testRate); got != nil {
		t.Errorf("F3NoiseRatio(silence) = %v, want nil", *got)
	}
}

func TestTiltSlope(t *testing.T) {
	vowel := TiltSlope(harmonicVowel(150, testRate), testRate, 300, 4000)
	if vowel == nil || *vowel > -3 {
		t.Errorf("TiltSlope(vowel) = %v, want < -3 dB/oct", vowel)
	}
	noise := TiltSlope(whiteNoise(testRate, 2), testRate, 300, 4000)
	if noise == nil || math.Abs(*noise) > 1.5 {
		t.Errorf("TiltSlope(white noise) = %v, want ~0", noise)
	}
}

func TestComputeLTAS(t *testing.T) {
	ltas := ComputeLTAS(whiteNoise(testRate, 3), testRate, 100)
	if ltas == nil {
		t.Fatal("ComputeLTAS() = nil")
	}
	if len(ltas.Bins) != maxLTASBins {
		t.Errorf("len(Bins) = %d, want %d", len(ltas.Bins), maxLTASBins)
	}
	if math.Abs(ltas.SlopeDBPerKHz) > 1 {
		t.Errorf("SlopeDBPerKHz = %v, want ~0 for white noise", ltas.SlopeDBPerKHz)
	}
}

func TestConsonantFrames(t *testing.T) {
	signal := append(sine(200, 1600), whiteNoise(1600, 4)...)
	zcr := NewZeroCrossingRate(testRate, 400, 400)
	flags := zcr.ConsonantFrames(signal)
	if len(flags) != 8 {
		t.Fatalf("len(flags) = %d, want 8", len(flags))
	}
	if flags[0] || flags[3] {
		t.Errorf("voiced frames flagged as consonant: %v", flags)
	}
	if !flags[5] || !flags[7] {
		t.Errorf("noise frames not flagged as consonant: %v", flags)
	}
}
