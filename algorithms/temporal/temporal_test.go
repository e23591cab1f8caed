package temporal

import (
	"math"
	"math/rand"
	"testing"
)

const testRate = 16000

// toneWithGain renders a 200 Hz tone shaped by gain(t)
func toneWithGain(seconds float64, gain func(t float64) float64) []float64 {
	n := int(seconds * testRate)
	out := make([]float64, n)
	for i := range out {
		tt := float64(i) / testRate
		out[i] = gain(tt) * math.Sin(2*math.Pi*200*tt)
	}
	return out
}

func TestClassifyOnset(t *testing.T) {
	noise := rand.New(rand.NewSource(5))
	tests := []struct {
		name   string
		signal []float64
		want   OnsetType
	}{
		{
			name: "abrupt start",
			signal: toneWithGain(0.6, func(t float64) float64 {
				if t < 0.2 {
					return 0
				}
				return 1
			}),
			want: OnsetHardAttack,
		},
		{
			name: "ramp after breath noise",
			signal: func() []float64 {
				s := toneWithGain(0.6, func(t float64) float64 {
					return math.Min(1, math.Max(0, (t-0.2)/0.08))
				})
				for i := range s {
					s[i] += noise.NormFloat64() * 0.02
				}
				return s
			}(),
			want: OnsetBreathy,
		},
		{
			name: "short ramp from silence",
			signal: toneWithGain(0.6, func(t float64) float64 {
				return math.Min(1, math.Max(0, (t-0.2)/0.02))
			}),
			want: OnsetCoordinated,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyOnset(tt.signal, testRate)
			if got == nil {
				t.Fatal("ClassifyOnset() = nil")
			}
			if got.Type != tt.want {
				t.Errorf("ClassifyOnset() = %s (rise %.1f ms, pre %.3f), want %s",
					got.Type, got.RiseTimeMs, got.PreOnsetRatio, tt.want)
			}
			if got.Feedback == "" {
				t.Error("Feedback is empty")
			}
		})
	}

	if ClassifyOnset(make([]float64, 8000), testRate) != nil {
		t.Error("ClassifyOnset(silence) must be nil")
	}
}

func TestArticulatoryTouch(t *testing.T) {
	steady := toneWithGain(1, func(float64) float64 { return 0.5 })
	if got := ArticulatoryTouch(steady, testRate); got == nil || got.Label != TouchSoft {
		t.Errorf("ArticulatoryTouch(steady tone) = %+v, want soft", got)
	}

	r := rand.New(rand.NewSource(9))
	bursty := toneWithGain(1, func(float64) float64 { return 0.05 })
	for _, at := range []int{3000, 8000, 13000} {
		for i := at; i < at+400; i++ {
			bursty[i] += r.NormFloat64() * 0.8
		}
	}
	got := ArticulatoryTouch(bursty, testRate)
	if got == nil || got.Label != TouchHard {
		t.Errorf("ArticulatoryTouch(bursts) = %+v, want hard", got)
	}
}

func TestPhraseEnding(t *testing.T) {
	tests := []struct {
		name string
		gain func(t float64) float64
		want string
	}{
		{
			name: "cut off",
			gain: func(t float64) float64 {
				if t < 0.7 {
					return 1
				}
				return 0
			},
			want: EndingAbrupt,
		},
		{
			name: "fade out",
			gain: func(t float64) float64 {
				return math.Max(0, math.Min(1, (0.85-t)/0.15))
			},
			want: EndingGradual,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PhraseEnding(toneWithGain(1, tt.gain), testRate)
			if got == nil {
				t.Fatal("PhraseEnding() = nil")
			}
			if got.Label != tt.want {
				t.Errorf("PhraseEnding() = %s (%.1f ms), want %s", got.Label, got.DecayMs, tt.want)
			}
		})
	}
}

func TestCountSyllables(t *testing.T) {
	signal := toneWithGain(2, func(t float64) float64 {
		return 0.55 - 0.45*math.Cos(2*math.Pi*4*t)
	})
	got := CountSyllables(signal, testRate)
	if got == nil {
		t.Fatal("CountSyllables() = nil")
	}
	if got.Syllables != 8 {
		t.Errorf("Syllables = %d, want 8", got.Syllables)
	}
	if math.Abs(got.PerSecond-4) > 0.5 {
		t.Errorf("PerSecond = %v, want ~4", got.PerSecond)
	}
}

