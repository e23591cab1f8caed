package rbi

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/RyanBlaney/sonido-voice/algorithms/spectral"
	"github.com/RyanBlaney/sonido-voice/voiceerr"
)

const testRate = 16000

func vowel(seconds float64) []float64 {
	n := int(seconds * testRate)
	out := make([]float64, n)
	peak := 0.0
	for i := range out {
		tt := float64(i) / testRate
		for k := 1; k <= 25; k++ {
			out[i] += math.Sin(2*math.Pi*150*float64(k)*tt) / float64(k)
		}
		peak = math.Max(peak, math.Abs(out[i]))
	}
	for i := range out {
		out[i] /= peak
	}
	return out
}

func TestBoundsDegenerate(t *testing.T) {
	tests := []struct {
		name string
		b    Bounds
		v    float64
		want float64
	}{
		{"equal bounds", Bounds{Min: 3, Max: 3}, 7, 0.5},
		{"inverted bounds", Bounds{Min: 4, Max: 1}, 2, 0.5},
		{"below range", Bounds{Min: 0, Max: 10}, -5, 0},
		{"above range", Bounds{Min: 0, Max: 10}, 15, 1},
		{"inside range", Bounds{Min: 0, Max: 10}, 2.5, 0.25},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.b.Normalize(tt.v); got != tt.want {
				t.Errorf("Normalize(%v) = %v, want %v", tt.v, got, tt.want)
			}
		})
	}
}

func TestSmootherConvergesWithoutOvershoot(t *testing.T) {
	for _, target := range []float64{90, 10, 50} {
		s := NewSmoother()
		prev := s.Value()
		for i := 0; i < 200; i++ {
			v := s.Update(target)
			if target >= Seed && (v < prev || v > target) {
				t.Fatalf("target %v: step %d moved %v -> %v", target, i, prev, v)
			}
			if target <= Seed && (v > prev || v < target) {
				t.Fatalf("target %v: step %d moved %v -> %v", target, i, prev, v)
			}
			prev = v
		}
		if math.Abs(prev-target) > 1e-6 {
			t.Errorf("target %v: converged to %v", target, prev)
		}
	}
}

func TestScorerHoldsThroughUnvoicedFrames(t *testing.T) {
	stats := FixedStats{
		Ratio:    Bounds{Min: -2, Max: 0},
		Centroid: Bounds{Min: 500, Max: 3000},
		Tilt:     Bounds{Min: 0, Max: 0.01},
	}
	sc := NewScorer(stats)
	voiced := Frame{Voiced: true, F0: 200, Features: spectral.Brightness{RatioHL: -1, CentroidHz: 1500, Tilt: 0.005}}

	if v := sc.Score(Frame{}); v != nil {
		t.Fatalf("Score() before voicing = %v, want nil", *v)
	}
	first := sc.Score(voiced)
	if first == nil {
		t.Fatal("Score(voiced) = nil")
	}
	for i := 0; i < 3; i++ {
		held := sc.Score(Frame{F0: math.NaN()})
		if held == nil || *held != *first {
			t.Fatalf("held value = %v, want exactly %v", held, *first)
		}
	}
}

func randomFrames(n int, seed int64) []Frame {
	r := rand.New(rand.NewSource(seed))
	frames := make([]Frame, n)
	for i := range frames {
		frames[i] = Frame{
			Index:  i,
			Voiced: r.Float64() < 0.7,
			F0:     80 + r.Float64()*300,
			Features: spectral.Brightness{
				RatioHL:    -3 + r.Float64()*3,
				CentroidHz: 300 + r.Float64()*3000,
				Tilt:       r.Float64() * 0.02,
			},
		}
	}
	return frames
}

func TestBatchAndScalarScoringAgree(t *testing.T) {
	frames := randomFrames(500, 42)
	stats := PercentileStats(frames)

	batch := ScoreBatch(frames, stats)
	scorer := NewScorer(FixedStats(stats))
	for i, f := range frames {
		scalar := scorer.Score(f)
		if (scalar == nil) != (batch[i] == nil) {
			t.Fatalf("frame %d: nil mismatch scalar=%v batch=%v", i, scalar, batch[i])
		}
		if scalar == nil {
			continue
		}
		if math.Abs(*scalar-*batch[i]) > 1e-9 {
			t.Fatalf("frame %d: scalar %v != batch %v", i, *scalar, *batch[i])
		}
		if *scalar < 0 || *scalar > 100 {
			t.Fatalf("frame %d: score %v out of range", i, *scalar)
		}
	}
}

func TestRunningStatsOnlyWiden(t *testing.T) {
	rs := NewRunningStats()
	if rs.Observed() {
		t.Fatal("Observed() = true before any frame")
	}
	rs.Observe(spectral.Brightness{RatioHL: -1, CentroidHz: 1000, Tilt: 0.1})
	if got := rs.Stats().Ratio; got.Min != -1 || got.Max != -1 {
		t.Errorf("Ratio after one frame = %+v", got)
	}
	rs.Observe(spectral.Brightness{RatioHL: -2, CentroidHz: 1500, Tilt: 0.05})
	rs.Observe(spectral.Brightness{RatioHL: -1.5, CentroidHz: 1200, Tilt: 0.07})
	s := rs.Stats()
	if s.Ratio != (Bounds{Min: -2, Max: -1}) {
		t.Errorf("Ratio = %+v, want {-2 -1}", s.Ratio)
	}
	if s.Centroid != (Bounds{Min: 1000, Max: 1500}) {
		t.Errorf("Centroid = %+v, want {1000 1500}", s.Centroid)
	}
	if s.Tilt != (Bounds{Min: 0.05, Max: 0.1}) {
		t.Errorf("Tilt = %+v, want {0.05 0.1}", s.Tilt)
	}
}

func TestLabelBoundaries(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{39.9, LabelBackDark},
		{40, LabelNeutral},
		{59.9, LabelNeutral},
		{60, LabelBrightForward},
		{80, LabelBrightForward},
		{80.1, LabelSharp},
	}
	for _, tt := range tests {
		if got := Label(tt.score); got != tt.want {
			t.Errorf("Label(%v) = %q, want %q", tt.score, got, tt.want)
		}
	}
}

func TestGateThreshold(t *testing.T) {
	loud := []Frame{{EnergyDB: -10}, {EnergyDB: -20}}
	if got := BatchGate.Threshold(loud); got != -35 {
		t.Errorf("Threshold(loud) = %v, want -35", got)
	}
	quiet := []Frame{{EnergyDB: -45}, {EnergyDB: -55}}
	if got := BatchGate.Threshold(quiet); got != -50 {
		t.Errorf("Threshold(quiet) = %v, want -50", got)
	}
	if got := LiveGate.Threshold(loud); got != -40 {
		t.Errorf("LiveGate.Threshold() = %v, want -40", got)
	}
	if LiveGate.Voiced(-10, 450, -40) {
		t.Error("LiveGate accepted 450 Hz")
	}
	if BatchGate.Voiced(-10, math.NaN(), -40) {
		t.Error("gate accepted NaN F0")
	}
}

func TestAnalyze(t *testing.T) {
	series, err := Analyze(vowel(1), testRate)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if series.VoicedCount() < len(series.Frames)*9/10 {
		t.Errorf("voiced frames = %d of %d", series.VoicedCount(), len(series.Frames))
	}
	for i, v := range series.Values {
		if v == nil {
			continue
		}
		if *v < 0 || *v > 100 {
			t.Fatalf("value[%d] = %v out of range", i, *v)
		}
	}
	if series.Mean() == nil {
		t.Fatal("Mean() = nil for a voiced signal")
	}
	if len(series.Labels()) != len(series.Frames) || len(series.Times()) != len(series.Frames) {
		t.Error("Labels()/Times() length mismatch")
	}

	silent, err := Analyze(make([]float64, testRate), testRate)
	if err != nil {
		t.Fatalf("Analyze(silence) error = %v", err)
	}
	if silent.Mean() != nil {
		t.Errorf("Mean() of silence = %v, want nil", *silent.Mean())
	}
	for _, l := range silent.Labels() {
		if l != LabelSilence {
			t.Fatalf("silence label = %q", l)
		}
	}

	_, err = Analyze(make([]float64, 100), testRate)
	if !errors.Is(err, voiceerr.ErrInsufficientSignal) {
		t.Errorf("Analyze(short) error = %v, want ErrInsufficientSignal", err)
	}
}

func TestStreamSettlesAcrossChunks(t *testing.T) {
	signal := vowel(0.6)
	chunk := testRate / 5
	st := NewStream(testRate)

	var scores []float64
	for c := 0; c < 3; c++ {
		end := (c + 1) * chunk
		start := max(0, end-testRate)
		res := st.Process(signal[start:end], int64(end))
		if len(res.Frames) == 0 {
			t.Fatalf("chunk %d produced no frames", c)
		}
		if res.Score < 0 || res.Score > 100 {
			t.Fatalf("chunk %d score %v out of range", c, res.Score)
		}
		scores = append(scores, res.Score)
	}

	d1 := math.Abs(scores[1] - scores[0])
	d2 := math.Abs(scores[2] - scores[1])
	if d2 >= d1 {
		t.Errorf("consecutive differences %v then %v, want shrinking", d1, d2)
	}

	again := st.Process(signal[:3*chunk], int64(3*chunk))
	if len(again.Frames) != 0 {
		t.Errorf("re-processing the same window scored %d frames, want 0", len(again.Frames))
	}
}

func TestStreamScoreCountsVoicedFramesOnly(t *testing.T) {
	chunk := testRate / 5
	// one and a half chunks of vowel, then silence
	signal := make([]float64, 4*chunk)
	copy(signal, vowel(0.3))
	mixedEnd := 2 * chunk
	st := NewStream(testRate)

	first := st.Process(signal[:chunk], int64(chunk))
	if first.Score < 0 || first.Score > 100 {
		t.Fatalf("first score %v out of range", first.Score)
	}

	mixed := st.Process(signal[:mixedEnd], int64(mixedEnd))
	sum, n := 0.0, 0
	for i, f := range mixed.Frames {
		if f.Voiced && mixed.Values[i] != nil {
			sum += *mixed.Values[i]
			n++
		}
	}
	if n == 0 {
		t.Fatal("mixed chunk has no voiced frames")
	}
	if math.Abs(mixed.Score-sum/float64(n)) > 1e-9 {
		t.Errorf("mixed score = %v, want voiced mean %v", mixed.Score, sum/float64(n))
	}

	end := len(signal)
	silent := st.Process(signal[max(0, end-testRate):end], int64(end))
	for _, f := range silent.Frames {
		if f.Voiced {
			t.Fatal("silent chunk produced a voiced frame")
		}
	}
	if silent.Score != st.Value() {
		t.Errorf("silent score = %v, want last value %v", silent.Score, st.Value())
	}
}

func TestLabelsFollowVoicingNotHeldValues(t *testing.T) {
	held := 72.0
	s := &Series{
		Frames: []Frame{{Voiced: true}, {Voiced: false}, {Voiced: false}, {Voiced: true}},
		Values: []*float64{&held, &held, nil, &held},
	}
	want := []string{LabelBrightForward, LabelSilence, LabelSilence, LabelBrightForward}
	got := s.Labels()
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Labels()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if s.Values[1] == nil || *s.Values[1] != held {
		t.Error("held value lost on unvoiced frame")
	}
}
