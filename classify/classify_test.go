package classify

import (
	"math"
	"testing"
)

func f(v float64) *float64 { return &v }

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestGRBASBoundaries(t *testing.T) {
	tests := []struct {
		score float64
		want  int
	}{
		{0, 0},
		{24.9, 0},
		{25.0, 1},
		{49.9, 1},
		{50.0, 2},
		{74.9, 2},
		{75.0, 3},
		{100, 3},
	}
	for _, tt := range tests {
		if got := GRBAS(tt.score); got != tt.want {
			t.Errorf("GRBAS(%v) = %d, want %d", tt.score, got, tt.want)
		}
	}
}

func TestBreathinessThresholdLadder(t *testing.T) {
	tests := []struct {
		name           string
		cpp, hnr, h1h2 *float64
		want           float64
	}{
		{"clean", f(6), f(18), f(2), 20},
		{"middle", f(3.5), f(12), f(5), 0},
		{"low cpp", f(2.0), f(12), f(5), 70},
		{"very low hnr", f(3.5), f(6), f(5), 90},
		{"high h1h2 only", f(3.5), f(12), f(11), 90},
		{"missing inputs never trigger", nil, nil, f(5), 0},
		{"clean needs all three", f(6), f(18), nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BreathinessThreshold(tt.cpp, tt.hnr, tt.h1h2); got != tt.want {
				t.Errorf("BreathinessThreshold() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBreathinessCompositeRenormalizes(t *testing.T) {
	got, ok := BreathinessComposite(f(-1.25), nil, nil, nil)
	if !ok || !near(got, 50) {
		t.Errorf("F3 only = %v, %v, want 50", got, ok)
	}

	// F3 at the breathy end (100) and HNR at the clean end (0)
	got, ok = BreathinessComposite(f(-0.5), f(20), nil, nil)
	want := 100 * 0.4 / 0.65
	if !ok || !near(got, want) {
		t.Errorf("F3+HNR = %v, want %v", got, want)
	}

	if _, ok := BreathinessComposite(nil, nil, nil, nil); ok {
		t.Error("empty composite reported ok")
	}
}

func TestClassifyBreathinessMethod(t *testing.T) {
	b := ClassifyBreathiness(f(-1.0), f(15), f(8), f(3))
	if b == nil || b.Method != MethodComposite {
		t.Fatalf("with F3 got %+v, want composite", b)
	}
	b = ClassifyBreathiness(nil, f(16), f(8), f(3))
	if b == nil || b.Method != MethodThreshold || b.Score != 20 {
		t.Fatalf("without F3 got %+v, want threshold score 20", b)
	}
	if b := ClassifyBreathiness(nil, nil, nil, nil); b != nil {
		t.Errorf("no inputs got %+v, want nil", b)
	}
}

func TestRoughnessAndStrainLadders(t *testing.T) {
	rough := []struct {
		jitter, shimmer *float64
		want            *float64
	}{
		{f(0.5), f(2), f(0)},
		{f(1.0), f(2), f(60)},
		{f(0.5), f(3.0), f(60)},
		{f(2.0), f(2), f(85)},
		{nil, f(5.0), f(85)},
		{nil, nil, nil},
	}
	for _, tt := range rough {
		got := Roughness(tt.jitter, tt.shimmer)
		if (got == nil) != (tt.want == nil) || (got != nil && *got != *tt.want) {
			t.Errorf("Roughness(%v, %v) = %v, want %v", tt.jitter, tt.shimmer, got, tt.want)
		}
	}

	strain := []struct {
		h1h2 float64
		want float64
	}{
		{2, 0},
		{0, 0},
		{-0.1, 60},
		{-4, 60},
		{-4.1, 85},
	}
	for _, tt := range strain {
		if got := Strain(f(tt.h1h2)); *got != tt.want {
			t.Errorf("Strain(%v) = %v, want %v", tt.h1h2, *got, tt.want)
		}
	}
	if Strain(nil) != nil {
		t.Error("Strain(nil) != nil")
	}
}

func TestOverallLabel(t *testing.T) {
	tests := []struct {
		b, r, s *float64
		want    string
	}{
		{f(90), f(0), f(0), OverallBreathy},
		{f(20), f(0), f(85), OverallPressed},
		{f(20), f(85), f(0), OverallRough},
		{f(70), f(60), f(60), OverallModal},
		{nil, nil, nil, OverallModal},
	}
	for _, tt := range tests {
		if got := OverallLabel(tt.b, tt.r, tt.s); got != tt.want {
			t.Errorf("OverallLabel(%v, %v, %v) = %q, want %q", tt.b, tt.r, tt.s, got, tt.want)
		}
	}
}

func TestResonanceLabel(t *testing.T) {
	tests := []struct {
		rbi  *float64
		want string
	}{
		{nil, ResonanceNeutral},
		{f(39.9), ResonanceDark},
		{f(40), ResonanceNeutral},
		{f(60), ResonanceBright},
		{f(80), ResonanceBright},
		{f(80.5), ResonanceSharp},
	}
	for _, tt := range tests {
		if got := ResonanceLabel(tt.rbi); got != tt.want {
			t.Errorf("ResonanceLabel(%v) = %q, want %q", tt.rbi, got, tt.want)
		}
	}
}

func TestResonanceTrackerHysteresis(t *testing.T) {
	tr := NewResonanceTracker(DefaultHysteresis)
	steps := []struct {
		score float64
		want  string
	}{
		{50, ResonanceNeutral},
		{61, ResonanceNeutral},
		{59, ResonanceNeutral},
		{62, ResonanceNeutral},
		{63.5, ResonanceBright},
		{58, ResonanceBright},
		{56.5, ResonanceNeutral},
		{20, ResonanceDark},
	}
	for i, st := range steps {
		if got := tr.Update(st.score); got != st.want {
			t.Errorf("step %d: Update(%v) = %q, want %q", i, st.score, got, st.want)
		}
	}
}

func TestPhonation(t *testing.T) {
	tests := []struct {
		slope float64
		want  string
	}{
		{8, PhonationBreathy},
		{7.9, PhonationFlow},
		{3, PhonationFlow},
		{2.9, PhonationNeutral},
		{-2, PhonationNeutral},
		{-2.1, PhonationPressed},
		// typical modal voice tilt
		{-6, PhonationPressed},
		{-12, PhonationPressed},
	}
	for _, tt := range tests {
		if got := PhonationState(tt.slope); got != tt.want {
			t.Errorf("PhonationState(%v) = %q, want %q", tt.slope, got, tt.want)
		}
	}

	p := ClassifyPhonation(f(5), f(3), nil, nil, nil)
	if p.State != PhonationFlow || !near(p.Confidence, 0.9) {
		t.Errorf("agreeing H1-H2 = %+v", p)
	}
	p = ClassifyPhonation(f(5), f(-3), nil, nil, nil)
	if !near(p.Confidence, 0.5) {
		t.Errorf("disagreeing H1-H2 confidence = %v, want 0.5", p.Confidence)
	}
	p = ClassifyPhonation(f(-5), nil, nil, nil, nil)
	if !near(p.Confidence, 0.7) || p.Stability != 100 {
		t.Errorf("no H1-H2 = %+v", p)
	}
	if ClassifyPhonation(nil, f(1), nil, nil, nil) != nil {
		t.Error("ClassifyPhonation without slope != nil")
	}
}

func TestStability(t *testing.T) {
	if got := Stability(f(1), f(2), f(20)); !near(got, 100-20-12+10) {
		t.Errorf("Stability() = %v, want 78", got)
	}
	if got := Stability(f(5), f(10), f(0)); got != 0 {
		t.Errorf("Stability() = %v, want clamped 0", got)
	}
}

func TestRegister(t *testing.T) {
	tests := []struct {
		name              string
		f0, slope, jitter *float64
		want              string
		wantMix           float64
	}{
		{"pulse", f(60), f(-20), nil, MechanismM0, 0},
		{"whistle", f(1100), nil, nil, MechanismM3, 0},
		{"chest", f(150), f(-6), f(0.5), MechanismM1, 0},
		{"strain overrides chest", f(150), f(-4), f(1.5), MechanismStrain, 0},
		{"flat but steady is chest", f(150), f(-4), f(1.0), MechanismM1, 0},
		{"head", f(300), f(-16), nil, MechanismM2, 0},
		{"mix midpoint", f(220), f(-12), nil, MechanismMix, 0.5},
		{"mix at chest edge", f(220), f(-9), nil, MechanismMix, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := ClassifyRegister(tt.f0, tt.slope, tt.jitter)
			if r == nil || r.Mechanism != tt.want {
				t.Fatalf("ClassifyRegister() = %+v, want %s", r, tt.want)
			}
			if tt.want == MechanismMix && (r.MixRatio == nil || !near(*r.MixRatio, tt.wantMix)) {
				t.Errorf("MixRatio = %v, want %v", r.MixRatio, tt.wantMix)
			}
		})
	}
	if ClassifyRegister(nil, f(-10), nil) != nil {
		t.Error("missing F0 should give nil")
	}
	if ClassifyRegister(f(150), nil, nil) != nil {
		t.Error("modal F0 without slope should give nil")
	}
}

func TestVentricular(t *testing.T) {
	tests := []struct {
		name                       string
		jitter, shimmer, hnr, h1h2 *float64
		wantRisk                   float64
		wantSeverity               string
	}{
		{"clean", f(0.3), f(1.5), f(25), f(4), 0, VentricularNone},
		{"jitter only renormalizes", f(2.5), nil, nil, nil, 1, VentricularLikely},
		{"half way", f(1.5), f(5), f(12.5), f(-2), 0.5, VentricularPossible},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := ClassifyVentricular(tt.jitter, tt.shimmer, tt.hnr, tt.h1h2)
			if v == nil {
				t.Fatal("ClassifyVentricular() = nil")
			}
			if !near(v.Risk, tt.wantRisk) || v.Severity != tt.wantSeverity {
				t.Errorf("got risk %v %s, want %v %s", v.Risk, v.Severity, tt.wantRisk, tt.wantSeverity)
			}
			if v.Detected != (tt.wantSeverity != VentricularNone) || v.Feedback == "" {
				t.Errorf("Detected/Feedback = %v/%q", v.Detected, v.Feedback)
			}
		})
	}
	if ClassifyVentricular(nil, nil, nil, nil) != nil {
		t.Error("no indicators should give nil")
	}
}

func TestOpenQuotient(t *testing.T) {
	tests := []struct {
		name                  string
		h1h2, slope, cpp, hnr *float64
		want                  float64
		zone                  string
	}{
		{"h1h2 neutral", f(0), nil, nil, nil, 50, OQBalanced},
		{"h1h2 low", f(-4), nil, nil, nil, 30, OQLow},
		{"h1h2 high", f(4), nil, nil, nil, 70, OQHigh},
		{"slope only", nil, f(-12), nil, nil, 50, OQBalanced},
		{"all at 50", f(0), f(-12), f(8), f(15), 50, OQBalanced},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oq := ClassifyOpenQuotient(tt.h1h2, tt.slope, tt.cpp, tt.hnr)
			if oq == nil || !near(oq.Percent, tt.want) || oq.Zone != tt.zone {
				t.Errorf("ClassifyOpenQuotient() = %+v, want %v %s", oq, tt.want, tt.zone)
			}
		})
	}
}

func TestConfidence(t *testing.T) {
	if got := Confidence(f(20), f(10)); !near(*got, 100) {
		t.Errorf("Confidence() = %v, want 100", *got)
	}
	if got := Confidence(f(10), nil); !near(*got, 50) {
		t.Errorf("Confidence(hnr only) = %v, want 50", *got)
	}
	if Confidence(nil, nil) != nil {
		t.Error("Confidence(nil, nil) != nil")
	}
}

func TestClassifyScenarios(t *testing.T) {
	clean := Classify(Input{
		CPP: f(30), HNR: f(30), H1H2: f(6), Jitter: f(0.12), Shimmer: f(1.7),
		F3Noise: f(-1.83), RBIMean: f(55.7), TiltSlope: f(-10), F0Mean: f(150),
	})
	if clean.BreathinessGRBAS == nil || *clean.BreathinessGRBAS != 0 {
		t.Errorf("clean GRBAS = %v, want 0", clean.BreathinessGRBAS)
	}
	if clean.RBIScore == nil || *clean.RBIScore != 55 {
		t.Errorf("clean RBIScore = %v, want 55", clean.RBIScore)
	}
	if clean.Label != OverallModal {
		t.Errorf("clean label = %q", clean.Label)
	}

	noisy := Classify(Input{
		CPP: f(16.4), HNR: f(0.6), H1H2: f(6.46), F3Noise: f(-0.86),
	})
	if noisy.BreathinessGRBAS == nil || *noisy.BreathinessGRBAS < 2 {
		t.Errorf("noisy GRBAS = %v, want >= 2", noisy.BreathinessGRBAS)
	}
	if noisy.RBIScore != nil || noisy.ResonanceLabel != ResonanceNeutral {
		t.Errorf("missing RBI: score %v label %q", noisy.RBIScore, noisy.ResonanceLabel)
	}
	if noisy.RoughnessScore != nil || noisy.Register != nil {
		t.Error("measurements that were not supplied produced results")
	}
}
