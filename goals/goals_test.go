package goals

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/RyanBlaney/sonido-voice/classify"
	"github.com/RyanBlaney/sonido-voice/voiceerr"
)

func f(v float64) *float64 { return &v }

func TestBuiltinCatalog(t *testing.T) {
	c := Builtin()
	want := []string{
		"androgynous_neutral",
		"clean_smooth",
		"light_and_bright",
		"soft_light_resonance",
		"transfem_bright_forward",
		"transfem_soft_slightly_breathy",
	}
	got := c.Names()
	if len(got) != len(want) {
		t.Fatalf("Names() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Names()[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	p, err := c.Get(DefaultPreset)
	if err != nil {
		t.Fatalf("Get(default) error = %v", err)
	}
	if p.Breathiness != (Range{Min: 45, Max: 75}) || p.HNRMin != 10 || p.RBI != (Range{Min: 55, Max: 75}) {
		t.Errorf("default preset = %+v", p)
	}
}

func TestRangeFlag(t *testing.T) {
	r := Range{Min: 10, Max: 20}
	tests := []struct {
		v    *float64
		want string
	}{
		{nil, Unknown},
		{f(9.99), BelowTarget},
		{f(10), WithinTarget},
		{f(20), WithinTarget},
		{f(20.01), AboveTarget},
	}
	for _, tt := range tests {
		if got := r.Flag(tt.v); got != tt.want {
			t.Errorf("Flag(%v) = %q, want %q", tt.v, got, tt.want)
		}
	}
}

func TestCompareEveryPresetIsComplete(t *testing.T) {
	c := Builtin()
	valid := map[string]bool{BelowTarget: true, WithinTarget: true, AboveTarget: true, Unknown: true}

	summaries := []classify.Summary{
		classify.Classify(classify.Input{CPP: f(6), HNR: f(14), H1H2: f(3), Jitter: f(0.4), Shimmer: f(2), RBIMean: f(62), F3Noise: f(-1.2)}),
		{},
	}
	for _, name := range c.Names() {
		for _, s := range summaries {
			cmp, err := c.Compare(s, Measures{HNRMean: f(14), CPPMean: f(6)}, name)
			if err != nil {
				t.Fatalf("Compare(%q) error = %v", name, err)
			}
			if cmp.GoalName != name || cmp.GoalLabel == "" {
				t.Errorf("Compare(%q) name/label = %q/%q", name, cmp.GoalName, cmp.GoalLabel)
			}
			for field, flag := range map[string]string{
				"breathiness": cmp.BreathinessFlag,
				"roughness":   cmp.RoughnessFlag,
				"strain":      cmp.StrainFlag,
				"rbi":         cmp.RBIFlag,
				"hnr":         cmp.HNRFlag,
				"cpp":         cmp.CPPFlag,
			} {
				if !valid[flag] {
					t.Errorf("Compare(%q) %s flag = %q", name, field, flag)
				}
			}
		}
	}
}

func TestCompareFlags(t *testing.T) {
	c := Builtin()
	rbi := 70
	s := classify.Summary{
		BreathinessScore: f(20),
		RoughnessScore:   f(0),
		StrainScore:      f(60),
		RBIScore:         &rbi,
	}
	cmp, err := c.Compare(s, Measures{HNRMean: f(9), CPPMean: f(12)}, "transfem_soft_slightly_breathy")
	if err != nil {
		t.Fatal(err)
	}
	want := Comparison{
		GoalName:        "transfem_soft_slightly_breathy",
		GoalLabel:       "Transfeminine – soft, slightly breathy",
		BreathinessFlag: BelowTarget,
		RoughnessFlag:   WithinTarget,
		StrainFlag:      AboveTarget,
		RBIFlag:         WithinTarget,
		HNRFlag:         BelowTarget,
		CPPFlag:         AboveTarget,
	}
	if *cmp != want {
		t.Errorf("Compare() = %+v\nwant %+v", *cmp, want)
	}

	cmp, _ = c.Compare(classify.Summary{}, Measures{}, "clean_smooth")
	if cmp.HNRFlag != Unknown || cmp.CPPFlag != Unknown || cmp.BreathinessFlag != Unknown {
		t.Errorf("empty summary flags = %+v", *cmp)
	}
}

func TestCompareUnknownPreset(t *testing.T) {
	_, err := Builtin().Compare(classify.Summary{}, Measures{}, "operatic_baritone")
	if !errors.Is(err, voiceerr.ErrInvalidInput) {
		t.Errorf("Compare(unknown) error = %v, want ErrInvalidInput", err)
	}
}

func TestLoadCatalogOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "presets.yaml")
	overlay := `presets:
  - name: clean_smooth
    label: "Clean (studio)"
    breathiness: {min: 10, max: 40}
    roughness: {min: 0, max: 20}
    strain: {min: 0, max: 30}
    cpp: {min: 5, max: 12}
    hnr_min: 15
    rbi: {min: 45, max: 65}
  - name: warm_low
    label: "Warm and low"
    breathiness: {min: 20, max: 50}
    roughness: {min: 0, max: 30}
    strain: {min: 0, max: 40}
    cpp: {min: 4, max: 10}
    hnr_min: 12
    rbi: {min: 20, max: 45}
`
	if err := os.WriteFile(path, []byte(overlay), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := LoadCatalog(path)
	if err != nil {
		t.Fatalf("LoadCatalog() error = %v", err)
	}
	if len(c.Names()) != 7 {
		t.Errorf("Names() = %v, want 7 presets", c.Names())
	}
	p, _ := c.Get("clean_smooth")
	if p.Label != "Clean (studio)" || p.HNRMin != 15 {
		t.Errorf("overridden preset = %+v", p)
	}
	if _, err := c.Get("warm_low"); err != nil {
		t.Errorf("Get(warm_low) error = %v", err)
	}
	if Builtin().Names()[1] != "clean_smooth" {
		t.Error("overlay leaked into the built-in catalog")
	}
	if p, _ := Builtin().Get("clean_smooth"); p.HNRMin != 12 {
		t.Errorf("built-in clean_smooth HNRMin = %v after overlay", p.HNRMin)
	}
}

func TestLoadCatalogRejectsInvertedRange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	bad := "presets:\n  - name: broken\n    label: Broken\n    rbi: {min: 80, max: 20}\n"
	if err := os.WriteFile(path, []byte(bad), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadCatalog(path); err == nil {
		t.Error("LoadCatalog() accepted an inverted range")
	}
	if _, err := LoadCatalog(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("LoadCatalog() accepted a missing file")
	}
}
