// Package goals holds the named target presets and compares a classified
// recording against one of them.
package goals

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/RyanBlaney/sonido-voice/classify"
	"github.com/RyanBlaney/sonido-voice/voiceerr"
)

//go:embed presets.yaml
var builtinPresets []byte

// DefaultPreset is used by callers that do not name a goal
const DefaultPreset = "transfem_soft_slightly_breathy"

// Flags
const (
	BelowTarget  = "below_target"
	WithinTarget = "within_target"
	AboveTarget  = "above_target"
	Unknown      = "unknown"
)

// Range is an inclusive target range
type Range struct {
	Min float64 `yaml:"min" json:"min"`
	Max float64 `yaml:"max" json:"max"`
}

// Flag compares v against the range. A nil value is unknown.
func (r Range) Flag(v *float64) string {
	switch {
	case v == nil:
		return Unknown
	case *v < r.Min:
		return BelowTarget
	case *v > r.Max:
		return AboveTarget
	default:
		return WithinTarget
	}
}

// Preset is one named goal
type Preset struct {
	Name        string  `yaml:"name" json:"name"`
	Label       string  `yaml:"label" json:"label"`
	Breathiness Range   `yaml:"breathiness" json:"breathiness_range"`
	Roughness   Range   `yaml:"roughness" json:"roughness_range"`
	Strain      Range   `yaml:"strain" json:"strain_range"`
	CPP         Range   `yaml:"cpp" json:"cpp_range"`
	HNRMin      float64 `yaml:"hnr_min" json:"hnr_min"`
	RBI         Range   `yaml:"rbi" json:"rbi_range"`
}

func (p Preset) validate() error {
	if p.Name == "" {
		return fmt.Errorf("preset without a name")
	}
	for metric, r := range map[string]Range{
		"breathiness": p.Breathiness,
		"roughness":   p.Roughness,
		"strain":      p.Strain,
		"cpp":         p.CPP,
		"rbi":         p.RBI,
	} {
		if r.Max < r.Min {
			return fmt.Errorf("preset %q: %s range max %v below min %v", p.Name, metric, r.Max, r.Min)
		}
	}
	return nil
}

type presetFile struct {
	Presets []Preset `yaml:"presets"`
}

// Catalog is an immutable set of presets keyed by name
type Catalog struct {
	presets map[string]Preset
}

// Builtin returns the catalog compiled into the binary
func Builtin() *Catalog {
	c, err := parseCatalog(builtinPresets, nil)
	if err != nil {
		panic(fmt.Sprintf("goals: built-in presets are invalid: %v", err))
	}
	return c
}

// LoadCatalog returns the built-in presets overlaid with the presets in the
// YAML file at path. Presets in the file replace built-in ones of the same
// name. An empty path yields the built-in catalog.
func LoadCatalog(path string) (*Catalog, error) {
	base := Builtin()
	if path == "" {
		return base, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read presets file: %w", err)
	}
	return parseCatalog(data, base.presets)
}

func parseCatalog(data []byte, base map[string]Preset) (*Catalog, error) {
	var file presetFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse presets: %w", err)
	}

	presets := make(map[string]Preset, len(base)+len(file.Presets))
	for name, p := range base {
		presets[name] = p
	}
	for _, p := range file.Presets {
		if err := p.validate(); err != nil {
			return nil, err
		}
		presets[p.Name] = p
	}
	return &Catalog{presets: presets}, nil
}

// Names lists the preset names in sorted order
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.presets))
	for name := range c.presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Presets lists every preset sorted by name
func (c *Catalog) Presets() []Preset {
	out := make([]Preset, 0, len(c.presets))
	for _, name := range c.Names() {
		out = append(out, c.presets[name])
	}
	return out
}

// Get looks up a preset. An unknown name is an invalid-input error; no other
// preset is ever substituted.
func (c *Catalog) Get(name string) (Preset, error) {
	p, ok := c.presets[name]
	if !ok {
		return Preset{}, voiceerr.InvalidInput("goals.get", "unknown goal preset %q", name)
	}
	return p, nil
}

// Measures carries the global measurements that goals check directly
type Measures struct {
	HNRMean *float64
	CPPMean *float64
}

// Comparison flags each metric against a preset
type Comparison struct {
	GoalName        string `json:"goal_name"`
	GoalLabel       string `json:"goal_label"`
	BreathinessFlag string `json:"breathiness_flag"`
	RoughnessFlag   string `json:"roughness_flag"`
	StrainFlag      string `json:"strain_flag"`
	RBIFlag         string `json:"rbi_flag"`
	HNRFlag         string `json:"hnr_flag"`
	CPPFlag         string `json:"cpp_flag"`
}

// Compare flags summary and measures against the named preset. HNR is
// checked only against the preset minimum.
func (c *Catalog) Compare(summary classify.Summary, m Measures, name string) (*Comparison, error) {
	p, err := c.Get(name)
	if err != nil {
		return nil, err
	}

	var rbi *float64
	if summary.RBIScore != nil {
		v := float64(*summary.RBIScore)
		rbi = &v
	}

	cmp := &Comparison{
		GoalName:        p.Name,
		GoalLabel:       p.Label,
		BreathinessFlag: p.Breathiness.Flag(summary.BreathinessScore),
		RoughnessFlag:   p.Roughness.Flag(summary.RoughnessScore),
		StrainFlag:      p.Strain.Flag(summary.StrainScore),
		RBIFlag:         p.RBI.Flag(rbi),
		HNRFlag:         Unknown,
		CPPFlag:         p.CPP.Flag(m.CPPMean),
	}
	if m.HNRMean != nil {
		cmp.HNRFlag = WithinTarget
		if *m.HNRMean < p.HNRMin {
			cmp.HNRFlag = BelowTarget
		}
	}
	return cmp, nil
}
