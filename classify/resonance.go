package classify

// Resonance labels
const (
	ResonanceDark    = "Dark/Back"
	ResonanceNeutral = "Neutral"
	ResonanceBright  = "Bright/Forward"
	ResonanceSharp   = "Sharp/Over-bright"
)

// ResonanceLabel buckets a mean brightness score. Without a score the voice
// is reported as neutral.
func ResonanceLabel(rbi *float64) string {
	if rbi == nil {
		return ResonanceNeutral
	}
	return resonanceBucket(*rbi)
}

func resonanceBucket(v float64) string {
	switch {
	case v < 40:
		return ResonanceDark
	case v < 60:
		return ResonanceNeutral
	case v <= 80:
		return ResonanceBright
	default:
		return ResonanceSharp
	}
}

// DefaultHysteresis is how far past a bucket edge a score must move before
// a ResonanceTracker changes label
const DefaultHysteresis = 3.0

// ResonanceTracker labels a stream of brightness scores, holding the current
// label until the score clears the bucket edge by the margin.
type ResonanceTracker struct {
	margin float64
	label  string
}

// NewResonanceTracker creates a tracker with the given margin
func NewResonanceTracker(margin float64) *ResonanceTracker {
	return &ResonanceTracker{margin: margin}
}

// Update folds in a score and returns the label to display
func (t *ResonanceTracker) Update(score float64) string {
	next := resonanceBucket(score)
	if t.label == "" || next == t.label {
		t.label = next
		return t.label
	}
	// Only switch once the score is still in the new bucket after being
	// pulled back toward the old one by the margin.
	pulled := score - t.margin
	if rank(next) < rank(t.label) {
		pulled = score + t.margin
	}
	if resonanceBucket(pulled) == next {
		t.label = next
	}
	return t.label
}

// Label returns the current label, empty before the first update
func (t *ResonanceTracker) Label() string {
	return t.label
}

func rank(label string) int {
	switch label {
	case ResonanceDark:
		return 0
	case ResonanceNeutral:
		return 1
	case ResonanceBright:
		return 2
	default:
		return 3
	}
}
