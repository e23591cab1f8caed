package temporal

import (
	"math"

	"github.com/RyanBlaney/sonido-voice/algorithms/common"
	"github.com/RyanBlaney/sonido-voice/algorithms/spectral"
)

// Touch labels for articulatory contact
const (
	TouchHard   = "hard"
	TouchMedium = "medium"
	TouchSoft   = "soft"
)

// Phrase ending labels
const (
	EndingGradual  = "gradual"
	EndingModerate = "moderate"
	EndingAbrupt   = "abrupt"
)

const (
	burstSigma = 2.0
	// burstRange maps burst z-scores from 2σ to 8σ onto 0-100
	burstRange = 6.0

	touchHardMin   = 70.0
	touchMediumMin = 40.0

	zcrFrameSeconds = 0.02
	zcrHopSeconds   = 0.01

	endingWindowMs   = 200.0
	endingFloorRatio = 0.02
	endingPeakRatio  = 0.9
	endingDecayRatio = 0.1
	gradualMinMs     = 80.0
	moderateMinMs    = 40.0
)

// Touch describes how forcefully consonants are articulated
type Touch struct {
	Label    string  `json:"label"`
	Score    float64 `json:"score"`
	Bursts   int     `json:"bursts"`
	Feedback string  `json:"feedback"`
}

var touchFeedback = map[string]string{
	TouchHard:   "Hard articulation. Consonants are hitting hard; try a lighter touch.",
	TouchMedium: "Medium articulation. Consonants are clear with some extra pressure.",
	TouchSoft:   "Soft articulation. Consonants are light and connected.",
}

// ArticulatoryTouch finds amplitude bursts where the envelope slope exceeds
// its mean by two standard deviations, restricted to consonant-like frames
// (the whole envelope when none are found). The strongest burst's z-score is
// mapped to 0-100: above 70 is hard, above 40 medium, otherwise soft.
func ArticulatoryTouch(signal []float64, sampleRate int) *Touch {
	env := NewAmplitudeEnvelope(signal, sampleRate)
	if len(env.Values) < 3 {
		return nil
	}

	deriv := make([]float64, len(env.Values)-1)
	for i := range deriv {
		deriv[i] = env.Values[i+1] - env.Values[i]
	}
	mean := common.Mean(deriv)
	std := common.StandardDeviation(deriv)

	zcr := spectral.NewZeroCrossingRate(sampleRate,
		int(zcrFrameSeconds*float64(sampleRate)), int(zcrHopSeconds*float64(sampleRate)))
	consonant := zcr.ConsonantFrames(signal)
	anyConsonant := false
	for _, c := range consonant {
		anyConsonant = anyConsonant || c
	}

	hopSamples := EnvelopeHopSeconds * float64(sampleRate)
	inConsonant := func(i int) bool {
		if !anyConsonant {
			return true
		}
		sample := int(float64(i) * hopSamples)
		frame := min(sample/zcr.HopSize(), len(consonant)-1)
		return frame >= 0 && consonant[frame]
	}

	peak, _ := env.Peak()
	bursts := 0
	maxZ := 0.0
	if std > 1e-6*peak {
		for i, d := range deriv {
			if !inConsonant(i) {
				continue
			}
			z := (d - mean) / std
			if z > burstSigma {
				bursts++
				maxZ = math.Max(maxZ, z)
			}
		}
	}

	score := 0.0
	if bursts > 0 {
		score = common.Clamp((maxZ-burstSigma)/burstRange*100, 0, 100)
	}

	label := TouchSoft
	switch {
	case score > touchHardMin:
		label = TouchHard
	case score > touchMediumMin:
		label = TouchMedium
	}
	return &Touch{Label: label, Score: score, Bursts: bursts, Feedback: touchFeedback[label]}
}

// Ending describes how a phrase releases
type Ending struct {
	Label    string  `json:"label"`
	DecayMs  float64 `json:"decay_ms"`
	Feedback string  `json:"feedback"`
}

var endingFeedback = map[string]string{
	EndingGradual:  "Gradual release. The phrase tapers off smoothly.",
	EndingModerate: "Moderate release. The ending is somewhat clipped.",
	EndingAbrupt:   "Abrupt ending. Try letting the sound fade instead of cutting it off.",
}

// PhraseEnding measures the decay at the end of the phrase. Trailing
// silence (below 2% of the envelope maximum) is dropped; within the last
// 200 ms that remain, the decay runs from the last point at 90% of the local
// peak to the first point at or under 10% of it, or to the end of the
// phrase. At least 80 ms is gradual, at least 40 ms moderate, less is
// abrupt.
func PhraseEnding(signal []float64, sampleRate int) *Ending {
	env := NewAmplitudeEnvelope(signal, sampleRate)
	maxLevel, _ := env.Peak()
	if maxLevel <= 0 {
		return nil
	}

	end := len(env.Values)
	for end > 0 && env.Values[end-1] < endingFloorRatio*maxLevel {
		end--
	}
	windowLen := int(endingWindowMs / env.HopMs)
	start := max(0, end-windowLen)
	window := env.Values[start:end]
	if len(window) == 0 {
		return nil
	}

	peak := 0.0
	for _, v := range window {
		peak = math.Max(peak, v)
	}
	decayStart := 0
	for i, v := range window {
		if v >= endingPeakRatio*peak {
			decayStart = i
		}
	}
	decayEnd := len(window) - 1
	for i := decayStart; i < len(window); i++ {
		if window[i] <= endingDecayRatio*peak {
			decayEnd = i
			break
		}
	}
	decayMs := float64(decayEnd-decayStart) * env.HopMs

	label := EndingAbrupt
	switch {
	case decayMs >= gradualMinMs:
		label = EndingGradual
	case decayMs >= moderateMinMs:
		label = EndingModerate
	}
	return &Ending{Label: label, DecayMs: decayMs, Feedback: endingFeedback[label]}
}
