package analysis

import (
	"github.com/RyanBlaney/sonido-voice/algorithms/spectral"
	"github.com/RyanBlaney/sonido-voice/algorithms/speech"
	"github.com/RyanBlaney/sonido-voice/algorithms/temporal"
)

// LTASBandwidthHz is the band width of the reported long-term spectrum
const LTASBandwidthHz = 100.0

// VoiceLab holds the supplementary measurements: articulation, speaking
// rate and tract length. Each part is nil when it cannot be measured.
type VoiceLab struct {
	Formants   speech.FormantSet      `json:"formants"`
	VocalTract *speech.VocalTract     `json:"vocal_tract"`
	LTAS       *spectral.LTAS         `json:"ltas"`
	Syllables  *temporal.SyllableRate `json:"speech_rate"`
	Onset      *temporal.Onset        `json:"onset"`
	Touch      *temporal.Touch        `json:"touch"`
	Ending     *temporal.Ending       `json:"ending"`
}

// MeasureVoiceLab runs the supplementary analyzers over a conditioned signal
func MeasureVoiceLab(signal []float64, sampleRate int) *VoiceLab {
	formants := speech.TrackFormants(signal, sampleRate)
	return &VoiceLab{
		Formants:   formants,
		VocalTract: speech.EstimateVTL(formants.Slice()),
		LTAS:       spectral.ComputeLTAS(signal, sampleRate, LTASBandwidthHz),
		Syllables:  temporal.CountSyllables(signal, sampleRate),
		Onset:      temporal.ClassifyOnset(signal, sampleRate),
		Touch:      temporal.ArticulatoryTouch(signal, sampleRate),
		Ending:     temporal.PhraseEnding(signal, sampleRate),
	}
}
