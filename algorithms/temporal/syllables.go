package temporal

import (
	"github.com/RyanBlaney/sonido-voice/algorithms/common"
)

const (
	intensityFrameSeconds = 0.025
	intensityHopSeconds   = 0.01

	// syllableDipDB is the minimum dip between two counted intensity peaks
	syllableDipDB = 2.0
	// syllableRangeDB places the peak threshold this far below the loudest frame
	syllableRangeDB = 25.0
)

// SyllableRate is the number of intensity humps per second of audio
type SyllableRate struct {
	Syllables int     `json:"syllables"`
	PerSecond float64 `json:"syllables_per_second"`
	DurationS float64 `json:"duration_s"`
}

// CountSyllables counts peaks of the intensity contour (dB of 25 ms RMS
// frames at a 10 ms hop) that rise above max(median, max-25 dB) and are
// separated from the previous counted peak by a dip of at least 2 dB.
func CountSyllables(signal []float64, sampleRate int) *SyllableRate {
	frame := int(intensityFrameSeconds * float64(sampleRate))
	hop := int(intensityHopSeconds * float64(sampleRate))
	rms := NewEnvelope().ComputeRMS(signal, frame, hop)
	if len(rms) < 3 {
		return nil
	}

	db := make([]float64, len(rms))
	loudest := -1e9
	for i, v := range rms {
		db[i] = common.AmplitudeDB(v)
		if db[i] > loudest {
			loudest = db[i]
		}
	}
	threshold := common.Percentile(db, 0.5)
	if floor := loudest - syllableRangeDB; floor > threshold {
		threshold = floor
	}

	count := 0
	lastPeak := -1
	for i := 1; i < len(db)-1; i++ {
		if db[i] < threshold || db[i] < db[i-1] || db[i] < db[i+1] {
			continue
		}
		if db[i] == db[i-1] {
			continue
		}
		if lastPeak >= 0 {
			dip := db[lastPeak]
			for j := lastPeak; j <= i; j++ {
				dip = min(dip, db[j])
			}
			if db[i]-dip < syllableDipDB || db[lastPeak]-dip < syllableDipDB {
				if db[i] > db[lastPeak] {
					lastPeak = i
				}
				continue
			}
		}
		count++
		lastPeak = i
	}

	duration := float64(len(signal)) / float64(sampleRate)
	rate := 0.0
	if duration > 0 {
		rate = float64(count) / duration
	}
	return &SyllableRate{Syllables: count, PerSecond: rate, DurationS: duration}
}
