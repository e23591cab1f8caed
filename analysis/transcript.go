package analysis

import (
	"context"
	"math"

	"github.com/RyanBlaney/sonido-voice/algorithms/common"
	"github.com/RyanBlaney/sonido-voice/asr"
	"github.com/RyanBlaney/sonido-voice/classify"
)

// Transcriber provides word timings for a recording on disk
type Transcriber interface {
	Transcribe(ctx context.Context, path string) (*asr.Transcript, error)
}

// AlignedWord is a recognized word with the mean brightness of its frames.
// RBIScore is nil and Label empty when none of its frames had a score.
type AlignedWord struct {
	Text     string  `json:"text"`
	StartS   float64 `json:"start_s"`
	EndS     float64 `json:"end_s"`
	RBIScore *int    `json:"rbi_score"`
	Label    string  `json:"label,omitempty"`
}

// Transcript is the transcription attached to an analysis
type Transcript struct {
	FullText       string        `json:"full_text"`
	Words          []AlignedWord `json:"words"`
	WordsPerMinute *float64      `json:"words_per_minute"`
}

// AlignWords averages the brightness of the frames whose time falls in
// [start, end) of each word. Words covering no frame are dropped.
func AlignWords(tl Timeline, words []asr.Word) []AlignedWord {
	out := make([]AlignedWord, 0, len(words))
	for _, w := range words {
		covered := false
		var scores []float64
		for i, t := range tl.Times {
			if t < w.StartS || t >= w.EndS {
				continue
			}
			covered = true
			if i < len(tl.RBI) && tl.RBI[i] != nil {
				scores = append(scores, *tl.RBI[i])
			}
		}
		if !covered {
			continue
		}

		aw := AlignedWord{Text: w.Text, StartS: w.StartS, EndS: w.EndS}
		if len(scores) > 0 {
			mean := common.Mean(scores)
			v := int(math.Trunc(mean))
			aw.RBIScore = &v
			aw.Label = classify.ResonanceLabel(&mean)
		}
		out = append(out, aw)
	}
	return out
}

// WordsPerMinute is the recognized word count over the recording length
func WordsPerMinute(words int, durationS float64) *float64 {
	if words == 0 || durationS <= 0 {
		return nil
	}
	return common.Float(float64(words) / durationS * 60)
}

// NewTranscript aligns a service transcript against a timeline
func NewTranscript(tl Timeline, t *asr.Transcript, durationS float64) *Transcript {
	return &Transcript{
		FullText:       t.FullText,
		Words:          AlignWords(tl, t.Words),
		WordsPerMinute: WordsPerMinute(len(t.Words), durationS),
	}
}
