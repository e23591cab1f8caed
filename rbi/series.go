package rbi

import (
	"github.com/RyanBlaney/sonido-voice/logging"
	"github.com/RyanBlaney/sonido-voice/voiceerr"
)

// Frame labels
const (
	LabelSilence       = "silence"
	LabelBackDark      = "back_dark"
	LabelNeutral       = "neutral"
	LabelBrightForward = "bright_forward"
	LabelSharp         = "sharp"
)

// Label buckets a brightness score: <40 back/dark, <60 neutral, <=80
// bright/forward, above that sharp
func Label(score float64) string {
	switch {
	case score < 40:
		return LabelBackDark
	case score < 60:
		return LabelNeutral
	case score <= 80:
		return LabelBrightForward
	default:
		return LabelSharp
	}
}

// Series is the result of whole-signal analysis
type Series struct {
	Frames    []Frame    `json:"-"`
	Values    []*float64 `json:"rbi"`
	Stats     Stats      `json:"stats"`
	Threshold float64    `json:"energy_threshold_db"`
	HopSize   int        `json:"hop_size"`
	FrameSize int        `json:"frame_size"`
}

// Times returns each frame's start time in seconds
func (s *Series) Times() []float64 {
	out := make([]float64, len(s.Frames))
	for i, f := range s.Frames {
		out[i] = f.Time
	}
	return out
}

// Labels returns a label per frame. Unvoiced frames are labelled silence
// even when Values holds the previous score for them, so label segments
// follow voicing rather than the held brightness.
func (s *Series) Labels() []string {
	out := make([]string, len(s.Frames))
	for i, f := range s.Frames {
		if !f.Voiced || s.Values[i] == nil {
			out[i] = LabelSilence
			continue
		}
		out[i] = Label(*s.Values[i])
	}
	return out
}

// VoicedCount returns the number of voiced frames
func (s *Series) VoicedCount() int {
	n := 0
	for _, f := range s.Frames {
		if f.Voiced {
			n++
		}
	}
	return n
}

// Mean averages every non-nil value, held values included. It is nil when
// no frame was voiced.
func (s *Series) Mean() *float64 {
	sum, n := 0.0, 0
	for _, v := range s.Values {
		if v != nil {
			sum += *v
			n++
		}
	}
	if n == 0 {
		return nil
	}
	m := sum / float64(n)
	return &m
}

// Analyze runs the three passes over a whole signal: extraction with the
// batch gate, percentile bounds over voiced frames, and batch scoring. A
// signal too short for a single frame is an insufficient-signal error; a
// signal without voiced frames yields a series of nil values.
func Analyze(signal []float64, sampleRate int) (*Series, error) {
	logger := logging.WithFields(logging.Fields{
		"component": "rbi",
		"function":  "Analyze",
	})

	ex := NewExtractor(sampleRate, BatchGate)
	frames, threshold := ex.Extract(signal)
	if len(frames) == 0 {
		return nil, voiceerr.InsufficientSignal("rbi.analyze",
			"audio is shorter than one %.0f ms analysis frame", FrameSeconds*1000)
	}

	stats := PercentileStats(frames)
	series := &Series{
		Frames:    frames,
		Values:    ScoreBatch(frames, stats),
		Stats:     stats,
		Threshold: threshold,
		HopSize:   ex.HopSize(),
		FrameSize: ex.FrameSize(),
	}

	logger.Debug("RBI series computed", logging.Fields{
		"frames":       len(frames),
		"voiced":       series.VoicedCount(),
		"threshold_db": threshold,
	})
	return series, nil
}
