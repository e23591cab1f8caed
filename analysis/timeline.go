package analysis

import (
	"github.com/RyanBlaney/sonido-voice/algorithms/common"
	"github.com/RyanBlaney/sonido-voice/rbi"
)

// Segment is a run of consecutive frames sharing a label
type Segment struct {
	StartS float64 `json:"start_s"`
	EndS   float64 `json:"end_s"`
	Label  string  `json:"label"`
}

// Timeline holds the per-frame tracks of a recording. All slices share the
// frame index. RBI holds the last score through unvoiced frames, but their
// label is silence, so segments split at pauses instead of extending the
// previous brightness label across them.
type Timeline struct {
	FrameHopS float64    `json:"frame_hop_s"`
	Times     []float64  `json:"times"`
	Labels    []string   `json:"labels"`
	EnergyDB  []float64  `json:"energy_db"`
	F0        []*float64 `json:"f0"`
	RBI       []*float64 `json:"rbi"`
	Segments  []Segment  `json:"segments"`
}

// BuildTimeline lays the brightness series out as frame tracks. Energy is
// the dBFS RMS of the unemphasized frame.
func BuildTimeline(signal []float64, sampleRate int, series *rbi.Series) Timeline {
	n := len(series.Frames)
	tl := Timeline{
		FrameHopS: rbi.HopSeconds,
		Times:     series.Times(),
		Labels:    series.Labels(),
		EnergyDB:  make([]float64, n),
		F0:        make([]*float64, n),
		RBI:       series.Values,
	}

	for i, f := range series.Frames {
		start := i * series.HopSize
		end := min(start+series.FrameSize, len(signal))
		if start < end {
			tl.EnergyDB[i] = common.AmplitudeDB(common.RMS(signal[start:end]))
		}
		tl.F0[i] = f.F0Ptr()
	}

	tl.Segments = Segments(tl.Times, tl.Labels, tl.FrameHopS)
	return tl
}

// Segments merges consecutive equal labels. The last segment ends one hop
// after the last frame time.
func Segments(times []float64, labels []string, hop float64) []Segment {
	if len(times) == 0 {
		return []Segment{}
	}

	var segs []Segment
	cur := Segment{StartS: times[0], Label: labels[0]}
	for i := 1; i < len(times); i++ {
		if labels[i] != cur.Label {
			cur.EndS = times[i]
			segs = append(segs, cur)
			cur = Segment{StartS: times[i], Label: labels[i]}
		}
	}
	cur.EndS = times[len(times)-1] + hop
	return append(segs, cur)
}
