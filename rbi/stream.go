package rbi

// Stream scores a live signal incrementally. Each call to Process only
// extracts frames that start at or after the end of the previously scored
// frames, so every frame enters the running bounds and the smoother exactly
// once and in order. Frame starts are aligned to multiples of the hop in
// absolute sample positions.
type Stream struct {
	extractor *Extractor
	stats     *RunningStats
	scorer    *Scorer
	next      int64
}

// NewStream creates a stream with the live gate, fresh running bounds and
// a smoother seeded at 50
func NewStream(sampleRate int) *Stream {
	stats := NewRunningStats()
	return &Stream{
		extractor: NewExtractor(sampleRate, LiveGate),
		stats:     stats,
		scorer:    NewScorer(stats),
	}
}

// StreamResult summarizes one Process call
type StreamResult struct {
	Frames []Frame
	Values []*float64

	// Score is the mean smoothed value over the new voiced frames, or the
	// current smoothed value when none were voiced
	Score float64
}

// Process scores the new frames inside window, whose last sample sits at
// absolute position end-1.
func (s *Stream) Process(window []float64, end int64) StreamResult {
	start := end - int64(len(window))
	hop := int64(s.extractor.HopSize())

	first := max(s.next, start)
	if rem := first % hop; rem != 0 {
		first += hop - rem
	}

	frames, _ := s.extractor.ExtractFrom(window, int(first-start))

	result := StreamResult{Frames: frames, Values: make([]*float64, len(frames))}
	sum, n := 0.0, 0
	for i, f := range frames {
		if f.Voiced {
			s.stats.Observe(f.Features)
		}
		v := s.scorer.Score(f)
		result.Values[i] = v
		if f.Voiced {
			sum += *v
			n++
		}
	}
	if len(frames) > 0 {
		s.next = first + int64(len(frames))*hop
	}

	result.Score = s.scorer.Value()
	if n > 0 {
		result.Score = sum / float64(n)
	}
	return result
}

// Value returns the current smoothed brightness
func (s *Stream) Value() float64 {
	return s.scorer.Value()
}

// Stats returns the running bounds
func (s *Stream) Stats() Stats {
	return s.stats.Stats()
}
