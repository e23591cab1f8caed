// Package stream scores live audio. Each connection owns a Session holding
// its buffer, running brightness bounds, smoother and rate limiter; nothing
// is shared between sessions.
package stream

import (
	"sync"
	"time"

	"github.com/RyanBlaney/sonido-voice/algorithms/common"
	"github.com/RyanBlaney/sonido-voice/algorithms/speech"
	"github.com/RyanBlaney/sonido-voice/algorithms/temporal"
	"github.com/RyanBlaney/sonido-voice/analysis"
	"github.com/RyanBlaney/sonido-voice/classify"
	"github.com/RyanBlaney/sonido-voice/logging"
	"github.com/RyanBlaney/sonido-voice/rbi"
	"github.com/RyanBlaney/sonido-voice/transcode"
	"github.com/RyanBlaney/sonido-voice/voiceerr"
)

// State is a session's position in its lifecycle
type State int

const (
	// StateConnected has an empty buffer
	StateConnected State = iota
	// StateAccumulating holds less audio than the scoring minimum
	StateAccumulating
	// StateScoring emits an update for every accepted chunk
	StateScoring
	// StateDisconnected is terminal; all per-session state is released
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateAccumulating:
		return "accumulating"
	case StateScoring:
		return "scoring"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Config holds the streaming limits
type Config struct {
	SampleRate          int           `json:"sample_rate" mapstructure:"sample_rate"`
	BufferSeconds       float64       `json:"buffer_seconds" mapstructure:"buffer_seconds"`
	WindowSeconds       float64       `json:"window_seconds" mapstructure:"window_seconds"`
	MinSeconds          float64       `json:"min_seconds" mapstructure:"min_seconds"`
	MaxChunksPerSecond  int           `json:"max_chunks_per_second" mapstructure:"max_chunks_per_second"`
	RateWindow          time.Duration `json:"rate_window" mapstructure:"rate_window"`
	MaxConnectionsPerIP int           `json:"max_connections_per_ip" mapstructure:"max_connections_per_ip"`
	Hysteresis          float64       `json:"hysteresis" mapstructure:"hysteresis"`
}

// DefaultConfig returns 16 kHz, a 3 s buffer scored over its last second
// once 100 ms has arrived, 50 chunks per second and 5 connections per IP
func DefaultConfig() Config {
	return Config{
		SampleRate:          transcode.AnalysisRate,
		BufferSeconds:       3,
		WindowSeconds:       1,
		MinSeconds:          0.1,
		MaxChunksPerSecond:  50,
		RateWindow:          time.Second,
		MaxConnectionsPerIP: 5,
		Hysteresis:          classify.DefaultHysteresis,
	}
}

// Update is the analysis_update event payload
type Update struct {
	Label            string   `json:"label"`
	BreathinessScore *float64 `json:"breathiness_score"`
	BreathinessGRBAS *int     `json:"breathiness_grbas"`
	RoughnessScore   *float64 `json:"roughness_score"`
	StrainScore      *float64 `json:"strain_score"`
	CPPMean          *float64 `json:"cpp_mean"`
	HNRMean          *float64 `json:"hnr_mean"`
	H1H2Mean         *float64 `json:"h1_h2_mean"`
	RBIScore         float64  `json:"rbi_score"`
	ResonanceLabel   string   `json:"resonance_label"`
	WindowSec        float64  `json:"window_sec"`

	VentricularDetected bool   `json:"ventricular_detected"`
	VentricularSeverity string `json:"ventricular_severity"`
	VentricularFeedback string `json:"ventricular_feedback"`

	OQPercent  *float64 `json:"oq_percent"`
	OQZone     string   `json:"oq_zone"`
	OQFeedback string   `json:"oq_feedback"`

	Register      *classify.Register  `json:"register"`
	Phonation     *classify.Phonation `json:"phonation"`
	Touch         *temporal.Touch     `json:"touch"`
	Ending        *temporal.Ending    `json:"ending"`
	SpectralSlope *float64            `json:"spectral_slope"`
}

// Session is the state of one streaming connection. HandleChunk calls are
// serialized so the brightness recurrence sees chunks strictly in order.
type Session struct {
	mu sync.Mutex

	id       string
	remoteIP string
	cfg      Config
	state    State
	created  time.Time

	buffer     *common.RingBuffer
	scorer     *rbi.Stream
	resonance  *classify.ResonanceTracker
	limiter    *RateLimiter
	resamplers map[int]*transcode.Resampler
	periods    speech.PeriodAnalyzer

	chunks  int64
	dropped int64

	logger logging.Logger
}

func newSession(id, remoteIP string, cfg Config, now func() time.Time) *Session {
	return &Session{
		id:         id,
		remoteIP:   remoteIP,
		cfg:        cfg,
		state:      StateConnected,
		created:    now(),
		buffer:     common.NewRingBuffer(int(cfg.BufferSeconds * float64(cfg.SampleRate))),
		scorer:     rbi.NewStream(cfg.SampleRate),
		resonance:  classify.NewResonanceTracker(cfg.Hysteresis),
		limiter:    NewRateLimiter(cfg.MaxChunksPerSecond, cfg.RateWindow, now),
		resamplers: make(map[int]*transcode.Resampler),
		periods:    speech.NewPeakPeriodAnalyzer(),
		logger: logging.WithFields(logging.Fields{
			"component": "stream_session",
			"session":   id,
		}),
	}
}

// ID returns the connection id
func (s *Session) ID() string { return s.id }

// RemoteIP returns the client address the session was opened from
func (s *Session) RemoteIP() string { return s.remoteIP }

// State returns the lifecycle state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Buffered returns the number of samples currently held
func (s *Session) Buffered() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.buffer == nil {
		return 0
	}
	return s.buffer.Len()
}

// RBI returns the current smoothed brightness, 50 before any voiced frame
func (s *Session) RBI() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.scorer == nil {
		return rbi.Seed
	}
	return s.scorer.Value()
}

// HandleChunk appends a chunk and, once enough audio is buffered, scores
// the most recent window. It returns a nil update while accumulating. A
// chunk over the rate limit is dropped with a rate-limit error and leaves
// the buffer untouched.
func (s *Session) HandleChunk(c Chunk) (*Update, error) {
	return s.handle(func() (Chunk, error) { return c, nil })
}

// HandleAudio parses the data of an audio_chunk event and handles it like
// HandleChunk. The rate limit is charged before parsing, so malformed
// chunks count against it.
func (s *Session) HandleAudio(data []byte) (*Update, error) {
	return s.handle(func() (Chunk, error) { return ParseChunk(data) })
}

// HandleBinary handles a frame of little-endian float32 samples at rate,
// charging the rate limit before decoding
func (s *Session) HandleBinary(raw []byte, rate int) (*Update, error) {
	return s.handle(func() (Chunk, error) {
		pcm, err := DecodeFloat32(raw)
		return Chunk{PCM: pcm, SampleRate: rate}, err
	})
}

func (s *Session) handle(decode func() (Chunk, error)) (*Update, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateDisconnected {
		return nil, voiceerr.InvalidInput("stream.chunk", "session %s is closed", s.id)
	}
	if !s.limiter.Allow() {
		s.dropped++
		return nil, voiceerr.RateLimited("stream.chunk", "Rate limit exceeded. Please slow down.")
	}
	c, err := decode()
	if err != nil {
		return nil, err
	}
	if len(c.PCM) == 0 {
		return nil, nil
	}
	if !validSamples(c.PCM) {
		return nil, voiceerr.InvalidInput("stream.chunk", "PCM contains non-finite samples")
	}

	pcm, err := s.resample(c)
	if err != nil {
		return nil, err
	}
	s.buffer.Write(pcm)
	s.chunks++

	if s.buffer.Len() < int(s.cfg.MinSeconds*float64(s.cfg.SampleRate)) {
		s.state = StateAccumulating
		return nil, nil
	}
	s.state = StateScoring
	return s.score(), nil
}

func (s *Session) resample(c Chunk) ([]float64, error) {
	rate := c.SampleRate
	if rate == 0 || rate == s.cfg.SampleRate {
		return c.PCM, nil
	}

	r, ok := s.resamplers[rate]
	if !ok {
		var err error
		r, err = transcode.NewResampler(rate, s.cfg.SampleRate)
		if err != nil {
			return nil, voiceerr.InvalidInput("stream.chunk", "cannot resample from %d Hz: %v", rate, err)
		}
		s.resamplers[rate] = r
	}
	return r.Process(c.PCM)
}

func (s *Session) score() *Update {
	sr := s.cfg.SampleRate
	window := s.buffer.Tail(int(s.cfg.WindowSeconds * float64(sr)))
	res := s.scorer.Process(window, s.buffer.Total())

	features := analysis.MeasureGlobal(window, sr, s.periods)
	features.RBIMean = &res.Score
	summary := classify.Classify(features.ClassifierInput())

	u := &Update{
		Label:            summary.Label,
		BreathinessScore: summary.BreathinessScore,
		BreathinessGRBAS: summary.BreathinessGRBAS,
		RoughnessScore:   summary.RoughnessScore,
		StrainScore:      summary.StrainScore,
		CPPMean:          features.CPPMean,
		HNRMean:          features.HNRMean,
		H1H2Mean:         features.H1H2Mean,
		RBIScore:         res.Score,
		ResonanceLabel:   s.resonance.Update(res.Score),
		WindowSec:        float64(len(window)) / float64(sr),
		Register:         summary.Register,
		Phonation:        summary.Phonation,
		Touch:            temporal.ArticulatoryTouch(window, sr),
		Ending:           temporal.PhraseEnding(window, sr),
		SpectralSlope:    features.SpectralTiltSlope,
	}
	if v := summary.Ventricular; v != nil {
		u.VentricularDetected = v.Detected
		u.VentricularSeverity = v.Severity
		u.VentricularFeedback = v.Feedback
	}
	if oq := summary.OpenQuotient; oq != nil {
		u.OQPercent = &oq.Percent
		u.OQZone = oq.Zone
		u.OQFeedback = oq.Feedback
	}

	s.logger.Debug("Window scored", logging.Fields{
		"new_frames": len(res.Frames),
		"rbi":        res.Score,
		"window_sec": u.WindowSec,
	})
	return u
}

// close releases the buffer, bounds and resamplers
func (s *Session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateDisconnected {
		return
	}
	s.logger.Debug("Session closed", logging.Fields{
		"chunks":   s.chunks,
		"dropped":  s.dropped,
		"duration": time.Since(s.created).Seconds(),
	})
	s.state = StateDisconnected
	s.buffer = nil
	s.scorer = nil
	s.resonance = nil
	s.resamplers = nil
}
