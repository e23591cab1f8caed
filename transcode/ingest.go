package transcode

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/RyanBlaney/sonido-voice/algorithms/common"
	"github.com/RyanBlaney/sonido-voice/algorithms/filters"
	"github.com/RyanBlaney/sonido-voice/logging"
	"github.com/RyanBlaney/sonido-voice/voiceerr"
)

// Ingestion constants
const (
	AnalysisRate = 16000

	// SilenceRMS is the raw RMS below which a recording counts as silent
	SilenceRMS = 0.001

	// MinAnalysisSeconds is the shortest recording batch analysis accepts
	MinAnalysisSeconds = 1.0
	// MinUtilitySeconds is the shortest recording the cleaning utility accepts
	MinUtilitySeconds = 0.5

	CleanLowHz  = 80.0
	CleanHighHz = 8000.0
	// CleanPeak is -1 dBFS
	CleanPeak = 0.891
)

// AudioSignal is mono PCM at the analysis rate, peak-normalized to at most
// 1.0. It is not modified after construction.
type AudioSignal struct {
	Samples    []float64 `json:"-"`
	SampleRate int       `json:"sample_rate"`
	Source     string    `json:"source,omitempty"`
}

// Duration returns the length in seconds
func (s *AudioSignal) Duration() float64 {
	if s.SampleRate <= 0 {
		return 0
	}
	return float64(len(s.Samples)) / float64(s.SampleRate)
}

// Loader turns files and byte slices into AudioSignals. WAV is decoded
// natively; everything else goes through ffmpeg.
type Loader struct {
	decoder *Decoder
}

// NewLoader creates a loader; a nil config uses the defaults
func NewLoader(config *DecoderConfig) *Loader {
	return &Loader{decoder: NewDecoder(config)}
}

// Decoder returns the ffmpeg decoder used for compressed formats
func (l *Loader) Decoder() *Decoder {
	return l.decoder
}

// Load decodes the file at path
func (l *Loader) Load(ctx context.Context, path string) (*AudioSignal, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, voiceerr.InvalidInput("transcode.load", "cannot open audio file %s", filepath.Base(path))
	}
	defer f.Close()

	var data *AudioData
	if IsWAV(f) {
		data, err = DecodeWAV(f)
	}
	if data == nil && (err == nil || errors.Is(err, ErrUnsupportedWAV)) {
		data, err = l.decoder.DecodeFile(ctx, path)
	}
	if err != nil {
		return nil, err
	}
	return l.condition(data, filepath.Base(path))
}

// LoadBytes decodes an in-memory recording; name is only used for logging
func (l *Loader) LoadBytes(ctx context.Context, data []byte, name string) (*AudioSignal, error) {
	if len(data) == 0 {
		return nil, voiceerr.InvalidInput("transcode.load", "empty audio data")
	}

	var decoded *AudioData
	var err error
	if r := bytes.NewReader(data); IsWAV(r) {
		decoded, err = DecodeWAV(r)
	}
	if decoded == nil && (err == nil || errors.Is(err, ErrUnsupportedWAV)) {
		decoded, err = l.decoder.DecodeBytes(ctx, data)
	}
	if err != nil {
		return nil, err
	}
	return l.condition(decoded, name)
}

func (l *Loader) condition(data *AudioData, source string) (*AudioSignal, error) {
	logger := logging.WithFields(logging.Fields{
		"component": "ingest",
		"function":  "condition",
		"source":    source,
	})

	mono := Downmix(data.PCM, data.Channels)
	sig, err := FromSamples(mono, data.SampleRate)
	if err != nil {
		return nil, err
	}
	sig.Source = source

	logger.Debug("Audio conditioned", logging.Fields{
		"input_sample_rate": data.SampleRate,
		"input_channels":    data.Channels,
		"samples":           len(sig.Samples),
		"duration":          sig.Duration(),
	})
	return sig, nil
}

// FromSamples conditions mono PCM: resample to the analysis rate, reject
// silence, then peak-normalize by max|x| + eps.
func FromSamples(mono []float64, sampleRate int) (*AudioSignal, error) {
	if len(mono) == 0 {
		return nil, voiceerr.InvalidInput("transcode.ingest", "no audio samples")
	}

	samples := mono
	if sampleRate != AnalysisRate {
		var err error
		samples, err = Resample(mono, sampleRate, AnalysisRate)
		if err != nil {
			return nil, err
		}
	}

	if common.RMS(samples) < SilenceRMS {
		return nil, voiceerr.InsufficientSignal("transcode.ingest", "the recording is silent")
	}

	return &AudioSignal{Samples: Normalize(samples), SampleRate: AnalysisRate}, nil
}

// Normalize scales samples so that the largest magnitude is just under 1
func Normalize(samples []float64) []float64 {
	scale := common.PeakAbs(samples) + common.Eps
	out := make([]float64, len(samples))
	for i, v := range samples {
		out[i] = v / scale
	}
	return out
}

// Validate rejects signals shorter than minSeconds
func Validate(sig *AudioSignal, minSeconds float64) error {
	if sig == nil || len(sig.Samples) == 0 {
		return voiceerr.InvalidInput("transcode.validate", "no audio")
	}
	if sig.Duration() < minSeconds {
		return voiceerr.InsufficientSignal("transcode.validate",
			"recording is %.2f s; at least %.1f s is needed", sig.Duration(), minSeconds)
	}
	return nil
}

// Clean band-limits the signal to 80-8000 Hz (the upper edge clamped below
// Nyquist) with a zero-phase 4th-order Butterworth and renormalizes to
// -1 dBFS. Any filter failure returns the input unchanged.
func Clean(sig *AudioSignal) *AudioSignal {
	logger := logging.WithFields(logging.Fields{
		"component": "ingest",
		"function":  "Clean",
	})

	bp, err := filters.NewButterworthBandpass(sig.SampleRate, CleanLowHz, CleanHighHz)
	if err != nil {
		logger.Warn("Bandpass unavailable, returning input", logging.Fields{"error": err.Error()})
		return sig
	}
	filtered, err := bp.FiltFilt(sig.Samples)
	if err != nil {
		logger.Warn("Filtering failed, returning input", logging.Fields{"error": err.Error()})
		return sig
	}

	peak := common.PeakAbs(filtered)
	if peak <= common.Eps {
		return sig
	}
	for i := range filtered {
		filtered[i] *= CleanPeak / peak
	}
	return &AudioSignal{Samples: filtered, SampleRate: sig.SampleRate, Source: sig.Source}
}

// AllowedExtension reports whether a filename has an accepted audio extension
func AllowedExtension(filename string) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	if ext == "" {
		return false
	}
	for _, allowed := range SupportedExtensions() {
		if ext == allowed {
			return true
		}
	}
	return false
}
