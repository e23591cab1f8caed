// Package analysis runs the batch pipeline: ingestion, global features, the
// brightness series, classification, goal comparison and the optional
// transcript and voice-lab extras.
package analysis

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/RyanBlaney/sonido-voice/algorithms/speech"
	"github.com/RyanBlaney/sonido-voice/classify"
	"github.com/RyanBlaney/sonido-voice/goals"
	"github.com/RyanBlaney/sonido-voice/logging"
	"github.com/RyanBlaney/sonido-voice/rbi"
	"github.com/RyanBlaney/sonido-voice/transcode"
)

// Options selects the goal preset and the optional parts of an analysis
type Options struct {
	Goal       string `json:"goal"`
	Transcribe bool   `json:"transcribe"`
	VoiceLab   bool   `json:"voice_lab"`
}

// DefaultOptions compares against the default preset with no extras
func DefaultOptions() Options {
	return Options{Goal: goals.DefaultPreset}
}

// Result is the full output of one batch analysis
type Result struct {
	ID         string            `json:"id"`
	Source     string            `json:"source,omitempty"`
	DurationS  float64           `json:"duration_s"`
	Summary    classify.Summary  `json:"summary"`
	Features   GlobalFeatures    `json:"features_global"`
	Timeline   Timeline          `json:"timeline"`
	Goals      *goals.Comparison `json:"goals"`
	Transcript *Transcript       `json:"transcript,omitempty"`
	VoiceLab   *VoiceLab         `json:"voice_lab,omitempty"`

	CreatedAt        time.Time `json:"created_at"`
	AnalysisDuration float64   `json:"analysis_duration_ms"`
}

// Analyzer runs batch analyses. It holds no per-call state and is safe for
// concurrent use.
type Analyzer struct {
	loader      *transcode.Loader
	catalog     *goals.Catalog
	transcriber Transcriber
	periods     speech.PeriodAnalyzer
}

// NewAnalyzer creates an analyzer; nil arguments fall back to the default
// loader and the built-in preset catalog
func NewAnalyzer(loader *transcode.Loader, catalog *goals.Catalog) *Analyzer {
	if loader == nil {
		loader = transcode.NewLoader(nil)
	}
	if catalog == nil {
		catalog = goals.Builtin()
	}
	return &Analyzer{loader: loader, catalog: catalog, periods: speech.NewPeakPeriodAnalyzer()}
}

// WithTranscriber sets the word-timing provider used when Options.Transcribe is set
func (a *Analyzer) WithTranscriber(t Transcriber) *Analyzer {
	a.transcriber = t
	return a
}

// WithPeriodAnalyzer swaps the glottal period engine behind jitter and shimmer
func (a *Analyzer) WithPeriodAnalyzer(p speech.PeriodAnalyzer) *Analyzer {
	if p != nil {
		a.periods = p
	}
	return a
}

// Catalog returns the goal presets
func (a *Analyzer) Catalog() *goals.Catalog {
	return a.catalog
}

// Loader returns the audio loader
func (a *Analyzer) Loader() *transcode.Loader {
	return a.loader
}

// AnalyzeFile loads, conditions and analyzes the file at path. The goal
// name is checked before any audio work. The file is only read.
func (a *Analyzer) AnalyzeFile(ctx context.Context, path string, opts Options) (*Result, error) {
	if _, err := a.catalog.Get(opts.Goal); err != nil {
		return nil, err
	}

	sig, err := a.loader.Load(ctx, path)
	if err != nil {
		return nil, err
	}

	result, err := a.AnalyzeSignal(sig, opts)
	if err != nil {
		return nil, err
	}

	if opts.Transcribe && a.transcriber != nil {
		a.attachTranscript(ctx, result, path)
	}
	return result, nil
}

// attachTranscript adds aligned words. A failing transcription leaves the
// acoustic result intact. Log fields stored in ctx are carried over.
func (a *Analyzer) attachTranscript(ctx context.Context, result *Result, path string) {
	logger := logging.WithContext(ctx).WithFields(logging.Fields{
		"component": "analyzer",
		"function":  "attachTranscript",
		"id":        result.ID,
	})

	t, err := a.transcriber.Transcribe(ctx, path)
	if err != nil {
		logger.Warn("Transcription failed, returning acoustic analysis only", logging.Fields{
			"error": err.Error(),
		})
		return
	}
	result.Transcript = NewTranscript(result.Timeline, t, result.DurationS)
}

// AnalyzeSignal analyzes an already conditioned signal
func (a *Analyzer) AnalyzeSignal(sig *transcode.AudioSignal, opts Options) (*Result, error) {
	logger := logging.WithFields(logging.Fields{
		"component": "analyzer",
		"function":  "AnalyzeSignal",
		"source":    sig.Source,
		"goal":      opts.Goal,
	})

	if _, err := a.catalog.Get(opts.Goal); err != nil {
		return nil, err
	}
	if err := transcode.Validate(sig, transcode.MinAnalysisSeconds); err != nil {
		return nil, err
	}

	start := time.Now()
	series, err := rbi.Analyze(sig.Samples, sig.SampleRate)
	if err != nil {
		return nil, err
	}

	features := MeasureGlobal(sig.Samples, sig.SampleRate, a.periods)
	features.RBIMean = series.Mean()

	summary := classify.Classify(features.ClassifierInput())
	comparison, err := a.catalog.Compare(summary, features.GoalMeasures(), opts.Goal)
	if err != nil {
		return nil, err
	}

	result := &Result{
		ID:        uuid.NewString(),
		Source:    sig.Source,
		DurationS: sig.Duration(),
		Summary:   summary,
		Features:  features,
		Timeline:  BuildTimeline(sig.Samples, sig.SampleRate, series),
		Goals:     comparison,
		CreatedAt: time.Now().UTC(),
	}
	if opts.VoiceLab {
		result.VoiceLab = MeasureVoiceLab(sig.Samples, sig.SampleRate)
	}
	result.AnalysisDuration = float64(time.Since(start).Microseconds()) / 1000

	logger.Info("Analysis complete", logging.Fields{
		"id":            result.ID,
		"duration_s":    result.DurationS,
		"voiced_frames": series.VoicedCount(),
		"overall_label": summary.Label,
		"elapsed_ms":    result.AnalysisDuration,
	})
	return result, nil
}
