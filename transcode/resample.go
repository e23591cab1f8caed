package transcode

import (
	"fmt"

	resampling "github.com/tphakala/go-audio-resampling"
)

// Resampler converts mono float PCM between two rates. It keeps filter state
// between calls, so one instance must serve one continuous stream.
type Resampler struct {
	inRate    int
	outRate   int
	resampler resampling.Resampler
}

// NewResampler creates a high-quality mono resampler
func NewResampler(inRate, outRate int) (*Resampler, error) {
	if inRate <= 0 || outRate <= 0 {
		return nil, fmt.Errorf("invalid resample rates %d -> %d", inRate, outRate)
	}

	r := &Resampler{inRate: inRate, outRate: outRate}
	if inRate == outRate {
		return r, nil
	}

	rs, err := resampling.New(&resampling.Config{
		InputRate:  float64(inRate),
		OutputRate: float64(outRate),
		Channels:   1,
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create resampler: %w", err)
	}
	r.resampler = rs
	return r, nil
}

// InputRate returns the source rate
func (r *Resampler) InputRate() int { return r.inRate }

// Process resamples the next block of the stream. Equal rates pass through.
func (r *Resampler) Process(pcm []float64) ([]float64, error) {
	if r.resampler == nil || len(pcm) == 0 {
		return pcm, nil
	}
	out, err := r.resampler.Process(pcm)
	if err != nil {
		return nil, fmt.Errorf("resample error: %w", err)
	}
	return out, nil
}

// Resample converts a whole signal in one call
func Resample(pcm []float64, inRate, outRate int) ([]float64, error) {
	r, err := NewResampler(inRate, outRate)
	if err != nil {
		return nil, err
	}
	return r.Process(pcm)
}
