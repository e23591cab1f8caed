package transcode

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/RyanBlaney/sonido-voice/voiceerr"
)

// EncodeBitDepth is the sample width of encoded WAV output
const EncodeBitDepth = 16

// IsWAV reports whether r holds a RIFF/WAVE stream. The reader is rewound.
func IsWAV(r io.ReadSeeker) bool {
	ok := wav.NewDecoder(r).IsValidFile()
	_, _ = r.Seek(0, io.SeekStart)
	return ok
}

// WAV format tags
const (
	wavFormatPCM   = 1
	wavFormatFloat = 3
)

// ErrUnsupportedWAV is returned by DecodeWAV for WAV encodings it cannot read
// natively (64-bit float, extensible or compressed formats). Loaders fall
// back to ffmpeg for these.
var ErrUnsupportedWAV = errors.New("wav encoding not supported natively")

// DecodeWAV reads an integer PCM (8, 16, 24 or 32 bit) or 32-bit float WAV
// stream natively. Channels stay interleaved and samples are scaled to [-1, 1].
func DecodeWAV(r io.ReadSeeker) (*AudioData, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, voiceerr.InvalidInput("transcode.wav", "not a valid WAV file")
	}

	depth := int(dec.BitDepth)
	switch {
	case dec.WavAudioFormat == wavFormatPCM && (depth == 8 || depth == 16 || depth == 24 || depth == 32):
	case dec.WavAudioFormat == wavFormatFloat && depth == 32:
	default:
		return nil, fmt.Errorf("%w: format %d, %d bit", ErrUnsupportedWAV, dec.WavAudioFormat, depth)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, voiceerr.InvalidInput("transcode.wav", "could not read WAV data: %v", err)
	}
	if buf.Format == nil || buf.Format.NumChannels <= 0 || buf.Format.SampleRate <= 0 {
		return nil, voiceerr.InvalidInput("transcode.wav", "WAV header has no usable format")
	}

	pcm := make([]float64, len(buf.Data))
	switch {
	case dec.WavAudioFormat == wavFormatFloat:
		// go-audio hands back the raw IEEE bits as an int32
		for i, v := range buf.Data {
			pcm[i] = float64(math.Float32frombits(uint32(int32(v))))
		}
	case depth == 8:
		// 8-bit PCM is unsigned with 128 as zero
		for i, v := range buf.Data {
			pcm[i] = float64(v-128) / 128
		}
	default:
		scale := math.Exp2(float64(depth - 1))
		for i, v := range buf.Data {
			pcm[i] = float64(v) / scale
		}
	}

	frames := len(pcm) / buf.Format.NumChannels
	return &AudioData{
		PCM:        pcm,
		SampleRate: buf.Format.SampleRate,
		Channels:   buf.Format.NumChannels,
		Duration:   time.Duration(frames) * time.Second / time.Duration(buf.Format.SampleRate),
		Metadata: &AudioMetadata{
			SampleRate: buf.Format.SampleRate,
			Channels:   buf.Format.NumChannels,
			Codec:      "pcm",
			Duration:   float64(frames) / float64(buf.Format.SampleRate),
			Format:     "wav",
		},
	}, nil
}

// Downmix averages interleaved channels into one
func Downmix(pcm []float64, channels int) []float64 {
	if channels <= 1 {
		return pcm
	}
	out := make([]float64, len(pcm)/channels)
	for i := range out {
		sum := 0.0
		for c := 0; c < channels; c++ {
			sum += pcm[i*channels+c]
		}
		out[i] = sum / float64(channels)
	}
	return out
}

// EncodeWAV writes a mono 16-bit PCM WAV. The go-audio encoder needs a
// seekable writer to patch the header, so the file is staged on disk and
// removed before returning.
func EncodeWAV(samples []float64, sampleRate int) ([]byte, error) {
	tmp, err := os.CreateTemp("", "sonido-*.wav")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	maxVal := math.Exp2(EncodeBitDepth-1) - 1
	data := make([]int, len(samples))
	for i, s := range samples {
		data[i] = int(math.Round(clamp1(s) * maxVal))
	}

	enc := wav.NewEncoder(tmp, sampleRate, EncodeBitDepth, 1, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: EncodeBitDepth,
	}
	if err := enc.Write(buf); err != nil {
		return nil, fmt.Errorf("failed to encode wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize wav: %w", err)
	}

	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to rewind wav: %w", err)
	}
	var out bytes.Buffer
	if _, err := io.Copy(&out, tmp); err != nil {
		return nil, fmt.Errorf("failed to read wav: %w", err)
	}
	return out.Bytes(), nil
}

func clamp1(v float64) float64 {
	return math.Max(-1, math.Min(1, v))
}
