package stream

import (
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"math"

	"github.com/RyanBlaney/sonido-voice/voiceerr"
)

// Chunk is one block of mono PCM from a client. A zero SampleRate means the
// session's target rate.
type Chunk struct {
	PCM        []float64
	SampleRate int
}

// chunkPayload is the JSON form of an audio_chunk. pcm is either an array
// of floats or base64 of little-endian float32 samples.
type chunkPayload struct {
	PCM json.RawMessage `json:"pcm"`
	SR  int             `json:"sr"`
}

// ParseChunk decodes the data of an audio_chunk event
func ParseChunk(data []byte) (Chunk, error) {
	var p chunkPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return Chunk{}, voiceerr.InvalidInput("stream.chunk", "Failed to parse PCM chunk: %v", err)
	}
	if len(p.PCM) == 0 || string(p.PCM) == "null" {
		return Chunk{}, voiceerr.InvalidInput("stream.chunk", "No PCM data in chunk.")
	}
	if p.SR < 0 {
		return Chunk{}, voiceerr.InvalidInput("stream.chunk", "invalid sample rate %d", p.SR)
	}

	c := Chunk{SampleRate: p.SR}
	switch p.PCM[0] {
	case '[':
		if err := json.Unmarshal(p.PCM, &c.PCM); err != nil {
			return Chunk{}, voiceerr.InvalidInput("stream.chunk", "Failed to parse PCM chunk: %v", err)
		}
	case '"':
		var encoded string
		if err := json.Unmarshal(p.PCM, &encoded); err != nil {
			return Chunk{}, voiceerr.InvalidInput("stream.chunk", "Failed to parse PCM chunk: %v", err)
		}
		raw, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return Chunk{}, voiceerr.InvalidInput("stream.chunk", "PCM is not valid base64")
		}
		if c.PCM, err = DecodeFloat32(raw); err != nil {
			return Chunk{}, err
		}
	default:
		return Chunk{}, voiceerr.InvalidInput("stream.chunk", "pcm must be a float array or base64 bytes")
	}
	return c, nil
}

// DecodeFloat32 reads little-endian float32 samples
func DecodeFloat32(raw []byte) ([]float64, error) {
	if len(raw)%4 != 0 {
		return nil, voiceerr.InvalidInput("stream.chunk", "PCM byte length %d is not a multiple of 4", len(raw))
	}
	out := make([]float64, len(raw)/4)
	for i := range out {
		out[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:])))
	}
	return out, nil
}

// EncodeFloat32 writes samples as little-endian float32
func EncodeFloat32(samples []float64) []byte {
	out := make([]byte, 4*len(samples))
	for i, v := range samples {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(float32(v)))
	}
	return out
}

func validSamples(pcm []float64) bool {
	for _, v := range pcm {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
