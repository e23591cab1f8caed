// Package asr talks to an external transcription service that returns word
// timings for a recording.
package asr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/RyanBlaney/sonido-voice/logging"
	"github.com/RyanBlaney/sonido-voice/voiceerr"
)

// DefaultTimeout bounds one transcription request
const DefaultTimeout = 60 * time.Second

// Word is one recognized word with its time span in seconds
type Word struct {
	Text   string  `json:"text"`
	StartS float64 `json:"start_s"`
	EndS   float64 `json:"end_s"`
}

// Transcript is the service response
type Transcript struct {
	FullText string `json:"full_text"`
	Words    []Word `json:"words"`
	Language string `json:"language,omitempty"`
}

// Client posts recordings to {baseURL}/transcribe as multipart form data
type Client struct {
	baseURL  string
	language string
	c        *http.Client
}

// NewClient creates a client; a zero timeout uses DefaultTimeout
func NewClient(baseURL, language string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		language: language,
		c:        &http.Client{Timeout: timeout},
	}
}

// Enabled reports whether a service URL is configured
func (cl *Client) Enabled() bool {
	return cl != nil && cl.baseURL != ""
}

// Transcribe uploads the file at path and returns its word timings
func (cl *Client) Transcribe(ctx context.Context, path string) (*Transcript, error) {
	logger := logging.WithFields(logging.Fields{
		"component": "asr",
		"function":  "Transcribe",
		"file":      filepath.Base(path),
	})

	if !cl.Enabled() {
		return nil, voiceerr.DependencyUnavailable("asr.transcribe", nil, "no transcription service configured")
	}

	var b bytes.Buffer
	w := multipart.NewWriter(&b)

	fw, err := w.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, err
	}
	fd, err := os.Open(path)
	if err != nil {
		return nil, voiceerr.InvalidInput("asr.transcribe", "cannot open %s", filepath.Base(path))
	}
	defer fd.Close()

	if _, err = io.Copy(fw, fd); err != nil {
		return nil, err
	}
	if cl.language != "" {
		if err = w.WriteField("language", cl.language); err != nil {
			return nil, err
		}
	}
	if err = w.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cl.baseURL+"/transcribe", &b)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	start := time.Now()
	resp, err := cl.c.Do(req)
	if err != nil {
		return nil, voiceerr.DependencyUnavailable("asr.transcribe", err, "transcription service unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, voiceerr.DependencyUnavailable("asr.transcribe",
			fmt.Errorf("asr %s: %s", resp.Status, strings.TrimSpace(string(body))),
			"transcription service failed")
	}

	var out Transcript
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("asr decode: %w", err)
	}

	logger.Debug("Transcription received", logging.Fields{
		"words":   len(out.Words),
		"elapsed": time.Since(start).Seconds(),
	})
	return &out, nil
}

// Ping checks that the service answers at {baseURL}/health
func (cl *Client) Ping(ctx context.Context) error {
	if !cl.Enabled() {
		return voiceerr.DependencyUnavailable("asr.ping", nil, "no transcription service configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cl.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := cl.c.Do(req)
	if err != nil {
		return voiceerr.DependencyUnavailable("asr.ping", err, "transcription service unreachable")
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return voiceerr.DependencyUnavailable("asr.ping", fmt.Errorf("status %s", resp.Status),
			"transcription service unhealthy")
	}
	return nil
}
