// Package server exposes batch analysis, audio cleaning and live scoring
// over HTTP and websockets.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/RyanBlaney/sonido-voice/analysis"
	"github.com/RyanBlaney/sonido-voice/asr"
	"github.com/RyanBlaney/sonido-voice/goals"
	"github.com/RyanBlaney/sonido-voice/logging"
	"github.com/RyanBlaney/sonido-voice/store"
	"github.com/RyanBlaney/sonido-voice/stream"
	"github.com/RyanBlaney/sonido-voice/transcode"
	"github.com/RyanBlaney/sonido-voice/voiceerr"
)

// DefaultMaxUploadBytes caps multipart uploads
const DefaultMaxUploadBytes = 32 << 20

// ResultStore persists batch results
type ResultStore interface {
	Put(ctx context.Context, r *analysis.Result) error
	Get(ctx context.Context, id string) (*analysis.Result, error)
}

// Options configures the handlers
type Options struct {
	MaxUploadBytes int64
	// Defaults fill in form fields a request leaves out
	Defaults analysis.Options
	// ASR is reported by the status endpoint; nil means no transcriber
	ASR *asr.Client
}

// Server holds the handler dependencies
type Server struct {
	analyzer *analysis.Analyzer
	results  ResultStore
	registry *stream.Registry
	opts     Options
	logger   logging.Logger
}

// New creates the handler set. results may be nil to disable persistence.
func New(analyzer *analysis.Analyzer, results ResultStore, registry *stream.Registry, opts Options) *Server {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if opts.Defaults.Goal == "" {
		opts.Defaults = analysis.DefaultOptions()
	}
	return &Server{
		analyzer: analyzer,
		results:  results,
		registry: registry,
		opts:     opts,
		logger:   logging.WithFields(logging.Fields{"component": "server"}),
	}
}

// Router returns the route table
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/api/analyze", s.handleAnalyze).Methods(http.MethodPost)
	r.HandleFunc("/api/analyze/status", s.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/api/analyses/{id}", s.handleGetAnalysis).Methods(http.MethodGet)
	r.HandleFunc("/api/clean", s.handleClean).Methods(http.MethodPost)
	r.HandleFunc("/api/presets", s.handlePresets).Methods(http.MethodGet)
	r.HandleFunc("/ws", s.handleStream)
	return r
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	logger := s.logger.WithFields(logging.Fields{"function": "handleAnalyze"})

	upload, err := s.readUpload(w, r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	opts, err := s.analysisOptions(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	tmp, err := os.CreateTemp("", "sonido-upload-*"+filepath.Ext(upload.name))
	if err != nil {
		s.writeError(w, err)
		return
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(upload.data); err != nil {
		tmp.Close()
		s.writeError(w, err)
		return
	}
	if err := tmp.Close(); err != nil {
		s.writeError(w, err)
		return
	}

	ctx := logging.ContextWithFields(r.Context(), logging.Fields{"upload": upload.name})
	result, err := s.analyzer.AnalyzeFile(ctx, tmp.Name(), opts)
	if err != nil {
		s.writeError(w, err)
		return
	}
	result.Source = upload.name

	if s.results != nil {
		if err := s.results.Put(ctx, result); err != nil {
			logger.Error(err, "Failed to store analysis", logging.Fields{"id": result.ID})
		}
	}

	logger.Info("Upload analyzed", logging.Fields{
		"id":       result.ID,
		"filename": upload.name,
		"bytes":    len(upload.data),
	})
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) analysisOptions(r *http.Request) (analysis.Options, error) {
	opts := s.opts.Defaults
	if g := strings.TrimSpace(r.FormValue("goal")); g != "" {
		opts.Goal = g
	}
	for field, dst := range map[string]*bool{
		"transcribe": &opts.Transcribe,
		"voice_lab":  &opts.VoiceLab,
	} {
		v := r.FormValue(field)
		if v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return opts, voiceerr.InvalidInput("server.analyze", "%s must be true or false", field)
		}
		*dst = b
	}
	return opts, nil
}

type upload struct {
	name string
	data []byte
}

// readUpload reads the "audio" multipart file
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (*upload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.opts.MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, voiceerr.InvalidInput("server.upload", "File exceeds the %d MiB limit", s.opts.MaxUploadBytes>>20)
		}
		return nil, voiceerr.InvalidInput("server.upload", "Failed to parse form")
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		return nil, voiceerr.InvalidInput("server.upload", "No audio file provided")
	}
	defer file.Close()

	if header.Filename == "" {
		return nil, voiceerr.InvalidInput("server.upload", "Empty filename")
	}
	if !transcode.AllowedExtension(header.Filename) {
		return nil, voiceerr.InvalidInput("server.upload", "Unsupported file type. Allowed: %s",
			strings.Join(transcode.SupportedExtensions(), ", "))
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, voiceerr.InvalidInput("server.upload", "Failed to read audio file")
	}
	return &upload{name: filepath.Base(header.Filename), data: data}, nil
}

func (s *Server) handleClean(w http.ResponseWriter, r *http.Request) {
	upload, err := s.readUpload(w, r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	sig, err := s.analyzer.Loader().LoadBytes(r.Context(), upload.data, upload.name)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := transcode.Validate(sig, transcode.MinUtilitySeconds); err != nil {
		s.writeError(w, err)
		return
	}

	cleaned := transcode.Clean(sig)
	wav, err := transcode.EncodeWAV(cleaned.Samples, cleaned.SampleRate)
	if err != nil {
		s.writeError(w, err)
		return
	}

	name := strings.TrimSuffix(upload.name, filepath.Ext(upload.name)) + "_clean.wav"
	w.Header().Set("Content-Type", "audio/wav")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(wav)))
	w.WriteHeader(http.StatusOK)
	w.Write(wav)
}

// StatusResponse reports dependency availability
type StatusResponse struct {
	Status               string `json:"status"`
	DecoderAvailable     bool   `json:"decoder_available"`
	DecoderError         string `json:"decoder_error,omitempty"`
	TranscriberAvailable bool   `json:"transcriber_available"`
	ActiveStreams        int    `json:"active_streams"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{Status: "ready", ActiveStreams: s.registry.Len()}

	if err := s.analyzer.Loader().Decoder().Available(); err != nil {
		resp.DecoderError = voiceerr.UserMessage(err)
	} else {
		resp.DecoderAvailable = true
	}

	if s.opts.ASR != nil && s.opts.ASR.Enabled() {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		resp.TranscriberAvailable = s.opts.ASR.Ping(ctx) == nil
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if s.results == nil {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "Analysis not found"})
		return
	}

	result, err := s.results.Get(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "Analysis not found"})
		return
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type presetsResponse struct {
	Default string         `json:"default"`
	Presets []goals.Preset `json:"presets"`
}

func (s *Server) handlePresets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, presetsResponse{
		Default: s.opts.Defaults.Goal,
		Presets: s.analyzer.Catalog().Presets(),
	})
}

type errorBody struct {
	Error string `json:"error"`
}

// writeError answers with the taxonomy status and user message. Anything
// outside the taxonomy is logged and reported as an internal error.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := voiceerr.HTTPStatus(err)
	fields := logging.Fields{"status": status, "kind": voiceerr.KindOf(err).String()}
	if status >= http.StatusInternalServerError {
		s.logger.Error(err, "Request failed", fields)
	} else {
		fields["error"] = err.Error()
		s.logger.Debug("Request rejected", fields)
	}
	writeJSON(w, status, errorBody{Error: voiceerr.UserMessage(err)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
