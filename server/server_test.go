package server

import (
	"bytes"
	"encoding/json"
	"math"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/RyanBlaney/sonido-voice/analysis"
	"github.com/RyanBlaney/sonido-voice/goals"
	"github.com/RyanBlaney/sonido-voice/store"
	"github.com/RyanBlaney/sonido-voice/stream"
	"github.com/RyanBlaney/sonido-voice/transcode"
)

const testRate = 16000

func vowel(seconds float64) []float64 {
	out := make([]float64, int(seconds*testRate))
	peak := 0.0
	for i := range out {
		tt := float64(i) / testRate
		for k := 1; k <= 25; k++ {
			out[i] += math.Sin(2*math.Pi*150*float64(k)*tt) / float64(k)
		}
		peak = math.Max(peak, math.Abs(out[i]))
	}
	for i := range out {
		out[i] *= 0.8 / peak
	}
	return out
}

func wavBytes(t *testing.T, seconds float64) []byte {
	t.Helper()
	data, err := transcode.EncodeWAV(vowel(seconds), testRate)
	if err != nil {
		t.Fatalf("EncodeWAV() error = %v", err)
	}
	return data
}

type fixture struct {
	srv      *Server
	router   http.Handler
	registry *stream.Registry
	results  *store.Store
}

func newFixture(t *testing.T, cfg stream.Config) *fixture {
	t.Helper()
	results, err := store.Open(store.Options{InMemory: true})
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	t.Cleanup(func() { results.Close() })

	loader := transcode.NewLoader(&transcode.DecoderConfig{
		TargetSampleRate: transcode.AnalysisRate,
		TargetChannels:   1,
		FFmpegPath:       "/nonexistent/ffmpeg",
		FFprobePath:      "/nonexistent/ffprobe",
		Timeout:          time.Second,
	})
	registry := stream.NewRegistry(cfg)
	srv := New(analysis.NewAnalyzer(loader, nil), results, registry, Options{})
	return &fixture{srv: srv, router: srv.Router(), registry: registry, results: results}
}

func multipartBody(t *testing.T, filename string, data []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		mw.WriteField(k, v)
	}
	if filename != "" || data != nil {
		fw, err := mw.CreateFormFile("audio", filename)
		if err != nil {
			t.Fatal(err)
		}
		fw.Write(data)
	}
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func (fx *fixture) post(t *testing.T, path, filename string, data []byte, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	body, ct := multipartBody(t, filename, data, fields)
	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	fx.router.ServeHTTP(rec, req)
	return rec
}

func (fx *fixture) get(path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	fx.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func errorText(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body errorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("error body %q: %v", rec.Body.String(), err)
	}
	return body.Error
}

func TestAnalyzeUpload(t *testing.T) {
	fx := newFixture(t, stream.DefaultConfig())

	rec := fx.post(t, "/api/analyze", "take.wav", wavBytes(t, 1.5), map[string]string{
		"goal":      "clean_smooth",
		"voice_lab": "true",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /api/analyze = %d: %s", rec.Code, rec.Body.String())
	}

	var result analysis.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if result.ID == "" || result.Source != "take.wav" {
		t.Errorf("ID = %q, Source = %q", result.ID, result.Source)
	}
	if result.Goals == nil || result.Goals.GoalName != "clean_smooth" {
		t.Errorf("Goals = %+v", result.Goals)
	}
	if result.VoiceLab == nil {
		t.Error("voice_lab=true produced no voice lab")
	}
	if len(result.Timeline.Times) == 0 || len(result.Timeline.Times) != len(result.Timeline.Labels) {
		t.Errorf("timeline has %d times and %d labels", len(result.Timeline.Times), len(result.Timeline.Labels))
	}

	stored := fx.get("/api/analyses/" + result.ID)
	if stored.Code != http.StatusOK {
		t.Fatalf("GET stored analysis = %d", stored.Code)
	}
	var again analysis.Result
	json.Unmarshal(stored.Body.Bytes(), &again)
	if again.ID != result.ID || again.Summary.Label != result.Summary.Label {
		t.Errorf("stored result = %+v", again.Summary)
	}

	if rec := fx.get("/api/analyses/unknown"); rec.Code != http.StatusNotFound {
		t.Errorf("GET unknown analysis = %d, want 404", rec.Code)
	}
}

func TestAnalyzeRejections(t *testing.T) {
	fx := newFixture(t, stream.DefaultConfig())
	audio := wavBytes(t, 1.5)

	tests := []struct {
		name       string
		filename   string
		data       []byte
		fields     map[string]string
		wantStatus int
		wantError  string
	}{
		{"no file", "", nil, nil, http.StatusBadRequest, "No audio file provided"},
		{"bad extension", "notes.txt", audio, nil, http.StatusBadRequest, "Unsupported file type"},
		{"unknown goal", "take.wav", audio, map[string]string{"goal": "opera"}, http.StatusBadRequest, "unknown goal preset"},
		{"bad flag", "take.wav", audio, map[string]string{"transcribe": "maybe"}, http.StatusBadRequest, "transcribe must be"},
		{"too short", "short.wav", wavBytes(t, 0.5), nil, http.StatusUnprocessableEntity, "at least"},
		{"needs decoder", "take.mp3", []byte("ID3 not really mp3"), nil, http.StatusServiceUnavailable, "not installed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := fx.post(t, "/api/analyze", tt.filename, tt.data, tt.fields)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if msg := errorText(t, rec); !strings.Contains(msg, tt.wantError) {
				t.Errorf("error = %q, want it to contain %q", msg, tt.wantError)
			}
		})
	}

	if n, _ := fx.results.Count(); n != 0 {
		t.Errorf("%d results stored for rejected uploads", n)
	}
}

func TestUploadLimit(t *testing.T) {
	fx := newFixture(t, stream.DefaultConfig())
	fx.srv.opts.MaxUploadBytes = 1 << 10

	rec := fx.post(t, "/api/analyze", "take.wav", wavBytes(t, 1.5), nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestClean(t *testing.T) {
	fx := newFixture(t, stream.DefaultConfig())

	rec := fx.post(t, "/api/clean", "take.wav", wavBytes(t, 1), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /api/clean = %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "audio/wav" {
		t.Errorf("Content-Type = %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "take_clean.wav") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	if !transcode.IsWAV(bytes.NewReader(rec.Body.Bytes())) {
		t.Error("response is not a WAV stream")
	}

	if rec := fx.post(t, "/api/clean", "blip.wav", wavBytes(t, 0.2), nil); rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("short clean = %d, want 422", rec.Code)
	}
}

func TestPresetsAndStatus(t *testing.T) {
	fx := newFixture(t, stream.DefaultConfig())

	rec := fx.get("/api/presets")
	var presets presetsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &presets); err != nil {
		t.Fatal(err)
	}
	if presets.Default != goals.DefaultPreset || len(presets.Presets) != len(goals.Builtin().Names()) {
		t.Errorf("presets = %s, %d entries", presets.Default, len(presets.Presets))
	}

	rec = fx.get("/api/analyze/status")
	var status StatusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatal(err)
	}
	if status.Status != "ready" || status.DecoderAvailable || status.DecoderError == "" || status.TranscriberAvailable {
		t.Errorf("status = %+v", status)
	}
}

func dial(t *testing.T, ts *httptest.Server, query string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws" + query
	return websocket.DefaultDialer.Dial(url, nil)
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	var m Message
	if err := conn.ReadJSON(&m); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	return m
}

func TestStreamProtocol(t *testing.T) {
	fx := newFixture(t, stream.DefaultConfig())
	ts := httptest.NewServer(fx.router)
	defer ts.Close()

	conn, _, err := dial(t, ts, "?sr=16000")
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	hello := readMessage(t, conn)
	var cd connectedData
	json.Unmarshal(hello.Data, &cd)
	if hello.Type != TypeConnected || cd.SessionID == "" || cd.SampleRate != testRate {
		t.Fatalf("first message = %+v", hello)
	}

	conn.WriteJSON(Message{Type: TypePing})
	if m := readMessage(t, conn); m.Type != TypePong {
		t.Errorf("ping answered with %q", m.Type)
	}

	conn.WriteJSON(Message{Type: "shout"})
	if m := readMessage(t, conn); m.Type != TypeError || m.Error != "Unknown message type" {
		t.Errorf("unknown type answered with %+v", m)
	}

	conn.WriteJSON(Message{Type: TypeAudioChunk, Data: json.RawMessage(`{"sr":16000}`)})
	if m := readMessage(t, conn); m.Type != TypeAnalysisError || m.Error != "No PCM data in chunk." {
		t.Errorf("empty chunk answered with %+v", m)
	}

	pcm := vowel(0.4)
	data, _ := json.Marshal(map[string]any{"pcm": pcm[:3200], "sr": testRate})
	conn.WriteJSON(Message{Type: TypeAudioChunk, Data: data})
	m := readMessage(t, conn)
	if m.Type != TypeAnalysisUpdate {
		t.Fatalf("JSON chunk answered with %+v", m)
	}
	var u stream.Update
	if err := json.Unmarshal(m.Data, &u); err != nil {
		t.Fatal(err)
	}
	if u.RBIScore < 0 || u.RBIScore > 100 || u.ResonanceLabel == "" || u.WindowSec <= 0 {
		t.Errorf("update = %+v", u)
	}

	conn.WriteMessage(websocket.BinaryMessage, stream.EncodeFloat32(pcm[3200:]))
	if m := readMessage(t, conn); m.Type != TypeAnalysisUpdate {
		t.Errorf("binary chunk answered with %+v", m)
	}

	conn.WriteMessage(websocket.BinaryMessage, []byte{1, 2, 3})
	if m := readMessage(t, conn); m.Type != TypeAnalysisError {
		t.Errorf("odd binary frame answered with %+v", m)
	}

	if fx.registry.Len() != 1 {
		t.Errorf("registry has %d sessions, want 1", fx.registry.Len())
	}
	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	deadline := time.Now().Add(5 * time.Second)
	for fx.registry.Len() != 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if fx.registry.Len() != 0 {
		t.Error("session not released after close")
	}
}

func TestStreamConnectionCap(t *testing.T) {
	cfg := stream.DefaultConfig()
	cfg.MaxConnectionsPerIP = 1
	fx := newFixture(t, cfg)
	ts := httptest.NewServer(fx.router)
	defer ts.Close()

	first, _, err := dial(t, ts, "")
	if err != nil {
		t.Fatalf("first Dial() error = %v", err)
	}
	defer first.Close()
	readMessage(t, first)

	_, resp, err := dial(t, ts, "")
	if err == nil {
		t.Fatal("second connection from the same address was accepted")
	}
	if resp == nil || resp.StatusCode != http.StatusTooManyRequests {
		t.Errorf("second Dial() response = %v, want 429", resp)
	}

	if _, resp, err := dial(t, ts, "?sr=abc"); err == nil || resp == nil || resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad sr = %v, %v", resp, err)
	}
}
