package server

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"

	"github.com/RyanBlaney/sonido-voice/logging"
	"github.com/RyanBlaney/sonido-voice/stream"
	"github.com/RyanBlaney/sonido-voice/voiceerr"
)

// Message types on the streaming socket
const (
	TypeAudioChunk     = "audio_chunk"
	TypeAnalysisUpdate = "analysis_update"
	TypeAnalysisError  = "analysis_error"
	TypeConnected      = "connected"
	TypePing           = "ping"
	TypePong           = "pong"
	TypeError          = "error"
)

// maxMessageBytes bounds a single websocket frame
const maxMessageBytes = 4 << 20

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Message is the envelope for every websocket frame in both directions
type Message struct {
	Type  string          `json:"type"`
	Data  json.RawMessage `json:"data,omitempty"`
	Error string          `json:"error,omitempty"`
}

type connectedData struct {
	SessionID  string `json:"session_id"`
	SampleRate int    `json:"sample_rate"`
}

// handleStream runs one streaming session. Text frames carry Message
// envelopes; binary frames are raw float32 little-endian PCM at the rate
// given by the sr query parameter.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	binaryRate := 0
	if v := r.URL.Query().Get("sr"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.writeError(w, voiceerr.InvalidInput("server.stream", "sr must be a positive integer"))
			return
		}
		binaryRate = n
	}

	session, err := s.registry.Connect("", clientIP(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	defer s.registry.Disconnect(session.ID())

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("Websocket upgrade failed", logging.Fields{"error": err.Error()})
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxMessageBytes)

	logger := s.logger.WithFields(logging.Fields{
		"function": "handleStream",
		"session":  session.ID(),
	})
	logger.Info("Stream connected", logging.Fields{"remote_ip": session.RemoteIP()})

	send := func(m Message) bool {
		if err := conn.WriteJSON(m); err != nil {
			logger.Debug("Write failed", logging.Fields{"error": err.Error()})
			return false
		}
		return true
	}

	if !send(Message{Type: TypeConnected, Data: mustMarshal(connectedData{
		SessionID:  session.ID(),
		SampleRate: s.registry.Config().SampleRate,
	})}) {
		return
	}

	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Debug("Stream closed unexpectedly", logging.Fields{"error": err.Error()})
			}
			break
		}

		var update *stream.Update
		switch kind {
		case websocket.BinaryMessage:
			update, err = session.HandleBinary(data, binaryRate)

		case websocket.TextMessage:
			var msg Message
			if err := json.Unmarshal(data, &msg); err != nil {
				if !send(Message{Type: TypeError, Error: "Invalid message"}) {
					return
				}
				continue
			}
			switch msg.Type {
			case TypeAudioChunk:
				update, err = session.HandleAudio(msg.Data)
			case TypePing:
				if !send(Message{Type: TypePong}) {
					return
				}
				continue
			default:
				if !send(Message{Type: TypeError, Error: "Unknown message type"}) {
					return
				}
				continue
			}

		default:
			continue
		}

		if err != nil {
			if !send(Message{Type: TypeAnalysisError, Error: voiceerr.UserMessage(err)}) {
				return
			}
			continue
		}
		if update == nil {
			continue
		}
		payload, err := json.Marshal(update)
		if err != nil {
			logger.Error(err, "Failed to encode update")
			if !send(Message{Type: TypeAnalysisError, Error: "internal error"}) {
				return
			}
			continue
		}
		if !send(Message{Type: TypeAnalysisUpdate, Data: payload}) {
			return
		}
	}

	logger.Info("Stream disconnected")
}

// clientIP is the peer address without its port
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func mustMarshal(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}
