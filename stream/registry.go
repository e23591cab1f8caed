package stream

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/RyanBlaney/sonido-voice/logging"
	"github.com/RyanBlaney/sonido-voice/voiceerr"
)

// Registry owns the live sessions keyed by connection id. A session is
// built on Connect and torn down on Disconnect; a later Connect with the
// same id starts from fresh state.
type Registry struct {
	mu       sync.RWMutex
	cfg      Config
	now      func() time.Time
	sessions map[string]*Session
	perIP    map[string]int
}

// NewRegistry creates an empty registry
func NewRegistry(cfg Config) *Registry {
	return &Registry{
		cfg:      cfg,
		now:      time.Now,
		sessions: make(map[string]*Session),
		perIP:    make(map[string]int),
	}
}

// WithClock replaces the clock used by session rate limiters
func (r *Registry) WithClock(now func() time.Time) *Registry {
	r.now = now
	return r
}

// Config returns the streaming limits
func (r *Registry) Config() Config {
	return r.cfg
}

// Connect opens a session. An empty id gets a generated one. A live id or
// an address already at its connection cap is refused.
func (r *Registry) Connect(id, remoteIP string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id == "" {
		id = uuid.NewString()
	}
	if _, ok := r.sessions[id]; ok {
		return nil, voiceerr.InvalidInput("stream.connect", "session %s is already connected", id)
	}
	if r.cfg.MaxConnectionsPerIP > 0 && r.perIP[remoteIP] >= r.cfg.MaxConnectionsPerIP {
		return nil, voiceerr.RateLimited("stream.connect", "Too many connections from this address.")
	}

	s := newSession(id, remoteIP, r.cfg, r.now)
	r.sessions[id] = s
	r.perIP[remoteIP]++

	logging.Debug("Stream session opened", logging.Fields{
		"component": "stream_registry",
		"session":   id,
		"remote_ip": remoteIP,
		"active":    len(r.sessions),
	})
	return s, nil
}

// Get returns a live session
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Disconnect closes and forgets a session. Unknown ids are ignored.
func (r *Registry) Disconnect(id string) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
		if r.perIP[s.remoteIP]--; r.perIP[s.remoteIP] <= 0 {
			delete(r.perIP, s.remoteIP)
		}
	}
	r.mu.Unlock()

	if ok {
		s.close()
	}
}

// Len returns the number of live sessions
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// CloseAll disconnects every session
func (r *Registry) CloseAll() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*Session)
	r.perIP = make(map[string]int)
	r.mu.Unlock()

	for _, s := range sessions {
		s.close()
	}
}
