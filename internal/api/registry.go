package api

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/cohortscope/server/internal/generate"
	"github.com/cohortscope/server/internal/metrics"
	"github.com/cohortscope/server/internal/navigation"
)

// ErrSessionNotFound is returned for unknown or evicted sessions.
var ErrSessionNotFound = errors.New("session not found")

// Session is one dashboard client: a coordinator plus the seed its views
// are currently drawn with.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu    sync.Mutex
	coord *navigation.Coordinator
	seed  uint64
}

// Snapshot is a consistent read of a session.
type Snapshot struct {
	SessionID string                    `json:"session_id"`
	State     navigation.SelectionState `json:"state"`
	Tabs      []navigation.Tab          `json:"tabs"`
	Hovered   string                    `json:"hovered_patient,omitempty"`
	Seed      uint64                    `json:"seed"`
}

// Do runs fn against the coordinator with the session locked and returns
// fn's result with a snapshot taken under the same lock.
func (s *Session) Do(fn func(c *navigation.Coordinator) bool) (bool, Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	accepted := fn(s.coord)
	return accepted, s.snapshot()
}

// Snapshot returns the current state of the session.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

func (s *Session) snapshot() Snapshot {
	return Snapshot{
		SessionID: s.ID,
		State:     s.coord.State(),
		Tabs:      s.coord.Tabs(),
		Hovered:   s.coord.Hovered(),
		Seed:      s.seed,
	}
}

// SessionRegistry holds the live sessions, least recently used first out.
type SessionRegistry struct {
	sessions *lru.Cache[string, *Session]
	seeder   *generate.Seeder
	metrics  *metrics.Metrics
}

// NewSessionRegistry creates a registry holding at most capacity sessions.
func NewSessionRegistry(capacity int, seeder *generate.Seeder, m *metrics.Metrics) (*SessionRegistry, error) {
	if capacity <= 0 {
		capacity = 1024
	}
	if seeder == nil {
		seeder = generate.NewSeeder(0)
	}
	sessions, err := lru.New[string, *Session](capacity)
	if err != nil {
		return nil, fmt.Errorf("failed to create session cache: %w", err)
	}
	return &SessionRegistry{sessions: sessions, seeder: seeder, metrics: m}, nil
}

// Create starts a session in the default state.
func (r *SessionRegistry) Create() *Session {
	s := &Session{
		ID:        uuid.NewString(),
		CreatedAt: time.Now(),
		coord:     navigation.NewCoordinator(),
		seed:      r.seeder.Next(),
	}
	// Observers run inside Do, with s.mu already held.
	s.coord.Subscribe(func(ev navigation.Event) {
		if ev.Action.Redraws() {
			s.seed = r.seeder.Next()
		}
	})

	r.sessions.Add(s.ID, s)
	r.metrics.SetActiveSessions(r.sessions.Len())
	return s
}

// Get returns the session with id.
func (r *SessionRegistry) Get(id string) (*Session, error) {
	s, ok := r.sessions.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return s, nil
}

// Delete ends a session.
func (r *SessionRegistry) Delete(id string) error {
	if !r.sessions.Remove(id) {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	r.metrics.SetActiveSessions(r.sessions.Len())
	return nil
}

// Len returns the number of live sessions.
func (r *SessionRegistry) Len() int {
	return r.sessions.Len()
}
