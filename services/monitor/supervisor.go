package monitor

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"ocdify-go/logcolors"
	"ocdify-go/services/playback"
	"ocdify-go/stats"
)

var (
	ErrAlreadyMonitoring = errors.New("user is already being monitored")
	ErrNotMonitoring     = errors.New("user is not being monitored")
)

// Supervisor owns the per-user sessions. The lock guards only the map;
// sessions run and stop on their own goroutines.
type Supervisor struct {
	store   Store
	scanner Scanner
	factory playback.ClientFactory
	cfg     Config

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewSupervisor creates an empty supervisor.
func NewSupervisor(store Store, scanner Scanner, factory playback.ClientFactory, cfg Config) *Supervisor {
	return &Supervisor{
		store:    store,
		scanner:  scanner,
		factory:  factory,
		cfg:      cfg,
		sessions: make(map[string]*Session),
	}
}

// Start begins monitoring a user. Starting twice is an error.
func (sv *Supervisor) Start(ctx context.Context, userID string) error {
	sv.mu.Lock()
	if _, exists := sv.sessions[userID]; exists {
		sv.mu.Unlock()
		return ErrAlreadyMonitoring
	}
	// Fully constructed before it is published, so a concurrent Stop for
	// the same user always finds a stoppable session.
	session := NewSession(ctx, userID, sv.store, sv.scanner, sv.factory, sv.cfg)
	sv.sessions[userID] = session
	sv.mu.Unlock()

	session.Start()
	stats.Get().RecordSessionStarted()
	return nil
}

// Stop ends a user's session and waits for its loop to exit.
func (sv *Supervisor) Stop(userID string) error {
	sv.mu.Lock()
	session, exists := sv.sessions[userID]
	if exists {
		delete(sv.sessions, userID)
	}
	sv.mu.Unlock()

	if !exists {
		return ErrNotMonitoring
	}
	session.Stop()
	stats.Get().RecordSessionStopped()
	return nil
}

// IsMonitoring reports whether a session exists for the user.
func (sv *Supervisor) IsMonitoring(userID string) bool {
	sv.mu.Lock()
	defer sv.mu.Unlock()
	_, exists := sv.sessions[userID]
	return exists
}

// SessionStatus returns one user's snapshot, or ErrNotMonitoring.
func (sv *Supervisor) SessionStatus(userID string) (Status, error) {
	sv.mu.Lock()
	session, exists := sv.sessions[userID]
	sv.mu.Unlock()

	if !exists {
		return Status{}, ErrNotMonitoring
	}
	return session.Status(), nil
}

// Statuses returns every session's snapshot, ordered by user ID.
func (sv *Supervisor) Statuses() []Status {
	sv.mu.Lock()
	sessions := make([]*Session, 0, len(sv.sessions))
	for _, s := range sv.sessions {
		sessions = append(sessions, s)
	}
	sv.mu.Unlock()

	statuses := make([]Status, 0, len(sessions))
	for _, s := range sessions {
		statuses = append(statuses, s.Status())
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].UserID < statuses[j].UserID })
	return statuses
}

// Count returns the number of active sessions.
func (sv *Supervisor) Count() int {
	sv.mu.Lock()
	defer sv.mu.Unlock()
	return len(sv.sessions)
}

// StopAll ends every session. Used at shutdown.
func (sv *Supervisor) StopAll() {
	sv.mu.Lock()
	sessions := make(map[string]*Session, len(sv.sessions))
	for id, s := range sv.sessions {
		sessions[id] = s
	}
	sv.sessions = make(map[string]*Session)
	sv.mu.Unlock()

	for id, session := range sessions {
		session.Stop()
		stats.Get().RecordSessionStopped()
		log.Infof("%s Stopped session for user %s during shutdown", logcolors.LogSession, id)
	}
}

// CleanupInactive stops sessions with no active playback for longer than
// maxIdle. Returns the number of sessions stopped.
func (sv *Supervisor) CleanupInactive(maxIdle time.Duration) int {
	sv.mu.Lock()
	var stale []string
	for id, session := range sv.sessions {
		if session.idleFor() > maxIdle {
			stale = append(stale, id)
		}
	}
	sv.mu.Unlock()

	for _, id := range stale {
		if err := sv.Stop(id); err == nil {
			log.Infof("%s Reaped inactive session for user %s", logcolors.LogCron, id)
		}
	}
	return len(stale)
}
