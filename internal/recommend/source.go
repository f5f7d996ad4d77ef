package recommend

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dowhat-app/dowhat/internal/ranking"
)

// InMemoryDataSource is an in-memory implementation of DataSource for
// tests and local development. Thread-safe via RWMutex.
type InMemoryDataSource struct {
	mu          sync.RWMutex
	traits      map[string]TraitSignalMap
	preferences map[string]*FilterPreferences
	history     map[string][]AttendanceEvent
	sessions    []Session

	// Fetch errors injectable per source, for failure-path tests.
	TraitsErr      error
	PreferencesErr error
	HistoryErr     error
	SessionsErr    error
}

// NewInMemoryDataSource creates an empty in-memory data source.
func NewInMemoryDataSource() *InMemoryDataSource {
	return &InMemoryDataSource{
		traits:      make(map[string]TraitSignalMap),
		preferences: make(map[string]*FilterPreferences),
		history:     make(map[string][]AttendanceEvent),
	}
}

// SetTraitSignals stores a user's trait signal map.
func (s *InMemoryDataSource) SetTraitSignals(userID string, signals TraitSignalMap) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.traits[userID] = signals
}

// SetFilterPreferences stores a user's saved filters.
func (s *InMemoryDataSource) SetFilterPreferences(userID string, prefs *FilterPreferences) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.preferences[userID] = prefs
}

// AddAttendanceEvent appends one engagement history event for a user.
func (s *InMemoryDataSource) AddAttendanceEvent(userID string, event AttendanceEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history[userID] = append(s.history[userID], event)
}

// AddSession appends a candidate session.
func (s *InMemoryDataSource) AddSession(session Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = append(s.sessions, session)
}

// TraitSignals returns the user's trait signal map (empty when unset).
func (s *InMemoryDataSource) TraitSignals(_ context.Context, userID string) (TraitSignalMap, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.TraitsErr != nil {
		return nil, s.TraitsErr
	}
	signals := make(TraitSignalMap, len(s.traits[userID]))
	for k, v := range s.traits[userID] {
		signals[k] = v
	}
	return signals, nil
}

// FilterPreferences returns the user's saved filters, nil when unset.
func (s *InMemoryDataSource) FilterPreferences(_ context.Context, userID string) (*FilterPreferences, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.PreferencesErr != nil {
		return nil, s.PreferencesErr
	}
	prefs, ok := s.preferences[userID]
	if !ok {
		return nil, nil
	}
	copied := *prefs
	return &copied, nil
}

// EngagementHistory returns the user's events at or after since.
func (s *InMemoryDataSource) EngagementHistory(_ context.Context, userID string, since time.Time) ([]AttendanceEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.HistoryErr != nil {
		return nil, s.HistoryErr
	}
	var events []AttendanceEvent
	for _, e := range s.history[userID] {
		if !e.OccurredAt.Before(since) {
			events = append(events, e)
		}
	}
	return events, nil
}

// CandidateSessions returns sessions starting in [from, until), ordered
// by start time ascending, capped at limit. Sessions with unparseable
// start times are skipped, matching the production query which filters on
// the timestamp column.
func (s *InMemoryDataSource) CandidateSessions(_ context.Context, from, until time.Time, limit int) ([]Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.SessionsErr != nil {
		return nil, s.SessionsErr
	}

	type timed struct {
		session Session
		start   time.Time
	}
	var pool []timed
	for _, session := range s.sessions {
		start, ok := ranking.ParseStartTime(session.StartsAt)
		if !ok {
			continue
		}
		if start.Before(from) || !start.Before(until) {
			continue
		}
		pool = append(pool, timed{session: session, start: start})
	}

	sort.SliceStable(pool, func(i, j int) bool {
		return pool[i].start.Before(pool[j].start)
	})

	if limit > 0 && len(pool) > limit {
		pool = pool[:limit]
	}

	sessions := make([]Session, len(pool))
	for i, p := range pool {
		sessions[i] = p.session
	}
	return sessions, nil
}
