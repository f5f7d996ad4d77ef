package reliability

import (
	"context"
	"sync"
	"time"
)

// WindowsSnapshot is a stored counter snapshot with its update time.
type WindowsSnapshot struct {
	Windows   Windows
	UpdatedAt time.Time
}

// ScoreSnapshot is a stored index result with its recompute time.
type ScoreSnapshot struct {
	Index        IndexResult
	RecomputedAt time.Time
}

// InMemoryStore is a thread-safe in-memory Store implementation, used in
// tests and local development. It counts upsert calls per user so tests
// can assert write behavior.
type InMemoryStore struct {
	mu sync.RWMutex

	windows map[string]WindowsSnapshot
	scores  map[string]ScoreSnapshot

	windowUpserts map[string]int
	scoreUpserts  map[string]int
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		windows:       make(map[string]WindowsSnapshot),
		scores:        make(map[string]ScoreSnapshot),
		windowUpserts: make(map[string]int),
		scoreUpserts:  make(map[string]int),
	}
}

// UpsertWindows stores the counter snapshot for the user.
func (s *InMemoryStore) UpsertWindows(_ context.Context, userID string, windows Windows, updatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.windows[userID] = WindowsSnapshot{Windows: windows, UpdatedAt: updatedAt}
	s.windowUpserts[userID]++
	return nil
}

// UpsertScore stores the index result for the user.
func (s *InMemoryStore) UpsertScore(_ context.Context, userID string, index IndexResult, recomputedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scores[userID] = ScoreSnapshot{Index: index, RecomputedAt: recomputedAt}
	s.scoreUpserts[userID]++
	return nil
}

// GetWindows returns the stored counter snapshot for the user, if any.
func (s *InMemoryStore) GetWindows(userID string) (WindowsSnapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snapshot, ok := s.windows[userID]
	return snapshot, ok
}

// GetScore returns the stored index result for the user, if any.
func (s *InMemoryStore) GetScore(userID string) (ScoreSnapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snapshot, ok := s.scores[userID]
	return snapshot, ok
}

// Load returns the stored snapshot for the user as a full Result.
// Returns ErrNotFound when the user has never been recomputed.
func (s *InMemoryStore) Load(_ context.Context, userID string) (*Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	score, ok := s.scores[userID]
	if !ok {
		return nil, ErrNotFound
	}
	windows := s.windows[userID]
	return &Result{
		UserID:       userID,
		Windows:      windows.Windows,
		Index:        score.Index,
		LastEventAt:  windows.Windows.Lifetime.LastEventAt,
		RecomputedAt: score.RecomputedAt,
	}, nil
}

// WindowUpserts returns how many times UpsertWindows was called for the user.
func (s *InMemoryStore) WindowUpserts(userID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.windowUpserts[userID]
}

// ScoreUpserts returns how many times UpsertScore was called for the user.
func (s *InMemoryStore) ScoreUpserts(userID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scoreUpserts[userID]
}

// InMemoryDataSource is a thread-safe in-memory DataSource implementation
// for tests and local development. The error fields, when set, are
// returned by the corresponding fetch to simulate store failures.
type InMemoryDataSource struct {
	mu sync.RWMutex

	attendance  map[string][]AttendanceRow
	reviews     map[string][]Review
	reputations map[string]float64
	activeIDs   []string

	AttendanceErr  error
	ReviewsErr     error
	ReputationsErr error
	ListErr        error
}

// NewInMemoryDataSource creates an empty in-memory data source.
func NewInMemoryDataSource() *InMemoryDataSource {
	return &InMemoryDataSource{
		attendance:  make(map[string][]AttendanceRow),
		reviews:     make(map[string][]Review),
		reputations: make(map[string]float64),
	}
}

// AddAttendance appends an attendance row for the user.
func (s *InMemoryDataSource) AddAttendance(userID string, row AttendanceRow) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attendance[userID] = append(s.attendance[userID], row)
}

// AddReview appends a review received by the user.
func (s *InMemoryDataSource) AddReview(userID string, review Review) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reviews[userID] = append(s.reviews[userID], review)
}

// SetReputation records a reviewer's reputation score.
func (s *InMemoryDataSource) SetReputation(reviewerID string, reputation float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reputations[reviewerID] = reputation
}

// SetActiveUserIDs replaces the list of active users.
func (s *InMemoryDataSource) SetActiveUserIDs(ids []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeIDs = append([]string(nil), ids...)
}

// AttendanceHistory returns the user's attendance rows.
func (s *InMemoryDataSource) AttendanceHistory(_ context.Context, userID string) ([]AttendanceRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.AttendanceErr != nil {
		return nil, s.AttendanceErr
	}
	return append([]AttendanceRow(nil), s.attendance[userID]...), nil
}

// ReviewsSince returns the user's reviews created at or after since.
func (s *InMemoryDataSource) ReviewsSince(_ context.Context, userID string, since time.Time) ([]Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.ReviewsErr != nil {
		return nil, s.ReviewsErr
	}
	var out []Review
	for _, r := range s.reviews[userID] {
		if !r.CreatedAt.Before(since) {
			out = append(out, r)
		}
	}
	return out, nil
}

// ReviewerReputations returns reputation scores for the known reviewers.
func (s *InMemoryDataSource) ReviewerReputations(_ context.Context, reviewerIDs []string) (map[string]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.ReputationsErr != nil {
		return nil, s.ReputationsErr
	}
	out := make(map[string]float64, len(reviewerIDs))
	for _, id := range reviewerIDs {
		if reputation, ok := s.reputations[id]; ok {
			out[id] = reputation
		}
	}
	return out, nil
}

// ListActiveUserIDs returns one page of the active user list.
func (s *InMemoryDataSource) ListActiveUserIDs(_ context.Context, limit, offset int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.ListErr != nil {
		return nil, s.ListErr
	}
	if offset >= len(s.activeIDs) {
		return nil, nil
	}
	end := offset + limit
	if end > len(s.activeIDs) {
		end = len(s.activeIDs)
	}
	return append([]string(nil), s.activeIDs[offset:end]...), nil
}
