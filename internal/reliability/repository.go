package reliability

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// PostgresDataSource reads attendance, review, and reputation rows from
// Postgres.
type PostgresDataSource struct {
	db *sql.DB
}

// NewPostgresDataSource creates a data source backed by the given database.
func NewPostgresDataSource(db *sql.DB) *PostgresDataSource {
	return &PostgresDataSource{db: db}
}

// AttendanceHistory returns every attendance row for the user, joined with
// the parent session's schedule and host.
func (s *PostgresDataSource) AttendanceHistory(ctx context.Context, userID string) ([]AttendanceRow, error) {
	query := `
		SELECT sa.session_id, sa.status, sa.checked_in, sa.attended_at,
		       s.starts_at, s.ends_at, s.host_id
		FROM session_attendees sa
		JOIN sessions s ON s.id = sa.session_id
		WHERE sa.user_id = $1
		ORDER BY s.starts_at ASC`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query attendance: %w", err)
	}
	defer rows.Close()

	var out []AttendanceRow
	for rows.Next() {
		var row AttendanceRow
		var attendedAt sql.NullTime
		if err := rows.Scan(&row.SessionID, &row.Status, &row.CheckedIn,
			&attendedAt, &row.StartsAt, &row.EndsAt, &row.HostID); err != nil {
			return nil, fmt.Errorf("scan attendance row: %w", err)
		}
		if attendedAt.Valid {
			t := attendedAt.Time
			row.AttendedAt = &t
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attendance rows: %w", err)
	}
	return out, nil
}

// ReviewsSince returns reviews received by the user at or after since.
func (s *PostgresDataSource) ReviewsSince(ctx context.Context, userID string, since time.Time) ([]Review, error) {
	query := `
		SELECT reviewer_id, rating, created_at
		FROM session_reviews
		WHERE subject_user_id = $1 AND created_at >= $2
		ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, userID, since)
	if err != nil {
		return nil, fmt.Errorf("query reviews: %w", err)
	}
	defer rows.Close()

	var out []Review
	for rows.Next() {
		var review Review
		if err := rows.Scan(&review.ReviewerID, &review.Rating, &review.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan review row: %w", err)
		}
		out = append(out, review)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate review rows: %w", err)
	}
	return out, nil
}

// ReviewerReputations returns reputation scores keyed by reviewer ID.
// Reviewers without a stored reputation are simply absent from the map.
func (s *PostgresDataSource) ReviewerReputations(ctx context.Context, reviewerIDs []string) (map[string]float64, error) {
	out := make(map[string]float64, len(reviewerIDs))
	if len(reviewerIDs) == 0 {
		return out, nil
	}

	query := `
		SELECT user_id, reputation
		FROM reviewer_reputation
		WHERE user_id = ANY($1)`

	rows, err := s.db.QueryContext(ctx, query, pq.Array(reviewerIDs))
	if err != nil {
		return nil, fmt.Errorf("query reputations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var reputation float64
		if err := rows.Scan(&id, &reputation); err != nil {
			return nil, fmt.Errorf("scan reputation row: %w", err)
		}
		out[id] = reputation
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reputation rows: %w", err)
	}
	return out, nil
}

// ListActiveUserIDs pages through users eligible for recomputation in
// stable ID order.
func (s *PostgresDataSource) ListActiveUserIDs(ctx context.Context, limit, offset int) ([]string, error) {
	query := `
		SELECT id
		FROM users
		WHERE deleted_at IS NULL
		ORDER BY id
		LIMIT $1 OFFSET $2`

	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user row: %w", err)
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user rows: %w", err)
	}
	return out, nil
}

// PostgresStore persists counter snapshots and index results with
// user-keyed upserts. Counters are stored as JSON so the window schema can
// evolve without migrations.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a store backed by the given database.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// UpsertWindows stores the three counter snapshots for the user.
func (s *PostgresStore) UpsertWindows(ctx context.Context, userID string, windows Windows, updatedAt time.Time) error {
	w30, err := json.Marshal(windows.Window30)
	if err != nil {
		return fmt.Errorf("encode 30d window: %w", err)
	}
	w90, err := json.Marshal(windows.Window90)
	if err != nil {
		return fmt.Errorf("encode 90d window: %w", err)
	}
	lifetime, err := json.Marshal(windows.Lifetime)
	if err != nil {
		return fmt.Errorf("encode lifetime window: %w", err)
	}

	query := `
		INSERT INTO reliability_metrics (user_id, window_30d, window_90d, lifetime, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE SET
			window_30d = EXCLUDED.window_30d,
			window_90d = EXCLUDED.window_90d,
			lifetime = EXCLUDED.lifetime,
			updated_at = EXCLUDED.updated_at`

	if _, err := s.db.ExecContext(ctx, query, userID, w30, w90, lifetime, updatedAt); err != nil {
		return fmt.Errorf("upsert windows: %w", err)
	}
	return nil
}

// UpsertScore stores the computed index for the user.
func (s *PostgresStore) UpsertScore(ctx context.Context, userID string, index IndexResult, recomputedAt time.Time) error {
	components, err := json.Marshal(index.Components)
	if err != nil {
		return fmt.Errorf("encode components: %w", err)
	}

	query := `
		INSERT INTO reliability_scores (user_id, score, confidence, components, last_recomputed)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE SET
			score = EXCLUDED.score,
			confidence = EXCLUDED.confidence,
			components = EXCLUDED.components,
			last_recomputed = EXCLUDED.last_recomputed`

	if _, err := s.db.ExecContext(ctx, query, userID, index.Score, index.Confidence, components, recomputedAt); err != nil {
		return fmt.Errorf("upsert score: %w", err)
	}
	return nil
}

// Load returns the stored snapshot for the user, joining the counter
// windows with the computed index. Returns ErrNotFound when the user has
// never been recomputed.
func (s *PostgresStore) Load(ctx context.Context, userID string) (*Result, error) {
	query := `
		SELECT m.window_30d, m.window_90d, m.lifetime,
		       r.score, r.confidence, r.components, r.last_recomputed
		FROM reliability_scores r
		JOIN reliability_metrics m ON m.user_id = r.user_id
		WHERE r.user_id = $1`

	var w30, w90, lifetime, components []byte
	result := &Result{UserID: userID}
	err := s.db.QueryRowContext(ctx, query, userID).Scan(
		&w30, &w90, &lifetime,
		&result.Index.Score, &result.Index.Confidence, &components,
		&result.RecomputedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query reliability snapshot: %w", err)
	}

	if err := json.Unmarshal(w30, &result.Windows.Window30); err != nil {
		return nil, fmt.Errorf("decode 30d window: %w", err)
	}
	if err := json.Unmarshal(w90, &result.Windows.Window90); err != nil {
		return nil, fmt.Errorf("decode 90d window: %w", err)
	}
	if err := json.Unmarshal(lifetime, &result.Windows.Lifetime); err != nil {
		return nil, fmt.Errorf("decode lifetime window: %w", err)
	}
	if err := json.Unmarshal(components, &result.Index.Components); err != nil {
		return nil, fmt.Errorf("decode components: %w", err)
	}
	result.LastEventAt = result.Windows.Lifetime.LastEventAt
	return result, nil
}
