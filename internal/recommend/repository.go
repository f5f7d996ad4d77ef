package recommend

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/dowhat-app/dowhat/internal/geo"
)

// PostgresDataSource implements DataSource against the doWhat Postgres
// schema. All queries are read-only; errors are wrapped with the table
// name of the failing fetch.
type PostgresDataSource struct {
	db *sql.DB
}

// NewPostgresDataSource creates a Postgres-backed data source.
func NewPostgresDataSource(db *sql.DB) *PostgresDataSource {
	return &PostgresDataSource{db: db}
}

const traitSignalsQuery = `
	SELECT name, label, score
	FROM user_trait_scores
	WHERE user_id = $1`

const filterPreferencesQuery = `
	SELECT categories, time_of_day, max_price, radius_km
	FROM activity_filter_preferences
	WHERE user_id = $1`

// TraitSignals loads the user's accumulated trait scores and derives the
// normalized signal map.
func (s *PostgresDataSource) TraitSignals(ctx context.Context, userID string) (TraitSignalMap, error) {
	rows, err := s.db.QueryContext(ctx, traitSignalsQuery, userID)
	if err != nil {
		return nil, fmt.Errorf("user_trait_scores: %w", err)
	}
	defer rows.Close()

	var raw []RawTraitScore
	for rows.Next() {
		var r RawTraitScore
		if err := rows.Scan(&r.Name, &r.Label, &r.Score); err != nil {
			return nil, fmt.Errorf("user_trait_scores: %w", err)
		}
		raw = append(raw, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("user_trait_scores: %w", err)
	}

	return NewTraitSignalMap(raw), nil
}

// FilterPreferences loads the user's saved discovery filters. Returns nil
// without error when the user has never saved any.
func (s *PostgresDataSource) FilterPreferences(ctx context.Context, userID string) (*FilterPreferences, error) {
	var prefs FilterPreferences
	err := s.db.QueryRowContext(ctx, filterPreferencesQuery, userID).Scan(
		pq.Array(&prefs.Categories),
		pq.Array(&prefs.TimeOfDay),
		&prefs.MaxPrice,
		&prefs.RadiusKm,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("activity_filter_preferences: %w", err)
	}
	return &prefs, nil
}

// EngagementHistory loads the sessions the user attended since the given
// time, with host/activity/category context for recency weighting.
func (s *PostgresDataSource) EngagementHistory(ctx context.Context, userID string, since time.Time) ([]AttendanceEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT se.host_id, se.activity_id, COALESCE(a.category_tags, '{}'), se.starts_at
		FROM session_attendees sa
		JOIN sessions se ON se.id = sa.session_id
		LEFT JOIN activities a ON a.id = se.activity_id
		WHERE sa.user_id = $1
		  AND sa.status = 'going'
		  AND se.starts_at >= $2
		  AND se.starts_at <= now()`,
		userID, since)
	if err != nil {
		return nil, fmt.Errorf("session_attendees: %w", err)
	}
	defer rows.Close()

	var events []AttendanceEvent
	for rows.Next() {
		var e AttendanceEvent
		if err := rows.Scan(&e.HostID, &e.ActivityID, pq.Array(&e.Categories), &e.OccurredAt); err != nil {
			return nil, fmt.Errorf("session_attendees: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("session_attendees: %w", err)
	}
	return events, nil
}

// CandidateSessions loads upcoming sessions in [from, until) joined to
// their activity and venue, ordered by start time ascending, capped at
// limit. Venue coordinates are also encoded as a coarse geohash for the
// public payload.
func (s *PostgresDataSource) CandidateSessions(ctx context.Context, from, until time.Time, limit int) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT se.id, se.host_id, se.activity_id, se.starts_at,
		       a.id, a.name, COALESCE(a.category_tags, '{}'),
		       COALESCE(a.preferred_traits, '{}'), COALESCE(a.seed_marker, false),
		       v.id, v.name, v.lat, v.lng,
		       (SELECT count(*) FROM session_attendees sa
		        WHERE sa.session_id = se.id AND sa.status = 'going')
		FROM sessions se
		LEFT JOIN activities a ON a.id = se.activity_id
		LEFT JOIN venues v ON v.id = se.venue_id
		WHERE se.starts_at >= $1 AND se.starts_at < $2
		ORDER BY se.starts_at ASC
		LIMIT $3`,
		from, until, limit)
	if err != nil {
		return nil, fmt.Errorf("sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var (
			session      Session
			startsAt     time.Time
			activityID   sql.NullString
			activityName sql.NullString
			activity     ActivityRef
			venueID      sql.NullString
			venue        VenueRef
			venueName    sql.NullString
			count        int
		)
		if err := rows.Scan(
			&session.ID, &session.HostID, &session.ActivityID, &startsAt,
			&activityID, &activityName,
			pq.Array(&activity.CategoryTags),
			pq.Array(&activity.PreferredTraits),
			&activity.SeedMarker,
			&venueID, &venueName, &venue.Lat, &venue.Lng,
			&count,
		); err != nil {
			return nil, fmt.Errorf("sessions: %w", err)
		}

		session.StartsAt = startsAt.UTC().Format(time.RFC3339)
		session.AttendeeCount = &count

		if activityID.Valid {
			activity.ID = activityID.String
			activity.Name = activityName.String
			session.Activity = Rel(activity)
		}
		if venueID.Valid {
			venue.ID = venueID.String
			venue.Name = venueName.String
			if venue.Lat != nil && venue.Lng != nil {
				venue.Geohash = geo.CoarseGeohash(*venue.Lat, *venue.Lng)
			}
			session.Venue = Rel(venue)
		}

		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sessions: %w", err)
	}
	return sessions, nil
}
