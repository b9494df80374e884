package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/RMahshie/magnetometer/internal/repository"
	"github.com/RMahshie/magnetometer/pkg/models"
	"github.com/google/uuid"
)

// PostgresSessionRepository implements SessionRepository for PostgreSQL
type PostgresSessionRepository struct {
	db *sql.DB
}

// NewPostgresSessionRepository creates a new PostgreSQL session repository
func NewPostgresSessionRepository(db *sql.DB) repository.SessionRepository {
	return &PostgresSessionRepository{db: db}
}

// CreateSession inserts a new session record
func (r *PostgresSessionRepository) CreateSession(ctx context.Context, session *models.SessionRecord) error {
	query := `
		INSERT INTO sensor_sessions (id, frequency, readings, started_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO NOTHING`

	_, err := r.db.ExecContext(ctx, query,
		session.ID,
		session.Frequency,
		session.Readings,
		session.StartedAt)

	return err
}

// EndSession marks a session as ended with its final reading count
func (r *PostgresSessionRepository) EndSession(ctx context.Context, id uuid.UUID, endedAt time.Time, readings int64) error {
	query := `
		UPDATE sensor_sessions
		SET ended_at = $1, readings = $2
		WHERE id = $3`

	_, err := r.db.ExecContext(ctx, query, endedAt, readings, id)
	return err
}

// GetSession retrieves a session by ID
func (r *PostgresSessionRepository) GetSession(ctx context.Context, id uuid.UUID) (*models.SessionRecord, error) {
	query := `
		SELECT id, frequency, readings, started_at, ended_at
		FROM sensor_sessions
		WHERE id = $1`

	var session models.SessionRecord
	var endedAt sql.NullTime

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&session.ID,
		&session.Frequency,
		&session.Readings,
		&session.StartedAt,
		&endedAt)

	if err != nil {
		return nil, err
	}

	if endedAt.Valid {
		session.EndedAt = &endedAt.Time
	}

	return &session, nil
}

// RecordEvent appends a transition to a session's event log
func (r *PostgresSessionRepository) RecordEvent(ctx context.Context, event *models.SessionEventRecord) error {
	query := `
		INSERT INTO sensor_session_events (session_id, kind, from_state, to_state, error_message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	return r.db.QueryRowContext(ctx, query,
		event.SessionID,
		event.Kind,
		event.FromState,
		event.ToState,
		event.ErrorMsg,
		event.CreatedAt).Scan(&event.ID)
}

// ListEvents retrieves the events of a session in the order they happened
func (r *PostgresSessionRepository) ListEvents(ctx context.Context, sessionID uuid.UUID) ([]*models.SessionEventRecord, error) {
	query := `
		SELECT id, session_id, kind, from_state, to_state, error_message, created_at
		FROM sensor_session_events
		WHERE session_id = $1
		ORDER BY created_at ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*models.SessionEventRecord
	for rows.Next() {
		var event models.SessionEventRecord
		var errorMsg sql.NullString

		err := rows.Scan(
			&event.ID,
			&event.SessionID,
			&event.Kind,
			&event.FromState,
			&event.ToState,
			&errorMsg,
			&event.CreatedAt)

		if err != nil {
			return nil, err
		}

		if errorMsg.Valid {
			event.ErrorMsg = &errorMsg.String
		}

		events = append(events, &event)
	}

	return events, rows.Err()
}
