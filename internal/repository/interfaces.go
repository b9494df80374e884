package repository

import (
	"context"
	"time"

	"github.com/RMahshie/magnetometer/pkg/models"
	"github.com/google/uuid"
)

// SessionRepository defines the interface for the session journal
type SessionRepository interface {
	CreateSession(ctx context.Context, session *models.SessionRecord) error
	EndSession(ctx context.Context, id uuid.UUID, endedAt time.Time, readings int64) error
	GetSession(ctx context.Context, id uuid.UUID) (*models.SessionRecord, error)
	RecordEvent(ctx context.Context, event *models.SessionEventRecord) error
	ListEvents(ctx context.Context, sessionID uuid.UUID) ([]*models.SessionEventRecord, error)
}
