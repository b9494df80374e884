package journal

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/RMahshie/magnetometer/internal/sensor"
	"github.com/RMahshie/magnetometer/pkg/models"
)

// MockSessionRepository implements repository.SessionRepository for testing
type MockSessionRepository struct {
	mock.Mock
}

func (m *MockSessionRepository) CreateSession(ctx context.Context, session *models.SessionRecord) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockSessionRepository) EndSession(ctx context.Context, id uuid.UUID, endedAt time.Time, readings int64) error {
	args := m.Called(ctx, id, endedAt, readings)
	return args.Error(0)
}

func (m *MockSessionRepository) GetSession(ctx context.Context, id uuid.UUID) (*models.SessionRecord, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(*models.SessionRecord), args.Error(1)
}

func (m *MockSessionRepository) RecordEvent(ctx context.Context, event *models.SessionEventRecord) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockSessionRepository) ListEvents(ctx context.Context, sessionID uuid.UUID) ([]*models.SessionEventRecord, error) {
	args := m.Called(ctx, sessionID)
	return args.Get(0).([]*models.SessionEventRecord), args.Error(1)
}

func TestRecorder_WritesSessionLifecycle(t *testing.T) {
	repo := &MockSessionRepository{}
	id := uuid.New()
	at := time.Now()

	repo.On("CreateSession", mock.Anything, mock.MatchedBy(func(s *models.SessionRecord) bool {
		return s.ID == id.String() && s.Frequency == 5
	})).Return(nil).Once()
	repo.On("RecordEvent", mock.Anything, mock.MatchedBy(func(e *models.SessionEventRecord) bool {
		return e.Kind == "started" && e.FromState == "idle" && e.ToState == "active"
	})).Return(nil).Once()
	repo.On("RecordEvent", mock.Anything, mock.MatchedBy(func(e *models.SessionEventRecord) bool {
		return e.Kind == "sample_error" && e.ErrorMsg != nil && *e.ErrorMsg == "boom"
	})).Return(nil).Once()
	repo.On("RecordEvent", mock.Anything, mock.MatchedBy(func(e *models.SessionEventRecord) bool {
		return e.Kind == "stopped" && e.ToState == "idle"
	})).Return(nil).Once()
	repo.On("EndSession", mock.Anything, id, at, int64(3)).Return(nil).Once()

	r := NewRecorder(repo, 8)
	r.Handle(sensor.SessionEvent{Kind: sensor.EventStarted, SessionID: id.String(), From: sensor.StateIdle, To: sensor.StateActive, Frequency: 5, At: at})
	r.Handle(sensor.SessionEvent{Kind: sensor.EventSampleError, SessionID: id.String(), From: sensor.StateActive, To: sensor.StateActive, Err: errors.New("boom"), At: at})
	r.Handle(sensor.SessionEvent{Kind: sensor.EventStopped, SessionID: id.String(), From: sensor.StateActive, To: sensor.StateIdle, Readings: 3, At: at})
	r.Close()

	repo.AssertExpectations(t)
}

func TestRecorder_ContinuesAfterRepositoryError(t *testing.T) {
	repo := &MockSessionRepository{}
	id := uuid.New()

	repo.On("RecordEvent", mock.Anything, mock.MatchedBy(func(e *models.SessionEventRecord) bool {
		return e.Kind == "suspended"
	})).Return(assert.AnError).Once()
	repo.On("RecordEvent", mock.Anything, mock.MatchedBy(func(e *models.SessionEventRecord) bool {
		return e.Kind == "resumed"
	})).Return(nil).Once()

	r := NewRecorder(repo, 8)
	r.Handle(sensor.SessionEvent{Kind: sensor.EventSuspended, SessionID: id.String(), From: sensor.StateActive, To: sensor.StateSuspended})
	r.Handle(sensor.SessionEvent{Kind: sensor.EventResumed, SessionID: id.String(), From: sensor.StateSuspended, To: sensor.StateActive})
	r.Close()

	repo.AssertExpectations(t)
}

func TestRecorder_HandleAfterCloseIsIgnored(t *testing.T) {
	repo := &MockSessionRepository{}

	r := NewRecorder(repo, 1)
	r.Close()
	r.Close()
	r.Handle(sensor.SessionEvent{Kind: sensor.EventStarted, SessionID: uuid.NewString()})

	repo.AssertNotCalled(t, "CreateSession", mock.Anything, mock.Anything)
}

func TestRecorder_WithManager(t *testing.T) {
	repo := &MockSessionRepository{}
	repo.On("CreateSession", mock.Anything, mock.Anything).Return(nil)
	repo.On("RecordEvent", mock.Anything, mock.Anything).Return(nil)
	repo.On("EndSession", mock.Anything, mock.Anything, mock.Anything, int64(0)).Return(nil)

	r := NewRecorder(repo, 16)
	m := sensor.NewManager(stubSource{}, nil)
	m.OnSessionEvent(r.Handle)

	_, err := m.Start(context.Background(), 2)
	assert.NoError(t, err)
	assert.NoError(t, m.Stop(context.Background()))
	m.Close()
	r.Close()

	repo.AssertNumberOfCalls(t, "CreateSession", 1)
	repo.AssertNumberOfCalls(t, "RecordEvent", 2)
	repo.AssertNumberOfCalls(t, "EndSession", 1)
}

type stubSource struct{}

func (stubSource) Available() bool                          { return true }
func (stubSource) SetUpdateInterval(time.Duration)          {}
func (stubSource) StartUpdates(func(sensor.Reading, error)) {}
func (stubSource) StopUpdates()                             {}
