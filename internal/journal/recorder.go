// Package journal persists session transitions. Readings are never recorded.
package journal

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/RMahshie/magnetometer/internal/repository"
	"github.com/RMahshie/magnetometer/internal/sensor"
	"github.com/RMahshie/magnetometer/pkg/models"
)

// Recorder queues session events from the manager and writes them on its own
// goroutine, so repository latency never stalls sample delivery.
type Recorder struct {
	repo    repository.SessionRepository
	timeout time.Duration

	mu     sync.Mutex
	closed bool
	queue  chan sensor.SessionEvent
	done   chan struct{}
}

// NewRecorder starts a recorder with room for buffer pending events
func NewRecorder(repo repository.SessionRepository, buffer int) *Recorder {
	if buffer <= 0 {
		buffer = 64
	}
	r := &Recorder{
		repo:    repo,
		timeout: 5 * time.Second,
		queue:   make(chan sensor.SessionEvent, buffer),
		done:    make(chan struct{}),
	}
	go r.run()
	return r
}

// Handle enqueues ev. It is a sensor.EventListener and never blocks; when the
// queue is full the event is dropped.
func (r *Recorder) Handle(ev sensor.SessionEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	select {
	case r.queue <- ev:
	default:
		log.Warn().Str("sessionID", ev.SessionID).Str("kind", string(ev.Kind)).Msg("Journal queue full, dropping session event")
	}
}

// Close flushes queued events and stops the writer
func (r *Recorder) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	close(r.queue)
	r.mu.Unlock()

	<-r.done
}

func (r *Recorder) run() {
	defer close(r.done)
	for ev := range r.queue {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		if err := r.write(ctx, ev); err != nil {
			log.Error().Err(err).Str("sessionID", ev.SessionID).Str("kind", string(ev.Kind)).Msg("Failed to journal session event")
		}
		cancel()
	}
}

func (r *Recorder) write(ctx context.Context, ev sensor.SessionEvent) error {
	if ev.Kind == sensor.EventStarted {
		if err := r.repo.CreateSession(ctx, &models.SessionRecord{
			ID:        ev.SessionID,
			Frequency: ev.Frequency,
			StartedAt: ev.At,
		}); err != nil {
			return err
		}
	}

	record := &models.SessionEventRecord{
		SessionID: ev.SessionID,
		Kind:      string(ev.Kind),
		FromState: ev.From.String(),
		ToState:   ev.To.String(),
		CreatedAt: ev.At,
	}
	if ev.Err != nil {
		msg := ev.Err.Error()
		record.ErrorMsg = &msg
	}
	if err := r.repo.RecordEvent(ctx, record); err != nil {
		return err
	}

	if ev.Kind == sensor.EventStopped {
		id, err := uuid.Parse(ev.SessionID)
		if err != nil {
			return err
		}
		return r.repo.EndSession(ctx, id, ev.At, int64(ev.Readings))
	}
	return nil
}
