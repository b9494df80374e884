package handlers

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"
	"github.com/rs/zerolog/log"

	"github.com/RMahshie/magnetometer/internal/sensor"
	"github.com/RMahshie/magnetometer/pkg/models"
)

// SessionManager is the part of sensor.Manager the HTTP layer depends on
type SessionManager interface {
	Start(ctx context.Context, frequencyHz float64) (*sensor.Session, error)
	Stop(ctx context.Context) error
	Echo(value string) string
	Status(ctx context.Context) (sensor.Status, error)
	AddListener(fn sensor.Listener) (remove func())
	OnSessionEvent(fn sensor.EventListener) (remove func())
}

// MagnetometerHandler handles magnetometer plugin requests
type MagnetometerHandler struct {
	manager   SessionManager
	sseBuffer int
}

// NewMagnetometerHandler creates a new magnetometer handler. sseBuffer bounds
// the readings queued per event stream before new ones are dropped.
func NewMagnetometerHandler(manager SessionManager, sseBuffer int) *MagnetometerHandler {
	if sseBuffer <= 0 {
		sseBuffer = 64
	}
	return &MagnetometerHandler{
		manager:   manager,
		sseBuffer: sseBuffer,
	}
}

// Echo returns the request value unchanged
func (h *MagnetometerHandler) Echo(ctx context.Context, req *models.EchoRequest) (*models.EchoResponse, error) {
	resp := &models.EchoResponse{}
	resp.Body.Value = h.manager.Echo(req.Body.Value)
	return resp, nil
}

// StartUpdates starts continuous magnetometer sampling
func (h *MagnetometerHandler) StartUpdates(ctx context.Context, req *models.StartUpdatesRequest) (*models.StartUpdatesResponse, error) {
	var frequency float64
	if req.Body != nil {
		frequency = req.Body.Frequency
	}
	log.Info().Float64("requestedFrequency", frequency).Msg("Start magnetometer updates request received")

	session, err := h.manager.Start(ctx, frequency)
	if err != nil {
		if errors.Is(err, sensor.ErrSensorUnavailable) {
			return nil, huma.Error503ServiceUnavailable("Magnetometer sensor not available.", err)
		}
		return nil, huma.Error500InternalServerError("Failed to start magnetometer updates", err)
	}

	return &models.StartUpdatesResponse{
		Body: models.StartUpdatesResponseBody{
			SessionID:  session.ID,
			Frequency:  session.Frequency,
			IntervalMS: float64(sensor.Interval(session.Frequency)) / float64(time.Millisecond),
		},
	}, nil
}

// StopUpdates stops magnetometer sampling. It succeeds when nothing is running.
func (h *MagnetometerHandler) StopUpdates(ctx context.Context, req *struct{}) (*models.StopUpdatesResponse, error) {
	if err := h.manager.Stop(ctx); err != nil {
		return nil, huma.Error500InternalServerError("Failed to stop magnetometer updates", err)
	}

	resp := &models.StopUpdatesResponse{}
	resp.Body.Status = sensor.StateIdle.String()
	return resp, nil
}

// GetStatus returns the current session state
func (h *MagnetometerHandler) GetStatus(ctx context.Context, req *struct{}) (*models.SessionStatusResponse, error) {
	st, err := h.manager.Status(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to read session status", err)
	}

	return &models.SessionStatusResponse{
		Body: models.SessionStatusResponseBody{
			State:     st.State.String(),
			Frequency: st.Frequency,
			SessionID: st.SessionID,
			Readings:  st.Readings,
			Listeners: st.Listeners,
		},
	}, nil
}

// StreamEvents registers a magnetometerData listener for the lifetime of the
// request and forwards readings as server-sent events. A session's first sample
// error is forwarded as a sampleError event.
func (h *MagnetometerHandler) StreamEvents(ctx context.Context, input *models.EventsRequest, send sse.Sender) {
	readings := make(chan sensor.Reading, h.sseBuffer)
	sampleErrs := make(chan sensor.SessionEvent, 1)
	var dropped atomic.Uint64

	removeListener := h.manager.AddListener(func(r sensor.Reading) {
		select {
		case readings <- r:
		default:
			// slow client, skip so the delivery goroutine never blocks
			dropped.Add(1)
		}
	})
	defer removeListener()

	removeObserver := h.manager.OnSessionEvent(func(ev sensor.SessionEvent) {
		if ev.Kind != sensor.EventSampleError {
			return
		}
		select {
		case sampleErrs <- ev:
		default:
		}
	})
	defer removeObserver()

	log.Info().Msg("magnetometerData listener registered")
	defer func() {
		log.Info().Uint64("dropped", dropped.Load()).Msg("magnetometerData listener removed")
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case r := <-readings:
			if err := send.Data(models.MagnetometerData{X: r.X, Y: r.Y, Z: r.Z}); err != nil {
				return
			}
		case ev := <-sampleErrs:
			data := models.SampleErrorData{SessionID: ev.SessionID}
			if ev.Err != nil {
				data.Message = ev.Err.Error()
			}
			if err := send.Data(data); err != nil {
				return
			}
		}
	}
}
