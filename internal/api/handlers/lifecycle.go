package handlers

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/RMahshie/magnetometer/internal/lifecycle"
	"github.com/RMahshie/magnetometer/pkg/models"
)

// LifecyclePublisher delivers host lifecycle transitions to subscribers
type LifecyclePublisher interface {
	Publish(e lifecycle.Event) bool
}

// LifecycleHandler lets the application shell report foreground/background transitions
type LifecycleHandler struct {
	publisher LifecyclePublisher
}

// NewLifecycleHandler creates a new lifecycle handler
func NewLifecycleHandler(publisher LifecyclePublisher) *LifecycleHandler {
	return &LifecycleHandler{publisher: publisher}
}

// Notify publishes a lifecycle event
func (h *LifecycleHandler) Notify(ctx context.Context, req *models.LifecycleRequest) (*models.LifecycleResponse, error) {
	event, err := lifecycle.ParseEvent(req.Event)
	if err != nil {
		return nil, huma.Error400BadRequest("Unknown lifecycle event", err)
	}

	resp := &models.LifecycleResponse{}
	resp.Body.Event = event.String()
	resp.Body.Delivered = h.publisher.Publish(event)
	return resp, nil
}
