package api

import (
	"net/http"

	"github.com/RMahshie/magnetometer/internal/api/handlers"
	"github.com/RMahshie/magnetometer/pkg/models"
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"
)

// RegisterRoutes sets up all API routes
func RegisterRoutes(api huma.API, manager handlers.SessionManager, publisher handlers.LifecyclePublisher, sseBuffer int) {
	// Initialize handlers
	magnetometerHandler := handlers.NewMagnetometerHandler(manager, sseBuffer)
	lifecycleHandler := handlers.NewLifecycleHandler(publisher)

	// Register magnetometer routes
	huma.Register(api, huma.Operation{
		OperationID: "echo",
		Method:      http.MethodPost,
		Path:        "/api/magnetometer/echo",
		Summary:     "Echo a value",
		Description: "Returns the given value unchanged to verify the plugin channel",
		Tags:        []string{"Magnetometer"},
	}, magnetometerHandler.Echo)

	huma.Register(api, huma.Operation{
		OperationID: "startMagnetometerUpdates",
		Method:      http.MethodPost,
		Path:        "/api/magnetometer/start",
		Summary:     "Start magnetometer updates",
		Description: "Starts continuous sampling at the requested frequency (default 1 Hz)",
		Tags:        []string{"Magnetometer"},
	}, magnetometerHandler.StartUpdates)

	huma.Register(api, huma.Operation{
		OperationID: "stopMagnetometerUpdates",
		Method:      http.MethodPost,
		Path:        "/api/magnetometer/stop",
		Summary:     "Stop magnetometer updates",
		Description: "Stops sampling; succeeds when no session is running",
		Tags:        []string{"Magnetometer"},
	}, magnetometerHandler.StopUpdates)

	huma.Register(api, huma.Operation{
		OperationID: "getMagnetometerState",
		Method:      http.MethodGet,
		Path:        "/api/magnetometer/state",
		Summary:     "Get session state",
		Description: "Returns the session state and effective frequency",
		Tags:        []string{"Magnetometer"},
	}, magnetometerHandler.GetStatus)

	sse.Register(api, huma.Operation{
		OperationID: "magnetometerData",
		Method:      http.MethodGet,
		Path:        "/api/magnetometer/events",
		Summary:     "Stream magnetometer data",
		Description: "Server-sent events carrying one magnetometerData event per reading; closing the stream removes the listener",
		Tags:        []string{"Magnetometer"},
	}, map[string]any{
		"magnetometerData": models.MagnetometerData{},
		"sampleError":      models.SampleErrorData{},
	}, magnetometerHandler.StreamEvents)

	// Register lifecycle routes
	huma.Register(api, huma.Operation{
		OperationID: "notifyLifecycle",
		Method:      http.MethodPost,
		Path:        "/api/lifecycle/{event}",
		Summary:     "Report a host lifecycle transition",
		Description: "Suspends sampling when the host enters the background and resumes it when it becomes active",
		Tags:        []string{"Lifecycle"},
	}, lifecycleHandler.Notify)
}
