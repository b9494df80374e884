package models

import (
	"time"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Body struct {
		Status  string    `json:"status" example:"healthy" doc:"Service health status"`
		Version string    `json:"version" example:"1.0.0" doc:"API version"`
		Time    time.Time `json:"time" doc:"Current server time"`
	}
}

// MagnetometerData is the payload of every magnetometerData event
type MagnetometerData struct {
	X float64 `json:"x" doc:"Magnetic field along the device X axis in microtesla"`
	Y float64 `json:"y" doc:"Magnetic field along the device Y axis in microtesla"`
	Z float64 `json:"z" doc:"Magnetic field along the device Z axis in microtesla"`
}

// SampleErrorData is sent once per session when the sensor first fails to produce a sample
type SampleErrorData struct {
	SessionID string `json:"session_id" doc:"Session that observed the error"`
	Message   string `json:"message" doc:"Error description"`
}

// EchoRequest represents a request to echo a value back
type EchoRequest struct {
	Body struct {
		Value string `json:"value" doc:"Value to echo"`
	}
}

// EchoResponse returns the echoed value unchanged
type EchoResponse struct {
	Body struct {
		Value string `json:"value" doc:"Echoed value"`
	}
}

// StartUpdatesRequest represents a request to start magnetometer updates
type StartUpdatesRequest struct {
	Body *struct {
		Frequency float64 `json:"frequency,omitempty" required:"false" doc:"Sampling frequency in Hz; missing or non-positive values default to 1"`
	}
}

// StartUpdatesResponseBody is the body of the start response
type StartUpdatesResponseBody struct {
	SessionID  string  `json:"session_id" doc:"Session identifier"`
	Frequency  float64 `json:"frequency" doc:"Effective sampling frequency in Hz"`
	IntervalMS float64 `json:"interval_ms" doc:"Effective sampling interval in milliseconds"`
}

// StartUpdatesResponse represents the response from starting updates
type StartUpdatesResponse struct {
	Body StartUpdatesResponseBody
}

// StopUpdatesResponse represents the response from stopping updates
type StopUpdatesResponse struct {
	Body struct {
		Status string `json:"status" example:"idle" doc:"Session state after the request"`
	}
}

// SessionStatusResponseBody is the body of the status response
type SessionStatusResponseBody struct {
	State     string  `json:"state" enum:"idle,active,suspended" doc:"Session state"`
	Frequency float64 `json:"frequency,omitempty" doc:"Sampling frequency in Hz while a session exists"`
	SessionID string  `json:"session_id,omitempty" doc:"Current session identifier"`
	Readings  uint64  `json:"readings" doc:"Readings delivered in the current session"`
	Listeners int     `json:"listeners" doc:"Registered magnetometerData listeners"`
}

// SessionStatusResponse represents the current session state
type SessionStatusResponse struct {
	Body SessionStatusResponseBody
}

// EventsRequest opens the magnetometerData event stream
type EventsRequest struct{}

// LifecycleRequest represents a host lifecycle notification
type LifecycleRequest struct {
	Event string `path:"event" enum:"active,background" doc:"Lifecycle transition"`
}

// LifecycleResponse represents the response from a lifecycle notification
type LifecycleResponse struct {
	Body struct {
		Event     string `json:"event" doc:"Lifecycle transition"`
		Delivered bool   `json:"delivered" doc:"False when the event repeats the previous transition"`
	}
}

// SessionRecord is a journaled sampling session (for internal use)
type SessionRecord struct {
	ID        string     `json:"id"`
	Frequency float64    `json:"frequency"`
	Readings  int64      `json:"readings"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
}

// SessionEventRecord is a journaled session transition (for internal use)
type SessionEventRecord struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id"`
	Kind      string    `json:"kind"`
	FromState string    `json:"from_state"`
	ToState   string    `json:"to_state"`
	ErrorMsg  *string   `json:"error_message,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
