// Package sensor owns the magnetometer session: the single sensor source handle,
// the Idle/Active/Suspended state machine and the fan-out of readings to listeners.
package sensor

import (
	"errors"
	"math"
	"time"

	"github.com/RMahshie/magnetometer/internal/lifecycle"
)

// DefaultFrequency is used when a start request carries no usable frequency
const DefaultFrequency = 1.0

var (
	// ErrSensorUnavailable is returned by Start when the source reports no hardware
	ErrSensorUnavailable = errors.New("magnetometer sensor not available")
	// ErrSensorSource wraps a transient per-sample failure reported by the source
	ErrSensorSource = errors.New("failed to get magnetometer data")
	// ErrManagerClosed is returned by operations issued after Close
	ErrManagerClosed = errors.New("sensor manager closed")
)

// Reading is a single magnetic field sample in microtesla
type Reading struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Source is the magnetometer hardware capability. Handlers passed to StartUpdates
// are called from the source's own goroutine. StopUpdates must not wait for an
// in-flight handler call to return.
type Source interface {
	Available() bool
	SetUpdateInterval(interval time.Duration)
	StartUpdates(handler func(Reading, error))
	StopUpdates()
}

// Notifier delivers host foreground/background transitions
type Notifier interface {
	Subscribe(fn func(lifecycle.Event)) (unsubscribe func())
}

// State of the sampling session
type State int

const (
	StateIdle State = iota
	StateActive
	StateSuspended
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateActive:
		return "active"
	case StateSuspended:
		return "suspended"
	default:
		return "unknown"
	}
}

// NormalizeFrequency returns hz when it is a positive finite number and
// DefaultFrequency otherwise.
func NormalizeFrequency(hz float64) float64 {
	if math.IsNaN(hz) || math.IsInf(hz, 0) || hz <= 0 {
		return DefaultFrequency
	}
	return hz
}

// Interval converts a sampling frequency into the source update interval.
// The result is clamped to [1ns, math.MaxInt64] so that a source is never
// handed a zero or overflowed interval.
func Interval(hz float64) time.Duration {
	d := float64(time.Second) / NormalizeFrequency(hz)
	switch {
	case d < 1:
		return time.Nanosecond
	case d >= math.MaxInt64:
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(d)
}
