// Package unavailable is the fallback source for hosts without a magnetometer.
package unavailable

import (
	"time"

	"github.com/RMahshie/magnetometer/internal/sensor"
)

// Source never reports availability, so the manager rejects every start
type Source struct{}

func (Source) Available() bool                          { return false }
func (Source) SetUpdateInterval(time.Duration)          {}
func (Source) StartUpdates(func(sensor.Reading, error)) {}
func (Source) StopUpdates()                             {}
