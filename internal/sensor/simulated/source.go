// Package simulated provides a synthetic magnetometer for development hosts
// without sensor hardware.
package simulated

import (
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/RMahshie/magnetometer/internal/sensor"
)

// ErrSimulatedGlitch is the per-sample error produced according to Config.ErrorRate
var ErrSimulatedGlitch = errors.New("simulated magnetometer glitch")

// Config controls the generated field
type Config struct {
	// Base is the mean field vector in microtesla
	Base sensor.Reading
	// Jitter is the standard deviation of per-axis noise in microtesla
	Jitter float64
	// ErrorRate is the probability that a sample attempt fails
	ErrorRate float64
	Seed      uint64
}

// DefaultConfig approximates the geomagnetic field at mid latitudes
func DefaultConfig() Config {
	return Config{
		Base:   sensor.Reading{X: 22.1, Y: -4.8, Z: -41.7},
		Jitter: 0.35,
		Seed:   uint64(time.Now().UnixNano()),
	}
}

// Source generates readings on its own goroutine at the configured interval
type Source struct {
	mu       sync.Mutex
	interval time.Duration
	stop     chan struct{}
	noise    distuv.Normal
	glitch   distuv.Bernoulli
	base     sensor.Reading
}

// New creates a simulated source. The default interval is one second.
func New(cfg Config) *Source {
	src := rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)
	rate := cfg.ErrorRate
	if rate < 0 {
		rate = 0
	}
	if rate > 1 {
		rate = 1
	}
	return &Source{
		interval: time.Second,
		noise:    distuv.Normal{Mu: 0, Sigma: cfg.Jitter, Src: src},
		glitch:   distuv.Bernoulli{P: rate, Src: src},
		base:     cfg.Base,
	}
}

func (s *Source) Available() bool {
	return true
}

func (s *Source) SetUpdateInterval(interval time.Duration) {
	if interval <= 0 {
		return
	}
	s.mu.Lock()
	s.interval = interval
	s.mu.Unlock()
}

func (s *Source) StartUpdates(handler func(sensor.Reading, error)) {
	s.mu.Lock()
	if s.stop != nil {
		close(s.stop)
	}
	stop := make(chan struct{})
	s.stop = stop
	interval := s.interval
	s.mu.Unlock()

	log.Debug().Dur("interval", interval).Msg("Simulated magnetometer started")
	go s.loop(stop, interval, handler)
}

func (s *Source) StopUpdates() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		close(s.stop)
		s.stop = nil
	}
}

func (s *Source) loop(stop <-chan struct{}, interval time.Duration, handler func(sensor.Reading, error)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			select {
			case <-stop:
				return
			default:
			}
			handler(s.sample())
		}
	}
}

func (s *Source) sample() (sensor.Reading, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.glitch.Rand() == 1 {
		return sensor.Reading{}, ErrSimulatedGlitch
	}
	return sensor.Reading{
		X: s.base.X + s.noise.Rand(),
		Y: s.base.Y + s.noise.Rand(),
		Z: s.base.Z + s.noise.Rand(),
	}, nil
}
