// Package serialsource reads a magnetometer breakout that prints one
// "x,y,z" line per sample over a serial port.
package serialsource

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"go.bug.st/serial"

	"github.com/RMahshie/magnetometer/internal/sensor"
)

// ErrPortClosed is reported once the serial port stops producing lines
var ErrPortClosed = errors.New("serial port closed")

// Opener opens the serial device. It is replaced in tests.
type Opener func(path string, mode *serial.Mode) (io.ReadCloser, error)

// OpenSerial opens a real serial port
func OpenSerial(path string, mode *serial.Mode) (io.ReadCloser, error) {
	return serial.Open(path, mode)
}

// Config describes the serial connection
type Config struct {
	Path     string
	BaudRate int
}

// Mode converts the config into the go.bug.st/serial mode, defaulting to 115200 8N1
func (c Config) Mode() *serial.Mode {
	baud := c.BaudRate
	if baud <= 0 {
		baud = 115200
	}
	return &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
}

type latest struct {
	reading sensor.Reading
	err     error
	seen    bool
}

// Source keeps the port open and tracks the most recent line. Each update tick
// delivers that line to the handler.
type Source struct {
	cfg  Config
	open Opener

	mu       sync.Mutex
	port     io.ReadCloser
	last     latest
	interval time.Duration
	stop     chan struct{}
}

// New creates a serial source. The port is opened lazily by Available.
func New(cfg Config, open Opener) *Source {
	if open == nil {
		open = OpenSerial
	}
	return &Source{
		cfg:      cfg,
		open:     open,
		interval: time.Second,
	}
}

// Available reports whether the port is configured and can be opened
func (s *Source) Available() bool {
	if s.cfg.Path == "" {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.port != nil {
		return true
	}

	port, err := s.open(s.cfg.Path, s.cfg.Mode())
	if err != nil {
		log.Warn().Err(err).Str("path", s.cfg.Path).Msg("Failed to open magnetometer serial port")
		return false
	}
	s.port = port
	s.last = latest{}
	go s.readLoop(port)
	log.Info().Str("path", s.cfg.Path).Int("baud", s.cfg.Mode().BaudRate).Msg("Magnetometer serial port opened")
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

	go s.tick(stop, interval, handler)
}

func (s *Source) StopUpdates() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		close(s.stop)
		s.stop = nil
	}
}

// Close stops updates and releases the port
func (s *Source) Close() error {
	s.StopUpdates()

	s.mu.Lock()
	port := s.port
	s.port = nil
	s.mu.Unlock()

	if port == nil {
		return nil
	}
	return port.Close()
}

func (s *Source) readLoop(port io.ReadCloser) {
	scan := bufio.NewScanner(port)
	for scan.Scan() {
		line := strings.TrimSpace(scan.Text())
		if line == "" {
			continue
		}
		r, err := ParseLine(line)
		s.mu.Lock()
		s.last = latest{reading: r, err: err, seen: true}
		s.mu.Unlock()
	}

	err := ErrPortClosed
	if scanErr := scan.Err(); scanErr != nil {
		err = fmt.Errorf("%w: %v", ErrPortClosed, scanErr)
	}
	log.Warn().Err(err).Str("path", s.cfg.Path).Msg("Magnetometer serial read loop ended")

	s.mu.Lock()
	if s.port == port {
		s.port = nil
	}
	s.last = latest{err: err, seen: true}
	s.mu.Unlock()
}

func (s *Source) tick(stop <-chan struct{}, interval time.Duration, handler func(sensor.Reading, error)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.mu.Lock()
			last := s.last
			s.mu.Unlock()

			if !last.seen {
				continue
			}
			select {
			case <-stop:
				return
			default:
			}
			handler(last.reading, last.err)
		}
	}
}

// ParseLine parses "x,y,z" (comma, space or tab separated) into a reading
func ParseLine(line string) (sensor.Reading, error) {
	fields := strings.FieldsFunc(line, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == ';'
	})
	if len(fields) != 3 {
		return sensor.Reading{}, fmt.Errorf("expected 3 fields, got %d in %q", len(fields), line)
	}

	var v [3]float64
	for i, f := range fields {
		n, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return sensor.Reading{}, fmt.Errorf("invalid field %q: %w", f, err)
		}
		v[i] = n
	}
	return sensor.Reading{X: v[0], Y: v[1], Z: v[2]}, nil
}
