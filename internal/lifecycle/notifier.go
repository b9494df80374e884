package lifecycle

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Event is a foreground/background transition signalled by the host application
type Event int

const (
	// BecameActive is delivered when the host application returns to the foreground
	BecameActive Event = iota + 1
	// EnteredBackground is delivered when the host application is sent to the background
	EnteredBackground
)

func (e Event) String() string {
	switch e {
	case BecameActive:
		return "active"
	case EnteredBackground:
		return "background"
	default:
		return "unknown"
	}
}

// ParseEvent converts the wire name of an event ("active" or "background") into an Event
func ParseEvent(name string) (Event, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "active", "became_active", "foreground":
		return BecameActive, nil
	case "background", "entered_background":
		return EnteredBackground, nil
	default:
		return 0, fmt.Errorf("unknown lifecycle event: %q", name)
	}
}

// Broadcaster is an in-process Host Lifecycle Notifier. Subscribers are called
// synchronously from Publish, one event at a time, in the order the events were
// accepted. A subscriber must not call Publish.
type Broadcaster struct {
	// held for the whole of Publish so dispatch order matches last
	publishMu sync.Mutex

	mu          sync.Mutex
	subscribers map[string]func(Event)
	last        Event
}

// NewBroadcaster creates a broadcaster with no subscribers
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subscribers: make(map[string]func(Event)),
	}
}

// Subscribe registers fn for every future transition. The returned function
// removes the subscription and may be called more than once.
func (b *Broadcaster) Subscribe(fn func(Event)) (unsubscribe func()) {
	id := uuid.NewString()

	b.mu.Lock()
	b.subscribers[id] = fn
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.subscribers, id)
		b.mu.Unlock()
	}
}

// Publish delivers e to all subscribers. A repeat of the previously published
// event is not a transition and is dropped. It reports whether e was delivered.
func (b *Broadcaster) Publish(e Event) bool {
	b.publishMu.Lock()
	defer b.publishMu.Unlock()

	b.mu.Lock()
	if e == b.last {
		b.mu.Unlock()
		log.Debug().Str("event", e.String()).Msg("Duplicate lifecycle event ignored")
		return false
	}
	b.last = e
	subs := make([]func(Event), 0, len(b.subscribers))
	for _, fn := range b.subscribers {
		subs = append(subs, fn)
	}
	b.mu.Unlock()

	log.Info().Str("event", e.String()).Int("subscribers", len(subs)).Msg("Lifecycle event")
	for _, fn := range subs {
		fn(e)
	}
	return true
}
