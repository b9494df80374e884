package lifecycle

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEvent(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Event
		wantErr bool
	}{
		{name: "active", input: "active", want: BecameActive},
		{name: "foreground alias", input: "Foreground", want: BecameActive},
		{name: "background", input: " background ", want: EnteredBackground},
		{name: "unknown", input: "sleep", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseEvent(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBroadcaster_PublishDeliversToAllSubscribers(t *testing.T) {
	b := NewBroadcaster()

	var first, second []Event
	b.Subscribe(func(e Event) { first = append(first, e) })
	b.Subscribe(func(e Event) { second = append(second, e) })

	assert.True(t, b.Publish(EnteredBackground))
	assert.True(t, b.Publish(BecameActive))

	assert.Equal(t, []Event{EnteredBackground, BecameActive}, first)
	assert.Equal(t, []Event{EnteredBackground, BecameActive}, second)
}

func TestBroadcaster_DuplicateEventIsDropped(t *testing.T) {
	b := NewBroadcaster()

	count := 0
	b.Subscribe(func(Event) { count++ })

	assert.True(t, b.Publish(EnteredBackground))
	assert.False(t, b.Publish(EnteredBackground))
	assert.Equal(t, 1, count)
}

func TestBroadcaster_Unsubscribe(t *testing.T) {
	b := NewBroadcaster()

	count := 0
	unsubscribe := b.Subscribe(func(Event) { count++ })

	b.Publish(EnteredBackground)
	unsubscribe()
	unsubscribe()
	b.Publish(BecameActive)

	assert.Equal(t, 1, count)
}

func TestBroadcaster_ConcurrentPublishersDeliverInOrder(t *testing.T) {
	b := NewBroadcaster()

	var mu sync.Mutex
	var got []Event
	b.Subscribe(func(e Event) {
		mu.Lock()
		got = append(got, e)
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for _, e := range []Event{EnteredBackground, BecameActive} {
		wg.Add(1)
		go func(e Event) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				b.Publish(e)
			}
		}(e)
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, got)
	for i := 1; i < len(got); i++ {
		require.NotEqual(t, got[i-1], got[i], "consecutive deliveries of the same event at %d", i)
	}

	b.mu.Lock()
	last := b.last
	b.mu.Unlock()
	assert.Equal(t, last, got[len(got)-1])
}
