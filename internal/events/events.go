// Package events carries backend notifications (playback terminated, asset
// loading) to the application layer without a process-wide bus.
package events

import (
	"encoding/json"
	"reflect"
	"sync"
	"time"
)

// Type identifies the kind of backend notification.
type Type string

const (
	PlaybackTerminated Type = "playback_terminated"
	SoundLoading       Type = "sound_loading"
	SoundLoaded        Type = "sound_loaded"
	SoundLoadFailed    Type = "sound_load_failed"
)

// Event is a single notification emitted by a playback backend.
type Event struct {
	Type      Type      `json:"type"`
	SoundID   string    `json:"soundId"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Error     string    `json:"error,omitempty"`
}

// New creates an event stamped with the current time.
func New(t Type, soundID, message string) Event {
	return Event{Type: t, SoundID: soundID, Message: message, Timestamp: time.Now()}
}

// Handler receives events.
type Handler func(Event)

// Bus fans events out to registered listeners. The zero value is not usable,
// create one with NewBus and inject it where needed.
type Bus struct {
	mu        sync.RWMutex
	listeners []Handler
	last      map[Type]Event
}

// NewBus creates an empty Bus.
func NewBus() *Bus {
	return &Bus{
		listeners: make([]Handler, 0),
		last:      make(map[Type]Event),
	}
}

// AddListener registers a listener.
func (b *Bus) AddListener(listener Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = append(b.listeners, listener)
}

// RemoveListener unregisters a listener previously passed to AddListener.
func (b *Bus) RemoveListener(listener Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	listenerPtr := reflect.ValueOf(listener).Pointer()
	for i := range b.listeners {
		if reflect.ValueOf(b.listeners[i]).Pointer() == listenerPtr {
			b.listeners = append(b.listeners[:i], b.listeners[i+1:]...)
			break
		}
	}
}

// Publish delivers event to every listener synchronously.
func (b *Bus) Publish(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	b.mu.Lock()
	b.last[event.Type] = event
	listeners := make([]Handler, len(b.listeners))
	copy(listeners, b.listeners)
	b.mu.Unlock()

	for _, listener := range listeners {
		listener(event)
	}
}

// Last returns the most recent event of type t.
func (b *Bus) Last(t Type) (Event, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	e, ok := b.last[t]
	return e, ok
}

// MarshalJSON renders the timestamp as RFC3339.
func (e Event) MarshalJSON() ([]byte, error) {
	type Alias Event
	return json.Marshal(&struct {
		Timestamp string `json:"timestamp"`
		*Alias
	}{
		Timestamp: e.Timestamp.Format(time.RFC3339),
		Alias:     (*Alias)(&e),
	})
}

// UnmarshalJSON parses an RFC3339 timestamp.
func (e *Event) UnmarshalJSON(data []byte) error {
	type Alias Event
	aux := &struct {
		Timestamp string `json:"timestamp"`
		*Alias
	}{
		Alias: (*Alias)(e),
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	t, err := time.Parse(time.RFC3339, aux.Timestamp)
	if err != nil {
		return err
	}
	e.Timestamp = t
	return nil
}
