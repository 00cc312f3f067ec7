package localnotify

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Handle identifies a scheduled device notification so it can be canceled.
type Handle string

// Content is what the device displays when the notification fires.
type Content struct {
	Title string
	Body  string
	Data  map[string]string
}

// Device is the platform notification primitive: it fires scheduled local
// notifications on the device's own clock.
type Device interface {
	ScheduleAt(trigger time.Time, content Content) (Handle, error)
	Cancel(handle Handle) error
	CancelAll() error
	RequestPermission() (bool, error)
}

// Event is delivered to listeners when a notification fires or is tapped.
type Event struct {
	Handle  Handle
	Content Content
}

// Registration is a scoped listener acquisition. Close deregisters; closing
// twice is safe. Scoping the registration to the caller's lifetime prevents
// duplicate handlers accumulating across re-mounts.
type Registration struct {
	once     sync.Once
	registry *ListenerRegistry
	id       uuid.UUID
}

func (r *Registration) Close() {
	r.once.Do(func() {
		r.registry.remove(r.id)
	})
}

type listener struct {
	onReceived func(Event)
	onTapped   func(Event)
}

// ListenerRegistry fans device notification events out to registered
// callbacks.
type ListenerRegistry struct {
	mu        sync.RWMutex
	listeners map[uuid.UUID]listener
}

func NewListenerRegistry() *ListenerRegistry {
	return &ListenerRegistry{listeners: make(map[uuid.UUID]listener)}
}

// Register adds callbacks and returns their Registration. Either callback
// may be nil.
func (r *ListenerRegistry) Register(onReceived, onTapped func(Event)) *Registration {
	id := uuid.New()
	r.mu.Lock()
	r.listeners[id] = listener{onReceived: onReceived, onTapped: onTapped}
	r.mu.Unlock()
	return &Registration{registry: r, id: id}
}

func (r *ListenerRegistry) remove(id uuid.UUID) {
	r.mu.Lock()
	delete(r.listeners, id)
	r.mu.Unlock()
}

// NotifyReceived dispatches a foreground-received event.
func (r *ListenerRegistry) NotifyReceived(ev Event) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, l := range r.listeners {
		if l.onReceived != nil {
			l.onReceived(ev)
		}
	}
}

// NotifyTapped dispatches a tap event.
func (r *ListenerRegistry) NotifyTapped(ev Event) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, l := range r.listeners {
		if l.onTapped != nil {
			l.onTapped(ev)
		}
	}
}

func (r *ListenerRegistry) count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.listeners)
}
