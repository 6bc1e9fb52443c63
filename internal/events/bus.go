package events

import "sync"

// EventType identifies the kind of change an Event describes.
type EventType string

// Event types published by the profile and the game systems. The presentation
// layer subscribes to these to refresh displays and play celebrations.
const (
	CoinsChanged      EventType = "coins.changed"
	ExperienceChanged EventType = "experience.changed"
	HappinessChanged  EventType = "happiness.changed"
	HungerChanged     EventType = "hunger.changed"
	EnergyChanged     EventType = "energy.changed"
	HomeworkCompleted EventType = "homework.completed"
	ItemAdded         EventType = "item.added"
	MeterLow          EventType = "meter.low"
	LoginBonusAwarded EventType = "login.bonus"
	MilestoneReached  EventType = "login.milestone"
	NewStreakRecord   EventType = "login.record"
	UserCreated       EventType = "user.created"
	UserDeleted       EventType = "user.deleted"
)

// Event is a single change notification. Payload keys depend on the type;
// meter changes carry "value", login events carry the bonus breakdown.
type Event struct {
	Type     EventType              `json:"type"`
	Username string                 `json:"username"`
	Payload  map[string]interface{} `json:"payload,omitempty"`
}

// Handler receives published events.
type Handler func(Event)

// Bus is a synchronous in-process event bus. Publish runs every matching
// handler on the calling goroutine before returning, so a subscriber always
// observes the field value as committed by the mutation that fired the event.
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
	all      []Handler
}

// NewBus creates an empty event bus.
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe registers a handler for one event type.
func (b *Bus) Subscribe(t EventType, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[t] = append(b.handlers[t], h)
}

// SubscribeAll registers a handler for every event type.
func (b *Bus) SubscribeAll(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.all = append(b.all, h)
}

// Publish delivers the event to all matching handlers, synchronously.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	matched := make([]Handler, 0, len(b.handlers[e.Type])+len(b.all))
	matched = append(matched, b.handlers[e.Type]...)
	matched = append(matched, b.all...)
	b.mu.RUnlock()

	for _, h := range matched {
		h(e)
	}
}
