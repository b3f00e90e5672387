package rules

import (
	"sync"
	"time"
)

// EventType indicates the category of an engine event.
type EventType string

const (
	// Lifecycle events
	EventPlayerJoined       EventType = "PLAYER_JOINED"
	EventPlayerLeft         EventType = "PLAYER_LEFT"
	EventPlayerReady        EventType = "PLAYER_READY"
	EventGameStarted        EventType = "GAME_STARTED"
	EventGameOver           EventType = "GAME_OVER"
	EventPlayerDisconnected EventType = "PLAYER_DISCONNECTED"
	EventPlayerReconnected  EventType = "PLAYER_RECONNECTED"

	// Phase events
	EventPhaseChanged EventType = "PHASE_CHANGED"
	EventRoundStarted EventType = "ROUND_STARTED"

	// Card events
	EventCardsDealt   EventType = "CARDS_DEALT"
	EventCardDrawn    EventType = "CARD_DRAWN"
	EventCardPlayed   EventType = "CARD_PLAYED"
	EventCardRevealed EventType = "CARD_REVEALED"

	// Effect events
	EventEffectApplied   EventType = "EFFECT_APPLIED"
	EventMomentumShifted EventType = "MOMENTUM_SHIFTED"
	EventMandateAwarded  EventType = "MANDATE_AWARDED"

	// Resolution events
	EventDiceRolled    EventType = "DICE_ROLLED"
	EventRoundResolved EventType = "ROUND_RESOLVED"
	EventRoundTied     EventType = "ROUND_TIED"

	// Coalition events
	EventCoalitionProposed EventType = "COALITION_PROPOSED"
	EventCoalitionFormed   EventType = "COALITION_FORMED"
	EventCoalitionDeclined EventType = "COALITION_DECLINED"
	EventCoalitionBroken   EventType = "COALITION_BROKEN"
	EventCoalitionsBlocked EventType = "COALITIONS_BLOCKED"
)

// Event represents a state change that other subsystems may react to.
// The relay subscribes to drive per-room broadcasts.
type Event struct {
	Type      EventType
	GameID    string
	PlayerID  string // acting player, when there is one
	TargetID  string // second player for coalition events
	CardID    string
	Amount    int // roll value, influence delta, mandate count
	Data      string
	Timestamp time.Time
}

// Listener defines a callback that reacts to incoming events.
type Listener func(Event)

// TypedListener is a listener filtered to one event type.
type TypedListener struct {
	Handle    int
	EventType EventType
	Callback  func(Event)
}

// EventBus provides a synchronous publish/subscribe implementation with
// optional type filtering. Publishing happens while the engine holds the
// game lock, so listeners must not call back into the engine.
type EventBus struct {
	mu             sync.RWMutex
	listeners      map[int]Listener
	typedListeners map[EventType][]TypedListener
	nextHandle     int
}

// NewEventBus constructs a fresh event bus instance.
func NewEventBus() *EventBus {
	return &EventBus{
		listeners:      make(map[int]Listener),
		typedListeners: make(map[EventType][]TypedListener),
	}
}

// Subscribe registers a listener for all events and returns a handle.
func (bus *EventBus) Subscribe(listener Listener) int {
	if listener == nil {
		return -1
	}
	bus.mu.Lock()
	defer bus.mu.Unlock()
	handle := bus.nextHandle
	bus.nextHandle++
	bus.listeners[handle] = listener
	return handle
}

// SubscribeTyped registers a listener for a specific event type.
func (bus *EventBus) SubscribeTyped(eventType EventType, callback func(Event)) int {
	if callback == nil {
		return -1
	}
	bus.mu.Lock()
	defer bus.mu.Unlock()
	handle := bus.nextHandle
	bus.nextHandle++
	bus.typedListeners[eventType] = append(bus.typedListeners[eventType], TypedListener{
		Handle:    handle,
		EventType: eventType,
		Callback:  callback,
	})
	return handle
}

// Unsubscribe removes the listener identified by the provided handle.
func (bus *EventBus) Unsubscribe(handle int) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	delete(bus.listeners, handle)
	for eventType, listeners := range bus.typedListeners {
		for i := len(listeners) - 1; i >= 0; i-- {
			if listeners[i].Handle == handle {
				bus.typedListeners[eventType] = append(listeners[:i], listeners[i+1:]...)
				break
			}
		}
	}
}

// Publish delivers the event to all registered listeners synchronously.
func (bus *EventBus) Publish(event Event) {
	bus.mu.RLock()
	defer bus.mu.RUnlock()
	for _, listener := range bus.listeners {
		listener(event)
	}
	for _, listener := range bus.typedListeners[event.Type] {
		listener.Callback(event)
	}
}

// NewEvent creates an event with common fields populated.
func NewEvent(eventType EventType, gameID, playerID string) Event {
	return Event{
		Type:      eventType,
		GameID:    gameID,
		PlayerID:  playerID,
		Timestamp: time.Now(),
	}
}
