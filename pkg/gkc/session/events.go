package session

import "github.com/Triton-AI/go-kart-real-time-controller/pkg/gkc/packet"

// EventKind tags the variant carried by an Event.
type EventKind int

const (
	EventStateChanged EventKind = iota
	EventSensorUpdated
	EventLogEmitted
	EventFatalError
)

// Event is pushed to every Subscribe() channel as the controller's state
// changes. Only the field matching Kind is populated. EventFatalError marks
// the controller unusable (e.g. an MCU firmware version mismatch); Err holds
// the cause and is also retrievable afterwards via Controller.FatalError.
type Event struct {
	Kind    EventKind
	State   packet.Lifecycle
	Sensors packet.SensorValues
	Log     LogEntry
	Err     error
}

// LogEntry is one message drained from the controller's log FIFO or
// delivered live to a subscriber.
type LogEntry struct {
	Severity packet.Severity
	Message  string
}

const subscriberChanCapacity = 32

func (c *Controller) publish(ev Event) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	for _, ch := range c.subscribers {
		select {
		case ch <- ev:
		default:
			// Slow subscriber: drop rather than block the receiver thread.
		}
	}
}

// Subscribe returns a channel delivering StateChanged, SensorUpdated,
// LogEmitted, and FatalError events as they are produced. The channel is closed on
// controller Close. Callers must keep up; a slow reader drops events
// rather than stalling the session.
func (c *Controller) Subscribe() <-chan Event {
	ch := make(chan Event, subscriberChanCapacity)
	c.subMu.Lock()
	c.subscribers = append(c.subscribers, ch)
	c.subMu.Unlock()
	return ch
}
