package key

import (
	"fmt"
	"time"
)

// Switch distinguishes the two edges of a key.
type Switch uint8

const (
	// Press is the down edge.
	Press Switch = iota
	// Release is the up edge.
	Release
)

// String returns "press" or "release".
func (s Switch) String() string {
	switch s {
	case Press:
		return "press"
	case Release:
		return "release"
	default:
		return fmt.Sprintf("switch(%d)", uint8(s))
	}
}

// Event is a single key edge. Events are immutable values; stages copy
// them rather than share pointers.
type Event struct {
	// Code identifies the key.
	Code Code

	// Switch is the edge direction.
	Switch Switch

	// Time is when the event occurred, from the monotonic clock.
	Time time.Time
}

// NewPress creates a press event stamped with the current time.
func NewPress(c Code) Event {
	return Event{Code: c, Switch: Press, Time: time.Now()}
}

// NewRelease creates a release event stamped with the current time.
func NewRelease(c Code) Event {
	return Event{Code: c, Switch: Release, Time: time.Now()}
}

// IsPress returns true for a down edge.
func (e Event) IsPress() bool { return e.Switch == Press }

// IsRelease returns true for an up edge.
func (e Event) IsRelease() bool { return e.Switch == Release }

// Concerns returns true if the event is an edge of the given key.
func (e Event) Concerns(c Code) bool { return e.Code == c }

// String returns a form like "press caps".
func (e Event) String() string {
	return e.Switch.String() + " " + e.Code.String()
}
