package pipeline

import (
	"time"

	"github.com/dshills/keywarp/internal/input/key"
)

// Verdict is the outcome of a hook action.
type Verdict uint8

const (
	// NoCatch keeps the event flowing to later hooks and up the chain.
	NoCatch Verdict = iota
	// Catch consumes the event.
	Catch
)

// Hook is a one-shot predicate and action attached to the stream. A hook
// fires at most once: on the first matching event, or, for timed hooks, on
// its deadline, whichever comes first.
type Hook struct {
	// Pred decides whether the hook fires on an event. Predicates must be
	// pure.
	Pred func(ev key.Event) bool

	// Action runs when the predicate matches. Its verdict decides whether
	// the event keeps flowing.
	Action func(ev key.Event) Verdict

	// Deadline, when non-zero, bounds how long the hook stays armed.
	Deadline time.Time

	// OnTimeout runs if the deadline elapses before a match.
	OnTimeout func()
}

// Timed returns true if the hook carries a deadline.
func (h Hook) Timed() bool { return !h.Deadline.IsZero() }

// MatchKey returns a predicate for events concerning the given key with the
// given switch.
func MatchKey(c key.Code, s key.Switch) func(key.Event) bool {
	return func(ev key.Event) bool {
		return ev.Code == c && ev.Switch == s
	}
}
