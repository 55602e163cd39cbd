package pipeline

import (
	"fmt"
	"time"

	"github.com/dshills/keywarp/internal/input/key"
)

// InputStage offers each pulled event to the input hook set before
// yielding it. Timed hook deadlines are honored while the source is quiet:
// the stage waits on the dispatch with the earliest deadline, so a timeout
// always fires serialized with pulls, never concurrently.
type InputStage struct {
	hooks *HookSet
	below *Dispatch
}

// NewInputStage creates the input hook stage over a dispatch.
func NewInputStage(hooks *HookSet, below *Dispatch) *InputStage {
	return &InputStage{hooks: hooks, below: below}
}

// Hooks returns the stage's hook set.
func (st *InputStage) Hooks() *HookSet { return st.hooks }

// Pull yields the next event that no hook catches.
func (st *InputStage) Pull() (key.Event, error) {
	for {
		st.hooks.Expire(time.Now())

		var ev key.Event
		var err error
		if deadline, ok := st.hooks.NextDeadline(); ok {
			var timedOut bool
			ev, timedOut, err = st.below.PullUntil(deadline)
			if timedOut {
				// Next iteration expires the overdue hook.
				continue
			}
		} else {
			ev, err = st.below.Pull()
		}
		if err != nil {
			return key.Event{}, fmt.Errorf("pulling from source: %w", err)
		}

		if st.hooks.Offer(ev) {
			continue
		}
		return ev, nil
	}
}
