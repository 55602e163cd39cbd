package pipeline

import (
	"sync/atomic"

	"github.com/dshills/keywarp/internal/input/key"
	"github.com/dshills/keywarp/internal/logging"
)

// Sluice is a gate above the input hook stage. While blocked it pulls and
// buffers silently, never yielding; unblocking replays the buffer through
// the dispatch rerun queue ahead of newer source events.
//
// Block and Unblock calls must balance over a button's press/release
// cycle. All state is owned by the loop goroutine.
type Sluice struct {
	below    Stage
	dispatch *Dispatch

	depth int
	buf   []key.Event

	log    *logging.Logger
	blocks atomic.Uint64
}

// NewSluice creates a sluice between the input stage and the loop.
func NewSluice(below Stage, dispatch *Dispatch, log *logging.Logger) *Sluice {
	return &Sluice{
		below:    below,
		dispatch: dispatch,
		log:      log.WithComponent("sluice"),
	}
}

// Pull yields the next event when open. While blocked it keeps pulling
// into the buffer and does not return until reopened.
func (s *Sluice) Pull() (key.Event, error) {
	for {
		ev, err := s.below.Pull()
		if err != nil {
			return key.Event{}, err
		}
		if s.depth > 0 {
			s.buf = append(s.buf, ev)
			continue
		}
		return ev, nil
	}
}

// Block closes the gate, or deepens it when already blocked.
func (s *Sluice) Block() {
	if s.depth == 0 {
		s.blocks.Add(1)
	}
	s.depth++
}

// Unblock opens one level of the gate. When the last level opens, the
// buffer drains into the dispatch rerun queue in FIFO order and the
// drained events are returned. An unbalanced call is a protocol violation:
// logged and ignored.
func (s *Sluice) Unblock() []key.Event {
	if s.depth == 0 {
		s.log.Warn("unblock without matching block")
		return nil
	}
	s.depth--
	if s.depth > 0 {
		return nil
	}

	drained := s.buf
	s.buf = nil
	s.dispatch.Rerun(drained)
	return drained
}

// Blocked reports whether the gate is closed.
func (s *Sluice) Blocked() bool { return s.depth > 0 }

// SluiceStats is a snapshot of sluice counters.
type SluiceStats struct {
	Blocks uint64
}

// Stats returns a snapshot of the sluice counters.
func (s *Sluice) Stats() SluiceStats {
	return SluiceStats{Blocks: s.blocks.Load()}
}
