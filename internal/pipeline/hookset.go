package pipeline

import (
	"container/heap"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dshills/keywarp/internal/input/key"
	"github.com/dshills/keywarp/internal/logging"
)

// HookSet holds registered hooks in registration order and a min-heap of
// the timed ones. The same type backs both the input stage and the output
// side of the emitter.
//
// Actions run outside the lock, so a hook action may register further
// hooks; those observe the next event, never the current one.
type HookSet struct {
	mu     sync.Mutex
	nextID uint64
	hooks  []*hookEntry
	timed  deadlineHeap

	log *logging.Logger

	registered atomic.Uint64
	fired      atomic.Uint64
	timedOut   atomic.Uint64
}

type hookEntry struct {
	id   uint64
	hook Hook
	done bool
}

// NewHookSet creates an empty hook set.
func NewHookSet(log *logging.Logger) *HookSet {
	return &HookSet{log: log.WithComponent("hooks")}
}

// Register adds a hook and returns its id. Insertion preserves
// registration order.
func (s *HookSet) Register(h Hook) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	e := &hookEntry{id: s.nextID, hook: h}
	s.hooks = append(s.hooks, e)
	if h.Timed() {
		heap.Push(&s.timed, e)
	}
	s.registered.Add(1)
	return e.id
}

// Offer runs the event past every armed hook in registration order.
// Matching hooks fire and are removed; the first Catch verdict consumes
// the event and Offer returns true.
func (s *HookSet) Offer(ev key.Event) bool {
	s.mu.Lock()
	snapshot := make([]*hookEntry, len(s.hooks))
	copy(snapshot, s.hooks)
	s.mu.Unlock()

	for _, e := range snapshot {
		s.mu.Lock()
		if e.done || !e.hook.Pred(ev) {
			s.mu.Unlock()
			continue
		}
		s.retire(e)
		s.mu.Unlock()

		s.fired.Add(1)
		if e.hook.Action != nil && e.hook.Action(ev) == Catch {
			return true
		}
	}
	return false
}

// Expire fires the timeout action of every timed hook whose deadline has
// passed, in deadline order. It returns how many fired.
func (s *HookSet) Expire(now time.Time) int {
	n := 0
	for {
		s.mu.Lock()
		e := s.timed.peekLive()
		if e == nil || e.hook.Deadline.After(now) {
			s.mu.Unlock()
			return n
		}
		heap.Pop(&s.timed)
		s.retire(e)
		s.mu.Unlock()

		s.timedOut.Add(1)
		if e.hook.OnTimeout != nil {
			e.hook.OnTimeout()
		}
		n++
	}
}

// NextDeadline returns the earliest armed deadline.
func (s *HookSet) NextDeadline() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.timed.peekLive()
	if e == nil {
		return time.Time{}, false
	}
	return e.hook.Deadline, true
}

// Len returns the number of armed hooks.
func (s *HookSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.hooks)
}

// Clear drops all armed hooks without firing them. Used on shutdown.
func (s *HookSet) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.hooks {
		e.done = true
	}
	s.hooks = s.hooks[:0]
	s.timed = s.timed[:0]
}

// retire marks the entry fired and removes it from the ordered list.
// Callers hold the lock.
func (s *HookSet) retire(e *hookEntry) {
	e.done = true
	for i, h := range s.hooks {
		if h == e {
			s.hooks = append(s.hooks[:i], s.hooks[i+1:]...)
			break
		}
	}
}

// HookStats is a snapshot of hook counters.
type HookStats struct {
	Registered uint64
	Fired      uint64
	TimedOut   uint64
}

// Stats returns a snapshot of the hook counters.
func (s *HookSet) Stats() HookStats {
	return HookStats{
		Registered: s.registered.Load(),
		Fired:      s.fired.Load(),
		TimedOut:   s.timedOut.Load(),
	}
}

// deadlineHeap orders timed hook entries by deadline. Entries retired by a
// match stay in the heap and are skipped lazily.
type deadlineHeap []*hookEntry

func (h deadlineHeap) Len() int { return len(h) }

func (h deadlineHeap) Less(i, j int) bool {
	return h[i].hook.Deadline.Before(h[j].hook.Deadline)
}

func (h deadlineHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *deadlineHeap) Push(x any) { *h = append(*h, x.(*hookEntry)) }

func (h *deadlineHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}

// peekLive returns the live entry with the earliest deadline, discarding
// retired entries from the top. Callers hold the lock.
func (h *deadlineHeap) peekLive() *hookEntry {
	for h.Len() > 0 {
		top := (*h)[0]
		if !top.done {
			return top
		}
		heap.Pop(h)
	}
	return nil
}
