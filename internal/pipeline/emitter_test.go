package pipeline

import (
	"errors"
	"sync"
	"testing"

	"github.com/dshills/keywarp/internal/input/key"
	"github.com/dshills/keywarp/internal/logging"
)

// captureSink records emitted events.
type captureSink struct {
	mu     sync.Mutex
	events []key.Event
	err    error
}

func (s *captureSink) Emit(ev key.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, ev)
	return nil
}

func (s *captureSink) all() []key.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]key.Event, len(s.events))
	copy(out, s.events)
	return out
}

func TestEmitterForwardsInOrder(t *testing.T) {
	sink := &captureSink{}
	e := NewEmitter(sink, NewHookSet(logging.Discard()), logging.Discard())

	e.Emit(key.NewPress(key.CodeA))
	e.Emit(key.NewRelease(key.CodeA))
	if err := e.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	got := sink.all()
	if len(got) != 2 {
		t.Fatalf("sink saw %d events, want 2", len(got))
	}
	if !got[0].IsPress() || !got[1].IsRelease() {
		t.Errorf("sink order wrong: %v, %v", got[0], got[1])
	}
	if e.Stats().Emitted != 2 {
		t.Errorf("Emitted = %d, want 2", e.Stats().Emitted)
	}
}

func TestEmitterOutputHookCatches(t *testing.T) {
	sink := &captureSink{}
	hooks := NewHookSet(logging.Discard())
	e := NewEmitter(sink, hooks, logging.Discard())

	hooks.Register(Hook{
		Pred:   MatchKey(key.CodeA, key.Press),
		Action: func(key.Event) Verdict { return Catch },
	})

	e.Emit(key.NewPress(key.CodeA))
	e.Emit(key.NewPress(key.CodeB))
	if err := e.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	got := sink.all()
	if len(got) != 1 || got[0].Code != key.CodeB {
		t.Fatalf("sink saw %v, want only press b", got)
	}
	if e.Stats().Caught != 1 {
		t.Errorf("Caught = %d, want 1", e.Stats().Caught)
	}
}

func TestEmitterSinkFailure(t *testing.T) {
	sinkErr := errors.New("device gone")
	sink := &captureSink{err: sinkErr}
	e := NewEmitter(sink, NewHookSet(logging.Discard()), logging.Discard())

	e.Emit(key.NewPress(key.CodeA))
	// Further emits must not deadlock after the failure.
	e.Emit(key.NewPress(key.CodeB))

	if err := e.Close(); !errors.Is(err, sinkErr) {
		t.Fatalf("Close() error = %v, want %v", err, sinkErr)
	}
}
