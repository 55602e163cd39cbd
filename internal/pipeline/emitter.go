package pipeline

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/dshills/keywarp/internal/input/key"
	"github.com/dshills/keywarp/internal/logging"
)

// Emitter transfers outbound events to the sink through a single-slot
// rendezvous cell. Emit blocks until the worker takes the event, so a sink
// stall freezes the loop rather than dropping output.
//
// The worker runs each event past the output hook set before the sink;
// expired output hooks fire their timeout actions on the worker, between
// events.
type Emitter struct {
	cell  chan key.Event
	hooks *HookSet
	sink  KeySink

	log *logging.Logger

	wg        sync.WaitGroup
	closeOnce sync.Once

	sinkMu  sync.Mutex
	sinkErr error

	emitted atomic.Uint64
	caught  atomic.Uint64
}

// NewEmitter creates an emitter over the sink and starts its worker.
func NewEmitter(sink KeySink, hooks *HookSet, log *logging.Logger) *Emitter {
	e := &Emitter{
		cell:  make(chan key.Event),
		hooks: hooks,
		sink:  sink,
		log:   log.WithComponent("emitter"),
	}
	e.wg.Add(1)
	go e.work()
	return e
}

func (e *Emitter) work() {
	defer e.wg.Done()
	for ev := range e.cell {
		if e.failed() {
			// Keep draining so the loop can observe the failure and
			// shut down instead of blocking on the cell.
			continue
		}
		e.hooks.Expire(time.Now())
		if e.hooks.Offer(ev) {
			e.caught.Add(1)
			continue
		}
		if err := e.sink.Emit(ev); err != nil {
			e.sinkMu.Lock()
			if e.sinkErr == nil {
				e.sinkErr = err
			}
			e.sinkMu.Unlock()
			e.log.Error("sink emit failed: %v", err)
			continue
		}
		e.emitted.Add(1)
	}
}

func (e *Emitter) failed() bool {
	e.sinkMu.Lock()
	defer e.sinkMu.Unlock()
	return e.sinkErr != nil
}

// Err returns the first sink failure, if any.
func (e *Emitter) Err() error {
	e.sinkMu.Lock()
	defer e.sinkMu.Unlock()
	return e.sinkErr
}

// Emit hands an event to the worker, blocking until it is taken.
func (e *Emitter) Emit(ev key.Event) {
	e.cell <- ev
}

// Hooks returns the output hook set.
func (e *Emitter) Hooks() *HookSet { return e.hooks }

// Close drains the cell, stops the worker and returns any sink failure.
// Emit must not be called after Close.
func (e *Emitter) Close() error {
	e.closeOnce.Do(func() { close(e.cell) })
	e.wg.Wait()

	e.sinkMu.Lock()
	defer e.sinkMu.Unlock()
	return e.sinkErr
}

// EmitterStats is a snapshot of emitter counters.
type EmitterStats struct {
	Emitted uint64
	Caught  uint64
}

// Stats returns a snapshot of the emitter counters.
func (e *Emitter) Stats() EmitterStats {
	return EmitterStats{
		Emitted: e.emitted.Load(),
		Caught:  e.caught.Load(),
	}
}
