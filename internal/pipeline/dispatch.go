package pipeline

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/dshills/keywarp/internal/input/key"
	"github.com/dshills/keywarp/internal/logging"
)

// Dispatch sits directly above the key source. It owns the rerun buffer of
// replayed and injected events; a pull drains the buffer before asking the
// source for fresh input.
//
// The source is pumped on a dedicated goroutine into a channel so that
// PullUntil can wait for an event and a hook deadline at the same time.
// The rerun buffer itself is touched only by the loop goroutine.
type Dispatch struct {
	rerun []key.Event

	events chan key.Event
	errs   chan error
	srcErr error

	stop     chan struct{}
	stopOnce sync.Once

	log *logging.Logger

	pulled   atomic.Uint64
	replayed atomic.Uint64
}

// NewDispatch creates a Dispatch over the given source and starts pumping
// it. Close must be called to release the pump goroutine.
func NewDispatch(src KeySource, log *logging.Logger) *Dispatch {
	d := &Dispatch{
		events: make(chan key.Event),
		errs:   make(chan error, 1),
		stop:   make(chan struct{}),
		log:    log.WithComponent("dispatch"),
	}
	go d.pump(src)
	return d
}

func (d *Dispatch) pump(src KeySource) {
	for {
		ev, err := src.Next()
		if err != nil {
			select {
			case d.errs <- err:
			case <-d.stop:
			}
			return
		}
		select {
		case d.events <- ev:
		case <-d.stop:
			return
		}
	}
}

// Rerun prepends events to the head of the rerun buffer, preserving their
// relative order. Replayed events are always yielded before anything the
// source produces next.
func (d *Dispatch) Rerun(events []key.Event) {
	if len(events) == 0 {
		return
	}
	d.replayed.Add(uint64(len(events)))
	d.rerun = append(append(make([]key.Event, 0, len(events)+len(d.rerun)), events...), d.rerun...)
}

// Inject pushes a single synthetic event onto the head of the rerun buffer.
func (d *Dispatch) Inject(ev key.Event) {
	d.Rerun([]key.Event{ev})
}

// Pull returns the head of the rerun buffer if non-empty, otherwise blocks
// on the source.
func (d *Dispatch) Pull() (key.Event, error) {
	if ev, ok := d.popRerun(); ok {
		return ev, nil
	}
	if d.srcErr != nil {
		return key.Event{}, d.srcErr
	}
	select {
	case ev := <-d.events:
		d.pulled.Add(1)
		return ev, nil
	case err := <-d.errs:
		d.srcErr = err
		return key.Event{}, err
	}
}

// PullUntil is Pull with a deadline. The third return is nil and the second
// true when the deadline elapsed before an event was available. The rerun
// buffer is never subject to the deadline; buffered events return
// immediately.
func (d *Dispatch) PullUntil(deadline time.Time) (key.Event, bool, error) {
	if ev, ok := d.popRerun(); ok {
		return ev, false, nil
	}
	if d.srcErr != nil {
		return key.Event{}, false, d.srcErr
	}

	wait := time.Until(deadline)
	if wait <= 0 {
		return key.Event{}, true, nil
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case ev := <-d.events:
		d.pulled.Add(1)
		return ev, false, nil
	case err := <-d.errs:
		d.srcErr = err
		return key.Event{}, false, err
	case <-timer.C:
		return key.Event{}, true, nil
	}
}

func (d *Dispatch) popRerun() (key.Event, bool) {
	if len(d.rerun) == 0 {
		return key.Event{}, false
	}
	ev := d.rerun[0]
	d.rerun = d.rerun[1:]
	d.pulled.Add(1)
	return ev, true
}

// Close stops the source pump. The source itself is closed by its owner.
func (d *Dispatch) Close() {
	d.stopOnce.Do(func() { close(d.stop) })
}

// DispatchStats is a snapshot of dispatch counters.
type DispatchStats struct {
	Pulled   uint64
	Replayed uint64
}

// Stats returns a snapshot of the dispatch counters.
func (d *Dispatch) Stats() DispatchStats {
	return DispatchStats{
		Pulled:   d.pulled.Load(),
		Replayed: d.replayed.Load(),
	}
}
