package pipeline

import (
	"errors"
	"testing"
	"time"

	"github.com/dshills/keywarp/internal/input/key"
	"github.com/dshills/keywarp/internal/logging"
)

// chanSource feeds events from a channel and fails with err once the
// channel closes.
type chanSource struct {
	ch  chan key.Event
	err error
}

func newChanSource() *chanSource {
	return &chanSource{ch: make(chan key.Event, 16), err: ErrSourceClosed}
}

func (s *chanSource) Next() (key.Event, error) {
	ev, ok := <-s.ch
	if !ok {
		return key.Event{}, s.err
	}
	return ev, nil
}

func TestDispatchPullFromSource(t *testing.T) {
	src := newChanSource()
	d := NewDispatch(src, logging.Discard())
	defer d.Close()

	want := key.NewPress(key.CodeA)
	src.ch <- want

	got, err := d.Pull()
	if err != nil {
		t.Fatalf("Pull() error = %v", err)
	}
	if got.Code != want.Code || got.Switch != want.Switch {
		t.Errorf("Pull() = %v, want %v", got, want)
	}
}

func TestDispatchRerunBeforeSource(t *testing.T) {
	src := newChanSource()
	d := NewDispatch(src, logging.Discard())
	defer d.Close()

	src.ch <- key.NewPress(key.CodeC)
	d.Rerun([]key.Event{key.NewPress(key.CodeA), key.NewPress(key.CodeB)})

	var codes []key.Code
	for i := 0; i < 3; i++ {
		ev, err := d.Pull()
		if err != nil {
			t.Fatalf("Pull() error = %v", err)
		}
		codes = append(codes, ev.Code)
	}
	want := []key.Code{key.CodeA, key.CodeB, key.CodeC}
	for i := range want {
		if codes[i] != want[i] {
			t.Errorf("pull %d = %v, want %v", i, codes[i], want[i])
		}
	}
}

func TestDispatchRerunPrepends(t *testing.T) {
	src := newChanSource()
	d := NewDispatch(src, logging.Discard())
	defer d.Close()

	d.Rerun([]key.Event{key.NewPress(key.CodeC)})
	d.Rerun([]key.Event{key.NewPress(key.CodeA), key.NewPress(key.CodeB)})

	want := []key.Code{key.CodeA, key.CodeB, key.CodeC}
	for i, wc := range want {
		ev, err := d.Pull()
		if err != nil {
			t.Fatalf("Pull() error = %v", err)
		}
		if ev.Code != wc {
			t.Errorf("pull %d = %v, want %v", i, ev.Code, wc)
		}
	}
}

func TestDispatchInject(t *testing.T) {
	src := newChanSource()
	d := NewDispatch(src, logging.Discard())
	defer d.Close()

	d.Rerun([]key.Event{key.NewPress(key.CodeB)})
	d.Inject(key.NewPress(key.CodeA))

	ev, err := d.Pull()
	if err != nil {
		t.Fatalf("Pull() error = %v", err)
	}
	if ev.Code != key.CodeA {
		t.Errorf("injected event should come first, got %v", ev.Code)
	}
}

func TestDispatchPullUntilTimeout(t *testing.T) {
	src := newChanSource()
	d := NewDispatch(src, logging.Discard())
	defer d.Close()

	start := time.Now()
	_, timedOut, err := d.PullUntil(start.Add(30 * time.Millisecond))
	if err != nil {
		t.Fatalf("PullUntil() error = %v", err)
	}
	if !timedOut {
		t.Fatal("PullUntil() should have timed out")
	}
	if elapsed := time.Since(start); elapsed < 25*time.Millisecond {
		t.Errorf("PullUntil() returned after %v, too early", elapsed)
	}
}

func TestDispatchPullUntilIgnoresDeadlineForRerun(t *testing.T) {
	src := newChanSource()
	d := NewDispatch(src, logging.Discard())
	defer d.Close()

	d.Rerun([]key.Event{key.NewPress(key.CodeA)})

	// Deadline already past; buffered events still return immediately.
	ev, timedOut, err := d.PullUntil(time.Now().Add(-time.Second))
	if err != nil {
		t.Fatalf("PullUntil() error = %v", err)
	}
	if timedOut {
		t.Fatal("buffered event should beat an expired deadline")
	}
	if ev.Code != key.CodeA {
		t.Errorf("PullUntil() = %v, want %v", ev.Code, key.CodeA)
	}
}

func TestDispatchSourceError(t *testing.T) {
	src := newChanSource()
	d := NewDispatch(src, logging.Discard())
	defer d.Close()

	close(src.ch)

	_, err := d.Pull()
	if !errors.Is(err, ErrSourceClosed) {
		t.Fatalf("Pull() error = %v, want ErrSourceClosed", err)
	}
	// The error is sticky.
	_, err = d.Pull()
	if !errors.Is(err, ErrSourceClosed) {
		t.Fatalf("second Pull() error = %v, want ErrSourceClosed", err)
	}
}

func TestDispatchStats(t *testing.T) {
	src := newChanSource()
	d := NewDispatch(src, logging.Discard())
	defer d.Close()

	d.Rerun([]key.Event{key.NewPress(key.CodeA)})
	if _, err := d.Pull(); err != nil {
		t.Fatalf("Pull() error = %v", err)
	}

	stats := d.Stats()
	if stats.Pulled != 1 {
		t.Errorf("Pulled = %d, want 1", stats.Pulled)
	}
	if stats.Replayed != 1 {
		t.Errorf("Replayed = %d, want 1", stats.Replayed)
	}
}
