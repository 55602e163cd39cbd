package device

import (
	"fmt"
	"sync"
	"sync/atomic"
	"unicode"

	"github.com/gdamore/tcell/v2"

	"github.com/dshills/keywarp/internal/input/key"
	"github.com/dshills/keywarp/internal/logging"
	"github.com/dshills/keywarp/internal/pipeline"
)

// Term is the dry-run device: a key source and sink over a tcell screen.
// Each keystroke synthesizes a press immediately followed by a release,
// so emit, macro, compose and layer-switch buttons can be exercised
// without device access. Hold-based buttons always resolve as taps here;
// terminals report no key releases.
//
// Esc or Ctrl-C ends the session.
type Term struct {
	screen tcell.Screen

	queue  []key.Event
	closed atomic.Bool

	mu  sync.Mutex
	row int

	log *logging.Logger
}

var (
	_ pipeline.KeySource = (*Term)(nil)
	_ pipeline.KeySink   = (*Term)(nil)
)

// NewTerm initializes the dry-run screen.
func NewTerm(log *logging.Logger) (*Term, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("creating screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return nil, fmt.Errorf("initializing screen: %w", err)
	}
	screen.Clear()

	t := &Term{
		screen: screen,
		log:    log.WithComponent("term"),
	}
	t.banner()
	return t, nil
}

// banner repaints the header. Callers either hold the mutex or run
// before any concurrency starts.
func (t *Term) banner() {
	t.draw(0, "keywarp dry run - keystrokes become press/release taps")
	t.draw(1, "esc or ctrl-c quits")
	t.row = 3
	t.screen.Show()
}

// Next synthesizes events from keystrokes: a press, then its release on
// the following pull.
func (t *Term) Next() (key.Event, error) {
	if len(t.queue) > 0 {
		ev := t.queue[0]
		t.queue = t.queue[1:]
		return ev, nil
	}

	for {
		if t.closed.Load() {
			return key.Event{}, pipeline.ErrSourceClosed
		}
		polled := t.screen.PollEvent()
		if polled == nil {
			return key.Event{}, pipeline.ErrSourceClosed
		}
		ev, ok := polled.(*tcell.EventKey)
		if !ok {
			continue
		}
		if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC {
			return key.Event{}, pipeline.ErrSourceClosed
		}
		code, ok := codeForTcell(ev)
		if !ok {
			continue
		}
		t.echo("in  " + code.String())
		t.queue = append(t.queue, key.NewRelease(code))
		return key.NewPress(code), nil
	}
}

// Emit shows the outbound event on the screen.
func (t *Term) Emit(ev key.Event) error {
	t.echo("out " + ev.String())
	return nil
}

func (t *Term) echo(line string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, height := t.screen.Size()
	if t.row >= height {
		t.screen.Clear()
		t.banner()
	}
	t.draw(t.row, line)
	t.row++
	t.screen.Show()
}

func (t *Term) draw(row int, text string) {
	for col, r := range text {
		t.screen.SetContent(col, row, r, nil, tcell.StyleDefault)
	}
}

// Close finalizes the screen; a blocked Next returns ErrSourceClosed.
func (t *Term) Close() error {
	if !t.closed.CompareAndSwap(false, true) {
		return nil
	}
	t.screen.Fini()
	return nil
}

// codeForTcell maps a terminal keystroke onto a keycode.
func codeForTcell(ev *tcell.EventKey) (key.Code, bool) {
	switch ev.Key() {
	case tcell.KeyRune:
		r := unicode.ToLower(ev.Rune())
		if r == ' ' {
			return key.CodeSpace, true
		}
		return key.Lookup(string(r))
	case tcell.KeyEnter:
		return key.CodeEnter, true
	case tcell.KeyTab:
		return key.CodeTab, true
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		return key.CodeBackspace, true
	case tcell.KeyUp:
		return key.CodeUp, true
	case tcell.KeyDown:
		return key.CodeDown, true
	case tcell.KeyLeft:
		return key.CodeLeft, true
	case tcell.KeyRight:
		return key.CodeRight, true
	case tcell.KeyHome:
		return key.CodeHome, true
	case tcell.KeyEnd:
		return key.CodeEnd, true
	case tcell.KeyPgUp:
		return key.CodePageUp, true
	case tcell.KeyPgDn:
		return key.CodePageDown, true
	case tcell.KeyDelete:
		return key.CodeDelete, true
	case tcell.KeyF1:
		return key.CodeF1, true
	case tcell.KeyF2:
		return key.CodeF2, true
	case tcell.KeyF3:
		return key.CodeF3, true
	case tcell.KeyF4:
		return key.CodeF4, true
	default:
		return 0, false
	}
}
