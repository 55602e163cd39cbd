//go:build linux

package device

import (
	"fmt"
	"sync/atomic"

	"golang.org/x/sys/unix"

	"github.com/dshills/keywarp/internal/input/key"
	"github.com/dshills/keywarp/internal/logging"
	"github.com/dshills/keywarp/internal/pipeline"
)

// Ioctl requests from linux/input.h and linux/uinput.h.
const (
	eviocGrab = 0x40044590

	uiSetEvBit   = 0x40045564
	uiSetKeyBit  = 0x40045565
	uiDevCreate  = 0x5501
	uiDevDestroy = 0x5502
)

// EvdevSource reads key events from an evdev node. The device is grabbed
// exclusively so the events reach nothing but this process; Close ungrabs
// and releases it on every exit path.
type EvdevSource struct {
	fd     int
	path   string
	buf    []byte
	closed atomic.Bool
	log    *logging.Logger
}

var _ pipeline.KeySource = (*EvdevSource)(nil)

// OpenEvdev opens and grabs the keyboard at path.
func OpenEvdev(path string, log *logging.Logger) (*EvdevSource, error) {
	fd, err := unix.Open(path, unix.O_RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	if err := unix.IoctlSetInt(fd, eviocGrab, 1); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("grabbing %s: %w", path, err)
	}
	return &EvdevSource{
		fd:   fd,
		path: path,
		buf:  make([]byte, rawEventSize),
		log:  log.WithComponent("evdev"),
	}, nil
}

// Next blocks until the device produces a key event.
func (s *EvdevSource) Next() (key.Event, error) {
	for {
		if s.closed.Load() {
			return key.Event{}, pipeline.ErrSourceClosed
		}
		n, err := unix.Read(s.fd, s.buf)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			if s.closed.Load() {
				return key.Event{}, pipeline.ErrSourceClosed
			}
			return key.Event{}, fmt.Errorf("reading %s: %w", s.path, err)
		}
		raw, err := decodeRaw(s.buf[:n])
		if err != nil {
			return key.Event{}, fmt.Errorf("decoding %s: %w", s.path, err)
		}
		ev, ok := raw.KeyEvent()
		if !ok {
			continue
		}
		return ev, nil
	}
}

// Close ungrabs and releases the device. Next returns ErrSourceClosed
// afterwards.
func (s *EvdevSource) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	if err := unix.IoctlSetInt(s.fd, eviocGrab, 0); err != nil {
		s.log.Warn("ungrab %s: %v", s.path, err)
	}
	return unix.Close(s.fd)
}
