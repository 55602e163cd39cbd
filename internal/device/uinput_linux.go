//go:build linux

package device

import (
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"

	"github.com/dshills/keywarp/internal/input/key"
	"github.com/dshills/keywarp/internal/logging"
	"github.com/dshills/keywarp/internal/pipeline"
)

// uinputPath is the kernel's user-level input device.
const uinputPath = "/dev/uinput"

// maxKeyBit is the highest keycode enabled on the virtual device.
const maxKeyBit = 255

// uinputUserDev mirrors the kernel uinput_user_dev struct.
type uinputUserDev struct {
	Name [80]byte
	ID   struct {
		Bustype uint16
		Vendor  uint16
		Product uint16
		Version uint16
	}
	FFEffectsMax uint32
	Absmax       [64]int32
	Absmin       [64]int32
	Absfuzz      [64]int32
	Absflat      [64]int32
}

// encodeUserDev lays the device description out the way the kernel
// expects it: name, id, ff_effects_max, then the four abs arrays.
func encodeUserDev(dev *uinputUserDev) []byte {
	size := 80 + 8 + 4 + 4*4*64
	buf := make([]byte, 0, size)
	buf = append(buf, dev.Name[:]...)
	for _, v := range []uint16{dev.ID.Bustype, dev.ID.Vendor, dev.ID.Product, dev.ID.Version} {
		buf = append(buf, byte(v), byte(v>>8))
	}
	buf = append(buf, byte(dev.FFEffectsMax), byte(dev.FFEffectsMax>>8),
		byte(dev.FFEffectsMax>>16), byte(dev.FFEffectsMax>>24))
	for _, arr := range [][64]int32{dev.Absmax, dev.Absmin, dev.Absfuzz, dev.Absflat} {
		for _, v := range arr {
			u := uint32(v)
			buf = append(buf, byte(u), byte(u>>8), byte(u>>16), byte(u>>24))
		}
	}
	return buf
}

// UinputSink emits key events through a virtual uinput keyboard. The
// device is destroyed on Close on every exit path; the kernel removes the
// node once the fd is gone.
type UinputSink struct {
	fd     int
	closed atomic.Bool
	log    *logging.Logger
}

var _ pipeline.KeySink = (*UinputSink)(nil)

// OpenUinput creates a virtual keyboard with the given device name.
func OpenUinput(name string, log *logging.Logger) (*UinputSink, error) {
	fd, err := unix.Open(uinputPath, unix.O_WRONLY|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", uinputPath, err)
	}

	if err := unix.IoctlSetInt(fd, uiSetEvBit, int(evKey)); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("enabling key events: %w", err)
	}
	if err := unix.IoctlSetInt(fd, uiSetEvBit, int(evSyn)); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("enabling syn events: %w", err)
	}
	for code := 1; code <= maxKeyBit; code++ {
		if err := unix.IoctlSetInt(fd, uiSetKeyBit, code); err != nil {
			unix.Close(fd)
			return nil, fmt.Errorf("enabling keycode %d: %w", code, err)
		}
	}

	var dev uinputUserDev
	copy(dev.Name[:], name)
	dev.ID.Bustype = 0x03 // BUS_USB
	dev.ID.Vendor = 0x1
	dev.ID.Product = 0x1
	dev.ID.Version = 1

	buf := encodeUserDev(&dev)
	if _, err := unix.Write(fd, buf); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("writing device description: %w", err)
	}
	if err := unix.IoctlSetInt(fd, uiDevCreate, 0); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("creating device: %w", err)
	}

	// Give the desktop a moment to pick the new device up before events
	// start flowing.
	time.Sleep(200 * time.Millisecond)

	return &UinputSink{fd: fd, log: log.WithComponent("uinput")}, nil
}

// Emit writes one key frame followed by a report separator.
func (s *UinputSink) Emit(ev key.Event) error {
	if s.closed.Load() {
		return fmt.Errorf("emit on closed uinput device")
	}
	raw := rawFromKey(ev)
	now := time.Now()
	raw.Sec = now.Unix()
	raw.Usec = int64(now.Nanosecond() / 1000)

	if _, err := unix.Write(s.fd, encodeRaw(raw)); err != nil {
		return fmt.Errorf("writing key event: %w", err)
	}
	syn := rawSyn()
	syn.Sec = raw.Sec
	syn.Usec = raw.Usec
	if _, err := unix.Write(s.fd, encodeRaw(syn)); err != nil {
		return fmt.Errorf("writing syn event: %w", err)
	}
	return nil
}

// Close destroys the virtual device.
func (s *UinputSink) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	if err := unix.IoctlSetInt(s.fd, uiDevDestroy, 0); err != nil {
		s.log.Warn("destroying uinput device: %v", err)
	}
	return unix.Close(s.fd)
}
