// Package device provides the concrete key sources and sinks: a Linux
// evdev source and uinput sink over raw input events, and a portable
// tcell-based dry-run device for exercising layouts without device
// access.
package device

import (
	"encoding/binary"
	"fmt"

	"github.com/dshills/keywarp/internal/input/key"
)

// Raw event types from the Linux input protocol.
const (
	evSyn uint16 = 0x00
	evKey uint16 = 0x01
	evMsc uint16 = 0x04

	synReport uint16 = 0

	valueRelease int32 = 0
	valuePress   int32 = 1
	valueRepeat  int32 = 2
)

// rawEventSize is the wire size of one input_event on 64-bit platforms.
const rawEventSize = 24

// RawEvent mirrors the kernel input_event struct.
type RawEvent struct {
	Sec   int64
	Usec  int64
	Type  uint16
	Code  uint16
	Value int32
}

// decodeRaw parses one input_event frame.
func decodeRaw(buf []byte) (RawEvent, error) {
	if len(buf) < rawEventSize {
		return RawEvent{}, fmt.Errorf("short input event: %d bytes", len(buf))
	}
	return RawEvent{
		Sec:   int64(binary.LittleEndian.Uint64(buf[0:8])),
		Usec:  int64(binary.LittleEndian.Uint64(buf[8:16])),
		Type:  binary.LittleEndian.Uint16(buf[16:18]),
		Code:  binary.LittleEndian.Uint16(buf[18:20]),
		Value: int32(binary.LittleEndian.Uint32(buf[20:24])),
	}, nil
}

// encodeRaw writes one input_event frame.
func encodeRaw(ev RawEvent) []byte {
	buf := make([]byte, rawEventSize)
	binary.LittleEndian.PutUint64(buf[0:8], uint64(ev.Sec))
	binary.LittleEndian.PutUint64(buf[8:16], uint64(ev.Usec))
	binary.LittleEndian.PutUint16(buf[16:18], ev.Type)
	binary.LittleEndian.PutUint16(buf[18:20], ev.Code)
	binary.LittleEndian.PutUint32(buf[20:24], uint32(ev.Value))
	return buf
}

// KeyEvent translates a raw frame into a pipeline event. Non-key frames
// return false. Auto-repeat surfaces as a press; the loop's alternation
// check drops it.
func (r RawEvent) KeyEvent() (key.Event, bool) {
	if r.Type != evKey {
		return key.Event{}, false
	}
	switch r.Value {
	case valuePress, valueRepeat:
		return key.NewPress(key.Code(r.Code)), true
	case valueRelease:
		return key.NewRelease(key.Code(r.Code)), true
	default:
		return key.Event{}, false
	}
}

// rawFromKey translates a pipeline event into a raw key frame.
func rawFromKey(ev key.Event) RawEvent {
	value := valuePress
	if ev.IsRelease() {
		value = valueRelease
	}
	return RawEvent{
		Type:  evKey,
		Code:  uint16(ev.Code),
		Value: value,
	}
}

// rawSyn builds the report separator emitted after each key frame.
func rawSyn() RawEvent {
	return RawEvent{Type: evSyn, Code: synReport}
}
