package pipeline

import (
	"errors"

	"github.com/dshills/keywarp/internal/input/key"
)

// ErrSourceClosed is returned by key sources interrupted by Close. The
// loop treats it as a clean shutdown rather than an I/O failure.
var ErrSourceClosed = errors.New("key source closed")

// KeySource produces raw key events. Implementations block in Next until
// an event is available and return an error on device failure; errors are
// fatal to the pipeline.
type KeySource interface {
	Next() (key.Event, error)
}

// KeySink consumes remapped key events. Implementations must not reorder
// events.
type KeySink interface {
	Emit(ev key.Event) error
}

// Stage is the pull side of a pipeline segment.
type Stage interface {
	Pull() (key.Event, error)
}
