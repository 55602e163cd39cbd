package app

import (
	"sync/atomic"
	"time"
)

// Metrics tracks loop-side counters. Component counters (dispatch, hooks,
// sluice, emitter) live with their components and are read through their
// Stats methods; Snapshot covers the loop counters only.
type Metrics struct {
	events     atomic.Uint64
	presses    atomic.Uint64
	duplicates atomic.Uint64
	unmapped   atomic.Uint64
	reloads    atomic.Uint64

	startTime time.Time
}

// NewMetrics creates a metrics tracker.
func NewMetrics() *Metrics {
	return &Metrics{startTime: time.Now()}
}

// RecordEvent counts an event reaching the loop.
func (m *Metrics) RecordEvent() { m.events.Add(1) }

// RecordPress counts a dispatched press.
func (m *Metrics) RecordPress() { m.presses.Add(1) }

// RecordDuplicate counts a press refused by alternation.
func (m *Metrics) RecordDuplicate() { m.duplicates.Add(1) }

// RecordUnmapped counts a press with no binding on any layer.
func (m *Metrics) RecordUnmapped() { m.unmapped.Add(1) }

// RecordReload counts a layout reload.
func (m *Metrics) RecordReload() { m.reloads.Add(1) }

// Snapshot is a point-in-time view of the loop counters.
type Snapshot struct {
	Events     uint64
	Presses    uint64
	Duplicates uint64
	Unmapped   uint64
	Reloads    uint64
	Uptime     time.Duration
}

// Snapshot returns the current counter values.
func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		Events:     m.events.Load(),
		Presses:    m.presses.Load(),
		Duplicates: m.duplicates.Load(),
		Unmapped:   m.unmapped.Load(),
		Reloads:    m.reloads.Load(),
		Uptime:     time.Since(m.startTime),
	}
}
