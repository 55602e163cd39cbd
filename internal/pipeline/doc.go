// Package pipeline implements the event pull chain between a key source
// and a key sink: Dispatch (rerun buffer over the source), the input hook
// stage, the Sluice gate, and the Emitter with its output hook set.
//
// Every stage exposes Pull, which requests events from below, applies the
// stage's logic, and yields exactly one event upward. All input-side state
// is owned by the single loop goroutine. Besides the goroutine that pumps
// the source into Dispatch's channel, the emitter worker is the only other
// task and touches nothing but the output cell, the output hook set and
// the sink.
package pipeline
