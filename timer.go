// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package sleeptimer

// TimerCallback is invoked when a timer expires. It runs in "ISR context"
// (inside ProcessIRQ) with the critical section released, so it may call
// any public Scheduler method, including starting or stopping other
// timers. It must not block indefinitely: doing so delays every other
// pending timer, since dispatch doesn't resume until the callback returns.
type TimerCallback func(sched *Scheduler, h *TimerHandle, data any)

// TimerHandle is a caller-owned record for a single software timer. The
// scheduler never allocates; callers embed or otherwise own a TimerHandle
// for as long as it may be on the list (between Start* and either Stop or
// the handle's own callback firing). Do not move, copy, or reuse a
// TimerHandle while it is registered.
type TimerHandle struct {
	// next links to the next handle in the delta list; nil for the tail.
	next *TimerHandle

	// delta is the ticks from the previous list node's deadline (or from
	// Scheduler.lastDeltaUpdateCount for the head) until this timer fires.
	delta Tick

	// timeoutPeriodic is the reload value; 0 means one-shot.
	timeoutPeriodic Tick

	callback     TimerCallback
	callbackData any

	// priority breaks ties among timers expiring on the same tick;
	// smaller fires first.
	priority uint8

	// optionFlags is an opaque caller tag, used only for filtering by
	// RemainingTimeOfFirstTimer.
	optionFlags uint16

	// onList records whether this handle is currently linked into the
	// scheduler's delta list. Mutated only inside the critical section.
	onList bool
}

// Priority returns the handle's tie-breaking priority (smaller fires
// first among timers expiring on the same tick).
func (h *TimerHandle) Priority() uint8 {
	return h.priority
}

// OptionFlags returns the handle's opaque filter tag.
func (h *TimerHandle) OptionFlags() uint16 {
	return h.optionFlags
}

// IsPeriodic reports whether the handle reloads on expiry.
func (h *TimerHandle) IsPeriodic() bool {
	return h.timeoutPeriodic != 0
}
