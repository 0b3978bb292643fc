// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package sleeptimer

// criticalSection implements the save-restore interrupt-masking discipline
// of spec.md §5: every read-modify-write on the delta list is bracketed by
// Enter/Exit, nesting is permitted, and an inner Exit restores to the
// outer section's masked state rather than unconditionally unmasking.
//
// This is deliberately not a sync.Mutex. The scheduler models a single CPU
// plus one reentrant ISR context, not multiple OS threads (spec.md §5): a
// callback invoked from ProcessIRQ runs with interrupts re-enabled and may
// itself call back into the scheduler (e.g. stopping another timer), which
// would deadlock against a blocking lock held by the very call stack that's
// re-entering. A plain depth counter gives the same exclusion against a
// real concurrent ISR while staying reentrant for that same-stack case.
type criticalSection struct {
	hal   HAL
	depth int
}

func (cs *criticalSection) init(hal HAL) {
	cs.hal = hal
	cs.depth = 0
}

// enter masks all timer interrupt sources, the first time it's called at
// depth 0; nested calls just bump the depth.
func (cs *criticalSection) enter() {
	if cs.depth == 0 {
		cs.hal.DisableInt(EventAll)
	}
	cs.depth++
}

// exit unmasks interrupts once depth returns to 0.
func (cs *criticalSection) exit() {
	cs.depth--
	if cs.depth < 0 {
		PANIC("criticalSection.exit called without matching enter\n")
	}
	if cs.depth == 0 {
		cs.hal.EnableInt(EventAll)
	}
}
