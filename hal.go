// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package sleeptimer

// EventMask is a bitmask of hardware timer events, passed to
// HAL.EnableInt/DisableInt and to (*Scheduler).ProcessIRQ.
type EventMask uint8

const (
	// EventOverflow fires when the free-running counter wraps from
	// 2^32-1 to 0.
	EventOverflow EventMask = 1 << iota
	// EventCompare fires when the counter equals the configured compare
	// register.
	EventCompare

	// EventAll masks every event source this package knows about; used by
	// the critical-section implementation to mask/unmask atomically.
	EventAll = EventOverflow | EventCompare
)

// HAL is the external collaborator spec.md §6 requires: the abstract
// operations the scheduler needs from the free-running hardware counter
// peripheral. This package never implements HAL itself; see simhal for a
// software-simulated counter suitable for tests and the CLI demo.
//
// Implementations must call (*Scheduler).ProcessIRQ from their interrupt
// vector with the set of events that fired.
type HAL interface {
	// InitTimer starts the counter from zero at a fixed frequency.
	InitTimer()

	// GetCounter returns the current counter value. May be called from
	// any context, including with interrupts masked.
	GetCounter() uint32

	// SetCompare arms a compare match at the given counter value.
	SetCompare(value uint32)

	// EnableInt unmasks the given event sources.
	EnableInt(mask EventMask)

	// DisableInt masks the given event sources.
	DisableInt(mask EventMask)

	// GetFrequency returns ticks per second. Constant over the HAL's
	// lifetime.
	GetFrequency() uint32
}
