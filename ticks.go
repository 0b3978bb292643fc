// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package sleeptimer

import (
	"strconv"
)

// MaxTicksDiff is the largest delta that can be represented unambiguously
// between two Tick values (half the 32-bit tick space). Two ticks can only
// be ordered meaningfully if their true difference is strictly below this.
const MaxTicksDiff = 1 << 31

// Tick is a hardware-counter reading: a monotonically increasing, wrapping
// 32-bit value with no absolute reference. It has no zero value of its own
// significance; only differences between Ticks (computed via the methods
// below, never raw subtraction) are meaningful.
type Tick uint32

// NewTick wraps a raw counter reading into a Tick.
func NewTick(v uint32) Tick {
	return Tick(v)
}

// Val returns the raw uint32 counter value.
func (t Tick) Val() uint32 {
	return uint32(t)
}

// EQ reports whether t == u, modulo 2^32.
func (t Tick) EQ(u Tick) bool {
	return t == u
}

// NE reports whether t != u, modulo 2^32.
func (t Tick) NE(u Tick) bool {
	return t != u
}

// LT reports whether t < u, interpreting t-u as a signed delta (i.e. it
// assumes |t-u| < MaxTicksDiff, per the hardware counter's wrap contract).
func (t Tick) LT(u Tick) bool {
	return uint32(t-u)&(1<<31) != 0 && t != u
}

// GT reports whether t > u.
func (t Tick) GT(u Tick) bool {
	return !t.LT(u) && t != u
}

// LE reports whether t <= u.
func (t Tick) LE(u Tick) bool {
	return t.LT(u) || t == u
}

// GE reports whether t >= u.
func (t Tick) GE(u Tick) bool {
	return !t.LT(u)
}

// Add returns t+u, wrapping modulo 2^32.
func (t Tick) Add(u Tick) Tick {
	return t + u
}

// Sub returns t-u, wrapping modulo 2^32 (the "unsigned modular difference"
// that spec.md §3 requires all deadline arithmetic to use).
func (t Tick) Sub(u Tick) Tick {
	return t - u
}

// AddUint32 adds a raw uint32 and returns the wrapped result.
func (t Tick) AddUint32(u uint32) Tick {
	return t + Tick(u)
}

// String renders the raw counter value.
func (t Tick) String() string {
	return strconv.FormatUint(uint64(t), 10)
}

// Tick64 is a 64-bit tick count composed of the 32-bit hardware counter in
// the low bits and the overflow count in the high bits (see
// (*Scheduler).TickCount64). Ordinary arithmetic and comparison apply.
// TickCount64's overflow count is 8 bits wide, so the values it returns
// wrap after 2^40 ticks (about 388 days at 32.768kHz).
type Tick64 uint64
