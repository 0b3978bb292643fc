// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package sleeptimer

import "testing"

func TestMsToTickRoundsUp(t *testing.T) {
	// 1ms at 32768Hz is 32.768 ticks, which truncates to 32; the +1
	// rounding means "at least 1ms" never fires early.
	got := MsToTick(1, 32768)
	want := Tick(32768/1000 + 1)
	if got != want {
		t.Fatalf("MsToTick(1, 32768) = %d, want %d", got, want)
	}
}

func TestMs32ToTickOverflowGuard(t *testing.T) {
	const freq = 1000000
	maxMs := MaxMsConversion(freq)
	if _, err := Ms32ToTick(maxMs+1, freq); err != ErrInvalidParameter {
		t.Fatalf("Ms32ToTick beyond max = %v, want ErrInvalidParameter", err)
	}
	if _, err := Ms32ToTick(maxMs, freq); err != nil {
		t.Fatalf("Ms32ToTick at max: %v", err)
	}
}

func TestTickToMsPowerOfTwoMatchesDivision(t *testing.T) {
	const freq = 32768 // power of two
	tick := Tick(100000)
	gotShift := TickToMs(tick, freq)
	wantDiv := uint32(uint64(tick) * 1000 / freq)
	if gotShift != wantDiv {
		t.Fatalf("TickToMs shift path = %d, want %d (division)", gotShift, wantDiv)
	}
}

func TestTickToMsNonPowerOfTwo(t *testing.T) {
	const freq = 100000 // not a power of two
	got := TickToMs(Tick(250000), freq)
	want := uint32(2500)
	if got != want {
		t.Fatalf("TickToMs(250000, 100000) = %d, want %d", got, want)
	}
}

func TestTick64ToMsOverflowGuard(t *testing.T) {
	const freq = 1000
	huge := Tick64(^uint64(0))
	if _, err := Tick64ToMs(huge, freq); err != ErrInvalidParameter {
		t.Fatalf("Tick64ToMs(MaxUint64) = %v, want ErrInvalidParameter", err)
	}
}

func TestIsPowerOfTwo(t *testing.T) {
	cases := map[uint32]bool{0: false, 1: true, 2: true, 3: false, 32768: true, 100000: false}
	for v, want := range cases {
		if got := isPowerOfTwo(v); got != want {
			t.Fatalf("isPowerOfTwo(%d) = %v, want %v", v, got, want)
		}
	}
}
