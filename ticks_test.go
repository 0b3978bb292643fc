// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package sleeptimer

import "testing"

func TestTickLTAcrossWrap(t *testing.T) {
	a := NewTick(0xFFFFFFF0)
	b := NewTick(0x00000010)
	if !a.LT(b) {
		t.Fatalf("expected %s < %s across the wrap", a, b)
	}
	if b.LT(a) {
		t.Fatalf("expected %s not < %s", b, a)
	}
}

func TestTickEquality(t *testing.T) {
	a := NewTick(42)
	b := NewTick(42)
	if !a.EQ(b) || a.NE(b) {
		t.Fatalf("expected %s == %s", a, b)
	}
	if a.LT(b) || a.GT(b) {
		t.Fatalf("equal ticks must be neither < nor >")
	}
	if !a.LE(b) || !a.GE(b) {
		t.Fatalf("equal ticks must be both <= and >=")
	}
}

func TestTickAddSubRoundTrip(t *testing.T) {
	a := NewTick(1000)
	d := NewTick(250)
	sum := a.Add(d)
	if sum.Sub(d) != a {
		t.Fatalf("(a+d)-d = %s, want %s", sum.Sub(d), a)
	}
}

func TestTickSubWraps(t *testing.T) {
	a := NewTick(5)
	b := NewTick(0xFFFFFFFE)
	// a - b should wrap around to a small positive value.
	got := a.Sub(b)
	want := Tick(7)
	if got != want {
		t.Fatalf("Sub across wrap = %d, want %d", got, want)
	}
}
