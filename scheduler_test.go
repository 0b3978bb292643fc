// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package sleeptimer

import "testing"

// fakeHAL is a minimal, single-goroutine HAL double: the test drives the
// counter and interrupt delivery directly, rather than via a real ticking
// goroutine, so dispatch order is fully deterministic.
type fakeHAL struct {
	freq    uint32
	counter uint32
	compare uint32
	mask    EventMask
}

func newFakeHAL(freq uint32) *fakeHAL { return &fakeHAL{freq: freq} }

func (h *fakeHAL) InitTimer()                { h.counter = 0 }
func (h *fakeHAL) GetCounter() uint32        { return h.counter }
func (h *fakeHAL) SetCompare(value uint32)   { h.compare = value }
func (h *fakeHAL) EnableInt(mask EventMask)  { h.mask |= mask }
func (h *fakeHAL) DisableInt(mask EventMask) { h.mask &^= mask }
func (h *fakeHAL) GetFrequency() uint32      { return h.freq }

// advanceTo moves the counter forward and, if it just crossed the armed
// compare value while the compare interrupt is unmasked, dispatches a
// compare IRQ (mirroring a real timer peripheral firing once per match).
func (h *fakeHAL) advanceTo(sched *Scheduler, newCounter uint32) {
	h.counter = newCounter
	if h.mask&EventCompare != 0 && h.counter >= h.compare {
		sched.ProcessIRQ(EventCompare)
	}
}

func TestStartTimerFiresAtExpectedTick(t *testing.T) {
	hal := newFakeHAL(1000)
	sched, err := New(hal)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	fired := false
	var handle TimerHandle
	if err := sched.StartTimer(&handle, 100, func(*Scheduler, *TimerHandle, any) {
		fired = true
	}, nil, 0, 0); err != nil {
		t.Fatalf("StartTimer: %v", err)
	}

	hal.advanceTo(sched, 99)
	if fired {
		t.Fatalf("fired early at tick 99")
	}
	hal.advanceTo(sched, 100)
	if !fired {
		t.Fatalf("did not fire at tick 100")
	}
}

func TestPriorityOrderOnSimultaneousExpiry(t *testing.T) {
	hal := newFakeHAL(1000)
	sched, _ := New(hal)

	var order []string
	var a, b TimerHandle
	_ = sched.StartTimer(&a, 50, func(*Scheduler, *TimerHandle, any) {
		order = append(order, "a")
	}, nil, 9, 0)
	_ = sched.StartTimer(&b, 50, func(*Scheduler, *TimerHandle, any) {
		order = append(order, "b")
	}, nil, 1, 0)

	hal.advanceTo(sched, 50)

	if len(order) != 2 || order[0] != "b" || order[1] != "a" {
		t.Fatalf("dispatch order = %v, want [b a] (lower priority number first)", order)
	}
}

func TestStartTimerZeroTimeoutFiresSynchronously(t *testing.T) {
	hal := newFakeHAL(1000)
	sched, _ := New(hal)

	fired := false
	var handle TimerHandle
	if err := sched.StartTimer(&handle, 0, func(*Scheduler, *TimerHandle, any) {
		fired = true
	}, nil, 0, 0); err != nil {
		t.Fatalf("StartTimer: %v", err)
	}
	if !fired {
		t.Fatalf("zero-timeout one-shot must fire synchronously inside StartTimer")
	}
	if running, _ := sched.IsTimerRunning(&handle); running {
		t.Fatalf("zero-timeout one-shot must not be left on the list")
	}
}

func TestStopTimerRemovesFromList(t *testing.T) {
	hal := newFakeHAL(1000)
	sched, _ := New(hal)

	fired := false
	var handle TimerHandle
	_ = sched.StartTimer(&handle, 100, func(*Scheduler, *TimerHandle, any) {
		fired = true
	}, nil, 0, 0)

	if err := sched.StopTimer(&handle); err != nil {
		t.Fatalf("StopTimer: %v", err)
	}
	if running, _ := sched.IsTimerRunning(&handle); running {
		t.Fatalf("handle still reports running after StopTimer")
	}

	hal.advanceTo(sched, 200)
	if fired {
		t.Fatalf("stopped timer fired anyway")
	}
}

func TestStopTimerOnAlreadyStoppedHandleReturnsError(t *testing.T) {
	hal := newFakeHAL(1000)
	sched, _ := New(hal)

	var handle TimerHandle
	if err := sched.StopTimer(&handle); err != ErrInvalidState {
		t.Fatalf("StopTimer on never-started handle = %v, want ErrInvalidState", err)
	}
}

func TestPeriodicTimerReloads(t *testing.T) {
	hal := newFakeHAL(1000)
	sched, _ := New(hal)

	count := 0
	var handle TimerHandle
	_ = sched.StartPeriodicTimer(&handle, 10, func(*Scheduler, *TimerHandle, any) {
		count++
	}, nil, 0, 0)

	hal.advanceTo(sched, 10)
	hal.advanceTo(sched, 20)
	hal.advanceTo(sched, 30)

	if count != 3 {
		t.Fatalf("periodic fire count = %d, want 3", count)
	}
	if running, _ := sched.IsTimerRunning(&handle); !running {
		t.Fatalf("periodic timer should still be running after firing")
	}
}

func TestTimerTimeRemaining(t *testing.T) {
	hal := newFakeHAL(1000)
	sched, _ := New(hal)

	var handle TimerHandle
	_ = sched.StartTimer(&handle, 100, func(*Scheduler, *TimerHandle, any) {}, nil, 0, 0)

	hal.counter = 40
	remaining, err := sched.TimerTimeRemaining(&handle)
	if err != nil {
		t.Fatalf("TimerTimeRemaining: %v", err)
	}
	if remaining != 60 {
		t.Fatalf("remaining = %d, want 60", remaining)
	}
}

func TestTimerTimeRemainingNotRunning(t *testing.T) {
	hal := newFakeHAL(1000)
	sched, _ := New(hal)

	var handle TimerHandle
	if _, err := sched.TimerTimeRemaining(&handle); err != ErrNotReady {
		t.Fatalf("TimerTimeRemaining on unstarted handle = %v, want ErrNotReady", err)
	}
}

func TestRemainingTimeOfFirstTimerFiltersByFlags(t *testing.T) {
	hal := newFakeHAL(1000)
	sched, _ := New(hal)

	var a, b TimerHandle
	_ = sched.StartTimer(&a, 50, func(*Scheduler, *TimerHandle, any) {}, nil, 0, 0x1)
	_ = sched.StartTimer(&b, 80, func(*Scheduler, *TimerHandle, any) {}, nil, 0, 0x2)

	remaining, err := sched.RemainingTimeOfFirstTimer(0x2)
	if err != nil {
		t.Fatalf("RemainingTimeOfFirstTimer: %v", err)
	}
	if remaining != 80 {
		t.Fatalf("remaining for flag 0x2 = %d, want 80", remaining)
	}

	if _, err := sched.RemainingTimeOfFirstTimer(0x4); err != ErrEmpty {
		t.Fatalf("RemainingTimeOfFirstTimer for absent flag = %v, want ErrEmpty", err)
	}
}

func TestCallbackCanStopAnotherTimer(t *testing.T) {
	hal := newFakeHAL(1000)
	sched, _ := New(hal)

	var victim, trigger TimerHandle
	victimFired := false
	_ = sched.StartTimer(&victim, 100, func(*Scheduler, *TimerHandle, any) {
		victimFired = true
	}, nil, 5, 0)
	_ = sched.StartTimer(&trigger, 50, func(s *Scheduler, h *TimerHandle, data any) {
		_ = s.StopTimer(&victim)
	}, nil, 1, 0)

	hal.advanceTo(sched, 50)
	hal.advanceTo(sched, 100)

	if victimFired {
		t.Fatalf("victim timer fired despite being stopped reentrantly from trigger's callback")
	}
}

func TestNewRejectsNilHAL(t *testing.T) {
	if _, err := New(nil); err != ErrNullPointer {
		t.Fatalf("New(nil) = %v, want ErrNullPointer", err)
	}
}

func TestTickCount64MonotonicAcrossOverflow(t *testing.T) {
	hal := newFakeHAL(1000)
	sched, _ := New(hal)

	hal.counter = ^uint32(0) - 5
	before := sched.TickCount64()

	fired := false
	var handle TimerHandle
	if err := sched.StartTimer(&handle, 10, func(*Scheduler, *TimerHandle, any) {
		fired = true
	}, nil, 0, 0); err != nil {
		t.Fatalf("StartTimer: %v", err)
	}

	// Counter wraps from near ^uint32(0) back through 0; dispatch the
	// overflow IRQ the way a real peripheral would, then let the counter
	// continue climbing on the far side of the wrap.
	hal.counter = 4
	sched.ProcessIRQ(EventOverflow)

	after := sched.TickCount64()
	if after <= before {
		t.Fatalf("TickCount64 not monotonic across overflow: before=%d after=%d", before, after)
	}
	if after-before != 10 {
		t.Fatalf("TickCount64 delta across overflow = %d, want 10 (5 ticks to wrap + 4 past it + 1)", after-before)
	}

	hal.advanceTo(sched, 5)
	if !fired {
		t.Fatalf("timer armed before the wrap did not fire after it")
	}
}

func TestRestartTimerWhileRunningDiscardsOldDeadline(t *testing.T) {
	hal := newFakeHAL(1000)
	sched, _ := New(hal)

	fireCount := 0
	var handle TimerHandle
	_ = sched.StartTimer(&handle, 100, func(*Scheduler, *TimerHandle, any) {
		fireCount++
	}, nil, 0, 0)

	hal.advanceTo(sched, 50)
	if err := sched.RestartTimer(&handle, 100, func(*Scheduler, *TimerHandle, any) {
		fireCount++
	}, nil, 0, 0); err != nil {
		t.Fatalf("RestartTimer: %v", err)
	}

	// The original deadline (tick 100) must not fire the restarted timer.
	hal.advanceTo(sched, 100)
	if fireCount != 0 {
		t.Fatalf("fireCount at original deadline = %d, want 0 (old deadline should be discarded)", fireCount)
	}

	// The new deadline, counted from the restart point, is tick 150.
	hal.advanceTo(sched, 149)
	if fireCount != 0 {
		t.Fatalf("fired early at tick 149")
	}
	hal.advanceTo(sched, 150)
	if fireCount != 1 {
		t.Fatalf("fireCount at new deadline = %d, want 1", fireCount)
	}
}

func TestRestartTimerWhileStoppedActsLikeStart(t *testing.T) {
	hal := newFakeHAL(1000)
	sched, _ := New(hal)

	fired := false
	var handle TimerHandle
	if err := sched.RestartTimer(&handle, 30, func(*Scheduler, *TimerHandle, any) {
		fired = true
	}, nil, 0, 0); err != nil {
		t.Fatalf("RestartTimer on never-started handle: %v", err)
	}

	hal.advanceTo(sched, 29)
	if fired {
		t.Fatalf("fired early at tick 29")
	}
	hal.advanceTo(sched, 30)
	if !fired {
		t.Fatalf("did not fire at tick 30")
	}
}

func TestRestartPeriodicTimerWhileRunningDiscardsOldDeadline(t *testing.T) {
	hal := newFakeHAL(1000)
	sched, _ := New(hal)

	fireCount := 0
	var handle TimerHandle
	_ = sched.StartPeriodicTimer(&handle, 100, func(*Scheduler, *TimerHandle, any) {
		fireCount++
	}, nil, 0, 0)

	hal.advanceTo(sched, 50)
	if err := sched.RestartPeriodicTimer(&handle, 20, func(*Scheduler, *TimerHandle, any) {
		fireCount++
	}, nil, 0, 0); err != nil {
		t.Fatalf("RestartPeriodicTimer: %v", err)
	}

	hal.advanceTo(sched, 69)
	if fireCount != 0 {
		t.Fatalf("fired early at tick 69")
	}
	hal.advanceTo(sched, 70)
	if fireCount != 1 {
		t.Fatalf("fireCount at new period = %d, want 1", fireCount)
	}
	hal.advanceTo(sched, 90)
	if fireCount != 2 {
		t.Fatalf("fireCount after second reload = %d, want 2", fireCount)
	}
	if running, _ := sched.IsTimerRunning(&handle); !running {
		t.Fatalf("periodic timer should still be running after restart and reload")
	}
}

func TestRestartPeriodicTimerWhileStoppedActsLikeStart(t *testing.T) {
	hal := newFakeHAL(1000)
	sched, _ := New(hal)

	count := 0
	var handle TimerHandle
	if err := sched.RestartPeriodicTimer(&handle, 10, func(*Scheduler, *TimerHandle, any) {
		count++
	}, nil, 0, 0); err != nil {
		t.Fatalf("RestartPeriodicTimer on never-started handle: %v", err)
	}

	hal.advanceTo(sched, 10)
	hal.advanceTo(sched, 20)
	if count != 2 {
		t.Fatalf("count = %d, want 2", count)
	}
}
