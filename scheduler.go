// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

// Package sleeptimer multiplexes a single free-running hardware counter
// into an arbitrary number of one-shot and periodic software timers, plus
// an optional wall-clock second counter with calendar conversions.
//
// The scheduler keeps pending timers on a delta list: each node stores the
// ticks to wait after its predecessor fires, so aging the list by the
// elapsed ticks since the last hardware compare match is a single
// subtraction on the head, independent of how many timers are pending.
// Insertion and remaining-time queries are O(n) in the number of pending
// timers, which is the right tradeoff for the handful of concurrent
// timers expected in a low-power embedded workload — see the teacher
// wtimer package for the alternative (a hierarchical timer wheel) that
// pays for O(1) insertion at 100k+ timer scale, which this spec does not
// need.
package sleeptimer

// Option configures a Scheduler at construction time. Options replace the
// original's compile-time SL_SLEEPTIMER_* switches with runtime
// constructor parameters.
type Option func(*Scheduler)

// WithWallClock enables the wall-clock subsystem (GetTime/SetTime,
// calendar conversions, NTP/Zigbee epoch bridging). Disabled by default;
// wall-clock methods return ErrInvalidState until this option is given.
func WithWallClock() Option {
	return func(s *Scheduler) {
		s.wallClockEnabled = true
	}
}

// Scheduler is the process state of spec.md §3: it owns the delta list,
// the hardware-counter bookkeeping, and (optionally) the wall clock. It is
// an ordinary instance, not a package-level singleton — callers construct
// one with New and keep it for the program's lifetime, the same way the
// teacher's WTimer is a plain struct the caller Init()s (see Design Notes,
// "Global mutable state": a rewrite should be an instance owned by the
// runtime's startup code, not scattered statics).
type Scheduler struct {
	hal HAL
	cs  criticalSection

	timerHead            *TimerHandle
	lastDeltaUpdateCount Tick
	overflowCounter      uint8

	// maxMillisecondConversion is the largest millisecond input that fits
	// the 32-bit tick conversion without overflow, precomputed at
	// construction from the hardware frequency.
	maxMillisecondConversion uint32

	wallClockEnabled bool
	wc               wallClock
}

// New initializes a Scheduler over hal: starts the counter, enables the
// overflow interrupt, and precomputes the millisecond-conversion and
// (if WithWallClock is given) wall-clock constants. Unlike the original's
// idempotent sl_sleeptimer_init(), idempotence here is structural — a
// Scheduler is only ever initialized once, by construction — so there is
// no init flag to check.
func New(hal HAL, opts ...Option) (*Scheduler, error) {
	if hal == nil {
		return nil, ErrNullPointer
	}
	if hal.GetFrequency() == 0 {
		return nil, ErrInvalidParameter
	}

	s := &Scheduler{hal: hal}
	s.cs.init(hal)
	for _, opt := range opts {
		opt(s)
	}

	hal.InitTimer()
	hal.EnableInt(EventOverflow)

	s.maxMillisecondConversion = MaxMsConversion(hal.GetFrequency())

	if s.wallClockEnabled {
		s.wc.init(uint64(hal.GetFrequency()))
	}

	return s, nil
}

// TickCount returns the current 32-bit counter value.
func (s *Scheduler) TickCount() Tick {
	return Tick(s.hal.GetCounter())
}

// TickCount64 returns the current tick count extended to 64 bits using the
// overflow counter as the high bits, so it is strictly monotonic across a
// counter wrap (spec.md §8 property 7).
func (s *Scheduler) TickCount64() Tick64 {
	cnt := uint64(s.hal.GetCounter())
	s.cs.enter()
	cnt |= uint64(s.overflowCounter) << 32
	s.cs.exit()
	return Tick64(cnt)
}

// GetTimerFrequency returns the HAL's ticks-per-second.
func (s *Scheduler) GetTimerFrequency() uint32 {
	return s.hal.GetFrequency()
}

// MsToTick converts a millisecond duration to ticks at this scheduler's
// frequency. See the package-level MsToTick for the rounding rule.
func (s *Scheduler) MsToTick(timeMs uint16) Tick {
	return MsToTick(timeMs, s.hal.GetFrequency())
}

// Ms32ToTick converts a 32-bit millisecond duration to ticks, rejecting
// values that would overflow the conversion at this scheduler's frequency.
func (s *Scheduler) Ms32ToTick(timeMs uint32) (Tick, error) {
	if timeMs > s.maxMillisecondConversion {
		return 0, ErrInvalidParameter
	}
	return Ms32ToTick(timeMs, s.hal.GetFrequency())
}

// TickToMs converts a tick count to milliseconds at this scheduler's
// frequency.
func (s *Scheduler) TickToMs(tick Tick) uint32 {
	return TickToMs(tick, s.hal.GetFrequency())
}

// Tick64ToMs converts a 64-bit tick count to milliseconds at this
// scheduler's frequency.
func (s *Scheduler) Tick64ToMs(tick Tick64) (uint64, error) {
	return Tick64ToMs(tick, s.hal.GetFrequency())
}

// createTimer is the shared body of StartTimer/StartPeriodicTimer/
// Restart*, transcribed from create_timer in the original.
func (s *Scheduler) createTimer(handle *TimerHandle, timeoutInitial, timeoutPeriodic Tick,
	callback TimerCallback, data any, priority uint8, optionFlags uint16) error {

	if callback == nil && ERRon() {
		ERR("createTimer: called with a nil callback\n")
	}

	handle.priority = priority
	handle.callbackData = data
	handle.next = nil
	handle.timeoutPeriodic = timeoutPeriodic
	handle.callback = callback
	handle.optionFlags = optionFlags

	if timeoutInitial == 0 {
		handle.delta = 0
		if handle.callback != nil {
			handle.callback(s, handle, handle.callbackData)
		}
		if timeoutPeriodic != 0 {
			timeoutInitial = timeoutPeriodic
		} else {
			return nil
		}
	}

	s.cs.enter()
	ageHead(&s.timerHead, &s.lastDeltaUpdateCount, s.TickCount())
	insertTimer(&s.timerHead, handle, timeoutInitial)
	if s.timerHead == handle {
		s.setComparatorForNextTimer()
	}
	s.cs.exit()
	return nil
}

// setComparatorForNextTimer arms the hardware compare register at the
// head's absolute fire time and unmasks the compare interrupt. Must be
// called with the critical section held and the list non-empty. No guard
// against "compare value already in the past" is performed: the hardware
// is expected to fire promptly if the counter has already passed it.
func (s *Scheduler) setComparatorForNextTimer() {
	compareValue := s.lastDeltaUpdateCount.Add(s.timerHead.delta)
	s.hal.EnableInt(EventCompare)
	s.hal.SetCompare(compareValue.Val())
}

// StartTimer starts a one-shot timer that invokes callback after timeout
// ticks. Returns ErrNullPointer if handle is nil, ErrNotReady if handle is
// already running.
func (s *Scheduler) StartTimer(handle *TimerHandle, timeout Tick,
	callback TimerCallback, data any, priority uint8, optionFlags uint16) error {
	if handle == nil {
		return ErrNullPointer
	}
	if running, _ := s.IsTimerRunning(handle); running {
		return ErrNotReady
	}
	return s.createTimer(handle, timeout, 0, callback, data, priority, optionFlags)
}

// StartPeriodicTimer starts a periodic timer: it first fires after
// timeout ticks, then reloads with the same period. Returns
// ErrNullPointer if handle is nil, ErrInvalidState if already running.
func (s *Scheduler) StartPeriodicTimer(handle *TimerHandle, timeout Tick,
	callback TimerCallback, data any, priority uint8, optionFlags uint16) error {
	if handle == nil {
		return ErrNullPointer
	}
	if running, _ := s.IsTimerRunning(handle); running {
		return ErrInvalidState
	}
	return s.createTimer(handle, timeout, timeout, callback, data, priority, optionFlags)
}

// RestartTimer stops handle if running and starts it again as a one-shot
// timer with a fresh timeout; on a handle that isn't running it behaves
// exactly like StartTimer. Never returns ErrNotReady.
func (s *Scheduler) RestartTimer(handle *TimerHandle, timeout Tick,
	callback TimerCallback, data any, priority uint8, optionFlags uint16) error {
	if handle == nil {
		return ErrNullPointer
	}
	if running, _ := s.IsTimerRunning(handle); running {
		_ = s.StopTimer(handle)
	}
	return s.createTimer(handle, timeout, 0, callback, data, priority, optionFlags)
}

// RestartPeriodicTimer stops handle if running and starts it again as a
// periodic timer; on a handle that isn't running it behaves exactly like
// StartPeriodicTimer.
func (s *Scheduler) RestartPeriodicTimer(handle *TimerHandle, timeout Tick,
	callback TimerCallback, data any, priority uint8, optionFlags uint16) error {
	if handle == nil {
		return ErrNullPointer
	}
	if running, _ := s.IsTimerRunning(handle); running {
		_ = s.StopTimer(handle)
	}
	return s.createTimer(handle, timeout, timeout, callback, data, priority, optionFlags)
}

// StopTimer removes handle from the delta list. It is synchronous and
// idempotent relative to the caller, but races ProcessIRQ: if the
// dispatch loop has already dequeued handle and is about to invoke its
// callback, StopTimer returns ErrInvalidState and the callback still
// fires (spec.md §5, "Cancellation").
func (s *Scheduler) StopTimer(handle *TimerHandle) error {
	if handle == nil {
		return ErrNullPointer
	}

	s.cs.enter()
	ageHead(&s.timerHead, &s.lastDeltaUpdateCount, s.TickCount())

	setComparator := false
	if s.timerHead == handle {
		s.hal.DisableInt(EventCompare)
		setComparator = true
	}

	if err := removeTimer(&s.timerHead, handle); err != nil {
		s.cs.exit()
		if handle.onList {
			BUG("StopTimer: handle %p not found on the delta list\n", handle)
		}
		return err
	}

	if setComparator && s.timerHead != nil {
		s.setComparatorForNextTimer()
	}
	s.cs.exit()
	return nil
}

// IsTimerRunning reports whether handle is currently on the delta list.
func (s *Scheduler) IsTimerRunning(handle *TimerHandle) (bool, error) {
	if handle == nil {
		return false, ErrNullPointer
	}
	s.cs.enter()
	running := false
	for current := s.timerHead; current != nil; current = current.next {
		if current == handle {
			running = true
			break
		}
	}
	s.cs.exit()
	return running, nil
}

// TimerTimeRemaining returns the ticks remaining until handle fires.
// Returns ErrNotReady if handle is not on the list.
func (s *Scheduler) TimerTimeRemaining(handle *TimerHandle) (Tick, error) {
	if handle == nil {
		return 0, ErrNullPointer
	}

	s.cs.enter()
	ageHead(&s.timerHead, &s.lastDeltaUpdateCount, s.TickCount())

	remaining := handle.delta
	current := s.timerHead
	for current != nil && current != handle {
		remaining = remaining.Add(current.delta)
		current = current.next
	}
	if current != handle {
		s.cs.exit()
		return 0, ErrNotReady
	}

	sinceAged := s.TickCount().Sub(s.lastDeltaUpdateCount)
	if remaining.GT(sinceAged) {
		remaining = remaining.Sub(sinceAged)
	} else {
		remaining = 0
	}
	s.cs.exit()
	return remaining, nil
}

// RemainingTimeOfFirstTimer returns the ticks remaining until the first
// timer (in list order) whose option flags exactly equal flags. Returns
// ErrEmpty if no handle matches.
func (s *Scheduler) RemainingTimeOfFirstTimer(flags uint16) (Tick, error) {
	s.cs.enter()
	defer s.cs.exit()

	var accumulated Tick
	for current := s.timerHead; current != nil; current = current.next {
		accumulated = accumulated.Add(current.delta)
		if current.optionFlags == flags {
			sinceAged := s.TickCount().Sub(s.lastDeltaUpdateCount)
			if accumulated.GT(sinceAged) {
				return accumulated.Sub(sinceAged), nil
			}
			return 0, nil
		}
	}
	return 0, ErrEmpty
}

// ProcessIRQ is the interrupt handler spec.md §4.3 describes. A HAL
// implementation must call this from its interrupt vector with the set of
// events that fired, in any order — overflow is always processed before
// compare within a single call, matching the original's ordering.
func (s *Scheduler) ProcessIRQ(mask EventMask) {
	if mask&EventOverflow != 0 {
		if s.wallClockEnabled {
			s.cs.enter()
			s.wc.onOverflow()
			s.cs.exit()
		}
		s.overflowCounter++

		s.cs.enter()
		ageHead(&s.timerHead, &s.lastDeltaUpdateCount, s.TickCount())
		if s.timerHead != nil {
			s.setComparatorForNextTimer()
		}
		s.cs.exit()
	}

	if mask&EventCompare != 0 {
		s.processCompareEvent()
	}
}

func (s *Scheduler) processCompareEvent() {
	currentCnt := s.TickCount()
	deltaTot := currentCnt.Sub(s.lastDeltaUpdateCount)

	s.cs.enter()
	for s.timerHead != nil && deltaTot.GE(s.timerHead.delta) {
		deltaTotTemp := deltaTot
		chosen := s.timerHead
		s.lastDeltaUpdateCount = currentCnt

		// Among the contiguous prefix of nodes whose cumulative deltas
		// all fit within deltaTot, pick the one with the smallest
		// priority number, so simultaneous-tick callbacks fire in
		// priority order regardless of insertion order.
		for temp := s.timerHead; temp != nil && deltaTotTemp.GE(temp.delta); temp = temp.next {
			if chosen.priority > temp.priority {
				chosen = temp
			}
			deltaTotTemp = deltaTotTemp.Sub(temp.delta)
		}
		s.cs.exit()

		deltaTot = deltaTot.Sub(chosen.delta)
		chosen.delta = 0

		s.cs.enter()
		removeTimer(&s.timerHead, chosen)
		s.cs.exit()

		if chosen.timeoutPeriodic != 0 {
			s.cs.enter()
			insertTimer(&s.timerHead, chosen, chosen.timeoutPeriodic)
			s.cs.exit()
		}

		if DBGon() {
			DBG("dispatching timer %p (priority %d) at tick %s\n",
				chosen, chosen.priority, currentCnt)
		}
		if chosen.callback != nil {
			chosen.callback(s, chosen, chosen.callbackData)
		}

		newCnt := s.TickCount()
		deltaTot = deltaTot.Add(newCnt.Sub(currentCnt))
		currentCnt = newCnt

		s.cs.enter()
	}

	if s.timerHead != nil {
		s.timerHead.delta = s.timerHead.delta.Sub(deltaTot)
		s.lastDeltaUpdateCount = currentCnt
		s.setComparatorForNextTimer()
	} else {
		s.hal.DisableInt(EventCompare)
	}
	s.cs.exit()
}
