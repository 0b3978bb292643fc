// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package sleeptimer

import "sync/atomic"

// DelayMillisecond busy-waits for approximately timeMs milliseconds,
// spinning on an atomic flag until a one-shot timer's callback sets it. This is meant for short, bounded delays during startup or in a
// context that cannot yield to the caller's own event loop; anything long
// enough to matter should use StartTimer instead.
func (s *Scheduler) DelayMillisecond(timeMs uint16) error {
	if timeMs == 0 {
		return nil
	}

	var expired atomic.Bool
	var handle TimerHandle

	timeout := s.MsToTick(timeMs)
	if err := s.StartTimer(&handle, timeout, delayCallback, &expired, 0, 0); err != nil {
		return err
	}

	for !expired.Load() {
		// spin; ProcessIRQ runs on the HAL's interrupt path and flips
		// expired once the timer fires.
	}
	return nil
}

func delayCallback(_ *Scheduler, _ *TimerHandle, data any) {
	data.(*atomic.Bool).Store(true)
}
