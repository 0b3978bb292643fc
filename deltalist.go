// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package sleeptimer

// This file holds the delta-list mechanics in isolation from the owning
// Scheduler (mirroring the teacher's split of list manipulation, in
// timer_lst.go, from the owning WTimer type in wtimer.go). There is
// exactly one list here (no per-wheel-bucket lists), so these are plain
// functions taking the list head by pointer-to-pointer rather than methods
// on a list type.
//
// All three functions below must be called with the scheduler's critical
// section held; none of them take or release it themselves.

// insertTimer splices handle into the delta list rooted at *head so that
// the sum of deltas from the head through handle equals timeout. Walks
// from the head, subtracting each predecessor's delta from the remaining
// timeout, stopping where the running remainder is strictly less than the
// next node's delta, or, on equality, where handle's priority number is
// strictly smaller than the competitor's — a same-tick competitor with an
// equal or smaller priority number keeps its slot and handle is placed
// after it, so ties go after the earlier-inserted timer. A current node
// with delta == 0 is always skipped over (it's part of an
// already-expired-this-tick cluster). This insertion order is advisory
// only: ProcessIRQ always rescans the expired prefix for the minimum
// priority, so it does not depend on list order to fire in priority order.
func insertTimer(head **TimerHandle, handle *TimerHandle, timeout Tick) {
	remaining := timeout
	handle.delta = remaining

	if *head == nil {
		handle.next = nil
		*head = handle
		handle.onList = true
		return
	}

	var prev *TimerHandle
	current := *head
	for current != nil &&
		(current.delta == 0 || remaining > current.delta ||
			(remaining == current.delta && handle.priority >= current.priority)) {
		remaining -= current.delta
		handle.delta = remaining
		prev = current
		current = current.next
	}

	if prev != nil {
		prev.next = handle
	} else {
		*head = handle
	}
	handle.next = current

	if current != nil {
		current.delta -= remaining
	}
	handle.onList = true
}

// removeTimer unlinks handle from the delta list rooted at *head, folding
// its delta into its successor's so downstream absolute deadlines are
// preserved. Returns ErrInvalidState if handle isn't on the list.
func removeTimer(head **TimerHandle, handle *TimerHandle) error {
	var prev *TimerHandle
	current := *head
	for current != nil && current != handle {
		prev = current
		current = current.next
	}
	if current != handle {
		return ErrInvalidState
	}

	if prev != nil {
		prev.next = handle.next
	} else {
		*head = handle.next
	}
	if handle.next != nil {
		handle.next.delta += handle.delta
	}
	handle.next = nil
	handle.onList = false
	return nil
}

// ageHead brings the head's delta up to date as of now, folding in
// elapsed ticks since lastDeltaUpdateCount. If the list is empty, it just
// advances lastDeltaUpdateCount. If the head is overdue (its delta is
// smaller than the elapsed ticks), its delta is clamped to 0 and
// lastDeltaUpdateCount is rebased so that invariant 2 of spec.md §3 still
// holds with the now-zero delta — this is the scheduler's one form of
// internal self-repair, not an error.
func ageHead(head **TimerHandle, lastDeltaUpdateCount *Tick, now Tick) {
	if *head == nil {
		*lastDeltaUpdateCount = now
		return
	}
	elapsed := now.Sub(*lastDeltaUpdateCount)
	h := *head
	if h.delta.GE(elapsed) {
		h.delta = h.delta.Sub(elapsed)
		*lastDeltaUpdateCount = now
	} else {
		*lastDeltaUpdateCount = lastDeltaUpdateCount.Add(h.delta)
		h.delta = 0
	}
}
