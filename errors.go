// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package sleeptimer

import (
	"errors"
)

// Status codes. A nil error means Ok; every other status in spec.md §7 has
// exactly one sentinel below and no operation returns any other kind.
var (
	// ErrNullPointer is returned when a required handle or output argument
	// is nil. Checked before any state mutation.
	ErrNullPointer = errors.New("sleeptimer: nil handle or output argument")

	// ErrInvalidParameter is returned for an out-of-range timestamp, an
	// invalid date, or a millisecond input that overflows the tick domain.
	ErrInvalidParameter = errors.New("sleeptimer: invalid parameter")

	// ErrInvalidState is returned when an operation presupposes membership
	// in the delta list (or absence from it) and the opposite holds.
	ErrInvalidState = errors.New("sleeptimer: invalid timer state")

	// ErrNotReady is returned when StartTimer is refused because the
	// handle is already on the list, or when TimerTimeRemaining is called
	// on a handle that isn't.
	ErrNotReady = errors.New("sleeptimer: timer not ready")

	// ErrEmpty is returned when a filtered search found no match.
	ErrEmpty = errors.New("sleeptimer: no matching timer")
)
