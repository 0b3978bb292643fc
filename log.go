// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package sleeptimer

import (
	"github.com/intuitivelabs/slog"
)

// Log is the package-wide logger. Adjust its level with
// slog.SetLevel(&Log, slog.LDBG) for verbose tracing of the delta list
// and IRQ dispatch.
var Log slog.Log = slog.Log{
	Prefix: "sleeptimer: ",
	Level:  slog.LWARN,
}

func DBGon() bool  { return Log.DBGon() }
func ERRon() bool  { return Log.ERRon() }
func WARNon() bool { return Log.WARNon() }

func DBG(f string, args ...interface{}) {
	Log.DBG(f, args...)
}

func ERR(f string, args ...interface{}) {
	Log.ERR(f, args...)
}

func WARN(f string, args ...interface{}) {
	Log.WARN(f, args...)
}

// BUG logs an internal consistency violation that is recovered from
// (the caller still returns an error; this is not a crash).
func BUG(f string, args ...interface{}) {
	Log.BUG(f, args...)
}

// PANIC logs and then panics; reserved for invariant violations that would
// otherwise corrupt scheduler state (e.g. an unbalanced critical-section
// exit).
func PANIC(f string, args ...interface{}) {
	Log.PANIC(f, args...)
}
