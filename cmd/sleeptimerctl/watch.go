// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package main

import (
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/urfave/cli"

	"github.com/intuitivelabs/sleeptimer"
)

// runWatch renders a single status line (tick count, wall-clock time,
// number of pending timers) refreshed on a ticker, scaled down from the
// jeebie terminal backend's full-framebuffer redraw to a status line since
// there's nothing to paint here but text.
func runWatch(c *cli.Context) error {
	hal, sched, err := newSimulated(c, sleeptimer.WithWallClock())
	if err != nil {
		return err
	}
	defer hal.Shutdown()

	_ = sched.SetTime(uint32(time.Now().Unix()))

	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("failed to initialize terminal: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("failed to initialize terminal: %w", err)
	}
	defer screen.Fini()

	screen.SetStyle(tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorWhite))

	quit := make(chan struct{})
	go func() {
		for {
			ev := screen.PollEvent()
			switch ev := ev.(type) {
			case *tcell.EventKey:
				if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC ||
					ev.Rune() == 'q' {
					close(quit)
					return
				}
			case *tcell.EventResize:
				screen.Sync()
			}
		}
	}()

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	// heartbeat keeps one dummy periodic timer running, and pending is the
	// fixed count of that one timer; a real deployment would watch its own
	// application timers instead.
	var heartbeat sleeptimer.TimerHandle
	pending := 1
	_ = sched.StartPeriodicTimer(&heartbeat, sched.MsToTick(500),
		func(*sleeptimer.Scheduler, *sleeptimer.TimerHandle, any) {}, nil, 0, 0)

	for {
		select {
		case <-quit:
			return nil
		case <-ticker.C:
			drawStatus(screen, sched, pending)
		}
	}
}

func drawStatus(screen tcell.Screen, sched *sleeptimer.Scheduler, pending int) {
	screen.Clear()
	style := tcell.StyleDefault.Foreground(tcell.ColorWhite)

	date, err := sched.GetDateTime()
	dateStr := "n/a"
	if err == nil {
		dateStr = date.Format("2006-01-02 15:04:05")
	}

	line := fmt.Sprintf("tick=%d  date=%s  pending=%d  (press q to quit)",
		sched.TickCount(), dateStr, pending)
	for i, r := range line {
		screen.SetContent(i, 0, r, nil, style)
	}
	screen.Show()
}
