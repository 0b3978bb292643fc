// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

// Command sleeptimerctl is a manual test harness for the sleeptimer
// package: it drives a simulated hardware counter (simhal) instead of real
// silicon, so the scheduler's timer and wall-clock behavior can be poked
// at from a terminal.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli"

	"github.com/intuitivelabs/sleeptimer"
	"github.com/intuitivelabs/sleeptimer/simhal"
)

const defaultFreq = 32768

func main() {
	app := cli.NewApp()
	app.Name = "sleeptimerctl"
	app.Usage = "exercise the sleeptimer scheduler against a simulated hardware counter"
	app.Version = "1.0.0"
	app.Flags = []cli.Flag{
		cli.IntFlag{
			Name:  "freq",
			Usage: "simulated counter frequency in Hz",
			Value: defaultFreq,
		},
	}
	app.Commands = []cli.Command{
		{
			Name:  "oneshot",
			Usage: "start a one-shot timer and wait for it to fire",
			Flags: []cli.Flag{
				cli.IntFlag{Name: "ms", Usage: "timeout in milliseconds", Value: 1000},
			},
			Action: runOneshot,
		},
		{
			Name:  "periodic",
			Usage: "start a periodic timer and print every time it fires",
			Flags: []cli.Flag{
				cli.IntFlag{Name: "ms", Usage: "period in milliseconds", Value: 500},
				cli.IntFlag{Name: "count", Usage: "number of firings before exiting", Value: 5},
			},
			Action: runPeriodic,
		},
		{
			Name:   "date",
			Usage:  "print the current wall-clock date once a second",
			Action: runDate,
		},
		{
			Name:  "delay",
			Usage: "busy-wait using DelayMillisecond",
			Flags: []cli.Flag{
				cli.IntFlag{Name: "ms", Usage: "delay in milliseconds", Value: 200},
			},
			Action: runDelay,
		},
		{
			Name:   "watch",
			Usage:  "live status screen (tick count, wall clock, pending timers)",
			Action: runWatch,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "sleeptimerctl:", err)
		os.Exit(1)
	}
}

// newSimulated builds a running simulated HAL and a Scheduler wired to it,
// per the two-step construction simhal.Attach requires.
func newSimulated(c *cli.Context, opts ...sleeptimer.Option) (*simhal.HAL, *sleeptimer.Scheduler, error) {
	freq := uint32(c.GlobalInt("freq"))
	if freq == 0 {
		freq = defaultFreq
	}
	hal := simhal.New(freq)
	sched, err := sleeptimer.New(hal, opts...)
	if err != nil {
		return nil, nil, err
	}
	hal.Attach(sched)
	hal.Start()
	return hal, sched, nil
}

func runOneshot(c *cli.Context) error {
	hal, sched, err := newSimulated(c)
	if err != nil {
		return err
	}
	defer hal.Shutdown()

	done := make(chan struct{})
	var handle sleeptimer.TimerHandle
	timeout := sched.MsToTick(uint16(c.Int("ms")))
	err = sched.StartTimer(&handle, timeout, func(*sleeptimer.Scheduler, *sleeptimer.TimerHandle, any) {
		close(done)
	}, nil, 0, 0)
	if err != nil {
		return err
	}

	<-done
	fmt.Printf("fired after %dms (tick %d)\n", c.Int("ms"), sched.TickCount())
	return nil
}

func runPeriodic(c *cli.Context) error {
	hal, sched, err := newSimulated(c)
	if err != nil {
		return err
	}
	defer hal.Shutdown()

	count := c.Int("count")
	done := make(chan struct{})
	fired := 0

	var handle sleeptimer.TimerHandle
	timeout := sched.MsToTick(uint16(c.Int("ms")))
	err = sched.StartPeriodicTimer(&handle, timeout, func(*sleeptimer.Scheduler, *sleeptimer.TimerHandle, any) {
		fired++
		fmt.Printf("fired #%d at tick %d\n", fired, sched.TickCount())
		if fired >= count {
			close(done)
		}
	}, nil, 0, 0)
	if err != nil {
		return err
	}

	<-done
	_ = sched.StopTimer(&handle)
	return nil
}

func runDate(c *cli.Context) error {
	hal, sched, err := newSimulated(c, sleeptimer.WithWallClock())
	if err != nil {
		return err
	}
	defer hal.Shutdown()

	if err := sched.SetTime(uint32(time.Now().Unix())); err != nil {
		return err
	}

	for i := 0; i < 5; i++ {
		d, err := sched.GetDateTime()
		if err != nil {
			return err
		}
		fmt.Println(d.Format("2006-01-02 15:04:05"))
		time.Sleep(time.Second)
	}
	return nil
}

func runDelay(c *cli.Context) error {
	hal, sched, err := newSimulated(c)
	if err != nil {
		return err
	}
	defer hal.Shutdown()

	start := time.Now()
	if err := sched.DelayMillisecond(uint16(c.Int("ms"))); err != nil {
		return err
	}
	fmt.Printf("delayed %s (requested %dms)\n", time.Since(start), c.Int("ms"))
	return nil
}
