/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package sim provides a deterministic simulated clock event device. It
// records every programming attempt, can be scripted to reject deadlines the
// way flaky hardware does, and fires events when time is advanced by hand.
package sim

import (
	"errors"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/timekit/clockevents"
)

// ErrRejected is what the simulated hardware returns for a refused deadline.
var ErrRejected = errors.New("simulated hardware rejected deadline")

const disarmed = int64(-1)

// Device is a simulated hardware timer with a tick frequency of freq Hz.
type Device struct {
	name string
	freq uint32

	mu         sync.Mutex
	mode       clockevents.Mode
	failures   int
	floorTicks uint64
	programmed []uint64
	remaining  int64
	period     int64
	fired      int
	onEvent    func()
}

// New creates a simulated device ticking at freq Hz.
func New(name string, freq uint32) *Device {
	return &Device{
		name:      name,
		freq:      freq,
		remaining: disarmed,
	}
}

// OnEvent installs the callback invoked for every fired event.
func (d *Device) OnEvent(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onEvent = fn
}

// FailNext makes the next n programming attempts fail. Negative means all
// of them.
func (d *Device) FailNext(n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failures = n
}

// SetFloor rejects any deadline below minTicks, modelling hardware that
// under-reports its true minimum programmable delta.
func (d *Device) SetFloor(minTicks uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.floorTicks = minTicks
}

// SetPeriod sets the interval used in periodic mode, in ticks.
func (d *Device) SetPeriod(ticks uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.period = d.ticksToNs(ticks)
}

// SetMode implements clockevents.EventHandler.
func (d *Device) SetMode(mode clockevents.Mode) {
	d.mu.Lock()
	defer d.mu.Unlock()
	log.Debugf("sim: %s: %s -> %s", d.name, d.mode, mode)
	d.mode = mode
	switch mode {
	case clockevents.ModePeriodic:
		d.remaining = d.period
	case clockevents.ModeShutdown, clockevents.ModeUnused:
		d.remaining = disarmed
	}
}

// SetNextEvent implements clockevents.EventHandler.
func (d *Device) SetNextEvent(ticks uint64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.programmed = append(d.programmed, ticks)
	if d.failures != 0 {
		if d.failures > 0 {
			d.failures--
		}
		return ErrRejected
	}
	if d.floorTicks != 0 && ticks < d.floorTicks {
		return ErrRejected
	}
	d.remaining = d.ticksToNs(ticks)
	return nil
}

// Advance moves simulated time forward by ns nanoseconds and returns how
// many events fired.
func (d *Device) Advance(ns int64) int {
	d.mu.Lock()
	fired := 0
	for d.remaining != disarmed && d.remaining <= ns {
		ns -= d.remaining
		fired++
		if d.mode == clockevents.ModePeriodic && d.period > 0 {
			d.remaining = d.period
		} else {
			d.remaining = disarmed
		}
	}
	if d.remaining != disarmed {
		d.remaining -= ns
	}
	d.fired += fired
	fn := d.onEvent
	d.mu.Unlock()

	if fn != nil {
		for i := 0; i < fired; i++ {
			fn()
		}
	}
	return fired
}

// Programmed returns every tick value the hardware was asked to arm.
func (d *Device) Programmed() []uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]uint64(nil), d.programmed...)
}

// Fired returns how many events fired so far.
func (d *Device) Fired() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fired
}

// Freq returns the tick frequency in Hz.
func (d *Device) Freq() uint32 {
	return d.freq
}

func (d *Device) ticksToNs(ticks uint64) int64 {
	return int64(ticks * uint64(clockevents.NsPerSec) / uint64(d.freq))
}

// ClockEvent wraps the simulated hardware in a registrable device record.
func (d *Device) ClockEvent() *clockevents.Device {
	return &clockevents.Device{
		Name:     d.name,
		Rating:   100,
		Features: clockevents.FeatOneshot | clockevents.FeatPeriodic,
		Handler:  d,
		Affinity: clockevents.CPUSet{0},
	}
}
