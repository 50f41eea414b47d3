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

//go:build linux

// Package timerfd backs a clock event device with a Linux timerfd. The tick
// domain is nanoseconds: the device runs at 1GHz, so programmed tick values
// map straight onto relative timerfd deadlines against CLOCK_MONOTONIC.
package timerfd

import (
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/timekit/clockevents"
)

// Calibration of a timerfd-backed device.
const (
	// Frequency is the tick rate: one tick per nanosecond.
	Frequency = uint32(1000000000)
	// MinDeltaTicks is 1us: timerfd takes shorter deadlines but they
	// expire before the read side can notice.
	MinDeltaTicks = uint64(1000)
	// MaxDeltaTicks is 600s, the far end of the mult/shift derivation.
	MaxDeltaTicks = uint64(600) * uint64(Frequency)

	// DefaultPeriod is used in periodic mode until SetPeriod is called.
	DefaultPeriod = 10 * time.Millisecond
)

// Device drives a timerfd as clock event hardware.
type Device struct {
	name string
	fd   int

	mu     sync.Mutex
	period time.Duration
}

// New creates a timerfd device against the monotonic clock.
func New(name string) (*Device, error) {
	fd, err := unix.TimerfdCreate(unix.CLOCK_MONOTONIC, unix.TFD_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("creating timerfd: %w", err)
	}
	return &Device{name: name, fd: fd, period: DefaultPeriod}, nil
}

// SetPeriod sets the interval used in periodic mode.
func (d *Device) SetPeriod(period time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.period = period
}

// SetMode implements clockevents.EventHandler. Periodic mode arms a
// repeating timer at the configured period; shutdown disarms.
func (d *Device) SetMode(mode clockevents.Mode) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var spec unix.ItimerSpec
	switch mode {
	case clockevents.ModePeriodic:
		ts := unix.NsecToTimespec(d.period.Nanoseconds())
		spec.Value = ts
		spec.Interval = ts
	case clockevents.ModeShutdown, clockevents.ModeUnused:
		// Zero value disarms.
	case clockevents.ModeOneshot:
		// Armed by SetNextEvent; nothing to do here.
		return
	}
	if err := unix.TimerfdSettime(d.fd, 0, &spec, nil); err != nil {
		log.Errorf("timerfd: %s: settime for mode %s: %v", d.name, mode, err)
	}
}

// SetNextEvent implements clockevents.EventHandler: arms a one-shot deadline
// the given number of nanoseconds from now.
func (d *Device) SetNextEvent(ticks uint64) error {
	spec := unix.ItimerSpec{
		Value: unix.NsecToTimespec(int64(ticks)),
	}
	if err := unix.TimerfdSettime(d.fd, 0, &spec, nil); err != nil {
		return fmt.Errorf("arming timerfd: %w", err)
	}
	return nil
}

// Wait blocks until the timer expires and returns the number of expirations
// since the last read.
func (d *Device) Wait() (uint64, error) {
	buf := make([]byte, 8)
	for {
		n, err := unix.Read(d.fd, buf)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("reading timerfd: %w", err)
		}
		if n != len(buf) {
			return 0, fmt.Errorf("short timerfd read: %d bytes", n)
		}
		return binary.NativeEndian.Uint64(buf), nil
	}
}

// Fd exposes the underlying descriptor for poll-based consumers.
func (d *Device) Fd() int {
	return d.fd
}

// Close releases the timerfd.
func (d *Device) Close() error {
	return unix.Close(d.fd)
}

// ClockEvent wraps the timerfd in a registrable device record. Configure it
// with Frequency, MinDeltaTicks and MaxDeltaTicks.
func (d *Device) ClockEvent() *clockevents.Device {
	return &clockevents.Device{
		Name:     d.name,
		Rating:   50,
		Features: clockevents.FeatOneshot | clockevents.FeatPeriodic,
		Handler:  d,
		Affinity: clockevents.CPUSet{0},
	}
}
