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

// Package clockevents manages clock event devices: hardware timers abstracted
// behind a uniform interface. It converts between device ticks and
// nanoseconds using fixed-point mult/shift arithmetic, enforces the device
// mode state machine, programs the next wake-up event with bounded retry when
// hardware rejects near-term deadlines, and keeps a registry of devices with
// hot-plug lifecycle and subscriber notifications.
package clockevents

import (
	"errors"
	"math"
)

// Mode is the operating mode of a clock event device.
type Mode uint8

// All the modes a device can be in. A device starts in ModeUnused and only
// returns there when it is swapped out via Registry.Exchange.
const (
	ModeUnused Mode = iota
	ModeShutdown
	ModePeriodic
	ModeOneshot
)

func (m Mode) String() string {
	switch m {
	case ModeUnused:
		return "UNUSED"
	case ModeShutdown:
		return "SHUTDOWN"
	case ModePeriodic:
		return "PERIODIC"
	case ModeOneshot:
		return "ONESHOT"
	}
	return "UNSUPPORTED"
}

// Feature is a capability bitmask of a clock event device.
type Feature uint32

// Device capabilities.
const (
	// FeatPeriodic means the device can generate periodic events.
	FeatPeriodic Feature = 1 << iota
	// FeatOneshot means the device can be programmed for a single event.
	FeatOneshot
	// FeatKtime means the device accepts an absolute deadline directly,
	// bypassing tick conversion and the retry logic.
	FeatKtime
	// FeatDummy marks a placeholder device that never fires.
	FeatDummy
)

// Reason tells subscribers why the registry changed.
type Reason uint8

// Notification reasons.
const (
	ReasonAdded Reason = iota
	ReasonCPUDead
)

func (r Reason) String() string {
	switch r {
	case ReasonAdded:
		return "ADDED"
	case ReasonCPUDead:
		return "CPU_DEAD"
	}
	return "UNSUPPORTED"
}

const (
	// NsPerSec is one second worth of nanoseconds.
	NsPerSec = int64(1000000000)

	// TimeNever is the "never fires" deadline a device gets on shutdown.
	TimeNever = int64(math.MaxInt64)

	// minDeltaFloorNs is where min-delta escalation starts for devices
	// reporting an even smaller minimum.
	minDeltaFloorNs = int64(5000)

	// noiseFloorNs is the smallest meaningful conversion result. Deltas
	// below one microsecond are noise.
	noiseFloorNs = uint64(1000)
)

var (
	// ErrProgramTimeout is returned when a deadline cannot be honored:
	// it already passed and force was not set, or min-delta escalation
	// reached its ceiling.
	ErrProgramTimeout = errors.New("deadline cannot be honored")

	// ErrDeviceNotUnused is returned when a device enters the registry in
	// any mode other than UNUSED. This is a caller bug.
	ErrDeviceNotUnused = errors.New("device mode is not UNUSED")

	// ErrDeviceStillArmed is returned by HandleCPUDead when a sole-owner
	// device of a dead CPU was not shut down first. This is a caller bug.
	ErrDeviceStillArmed = errors.New("device of dead CPU is not UNUSED")

	// ErrNoHandler is returned when a device has no event handler attached.
	ErrNoHandler = errors.New("device has no event handler")
)
