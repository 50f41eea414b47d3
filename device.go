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

package clockevents

// EventHandler is what a hardware backend implements. SetMode is called
// exactly once per actual mode transition. SetNextEvent arms the device the
// given number of device ticks from now and reports whether the hardware
// accepted the deadline. Implementations must not block: both are invoked
// from contexts that hold the registry lock or run with events disabled.
type EventHandler interface {
	SetMode(mode Mode)
	SetNextEvent(ticks uint64) error
}

// KtimeHandler is implemented by backends that take an absolute deadline
// directly. Only consulted when the device advertises FeatKtime.
type KtimeHandler interface {
	SetNextKtime(expires int64) error
}

// CPUSet is the set of CPUs that own a device. It must not contain
// duplicates.
type CPUSet []int

// Contains reports whether cpu is in the set.
func (s CPUSet) Contains(cpu int) bool {
	for _, c := range s {
		if c == cpu {
			return true
		}
	}
	return false
}

// Weight is the number of CPUs in the set.
func (s CPUSet) Weight() int {
	return len(s)
}

// listState says which registry collection a device currently belongs to.
type listState uint8

const (
	stateDetached listState = iota
	stateActive
	stateReleased
)

// Device describes one clock event device. Calibration fields are filled in
// by Registry.Configure; Mult/Shift approximate tick↔ns conversion such that
// ticks ≈ (ns * Mult) >> Shift.
type Device struct {
	// Name identifies the device in diagnostics. May be empty.
	Name string
	// Rating is the device quality used by consumers to pick between
	// devices for the same CPU. Higher is better.
	Rating int
	// Features is the capability bitmask.
	Features Feature
	// Handler is the hardware backend.
	Handler EventHandler

	// Fixed point scale factor, ticks ≈ (ns * Mult) >> Shift.
	Mult  uint32
	Shift uint32

	// Programming range in device ticks, as reported by the hardware.
	MinDeltaTicks uint64
	MaxDeltaTicks uint64

	// Programming range in nanoseconds, derived from the tick range
	// whenever the frequency or scale changes.
	MinDeltaNs int64
	MaxDeltaNs int64

	// NextEvent is the absolute deadline last committed, in the monotonic
	// clock domain. TimeNever after shutdown.
	NextEvent int64

	// Retries counts programming attempts. Diagnostic only.
	Retries uint64

	// Affinity is the set of owning CPUs. Must be non-empty once
	// registered; Register defaults it to CPU 0.
	Affinity CPUSet

	mode  Mode
	state listState
}

// Mode returns the current operating mode.
func (d *Device) Mode() Mode {
	return d.mode
}

// OneShotCapable reports whether the device can be programmed for single
// events.
func (d *Device) OneShotCapable() bool {
	return d.Features&FeatOneshot != 0
}

func (d *Device) label() string {
	if d.Name != "" {
		return d.Name
	}
	return "?"
}
