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

import (
	"fmt"
	"math"
	"sync"

	log "github.com/sirupsen/logrus"
)

// Config holds registry-wide settings.
type Config struct {
	// NumCPUs is how many CPUs the system has. Used only to flag an
	// ambiguous affinity default at registration.
	NumCPUs int
	// MinDeltaAdjust enables adaptive raising of a device's minimum delta
	// when its hardware keeps rejecting near-term deadlines. When false a
	// single programming attempt is made and its result returned verbatim.
	MinDeltaAdjust bool
	// TickRate is the system tick rate in Hz. The min-delta escalation
	// ceiling is one tick period, NsPerSec/TickRate.
	TickRate int64
	// Clock is the monotonic time source. Defaults to SystemClock.
	Clock Clock
}

// DefaultConfig returns the config a typical system wants: one CPU,
// escalation enabled, 100Hz tick.
func DefaultConfig() Config {
	return Config{
		NumCPUs:        1,
		MinDeltaAdjust: true,
		TickRate:       100,
	}
}

// Registry is the process-wide collection of clock event devices. All
// lifecycle mutation happens under one lock with non-blocking critical
// sections, so mutations appear atomic to outside observers.
type Registry struct {
	mu        sync.Mutex
	cfg       Config
	active    []*Device
	released  []*Device
	broadcast *Device
	subs      []func(Reason, *Device)

	ctrs         counters
	warnNegative sync.Once
}

// NewRegistry creates a registry with the given config, applying defaults
// for zero fields.
func NewRegistry(cfg Config) *Registry {
	if cfg.NumCPUs <= 0 {
		cfg.NumCPUs = 1
	}
	if cfg.TickRate <= 0 {
		cfg.TickRate = 100
	}
	if cfg.Clock == nil {
		cfg.Clock = &SystemClock{}
	}
	return &Registry{cfg: cfg}
}

// Register adds dev to the active collection and announces it to
// subscribers. The device must be in UNUSED mode and carry a handler.
// Devices sitting in pending-release are then drained back into the active
// collection and re-announced, so a device released during an earlier swap
// gets a chance to rejoin.
func (r *Registry) Register(dev *Device) error {
	if dev.mode != ModeUnused {
		return fmt.Errorf("%w: %s is %s", ErrDeviceNotUnused, dev.label(), dev.mode)
	}
	if dev.Handler == nil {
		return fmt.Errorf("%w: %s", ErrNoHandler, dev.label())
	}
	if len(dev.Affinity) == 0 {
		if r.cfg.NumCPUs > 1 {
			log.Warningf("clockevents: %s: no affinity on a %d-CPU system, defaulting to CPU 0", dev.label(), r.cfg.NumCPUs)
		}
		dev.Affinity = CPUSet{0}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.insertActiveLocked(dev)
	r.notifyLocked(ReasonAdded, dev)
	r.drainReleasedLocked()
	r.ctrs.registered.Add(1)
	return nil
}

// insertActiveLocked moves dev into the active collection, wherever it
// currently is. Membership is set-like: a device is never listed twice.
func (r *Registry) insertActiveLocked(dev *Device) {
	switch dev.state {
	case stateActive:
		return
	case stateReleased:
		r.released = remove(r.released, dev)
	}
	dev.state = stateActive
	r.active = append(r.active, dev)
}

// drainReleasedLocked re-activates every pending-release device and
// re-announces it.
func (r *Registry) drainReleasedLocked() {
	for len(r.released) > 0 {
		dev := r.released[0]
		r.released = r.released[1:]
		dev.state = stateActive
		r.active = append(r.active, dev)
		r.notifyLocked(ReasonAdded, dev)
	}
}

// Exchange swaps devices: old is forced to UNUSED and parked in
// pending-release, new is shut down so no stale hardware state survives into
// its first programming. new must be in UNUSED mode. The whole swap runs as
// one atomic section under the registry lock.
func (r *Registry) Exchange(old, new *Device) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if old != nil {
		r.SetMode(old, ModeUnused)
		if old.state == stateActive {
			r.active = remove(r.active, old)
		}
		old.state = stateReleased
		r.released = append(r.released, old)
	}

	if new != nil {
		if new.mode != ModeUnused {
			return fmt.Errorf("%w: exchanged-in %s is %s", ErrDeviceNotUnused, new.label(), new.mode)
		}
		r.Shutdown(new)
	}

	r.ctrs.exchanged.Add(1)
	return nil
}

// HandleCPUDead cleans up after cpu went away. Every pending-release device
// is dropped for good; an active device solely owned by the dead CPU is
// removed, unless it serves as the broadcast fallback. A sole-owner device
// still live at this point is a caller bug: it is removed anyway and
// ErrDeviceStillArmed reported.
func (r *Registry) HandleCPUDead(cpu int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.notifyLocked(ReasonCPUDead, nil)

	for _, dev := range r.released {
		dev.state = stateDetached
	}
	r.released = nil

	var firstErr error
	keep := r.active[:0]
	for _, dev := range r.active {
		if !dev.Affinity.Contains(cpu) || dev.Affinity.Weight() != 1 || dev == r.broadcast {
			keep = append(keep, dev)
			continue
		}
		if dev.mode != ModeUnused {
			log.Errorf("clockevents: %s: still %s while its only CPU %d is dead", dev.label(), dev.mode, cpu)
			if firstErr == nil {
				firstErr = fmt.Errorf("%w: %s on CPU %d", ErrDeviceStillArmed, dev.label(), cpu)
			}
		}
		dev.state = stateDetached
	}
	r.active = keep

	r.ctrs.cpuDead.Add(1)
	return firstErr
}

// SetBroadcast marks dev as the broadcast fallback device, which
// HandleCPUDead never removes.
func (r *Registry) SetBroadcast(dev *Device) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.broadcast = dev
}

// Configure calibrates dev for the given frequency and tick range and
// derives the nanosecond programming bounds.
func (r *Registry) Configure(dev *Device, freq uint32, minDeltaTicks, maxDeltaTicks uint64) {
	dev.MinDeltaTicks = minDeltaTicks
	dev.MaxDeltaTicks = maxDeltaTicks
	r.configure(dev, freq)
}

func (r *Registry) configure(dev *Device, freq uint32) {
	if !dev.OneShotCapable() {
		return
	}

	// Aim the scale factor at the longest delta the device can take,
	// at least a second. Past 600s on a wide counter the mult/shift
	// derivation would lose too much precision.
	sec := dev.MaxDeltaTicks / uint64(freq)
	if sec == 0 {
		sec = 1
	} else if sec > 600 && dev.MaxDeltaTicks > math.MaxUint32 {
		sec = 600
	}

	// The scale factor converts nanoseconds to device ticks, so the
	// derivation runs from ns/sec to ticks/sec.
	dev.Mult, dev.Shift = CalcMultShift(uint32(NsPerSec), freq, sec)
	dev.MinDeltaNs = deltaToNs(dev.MinDeltaTicks, dev, false)
	dev.MaxDeltaNs = deltaToNs(dev.MaxDeltaTicks, dev, true)
}

// ConfigureAndRegister calibrates and registers dev in one go.
func (r *Registry) ConfigureAndRegister(dev *Device, freq uint32, minDeltaTicks, maxDeltaTicks uint64) error {
	r.Configure(dev, freq, minDeltaTicks, maxDeltaTicks)
	return r.Register(dev)
}

// UpdateFreq recalibrates dev after a frequency change. A device currently
// in ONESHOT mode is re-programmed for its existing deadline at the new
// scale, non-forcibly; a rejection is returned to the caller and is not
// fatal.
func (r *Registry) UpdateFreq(dev *Device, freq uint32) error {
	r.configure(dev, freq)

	if dev.mode != ModeOneshot {
		return nil
	}
	return r.Program(dev, dev.NextEvent, false)
}

// Devices returns a snapshot of the active collection.
func (r *Registry) Devices() []*Device {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*Device(nil), r.active...)
}

// Released returns a snapshot of the pending-release collection.
func (r *Registry) Released() []*Device {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*Device(nil), r.released...)
}

// Counters returns a snapshot of the diagnostic counters.
func (r *Registry) Counters() Counters {
	return r.ctrs.snapshot()
}

func remove(list []*Device, dev *Device) []*Device {
	for i, d := range list {
		if d == dev {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}
