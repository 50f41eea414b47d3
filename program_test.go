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
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

var errRejected = errors.New("hardware rejected deadline")

// fakeHandler scripts hardware acceptance: failures is how many upcoming
// SetNextEvent calls get rejected, negative means all of them.
type fakeHandler struct {
	modes    []Mode
	ticks    []uint64
	failures int
}

func (f *fakeHandler) SetMode(mode Mode) {
	f.modes = append(f.modes, mode)
}

func (f *fakeHandler) SetNextEvent(ticks uint64) error {
	f.ticks = append(f.ticks, ticks)
	if f.failures < 0 {
		return errRejected
	}
	if f.failures > 0 {
		f.failures--
		return errRejected
	}
	return nil
}

type ktimeFakeHandler struct {
	fakeHandler
	ktimes []int64
	err    error
}

func (f *ktimeFakeHandler) SetNextKtime(expires int64) error {
	f.ktimes = append(f.ktimes, expires)
	return f.err
}

func testRegistry(t *testing.T) (*Registry, *ManualClock) {
	t.Helper()
	clock := &ManualClock{}
	clock.Set(int64(1000000))
	cfg := DefaultConfig()
	cfg.Clock = clock
	return NewRegistry(cfg), clock
}

func oneshotDevice(t *testing.T, r *Registry, handler EventHandler) *Device {
	t.Helper()
	dev := &Device{
		Name:     "fake0",
		Features: FeatOneshot,
		Handler:  handler,
	}
	r.Configure(dev, 1000000, 1, 1000000)
	r.SetMode(dev, ModeOneshot)
	return dev
}

func TestProgramNegativeDeadline(t *testing.T) {
	r, _ := testRegistry(t)
	handler := &fakeHandler{}
	dev := oneshotDevice(t, r, handler)

	dev.NextEvent = 42
	err := r.Program(dev, -1, false)
	require.ErrorIs(t, err, ErrProgramTimeout)
	// A negative deadline is rejected before anything is committed.
	require.Equal(t, int64(42), dev.NextEvent)
	require.Empty(t, handler.ticks)
}

func TestProgramPastDeadline(t *testing.T) {
	r, clock := testRegistry(t)
	handler := &fakeHandler{}
	dev := oneshotDevice(t, r, handler)

	expires := clock.Now() - 5000
	err := r.Program(dev, expires, false)
	require.ErrorIs(t, err, ErrProgramTimeout)
	// The intended deadline stays observable even though it failed.
	require.Equal(t, expires, dev.NextEvent)
	require.Empty(t, handler.ticks)
}

func TestProgramShutdownDevice(t *testing.T) {
	r, clock := testRegistry(t)
	handler := &fakeHandler{}
	dev := oneshotDevice(t, r, handler)
	r.Shutdown(dev)

	expires := clock.Now() + NsPerSec
	require.NoError(t, r.Program(dev, expires, false))
	require.Equal(t, expires, dev.NextEvent)
	// A shut-down device never arms.
	require.Empty(t, handler.ticks)
}

func TestProgramSuccess(t *testing.T) {
	r, clock := testRegistry(t)
	handler := &fakeHandler{}
	dev := oneshotDevice(t, r, handler)

	expires := clock.Now() + 2000000
	require.NoError(t, r.Program(dev, expires, false))
	require.Equal(t, expires, dev.NextEvent)
	require.Len(t, handler.ticks, 1)
	// 2ms at 1MHz is 2000 ticks, give or take scale rounding.
	require.InDelta(t, 2000, float64(handler.ticks[0]), 1)
	require.Equal(t, uint64(1), dev.Retries)
}

func TestProgramClampsDelta(t *testing.T) {
	r, clock := testRegistry(t)
	handler := &fakeHandler{}
	dev := oneshotDevice(t, r, handler)

	// Way beyond the device range: clamped to MaxDeltaNs.
	require.NoError(t, r.Program(dev, clock.Now()+100*NsPerSec, false))
	require.Equal(t, nsToTicks(dev.MaxDeltaNs, dev.Mult, dev.Shift), handler.ticks[0])

	// Closer than the device minimum: clamped to MinDeltaNs.
	require.NoError(t, r.Program(dev, clock.Now()+1, false))
	require.Equal(t, nsToTicks(dev.MinDeltaNs, dev.Mult, dev.Shift), handler.ticks[1])
}

func TestProgramKtime(t *testing.T) {
	r, clock := testRegistry(t)
	handler := &ktimeFakeHandler{}
	dev := &Device{
		Name:     "ktime0",
		Features: FeatOneshot | FeatKtime,
		Handler:  handler,
	}
	r.Configure(dev, 1000000, 1, 1000000)
	r.SetMode(dev, ModeOneshot)

	expires := clock.Now() + 2000000
	require.NoError(t, r.Program(dev, expires, false))
	// Absolute-time devices bypass the delta path entirely.
	require.Equal(t, []int64{expires}, handler.ktimes)
	require.Empty(t, handler.ticks)

	handler.err = errRejected
	require.ErrorIs(t, r.Program(dev, expires, false), errRejected)
}

func TestProgramForceFallsBackToMinDelta(t *testing.T) {
	r, clock := testRegistry(t)
	handler := &fakeHandler{failures: 2}
	dev := oneshotDevice(t, r, handler)

	// Deadline already passed, but force lands it at the minimum delta
	// after two hardware rejections.
	require.NoError(t, r.Program(dev, clock.Now(), true))
	require.Len(t, handler.ticks, 3)
	require.Equal(t, clock.Now()+dev.MinDeltaNs, dev.NextEvent)
}

func TestProgramMinDeltaNoAdjust(t *testing.T) {
	clock := &ManualClock{}
	cfg := DefaultConfig()
	cfg.Clock = clock
	cfg.MinDeltaAdjust = false
	r := NewRegistry(cfg)

	handler := &fakeHandler{failures: -1}
	dev := oneshotDevice(t, r, handler)

	// Without the escalation policy exactly one attempt is made and its
	// result returned verbatim.
	err := r.Program(dev, clock.Now(), true)
	require.ErrorIs(t, err, errRejected)
	require.Len(t, handler.ticks, 1)
	require.Equal(t, dev.MinDeltaNs, dev.NextEvent-clock.Now())
}

func TestMinDeltaEscalation(t *testing.T) {
	r, clock := testRegistry(t)
	handler := &fakeHandler{failures: -1}
	dev := oneshotDevice(t, r, handler)

	limit := NsPerSec / r.cfg.TickRate
	require.Equal(t, int64(10000000), limit)

	// The working minimum grows 5000ns first, then by half each step,
	// capped at one system tick. Three rejections per step.
	ladder := []int64{dev.MinDeltaNs}
	for md := dev.MinDeltaNs; md < limit; {
		if md < minDeltaFloorNs {
			md = minDeltaFloorNs
		} else {
			md += md >> 1
		}
		if md > limit {
			md = limit
		}
		ladder = append(ladder, md)
	}

	var wantTicks []uint64
	for _, md := range ladder {
		clc := nsToTicks(md, dev.Mult, dev.Shift)
		wantTicks = append(wantTicks, clc, clc, clc)
	}

	err := r.Program(dev, clock.Now(), true)
	require.ErrorIs(t, err, ErrProgramTimeout)
	require.Equal(t, wantTicks, handler.ticks)
	// The device is declared unusable: parked at never.
	require.Equal(t, TimeNever, dev.NextEvent)
	require.Equal(t, uint64(len(wantTicks)), dev.Retries)

	ctrs := r.Counters()
	require.Equal(t, uint64(len(ladder)-1), ctrs.Escalations)
	require.Equal(t, uint64(1), ctrs.GiveUps)
}

func TestProgramMinDeltaShutdownWins(t *testing.T) {
	r, clock := testRegistry(t)
	handler := &fakeHandler{failures: -1}
	dev := oneshotDevice(t, r, handler)
	dev.mode = ModeShutdown

	// A device shut down before the retry loop runs succeeds trivially.
	require.NoError(t, r.Program(dev, clock.Now(), true))
	require.Empty(t, handler.ticks)
}
