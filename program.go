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
	log "github.com/sirupsen/logrus"
)

// Program arms dev to fire at the absolute deadline expires.
//
// The deadline is committed to dev.NextEvent unconditionally, so consumers
// observe the intended deadline even when programming fails. A shut-down
// device trivially succeeds and never arms. With force set, a deadline the
// hardware rejects (or one already in the past) falls back to min-delta
// programming; without it the rejection is returned as ErrProgramTimeout.
func (r *Registry) Program(dev *Device, expires int64, force bool) error {
	if expires < 0 {
		r.warnNegative.Do(func() {
			log.Warningf("clockevents: %s: negative deadline %d", dev.label(), expires)
		})
		return ErrProgramTimeout
	}

	dev.NextEvent = expires

	if dev.mode == ModeShutdown {
		return nil
	}

	if dev.Features&FeatKtime != 0 {
		if kh, ok := dev.Handler.(KtimeHandler); ok {
			return r.countProgram(kh.SetNextKtime(expires))
		}
		// FeatKtime set but the backend cannot take absolute time.
		log.Warningf("clockevents: %s: FeatKtime without KtimeHandler, using delta path", dev.label())
	}

	delta := expires - r.cfg.Clock.Now()
	if delta <= 0 {
		if !force {
			return r.countProgram(ErrProgramTimeout)
		}
		return r.programMinDelta(dev)
	}

	if delta > dev.MaxDeltaNs {
		delta = dev.MaxDeltaNs
	}
	if delta < dev.MinDeltaNs {
		delta = dev.MinDeltaNs
	}

	clc := nsToTicks(delta, dev.Mult, dev.Shift)
	dev.Retries++
	r.ctrs.retries.Add(1)
	err := dev.Handler.SetNextEvent(clc)

	if err != nil && force {
		return r.programMinDelta(dev)
	}
	return r.countProgram(err)
}

// programMinDelta keeps arming the device at its minimum delta from "now",
// re-sampled each attempt so NextEvent keeps advancing. When min-delta
// adjustment is enabled, three consecutive rejections at the same minimum
// escalate it; the loop either lands a deadline or gives up at the ceiling.
func (r *Registry) programMinDelta(dev *Device) error {
	if !r.cfg.MinDeltaAdjust {
		delta := dev.MinDeltaNs
		dev.NextEvent = r.cfg.Clock.Now() + delta

		if dev.mode == ModeShutdown {
			return nil
		}

		dev.Retries++
		r.ctrs.retries.Add(1)
		clc := nsToTicks(delta, dev.Mult, dev.Shift)
		return r.countProgram(dev.Handler.SetNextEvent(clc))
	}

	for i := 0; ; {
		delta := dev.MinDeltaNs
		dev.NextEvent = r.cfg.Clock.Now() + delta

		if dev.mode == ModeShutdown {
			return nil
		}

		dev.Retries++
		r.ctrs.retries.Add(1)
		clc := nsToTicks(delta, dev.Mult, dev.Shift)
		if dev.Handler.SetNextEvent(clc) == nil {
			return r.countProgram(nil)
		}

		if i++; i > 2 {
			if err := r.increaseMinDelta(dev); err != nil {
				return r.countProgram(err)
			}
			i = 0
		}
	}
}

// increaseMinDelta raises the working minimum delta of a device whose
// hardware under-reports its true minimum: floor at 5us, then times 1.5,
// capped at one tick period of the system tick rate. At the cap the device
// is declared unusable.
func (r *Registry) increaseMinDelta(dev *Device) error {
	limit := NsPerSec / r.cfg.TickRate

	if dev.MinDeltaNs >= limit {
		log.Warningf("clockevents: %s: reprogramming failure, giving up", dev.label())
		dev.NextEvent = TimeNever
		r.ctrs.giveUps.Add(1)
		return ErrProgramTimeout
	}

	if dev.MinDeltaNs < minDeltaFloorNs {
		dev.MinDeltaNs = minDeltaFloorNs
	} else {
		dev.MinDeltaNs += dev.MinDeltaNs >> 1
	}
	if dev.MinDeltaNs > limit {
		dev.MinDeltaNs = limit
	}

	r.ctrs.escalations.Add(1)
	log.Warningf("clockevents: %s: increased min_delta_ns to %d nsec", dev.label(), dev.MinDeltaNs)
	return nil
}

func (r *Registry) countProgram(err error) error {
	r.ctrs.programs.Add(1)
	if err != nil {
		r.ctrs.programErrors.Add(1)
	}
	return err
}
