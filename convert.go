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
	"math"

	log "github.com/sirupsen/logrus"
)

// deltaToNs converts a latch value (device ticks) to nanoseconds.
//
// For mult <= (1 << shift) adding mult - 1 before the division prevents
// integer rounding loss, so the backwards conversion from ns to device ticks
// lands at or above latch. For mult > (1 << shift), i.e. device frequency
// above 1GHz, the same addition can overshoot latch by up to
// (mult - 1) >> shift. For the min delta bound we still want it to stay above
// the minimum tick limit; for the max bound it would push us over the device
// upper limit, so the addition is skipped. It is also skipped when it would
// overflow uint64.
func deltaToNs(latch uint64, dev *Device, ismax bool) int64 {
	if dev.Mult == 0 {
		// Broken calibration. Repair so we never divide by zero.
		dev.Mult = 1
		log.Warningf("clockevents: %s: zero mult, substituting 1", dev.label())
	}
	clc := latch << dev.Shift
	// If the shift is not losslessly reversible it overflowed: saturate.
	if clc>>dev.Shift != latch {
		clc = math.MaxUint64
	}
	rnd := uint64(dev.Mult) - 1
	if math.MaxUint64-clc > rnd && (!ismax || uint64(dev.Mult) <= 1<<dev.Shift) {
		clc += rnd
	}
	clc /= uint64(dev.Mult)
	if clc < noiseFloorNs {
		clc = noiseFloorNs
	}
	if clc > math.MaxInt64 {
		return TimeNever
	}
	return int64(clc)
}

// DeltaToNs converts a latch value (device ticks) to nanoseconds using the
// device's scale factor, bound checked.
func DeltaToNs(latch uint64, dev *Device) int64 {
	return deltaToNs(latch, dev, false)
}

// nsToTicks converts a nanosecond delta to device ticks, truncating.
func nsToTicks(delta int64, mult, shift uint32) uint64 {
	return uint64(delta) * uint64(mult) >> shift
}

// CalcMultShift derives a mult/shift pair converting values in `from` units
// per second to `to` units per second, accurate for intervals up to maxsec
// seconds. The largest shift is picked for which the scaled conversion
// factor still leaves enough headroom to represent maxsec seconds without
// 64-bit overflow.
func CalcMultShift(from, to uint32, maxsec uint64) (mult, shift uint32) {
	// Bound the shift by the maximum interval we have to handle.
	sftacc := uint32(32)
	for tmp := (maxsec * uint64(from)) >> 32; tmp != 0; tmp >>= 1 {
		sftacc--
	}
	// Largest shift where the rounded conversion factor still fits.
	var tmp uint64
	var sft uint32
	for sft = 32; sft > 0; sft-- {
		tmp = uint64(to) << sft
		tmp += uint64(from) / 2
		tmp /= uint64(from)
		if tmp>>sftacc == 0 {
			break
		}
	}
	return uint32(tmp), sft
}
