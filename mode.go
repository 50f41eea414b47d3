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

// SetMode transitions dev into mode. The hardware callback fires only on an
// actual transition; calling with the current mode is a no-op. A device must
// never run ONESHOT with a zero scale factor, so that is repaired here.
func (r *Registry) SetMode(dev *Device, mode Mode) {
	if dev.mode == mode {
		return
	}
	dev.Handler.SetMode(mode)
	dev.mode = mode

	if mode == ModeOneshot && dev.Mult == 0 {
		dev.Mult = 1
		log.Warningf("clockevents: %s: entered ONESHOT with zero mult, substituting 1", dev.label())
	}
}

// Shutdown stops the device and parks its deadline at TimeNever.
func (r *Registry) Shutdown(dev *Device) {
	r.SetMode(dev, ModeShutdown)
	dev.NextEvent = TimeNever
}
