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

// Subscribe appends fn to the notification chain. Subscribers run
// synchronously in registration order under the registry lock, so they must
// not block and must not call back into the registry. The device argument is
// nil for ReasonCPUDead. There is no unsubscribe: chains are built once at
// startup.
func (r *Registry) Subscribe(fn func(Reason, *Device)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs = append(r.subs, fn)
}

func (r *Registry) notifyLocked(reason Reason, dev *Device) {
	for _, fn := range r.subs {
		fn(reason, dev)
	}
}
