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

import "sync/atomic"

// Counters is a snapshot of the registry's diagnostic counters.
type Counters struct {
	Registered    uint64 `json:"registered"`
	Exchanged     uint64 `json:"exchanged"`
	CPUDead       uint64 `json:"cpu_dead"`
	Programs      uint64 `json:"programs"`
	ProgramErrors uint64 `json:"program_errors"`
	Retries       uint64 `json:"retries"`
	Escalations   uint64 `json:"escalations"`
	GiveUps       uint64 `json:"give_ups"`
}

// counters is the live atomic backing store, safe to bump from any context.
type counters struct {
	registered    atomic.Uint64
	exchanged     atomic.Uint64
	cpuDead       atomic.Uint64
	programs      atomic.Uint64
	programErrors atomic.Uint64
	retries       atomic.Uint64
	escalations   atomic.Uint64
	giveUps       atomic.Uint64
}

func (c *counters) snapshot() Counters {
	return Counters{
		Registered:    c.registered.Load(),
		Exchanged:     c.exchanged.Load(),
		CPUDead:       c.cpuDead.Load(),
		Programs:      c.programs.Load(),
		ProgramErrors: c.programErrors.Load(),
		Retries:       c.retries.Load(),
		Escalations:   c.escalations.Load(),
		GiveUps:       c.giveUps.Load(),
	}
}
