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
	"sync"
	"time"
)

// Clock is the monotonic time source deadlines are expressed against.
// Now returns nanoseconds since an arbitrary fixed point in the past and
// never goes backwards.
type Clock interface {
	Now() int64
}

// SystemClock reads the Go runtime's monotonic clock.
type SystemClock struct {
	base time.Time
	once sync.Once
}

// Now returns monotonic nanoseconds since the first call site.
func (c *SystemClock) Now() int64 {
	c.once.Do(func() {
		c.base = time.Now()
	})
	return int64(time.Since(c.base))
}

// ManualClock is a Clock advanced by hand. Used in tests and simulations.
type ManualClock struct {
	mu  sync.Mutex
	now int64
}

// Now returns the current manual time.
func (c *ManualClock) Now() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d nanoseconds.
func (c *ManualClock) Advance(d int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now += d
}

// Set jumps the clock to t.
func (c *ManualClock) Set(t int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}
