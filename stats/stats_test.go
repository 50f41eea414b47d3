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

package stats

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/timekit/clockevents"
)

type noopHandler struct{}

func (noopHandler) SetMode(clockevents.Mode) {}

func (noopHandler) SetNextEvent(uint64) error { return nil }

func testRegistry(t *testing.T) *clockevents.Registry {
	t.Helper()
	cfg := clockevents.DefaultConfig()
	cfg.Clock = &clockevents.ManualClock{}
	r := clockevents.NewRegistry(cfg)

	dev := &clockevents.Device{
		Name:     "sim0",
		Features: clockevents.FeatOneshot,
		Handler:  noopHandler{},
		Affinity: clockevents.CPUSet{0},
	}
	require.NoError(t, r.ConfigureAndRegister(dev, 1000000, 1, 1000000))
	return r
}

func TestJSONStats(t *testing.T) {
	s := NewJSONStats(testRegistry(t))

	w := httptest.NewRecorder()
	s.handleRequest(w, httptest.NewRequest("GET", "/", nil))
	require.Equal(t, 200, w.Code)
	require.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var report Report
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	require.Equal(t, uint64(1), report.Counters.Registered)
	require.Len(t, report.Devices, 1)
	require.Equal(t, "sim0", report.Devices[0].Name)
	require.Equal(t, "UNUSED", report.Devices[0].Mode)
}

func TestPrometheusExporter(t *testing.T) {
	e := NewPrometheusExporter(testRegistry(t))

	// 8 registry-wide counters plus one per-device series.
	require.Equal(t, 9, testutil.CollectAndCount(e))
}
