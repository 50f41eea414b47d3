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

// Package stats exposes clock event registry counters over HTTP, both as
// plain JSON and in Prometheus exposition format.
package stats

import (
	"encoding/json"
	"fmt"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/timekit/clockevents"
)

// DeviceInfo is the per-device slice of the report.
type DeviceInfo struct {
	Name       string `json:"name"`
	Mode       string `json:"mode"`
	Rating     int    `json:"rating"`
	NextEvent  int64  `json:"next_event"`
	MinDeltaNs int64  `json:"min_delta_ns"`
	MaxDeltaNs int64  `json:"max_delta_ns"`
	Retries    uint64 `json:"retries"`
}

// Report is what we serve as JSON.
type Report struct {
	Counters clockevents.Counters `json:"counters"`
	Devices  []DeviceInfo         `json:"devices"`
}

// JSONStats serves a registry snapshot over HTTP.
type JSONStats struct {
	reg *clockevents.Registry
}

// NewJSONStats returns a JSONStats for the given registry.
func NewJSONStats(reg *clockevents.Registry) *JSONStats {
	return &JSONStats{reg: reg}
}

// Snapshot assembles the current report.
func (s *JSONStats) Snapshot() Report {
	devices := s.reg.Devices()
	report := Report{
		Counters: s.reg.Counters(),
		Devices:  make([]DeviceInfo, 0, len(devices)),
	}
	for _, dev := range devices {
		report.Devices = append(report.Devices, DeviceInfo{
			Name:       dev.Name,
			Mode:       dev.Mode().String(),
			Rating:     dev.Rating,
			NextEvent:  dev.NextEvent,
			MinDeltaNs: dev.MinDeltaNs,
			MaxDeltaNs: dev.MaxDeltaNs,
			Retries:    dev.Retries,
		})
	}
	return report
}

// handleRequest is the handler used for all http monitoring requests.
func (s *JSONStats) handleRequest(w http.ResponseWriter, _ *http.Request) {
	js, err := json.Marshal(s.Snapshot())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if _, err = w.Write(js); err != nil {
		log.Errorf("Failed to reply: %v", err)
	}
}

// Start runs the http json server. Blocks.
func (s *JSONStats) Start(monitoringPort int) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleRequest)
	addr := fmt.Sprintf(":%d", monitoringPort)
	log.Infof("Starting http json server on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("Failed to start listener: %v", err)
	}
}
