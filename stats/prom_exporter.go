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
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/timekit/clockevents"
)

// PrometheusExporter exports registry counters in Prometheus exposition
// format. It implements prometheus.Collector, scraping the registry on every
// collect.
type PrometheusExporter struct {
	reg *clockevents.Registry

	registered    *prometheus.Desc
	exchanged     *prometheus.Desc
	cpuDead       *prometheus.Desc
	programs      *prometheus.Desc
	programErrors *prometheus.Desc
	retries       *prometheus.Desc
	escalations   *prometheus.Desc
	giveUps       *prometheus.Desc
	retriesPerDev *prometheus.Desc
}

// NewPrometheusExporter creates a collector over the given registry.
func NewPrometheusExporter(reg *clockevents.Registry) *PrometheusExporter {
	return &PrometheusExporter{
		reg:           reg,
		registered:    prometheus.NewDesc("clockevents_devices_registered_total", "Device registrations", nil, nil),
		exchanged:     prometheus.NewDesc("clockevents_devices_exchanged_total", "Device exchanges", nil, nil),
		cpuDead:       prometheus.NewDesc("clockevents_cpu_dead_total", "CPU removal cleanups", nil, nil),
		programs:      prometheus.NewDesc("clockevents_programs_total", "Event programming operations", nil, nil),
		programErrors: prometheus.NewDesc("clockevents_program_errors_total", "Failed event programming operations", nil, nil),
		retries:       prometheus.NewDesc("clockevents_retries_total", "Hardware programming attempts", nil, nil),
		escalations:   prometheus.NewDesc("clockevents_min_delta_escalations_total", "Min delta escalations", nil, nil),
		giveUps:       prometheus.NewDesc("clockevents_give_ups_total", "Devices declared unusable", nil, nil),
		retriesPerDev: prometheus.NewDesc("clockevents_device_retries_total", "Programming attempts per device", []string{"device", "mode"}, nil),
	}
}

// Describe implements prometheus.Collector.
func (e *PrometheusExporter) Describe(ch chan<- *prometheus.Desc) {
	ch <- e.registered
	ch <- e.exchanged
	ch <- e.cpuDead
	ch <- e.programs
	ch <- e.programErrors
	ch <- e.retries
	ch <- e.escalations
	ch <- e.giveUps
	ch <- e.retriesPerDev
}

// Collect implements prometheus.Collector.
func (e *PrometheusExporter) Collect(ch chan<- prometheus.Metric) {
	ctrs := e.reg.Counters()
	ch <- prometheus.MustNewConstMetric(e.registered, prometheus.CounterValue, float64(ctrs.Registered))
	ch <- prometheus.MustNewConstMetric(e.exchanged, prometheus.CounterValue, float64(ctrs.Exchanged))
	ch <- prometheus.MustNewConstMetric(e.cpuDead, prometheus.CounterValue, float64(ctrs.CPUDead))
	ch <- prometheus.MustNewConstMetric(e.programs, prometheus.CounterValue, float64(ctrs.Programs))
	ch <- prometheus.MustNewConstMetric(e.programErrors, prometheus.CounterValue, float64(ctrs.ProgramErrors))
	ch <- prometheus.MustNewConstMetric(e.retries, prometheus.CounterValue, float64(ctrs.Retries))
	ch <- prometheus.MustNewConstMetric(e.escalations, prometheus.CounterValue, float64(ctrs.Escalations))
	ch <- prometheus.MustNewConstMetric(e.giveUps, prometheus.CounterValue, float64(ctrs.GiveUps))
	for _, dev := range e.reg.Devices() {
		ch <- prometheus.MustNewConstMetric(e.retriesPerDev, prometheus.CounterValue, float64(dev.Retries), dev.Name, dev.Mode().String())
	}
}

// Start serves /metrics on the given port. Blocks.
func (e *PrometheusExporter) Start(listenPort int) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(e)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(
		registry,
		promhttp.HandlerOpts{
			EnableOpenMetrics: true,
		},
	))
	log.Fatal(http.ListenAndServe(fmt.Sprintf(":%d", listenPort), mux))
}
