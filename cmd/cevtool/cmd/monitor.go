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

package cmd

import (
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/timekit/clockevents"
	"github.com/timekit/clockevents/devices/sim"
	"github.com/timekit/clockevents/stats"
)

var (
	monitorPortFlag     int
	monitorPromPortFlag int
	monitorIntervalFlag time.Duration
)

func init() {
	RootCmd.AddCommand(monitorCmd)
	monitorCmd.Flags().IntVar(&monitorPortFlag, "port", 8888, "port for the JSON monitoring server")
	monitorCmd.Flags().IntVar(&monitorPromPortFlag, "promport", 8889, "port for the Prometheus exporter")
	monitorCmd.Flags().DurationVar(&monitorIntervalFlag, "interval", 10*time.Millisecond, "event programming interval")
}

// runMonitor keeps a simulated device busy so the exported stats move, and
// serves them over HTTP until interrupted.
func runMonitor() {
	clock := &clockevents.SystemClock{}
	cfg := clockevents.DefaultConfig()
	cfg.Clock = clock
	r := clockevents.NewRegistry(cfg)

	hw := sim.New("sim0", 1000000)
	dev := hw.ClockEvent()
	if err := r.ConfigureAndRegister(dev, hw.Freq(), 1, 1000000); err != nil {
		log.Fatal(err)
	}
	r.SetMode(dev, clockevents.ModeOneshot)

	go func() {
		for range time.Tick(monitorIntervalFlag) {
			if err := r.Program(dev, clock.Now()+monitorIntervalFlag.Nanoseconds(), false); err != nil {
				log.Errorf("programming %s: %v", dev.Name, err)
			}
			hw.Advance(monitorIntervalFlag.Nanoseconds())
		}
	}()

	go stats.NewPrometheusExporter(r).Start(monitorPromPortFlag)
	stats.NewJSONStats(r).Start(monitorPortFlag)
}

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Serve registry stats for a simulated device over HTTP",
	Run: func(_ *cobra.Command, _ []string) {
		ConfigureVerbosity()
		runMonitor()
	},
}
