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
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"

	"github.com/timekit/clockevents"
	"github.com/timekit/clockevents/devices/sim"
)

// DeviceConfig describes one simulated device in a scenario.
type DeviceConfig struct {
	Name          string `yaml:"name"`
	Frequency     uint32 `yaml:"frequency"`
	MinDeltaTicks uint64 `yaml:"minticks"`
	MaxDeltaTicks uint64 `yaml:"maxticks"`
	// Failures is how many programming attempts the hardware rejects
	// before accepting one. Negative rejects all of them.
	Failures int `yaml:"failures"`
	// FloorTicks rejects deadlines below this tick count, modelling
	// hardware that under-reports its minimum.
	FloorTicks uint64 `yaml:"floorticks"`
}

// EventConfig is one deadline to program.
type EventConfig struct {
	Device string `yaml:"device"`
	After  string `yaml:"after"`
	Force  bool   `yaml:"force"`
}

// Scenario is what a simulation file describes.
type Scenario struct {
	TickRate int64          `yaml:"tickrate"`
	Devices  []DeviceConfig `yaml:"devices"`
	Events   []EventConfig  `yaml:"events"`
}

// ReadScenario reads a scenario from a yaml file.
func ReadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s := &Scenario{TickRate: 100}
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, err
	}
	if len(s.Devices) == 0 {
		return nil, fmt.Errorf("scenario has no devices")
	}
	return s, nil
}

type simResult struct {
	device   string
	deadline time.Duration
	ticks    uint64
	retries  uint64
	err      error
}

func runScenario(s *Scenario) ([]simResult, error) {
	clock := &clockevents.ManualClock{}
	cfg := clockevents.DefaultConfig()
	cfg.Clock = clock
	cfg.MinDeltaAdjust = true
	cfg.TickRate = s.TickRate
	r := clockevents.NewRegistry(cfg)

	hardware := map[string]*sim.Device{}
	devices := map[string]*clockevents.Device{}
	for _, dc := range s.Devices {
		hw := sim.New(dc.Name, dc.Frequency)
		hw.FailNext(dc.Failures)
		hw.SetFloor(dc.FloorTicks)
		dev := hw.ClockEvent()
		if err := r.ConfigureAndRegister(dev, dc.Frequency, dc.MinDeltaTicks, dc.MaxDeltaTicks); err != nil {
			return nil, fmt.Errorf("registering %s: %w", dc.Name, err)
		}
		r.SetMode(dev, clockevents.ModeOneshot)
		hardware[dc.Name] = hw
		devices[dc.Name] = dev
	}

	results := make([]simResult, 0, len(s.Events))
	for _, ec := range s.Events {
		dev, ok := devices[ec.Device]
		if !ok {
			return nil, fmt.Errorf("event references unknown device %q", ec.Device)
		}
		after, err := time.ParseDuration(ec.After)
		if err != nil {
			return nil, fmt.Errorf("event for %s: bad duration %q: %w", ec.Device, ec.After, err)
		}

		before := dev.Retries
		perr := r.Program(dev, clock.Now()+after.Nanoseconds(), ec.Force)

		var ticks uint64
		if programmed := hardware[ec.Device].Programmed(); len(programmed) > 0 {
			ticks = programmed[len(programmed)-1]
		}
		results = append(results, simResult{
			device:   ec.Device,
			deadline: after,
			ticks:    ticks,
			retries:  dev.Retries - before,
			err:      perr,
		})

		clock.Advance(after.Nanoseconds())
		hardware[ec.Device].Advance(after.Nanoseconds())
	}
	return results, nil
}

func printResults(results []simResult) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	table := tablewriter.NewWriter(os.Stdout)
	table.SetColWidth(20)
	table.SetHeader([]string{"device", "deadline", "last ticks", "retries", "result"})
	for _, res := range results {
		outcome := green("OK")
		if res.err != nil {
			outcome = red(fmt.Sprintf("FAIL: %v", res.err))
		}
		table.Append([]string{
			res.device,
			res.deadline.String(),
			fmt.Sprintf("%d", res.ticks),
			fmt.Sprintf("%d", res.retries),
			outcome,
		})
	}
	table.Render()
}

var simulateFileFlag string

func init() {
	RootCmd.AddCommand(simulateCmd)
	simulateCmd.Flags().StringVarP(&simulateFileFlag, "file", "f", "", "path to the scenario yaml")
	if err := simulateCmd.MarkFlagRequired("file"); err != nil {
		log.Fatal(err)
	}
}

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run a device programming scenario against simulated hardware",
	Run: func(_ *cobra.Command, _ []string) {
		ConfigureVerbosity()
		s, err := ReadScenario(simulateFileFlag)
		if err != nil {
			log.Fatal(err)
		}
		results, err := runScenario(s)
		if err != nil {
			log.Fatal(err)
		}
		printResults(results)
	},
}
