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

	"github.com/spf13/cobra"

	"github.com/timekit/clockevents"
)

var (
	convertFreqFlag     uint32
	convertMinTicksFlag uint64
	convertMaxTicksFlag uint64
	convertLatchFlag    uint64
)

func init() {
	RootCmd.AddCommand(convertCmd)
	convertCmd.Flags().Uint32Var(&convertFreqFlag, "freq", 1000000, "device tick frequency in Hz")
	convertCmd.Flags().Uint64Var(&convertMinTicksFlag, "min-ticks", 1, "minimum programmable delta in ticks")
	convertCmd.Flags().Uint64Var(&convertMaxTicksFlag, "max-ticks", 1000000, "maximum programmable delta in ticks")
	convertCmd.Flags().Uint64Var(&convertLatchFlag, "latch", 0, "additional latch value to convert to ns")
}

func runConvert() {
	r := clockevents.NewRegistry(clockevents.DefaultConfig())
	dev := &clockevents.Device{
		Name:     "convert",
		Features: clockevents.FeatOneshot,
	}
	r.Configure(dev, convertFreqFlag, convertMinTicksFlag, convertMaxTicksFlag)

	fmt.Printf("freq:         %d Hz\n", convertFreqFlag)
	fmt.Printf("mult:         %d\n", dev.Mult)
	fmt.Printf("shift:        %d\n", dev.Shift)
	fmt.Printf("min_delta_ns: %d\n", dev.MinDeltaNs)
	fmt.Printf("max_delta_ns: %d\n", dev.MaxDeltaNs)
	if convertLatchFlag != 0 {
		fmt.Printf("latch %d:     %d ns\n", convertLatchFlag, clockevents.DeltaToNs(convertLatchFlag, dev))
	}
}

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Print the fixed-point scale factor and ns bounds for a device",
	Run: func(_ *cobra.Command, _ []string) {
		ConfigureVerbosity()
		runConvert()
	},
}
