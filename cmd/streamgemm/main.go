// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// streamgemm multiplies random matrices on a device and verifies the result against the software reference.
//
// Example:
//
//	streamgemm -settings="log2_n=6;log2_m=5;max_value=0" -dtypes=uint8,uint32 -trials=100
//
// It prints "TEST PASSED" and exits with 0 if every run matched the reference, or "TEST FAILED" and exits with 1.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/gomlx/streamgemm/internal/config"
	"github.com/gomlx/streamgemm/internal/eventtimer"
	"github.com/gomlx/streamgemm/internal/host"
	"github.com/gomlx/streamgemm/pkg/core/dtypes"
	"github.com/gomlx/streamgemm/pkg/device"
	_ "github.com/gomlx/streamgemm/pkg/device/default"
	"github.com/gomlx/streamgemm/pkg/support/xslices"
	"github.com/janpfeifer/must"
	"github.com/schollz/progressbar/v3"
	"k8s.io/klog/v2"
)

var (
	flagSettings = flag.String("settings", "",
		"Settings separated by \";\", e.g. \"log2_n=6;seed=7;file:~/settings.txt\". "+
			"Known parameters and their defaults: "+config.Default().String())
	flagDTypes = xslices.Flag("dtypes", nil,
		"Comma-separated list of lane types to run (uint8, uint16, uint32, uint64). Overrides the \"dtype\" setting.",
		dtypes.Parse)
	flagListDevices = flag.Bool("list_devices", false, "List the registered devices and exit.")
	flagTimings     = flag.Bool("timings", true, "Print the duration of each phase of the run.")
	flagMismatches  = flag.Int("max_mismatches", -1, "Maximum number of mismatches to print per run. -1 prints all.")
)

var titleStyle = lipgloss.NewStyle().Bold(true).Padding(1, 4, 1, 4)

func main() {
	klog.InitFlags(nil)
	flag.Parse()
	if len(flag.Args()) > 0 {
		klog.Errorf("Unexpected arguments %q. See 'streamgemm -help'.", flag.Args())
		os.Exit(1)
	}

	if *flagListDevices {
		listDevices()
		return
	}

	cfg := config.Default()
	if _, err := cfg.ParseSettings(*flagSettings); err != nil {
		klog.Errorf("Failed to parse -settings: %+v", err)
		os.Exit(1)
	}
	runDTypes := *flagDTypes
	if len(runDTypes) == 0 {
		runDTypes = []dtypes.DType{cfg.DType}
	}

	passed := true
	for _, dtype := range runDTypes {
		dtypeCfg := *cfg
		dtypeCfg.DType = dtype
		if !runOne(&dtypeCfg) {
			passed = false
		}
	}
	if passed {
		fmt.Println("TEST PASSED")
		return
	}
	fmt.Println("TEST FAILED")
	os.Exit(1)
}

func listDevices() {
	table := eventtimer.NewTable(true)
	table.Row("Device", "Description")
	for _, name := range device.List() {
		d, err := device.NewWithConfig[uint32](name)
		if err != nil {
			table.Row(name, "unavailable: "+err.Error())
			continue
		}
		table.Row(name, d.Description())
	}
	fmt.Println(titleStyle.Render("Devices"))
	fmt.Println(table.Render())
}

// runOne runs the host program and the trials for one configuration, and returns whether they passed.
func runOne(cfg *config.Config) bool {
	result, err := host.RunDType(cfg)
	if err != nil {
		klog.Errorf("Run failed for %s: %+v", cfg.DType, err)
		return false
	}
	for ii, mismatch := range result.Mismatches {
		if *flagMismatches >= 0 && ii >= *flagMismatches {
			fmt.Fprintf(os.Stderr, "... %d more mismatches\n", len(result.Mismatches)-ii)
			break
		}
		fmt.Fprintln(os.Stderr, mismatch)
	}

	fmt.Println(titleStyle.Render(fmt.Sprintf("Run %s (%s)", result.RunID, cfg.DType)))
	table := eventtimer.NewTable(false)
	table.Row("dimensions", fmt.Sprintf("n=%d, m=%d, p=%d", result.N, result.M, result.P))
	table.Row("device", fmt.Sprintf("%s: %s", result.Device, result.DeviceDescription))
	table.Row("# multiply-accumulates", humanize.Comma(int64(result.N*result.M*result.P)))
	table.Row("input stream bytes", humanize.Bytes(uint64(result.InputBytes)))
	table.Row("output stream bytes", humanize.Bytes(uint64(result.OutputBytes)))
	if result.Stats != nil {
		table.Row("words read (A, transposed B)",
			fmt.Sprintf("%s, %s", humanize.Comma(int64(result.Stats.AWordsRead)), humanize.Comma(int64(result.Stats.BWordsRead))))
		table.Row("row flushes", humanize.Comma(int64(result.Stats.RowFlushes)))
	}
	if result.DumpPath != "" {
		table.Row("output dump", result.DumpPath)
	}
	table.Row("mismatches", humanize.Comma(int64(len(result.Mismatches))))
	table.Row("verdict", result.Verdict())
	fmt.Println(table.Render())
	if *flagTimings {
		fmt.Println(result.Timer.Render())
	}
	passed := result.Passed()

	if cfg.Trials > 0 {
		failures := runTrials(cfg)
		if failures != 0 {
			passed = false
		}
	}
	return passed
}

// runTrials runs the randomized trials with a progress bar and returns the number of failures, counting a
// failure to run the trials as one.
func runTrials(cfg *config.Config) int {
	bar := progressbar.NewOptions(cfg.Trials,
		progressbar.OptionSetDescription(fmt.Sprintf("Trials (%s)", strings.ToLower(cfg.DType.String()))),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("trials"),
		progressbar.OptionSetTheme(progressbar.ThemeASCII),
		progressbar.OptionOnCompletion(func() { fmt.Println() }),
	)
	failures, err := host.RunTrials(cfg, func(_ bool) {
		must.M(bar.Add(1))
	})
	if err != nil {
		klog.Errorf("Trials failed for %s: %+v", cfg.DType, err)
		return failures + 1
	}
	fmt.Printf("Trials (%s): %s of %s passed\n", cfg.DType,
		humanize.Comma(int64(cfg.Trials-failures)), humanize.Comma(int64(cfg.Trials)))
	return failures
}
