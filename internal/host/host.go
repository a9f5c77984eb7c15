// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package host orchestrates one verification run of a device: it prepares random inputs, computes the
// reference result in software, runs the multiplication on the selected device and compares the results.
//
// Every phase is timed with an eventtimer.Timer:
//
//  1. Allocate host memory.
//  2. Fill A and B with random values below Config.MaxValue.
//  3. Create the transposed copy of B.
//  4. Software matrix multiplication (the reference).
//  5. Device discovery: the first registered device that accepts the dimensions, or Config.Device.
//  6. Copy input data to the device: A and the transposed B are encoded into packed streams.
//  7. Launch the device.
//  8. Copy the result back: the packed output stream is decoded.
//  9. Validate results against the reference.
//  10. Optionally, dump the packed output stream to Config.Dump.
package host

import (
	"math/rand/v2"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/streamgemm/internal/config"
	"github.com/gomlx/streamgemm/internal/eventtimer"
	"github.com/gomlx/streamgemm/pkg/core/dtypes"
	"github.com/gomlx/streamgemm/pkg/core/matrix"
	"github.com/gomlx/streamgemm/pkg/core/packed"
	"github.com/gomlx/streamgemm/pkg/device"
	"github.com/gomlx/streamgemm/pkg/engine"
	"github.com/gomlx/streamgemm/pkg/reference"
	"github.com/gomlx/streamgemm/pkg/support/fsutil"
	"github.com/gomlx/streamgemm/pkg/verify"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Result of a host run.
type Result struct {
	// RunID identifies the run in logs and dumps.
	RunID uuid.UUID

	DType   dtypes.DType
	N, M, P int

	// Device used, and its description.
	Device, DeviceDescription string

	// InputBytes is the size of the packed input streams (A and transposed B), OutputBytes of the packed output.
	InputBytes, OutputBytes uintptr

	// Mismatches lists every element where the device and the reference disagree. Empty if the run passed.
	Mismatches []string

	// MismatchErr is nil if the run passed, or a *verify.MismatchError.
	MismatchErr error

	// Stats of the streaming engine, or nil if the device doesn't report them.
	Stats *engine.Stats

	// Timer with the duration of each phase.
	Timer *eventtimer.Timer

	// DumpPath where the packed output stream was written, if any.
	DumpPath string
}

// Passed returns whether the device output matched the reference.
func (r *Result) Passed() bool {
	return r.MismatchErr == nil
}

// Verdict returns "TEST PASSED" or "TEST FAILED".
func (r *Result) Verdict() string {
	if r.Passed() {
		return "TEST PASSED"
	}
	return "TEST FAILED"
}

// statsReporter is implemented by devices that report engine statistics.
type statsReporter interface {
	Stats() engine.Stats
}

// RunDType calls Run with the Go type matching cfg.DType.
func RunDType(cfg *config.Config) (*Result, error) {
	switch cfg.DType {
	case dtypes.Uint8:
		return Run[uint8](cfg)
	case dtypes.Uint16:
		return Run[uint16](cfg)
	case dtypes.Uint32:
		return Run[uint32](cfg)
	case dtypes.Uint64:
		return Run[uint64](cfg)
	}
	return nil, errors.Errorf("host.RunDType: unsupported dtype %s", cfg.DType)
}

// Run the host program for lane type T, which must match cfg.DType.
//
// A mismatch between the device and the reference is not an error: it is reported in the Result.
// Errors are returned for invalid configurations, if no device accepts the dimensions, or if a
// phase fails.
func Run[T dtypes.Unsigned](cfg *config.Config) (result *Result, err error) {
	if dtype := dtypes.FromGenericsType[T](); dtype != cfg.DType {
		return nil, errors.Errorf("host.Run[%s] called with configuration for dtype %s", dtype, cfg.DType)
	}
	if err = cfg.Validate(); err != nil {
		return nil, err
	}
	panicErr := exceptions.TryCatch[error](func() {
		result, err = run[T](cfg)
	})
	if panicErr != nil {
		return nil, errors.WithMessage(panicErr, "host.Run failed")
	}
	return
}

func run[T dtypes.Unsigned](cfg *config.Config) (*Result, error) {
	n, m, p := cfg.Dims()
	result := &Result{
		RunID: uuid.New(),
		DType: cfg.DType,
		N:     n, M: m, P: p,
		Timer: eventtimer.New(),
	}
	et := result.Timer
	defer et.Finish()
	klog.V(1).Infof("run %s: n=%d, m=%d, p=%d, dtype=%s", result.RunID, n, m, p, cfg.DType)

	et.Add("Allocate memory in host memory")
	lanes := packed.Lanes[T]()
	for _, numValues := range []int{n * m, p * m, n * p} {
		if numValues%lanes != 0 {
			return nil, errors.Wrapf(engine.ErrPrecondition, "n=%d, m=%d, p=%d: matrices don't fill whole packed words of %d lanes",
				n, m, p, lanes)
		}
	}
	a := matrix.New[T](n, m)
	b := matrix.New[T](m, p)
	bT := matrix.New[T](p, m)
	in1 := packed.NewStream[T](n * m / lanes)
	in2T := packed.NewStream[T](p * m / lanes)
	out := packed.NewStream[T](n * p / lanes)
	result.InputBytes = in1.Memory() + in2T.Memory()
	result.OutputBytes = out.Memory()

	et.Add("Fill the buffers")
	rng := rand.New(rand.NewPCG(cfg.Seed, 0))
	a.FillRandom(rng, cfg.MaxValue)
	b.FillRandom(rng, cfg.MaxValue)

	et.Add("Create transposed copy")
	if err := matrix.TransposeInto(b, bT); err != nil {
		return nil, err
	}

	et.Add("Software matrix multiplication")
	want, err := reference.MultiplyTransposed(a, bT)
	if err != nil {
		return nil, err
	}

	et.Add("Device discovery")
	d, err := device.Discover[T](cfg.Device, n, m, p)
	if err != nil {
		return nil, err
	}
	result.Device, result.DeviceDescription = d.Name(), d.Description()
	klog.V(1).Infof("device %q: %s", d.Name(), d.Description())

	et.Add("Copy input data to device")
	if err = packed.EncodeInto(a, in1); err != nil {
		return nil, err
	}
	if err = packed.EncodeInto(bT, in2T); err != nil {
		return nil, err
	}

	et.Add("Launch the device")
	if err = d.Multiply(in1, in2T, out, n, m, p); err != nil {
		return nil, errors.WithMessagef(err, "device %q failed", d.Name())
	}
	if reporter, ok := d.(statsReporter); ok {
		stats := reporter.Stats()
		result.Stats = &stats
	}

	et.Add("Copy result from device to host memory")
	got, err := packed.Decode(out, n, p)
	if err != nil {
		return nil, err
	}

	et.Add("Validate results")
	report, err := verify.Compare(got, want)
	if err != nil {
		return nil, err
	}
	for _, mismatch := range report.Mismatches {
		result.Mismatches = append(result.Mismatches, mismatch.String())
	}
	result.MismatchErr = report.Err()

	if cfg.Dump != "" {
		et.Add("Dump output stream")
		contents, err := out.MarshalBinary()
		if err != nil {
			return nil, err
		}
		result.DumpPath, err = fsutil.WriteFile(cfg.Dump, contents)
		if err != nil {
			return nil, err
		}
		klog.V(1).Infof("packed output stream (%d bytes) written to %q", len(contents), result.DumpPath)
	}
	return result, nil
}
