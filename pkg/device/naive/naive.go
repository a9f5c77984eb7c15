// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package naive implements the "naive" device, which runs the reference triple loop on the packed streams.
//
// It runs the same triple loop as the reference multiplier, so it is never picked by device discovery:
// it must be selected explicitly, e.g. with "device=naive", to cross-check the packed stream plumbing.
package naive

import (
	"github.com/gomlx/streamgemm/pkg/core/dtypes"
	"github.com/gomlx/streamgemm/pkg/core/packed"
	"github.com/gomlx/streamgemm/pkg/device"
	"github.com/gomlx/streamgemm/pkg/reference"
	"github.com/pkg/errors"
)

// DeviceName to be used in the configuration of the device.
const DeviceName = "naive"

// Priority of the naive device: negative, so it is only used when selected by name.
const Priority = -1

func init() {
	device.Register(DeviceName, Priority, New)
}

// New constructs a naive device for the given dtype. The config is ignored.
func New(_ string, dtype dtypes.DType) (device.Info, error) {
	switch dtype {
	case dtypes.Uint8:
		return Device[uint8]{}, nil
	case dtypes.Uint16:
		return Device[uint16]{}, nil
	case dtypes.Uint32:
		return Device[uint32]{}, nil
	case dtypes.Uint64:
		return Device[uint64]{}, nil
	}
	return nil, errors.Errorf("naive device doesn't support dtype %s", dtype)
}

// Device runs reference.MultiplyPacked.
type Device[T dtypes.Unsigned] struct{}

var _ device.Device[uint32] = Device[uint32]{}

// Name implements device.Device.
func (Device[T]) Name() string { return DeviceName }

// Description implements device.Device.
func (Device[T]) Description() string {
	return "Naive triple loop over packed streams (" + dtypes.FromGenericsType[T]().String() + ")"
}

// Accepts implements device.Device.
func (Device[T]) Accepts(n, m, p int) error {
	if n <= 0 || m <= 0 || p <= 0 {
		return errors.Errorf("naive device requires positive dimensions, got n=%d, m=%d, p=%d", n, m, p)
	}
	if (n*m)%packed.Lanes[T]() != 0 || (m*p)%packed.Lanes[T]() != 0 || (n*p)%packed.Lanes[T]() != 0 {
		return errors.Errorf("naive device requires matrices that fill whole packed words of %d lanes, got n=%d, m=%d, p=%d",
			packed.Lanes[T](), n, m, p)
	}
	return nil
}

// Multiply implements device.Device.
func (Device[T]) Multiply(in1, in2T, out *packed.Stream[T], n, m, p int) error {
	return reference.MultiplyPacked(in1, in2T, out, n, m, p)
}
