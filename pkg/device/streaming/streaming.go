// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package streaming implements the "streaming" device, which runs the streaming multiplication engine
// in-process.
//
// It registers itself with the highest priority, so it is the default.
package streaming

import (
	"fmt"
	"strings"

	"github.com/gomlx/streamgemm/pkg/core/dtypes"
	"github.com/gomlx/streamgemm/pkg/core/packed"
	"github.com/gomlx/streamgemm/pkg/device"
	"github.com/gomlx/streamgemm/pkg/engine"
	"github.com/pkg/errors"
	"golang.org/x/sys/cpu"
)

// DeviceName to be used in the configuration of the device.
const DeviceName = "streaming"

// Priority of the streaming device: it is the preferred one.
const Priority = 100

func init() {
	device.Register(DeviceName, Priority, New)
}

// New constructs a streaming device for the given dtype. The config is ignored.
func New(_ string, dtype dtypes.DType) (device.Info, error) {
	switch dtype {
	case dtypes.Uint8:
		return &Device[uint8]{}, nil
	case dtypes.Uint16:
		return &Device[uint16]{}, nil
	case dtypes.Uint32:
		return &Device[uint32]{}, nil
	case dtypes.Uint64:
		return &Device[uint64]{}, nil
	}
	return nil, errors.Errorf("streaming device doesn't support dtype %s", dtype)
}

// Device runs engine.Engine. The engine is created on the first Multiply and reused while the
// dimensions don't change.
type Device[T dtypes.Unsigned] struct {
	engine *engine.Engine[T]
}

// Compile-time check that Device implements device.Device.
var _ device.Device[uint32] = (*Device[uint32])(nil)

// Name implements device.Device.
func (d *Device[T]) Name() string { return DeviceName }

// Description implements device.Device.
func (d *Device[T]) Description() string {
	return fmt.Sprintf("Streaming engine, %d×%s lanes per %d-bit word, host SIMD: %s",
		packed.Lanes[T](), dtypes.FromGenericsType[T](), packed.DataWidth, SIMDLevel())
}

// Accepts implements device.Device.
func (d *Device[T]) Accepts(n, m, p int) error {
	_, err := engine.New[T](n, m, p)
	return err
}

// Multiply implements device.Device.
func (d *Device[T]) Multiply(in1, in2T, out *packed.Stream[T], n, m, p int) error {
	if d.engine != nil {
		if en, em, ep := d.engine.Dims(); en != n || em != m || ep != p {
			d.engine = nil
		}
	}
	if d.engine == nil {
		var err error
		d.engine, err = engine.New[T](n, m, p)
		if err != nil {
			return err
		}
	}
	return d.engine.Multiply(in1, in2T, out)
}

// Stats of the last Multiply call.
func (d *Device[T]) Stats() engine.Stats {
	if d.engine == nil {
		return engine.Stats{}
	}
	return d.engine.Stats()
}

// SIMDLevel reports the vector extensions of the host CPU relevant for 512-bit words.
func SIMDLevel() string {
	var features []string
	switch {
	case cpu.X86.HasAVX512F:
		features = append(features, "AVX-512F")
		if cpu.X86.HasAVX512BW {
			features = append(features, "AVX-512BW")
		}
	case cpu.X86.HasAVX2:
		features = append(features, "AVX2")
	case cpu.ARM64.HasSVE:
		features = append(features, "SVE")
	case cpu.ARM64.HasASIMD:
		features = append(features, "ASIMD")
	}
	if len(features) == 0 {
		return "none"
	}
	return strings.Join(features, ",")
}
