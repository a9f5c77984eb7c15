// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package device_test

import (
	"testing"

	"github.com/gomlx/streamgemm/pkg/core/dtypes"
	"github.com/gomlx/streamgemm/pkg/core/matrix"
	"github.com/gomlx/streamgemm/pkg/core/packed"
	"github.com/gomlx/streamgemm/pkg/device"
	_ "github.com/gomlx/streamgemm/pkg/device/default"
	"github.com/gomlx/streamgemm/pkg/engine"
	"github.com/gomlx/streamgemm/pkg/reference"
	"github.com/janpfeifer/must"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// infoOnly is registered under "info_only" and doesn't implement Device[T].
type infoOnly struct{}

func (infoOnly) Name() string        { return "info_only" }
func (infoOnly) Description() string { return "not a device" }

func init() {
	device.Register("info_only", -100, func(_ string, _ dtypes.DType) (device.Info, error) {
		return infoOnly{}, nil
	})
}

func TestList(t *testing.T) {
	assert.Equal(t, []string{"streaming", "naive", "info_only"}, device.List())
}

func TestNewWithConfig(t *testing.T) {
	t.Setenv(device.STREAMGEMM_DEVICE, "")
	d := must.M1(device.NewWithConfig[uint32](""))
	assert.Equal(t, "streaming", d.Name())

	d = must.M1(device.NewWithConfig[uint32]("naive:whatever"))
	assert.Equal(t, "naive", d.Name())

	_, err := device.NewWithConfig[uint32]("unknown")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown")

	_, err = device.NewWithConfig[uint32]("info_only")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "doesn't implement")
}

func TestNewFromEnv(t *testing.T) {
	t.Setenv(device.STREAMGEMM_DEVICE, "naive")
	d := must.M1(device.New[uint16]())
	assert.Equal(t, "naive", d.Name())
}

func TestDiscover(t *testing.T) {
	t.Setenv(device.STREAMGEMM_DEVICE, "")
	d := must.M1(device.Discover[uint32]("", 16, 16, 16))
	assert.Equal(t, "streaming", d.Name())

	// p=24 is not a power of two: the streaming device rejects it. The naive device would accept it,
	// but it has a negative priority and is never picked automatically.
	_, err := device.Discover[uint32]("", 16, 16, 24)
	require.ErrorIs(t, err, engine.ErrPrecondition)
	assert.Contains(t, err.Error(), "no device accepts")
	assert.NotContains(t, err.Error(), "naive")

	// Selected by name, the naive device is used.
	d = must.M1(device.Discover[uint32]("naive", 16, 16, 24))
	assert.Equal(t, "naive", d.Name())
	t.Setenv(device.STREAMGEMM_DEVICE, "naive")
	d = must.M1(device.Discover[uint32]("", 16, 16, 24))
	assert.Equal(t, "naive", d.Name())
	t.Setenv(device.STREAMGEMM_DEVICE, "")

	// Explicitly selected device that doesn't accept the dimensions.
	_, err = device.Discover[uint32]("streaming", 16, 16, 24)
	require.ErrorIs(t, err, engine.ErrPrecondition)

	_, err = device.Discover[uint32]("", 1, 1, 1)
	require.ErrorIs(t, err, engine.ErrPrecondition)
}

func TestDevicesAgree(t *testing.T) {
	const n, m, p = 16, 32, 16
	a := matrix.New[uint32](n, m)
	b := matrix.New[uint32](m, p)
	for ii := range a.Flat() {
		a.Flat()[ii] = uint32(ii % 7)
	}
	for ii := range b.Flat() {
		b.Flat()[ii] = uint32(ii % 5)
	}
	want := must.M1(reference.Multiply(a, b))
	in1 := must.M1(packed.Encode(a))
	in2T := must.M1(packed.Encode(matrix.Transpose(b)))
	for _, name := range []string{"streaming", "naive"} {
		t.Run(name, func(t *testing.T) {
			d := must.M1(device.NewWithConfig[uint32](name))
			require.NoError(t, d.Accepts(n, m, p))
			assert.NotEmpty(t, d.Description())
			out := packed.NewStream[uint32](n * p / packed.Lanes[uint32]())
			require.NoError(t, d.Multiply(in1, in2T, out, n, m, p))
			got := must.M1(packed.Decode(out, n, p))
			assert.True(t, want.Equal(got), "device %q output differs from the reference", name)
		})
	}
}
