// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package streaming

import (
	"testing"

	"github.com/gomlx/streamgemm/pkg/core/dtypes"
	"github.com/gomlx/streamgemm/pkg/core/packed"
	"github.com/gomlx/streamgemm/pkg/engine"
	"github.com/janpfeifer/must"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	for _, dtype := range []dtypes.DType{dtypes.Uint8, dtypes.Uint16, dtypes.Uint32, dtypes.Uint64} {
		info := must.M1(New("", dtype))
		assert.Equal(t, DeviceName, info.Name())
		assert.Contains(t, info.Description(), dtype.String())
	}
	_, err := New("", dtypes.InvalidDType)
	require.Error(t, err)
}

func TestMultiplyReusesEngine(t *testing.T) {
	d := &Device[uint32]{}
	require.ErrorIs(t, d.Accepts(16, 16, 12), engine.ErrPrecondition)
	assert.Equal(t, engine.Stats{}, d.Stats())

	in1 := packed.NewStream[uint32](16)
	in2T := packed.NewStream[uint32](16)
	out := packed.NewStream[uint32](16)
	require.NoError(t, d.Multiply(in1, in2T, out, 16, 16, 16))
	first := d.engine
	require.NoError(t, d.Multiply(in1, in2T, out, 16, 16, 16))
	assert.Same(t, first, d.engine)
	assert.Equal(t, 16, d.Stats().RowFlushes)

	// New dimensions: a new engine is created.
	in1 = packed.NewStream[uint32](2)
	in2T = packed.NewStream[uint32](32)
	out = packed.NewStream[uint32](1)
	require.NoError(t, d.Multiply(in1, in2T, out, 1, 32, 16))
	assert.NotSame(t, first, d.engine)
	assert.Equal(t, 1, d.Stats().RowFlushes)

	assert.NotEmpty(t, SIMDLevel())
}
