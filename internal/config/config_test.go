// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/gomlx/streamgemm/pkg/core/dtypes"
	"github.com/janpfeifer/must"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())
	n, m, p := c.Dims()
	assert.Equal(t, []int{16, 16, 16}, []int{n, m, p})
	assert.Equal(t, uint64(100), c.MaxValue)
	assert.Equal(t, dtypes.Uint32, c.DType)
	assert.Equal(t, runtime.NumCPU(), c.Parallelism)
	assert.Equal(t,
		fmt.Sprintf("device=;dtype=uint32;dump=;log2_m=4;log2_n=4;log2_p=4;max_value=100;parallelism=%d;seed=42;trials=0",
			runtime.NumCPU()),
		c.String())
}

func TestParseSettings(t *testing.T) {
	c := Default()
	paramsSet, err := c.ParseSettings("log2_n=5; log2_p=6;max_value=1_000;dtype=U16;device=naive:x;trials=3")
	require.NoError(t, err)
	assert.Equal(t, []string{"log2_n", "log2_p", "max_value", "dtype", "device", "trials"}, paramsSet)
	n, m, p := c.Dims()
	assert.Equal(t, []int{32, 16, 64}, []int{n, m, p})
	assert.Equal(t, uint64(1000), c.MaxValue)
	assert.Equal(t, dtypes.Uint16, c.DType)
	assert.Equal(t, "naive:x", c.Device)
	assert.Equal(t, 3, c.Trials)
	require.NoError(t, c.Validate())

	// Round trip through String.
	c2 := Default()
	_, err = c2.ParseSettings(c.String())
	require.NoError(t, err)
	assert.Equal(t, c, c2)

	for _, bad := range []string{"unknown=1", "log2_n", "log2_n=x", "seed=-1", "dtype=float32", "file:/does/not/exist"} {
		_, err = Default().ParseSettings(bad)
		assert.Error(t, err, "setting %q should fail", bad)
	}
}

func TestParseSettingsFile(t *testing.T) {
	settingsPath := filepath.Join(t.TempDir(), "settings.txt")
	require.NoError(t, os.WriteFile(settingsPath, []byte("# Larger run\nlog2_m=6;seed=7\n\ndump=/tmp/out.bin\n"), 0o644))
	c := Default()
	paramsSet := must.M1(c.ParseSettings("trials=2;file:" + settingsPath))
	assert.Equal(t, []string{"trials", "log2_m", "seed", "dump"}, paramsSet)
	assert.Equal(t, 6, c.Log2M)
	assert.Equal(t, uint64(7), c.Seed)
	assert.Equal(t, "/tmp/out.bin", c.Dump)
}

func TestValidate(t *testing.T) {
	c := Default()
	c.Log2N = MaxLog2Dim + 1
	assert.Error(t, c.Validate())

	c = Default()
	c.DType = dtypes.Uint8
	c.MaxValue = 256
	assert.NoError(t, c.Validate())
	c.MaxValue = 257
	assert.Error(t, c.Validate())
	c.MaxValue = 0
	assert.NoError(t, c.Validate())

	c = Default()
	c.DType = dtypes.InvalidDType
	assert.Error(t, c.Validate())

	c = Default()
	c.Trials = -1
	assert.Error(t, c.Validate())
}
