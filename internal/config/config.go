// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package config holds the configuration of a host run: dimensions, random fill, lane type, device
// selection and verification trials.
//
// Parameters can be changed with a settings string, typically the contents of a flag set by the user:
// "log2_n=5;max_value=0;file:~/my_settings.txt". See ParseSettings.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/gomlx/streamgemm/pkg/core/dtypes"
	"github.com/gomlx/streamgemm/pkg/support/fsutil"
	"github.com/gomlx/streamgemm/pkg/support/xslices"
	"github.com/pkg/errors"
)

// MaxLog2Dim is the largest log2 of a dimension accepted by Validate.
const MaxLog2Dim = 16

// Config of one host run.
type Config struct {
	// Log2N, Log2M and Log2P are the log2 of the dimensions: A is n×m, B is m×p and C is n×p.
	Log2N, Log2M, Log2P int

	// Seed of the random number generator used to fill A and B.
	Seed uint64

	// MaxValue bounds the random values to [0, MaxValue). If 0 values span the whole range of the lane type.
	MaxValue uint64

	// DType is the lane type.
	DType dtypes.DType

	// Device selects the device as "<name>[:<config>]". If empty the first device accepting the dimensions is used.
	Device string

	// Trials is the number of additional randomized verification trials. 0 disables them.
	Trials int

	// Parallelism of the trials: 0 runs them inline, negative means unlimited.
	Parallelism int

	// Dump is the path of a file where the packed output stream is written. Empty disables it.
	Dump string
}

// Default returns the default configuration: a 16×16 by 16×16 multiplication of uint32 values below 100,
// with trials running one per CPU.
func Default() *Config {
	return &Config{
		Log2N:       4,
		Log2M:       4,
		Log2P:       4,
		Seed:        42,
		MaxValue:    100,
		DType:       dtypes.Uint32,
		Parallelism: runtime.NumCPU(),
	}
}

// Dims returns n, m and p.
func (c *Config) Dims() (n, m, p int) {
	return 1 << c.Log2N, 1 << c.Log2M, 1 << c.Log2P
}

// params maps each settings name to a pointer to the corresponding field.
func (c *Config) params() map[string]any {
	return map[string]any{
		"log2_n":      &c.Log2N,
		"log2_m":      &c.Log2M,
		"log2_p":      &c.Log2P,
		"seed":        &c.Seed,
		"max_value":   &c.MaxValue,
		"dtype":       &c.DType,
		"device":      &c.Device,
		"trials":      &c.Trials,
		"parallelism": &c.Parallelism,
		"dump":        &c.Dump,
	}
}

// Validate returns an error if some parameter is out of range.
//
// Constraints that depend on the device (e.g. m being a multiple of the lanes per word) are checked during
// device discovery.
func (c *Config) Validate() error {
	for _, dim := range []struct {
		name  string
		value int
	}{{"log2_n", c.Log2N}, {"log2_m", c.Log2M}, {"log2_p", c.Log2P}} {
		if dim.value < 0 || dim.value > MaxLog2Dim {
			return errors.Errorf("%s=%d must be between 0 and %d", dim.name, dim.value, MaxLog2Dim)
		}
	}
	if !c.DType.IsValid() {
		return errors.Errorf("dtype %s is not a supported lane type", c.DType)
	}
	if c.DType.Bits() < 64 && c.MaxValue > 1<<c.DType.Bits() {
		return errors.Errorf("max_value=%d doesn't fit dtype %s, use 0 for the full range", c.MaxValue, c.DType)
	}
	if c.Trials < 0 {
		return errors.Errorf("trials=%d must be >= 0", c.Trials)
	}
	return nil
}

// String returns the configuration as a settings string, with the parameters sorted by name.
// It can be parsed back by ParseSettings.
func (c *Config) String() string {
	params := c.params()
	parts := make([]string, 0, len(params))
	for _, name := range xslices.SortedKeys(params) {
		var value any
		switch ptr := params[name].(type) {
		case *int:
			value = *ptr
		case *uint64:
			value = *ptr
		case *string:
			value = *ptr
		case *dtypes.DType:
			value = strings.ToLower(ptr.String())
		}
		parts = append(parts, fmt.Sprintf("%s=%v", name, value))
	}
	return strings.Join(parts, ";")
}

// ParseSettings from settings, typically the contents of a flag set by the user.
// The settings are a list separated by ";": e.g.: "log2_n=5;seed=7;...".
//
// A setting "file:<path>" reads settings from the file, one or more per line. Empty lines and lines starting
// with "#" are ignored. A "~" at the start of path is replaced by the user's home directory.
//
// For integer types, "_" is removed: it allows one to enter large numbers using it as a separator, like
// in Go. E.g.: 1_000_000 = 1000000.
//
// It returns the names of the parameters set, in order, or an error if a parameter is unknown or its
// value failed to parse.
func (c *Config) ParseSettings(settings string) (paramsSet []string, err error) {
	for _, setting := range strings.Split(settings, ";") {
		paramsSet, err = c.parseSetting(setting, paramsSet)
		if err != nil {
			return
		}
	}
	return
}

func (c *Config) parseSetting(setting string, paramsSet []string) (newParamsSet []string, err error) {
	newParamsSet = paramsSet
	setting = strings.TrimSpace(setting)
	if setting == "" {
		return
	}
	if strings.HasPrefix(setting, "file:") {
		var filePath string
		filePath, err = fsutil.ReplaceTildeInDir(strings.TrimPrefix(setting, "file:"))
		if err != nil {
			return
		}
		var contents []byte
		contents, err = os.ReadFile(filePath)
		if err != nil {
			err = errors.Wrapf(err, "failed to read settings from file %q", filePath)
			return
		}
		for _, line := range strings.Split(string(contents), "\n") {
			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			for _, lineSetting := range strings.Split(line, ";") {
				newParamsSet, err = c.parseSetting(lineSetting, newParamsSet)
				if err != nil {
					return
				}
			}
		}
		return
	}

	parts := strings.Split(setting, "=")
	if len(parts) != 2 {
		err = errors.Errorf("can't parse settings %q: each setting requires the format \"<param>=<value>\"", setting)
		return
	}
	name, valueStr := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
	params := c.params()
	ptr, found := params[name]
	if !found {
		err = errors.Errorf("unknown parameter %q in setting %q, known parameters: %s",
			name, setting, strings.Join(xslices.SortedKeys(params), ", "))
		return
	}
	switch v := ptr.(type) {
	case *int:
		err = json.Unmarshal([]byte(strings.ReplaceAll(valueStr, "_", "")), v)
	case *uint64:
		err = json.Unmarshal([]byte(strings.ReplaceAll(valueStr, "_", "")), v)
	case *string:
		*v = valueStr
	case *dtypes.DType:
		*v, err = dtypes.Parse(valueStr)
	default:
		err = errors.Errorf("don't know how to parse type %T for setting parameter %q", ptr, setting)
	}
	if err != nil {
		err = errors.Wrapf(err, "failed to parse value %q for parameter %q", valueStr, name)
		return
	}
	newParamsSet = append(newParamsSet, name)
	return
}
