// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package device defines the interface of an execution device for the packed multiplication, and a
// registry of the available devices.
//
// The host program enumerates the registered devices in order of priority and uses the first one that
// accepts the requested dimensions, unless one is selected explicitly by name.
//
// Devices register themselves during package initialization. To include the default ones:
//
//	import _ "github.com/gomlx/streamgemm/pkg/device/default"
package device

import (
	"cmp"
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/gomlx/streamgemm/pkg/core/dtypes"
	"github.com/gomlx/streamgemm/pkg/core/packed"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Device executes C = A·B on packed streams: in1 is A (n×m), in2T is B transposed (p×m) and out receives C (n×p).
//
// The same Device must not be used concurrently by more than one goroutine.
type Device[T dtypes.Unsigned] interface {
	// Name returns the short name of the device, as used in the registry.
	Name() string

	// Description is a longer description of the Device that can be used to pretty-print.
	Description() string

	// Accepts returns nil if the device can multiply with the given dimensions, or an error explaining why not.
	Accepts(n, m, p int) error

	// Multiply runs the multiplication. It is only valid to call it with dimensions accepted by Accepts.
	Multiply(in1, in2T, out *packed.Stream[T], n, m, p int) error
}

// Info is the part of a Device that doesn't depend on the lane type.
type Info interface {
	Name() string
	Description() string
}

// Constructor takes a config string (optionally empty) and the lane dtype and returns a device.
//
// The returned value must implement Device[T] for the Go type T matching dtype, or it can return an
// error if the dtype is not supported.
type Constructor func(config string, dtype dtypes.DType) (Info, error)

type registration struct {
	name        string
	priority    int
	constructor Constructor
}

var registered = make(map[string]registration)

// Register device with the given name and priority, and a constructor that takes as input a configuration string
// that is passed along to the device.
//
// Devices with higher priority are tried first by Discover, and devices with a negative priority are skipped by
// it: they are only used when selected by name. Registering a name again replaces the previous registration.
//
// To be safe, call Register during initialization of a package.
func Register(name string, priority int, constructor Constructor) {
	registered[name] = registration{name: name, priority: priority, constructor: constructor}
}

// List returns the names of the registered devices, by decreasing priority (ties sorted by name).
func List() []string {
	regs := slices.Collect(maps.Values(registered))
	slices.SortFunc(regs, func(a, b registration) int {
		if a.priority != b.priority {
			return cmp.Compare(b.priority, a.priority)
		}
		return cmp.Compare(a.name, b.name)
	})
	names := make([]string, len(regs))
	for ii, reg := range regs {
		names[ii] = reg.name
	}
	return names
}

// DefaultConfig is the name of the default device configuration to use if specified.
//
// See NewWithConfig for the format of the configuration string.
var DefaultConfig string

// STREAMGEMM_DEVICE is the environment variable with the default device configuration to use.
//
// The format of config is "<device_name>:<device_configuration>".
const STREAMGEMM_DEVICE = "STREAMGEMM_DEVICE"

// New returns the default device for lane type T:
//
// 1. The environment STREAMGEMM_DEVICE is used as a configuration if defined.
// 2. Next the variable DefaultConfig is used as a configuration if defined.
// 3. The registered device with the highest priority is used with an empty configuration.
func New[T dtypes.Unsigned]() (Device[T], error) {
	return NewWithConfig[T](defaultConfig())
}

func defaultConfig() string {
	if config, found := os.LookupEnv(STREAMGEMM_DEVICE); found {
		return config
	}
	return DefaultConfig
}

// NewWithConfig creates the device selected by config, formatted as "<device_name>:<device_configuration>".
// If config has no ":", all of it is taken as the device name. If it is empty, the device with the highest
// priority is used.
func NewWithConfig[T dtypes.Unsigned](config string) (Device[T], error) {
	if len(registered) == 0 {
		return nil, errors.Errorf(`no registered devices -- maybe import the default ones with import _ "github.com/gomlx/streamgemm/pkg/device/default"?`)
	}
	name, deviceConfig := splitConfig(config)
	if name == "" {
		name = List()[0]
	}
	reg, found := registered[name]
	if !found {
		return nil, errors.Errorf("can't find device %q for configuration %q given, registered devices: %q", name, config, List())
	}
	info, err := reg.constructor(deviceConfig, dtypes.FromGenericsType[T]())
	if err != nil {
		return nil, errors.WithMessagef(err, "failed to create device %q", name)
	}
	d, ok := info.(Device[T])
	if !ok {
		return nil, errors.Errorf("device %q constructor returned %T, which doesn't implement Device[%s]",
			name, info, dtypes.FromGenericsType[T]())
	}
	return d, nil
}

func splitConfig(config string) (name, deviceConfig string) {
	if idx := strings.Index(config, ":"); idx != -1 {
		return config[:idx], config[idx+1:]
	}
	return config, ""
}

// Discover returns the device to use for the given dimensions.
//
// If config (or, if empty, the STREAMGEMM_DEVICE environment variable or DefaultConfig) selects a device,
// only that device is tried. Otherwise, every registered device with a non-negative priority is tried in
// order of priority, and the first one that accepts (n, m, p) is returned. Devices registered with a negative
// priority are only used when selected explicitly.
//
// If no device accepts the dimensions, the returned error wraps the rejection of the highest-priority device.
func Discover[T dtypes.Unsigned](config string, n, m, p int) (Device[T], error) {
	if config == "" {
		config = defaultConfig()
	}
	if config != "" {
		d, err := NewWithConfig[T](config)
		if err != nil {
			return nil, err
		}
		if err = d.Accepts(n, m, p); err != nil {
			return nil, errors.WithMessagef(err, "device %q doesn't accept n=%d, m=%d, p=%d", d.Name(), n, m, p)
		}
		return d, nil
	}

	var rejections []string
	var firstRejection error
	for _, name := range List() {
		if registered[name].priority < 0 {
			continue
		}
		d, err := NewWithConfig[T](name)
		if err != nil {
			klog.V(1).Infof("device %q not available: %v", name, err)
			rejections = append(rejections, name+": "+err.Error())
			continue
		}
		if err = d.Accepts(n, m, p); err != nil {
			klog.V(1).Infof("device %q rejected n=%d, m=%d, p=%d: %v", name, n, m, p, err)
			rejections = append(rejections, name+": "+err.Error())
			if firstRejection == nil {
				firstRejection = err
			}
			continue
		}
		klog.V(1).Infof("using device %q: %s", name, d.Description())
		return d, nil
	}
	if len(rejections) == 0 {
		return nil, errors.Errorf(`no registered devices for automatic discovery -- maybe import the default ones with import _ "github.com/gomlx/streamgemm/pkg/device/default"?`)
	}
	msg := fmt.Sprintf("no device accepts n=%d, m=%d, p=%d:\n\t%s", n, m, p, strings.Join(rejections, "\n\t"))
	if firstRejection == nil {
		return nil, errors.New(msg)
	}
	return nil, errors.WithMessage(firstRejection, msg)
}
