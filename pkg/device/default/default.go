// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package _default includes the default devices: "streaming" (preferred) and "naive".
//
// To use it simply include:
//
//	import _ "github.com/gomlx/streamgemm/pkg/device/default"
package _default

import (
	_ "github.com/gomlx/streamgemm/pkg/device/naive"
	_ "github.com/gomlx/streamgemm/pkg/device/streaming"
)
