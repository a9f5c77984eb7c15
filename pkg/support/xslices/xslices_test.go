// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package xslices

import (
	"flag"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSortedKeys(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, SortedKeys(map[string]int{"c": 3, "a": 1, "b": 2}))
	assert.Empty(t, SortedKeys(map[int]bool{}))
}

func TestMap(t *testing.T) {
	assert.Equal(t, []string{"1", "2"}, Map([]int{1, 2}, strconv.Itoa))
}

func TestFlagSet(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	values := FlagSet(fs, "ints", []int{7}, "list of ints", strconv.Atoi)
	require.NoError(t, fs.Parse(nil))
	assert.Equal(t, []int{7}, *values)
	require.NoError(t, fs.Parse([]string{"-ints=1, 2,3"}))
	assert.Equal(t, []int{1, 2, 3}, *values)
	assert.Equal(t, "1,2,3", fs.Lookup("ints").Value.String())
	require.Error(t, fs.Parse([]string{"-ints=1,x"}))
}
