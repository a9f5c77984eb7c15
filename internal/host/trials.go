// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package host

import (
	"github.com/gomlx/streamgemm/internal/config"
	"github.com/gomlx/streamgemm/internal/workerspool"
	"github.com/gomlx/streamgemm/pkg/core/dtypes"
	"github.com/gomlx/streamgemm/pkg/verify"
	"github.com/pkg/errors"
)

// RunTrials runs cfg.Trials randomized verification trials of the streaming engine, for cfg.DType, with
// cfg.Parallelism trials running concurrently.
//
// onTrial, if not nil, is called after each trial with whether it passed. It returns the number of failed trials.
func RunTrials(cfg *config.Config, onTrial func(passed bool)) (failures int, err error) {
	if err = cfg.Validate(); err != nil {
		return 0, err
	}
	n, m, p := cfg.Dims()
	trialsCfg := verify.TrialsConfig{
		N: n, M: m, P: p,
		NumTrials: cfg.Trials,
		MaxValue:  cfg.MaxValue,
		Seed:      cfg.Seed,
	}
	pool := workerspool.New(cfg.Parallelism)
	switch cfg.DType {
	case dtypes.Uint8:
		return runTrials[uint8](trialsCfg, pool, onTrial)
	case dtypes.Uint16:
		return runTrials[uint16](trialsCfg, pool, onTrial)
	case dtypes.Uint32:
		return runTrials[uint32](trialsCfg, pool, onTrial)
	case dtypes.Uint64:
		return runTrials[uint64](trialsCfg, pool, onTrial)
	}
	return 0, errors.Errorf("host.RunTrials: unsupported dtype %s", cfg.DType)
}

func runTrials[T dtypes.Unsigned](cfg verify.TrialsConfig, pool *workerspool.Pool, onTrial func(passed bool)) (int, error) {
	var onResult func(*verify.TrialResult[T])
	if onTrial != nil {
		onResult = func(r *verify.TrialResult[T]) { onTrial(r.Passed()) }
	}
	return verify.RunTrials[T](cfg, pool, onResult)
}
