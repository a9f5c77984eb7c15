// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package verify

import (
	"math/rand/v2"
	"sync"

	"github.com/gomlx/streamgemm/internal/workerspool"
	"github.com/gomlx/streamgemm/pkg/core/dtypes"
	"github.com/gomlx/streamgemm/pkg/core/matrix"
	"github.com/gomlx/streamgemm/pkg/core/packed"
	"github.com/gomlx/streamgemm/pkg/engine"
	"github.com/gomlx/streamgemm/pkg/reference"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// TrialsConfig configures RunTrials.
type TrialsConfig struct {
	N, M, P int

	// NumTrials is the number of random (A, B) pairs to try.
	NumTrials int

	// MaxValue bounds the random values to [0, MaxValue). If 0 values span the whole range of the lane type.
	MaxValue uint64

	// Seed of trial t is (Seed, t), so any trial can be reproduced on its own.
	Seed uint64
}

// TrialResult is the outcome of one trial.
type TrialResult[T dtypes.Unsigned] struct {
	Trial  int
	Report *Report[T]

	// Deterministic is false if running the engine twice on the same inputs gave different outputs.
	Deterministic bool

	Stats engine.Stats
}

// Passed returns whether the trial matched the reference and was deterministic.
func (r *TrialResult[T]) Passed() bool {
	return r.Deterministic && r.Report.Passed()
}

// RunTrials multiplies cfg.NumTrials random pairs of matrices with the engine, each trial with its own
// engine instance, and compares them with the reference. Trials run concurrently on pool, or on a pool with
// one trial per CPU if pool is nil.
//
// onResult, if not nil, is called for each finished trial, serialized, in completion order.
// It returns the number of failed trials, and an error if some trial could not be run at all.
func RunTrials[T dtypes.Unsigned](cfg TrialsConfig, pool *workerspool.Pool, onResult func(*TrialResult[T])) (failures int, err error) {
	if cfg.NumTrials <= 0 {
		return 0, errors.Errorf("verify.RunTrials: NumTrials must be > 0, got %d", cfg.NumTrials)
	}
	// Fail fast on bad dimensions, before starting any trial.
	if _, err = engine.New[T](cfg.N, cfg.M, cfg.P); err != nil {
		return 0, err
	}

	if pool == nil {
		pool = workerspool.NewDefault()
	}
	var mu sync.Mutex
	pool.Run(cfg.NumTrials, func(trial int) {
		result, trialErr := runTrial[T](cfg, trial)
		mu.Lock()
		defer mu.Unlock()
		if trialErr != nil {
			if err == nil {
				err = errors.WithMessagef(trialErr, "trial %d", trial)
			}
			return
		}
		if !result.Passed() {
			failures++
			klog.V(1).Infof("trial %d failed: deterministic=%v, %d mismatches", trial, result.Deterministic, len(result.Report.Mismatches))
		}
		if onResult != nil {
			onResult(result)
		}
	})
	return failures, err
}

func runTrial[T dtypes.Unsigned](cfg TrialsConfig, trial int) (*TrialResult[T], error) {
	rng := rand.New(rand.NewPCG(cfg.Seed, uint64(trial)))
	a := matrix.Random[T](cfg.N, cfg.M, rng, cfg.MaxValue)
	b := matrix.Random[T](cfg.M, cfg.P, rng, cfg.MaxValue)
	bT := matrix.Transpose(b)

	want, err := reference.MultiplyTransposed(a, bT)
	if err != nil {
		return nil, err
	}
	in1, err := packed.Encode(a)
	if err != nil {
		return nil, err
	}
	in2T, err := packed.Encode(bT)
	if err != nil {
		return nil, err
	}
	e, err := engine.New[T](cfg.N, cfg.M, cfg.P)
	if err != nil {
		return nil, err
	}
	out := packed.NewStream[T](e.OutputWords())
	if err = e.Multiply(in1, in2T, out); err != nil {
		return nil, err
	}
	outAgain := packed.NewStream[T](e.OutputWords())
	if err = e.Multiply(in1, in2T, outAgain); err != nil {
		return nil, err
	}
	got, err := packed.Decode(out, cfg.N, cfg.P)
	if err != nil {
		return nil, err
	}
	report, err := Compare(got, want)
	if err != nil {
		return nil, err
	}
	return &TrialResult[T]{
		Trial:         trial,
		Report:        report,
		Deterministic: out.Equal(outAgain),
		Stats:         e.Stats(),
	}, nil
}
