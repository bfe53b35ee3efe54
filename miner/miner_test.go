package miner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gopicocoin/pico/block"
	"github.com/gopicocoin/pico/pow"
)

func TestMineProducesVerifiableBlock(t *testing.T) {
	b, err := block.New(nil, block.MinHDiff, "solver-pub", "2026-01-01 00:00:00.000000")
	require.NoError(t, err)

	require.NoError(t, Mine(context.Background(), b, pow.TrialFactorizer{}))
	require.NoError(t, b.WorkCheck())
	require.True(t, b.VerifySelf())
}

func TestMineRespectsCancellation(t *testing.T) {
	b, err := block.New(nil, block.MinHDiff, "solver-pub", "2026-01-01 00:00:00.000000")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = Mine(ctx, b, pow.TrialFactorizer{})
	require.Error(t, err)
}
