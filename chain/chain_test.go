package chain

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gopicocoin/pico/block"
	"github.com/gopicocoin/pico/identity"
	"github.com/gopicocoin/pico/pow"
	"github.com/gopicocoin/pico/serial"
	"github.com/gopicocoin/pico/tx"
)

func mineBlock(t *testing.T, b *block.Block) {
	t.Helper()
	f := pow.TrialFactorizer{}
	for i := 0; i < b.VDiff; i++ {
		n, err := b.ExtractN(i)
		require.NoError(t, err)
		factors, err := f.Factor(n)
		require.NoError(t, err)
		require.NoError(t, b.AppendRound(n, factors))
	}
}

func TestGenesisBlockAcceptedOnSixthConfirmation(t *testing.T) {
	bc, err := New("1")
	require.NoError(t, err)

	solver, err := identity.Create("solver-pw")
	require.NoError(t, err)

	b, err := block.New(nil, block.MinHDiff, solver.Pub, "2026-01-01 00:00:00.000000")
	require.NoError(t, err)
	mineBlock(t, b)

	var accepted bool
	for i := 0; i < BlockRequiredConfirms; i++ {
		var confirms int
		accepted, confirms, err = bc.AddBlock(b)
		require.NoError(t, err)
		require.Equal(t, i+1, confirms)
		if i < BlockRequiredConfirms-1 {
			require.False(t, accepted)
		}
	}
	require.True(t, accepted)
	require.Equal(t, 1, bc.BlocksCount())
	require.Equal(t, float64(0), bc.Balance(solver.Pub))
}

func TestAlreadySolvedRejectsSecondBlockForSamePrev(t *testing.T) {
	bc, err := New("1")
	require.NoError(t, err)
	solver, err := identity.Create("solver-pw")
	require.NoError(t, err)

	b1, err := block.New(nil, block.MinHDiff, solver.Pub, "2026-01-01 00:00:00.000000")
	require.NoError(t, err)
	mineBlock(t, b1)
	for i := 0; i < BlockRequiredConfirms; i++ {
		_, _, err = bc.AddBlock(b1)
		require.NoError(t, err)
	}
	require.Equal(t, 1, bc.BlocksCount())

	b2, err := block.New(nil, block.MinHDiff, solver.Pub, "2026-01-01 00:00:01.000000")
	require.NoError(t, err)
	mineBlock(t, b2)

	_, _, err = bc.AddBlock(b2)
	require.ErrorIs(t, err, ErrAlreadySolved)
}

func TestRewardCreditsBalanceOnceAccepted(t *testing.T) {
	bc, err := New("1")
	require.NoError(t, err)
	solver, err := identity.Create("solver-pw")
	require.NoError(t, err)

	genesis, err := block.New(nil, block.MinHDiff, solver.Pub, "2026-01-01 00:00:00.000000")
	require.NoError(t, err)
	mineBlock(t, genesis)
	for i := 0; i < BlockRequiredConfirms; i++ {
		_, _, err = bc.AddBlock(genesis)
		require.NoError(t, err)
	}

	rewardAmount := block.RewardFor(block.MinHDiff)
	rewardTx, err := tx.New(nil, solver.Pub, tx.Reward{Rew: serial.PyFloat(rewardAmount), Blk: genesis.Hash})
	require.NoError(t, err)

	next, err := block.New(&genesis.Hash, bc.ExpectedHDiff(&genesis.Hash), solver.Pub, "2026-01-01 00:01:00.000000")
	require.NoError(t, err)
	require.NoError(t, next.AddTrans(rewardTx))
	mineBlock(t, next)

	for i := 0; i < BlockRequiredConfirms; i++ {
		_, _, err = bc.AddBlock(next)
		require.NoError(t, err)
	}

	require.Equal(t, rewardAmount, bc.Balance(solver.Pub))
}

func TestCheckTransRejectsInsufficientCoins(t *testing.T) {
	bc, err := New("1")
	require.NoError(t, err)
	alice, err := identity.Create("alice-pw")
	require.NoError(t, err)
	bob, err := identity.Create("bob-pw")
	require.NoError(t, err)

	txn, err := tx.New(&alice.Pub, bob.Pub, tx.Payment{Pay: 1000})
	require.NoError(t, err)
	require.NoError(t, txn.Sign(alice, "alice-pw"))

	err = bc.CheckTrans(txn)
	require.ErrorIs(t, err, ErrInsufficientCoins)
}

func TestCheckBlockRejectsInvalidDiff(t *testing.T) {
	bc, err := New("1")
	require.NoError(t, err)
	solver, err := identity.Create("solver-pw")
	require.NoError(t, err)

	b, err := block.New(nil, block.MinHDiff+1, solver.Pub, "2026-01-01 00:00:00.000000")
	require.NoError(t, err)
	mineBlock(t, b)

	err = bc.CheckBlock(b)
	require.ErrorIs(t, err, ErrInvalidDiff)
}
