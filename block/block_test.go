package block

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gopicocoin/pico/identity"
	"github.com/gopicocoin/pico/pow"
	"github.com/gopicocoin/pico/tx"
)

func mine(t *testing.T, b *Block, f pow.Factorizer) {
	t.Helper()
	for i := 0; i < b.VDiff; i++ {
		n, err := b.ExtractN(i)
		require.NoError(t, err)
		factors, err := f.Factor(n)
		require.NoError(t, err)
		require.NoError(t, b.AppendRound(n, factors))
	}
}

func TestVDiffFormula(t *testing.T) {
	require.Equal(t, 256, VDiffFor(MinHDiff)) // 2^(13 - 3*14/8) = 2^8
	require.Equal(t, 1, VDiffFor(40))
	require.True(t, VDiffFor(16) > VDiffFor(24))
}

func TestNewRejectsBelowMinHDiff(t *testing.T) {
	_, err := New(nil, 10, "solver-pub", "2026-01-01 00:00:00.000000")
	require.Error(t, err)
}

func TestMineThenWorkCheckSucceeds(t *testing.T) {
	b, err := New(nil, MinHDiff, "solver-pub", "2026-01-01 00:00:00.000000")
	require.NoError(t, err)

	mine(t, b, pow.TrialFactorizer{})
	require.NoError(t, b.WorkCheck())
	require.True(t, b.VerifySelf())
}

func TestWorkCheckFailsOnTamperedRound(t *testing.T) {
	b, err := New(nil, MinHDiff, "solver-pub", "2026-01-01 00:00:00.000000")
	require.NoError(t, err)
	mine(t, b, pow.TrialFactorizer{})

	firstKey := b.Pow.Work.Keys()[0]
	factors, _ := b.Pow.Work.Get(firstKey)
	factors.Set(factors.Keys()[0], factors.Values()[0]+1)

	require.Error(t, b.WorkCheck())
}

func TestAddTransIsIdempotentByHash(t *testing.T) {
	b, err := New(nil, MinHDiff, "solver-pub", "2026-01-01 00:00:00.000000")
	require.NoError(t, err)

	alice, err := identity.Create("alice-pw")
	require.NoError(t, err)
	bob, err := identity.Create("bob-pw")
	require.NoError(t, err)

	txn, err := tx.New(&alice.Pub, bob.Pub, tx.Payment{Pay: 5})
	require.NoError(t, err)
	require.NoError(t, txn.Sign(alice, "alice-pw"))

	require.NoError(t, b.AddTrans(txn))
	hashAfterFirst := b.Hash
	require.NoError(t, b.AddTrans(txn))
	require.Equal(t, hashAfterFirst, b.Hash)
	require.Equal(t, 1, b.Trans.Len())
}

func TestExtractNDependsOnEarlierRounds(t *testing.T) {
	b, err := New(nil, MinHDiff, "solver-pub", "2026-01-01 00:00:00.000000")
	require.NoError(t, err)

	n0, err := b.ExtractN(0)
	require.NoError(t, err)

	f := pow.TrialFactorizer{}
	factors, err := f.Factor(n0)
	require.NoError(t, err)
	require.NoError(t, b.AppendRound(n0, factors))

	n1, err := b.ExtractN(1)
	require.NoError(t, err)
	require.NotEqual(t, n0, n1)
}
