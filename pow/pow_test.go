package pow

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTrialFactorizerReconstructsN(t *testing.T) {
	n := big.NewInt(360) // 2^3 * 3^2 * 5
	f := TrialFactorizer{}
	factors, err := f.Factor(n)
	require.NoError(t, err)
	require.Equal(t, n, Defact(factors))
	require.NoError(t, ValidateRound(n, factors))
}

func TestTrialFactorizerHandlesPrimeInput(t *testing.T) {
	n := big.NewInt(104729) // prime
	f := TrialFactorizer{}
	factors, err := f.Factor(n)
	require.NoError(t, err)
	require.Equal(t, 1, factors.Len())
	require.NoError(t, ValidateRound(n, factors))
}

func TestValidateRoundRejectsCompositeKey(t *testing.T) {
	factors := newOrderedFactors()
	factors.Set("4", 1) // not prime
	err := ValidateRound(big.NewInt(4), factors)
	require.Error(t, err)
}

func TestValidateRoundRejectsWrongProduct(t *testing.T) {
	factors := newOrderedFactors()
	factors.Set("2", 3) // 8, not 16
	err := ValidateRound(big.NewInt(16), factors)
	require.Error(t, err)
}

func TestFactorsOrderingIsAscendingNumeric(t *testing.T) {
	n := new(big.Int).Mul(big.NewInt(17), big.NewInt(9)) // 3^2 * 17
	f := TrialFactorizer{}
	factors, err := f.Factor(n)
	require.NoError(t, err)
	require.Equal(t, []string{"3", "17"}, factors.Keys())
}
