package pow

import (
	"fmt"
	"math/big"
)

// TrialFactorizer is a reference Factorizer using trial division followed
// by Miller-Rabin confirmation of the final cofactor. It is a stand-in for
// the real factoring routine, which spec §1 names as an external
// collaborator swappable for a faster implementation (e.g. Pollard's rho
// or a CAS binding) without touching the rest of this package. Trial
// division stops only once d*d exceeds the unfactored remainder, so its
// running time grows with the square root of n_i's largest prime factor;
// for the 112-bit and larger n_i that h_diff 14 and up produce, that can
// take far too long.
type TrialFactorizer struct {
	// Limit bounds how many odd trial divisors are tried; 0 means no bound.
	// If the bound is reached while the remaining cofactor is not prime,
	// Factor returns an error.
	Limit int64
}

// Factor decomposes n into its prime factorization via trial division.
func (f TrialFactorizer) Factor(n *big.Int) (Factors, error) {
	if n.Sign() <= 0 {
		return nil, fmt.Errorf("pow: cannot factor non-positive %s", n)
	}

	remaining := new(big.Int).Set(n)
	factors := make(map[string]int)
	order := make([]string, 0, 8)

	tryDivide := func(d *big.Int) {
		mult := 0
		for new(big.Int).Mod(remaining, d).Sign() == 0 {
			remaining.Div(remaining, d)
			mult++
		}
		if mult > 0 {
			key := d.String()
			if _, seen := factors[key]; !seen {
				order = append(order, key)
			}
			factors[key] += mult
		}
	}

	two := big.NewInt(2)
	tryDivide(two)

	d := big.NewInt(3)
	step := big.NewInt(2)
	sq := new(big.Int)
	limit := f.Limit
	for i := int64(0); limit == 0 || i < limit; i++ {
		sq.Mul(d, d)
		if sq.Cmp(remaining) > 0 {
			break
		}
		tryDivide(d)
		d.Add(d, step)
	}

	if remaining.Cmp(big.NewInt(1)) > 0 {
		if !remaining.ProbablyPrime(32) {
			return nil, fmt.Errorf("pow: cofactor %s of %s is not prime after trial division", remaining, n)
		}
		key := remaining.String()
		if _, seen := factors[key]; !seen {
			order = append(order, key)
		}
		factors[key]++
	}

	out := newOrderedFactors()
	sortNumericStrings(order)
	for _, k := range order {
		out.Set(k, factors[k])
	}
	return out, nil
}
