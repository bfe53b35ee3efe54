// Package pow implements C4: the prime-factorization proof-of-work puzzle
// (spec §4.4). A ProofOfWork is a sequence of rounds, each pairing an
// integer n_i with its prime factorization; round i's n_i is derived from
// the block hashed with only rounds 0..i-1 present, so the rounds form a
// serial chain a miner cannot parallelize or precompute out of order.
//
// Deriving n_i from a block requires the full block (prev, time, diffs,
// transactions) — not just the ProofOfWork — so that half of the puzzle
// (extraction) lives on the block package's side of the cyclic reference;
// see block.Block.ExtractN. This package owns only the shape of a round
// and the arithmetic that verifies one: primality of the factor keys and
// exact reconstruction of n_i from their prime-power product.
package pow

import (
	"fmt"
	"math/big"

	"github.com/gopicocoin/pico/picoerr"
	"github.com/gopicocoin/pico/serial"
)

// Factors maps a prime (decimal string, JSON object keys must be strings)
// to its multiplicity in one round's factorization. Key order must be
// ascending numeric, the factoring routine's canonical order (spec §4.4
// "Determinism").
type Factors = *serial.OrderedMap[int]

// ProofOfWork is the block-bound puzzle: a claimed solver and its ordered
// rounds. Work is keyed by each round's n_i rendered as a decimal string.
type ProofOfWork struct {
	Solver string                  `json:"solver"`
	Work   *serial.OrderedMap[Factors] `json:"work"`
}

// New returns an empty ProofOfWork credited to solver.
func New(solver string) *ProofOfWork {
	return &ProofOfWork{Solver: solver, Work: serial.NewOrderedMap[Factors]()}
}

// AppendRound records round i's result. Callers recompute the owning
// block's Hash afterward (pow.Work participates in the block's hash
// domain).
func (p *ProofOfWork) AppendRound(n *big.Int, factors Factors) {
	p.Work.Set(n.String(), factors)
}

// Defact reconstructs n from factors as ∏ prime^multiplicity.
func Defact(factors Factors) *big.Int {
	product := big.NewInt(1)
	for _, prime := range factors.Keys() {
		mult, _ := factors.Get(prime)
		p, ok := new(big.Int).SetString(prime, 10)
		if !ok {
			return big.NewInt(0)
		}
		product.Mul(product, new(big.Int).Exp(p, big.NewInt(int64(mult)), nil))
	}
	return product
}

// ValidateRound reports whether factors is a valid factorization of n:
// every key is prime and the prime-power product reconstructs n exactly
// (spec §4.4 step 4).
func ValidateRound(n *big.Int, factors Factors) error {
	if factors == nil || factors.Len() == 0 {
		return fmt.Errorf("pow: %w: empty factorization", picoerr.ValidationError)
	}
	for _, prime := range factors.Keys() {
		mult, _ := factors.Get(prime)
		if mult <= 0 {
			return fmt.Errorf("pow: %w: non-positive multiplicity for %s", picoerr.ValidationError, prime)
		}
		p, ok := new(big.Int).SetString(prime, 10)
		if !ok {
			return fmt.Errorf("pow: %w: malformed prime key %q", picoerr.ValidationError, prime)
		}
		if !p.ProbablyPrime(32) {
			return fmt.Errorf("pow: %w: %s is not prime", picoerr.ValidationError, prime)
		}
	}
	if Defact(factors).Cmp(n) != 0 {
		return fmt.Errorf("pow: %w: factorization does not reconstruct n", picoerr.ValidationError)
	}
	return nil
}

// Factorizer is the external collaborator named in spec §1: a
// `factor(n) -> {prime: multiplicity}` routine. Implementations must
// return keys in ascending numeric order, matching spec §4.4's
// determinism requirement.
type Factorizer interface {
	Factor(n *big.Int) (Factors, error)
}
