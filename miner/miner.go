// Package miner implements C7: driving a block through its proof-of-work
// rounds against a factoring backend (spec §4.7). The miner holds no state
// beyond the block it is currently working on — restarting from round 0
// against a different block is always safe.
package miner

import (
	"context"

	"github.com/gopicocoin/pico/block"
	"github.com/gopicocoin/pico/pow"
)

// Mine runs rounds 0..v_diff-1 of b's proof-of-work sequentially against
// f, appending each result before extracting the next round's n_i (spec
// §4.4, §4.7). It returns ctx's error if ctx is cancelled before a round
// starts; a round already started runs to completion, so no round is left
// half-applied.
func Mine(ctx context.Context, b *block.Block, f pow.Factorizer) error {
	for i := 0; i < b.VDiff; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := b.ExtractN(i)
		if err != nil {
			return err
		}
		factors, err := f.Factor(n)
		if err != nil {
			return err
		}
		if err := b.AppendRound(n, factors); err != nil {
			return err
		}
	}
	return nil
}
