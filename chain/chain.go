// Package chain implements C6: the blockchain validation state machine and
// its confirmation-based acceptance protocol (spec §4.6). There is no
// fork resolution — a block becomes durable only after BlockRequiredConfirms
// independent sightings of the same hash, and only one block per prev hash
// is ever accepted ("AlreadySolved", first-past-the-post).
package chain

import (
	"errors"
	"fmt"

	"github.com/gopicocoin/pico/block"
	"github.com/gopicocoin/pico/picoerr"
	"github.com/gopicocoin/pico/serial"
	"github.com/gopicocoin/pico/tx"
)

// BlockRequiredConfirms is the number of times a block must be
// re-announced before it moves from the confirm table into Blocks (spec
// §4.6).
const BlockRequiredConfirms = 6

// Per-transaction rejection reasons (spec §4.6 "check_trans").
var (
	ErrInvalidHash       = fmt.Errorf("%w: invalid hash", picoerr.ValidationError)
	ErrInvalidSign       = fmt.Errorf("%w: invalid signature", picoerr.ValidationError)
	ErrInChain           = fmt.Errorf("%w: already in blockchain", picoerr.ValidationError)
	ErrInsufficientCoins = fmt.Errorf("%w: insufficient coins", picoerr.ValidationError)
	ErrRewardNotFound    = fmt.Errorf("%w: reward block not found or solver mismatch", picoerr.ValidationError)
)

// Additional per-block rejection reasons (spec §4.6 "check_block").
var (
	ErrPrevNotFound  = fmt.Errorf("%w: previous block not found", picoerr.ValidationError)
	ErrInvalidDiff   = fmt.Errorf("%w: invalid block difficulty", picoerr.ValidationError)
	ErrPowFailed     = fmt.Errorf("%w: proof of work failed", picoerr.ValidationError)
	ErrAlreadySolved = fmt.Errorf("%w: a block for this prev was already accepted", picoerr.ValidationError)
)

// Blockchain is the append-only, insertion-ordered ledger plus its
// ephemeral confirmation table (spec §3 "Blockchain").
type Blockchain struct {
	Coin   string                         `json:"coin"`
	Ver    string                         `json:"ver"`
	Blocks *serial.OrderedMap[*block.Block] `json:"blocks"`
	Hash   string                         `json:"hash"`

	// confirmTable[prevKey][blockHash] counts independent sightings of a
	// pending block. Not persisted (spec §3 "Peer/Net... non-persisted").
	confirmTable map[string]map[string]int
}

type forHash struct {
	Coin   string                         `json:"coin"`
	Ver    string                         `json:"ver"`
	Blocks *serial.OrderedMap[*block.Block] `json:"blocks"`
}

func (bc *Blockchain) forHash() forHash {
	return forHash{Coin: bc.Coin, Ver: bc.Ver, Blocks: bc.Blocks}
}

func (bc *Blockchain) computeHash() (string, error) {
	return serial.Hash(bc.forHash())
}

// New returns an empty chain on version ver (spec §3 "coin: PicoCoin").
func New(ver string) (*Blockchain, error) {
	bc := &Blockchain{
		Coin:         "PicoCoin",
		Ver:          ver,
		Blocks:       serial.NewOrderedMap[*block.Block](),
		confirmTable: make(map[string]map[string]int),
	}
	h, err := bc.computeHash()
	if err != nil {
		return nil, err
	}
	bc.Hash = h
	return bc, nil
}

// AfterLoad restores the ephemeral confirm table after bc has been decoded
// from persisted JSON (spec §6 "blockchain.json"); the table itself is
// never part of the wire format.
func (bc *Blockchain) AfterLoad() {
	if bc.confirmTable == nil {
		bc.confirmTable = make(map[string]map[string]int)
	}
}

// LastBlock returns the most recently accepted block, or nil for an empty
// chain.
func (bc *Blockchain) LastBlock() *block.Block {
	if bc.Blocks.Len() == 0 {
		return nil
	}
	vals := bc.Blocks.Values()
	return vals[len(vals)-1]
}

// BlocksCount returns the number of accepted blocks.
func (bc *Blockchain) BlocksCount() int {
	return bc.Blocks.Len()
}

// GetBlock looks up an accepted block by hash.
func (bc *Blockchain) GetBlock(hash string) (*block.Block, bool) {
	return bc.Blocks.Get(hash)
}

// ExpectedHDiff computes the horizontal difficulty a block extending
// prevHash must carry: 14 for genesis, otherwise the previous block's
// h_diff, incremented by one every 10000 blocks (spec §4.6).
func (bc *Blockchain) ExpectedHDiff(prevHash *string) int {
	if prevHash == nil {
		return block.MinHDiff
	}
	prev, ok := bc.Blocks.Get(*prevHash)
	if !ok {
		return block.MinHDiff
	}
	if bc.BlocksCount()%10000 == 0 {
		return prev.HDiff + 1
	}
	return prev.HDiff
}

// Balance sums pub's accepted activity: +amount for inbound Payment or
// Reward, -amount for outbound Payment (spec §4.6 "Balance derivation").
func (bc *Blockchain) Balance(pub string) float64 {
	var total float64
	bc.Blocks.Range(func(_ string, b *block.Block) {
		b.Trans.Range(func(_ string, t *tx.Transaction) {
			switch act := t.Act.(type) {
			case tx.Payment:
				if t.To == pub {
					total += float64(act.Pay)
				}
				if t.From != nil && *t.From == pub {
					total -= float64(act.Pay)
				}
			case tx.Reward:
				if t.To == pub {
					total += float64(act.Rew)
				}
			}
		})
	})
	return total
}

// transExists reports whether a transaction with this hash already
// appears in any accepted block.
func (bc *Blockchain) transExists(hash string) bool {
	found := false
	bc.Blocks.Range(func(_ string, b *block.Block) {
		if b.Trans.Has(hash) {
			found = true
		}
	})
	return found
}

// hasBlockForPrev reports whether an accepted block already claims prev
// (spec §4.6 "AlreadySolved").
func (bc *Blockchain) hasBlockForPrev(prev *string) bool {
	found := false
	bc.Blocks.Range(func(_ string, b *block.Block) {
		if samePrev(b.Prev, prev) {
			found = true
		}
	})
	return found
}

func samePrev(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// CheckTrans validates t against the chain's current accepted state (spec
// §4.6 "check_trans"). A nil return means Ok.
func (bc *Blockchain) CheckTrans(t *tx.Transaction) error {
	hashOK, sigOK := t.VerifySelf()
	if !hashOK {
		return ErrInvalidHash
	}
	if t.From != nil && !sigOK {
		return ErrInvalidSign
	}
	if bc.transExists(t.Hash) {
		return ErrInChain
	}

	switch act := t.Act.(type) {
	case tx.Payment:
		if t.From == nil || bc.Balance(*t.From) < float64(act.Pay) {
			return ErrInsufficientCoins
		}
	case tx.Reward:
		blk, ok := bc.GetBlock(act.Blk)
		if !ok || blk.Pow.Solver != t.To {
			return ErrRewardNotFound
		}
	}
	return nil
}

// CheckBlock validates b against the chain's current accepted state (spec
// §4.6 "check_block"). A nil return means Ok.
func (bc *Blockchain) CheckBlock(b *block.Block) error {
	if !b.VerifySelf() {
		return ErrInvalidHash
	}
	if b.Prev != nil {
		if _, ok := bc.Blocks.Get(*b.Prev); !ok {
			return ErrPrevNotFound
		}
	}
	expected := bc.ExpectedHDiff(b.Prev)
	if b.HDiff != expected || b.HDiff < block.MinHDiff || b.VDiff != block.VDiffFor(b.HDiff) {
		return ErrInvalidDiff
	}
	if err := b.WorkCheck(); err != nil {
		return fmt.Errorf("%w: %v", ErrPowFailed, err)
	}
	if bc.Blocks.Has(b.Hash) {
		return ErrInChain
	}
	if bc.hasBlockForPrev(b.Prev) {
		return ErrAlreadySolved
	}
	var firstErr error
	b.Trans.Range(func(_ string, t *tx.Transaction) {
		if firstErr != nil {
			return
		}
		if err := bc.CheckTrans(t); err != nil {
			firstErr = err
		}
	})
	return firstErr
}

func prevKey(prev *string) string {
	if prev == nil {
		return "\x00genesis"
	}
	return *prev
}

// AddBlock runs the confirmation protocol: check b, bump its pending
// confirmation count, and promote it into Blocks once
// BlockRequiredConfirms sightings have accumulated (spec §4.6
// "Confirmation accounting"). accepted is true only on the promoting
// call; err is non-nil when check_block rejected b outright, or when the
// chain hash could not be recomputed after promotion.
func (bc *Blockchain) AddBlock(b *block.Block) (accepted bool, confirms int, err error) {
	key := prevKey(b.Prev)
	cell, ok := bc.confirmTable[key]
	if !ok {
		cell = make(map[string]int)
		bc.confirmTable[key] = cell
	}

	if err := bc.CheckBlock(b); err != nil {
		delete(cell, b.Hash)
		return false, 0, err
	}

	cell[b.Hash]++
	confirms = cell[b.Hash]
	if confirms < BlockRequiredConfirms {
		return false, confirms, nil
	}

	bc.Blocks.Set(b.Hash, b)
	delete(cell, b.Hash)
	h, hashErr := bc.computeHash()
	if hashErr != nil {
		return false, confirms, hashErr
	}
	bc.Hash = h
	return true, confirms, nil
}

// GetBlockConfirms reports the current pending confirmation count for a
// not-yet-accepted block, or 0 if none is pending.
func (bc *Blockchain) GetBlockConfirms(prev *string, hash string) int {
	cell, ok := bc.confirmTable[prevKey(prev)]
	if !ok {
		return 0
	}
	return cell[hash]
}

// IsAccepted is a thin errors.Is-style helper for callers distinguishing
// InChain (this block was already accepted) and AlreadySolved (a different
// block for the same prev was accepted first) from hard failures.
func IsAccepted(err error) bool {
	return errors.Is(err, ErrInChain) || errors.Is(err, ErrAlreadySolved)
}
