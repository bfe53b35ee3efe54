// Package block implements C5: the block header, its transaction set, and
// the embedded proof-of-work (spec §3 "Block", §4.5). Round extraction
// (spec §4.4 steps 1-3) lives here rather than in package pow because it
// needs the block's full content — prev, time, diffs, and transactions —
// not just the PoW's own fields; see the pow package doc for the split.
package block

import (
	"encoding/json"
	"fmt"
	"math"
	"math/big"

	"golang.org/x/crypto/sha3"

	"github.com/gopicocoin/pico/picoerr"
	"github.com/gopicocoin/pico/pow"
	"github.com/gopicocoin/pico/serial"
	"github.com/gopicocoin/pico/tx"
)

// MinHDiff is the floor on horizontal difficulty (spec §3 "h_diff").
const MinHDiff = 14

// Block is PicoCoin's unit of consensus: a header, an insertion-ordered
// transaction set, and the proof-of-work that binds them (spec §3
// "Block").
type Block struct {
	Prev  *string                          `json:"prev"`
	Time  string                           `json:"time"`
	HDiff int                              `json:"h_diff"`
	VDiff int                              `json:"v_diff"`
	Trans *serial.OrderedMap[*tx.Transaction] `json:"trans"`
	Pow   *pow.ProofOfWork                `json:"pow"`
	Hash  string                           `json:"hash"`
}

type forHash struct {
	Prev  *string                          `json:"prev"`
	Time  string                           `json:"time"`
	HDiff int                              `json:"h_diff"`
	VDiff int                              `json:"v_diff"`
	Trans *serial.OrderedMap[*tx.Transaction] `json:"trans"`
	Pow   *pow.ProofOfWork                `json:"pow"`
}

func (b *Block) forHash() forHash {
	return forHash{Prev: b.Prev, Time: b.Time, HDiff: b.HDiff, VDiff: b.VDiff, Trans: b.Trans, Pow: b.Pow}
}

func (b *Block) computeHash() (string, error) {
	return serial.Hash(b.forHash())
}

// VDiffFor computes vertical difficulty from horizontal difficulty: the
// number of sequential PoW rounds bound to a block (spec §3, §8.2).
func VDiffFor(hDiff int) int {
	exp := 13 - 3*hDiff/8
	if exp < 0 {
		return 1
	}
	v := 1 << uint(exp)
	if v < 1 {
		return 1
	}
	return v
}

// RewardFor computes a solved block's coinbase value (spec §4.5, §12
// "Reward").
func RewardFor(hDiff int) float64 {
	return math.Pow(2, 8-8*float64(hDiff-MinHDiff)/50)
}

// New constructs an empty block atop prev, credited to solver, with time
// stamped now (caller-supplied for determinism in tests).
func New(prev *string, hDiff int, solver string, now string) (*Block, error) {
	if hDiff < MinHDiff {
		return nil, fmt.Errorf("block: %w: h_diff %d below minimum %d", picoerr.ValidationError, hDiff, MinHDiff)
	}
	b := &Block{
		Prev:  prev,
		Time:  now,
		HDiff: hDiff,
		VDiff: VDiffFor(hDiff),
		Trans: serial.NewOrderedMap[*tx.Transaction](),
		Pow:   pow.New(solver),
	}
	h, err := b.computeHash()
	if err != nil {
		return nil, err
	}
	b.Hash = h
	return b, nil
}

// AddTrans inserts t by its hash if not already present, then recomputes
// Hash (spec §4.5 "add_trans").
func (b *Block) AddTrans(t *tx.Transaction) error {
	if b.Trans.Has(t.Hash) {
		return nil
	}
	b.Trans.Set(t.Hash, t)
	h, err := b.computeHash()
	if err != nil {
		return err
	}
	b.Hash = h
	return nil
}

// ExtractN reproduces round i's n_i: hash the block with pow.work
// truncated to its first i entries, then take the first HDiff bytes of
// that hash as a little-endian unsigned integer (spec §4.4 steps 1-3).
func (b *Block) ExtractN(i int) (*big.Int, error) {
	view := &Block{
		Prev:  b.Prev,
		Time:  b.Time,
		HDiff: b.HDiff,
		VDiff: b.VDiff,
		Trans: b.Trans,
		Pow:   &pow.ProofOfWork{Solver: b.Pow.Solver, Work: b.Pow.Work.Prefix(i)},
	}
	raw, err := json.Marshal(view.forHash())
	if err != nil {
		return nil, err
	}
	sum := sha3.Sum256(raw)
	if b.HDiff > len(sum) {
		return nil, fmt.Errorf("block: %w: h_diff %d exceeds hash length", picoerr.ValidationError, b.HDiff)
	}
	return new(big.Int).SetBytes(reverseBytes(sum[:b.HDiff])), nil
}

// AppendRound records round i's result in the embedded ProofOfWork and
// recomputes Hash (spec §4.4 step 5).
func (b *Block) AppendRound(n *big.Int, factors pow.Factors) error {
	b.Pow.AppendRound(n, factors)
	h, err := b.computeHash()
	if err != nil {
		return err
	}
	b.Hash = h
	return nil
}

// WorkCheck verifies every round of the embedded PoW: round i's stored
// n_i must match ExtractN(i), and its stored factorization must validate
// against that n_i (spec §4.4 "work_check").
func (b *Block) WorkCheck() error {
	for i := 0; i < b.VDiff; i++ {
		if i >= b.Pow.Work.Len() {
			return fmt.Errorf("block: %w: missing round %d", picoerr.ValidationError, i)
		}
		wantN, err := b.ExtractN(i)
		if err != nil {
			return err
		}
		storedKey := b.Pow.Work.Keys()[i]
		if storedKey != wantN.String() {
			return fmt.Errorf("block: %w: round %d n mismatch", picoerr.ValidationError, i)
		}
		factors, _ := b.Pow.Work.Get(storedKey)
		if err := pow.ValidateRound(wantN, factors); err != nil {
			return err
		}
	}
	return nil
}

// VerifySelf reports whether b's Hash matches its current content.
func (b *Block) VerifySelf() bool {
	want, err := b.computeHash()
	return err == nil && want == b.Hash
}

// reverseBytes flips in so big.Int.SetBytes (which expects big-endian) can
// reproduce Python's int.from_bytes(..., byteorder='little') (spec §4.4
// step 3). h_diff is a variable, non-power-of-two byte count, so
// encoding/binary's fixed-width helpers don't apply here.
func reverseBytes(in []byte) []byte {
	out := make([]byte, len(in))
	for i, c := range in {
		out[len(in)-1-i] = c
	}
	return out
}
