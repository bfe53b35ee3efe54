// Package serial implements the canonical byte encoding and SHA3-256
// hashing that every other PicoCoin package hashes against (spec §4.1). Two
// nodes that disagree on a single byte of this encoding will reject each
// other's blocks, so every hashable type in this module round-trips through
// the same json.Marshal-based path rather than a bespoke string builder.
package serial

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/crypto/sha3"
)

// Hash returns the lowercase hex SHA3-256 digest of v's canonical JSON
// encoding. v is typically a "for-hash" view of a struct — the same fields
// as the wire struct with hash (and sign, for signables) omitted, built by
// the caller before hashing (see tx.Transaction.Hash, block.Block.Hash).
func Hash(v any) (string, error) {
	buf, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("serial: canonical encode: %w", err)
	}
	sum := sha3.Sum256(buf)
	return hex.EncodeToString(sum[:]), nil
}

// PyFloat wraps a float64 so it serializes the way the Python reference's
// json.dumps does: always with a decimal point or exponent, never the bare
// integer Go's encoding/json would emit for e.g. 256.0. Reward amounts are
// rounded to 12 decimal places first, per spec §9's float note, so two
// independently-computed rewards always serialize identically.
type PyFloat float64

// MarshalJSON renders f as Go's shortest round-trip decimal, forcing a
// trailing ".0" when the shortest form would otherwise look like an integer.
func (f PyFloat) MarshalJSON() ([]byte, error) {
	v := roundTo12(float64(f))
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return nil, fmt.Errorf("serial: cannot encode non-finite float %v", v)
	}
	s := strconv.FormatFloat(v, 'g', -1, 64)
	// Go's 'g' switches to exponent form from 1e6 up; Python's repr waits
	// until 1e16.
	if a := math.Abs(v); a >= 1e6 && a < 1e16 {
		s = strconv.FormatFloat(v, 'f', -1, 64)
	}
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return []byte(s), nil
}

// UnmarshalJSON accepts any valid JSON number.
func (f *PyFloat) UnmarshalJSON(data []byte) error {
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = PyFloat(v)
	return nil
}

func roundTo12(v float64) float64 {
	const scale = 1e12
	return math.Round(v*scale) / scale
}
