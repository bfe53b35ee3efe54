package netp

import (
	"bytes"
	"compress/zlib"
	"encoding/json"
	"fmt"
	"io"

	"github.com/gopicocoin/pico/block"
	"github.com/gopicocoin/pico/picoerr"
	"github.com/gopicocoin/pico/tx"
)

// maxFrameSize bounds an inbound connection's inflated payload (spec §5
// "implementations MUST impose a sane maximum frame size (e.g., 16 MiB)").
const maxFrameSize = 16 << 20

// Envelope is one gossip message: zero or more of its known top-level
// keys present at once (spec §4.8, §6 "Top-level keys: peers | block |
// trans"). Unknown keys are ignored by construction — encoding/json's
// struct decoding only fills these three fields and drops the rest.
type Envelope struct {
	Peers []Peer           `json:"peers,omitempty"`
	Block *block.Block     `json:"block,omitempty"`
	Trans *tx.Transaction  `json:"trans,omitempty"`
}

// EncodeFrame zlib-deflates env's canonical JSON encoding (spec §4.8
// "Frame = zlib-deflated JSON object").
func EncodeFrame(env Envelope) ([]byte, error) {
	raw, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("netp: encode envelope: %w", err)
	}
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(raw); err != nil {
		return nil, fmt.Errorf("netp: deflate frame: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("netp: deflate frame: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeFrame reads r to EOF, inflates, and parses the result as an
// Envelope (spec §4.8 "the receiver reads to EOF, inflates, parses").
func DecodeFrame(r io.Reader) (Envelope, error) {
	zr, err := zlib.NewReader(r)
	if err != nil {
		return Envelope{}, fmt.Errorf("netp: %w: inflate: %w", picoerr.SerdeError, err)
	}
	defer zr.Close()

	raw, err := io.ReadAll(io.LimitReader(zr, maxFrameSize+1))
	if err != nil {
		return Envelope{}, fmt.Errorf("netp: %w: read frame: %w", picoerr.SerdeError, err)
	}
	if len(raw) > maxFrameSize {
		return Envelope{}, fmt.Errorf("netp: %w: frame exceeds %d bytes", picoerr.SerdeError, maxFrameSize)
	}

	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, fmt.Errorf("netp: %w: decode envelope: %w", picoerr.SerdeError, err)
	}
	return env, nil
}
