package tx

import (
	"encoding/json"
	"fmt"

	"github.com/gopicocoin/pico/serial"
)

// Act is the discriminated payload of a transaction: exactly one of
// Invoice, Payment, Message, or Reward (spec §3 "Act"). Each concrete type
// marshals as the single-key object its tag names; Act itself carries no
// methods beyond the tag, so a type switch on the concrete value is how
// callers branch on kind (chain.CheckTrans, chain.Balance).
type Act interface {
	actTag() string
}

// Invoice is a request for payment; purely informational.
type Invoice struct {
	Ivc int `json:"ivc"`
}

func (Invoice) actTag() string { return "ivc" }

// Payment transfers Pay coins from the transaction's From to its To.
type Payment struct {
	Pay int `json:"pay"`
}

func (Payment) actTag() string { return "pay" }

// Message carries free text with no economic effect.
type Message struct {
	Msg string `json:"msg"`
}

func (Message) actTag() string { return "msg" }

// Reward is the coinbase-equivalent payload: a solver's credit for a block,
// redeemed by a from==nil Transaction placed in the *next* block.
type Reward struct {
	Rew serial.PyFloat `json:"rew"`
	Blk string         `json:"blk"`
}

func (Reward) actTag() string { return "rew" }

// UnmarshalAct inspects the single discriminant key present in data and
// constructs the matching concrete Act. Unknown or missing tags are
// rejected per spec §9 ("Rejection on unknown tags").
func UnmarshalAct(data []byte) (Act, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("tx: decode act: %w", err)
	}

	switch {
	case has(probe, "ivc"):
		var v Invoice
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		return v, nil
	case has(probe, "pay"):
		var v Payment
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		return v, nil
	case has(probe, "msg"):
		var v Message
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		return v, nil
	case has(probe, "rew"):
		var v Reward
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		return v, nil
	default:
		return nil, fmt.Errorf("tx: unknown act tag in %s", data)
	}
}

func has(m map[string]json.RawMessage, key string) bool {
	_, ok := m[key]
	return ok
}
