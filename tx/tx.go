// Package tx implements C3: the Transaction envelope and its Act payload
// (spec §3 "Transaction", §4.3). A Transaction is a DataTimestamp plus a
// DataSignable in the reference implementation's terms: it carries a wall
// clock time, hashes over time+from+to+act, and (unless from is nil, the
// Reward case) signs over the same four fields.
package tx

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gopicocoin/pico/identity"
	"github.com/gopicocoin/pico/picoerr"
	"github.com/gopicocoin/pico/serial"
)

// timeLayout matches the reference implementation's str(datetime.utcnow()):
// "YYYY-MM-DD HH:MM:SS.ffffff", space-separated, microsecond precision.
const timeLayout = "2006-01-02 15:04:05.000000"

// Transaction moves value, or merely records intent, between two identities.
// From is nil exactly for Reward transactions, which credit a block's
// solver and carry no signature.
type Transaction struct {
	Time      string  `json:"time"`
	From      *string `json:"from"`
	To        string  `json:"to"`
	Act       Act     `json:"act"`
	Signature *string `json:"sign"`
	Hash      string  `json:"hash"`
}

// body is the field set that both Hash and Signature are computed over:
// time, from, to, act — everything except sign and hash themselves.
type body struct {
	Time string  `json:"time"`
	From *string `json:"from"`
	To   string  `json:"to"`
	Act  Act     `json:"act"`
}

func (t *Transaction) body() body {
	return body{Time: t.Time, From: t.From, To: t.To, Act: t.Act}
}

func (t *Transaction) computeHash() (string, error) {
	return serial.Hash(t.body())
}

// New builds an unsigned Transaction stamped with the current UTC time and
// an immediately-computed Hash. Callers must still call Sign unless act is
// a Reward, whose From is nil and needs no signature.
func New(from *string, to string, act Act) (*Transaction, error) {
	t := &Transaction{
		Time: time.Now().UTC().Format(timeLayout),
		From: from,
		To:   to,
		Act:  act,
	}
	h, err := t.computeHash()
	if err != nil {
		return nil, err
	}
	t.Hash = h
	return t, nil
}

// Sign signs t's body with id's private key under password and stores the
// signature. Hash is recomputed afterward, but since it covers only the body
// (sign is excluded), its value does not change. Sign returns an error
// without signing for Reward transactions, which have no From to sign with.
func (t *Transaction) Sign(id *identity.Identity, password string) error {
	if t.From == nil {
		return fmt.Errorf("tx: %w: cannot sign a from-less transaction", picoerr.ValidationError)
	}
	raw, err := json.Marshal(t.body())
	if err != nil {
		return fmt.Errorf("tx: encode sign body: %w", err)
	}
	sig, err := identity.Sign(id, raw, password)
	if err != nil {
		return err
	}
	t.Signature = &sig

	h, err := t.computeHash()
	if err != nil {
		return err
	}
	t.Hash = h
	return nil
}

// VerifySelf reports whether t's Hash matches its body and, for non-Reward
// transactions, whether Signature verifies against From. sigOK is
// unconditionally true when From is nil: a Reward carries no signer to
// check against (spec §4.3).
func (t *Transaction) VerifySelf() (hashOK, sigOK bool) {
	want, err := t.computeHash()
	hashOK = err == nil && want == t.Hash

	if t.From == nil {
		sigOK = true
		return
	}
	if t.Signature == nil {
		return hashOK, false
	}
	raw, err := json.Marshal(t.body())
	if err != nil {
		return hashOK, false
	}
	sigOK = identity.Verify(*t.From, raw, *t.Signature) == nil
	return
}

// UnmarshalJSON decodes a Transaction, dispatching Act's concrete type from
// its discriminant key.
func (t *Transaction) UnmarshalJSON(data []byte) error {
	var aux struct {
		Time      string          `json:"time"`
		From      *string         `json:"from"`
		To        string          `json:"to"`
		Act       json.RawMessage `json:"act"`
		Signature *string         `json:"sign"`
		Hash      string          `json:"hash"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return fmt.Errorf("tx: %w: %w", picoerr.SerdeError, err)
	}
	act, err := UnmarshalAct(aux.Act)
	if err != nil {
		return fmt.Errorf("tx: %w: %w", picoerr.SerdeError, err)
	}

	t.Time = aux.Time
	t.From = aux.From
	t.To = aux.To
	t.Act = act
	t.Signature = aux.Signature
	t.Hash = aux.Hash
	return nil
}
