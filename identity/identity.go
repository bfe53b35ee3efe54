// Package identity implements C2: keypair generation, at-rest encryption of
// the private key, and sign/verify over secp256k1 (spec §3 "Identity", §4.2).
//
// The ECDSA curve and the AES cipher are, per spec §1, external
// collaborators specified only by the interface the core consumes. This
// package still ships a concrete pairing — decred's secp256k1 plus stdlib
// AES-GCM. The cipher sits behind the unexported encryptScalar/decryptScalar
// helpers, so it can be swapped without touching Identity's shape; Create,
// Sign and Verify call decred's secp256k1 and ecdsa packages directly.
package identity

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/mr-tron/base58"
	"golang.org/x/crypto/sha3"

	"github.com/gopicocoin/pico/picoerr"
	"github.com/gopicocoin/pico/serial"
)

const (
	// privNonceLen matches the reference implementation's pycryptodome
	// default GCM nonce size (16 bytes), not Go's own 12-byte default.
	privNonceLen = 16
	privTagLen   = 16
	privCTLen    = 32 // secp256k1 scalars are exactly 32 bytes
	privRawLen   = privNonceLen + privCTLen + privTagLen
)

// Identity is a PicoCoin keypair: a base58 public key and a base58,
// password-encrypted private scalar (spec §3 "Identity").
type Identity struct {
	Pub  string `json:"pub"`
	Priv string `json:"priv"`
	Hash string `json:"hash"`
}

type forHash struct {
	Pub  string `json:"pub"`
	Priv string `json:"priv"`
}

func (id *Identity) computeHash() (string, error) {
	return serial.Hash(forHash{Pub: id.Pub, Priv: id.Priv})
}

// Create generates a fresh secp256k1 keypair and returns an Identity whose
// Priv is AES-GCM encrypted under SHA3-256(password).
func Create(password string) (*Identity, error) {
	priv, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, fmt.Errorf("identity: generate key: %w", err)
	}
	defer priv.Zero()

	pubRaw := priv.PubKey().SerializeUncompressed()[1:] // drop the 0x04 prefix -> 64 bytes
	encPriv, err := encryptScalar(priv.Serialize(), password)
	if err != nil {
		return nil, err
	}

	id := &Identity{
		Pub:  base58.Encode(pubRaw),
		Priv: base58.Encode(encPriv),
	}
	id.Hash, err = id.computeHash()
	if err != nil {
		return nil, err
	}
	return id, nil
}

// CheckPassword attempts to decrypt id's private key under password,
// returning picoerr.AuthError on a GCM tag mismatch (spec §4.2).
func CheckPassword(id *Identity, password string) error {
	_, err := decryptIdentity(id, password)
	return err
}

// Sign computes SHA3-256(msg), signs the digest with id's private key under
// password, and returns the base58-encoded signature (spec §4.2).
func Sign(id *Identity, msg []byte, password string) (string, error) {
	scalar, err := decryptIdentity(id, password)
	if err != nil {
		return "", err
	}
	priv := secp256k1.PrivKeyFromBytes(scalar)
	defer priv.Zero()

	digest := sha3.Sum256(msg)
	sig := ecdsa.Sign(priv, digest[:])
	return base58.Encode(sig.Serialize()), nil
}

// Verify checks a base58 signature over msg against a base58 public key,
// returning picoerr.CryptoError on mismatch (spec §4.2).
func Verify(pubB58 string, msg []byte, sigB58 string) error {
	pub, err := ParsePub(pubB58)
	if err != nil {
		return err
	}

	sigRaw, err := base58.Decode(sigB58)
	if err != nil {
		return fmt.Errorf("identity: decode signature: %w: %w", picoerr.CryptoError, err)
	}
	sig, err := ecdsa.ParseDERSignature(sigRaw)
	if err != nil {
		return fmt.Errorf("identity: parse signature: %w: %w", picoerr.CryptoError, err)
	}

	digest := sha3.Sum256(msg)
	if !sig.Verify(digest[:], pub) {
		return fmt.Errorf("identity: %w: signature does not verify", picoerr.CryptoError)
	}
	return nil
}

// ParsePub decodes a base58, 64-byte uncompressed public key.
func ParsePub(pubB58 string) (*secp256k1.PublicKey, error) {
	raw, err := base58.Decode(pubB58)
	if err != nil {
		return nil, fmt.Errorf("identity: decode pubkey: %w: %w", picoerr.CryptoError, err)
	}
	if len(raw) != 64 {
		return nil, fmt.Errorf("identity: %w: public key must be 64 bytes, got %d", picoerr.CryptoError, len(raw))
	}
	full := append([]byte{0x04}, raw...)
	pub, err := secp256k1.ParsePubKey(full)
	if err != nil {
		return nil, fmt.Errorf("identity: parse pubkey: %w: %w", picoerr.CryptoError, err)
	}
	return pub, nil
}

func decryptIdentity(id *Identity, password string) ([]byte, error) {
	raw, err := base58.Decode(id.Priv)
	if err != nil {
		return nil, fmt.Errorf("identity: decode priv: %w: %w", picoerr.AuthError, err)
	}
	return decryptScalar(raw, password)
}

func encryptScalar(scalar []byte, password string) ([]byte, error) {
	gcm, err := gcmFromPassword(password)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, privNonceLen)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("identity: nonce: %w", err)
	}

	sealed := gcm.Seal(nil, nonce, scalar, nil) // ciphertext(32) || tag(16)
	out := make([]byte, 0, privRawLen)
	out = append(out, nonce...)
	out = append(out, sealed...)
	return out, nil
}

func decryptScalar(raw []byte, password string) ([]byte, error) {
	if len(raw) != privRawLen {
		return nil, fmt.Errorf("identity: %w: malformed encrypted key", picoerr.AuthError)
	}
	nonce := raw[:privNonceLen]
	sealed := raw[privNonceLen:]

	gcm, err := gcmFromPassword(password)
	if err != nil {
		return nil, err
	}

	plain, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("identity: %w: wrong password", picoerr.AuthError)
	}
	return plain, nil
}

func gcmFromPassword(password string) (cipher.AEAD, error) {
	key := sha3.Sum256([]byte(password))
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("identity: aes cipher: %w", err)
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, privNonceLen)
	if err != nil {
		return nil, fmt.Errorf("identity: gcm: %w", err)
	}
	return gcm, nil
}
