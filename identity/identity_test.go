package identity

import (
	"testing"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/require"

	"github.com/gopicocoin/pico/picoerr"
)

func TestCreateDerivesMatchingPublicKey(t *testing.T) {
	id, err := Create("correct horse battery staple")
	require.NoError(t, err)

	raw, err := base58.Decode(id.Priv)
	require.NoError(t, err)
	scalar, err := decryptScalar(raw, "correct horse battery staple")
	require.NoError(t, err)

	priv := secp256k1.PrivKeyFromBytes(scalar)
	pubRaw := priv.PubKey().SerializeUncompressed()[1:]
	require.Equal(t, id.Pub, base58.Encode(pubRaw))
}

func TestCheckPasswordRejectsWrongPassword(t *testing.T) {
	id, err := Create("correct")
	require.NoError(t, err)

	require.NoError(t, CheckPassword(id, "correct"))
	err = CheckPassword(id, "incorrect")
	require.Error(t, err)
	require.ErrorIs(t, err, picoerr.AuthError)
}

func TestSignVerifyRoundTrip(t *testing.T) {
	id, err := Create("hunter2")
	require.NoError(t, err)

	msg := []byte("transfer 10 picocoins")
	sig, err := Sign(id, msg, "hunter2")
	require.NoError(t, err)

	require.NoError(t, Verify(id.Pub, msg, sig))
}

func TestVerifyRejectsTamperedMessage(t *testing.T) {
	id, err := Create("hunter2")
	require.NoError(t, err)

	sig, err := Sign(id, []byte("pay alice 10"), "hunter2")
	require.NoError(t, err)

	err = Verify(id.Pub, []byte("pay alice 1000"), sig)
	require.Error(t, err)
	require.ErrorIs(t, err, picoerr.CryptoError)
}

func TestSignWrongPasswordFails(t *testing.T) {
	id, err := Create("hunter2")
	require.NoError(t, err)

	_, err = Sign(id, []byte("msg"), "wrong")
	require.Error(t, err)
	require.ErrorIs(t, err, picoerr.AuthError)
}
