package tx

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gopicocoin/pico/identity"
)

func TestTransactionSignVerifyRoundTrip(t *testing.T) {
	alice, err := identity.Create("alice-pw")
	require.NoError(t, err)
	bob, err := identity.Create("bob-pw")
	require.NoError(t, err)

	txn, err := New(&alice.Pub, bob.Pub, Payment{Pay: 10})
	require.NoError(t, err)
	require.NoError(t, txn.Sign(alice, "alice-pw"))

	hashOK, sigOK := txn.VerifySelf()
	require.True(t, hashOK)
	require.True(t, sigOK)
}

func TestTransactionVerifySelfDetectsTamperedAct(t *testing.T) {
	alice, err := identity.Create("alice-pw")
	require.NoError(t, err)
	bob, err := identity.Create("bob-pw")
	require.NoError(t, err)

	txn, err := New(&alice.Pub, bob.Pub, Payment{Pay: 10})
	require.NoError(t, err)
	require.NoError(t, txn.Sign(alice, "alice-pw"))

	txn.Act = Payment{Pay: 10000}
	hashOK, sigOK := txn.VerifySelf()
	require.False(t, hashOK)
	require.False(t, sigOK)
}

func TestTransactionVerifySelfDetectsForgedSignature(t *testing.T) {
	alice, err := identity.Create("alice-pw")
	require.NoError(t, err)
	mallory, err := identity.Create("mallory-pw")
	require.NoError(t, err)
	bob, err := identity.Create("bob-pw")
	require.NoError(t, err)

	txn, err := New(&alice.Pub, bob.Pub, Payment{Pay: 10})
	require.NoError(t, err)
	require.NoError(t, txn.Sign(mallory, "mallory-pw"))

	_, sigOK := txn.VerifySelf()
	require.False(t, sigOK)
}

func TestRewardTransactionHasNoSignature(t *testing.T) {
	solver, err := identity.Create("solver-pw")
	require.NoError(t, err)

	txn, err := New(nil, solver.Pub, Reward{Rew: 4, Blk: "deadbeef"})
	require.NoError(t, err)

	hashOK, sigOK := txn.VerifySelf()
	require.True(t, hashOK)
	require.True(t, sigOK)
	require.Nil(t, txn.Signature)

	err = txn.Sign(solver, "solver-pw")
	require.Error(t, err)
}

func TestActJSONRoundTrip(t *testing.T) {
	alice, err := identity.Create("alice-pw")
	require.NoError(t, err)
	bob, err := identity.Create("bob-pw")
	require.NoError(t, err)

	txn, err := New(&alice.Pub, bob.Pub, Message{Msg: "hello"})
	require.NoError(t, err)
	require.NoError(t, txn.Sign(alice, "alice-pw"))

	raw, err := json.Marshal(txn)
	require.NoError(t, err)

	var out Transaction
	require.NoError(t, json.Unmarshal(raw, &out))
	require.Equal(t, txn.Hash, out.Hash)

	msg, ok := out.Act.(Message)
	require.True(t, ok)
	require.Equal(t, "hello", msg.Msg)

	hashOK, sigOK := out.VerifySelf()
	require.True(t, hashOK)
	require.True(t, sigOK)
}

func TestUnmarshalActRejectsUnknownTag(t *testing.T) {
	_, err := UnmarshalAct([]byte(`{"xyz":1}`))
	require.Error(t, err)
}
