/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package fulfillment

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/anchorledger/txncore-go/pkg/condition"
	"github.com/anchorledger/txncore-go/pkg/keys"
)

func newKeyPair(t *testing.T) *keys.KeyPair {
	t.Helper()

	kp, err := keys.GenerateKeyPair()
	require.NoError(t, err)

	return kp
}

func TestSignLeaf(t *testing.T) {
	message := []byte("signing message")

	t.Run("success", func(t *testing.T) {
		kp := newKeyPair(t)

		cond, err := condition.NewEd25519Condition(kp.PublicKey)
		require.NoError(t, err)

		f, err := Sign(cond, message, Signers{kp.PublicBase58(): kp})
		require.NoError(t, err)
		require.Equal(t, cond.URI, f.ConditionURI())
		require.NoError(t, Verify(f.URI(), cond.URI, message))
	})

	t.Run("success - deterministic URI", func(t *testing.T) {
		kp := newKeyPair(t)

		cond, err := condition.NewEd25519Condition(kp.PublicKey)
		require.NoError(t, err)

		first, err := Sign(cond, message, Signers{kp.PublicBase58(): kp})
		require.NoError(t, err)

		second, err := Sign(cond, message, Signers{kp.PublicBase58(): kp})
		require.NoError(t, err)
		require.Equal(t, first.URI(), second.URI())
	})

	t.Run("error - no signer for leaf", func(t *testing.T) {
		kp := newKeyPair(t)

		cond, err := condition.NewEd25519Condition(kp.PublicKey)
		require.NoError(t, err)

		f, err := Sign(cond, message, Signers{})
		require.Error(t, err)
		require.Nil(t, f)
		require.True(t, errors.Is(err, ErrIncompleteFulfillment))
	})

	t.Run("error - unknown key", func(t *testing.T) {
		kp := newKeyPair(t)
		stranger := newKeyPair(t)

		cond, err := condition.NewEd25519Condition(kp.PublicKey)
		require.NoError(t, err)

		f, err := Sign(cond, message, Signers{
			kp.PublicBase58():       kp,
			stranger.PublicBase58(): stranger,
		})
		require.Error(t, err)
		require.Nil(t, f)
		require.True(t, errors.Is(err, ErrUnknownKey))
	})
}

func TestSignThreshold(t *testing.T) {
	message := []byte("signing message")

	t.Run("success - 2-of-2 with both keys, any supply order", func(t *testing.T) {
		a, b := newKeyPair(t), newKeyPair(t)

		condA, err := condition.NewEd25519Condition(a.PublicKey)
		require.NoError(t, err)

		condB, err := condition.NewEd25519Condition(b.PublicKey)
		require.NoError(t, err)

		cond, err := condition.NewThresholdCondition(2, []*condition.Condition{condA, condB})
		require.NoError(t, err)

		first, err := Sign(cond, message, Signers{a.PublicBase58(): a, b.PublicBase58(): b})
		require.NoError(t, err)

		second, err := Sign(cond, message, Signers{b.PublicBase58(): b, a.PublicBase58(): a})
		require.NoError(t, err)

		require.Equal(t, first.URI(), second.URI())
		require.NoError(t, Verify(first.URI(), cond.URI, message))
	})

	t.Run("success - 1-of-2 with a single key", func(t *testing.T) {
		a, b := newKeyPair(t), newKeyPair(t)

		cond, err := condition.FromOwners([]string{a.PublicBase58(), b.PublicBase58()})
		require.NoError(t, err)

		oneOfTwo, err := condition.FromDetails(&condition.Details{
			Type:          condition.TypeThreshold,
			Threshold:     1,
			Subconditions: cond.Details.Subconditions,
		})
		require.NoError(t, err)

		f, err := Sign(oneOfTwo, message, Signers{a.PublicBase58(): a})
		require.NoError(t, err)
		require.NoError(t, Verify(f.URI(), oneOfTwo.URI, message))
	})

	t.Run("success - nested threshold", func(t *testing.T) {
		a, b, c := newKeyPair(t), newKeyPair(t), newKeyPair(t)

		inner, err := condition.FromOwners([]string{a.PublicBase58(), b.PublicBase58()})
		require.NoError(t, err)

		leafC, err := condition.NewEd25519Condition(c.PublicKey)
		require.NoError(t, err)

		outer, err := condition.NewThresholdCondition(2, []*condition.Condition{inner, leafC})
		require.NoError(t, err)

		f, err := Sign(outer, message, Signers{
			a.PublicBase58(): a,
			b.PublicBase58(): b,
			c.PublicBase58(): c,
		})
		require.NoError(t, err)
		require.NoError(t, Verify(f.URI(), outer.URI, message))
	})

	t.Run("error - 2-of-2 with one key", func(t *testing.T) {
		a, b := newKeyPair(t), newKeyPair(t)

		cond, err := condition.FromOwners([]string{a.PublicBase58(), b.PublicBase58()})
		require.NoError(t, err)

		f, err := Sign(cond, message, Signers{a.PublicBase58(): a})
		require.Error(t, err)
		require.Nil(t, f)
		require.True(t, errors.Is(err, ErrIncompleteFulfillment))
	})

	t.Run("error - nested threshold missing inner key", func(t *testing.T) {
		a, b, c := newKeyPair(t), newKeyPair(t), newKeyPair(t)

		inner, err := condition.FromOwners([]string{a.PublicBase58(), b.PublicBase58()})
		require.NoError(t, err)

		leafC, err := condition.NewEd25519Condition(c.PublicKey)
		require.NoError(t, err)

		outer, err := condition.NewThresholdCondition(2, []*condition.Condition{inner, leafC})
		require.NoError(t, err)

		f, err := Sign(outer, message, Signers{a.PublicBase58(): a, c.PublicBase58(): c})
		require.Error(t, err)
		require.Nil(t, f)
		require.True(t, errors.Is(err, ErrIncompleteFulfillment))
	})
}

func TestVerify(t *testing.T) {
	message := []byte("signing message")

	t.Run("error - wrong message", func(t *testing.T) {
		kp := newKeyPair(t)

		cond, err := condition.NewEd25519Condition(kp.PublicKey)
		require.NoError(t, err)

		f, err := Sign(cond, message, Signers{kp.PublicBase58(): kp})
		require.NoError(t, err)

		err = Verify(f.URI(), cond.URI, []byte("different message"))
		require.Error(t, err)
		require.True(t, errors.Is(err, ErrSignatureVerification))
	})

	t.Run("error - wrong condition", func(t *testing.T) {
		kp := newKeyPair(t)
		other := newKeyPair(t)

		cond, err := condition.NewEd25519Condition(kp.PublicKey)
		require.NoError(t, err)

		otherCond, err := condition.NewEd25519Condition(other.PublicKey)
		require.NoError(t, err)

		f, err := Sign(cond, message, Signers{kp.PublicBase58(): kp})
		require.NoError(t, err)

		err = Verify(f.URI(), otherCond.URI, message)
		require.Error(t, err)
		require.True(t, errors.Is(err, ErrSignatureVerification))
	})

	t.Run("error - mutated fulfillment", func(t *testing.T) {
		kp := newKeyPair(t)

		cond, err := condition.NewEd25519Condition(kp.PublicKey)
		require.NoError(t, err)

		f, err := Sign(cond, message, Signers{kp.PublicBase58(): kp})
		require.NoError(t, err)

		// Flip a character in the middle of the payload so the change always
		// lands on significant bits.
		uri := []byte(f.URI())
		mid := len(uri) / 2

		if uri[mid] != 'A' {
			uri[mid] = 'A'
		} else {
			uri[mid] = 'B'
		}

		require.Error(t, Verify(string(uri), cond.URI, message))
	})

	t.Run("error - malformed URI", func(t *testing.T) {
		err := Verify("cf:1:!!!", "cc:1:abc", message)
		require.Error(t, err)
		require.Contains(t, err.Error(), "invalid fulfillment URI payload")
	})

	t.Run("error - wrong scheme", func(t *testing.T) {
		err := Verify("cc:1:abc", "cc:1:abc", message)
		require.Error(t, err)
		require.Contains(t, err.Error(), "invalid fulfillment URI")
	})
}
