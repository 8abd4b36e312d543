/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package keys

import (
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tyler-smith/go-bip39"
)

func TestGenerateKeyPair(t *testing.T) {
	kp, err := GenerateKeyPair()
	require.NoError(t, err)
	require.Len(t, []byte(kp.PublicKey), ed25519.PublicKeySize)
	require.Len(t, []byte(kp.PrivateKey), ed25519.PrivateKeySize)
}

func TestFromSeed(t *testing.T) {
	t.Run("success - deterministic", func(t *testing.T) {
		seed := make([]byte, ed25519.SeedSize)
		for i := range seed {
			seed[i] = byte(i)
		}

		first, err := FromSeed(seed)
		require.NoError(t, err)

		second, err := FromSeed(seed)
		require.NoError(t, err)
		require.Equal(t, first.PublicBase58(), second.PublicBase58())
	})

	t.Run("error - invalid seed size", func(t *testing.T) {
		kp, err := FromSeed([]byte("short"))
		require.Error(t, err)
		require.Nil(t, kp)
		require.Contains(t, err.Error(), "invalid seed size")
	})
}

func TestFromMnemonic(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		entropy, err := bip39.NewEntropy(128)
		require.NoError(t, err)

		mnemonic, err := bip39.NewMnemonic(entropy)
		require.NoError(t, err)

		first, err := FromMnemonic(mnemonic, "secret")
		require.NoError(t, err)

		second, err := FromMnemonic(mnemonic, "secret")
		require.NoError(t, err)
		require.Equal(t, first.PublicBase58(), second.PublicBase58())

		other, err := FromMnemonic(mnemonic, "different")
		require.NoError(t, err)
		require.NotEqual(t, first.PublicBase58(), other.PublicBase58())
	})

	t.Run("error - invalid mnemonic", func(t *testing.T) {
		kp, err := FromMnemonic("not a mnemonic", "")
		require.Error(t, err)
		require.Nil(t, kp)
	})
}

func TestSign(t *testing.T) {
	t.Run("success - deterministic signature", func(t *testing.T) {
		kp, err := GenerateKeyPair()
		require.NoError(t, err)

		first, err := kp.Sign([]byte("message"))
		require.NoError(t, err)

		second, err := kp.Sign([]byte("message"))
		require.NoError(t, err)
		require.Equal(t, first, second)
		require.True(t, ed25519.Verify(kp.PublicKey, []byte("message"), first))
	})

	t.Run("error - invalid private key size", func(t *testing.T) {
		kp := &KeyPair{PrivateKey: []byte("short")}
		sig, err := kp.Sign([]byte("message"))
		require.Error(t, err)
		require.Nil(t, sig)
	})
}

func TestPublicKeyEncoding(t *testing.T) {
	t.Run("success - round trip", func(t *testing.T) {
		kp, err := GenerateKeyPair()
		require.NoError(t, err)

		decoded, err := DecodePublicKey(kp.PublicBase58())
		require.NoError(t, err)
		require.Equal(t, kp.PublicKey, decoded)
	})

	t.Run("error - invalid encoding", func(t *testing.T) {
		pub, err := DecodePublicKey("0OIl")
		require.Error(t, err)
		require.Nil(t, pub)
	})

	t.Run("error - wrong size", func(t *testing.T) {
		pub, err := DecodePublicKey("3mJr7")
		require.Error(t, err)
		require.Nil(t, pub)
		require.Contains(t, err.Error(), "invalid public key size")
	})
}
