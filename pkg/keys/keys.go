/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package keys

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"

	"github.com/mr-tron/base58"
	"github.com/tyler-smith/go-bip39"
)

// KeyPair holds an ed25519 key pair. The public key's text form is base58.
type KeyPair struct {
	PublicKey  ed25519.PublicKey
	PrivateKey ed25519.PrivateKey
}

// GenerateKeyPair returns a new random ed25519 key pair.
func GenerateKeyPair() (*KeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}

	return &KeyPair{PublicKey: pub, PrivateKey: priv}, nil
}

// FromSeed derives a key pair from a 32-byte seed.
func FromSeed(seed []byte) (*KeyPair, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, errors.New("invalid seed size")
	}

	priv := ed25519.NewKeyFromSeed(seed)

	return &KeyPair{PublicKey: priv.Public().(ed25519.PublicKey), PrivateKey: priv}, nil
}

// FromMnemonic derives a key pair from a BIP-39 mnemonic and passphrase. The first
// 32 bytes of the mnemonic seed become the ed25519 seed.
func FromMnemonic(mnemonic, passphrase string) (*KeyPair, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, errors.New("invalid mnemonic")
	}

	seed := bip39.NewSeed(mnemonic, passphrase)

	return FromSeed(seed[:ed25519.SeedSize])
}

// Sign signs msg and returns the signature value. ed25519 signatures are
// deterministic: the same key and message always produce the same bytes.
func (kp *KeyPair) Sign(msg []byte) ([]byte, error) {
	if l := len(kp.PrivateKey); l != ed25519.PrivateKeySize {
		return nil, errors.New("invalid private key size")
	}

	return ed25519.Sign(kp.PrivateKey, msg), nil
}

// PublicBase58 returns the base58 text form of the public key.
func (kp *KeyPair) PublicBase58() string {
	return EncodePublicKey(kp.PublicKey)
}

// EncodePublicKey returns the base58 text form of a public key.
func EncodePublicKey(pub ed25519.PublicKey) string {
	return base58.Encode(pub)
}

// DecodePublicKey parses the base58 text form of a public key.
func DecodePublicKey(encoded string) (ed25519.PublicKey, error) {
	raw, err := base58.Decode(encoded)
	if err != nil {
		return nil, err
	}

	if len(raw) != ed25519.PublicKeySize {
		return nil, errors.New("invalid public key size")
	}

	return ed25519.PublicKey(raw), nil
}
