/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package hashing

import (
	"crypto"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"

	"github.com/multiformats/go-multihash"

	"github.com/anchorledger/txncore-go/pkg/canonicalizer"
	"github.com/anchorledger/txncore-go/pkg/encoder"
)

// SHA2_256 is the multihash code used for condition fingerprints.
const SHA2_256 = uint(multihash.SHA2_256)

// ComputeMultihash will compute the hash for the supplied bytes using multihash code.
func ComputeMultihash(multihashCode uint, bytes []byte) ([]byte, error) {
	h, err := GetHash(multihashCode)
	if err != nil {
		return nil, err
	}

	if _, hashErr := h.Write(bytes); hashErr != nil {
		return nil, hashErr
	}

	digest := h.Sum(nil)

	return multihash.Encode(digest, uint64(multihashCode))
}

// GetHash will return hash based on specified multihash code.
func GetHash(multihashCode uint) (h hash.Hash, err error) {
	switch multihashCode {
	case multihash.SHA2_256:
		h = crypto.SHA256.New()
	default:
		err = fmt.Errorf("algorithm not supported, unable to compute hash")
	}

	return h, err
}

// CalculateModelMultihash canonicalizes the model and returns its encoded multihash.
func CalculateModelMultihash(value interface{}, alg uint) (string, error) {
	bytes, err := canonicalizer.MarshalCanonical(value)
	if err != nil {
		return "", err
	}

	multiHashBytes, err := ComputeMultihash(alg, bytes)
	if err != nil {
		return "", err
	}

	return encoder.EncodeToString(multiHashBytes), nil
}

// IsValidModelMultihash compares model with provided model multihash.
func IsValidModelMultihash(model interface{}, modelMultihash string) error {
	code, err := GetMultihashCode(modelMultihash)
	if err != nil {
		return err
	}

	encodedComputedMultihash, err := CalculateModelMultihash(model, uint(code))
	if err != nil {
		return err
	}

	if encodedComputedMultihash != modelMultihash {
		return errors.New("supplied hash doesn't match original content")
	}

	return nil
}

// GetMultihashCode returns multihash code from encoded multihash.
func GetMultihashCode(encodedMultihash string) (uint64, error) {
	multihashBytes, err := encoder.DecodeString(encodedMultihash)
	if err != nil {
		return 0, err
	}

	mh, err := multihash.Decode(multihashBytes)
	if err != nil {
		return 0, err
	}

	return mh.Code, nil
}

// CalculateModelDigest canonicalizes the model and returns the lowercase hex form of its
// sha-256 digest. Transaction ids use this form.
func CalculateModelDigest(value interface{}) (string, error) {
	bytes, err := canonicalizer.MarshalCanonical(value)
	if err != nil {
		return "", err
	}

	h := crypto.SHA256.New()
	if _, err := h.Write(bytes); err != nil {
		return "", err
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
