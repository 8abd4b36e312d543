/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package condition implements the verification-condition algebra: single-key
// ed25519 leaf conditions and m-of-n threshold conditions composed of
// subconditions, nested to arbitrary depth. Every condition produces a compact
// URI commitment to its type, structure and public key material. The URI never
// depends on signatures, so it can be computed before any private key exists.
package condition

import (
	"bytes"
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/anchorledger/txncore-go/pkg/canonicalizer"
	"github.com/anchorledger/txncore-go/pkg/encoder"
	"github.com/anchorledger/txncore-go/pkg/hashing"
	"github.com/anchorledger/txncore-go/pkg/keys"
)

// Condition URI grammar: <scheme>:<version>:<payload>.
const (
	Scheme        = "cc"
	SchemeVersion = "1"
)

// Condition types.
const (
	TypeEd25519   = "ed25519-sha-256"
	TypeThreshold = "threshold-sha-256"
)

// ErrInvalidThreshold is returned when a threshold falls outside 1..len(subconditions).
var ErrInvalidThreshold = errors.New("threshold must be between 1 and the number of subconditions")

// Details is the unsigned structural descriptor of a condition. It is what gets
// embedded in a transaction output so that a matching fulfillment can be built
// later. Exactly one variant is populated: PublicKey for ed25519 leaves,
// Threshold/Subconditions for threshold nodes.
type Details struct {
	Type          string     `json:"type"`
	PublicKey     string     `json:"public_key,omitempty"`
	Threshold     int        `json:"threshold,omitempty"`
	Subconditions []*Details `json:"subconditions,omitempty"`
}

// Condition pairs a structural descriptor with its URI commitment.
type Condition struct {
	Details *Details
	URI     string
}

// NewEd25519Condition returns a leaf condition over a single ed25519 public key.
func NewEd25519Condition(pub ed25519.PublicKey) (*Condition, error) {
	return NewEd25519ConditionFromKey(keys.EncodePublicKey(pub))
}

// NewEd25519ConditionFromKey returns a leaf condition over the base58 form of an
// ed25519 public key.
func NewEd25519ConditionFromKey(publicKey string) (*Condition, error) {
	if _, err := keys.DecodePublicKey(publicKey); err != nil {
		return nil, fmt.Errorf("invalid public key [%s]: %s", publicKey, err.Error())
	}

	return FromDetails(&Details{Type: TypeEd25519, PublicKey: publicKey})
}

// NewThresholdCondition returns a threshold condition that is satisfied when at
// least threshold of the given subconditions are satisfied. Subconditions are
// ordered by their URI, so the same member set and threshold always produce the
// same condition regardless of insertion order.
func NewThresholdCondition(threshold int, subconditions []*Condition) (*Condition, error) {
	if threshold < 1 || threshold > len(subconditions) {
		return nil, errors.WithMessagef(ErrInvalidThreshold,
			"threshold %d with %d subconditions", threshold, len(subconditions))
	}

	sorted := make([]*Condition, len(subconditions))
	copy(sorted, subconditions)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].URI < sorted[j].URI })

	subDetails := make([]*Details, len(sorted))
	for i, sub := range sorted {
		subDetails[i] = sub.Details
	}

	return FromDetails(&Details{
		Type:          TypeThreshold,
		Threshold:     threshold,
		Subconditions: subDetails,
	})
}

// FromOwners builds the condition for a set of owner public keys: a leaf for a
// single owner, an n-of-n threshold for multiple owners.
func FromOwners(owners []string) (*Condition, error) {
	if len(owners) == 0 {
		return nil, errors.New("at least one owner is required")
	}

	if len(owners) == 1 {
		return NewEd25519ConditionFromKey(owners[0])
	}

	subconditions := make([]*Condition, len(owners))

	for i, owner := range owners {
		sub, err := NewEd25519ConditionFromKey(owner)
		if err != nil {
			return nil, err
		}

		subconditions[i] = sub
	}

	return NewThresholdCondition(len(owners), subconditions)
}

// FromDetails validates a structural descriptor and computes its URI. The URI of
// a threshold condition is independent of the order its subconditions appear in
// the descriptor.
func FromDetails(details *Details) (*Condition, error) {
	uri, err := computeURI(details)
	if err != nil {
		return nil, err
	}

	return &Condition{Details: details, URI: uri}, nil
}

// PublicKeys returns every leaf public key that appears in the condition, in
// descriptor order. Duplicates are preserved.
func (c *Condition) PublicKeys() []string {
	return collectKeys(c.Details, nil)
}

func collectKeys(details *Details, acc []string) []string {
	if details.Type == TypeEd25519 {
		return append(acc, details.PublicKey)
	}

	for _, sub := range details.Subconditions {
		acc = collectKeys(sub, acc)
	}

	return acc
}

type commitment struct {
	Fingerprint string `json:"fingerprint"`
	Type        string `json:"type"`
}

type leafFingerprint struct {
	PublicKey string `json:"public_key"`
	Type      string `json:"type"`
}

type thresholdFingerprint struct {
	Subconditions []string `json:"subconditions"`
	Threshold     int      `json:"threshold"`
	Type          string   `json:"type"`
}

func computeURI(details *Details) (string, error) {
	fingerprint, err := computeFingerprint(details)
	if err != nil {
		return "", err
	}

	payload, err := canonicalizer.MarshalCanonical(&commitment{
		Fingerprint: fingerprint,
		Type:        details.Type,
	})
	if err != nil {
		return "", err
	}

	return Scheme + ":" + SchemeVersion + ":" + encoder.EncodeToString(payload), nil
}

func computeFingerprint(details *Details) (string, error) {
	switch details.Type {
	case TypeEd25519:
		if details.PublicKey == "" {
			return "", errors.New("leaf condition is missing a public key")
		}

		return hashing.CalculateModelMultihash(&leafFingerprint{
			PublicKey: details.PublicKey,
			Type:      TypeEd25519,
		}, hashing.SHA2_256)

	case TypeThreshold:
		if details.Threshold < 1 || details.Threshold > len(details.Subconditions) {
			return "", errors.WithMessagef(ErrInvalidThreshold,
				"threshold %d with %d subconditions", details.Threshold, len(details.Subconditions))
		}

		subURIs := make([]string, len(details.Subconditions))

		for i, sub := range details.Subconditions {
			uri, err := computeURI(sub)
			if err != nil {
				return "", err
			}

			subURIs[i] = uri
		}

		sort.Strings(subURIs)

		return hashing.CalculateModelMultihash(&thresholdFingerprint{
			Subconditions: subURIs,
			Threshold:     details.Threshold,
			Type:          TypeThreshold,
		}, hashing.SHA2_256)

	default:
		return "", fmt.Errorf("condition type not supported: %s", details.Type)
	}
}

// ParseURI validates the condition URI grammar and returns the committed type
// and fingerprint.
func ParseURI(uri string) (conditionType, fingerprint string, err error) {
	parts := strings.SplitN(uri, ":", 3)
	if len(parts) != 3 || parts[0] != Scheme {
		return "", "", fmt.Errorf("invalid condition URI: %s", uri)
	}

	if parts[1] != SchemeVersion {
		return "", "", fmt.Errorf("condition URI version not supported: %s", parts[1])
	}

	payload, err := encoder.DecodeString(parts[2])
	if err != nil {
		return "", "", fmt.Errorf("invalid condition URI payload: %s", err.Error())
	}

	var c commitment
	if err := unmarshalStrict(payload, &c); err != nil {
		return "", "", fmt.Errorf("invalid condition URI payload: %s", err.Error())
	}

	return c.Type, c.Fingerprint, nil
}

func unmarshalStrict(data []byte, v interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	return dec.Decode(v)
}
