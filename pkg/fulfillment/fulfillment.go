/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package fulfillment implements the signing side of the condition algebra. A
// fulfillment embeds one or more detached signatures into the structure of the
// condition it satisfies and serializes the result as a URI. A verifier strips
// the signatures back out, recomputes the condition URI from the remaining
// skeleton and checks every signature over the signing message.
package fulfillment

import (
	"bytes"
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/anchorledger/txncore-go/pkg/canonicalizer"
	"github.com/anchorledger/txncore-go/pkg/condition"
	"github.com/anchorledger/txncore-go/pkg/encoder"
	"github.com/anchorledger/txncore-go/pkg/keys"
)

// Fulfillment URI grammar: <scheme>:<version>:<payload>.
const (
	Scheme        = "cf"
	SchemeVersion = "1"
)

var (
	// ErrIncompleteFulfillment is returned when the supplied signers cannot satisfy
	// the threshold of some node that the condition requires.
	ErrIncompleteFulfillment = errors.New("insufficient signatures to satisfy threshold")

	// ErrUnknownKey is returned when a supplied signer matches no leaf of the
	// target condition.
	ErrUnknownKey = errors.New("supplied key does not match any leaf of the condition")

	// ErrSignatureVerification is returned when a fulfillment fails to re-derive
	// its condition URI or contains an invalid signature.
	ErrSignatureVerification = errors.New("fulfillment does not verify against condition")
)

// Signer signs data and returns the signature value.
type Signer interface {
	Sign(data []byte) ([]byte, error)
}

// Signers maps a base58 public key to the signer holding its private key.
type Signers map[string]Signer

// node is the wire form of a partially or fully signed condition structure. A
// node without a signature is identical to the condition descriptor, which is
// what makes the structural skeleton recoverable.
type node struct {
	Type            string  `json:"type"`
	PublicKey       string  `json:"public_key,omitempty"`
	Signature       string  `json:"signature,omitempty"`
	Threshold       int     `json:"threshold,omitempty"`
	Subfulfillments []*node `json:"subfulfillments,omitempty"`
}

// Fulfillment is a signed condition structure together with its serialized URI.
type Fulfillment struct {
	uri          string
	conditionURI string
}

// URI returns the serialized fulfillment.
func (f *Fulfillment) URI() string {
	return f.uri
}

// ConditionURI returns the URI of the condition this fulfillment satisfies.
func (f *Fulfillment) ConditionURI() string {
	return f.conditionURI
}

// Sign satisfies cond by signing message with every supplied signer whose public
// key matches a leaf of the condition. Signatures land at the matching leaf
// position, so the resulting URI is a pure function of structure, public keys
// and signatures, independent of the order signers were supplied. Sign fails
// with ErrUnknownKey when a signer matches no leaf and ErrIncompleteFulfillment
// when the signed structure does not satisfy the condition's thresholds.
func Sign(cond *condition.Condition, message []byte, signers Signers) (*Fulfillment, error) {
	leafKeys := map[string]bool{}
	for _, pk := range cond.PublicKeys() {
		leafKeys[pk] = true
	}

	for pk := range signers {
		if !leafKeys[pk] {
			return nil, errors.WithMessagef(ErrUnknownKey, "key [%s]", pk)
		}
	}

	root, err := signNode(cond.Details, message, signers)
	if err != nil {
		return nil, err
	}

	if !satisfied(root) {
		return nil, errors.WithMessagef(ErrIncompleteFulfillment,
			"condition [%s]", cond.URI)
	}

	payload, err := canonicalizer.MarshalCanonical(root)
	if err != nil {
		return nil, err
	}

	return &Fulfillment{
		uri:          Scheme + ":" + SchemeVersion + ":" + encoder.EncodeToString(payload),
		conditionURI: cond.URI,
	}, nil
}

func signNode(details *condition.Details, message []byte, signers Signers) (*node, error) {
	if details.Type == condition.TypeEd25519 {
		n := &node{Type: condition.TypeEd25519, PublicKey: details.PublicKey}

		if signer, ok := signers[details.PublicKey]; ok {
			sig, err := signer.Sign(message)
			if err != nil {
				return nil, fmt.Errorf("sign with key [%s]: %s", details.PublicKey, err.Error())
			}

			n.Signature = encoder.EncodeToString(sig)
		}

		return n, nil
	}

	children := make([]*node, len(details.Subconditions))

	for i, sub := range details.Subconditions {
		child, err := signNode(sub, message, signers)
		if err != nil {
			return nil, err
		}

		children[i] = child
	}

	if err := sortBySubConditionURI(children, details.Subconditions); err != nil {
		return nil, err
	}

	return &node{
		Type:            condition.TypeThreshold,
		Threshold:       details.Threshold,
		Subfulfillments: children,
	}, nil
}

// sortBySubConditionURI orders the children of a threshold node by the URI of
// the condition each one satisfies, never by signer call order.
func sortBySubConditionURI(children []*node, subs []*condition.Details) error {
	uris := make(map[*node]string, len(children))

	for i, child := range children {
		sub, err := condition.FromDetails(subs[i])
		if err != nil {
			return err
		}

		uris[child] = sub.URI
	}

	sort.SliceStable(children, func(i, j int) bool { return uris[children[i]] < uris[children[j]] })

	return nil
}

// satisfied reports whether a node is fully satisfied: a leaf carries a
// signature, a threshold node has at least threshold satisfied children.
func satisfied(n *node) bool {
	if n.Type == condition.TypeEd25519 {
		return n.Signature != ""
	}

	count := 0

	for _, child := range n.Subfulfillments {
		if satisfied(child) {
			count++
		}
	}

	return count >= n.Threshold
}

// Verify checks a serialized fulfillment against the condition URI it claims to
// satisfy: the structural skeleton (signatures excluded) must re-derive the
// condition URI, every present signature must verify over message, and the
// signed structure must satisfy its thresholds.
func Verify(fulfillmentURI, conditionURI string, message []byte) error {
	root, err := parseURI(fulfillmentURI)
	if err != nil {
		return err
	}

	skeleton, err := condition.FromDetails(toDetails(root))
	if err != nil {
		return errors.WithMessage(ErrSignatureVerification, err.Error())
	}

	if skeleton.URI != conditionURI {
		return errors.WithMessage(ErrSignatureVerification,
			"fulfillment structure does not re-derive the condition URI")
	}

	if err := verifySignatures(root, message); err != nil {
		return err
	}

	if !satisfied(root) {
		return errors.WithMessage(ErrSignatureVerification,
			"signed structure does not satisfy its threshold")
	}

	return nil
}

func verifySignatures(n *node, message []byte) error {
	if n.Type == condition.TypeEd25519 {
		if n.Signature == "" {
			return nil
		}

		sig, err := encoder.DecodeString(n.Signature)
		if err != nil {
			return errors.WithMessagef(ErrSignatureVerification, "malformed signature: %s", err.Error())
		}

		pub, err := keys.DecodePublicKey(n.PublicKey)
		if err != nil {
			return errors.WithMessagef(ErrSignatureVerification, "malformed public key: %s", err.Error())
		}

		if !ed25519.Verify(pub, message, sig) {
			return errors.WithMessagef(ErrSignatureVerification, "invalid signature for key [%s]", n.PublicKey)
		}

		return nil
	}

	for _, child := range n.Subfulfillments {
		if err := verifySignatures(child, message); err != nil {
			return err
		}
	}

	return nil
}

// toDetails strips signatures from a signed structure, leaving the unsigned
// condition descriptor.
func toDetails(n *node) *condition.Details {
	details := &condition.Details{
		Type:      n.Type,
		PublicKey: n.PublicKey,
		Threshold: n.Threshold,
	}

	for _, child := range n.Subfulfillments {
		details.Subconditions = append(details.Subconditions, toDetails(child))
	}

	return details
}

func parseURI(uri string) (*node, error) {
	parts := strings.SplitN(uri, ":", 3)
	if len(parts) != 3 || parts[0] != Scheme {
		return nil, fmt.Errorf("invalid fulfillment URI: %s", uri)
	}

	if parts[1] != SchemeVersion {
		return nil, fmt.Errorf("fulfillment URI version not supported: %s", parts[1])
	}

	payload, err := encoder.DecodeString(parts[2])
	if err != nil {
		return nil, fmt.Errorf("invalid fulfillment URI payload: %s", err.Error())
	}

	var root node

	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.DisallowUnknownFields()

	if err := dec.Decode(&root); err != nil {
		return nil, fmt.Errorf("invalid fulfillment URI payload: %s", err.Error())
	}

	return &root, nil
}
