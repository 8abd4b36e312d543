/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package txn

import (
	"sort"

	"github.com/pkg/errors"
	"github.com/trustbloc/edge-core/pkg/log"

	"github.com/anchorledger/txncore-go/pkg/canonicalizer"
	"github.com/anchorledger/txncore-go/pkg/condition"
	"github.com/anchorledger/txncore-go/pkg/fulfillment"
	"github.com/anchorledger/txncore-go/pkg/hashing"
)

var logger = log.New("txncore-builder")

// OutputInfo describes a desired output slot.
type OutputInfo struct {

	// amount locked by the output
	// required, positive
	Amount uint64

	// public keys of the owners after the transaction
	// required
	OwnersAfter []string

	// condition shape; when nil the condition is derived from OwnersAfter
	// (a leaf for one owner, n-of-n threshold for several)
	Condition *condition.Condition
}

// InputInfo describes a spend.
type InputInfo struct {

	// public keys of the owners before the transaction
	// required
	OwnersBefore []string

	// referenced output of a prior transaction
	// required for TRANSFER, absent for CREATE
	Ref *InputRef
}

// BuildInfo contains the data for building a transaction skeleton.
type BuildInfo struct {
	Operation Operation
	Asset     *Asset
	Metadata  map[string]interface{}
	Outputs   []*OutputInfo
	Inputs    []*InputInfo
}

// Skeleton is a structurally valid transaction without an id or fulfillments.
type Skeleton struct {
	tx *Transaction
}

// Identified is a transaction whose id has been assigned; its fulfillment
// strings are still null. Its canonical encoding is the signing message.
type Identified struct {
	tx *Transaction
}

// Fulfilled is a completely signed transaction, ready for the transport
// collaborator. It is treated as immutable from here on.
type Fulfilled struct {
	tx *Transaction
}

// Build validates the structural invariants and returns a transaction skeleton.
// Output and input indexes (cid, fid) are assigned in the order given.
func Build(info *BuildInfo) (*Skeleton, error) {
	outputs := make([]*Output, len(info.Outputs))

	for i, out := range info.Outputs {
		cond, err := outputCondition(out)
		if err != nil {
			return nil, err
		}

		outputs[i] = &Output{
			Amount:      out.Amount,
			CID:         i,
			Condition:   &OutputCondition{Details: cond.Details, URI: cond.URI},
			OwnersAfter: append([]string(nil), out.OwnersAfter...),
		}
	}

	inputs := make([]*Input, len(info.Inputs))

	for i, in := range info.Inputs {
		var ref *InputRef

		if in.Ref != nil {
			r := *in.Ref
			ref = &r
		}

		inputs[i] = &Input{
			FID:          i,
			Ref:          ref,
			OwnersBefore: append([]string(nil), in.OwnersBefore...),
		}
	}

	tx := &Transaction{
		Operation:    info.Operation,
		Asset:        info.Asset,
		Metadata:     info.Metadata,
		Conditions:   outputs,
		Fulfillments: inputs,
		Version:      Version,
	}

	if err := validate(tx); err != nil {
		return nil, err
	}

	return &Skeleton{tx: tx}, nil
}

// outputCondition derives the output's condition from its owners, or validates
// that a caller-supplied condition covers exactly the declared owners.
func outputCondition(info *OutputInfo) (*condition.Condition, error) {
	if len(info.OwnersAfter) == 0 {
		return nil, errors.WithMessage(ErrMalformedTransaction, "output has no owners")
	}

	if info.Condition == nil {
		return condition.FromOwners(info.OwnersAfter)
	}

	if !sameKeySet(info.Condition.PublicKeys(), info.OwnersAfter) {
		return nil, errors.WithMessage(ErrMalformedTransaction,
			"output condition keys do not match owners_after")
	}

	return info.Condition, nil
}

func sameKeySet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}

	as := append([]string(nil), a...)
	bs := append([]string(nil), b...)
	sort.Strings(as)
	sort.Strings(bs)

	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}

	return true
}

// AssignID computes the transaction id and returns the identified transaction.
// The id is the lowercase hex sha-256 digest of the canonical encoding in which
// the id key is present with a null value. Both sides of the wire must agree on
// that convention, so it is a documented contract of this engine.
func (s *Skeleton) AssignID() (*Identified, error) {
	digest, err := hashing.CalculateModelDigest(s.tx)
	if err != nil {
		return nil, err
	}

	tx := s.tx.copy()
	tx.ID = &digest

	logger.Debugf("assigned transaction id [%s]", digest)

	return &Identified{tx: tx}, nil
}

// SigningMessage returns the exact bytes every signer signs: the canonical
// encoding of the id-bearing, not-yet-fulfilled transaction. The message is
// shared across all input slots.
func (i *Identified) SigningMessage() ([]byte, error) {
	return canonicalizer.MarshalCanonical(i.tx)
}

// ID returns the assigned transaction id.
func (i *Identified) ID() string {
	return *i.tx.ID
}

// Fulfill signs every input slot and returns the fulfilled transaction. Each
// slot's condition is derived from its owners_before for CREATE, or resolved
// from the referenced prior output for TRANSFER; the slot's fulfillment is the
// signed condition's URI. On any failure the identified transaction is left
// unchanged and no partially fulfilled value is produced. A signer that matches
// no input's condition fails with ErrUnknownKey.
func (i *Identified) Fulfill(signers fulfillment.Signers, resolver ConditionResolver) (*Fulfilled, error) {
	message, err := canonicalizer.MarshalCanonical(i.tx)
	if err != nil {
		return nil, err
	}

	tx := i.tx.copy()
	used := map[string]bool{}

	for _, in := range tx.Fulfillments {
		cond, err := inputCondition(tx.Operation, in, resolver)
		if err != nil {
			return nil, err
		}

		slotSigners := fulfillment.Signers{}

		for _, pk := range cond.PublicKeys() {
			if signer, ok := signers[pk]; ok {
				slotSigners[pk] = signer
				used[pk] = true
			}
		}

		f, err := fulfillment.Sign(cond, message, slotSigners)
		if err != nil {
			return nil, err
		}

		uri := f.URI()
		in.Fulfillment = &uri
	}

	for pk := range signers {
		if !used[pk] {
			return nil, errors.WithMessagef(fulfillment.ErrUnknownKey,
				"key [%s] matches no input of transaction [%s]", pk, *tx.ID)
		}
	}

	logger.Debugf("fulfilled transaction [%s] with %d input(s)", *tx.ID, len(tx.Fulfillments))

	return &Fulfilled{tx: tx}, nil
}

// inputCondition resolves the condition an input slot must satisfy.
func inputCondition(op Operation, in *Input, resolver ConditionResolver) (*condition.Condition, error) {
	if op == OperationCreate {
		return condition.FromOwners(in.OwnersBefore)
	}

	if resolver == nil {
		return nil, errors.New("a condition resolver is required for TRANSFER")
	}

	details, err := resolver.ResolveCondition(in.Ref.TxID, in.Ref.CID)
	if err != nil {
		return nil, err
	}

	return condition.FromDetails(details)
}

// ID returns the transaction id.
func (f *Fulfilled) ID() string {
	return *f.tx.ID
}

// Transaction returns a copy of the underlying wire model. The fulfilled value
// itself stays immutable; callers mutate the copy if they need a variant.
func (f *Fulfilled) Transaction() *Transaction {
	return f.tx.copy()
}

// Bytes returns the canonical wire encoding sent to the transport collaborator.
func (f *Fulfilled) Bytes() ([]byte, error) {
	return canonicalizer.MarshalCanonical(f.tx)
}

// Verify is a pure predicate: it recomputes the transaction id and re-derives
// every condition URI from its fulfillment, returning false on any mismatch
// rather than an error.
func (f *Fulfilled) Verify(resolver ConditionResolver) bool {
	return f.verify(resolver) == nil
}

func (f *Fulfilled) verify(resolver ConditionResolver) error {
	tx := f.tx

	if tx.ID == nil {
		return errors.New("transaction has no id")
	}

	if err := validate(tx); err != nil {
		return err
	}

	// Recompute the id over the encoding with a null id and null fulfillments.
	skeleton := tx.copy()
	skeleton.ID = nil

	for _, in := range skeleton.Fulfillments {
		in.Fulfillment = nil
	}

	digest, err := hashing.CalculateModelDigest(skeleton)
	if err != nil {
		return err
	}

	if digest != *tx.ID {
		return errors.New("transaction id does not match content")
	}

	// Rebuild the shared signing message: id present, fulfillments null.
	unsigned := tx.copy()

	for _, in := range unsigned.Fulfillments {
		in.Fulfillment = nil
	}

	message, err := canonicalizer.MarshalCanonical(unsigned)
	if err != nil {
		return err
	}

	for _, out := range tx.Conditions {
		derived, err := condition.FromDetails(out.Condition.Details)
		if err != nil {
			return err
		}

		if derived.URI != out.Condition.URI {
			return errors.New("output condition URI does not match its details")
		}
	}

	for _, in := range tx.Fulfillments {
		if in.Fulfillment == nil {
			return errors.New("input is not fulfilled")
		}

		cond, err := inputCondition(tx.Operation, in, resolver)
		if err != nil {
			return err
		}

		if err := fulfillment.Verify(*in.Fulfillment, cond.URI, message); err != nil {
			return err
		}
	}

	return nil
}

// ParseFulfilled decodes and structurally validates a wire transaction. The
// result still needs Verify for cryptographic checks.
func ParseFulfilled(data []byte) (*Fulfilled, error) {
	var tx Transaction
	if err := unmarshalStrict(data, &tx); err != nil {
		return nil, errors.WithMessage(ErrMalformedTransaction, err.Error())
	}

	if err := validate(&tx); err != nil {
		return nil, err
	}

	if tx.ID == nil {
		return nil, errors.WithMessage(ErrMalformedTransaction, "id is required")
	}

	for i, in := range tx.Fulfillments {
		if in.Fulfillment == nil {
			return nil, errors.WithMessagef(ErrMalformedTransaction, "input [%d] is not fulfilled", i)
		}
	}

	return &Fulfilled{tx: &tx}, nil
}
