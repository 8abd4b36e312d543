/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package txn assembles asset, metadata, operation, conditions and fulfillments
// into the two-phase transaction object: an id-less skeleton is canonically
// encoded and hashed into the transaction id, the id-bearing encoding becomes
// the signing message, and the signed fulfillment URIs complete the transaction.
package txn

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/anchorledger/txncore-go/pkg/condition"
)

// Operation is the transaction operation tag.
type Operation string

// Supported operations.
const (
	OperationCreate   Operation = "CREATE"
	OperationTransfer Operation = "TRANSFER"
)

// Version is the transaction schema version.
const Version = 1

// ErrMalformedTransaction is returned when a transaction violates a structural
// invariant.
var ErrMalformedTransaction = errors.New("malformed transaction")

// OutputCondition pairs the unsigned condition descriptor with its URI
// commitment, as embedded in an output slot.
type OutputCondition struct {
	Details *condition.Details `json:"details"`
	URI     string             `json:"uri"`
}

// Output is an output slot: an amount locked by a condition in favour of the
// owners after the transaction.
type Output struct {
	Amount      uint64           `json:"amount"`
	CID         int              `json:"cid"`
	Condition   *OutputCondition `json:"condition"`
	OwnersAfter []string         `json:"owners_after"`
}

// InputRef references an output slot of a prior transaction.
type InputRef struct {
	TxID string `json:"txid"`
	CID  int    `json:"cid"`
}

// Input is an input slot. Fulfillment stays null until the signing phase; Ref
// is null for CREATE transactions.
type Input struct {
	FID          int       `json:"fid"`
	Fulfillment  *string   `json:"fulfillment"`
	Ref          *InputRef `json:"input"`
	OwnersBefore []string  `json:"owners_before"`
}

// Transaction is the wire model. ID is null in the pre-hash phase only.
type Transaction struct {
	ID           *string                `json:"id"`
	Operation    Operation              `json:"operation"`
	Asset        *Asset                 `json:"asset"`
	Metadata     map[string]interface{} `json:"metadata"`
	Conditions   []*Output              `json:"conditions"`
	Fulfillments []*Input               `json:"fulfillments"`
	Version      int                    `json:"version"`
}

// copy duplicates the transaction structure. Asset data and metadata maps are
// shared: they are treated as immutable inputs.
func (tx *Transaction) copy() *Transaction {
	dup := *tx

	if tx.ID != nil {
		id := *tx.ID
		dup.ID = &id
	}

	if tx.Asset != nil {
		asset := *tx.Asset
		dup.Asset = &asset
	}

	dup.Conditions = make([]*Output, len(tx.Conditions))
	for i, out := range tx.Conditions {
		o := *out
		o.OwnersAfter = append([]string(nil), out.OwnersAfter...)
		dup.Conditions[i] = &o
	}

	dup.Fulfillments = make([]*Input, len(tx.Fulfillments))
	for i, in := range tx.Fulfillments {
		f := *in

		if in.Fulfillment != nil {
			s := *in.Fulfillment
			f.Fulfillment = &s
		}

		if in.Ref != nil {
			ref := *in.Ref
			f.Ref = &ref
		}

		f.OwnersBefore = append([]string(nil), in.OwnersBefore...)
		dup.Fulfillments[i] = &f
	}

	return &dup
}

// validate checks the structural invariants shared by every lifecycle state.
func validate(tx *Transaction) error {
	if tx.Operation != OperationCreate && tx.Operation != OperationTransfer {
		return errors.WithMessagef(ErrMalformedTransaction, "unsupported operation [%s]", tx.Operation)
	}

	if tx.Version != Version {
		return errors.WithMessagef(ErrMalformedTransaction, "unsupported version [%d]", tx.Version)
	}

	if err := validateAsset(tx); err != nil {
		return err
	}

	if tx.Metadata != nil && len(tx.Metadata) == 0 {
		return errors.WithMessage(ErrMalformedTransaction, "metadata must be null or a non-empty map")
	}

	if err := validateOutputs(tx.Conditions); err != nil {
		return err
	}

	return validateInputs(tx.Operation, tx.Fulfillments)
}

func validateAsset(tx *Transaction) error {
	if tx.Asset == nil {
		return errors.WithMessage(ErrMalformedTransaction, "asset is required")
	}

	if _, err := uuid.Parse(tx.Asset.ID); err != nil {
		return errors.WithMessagef(ErrMalformedTransaction, "invalid asset id [%s]", tx.Asset.ID)
	}

	// CREATE embeds the full descriptor; TRANSFER carries only the reference and
	// the full descriptor is looked up via the referenced chain.
	if tx.Operation == OperationCreate && tx.Asset.IsRef() {
		return errors.WithMessage(ErrMalformedTransaction, "CREATE requires a full asset descriptor")
	}

	if tx.Operation == OperationTransfer && !tx.Asset.IsRef() {
		return errors.WithMessage(ErrMalformedTransaction, "TRANSFER must reference the asset by id only")
	}

	return nil
}

func validateOutputs(outputs []*Output) error {
	if len(outputs) == 0 {
		return errors.WithMessage(ErrMalformedTransaction, "at least one output is required")
	}

	for i, out := range outputs {
		if out.CID != i {
			return errors.WithMessagef(ErrMalformedTransaction, "output cid [%d] out of sequence", out.CID)
		}

		if out.Amount < 1 {
			return errors.WithMessagef(ErrMalformedTransaction, "output [%d] amount must be positive", i)
		}

		if len(out.OwnersAfter) == 0 {
			return errors.WithMessagef(ErrMalformedTransaction, "output [%d] has no owners", i)
		}

		if out.Condition == nil || out.Condition.Details == nil || out.Condition.URI == "" {
			return errors.WithMessagef(ErrMalformedTransaction, "output [%d] is missing its condition", i)
		}
	}

	return nil
}

func validateInputs(op Operation, inputs []*Input) error {
	if len(inputs) == 0 {
		return errors.WithMessage(ErrMalformedTransaction, "at least one input is required")
	}

	for i, in := range inputs {
		if in.FID != i {
			return errors.WithMessagef(ErrMalformedTransaction, "input fid [%d] out of sequence", in.FID)
		}

		if len(in.OwnersBefore) == 0 {
			return errors.WithMessagef(ErrMalformedTransaction, "input [%d] has no owners", i)
		}

		if op == OperationCreate && in.Ref != nil {
			return errors.WithMessagef(ErrMalformedTransaction, "CREATE input [%d] must not reference an output", i)
		}

		if op == OperationTransfer {
			if in.Ref == nil {
				return errors.WithMessagef(ErrMalformedTransaction, "TRANSFER input [%d] must reference an output", i)
			}

			if in.Ref.TxID == "" || in.Ref.CID < 0 {
				return errors.WithMessagef(ErrMalformedTransaction, "TRANSFER input [%d] has an invalid reference", i)
			}
		}
	}

	return nil
}

// ConditionResolver resolves the condition descriptor of a referenced output
// slot of a prior transaction.
type ConditionResolver interface {
	ResolveCondition(txID string, cid int) (*condition.Details, error)
}

// Ledger is an in-memory ConditionResolver over a set of known transactions.
type Ledger map[string]*Transaction

// NewLedger returns a Ledger over the given fulfilled transactions.
func NewLedger(txs ...*Fulfilled) Ledger {
	ledger := Ledger{}

	for _, tx := range txs {
		ledger[tx.ID()] = tx.tx
	}

	return ledger
}

// ResolveCondition returns the condition descriptor at (txID, cid).
func (l Ledger) ResolveCondition(txID string, cid int) (*condition.Details, error) {
	tx, ok := l[txID]
	if !ok {
		return nil, fmt.Errorf("transaction [%s] not found", txID)
	}

	if cid < 0 || cid >= len(tx.Conditions) {
		return nil, fmt.Errorf("transaction [%s] has no output [%d]", txID, cid)
	}

	return tx.Conditions[cid].Condition.Details, nil
}

func unmarshalStrict(data []byte, v interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	return dec.Decode(v)
}
