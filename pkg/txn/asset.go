/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package txn

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Asset is the asset descriptor. A CREATE transaction embeds the full
// descriptor; a TRANSFER carries only the id reference, serialized as {"id"}.
// The id is immutable once created and is shared by reference across every
// transaction in the asset's transfer chain.
type Asset struct {
	ID         string
	Data       map[string]interface{}
	Divisible  bool
	Refillable bool
	Updatable  bool

	ref bool
}

// NewAsset returns a full asset descriptor with a fresh UUID.
func NewAsset(data map[string]interface{}, divisible, refillable, updatable bool) *Asset {
	return &Asset{
		ID:         uuid.NewString(),
		Data:       data,
		Divisible:  divisible,
		Refillable: refillable,
		Updatable:  updatable,
	}
}

// NewAssetRef returns the minimal reference form used by TRANSFER transactions.
func NewAssetRef(id string) *Asset {
	return &Asset{ID: id, ref: true}
}

// IsRef reports whether the asset is the minimal reference form.
func (a *Asset) IsRef() bool {
	return a.ref
}

type assetJSON struct {
	Data       map[string]interface{} `json:"data"`
	Divisible  bool                   `json:"divisible"`
	ID         string                 `json:"id"`
	Refillable bool                   `json:"refillable"`
	Updatable  bool                   `json:"updatable"`
}

type assetRefJSON struct {
	ID string `json:"id"`
}

// MarshalJSON serializes the full descriptor with every field present, or the
// reference form with the id only.
func (a *Asset) MarshalJSON() ([]byte, error) {
	if a.ref {
		return json.Marshal(&assetRefJSON{ID: a.ID})
	}

	return json.Marshal(&assetJSON{
		Data:       a.Data,
		Divisible:  a.Divisible,
		ID:         a.ID,
		Refillable: a.Refillable,
		Updatable:  a.Updatable,
	})
}

// UnmarshalJSON detects the reference form by the absence of the descriptor
// fields.
func (a *Asset) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	if _, full := fields["divisible"]; !full {
		var ref assetRefJSON
		if err := unmarshalStrict(data, &ref); err != nil {
			return err
		}

		*a = Asset{ID: ref.ID, ref: true}

		return nil
	}

	var full assetJSON
	if err := unmarshalStrict(data, &full); err != nil {
		return err
	}

	*a = Asset{
		ID:         full.ID,
		Data:       full.Data,
		Divisible:  full.Divisible,
		Refillable: full.Refillable,
		Updatable:  full.Updatable,
	}

	return nil
}
