/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package txn

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLedger(t *testing.T) {
	owner := newKeyPair(t)

	create := fulfillCreate(t, buildCreate(t, bicycleAsset(), 1, owner), owner)
	ledger := NewLedger(create)

	t.Run("success", func(t *testing.T) {
		details, err := ledger.ResolveCondition(create.ID(), 0)
		require.NoError(t, err)
		require.Equal(t, create.Transaction().Conditions[0].Condition.Details, details)
	})

	t.Run("error - unknown transaction", func(t *testing.T) {
		details, err := ledger.ResolveCondition("missing", 0)
		require.Error(t, err)
		require.Nil(t, details)
		require.Contains(t, err.Error(), "not found")
	})

	t.Run("error - unknown output", func(t *testing.T) {
		details, err := ledger.ResolveCondition(create.ID(), 5)
		require.Error(t, err)
		require.Nil(t, details)
		require.Contains(t, err.Error(), "has no output")
	})
}

func TestCopyIsolation(t *testing.T) {
	owner := newKeyPair(t)

	fulfilled := fulfillCreate(t, buildCreate(t, bicycleAsset(), 1, owner), owner)

	first := fulfilled.Transaction()
	second := fulfilled.Transaction()

	mutated := "mutated"
	first.Fulfillments[0].Fulfillment = &mutated
	first.Conditions[0].OwnersAfter[0] = "mutated"

	require.NotEqual(t, *first.Fulfillments[0].Fulfillment, *second.Fulfillments[0].Fulfillment)
	require.NotEqual(t, first.Conditions[0].OwnersAfter[0], second.Conditions[0].OwnersAfter[0])
	require.True(t, fulfilled.Verify(nil))
}
