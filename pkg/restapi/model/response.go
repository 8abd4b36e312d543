/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package model

// Response echoes an accepted transaction id together with an opaque status
// token. Callers treat the token opaquely.
type Response struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}
