/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package restapi

import (
	"github.com/gorilla/mux"

	"github.com/anchorledger/txncore-go/pkg/restapi/common"
)

// NewRouter returns a router with the given handlers registered.
func NewRouter(handlers ...common.HTTPHandler) *mux.Router {
	router := mux.NewRouter()

	for _, handler := range handlers {
		router.HandleFunc(handler.Path(), handler.Handler()).Methods(handler.Method())
	}

	return router
}
