/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package txnhandler

import (
	"net/http"

	"github.com/anchorledger/txncore-go/pkg/restapi/common"
)

// Paths.
const (
	SubmitPath = "/transactions"
	StatusPath = "/transactions/{id}/status"
)

// SubmitHandler handles submission of fulfilled transactions.
type SubmitHandler struct {
	service *Service
}

// NewSubmitHandler returns a new transaction submission handler.
func NewSubmitHandler(service *Service) *SubmitHandler {
	return &SubmitHandler{service: service}
}

// Path returns the context path.
func (h *SubmitHandler) Path() string {
	return SubmitPath
}

// Method returns the HTTP method.
func (h *SubmitHandler) Method() string {
	return http.MethodPost
}

// Handler returns the handler.
func (h *SubmitHandler) Handler() common.HTTPRequestHandler {
	return h.service.Submit
}

// StatusHandler handles transaction status queries.
type StatusHandler struct {
	service *Service
}

// NewStatusHandler returns a new transaction status handler.
func NewStatusHandler(service *Service) *StatusHandler {
	return &StatusHandler{service: service}
}

// Path returns the context path.
func (h *StatusHandler) Path() string {
	return StatusPath
}

// Method returns the HTTP method.
func (h *StatusHandler) Method() string {
	return http.MethodGet
}

// Handler returns the handler.
func (h *StatusHandler) Handler() common.HTTPRequestHandler {
	return h.service.Status
}
