/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package txnhandler exposes the transport collaborator's contract over HTTP:
// accept a fulfilled transaction's wire encoding, echo its id with a status
// token, and answer status queries. Accepted transactions double as the
// condition source for verifying later TRANSFER transactions.
package txnhandler

import (
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/gorilla/mux"
	"github.com/trustbloc/edge-core/pkg/log"

	"github.com/anchorledger/txncore-go/pkg/condition"
	"github.com/anchorledger/txncore-go/pkg/restapi/common"
	"github.com/anchorledger/txncore-go/pkg/restapi/model"
	"github.com/anchorledger/txncore-go/pkg/txn"
)

var logger = log.New("txncore-restapi-txnhandler")

// Status tokens returned to the caller.
const (
	StatusValid = "valid"
)

// Service verifies submitted transactions and tracks their status. Accepted
// transactions are held in memory only.
type Service struct {
	mu       sync.RWMutex
	accepted map[string]*txn.Transaction
	statuses map[string]string
}

// NewService returns a transaction submission service.
func NewService() *Service {
	return &Service{
		accepted: make(map[string]*txn.Transaction),
		statuses: make(map[string]string),
	}
}

// ResolveCondition resolves a referenced condition from the accepted set.
func (s *Service) ResolveCondition(txID string, cid int) (*condition.Details, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	prior, ok := s.accepted[txID]
	if !ok {
		return nil, fmt.Errorf("transaction [%s] not found", txID)
	}

	if cid < 0 || cid >= len(prior.Conditions) {
		return nil, fmt.Errorf("transaction [%s] has no output [%d]", txID, cid)
	}

	return prior.Conditions[cid].Condition.Details, nil
}

// Submit handles POST of a fulfilled transaction's wire encoding.
func (s *Service) Submit(rw http.ResponseWriter, req *http.Request) {
	body, err := io.ReadAll(req.Body)
	if err != nil {
		common.WriteError(rw, http.StatusBadRequest, err)

		return
	}

	fulfilled, err := txn.ParseFulfilled(body)
	if err != nil {
		logger.Debugf("rejecting submission: %s", err.Error())
		common.WriteError(rw, http.StatusBadRequest, err)

		return
	}

	if !fulfilled.Verify(s) {
		common.WriteError(rw, http.StatusBadRequest,
			fmt.Errorf("transaction [%s] failed verification", fulfilled.ID()))

		return
	}

	s.mu.Lock()
	s.accepted[fulfilled.ID()] = fulfilled.Transaction()
	s.statuses[fulfilled.ID()] = StatusValid
	s.mu.Unlock()

	logger.Debugf("accepted transaction [%s]", fulfilled.ID())

	common.WriteResponse(rw, http.StatusAccepted, &model.Response{
		ID:     fulfilled.ID(),
		Status: StatusValid,
	})
}

// Status handles GET of a transaction's status token.
func (s *Service) Status(rw http.ResponseWriter, req *http.Request) {
	id := mux.Vars(req)["id"]

	s.mu.RLock()
	status, ok := s.statuses[id]
	s.mu.RUnlock()

	if !ok {
		common.WriteError(rw, http.StatusNotFound, fmt.Errorf("transaction [%s] not found", id))

		return
	}

	common.WriteResponse(rw, http.StatusOK, &model.Response{ID: id, Status: status})
}
