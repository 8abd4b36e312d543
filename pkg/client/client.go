/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package client is the thin transport collaborator: it posts a fulfilled
// transaction's wire encoding to a node and polls the node's status token. The
// token is treated opaquely; all cryptographic work happens before this point.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/trustbloc/edge-core/pkg/log"

	"github.com/anchorledger/txncore-go/pkg/restapi/model"
	"github.com/anchorledger/txncore-go/pkg/txn"
)

var logger = log.New("txncore-client")

// Client sends fulfilled transactions to a node.
type Client struct {
	nodeURL    string
	httpClient *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// New returns a client for the node at nodeURL.
func New(nodeURL string, opts ...Option) *Client {
	client := &Client{
		nodeURL:    nodeURL,
		httpClient: http.DefaultClient,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// SendTransaction posts the transaction's wire encoding and returns the node's
// echo with its status token.
func (c *Client) SendTransaction(ctx context.Context, fulfilled *txn.Fulfilled) (*model.Response, error) {
	wire, err := fulfilled.Bytes()
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.nodeURL+"/transactions", bytes.NewReader(wire))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")

	logger.Debugf("sending transaction [%s] to [%s]", fulfilled.ID(), c.nodeURL)

	return c.do(req)
}

// GetStatus returns the node's status token for a transaction id.
func (c *Client) GetStatus(ctx context.Context, id string) (*model.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.nodeURL+"/transactions/"+id+"/status", nil)
	if err != nil {
		return nil, err
	}

	return c.do(req)
}

func (c *Client) do(req *http.Request) (*model.Response, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}

	defer func() {
		if e := resp.Body.Close(); e != nil {
			logger.Warnf("failed to close response body: %s", e)
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("node returned status %d: %s", resp.StatusCode, body)
	}

	var response model.Response
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("invalid node response: %s", err.Error())
	}

	return &response, nil
}
