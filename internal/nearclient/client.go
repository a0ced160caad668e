// Package nearclient is the archival RPC transport: a single operation,
// view_account, against a NEAR-style JSON-RPC 2.0 archival node.
package nearclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrUnknownAccount is returned when the RPC node reports that the
// queried account does not exist at the requested block. Callers
// (internal/rpcresolver) treat this as a semantic zero balance rather
// than a transport failure.
var ErrUnknownAccount = errors.New("nearclient: unknown account")

// unknownAccountCauseName is the error cause name NEAR archival nodes
// report for UnknownAccount query handler errors.
const unknownAccountCauseName = "UNKNOWN_ACCOUNT"

// Client is a minimal JSON-RPC client for the single query the indexer
// needs. It deliberately performs no retries: spec.md §4.B classifies
// retry as the caller's concern, not this transport's.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// New builds a Client against the given archival RPC endpoint.
func New(endpoint string) *Client {
	return &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type rpcRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      string      `json:"id"`
	Method  string      `json:"method"`
	Params  queryParams `json:"params"`
}

type queryParams struct {
	RequestType  string `json:"request_type"`
	BlockID      string `json:"block_id"`
	AccountID    string `json:"account_id"`
}

type rpcError struct {
	Name  string `json:"name"`
	Cause struct {
		Name string `json:"name"`
	} `json:"cause"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

type viewAccountResult struct {
	Amount string `json:"amount"`
	Locked string `json:"locked"`
}

// ViewAccount fetches (liquid, locked) for account at the block
// identified by blockHash. It returns the ErrUnknownAccount sentinel
// itself (so errors.Is matches it) when the account does not exist at
// that block.
func (c *Client) ViewAccount(ctx context.Context, account, blockHash string) (liquid, locked string, err error) {
	reqBody := rpcRequest{
		JSONRPC: "2.0",
		ID:      "balance-indexer",
		Method:  "query",
		Params: queryParams{
			RequestType: "view_account",
			BlockID:     blockHash,
			AccountID:   account,
		},
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", "", fmt.Errorf("nearclient: encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", "", fmt.Errorf("nearclient: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", "", fmt.Errorf("nearclient: %w", err)
	}
	defer resp.Body.Close()

	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return "", "", fmt.Errorf("nearclient: decode response: %w", err)
	}

	if rpcResp.Error != nil {
		if rpcResp.Error.Cause.Name == unknownAccountCauseName {
			return "", "", ErrUnknownAccount
		}
		return "", "", fmt.Errorf("nearclient: rpc error: %s", rpcResp.Error.Message)
	}

	var result viewAccountResult
	if err := json.Unmarshal(rpcResp.Result, &result); err != nil {
		return "", "", fmt.Errorf("nearclient: decode result: %w", err)
	}
	return result.Amount, result.Locked, nil
}
