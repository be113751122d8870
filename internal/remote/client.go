// Package remote talks to the backend's RPC surface: one snapshot fetch
// procedure plus per-table upsert and delete procedures.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/motorlot/dealersync/internal/wire"
)

// fetchProcedure returns every row changed since the requested checkpoint.
const fetchProcedure = "get_changes"

// RPCError is returned when the backend rejects a procedure call.
// Supports Unwrap().
type RPCError struct {
	Procedure  string
	StatusCode int
	Err        error
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc: %s failed (status %d): %v", e.Procedure, e.StatusCode, e.Err)
}

func (e *RPCError) Unwrap() error { return e.Err }

// Client abstracts the backend RPC surface. Implementations must be safe
// for concurrent use.
type Client interface {
	// FetchChanges retrieves the delta snapshot for one dealer since the
	// given checkpoint.
	FetchChanges(ctx context.Context, dealerID uuid.UUID, since time.Time) (*wire.Snapshot, error)

	// Upsert delivers one queued row to its per-table sync procedure.
	// row must already be in wire shape.
	Upsert(ctx context.Context, procedure string, row json.RawMessage) error

	// Delete delivers one queued delete to its per-table delete procedure.
	Delete(ctx context.Context, procedure string, id, dealerID uuid.UUID) error
}

// HTTPClient implements Client using net/http.
type HTTPClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewHTTPClient creates a backend RPC client.
func NewHTTPClient(baseURL, apiKey string) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// WithHTTPClient sets a custom http.Client (for testing or custom timeouts).
func (c *HTTPClient) WithHTTPClient(client *http.Client) *HTTPClient {
	c.httpClient = client
	return c
}

func (c *HTTPClient) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "dealersync-client/1.0")
}

func newRPCError(procedure string, statusCode int, body []byte) *RPCError {
	msg := ""
	if len(body) > 0 {
		if len(body) > 200 {
			msg = string(body[:200]) + "..."
		} else {
			msg = string(body)
		}
	}
	return &RPCError{
		Procedure:  procedure,
		StatusCode: statusCode,
		Err:        fmt.Errorf("HTTP %d: %s", statusCode, msg),
	}
}

// call posts the body to one RPC procedure and decodes the response into
// out when out is non-nil.
func (c *HTTPClient) call(ctx context.Context, procedure string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return &RPCError{Procedure: procedure, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/rpc/"+procedure, bytes.NewReader(payload))
	if err != nil {
		return &RPCError{Procedure: procedure, Err: err}
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &RPCError{Procedure: procedure, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return newRPCError(procedure, resp.StatusCode, respBody)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &RPCError{Procedure: procedure, Err: err}
	}
	return nil
}

func (c *HTTPClient) FetchChanges(ctx context.Context, dealerID uuid.UUID, since time.Time) (*wire.Snapshot, error) {
	body := map[string]string{
		"dealer_id": dealerID.String(),
		"since":     wire.FormatTimestamp(since),
	}
	var snap wire.Snapshot
	if err := c.call(ctx, fetchProcedure, body, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (c *HTTPClient) Upsert(ctx context.Context, procedure string, row json.RawMessage) error {
	body := map[string]any{
		"payload": []json.RawMessage{row},
	}
	return c.call(ctx, procedure, body, nil)
}

func (c *HTTPClient) Delete(ctx context.Context, procedure string, id, dealerID uuid.UUID) error {
	body := map[string]string{
		"p_id":        id.String(),
		"p_dealer_id": dealerID.String(),
	}
	return c.call(ctx, procedure, body, nil)
}
