package shapediver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client talks to a ShapeDiver-compatible geometry backend. Every call is a
// single attempt; retrying a failed computation is the caller's decision
// (the export pipeline deliberately never does).
type Client struct {
	httpClient *http.Client
}

// NewClient creates a client. A nil httpClient gets a default with a
// generous timeout, since export computations can take a while.
func NewClient(httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 90 * time.Second}
	}
	return &Client{httpClient: httpClient}
}

// CreateSession opens a computation session using the server-held ticket.
func (c *Client) CreateSession(ctx context.Context, endpoint, ticket string) (*Session, error) {
	url := fmt.Sprintf("%s/api/v2/ticket/%s", strings.TrimSuffix(endpoint, "/"), ticket)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader("{}"))
	if err != nil {
		return nil, fmt.Errorf("build session request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("session request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read session response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("session request returned %d: %s", resp.StatusCode, snippet(body))
	}

	var session Session
	if err := json.Unmarshal(body, &session); err != nil {
		return nil, fmt.Errorf("decode session response: %w", err)
	}
	if session.ID == "" {
		return nil, fmt.Errorf("session response missing sessionId")
	}
	session.Endpoint = strings.TrimSuffix(endpoint, "/")
	return &session, nil
}

// ComputeExport submits parameter values and a single export id, returning
// the raw per-export result for that id.
func (c *Client) ComputeExport(ctx context.Context, session *Session, params map[string]any, exportID string) (map[string]any, error) {
	url := fmt.Sprintf("%s/api/v2/session/%s/export", session.Endpoint, session.ID)

	payload, err := json.Marshal(ComputeRequest{Parameters: params, Exports: []string{exportID}})
	if err != nil {
		return nil, fmt.Errorf("marshal compute request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build compute request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("compute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read compute response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("compute request returned %d: %s", resp.StatusCode, snippet(body))
	}

	var computed ComputeResponse
	if err := json.Unmarshal(body, &computed); err != nil {
		return nil, fmt.Errorf("decode compute response: %w", err)
	}
	result, ok := computed.Exports[exportID]
	if !ok {
		return nil, fmt.Errorf("compute response missing export %q", exportID)
	}
	return result, nil
}

// snippet trims upstream bodies for error messages.
func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		return s[:200] + "…"
	}
	return s
}
