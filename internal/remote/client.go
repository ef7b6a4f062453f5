// Package remote implements the HTTP client for the authoritative ledger
// service. Every response uses the {success, data, message} envelope; any
// transport failure, non-2xx status, or success=false surfaces as
// domain.RemoteUnavailableError so the sync coordinator can degrade to cache.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"buildledger/pkg/domain"
)

const defaultTimeout = 10 * time.Second

// envelope is the remote wire format.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

// Client talks to the remote ledger service.
type Client struct {
	base string
	http *http.Client
}

// New constructs a client for the service at baseURL. A zero timeout uses the
// default.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Timeout: timeout},
	}
}

// ListCollection fetches every record in a collection.
func (c *Client) ListCollection(ctx context.Context, collection string) ([]json.RawMessage, error) {
	data, err := c.do(ctx, http.MethodGet, "/"+url.PathEscape(collection), nil, collection)
	if err != nil {
		return nil, err
	}
	var records []json.RawMessage
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, domain.RemoteUnavailableError{Collection: collection, Err: fmt.Errorf("decode list: %w", err)}
	}
	return records, nil
}

// GetRecord fetches a single record by id.
func (c *Client) GetRecord(ctx context.Context, collection, id string) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, "/"+url.PathEscape(collection)+"/"+url.PathEscape(id), nil, collection)
}

// CreateRecord pushes a new record to the remote collection.
func (c *Client) CreateRecord(ctx context.Context, collection string, payload any) error {
	_, err := c.do(ctx, http.MethodPost, "/"+url.PathEscape(collection), payload, collection)
	return err
}

// UpdateRecord pushes the full state of an existing record.
func (c *Client) UpdateRecord(ctx context.Context, collection, id string, payload any) error {
	_, err := c.do(ctx, http.MethodPut, "/"+url.PathEscape(collection)+"/"+url.PathEscape(id), payload, collection)
	return err
}

// DeleteRecord removes a record from the remote collection.
func (c *Client) DeleteRecord(ctx context.Context, collection, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/"+url.PathEscape(collection)+"/"+url.PathEscape(id), nil, collection)
	return err
}

// do executes one envelope request. The collection name only labels the error.
func (c *Client) do(ctx context.Context, method, path string, payload any, collection string) (json.RawMessage, error) {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode payload: %w", err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return nil, domain.RemoteUnavailableError{Collection: collection, Err: err}
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, domain.RemoteUnavailableError{Collection: collection, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, domain.RemoteUnavailableError{Collection: collection, Err: fmt.Errorf("status %d", resp.StatusCode)}
	}
	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, domain.RemoteUnavailableError{Collection: collection, Err: fmt.Errorf("decode envelope: %w", err)}
	}
	if !env.Success {
		return nil, domain.RemoteUnavailableError{Collection: collection, Err: fmt.Errorf("remote rejected request: %s", env.Message)}
	}
	return env.Data, nil
}
