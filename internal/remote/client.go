// Package remote is the agent's typed client for the fieldsync backend.
// Each backend collection gets its own narrow writer/reader interface so
// callers depend on exactly the capability they use.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hvackit/fieldsync/internal/model"
)

// EventWriter inserts analytics event batches.
type EventWriter interface {
	InsertEvents(ctx context.Context, batch []model.EventRow) error
}

// LogWriter inserts application log batches.
type LogWriter interface {
	InsertLogs(ctx context.Context, batch []model.LogRow) error
}

// FixStepWriter upserts fix-step draft batches.
type FixStepWriter interface {
	UpsertFixSteps(ctx context.Context, batch []model.FixStepDraft) error
}

// ErrorMetadataWriter upserts error-metadata draft batches.
type ErrorMetadataWriter interface {
	UpsertErrorMetadata(ctx context.Context, batch []model.ErrorMetadataDraft) error
}

// CatalogReader lists the error-code catalog for offline download.
type CatalogReader interface {
	ListErrorCodes(ctx context.Context) ([]model.ErrorCode, error)
}

// Client talks to the fieldsync backend over HTTP and implements every
// collection interface above.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient builds a backend client. token may be empty for anonymous ingest.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: timeout},
	}
}

// StatusError is a non-2xx backend reply.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend replied %d: %s", e.Status, e.Body)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Status: resp.StatusCode, Body: string(raw)}
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decode %s %s: %w", method, path, err)
		}
	}
	return nil
}

func (c *Client) InsertEvents(ctx context.Context, batch []model.EventRow) error {
	return c.do(ctx, http.MethodPost, "/v1/events", batch, nil)
}

func (c *Client) InsertLogs(ctx context.Context, batch []model.LogRow) error {
	return c.do(ctx, http.MethodPost, "/v1/logs", batch, nil)
}

func (c *Client) UpsertFixSteps(ctx context.Context, batch []model.FixStepDraft) error {
	return c.do(ctx, http.MethodPost, "/v1/fix-steps", batch, nil)
}

func (c *Client) UpsertErrorMetadata(ctx context.Context, batch []model.ErrorMetadataDraft) error {
	return c.do(ctx, http.MethodPost, "/v1/error-metadata", batch, nil)
}

// ListErrorCodes downloads the full catalog. The backend wraps list replies
// in its response envelope.
func (c *Client) ListErrorCodes(ctx context.Context) ([]model.ErrorCode, error) {
	var envelope struct {
		Data []model.ErrorCode `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/error-codes", nil, &envelope); err != nil {
		return nil, err
	}
	return envelope.Data, nil
}
