// Package client provides a Go SDK for the annoq HTTP API. It implements the
// write families the review session dispatches on submit, plus the queue and
// item reads the session loads from.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/akarl/annoq/pkg/models"
)

// Client calls the annoq HTTP API. It is safe for concurrent use.
type Client struct {
	BaseURL    string       // e.g. "http://localhost:3719"
	APIKey     string       // optional; set for X-API-Key
	User       string       // reviewer name sent as X-Annoq-User on writes
	HTTPClient *http.Client // optional; nil uses http.DefaultClient
}

// New returns a client for the given base URL. user is the reviewer name
// attached to annotation writes; APIKey is optional.
func New(baseURL, apiKey, user string) *Client {
	return &Client{BaseURL: baseURL, APIKey: apiKey, User: user}
}

func (c *Client) client() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(b)
	}
	u := c.BaseURL + path
	req, err := http.NewRequestWithContext(ctx, method, u, bodyReader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.APIKey != "" {
		req.Header.Set("X-API-Key", c.APIKey)
	}
	if c.User != "" {
		req.Header.Set("X-Annoq-User", c.User)
	}
	return c.client().Do(req)
}

func (c *Client) doJSON(ctx context.Context, method, path string, body any, out any) error {
	resp, err := c.do(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errBody struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errBody)
		if errBody.Error != "" {
			return fmt.Errorf("api %s %s: %s", method, path, errBody.Error)
		}
		return fmt.Errorf("api %s %s: status %d", method, path, resp.StatusCode)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// Health returns the /health response (ok: true).
func (c *Client) Health(ctx context.Context) (ok bool, err error) {
	var out struct {
		OK bool `json:"ok"`
	}
	err = c.doJSON(ctx, http.MethodGet, "/health", nil, &out)
	return out.OK, err
}

// ListQueues returns annotation queues (limit 0 = default).
func (c *Client) ListQueues(ctx context.Context, limit int) ([]models.AnnotationQueue, error) {
	path := "/queues"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var out []models.AnnotationQueue
	err := c.doJSON(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

// GetQueue returns one queue by ID.
func (c *Client) GetQueue(ctx context.Context, id string) (*models.AnnotationQueue, error) {
	var out models.AnnotationQueue
	err := c.doJSON(ctx, http.MethodGet, "/queues/"+url.PathEscape(id), nil, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateQueue creates a queue and returns its ID.
func (c *Client) CreateQueue(ctx context.Context, q models.AnnotationQueue) (string, error) {
	var out struct {
		QueueID string `json:"queue_id"`
	}
	err := c.doJSON(ctx, http.MethodPost, "/queues", q, &out)
	return out.QueueID, err
}

// DeleteQueue deletes a queue by ID.
func (c *Client) DeleteQueue(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/queues/"+url.PathEscape(id), nil, nil)
}

// ListQueueItems returns the queue's items with comments and scores (limit 0 = default).
func (c *Client) ListQueueItems(ctx context.Context, queueID string, limit int) ([]models.QueueItem, error) {
	path := "/queues/" + url.PathEscape(queueID) + "/items"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var out []models.QueueItem
	err := c.doJSON(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

// AddQueueItem appends an item to the queue and returns its ID.
func (c *Client) AddQueueItem(ctx context.Context, queueID string, item models.QueueItem) (string, error) {
	var out struct {
		ItemID string `json:"item_id"`
	}
	err := c.doJSON(ctx, http.MethodPost, "/queues/"+url.PathEscape(queueID)+"/items", item, &out)
	return out.ItemID, err
}

// SetThreadStatus marks a thread item active or inactive.
func (c *Client) SetThreadStatus(ctx context.Context, threadID, status string) error {
	return c.doJSON(ctx, http.MethodPatch, "/threads/"+url.PathEscape(threadID)+"/status",
		map[string]string{"status": status}, nil)
}
