package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/akarl/annoq/pkg/models"
)

func newTestApp(t *testing.T) (*App, *httptest.Server) {
	t.Helper()
	app, err := NewApp(ServerOptions{Home: t.TempDir(), Addr: "127.0.0.1:0", SkipSeed: true})
	if err != nil {
		t.Fatalf("NewApp: %v", err)
	}
	ts := httptest.NewServer(app.Server.Handler)
	t.Cleanup(ts.Close)
	t.Cleanup(func() { _ = app.Store.Close() })
	return app, ts
}

func doJSON(t *testing.T, method, url string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, rd)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(userHeader, "alice")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer func() { _ = resp.Body.Close() }()
	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func TestHandlers(t *testing.T) {
	t.Parallel()
	_, ts := newTestApp(t)

	// Health
	resp, _ := doJSON(t, http.MethodGet, ts.URL+"/health", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /health: %d", resp.StatusCode)
	}

	// Queue without a name is rejected
	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/queues", map[string]any{"scope": "trace"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("POST /queues empty name: %d", resp.StatusCode)
	}

	// Create queue
	resp, body := doJSON(t, http.MethodPost, ts.URL+"/queues", map[string]any{
		"name": "nightly", "scope": "trace", "feedback_definition_names": []string{"clarity"},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("POST /queues: %d", resp.StatusCode)
	}
	queueID, _ := body["queue_id"].(string)
	if queueID == "" {
		t.Fatal("expected queue_id from POST /queues")
	}

	// Get queue
	resp, _ = doJSON(t, http.MethodGet, ts.URL+"/queues/"+queueID, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /queues/{id}: %d", resp.StatusCode)
	}
	resp, _ = doJSON(t, http.MethodGet, ts.URL+"/queues/missing", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("GET missing queue: %d", resp.StatusCode)
	}

	// Add items
	resp, body = doJSON(t, http.MethodPost, ts.URL+"/queues/"+queueID+"/items", map[string]any{
		"id": "tr-1", "input": "hello", "output": "world",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("POST items: %d", resp.StatusCode)
	}
	if body["item_id"] != "tr-1" {
		t.Fatalf("item_id: %v", body["item_id"])
	}
	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/queues/missing/items", map[string]any{"input": "x"})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("POST items to missing queue: %d", resp.StatusCode)
	}

	// Comment lifecycle on the trace family
	resp, body = doJSON(t, http.MethodPost, ts.URL+"/traces/tr-1/comments", map[string]any{"text": "looks fine"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("POST comment: %d", resp.StatusCode)
	}
	commentID, _ := body["comment_id"].(string)
	if commentID == "" {
		t.Fatal("expected comment_id")
	}
	resp, _ = doJSON(t, http.MethodPatch, ts.URL+"/comments/"+commentID, map[string]any{"text": "revised"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("PATCH comment: %d", resp.StatusCode)
	}

	// Score upsert and single-name delete
	resp, _ = doJSON(t, http.MethodPut, ts.URL+"/traces/tr-1/scores", map[string]any{"name": "clarity", "value": 4})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("PUT score: %d", resp.StatusCode)
	}
	resp, _ = doJSON(t, http.MethodDelete, ts.URL+"/traces/tr-1/scores?name=clarity", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("DELETE score: %d", resp.StatusCode)
	}
	resp, _ = doJSON(t, http.MethodDelete, ts.URL+"/traces/tr-1/scores", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("DELETE score without name: %d", resp.StatusCode)
	}

	// Items reflect the writes
	var items []models.QueueItem
	itemsResp, err := http.Get(ts.URL + "/queues/" + queueID + "/items")
	if err != nil {
		t.Fatalf("GET items: %v", err)
	}
	defer func() { _ = itemsResp.Body.Close() }()
	if err := json.NewDecoder(itemsResp.Body).Decode(&items); err != nil {
		t.Fatalf("decode items: %v", err)
	}
	if len(items) != 1 || len(items[0].Comments) != 1 {
		t.Fatalf("unexpected items: %+v", items)
	}
	if items[0].Comments[0].Text != "revised" || items[0].Comments[0].Author != "alice" {
		t.Fatalf("comment state: %+v", items[0].Comments[0])
	}
	if len(items[0].Scores) != 0 {
		t.Fatalf("scores should be gone: %+v", items[0].Scores)
	}

	// Batch comment delete
	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/traces/tr-1/comments/delete", map[string]any{"ids": []string{commentID}})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("POST comments/delete: %d", resp.StatusCode)
	}

	// Delete queue
	resp, _ = doJSON(t, http.MethodDelete, ts.URL+"/queues/"+queueID, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("DELETE queue: %d", resp.StatusCode)
	}
}

func TestThreadFamilyRoutes(t *testing.T) {
	t.Parallel()
	_, ts := newTestApp(t)

	_, body := doJSON(t, http.MethodPost, ts.URL+"/queues", map[string]any{"name": "support", "scope": "thread"})
	queueID, _ := body["queue_id"].(string)
	resp, _ := doJSON(t, http.MethodPost, ts.URL+"/queues/"+queueID+"/items", map[string]any{
		"id": "th-1", "thread_status": "active", "input": "hi", "output": "hello",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("POST thread item: %d", resp.StatusCode)
	}

	// Close the thread
	resp, _ = doJSON(t, http.MethodPatch, ts.URL+"/threads/th-1/status", map[string]any{"status": "inactive"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("PATCH status: %d", resp.StatusCode)
	}
	resp, _ = doJSON(t, http.MethodPatch, ts.URL+"/threads/th-1/status", map[string]any{"status": "bogus"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("PATCH bogus status: %d", resp.StatusCode)
	}
	// Status is a thread-only route.
	resp, _ = doJSON(t, http.MethodPatch, ts.URL+"/traces/th-1/status", map[string]any{"status": "inactive"})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("PATCH status on trace family: %d", resp.StatusCode)
	}

	// Thread comment and batched score delete
	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/threads/th-1/comments", map[string]any{"text": "resolved well"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("POST thread comment: %d", resp.StatusCode)
	}
	resp, _ = doJSON(t, http.MethodPut, ts.URL+"/threads/th-1/scores", map[string]any{"name": "helpfulness", "value": 5})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("PUT thread score: %d", resp.StatusCode)
	}
	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/threads/th-1/scores/delete", map[string]any{"names": []string{"helpfulness"}})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("POST scores/delete: %d", resp.StatusCode)
	}
	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/threads/th-1/scores/delete", map[string]any{"names": []string{}})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("POST scores/delete empty: %d", resp.StatusCode)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	t.Parallel()
	_, ts := newTestApp(t)

	resp, _ := doJSON(t, http.MethodPut, ts.URL+"/queues", nil)
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("PUT /queues: %d", resp.StatusCode)
	}
	resp, _ = doJSON(t, http.MethodGet, ts.URL+"/traces/tr-1/comments", nil)
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("GET comments: %d", resp.StatusCode)
	}
}

func TestRequestUserDefault(t *testing.T) {
	t.Parallel()
	r := httptest.NewRequest(http.MethodPost, "/traces/x/comments", strings.NewReader("{}"))
	if got := requestUser(r); got != "api" {
		t.Fatalf("requestUser default: %q", got)
	}
	r.Header.Set(userHeader, "bob")
	if got := requestUser(r); got != "bob" {
		t.Fatalf("requestUser header: %q", got)
	}
}
