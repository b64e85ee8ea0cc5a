package httpapi

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestServerSmoke(t *testing.T) {
	t.Parallel()

	home := t.TempDir()
	app, err := NewApp(ServerOptions{Home: home, Addr: "127.0.0.1:0"})
	if err != nil {
		t.Fatalf("NewApp: %v", err)
	}

	ts := httptest.NewServer(app.Server.Handler)
	t.Cleanup(ts.Close)
	t.Cleanup(func() { _ = app.Store.Close() })

	// health
	r1, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer func() { _ = r1.Body.Close() }()
	if r1.StatusCode != 200 {
		t.Fatalf("/health status=%d", r1.StatusCode)
	}

	// Demo seed means the queue list is non-empty.
	r2, err := http.Get(ts.URL + "/queues")
	if err != nil {
		t.Fatalf("GET /queues: %v", err)
	}
	defer func() { _ = r2.Body.Close() }()
	var queues []any
	if err := json.NewDecoder(r2.Body).Decode(&queues); err != nil {
		t.Fatalf("decode /queues: %v", err)
	}
	if len(queues) == 0 {
		t.Fatal("expected seeded queues")
	}

	// Fallback /metrics (no OTel handler installed).
	r3, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer func() { _ = r3.Body.Close() }()
	if r3.StatusCode != 200 {
		t.Fatalf("/metrics status=%d", r3.StatusCode)
	}
	var sb strings.Builder
	sc := bufio.NewScanner(r3.Body)
	for sc.Scan() {
		sb.WriteString(sc.Text())
		sb.WriteString("\n")
	}
	if !strings.Contains(sb.String(), "annoq_queues_total") {
		t.Fatalf("metrics body: %s", sb.String())
	}

	// SSE should produce initial connected event quickly.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	req, _ := http.NewRequestWithContext(ctx, "GET", ts.URL+"/stream", nil)
	sseResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /stream: %v", err)
	}
	defer func() { _ = sseResp.Body.Close() }()

	sseScan := bufio.NewScanner(sseResp.Body)
	found := false
	for sseScan.Scan() {
		line := sseScan.Text()
		if strings.HasPrefix(line, "data: ") && strings.Contains(line, `"type":"connected"`) {
			found = true
			break
		}
	}
	if !found {
		t.Fatal("did not see connected event")
	}

	// JSON error on not found
	r4, _ := http.Get(ts.URL + "/queues/nonexistent")
	defer func() { _ = r4.Body.Close() }()
	if r4.StatusCode != 404 {
		t.Fatalf("GET /queues/nonexistent status=%d", r4.StatusCode)
	}
	var errBody struct{ Error string }
	if err := json.NewDecoder(r4.Body).Decode(&errBody); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if errBody.Error == "" {
		t.Fatal("expected error message in JSON")
	}
}

func TestAPIKeyMiddleware(t *testing.T) {
	t.Parallel()

	app, err := NewApp(ServerOptions{Home: t.TempDir(), Addr: "127.0.0.1:0", APIKey: "sekrit", SkipSeed: true})
	if err != nil {
		t.Fatalf("NewApp: %v", err)
	}
	ts := httptest.NewServer(app.Server.Handler)
	t.Cleanup(ts.Close)
	t.Cleanup(func() { _ = app.Store.Close() })

	// Health is exempt.
	r, _ := http.Get(ts.URL + "/health")
	defer func() { _ = r.Body.Close() }()
	if r.StatusCode != http.StatusOK {
		t.Fatalf("GET /health with key required: %d", r.StatusCode)
	}

	// Missing key is rejected.
	r2, _ := http.Get(ts.URL + "/queues")
	defer func() { _ = r2.Body.Close() }()
	if r2.StatusCode != http.StatusUnauthorized {
		t.Fatalf("GET /queues without key: %d", r2.StatusCode)
	}

	// Header key passes.
	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/queues", nil)
	req.Header.Set("X-API-Key", "sekrit")
	r3, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /queues with key: %v", err)
	}
	defer func() { _ = r3.Body.Close() }()
	if r3.StatusCode != http.StatusOK {
		t.Fatalf("GET /queues with key: %d", r3.StatusCode)
	}

	// Query key passes too.
	r4, _ := http.Get(ts.URL + "/queues?api_key=sekrit")
	defer func() { _ = r4.Body.Close() }()
	if r4.StatusCode != http.StatusOK {
		t.Fatalf("GET /queues with query key: %d", r4.StatusCode)
	}
}
