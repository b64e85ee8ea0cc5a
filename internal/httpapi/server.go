package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/akarl/annoq/internal/store"
	"github.com/akarl/annoq/internal/store/postgres"
	"github.com/akarl/annoq/pkg/models"
)

// userHeader carries the acting reviewer's name on annotation writes.
const userHeader = "X-Annoq-User"

// limitBody wraps r.Body with http.MaxBytesReader so handlers cannot read more than maxBytes.
func limitBody(w http.ResponseWriter, r *http.Request, maxBytes int64) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
}

// bodyLimitMiddleware limits request body size for POST, PUT, PATCH to prevent OOM.
func bodyLimitMiddleware(maxBytes int64, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			limitBody(w, r, maxBytes)
		}
		next.ServeHTTP(w, r)
	})
}

// corsMiddleware sets CORS headers for dev mode.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-API-Key, "+userHeader)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ServerOptions configures the HTTP server (home dir, listen addr, API key, DB, metrics).
type ServerOptions struct {
	Home           string
	Addr           string
	Dev            bool
	APIKey         string       // if set, require X-API-Key header or query api_key
	DBDriver       string       // "sqlite" (default) or "postgres"
	DBURL          string       // for postgres: connection string (or set DATABASE_URL env)
	MetricsHandler http.Handler // if set, used for /metrics (e.g. OTel Prometheus handler)
	UseOtelHTTP    bool         // if true, wrap handler with otelhttp for request metrics
	SkipSeed       bool         // if true, do not seed demo queues into an empty DB
}

// App holds the HTTP server, SSE hub, store, and home path.
type App struct {
	Server *http.Server
	Hub    *SSEHub
	Store  store.Interface
	Home   string
}

// NewApp creates the HTTP app (server, hub, store) and registers all routes.
func NewApp(opts ServerOptions) (*App, error) {
	hub := NewSSEHub()
	mux := http.NewServeMux()

	var st store.Interface
	var err error
	if opts.DBDriver == "postgres" {
		st, err = postgres.Open(opts.DBURL)
	} else {
		st, err = store.Open(opts.Home)
	}
	if err != nil {
		return nil, err
	}
	if !opts.SkipSeed {
		_ = st.SeedDemo(context.Background())
	}

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"ok": true})
	})

	if opts.MetricsHandler != nil {
		mux.Handle("/metrics", opts.MetricsHandler)
	} else {
		mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			queues, _ := st.ListQueues(r.Context(), 0)
			var traces, threads int
			for _, q := range queues {
				if q.Scope == models.ScopeThread {
					threads++
				} else {
					traces++
				}
			}
			_, _ = fmt.Fprintf(w, "# TYPE annoq_queues_total gauge\n")
			_, _ = fmt.Fprintf(w, "annoq_queues_total{scope=\"trace\"} %d\n", traces)
			_, _ = fmt.Fprintf(w, "annoq_queues_total{scope=\"thread\"} %d\n", threads)
		})
	}

	mux.HandleFunc("/stream", hub.Handler())

	// --- Queues ---
	mux.HandleFunc("/queues", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
			queues, err := st.ListQueues(r.Context(), limit)
			if err != nil {
				writeJSONError(w, http.StatusInternalServerError, err.Error())
				return
			}
			if queues == nil {
				queues = []models.AnnotationQueue{}
			}
			writeJSON(w, queues)
		case http.MethodPost:
			var q models.AnnotationQueue
			if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
				writeJSONError(w, http.StatusBadRequest, "invalid json")
				return
			}
			id, err := st.CreateQueue(r.Context(), q)
			if err != nil {
				writeJSONError(w, http.StatusBadRequest, err.Error())
				return
			}
			hub.PublishJSON(map[string]any{"type": "queue_update", "queue_id": id})
			writeJSON(w, map[string]any{"queue_id": id})
		default:
			writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
	})

	// --- Queue-scoped endpoints ---
	mux.HandleFunc("/queues/", func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, "/queues/")
		parts := strings.Split(rest, "/")
		if len(parts) < 1 || parts[0] == "" {
			writeJSONError(w, http.StatusNotFound, "not found")
			return
		}
		queueID := parts[0]

		// /queues/{id}
		if len(parts) == 1 || parts[1] == "" {
			switch r.Method {
			case http.MethodGet:
				q, err := st.GetQueue(r.Context(), queueID)
				if err != nil {
					writeJSONError(w, http.StatusInternalServerError, err.Error())
					return
				}
				if q == nil {
					writeJSONError(w, http.StatusNotFound, "queue not found")
					return
				}
				writeJSON(w, q)
			case http.MethodDelete:
				if err := st.DeleteQueue(r.Context(), queueID); err != nil {
					writeJSONError(w, http.StatusNotFound, err.Error())
					return
				}
				hub.PublishJSON(map[string]any{"type": "queue_update", "queue_id": queueID})
				writeJSON(w, map[string]any{"ok": true})
			default:
				writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
			}
			return
		}

		// /queues/{id}/items
		if parts[1] == "items" {
			switch r.Method {
			case http.MethodGet:
				limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
				items, err := st.ListQueueItems(r.Context(), queueID, limit)
				if err != nil {
					writeJSONError(w, http.StatusInternalServerError, err.Error())
					return
				}
				if items == nil {
					items = []models.QueueItem{}
				}
				writeJSON(w, items)
			case http.MethodPost:
				var it models.QueueItem
				if err := json.NewDecoder(r.Body).Decode(&it); err != nil {
					writeJSONError(w, http.StatusBadRequest, "invalid json")
					return
				}
				q, err := st.GetQueue(r.Context(), queueID)
				if err != nil {
					writeJSONError(w, http.StatusInternalServerError, err.Error())
					return
				}
				if q == nil {
					writeJSONError(w, http.StatusNotFound, "queue not found")
					return
				}
				id, err := st.AddQueueItem(r.Context(), queueID, it)
				if err != nil {
					writeJSONError(w, http.StatusBadRequest, err.Error())
					return
				}
				hub.PublishJSON(map[string]any{"type": "item_update", "queue_id": queueID, "item_id": id})
				writeJSON(w, map[string]any{"item_id": id})
			default:
				writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
			}
			return
		}

		writeJSONError(w, http.StatusNotFound, "not found")
	})

	// --- Item annotation endpoints ---
	// Traces and threads share storage; the split paths mirror the two write
	// families review clients dispatch.
	itemRoutes := func(prefix, family string) {
		mux.HandleFunc(prefix, func(w http.ResponseWriter, r *http.Request) {
			rest := strings.TrimPrefix(r.URL.Path, prefix)
			parts := strings.Split(rest, "/")
			if len(parts) < 2 || parts[0] == "" {
				writeJSONError(w, http.StatusNotFound, "not found")
				return
			}
			itemID := parts[0]
			switch parts[1] {
			case "comments":
				handleItemComments(w, r, st, hub, itemID, parts[2:])
			case "scores":
				handleItemScores(w, r, st, hub, family, itemID, parts[2:])
			case "status":
				if family != "thread" {
					writeJSONError(w, http.StatusNotFound, "not found")
					return
				}
				handleThreadStatus(w, r, st, hub, itemID)
			default:
				writeJSONError(w, http.StatusNotFound, "not found")
			}
		})
	}
	itemRoutes("/traces/", "trace")
	itemRoutes("/threads/", "thread")

	// PATCH /comments/{id}
	mux.HandleFunc("/comments/", func(w http.ResponseWriter, r *http.Request) {
		commentID := strings.TrimPrefix(r.URL.Path, "/comments/")
		if commentID == "" || strings.Contains(commentID, "/") {
			writeJSONError(w, http.StatusNotFound, "not found")
			return
		}
		if r.Method != http.MethodPatch && r.Method != http.MethodPut {
			writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		var body struct {
			Text string `json:"text"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid json")
			return
		}
		if err := st.UpdateComment(r.Context(), commentID, body.Text); err != nil {
			writeJSONError(w, http.StatusNotFound, err.Error())
			return
		}
		hub.PublishJSON(map[string]any{"type": "comment_update", "comment_id": commentID})
		writeJSON(w, map[string]any{"ok": true})
	})

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			writeJSONError(w, http.StatusNotFound, "not found")
			return
		}
		writeJSON(w, map[string]any{"service": "annoq", "home": opts.Home})
	})

	var handler http.Handler = mux
	handler = bodyLimitMiddleware(models.DefaultMaxRequestBodyBytes, handler)
	if opts.Dev {
		handler = corsMiddleware(handler)
	}
	if opts.APIKey != "" {
		handler = apiKeyMiddleware(opts.APIKey, handler)
	}
	handler = requestLogMiddleware(handler)
	if opts.UseOtelHTTP {
		handler = otelhttp.NewHandler(handler, "annoq")
	}
	srv := &http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	srv.RegisterOnShutdown(func() {
		_ = st.Close()
	})

	return &App{Server: srv, Hub: hub, Store: st, Home: opts.Home}, nil
}

func handleItemComments(w http.ResponseWriter, r *http.Request, st store.Interface, hub *SSEHub, itemID string, tail []string) {
	// POST {prefix}/{id}/comments/delete — batch delete by ids
	if len(tail) > 0 && tail[0] == "delete" {
		if r.Method != http.MethodPost {
			writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		var body struct {
			IDs []string `json:"ids"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid json")
			return
		}
		if len(body.IDs) == 0 {
			writeJSONError(w, http.StatusBadRequest, "ids required")
			return
		}
		if err := st.DeleteComments(r.Context(), itemID, body.IDs); err != nil {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		hub.PublishJSON(map[string]any{"type": "comment_update", "item_id": itemID})
		writeJSON(w, map[string]any{"ok": true})
		return
	}
	if r.Method != http.MethodPost {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var body struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	author := requestUser(r)
	id, err := st.CreateComment(r.Context(), itemID, author, body.Text)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	hub.PublishJSON(map[string]any{"type": "comment_update", "item_id": itemID})
	writeJSON(w, map[string]any{"comment_id": id})
}

func handleItemScores(w http.ResponseWriter, r *http.Request, st store.Interface, hub *SSEHub, family, itemID string, tail []string) {
	// POST {prefix}/{id}/scores/delete — batch delete by names (thread family)
	if len(tail) > 0 && tail[0] == "delete" {
		if r.Method != http.MethodPost {
			writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		var body struct {
			Names []string `json:"names"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid json")
			return
		}
		if len(body.Names) == 0 {
			writeJSONError(w, http.StatusBadRequest, "names required")
			return
		}
		if err := st.DeleteScores(r.Context(), itemID, requestUser(r), body.Names); err != nil {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		hub.PublishJSON(map[string]any{"type": "score_update", "family": family, "item_id": itemID})
		writeJSON(w, map[string]any{"ok": true})
		return
	}
	switch r.Method {
	case http.MethodPut, http.MethodPost:
		var u models.ScoreUpdate
		if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid json")
			return
		}
		if err := st.UpsertScore(r.Context(), itemID, requestUser(r), u); err != nil {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		hub.PublishJSON(map[string]any{"type": "score_update", "family": family, "item_id": itemID})
		writeJSON(w, map[string]any{"ok": true})
	case http.MethodDelete:
		// Single-name delete via query (trace family).
		name := r.URL.Query().Get("name")
		if name == "" {
			writeJSONError(w, http.StatusBadRequest, "name query required")
			return
		}
		if err := st.DeleteScores(r.Context(), itemID, requestUser(r), []string{name}); err != nil {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		hub.PublishJSON(map[string]any{"type": "score_update", "family": family, "item_id": itemID})
		writeJSON(w, map[string]any{"ok": true})
	default:
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func handleThreadStatus(w http.ResponseWriter, r *http.Request, st store.Interface, hub *SSEHub, itemID string) {
	if r.Method != http.MethodPatch && r.Method != http.MethodPut {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := st.SetThreadStatus(r.Context(), itemID, body.Status); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	hub.PublishJSON(map[string]any{"type": "item_update", "item_id": itemID})
	writeJSON(w, map[string]any{"ok": true})
}

// requestUser returns the acting reviewer's name, defaulting to "api".
func requestUser(r *http.Request) string {
	if u := r.Header.Get(userHeader); u != "" {
		return u
	}
	return "api"
}

// responseRecorder captures status code for logging and forwards Flusher if supported.
type responseRecorder struct {
	http.ResponseWriter
	status int
}

func (r *responseRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func apiKeyMiddleware(apiKey string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		if path == "/health" || path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}
		key := r.Header.Get("X-API-Key")
		if key == "" {
			key = r.URL.Query().Get("api_key")
		}
		if key != apiKey {
			writeJSONError(w, http.StatusUnauthorized, "invalid or missing API key")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func requestLogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		rec := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, req)
		slog.Info("request",
			"method", req.Method,
			"path", req.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds())
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

// writeJSONError sends a JSON body {"error": "message"} with the given status code.
func writeJSONError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": message})
}
