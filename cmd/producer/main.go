// Package main implements the taskhive producer process: an HTTP API that
// accepts work and enqueues it onto a Redis-backed Hive.
//
// API Endpoints:
//
//	POST /enqueue  - enqueue a task: {"class": "...", "args": [...], "kwargs": {...}}
//	GET  /result   - fetch a task's result by id: /result?id=...
//	GET  /pending  - list queued tasks (inspection only)
//	GET  /scheduled - list scheduled tasks (inspection only)
//	GET  /stats    - queue/schedule/result-store depths
//
// Usage:
//
//	go run cmd/producer/main.go
//
// The server listens on :8081 and connects to Redis at localhost:6379.
package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jgarrity-dev/taskhive/internal/demotasks"
	"github.com/jgarrity-dev/taskhive/pkg/hive"
	"github.com/jgarrity-dev/taskhive/pkg/logger"
	"github.com/jgarrity-dev/taskhive/pkg/storage"
)

// authMiddleware wraps an http.HandlerFunc and enforces API Key authentication.
func authMiddleware(next http.HandlerFunc, requiredKey string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if requiredKey == "" {
			next(w, r)
			return
		}
		if r.Header.Get("X-API-Key") != requiredKey {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

// enableCORS wraps an http.HandlerFunc and adds CORS headers.
func enableCORS(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-API-Key")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next(w, r)
	}
}

func setupRouter(h *hive.Hive, handles *demotasks.Handles, apiKey string) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/enqueue", enableCORS(authMiddleware(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req struct {
			Class     string         `json:"class"`
			Args      []any          `json:"args"`
			Kwargs    map[string]any `json:"kwargs"`
			DelaySecs int            `json:"delay_seconds"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		wrapper := wrapperFor(handles, req.Class)
		if wrapper == nil {
			http.Error(w, fmt.Sprintf("unknown class %q", req.Class), http.StatusBadRequest)
			return
		}

		var result *hive.Result
		var err error
		if req.DelaySecs > 0 {
			delay := time.Duration(req.DelaySecs) * time.Second
			result, err = wrapper.Schedule(r.Context(), req.Args, req.Kwargs, nil, &delay, "")
		} else {
			result, err = wrapper.Call(r.Context(), req.Args, req.Kwargs)
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		id := ""
		if result != nil {
			id = result.ID()
		}
		fmt.Fprintf(w, "Task enqueued: %s\n", id)
	}, apiKey)))

	mux.HandleFunc("/result", enableCORS(authMiddleware(func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("id")
		if id == "" {
			http.Error(w, "Missing task ID", http.StatusBadRequest)
			return
		}

		value, err := h.Result(id).Get(r.Context(), hive.Preserve())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if value == nil {
			http.Error(w, "Result not found", http.StatusNotFound)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(value)
	}, apiKey)))

	mux.HandleFunc("/pending", enableCORS(authMiddleware(func(w http.ResponseWriter, r *http.Request) {
		tasks, err := h.Pending(r.Context(), 50)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(tasks)
	}, apiKey)))

	mux.HandleFunc("/scheduled", enableCORS(authMiddleware(func(w http.ResponseWriter, r *http.Request) {
		tasks, err := h.Scheduled(r.Context(), 50)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(tasks)
	}, apiKey)))

	mux.HandleFunc("/stats", enableCORS(authMiddleware(func(w http.ResponseWriter, r *http.Request) {
		pending, err := h.PendingCount(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		scheduled, err := h.ScheduledCount(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		results, err := h.ResultCount(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]int64{
			"pending":   pending,
			"scheduled": scheduled,
			"results":   results,
		})
	}, apiKey)))

	return mux
}

func wrapperFor(h *demotasks.Handles, class string) *hive.TaskWrapper {
	switch class {
	case demotasks.SendEmail:
		return h.SendEmail
	case demotasks.ResizeImage:
		return h.ResizeImage
	case demotasks.Generic:
		return h.Generic
	default:
		return nil
	}
}

func main() {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:6379"})
	store := storage.NewRedis("taskhive", rdb, 5*time.Second)

	h, err := hive.New("taskhive", hive.WithStorage(store))
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("failed to construct hive")
	}
	handles := demotasks.Register(h)

	apiKey := os.Getenv("API_KEY")
	if apiKey == "" {
		logger.Log.Warn().Msg("API_KEY not set, authentication disabled")
	} else {
		logger.Log.Info().Msg("API authentication enabled")
	}

	mux := setupRouter(h, handles, apiKey)

	logger.Log.Info().Msg("Producer listening on :8081")
	if err := http.ListenAndServe(":8081", mux); err != nil {
		logger.Log.Fatal().Err(err).Msg("server failed")
	}
}
