package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/papersift/internal/storage"
)

const maxSourcesLimit = 500

// SourceReader is the read-only slice of the store the status API needs.
type SourceReader interface {
	GetStats() (storage.Stats, error)
	ListSources(collection string, limit int) ([]storage.SourceEntry, error)
	SearchSources(query string, limit int) ([]storage.SourceEntry, error)
}

// NewHandler builds the read-only status API. The watcher goroutine is the
// only writer; these endpoints observe the store.
func NewHandler(store SourceReader) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", handleHealth)
	r.Get("/stats", handleStats(store))
	r.Get("/sources", handleListSources(store))
	r.Get("/sources/search", handleSearchSources(store))

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func handleStats(store SourceReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := store.GetStats()
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to read stats: %v", err)
			return
		}
		writeJSON(w, map[string]int{
			"snapshots":    stats.Snapshots,
			"relevant":     stats.Relevant,
			"non_relevant": stats.NonRelevant,
		})
	}
}

func handleListSources(store SourceReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		collection := r.URL.Query().Get("collection")
		if collection == "" {
			collection = storage.CollectionRelevant
		}
		if collection != storage.CollectionRelevant && collection != storage.CollectionNonRelevant {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "unknown collection %q", collection)
			return
		}

		entries, err := store.ListSources(collection, parseLimit(r, 100))
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list sources: %v", err)
			return
		}
		writeJSON(w, toSourceJSON(entries))
	}
}

func handleSearchSources(store SourceReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query().Get("q")
		if query == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "q is required")
			return
		}

		entries, err := store.SearchSources(query, parseLimit(r, 20))
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "search failed: %v", err)
			return
		}
		writeJSON(w, toSourceJSON(entries))
	}
}

func parseLimit(r *http.Request, def int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	if n > maxSourcesLimit {
		return maxSourcesLimit
	}
	return n
}

// sourceJSON is the wire form of a SourceEntry.
type sourceJSON struct {
	ID         string   `json:"id"`
	Collection string   `json:"collection"`
	Filename   string   `json:"filename"`
	SourceURL  string   `json:"source_url,omitempty"`
	Paragraphs []string `json:"paragraphs"`
	AddedAt    string   `json:"added_at"`
}

func toSourceJSON(entries []storage.SourceEntry) []sourceJSON {
	out := make([]sourceJSON, len(entries))
	for i, e := range entries {
		out[i] = sourceJSON{
			ID:         e.ID,
			Collection: e.Collection,
			Filename:   e.Filename,
			SourceURL:  e.SourceURL,
			Paragraphs: e.Paragraphs,
			AddedAt:    e.AddedAt.Format(time.RFC3339),
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
