// Package payloadhttp serves stored payloads over HTTP.
//
// It implements the retrieval contract the rest of the system consumes:
//
//	GET /payload/{digest}         → raw payload bytes
//	GET /payload/{digest}/verify  → integrity check result
//	GET /stats                    → store statistics
//	GET /healthz                  → liveness check
package payloadhttp

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/chainproof/anchor/internal/store"
)

// Handler returns the retrieval endpoint mux over the given store.
func Handler(st store.Store, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &handler{store: st, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /payload/{digest}", h.getPayload)
	mux.HandleFunc("GET /payload/{digest}/verify", h.verifyPayload)
	mux.HandleFunc("GET /stats", h.stats)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

type handler struct {
	store  store.Store
	logger *slog.Logger
}

func (h *handler) getPayload(w http.ResponseWriter, r *http.Request) {
	digest := r.PathValue("digest")
	if !store.ValidDigest(digest) {
		http.Error(w, "invalid digest", http.StatusBadRequest)
		return
	}

	data, err := h.store.Get(r.Context(), digest)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "payload not found", http.StatusNotFound)
			return
		}
		h.logger.Error("payload read failed", "digest", digest, "error", err)
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("X-Content-Digest", digest)
	// Content is immutable: the digest is the identity.
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	_, _ = w.Write(data)
}

func (h *handler) verifyPayload(w http.ResponseWriter, r *http.Request) {
	digest := r.PathValue("digest")
	if !store.ValidDigest(digest) {
		http.Error(w, "invalid digest", http.StatusBadRequest)
		return
	}

	ok, err := h.store.Verify(r.Context(), digest)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "payload not found", http.StatusNotFound)
			return
		}
		h.logger.Error("payload verify failed", "digest", digest, "error", err)
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]any{"digest": digest, "valid": ok})
}

func (h *handler) stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.store.Stats(r.Context())
	if err != nil {
		h.logger.Error("store stats failed", "error", err)
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, st)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
