package handlers

import (
	"net/http"
	"strings"

	"github.com/evxiong/notion-movies/shared/logger"
	"golang.org/x/crypto/bcrypt"
)

// Sync triggers an enrichment run against the operator's own page using the
// internal integration token. Guarded by a bearer token checked against the
// configured bcrypt hash.
func (h *Handler) Sync(w http.ResponseWriter, r *http.Request) {
	if !h.authorizeSync(r) {
		http.Error(w, "Unauthorized.", http.StatusUnauthorized)
		return
	}

	if h.cfg.NotionKey == "" || h.cfg.NotionPageID == "" {
		http.Error(w, "Internal integration is not configured.", http.StatusServiceUnavailable)
		return
	}

	if err := h.runner.Run(r.Context(), h.cfg.NotionPageID, h.cfg.NotionKey); err != nil {
		logger.Warn("Internal sync failed to start", "error", err)
		http.Error(w, "Failed to complete sync.", http.StatusUnprocessableEntity)
		return
	}

	w.Write([]byte("Completed sync."))
}

func (h *Handler) authorizeSync(r *http.Request) bool {
	if h.cfg.SyncTokenHash == "" {
		return false
	}
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || token == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(h.cfg.SyncTokenHash), []byte(token)) == nil
}
