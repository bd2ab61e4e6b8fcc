package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/evxiong/notion-movies/shared/logger"
)

const reauthorizeMsg = "Failed to complete POST request. Try reauthorizing integration."

type webhookPayload struct {
	Source struct {
		UserID string `json:"user_id"`
	} `json:"source"`
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
}

// Health confirms the server is up.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	logger.Info("Received GET request")
	w.Write([]byte("notion-movies server is working"))
}

// Webhook handles an inbound event: resolve the tenant's credential from the
// payload's user and page ids, then run enrichment against that page. Every
// exit path writes exactly one response.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	logger.Info("Received POST request")

	var payload webhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Malformed request body.", http.StatusBadRequest)
		return
	}

	userID := payload.Source.UserID
	pageID := payload.Data.ID
	if userID == "" || pageID == "" {
		http.Error(w, "Malformed request body: missing user id or page id.", http.StatusBadRequest)
		return
	}

	cred, err := h.creds.Find(r.Context(), userID, pageID)
	if err != nil {
		logger.Error("Credential lookup failed", "user_id", userID, "page_id", pageID, "error", err)
		http.Error(w, "Internal server error.", http.StatusInternalServerError)
		return
	}
	if cred == nil {
		http.Error(w, reauthorizeMsg, http.StatusUnprocessableEntity)
		return
	}

	if err := h.runner.Run(r.Context(), pageID, cred.AccessToken); err != nil {
		logger.Warn("Enrichment run failed to start", "page_id", pageID, "error", err)
		http.Error(w, reauthorizeMsg, http.StatusUnprocessableEntity)
		return
	}

	w.Write([]byte("Completed POST request."))
}
