package handlers

import (
	"net/http"

	"github.com/evxiong/notion-movies/services"
	"github.com/evxiong/notion-movies/shared/logger"
	"github.com/google/uuid"
)

// Connect starts the OAuth flow: stash a state value in the session cookie
// and send the browser to the provider's authorize page.
func (h *Handler) Connect(w http.ResponseWriter, r *http.Request) {
	state := uuid.NewString()

	session, err := services.GetSession(r)
	if err == nil {
		session.Values["oauth_state"] = state
		if err := services.SaveSession(w, r, session); err != nil {
			logger.Warn("Failed to save oauth state", "error", err)
		}
	}

	http.Redirect(w, r, h.oauth.AuthorizeURL(state), http.StatusFound)
}

// Callback finishes the OAuth flow: exchange the code for a token, record the
// credential, and redirect the browser. Every failure redirects to the
// fallback URL rather than leaving the request hanging.
func (h *Handler) Callback(w http.ResponseWriter, r *http.Request) {
	logger.Info("Received auth request")

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		logger.Warn("OAuth flow canceled or failed", "error", errParam)
		http.Redirect(w, r, h.cfg.FallbackURL, http.StatusFound)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Redirect(w, r, h.cfg.FallbackURL, http.StatusFound)
		return
	}

	if !h.stateMatches(r) {
		logger.Warn("OAuth state mismatch")
		http.Redirect(w, r, h.cfg.FallbackURL, http.StatusFound)
		return
	}

	cred, err := h.oauth.ExchangeCode(r.Context(), code)
	if err != nil {
		logger.Error("Token exchange failed", "error", err)
		http.Redirect(w, r, h.cfg.FallbackURL, http.StatusFound)
		return
	}

	notion := h.newNotion(cred.AccessToken)

	// Record which pages this token can reach, so later webhooks can match on
	// page id even when the template id differs.
	pageIDs, err := notion.DatabaseParentPageIDs(r.Context())
	if err != nil {
		logger.Warn("Failed to enumerate reachable pages", "error", err)
	} else {
		cred.PageIDs = pageIDs
	}

	if err := h.creds.Upsert(r.Context(), cred); err != nil {
		logger.Error("Failed to store credential", "error", err)
		http.Redirect(w, r, h.cfg.FallbackURL, http.StatusFound)
		return
	}
	logger.Info("Stored credential", "bot_id", cred.BotID, "user_id", cred.UserID)

	target := h.cfg.LandingURL
	if cred.DuplicatedTemplateID != "" {
		if pageURL, err := notion.PageURL(r.Context(), cred.DuplicatedTemplateID); err == nil && pageURL != "" {
			target = pageURL
		}
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// stateMatches compares the callback's state parameter against the session's
// stored value. Requests without a session or state are allowed through for
// compatibility with provider-initiated installs, which never saw /connect.
func (h *Handler) stateMatches(r *http.Request) bool {
	state := r.URL.Query().Get("state")
	session, err := services.GetSession(r)
	if err != nil || session.IsNew {
		return true
	}
	stored, ok := session.Values["oauth_state"].(string)
	if !ok || stored == "" {
		return true
	}
	return state == stored
}
