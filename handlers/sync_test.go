package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/evxiong/notion-movies/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newSyncHandler(t *testing.T, runner *fakeRunner) *Handler {
	hash, err := bcrypt.GenerateFromPassword([]byte("sync-token"), bcrypt.MinCost)
	require.NoError(t, err)

	cfg := config.Load()
	cfg.SyncTokenHash = string(hash)
	cfg.NotionKey = "internal-token"
	cfg.NotionPageID = "page1"
	return New(cfg, &fakeCredStore{}, runner, nil)
}

func postSync(h *Handler, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", "/internal/sync", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.Sync(w, req)
	return w
}

func TestSyncRequiresToken(t *testing.T) {
	h := newSyncHandler(t, &fakeRunner{})

	assert.Equal(t, http.StatusUnauthorized, postSync(h, "").Code)
	assert.Equal(t, http.StatusUnauthorized, postSync(h, "wrong-token").Code)
}

func TestSyncRunsInternalIntegration(t *testing.T) {
	runner := &fakeRunner{}
	h := newSyncHandler(t, runner)

	w := postSync(h, "sync-token")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "page1", runner.ranPage)
	assert.Equal(t, "internal-token", runner.ranToken)
}

func TestSyncUnconfiguredTokenHashDeniesAll(t *testing.T) {
	cfg := config.Load()
	cfg.SyncTokenHash = ""
	h := New(cfg, &fakeCredStore{}, &fakeRunner{}, nil)

	assert.Equal(t, http.StatusUnauthorized, postSync(h, "anything").Code)
}
