package handlers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/evxiong/notion-movies/config"
	"github.com/evxiong/notion-movies/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCredStore struct {
	cred     *models.Credential
	findErr  error
	upserted []*models.Credential
}

func (f *fakeCredStore) Find(ctx context.Context, userID, pageID string) (*models.Credential, error) {
	return f.cred, f.findErr
}

func (f *fakeCredStore) Upsert(ctx context.Context, cred *models.Credential) error {
	f.upserted = append(f.upserted, cred)
	return nil
}

type fakeRunner struct {
	err      error
	ranPage  string
	ranToken string
}

func (f *fakeRunner) Run(ctx context.Context, pageID, accessToken string) error {
	f.ranPage = pageID
	f.ranToken = accessToken
	return f.err
}

func newTestHandler(creds *fakeCredStore, runner *fakeRunner) *Handler {
	cfg := config.Load()
	return New(cfg, creds, runner, nil)
}

func postWebhook(h *Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", "/", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.Webhook(w, req)
	return w
}

func TestHealth(t *testing.T) {
	h := newTestHandler(&fakeCredStore{}, &fakeRunner{})

	req := httptest.NewRequest("GET", "/", nil)
	w := httptest.NewRecorder()
	h.Health(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "notion-movies server is working", w.Body.String())
}

func TestWebhookMissingPageID(t *testing.T) {
	h := newTestHandler(&fakeCredStore{}, &fakeRunner{})

	w := postWebhook(h, `{"source":{"user_id":"user1"},"data":{}}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWebhookMissingUserID(t *testing.T) {
	h := newTestHandler(&fakeCredStore{}, &fakeRunner{})

	w := postWebhook(h, `{"source":{},"data":{"id":"page1"}}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWebhookInvalidJSON(t *testing.T) {
	h := newTestHandler(&fakeCredStore{}, &fakeRunner{})

	w := postWebhook(h, `{not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWebhookNoCredential(t *testing.T) {
	runner := &fakeRunner{}
	h := newTestHandler(&fakeCredStore{cred: nil}, runner)

	w := postWebhook(h, `{"source":{"user_id":"user1"},"data":{"id":"page1"}}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "reauthorizing")
	assert.Empty(t, runner.ranPage)
}

func TestWebhookCredentialLookupFailure(t *testing.T) {
	h := newTestHandler(&fakeCredStore{findErr: fmt.Errorf("db down")}, &fakeRunner{})

	w := postWebhook(h, `{"source":{"user_id":"user1"},"data":{"id":"page1"}}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestWebhookRunnerFailure(t *testing.T) {
	creds := &fakeCredStore{cred: &models.Credential{UserID: "user1", AccessToken: "tok1"}}
	h := newTestHandler(creds, &fakeRunner{err: fmt.Errorf("no child database")})

	w := postWebhook(h, `{"source":{"user_id":"user1"},"data":{"id":"page1"}}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "reauthorizing")
}

func TestWebhookSuccess(t *testing.T) {
	creds := &fakeCredStore{cred: &models.Credential{UserID: "user1", AccessToken: "tok1"}}
	runner := &fakeRunner{}
	h := newTestHandler(creds, runner)

	w := postWebhook(h, `{"source":{"user_id":"user1"},"data":{"id":"page1"}}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Completed POST request.", w.Body.String())
	assert.Equal(t, "page1", runner.ranPage)
	assert.Equal(t, "tok1", runner.ranToken)
}
