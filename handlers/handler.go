package handlers

import (
	"context"

	"github.com/evxiong/notion-movies/config"
	"github.com/evxiong/notion-movies/models"
	"github.com/evxiong/notion-movies/services"
)

// CredentialStore is the credential lookup/persistence surface the handlers
// depend on.
type CredentialStore interface {
	Find(ctx context.Context, userID, pageID string) (*models.Credential, error)
	Upsert(ctx context.Context, cred *models.Credential) error
}

// Runner kicks off one enrichment pass for a tenant.
type Runner interface {
	Run(ctx context.Context, pageID, accessToken string) error
}

// OAuth covers the provider round trip.
type OAuth interface {
	AuthorizeURL(state string) string
	ExchangeCode(ctx context.Context, code string) (*models.Credential, error)
}

// tenantPages is the slice of the Notion client the OAuth callback uses with
// a freshly issued token.
type tenantPages interface {
	DatabaseParentPageIDs(ctx context.Context) ([]string, error)
	PageURL(ctx context.Context, pageID string) (string, error)
}

// Handler holds the wired dependencies for all HTTP endpoints.
type Handler struct {
	cfg       *config.Config
	creds     CredentialStore
	runner    Runner
	oauth     OAuth
	newNotion func(accessToken string) tenantPages
}

func New(cfg *config.Config, creds CredentialStore, runner Runner, oauth OAuth) *Handler {
	return &Handler{
		cfg:    cfg,
		creds:  creds,
		runner: runner,
		oauth:  oauth,
		newNotion: func(accessToken string) tenantPages {
			return services.NewNotionClient(accessToken)
		},
	}
}
