package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/evxiong/notion-movies/config"
	"github.com/evxiong/notion-movies/models"
	"github.com/evxiong/notion-movies/shared/httpx"
)

// OAuthClient performs the server side of Notion's OAuth code exchange.
type OAuthClient struct {
	clientID     string
	clientSecret string
	redirectURI  string
	baseURL      string
	client       *http.Client
}

func NewOAuthClient(cfg *config.Config) *OAuthClient {
	return &OAuthClient{
		clientID:     cfg.OAuthClientID,
		clientSecret: cfg.OAuthClientSecret,
		redirectURI:  cfg.OAuthRedirectURI,
		baseURL:      "https://api.notion.com",
		client:       httpx.DefaultClient,
	}
}

// AuthorizeURL builds the provider's authorization redirect target.
func (o *OAuthClient) AuthorizeURL(state string) string {
	q := url.Values{}
	q.Set("client_id", o.clientID)
	q.Set("response_type", "code")
	q.Set("owner", "user")
	q.Set("redirect_uri", o.redirectURI)
	q.Set("state", state)
	return o.baseURL + "/v1/oauth/authorize?" + q.Encode()
}

type oauthTokenResponse struct {
	AccessToken          string `json:"access_token"`
	BotID                string `json:"bot_id"`
	DuplicatedTemplateID string `json:"duplicated_template_id"`
	Owner                struct {
		User struct {
			ID string `json:"id"`
		} `json:"user"`
	} `json:"owner"`
	Error string `json:"error"`
}

// ExchangeCode trades an authorization code for an access credential. The
// owning user id comes from the response's nested owner field; the timestamp
// is set here.
func (o *OAuthClient) ExchangeCode(ctx context.Context, code string) (*models.Credential, error) {
	body, err := json.Marshal(map[string]string{
		"grant_type":   "authorization_code",
		"code":         code,
		"redirect_uri": o.redirectURI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode token request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", o.baseURL+"/v1/oauth/token", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create token request: %w", err)
	}
	req.SetBasicAuth(o.clientID, o.clientSecret)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	var token oauthTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}
	if token.Error != "" {
		return nil, fmt.Errorf("provider rejected code exchange: %s", token.Error)
	}
	if token.AccessToken == "" {
		return nil, fmt.Errorf("provider returned no access token")
	}

	return &models.Credential{
		UserID:               token.Owner.User.ID,
		BotID:                token.BotID,
		AccessToken:          token.AccessToken,
		DuplicatedTemplateID: token.DuplicatedTemplateID,
		Timestamp:            time.Now().UTC(),
	}, nil
}
