package models

import "time"

// Credential is one tenant's stored Notion access token plus the identifiers
// used to find it again from an inbound webhook.
type Credential struct {
	UserID               string    `db:"user_id"`
	BotID                string    `db:"bot_id"`
	AccessToken          string    `db:"access_token"`
	DuplicatedTemplateID string    `db:"duplicated_template_id"`
	PageIDs              []string  `db:"page_ids"`
	Timestamp            time.Time `db:"timestamp"`
}
