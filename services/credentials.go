package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/evxiong/notion-movies/database"
	"github.com/evxiong/notion-movies/models"
)

// CredentialStore reads and writes per-tenant access credentials in Postgres.
type CredentialStore struct {
	db                   *database.DB
	includeTemplateInKey bool
}

func NewCredentialStore(db *database.DB, includeTemplateInKey bool) *CredentialStore {
	return &CredentialStore{
		db:                   db,
		includeTemplateInKey: includeTemplateInKey,
	}
}

// Find returns the credential whose owning user matches and whose duplicated
// template id or known page set covers the inbound page. No match is a nil
// credential, not an error.
func (s *CredentialStore) Find(ctx context.Context, userID, pageID string) (*models.Credential, error) {
	query := `
		SELECT user_id, bot_id, access_token, duplicated_template_id, page_ids, timestamp
		FROM credentials
		WHERE user_id = $1 AND (duplicated_template_id = $2 OR page_ids ? $2)
		LIMIT 1`

	var cred models.Credential
	var pageIDs []byte
	var ts sql.NullTime
	err := s.db.QueryRowContext(ctx, query, userID, pageID).Scan(
		&cred.UserID,
		&cred.BotID,
		&cred.AccessToken,
		&cred.DuplicatedTemplateID,
		&pageIDs,
		&ts,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query credentials: %w", err)
	}

	if len(pageIDs) > 0 {
		if err := json.Unmarshal(pageIDs, &cred.PageIDs); err != nil {
			return nil, fmt.Errorf("failed to decode page_ids: %w", err)
		}
	}
	if ts.Valid {
		cred.Timestamp = ts.Time
	}
	return &cred, nil
}

// Upsert replaces any stored credential matching the configured key in full,
// or inserts a new one. Repeated upserts with the same key leave exactly one
// record.
func (s *CredentialStore) Upsert(ctx context.Context, cred *models.Credential) error {
	pageIDs, err := json.Marshal(cred.PageIDs)
	if err != nil {
		return fmt.Errorf("failed to encode page_ids: %w", err)
	}

	conflict := "(bot_id, access_token)"
	if s.includeTemplateInKey {
		conflict = "(bot_id, access_token, duplicated_template_id)"
	}

	query := fmt.Sprintf(`
		INSERT INTO credentials (user_id, bot_id, access_token, duplicated_template_id, page_ids, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT %s DO UPDATE SET
			user_id = EXCLUDED.user_id,
			duplicated_template_id = EXCLUDED.duplicated_template_id,
			page_ids = EXCLUDED.page_ids,
			timestamp = EXCLUDED.timestamp`, conflict)

	_, err = s.db.ExecContext(ctx, query,
		cred.UserID,
		cred.BotID,
		cred.AccessToken,
		cred.DuplicatedTemplateID,
		pageIDs,
		cred.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert credential: %w", err)
	}
	return nil
}
