package database

import (
	"fmt"
)

// RunMigrations bootstraps the credentials table. The unique index matching
// the configured upsert key is created and the other dropped, since the
// narrower key would otherwise always win.
func (db *DB) RunMigrations(upsertKeyIncludesTemplate bool) error {
	credentialsSQL := `
	CREATE TABLE IF NOT EXISTS credentials (
		id SERIAL PRIMARY KEY,
		user_id VARCHAR(255) NOT NULL,
		bot_id VARCHAR(255) NOT NULL,
		access_token TEXT NOT NULL,
		duplicated_template_id VARCHAR(255) DEFAULT '',
		page_ids JSONB DEFAULT '[]',
		timestamp TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
	);
	`

	_, err := db.Exec(credentialsSQL)
	if err != nil {
		return fmt.Errorf("failed to run credentials migration: %w", err)
	}

	indexSQL := `
	DROP INDEX IF EXISTS credentials_bot_token_idx;
	CREATE UNIQUE INDEX IF NOT EXISTS credentials_bot_token_template_idx
		ON credentials (bot_id, access_token, duplicated_template_id);
	`
	if !upsertKeyIncludesTemplate {
		indexSQL = `
	DROP INDEX IF EXISTS credentials_bot_token_template_idx;
	CREATE UNIQUE INDEX IF NOT EXISTS credentials_bot_token_idx
		ON credentials (bot_id, access_token);
	`
	}
	if _, err = db.Exec(indexSQL); err != nil {
		return fmt.Errorf("failed to create credentials indexes: %w", err)
	}

	userIndexSQL := `CREATE INDEX IF NOT EXISTS credentials_user_idx ON credentials (user_id);`
	if _, err = db.Exec(userIndexSQL); err != nil {
		return fmt.Errorf("failed to create credentials user index: %w", err)
	}

	return nil
}
