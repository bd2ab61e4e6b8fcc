// Command sync runs one enrichment pass against the operator's own Notion
// page using the internal integration token, without going through the
// webhook server.
package main

import (
	"context"
	"os"

	"github.com/evxiong/notion-movies/config"
	"github.com/evxiong/notion-movies/services"
	"github.com/evxiong/notion-movies/shared/logger"
)

func main() {
	cfg := config.Load()
	logger.Init(cfg.Environment, cfg.Debug)

	if cfg.NotionKey == "" || cfg.NotionPageID == "" {
		logger.Error("NOTION_KEY and NOTION_PAGE_ID must be set")
		os.Exit(1)
	}

	tmdb := services.NewTMDBClient(cfg.TMDBAPIKey, services.NewIMDbResolver())
	runner := services.NewRunner(tmdb, services.WritePolicy{
		SuppressUnknownRuntime:  cfg.SuppressUnknownRuntime,
		ContinueAfterImageError: cfg.ContinueAfterImageError,
	})

	if err := runner.Run(context.Background(), cfg.NotionPageID, cfg.NotionKey); err != nil {
		logger.Error("Sync failed", "error", err)
		os.Exit(1)
	}

	logger.Info("Done")
}
