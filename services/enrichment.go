package services

import (
	"context"
	"fmt"

	"github.com/evxiong/notion-movies/models"
	"github.com/evxiong/notion-movies/shared/logger"
)

// RowStore is the slice of the Notion client the runner needs.
type RowStore interface {
	ChildDatabaseID(ctx context.Context, pageID string) (string, error)
	ListUnprocessedRows(ctx context.Context, databaseID string) ([]models.Movie, error)
	ApplyEnrichment(ctx context.Context, rowID string, info models.MovieInfo, policy WritePolicy) error
}

// MetadataLookup is the slice of the TMDB client the runner needs.
type MetadataLookup interface {
	Lookup(ctx context.Context, title string, year int) (*models.MovieInfo, error)
}

// Runner walks one tenant's unprocessed rows and enriches them one at a time.
// Row processing is strictly sequential; a row's failure never aborts its
// siblings.
type Runner struct {
	lookup   MetadataLookup
	policy   WritePolicy
	newStore func(accessToken string) RowStore
}

func NewRunner(lookup MetadataLookup, policy WritePolicy) *Runner {
	return &Runner{
		lookup: lookup,
		policy: policy,
		newStore: func(accessToken string) RowStore {
			return NewNotionClient(accessToken)
		},
	}
}

// Run resolves the page's child database and enriches every eligible row.
// It returns an error only when the run fails to start (no reachable child
// database, or the row listing itself failed); per-row outcomes are logged
// and isolated.
func (r *Runner) Run(ctx context.Context, pageID, accessToken string) error {
	store := r.newStore(accessToken)

	databaseID, err := store.ChildDatabaseID(ctx, pageID)
	if err != nil {
		return fmt.Errorf("failed to resolve child database: %w", err)
	}
	if databaseID == "" {
		return fmt.Errorf("page %s has no child database", pageID)
	}

	movies, err := store.ListUnprocessedRows(ctx, databaseID)
	if err != nil {
		return fmt.Errorf("failed to list unprocessed rows: %w", err)
	}

	logger.Info("Updating movies", "count", len(movies))

	enriched, skipped := 0, 0
	for _, movie := range movies {
		logger.Info("Processing row", "row_id", movie.ID, "title", movie.Title, "year", movie.Year)

		info, err := r.lookup.Lookup(ctx, movie.Title, movie.Year)
		if err != nil {
			logger.Warn("Metadata lookup failed", "row_id", movie.ID, "title", movie.Title, "error", err)
			skipped++
			continue
		}
		if info == nil {
			logger.Warn("TMDB search yielded no matching results", "row_id", movie.ID, "title", movie.Title)
			skipped++
			continue
		}

		if err := store.ApplyEnrichment(ctx, movie.ID, *info, r.policy); err != nil {
			logger.Warn("Failed to apply enrichment", "row_id", movie.ID, "error", err)
			skipped++
			continue
		}

		logger.Info("Row enriched", "row_id", movie.ID, "runtime", info.Runtime, "poster", info.PosterLink)
		enriched++
	}

	logger.Info("Run complete", "enriched", enriched, "skipped", skipped)
	return nil
}
