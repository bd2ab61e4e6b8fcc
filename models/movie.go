package models

// Movie is one tracked entry in a tenant's Notion database. Title and Year
// come from page properties; Processed mirrors the "Info Added" checkbox.
type Movie struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Year      int    `json:"year"`
	Processed bool   `json:"processed"`
}

// UnknownRuntime is what Lookup produces when TMDB reports zero minutes.
const UnknownRuntime = "0h 0m"

// MovieInfo holds the enrichment results written back to a row. It is
// transient and never persisted.
type MovieInfo struct {
	Runtime    string `json:"runtime"`     // e.g. "2h 5m"
	PosterLink string `json:"poster_link"` // absolute URL
}
