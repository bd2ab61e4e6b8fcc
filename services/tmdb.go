package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/evxiong/notion-movies/models"
	"github.com/evxiong/notion-movies/shared/httpx"
	"github.com/evxiong/notion-movies/shared/logger"
)

// PosterResolver supplies a higher-resolution poster for a movie's external
// cross-reference id. A nothing result is normal and never fatal.
type PosterResolver interface {
	ResolvePoster(ctx context.Context, imdbID string) (string, error)
}

// TMDBClient looks movies up on TMDB by title and year.
type TMDBClient struct {
	apiKey   string
	baseURL  string
	imageURL string
	client   *http.Client
	posters  PosterResolver
}

func NewTMDBClient(apiKey string, posters PosterResolver) *TMDBClient {
	return &TMDBClient{
		apiKey:   apiKey,
		baseURL:  "https://api.themoviedb.org/3",
		imageURL: "https://image.tmdb.org/t/p/w500",
		client:   httpx.DefaultClient,
		posters:  posters,
	}
}

type tmdbSearchResponse struct {
	TotalResults int `json:"total_results"`
	Results      []struct {
		ID         int    `json:"id"`
		Title      string `json:"title"`
		PosterPath string `json:"poster_path"`
	} `json:"results"`
}

type tmdbMovieResponse struct {
	Runtime    int    `json:"runtime"`
	IMDbID     string `json:"imdb_id"`
	PosterPath string `json:"poster_path"`
}

// Lookup searches TMDB for the given title and release year and composes a
// MovieInfo from the first match. Zero search results is a nil result, not an
// error. The poster comes from the resolver when it yields something, else
// from TMDB's own poster path.
func (t *TMDBClient) Lookup(ctx context.Context, title string, year int) (*models.MovieInfo, error) {
	if t.apiKey == "" {
		return nil, fmt.Errorf("TMDB_API_KEY is not set")
	}

	searchURL := fmt.Sprintf("%s/search/movie?query=%s&include_adult=false&language=en-US&primary_release_year=%d&page=1&api_key=%s",
		t.baseURL, url.QueryEscape(title), year, t.apiKey)

	resp, err := httpx.Get(ctx, searchURL, t.client)
	if err != nil {
		return nil, fmt.Errorf("TMDB search failed: %w", err)
	}
	var search tmdbSearchResponse
	if err := httpx.DecodeJSONResponse(resp, &search); err != nil {
		return nil, fmt.Errorf("TMDB search failed: %w", err)
	}

	if search.TotalResults == 0 || len(search.Results) == 0 {
		return nil, nil
	}
	first := search.Results[0]

	movieURL := fmt.Sprintf("%s/movie/%d?language=en-US&api_key=%s", t.baseURL, first.ID, t.apiKey)
	resp, err = httpx.Get(ctx, movieURL, t.client)
	if err != nil {
		return nil, fmt.Errorf("TMDB details failed: %w", err)
	}
	var movie tmdbMovieResponse
	if err := httpx.DecodeJSONResponse(resp, &movie); err != nil {
		return nil, fmt.Errorf("TMDB details failed: %w", err)
	}

	info := &models.MovieInfo{
		Runtime:    formatRuntime(movie.Runtime),
		PosterLink: t.resolvePosterLink(ctx, movie.IMDbID, first.PosterPath),
	}
	return info, nil
}

// resolvePosterLink prefers the scraped high-resolution poster and falls back
// to TMDB's w500 path on any miss.
func (t *TMDBClient) resolvePosterLink(ctx context.Context, imdbID, posterPath string) string {
	if t.posters != nil && imdbID != "" {
		link, err := t.posters.ResolvePoster(ctx, imdbID)
		if err != nil {
			logger.Warn("Poster resolution failed, falling back to TMDB poster", "imdb_id", imdbID, "error", err)
		} else if link != "" {
			return link
		}
	}
	return t.imageURL + posterPath
}

func formatRuntime(mins int) string {
	return fmt.Sprintf("%dh %dm", mins/60, mins%60)
}
