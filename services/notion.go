package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/evxiong/notion-movies/models"
	"github.com/evxiong/notion-movies/shared/httpx"
	"github.com/evxiong/notion-movies/shared/logger"
)

const notionVersion = "2022-06-28"

// NotionClient talks to the Notion API on behalf of one tenant's token.
type NotionClient struct {
	token   string
	baseURL string
	client  *http.Client
}

func NewNotionClient(token string) *NotionClient {
	return &NotionClient{
		token:   token,
		baseURL: "https://api.notion.com",
		client:  httpx.LongTimeoutClient,
	}
}

// WritePolicy controls the parts of ApplyEnrichment that varied across
// deployments of the original integration.
type WritePolicy struct {
	SuppressUnknownRuntime  bool
	ContinueAfterImageError bool
}

type notionText struct {
	PlainText string `json:"plain_text"`
}

type notionProperty struct {
	Type     string       `json:"type"`
	Title    []notionText `json:"title"`
	RichText []notionText `json:"rich_text"`
	Checkbox bool         `json:"checkbox"`
}

type notionPage struct {
	ID         string                    `json:"id"`
	URL        string                    `json:"url"`
	Properties map[string]notionProperty `json:"properties"`
}

type notionQueryResponse struct {
	Results    []notionPage `json:"results"`
	HasMore    bool         `json:"has_more"`
	NextCursor *string      `json:"next_cursor"`
}

type notionBlock struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

type notionBlockChildren struct {
	Results []notionBlock `json:"results"`
}

type notionSearchResponse struct {
	Results []struct {
		Object string `json:"object"`
		Parent struct {
			Type   string `json:"type"`
			PageID string `json:"page_id"`
		} `json:"parent"`
	} `json:"results"`
}

func (c *NotionClient) do(ctx context.Context, method, path string, body any, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Notion-Version", notionVersion)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("notion request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("notion returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode notion response: %w", err)
		}
	}
	return nil
}

// ListUnprocessedRows pages through every row in the database whose
// "Info Added" checkbox is still false, oldest first. Rows with a missing or
// malformed title/year are skipped with a warning; only an underlying query
// failure makes the whole call fail. Zero eligible rows is a valid empty
// result, not an error.
func (c *NotionClient) ListUnprocessedRows(ctx context.Context, databaseID string) ([]models.Movie, error) {
	results := []models.Movie{}
	nextCursor := ""
	hasMore := true

	for hasMore {
		reqBody := map[string]any{
			"filter": map[string]any{
				"property": "Info Added",
				"checkbox": map[string]any{"equals": false},
			},
			"sorts": []any{
				map[string]any{"timestamp": "created_time", "direction": "ascending"},
			},
		}
		if nextCursor != "" {
			reqBody["start_cursor"] = nextCursor
		}

		var page notionQueryResponse
		if err := c.do(ctx, "POST", "/v1/databases/"+databaseID+"/query", reqBody, &page); err != nil {
			return nil, fmt.Errorf("failed to query database %s: %w", databaseID, err)
		}

		hasMore = page.HasMore
		if page.NextCursor != nil {
			nextCursor = *page.NextCursor
		} else {
			// a missing cursor with has_more set would spin forever
			hasMore = false
		}

		for _, res := range page.Results {
			movie, ok := extractMovie(res)
			if !ok {
				logger.Warn("Missing/invalid title and/or year, skipping row", "row_id", res.ID)
				continue
			}
			results = append(results, movie)
		}
	}

	return results, nil
}

// extractMovie pulls a well-formed title and year out of a page's properties.
func extractMovie(page notionPage) (models.Movie, bool) {
	var title string
	if prop, ok := page.Properties["Title"]; ok && prop.Type == "title" && len(prop.Title) > 0 {
		title = strings.TrimSpace(prop.Title[0].PlainText)
	}

	year := 0
	if prop, ok := page.Properties["Year"]; ok && prop.Type == "rich_text" && len(prop.RichText) > 0 {
		if y, err := strconv.Atoi(strings.TrimSpace(prop.RichText[0].PlainText)); err == nil {
			year = y
		}
	}

	if title == "" || year <= 0 {
		return models.Movie{}, false
	}
	return models.Movie{ID: page.ID, Title: title, Year: year}, true
}

// ApplyEnrichment writes the lookup results back to a row: append the poster
// as an external image block, set the Runtime text, and flip "Info Added" to
// true. The image append runs first; whether a failed append still attempts
// the property update is a policy choice.
func (c *NotionClient) ApplyEnrichment(ctx context.Context, rowID string, info models.MovieInfo, policy WritePolicy) error {
	appendBody := map[string]any{
		"children": []any{
			map[string]any{
				"object": "block",
				"type":   "image",
				"image": map[string]any{
					"caption": []any{},
					"type":    "external",
					"external": map[string]any{
						"url": info.PosterLink,
					},
				},
			},
		},
	}
	if err := c.do(ctx, "PATCH", "/v1/blocks/"+rowID+"/children", appendBody, nil); err != nil {
		if !policy.ContinueAfterImageError {
			return fmt.Errorf("failed to append poster image: %w", err)
		}
		logger.Warn("Poster image append failed, continuing with property update", "row_id", rowID, "error", err)
	}

	properties := map[string]any{
		"Info Added": map[string]any{"checkbox": true},
	}
	if !policy.SuppressUnknownRuntime || info.Runtime != models.UnknownRuntime {
		properties["Runtime"] = map[string]any{
			"rich_text": []any{
				map[string]any{
					"type": "text",
					"text": map[string]any{"content": info.Runtime},
				},
			},
		}
	}

	updateBody := map[string]any{"properties": properties}
	if err := c.do(ctx, "PATCH", "/v1/pages/"+rowID, updateBody, nil); err != nil {
		return fmt.Errorf("failed to update page properties: %w", err)
	}
	return nil
}

// ChildDatabaseID returns the id of the first child database block under the
// given page, or empty when the page has none.
func (c *NotionClient) ChildDatabaseID(ctx context.Context, pageID string) (string, error) {
	var children notionBlockChildren
	if err := c.do(ctx, "GET", "/v1/blocks/"+pageID+"/children", nil, &children); err != nil {
		return "", fmt.Errorf("failed to list block children: %w", err)
	}
	for _, block := range children.Results {
		if block.Type == "child_database" {
			return block.ID, nil
		}
	}
	return "", nil
}

// PageURL returns the canonical URL of a page, or empty if it cannot be read.
func (c *NotionClient) PageURL(ctx context.Context, pageID string) (string, error) {
	var page notionPage
	if err := c.do(ctx, "GET", "/v1/pages/"+pageID, nil, &page); err != nil {
		return "", fmt.Errorf("failed to retrieve page: %w", err)
	}
	return page.URL, nil
}

// DatabaseParentPageIDs searches for every database the token can reach and
// collects the ids of their parent pages. Used at OAuth time to record which
// pages a credential is good for.
func (c *NotionClient) DatabaseParentPageIDs(ctx context.Context) ([]string, error) {
	searchBody := map[string]any{
		"filter": map[string]any{
			"value":    "database",
			"property": "object",
		},
	}
	var resp notionSearchResponse
	if err := c.do(ctx, "POST", "/v1/search", searchBody, &resp); err != nil {
		return nil, fmt.Errorf("failed to search databases: %w", err)
	}

	pageIDs := []string{}
	for _, r := range resp.Results {
		if r.Parent.Type == "page_id" {
			pageIDs = append(pageIDs, r.Parent.PageID)
		}
	}
	return pageIDs, nil
}
