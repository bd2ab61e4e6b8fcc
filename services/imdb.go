package services

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/evxiong/notion-movies/shared/httpx"
	"github.com/evxiong/notion-movies/shared/logger"
	"golang.org/x/net/html"
)

// posterParams is spliced into the full-size image URL ahead of the file
// extension to request a width-400 cropped variant.
const posterParams = "QL100_UX400,CR1,1,400"

// IMDbResolver scrapes a movie's title page for its primary poster image.
type IMDbResolver struct {
	baseURL string
	client  *http.Client
}

func NewIMDbResolver() *IMDbResolver {
	return &IMDbResolver{
		baseURL: "https://www.imdb.com",
		client:  httpx.DefaultClient,
	}
}

type nextDataPayload struct {
	Props struct {
		PageProps struct {
			AboveTheFoldData struct {
				PrimaryImage struct {
					URL string `json:"url"`
				} `json:"primaryImage"`
			} `json:"aboveTheFoldData"`
		} `json:"pageProps"`
	} `json:"props"`
}

// ResolvePoster fetches the title page for the given id and pulls the poster
// URL out of the embedded __NEXT_DATA__ script payload. Any parse miss yields
// an empty string; callers treat that as "no poster", never a hard failure.
func (r *IMDbResolver) ResolvePoster(ctx context.Context, imdbID string) (string, error) {
	resp, err := httpx.Get(ctx, r.baseURL+"/title/"+imdbID, r.client)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw := findScriptByID(resp.Body, "__NEXT_DATA__")
	if raw == "" {
		logger.Warn("No __NEXT_DATA__ script found on title page", "imdb_id", imdbID)
		return "", nil
	}

	var payload nextDataPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		logger.Warn("Malformed __NEXT_DATA__ payload", "imdb_id", imdbID, "error", err)
		return "", nil
	}

	full := payload.Props.PageProps.AboveTheFoldData.PrimaryImage.URL
	return spliceCropParams(full), nil
}

// findScriptByID walks the document for a <script> element with the given id
// and returns its text content.
func findScriptByID(body io.Reader, id string) string {
	doc, err := html.Parse(body)
	if err != nil {
		return ""
	}

	var found string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if found != "" {
			return
		}
		if n.Type == html.ElementNode && n.Data == "script" {
			for _, attr := range n.Attr {
				if attr.Key == "id" && attr.Val == id {
					var sb strings.Builder
					for c := n.FirstChild; c != nil; c = c.NextSibling {
						if c.Type == html.TextNode {
							sb.WriteString(c.Data)
						}
					}
					found = sb.String()
					return
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return found
}

// spliceCropParams inserts the crop/quality parameter block before the
// trailing 4-character file extension (".jpg" and friends).
func spliceCropParams(fullURL string) string {
	if len(fullURL) <= 4 {
		return ""
	}
	cut := len(fullURL) - 4
	return fullURL[:cut] + posterParams + fullURL[cut:]
}
