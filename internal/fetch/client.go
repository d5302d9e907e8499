package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"
)

// browserUA is sent instead of Go's default agent; PMC and PubMed refuse
// requests that do not look like an interactive browser.
const browserUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// maxReadSize is the maximum response size (5MB).
const maxReadSize = int64(5 * 1024 * 1024)

// Client fetches article pages and reduces them to plain text.
type Client struct {
	httpClient *http.Client
}

// New creates a fetch client with the given per-request timeout.
func New(timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Fetch retrieves url and returns the page's visible text, whitespace
// collapsed to single spaces. PMC and PubMed pages are narrowed to their
// article content block when the page carries one.
func (c *Client) Fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("creating request for %s: %w", url, err)
	}
	req.Header.Set("User-Agent", browserUA)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("fetching %s: unexpected status %d", url, resp.StatusCode)
	}

	body, err := charset.NewReader(io.LimitReader(resp.Body, maxReadSize), resp.Header.Get("Content-Type"))
	if err != nil {
		return "", fmt.Errorf("decoding %s: %w", url, err)
	}

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return "", fmt.Errorf("parsing %s: %w", url, err)
	}

	return extractText(doc, url), nil
}

// extractText strips scripts and styles and flattens the remaining text.
// PMC full-text pages keep only the in-page article block, PubMed pages only
// the abstract, so navigation chrome does not drown the article.
func extractText(doc *goquery.Document, url string) string {
	root := doc.Find("body")
	if strings.Contains(url, "ncbi.nlm.nih.gov/pmc") {
		if block := doc.Find("div.jig-ncbiinpagenav, div.article-details").First(); block.Length() > 0 {
			root = block
		}
	} else if strings.Contains(url, "pubmed.ncbi.nlm.nih.gov") {
		if block := doc.Find("div.abstract-content, div.article-details").First(); block.Length() > 0 {
			root = block
		}
	}

	root.Find("script, style").Remove()
	return strings.Join(strings.Fields(root.Text()), " ")
}
