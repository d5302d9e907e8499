package classify

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/kalambet/papersift/internal/fetch"
	"github.com/kalambet/papersift/internal/storage"
)

// Oracle answers whether a single paragraph is relevant to the research topic.
type Oracle interface {
	Relevant(ctx context.Context, paragraph string) (bool, error)
}

// Fetcher retrieves the readable text of a web page.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// SourceStore persists classified paragraphs.
type SourceStore interface {
	AddSource(e storage.SourceEntry) (bool, error)
	ProcessedURLs() (map[string]bool, error)
}

var paragraphBreak = regexp.MustCompile(`\n\s*\n`)

// SplitParagraphs splits content on blank-line boundaries into trimmed,
// non-empty paragraphs.
func SplitParagraphs(content string) []string {
	var out []string
	for _, p := range paragraphBreak.Split(content, -1) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Classifier sorts document paragraphs into relevant and non-relevant
// collections and chases the Source: URLs documents reference. Each URL is
// fetched at most once per process lifetime.
type Classifier struct {
	oracle    Oracle
	fetcher   Fetcher
	store     SourceStore
	logger    *slog.Logger
	processed map[string]bool
}

// New creates a Classifier. The processed-URL set is seeded from the store so
// restarts do not refetch sources that already yielded relevant paragraphs.
func New(oracle Oracle, fetcher Fetcher, store SourceStore) (*Classifier, error) {
	processed, err := store.ProcessedURLs()
	if err != nil {
		return nil, fmt.Errorf("loading processed URLs: %w", err)
	}
	return &Classifier{
		oracle:    oracle,
		fetcher:   fetcher,
		store:     store,
		logger:    slog.Default(),
		processed: processed,
	}, nil
}

// ProcessDocument classifies a document's own paragraphs, stores the results,
// then fetches and classifies every unprocessed Source: URL the document
// references. Reports whether the document's own content held a relevant
// paragraph or referenced any URL at all. Errors only on store failure or
// context cancellation; oracle and fetch failures are logged and absorbed.
func (c *Classifier) ProcessDocument(ctx context.Context, filename, content string) (bool, error) {
	paragraphs := SplitParagraphs(content)
	c.logger.Info("analyzing document", "file", filename, "paragraphs", len(paragraphs))

	relevant, nonRelevant, err := c.classifyParagraphs(ctx, paragraphs)
	if err != nil {
		return false, err
	}
	if err := c.storeResults(filename, "", relevant, nonRelevant); err != nil {
		return false, err
	}

	urls := fetch.ExtractSourceURLs(content)
	if len(urls) > 0 {
		c.logger.Info("found source URLs", "file", filename, "count", len(urls))
		if err := c.processURLs(ctx, filename, urls); err != nil {
			return false, err
		}
	}

	return len(relevant) > 0 || len(urls) > 0, nil
}

// classifyParagraphs asks the oracle about each paragraph in order. Oracle
// failures count the paragraph as not relevant; only context cancellation
// stops the pass.
func (c *Classifier) classifyParagraphs(ctx context.Context, paragraphs []string) (relevant, nonRelevant []string, err error) {
	for i, p := range paragraphs {
		ok, err := c.oracle.Relevant(ctx, p)
		if err != nil {
			if ctx.Err() != nil {
				return nil, nil, ctx.Err()
			}
			c.logger.Warn("oracle query failed, counting paragraph as not relevant", "paragraph", i+1, "error", err)
			ok = false
		}
		if ok {
			relevant = append(relevant, p)
		} else {
			nonRelevant = append(nonRelevant, p)
		}
	}
	return relevant, nonRelevant, nil
}

// storeResults appends one entry per non-empty list to its collection. The
// store drops exact duplicates, so reprocessing unchanged content is a no-op.
func (c *Classifier) storeResults(filename, sourceURL string, relevant, nonRelevant []string) error {
	if len(relevant) > 0 {
		added, err := c.store.AddSource(storage.SourceEntry{
			Collection: storage.CollectionRelevant,
			Filename:   filename,
			SourceURL:  sourceURL,
			Paragraphs: relevant,
		})
		if err != nil {
			return fmt.Errorf("storing relevant paragraphs: %w", err)
		}
		if added {
			c.logger.Info("stored relevant paragraphs", "file", filename, "url", sourceURL, "count", len(relevant))
		}
	}
	if len(nonRelevant) > 0 {
		added, err := c.store.AddSource(storage.SourceEntry{
			Collection: storage.CollectionNonRelevant,
			Filename:   filename,
			SourceURL:  sourceURL,
			Paragraphs: nonRelevant,
		})
		if err != nil {
			return fmt.Errorf("storing non-relevant paragraphs: %w", err)
		}
		if added {
			c.logger.Info("stored non-relevant paragraphs", "file", filename, "url", sourceURL, "count", len(nonRelevant))
		}
	}
	return nil
}

// processURLs fetches and classifies each URL not yet processed. A URL is
// marked processed only after a successful fetch, so transient failures get
// retried on the next encounter.
func (c *Classifier) processURLs(ctx context.Context, filename string, urls []string) error {
	for _, u := range urls {
		if c.processed[u] {
			c.logger.Debug("skipping already processed URL", "url", u)
			continue
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		text, err := c.fetchWithFallback(ctx, u)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Warn("fetching source failed", "url", u, "error", err)
			continue
		}

		relevant, nonRelevant, err := c.classifyParagraphs(ctx, SplitParagraphs(text))
		if err != nil {
			return err
		}
		if err := c.storeResults(filename, u, relevant, nonRelevant); err != nil {
			return err
		}
		c.processed[u] = true
	}
	return nil
}

// fetchWithFallback retrieves the URL's text; an unreachable PMC article gets
// one retry against its PubMed abstract. Results are still attributed to the
// original URL by the caller.
func (c *Classifier) fetchWithFallback(ctx context.Context, url string) (string, error) {
	text, err := c.fetcher.Fetch(ctx, url)
	if err == nil {
		return text, nil
	}
	fallback, ok := fetch.PubMedFallbackURL(url)
	if !ok {
		return "", err
	}
	c.logger.Warn("PMC fetch failed, trying PubMed abstract", "url", url, "fallback", fallback, "error", err)
	text, ferr := c.fetcher.Fetch(ctx, fallback)
	if ferr != nil {
		return "", err
	}
	return text, nil
}
