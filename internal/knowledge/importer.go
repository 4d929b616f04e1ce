package knowledge

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-shiori/go-readability"
)

const (
	importUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 14_7_2) AppleWebKit/537.36"
	maxRedirects    = 5
	maxImportChars  = 6000
)

// Importer fetches web pages and appends their readable text to the corpus
// as new policy documents. Backs the `kb import` command so operators can
// extend the built-in catalog without touching the binary.
type Importer struct {
	store      *Store
	httpClient *http.Client
}

func NewImporter(store *Store) *Importer {
	return &Importer{
		store: store,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("stopped after %d redirects", maxRedirects)
				}
				return nil
			},
		},
	}
}

// ImportURL fetches rawURL, extracts the article text, embeds it, and adds
// it to the store. category defaults to "Imported". The caller is
// responsible for persisting the snapshot afterward.
func (im *Importer) ImportURL(ctx context.Context, rawURL, category string) (Document, error) {
	parsed, err := validateImportURL(rawURL)
	if err != nil {
		return Document{}, err
	}
	if category == "" {
		category = "Imported"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Document{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", importUserAgent)

	resp, err := im.httpClient.Do(req)
	if err != nil {
		return Document{}, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Document{}, fmt.Errorf("fetch %s: HTTP %d", rawURL, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Document{}, fmt.Errorf("read %s: %w", rawURL, err)
	}

	article, err := readability.FromReader(bytes.NewReader(body), parsed)
	if err != nil {
		return Document{}, fmt.Errorf("extract article from %s: %w", rawURL, err)
	}

	title := strings.TrimSpace(article.Title)
	if title == "" {
		title = parsed.Host
	}
	content := strings.TrimSpace(article.TextContent)
	if content == "" {
		return Document{}, fmt.Errorf("no readable content at %s", rawURL)
	}
	if len(content) > maxImportChars {
		content = content[:maxImportChars]
	}

	doc := Document{
		ID:       importID(parsed),
		Category: category,
		Title:    title,
		Content:  content,
	}
	if err := im.store.Add(ctx, doc); err != nil {
		return Document{}, err
	}
	return doc, nil
}

func validateImportURL(rawURL string) (*url.URL, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("only http/https allowed, got %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("missing domain in URL")
	}
	return u, nil
}

// importID derives a stable document id from the page's host and path.
func importID(u *url.URL) string {
	slug := u.Host + u.Path
	slug = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return '_'
		}
	}, slug)
	slug = strings.Trim(slug, "_")
	if len(slug) > 60 {
		slug = slug[:60]
	}
	return "web_" + slug
}
