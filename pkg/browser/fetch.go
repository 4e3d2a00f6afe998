package browser

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const (
	// fetchTimeout bounds one background page fetch.
	fetchTimeout = 20 * time.Second

	// fetchBodyLimit caps how much of a response body is read before
	// cleaning, so a hostile page cannot exhaust memory.
	fetchBodyLimit = 4 << 20

	// fetchUserAgent identifies background fetches as a regular browser so
	// search engines serve the full result page.
	fetchUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

	// searchURLFormat is the search engine endpoint behind web_search.
	searchURLFormat = "https://www.bing.com/search?q=%s"
)

// Fetcher retrieves and cleans pages over plain HTTP without touching the
// active browser tab. It backs the web_search and fetch_url_content tools.
type Fetcher struct {
	httpClient *http.Client
	maxChars   int
}

// NewFetcher creates a fetcher whose cleaned page text is capped at maxChars.
func NewFetcher(maxChars int) *Fetcher {
	return &Fetcher{
		httpClient: &http.Client{Timeout: fetchTimeout},
		maxChars:   maxChars,
	}
}

// FetchPage downloads the URL and returns its cleaned readable content.
func (f *Fetcher) FetchPage(ctx context.Context, pageURL string) (*PageContext, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", fetchUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch of %s returned status %d", pageURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, fetchBodyLimit))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	page, err := CleanHTML(string(body), f.maxChars)
	if err != nil {
		return nil, err
	}

	content := page.Text
	if page.Description != "" {
		content = page.Description + "\n\n" + content
	}
	return &PageContext{
		Title:   page.Title,
		URL:     pageURL,
		Content: content,
	}, nil
}

// Search runs a web search for the query and returns the cleaned result
// page text.
func (f *Fetcher) Search(ctx context.Context, query string) (string, error) {
	searchURL := fmt.Sprintf(searchURLFormat, url.QueryEscape(query))
	page, err := f.FetchPage(ctx, searchURL)
	if err != nil {
		return "", fmt.Errorf("search failed: %w", err)
	}
	return fmt.Sprintf("Search results for %q:\n\n%s", query, page.Content), nil
}
