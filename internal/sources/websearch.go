package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/foundergraph/enricher/internal/record"
)

const webSearchBaseURL = "https://www.googleapis.com/customsearch/v1"

// WebSearchClient queries the Google Custom Search API for press mentions,
// interviews, and articles about a person.
type WebSearchClient struct {
	apiKey   string
	engineID string
	baseURL  string
	http     *http.Client
}

type WebSearchOption func(*WebSearchClient)

func WithWebSearchBaseURL(u string) WebSearchOption {
	return func(c *WebSearchClient) { c.baseURL = strings.TrimRight(u, "/") }
}

func NewWebSearchClient(apiKey, engineID string, timeout time.Duration, opts ...WebSearchOption) (*WebSearchClient, error) {
	if strings.TrimSpace(apiKey) == "" || strings.TrimSpace(engineID) == "" {
		return nil, fmt.Errorf("websearch: %w", ErrUnavailable)
	}
	c := &WebSearchClient{
		apiKey:   strings.TrimSpace(apiKey),
		engineID: strings.TrimSpace(engineID),
		baseURL:  webSearchBaseURL,
		http:     &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// WebResult is the provider-native record shape.
type WebResult struct {
	Title       string
	URL         string
	Snippet     string
	DisplayLink string
}

type webSearchResponse struct {
	Items []struct {
		Title       string `json:"title"`
		Link        string `json:"link"`
		Snippet     string `json:"snippet"`
		DisplayLink string `json:"displayLink"`
	} `json:"items"`
}

// Search runs one query. The API caps page size at 10.
func (c *WebSearchClient) Search(ctx context.Context, query string, maxResults int) ([]WebResult, error) {
	if maxResults > 10 {
		maxResults = 10
	}
	q := url.Values{}
	q.Set("key", c.apiKey)
	q.Set("cx", c.engineID)
	q.Set("q", query)
	q.Set("num", strconv.Itoa(maxResults))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	b, err := call("websearch", "search", c.http, req)
	if err != nil {
		return nil, err
	}

	var parsed webSearchResponse
	if err := decodeJSON("websearch", "search", b, &parsed); err != nil {
		return nil, err
	}

	out := make([]WebResult, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		out = append(out, WebResult{
			Title:       item.Title,
			URL:         item.Link,
			Snippet:     item.Snippet,
			DisplayLink: item.DisplayLink,
		})
	}
	return out, nil
}

// SearchCandidates fans out the media-appearance query set, drops social
// domains, dedupes by URL, and normalizes.
func (c *WebSearchClient) SearchCandidates(ctx context.Context, id record.Identity, maxResults int) ([]record.Candidate, error) {
	base := fmt.Sprintf("%q", id.Name)
	if id.Company != "" {
		base = fmt.Sprintf("%q %q", id.Name, id.Company)
	}
	queries := []string{
		base + " podcast",
		base + " interview",
		base + " conference OR talk OR keynote",
		base + " article OR blog",
	}

	seen := make(map[string]struct{})
	var out []record.Candidate
	var lastErr error
	failures := 0

	for _, query := range queries {
		results, err := c.Search(ctx, query, maxResults)
		if err != nil {
			failures++
			lastErr = err
			continue
		}
		for _, r := range results {
			u := strings.TrimSpace(r.URL)
			if u == "" || isSocialDomain(u) {
				continue
			}
			if _, ok := seen[u]; ok {
				continue
			}
			seen[u] = struct{}{}
			out = append(out, NormalizeWeb(r))
		}
	}
	if failures == len(queries) && lastErr != nil {
		return nil, lastErr
	}
	return out, nil
}

func isSocialDomain(u string) bool {
	lower := strings.ToLower(u)
	for _, d := range excludedSocialDomains {
		if strings.Contains(lower, d) {
			return true
		}
	}
	return false
}
