package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/foundergraph/enricher/internal/record"
)

const exaBaseURL = "https://api.exa.ai"

// excludedSocialDomains are dropped from search-style sources: profile data
// comes from the dedicated network scraper, not general search.
var excludedSocialDomains = []string{
	"linkedin.com",
	"facebook.com",
	"twitter.com",
	"x.com",
	"instagram.com",
	"tiktok.com",
	"pinterest.com",
}

// ExaClient searches Exa's semantic index for articles, blog posts, and
// podcasts written by or featuring a person.
type ExaClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

type ExaOption func(*ExaClient)

// WithExaBaseURL overrides the API base URL. Useful for tests.
func WithExaBaseURL(u string) ExaOption {
	return func(c *ExaClient) { c.baseURL = strings.TrimRight(u, "/") }
}

func NewExaClient(apiKey string, timeout time.Duration, opts ...ExaOption) (*ExaClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("exa: %w", ErrUnavailable)
	}
	c := &ExaClient{
		apiKey:  strings.TrimSpace(apiKey),
		baseURL: exaBaseURL,
		http:    &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ExaResult is the provider-native record shape.
type ExaResult struct {
	Title         string  `json:"title"`
	URL           string  `json:"url"`
	PublishedDate string  `json:"publishedDate"`
	Author        string  `json:"author"`
	Score         float64 `json:"score"`
}

type exaSearchResponse struct {
	Results []ExaResult `json:"results"`
}

// Search runs one semantic query for the identity and returns raw results.
func (c *ExaClient) Search(ctx context.Context, id record.Identity, maxResults int) ([]ExaResult, error) {
	query := fmt.Sprintf(
		"Blog posts or articles written by %s, or interviews and podcasts featuring %s",
		id.Name, id.Name,
	)
	if id.Company != "" {
		query = fmt.Sprintf(
			"Blog posts or articles written by %s founder of %s, or interviews and podcasts featuring %s",
			id.Name, id.Company, id.Name,
		)
	}

	payload := map[string]any{
		"query":          query,
		"numResults":     maxResults,
		"excludeDomains": excludedSocialDomains[:5],
		"type":           "auto",
		"useAutoprompt":  true,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	b, err := call("exa", "search", c.http, req)
	if err != nil {
		return nil, err
	}

	var parsed exaSearchResponse
	if err := decodeJSON("exa", "search", b, &parsed); err != nil {
		return nil, err
	}
	return parsed.Results, nil
}

// SearchCandidates runs Search and normalizes the results.
func (c *ExaClient) SearchCandidates(ctx context.Context, id record.Identity, maxResults int) ([]record.Candidate, error) {
	raw, err := c.Search(ctx, id, maxResults)
	if err != nil {
		return nil, err
	}
	out := make([]record.Candidate, 0, len(raw))
	for _, r := range raw {
		out = append(out, NormalizeExa(r))
	}
	return out, nil
}
