package sources

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/foundergraph/enricher/internal/record"
	"github.com/foundergraph/enricher/internal/util"
)

const jinaBaseURL = "https://r.jina.ai"

// ExtractClient converts web pages to clean text through the Jina Reader API.
// It works without a key (rate-limited); a key only raises quotas, so the
// constructor never reports ErrUnavailable.
type ExtractClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

type ExtractOption func(*ExtractClient)

func WithExtractBaseURL(u string) ExtractOption {
	return func(c *ExtractClient) { c.baseURL = strings.TrimRight(u, "/") }
}

func NewExtractClient(apiKey string, timeout time.Duration, opts ...ExtractOption) *ExtractClient {
	c := &ExtractClient{
		apiKey:  strings.TrimSpace(apiKey),
		baseURL: jinaBaseURL,
		http:    &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type jinaResponse struct {
	Data struct {
		Title       string `json:"title"`
		Content     string `json:"content"`
		Description string `json:"description"`
	} `json:"data"`
}

// Extract fetches one URL. The returned error keeps its transient/permanent
// classification so a retrying caller can back off; callers fold exhausted
// errors into a per-URL failure record rather than aborting the batch.
func (c *ExtractClient) Extract(ctx context.Context, pageURL string) (record.ContentExtract, error) {
	out := record.ContentExtract{URL: pageURL}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+pageURL, nil)
	if err != nil {
		out.Error = err.Error()
		return out, err
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	b, err := call("extract", "read", c.http, req)
	if err != nil {
		out.Error = util.RedactSecrets(err.Error())
		return out, err
	}

	var parsed jinaResponse
	if err := decodeJSON("extract", "read", b, &parsed); err != nil {
		out.Error = err.Error()
		return out, err
	}

	content := parsed.Data.Content
	out.Success = true
	out.Title = parsed.Data.Title
	out.FullText = content
	out.WordCount = len(strings.Fields(content))
	if out.Title == "" && parsed.Data.Description != "" {
		out.Title = parsed.Data.Description
	}
	return out, nil
}
