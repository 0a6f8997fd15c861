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

const youtubeBaseURL = "https://www.googleapis.com/youtube/v3"

// YouTubeClient searches the YouTube Data API v3 for video content about a
// person: interviews, podcast recordings, talks.
type YouTubeClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

type YouTubeOption func(*YouTubeClient)

func WithYouTubeBaseURL(u string) YouTubeOption {
	return func(c *YouTubeClient) { c.baseURL = strings.TrimRight(u, "/") }
}

func NewYouTubeClient(apiKey string, timeout time.Duration, opts ...YouTubeOption) (*YouTubeClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("youtube: %w", ErrUnavailable)
	}
	c := &YouTubeClient{
		apiKey:  strings.TrimSpace(apiKey),
		baseURL: youtubeBaseURL,
		http:    &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Video is the provider-native record shape.
type Video struct {
	VideoID      string
	Title        string
	Description  string
	ChannelTitle string
	PublishedAt  string
}

// URL returns the canonical watch URL for the video.
func (v Video) URL() string {
	return "https://www.youtube.com/watch?v=" + v.VideoID
}

type youtubeSearchResponse struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet struct {
			Title        string `json:"title"`
			Description  string `json:"description"`
			ChannelTitle string `json:"channelTitle"`
			PublishedAt  string `json:"publishedAt"`
		} `json:"snippet"`
	} `json:"items"`
}

// SearchVideos runs a single query against the search endpoint.
func (c *YouTubeClient) SearchVideos(ctx context.Context, query string, maxResults int) ([]Video, error) {
	if maxResults > 50 {
		maxResults = 50
	}
	q := url.Values{}
	q.Set("part", "snippet")
	q.Set("q", query)
	q.Set("type", "video")
	q.Set("maxResults", strconv.Itoa(maxResults))
	q.Set("order", "relevance")
	q.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	b, err := call("youtube", "search", c.http, req)
	if err != nil {
		return nil, err
	}

	var parsed youtubeSearchResponse
	if err := decodeJSON("youtube", "search", b, &parsed); err != nil {
		return nil, err
	}

	out := make([]Video, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		if item.ID.VideoID == "" {
			continue
		}
		out = append(out, Video{
			VideoID:      item.ID.VideoID,
			Title:        item.Snippet.Title,
			Description:  item.Snippet.Description,
			ChannelTitle: item.Snippet.ChannelTitle,
			PublishedAt:  item.Snippet.PublishedAt,
		})
	}
	return out, nil
}

// SearchCandidates fans out the standard query set for a person, dedupes by
// video id, and normalizes. Individual query failures surface as the overall
// error only when every query failed.
func (c *YouTubeClient) SearchCandidates(ctx context.Context, id record.Identity, maxResults int) ([]record.Candidate, error) {
	queries := []string{
		fmt.Sprintf("%q interview", id.Name),
		fmt.Sprintf("%q podcast", id.Name),
		fmt.Sprintf("%q talk OR keynote OR conference", id.Name),
		fmt.Sprintf("%q", id.Name),
	}

	seen := make(map[string]struct{})
	var out []record.Candidate
	var lastErr error
	failures := 0

	for _, query := range queries {
		videos, err := c.SearchVideos(ctx, query, maxResults)
		if err != nil {
			failures++
			lastErr = err
			continue
		}
		for _, v := range videos {
			if _, ok := seen[v.VideoID]; ok {
				continue
			}
			seen[v.VideoID] = struct{}{}
			out = append(out, NormalizeVideo(v))
		}
	}
	if failures == len(queries) && lastErr != nil {
		return nil, lastErr
	}
	return out, nil
}
