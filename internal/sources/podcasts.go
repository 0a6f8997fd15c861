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

const listenNotesBaseURL = "https://listen-api.listennotes.com/api/v2"

// PodcastClient searches Listen Notes for podcast episodes featuring or
// mentioning a person.
type PodcastClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

type PodcastOption func(*PodcastClient)

func WithPodcastBaseURL(u string) PodcastOption {
	return func(c *PodcastClient) { c.baseURL = strings.TrimRight(u, "/") }
}

func NewPodcastClient(apiKey string, timeout time.Duration, opts ...PodcastOption) (*PodcastClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("podcasts: %w", ErrUnavailable)
	}
	c := &PodcastClient{
		apiKey:  strings.TrimSpace(apiKey),
		baseURL: listenNotesBaseURL,
		http:    &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Episode is the provider-native record shape.
type Episode struct {
	EpisodeID      string
	Title          string
	Description    string
	PodcastName    string
	Publisher      string
	AudioURL       string
	ListenNotesURL string
	PublishedAtMS  int64
	AppearanceType string
}

type podcastSearchResponse struct {
	Results []struct {
		ID                  string `json:"id"`
		TitleOriginal       string `json:"title_original"`
		DescriptionOriginal string `json:"description_original"`
		Audio               string `json:"audio"`
		ListenNotesURL      string `json:"listennotes_url"`
		PubDateMS           int64  `json:"pub_date_ms"`
		Podcast             struct {
			TitleOriginal     string `json:"title_original"`
			PublisherOriginal string `json:"publisher_original"`
		} `json:"podcast"`
	} `json:"results"`
}

// SearchEpisodes searches episodes matching the query. Episodes shorter than
// five minutes are filtered server-side to drop clips.
func (c *PodcastClient) SearchEpisodes(ctx context.Context, query string, maxResults int) ([]Episode, error) {
	if maxResults > 10 {
		maxResults = 10
	}
	q := url.Values{}
	q.Set("q", query)
	q.Set("type", "episode")
	q.Set("sort_by_date", "0")
	q.Set("len_min", "5")
	q.Set("only_in", "title,description")
	q.Set("page_size", strconv.Itoa(maxResults))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-ListenAPI-Key", c.apiKey)

	b, err := call("podcasts", "search", c.http, req)
	if err != nil {
		return nil, err
	}

	var parsed podcastSearchResponse
	if err := decodeJSON("podcasts", "search", b, &parsed); err != nil {
		return nil, err
	}

	out := make([]Episode, 0, len(parsed.Results))
	for _, item := range parsed.Results {
		out = append(out, Episode{
			EpisodeID:      item.ID,
			Title:          item.TitleOriginal,
			Description:    truncate(item.DescriptionOriginal, 500),
			PodcastName:    item.Podcast.TitleOriginal,
			Publisher:      item.Podcast.PublisherOriginal,
			AudioURL:       item.Audio,
			ListenNotesURL: item.ListenNotesURL,
			PublishedAtMS:  item.PubDateMS,
		})
	}
	return out, nil
}

// SearchCandidates searches with an exact-name query, classifies each
// appearance (guest/host/mentioned) from title and description, dedupes by
// episode id, and normalizes.
func (c *PodcastClient) SearchCandidates(ctx context.Context, id record.Identity, maxResults int) ([]record.Candidate, error) {
	episodes, err := c.SearchEpisodes(ctx, fmt.Sprintf("%q", id.Name), maxResults)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	out := make([]record.Candidate, 0, len(episodes))
	for _, ep := range episodes {
		if ep.EpisodeID != "" {
			if _, ok := seen[ep.EpisodeID]; ok {
				continue
			}
			seen[ep.EpisodeID] = struct{}{}
		}
		ep.AppearanceType = classifyAppearance(id.Name, ep)
		out = append(out, NormalizeEpisode(ep))
	}
	return out, nil
}

func classifyAppearance(name string, ep Episode) string {
	title := strings.ToLower(ep.Title)
	nameLower := strings.ToLower(name)

	if !strings.Contains(title, nameLower) {
		return "mentioned"
	}
	for _, w := range []string{"interview", "guest", "with", "featuring"} {
		if strings.Contains(title, w) {
			return "guest"
		}
	}
	for _, w := range []string{"host", "presents", "show"} {
		if strings.Contains(title, w) {
			return "host"
		}
	}
	return "featured"
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
