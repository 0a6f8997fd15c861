package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/foundergraph/enricher/internal/record"
)

const phantombusterBaseURL = "https://api.phantombuster.com/api/v2"

// ProfileClient drives Phantombuster agents that scrape professional-network
// profiles and recent activity. Launches are asynchronous: the client polls
// the agent until the launch count advances and the run is finished.
type ProfileClient struct {
	apiKey  string
	baseURL string
	http    *http.Client

	profileAgentID  string
	activityAgentID string
	pollInterval    time.Duration
	pollTimeout     time.Duration
}

type ProfileOption func(*ProfileClient)

func WithProfileBaseURL(u string) ProfileOption {
	return func(c *ProfileClient) { c.baseURL = strings.TrimRight(u, "/") }
}

func WithProfilePolling(interval, timeout time.Duration) ProfileOption {
	return func(c *ProfileClient) {
		c.pollInterval = interval
		c.pollTimeout = timeout
	}
}

func NewProfileClient(apiKey, profileAgentID, activityAgentID string, timeout time.Duration, opts ...ProfileOption) (*ProfileClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("profile scraper: %w", ErrUnavailable)
	}
	c := &ProfileClient{
		apiKey:          strings.TrimSpace(apiKey),
		baseURL:         phantombusterBaseURL,
		http:            &http.Client{Timeout: timeout},
		profileAgentID:  profileAgentID,
		activityAgentID: activityAgentID,
		pollInterval:    10 * time.Second,
		pollTimeout:     5 * time.Minute,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Profile is the provider-native profile shape.
type Profile struct {
	Name       string `json:"fullName"`
	Headline   string `json:"headline"`
	ProfileURL string `json:"profileUrl"`
	Summary    string `json:"description"`
}

// Post is one activity item from the network feed.
type Post struct {
	Type    string `json:"type"`
	Content string `json:"postContent"`
	URL     string `json:"postUrl"`
	Date    string `json:"publicationDate"`
}

type agentStatus struct {
	NbLaunches     int    `json:"nbLaunches"`
	LastEndType    string `json:"lastEndType"`
	LastEndMessage string `json:"lastEndMessage"`
}

// FetchProfile scrapes a single profile URL. Returns ErrNotFound when the
// agent finishes with no output for the URL.
func (c *ProfileClient) FetchProfile(ctx context.Context, profileURL string) (Profile, error) {
	out, err := c.runAgent(ctx, c.profileAgentID, map[string]any{
		"profileUrls":           []string{profileURL},
		"numberOfAddsPerLaunch": 1,
	})
	if err != nil {
		return Profile{}, err
	}
	var profiles []Profile
	if err := json.Unmarshal(out, &profiles); err != nil || len(profiles) == 0 {
		return Profile{}, fmt.Errorf("profile %s: %w", profileURL, ErrNotFound)
	}
	return profiles[0], nil
}

// FetchActivity scrapes recent posts from a profile.
func (c *ProfileClient) FetchActivity(ctx context.Context, profileURL string, maxPosts int) ([]Post, error) {
	out, err := c.runAgent(ctx, c.activityAgentID, map[string]any{
		"profileUrls":  []string{profileURL},
		"numberOfPosts": maxPosts,
	})
	if err != nil {
		return nil, err
	}
	var posts []Post
	if err := json.Unmarshal(out, &posts); err != nil {
		return nil, fmt.Errorf("activity %s: %w", profileURL, ErrNotFound)
	}
	return posts, nil
}

// ProfileCandidates fetches the identity's own profile as a single candidate.
// Without a known profile URL this source contributes nothing: the provider
// is targeted, not a search engine.
func (c *ProfileClient) ProfileCandidates(ctx context.Context, id record.Identity, _ int) ([]record.Candidate, error) {
	if strings.TrimSpace(id.ProfileURL) == "" {
		return nil, nil
	}
	p, err := c.FetchProfile(ctx, id.ProfileURL)
	if err != nil {
		return nil, err
	}
	return []record.Candidate{NormalizeProfile(p)}, nil
}

// SearchCandidates normalizes recent activity for the identity. Like
// ProfileCandidates it needs a known profile URL.
func (c *ProfileClient) SearchCandidates(ctx context.Context, id record.Identity, maxPosts int) ([]record.Candidate, error) {
	if strings.TrimSpace(id.ProfileURL) == "" {
		return nil, nil
	}
	posts, err := c.FetchActivity(ctx, id.ProfileURL, maxPosts)
	if err != nil {
		return nil, err
	}
	out := make([]record.Candidate, 0, len(posts))
	for _, p := range posts {
		out = append(out, NormalizePost(p))
	}
	return out, nil
}

func (c *ProfileClient) runAgent(ctx context.Context, agentID string, args map[string]any) ([]byte, error) {
	if strings.TrimSpace(agentID) == "" {
		return nil, fmt.Errorf("profile scraper agent id: %w", ErrUnavailable)
	}

	before, err := c.fetchStatus(ctx, agentID)
	if err != nil {
		return nil, err
	}
	if err := c.launch(ctx, agentID, args); err != nil {
		return nil, err
	}

	deadline := time.Now().Add(c.pollTimeout)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		status, err := c.fetchStatus(ctx, agentID)
		if err != nil {
			return nil, err
		}
		if status.NbLaunches > before.NbLaunches {
			switch status.LastEndType {
			case "finished":
				return c.fetchOutput(ctx, agentID)
			case "error":
				return nil, &ProviderError{
					Provider: "profile",
					Op:       "run",
					Snippet:  redactAndTruncate([]byte(status.LastEndMessage)),
				}
			}
		}
		if time.Now().After(deadline) {
			return nil, &TransientError{Err: fmt.Errorf("profile agent %s did not complete within %s", agentID, c.pollTimeout)}
		}
		t := time.NewTimer(c.pollInterval)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		}
	}
}

func (c *ProfileClient) fetchStatus(ctx context.Context, agentID string) (agentStatus, error) {
	q := url.Values{}
	q.Set("id", agentID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/agents/fetch?"+q.Encode(), nil)
	if err != nil {
		return agentStatus{}, err
	}
	req.Header.Set("X-Phantombuster-Key-1", c.apiKey)

	b, err := call("profile", "fetch", c.http, req)
	if err != nil {
		return agentStatus{}, err
	}
	var status agentStatus
	if err := decodeJSON("profile", "fetch", b, &status); err != nil {
		return agentStatus{}, err
	}
	return status, nil
}

func (c *ProfileClient) launch(ctx context.Context, agentID string, args map[string]any) error {
	argJSON, err := json.Marshal(args)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(map[string]any{
		"id":       agentID,
		"argument": string(argJSON),
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/agents/launch", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("X-Phantombuster-Key-1", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	_, err = call("profile", "launch", c.http, req)
	return err
}

func (c *ProfileClient) fetchOutput(ctx context.Context, agentID string) ([]byte, error) {
	q := url.Values{}
	q.Set("id", agentID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/agents/fetch-output?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Phantombuster-Key-1", c.apiKey)
	return call("profile", "fetch-output", c.http, req)
}
