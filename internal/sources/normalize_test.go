package sources_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/foundergraph/enricher/internal/record"
	"github.com/foundergraph/enricher/internal/sources"
)

func TestCategoryForURL(t *testing.T) {
	t.Parallel()

	cases := []struct {
		url  string
		want record.Category
	}{
		{"https://podcasts.apple.com/us/podcast/ep-12", record.CategoryPodcast},
		{"https://open.spotify.com/episode/abc", record.CategoryPodcast},
		{"https://www.youtube.com/watch?v=abc", record.CategoryMention},
		{"https://youtu.be/abc", record.CategoryMention},
		{"https://medium.com/@someone/post", record.CategoryOwnContent},
		{"https://example.substack.com/p/essay", record.CategoryOwnContent},
		{"https://techcrunch.com/2025/01/01/startup-raises", record.CategoryArticle},
		{"", record.CategoryArticle},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, sources.CategoryForURL(tc.url), "url %q", tc.url)
	}
}

func TestNormalizeVideoToleratesMissingFields(t *testing.T) {
	t.Parallel()

	c := sources.NormalizeVideo(sources.Video{VideoID: "abc123"})
	assert.Equal(t, "https://www.youtube.com/watch?v=abc123", c.URL)
	assert.Equal(t, record.SourceVideo, c.Source)
	assert.Empty(t, c.Title)
	assert.Nil(t, c.RelevanceScore)
}

func TestNormalizeEpisode(t *testing.T) {
	t.Parallel()

	c := sources.NormalizeEpisode(sources.Episode{
		Title:          "Interview with Ada Lovelace",
		ListenNotesURL: "https://lnns.co/abc",
		PodcastName:    "Engine Talk",
		PublishedAtMS:  1700000000000,
		AppearanceType: "guest",
	})
	assert.Equal(t, record.SourcePodcast, c.Source)
	assert.Equal(t, record.CategoryPodcast, c.Category)
	assert.Equal(t, "Engine Talk", c.Channel)
	assert.Equal(t, "2023-11-14", c.PublishedAt)

	mentioned := sources.NormalizeEpisode(sources.Episode{AppearanceType: "mentioned"})
	assert.Equal(t, record.CategoryMention, mentioned.Category)
	assert.Empty(t, mentioned.PublishedAt)
}

func TestReadable(t *testing.T) {
	t.Parallel()

	assert.True(t, sources.Readable(record.Candidate{URL: "https://techcrunch.com/a", Source: record.SourceWebSearch}))
	assert.False(t, sources.Readable(record.Candidate{URL: "https://www.youtube.com/watch?v=1", Source: record.SourceWebSearch}))
	assert.False(t, sources.Readable(record.Candidate{URL: "https://techcrunch.com/a", Source: record.SourceVideo}))
	assert.False(t, sources.Readable(record.Candidate{URL: "https://twitter.com/a/status/1", Source: record.SourceWebSearch}))
	assert.False(t, sources.Readable(record.Candidate{Source: record.SourceWebSearch}))
}
