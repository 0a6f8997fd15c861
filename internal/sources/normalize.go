package sources

import (
	"strings"
	"time"

	"github.com/foundergraph/enricher/internal/record"
)

// Normalization maps each provider's raw record shape onto record.Candidate.
// Missing provider fields become zero values, never errors. Category guesses
// here are advisory; the relevance filter overwrites them when it runs.

func NormalizeExa(r ExaResult) record.Candidate {
	return record.Candidate{
		Title:       r.Title,
		URL:         r.URL,
		Source:      record.SourceWebSearch,
		Category:    CategoryForURL(r.URL),
		Channel:     r.Author,
		PublishedAt: r.PublishedDate,
	}
}

func NormalizeVideo(v Video) record.Candidate {
	return record.Candidate{
		Title:       v.Title,
		URL:         v.URL(),
		Description: v.Description,
		Source:      record.SourceVideo,
		Category:    record.CategoryMention,
		Channel:     v.ChannelTitle,
		PublishedAt: v.PublishedAt,
	}
}

func NormalizeWeb(r WebResult) record.Candidate {
	return record.Candidate{
		Title:       r.Title,
		URL:         r.URL,
		Description: r.Snippet,
		Source:      record.SourceWebSearch,
		Category:    CategoryForURL(r.URL),
		Channel:     strings.TrimPrefix(r.DisplayLink, "www."),
	}
}

func NormalizeEpisode(ep Episode) record.Candidate {
	published := ""
	if ep.PublishedAtMS > 0 {
		published = time.UnixMilli(ep.PublishedAtMS).UTC().Format("2006-01-02")
	}
	category := record.CategoryPodcast
	if ep.AppearanceType == "mentioned" {
		category = record.CategoryMention
	}
	return record.Candidate{
		Title:       ep.Title,
		URL:         ep.ListenNotesURL,
		Description: ep.Description,
		Source:      record.SourcePodcast,
		Category:    category,
		Channel:     ep.PodcastName,
		PublishedAt: published,
	}
}

func NormalizeProfile(p Profile) record.Candidate {
	title := p.Name
	if p.Headline != "" {
		title += " - " + p.Headline
	}
	return record.Candidate{
		Title:       title,
		URL:         p.ProfileURL,
		Description: p.Summary,
		Source:      record.SourceNetworkProfile,
		Category:    record.CategoryOwnContent,
	}
}

func NormalizePost(p Post) record.Candidate {
	title := strings.TrimSpace(p.Content)
	if len(title) > 120 {
		title = title[:120] + "..."
	}
	return record.Candidate{
		Title:       title,
		URL:         p.URL,
		Description: p.Content,
		Source:      record.SourceNetworkActivity,
		Category:    record.CategoryOwnContent,
		PublishedAt: p.Date,
	}
}

// CategoryForURL guesses a category from known platform markers in the URL.
func CategoryForURL(rawURL string) record.Category {
	u := strings.ToLower(rawURL)
	switch {
	case strings.Contains(u, "podcast"), strings.Contains(u, "spotify"), strings.Contains(u, "apple.com/podcast"):
		return record.CategoryPodcast
	case strings.Contains(u, "youtube.com"), strings.Contains(u, "youtu.be"), strings.Contains(u, "vimeo.com"):
		return record.CategoryMention
	case strings.Contains(u, "medium.com"), strings.Contains(u, "substack"), strings.Contains(u, "blog"):
		return record.CategoryOwnContent
	default:
		return record.CategoryArticle
	}
}

// Readable reports whether a candidate points at a page worth deep-content
// extraction: video and social links are excluded.
func Readable(c record.Candidate) bool {
	u := strings.ToLower(c.URL)
	if u == "" {
		return false
	}
	if c.Source == record.SourceVideo {
		return false
	}
	for _, d := range append([]string{"youtube.com", "youtu.be", "vimeo.com"}, excludedSocialDomains...) {
		if strings.Contains(u, d) {
			return false
		}
	}
	return true
}
