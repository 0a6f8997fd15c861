package report

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/foundergraph/enricher/internal/record"
)

// fullTextLimit caps how much of each extracted page lands in the report.
const fullTextLimit = 5000

// Render produces the per-identity markdown report. Section layout: summary
// table, articles, full content extracts, videos, podcasts, press mentions.
// Sources appear in the given priority order in the summary.
func Render(res record.EnrichmentResult, order []record.Source) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n", res.Identity.Name)
	if res.Identity.Company != "" {
		fmt.Fprintf(&b, "*%s*\n", res.Identity.Company)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "*Scraped: %s*\n\n", res.ScrapedAt.Format("2006-01-02"))
	b.WriteString("---\n\n## Summary\n\n")
	b.WriteString(summaryTable(res, order))
	b.WriteString("\n")
	if !res.Filtered {
		b.WriteString("\n*Relevance filtering did not run; results are unscored.*\n")
	}

	writeArticles(&b, res)
	writeFullContent(&b, res)
	writeVideos(&b, res)
	writePodcasts(&b, res)
	writeMentions(&b, res)

	b.WriteString("\n---\n\n*Generated by foundergraph enricher*\n")
	return b.String()
}

var sourceLabels = map[record.Source]string{
	record.SourceNetworkProfile:  "Network Profile",
	record.SourceNetworkActivity: "Network Activity",
	record.SourceVideo:           "Videos",
	record.SourceWebSearch:       "Articles & Web",
	record.SourcePodcast:         "Podcasts",
}

func summaryTable(res record.EnrichmentResult, order []record.Source) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Source", "Results"})
	for _, s := range order {
		label := sourceLabels[s]
		if label == "" {
			label = string(s)
		}
		t.AppendRow(table.Row{label, len(res.BySource[s])})
	}
	t.AppendRow(table.Row{"Content extracts", len(res.ContentFetched)})
	return t.RenderMarkdown() + "\n"
}

func writeArticles(b *strings.Builder, res record.EnrichmentResult) {
	b.WriteString("\n---\n\n## Articles & Blog Posts\n\n")
	var found bool
	for _, c := range res.BySource[record.SourceWebSearch] {
		if c.Category == record.CategoryMention {
			continue
		}
		found = true
		fmt.Fprintf(b, "### [%s](%s)\n", titleOr(c.Title, "Untitled"), c.URL)
		if c.PublishedAt != "" {
			fmt.Fprintf(b, "*%s*\n", c.PublishedAt)
		}
		if c.Category != "" {
			fmt.Fprintf(b, "- Category: %s\n", c.Category)
		}
		writeRelevance(b, c)
		b.WriteString("\n")
	}
	if !found {
		b.WriteString("*No articles found*\n")
	}
}

func writeFullContent(b *strings.Builder, res record.EnrichmentResult) {
	if len(res.ContentFetched) == 0 {
		return
	}
	b.WriteString("\n---\n\n## Full Content\n\n")

	totalWords := 0
	fetched := 0
	for _, c := range res.ContentFetched {
		if c.Success {
			totalWords += c.WordCount
			fetched++
		}
	}
	fmt.Fprintf(b, "*%d pages scraped, %d words total*\n\n", fetched, totalWords)

	for _, c := range res.ContentFetched {
		if !c.Success {
			fmt.Fprintf(b, "### %s\n*extraction failed: %s*\n\n", c.URL, c.Error)
			continue
		}
		fmt.Fprintf(b, "### %s\n", titleOr(c.Title, c.URL))
		fmt.Fprintf(b, "*%d words* | [Link](%s)\n\n", c.WordCount, c.URL)

		text := strings.TrimSpace(c.FullText)
		if len(text) > fullTextLimit {
			fmt.Fprintf(b, "%s\n\n*[... truncated, %d more characters]*\n\n", text[:fullTextLimit], len(text)-fullTextLimit)
		} else {
			fmt.Fprintf(b, "%s\n\n", text)
		}
		b.WriteString("---\n\n")
	}
}

func writeVideos(b *strings.Builder, res record.EnrichmentResult) {
	b.WriteString("\n---\n\n## Videos\n\n")
	videos := res.BySource[record.SourceVideo]
	if len(videos) == 0 {
		b.WriteString("*No videos found*\n")
		return
	}
	if len(videos) > 10 {
		videos = videos[:10]
	}
	for _, v := range videos {
		fmt.Fprintf(b, "- **[%s](%s)**\n", titleOr(v.Title, "Untitled"), v.URL)
		if v.Channel != "" {
			fmt.Fprintf(b, "  - Channel: %s\n", v.Channel)
		}
		if v.PublishedAt != "" {
			fmt.Fprintf(b, "  - Date: %s\n", v.PublishedAt)
		}
		b.WriteString("\n")
	}
}

func writePodcasts(b *strings.Builder, res record.EnrichmentResult) {
	episodes := res.BySource[record.SourcePodcast]
	if len(episodes) == 0 {
		return
	}
	b.WriteString("\n---\n\n## Podcast Appearances\n\n")
	for _, e := range episodes {
		fmt.Fprintf(b, "- **[%s](%s)**\n", titleOr(e.Title, "Untitled"), e.URL)
		if e.Channel != "" {
			fmt.Fprintf(b, "  - Podcast: %s\n", e.Channel)
		}
		if e.PublishedAt != "" {
			fmt.Fprintf(b, "  - Date: %s\n", e.PublishedAt)
		}
		b.WriteString("\n")
	}
}

func writeMentions(b *strings.Builder, res record.EnrichmentResult) {
	b.WriteString("\n---\n\n## Press & Mentions\n\n")
	var mentions []record.Candidate
	for _, c := range res.BySource[record.SourceWebSearch] {
		if c.Category == record.CategoryMention {
			mentions = append(mentions, c)
		}
	}
	if len(mentions) == 0 {
		b.WriteString("*No press mentions found*\n")
		return
	}
	if len(mentions) > 10 {
		mentions = mentions[:10]
	}
	for _, m := range mentions {
		fmt.Fprintf(b, "- **[%s](%s)**\n", titleOr(m.Title, "Untitled"), m.URL)
		if m.Channel != "" {
			fmt.Fprintf(b, "  - Source: %s\n", m.Channel)
		}
		if d := strings.TrimSpace(m.Description); d != "" {
			if len(d) > 150 {
				d = d[:150] + "..."
			}
			fmt.Fprintf(b, "  - *%s*\n", d)
		}
		b.WriteString("\n")
	}
}

func writeRelevance(b *strings.Builder, c record.Candidate) {
	if !c.Scored() {
		return
	}
	fmt.Fprintf(b, "- Relevance: %d", *c.RelevanceScore)
	if c.RelevanceReason != "" {
		fmt.Fprintf(b, " (%s)", c.RelevanceReason)
	}
	b.WriteString("\n")
}

func titleOr(title, fallback string) string {
	if strings.TrimSpace(title) == "" {
		return fallback
	}
	return title
}
