package record

import (
	"strings"
	"time"
)

// Source identifies which external provider produced a candidate.
type Source string

const (
	SourceNetworkProfile  Source = "network_profile"
	SourceNetworkActivity Source = "network_activity"
	SourceVideo           Source = "video"
	SourceWebSearch       Source = "web_search"
	SourcePodcast         Source = "podcast"
	SourceContentExtract  Source = "content_extract"
)

// Category is an advisory content-type label. Adapters guess it from URLs;
// the relevance filter overwrites it when one runs.
type Category string

const (
	CategoryInterview  Category = "interview"
	CategoryOwnContent Category = "own_content"
	CategoryPodcast    Category = "podcast"
	CategoryTalk       Category = "talk"
	CategoryMention    Category = "mention"
	CategoryArticle    Category = "article"
	CategoryIrrelevant Category = "irrelevant"
)

// KnownCategories lists every category label the relevance filter may assign.
var KnownCategories = []Category{
	CategoryInterview,
	CategoryOwnContent,
	CategoryPodcast,
	CategoryTalk,
	CategoryMention,
	CategoryArticle,
	CategoryIrrelevant,
}

// Identity is the name/company pair driving all source lookups. Names are
// trimmed but otherwise uncanonicalized: two differently-cased names are
// distinct identities.
type Identity struct {
	Name    string
	Company string

	// ProfileURL optionally points at the person's professional-network
	// profile. The targeted profile/activity sources need it; everything
	// else ignores it.
	ProfileURL string
}

func NewIdentity(name, company string) Identity {
	return Identity{
		Name:    strings.TrimSpace(name),
		Company: strings.TrimSpace(company),
	}
}

// Context returns the short description handed to the relevance filter.
func (id Identity) Context() string {
	if id.Company != "" {
		return id.Name + ", Founder/CEO of " + id.Company
	}
	return "Professional content about " + id.Name
}

// Slug returns the filesystem-safe key for this identity's output artifact:
// lower-cased, spaces to hyphens, everything else non-alphanumeric stripped.
func (id Identity) Slug() string {
	s := strings.ToLower(strings.TrimSpace(id.Name))
	s = strings.ReplaceAll(s, " ", "-")
	var b strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Candidate is one normalized piece of evidence about an identity.
type Candidate struct {
	Title       string   `json:"title"`
	URL         string   `json:"url"`
	Description string   `json:"description,omitempty"`
	Source      Source   `json:"source"`
	Category    Category `json:"category,omitempty"`

	// RelevanceScore is set only after filtering. Nil means unfiltered, not
	// zero relevance.
	RelevanceScore  *int   `json:"relevance_score,omitempty"`
	RelevanceReason string `json:"relevance_reason,omitempty"`

	// Channel names the publishing channel, podcast, or site when known.
	Channel     string `json:"channel,omitempty"`
	PublishedAt string `json:"published_at,omitempty"`
}

// Scored reports whether the relevance filter assigned this candidate a score.
func (c Candidate) Scored() bool {
	return c.RelevanceScore != nil
}

// ContentExtract is the outcome of one deep-content fetch. Failures are
// recorded per URL rather than dropped.
type ContentExtract struct {
	URL       string `json:"url"`
	Title     string `json:"title,omitempty"`
	FullText  string `json:"full_text,omitempty"`
	WordCount int    `json:"word_count"`
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
}

// EnrichmentResult is the per-identity aggregate. It is assembled once by the
// orchestrator and never mutated afterwards.
type EnrichmentResult struct {
	Identity       Identity            `json:"identity"`
	ScrapedAt      time.Time           `json:"scraped_at"`
	BySource       map[Source][]Candidate `json:"by_source"`
	ContentFetched []ContentExtract    `json:"content_fetched,omitempty"`
	SourcesUsed    []Source            `json:"sources_used"`
	Filtered       bool                `json:"filtered"`
}

// Candidates returns all records across sources in source-priority order.
func (r *EnrichmentResult) Candidates(order []Source) []Candidate {
	var out []Candidate
	for _, s := range order {
		out = append(out, r.BySource[s]...)
	}
	return out
}

// Merge flattens per-source result groups into one sequence, deduplicating by
// URL with first-group-wins semantics. Group order is the source priority
// order, so precedence is deterministic.
func Merge(groups ...[]Candidate) []Candidate {
	seen := make(map[string]struct{})
	var out []Candidate
	for _, group := range groups {
		for _, c := range group {
			url := strings.TrimSpace(c.URL)
			if url == "" {
				continue
			}
			if _, ok := seen[url]; ok {
				continue
			}
			seen[url] = struct{}{}
			out = append(out, c)
		}
	}
	return out
}

// GroupBySource rebuilds the per-source mapping from a merged sequence,
// preserving the sequence order within each source.
func GroupBySource(candidates []Candidate) map[Source][]Candidate {
	out := make(map[Source][]Candidate)
	for _, c := range candidates {
		out[c.Source] = append(out[c.Source], c)
	}
	return out
}
