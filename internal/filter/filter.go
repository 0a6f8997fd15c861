package filter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/foundergraph/enricher/internal/record"
)

// Completer is the single capability the filter needs from a language model:
// prompt in, raw text out. Tests swap in a deterministic stub; production uses
// the Gemini-backed implementation in this package.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Filter scores candidates for topical match against one identity in a single
// batched model call. It fails open: on any infrastructure or parse failure it
// returns the full input set unscored rather than dropping records.
type Filter struct {
	completer Completer
	minScore  int
	log       *slog.Logger
}

func New(completer Completer, minScore int, log *slog.Logger) *Filter {
	if log == nil {
		log = slog.Default()
	}
	return &Filter{completer: completer, minScore: minScore, log: log}
}

type verdict struct {
	Index          int    `json:"index"`
	RelevanceScore int    `json:"relevance_score"`
	Category       string `json:"category"`
	Reason         string `json:"reason"`
}

type verdictResponse struct {
	Evaluations []verdict `json:"evaluations"`
}

type decision struct {
	Index  int    `json:"index"`
	Action string `json:"action"`
	Reason string `json:"reason"`
}

type decisionResponse struct {
	Decisions []decision `json:"decisions"`
}

// Apply scores and filters candidates. The second return value reports whether
// filtering actually ran; false means the fallback path returned the input
// unchanged and unscored.
func (f *Filter) Apply(ctx context.Context, identityContext string, candidates []record.Candidate) ([]record.Candidate, bool) {
	if len(candidates) == 0 {
		return candidates, false
	}

	raw, err := f.completer.Complete(ctx, scoringPrompt(identityContext, candidates))
	if err != nil {
		f.log.Warn("relevance filter call failed, passing candidates through unscored",
			"candidates", len(candidates), "error", err)
		return candidates, false
	}

	var parsed verdictResponse
	if err := json.Unmarshal([]byte(stripFences(raw)), &parsed); err != nil {
		f.log.Warn("relevance filter returned unparseable verdicts, passing candidates through unscored",
			"candidates", len(candidates), "error", err)
		return candidates, false
	}
	if len(parsed.Evaluations) == 0 {
		f.log.Warn("relevance filter returned zero verdicts, passing candidates through unscored",
			"candidates", len(candidates))
		return candidates, false
	}

	kept := make([]record.Candidate, 0, len(candidates))
	for _, v := range parsed.Evaluations {
		if v.Index < 0 || v.Index >= len(candidates) {
			f.log.Debug("discarding out-of-range verdict", "index", v.Index)
			continue
		}
		c := candidates[v.Index]
		score := v.RelevanceScore
		c.RelevanceScore = &score
		c.RelevanceReason = strings.TrimSpace(v.Reason)
		if cat, ok := parseCategory(v.Category); ok {
			c.Category = cat
		}
		if score < f.minScore {
			f.log.Debug("dropping low-relevance candidate",
				"url", c.URL, "score", score, "reason", c.RelevanceReason)
			continue
		}
		kept = append(kept, c)
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return *kept[i].RelevanceScore > *kept[j].RelevanceScore
	})
	return kept, true
}

// Screen is the cheaper keep/discard variant for call sites that need no
// gradation. It shares Apply's fallback policy.
func (f *Filter) Screen(ctx context.Context, identityContext string, candidates []record.Candidate) ([]record.Candidate, bool) {
	if len(candidates) == 0 {
		return candidates, false
	}

	raw, err := f.completer.Complete(ctx, screeningPrompt(identityContext, candidates))
	if err != nil {
		f.log.Warn("screening call failed, passing candidates through",
			"candidates", len(candidates), "error", err)
		return candidates, false
	}

	var parsed decisionResponse
	if err := json.Unmarshal([]byte(stripFences(raw)), &parsed); err != nil {
		f.log.Warn("screening returned unparseable decisions, passing candidates through",
			"candidates", len(candidates), "error", err)
		return candidates, false
	}
	if len(parsed.Decisions) == 0 {
		return candidates, false
	}

	kept := make([]record.Candidate, 0, len(candidates))
	for _, d := range parsed.Decisions {
		if d.Index < 0 || d.Index >= len(candidates) {
			continue
		}
		if !strings.EqualFold(strings.TrimSpace(d.Action), "keep") {
			continue
		}
		c := candidates[d.Index]
		c.RelevanceReason = strings.TrimSpace(d.Reason)
		kept = append(kept, c)
	}
	return kept, true
}

func parseCategory(s string) (record.Category, bool) {
	c := record.Category(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range record.KnownCategories {
		if c == known {
			return c, true
		}
	}
	return "", false
}

// stripFences removes a surrounding markdown code fence if present. Models
// sometimes wrap JSON output despite instructions not to.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func scoringPrompt(identityContext string, candidates []record.Candidate) string {
	var b strings.Builder
	b.WriteString("You evaluate search results for relevance to a specific person.\n\n")
	b.WriteString("Person: " + identityContext + "\n\n")
	b.WriteString("For each numbered item below, decide how relevant it is to this exact person (beware of homonyms).\n")
	b.WriteString("Score bands:\n")
	b.WriteString("- 90-100: direct interview, invited podcast appearance, or conference talk by the person\n")
	b.WriteString("- 70-89: content authored by the person (blog post, essay, own video)\n")
	b.WriteString("- 50-69: significant third-party coverage or mention of the person\n")
	b.WriteString("- 20-49: weak or passing mention\n")
	b.WriteString("- 0-19: irrelevant, or a different person with the same name\n\n")
	b.WriteString("Items:\n")
	writeCandidateList(&b, candidates)
	b.WriteString("\nReturn ONLY a JSON object of this exact shape, no prose and no code fences:\n")
	b.WriteString(`{"evaluations":[{"index":0,"relevance_score":95,"category":"interview","reason":"..."}]}` + "\n")
	b.WriteString("Allowed categories: interview, own_content, podcast, talk, mention, article, irrelevant.\n")
	b.WriteString("Include one evaluation per item, using each item's index.\n")
	return b.String()
}

func screeningPrompt(identityContext string, candidates []record.Candidate) string {
	var b strings.Builder
	b.WriteString("You screen search results for a specific person.\n\n")
	b.WriteString("Person: " + identityContext + "\n\n")
	b.WriteString("For each numbered item, decide keep (about this exact person) or discard (irrelevant or a homonym).\n\n")
	b.WriteString("Items:\n")
	writeCandidateList(&b, candidates)
	b.WriteString("\nReturn ONLY a JSON object of this exact shape, no prose and no code fences:\n")
	b.WriteString(`{"decisions":[{"index":0,"action":"keep","reason":"..."}]}` + "\n")
	return b.String()
}

func writeCandidateList(b *strings.Builder, candidates []record.Candidate) {
	for i, c := range candidates {
		fmt.Fprintf(b, "%d. [%s] %s\n", i, c.Source, c.Title)
		if c.URL != "" {
			fmt.Fprintf(b, "   url: %s\n", c.URL)
		}
		if desc := strings.TrimSpace(c.Description); desc != "" {
			if len(desc) > 300 {
				desc = desc[:300] + "..."
			}
			fmt.Fprintf(b, "   description: %s\n", desc)
		}
		if c.Channel != "" {
			fmt.Fprintf(b, "   channel: %s\n", c.Channel)
		}
	}
}
