package filter_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foundergraph/enricher/internal/filter"
	"github.com/foundergraph/enricher/internal/record"
)

type stubCompleter struct {
	resp    string
	err     error
	prompts []string
}

func (s *stubCompleter) Complete(_ context.Context, prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	return s.resp, s.err
}

func someCandidates() []record.Candidate {
	return []record.Candidate{
		{Title: "Interview with Ada", URL: "https://example.com/interview", Source: record.SourceWebSearch, Category: record.CategoryArticle},
		{Title: "Ada's blog post", URL: "https://medium.com/@ada/post", Source: record.SourceWebSearch, Category: record.CategoryOwnContent},
		{Title: "Unrelated Ada Smith", URL: "https://example.com/other-ada", Source: record.SourceWebSearch, Category: record.CategoryArticle},
	}
}

func TestApplyScoresAndSortsDescending(t *testing.T) {
	t.Parallel()

	stub := &stubCompleter{resp: `{"evaluations":[
		{"index":1,"relevance_score":75,"category":"own_content","reason":"self-authored"},
		{"index":0,"relevance_score":95,"category":"interview","reason":"direct interview"},
		{"index":2,"relevance_score":10,"category":"irrelevant","reason":"homonym"}
	]}`}
	f := filter.New(stub, 50, nil)

	got, filtered := f.Apply(context.Background(), "Ada Lovelace, Founder/CEO of Analytical Engines", someCandidates())
	require.True(t, filtered)
	require.Len(t, got, 2)
	assert.Equal(t, "https://example.com/interview", got[0].URL)
	assert.Equal(t, 95, *got[0].RelevanceScore)
	assert.Equal(t, record.CategoryInterview, got[0].Category)
	assert.Equal(t, "direct interview", got[0].RelevanceReason)
	assert.Equal(t, 75, *got[1].RelevanceScore)
}

func TestApplyFallsBackOnCompleterError(t *testing.T) {
	t.Parallel()

	in := someCandidates()
	f := filter.New(&stubCompleter{err: errors.New("quota exceeded")}, 50, nil)

	got, filtered := f.Apply(context.Background(), "Ada", in)
	assert.False(t, filtered)
	require.Len(t, got, len(in))
	for i := range got {
		assert.Equal(t, in[i].URL, got[i].URL)
		assert.Nil(t, got[i].RelevanceScore)
	}
}

func TestApplyFallsBackOnMalformedJSON(t *testing.T) {
	t.Parallel()

	cases := []string{
		"not json at all",
		`{"evaluations": "wrong type"}`,
		`{"evaluations":[{"index":0`,
		"",
	}
	for _, resp := range cases {
		f := filter.New(&stubCompleter{resp: resp}, 50, nil)
		got, filtered := f.Apply(context.Background(), "Ada", someCandidates())
		assert.False(t, filtered, "response %q", resp)
		assert.Len(t, got, 3, "response %q", resp)
	}
}

func TestApplyFallsBackOnZeroVerdicts(t *testing.T) {
	t.Parallel()

	f := filter.New(&stubCompleter{resp: `{"evaluations":[]}`}, 50, nil)
	got, filtered := f.Apply(context.Background(), "Ada", someCandidates())
	assert.False(t, filtered)
	assert.Len(t, got, 3)
}

func TestApplyStripsMarkdownFences(t *testing.T) {
	t.Parallel()

	stub := &stubCompleter{resp: "```json\n{\"evaluations\":[{\"index\":0,\"relevance_score\":90,\"category\":\"interview\",\"reason\":\"x\"}]}\n```"}
	f := filter.New(stub, 50, nil)

	got, filtered := f.Apply(context.Background(), "Ada", someCandidates())
	require.True(t, filtered)
	require.Len(t, got, 1)
	assert.Equal(t, 90, *got[0].RelevanceScore)
}

func TestApplyDiscardsOutOfRangeIndexes(t *testing.T) {
	t.Parallel()

	stub := &stubCompleter{resp: `{"evaluations":[
		{"index":-1,"relevance_score":99,"category":"interview","reason":"bad"},
		{"index":7,"relevance_score":99,"category":"interview","reason":"bad"},
		{"index":0,"relevance_score":60,"category":"mention","reason":"ok"}
	]}`}
	f := filter.New(stub, 50, nil)

	got, filtered := f.Apply(context.Background(), "Ada", someCandidates())
	require.True(t, filtered)
	require.Len(t, got, 1)
	assert.Equal(t, "https://example.com/interview", got[0].URL)
}

func TestApplyThresholdIsMonotonic(t *testing.T) {
	t.Parallel()

	resp := `{"evaluations":[
		{"index":0,"relevance_score":95,"category":"interview","reason":"a"},
		{"index":1,"relevance_score":70,"category":"own_content","reason":"b"},
		{"index":2,"relevance_score":30,"category":"mention","reason":"c"}
	]}`
	prev := 4
	for _, min := range []int{0, 50, 80, 100} {
		f := filter.New(&stubCompleter{resp: resp}, min, nil)
		got, filtered := f.Apply(context.Background(), "Ada", someCandidates())
		require.True(t, filtered)
		assert.LessOrEqual(t, len(got), prev, "min %d", min)
		for _, c := range got {
			assert.GreaterOrEqual(t, *c.RelevanceScore, min)
		}
		prev = len(got)
	}
}

func TestApplyKeepsHeuristicCategoryOnUnknownLabel(t *testing.T) {
	t.Parallel()

	stub := &stubCompleter{resp: `{"evaluations":[{"index":1,"relevance_score":80,"category":"blogpost","reason":"x"}]}`}
	f := filter.New(stub, 50, nil)

	got, filtered := f.Apply(context.Background(), "Ada", someCandidates())
	require.True(t, filtered)
	require.Len(t, got, 1)
	assert.Equal(t, record.CategoryOwnContent, got[0].Category)
}

func TestApplyEmptyInputSkipsModelCall(t *testing.T) {
	t.Parallel()

	stub := &stubCompleter{resp: `{"evaluations":[]}`}
	f := filter.New(stub, 50, nil)

	got, filtered := f.Apply(context.Background(), "Ada", nil)
	assert.False(t, filtered)
	assert.Empty(t, got)
	assert.Empty(t, stub.prompts)
}

func TestApplyPromptIndexesEveryCandidate(t *testing.T) {
	t.Parallel()

	stub := &stubCompleter{resp: `{"evaluations":[{"index":0,"relevance_score":90,"category":"interview","reason":"x"}]}`}
	f := filter.New(stub, 50, nil)

	_, _ = f.Apply(context.Background(), "Ada Lovelace, Founder/CEO of Analytical Engines", someCandidates())
	require.Len(t, stub.prompts, 1)
	p := stub.prompts[0]
	assert.Contains(t, p, "Ada Lovelace, Founder/CEO of Analytical Engines")
	assert.Contains(t, p, "0. [web_search] Interview with Ada")
	assert.Contains(t, p, "1. [web_search] Ada's blog post")
	assert.Contains(t, p, "2. [web_search] Unrelated Ada Smith")
}

func TestScreenKeepsOnlyKeepDecisions(t *testing.T) {
	t.Parallel()

	stub := &stubCompleter{resp: `{"decisions":[
		{"index":0,"action":"keep","reason":"same person"},
		{"index":1,"action":"KEEP","reason":"same person"},
		{"index":2,"action":"discard","reason":"homonym"}
	]}`}
	f := filter.New(stub, 50, nil)

	got, filtered := f.Screen(context.Background(), "Ada", someCandidates())
	require.True(t, filtered)
	require.Len(t, got, 2)
	assert.Equal(t, "https://example.com/interview", got[0].URL)
	assert.Equal(t, "https://medium.com/@ada/post", got[1].URL)
	assert.Nil(t, got[0].RelevanceScore)
}

func TestScreenFallsBackOnMalformedJSON(t *testing.T) {
	t.Parallel()

	f := filter.New(&stubCompleter{resp: "oops"}, 50, nil)
	got, filtered := f.Screen(context.Background(), "Ada", someCandidates())
	assert.False(t, filtered)
	assert.Len(t, got, 3)
}
