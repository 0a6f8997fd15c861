package record_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foundergraph/enricher/internal/record"
)

func TestSlug(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		want string
	}{
		{"Ada Lovelace", "ada-lovelace"},
		{"  Ada   Lovelace ", "ada---lovelace"},
		{"Łukasz O'Brien Jr.", "ukasz-obrien-jr"},
		{"ALLCAPS", "allcaps"},
		{"", ""},
	}
	for _, tc := range cases {
		got := record.NewIdentity(tc.name, "").Slug()
		assert.Equal(t, tc.want, got, "slug of %q", tc.name)
	}
}

func TestMergeFirstSourceWins(t *testing.T) {
	t.Parallel()

	a := []record.Candidate{
		{Title: "A title", URL: "https://x.com/a", Source: record.SourceWebSearch},
		{Title: "only in A", URL: "https://x.com/b", Source: record.SourceWebSearch},
	}
	b := []record.Candidate{
		{Title: "B title", URL: "https://x.com/a", Source: record.SourceVideo},
		{Title: "only in B", URL: "https://x.com/c", Source: record.SourceVideo},
	}

	merged := record.Merge(a, b)
	require.Len(t, merged, 3)
	assert.Equal(t, "A title", merged[0].Title)
	assert.Equal(t, record.SourceWebSearch, merged[0].Source)
	assert.Equal(t, "only in A", merged[1].Title)
	assert.Equal(t, "only in B", merged[2].Title)
}

func TestMergeDeterministic(t *testing.T) {
	t.Parallel()

	groups := [][]record.Candidate{
		{{URL: "https://a", Source: record.SourceNetworkProfile}},
		{{URL: "https://b", Source: record.SourceVideo}, {URL: "https://a", Source: record.SourceVideo}},
		{{URL: "https://c", Source: record.SourcePodcast}},
	}

	first := record.Merge(groups...)
	second := record.Merge(groups...)
	assert.Equal(t, first, second)

	urls := make([]string, 0, len(first))
	for _, c := range first {
		urls = append(urls, c.URL)
	}
	assert.Equal(t, []string{"https://a", "https://b", "https://c"}, urls)
}

func TestMergeSkipsEmptyURLs(t *testing.T) {
	t.Parallel()

	merged := record.Merge([]record.Candidate{
		{Title: "no url"},
		{Title: "ok", URL: "https://x.com/a"},
	})
	require.Len(t, merged, 1)
	assert.Equal(t, "ok", merged[0].Title)
}

func TestGroupBySourcePreservesOrder(t *testing.T) {
	t.Parallel()

	merged := []record.Candidate{
		{URL: "https://a", Source: record.SourceVideo},
		{URL: "https://b", Source: record.SourceWebSearch},
		{URL: "https://c", Source: record.SourceVideo},
	}
	grouped := record.GroupBySource(merged)
	require.Len(t, grouped[record.SourceVideo], 2)
	assert.Equal(t, "https://a", grouped[record.SourceVideo][0].URL)
	assert.Equal(t, "https://c", grouped[record.SourceVideo][1].URL)
}

func TestIdentityContext(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Elon Musk, Founder/CEO of Tesla", record.NewIdentity("Elon Musk", "Tesla").Context())
	assert.Equal(t, "Professional content about Naval Ravikant", record.NewIdentity("Naval Ravikant", "").Context())
}
