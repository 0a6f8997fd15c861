package batch_test

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foundergraph/enricher/internal/batch"
	"github.com/foundergraph/enricher/internal/config"
	"github.com/foundergraph/enricher/internal/enrich"
	"github.com/foundergraph/enricher/internal/record"
)

func TestReadIdentitiesCSV(t *testing.T) {
	t.Parallel()

	in := strings.NewReader(`companyName,firstname,LastName,extra
Analytical Engines,Ada,Lovelace,x
,Grace,Hopper
Acme,,,
`)
	got, err := batch.ReadIdentitiesCSV(in)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, record.NewIdentity("Ada Lovelace", "Analytical Engines"), got[0])
	assert.Equal(t, record.NewIdentity("Grace Hopper", ""), got[1])
	assert.Equal(t, "", got[2].Name)
	assert.Equal(t, "Acme", got[2].Company)
}

func TestReadIdentitiesCSVProfileURLColumn(t *testing.T) {
	t.Parallel()

	in := strings.NewReader(`firstName,lastName,companyName,linkedinUrl
Ada,Lovelace,Analytical Engines,https://www.linkedin.com/in/ada
`)
	got, err := batch.ReadIdentitiesCSV(in)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "https://www.linkedin.com/in/ada", got[0].ProfileURL)
}

func TestReadIdentitiesCSVMissingColumns(t *testing.T) {
	t.Parallel()

	_, err := batch.ReadIdentitiesCSV(strings.NewReader("name,company\nAda,Acme\n"))
	require.Error(t, err)
}

type stubEnricher struct {
	failFor map[string]error
	calls   []string
}

func (e *stubEnricher) Enrich(_ context.Context, id record.Identity) (record.EnrichmentResult, error) {
	e.calls = append(e.calls, id.Name)
	if err := e.failFor[id.Name]; err != nil {
		return record.EnrichmentResult{}, err
	}
	// An identity no source knows anything about still succeeds.
	return record.EnrichmentResult{Identity: id}, nil
}

func renderStub(res record.EnrichmentResult) string {
	return "# " + res.Identity.Name + "\n"
}

func newTestDriver(t *testing.T, e *stubEnricher, outputDir string) *batch.Driver {
	t.Helper()
	d := batch.NewDriver(e, renderStub, batch.Options{
		OutputDir:     outputDir,
		ProgressEvery: 2,
	}, nil)
	d.Out = io.Discard
	return d
}

func TestRunWritesArtifacts(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	e := &stubEnricher{}
	d := newTestDriver(t, e, dir)

	ids := []record.Identity{
		record.NewIdentity("Ada Lovelace", "Analytical Engines"),
		record.NewIdentity("Grace Hopper", ""),
	}
	stats, err := d.Run(context.Background(), ids, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Succeeded)
	assert.Zero(t, stats.Failed)
	assert.Zero(t, stats.Skipped)

	b, err := os.ReadFile(filepath.Join(dir, "ada-lovelace.md"))
	require.NoError(t, err)
	assert.Equal(t, "# Ada Lovelace\n", string(b))
}

func TestRunSkipsExistingArtifacts(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ada-lovelace.md"), []byte("done"), 0o644))

	e := &stubEnricher{}
	d := newTestDriver(t, e, dir)

	ids := []record.Identity{
		record.NewIdentity("Ada Lovelace", ""),
		record.NewIdentity("Grace Hopper", ""),
	}
	stats, err := d.Run(context.Background(), ids, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, 1, stats.Succeeded)
	assert.Equal(t, []string{"Grace Hopper"}, e.calls)

	// Resumption is idempotent: a second run touches no provider at all.
	e2 := &stubEnricher{}
	d2 := newTestDriver(t, e2, dir)
	stats2, err := d2.Run(context.Background(), ids, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, stats2.Skipped)
	assert.Empty(t, e2.calls)
}

func TestRunIsolatesFailures(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	e := &stubEnricher{failFor: map[string]error{"Bad Actor": errors.New("boom")}}
	d := newTestDriver(t, e, dir)

	ids := []record.Identity{
		record.NewIdentity("Bad Actor", ""),
		record.NewIdentity("Grace Hopper", ""),
	}
	stats, err := d.Run(context.Background(), ids, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 1, stats.Succeeded)
	assert.NoFileExists(t, filepath.Join(dir, "bad-actor.md"))
	assert.FileExists(t, filepath.Join(dir, "grace-hopper.md"))
}

func TestRunSkipsEmptyNames(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	e := &stubEnricher{}
	d := newTestDriver(t, e, dir)

	ids := []record.Identity{
		record.NewIdentity("", "Acme"),
		record.NewIdentity("Grace Hopper", ""),
	}
	stats, err := d.Run(context.Background(), ids, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, 1, stats.Succeeded)
	assert.Equal(t, []string{"Grace Hopper"}, e.calls)
}

func TestRunStartIndex(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	e := &stubEnricher{}
	d := newTestDriver(t, e, dir)

	ids := []record.Identity{
		record.NewIdentity("Ada Lovelace", ""),
		record.NewIdentity("Grace Hopper", ""),
		record.NewIdentity("Katherine Johnson", ""),
	}
	stats, err := d.Run(context.Background(), ids, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Succeeded)
	assert.Zero(t, stats.Skipped)
	assert.Equal(t, []string{"Katherine Johnson"}, e.calls)
}

func TestRunEmptyEnrichmentIsSuccess(t *testing.T) {
	t.Parallel()

	// Every source answers with zero results; the run still succeeds and
	// writes the artifact.
	noResults := func(_ context.Context, _ record.Identity, _ int) ([]record.Candidate, error) {
		return nil, nil
	}
	var bindings []enrich.SourceBinding
	for _, src := range config.DefaultSourceOrder {
		bindings = append(bindings, enrich.SourceBinding{Source: src, Search: noResults})
	}
	orch := enrich.NewOrchestrator(bindings, nil, nil, enrich.Options{}, nil)

	dir := t.TempDir()
	d := batch.NewDriver(orch, renderStub, batch.Options{OutputDir: dir, ProgressEvery: 10}, nil)
	d.Out = io.Discard

	ids := []record.Identity{record.NewIdentity("Ada Lovelace", "Analytical Engines")}
	stats, err := d.Run(context.Background(), ids, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Succeeded)
	assert.Zero(t, stats.Failed)
	assert.FileExists(t, filepath.Join(dir, "ada-lovelace.md"))
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	e := &stubEnricher{}
	d := newTestDriver(t, e, dir)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ids := []record.Identity{record.NewIdentity("Ada Lovelace", "")}
	_, err := d.Run(ctx, ids, 0)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, e.calls)
}
