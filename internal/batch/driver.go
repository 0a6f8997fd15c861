package batch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/foundergraph/enricher/internal/record"
	"github.com/foundergraph/enricher/internal/report"
)

// Enricher produces one identity's aggregate. The production implementation
// is the orchestrator; tests use stubs.
type Enricher interface {
	Enrich(ctx context.Context, id record.Identity) (record.EnrichmentResult, error)
}

// Stats summarizes one batch run.
type Stats struct {
	Total     int
	Succeeded int
	Failed    int
	Skipped   int
	Elapsed   time.Duration
}

func (s Stats) completed() int { return s.Succeeded + s.Failed }

// Summary renders the end-of-run table.
func (s Stats) Summary() string {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Outcome", "Count"})
	t.AppendRows([]table.Row{
		{"Succeeded", s.Succeeded},
		{"Failed", s.Failed},
		{"Skipped", s.Skipped},
	})
	t.AppendFooter(table.Row{"Duration", s.Elapsed.Round(time.Second)})
	return t.Render()
}

// Options tune batch pacing and reporting.
type Options struct {
	OutputDir string
	CacheDir  string

	// Delay between identities, to stay under provider rate limits.
	Delay time.Duration
	// ProgressEvery logs a progress line after this many completed identities.
	ProgressEvery int
}

// Driver walks an identity list sequentially, enriching and persisting each
// one. It is resumable: identities whose artifact already exists are skipped
// without touching any provider.
type Driver struct {
	enricher Enricher
	render   func(record.EnrichmentResult) string
	opts     Options
	log      *slog.Logger

	// Out receives the final summary table. Defaults to stdout.
	Out io.Writer

	now func() time.Time
}

func NewDriver(enricher Enricher, render func(record.EnrichmentResult) string, opts Options, log *slog.Logger) *Driver {
	if log == nil {
		log = slog.Default()
	}
	if opts.ProgressEvery <= 0 {
		opts.ProgressEvery = 10
	}
	return &Driver{
		enricher: enricher,
		render:   render,
		opts:     opts,
		log:      log,
		Out:      os.Stdout,
		now:      time.Now,
	}
}

// Run processes identities[startIndex:]. Per-identity enrichment failures are
// counted and skipped over; only artifact write failures and context
// cancellation stop the batch. Cancellation finishes the current identity and
// does not start the next.
func (d *Driver) Run(ctx context.Context, identities []record.Identity, startIndex int) (stats Stats, err error) {
	stats = Stats{Total: len(identities)}
	start := d.now()
	defer func() {
		stats.Elapsed = d.now().Sub(start)
		fmt.Fprintln(d.Out, stats.Summary())
	}()

	for i, id := range identities {
		if i < startIndex {
			continue
		}
		if err := ctx.Err(); err != nil {
			d.log.Info("batch interrupted", "position", i, "total", stats.Total)
			return stats, err
		}

		if id.Name == "" {
			d.log.Info("skipping row with no name", "position", i)
			stats.Skipped++
			continue
		}
		if report.ArtifactExists(d.opts.OutputDir, id) {
			d.log.Info("artifact exists, skipping", "identity", id.Name, "position", i)
			stats.Skipped++
			continue
		}

		d.log.Info("enriching", "identity", id.Name, "company", id.Company, "position", i+1, "total", stats.Total)

		res, err := d.enricher.Enrich(ctx, id)
		if err != nil {
			if ctx.Err() != nil {
				return stats, ctx.Err()
			}
			stats.Failed++
			d.log.Error("enrichment failed", "identity", id.Name, "error", err)
		} else {
			path, werr := report.WriteArtifact(d.opts.OutputDir, id, d.render(res))
			if werr != nil {
				// Persistence failures are environmental; aborting beats
				// burning provider quota on results nobody keeps.
				return stats, fmt.Errorf("persist %s: %w", id.Name, werr)
			}
			if d.opts.CacheDir != "" {
				if _, serr := report.WriteSidecar(d.opts.CacheDir, res); serr != nil {
					d.log.Warn("sidecar write failed", "identity", id.Name, "error", serr)
				}
			}
			stats.Succeeded++
			d.log.Info("saved", "identity", id.Name, "path", path, "sources", len(res.SourcesUsed))
		}

		d.maybeLogProgress(stats, i, start)

		if d.opts.Delay > 0 && i < len(identities)-1 {
			t := time.NewTimer(d.opts.Delay)
			select {
			case <-t.C:
			case <-ctx.Done():
				t.Stop()
				return stats, ctx.Err()
			}
		}
	}
	return stats, nil
}

func (d *Driver) maybeLogProgress(stats Stats, position int, start time.Time) {
	done := stats.completed()
	if done == 0 || done%d.opts.ProgressEvery != 0 {
		return
	}
	elapsed := d.now().Sub(start)
	if elapsed <= 0 {
		return
	}
	perMinute := float64(done) / elapsed.Minutes()
	remaining := stats.Total - (position + 1)
	eta := time.Duration(0)
	if perMinute > 0 {
		eta = time.Duration(float64(remaining)/perMinute*float64(time.Minute)).Round(time.Minute)
	}
	d.log.Info("progress",
		"position", position+1,
		"total", stats.Total,
		"succeeded", stats.Succeeded,
		"failed", stats.Failed,
		"skipped", stats.Skipped,
		"rate_per_min", fmt.Sprintf("%.1f", perMinute),
		"eta", eta,
	)
}
