package enrich

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/foundergraph/enricher/internal/enrich/worker"
	"github.com/foundergraph/enricher/internal/record"
	"github.com/foundergraph/enricher/internal/sources"
)

// SearchFunc is one provider's lookup capability: identity in, normalized
// candidates out, at most max records.
type SearchFunc func(ctx context.Context, id record.Identity, max int) ([]record.Candidate, error)

// SourceBinding pairs a source label with its search capability. Binding order
// is the fixed priority order: earlier bindings win URL dedupe ties.
type SourceBinding struct {
	Source record.Source
	Search SearchFunc
}

// Extractor fetches the readable text of one web page.
type Extractor interface {
	Extract(ctx context.Context, pageURL string) (record.ContentExtract, error)
}

// RelevanceFilter scores and prunes a merged candidate sequence. The bool
// reports whether filtering ran or the input passed through untouched.
type RelevanceFilter interface {
	Apply(ctx context.Context, identityContext string, candidates []record.Candidate) ([]record.Candidate, bool)
}

type Options struct {
	// MaxPerSource caps results requested from each provider.
	MaxPerSource int
	// MaxExtract caps how many readable pages get deep-content extraction.
	// Zero means MaxPerSource*2.
	MaxExtract int

	ExtractWorkers int
	ExtractRetries int
	RequestTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.MaxPerSource <= 0 {
		o.MaxPerSource = 5
	}
	if o.MaxExtract <= 0 {
		o.MaxExtract = o.MaxPerSource * 2
	}
	if o.ExtractWorkers <= 0 {
		o.ExtractWorkers = 3
	}
	if o.ExtractRetries < 0 {
		o.ExtractRetries = 0
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = 30 * time.Second
	}
	return o
}

// Orchestrator runs the full enrichment flow for one identity: source fan-out,
// merge, relevance filtering, deep-content extraction, assembly. A single
// orchestrator owns its adapters and must not be shared across concurrently
// enriched identities.
type Orchestrator struct {
	bindings  []SourceBinding
	filter    RelevanceFilter
	extractor Extractor
	opts      Options
	log       *slog.Logger
}

func NewOrchestrator(bindings []SourceBinding, filter RelevanceFilter, extractor Extractor, opts Options, log *slog.Logger) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{
		bindings:  bindings,
		filter:    filter,
		extractor: extractor,
		opts:      opts.withDefaults(),
		log:       log,
	}
}

// Enrich aggregates everything the configured sources know about one identity.
// Provider failures are logged and contribute zero records; only an empty
// identity or context cancellation fail the whole call.
func (o *Orchestrator) Enrich(ctx context.Context, id record.Identity) (record.EnrichmentResult, error) {
	res := record.EnrichmentResult{Identity: id, ScrapedAt: time.Now().UTC()}
	if id.Name == "" {
		return res, errors.New("enrich: empty identity name")
	}

	groups := o.searchAll(ctx, id)
	if err := ctx.Err(); err != nil {
		return res, err
	}

	// Two bindings may share a source label (several web search providers),
	// so SourcesUsed dedupes while keeping priority order.
	seen := make(map[record.Source]bool)
	for i, g := range groups {
		src := o.bindings[i].Source
		if len(g) > 0 && !seen[src] {
			seen[src] = true
			res.SourcesUsed = append(res.SourcesUsed, src)
		}
	}

	merged := record.Merge(groups...)
	o.log.Debug("sources merged", "identity", id.Name, "candidates", len(merged), "sources", len(res.SourcesUsed))

	if o.filter != nil && len(merged) > 0 {
		merged, res.Filtered = o.filter.Apply(ctx, id.Context(), merged)
	}

	if o.extractor != nil {
		res.ContentFetched = o.extractAll(ctx, merged)
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}

	res.BySource = record.GroupBySource(merged)
	return res, nil
}

// searchAll fans out to every binding concurrently and joins before returning.
// The result slice is indexed by binding position so merge precedence stays
// deterministic regardless of completion order.
func (o *Orchestrator) searchAll(ctx context.Context, id record.Identity) [][]record.Candidate {
	groups := make([][]record.Candidate, len(o.bindings))

	var wg sync.WaitGroup
	for i, b := range o.bindings {
		wg.Add(1)
		go func(i int, b SourceBinding) {
			defer wg.Done()
			reqCtx, cancel := context.WithTimeout(ctx, o.opts.RequestTimeout)
			defer cancel()

			got, err := b.Search(reqCtx, id, o.opts.MaxPerSource)
			if err != nil {
				o.logSourceFailure(b.Source, id, err)
				return
			}
			groups[i] = got
		}(i, b)
	}
	wg.Wait()
	return groups
}

func (o *Orchestrator) logSourceFailure(src record.Source, id record.Identity, err error) {
	var pe *sources.ProviderError
	switch {
	case errors.Is(err, sources.ErrNotFound):
		o.log.Info("source has no data for identity", "source", src, "identity", id.Name)
	case errors.As(err, &pe):
		o.log.Warn("source failed, continuing without it",
			"source", src, "identity", id.Name, "status", pe.StatusCode, "error", err)
	default:
		o.log.Warn("source failed, continuing without it", "source", src, "identity", id.Name, "error", err)
	}
}

// extractAll picks readable-page candidates, caps them, and fetches their full
// text through the worker pool. Output order follows candidate order; per-URL
// failures become failed ContentExtract entries.
func (o *Orchestrator) extractAll(ctx context.Context, candidates []record.Candidate) []record.ContentExtract {
	var targets []string
	for _, c := range candidates {
		if !sources.Readable(c) {
			continue
		}
		targets = append(targets, c.URL)
		if len(targets) >= o.opts.MaxExtract {
			break
		}
	}
	if len(targets) == 0 {
		return nil
	}

	results, err := worker.ProcessAll(ctx, targets, o.extractor.Extract, worker.Options{
		Workers:        o.opts.ExtractWorkers,
		MaxRetries:     o.opts.ExtractRetries,
		RequestTimeout: o.opts.RequestTimeout,
		FailurePolicy:  worker.FailurePolicyPartialOutput,
	})
	if err != nil {
		o.log.Warn("content extraction aborted", "error", err)
		return nil
	}

	out := make([]record.ContentExtract, 0, len(results))
	for _, r := range results {
		ex := r.Output
		if ex.URL == "" {
			ex.URL = r.Input
		}
		if r.Err != nil {
			ex.Success = false
			if ex.Error == "" {
				ex.Error = r.Err.Error()
			}
			o.log.Debug("content extraction failed", "url", ex.URL, "error", r.Err)
		}
		out = append(out, ex)
	}
	return out
}
