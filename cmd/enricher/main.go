package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"

	"github.com/foundergraph/enricher/internal/batch"
	"github.com/foundergraph/enricher/internal/config"
	"github.com/foundergraph/enricher/internal/enrich"
	"github.com/foundergraph/enricher/internal/filter"
	"github.com/foundergraph/enricher/internal/record"
	"github.com/foundergraph/enricher/internal/report"
	"github.com/foundergraph/enricher/internal/sources"
	"github.com/foundergraph/enricher/internal/util"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if len(os.Args) < 2 {
		usage(os.Stderr)
		os.Exit(2)
	}

	switch os.Args[1] {
	case "help", "-h", "--help":
		usage(os.Stdout)
		return
	case "enrich":
		os.Exit(runEnrich(ctx, os.Args[2:]))
	case "batch":
		os.Exit(runBatch(ctx, os.Args[2:]))
	default:
		_, _ = fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		usage(os.Stderr)
		os.Exit(2)
	}
}

func runEnrich(ctx context.Context, args []string) int {
	cfg, err := config.Load()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "config error: %s\n", util.RedactSecrets(err.Error()))
		return 2
	}

	fs := flag.NewFlagSet("enrich", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	name := fs.String("name", "", "Full name of the person to enrich")
	company := fs.String("company", "", "Company name, used for query disambiguation")
	profileURL := fs.String("profile-url", "", "Professional-network profile URL for the targeted sources")
	outputDir := fs.String("output-dir", cfg.OutputDir, "Directory for markdown artifacts (env: OUTPUT_DIR)")
	synthesize := fs.Bool("synthesize", false, "Rewrite the report into a narrative profile (needs OPENROUTER_API_KEY)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if strings.TrimSpace(*name) == "" {
		_, _ = fmt.Fprintln(os.Stderr, "enrich requires --name")
		return 2
	}

	log := newLogger(cfg.LogLevel)

	orch, order, err := buildOrchestrator(ctx, cfg, log)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "setup error: %s\n", util.RedactSecrets(err.Error()))
		return 2
	}

	id := record.NewIdentity(*name, *company)
	id.ProfileURL = strings.TrimSpace(*profileURL)

	res, err := orch.Enrich(ctx, id)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "enrich failed: %s\n", util.RedactSecrets(err.Error()))
		return 1
	}

	md := report.Render(res, order)
	if *synthesize {
		md = synthesizeOrKeep(ctx, cfg, log, md)
	}

	path, err := report.WriteArtifact(*outputDir, id, md)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "write failed: %s\n", err)
		return 1
	}
	if cfg.CacheDir != "" {
		if _, err := report.WriteSidecar(cfg.CacheDir, res); err != nil {
			log.Warn("sidecar write failed", "error", err)
		}
	}
	fmt.Println(path)
	return 0
}

func runBatch(ctx context.Context, args []string) int {
	cfg, err := config.Load()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "config error: %s\n", util.RedactSecrets(err.Error()))
		return 2
	}

	fs := flag.NewFlagSet("batch", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	input := fs.String("input", "", "Input CSV path (columns: firstName, lastName, companyName[, linkedinUrl])")
	start := fs.Int("start", 0, "Index to start from, for resuming a partial run")
	outputDir := fs.String("output-dir", cfg.OutputDir, "Directory for markdown artifacts (env: OUTPUT_DIR)")
	delay := fs.Duration("delay", cfg.BatchDelay, "Delay between identities (env: BATCH_DELAY)")
	progressEvery := fs.Int("progress-every", cfg.ProgressEvery, "Log progress after this many completions (env: PROGRESS_EVERY)")
	synthesize := fs.Bool("synthesize", false, "Rewrite each report into a narrative profile (needs OPENROUTER_API_KEY)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *input == "" {
		_, _ = fmt.Fprintln(os.Stderr, "batch requires --input")
		return 2
	}

	log := newLogger(cfg.LogLevel)

	f, err := os.Open(*input)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "open input: %s\n", err)
		return 2
	}
	identities, err := batch.ReadIdentitiesCSV(f)
	f.Close()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "read input: %s\n", err)
		return 2
	}

	orch, order, err := buildOrchestrator(ctx, cfg, log)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "setup error: %s\n", util.RedactSecrets(err.Error()))
		return 2
	}

	render := func(res record.EnrichmentResult) string {
		md := report.Render(res, order)
		if *synthesize {
			md = synthesizeOrKeep(ctx, cfg, log, md)
		}
		return md
	}

	driver := batch.NewDriver(orch, render, batch.Options{
		OutputDir:     *outputDir,
		CacheDir:      cfg.CacheDir,
		Delay:         *delay,
		ProgressEvery: *progressEvery,
	}, log)

	stats, err := driver.Run(ctx, identities, *start)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "batch stopped: %s\n", util.RedactSecrets(err.Error()))
		return 1
	}
	if stats.Failed > 0 {
		return 1
	}
	return 0
}

// buildOrchestrator wires every source whose credentials are present. A source
// missing its key is logged and left out; the run continues with the rest.
func buildOrchestrator(ctx context.Context, cfg *config.Config, log *slog.Logger) (*enrich.Orchestrator, []record.Source, error) {
	order, err := cfg.SourceOrder()
	if err != nil {
		return nil, nil, err
	}

	var bindings []enrich.SourceBinding
	bind := func(src record.Source, search enrich.SearchFunc, err error) {
		if err != nil {
			log.Info("source disabled", "source", src, "reason", util.RedactSecrets(err.Error()))
			return
		}
		bindings = append(bindings, enrich.SourceBinding{Source: src, Search: search})
	}

	for _, src := range order {
		switch src {
		case record.SourceNetworkProfile:
			pc, err := sources.NewProfileClient(cfg.PhantombusterAPIKey, cfg.PhantombusterProfileAgentID, cfg.PhantombusterActivityAgentID, cfg.RequestTimeout)
			if err != nil {
				bind(src, nil, err)
				continue
			}
			bind(src, pc.ProfileCandidates, nil)
		case record.SourceNetworkActivity:
			pc, err := sources.NewProfileClient(cfg.PhantombusterAPIKey, cfg.PhantombusterProfileAgentID, cfg.PhantombusterActivityAgentID, cfg.RequestTimeout)
			if err != nil {
				bind(src, nil, err)
				continue
			}
			bind(src, pc.SearchCandidates, nil)
		case record.SourceVideo:
			yt, err := sources.NewYouTubeClient(cfg.YouTubeAPIKey, cfg.RequestTimeout)
			if err != nil {
				bind(src, nil, err)
				continue
			}
			bind(src, yt.SearchCandidates, nil)
		case record.SourceWebSearch:
			// Two providers feed this source; Exa outranks plain web search.
			exa, err := sources.NewExaClient(cfg.ExaAPIKey, cfg.RequestTimeout)
			if err != nil {
				bind(src, nil, err)
			} else {
				bind(src, exa.SearchCandidates, nil)
			}
			ws, err := sources.NewWebSearchClient(cfg.GoogleSearchAPIKey, cfg.GoogleSearchEngineID, cfg.RequestTimeout)
			if err != nil {
				bind(src, nil, err)
			} else {
				bind(src, ws.SearchCandidates, nil)
			}
		case record.SourcePodcast:
			pod, err := sources.NewPodcastClient(cfg.ListenNotesAPIKey, cfg.RequestTimeout)
			if err != nil {
				bind(src, nil, err)
				continue
			}
			bind(src, pod.SearchCandidates, nil)
		}
	}
	if len(bindings) == 0 {
		return nil, nil, fmt.Errorf("no sources configured; set at least one provider key")
	}

	var relevance enrich.RelevanceFilter
	if cfg.GeminiAPIKey != "" {
		completer, err := filter.NewGeminiCompleter(ctx, filter.GeminiConfig{
			APIKey: cfg.GeminiAPIKey,
			Model:  cfg.GeminiModel,
		})
		if err != nil {
			return nil, nil, err
		}
		relevance = filter.New(completer, cfg.MinRelevanceScore, log)
	} else {
		log.Warn("GEMINI_API_KEY not set; candidates pass through unfiltered")
	}

	extractor := sources.NewExtractClient(cfg.JinaAPIKey, cfg.RequestTimeout)

	orch := enrich.NewOrchestrator(bindings, relevance, extractor, enrich.Options{
		MaxPerSource:   cfg.MaxPerSource,
		ExtractWorkers: cfg.ExtractWorkers,
		ExtractRetries: cfg.ExtractRetries,
		RequestTimeout: cfg.RequestTimeout,
	}, log)
	return orch, order, nil
}

func synthesizeOrKeep(ctx context.Context, cfg *config.Config, log *slog.Logger, md string) string {
	if cfg.OpenRouterAPIKey == "" {
		log.Warn("synthesis requested but OPENROUTER_API_KEY not set; keeping template report")
		return md
	}
	s, err := report.NewSynthesizer(cfg.OpenRouterAPIKey, cfg.SynthModel, log)
	if err != nil {
		log.Warn("synthesizer unavailable", "error", err)
		return md
	}
	return s.Synthesize(ctx, md)
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
	return log.With("run_id", uuid.NewString())
}

func usage(w *os.File) {
	_, _ = fmt.Fprintf(w, `enricher: multi-source founder enrichment pipeline

Usage:
  enricher <command> [flags]

Commands:
  enrich  Enrich a single person and write their markdown report
  batch   Enrich every row of a CSV, resumably

Examples:
  enricher enrich --name "Ada Lovelace" --company "Analytical Engines"
  enricher batch --input founders.csv --start 0

Configuration is read from the environment (and .env / .env.local):
  PHANTOMBUSTER_API_KEY            Profile/activity scraping (plus *_AGENT_ID vars)
  EXA_API_KEY                      Semantic article search
  YOUTUBE_API_KEY                  Video search
  GOOGLE_SEARCH_API_KEY / _ENGINE_ID  Web search
  LISTENNOTES_API_KEY              Podcast search
  JINA_API_KEY                     Optional; raises content-extraction limits
  GEMINI_API_KEY / GEMINI_MODEL    Relevance filter
  OPENROUTER_API_KEY / SYNTH_MODEL Optional narrative synthesis

Any missing provider key disables that source; the run continues with the rest.
`)
}
