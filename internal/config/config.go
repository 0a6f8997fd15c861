package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/foundergraph/enricher/internal/record"
)

var ErrMissingRequired = errors.New("missing required configuration")

type Config struct {
	// Provider credentials. Any blank key disables that source; the run
	// continues with whatever remains.
	PhantombusterAPIKey          string `envconfig:"PHANTOMBUSTER_API_KEY"`
	PhantombusterProfileAgentID  string `envconfig:"PHANTOMBUSTER_PROFILE_AGENT_ID"`
	PhantombusterActivityAgentID string `envconfig:"PHANTOMBUSTER_ACTIVITY_AGENT_ID"`
	ExaAPIKey                    string `envconfig:"EXA_API_KEY"`
	YouTubeAPIKey                string `envconfig:"YOUTUBE_API_KEY"`
	GoogleSearchAPIKey           string `envconfig:"GOOGLE_SEARCH_API_KEY"`
	GoogleSearchEngineID         string `envconfig:"GOOGLE_SEARCH_ENGINE_ID"`
	ListenNotesAPIKey            string `envconfig:"LISTENNOTES_API_KEY"`
	JinaAPIKey                   string `envconfig:"JINA_API_KEY"`

	// Relevance filter.
	GeminiAPIKey string `envconfig:"GEMINI_API_KEY"`
	GeminiModel  string `envconfig:"GEMINI_MODEL" default:"gemini-2.5-flash"`

	// Optional profile synthesis.
	OpenRouterAPIKey string `envconfig:"OPENROUTER_API_KEY"`
	SynthModel       string `envconfig:"SYNTH_MODEL" default:"openai/gpt-4o-mini"`

	// Tuning.
	MaxPerSource      int           `envconfig:"MAX_PER_SOURCE" default:"5"`
	MinRelevanceScore int           `envconfig:"MIN_RELEVANCE_SCORE" default:"50"`
	RequestTimeout    time.Duration `envconfig:"REQUEST_TIMEOUT" default:"30s"`
	ExtractWorkers    int           `envconfig:"EXTRACT_WORKERS" default:"3"`
	ExtractRetries    int           `envconfig:"EXTRACT_RETRIES" default:"2"`

	// Batch behaviour.
	BatchDelay    time.Duration `envconfig:"BATCH_DELAY" default:"1s"`
	ProgressEvery int           `envconfig:"PROGRESS_EVERY" default:"10"`

	// Artifact locations.
	OutputDir string `envconfig:"OUTPUT_DIR" default:"output/founders"`
	CacheDir  string `envconfig:"CACHE_DIR" default:"output/cache"`

	// SourceOrderFile optionally overrides the built-in source priority order.
	SourceOrderFile string `envconfig:"SOURCE_ORDER_FILE"`

	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

func Load() (*Config, error) {
	// Env vars may also come from the shell, so missing dotenv files are fine.
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load(".env")

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.MaxPerSource <= 0 {
		return fmt.Errorf("%w: MAX_PER_SOURCE must be positive", ErrMissingRequired)
	}
	if c.MinRelevanceScore < 0 || c.MinRelevanceScore > 100 {
		return fmt.Errorf("MIN_RELEVANCE_SCORE must be within 0..100, got %d", c.MinRelevanceScore)
	}
	if c.OutputDir == "" {
		return fmt.Errorf("%w: OUTPUT_DIR", ErrMissingRequired)
	}
	return nil
}

// DefaultSourceOrder is the built-in source priority: targeted profile data
// first, broad search sources last. Earlier sources win URL dedupe ties.
var DefaultSourceOrder = []record.Source{
	record.SourceNetworkProfile,
	record.SourceNetworkActivity,
	record.SourceVideo,
	record.SourceWebSearch,
	record.SourcePodcast,
}

type sourceOrderFile struct {
	Sources []string `yaml:"sources"`
}

// SourceOrder returns the configured source priority order. When
// SOURCE_ORDER_FILE is set it must name every known source exactly once.
func (c *Config) SourceOrder() ([]record.Source, error) {
	if c.SourceOrderFile == "" {
		return DefaultSourceOrder, nil
	}

	b, err := os.ReadFile(c.SourceOrderFile)
	if err != nil {
		return nil, fmt.Errorf("read source order file: %w", err)
	}
	var parsed sourceOrderFile
	if err := yaml.Unmarshal(b, &parsed); err != nil {
		return nil, fmt.Errorf("parse source order file: %w", err)
	}

	known := make(map[record.Source]bool, len(DefaultSourceOrder))
	for _, s := range DefaultSourceOrder {
		known[s] = true
	}

	out := make([]record.Source, 0, len(parsed.Sources))
	seen := make(map[record.Source]bool)
	for _, raw := range parsed.Sources {
		s := record.Source(raw)
		if !known[s] {
			return nil, fmt.Errorf("source order file: unknown source %q", raw)
		}
		if seen[s] {
			return nil, fmt.Errorf("source order file: duplicate source %q", raw)
		}
		seen[s] = true
		out = append(out, s)
	}
	if len(out) != len(DefaultSourceOrder) {
		return nil, fmt.Errorf("source order file: expected %d sources, got %d", len(DefaultSourceOrder), len(out))
	}
	return out, nil
}
