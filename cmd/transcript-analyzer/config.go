package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/theimaginaryfoundation/transcript-analyzer/analysis"
	"github.com/theimaginaryfoundation/transcript-analyzer/analysis/provider"
)

type Config struct {
	APIKey  string `mapstructure:"api-key"`
	BaseURL string `mapstructure:"base-url"`
	Model   string `mapstructure:"model"`

	Directory string `mapstructure:"directory"`
	Output    string `mapstructure:"output"`

	MaxConcurrency        int           `mapstructure:"max-concurrency"`
	ChunkSize             int           `mapstructure:"chunk-size"`
	ChunkOverlap          int           `mapstructure:"chunk-overlap"`
	MaxConsolidationChars int           `mapstructure:"max-consolidation-chars"`
	Retries               int           `mapstructure:"retries"`
	Timeout               time.Duration `mapstructure:"timeout"`

	LogLevel   string `mapstructure:"log-level"`
	ConfigFile string `mapstructure:"config"`
}

func defaultConfig() Config {
	return Config{
		BaseURL:        provider.DefaultBaseURL,
		Model:          provider.DefaultModel,
		Directory:      ".",
		Output:         "transcript_analysis.json",
		MaxConcurrency: analysis.DefaultMaxConcurrency,
		ChunkSize:      analysis.DefaultChunkSize,
		ChunkOverlap:   analysis.DefaultChunkOverlap,
	}
}

// envBindings maps config keys onto the environment variables that can set them.
var envBindings = map[string]string{
	"api-key":                 "OPENROUTER_API_KEY",
	"base-url":                "OPENROUTER_BASE_URL",
	"model":                   "OPENROUTER_MODEL",
	"directory":               "TRANSCRIPT_DIR",
	"output":                  "TRANSCRIPT_ANALYSIS_OUTPUT",
	"max-concurrency":         "TRANSCRIPT_MAX_CONCURRENCY",
	"chunk-size":              "TRANSCRIPT_CHUNK_SIZE",
	"chunk-overlap":           "TRANSCRIPT_CHUNK_OVERLAP",
	"max-consolidation-chars": "TRANSCRIPT_MAX_CONSOLIDATION_CHARS",
	"retries":                 "TRANSCRIPT_RETRIES",
	"timeout":                 "TRANSCRIPT_REQUEST_TIMEOUT",
	"log-level":               "LOG_LEVEL",
}

func registerFlags(fs *pflag.FlagSet) {
	cfg := defaultConfig()
	fs.String("api-key", "", "OpenRouter API key (default: $OPENROUTER_API_KEY)")
	fs.String("base-url", cfg.BaseURL, "OpenAI-compatible API base URL")
	fs.String("model", cfg.Model, "Model used for chunk analysis and consolidation")
	fs.StringP("directory", "d", cfg.Directory, "Directory scanned for transcript .json files when no inputs are given")
	fs.StringP("output", "o", cfg.Output, "Output JSON file for the batch report")
	fs.IntP("max-concurrency", "c", cfg.MaxConcurrency, "Maximum transcripts analyzed at once")
	fs.Int("chunk-size", cfg.ChunkSize, "Maximum chunk length in characters")
	fs.Int("chunk-overlap", cfg.ChunkOverlap, "Characters shared by consecutive chunks")
	fs.Int("max-consolidation-chars", 0, "Truncate the consolidation input to this many characters (0 = unbounded)")
	fs.Int("retries", 0, "Retries for rate-limited, server-side or network failures (0 = none)")
	fs.Duration("timeout", 0, "Per-request timeout (0 = client default)")
	fs.String("log-level", "", "debug|info|warn|error (default: $LOG_LEVEL)")
	fs.String("config", "", "Optional config file (yaml, json or toml)")
}

// loadConfig merges, lowest first: defaults, config file, environment, flags.
func loadConfig(fs *pflag.FlagSet) (Config, error) {
	v := viper.New()
	if err := v.BindPFlags(fs); err != nil {
		return Config{}, fmt.Errorf("bind flags: %w", err)
	}
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return Config{}, fmt.Errorf("bind env %s: %w", env, err)
		}
	}

	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := defaultConfig()
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	return cfg, nil
}

func (c Config) Validate() error {
	if c.APIKey == "" {
		return errors.New("missing OPENROUTER_API_KEY (or pass --api-key)")
	}
	if err := provider.ValidateBaseURL(c.BaseURL); err != nil {
		return err
	}
	if strings.TrimSpace(c.Model) == "" {
		return errors.New("missing --model")
	}
	if c.Output == "" {
		return errors.New("missing --output")
	}
	if c.MaxConcurrency <= 0 {
		return errors.New("max-concurrency must be > 0")
	}
	if c.ChunkSize <= 0 {
		return errors.New("chunk-size must be > 0")
	}
	if c.ChunkOverlap < 0 || c.MaxConsolidationChars < 0 || c.Retries < 0 || c.Timeout < 0 {
		return errors.New("chunk-overlap/max-consolidation-chars/retries/timeout must be >= 0")
	}
	return nil
}
