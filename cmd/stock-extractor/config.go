package main

import (
	"errors"
	"strings"

	"github.com/spf13/pflag"
)

type Config struct {
	InPath  string
	OutDir  string
	Formats []string
}

func defaultConfig() Config {
	return Config{
		InPath:  "transcript_analysis.json",
		OutDir:  ".",
		Formats: []string{"json", "txt", "xlsx"},
	}
}

func parseFlags(fs *pflag.FlagSet, args []string) (Config, error) {
	cfg := defaultConfig()
	fs.StringVarP(&cfg.InPath, "in", "i", cfg.InPath, "Analysis report written by transcript-analyzer")
	fs.StringVarP(&cfg.OutDir, "out", "o", cfg.OutDir, "Directory for stock_opinions.{json,txt,xlsx}")
	fs.StringSliceVar(&cfg.Formats, "format", cfg.Formats, "Reports to write: json, txt, xlsx")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	for i, f := range cfg.Formats {
		cfg.Formats[i] = strings.ToLower(strings.TrimSpace(f))
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.InPath == "" {
		return errors.New("missing --in")
	}
	if c.OutDir == "" {
		return errors.New("missing --out")
	}
	if len(c.Formats) == 0 {
		return errors.New("at least one --format is required")
	}
	for _, f := range c.Formats {
		switch f {
		case "json", "txt", "xlsx":
		default:
			return errors.New("unknown format " + f + " (want json, txt or xlsx)")
		}
	}
	return nil
}
