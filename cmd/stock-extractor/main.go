package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/theimaginaryfoundation/transcript-analyzer/analysis"
	"github.com/theimaginaryfoundation/transcript-analyzer/analysis/logger"
	"github.com/theimaginaryfoundation/transcript-analyzer/analysis/stocks"
)

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}

func execute(args []string, stdout, stderr io.Writer) int {
	fs := pflag.NewFlagSet("stock-extractor", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	cfg, err := parseFlags(fs, args)
	if errors.Is(err, pflag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintln(stderr, err.Error())
		return 2
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(stderr, err.Error())
		return 2
	}

	log := logger.New()
	if err := run(cfg, log, stdout); err != nil {
		log.WithError(err).Error("stock extraction failed")
		return 1
	}
	return 0
}

func run(cfg Config, log logrus.FieldLogger, out io.Writer) error {
	log.WithField("in", cfg.InPath).Info("loading analysis report")
	b, err := os.ReadFile(cfg.InPath)
	if err != nil {
		return fmt.Errorf("read analysis: %w", err)
	}
	var report analysis.BatchResult
	if err := json.Unmarshal(b, &report); err != nil {
		return fmt.Errorf("decode analysis %s: %w", cfg.InPath, err)
	}

	found := stocks.Extract(report)
	log.WithFields(logrus.Fields{
		"entries": len(report),
		"stocks":  len(found),
	}).Info("extracted stock opinions")

	for _, format := range cfg.Formats {
		path := filepath.Join(cfg.OutDir, "stock_opinions."+format)
		switch format {
		case "json":
			err = stocks.WriteJSON(path, found)
		case "txt":
			err = stocks.WriteTextFile(path, found)
		case "xlsx":
			err = stocks.WriteXLSX(path, found)
		}
		if err != nil {
			return fmt.Errorf("write %s report: %w", format, err)
		}
		fmt.Fprintf(out, "%s report saved to %s\n", format, path)
	}
	return nil
}
