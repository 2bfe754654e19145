package analysis

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/theimaginaryfoundation/transcript-analyzer/analysis/fileutils"
)

// DefaultMaxConcurrency is the default number of transcripts analyzed at once.
const DefaultMaxConcurrency = 3

// ErrInterrupted marks entries that were never started because the run was cancelled.
var ErrInterrupted = errors.New("interrupted before analysis started")

// ErrNoPipeline marks every entry of a run on a Coordinator without a Pipeline.
var ErrNoPipeline = errors.New("batch coordinator has no pipeline")

// BatchEntry is the outcome for one input file: an analysis or an error message.
type BatchEntry struct {
	File     string          `json:"file"`
	Analysis *AnalysisResult `json:"analysis,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// BatchResult holds one entry per input, in input order.
type BatchResult []BatchEntry

// Failed counts entries that carry an error.
func (r BatchResult) Failed() int {
	n := 0
	for _, e := range r {
		if e.Error != "" {
			n++
		}
	}
	return n
}

// Coordinator runs a Pipeline over many transcript files with bounded concurrency.
// Pipeline is required; Run records ErrNoPipeline for every file when it is nil.
type Coordinator struct {
	Pipeline       *Pipeline
	MaxConcurrency int
	Log            logrus.FieldLogger
}

// Run analyzes every path and returns entries in the same order as paths. Once
// ctx is cancelled no further file is admitted; files already admitted finish.
func (c *Coordinator) Run(ctx context.Context, paths []string) BatchResult {
	limit := c.MaxConcurrency
	if limit <= 0 {
		limit = DefaultMaxConcurrency
	}
	runID := uuid.NewString()
	log := fieldLogger(c.Log).WithField("run_id", runID)
	log.WithFields(logrus.Fields{
		"files":           len(paths),
		"max_concurrency": limit,
	}).Info("starting batch analysis")
	started := time.Now()

	results := make(BatchResult, len(paths))
	if c.Pipeline == nil {
		log.Error("batch coordinator has no pipeline")
		for i, path := range paths {
			results[i] = BatchEntry{File: filepath.Base(path), Error: ErrNoPipeline.Error()}
		}
		return results
	}
	sem := make(chan struct{}, limit)
	var wg sync.WaitGroup

	for i, path := range paths {
		results[i] = BatchEntry{File: filepath.Base(path)}

		select {
		case <-ctx.Done():
			results[i].Error = ErrInterrupted.Error()
			continue
		case sem <- struct{}{}:
		}
		if ctx.Err() != nil {
			<-sem
			results[i].Error = ErrInterrupted.Error()
			continue
		}

		wg.Add(1)
		go func(i int, path string) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = c.analyzeFile(context.WithoutCancel(ctx), log, path)
		}(i, path)
	}
	wg.Wait()

	fields := logrus.Fields{
		"files":    len(results),
		"failed":   results.Failed(),
		"duration": time.Since(started).Round(time.Millisecond).String(),
	}
	if cc := c.Pipeline.Completer; cc != nil && cc.Cache != nil {
		hits, misses := cc.Cache.Stats()
		fields["cache_hits"] = hits
		fields["cache_misses"] = misses
	}
	log.WithFields(fields).Info("batch analysis finished")
	return results
}

// Start runs the batch in the background and delivers the result once.
func (c *Coordinator) Start(ctx context.Context, paths []string) <-chan BatchResult {
	out := make(chan BatchResult, 1)
	go func() {
		defer close(out)
		out <- c.Run(ctx, paths)
	}()
	return out
}

func (c *Coordinator) analyzeFile(ctx context.Context, log logrus.FieldLogger, path string) (entry BatchEntry) {
	entry = BatchEntry{File: filepath.Base(path)}
	log = log.WithField("file", entry.File)
	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Error("transcript analysis panicked")
			entry = BatchEntry{File: entry.File, Error: fmt.Sprintf("panic: %v", r)}
		}
	}()

	log.Info("processing transcript")
	tr, err := LoadTranscript(path)
	if err != nil {
		log.WithError(err).Error("failed to load transcript")
		entry.Error = err.Error()
		return entry
	}
	res, err := c.Pipeline.AnalyzeTranscript(ctx, tr)
	if err != nil {
		log.WithError(err).Error("failed to analyze transcript")
		entry.Error = err.Error()
		return entry
	}
	entry.Analysis = &res
	return entry
}

// RunBatch resolves inputs, analyzes them, and writes the result to outputPath
// when it is non-empty. An input set with no transcripts still writes "[]".
func RunBatch(ctx context.Context, c *Coordinator, inputs []string, outputPath string) (BatchResult, error) {
	paths, err := ResolveInputs(inputs)
	if err != nil {
		return nil, err
	}

	result := BatchResult{}
	if len(paths) == 0 {
		fieldLogger(c.Log).Warn("no transcript files found")
	} else {
		result = c.Run(ctx, paths)
	}

	if outputPath != "" {
		if err := fileutils.WriteJSONFileAtomic(outputPath, result); err != nil {
			return result, fmt.Errorf("save results: %w", err)
		}
		fieldLogger(c.Log).WithField("output", outputPath).Info("analysis results saved")
	}
	return result, nil
}
