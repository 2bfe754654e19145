package analysis

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/theimaginaryfoundation/transcript-analyzer/analysis/fileutils"
	"github.com/theimaginaryfoundation/transcript-analyzer/analysis/provider"
)

// Statistics are counts computed from one transcript.
type Statistics struct {
	WordCount         int    `json:"word_count"`
	SegmentCount      int    `json:"segment_count"`
	ChunkCount        int    `json:"chunk_count"`
	AnalysisTimestamp string `json:"analysis_timestamp"`
}

// AnalysisResult is the finished report for one transcript.
type AnalysisResult struct {
	VideoInfo           VideoInfo       `json:"video_info"`
	Statistics          Statistics      `json:"statistics"`
	ChunkAnalyses       []ChunkAnalysis `json:"chunk_analyses"`
	ConsolidatedSummary string          `json:"consolidated_summary"`
}

// Pipeline analyzes whole transcripts: chunk, analyze every chunk concurrently,
// then consolidate the per-chunk opinions in one more request.
type Pipeline struct {
	Completer *CachedCompleter
	Chunking  ChunkOptions

	// MaxConsolidationChars bounds the consolidation input in runes (0 = unbounded).
	MaxConsolidationChars int

	Log logrus.FieldLogger
	Now func() time.Time
}

// NewPipeline builds a pipeline over c with a fresh cache and default chunking.
func NewPipeline(c provider.Completer, log logrus.FieldLogger) *Pipeline {
	return &Pipeline{Completer: NewCachedCompleter(c), Log: log}
}

// AnalyzeTranscript runs the full per-transcript flow. The only error is
// *EmptyTranscriptError; remote failures surface as marker text in the result.
func (p *Pipeline) AnalyzeTranscript(ctx context.Context, tr Transcript) (AnalysisResult, error) {
	info := NewVideoInfo(tr.Metadata)
	log := fieldLogger(p.Log).WithField("video_id", info.VideoID)

	fullText := tr.FullText()
	if len(tr.Segments) == 0 || strings.TrimSpace(fullText) == "" {
		return AnalysisResult{}, &EmptyTranscriptError{VideoID: info.VideoID}
	}

	log.WithField("title", info.Title).Info("analyzing transcript for stock opinions")

	chunks := SplitTranscript(fullText, p.Chunking)
	log.WithField("chunks", len(chunks)).Info("split transcript into chunks")

	analyzer := Analyzer{Completer: p.Completer, Log: log}
	analyses := make([]ChunkAnalysis, len(chunks))
	var wg sync.WaitGroup
	for i, chunk := range chunks {
		wg.Add(1)
		go func(i int, chunk TextChunk) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(logrus.Fields{"chunk": chunk.Index, "panic": r}).Error("chunk analysis panicked")
					analyses[i] = ChunkAnalysis{
						ChunkIndex:    chunk.Index,
						TotalChunks:   chunk.Total,
						OpinionsText:  fmt.Sprintf("Error: panic: %v", r),
						SentimentText: SentimentFailed,
					}
				}
			}()
			analyses[i] = analyzer.AnalyzeChunk(ctx, chunk)
		}(i, chunk)
	}
	wg.Wait()

	log.Info("creating consolidated stock analysis")
	merged := p.bound(MergeOpinions(analyses))
	summary, err := p.Completer.CompleteCached(ctx, consolidationCacheTag, merged, consolidationPrompt, merged, consolidationMaxTokens)
	if err != nil {
		log.WithError(err).Warn("consolidation completion failed")
		summary = provider.Marker(err)
	}
	log.WithField("summary", fileutils.Preview(summary, 120)).Debug("consolidated analysis ready")

	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	return AnalysisResult{
		VideoInfo: info,
		Statistics: Statistics{
			WordCount:         len(strings.Fields(fullText)),
			SegmentCount:      len(tr.Segments),
			ChunkCount:        len(chunks),
			AnalysisTimestamp: now().Format(time.RFC3339),
		},
		ChunkAnalyses:       analyses,
		ConsolidatedSummary: summary,
	}, nil
}

// MergeOpinions joins every chunk's opinions, in chunk order, under a
// "CHUNK n:" heading, separated by blank lines.
func MergeOpinions(analyses []ChunkAnalysis) string {
	blocks := make([]string, len(analyses))
	for i, a := range analyses {
		blocks[i] = fmt.Sprintf("CHUNK %d:\n%s", a.ChunkIndex, a.OpinionsText)
	}
	return strings.Join(blocks, "\n\n")
}

const consolidationTruncated = "\n\n[remaining chunk opinions truncated]"

func (p *Pipeline) bound(merged string) string {
	return fileutils.TruncateRunes(merged, p.MaxConsolidationChars, consolidationTruncated)
}

var discardLogger = func() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}()

func fieldLogger(l logrus.FieldLogger) logrus.FieldLogger {
	if l == nil {
		return discardLogger
	}
	return l
}
