package analysis

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/theimaginaryfoundation/transcript-analyzer/analysis/provider"
)

// ChunkAnalysis is the two-section result for one chunk.
type ChunkAnalysis struct {
	ChunkIndex    int    `json:"chunk_index"`
	TotalChunks   int    `json:"total_chunks"`
	OpinionsText  string `json:"opinions_text"`
	SentimentText string `json:"sentiment_text"`
}

// Analyzer runs the combined opinions+sentiment prompt for single chunks.
type Analyzer struct {
	Completer *CachedCompleter
	Log       logrus.FieldLogger
}

// AnalyzeChunk never fails: completion errors are logged and carried forward
// as marker text in OpinionsText.
func (a Analyzer) AnalyzeChunk(ctx context.Context, chunk TextChunk) ChunkAnalysis {
	log := fieldLogger(a.Log).WithFields(logrus.Fields{
		"chunk":        chunk.Index,
		"total_chunks": chunk.Total,
	})
	log.Debug("extracting stock opinions and sentiment")

	raw, err := a.Completer.CompleteCached(ctx, chunkCacheTag, chunk.Text, chunkAnalysisPrompt, chunk.Text, chunkMaxTokens)
	if err != nil {
		log.WithError(err).Warn("chunk completion failed")
		raw = provider.Marker(err)
	}

	opinions, sentiment := splitSections(raw)
	return ChunkAnalysis{
		ChunkIndex:    chunk.Index,
		TotalChunks:   chunk.Total,
		OpinionsText:  opinions,
		SentimentText: sentiment,
	}
}

// splitSections separates a combined response on the sentiment header. Anything
// other than exactly one header keeps the raw response as the opinions text.
func splitSections(raw string) (opinions, sentiment string) {
	parts := strings.Split(raw, sentimentHeader)
	if len(parts) != 2 {
		return raw, SentimentFailed
	}
	opinions = strings.TrimSpace(strings.ReplaceAll(parts[0], opinionsHeader, ""))
	return opinions, strings.TrimSpace(parts[1])
}
