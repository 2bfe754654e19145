// Package stocks pulls per-company opinions out of a finished analysis report.
package stocks

import (
	"strings"

	"github.com/theimaginaryfoundation/transcript-analyzer/analysis"
	"github.com/theimaginaryfoundation/transcript-analyzer/analysis/provider"
)

// Opinion is one distinct statement about a stock and the chunk it came from.
type Opinion struct {
	Text  string `json:"text"`
	Chunk int    `json:"chunk"`
}

// Stock groups opinions under the first name and ticker seen for it.
type Stock struct {
	Name     string    `json:"name"`
	Ticker   string    `json:"ticker,omitempty"`
	Opinions []Opinion `json:"opinions"`
}

// Extract scans the opinions and sentiment sections of every chunk for emphasized
// "Name (TICKER): opinion" or "Name: opinion" lines. Stocks are keyed by ticker
// when present and by name otherwise, and come back in first-seen order. Chunks
// whose analysis failed are skipped.
func Extract(result analysis.BatchResult) []Stock {
	var out []Stock
	index := map[string]int{}

	for _, entry := range result {
		if entry.Analysis == nil {
			continue
		}
		for _, chunk := range entry.Analysis.ChunkAnalyses {
			if provider.IsMarker(chunk.OpinionsText) {
				continue
			}
			for _, section := range []string{chunk.OpinionsText, chunk.SentimentText} {
				for _, line := range strings.Split(section, "\n") {
					if !strings.Contains(line, "*") || !strings.Contains(line, ":") {
						continue
					}
					name, ticker, opinion := ParseLine(line)
					if name == "" || opinion == "" {
						continue
					}
					key := ticker
					if key == "" {
						key = name
					}
					i, ok := index[key]
					if !ok {
						i = len(out)
						index[key] = i
						out = append(out, Stock{Name: name, Ticker: ticker})
					}
					if !hasOpinion(out[i].Opinions, opinion) {
						out[i].Opinions = append(out[i].Opinions, Opinion{Text: opinion, Chunk: chunk.ChunkIndex})
					}
				}
			}
		}
	}
	return out
}

// ParseLine splits one emphasized line into name, ticker and opinion. Markdown
// emphasis and a leading list bullet are ignored.
func ParseLine(line string) (name, ticker, opinion string) {
	s := strings.TrimSpace(strings.ReplaceAll(line, "*", ""))
	s = strings.TrimSpace(strings.TrimPrefix(s, "- "))

	if open := strings.Index(s, "("); open >= 0 {
		if rel := strings.Index(s[open:], ")"); rel > 0 {
			name = strings.TrimSpace(s[:open])
			ticker = strings.TrimSpace(s[open+1 : open+rel])
			if _, after, ok := strings.Cut(s[open+rel+1:], ":"); ok {
				opinion = strings.TrimSpace(after)
			}
			return name, ticker, opinion
		}
	}

	before, after, _ := strings.Cut(s, ":")
	return strings.TrimSpace(before), "", strings.TrimSpace(after)
}

func hasOpinion(ops []Opinion, text string) bool {
	for _, o := range ops {
		if o.Text == text {
			return true
		}
	}
	return false
}
