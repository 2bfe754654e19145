package analysis

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

// fakeCompleter records every request and answers through fn.
type fakeCompleter struct {
	mu    sync.Mutex
	calls []fakeCall
	fn    func(prompt, text string) (string, error)
}

type fakeCall struct {
	Prompt    string
	Text      string
	MaxTokens int
}

func (f *fakeCompleter) Complete(_ context.Context, prompt, text string, maxTokens int) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, fakeCall{Prompt: prompt, Text: text, MaxTokens: maxTokens})
	f.mu.Unlock()
	return f.fn(prompt, text)
}

func (f *fakeCompleter) Calls() []fakeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]fakeCall(nil), f.calls...)
}

func isConsolidation(prompt string) bool { return prompt == consolidationPrompt }

func sectioned(opinions, sentiment string) string {
	return opinionsHeader + "\n" + opinions + "\n\n" + sentimentHeader + "\n" + sentiment
}

func writeTranscript(t *testing.T, dir, name, videoID string, texts ...string) string {
	t.Helper()
	tr := Transcript{Metadata: Metadata{VideoID: videoID, Title: "Title " + videoID, Duration: 3725}}
	for i, s := range texts {
		tr.Segments = append(tr.Segments, Segment{Timestamp: strings.Repeat("0", i+1), Text: s})
	}
	if tr.Segments == nil {
		tr.Segments = []Segment{}
	}
	b, err := json.Marshal(tr)
	if err != nil {
		t.Fatalf("marshal transcript: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, b, 0o644); err != nil {
		t.Fatalf("write transcript: %v", err)
	}
	return path
}
