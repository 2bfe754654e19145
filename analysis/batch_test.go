package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/theimaginaryfoundation/transcript-analyzer/analysis/provider"
)

func TestCoordinatorRun_PreservesInputOrder(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	paths := []string{
		writeTranscript(t, dir, "slow_transcript.json", "slow", "slow words here"),
		writeTranscript(t, dir, "medium_transcript.json", "medium", "medium words here"),
		writeTranscript(t, dir, "fast_transcript.json", "fast", "fast words here"),
	}
	delays := map[string]time.Duration{"slow": 60 * time.Millisecond, "medium": 30 * time.Millisecond}

	f := &fakeCompleter{fn: func(prompt, text string) (string, error) {
		if isConsolidation(prompt) {
			return "summary", nil
		}
		name := strings.Fields(text)[0]
		time.Sleep(delays[name])
		return sectioned(name+" opinions", "neutral"), nil
	}}

	c := &Coordinator{Pipeline: NewPipeline(f, nil), MaxConcurrency: 3}
	res := c.Run(context.Background(), paths)

	if len(res) != 3 {
		t.Fatalf("entries=%d want=3", len(res))
	}
	for i, want := range []string{"slow", "medium", "fast"} {
		e := res[i]
		if e.File != want+"_transcript.json" || e.Error != "" || e.Analysis == nil {
			t.Fatalf("entry %d=%+v", i, e)
		}
		if e.Analysis.VideoInfo.VideoID != want {
			t.Fatalf("entry %d video=%s want=%s", i, e.Analysis.VideoInfo.VideoID, want)
		}
		if got := e.Analysis.ChunkAnalyses[0].OpinionsText; got != want+" opinions" {
			t.Fatalf("entry %d opinions=%q", i, got)
		}
	}
}

func TestCoordinatorRun_BoundsConcurrency(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	var paths []string
	for _, id := range []string{"a", "b", "c", "d", "e", "f"} {
		paths = append(paths, writeTranscript(t, dir, id+"_transcript.json", id, "words from "+id))
	}

	var inFlight, peak atomic.Int64
	f := &fakeCompleter{fn: func(prompt, text string) (string, error) {
		if isConsolidation(prompt) {
			return "summary", nil
		}
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		inFlight.Add(-1)
		return sectioned("op", "se"), nil
	}}

	c := &Coordinator{Pipeline: NewPipeline(f, nil), MaxConcurrency: 2}
	res := c.Run(context.Background(), paths)
	if res.Failed() != 0 {
		t.Fatalf("failed=%d", res.Failed())
	}
	if peak.Load() > 2 {
		t.Fatalf("peak in-flight transcripts=%d want<=2", peak.Load())
	}
}

func TestCoordinatorRun_PerFileFailures(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	good := writeTranscript(t, dir, "good_transcript.json", "good", "Tesla looks great.")
	empty := writeTranscript(t, dir, "empty_transcript.json", "empty")
	bad := filepath.Join(dir, "bad_transcript.json")
	if err := os.WriteFile(bad, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	noArray := filepath.Join(dir, "noarray_transcript.json")
	if err := os.WriteFile(noArray, []byte(`{"metadata":{}}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	f := &fakeCompleter{fn: func(string, string) (string, error) { return sectioned("op", "se"), nil }}
	c := &Coordinator{Pipeline: NewPipeline(f, nil)}
	res := c.Run(context.Background(), []string{bad, good, empty, noArray})

	if res[0].Analysis != nil || !strings.Contains(res[0].Error, "malformed transcript file") {
		t.Fatalf("bad entry=%+v", res[0])
	}
	if res[1].Analysis == nil || res[1].Error != "" {
		t.Fatalf("good entry=%+v", res[1])
	}
	if res[2].Analysis != nil || !strings.Contains(res[2].Error, "no transcript text found") {
		t.Fatalf("empty entry=%+v", res[2])
	}
	if res[3].Analysis != nil || !strings.Contains(res[3].Error, "missing transcript array") {
		t.Fatalf("no-array entry=%+v", res[3])
	}
	if res.Failed() != 3 {
		t.Fatalf("failed=%d want=3", res.Failed())
	}
}

func TestCoordinatorRun_RecoversPanics(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeTranscript(t, dir, "p_transcript.json", "p", "words")
	f := &fakeCompleter{fn: func(prompt, text string) (string, error) {
		if isConsolidation(prompt) {
			panic("consolidation exploded")
		}
		return sectioned("op", "se"), nil
	}}
	c := &Coordinator{Pipeline: NewPipeline(f, nil)}
	res := c.Run(context.Background(), []string{path})
	if res[0].Analysis != nil || res[0].Error != "panic: consolidation exploded" {
		t.Fatalf("entry=%+v", res[0])
	}
}

func TestCoordinatorRun_CancelledBeforeStart(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	paths := []string{
		writeTranscript(t, dir, "a_transcript.json", "a", "one"),
		writeTranscript(t, dir, "b_transcript.json", "b", "two"),
	}
	f := &fakeCompleter{fn: func(string, string) (string, error) { return "x", nil }}
	c := &Coordinator{Pipeline: NewPipeline(f, nil)}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := c.Run(ctx, paths)

	for i, e := range res {
		if e.Error != ErrInterrupted.Error() || e.Analysis != nil {
			t.Fatalf("entry %d=%+v", i, e)
		}
	}
	if n := len(f.Calls()); n != 0 {
		t.Fatalf("calls=%d want=0", n)
	}
}

func TestCoordinatorRun_AdmittedWorkFinishesAfterCancel(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	paths := []string{
		writeTranscript(t, dir, "a_transcript.json", "a", "first"),
		writeTranscript(t, dir, "b_transcript.json", "b", "second"),
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	started := make(chan struct{})
	var once atomic.Bool
	f := &fakeCompleter{}
	f.fn = func(prompt, text string) (string, error) {
		if once.CompareAndSwap(false, true) {
			close(started)
			cancel()
			time.Sleep(20 * time.Millisecond)
		}
		return sectioned("op", "se"), nil
	}
	c := &Coordinator{Pipeline: NewPipeline(f, nil), MaxConcurrency: 1}

	done := c.Start(ctx, paths)
	<-started
	res := <-done

	if res[0].Analysis == nil || res[0].Error != "" {
		t.Fatalf("admitted entry should complete: %+v", res[0])
	}
	if res[1].Error != ErrInterrupted.Error() {
		t.Fatalf("second entry=%+v want interrupted", res[1])
	}
}

func TestRunBatch_EmptyDirectoryWritesEmptyArray(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	out := filepath.Join(dir, "out", "transcript_analysis.json")
	f := &fakeCompleter{fn: func(string, string) (string, error) { return "x", nil }}
	c := &Coordinator{Pipeline: NewPipeline(f, nil)}

	res, err := RunBatch(context.Background(), c, []string{dir}, out)
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	if len(res) != 0 {
		t.Fatalf("entries=%d", len(res))
	}
	if n := len(f.Calls()); n != 0 {
		t.Fatalf("calls=%d want=0", n)
	}
	b, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if strings.TrimSpace(string(b)) != "[]" {
		t.Fatalf("output=%q", string(b))
	}
}

func TestRunBatch_WritesReport(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeTranscript(t, dir, "b_transcript.json", "b", "Microsoft is cheap.")
	writeTranscript(t, dir, "a_transcript.json", "a", "Apple is expensive.")
	if err := os.WriteFile(filepath.Join(dir, "notes.json"), []byte(`{"x":1}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	out := filepath.Join(dir, "report", "transcript_analysis.json")

	f := &fakeCompleter{fn: func(prompt, text string) (string, error) {
		if isConsolidation(prompt) {
			return "summary", nil
		}
		return sectioned("op", "se"), nil
	}}
	c := &Coordinator{Pipeline: NewPipeline(f, nil)}
	if _, err := RunBatch(context.Background(), c, []string{dir}, out); err != nil {
		t.Fatalf("RunBatch: %v", err)
	}

	b, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	var raw []map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(raw) != 2 {
		t.Fatalf("entries=%d want=2", len(raw))
	}
	if string(raw[0]["file"]) != `"a_transcript.json"` || string(raw[1]["file"]) != `"b_transcript.json"` {
		t.Fatalf("files=%s,%s", raw[0]["file"], raw[1]["file"])
	}
	if _, ok := raw[0]["error"]; ok {
		t.Fatalf("successful entry must omit error")
	}
	var analysis map[string]json.RawMessage
	if err := json.Unmarshal(raw[0]["analysis"], &analysis); err != nil {
		t.Fatalf("unmarshal analysis: %v", err)
	}
	for _, k := range []string{"video_info", "statistics", "chunk_analyses", "consolidated_summary"} {
		if _, ok := analysis[k]; !ok {
			t.Fatalf("analysis missing %q", k)
		}
	}
}

func TestRunBatch_MissingInput(t *testing.T) {
	t.Parallel()

	c := &Coordinator{Pipeline: NewPipeline(&fakeCompleter{}, nil)}
	_, err := RunBatch(context.Background(), c, []string{filepath.Join(t.TempDir(), "nope")}, "")
	if err == nil || errors.Is(err, ErrInterrupted) {
		t.Fatalf("err=%v", err)
	}
}

func TestRunBatch_ServiceFailureStillWritesOutput(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"boom"}}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	dir := t.TempDir()
	writeTranscript(t, dir, "a_transcript.json", "a", "Amazon will double.")
	out := filepath.Join(dir, "transcript_analysis.json")

	client := provider.New(provider.Options{APIKey: "k", BaseURL: srv.URL})
	c := &Coordinator{Pipeline: NewPipeline(client, nil)}
	res, err := RunBatch(context.Background(), c, []string{dir}, out)
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	if len(res) != 1 || res[0].Analysis == nil {
		t.Fatalf("res=%+v", res)
	}
	if got := res[0].Analysis.ChunkAnalyses[0].OpinionsText; !strings.Contains(got, "Error: API returned status 500") {
		t.Fatalf("opinions=%q", got)
	}
	if _, err := os.Stat(out); err != nil {
		t.Fatalf("output not written: %v", err)
	}
}

type panickingCompleter struct{}

func (panickingCompleter) Complete(context.Context, string, string, int) (string, error) {
	panic("boom")
}

func TestCoordinatorRun_PanickingCompleterDoesNotAbortBatch(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	paths := []string{
		writeTranscript(t, dir, "a_transcript.json", "a", "first words"),
		writeTranscript(t, dir, "b_transcript.json", "b", "second words"),
	}
	out := filepath.Join(dir, "report.json")
	c := &Coordinator{Pipeline: NewPipeline(panickingCompleter{}, nil)}

	res, err := RunBatch(context.Background(), c, paths, out)
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	if len(res) != 2 {
		t.Fatalf("entries=%d want=2", len(res))
	}
	for i, e := range res {
		if e.Analysis != nil || e.Error != "panic: boom" {
			t.Fatalf("entry %d=%+v", i, e)
		}
	}
	if _, err := os.Stat(out); err != nil {
		t.Fatalf("output not written: %v", err)
	}
}

func TestCoordinatorRun_NilPipeline(t *testing.T) {
	t.Parallel()

	c := &Coordinator{}
	res := c.Run(context.Background(), []string{"/tmp/x/a_transcript.json"})
	if len(res) != 1 || res[0].File != "a_transcript.json" || res[0].Error != ErrNoPipeline.Error() {
		t.Fatalf("res=%+v", res)
	}
}
