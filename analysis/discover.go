package analysis

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DiscoverTranscripts lists transcript files directly inside dir, sorted by path.
// A .json file qualifies when its name mentions "transcript" or its body carries
// a top-level "transcript" array.
func DiscoverTranscripts(dir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("glob %s: %w", dir, err)
	}
	sort.Strings(matches)

	var files []string
	for _, path := range matches {
		if fi, err := os.Stat(path); err != nil || fi.IsDir() {
			continue
		}
		if strings.Contains(strings.ToLower(filepath.Base(path)), "transcript") {
			files = append(files, path)
			continue
		}
		if hasTranscriptArray(path) {
			files = append(files, path)
		}
	}
	return files, nil
}

func hasTranscriptArray(path string) bool {
	b, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(b, &probe); err != nil {
		return false
	}
	raw, ok := probe["transcript"]
	if !ok {
		return false
	}
	var arr []json.RawMessage
	return json.Unmarshal(raw, &arr) == nil && arr != nil
}

// ResolveInputs expands directories through DiscoverTranscripts and passes files
// through untouched, keeping the caller's order.
func ResolveInputs(inputs []string) ([]string, error) {
	var out []string
	for _, in := range inputs {
		fi, err := os.Stat(in)
		if err != nil {
			return nil, fmt.Errorf("stat input: %w", err)
		}
		if !fi.IsDir() {
			out = append(out, in)
			continue
		}
		found, err := DiscoverTranscripts(in)
		if err != nil {
			return nil, err
		}
		out = append(out, found...)
	}
	return out, nil
}
