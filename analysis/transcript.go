package analysis

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Segment is one timed piece of spoken text, in spoken order.
type Segment struct {
	Timestamp string `json:"timestamp"`
	Text      string `json:"text"`
}

// Metadata describes the recording a transcript came from.
type Metadata struct {
	VideoID  string  `json:"video_id,omitempty"`
	Title    string  `json:"title,omitempty"`
	Uploader string  `json:"uploader,omitempty"`
	Duration float64 `json:"duration,omitempty"`
}

// Transcript is the on-disk transcript document written by the transcription step.
type Transcript struct {
	Metadata Metadata  `json:"metadata"`
	Segments []Segment `json:"transcript"`
}

// FullText joins segment texts with single spaces, preserving segment order.
func (t Transcript) FullText() string {
	parts := make([]string, len(t.Segments))
	for i, s := range t.Segments {
		parts[i] = s.Text
	}
	return strings.Join(parts, " ")
}

// MalformedFileError means an input file is not a readable transcript document.
type MalformedFileError struct {
	Path string
	Err  error
}

func (e *MalformedFileError) Error() string {
	return fmt.Sprintf("malformed transcript file %s: %v", e.Path, e.Err)
}

func (e *MalformedFileError) Unwrap() error { return e.Err }

// EmptyTranscriptError means a transcript has no text to analyze.
type EmptyTranscriptError struct {
	VideoID string
}

func (e *EmptyTranscriptError) Error() string {
	if e.VideoID == "" || e.VideoID == unknown {
		return "no transcript text found"
	}
	return fmt.Sprintf("no transcript text found for video %s", e.VideoID)
}

// LoadTranscript reads and decodes one transcript file.
func LoadTranscript(path string) (Transcript, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Transcript{}, &MalformedFileError{Path: path, Err: err}
	}
	return DecodeTranscript(path, b)
}

// DecodeTranscript decodes a transcript document; path is only used for error context.
func DecodeTranscript(path string, b []byte) (Transcript, error) {
	var probe struct {
		Transcript json.RawMessage `json:"transcript"`
	}
	if err := json.Unmarshal(b, &probe); err != nil {
		return Transcript{}, &MalformedFileError{Path: path, Err: err}
	}
	if len(probe.Transcript) == 0 || probe.Transcript[0] != '[' {
		return Transcript{}, &MalformedFileError{Path: path, Err: fmt.Errorf("missing transcript array")}
	}
	var t Transcript
	if err := json.Unmarshal(b, &t); err != nil {
		return Transcript{}, &MalformedFileError{Path: path, Err: err}
	}
	return t, nil
}

const unknown = "unknown"

// VideoInfo is the report-facing view of transcript metadata.
type VideoInfo struct {
	VideoID           string  `json:"video_id"`
	Title             string  `json:"title"`
	Uploader          string  `json:"uploader"`
	Duration          float64 `json:"duration"`
	DurationFormatted string  `json:"duration_formatted"`
}

// NewVideoInfo fills missing metadata with "unknown" and formats the duration.
func NewVideoInfo(m Metadata) VideoInfo {
	orUnknown := func(s string) string {
		if strings.TrimSpace(s) == "" {
			return unknown
		}
		return s
	}
	return VideoInfo{
		VideoID:           orUnknown(m.VideoID),
		Title:             orUnknown(m.Title),
		Uploader:          orUnknown(m.Uploader),
		Duration:          m.Duration,
		DurationFormatted: FormatDuration(m.Duration),
	}
}

// FormatDuration renders whole seconds as HH:MM:SS.
func FormatDuration(seconds float64) string {
	if seconds <= 0 {
		return "00:00:00"
	}
	s := int64(seconds)
	return fmt.Sprintf("%02d:%02d:%02d", s/3600, (s%3600)/60, s%60)
}
