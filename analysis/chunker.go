package analysis

const (
	DefaultChunkSize    = 7000
	DefaultChunkOverlap = 500

	// sentenceLookback is how far back from a window's right edge we search
	// for a sentence terminator.
	sentenceLookback = 500
)

// TextChunk is one contiguous, possibly overlapping slice of a transcript's full text.
type TextChunk struct {
	Index int    `json:"chunk_index"` // 1-based
	Total int    `json:"total_chunks"`
	Text  string `json:"text"`
}

// ChunkOptions controls SplitTranscript. Zero values select the defaults.
type ChunkOptions struct {
	Size    int
	Overlap int
}

func (o ChunkOptions) normalized() ChunkOptions {
	if o.Size <= 0 {
		o.Size = DefaultChunkSize
	}
	if o.Overlap < 0 {
		o.Overlap = 0
	}
	return o
}

// SplitTranscript chunks text and tags each chunk with its position.
func SplitTranscript(text string, opts ChunkOptions) []TextChunk {
	opts = opts.normalized()
	parts := ChunkText(text, opts.Size, opts.Overlap)
	out := make([]TextChunk, len(parts))
	for i, p := range parts {
		out[i] = TextChunk{Index: i + 1, Total: len(parts), Text: p}
	}
	return out
}

// ChunkText splits text into windows of at most size runes, pulling each cut back
// to just after the last ". ", "! " or "? " in the final 500 runes of the window
// when one exists. Consecutive chunks share up to overlap runes, and every step
// advances by at least one rune. Lengths are measured in runes.
func ChunkText(text string, size, overlap int) []string {
	opts := ChunkOptions{Size: size, Overlap: overlap}.normalized()
	size, overlap = opts.Size, opts.Overlap

	r := []rune(text)
	if len(r) <= size {
		return []string{text}
	}

	var chunks []string
	start := 0
	for start < len(r) {
		end := min(start+size, len(r))
		if end < len(r) {
			from := max(start, start+size-sentenceLookback)
			if cut := lastSentenceEnd(r, from, end); cut >= 0 {
				end = cut + 2
			}
		}
		chunks = append(chunks, string(r[start:end]))
		if end >= len(r) {
			break
		}
		start = max(start+1, end-overlap)
	}
	return chunks
}

// lastSentenceEnd returns the index of the rightmost terminator pair that lies
// entirely within r[from:to], or -1.
func lastSentenceEnd(r []rune, from, to int) int {
	for i := to - 2; i >= from; i-- {
		if r[i+1] != ' ' {
			continue
		}
		switch r[i] {
		case '.', '!', '?':
			return i
		}
	}
	return -1
}
