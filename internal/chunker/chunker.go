package chunker

import (
	"strings"
	"unicode/utf8"

	"document-oracle/internal/config"
)

// Splitter cuts document text into overlapping chunks. Sizes are counted in
// characters (runes), not bytes.
type Splitter struct {
	chunkSize  int
	overlap    int
	separators []string
	normalize  bool
}

func New(cfg config.ChunkerConfig) *Splitter {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = config.DefaultChunkSize
	}
	overlap := config.DefaultChunkOverlap
	if cfg.ChunkOverlap != nil {
		overlap = max(*cfg.ChunkOverlap, 0)
	}
	if overlap >= cfg.ChunkSize {
		overlap = cfg.ChunkSize / 2
	}
	if len(cfg.Separators) == 0 {
		cfg.Separators = config.DefaultSeparators
	}
	normalize := true
	if cfg.Normalize != nil {
		normalize = *cfg.Normalize
	}
	return &Splitter{
		chunkSize:  cfg.ChunkSize,
		overlap:    overlap,
		separators: cfg.Separators,
		normalize:  normalize,
	}
}

// Normalize collapses every whitespace run, newlines included, to a single
// space.
func Normalize(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// Split returns the chunks of text in document order. Chunk i>0 begins with
// the trailing overlap characters of chunk i-1, and no chunk is longer than
// the chunk size.
func (s *Splitter) Split(text string) []string {
	if s.normalize {
		text = Normalize(text)
	}
	if text == "" {
		return nil
	}

	runes := []rune(text)
	total := len(runes)
	if total <= s.chunkSize {
		return []string{text}
	}

	var chunks []string
	start, end := 0, 0
	for end < total {
		// overlap taken from the previous chunk
		carry := 0
		if len(chunks) > 0 {
			carry = min(s.overlap, end-start)
		}
		begin := end
		limit := min(begin+s.chunkSize-carry, total)
		next := limit
		if limit < total {
			tail := string(runes[limit:min(limit+s.chunkSize, total)])
			next = begin + s.splitPoint(string(runes[begin:limit]), tail, s.separators)
		}
		start = begin - carry
		chunks = append(chunks, string(runes[start:next]))
		end = next
	}
	return chunks
}

// splitPoint returns the rune offset in window after which the window should
// be cut. The window is cut after the last occurrence of the highest-priority
// separator it contains. If the piece starting there would not fit in the
// next chunk anyway, the rest of the window is filled using the lower
// separators. With no separator left the whole window is taken. tail is the
// text that follows the window.
func (s *Splitter) splitPoint(window, tail string, separators []string) int {
	if len(separators) == 0 {
		return utf8.RuneCountInString(window)
	}
	sep := separators[0]
	idx := -1
	if sep != "" {
		idx = strings.LastIndex(window, sep)
	}
	if idx < 0 {
		return s.splitPoint(window, tail, separators[1:])
	}

	cut := idx + len(sep)
	offset := utf8.RuneCountInString(window[:cut])
	rest := window[cut:]

	// length of the piece running from the cut to the next separator
	piece := utf8.RuneCountInString(rest)
	if j := strings.Index(tail, sep); j >= 0 {
		piece += utf8.RuneCountInString(tail[:j+len(sep)])
	} else {
		piece += utf8.RuneCountInString(tail)
	}
	if piece <= s.chunkSize-s.overlap {
		return offset
	}
	return offset + s.splitPoint(rest, tail, separators[1:])
}
