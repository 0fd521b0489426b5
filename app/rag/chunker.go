package rag

import (
	"fmt"

	"GoEstateAI/app/domain"
)

// separators in priority order: paragraph, line, sentence, clause, word.
var separators = []string{"\n\n", "\n", ". ", "! ", "? ", "; ", ", ", " "}

// Chunker splits text into overlapping chunks of at most maxSize runes.
// The zero value is not usable; build it with NewChunker.
type Chunker struct {
	maxSize  int
	overlap  int
	lookback int
}

// NewChunker validates the sizes. lookback bounds how far before the hard
// limit a natural boundary is searched for; 0 means always hard cut.
func NewChunker(maxSize, overlap, lookback int) (*Chunker, error) {
	switch {
	case maxSize <= 0:
		return nil, domain.ConfigError("new_chunker", fmt.Sprintf("max chunk size must be positive, got %d", maxSize))
	case overlap < 0:
		return nil, domain.ConfigError("new_chunker", fmt.Sprintf("overlap must not be negative, got %d", overlap))
	case overlap >= maxSize:
		return nil, domain.ConfigError("new_chunker", fmt.Sprintf("overlap %d must be smaller than max chunk size %d", overlap, maxSize))
	case lookback < 0:
		return nil, domain.ConfigError("new_chunker", fmt.Sprintf("lookback must not be negative, got %d", lookback))
	}
	return &Chunker{maxSize: maxSize, overlap: overlap, lookback: lookback}, nil
}

func (c *Chunker) MaxSize() int { return c.maxSize }
func (c *Chunker) Overlap() int { return c.overlap }

// Split is pure: the same text always yields the same chunks. Every chunk
// after the first starts exactly overlap runes before the previous one ends,
// so dropping the first overlap runes of each later chunk and concatenating
// reproduces text.
func (c *Chunker) Split(text, sourceURL string) []domain.TextChunk {
	runes := []rune(text)
	n := len(runes)
	if n == 0 {
		return nil
	}

	var chunks []domain.TextChunk
	emit := func(from, to int) {
		chunks = append(chunks, domain.TextChunk{
			Text:      string(runes[from:to]),
			SourceURL: sourceURL,
			Ordinal:   len(chunks),
			Offset:    from,
		})
	}

	start := 0
	for {
		end := start + c.maxSize
		if end >= n {
			emit(start, n)
			return chunks
		}
		cut := c.boundary(runes, start, end)
		emit(start, cut)
		start = cut - c.overlap
	}
}

// boundary returns the cut position for a chunk starting at start whose hard
// limit is end. The cut lands right after the highest-priority separator found
// in the lookback window, or at end when there is none. The window never
// reaches below start+overlap+1 so the next chunk always moves forward.
func (c *Chunker) boundary(runes []rune, start, end int) int {
	lo := max(end-c.lookback, start+c.overlap+1)
	if lo > end {
		return end
	}
	for _, sep := range separators {
		s := []rune(sep)
		for p := end; p >= lo; p-- {
			if p-len(s) < start {
				break
			}
			if hasSuffixAt(runes, p, s) {
				return p
			}
		}
	}
	return end
}

func hasSuffixAt(runes []rune, p int, s []rune) bool {
	for i := range s {
		if runes[p-len(s)+i] != s[i] {
			return false
		}
	}
	return true
}
