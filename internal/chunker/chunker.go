// Package chunker splits extracted document text into overlapping fixed-size windows.
package chunker

import (
	"iter"
	"strings"
	"unicode/utf8"
)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 2600

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = 150

// Chunker cuts text into windows of at most chunkSize characters, each
// starting chunkSize-overlap characters after the previous one.
// Lengths are counted in runes, so a window never splits a UTF-8 sequence.
type Chunker struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker.
type Option func(*Chunker)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(c *Chunker) {
		if size > 0 {
			c.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(c *Chunker) {
		if overlap >= 0 {
			c.overlap = overlap
		}
	}
}

// New creates a chunker with the given options.
func New(opts ...Option) *Chunker {
	c := &Chunker{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(c)
	}

	// Ensure overlap doesn't exceed chunk size
	if c.overlap >= c.chunkSize {
		c.overlap = c.chunkSize / 4
	}

	return c
}

// ChunkSize returns the window width.
func (c *Chunker) ChunkSize() int { return c.chunkSize }

// Overlap returns the number of characters shared by consecutive windows.
func (c *Chunker) Overlap() int { return c.overlap }

// Step returns how far each window starts after the previous one.
func (c *Chunker) Step() int {
	return max(1, c.chunkSize-c.overlap)
}

// Windows returns the raw window sequence for text. The sequence is lazy and
// may be ranged over any number of times; every pass yields the same windows.
// Empty text yields nothing. The last window may be shorter than the chunk size.
func (c *Chunker) Windows(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		if text == "" {
			return
		}

		// offsets[i] is the byte offset of rune i; the final entry is len(text).
		offsets := make([]int, 0, utf8.RuneCountInString(text)+1)
		for i := range text {
			offsets = append(offsets, i)
		}
		runes := len(offsets)
		offsets = append(offsets, len(text))

		step := c.Step()
		for start := 0; start < runes; start += step {
			end := min(start+c.chunkSize, runes)
			if !yield(text[offsets[start]:offsets[end]]) {
				return
			}
		}
	}
}

// Chunks returns the windows of text with surrounding whitespace trimmed,
// dropping windows that are empty after trimming.
func (c *Chunker) Chunks(text string) []string {
	var out []string
	for w := range c.Windows(text) {
		if t := strings.TrimSpace(w); t != "" {
			out = append(out, t)
		}
	}
	return out
}
