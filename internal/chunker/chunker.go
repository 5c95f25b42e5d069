// Package chunker splits extracted document text into overlapping chunks
// sized for embedding and full text search.
package chunker

import (
	"strings"
)

// runesPerPage approximates how much extracted text one PDF page yields.
// Only used to label chunks with a page estimate for display.
const runesPerPage = 3000

// Chunk is one piece of document text ready for indexing.
type Chunk struct {
	Text string
	// PageStart is an estimated 1-based page number for the chunk's
	// first rune.
	PageStart int
}

// Chunker accumulates paragraphs into chunks of roughly Size runes.
type Chunker struct {
	// Size is the target chunk length in runes.
	Size int
	// Overlap is how many trailing runes a forced split carries into the
	// next window.
	Overlap int
}

// New returns a Chunker with the given size and overlap. Overlap values
// that are negative or not smaller than size are clamped to size/10.
func New(size, overlap int) *Chunker {
	if size <= 0 {
		size = 500
	}
	if overlap < 0 || overlap >= size {
		overlap = size / 10
	}
	return &Chunker{Size: size, Overlap: overlap}
}

// paragraphJoiner separates accumulated paragraphs inside a chunk. Its
// runes count against the chunk size like any others.
const paragraphJoiner = "\n\n"

// Split breaks text into chunks. Paragraphs (blank-line separated) are
// accumulated until adding the next one, joiner included, would exceed
// Size; paragraphs longer than Size on their own are window-split with
// Overlap runes of backward overlap. Whitespace-only input yields no
// chunks, and no emitted chunk is longer than Size runes.
func (c *Chunker) Split(text string) []Chunk {
	var chunks []Chunk
	var buf []string
	// bufLen is the rune length of the chunk the buffer would produce,
	// joiners included.
	var bufLen int
	// offset tracks how many runes of source text precede the current
	// paragraph, for the page estimate.
	var offset, bufStart int

	joinLen := len([]rune(paragraphJoiner))

	flush := func() {
		if bufLen == 0 {
			return
		}
		chunks = append(chunks, Chunk{
			Text:      strings.Join(buf, paragraphJoiner),
			PageStart: pageEstimate(bufStart),
		})
		buf = buf[:0]
		bufLen = 0
	}

	for _, para := range splitParagraphs(text) {
		n := len([]rune(para))
		sep := 0
		if bufLen > 0 {
			sep = joinLen
		}
		if bufLen > 0 && bufLen+sep+n > c.Size {
			flush()
			sep = 0
		}
		if n > c.Size {
			flush()
			chunks = append(chunks, c.windows(para, offset)...)
		} else {
			if bufLen == 0 {
				bufStart = offset
			}
			buf = append(buf, para)
			bufLen += sep + n
		}
		offset += n
	}
	flush()
	return chunks
}

// windows force-splits an oversized paragraph into Size-rune windows,
// stepping Size-Overlap runes each time.
func (c *Chunker) windows(para string, base int) []Chunk {
	runes := []rune(para)
	step := c.Size - c.Overlap
	var out []Chunk
	for start := 0; start < len(runes); start += step {
		end := start + c.Size
		if end > len(runes) {
			end = len(runes)
		}
		text := strings.TrimSpace(string(runes[start:end]))
		if text != "" {
			out = append(out, Chunk{Text: text, PageStart: pageEstimate(base + start)})
		}
		if end == len(runes) {
			break
		}
	}
	return out
}

func splitParagraphs(text string) []string {
	var out []string
	for _, p := range strings.Split(text, "\n\n") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func pageEstimate(runeOffset int) int {
	return runeOffset/runesPerPage + 1
}
