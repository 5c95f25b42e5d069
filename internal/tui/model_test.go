package tui

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHighlightBestSentence(t *testing.T) {
	text := "The input stage uses a pi filter. The buck converter switches at 2 MHz. Thermal limits apply."

	got := highlightBestSentence(text, "buck converter switching")

	// The middle sentence shares the most query tokens.
	assert.Contains(t, got, "buck converter")
	idx := strings.Index(got, "The buck converter")
	assert.Greater(t, idx, 0)
}

func TestHighlightBestSentenceEmptyInputs(t *testing.T) {
	assert.Equal(t, "  ", highlightBestSentence("  ", "query"))
	assert.Equal(t, "no sentence markers here", highlightBestSentence("no sentence markers here", ""))
}

func TestOverlapCountsDistinctTokens(t *testing.T) {
	q := tokenSet("buck converter")
	assert.Equal(t, 2, overlap(q, "buck buck converter noise"))
	assert.Equal(t, 0, overlap(q, "unrelated words entirely"))
}
