package utils

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitTextShortInput(t *testing.T) {
	assert.Equal(t, []string{"hello world"}, SplitText("  hello world  ", 100, 10))
	assert.Nil(t, SplitText("   ", 100, 10))
}

func TestSplitTextRespectsSizeAndWords(t *testing.T) {
	words := make([]string, 0, 300)
	for i := 0; i < 300; i++ {
		words = append(words, "word")
	}
	text := strings.Join(words, " ")

	chunks := SplitText(text, 100, 20)
	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c), 100)
		for _, w := range strings.Fields(c) {
			assert.Equal(t, "word", w, "no word may be cut")
		}
	}
}

func TestSplitTextPrefersSentenceEnds(t *testing.T) {
	text := strings.Repeat("a", 70) + ". " + strings.Repeat("b", 70) + "."
	chunks := SplitText(text, 90, 0)
	require.Len(t, chunks, 2)
	assert.True(t, strings.HasSuffix(chunks[0], "."))
	assert.True(t, strings.HasPrefix(chunks[1], "b"))
}

func TestSplitTextOverlapCarriesContext(t *testing.T) {
	text := "alpha beta gamma delta epsilon zeta eta theta iota kappa lambda mu"
	chunks := SplitText(text, 30, 12)
	require.Greater(t, len(chunks), 2)
	for i := 1; i < len(chunks); i++ {
		prevWords := strings.Fields(chunks[i-1])
		first := strings.Fields(chunks[i])[0]
		assert.Contains(t, prevWords, first, "chunk %d should start inside the previous one", i)
	}
}

func TestSplitTextHardCutsUnbrokenRuns(t *testing.T) {
	chunks := SplitText(strings.Repeat("x", 250), 100, 0)
	assert.Equal(t, []int{100, 100, 50}, []int{len(chunks[0]), len(chunks[1]), len(chunks[2])})
}
