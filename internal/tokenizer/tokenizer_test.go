package tokenizer

import (
	"strings"
	"testing"
	"unicode"

	"github.com/stretchr/testify/assert"
)

func TestTokenizeWordsAndPunctuation(t *testing.T) {
	tokens := Tokenize("Hello, world!")
	assert.Equal(t, []string{"Hello", ",", "world", "!"}, tokens)
}

func TestTokenizeDropsSpacesKeepsNewlines(t *testing.T) {
	tokens := Tokenize("one two\nthree")
	assert.Equal(t, []string{"one", "two", "\n", "three"}, tokens)

	tokens = Tokenize("a \n\n b")
	assert.Equal(t, []string{"a", "\n", "\n", "b"}, tokens)
}

func TestTokenizeSeparatorsAreIndividualTokens(t *testing.T) {
	tokens := Tokenize(`"quoted"`)
	assert.Equal(t, []string{`"`, "quoted", `"`}, tokens)

	tokens = Tokenize("well-known")
	assert.Equal(t, []string{"well", "-", "known"}, tokens)
}

func TestTokenizeUnicodePunctuation(t *testing.T) {
	tokens := Tokenize("«Да» — нет…")
	assert.Equal(t, []string{"«", "Да", "»", "—", "нет", "…"}, tokens)
}

func TestTokenizeEmpty(t *testing.T) {
	assert.Empty(t, Tokenize(""))
	assert.Empty(t, Tokenize("   \t  "))
}

func TestTokenizeDeterministic(t *testing.T) {
	const text = "The quick (brown) fox, jumps!\nOver the lazy dog."
	first := Tokenize(text)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Tokenize(text))
	}
}

func TestHTMLToPlain(t *testing.T) {
	assert.Equal(t, "line one\nline two", HTMLToPlain("line one<br>line two"))
	assert.Equal(t, "para\n", HTMLToPlain("<p>para</p>"))
	assert.Equal(t, "a & b", HTMLToPlain("a &amp; b"))

	// No angle brackets: entities decoded, nothing else touched.
	assert.Equal(t, "5 < 6", HTMLToPlain("5 &lt; 6"))
}

func TestHTMLToPlainCollapsesNewlines(t *testing.T) {
	out := HTMLToPlain("<p>one</p><p></p><p>two</p>")
	assert.NotContains(t, out, "\n\n\n")
}

func TestTokenizeHTML(t *testing.T) {
	tokens := Tokenize("<h1>Title</h1><p>Body text.</p>")
	assert.Contains(t, tokens, "Title")
	assert.Contains(t, tokens, "Body")
	assert.Contains(t, tokens, ".")
	assert.NotContains(t, tokens, "<h1>")
}

func TestIsBreakToken(t *testing.T) {
	assert.True(t, IsBreakToken("\n"))
	assert.True(t, IsBreakToken("\r\n"))
	assert.True(t, IsBreakToken("."))
	assert.True(t, IsBreakToken(","))
	assert.True(t, IsBreakToken("—"))
	assert.False(t, IsBreakToken(""))
	assert.False(t, IsBreakToken("word"))
	assert.False(t, IsBreakToken("a."))
}

func TestStripBOM(t *testing.T) {
	assert.Equal(t, "text", StripBOM("\uFEFFtext"))
	assert.Equal(t, "text", StripBOM("text"))
	assert.Equal(t, "ab", StripBOM("a\uFEFFb"))
}

func TestNormalizedText(t *testing.T) {
	assert.Equal(t, "the quick fox", NormalizedText([]string{"The", "quick", "fox"}))
}

func TestTokenizeUnicodeWhitespace(t *testing.T) {
	tokens := Tokenize("<p>left&nbsp;right</p>")
	assert.Equal(t, []string{"left", "right", "\n"}, tokens)

	tokens = Tokenize("a b c　d")
	assert.Equal(t, []string{"a", "b", "c", "d"}, tokens)
}

func TestTokenizeRoundTrip(t *testing.T) {
	// Joining non-newline tokens reproduces the input with its whitespace
	// squeezed out: nothing but separators is ever dropped.
	texts := []string{
		"The quick fox jumps over the lazy dog.",
		"Punctuation, of (all) kinds — even «guillemets»!",
		"line one\nline two\r\nline three",
		"так говорил — заратустра…",
		"tabs\tand odd spaces",
	}
	for _, text := range texts {
		var joined strings.Builder
		for _, tok := range Tokenize(text) {
			if tok != "\n" {
				joined.WriteString(tok)
			}
		}
		squeezed := strings.Join(strings.FieldsFunc(text, unicode.IsSpace), "")
		assert.Equal(t, squeezed, joined.String(), "input %q", text)
	}
}
