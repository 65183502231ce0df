// Package tokenizer splits document text into the stable token stream the
// highlight engine indexes against. The split rules are deliberately rigid:
// any change to them would shift token indices under existing votes.
package tokenizer

import (
	"html"
	"regexp"
	"strings"
)

// A single alternation: runs of whitespace, or one punctuation/quote/dash
// character. Separators are kept as tokens, never dropped. Go's \s is
// ASCII-only, so the class adds the Unicode space separators (nbsp and
// friends, which &nbsp; decodes to) and NEL.
var reSplit = regexp.MustCompile(`[\s\p{Z}\x{85}]+|[.,:;!?()"\-'\[\]{}«»“”—–…]`)

const punctBreak = `.,:;!?()"'-[]{}«»“”—–…`

var punctSet = func() map[rune]bool {
	set := make(map[rune]bool)
	for _, r := range punctBreak {
		set[r] = true
	}
	return set
}()

var (
	reHTMLBr      = regexp.MustCompile(`(?i)<br\s*/?>`)
	reHTMLCloseNL = regexp.MustCompile(`(?i)</(p|h1|h2|h3|h4|h5|h6|li|div|section|article|blockquote)>\s*`)
	reHTMLTags    = regexp.MustCompile(`(?is)<[^>]+>`)
	reMultiNL     = regexp.MustCompile(`\n{3,}`)
)

// HTMLToPlain converts HTML content to plain text while preserving
// structural breaks: <br> and closing block-level tags become newlines,
// remaining tags are stripped, entities are decoded, and runs of three or
// more newlines collapse to two.
func HTMLToPlain(text string) string {
	if !strings.Contains(text, "<") || !strings.Contains(text, ">") {
		return html.UnescapeString(text)
	}
	text = reHTMLBr.ReplaceAllString(text, "\n")
	text = reHTMLCloseNL.ReplaceAllString(text, "\n")
	text = reHTMLTags.ReplaceAllString(text, "")
	text = html.UnescapeString(text)
	text = reMultiNL.ReplaceAllString(text, "\n\n")
	return text
}

// Tokenize splits text into tokens using the canonical regex. Whitespace
// segments are dropped except for newlines, each of which is emitted as an
// explicit "\n" token. Words and individual punctuation separators are
// emitted verbatim in original order.
func Tokenize(text string) []string {
	plain := HTMLToPlain(text)

	tokens := make([]string, 0, len(plain)/4)
	emit := func(seg string) {
		if seg == "" {
			return
		}
		if strings.TrimSpace(seg) == "" {
			for i := 0; i < strings.Count(seg, "\n"); i++ {
				tokens = append(tokens, "\n")
			}
			return
		}
		tokens = append(tokens, seg)
	}

	last := 0
	for _, loc := range reSplit.FindAllStringIndex(plain, -1) {
		emit(plain[last:loc[0]])
		emit(plain[loc[0]:loc[1]])
		last = loc[1]
	}
	emit(plain[last:])
	return tokens
}

// IsBreakToken reports whether the token breaks highlight ranges: a newline
// or carriage-return variant, or a non-empty token made entirely of
// punctuation from the break set.
func IsBreakToken(token string) bool {
	switch token {
	case "\n", "\r", "\r\n":
		return true
	case "":
		return false
	}
	for _, r := range token {
		if !punctSet[r] {
			return false
		}
	}
	return true
}

// StripBOM removes any U+FEFF byte-order marks from the text.
func StripBOM(text string) string {
	if !strings.ContainsRune(text, '\uFEFF') {
		return text
	}
	return strings.ReplaceAll(text, "\uFEFF", "")
}

// NormalizedText joins tokens into lowercase text for phrase aggregation.
func NormalizedText(tokens []string) string {
	return strings.ToLower(strings.TrimSpace(strings.Join(tokens, " ")))
}
