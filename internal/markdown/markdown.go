// Package markdown renders Markdown source into HTML for tokenization and
// for the /api/text endpoint.
package markdown

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// Headings, lists, emphasis, and rules come with the defaults; GFM adds the
// table-style extras. The instance is stateless across conversions.
var md = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
)

// Render converts Markdown text into HTML.
func Render(source string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(source), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// IsMarkdownName reports whether the source filename should be rendered
// before tokenization.
func IsMarkdownName(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".md")
}
