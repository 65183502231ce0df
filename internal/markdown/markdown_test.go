package markdown

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderBasic(t *testing.T) {
	out, err := Render("# Title\n\nSome *emphasis* here.")
	require.NoError(t, err)
	assert.Contains(t, out, "<h1>Title</h1>")
	assert.Contains(t, out, "<em>emphasis</em>")
}

func TestRenderGFMTable(t *testing.T) {
	out, err := Render("| a | b |\n|---|---|\n| 1 | 2 |")
	require.NoError(t, err)
	assert.Contains(t, out, "<table>")
}

func TestIsMarkdownName(t *testing.T) {
	assert.True(t, IsMarkdownName("notes.md"))
	assert.True(t, IsMarkdownName("NOTES.MD"))
	assert.False(t, IsMarkdownName("text.txt"))
	assert.False(t, IsMarkdownName("md"))
}
