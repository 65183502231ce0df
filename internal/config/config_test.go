package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	assert.Equal(t, ":9988", cfg.Addr)
	assert.Equal(t, "./data", cfg.DataDir)
	assert.Equal(t, "./wwwdocs", cfg.SourcesDir)
	assert.Equal(t, "doc1", cfg.DefaultDoc)
	assert.Equal(t, "text.txt", cfg.DefaultSource)
	assert.Equal(t, "*", cfg.CORSOrigin)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("HIGHLIGHT_DATA_DIR", "/tmp/hl-data")
	t.Setenv("HIGHLIGHT_DEFAULT_DOC", "lecture")

	cfg := Load()
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "/tmp/hl-data", cfg.DataDir)
	assert.Equal(t, "lecture", cfg.DefaultDoc)
}
