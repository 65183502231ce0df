// Package config reads the server configuration from environment variables.
package config

import "os"

type Config struct {
	Addr          string
	DataDir       string
	SourcesDir    string
	DefaultDoc    string
	DefaultSource string
	CORSOrigin    string
}

func Load() Config {
	return Config{
		Addr:          ":" + getenv("PORT", "9988"),
		DataDir:       getenv("HIGHLIGHT_DATA_DIR", "./data"),
		SourcesDir:    getenv("HIGHLIGHT_SOURCES_DIR", "./wwwdocs"),
		DefaultDoc:    getenv("HIGHLIGHT_DEFAULT_DOC", "doc1"),
		DefaultSource: getenv("HIGHLIGHT_DEFAULT_SOURCE", "text.txt"),
		CORSOrigin:    getenv("HIGHLIGHT_CORS_ORIGIN", "*"),
	}
}

func getenv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}
