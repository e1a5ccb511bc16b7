package callback

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		domain string
		path   string
		want   string
	}{
		{"bare domain", "example.com", "hooks", "https://example.com/hooks/"},
		{"normalized input", "https://example.com/", "/hooks/", "https://example.com/hooks/"},
		{"explicit http kept", "http://localhost:8000", "qstash/webhook", "http://localhost:8000/qstash/webhook/"},
		{"nested path", "example.com", "/qstash/webhook/", "https://example.com/qstash/webhook/"},
		{"repeated slashes", "example.com///", "//hooks//", "https://example.com/hooks/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildURL(tt.domain, tt.path))
		})
	}
}

func TestBuildURLIsIdempotentOverItsOutput(t *testing.T) {
	t.Parallel()

	first := BuildURL("example.com", "hooks")
	assert.Equal(t, first, BuildURL("https://example.com/", "/hooks/"))
	assert.Equal(t, first, BuildURL("https://example.com", "hooks/"))
}

func TestBuilderForceHTTPS(t *testing.T) {
	t.Parallel()

	b := Builder{Domain: "http://example.com", Path: "hooks"}
	assert.Equal(t, "http://example.com/hooks/", b.URL())

	b.ForceHTTPS = true
	assert.Equal(t, "https://example.com/hooks/", b.URL())
}
