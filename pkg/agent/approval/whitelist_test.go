package approval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestURLWhitelistMatching(t *testing.T) {
	wl, err := NewURLWhitelist([]string{
		"*.wikipedia.org",
		"github.com/golang/*",
	})
	require.NoError(t, err)

	tests := []struct {
		name    string
		url     string
		allowed bool
	}{
		{"host glob", "https://en.wikipedia.org", true},
		{"host glob uppercase", "https://EN.Wikipedia.org", true},
		{"path glob", "https://github.com/golang/go", true},
		{"other host", "https://example.com", false},
		{"path outside glob", "https://github.com/other/repo", false},
		{"no scheme", "not a url", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, wl.IsAllowed(tt.url))
		})
	}
}

func TestURLWhitelistEmpty(t *testing.T) {
	wl, err := NewURLWhitelist(nil)
	require.NoError(t, err)
	assert.False(t, wl.IsAllowed("https://example.com"))
}

func TestURLWhitelistInvalidPattern(t *testing.T) {
	_, err := NewURLWhitelist([]string{"[unclosed"})
	assert.Error(t, err)
}

func TestURLWhitelistSkipsBlankPatterns(t *testing.T) {
	wl, err := NewURLWhitelist([]string{"", "  ", "example.com*"})
	require.NoError(t, err)
	assert.Equal(t, []string{"example.com*"}, wl.Patterns())
	assert.True(t, wl.IsAllowed("https://example.com/page"))
}
