package approval

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/gobwas/glob"
)

// URLWhitelist auto-approves open_url targets matching configured glob
// patterns. Patterns match against the host and against host plus path, so
// "*.wikipedia.org" and "github.com/golang/*" both work as expected.
type URLWhitelist struct {
	patterns []glob.Glob
	raw      []string
}

// NewURLWhitelist compiles the given patterns. An invalid pattern fails the
// whole whitelist; silent partial matching would be worse than an error at
// startup.
func NewURLWhitelist(patterns []string) (*URLWhitelist, error) {
	w := &URLWhitelist{}
	for _, pattern := range patterns {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid whitelist pattern '%s': %w", pattern, err)
		}
		w.patterns = append(w.patterns, g)
		w.raw = append(w.raw, pattern)
	}
	return w, nil
}

// Patterns returns the compiled pattern sources.
func (w *URLWhitelist) Patterns() []string {
	out := make([]string, len(w.raw))
	copy(out, w.raw)
	return out
}

// IsAllowed reports whether the URL matches any whitelist pattern. Malformed
// or host-less URLs never match.
func (w *URLWhitelist) IsAllowed(rawURL string) bool {
	if len(w.patterns) == 0 {
		return false
	}

	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return false
	}

	host := strings.ToLower(u.Host)
	hostAndPath := host + u.Path

	for _, g := range w.patterns {
		if g.Match(host) || g.Match(hostAndPath) {
			return true
		}
	}
	return false
}
