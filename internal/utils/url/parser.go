package urlutil

import (
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// ValidateURL performs comprehensive URL validation
func ValidateURL(urlStr string) error {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("invalid URL scheme: must be http or https, got %s", parsed.Scheme)
	}

	if parsed.Host == "" {
		return fmt.Errorf("invalid URL: missing host")
	}

	return nil
}

// ResolveURL resolves a possibly-relative href against a base URL and returns a string
func ResolveURL(base, href string) string {
	if href == "" {
		return base
	}
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if u.IsAbs() {
		return href
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return href
	}
	return baseURL.ResolveReference(u).String()
}

// UnwrapRedirect returns the destination of a redirector link such as
// https://www.google.com/url?q=https://example.com or /maps/url?url=...
// Only relative links and links on a map-service host count as redirectors;
// anything else is returned unchanged.
func UnwrapRedirect(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if !strings.HasSuffix(u.Path, "/url") {
		return raw
	}
	if u.Host != "" && !IsMapServiceHost(u.Hostname()) {
		return raw
	}
	q := u.Query()
	for _, key := range []string{"url", "q"} {
		if v := strings.TrimSpace(q.Get(key)); v != "" {
			return v
		}
	}
	return raw
}

// NormalizeWebsite turns a listing href into a canonical absolute website URL.
// It returns "" when the href does not point at a business website.
func NormalizeWebsite(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	raw = UnwrapRedirect(raw)
	lower := strings.ToLower(raw)
	switch {
	case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"):
	case strings.HasPrefix(lower, "//"):
		raw = "https:" + raw
	case strings.HasPrefix(lower, "/"), strings.HasPrefix(lower, "tel:"),
		strings.HasPrefix(lower, "mailto:"), strings.HasPrefix(lower, "javascript:"):
		return ""
	default:
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}
	if IsMapServiceHost(u.Hostname()) {
		return ""
	}
	return u.String()
}

// IsMapServiceHost reports whether host belongs to the map service itself
// (google.com, google.co.uk, maps.app.goo.gl, g.page and friends).
func IsMapServiceHost(host string) bool {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	if host == "" {
		return false
	}
	switch host {
	case "goo.gl", "g.page", "g.co":
		return true
	}
	if strings.HasSuffix(host, ".goo.gl") || strings.HasSuffix(host, ".g.page") {
		return true
	}

	site, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return false
	}
	return strings.HasPrefix(site, "google.") || site == "gstatic.com" || site == "googleusercontent.com"
}
