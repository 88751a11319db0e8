package network

import (
	"net"
	"net/url"
	"strings"
)

// Resolve resolves raw against base following standard URL reference rules.
// Relative, absolute and protocol-relative references are supported. Malformed
// input, a missing base or a result without scheme yields (nil, false).
func Resolve(raw string, base *url.URL) (*url.URL, bool) {
	candidate := strings.TrimSpace(raw)
	if candidate == "" || base == nil || !base.IsAbs() {
		return nil, false
	}

	ref, err := url.Parse(escapeStrayPercent(candidate))
	if err != nil {
		return nil, false
	}

	resolved := base.ResolveReference(ref)
	if resolved == nil || resolved.Scheme == "" {
		return nil, false
	}

	if (resolved.Scheme == "http" || resolved.Scheme == "https") && resolved.Host == "" {
		return nil, false
	}

	return resolved, true
}

// escapeStrayPercent encodes every "%" that does not start a valid escape
// sequence, the way browsers keep such references instead of rejecting them.
func escapeStrayPercent(raw string) string {
	if !strings.Contains(raw, "%") {
		return raw
	}

	var b strings.Builder
	b.Grow(len(raw) + 4)
	for i := 0; i < len(raw); i++ {
		if raw[i] == '%' && (i+2 >= len(raw) || !isHex(raw[i+1]) || !isHex(raw[i+2])) {
			b.WriteString("%25")
			continue
		}
		b.WriteByte(raw[i])
	}
	return b.String()
}

func isHex(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}

// ResolveString is Resolve for string bases. It returns the resolved URL in
// its serialised form.
func ResolveString(raw, base string) (string, bool) {
	baseURL, err := url.Parse(strings.TrimSpace(base))
	if err != nil {
		return "", false
	}

	resolved, ok := Resolve(raw, baseURL)
	if !ok {
		return "", false
	}
	return resolved.String(), true
}

// WithinScope reports whether resource is hosted on the scope host. Scope may
// be given with or without scheme. When includeSubdomains is set, subdomains
// of the scope host also match.
func WithinScope(resource, scope string, includeSubdomains bool) bool {
	scope = strings.TrimSpace(scope)
	if scope == "" {
		return true
	}

	if !strings.Contains(scope, "://") {
		scope = "https://" + scope
	}

	scopeURL, err := url.Parse(scope)
	if err != nil || scopeURL.Hostname() == "" {
		return false
	}

	resourceURL, err := url.Parse(resource)
	if err != nil {
		return false
	}

	host := strings.ToLower(resourceURL.Hostname())
	want := strings.ToLower(scopeURL.Hostname())
	if host == "" {
		return false
	}

	if host == want {
		return true
	}

	if includeSubdomains && net.ParseIP(want) == nil {
		return strings.HasSuffix(host, "."+want)
	}

	return false
}
