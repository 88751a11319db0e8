// Package parser holds the pattern based extractors run over fetched bodies
// and inline scripts. Every extractor is a pure function of its input text.
package parser

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/lcalzada-xor/GoReconDrop/internal/network"
)

// pathBody matches a quoted literal starting with "/", "./" or "../" that
// contains no whitespace (including the BOM), quotes, angle brackets or
// braces.
const pathBody = `
  ['"]
  (
    (?:/|\.\./|\./)
    [^'"<>{}\s\v\p{Z}\x{FEFF}]+
  )
  ['"]
`

// apiBody matches single-argument call sites taking an absolute http(s) URL
// literal.
const apiBody = `
  (?:fetch|XMLHttpRequest|ajax)
  \(
  ["'` + "`" + `]
  (https?://[^"'` + "`" + `]+)
  ["'` + "`" + `]
  \)
`

var (
	pathRegex = regexp.MustCompile(compactPattern(pathBody))
	apiRegex  = regexp.MustCompile(compactPattern(apiBody))
)

func compactPattern(pattern string) string {
	var builder strings.Builder
	for _, line := range strings.Split(pattern, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		builder.WriteString(trimmed)
	}
	return builder.String()
}

// ExtractPaths returns every quoted path-like literal in text resolved against
// base. Literals that do not resolve to an absolute URL are dropped.
func ExtractPaths(text string, base *url.URL) []string {
	matches := pathRegex.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}

	results := make([]string, 0, len(matches))
	for _, m := range matches {
		resolved, ok := network.Resolve(m[1], base)
		if !ok {
			continue
		}
		results = append(results, resolved.String())
	}
	return results
}

// ExtractAPIs returns the URL literal of every fetch, XMLHttpRequest or ajax
// call site with a single absolute URL argument.
func ExtractAPIs(text string) []string {
	matches := apiRegex.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}

	results := make([]string, 0, len(matches))
	for _, m := range matches {
		results = append(results, m[1])
	}
	return results
}
