package parser

import (
	"strings"

	jsbeautifier "github.com/ditashi/jsbeautifier-go/jsbeautifier"
	"github.com/ditashi/jsbeautifier-go/optargs"
)

const maxBeautifySize = 1_000_000

// Beautify reformats JavaScript so minified bundles are split into lines.
// Very large inputs only get a newline after each statement separator.
func Beautify(content string) string {
	if len(content) > maxBeautifySize {
		replacer := strings.NewReplacer(";", ";\r\n", ",", ",\r\n")
		return replacer.Replace(content)
	}

	options := optargs.MapType{}
	options.Copy(optargs.MapType(jsbeautifier.DefaultOptions()))
	result, err := jsbeautifier.Beautify(&content, options)
	if err != nil {
		return content
	}
	return result
}

// IsScript reports whether a content type denotes JavaScript.
func IsScript(contentType string) bool {
	return strings.Contains(strings.ToLower(contentType), "javascript")
}
