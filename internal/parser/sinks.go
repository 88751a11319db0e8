package parser

import "regexp"

var sinkPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\.innerHTML\s*=`),
	regexp.MustCompile(`document\.write\s*\(`),
	regexp.MustCompile(`eval\s*\(`),
}

// ExtractDOMSinks returns the matched call-site text for innerHTML
// assignments, document.write and eval calls.
func ExtractDOMSinks(text string) []string {
	var results []string
	for _, re := range sinkPatterns {
		results = append(results, re.FindAllString(text, -1)...)
	}
	return results
}
