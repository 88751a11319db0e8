package parser

import (
	"net/url"

	"github.com/lcalzada-xor/GoReconDrop/internal/model"
)

// Match is a single extracted value tagged with its category.
type Match struct {
	Category model.Category
	Value    string
}

// RuleSet binds the extractors to the document location used to resolve
// path literals.
type RuleSet struct {
	Base     *url.URL
	Beautify bool
}

// NewRuleSet returns a RuleSet resolving paths against base.
func NewRuleSet(base *url.URL) RuleSet {
	return RuleSet{Base: base}
}

// ScanResource runs the path, API, secret and DOM sink extractors over a
// fetched resource body.
func (r RuleSet) ScanResource(text, contentType string) []Match {
	if r.Beautify && IsScript(contentType) {
		text = Beautify(text)
	}

	var out []Match
	out = appendMatches(out, model.CategoryPath, ExtractPaths(text, r.Base))
	out = appendMatches(out, model.CategoryEndpoint, ExtractAPIs(text))
	out = appendMatches(out, model.CategorySecret, ExtractSecrets(text))
	out = appendMatches(out, model.CategoryDOMSink, ExtractDOMSinks(text))
	return out
}

// ScanInline runs only the DOM sink extractor, as applied to inline scripts.
func (r RuleSet) ScanInline(text string) []Match {
	return appendMatches(nil, model.CategoryDOMSink, ExtractDOMSinks(text))
}

func appendMatches(out []Match, category model.Category, values []string) []Match {
	for _, v := range values {
		if v == "" {
			continue
		}
		out = append(out, Match{Category: category, Value: v})
	}
	return out
}
