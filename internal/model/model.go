package model

// Target represents a page to load and scan.
type Target struct {
	URL        string
	Content    string
	Prefetched bool
}

// Category tags an extracted value with the extractor that produced it.
type Category string

const (
	CategoryPath        Category = "path"
	CategoryEndpoint    Category = "endpoint"
	CategorySecret      Category = "secret"
	CategoryDOMSink     Category = "domSink"
	CategoryInlineEvent Category = "inlineEvent"
)

// Categories lists every category in report order.
var Categories = []Category{
	CategoryPath,
	CategoryEndpoint,
	CategorySecret,
	CategoryInlineEvent,
	CategoryDOMSink,
}

// Finding records where a value was first seen during a scan.
type Finding struct {
	Category Category `json:"category"`
	Value    string   `json:"value"`
	Source   string   `json:"source"`
}

// InlineEventAttributes are the inline handler attributes recorded by the
// inline event scan.
var InlineEventAttributes = []string{"onclick", "onmouseover", "onerror", "onload"}

// InlineEvent is an inline event handler attribute found on an element.
type InlineEvent struct {
	Attribute string `json:"attribute"`
	Value     string `json:"value"`
}

// String renders the handler as attr="value".
func (e InlineEvent) String() string {
	return e.Attribute + `="` + e.Value + `"`
}
