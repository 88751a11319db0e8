// Package snapshot provides a page backed by static HTML. It lets a scan run
// without a browser: resources come from the markup and fingerprints can only
// be matched through their selectors.
package snapshot

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"

	"github.com/lcalzada-xor/GoReconDrop/internal/fingerprint"
	"github.com/lcalzada-xor/GoReconDrop/internal/model"
	"github.com/lcalzada-xor/GoReconDrop/internal/network"
)

// resourceAttrs lists the elements whose attribute points at a subresource.
var resourceAttrs = []struct {
	selector string
	attr     string
}{
	{"script[src]", "src"},
	{"link[href]", "href"},
	{"img[src]", "src"},
	{"iframe[src]", "src"},
	{"source[src]", "src"},
	{"embed[src]", "src"},
}

// Fetcher retrieves a document body.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (network.Response, error)
}

// Page is a parsed HTML document.
type Page struct {
	doc      *goquery.Document
	location *url.URL
}

// New parses html as the document found at location.
func New(location *url.URL, html string) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return &Page{doc: doc, location: location}, nil
}

// Load fetches rawURL and parses the body. Redirected responses use the
// final URL as the document location.
func Load(ctx context.Context, rawURL string, fetcher Fetcher) (*Page, error) {
	resp, err := fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", rawURL, err)
	}
	if !resp.OK() {
		return nil, fmt.Errorf("load %s: %w: %d", rawURL, network.ErrStatus, resp.Status)
	}

	location := resp.URL
	if location == "" {
		location = rawURL
	}
	parsed, err := url.Parse(location)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", rawURL, err)
	}
	return New(parsed, resp.Body)
}

// Location returns the document URL.
func (p *Page) Location() *url.URL {
	return p.location
}

// Resources lists the absolute URLs referenced by resource elements, in
// document order. The document itself and non-fetchable schemes are left out.
func (p *Page) Resources(context.Context) ([]string, error) {
	self := ""
	if p.location != nil {
		self = p.location.String()
	}

	var out []string
	p.doc.Find(selectorList()).Each(func(_ int, s *goquery.Selection) {
		for _, ra := range resourceAttrs {
			if !s.Is(ra.selector) {
				continue
			}
			raw, _ := s.Attr(ra.attr)
			resolved, ok := network.Resolve(raw, p.location)
			if !ok || !fetchable(resolved) {
				continue
			}
			resolved.Fragment = ""
			if value := resolved.String(); value != self {
				out = append(out, value)
			}
		}
	})
	return out, nil
}

func selectorList() string {
	parts := make([]string, 0, len(resourceAttrs))
	for _, ra := range resourceAttrs {
		parts = append(parts, ra.selector)
	}
	return strings.Join(parts, ", ")
}

func fetchable(u *url.URL) bool {
	switch u.Scheme {
	case "http", "https", "file":
		return true
	default:
		return false
	}
}

// InlineEvents returns the given handler attributes, attribute by attribute
// and in document order within each attribute.
func (p *Page) InlineEvents(_ context.Context, attributes []string) ([]model.InlineEvent, error) {
	var out []model.InlineEvent
	for _, attr := range attributes {
		p.doc.Find("*").Each(func(_ int, s *goquery.Selection) {
			if value, ok := s.Attr(attr); ok {
				out = append(out, model.InlineEvent{Attribute: attr, Value: value})
			}
		})
	}
	return out, nil
}

// InlineScripts returns the text of every script element without src.
func (p *Page) InlineScripts(context.Context) ([]string, error) {
	var out []string
	p.doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		if _, ok := s.Attr("src"); ok {
			return
		}
		out = append(out, s.Text())
	})
	return out, nil
}

// Probe matches the fingerprint selector against the document. Globals need
// a script runtime, so a fingerprint without selector yields ErrNoRuntime.
func (p *Page) Probe(_ context.Context, fp fingerprint.Fingerprint) (bool, error) {
	if fp.Selector == "" {
		if fp.Global != "" {
			return false, fingerprint.ErrNoRuntime
		}
		return false, nil
	}

	matcher, err := cascadia.Compile(fp.Selector)
	if err != nil {
		return false, fmt.Errorf("selector %q: %w", fp.Selector, err)
	}
	return p.doc.FindMatcher(matcher).Length() > 0, nil
}
