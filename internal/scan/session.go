package scan

import (
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/lcalzada-xor/GoReconDrop/internal/model"
	"github.com/lcalzada-xor/GoReconDrop/internal/report"
)

// orderedSet keeps unique values in insertion order.
type orderedSet struct {
	index  map[string]struct{}
	values []string
}

func newOrderedSet() *orderedSet {
	return &orderedSet{index: make(map[string]struct{})}
}

func (s *orderedSet) add(value string) bool {
	if _, ok := s.index[value]; ok {
		return false
	}
	s.index[value] = struct{}{}
	s.values = append(s.values, value)
	return true
}

func (s *orderedSet) list() []string {
	out := make([]string, len(s.values))
	copy(out, s.values)
	return out
}

// Session holds the accumulators of a single scan. A new Session is created
// for every run and never shared between runs.
type Session struct {
	ID   string
	Base *url.URL

	scanned    *orderedSet
	categories map[model.Category]*orderedSet
	findings   []model.Finding
	frameworks []string
}

func newSession(base *url.URL) *Session {
	s := &Session{
		ID:         uuid.NewString(),
		Base:       base,
		scanned:    newOrderedSet(),
		categories: make(map[model.Category]*orderedSet, len(model.Categories)),
	}
	for _, c := range model.Categories {
		s.categories[c] = newOrderedSet()
	}
	return s
}

// markScanned records rawURL in the scanned set. It returns false when the
// URL was already present.
func (s *Session) markScanned(rawURL string) bool {
	return s.scanned.add(rawURL)
}

// record stores value under category. Invalid UTF-8 is replaced so the
// report always encodes. The first source a value is seen in is
// kept as its finding.
func (s *Session) record(category model.Category, value, source string) {
	value = strings.ToValidUTF8(value, "\uFFFD")
	if value == "" {
		return
	}
	set, ok := s.categories[category]
	if !ok {
		return
	}
	if set.add(value) {
		s.findings = append(s.findings, model.Finding{Category: category, Value: value, Source: source})
	}
}

// Scanned returns the fetched resource URLs in fetch order.
func (s *Session) Scanned() []string {
	return s.scanned.list()
}

// Findings returns a copy of the recorded findings in discovery order.
func (s *Session) Findings() []model.Finding {
	out := make([]model.Finding, len(s.findings))
	copy(out, s.findings)
	return out
}

// Report builds the immutable report from the accumulators.
func (s *Session) Report() report.Report {
	return report.Build(
		s.frameworks,
		s.categories[model.CategoryPath].list(),
		s.categories[model.CategoryEndpoint].list(),
		s.categories[model.CategorySecret].list(),
		s.categories[model.CategoryInlineEvent].list(),
		s.categories[model.CategoryDOMSink].list(),
	)
}
