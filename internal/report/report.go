// Package report builds the immutable scan report and its canonical JSON
// form. Field names are a compatibility contract for consumers of exports.
package report

import (
	"bytes"
	"fmt"
	"io"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
)

// Report is the aggregate result of one scan session.
type Report struct {
	Frameworks   []string `json:"frameworks"`
	UniquePaths  []string `json:"uniquePaths"`
	Endpoints    []string `json:"endpoints"`
	Secrets      []string `json:"secrets"`
	InlineEvents []string `json:"inlineEvents"`
	DOMSinks     []string `json:"domSinks"`
}

// Build merges the session accumulators into a Report. Every slice is copied
// and never nil.
func Build(frameworks, paths, endpoints, secrets, inlineEvents, domSinks []string) Report {
	return Report{
		Frameworks:   clone(frameworks),
		UniquePaths:  clone(paths),
		Endpoints:    clone(endpoints),
		Secrets:      clone(secrets),
		InlineEvents: clone(inlineEvents),
		DOMSinks:     clone(domSinks),
	}
}

// Total returns the number of values across all collections.
func (r Report) Total() int {
	return len(r.Frameworks) + len(r.UniquePaths) + len(r.Endpoints) +
		len(r.Secrets) + len(r.InlineEvents) + len(r.DOMSinks)
}

// Empty reports whether nothing was found.
func (r Report) Empty() bool {
	return r.Total() == 0
}

// Encode serialises r as indented JSON.
func Encode(r Report) ([]byte, error) {
	return json.Marshal(r, jsontext.WithIndent("  "))
}

// Write encodes r to w followed by a newline.
func Write(w io.Writer, r Report) error {
	data, err := Encode(r)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

// Decode parses a report previously produced by Encode. Missing collections
// decode as empty slices.
func Decode(data []byte) (Report, error) {
	var r Report
	if err := json.Unmarshal(bytes.TrimSpace(data), &r); err != nil {
		return Report{}, fmt.Errorf("decode report: %w", err)
	}
	return Build(r.Frameworks, r.UniquePaths, r.Endpoints, r.Secrets, r.InlineEvents, r.DOMSinks), nil
}

func clone(values []string) []string {
	out := make([]string, len(values))
	copy(out, values)
	return out
}
