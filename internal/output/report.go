package output

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lcalzada-xor/GoReconDrop/internal/model"
	"github.com/lcalzada-xor/GoReconDrop/internal/report"
)

// PageResult is everything the presentation layer shows for one page.
type PageResult struct {
	Page      string
	SessionID string
	Report    report.Report
	Findings  []model.Finding
	Scanned   []string
	Err       error
}

// SourceGroup holds the findings first seen in one resource.
type SourceGroup struct {
	Source   string
	Findings []model.Finding
}

// Sources groups the findings by source, in the order sources first appear.
func (r PageResult) Sources() []SourceGroup {
	var groups []SourceGroup
	index := make(map[string]int)
	for _, f := range r.Findings {
		i, ok := index[f.Source]
		if !ok {
			i = len(groups)
			index[f.Source] = i
			groups = append(groups, SourceGroup{Source: f.Source})
		}
		groups[i].Findings = append(groups[i].Findings, f)
	}
	return groups
}

// Metadata captures aggregated information about a run.
type Metadata struct {
	GeneratedAt    time.Time
	TotalPages     int
	FailedPages    int
	TotalResources int
	TotalFindings  int
}

// BuildMetadata creates a Metadata value from the provided results.
func BuildMetadata(results []PageResult, generatedAt time.Time) Metadata {
	meta := Metadata{GeneratedAt: generatedAt, TotalPages: len(results)}
	for _, r := range results {
		if r.Err != nil {
			meta.FailedPages++
		}
		meta.TotalResources += len(r.Scanned)
		meta.TotalFindings += r.Report.Total()
	}
	return meta
}

// WriteRaw writes every page's findings, grouped by the resource they were
// found in, to a plaintext file.
func WriteRaw(path string, results []PageResult, meta Metadata) error {
	var buf bytes.Buffer

	buf.WriteString("# GoReconDrop raw results\n")
	buf.WriteString(fmt.Sprintf("# Generated at: %s\n", meta.GeneratedAt.Format(time.RFC3339)))
	buf.WriteString(fmt.Sprintf("# Pages scanned: %d\n", meta.TotalPages))
	buf.WriteString(fmt.Sprintf("# Resources fetched: %d\n", meta.TotalResources))
	buf.WriteString(fmt.Sprintf("# Total findings: %d\n\n", meta.TotalFindings))

	for _, result := range results {
		buf.WriteString("[Page] ")
		buf.WriteString(result.Page)
		buf.WriteByte('\n')

		if result.Err != nil {
			buf.WriteString("#   Scan failed: ")
			buf.WriteString(result.Err.Error())
			buf.WriteString("\n\n")
			continue
		}

		if len(result.Report.Frameworks) > 0 {
			buf.WriteString("# Frameworks: ")
			buf.WriteString(strings.Join(result.Report.Frameworks, ", "))
			buf.WriteByte('\n')
		}

		groups := result.Sources()
		if len(groups) == 0 {
			buf.WriteString("#   No findings.\n\n")
			continue
		}

		for _, group := range groups {
			buf.WriteString("[Resource] ")
			buf.WriteString(group.Source)
			buf.WriteByte('\n')
			for _, f := range group.Findings {
				buf.WriteString(fmt.Sprintf("%-12s %s\n", f.Category, f.Value))
			}
			buf.WriteByte('\n')
		}
	}

	return writeFile(path, buf.Bytes())
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil && !os.IsExist(err) {
			return err
		}
	}

	return os.WriteFile(path, data, 0o644)
}
