package output

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/lcalzada-xor/GoReconDrop/internal/report"
)

// JSONPaths returns one output path per page. A single page writes to path
// itself; several pages get an index suffix before the extension.
func JSONPaths(path string, pages int) []string {
	if pages <= 1 {
		return []string{path}
	}

	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	paths := make([]string, pages)
	for i := range paths {
		paths[i] = fmt.Sprintf("%s-%d%s", stem, i+1, ext)
	}
	return paths
}

// WriteJSON exports each successfully scanned page's report to its own file
// and returns the paths written.
func WriteJSON(path string, results []PageResult) ([]string, error) {
	paths := JSONPaths(path, len(results))

	var written []string
	for i, result := range results {
		if result.Err != nil {
			continue
		}

		var buf bytes.Buffer
		if err := report.Write(&buf, result.Report); err != nil {
			return written, fmt.Errorf("encode report for %s: %w", result.Page, err)
		}
		if err := writeFile(paths[i], buf.Bytes()); err != nil {
			return written, err
		}
		written = append(written, paths[i])
	}
	return written, nil
}
