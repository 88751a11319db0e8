package gf

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
)

// WriteText creates a plaintext summary of gf findings.
func WriteText(path string, generatedAt time.Time, rules []string, findings []Finding) error {
	var buf bytes.Buffer

	buf.WriteString("# GoReconDrop gf findings\n")
	buf.WriteString(fmt.Sprintf("# Generated at: %s\n", generatedAt.Format(time.RFC3339)))
	if len(rules) > 0 {
		buf.WriteString(fmt.Sprintf("# Rules: %s\n", strings.Join(rules, ", ")))
	} else {
		buf.WriteString("# Rules: none\n")
	}
	buf.WriteString(fmt.Sprintf("# Total findings: %d\n\n", len(findings)))

	if len(findings) == 0 {
		buf.WriteString("# No gf findings were detected.\n")
	} else {
		for _, finding := range findings {
			buf.WriteString("[Page] ")
			buf.WriteString(finding.Page)
			buf.WriteByte('\n')
			buf.WriteString("[Resource] ")
			buf.WriteString(finding.Resource)
			buf.WriteByte('\n')
			buf.WriteString(fmt.Sprintf("Rules: %s\n", strings.Join(finding.Rules, ", ")))
			buf.WriteString(fmt.Sprintf("%s: %s\n", finding.Category, finding.Value))
			buf.WriteString("Evidence: ")
			buf.WriteString(finding.Evidence)
			buf.WriteString("\n\n")
		}
	}

	return writeFile(path, buf.Bytes())
}

// Print writes one line per finding to w.
func Print(w io.Writer, findings []Finding) {
	for _, finding := range findings {
		fmt.Fprintf(w, "[gf:%s] %s (%s)\n", strings.Join(finding.Rules, ","), finding.Evidence, finding.Resource)
	}
}

type jsonReport struct {
	GeneratedAt time.Time `json:"generated_at"`
	Rules       []string  `json:"rules"`
	Findings    []Finding `json:"findings"`
}

// WriteJSON serialises gf findings to JSON.
func WriteJSON(path string, generatedAt time.Time, rules []string, findings []Finding) error {
	if rules == nil {
		rules = []string{}
	}
	if findings == nil {
		findings = []Finding{}
	}

	data, err := json.Marshal(jsonReport{
		GeneratedAt: generatedAt,
		Rules:       rules,
		Findings:    findings,
	}, jsontext.WithIndent("  "))
	if err != nil {
		return err
	}

	return writeFile(path, append(data, '\n'))
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil && !os.IsExist(err) {
			return err
		}
	}

	return os.WriteFile(path, data, 0o644)
}
