package output

import (
	"bytes"
	"html/template"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"

	"github.com/Masterminds/sprig/v3"
)

const templateHTML = `<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>GoReconDrop report</title>
<style>
body { font-family: system-ui, sans-serif; margin: 2rem; background: #f7f7fb; color: #1a1a2e; }
header.summary { margin-bottom: 2rem; }
section.page { background: #fff; border-radius: 8px; padding: 1rem 1.5rem; margin-bottom: 1.5rem; box-shadow: 0 1px 3px rgba(0,0,0,.1); }
h2 a { color: #7d56f4; word-break: break-all; }
.badge { background: #7d56f4; color: #fff; border-radius: 999px; padding: 0 .6rem; font-size: .8rem; }
.failed { color: #ff3838; }
.empty { color: #6b7280; font-style: italic; }
code { word-break: break-all; }
table { border-collapse: collapse; width: 100%; }
td { border-top: 1px solid #eee; padding: .25rem .5rem; vertical-align: top; }
</style>
</head>
<body>
<header class="summary">
<h1>Recon Results</h1>
<p>Generated {{ dateInZone "Mon, 02 Jan 2006 15:04:05 MST" .Meta.GeneratedAt "UTC" }}.
{{ .Meta.TotalPages }} {{ if eq .Meta.TotalPages 1 }}page{{ else }}pages{{ end }},
{{ .Meta.TotalResources }} resources fetched,
{{ .Meta.TotalFindings }} findings.</p>
</header>
{{- range .Results }}
<section class="page">
<h2><a href="{{ .Page }}" target="_blank" rel="nofollow noopener noreferrer">{{ .Page }}</a>
{{- if not .Err }} <span class="badge">{{ .Report.Total }} findings</span>{{ end }}</h2>
{{- if .Err }}
<p class="failed">Scan failed: {{ .Err }}</p>
{{- else }}
<p><strong>Detected Frameworks:</strong> {{ .Report.Frameworks | default (list "None") | join ", " }}</p>
{{- range sections .Report }}
<h3>{{ .Title }} <span class="badge">{{ len .Values }}</span></h3>
{{- if .Values }}
<ul>{{ range .Values }}<li><code>{{ . }}</code></li>{{ end }}</ul>
{{- else }}
<p class="empty">None found.</p>
{{- end }}
{{- end }}
{{- with .Sources }}
<h3>By resource</h3>
<table>
{{- range . }}
<tr><td><code>{{ .Source | trunc 120 }}</code></td><td>{{ range .Findings }}<div>{{ .Category | toString | upper }} <code>{{ .Value }}</code></div>{{ end }}</td></tr>
{{- end }}
</table>
{{- end }}
{{- end }}
</section>
{{- else }}
<p class="empty">No pages were scanned.</p>
{{- end }}
</body>
</html>
`

var reportTemplate = template.Must(template.New("report").
	Funcs(sprig.FuncMap()).
	Funcs(template.FuncMap{"sections": Sections}).
	Parse(templateHTML))

// RenderHTML renders the HTML report for the provided results.
func RenderHTML(results []PageResult, meta Metadata) ([]byte, error) {
	var buf bytes.Buffer
	data := struct {
		Meta    Metadata
		Results []PageResult
	}{Meta: meta, Results: results}

	if err := reportTemplate.Execute(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// SaveHTML renders the HTML report to the provided output path.
func SaveHTML(path string, results []PageResult, meta Metadata) error {
	if meta.GeneratedAt.IsZero() {
		meta.GeneratedAt = time.Now()
	}

	data, err := RenderHTML(results, meta)
	if err != nil {
		return err
	}
	return writeFile(path, data)
}

// OpenInBrowser asks the desktop to open the report at path.
func OpenInBrowser(path string) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return
	}
	fileURL := "file://" + filepath.ToSlash(abs)
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "linux":
		cmd = exec.Command("xdg-open", fileURL)
	case "darwin":
		cmd = exec.Command("open", fileURL)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", fileURL)
	default:
		return
	}

	_ = cmd.Start()
}
