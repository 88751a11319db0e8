package input

import (
	"bufio"
	"bytes"
	"encoding/base64"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html/charset"

	"github.com/lcalzada-xor/GoReconDrop/internal/config"
	"github.com/lcalzada-xor/GoReconDrop/internal/model"
)

// ResolveTargets returns the pages to scan based on the provided configuration.
// The input may be a page URL, a list file of URLs and paths, a local HTML
// file, a glob of HTML files or, with --burp, a Burp Suite XML export.
func ResolveTargets(cfg config.Config) ([]model.Target, error) {
	input := strings.TrimSpace(cfg.Input)

	if strings.HasPrefix(input, "view-source:") {
		input = input[len("view-source:"):]
	}

	if isURLInput(input) {
		if cfg.Burp {
			return nil, errors.New("burp mode requires a file input")
		}
		return []model.Target{{URL: input}}, nil
	}

	if cfg.Burp {
		return parseBurpFile(input)
	}

	if strings.Contains(input, "*") {
		return resolveGlob(input)
	}

	if info, err := os.Stat(input); err == nil {
		if info.IsDir() {
			return nil, errors.New("directories require a wildcard (e.g. pages/*.html)")
		}
		abs, err := filepath.Abs(input)
		if err != nil {
			return nil, err
		}

		if !isHTMLFile(abs) {
			if targets, ok, err := parseTargetsFromFile(abs); err != nil {
				return nil, err
			} else if ok {
				return targets, nil
			}
		}

		return []model.Target{{URL: fileURL(abs)}}, nil
	}

	return nil, errors.New("file could not be found (maybe you forgot to add http/https)")
}

type burpItem struct {
	URL      string `xml:"url"`
	Response struct {
		Base64 string `xml:"base64,attr"`
		Text   string `xml:",chardata"`
	} `xml:"response"`
}

type burpDocument struct {
	Items []burpItem `xml:"item"`
}

func parseBurpFile(path string) ([]model.Target, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var doc burpDocument
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse burp export: %w", err)
	}

	var targets []model.Target
	for _, item := range doc.Items {
		raw := []byte(item.Response.Text)
		if !strings.EqualFold(item.Response.Base64, "false") {
			raw, err = base64.StdEncoding.DecodeString(strings.TrimSpace(item.Response.Text))
			if err != nil {
				return nil, fmt.Errorf("decode response for %s: %w", item.URL, err)
			}
		}
		if len(raw) == 0 {
			continue
		}
		targets = append(targets, model.Target{URL: strings.TrimSpace(item.URL), Content: responseBody(raw), Prefetched: true})
	}

	if len(targets) == 0 {
		return nil, errors.New("burp export does not contain any responses")
	}

	return targets, nil
}

// responseBody strips the status line and headers from a raw HTTP response
// and decodes the body to UTF-8 using the declared or sniffed charset. Input
// that does not parse as a response is decoded as a bare document.
func responseBody(raw []byte) string {
	if !bytes.HasPrefix(raw, []byte("HTTP/")) {
		return decodeHTML(raw, "")
	}

	resp, err := http.ReadResponse(bufio.NewReader(bytes.NewReader(raw)), nil)
	if err != nil {
		return decodeHTML(raw, "")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil && len(body) == 0 {
		return decodeHTML(raw, "")
	}
	return decodeHTML(body, resp.Header.Get("Content-Type"))
}

// decodeHTML converts an HTML document to UTF-8. The encoding comes from the
// content type, a BOM or a meta tag. Undeclared documents that are valid
// UTF-8 are kept as is, anything else falls back to windows-1252.
func decodeHTML(data []byte, contentType string) string {
	enc, name, _ := charset.DetermineEncoding(data, contentType)
	if name == "utf-8" || (name == "windows-1252" && utf8.Valid(data)) {
		return strings.ToValidUTF8(string(data), "\uFFFD")
	}

	decoded, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return strings.ToValidUTF8(string(data), "\uFFFD")
	}
	return string(decoded)
}

func resolveGlob(pattern string) ([]model.Target, error) {
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, err
	}

	var targets []model.Target
	for _, path := range matches {
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			abs, err := filepath.Abs(path)
			if err != nil {
				return nil, err
			}
			targets = append(targets, model.Target{URL: fileURL(abs)})
		}
	}

	if len(targets) == 0 {
		return nil, errors.New("input with wildcard does not match any files")
	}

	return targets, nil
}

func parseTargetsFromFile(path string) ([]model.Target, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false, err
	}

	lines := strings.Split(string(data), "\n")
	baseDir := filepath.Dir(path)
	var targets []model.Target

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		if strings.HasPrefix(trimmed, "view-source:") {
			trimmed = strings.TrimSpace(trimmed[len("view-source:"):])
			if trimmed == "" {
				continue
			}
		}

		if isURLInput(trimmed) {
			targets = append(targets, model.Target{URL: trimmed})
			continue
		}

		candidate := trimmed
		if !filepath.IsAbs(candidate) {
			candidate = filepath.Join(baseDir, candidate)
		}

		info, err := os.Stat(candidate)
		if err != nil || info.IsDir() {
			continue
		}

		abs, err := filepath.Abs(candidate)
		if err != nil {
			return nil, false, err
		}
		targets = append(targets, model.Target{URL: fileURL(abs)})
	}

	if len(targets) == 0 {
		return nil, false, nil
	}

	return targets, true, nil
}

func isURLInput(value string) bool {
	lowered := strings.ToLower(value)
	for _, prefix := range []string{"http://", "https://", "file://"} {
		if strings.HasPrefix(lowered, prefix) {
			return true
		}
	}
	return false
}

func isHTMLFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm", ".xhtml":
		return true
	default:
		return false
	}
}

func fileURL(abs string) string {
	path := filepath.ToSlash(abs)
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return (&url.URL{Scheme: "file", Path: path}).String()
}

// IsLocal reports whether the target points at a file on disk.
func IsLocal(t model.Target) bool {
	return strings.HasPrefix(strings.ToLower(t.URL), "file://")
}

// ReadLocal resolves a file:// URL to a path and returns its contents decoded
// to UTF-8.
func ReadLocal(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	path := u.Path
	if path == "" {
		path = strings.TrimPrefix(rawURL, "file://")
	}
	if runtime.GOOS == "windows" && strings.HasPrefix(path, "/") {
		path = strings.TrimPrefix(path, "/")
	}
	data, err := os.ReadFile(filepath.FromSlash(path))
	if err != nil {
		return "", err
	}
	return decodeHTML(data, ""), nil
}
