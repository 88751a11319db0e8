package input

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lcalzada-xor/GoReconDrop/internal/config"
	"github.com/lcalzada-xor/GoReconDrop/internal/model"
)

func TestResolveTargetsHTTP(t *testing.T) {
	cfg := config.Config{Input: "https://example.com/login"}
	targets, err := ResolveTargets(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(targets) != 1 {
		t.Fatalf("expected 1 target, got %d", len(targets))
	}
	if targets[0].URL != cfg.Input {
		t.Fatalf("expected target URL %q, got %q", cfg.Input, targets[0].URL)
	}
	if targets[0].Prefetched || IsLocal(targets[0]) {
		t.Fatalf("http targets should be neither prefetched nor local")
	}
}

func TestResolveTargetsViewSource(t *testing.T) {
	targets, err := ResolveTargets(config.Config{Input: "view-source:https://example.com/"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if targets[0].URL != "https://example.com/" {
		t.Fatalf("expected view-source prefix to be stripped, got %q", targets[0].URL)
	}
}

func TestResolveTargetsHTMLFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "index.html")
	// A URL on its own line must not turn an HTML page into a list file.
	page := "<html>\nhttps://example.com/\n<script src=\"app.js\"></script></html>"
	if err := os.WriteFile(file, []byte(page), 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}

	targets, err := ResolveTargets(config.Config{Input: file})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(targets) != 1 {
		t.Fatalf("expected 1 target, got %d", len(targets))
	}
	if !IsLocal(targets[0]) {
		t.Fatalf("expected local file target, got %q", targets[0].URL)
	}

	data, err := ReadLocal(targets[0].URL)
	if err != nil {
		t.Fatalf("ReadLocal returned error: %v", err)
	}
	if data != page {
		t.Fatalf("unexpected contents %q", data)
	}
}

func TestResolveTargetsListFile(t *testing.T) {
	dir := t.TempDir()

	localFile := filepath.Join(dir, "local.html")
	if err := os.WriteFile(localFile, []byte("<html></html>"), 0o644); err != nil {
		t.Fatalf("write local file: %v", err)
	}

	listPath := filepath.Join(dir, "targets.txt")
	content := strings.Join([]string{
		"https://example.com/",
		"# comment",
		filepath.Base(localFile),
		"",
		"missing.html",
		"view-source:https://example.com/account",
	}, "\n")
	if err := os.WriteFile(listPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write list file: %v", err)
	}

	targets, err := ResolveTargets(config.Config{Input: listPath})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(targets) != 3 {
		t.Fatalf("expected 3 targets, got %d", len(targets))
	}
	if targets[0].URL != "https://example.com/" {
		t.Fatalf("unexpected first target %q", targets[0].URL)
	}
	if !IsLocal(targets[1]) {
		t.Fatalf("expected second target to reference local file, got %q", targets[1].URL)
	}
	if targets[2].URL != "https://example.com/account" {
		t.Fatalf("unexpected third target %q", targets[2].URL)
	}
}

func TestResolveTargetsGlob(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.html", "b.html", "ignore.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("<html></html>"), 0o644); err != nil {
			t.Fatalf("write temp file: %v", err)
		}
	}

	targets, err := ResolveTargets(config.Config{Input: filepath.Join(dir, "*.html")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(targets) != 2 {
		t.Fatalf("expected 2 targets, got %d", len(targets))
	}

	if _, err := ResolveTargets(config.Config{Input: filepath.Join(dir, "*.php")}); err == nil {
		t.Fatalf("expected an error for a glob without matches")
	}
}

func TestResolveTargetsMissingFile(t *testing.T) {
	if _, err := ResolveTargets(config.Config{Input: "example.com"}); err == nil {
		t.Fatalf("expected an error for an input that is neither URL nor file")
	}
}

func writeBurp(t *testing.T, items string) string {
	t.Helper()
	file := filepath.Join(t.TempDir(), "burp.xml")
	if err := os.WriteFile(file, []byte("<items>"+items+"</items>"), 0o644); err != nil {
		t.Fatalf("write burp file: %v", err)
	}
	return file
}

func TestResolveTargetsBurpStripsHeaders(t *testing.T) {
	raw := "HTTP/1.1 200 OK\r\nContent-Type: text/html\r\nContent-Length: 34\r\n\r\n<script src=\"/app.js\"></script>abc"
	body := base64.StdEncoding.EncodeToString([]byte(raw))
	file := writeBurp(t, `<item><url>https://example.com/</url><response base64="true">`+body+`</response></item>`)

	targets, err := ResolveTargets(config.Config{Input: file, Burp: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(targets) != 1 {
		t.Fatalf("expected 1 target, got %d", len(targets))
	}

	want := model.Target{URL: "https://example.com/", Content: `<script src="/app.js"></script>abc`, Prefetched: true}
	if targets[0] != want {
		t.Fatalf("unexpected target %+v", targets[0])
	}
}

func TestResolveTargetsBurpPlainResponse(t *testing.T) {
	file := writeBurp(t, `<item><url>https://example.com/a</url><response base64="false"><![CDATA[<p>plain</p>]]></response></item>`)

	targets, err := ResolveTargets(config.Config{Input: file, Burp: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if targets[0].Content != "<p>plain</p>" {
		t.Fatalf("unexpected content %q", targets[0].Content)
	}
}

func TestResolveTargetsBurpRequiresFile(t *testing.T) {
	if _, err := ResolveTargets(config.Config{Input: "https://example.com/", Burp: true}); err == nil {
		t.Fatalf("expected burp mode to reject URL inputs")
	}
}

func TestReadLocalDecodesLatin1(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "page.html")
	if err := os.WriteFile(path, []byte("<button onclick=\"go('caf\xe9')\">x</button>"), 0o644); err != nil {
		t.Fatalf("write page: %v", err)
	}

	content, err := ReadLocal(fileURL(path))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(content, "go('café')") {
		t.Fatalf("expected decoded handler, got %q", content)
	}
}

func TestReadLocalKeepsLateUTF8(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "page.html")
	html := "<html>" + strings.Repeat(" ", 2048) + "<p>naïve</p></html>"
	if err := os.WriteFile(path, []byte(html), 0o644); err != nil {
		t.Fatalf("write page: %v", err)
	}

	content, err := ReadLocal(fileURL(path))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if content != html {
		t.Fatalf("utf-8 content was altered")
	}
}

func TestResolveTargetsBurpDecodesDeclaredCharset(t *testing.T) {
	raw := "HTTP/1.1 200 OK\r\nContent-Type: text/html; charset=iso-8859-1\r\n\r\n<a onclick=\"go('caf\xe9')\">x</a>"
	body := base64.StdEncoding.EncodeToString([]byte(raw))
	file := writeBurp(t, `<item><url>https://example.com/</url><response base64="true">`+body+`</response></item>`)

	targets, err := ResolveTargets(config.Config{Input: file, Burp: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := `<a onclick="go('café')">x</a>`; targets[0].Content != want {
		t.Fatalf("expected %q, got %q", want, targets[0].Content)
	}
}
