// Package scan drives a scan session over a loaded page: it fetches the
// resources the page loaded, runs the extractors over their bodies, records
// inline event handlers, fingerprints frameworks and scans inline scripts.
package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/time/rate"

	"github.com/lcalzada-xor/GoReconDrop/internal/fingerprint"
	"github.com/lcalzada-xor/GoReconDrop/internal/model"
	"github.com/lcalzada-xor/GoReconDrop/internal/network"
	"github.com/lcalzada-xor/GoReconDrop/internal/parser"
	"github.com/lcalzada-xor/GoReconDrop/internal/report"
)

// ErrScanInProgress is returned by Run while another run is active on the
// same Scanner.
var ErrScanInProgress = errors.New("scan already in progress")

// State is the lifecycle state of a Scanner.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateDone
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// Page is a loaded document the scanner can inspect.
type Page interface {
	fingerprint.Prober
	// Location is the document URL used to resolve relative paths.
	Location() *url.URL
	// Resources lists the URLs of the resources the page loaded.
	Resources(ctx context.Context) ([]string, error)
	// InlineEvents returns the listed handler attributes present on any
	// element, marking those elements as a side effect where supported.
	InlineEvents(ctx context.Context, attributes []string) ([]model.InlineEvent, error)
	// InlineScripts returns the text of every script element without src.
	InlineScripts(ctx context.Context) ([]string, error)
}

// Fetcher retrieves a resource body.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (network.Response, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, rawURL string) (network.Response, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, rawURL string) (network.Response, error) {
	return f(ctx, rawURL)
}

// Outcome describes what happened to a candidate resource.
type Outcome int

const (
	OutcomeScanned Outcome = iota
	OutcomeSkipped
	OutcomeFailed
)

// Observer is notified about each resource the scanner attempts.
type Observer interface {
	ResourceStarted(rawURL string)
	ResourceFinished(rawURL string, outcome Outcome, detail string)
}

// Options configure a Scanner.
type Options struct {
	Fetcher                Fetcher
	Observer               Observer
	Limiter                *rate.Limiter
	Scope                  string
	ScopeIncludeSubdomains bool
	Beautify               bool
	Fingerprints           []fingerprint.Fingerprint
	Logger                 *slog.Logger
}

// Result is the outcome of one run.
type Result struct {
	SessionID string
	Page      string
	Report    report.Report
	Findings  []model.Finding
	Scanned   []string
}

// Scanner runs scan sessions. Runs on one Scanner are mutually exclusive.
type Scanner struct {
	opts Options

	mu    sync.Mutex
	state State
}

// New returns an idle Scanner.
func New(opts Options) *Scanner {
	if opts.Fingerprints == nil {
		opts.Fingerprints = fingerprint.Registry()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Scanner{opts: opts}
}

// State returns the current lifecycle state.
func (s *Scanner) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Scanner) begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateRunning {
		return ErrScanInProgress
	}
	s.state = StateRunning
	return nil
}

func (s *Scanner) finish() {
	s.mu.Lock()
	s.state = StateDone
	s.mu.Unlock()
}

// Run performs a full scan of page with a fresh session. Per-resource and
// per-probe failures are logged and skipped; the returned error is only set
// when another run is in progress or ctx is cancelled, in which case the
// partial result is still returned.
func (s *Scanner) Run(ctx context.Context, page Page) (Result, error) {
	if err := s.begin(); err != nil {
		return Result{}, err
	}
	defer s.finish()

	base := page.Location()
	session := newSession(base)
	logger := s.opts.Logger.With("session", session.ID)
	rules := parser.RuleSet{Base: base, Beautify: s.opts.Beautify}

	pageURL := ""
	if base != nil {
		pageURL = base.String()
	}
	logger.Info("scan started", "page", pageURL)

	err := s.run(ctx, page, session, rules, logger)

	result := Result{
		SessionID: session.ID,
		Page:      pageURL,
		Report:    session.Report(),
		Findings:  session.Findings(),
		Scanned:   session.Scanned(),
	}

	logger.Info("scan finished",
		"resources", len(result.Scanned),
		"frameworks", len(result.Report.Frameworks),
		"paths", len(result.Report.UniquePaths),
		"endpoints", len(result.Report.Endpoints),
		"secrets", len(result.Report.Secrets),
		"inline_events", len(result.Report.InlineEvents),
		"dom_sinks", len(result.Report.DOMSinks),
	)

	return result, err
}

func (s *Scanner) run(ctx context.Context, page Page, session *Session, rules parser.RuleSet, logger *slog.Logger) error {
	candidates, err := page.Resources(ctx)
	if err != nil {
		logger.Warn("listing page resources failed", "error", err)
	}

	for _, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.scanResource(ctx, candidate, session, rules, logger)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	pageURL := ""
	if session.Base != nil {
		pageURL = session.Base.String()
	}

	events, err := page.InlineEvents(ctx, model.InlineEventAttributes)
	if err != nil {
		logger.Warn("inline event scan failed", "error", err)
	}
	for _, ev := range events {
		session.record(model.CategoryInlineEvent, ev.String(), pageURL)
	}

	session.frameworks = fingerprint.DetectWith(ctx, s.opts.Fingerprints, page, logger)

	scripts, err := page.InlineScripts(ctx)
	if err != nil {
		logger.Warn("inline script scan failed", "error", err)
	}
	for i, script := range scripts {
		source := pageURL + "#inline-script-" + strconv.Itoa(i+1)
		for _, m := range rules.ScanInline(script) {
			session.record(m.Category, m.Value, source)
		}
	}

	return ctx.Err()
}

func (s *Scanner) scanResource(ctx context.Context, candidate string, session *Session, rules parser.RuleSet, logger *slog.Logger) {
	candidate = strings.TrimSpace(candidate)
	if candidate == "" {
		return
	}

	if !session.markScanned(candidate) {
		logger.Debug("resource already scanned", "url", candidate)
		return
	}

	s.started(candidate)

	if !network.WithinScope(candidate, s.opts.Scope, s.opts.ScopeIncludeSubdomains) {
		logger.Debug("resource out of scope", "url", candidate)
		s.finished(candidate, OutcomeSkipped, "out of scope")
		return
	}

	if s.opts.Fetcher == nil {
		s.finished(candidate, OutcomeFailed, "no fetcher configured")
		return
	}

	if s.opts.Limiter != nil {
		if err := s.opts.Limiter.Wait(ctx); err != nil {
			s.finished(candidate, OutcomeFailed, err.Error())
			return
		}
	}

	resp, err := s.opts.Fetcher.Fetch(ctx, candidate)
	if err != nil {
		logger.Warn("failed to fetch resource", "url", candidate, "error", err)
		s.finished(candidate, OutcomeFailed, err.Error())
		return
	}

	if !resp.OK() {
		logger.Debug("resource returned non-OK status", "url", candidate, "status", resp.Status)
		s.finished(candidate, OutcomeSkipped, fmt.Sprintf("status %d", resp.Status))
		return
	}

	if !Scannable(resp.ContentType) {
		logger.Debug("resource content type not scannable", "url", candidate, "content_type", resp.ContentType)
		s.finished(candidate, OutcomeSkipped, contentTypeLabel(resp.ContentType))
		return
	}

	matches := rules.ScanResource(resp.Body, resp.ContentType)
	for _, m := range matches {
		session.record(m.Category, m.Value, candidate)
	}
	s.finished(candidate, OutcomeScanned, fmt.Sprintf("%d matches", len(matches)))
}

// Scannable reports whether a declared content type indicates text or script
// content.
func Scannable(contentType string) bool {
	lowered := strings.ToLower(contentType)
	return strings.Contains(lowered, "text") || strings.Contains(lowered, "javascript")
}

func contentTypeLabel(contentType string) string {
	if contentType == "" {
		return "no content type"
	}
	return contentType
}

func (s *Scanner) started(rawURL string) {
	if s.opts.Observer != nil {
		s.opts.Observer.ResourceStarted(rawURL)
	}
}

func (s *Scanner) finished(rawURL string, outcome Outcome, detail string) {
	if s.opts.Observer != nil {
		s.opts.Observer.ResourceFinished(rawURL, outcome, detail)
	}
}
