package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/term"
	"golang.org/x/time/rate"

	"github.com/lcalzada-xor/GoReconDrop/internal/browser"
	"github.com/lcalzada-xor/GoReconDrop/internal/config"
	"github.com/lcalzada-xor/GoReconDrop/internal/gf"
	"github.com/lcalzada-xor/GoReconDrop/internal/input"
	"github.com/lcalzada-xor/GoReconDrop/internal/model"
	"github.com/lcalzada-xor/GoReconDrop/internal/network"
	"github.com/lcalzada-xor/GoReconDrop/internal/output"
	"github.com/lcalzada-xor/GoReconDrop/internal/scan"
	"github.com/lcalzada-xor/GoReconDrop/internal/snapshot"
)

func main() {
	cfg, err := config.ParseFlags()
	if err != nil {
		exitWithError(err)
	}

	logger := newLogger(os.Stderr, cfg.Verbose)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := runner{
		cfg:          cfg,
		logger:       logger,
		stdout:       os.Stdout,
		progress:     os.Stderr,
		showProgress: !cfg.Verbose && term.IsTerminal(int(os.Stderr.Fd())),
		useBrowser:   !cfg.Static && browser.IsAvailable(),
		openReport:   true,
	}
	if !cfg.Static && !app.useBrowser {
		logger.Warn("no Chromium based browser found, scanning static HTML instead")
	}

	if err := app.run(ctx); err != nil {
		exitWithError(err)
	}
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

type runner struct {
	cfg          config.Config
	logger       *slog.Logger
	stdout       io.Writer
	progress     io.Writer
	showProgress bool
	useBrowser   bool
	openReport   bool
}

func (r runner) run(ctx context.Context) error {
	targets, err := input.ResolveTargets(r.cfg)
	if err != nil {
		return err
	}

	client, err := network.NewClient(r.cfg)
	if err != nil {
		return err
	}

	var defs []gf.Definition
	if r.cfg.GFAll || len(r.cfg.GFPatterns) > 0 {
		defs, err = gf.LoadDefinitions(r.cfg.GFPatterns, r.cfg.GFAll)
		if err != nil {
			return err
		}
	}

	var panel *output.Panel
	if r.cfg.HasOutput(config.OutputCLI) {
		panel = output.NewPanel(r.stdout, r.cfg.NoColor)
	}

	results := make([]output.PageResult, 0, len(targets))
	for _, t := range targets {
		if ctx.Err() != nil {
			r.logger.Warn("scan interrupted", "remaining", len(targets)-len(results))
			break
		}

		result := r.scanTarget(ctx, t, client)
		results = append(results, result)
		if panel != nil {
			panel.Print(result)
		}
	}

	return r.writeOutputs(results, defs)
}

func (r runner) scanTarget(ctx context.Context, t model.Target, client *network.Client) output.PageResult {
	page, fetcher, closePage, err := r.openPage(ctx, t, client)
	if err != nil {
		r.logger.Error("page could not be loaded", "page", t.URL, "error", err)
		return output.PageResult{Page: t.URL, Err: err}
	}
	defer closePage()

	opts := scan.Options{
		Fetcher:                fetcher,
		Scope:                  r.cfg.Scope,
		ScopeIncludeSubdomains: r.cfg.ScopeIncludeSubdomains,
		Beautify:               r.cfg.Beautify,
		Logger:                 r.logger,
	}
	if r.cfg.Rate > 0 {
		opts.Limiter = rate.NewLimiter(rate.Limit(r.cfg.Rate), 1)
	}

	var progress *output.ProgressLog
	if r.showProgress {
		progress = output.NewProgressLog(r.progress, t.URL)
		opts.Observer = progress
	}

	res, err := scan.New(opts).Run(ctx, page)
	progress.Stop()

	result := output.PageResult{
		Page:      t.URL,
		SessionID: res.SessionID,
		Report:    res.Report,
		Findings:  res.Findings,
		Scanned:   res.Scanned,
	}
	if res.Page != "" {
		result.Page = res.Page
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		result.Err = err
	}
	return result
}

// openPage loads the target as a live browser page when possible. Prefetched
// responses, local files and --static runs are parsed as static snapshots.
func (r runner) openPage(ctx context.Context, t model.Target, client *network.Client) (scan.Page, scan.Fetcher, func(), error) {
	noop := func() {}

	switch {
	case t.Prefetched:
		base, err := url.Parse(t.URL)
		if err != nil {
			return nil, nil, noop, fmt.Errorf("invalid page URL %q: %w", t.URL, err)
		}
		page, err := snapshot.New(base, t.Content)
		return page, client, noop, err

	case input.IsLocal(t):
		content, err := input.ReadLocal(t.URL)
		if err != nil {
			return nil, nil, noop, err
		}
		base, err := url.Parse(t.URL)
		if err != nil {
			return nil, nil, noop, err
		}
		page, err := snapshot.New(base, content)
		return page, client, noop, err

	case r.useBrowser:
		page, err := browser.Open(ctx, t.URL, r.cfg, r.logger)
		if err != nil {
			return nil, nil, noop, err
		}
		if r.cfg.Fetch == config.FetchViaClient {
			return page, client, page.Close, nil
		}
		return page, page, page.Close, nil

	default:
		page, err := snapshot.Load(ctx, t.URL, client)
		return page, client, noop, err
	}
}

func (r runner) writeOutputs(results []output.PageResult, defs []gf.Definition) error {
	generatedAt := time.Now()
	meta := output.BuildMetadata(results, generatedAt)

	var findings []gf.Finding
	if len(defs) > 0 {
		findings = gf.FindInResults(results, defs)
		if !r.cfg.HasOutput(config.OutputGFText) && !r.cfg.HasOutput(config.OutputGFJSON) {
			gf.Print(r.stdout, findings)
		}
	}
	rules := gf.RuleNames(defs)

	for _, target := range r.cfg.Outputs {
		switch target.Format {
		case config.OutputJSON:
			written, err := output.WriteJSON(target.Path, results)
			if err != nil {
				return fmt.Errorf("JSON output can't be saved in %s: %w", target.Path, err)
			}
			for _, path := range written {
				r.logger.Info("report exported", "path", path)
			}
		case config.OutputRaw:
			if err := output.WriteRaw(target.Path, results, meta); err != nil {
				return fmt.Errorf("raw output can't be saved in %s: %w", target.Path, err)
			}
		case config.OutputHTML:
			if err := output.SaveHTML(target.Path, results, meta); err != nil {
				return fmt.Errorf("HTML output can't be saved in %s: %w", target.Path, err)
			}
			r.logger.Info("HTML report written", "path", target.Path)
			if r.openReport {
				output.OpenInBrowser(target.Path)
			}
		case config.OutputGFText:
			if err := gf.WriteText(target.Path, generatedAt, rules, findings); err != nil {
				return fmt.Errorf("gf output can't be saved in %s: %w", target.Path, err)
			}
		case config.OutputGFJSON:
			if err := gf.WriteJSON(target.Path, generatedAt, rules, findings); err != nil {
				return fmt.Errorf("gf output can't be saved in %s: %w", target.Path, err)
			}
		}
	}

	return nil
}

func exitWithError(err error) {
	fmt.Fprintf(os.Stderr, "Usage: %s [Options] use -h for help\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
