package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/lcalzada-xor/GoReconDrop/internal/config"
)

const (
	defaultQuietPeriod   = 500 * time.Millisecond
	defaultRenderTimeout = 15 * time.Second
	defaultUserAgent     = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36"
)

// Page is a document loaded in a headless browser tab. It stays open until
// Close is called so the scan can query the live DOM.
type Page struct {
	tab      context.Context
	closers  []context.CancelFunc
	location *url.URL
	timeout  time.Duration
	logger   *slog.Logger
}

// Open launches a headless browser, navigates to rawURL and waits for the
// network to go quiet. Proxy, cookies, headers and timeout come from cfg.
func Open(ctx context.Context, rawURL string, cfg config.Config, logger *slog.Logger) (*Page, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if logger == nil {
		logger = slog.Default()
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultRenderTimeout
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocatorOptions(cfg)...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)

	page := &Page{
		tab:     tabCtx,
		closers: []context.CancelFunc{cancelTab, cancelAlloc},
		timeout: timeout,
		logger:  logger,
	}

	// The first Run starts the browser and must use the tab context itself;
	// a derived context would tear the browser down when it is cancelled.
	if err := chromedp.Run(tabCtx); err != nil {
		page.Close()
		return nil, fmt.Errorf("start browser: %w", err)
	}

	quiet := defaultQuietPeriod
	if timeout < quiet {
		quiet = timeout / 2
		if quiet <= 0 {
			quiet = timeout
		}
	}
	tracker := newNetworkIdleTracker(quiet)

	// Navigation gets a second timeout window so the idle wait can run out
	// on its own without failing the load.
	var location string
	err := page.run(ctx, 2*timeout,
		tracker.actionAttach(),
		network.Enable(),
		network.SetExtraHTTPHeaders(requestHeaders(cfg)),
		chromedp.Navigate(rawURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		tracker.waitAction(timeout),
		chromedp.Location(&location),
	)
	if err != nil {
		page.Close()
		return nil, fmt.Errorf("load %s: %w", rawURL, err)
	}

	parsed, err := url.Parse(location)
	if err != nil || !parsed.IsAbs() {
		parsed, err = url.Parse(rawURL)
		if err != nil {
			page.Close()
			return nil, fmt.Errorf("parse page location: %w", err)
		}
	}
	page.location = parsed

	logger.Debug("page loaded", "url", rawURL, "location", parsed.String())
	return page, nil
}

// Close shuts down the tab and the browser process.
func (p *Page) Close() {
	for _, cancel := range p.closers {
		cancel()
	}
	p.closers = nil
}

// Location returns the document URL after redirects.
func (p *Page) Location() *url.URL {
	return p.location
}

// run executes actions on the tab, bounded by ctx and timeout.
func (p *Page) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	if p.tab == nil {
		return errors.New("page is closed")
	}

	runCtx, cancel := context.WithTimeout(p.tab, timeout)
	defer cancel()

	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func allocatorOptions(cfg config.Config) []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("disable-background-timer-throttling", true),
		chromedp.Flag("disable-client-side-phishing-detection", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.Flag("disable-hang-monitor", true),
		chromedp.Flag("disable-popup-blocking", true),
		chromedp.Flag("disable-prompt-on-repost", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("metrics-recording-only", true),
		chromedp.Flag("safebrowsing-disable-auto-update", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("ignore-certificate-errors", cfg.Insecure),
	)

	if cfg.Proxy != "" {
		opts = append(opts, chromedp.ProxyServer(cfg.Proxy))
	}

	if execPath, ok := findExecPath(); ok {
		opts = append(opts, chromedp.ExecPath(execPath))
	}

	return opts
}

func requestHeaders(cfg config.Config) network.Headers {
	headers := network.Headers{
		"User-Agent":      defaultUserAgent,
		"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
		"Accept-Language": "en-US,en;q=0.8",
	}

	if cfg.Cookies != "" {
		headers["Cookie"] = cfg.Cookies
	}

	for _, h := range cfg.Headers {
		headers[h.Name] = h.Value
	}

	return headers
}

// IsAvailable returns true when a supported Chromium based browser can be located.
func IsAvailable() bool {
	_, ok := findExecPath()
	return ok
}

func findExecPath() (string, bool) {
	if env := strings.TrimSpace(os.Getenv("CHROMEDP_EXEC_PATH")); env != "" {
		if stat, err := os.Stat(env); err == nil && !stat.IsDir() {
			return env, true
		}
	}

	names := []string{
		"chromium",
		"chromium-browser",
		"google-chrome",
		"google-chrome-stable",
		"chrome",
		"msedge",
		"microsoft-edge",
	}

	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path, true
		}
	}

	return "", false
}
