package browser

import (
	"context"
	"fmt"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/go-json-experiment/json"

	"github.com/lcalzada-xor/GoReconDrop/internal/fingerprint"
	"github.com/lcalzada-xor/GoReconDrop/internal/model"
	"github.com/lcalzada-xor/GoReconDrop/internal/network"
)

const resourcesScript = `performance.getEntriesByType("resource").map(e => e.name)`

const inlineScriptsScript = `Array.from(document.scripts).filter(s => !s.src).map(s => s.textContent || "")`

// inlineEventsScript walks the attributes in order and outlines every
// element carrying one so the user can spot them in a headed session.
const inlineEventsScript = `((attrs) => {
	const found = [];
	attrs.forEach(attr => {
		document.querySelectorAll("[" + attr + "]").forEach(el => {
			found.push({attribute: attr, value: el.getAttribute(attr)});
			el.style.outline = "2px solid red";
		});
	});
	return found;
})(%s)`

// fetchScript only reads bodies of OK text or script responses. Other
// responses come back with status and content type but no body.
const fetchScript = `(async (u) => {
	try {
		const resp = await fetch(u, {credentials: "include"});
		const contentType = resp.headers.get("content-type") || "";
		const type = contentType.toLowerCase();
		const scannable = resp.ok && (type.includes("text") || type.includes("javascript"));
		const body = scannable ? await resp.text() : "";
		return {url: resp.url, status: resp.status, contentType: contentType, body: body};
	} catch (e) {
		return {url: u, error: String(e)};
	}
})(%s)`

type fetchResult struct {
	URL         string `json:"url"`
	Status      int    `json:"status"`
	ContentType string `json:"contentType"`
	Body        string `json:"body"`
	Error       string `json:"error"`
}

func awaitPromise(p *runtime.EvaluateParams) *runtime.EvaluateParams {
	return p.WithAwaitPromise(true)
}

// Resources returns the URLs recorded by the page's resource timing buffer.
func (p *Page) Resources(ctx context.Context) ([]string, error) {
	var names []string
	if err := p.run(ctx, p.timeout, chromedp.Evaluate(resourcesScript, &names)); err != nil {
		return nil, fmt.Errorf("read resource entries: %w", err)
	}
	return names, nil
}

// Fetch requests rawURL from inside the page so the request carries the
// page's cookies and origin. Non-2xx responses are returned without error.
func (p *Page) Fetch(ctx context.Context, rawURL string) (network.Response, error) {
	arg, err := json.Marshal(rawURL)
	if err != nil {
		return network.Response{}, err
	}

	var res fetchResult
	script := fmt.Sprintf(fetchScript, arg)
	if err := p.run(ctx, p.timeout, chromedp.Evaluate(script, &res, awaitPromise)); err != nil {
		return network.Response{}, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	if res.Error != "" {
		return network.Response{}, fmt.Errorf("fetch %s: %s", rawURL, res.Error)
	}

	if res.URL == "" {
		res.URL = rawURL
	}
	return network.Response{
		URL:         res.URL,
		Status:      res.Status,
		ContentType: res.ContentType,
		Body:        res.Body,
	}, nil
}

// InlineEvents lists the given handler attributes in the live DOM, attribute
// by attribute in document order, and outlines the elements that carry them.
func (p *Page) InlineEvents(ctx context.Context, attributes []string) ([]model.InlineEvent, error) {
	arg, err := json.Marshal(attributes)
	if err != nil {
		return nil, err
	}

	var events []model.InlineEvent
	script := fmt.Sprintf(inlineEventsScript, arg)
	if err := p.run(ctx, p.timeout, chromedp.Evaluate(script, &events)); err != nil {
		return nil, fmt.Errorf("scan inline events: %w", err)
	}
	return events, nil
}

// InlineScripts returns the text of every script element without a src.
func (p *Page) InlineScripts(ctx context.Context) ([]string, error) {
	var scripts []string
	if err := p.run(ctx, p.timeout, chromedp.Evaluate(inlineScriptsScript, &scripts)); err != nil {
		return nil, fmt.Errorf("read inline scripts: %w", err)
	}
	return scripts, nil
}

// Probe evaluates the fingerprint's detection expression in the page.
// Exceptions thrown by the expression are returned as errors.
func (p *Page) Probe(ctx context.Context, fp fingerprint.Fingerprint) (bool, error) {
	var detected bool
	if err := p.run(ctx, p.timeout, chromedp.Evaluate(fp.Expression(), &detected)); err != nil {
		return false, err
	}
	return detected, nil
}
