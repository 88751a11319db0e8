package network

import (
	"compress/gzip"
	"compress/zlib"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/andybalholm/brotli"
	"golang.org/x/net/html/charset"

	"github.com/lcalzada-xor/GoReconDrop/internal/config"
)

const (
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36"
	maxBodySize      = 16 << 20
)

// ErrStatus is returned when a response carries a non-2xx status code.
var ErrStatus = errors.New("unexpected status code")

// Response is the subset of an HTTP response the scanner cares about.
type Response struct {
	URL         string
	Status      int
	ContentType string
	Body        string
}

// OK reports whether the response status is in the 2xx range.
func (r Response) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// Client fetches resources over plain HTTP using the configured proxy,
// cookies, headers and TLS settings.
type Client struct {
	http    *http.Client
	cookies string
	headers []config.Header
}

// NewClient builds a Client from cfg.
func NewClient(cfg config.Config) (*Client, error) {
	transport, err := buildTransport(cfg)
	if err != nil {
		return nil, err
	}

	return &Client{
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
		cookies: cfg.Cookies,
		headers: cfg.Headers,
	}, nil
}

func buildTransport(cfg config.Config) (*http.Transport, error) {
	base, ok := http.DefaultTransport.(*http.Transport)
	if !ok {
		return nil, errors.New("unexpected default transport type")
	}

	transport := base.Clone()
	// Encoding is negotiated by hand so brotli can be offered.
	transport.DisableCompression = true
	// Local HTML targets reference their scripts through file:// URLs.
	transport.RegisterProtocol("file", http.NewFileTransport(http.Dir("/")))

	if cfg.Proxy != "" {
		proxyURL, err := url.Parse(cfg.Proxy)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy %q: %w", cfg.Proxy, err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	if cfg.Insecure {
		if transport.TLSClientConfig == nil {
			transport.TLSClientConfig = &tls.Config{}
		} else {
			transport.TLSClientConfig = transport.TLSClientConfig.Clone()
		}
		transport.TLSClientConfig.InsecureSkipVerify = true
	}

	return transport, nil
}

// Fetch issues a GET request for rawURL. Non-2xx responses are returned
// together with an error wrapping ErrStatus so callers can still inspect them.
func (c *Client) Fetch(ctx context.Context, rawURL string) (Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Response{}, err
	}

	req.Header.Set("User-Agent", defaultUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.8")
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")
	if c.cookies != "" {
		req.Header.Set("Cookie", c.cookies)
	}
	for _, h := range c.headers {
		req.Header.Set(h.Name, h.Value)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Response{}, err
	}
	defer resp.Body.Close()

	finalURL := rawURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	out := Response{
		URL:         finalURL,
		Status:      resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
	}

	if !out.OK() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))
		return out, fmt.Errorf("%w: %d", ErrStatus, resp.StatusCode)
	}

	reader, err := decodeBody(resp)
	if err != nil {
		return out, err
	}
	if reader != resp.Body {
		defer reader.Close()
	}

	text, err := charset.NewReader(io.LimitReader(reader, maxBodySize), out.ContentType)
	if err != nil {
		return out, fmt.Errorf("decode charset: %w", err)
	}

	data, err := io.ReadAll(text)
	if err != nil {
		return out, err
	}

	out.Body = string(data)
	return out, nil
}

func decodeBody(resp *http.Response) (io.ReadCloser, error) {
	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		return gz, nil
	case "deflate":
		zr, err := zlib.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		return zr, nil
	case "br":
		return io.NopCloser(brotli.NewReader(resp.Body)), nil
	default:
		return resp.Body, nil
	}
}
