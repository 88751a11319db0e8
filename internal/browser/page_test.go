package browser

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lcalzada-xor/GoReconDrop/internal/config"
	"github.com/lcalzada-xor/GoReconDrop/internal/fingerprint"
	"github.com/lcalzada-xor/GoReconDrop/internal/model"
)

func newTestSite(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<!doctype html><html><head><title>render</title></head><body>
<button onclick="alert(1)">go</button>
<script src="/app.js"></script>
<script>window.React = {}; document.write("");</script>
</body></html>`)
	})
	mux.HandleFunc("/app.js", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/javascript")
		fmt.Fprint(w, `var route = "/api/v1/users";`)
	})
	mux.HandleFunc("/missing.js", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	mux.HandleFunc("/logo.png", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		fmt.Fprint(w, `"/not/read"`)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestOpenInspectsLivePage(t *testing.T) {
	if !IsAvailable() {
		t.Skip("no compatible browser available for render tests")
	}

	server := newTestSite(t)
	ctx := context.Background()

	page, err := Open(ctx, server.URL+"/", config.Config{Timeout: 10 * time.Second}, nil)
	require.NoError(t, err)
	defer page.Close()

	assert.Equal(t, server.URL+"/", page.Location().String())

	resources, err := page.Resources(ctx)
	require.NoError(t, err)
	assert.Contains(t, resources, server.URL+"/app.js")

	resp, err := page.Fetch(ctx, server.URL+"/app.js")
	require.NoError(t, err)
	assert.True(t, resp.OK())
	assert.Contains(t, resp.ContentType, "javascript")
	assert.Contains(t, resp.Body, "/api/v1/users")

	missing, err := page.Fetch(ctx, server.URL+"/missing.js")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, missing.Status)
	assert.Empty(t, missing.Body)

	image, err := page.Fetch(ctx, server.URL+"/logo.png")
	require.NoError(t, err)
	assert.True(t, image.OK())
	assert.Equal(t, "image/png", image.ContentType)
	assert.Empty(t, image.Body)

	events, err := page.InlineEvents(ctx, model.InlineEventAttributes)
	require.NoError(t, err)
	assert.Equal(t, []model.InlineEvent{{Attribute: "onclick", Value: "alert(1)"}}, events)

	scripts, err := page.InlineScripts(ctx)
	require.NoError(t, err)
	require.Len(t, scripts, 1)
	assert.True(t, strings.Contains(scripts[0], "document.write"))

	detected, err := page.Probe(ctx, fingerprint.Fingerprint{Name: "React", Global: "window.React"})
	require.NoError(t, err)
	assert.True(t, detected)

	_, err = page.Probe(ctx, fingerprint.Fingerprint{Name: "Broken", Global: "window.missing.deep"})
	assert.Error(t, err)
}

func TestRequestHeadersIncludeCookiesAndCustomHeaders(t *testing.T) {
	headers := requestHeaders(config.Config{
		Cookies: "session=abc",
		Headers: []config.Header{{Name: "Authorization", Value: "Bearer x"}},
	})

	assert.Equal(t, "session=abc", headers["Cookie"])
	assert.Equal(t, "Bearer x", headers["Authorization"])
	assert.Equal(t, defaultUserAgent, headers["User-Agent"])
}

func TestNetworkIdleTrackerWaitsForInflightRequests(t *testing.T) {
	tracker := newNetworkIdleTracker(20 * time.Millisecond)
	tracker.started()

	done := make(chan error, 1)
	start := time.Now()
	go func() {
		done <- tracker.wait(context.Background(), 5*time.Second)
	}()

	time.Sleep(60 * time.Millisecond)
	tracker.finished()

	select {
	case err := <-done:
		require.NoError(t, err)
		assert.GreaterOrEqual(t, time.Since(start), 60*time.Millisecond)
	case <-time.After(5 * time.Second):
		t.Fatal("tracker never reported idle")
	}
}

func TestNetworkIdleTrackerTimeoutIsNotAnError(t *testing.T) {
	tracker := newNetworkIdleTracker(10 * time.Millisecond)
	tracker.started()

	err := tracker.wait(context.Background(), 50*time.Millisecond)
	assert.NoError(t, err)
}

func TestNetworkIdleTrackerHonoursCancellation(t *testing.T) {
	tracker := newNetworkIdleTracker(10 * time.Millisecond)
	tracker.started()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := tracker.wait(ctx, time.Second)
	assert.ErrorIs(t, err, context.Canceled)
}
