package fingerprint

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePage answers probes from a set of defined globals and selectors.
type fakePage struct {
	globals   map[string]bool
	selectors map[string]bool
	broken    map[string]bool
	calls     []string
}

func (p *fakePage) Probe(_ context.Context, fp Fingerprint) (bool, error) {
	p.calls = append(p.calls, fp.Name)
	if p.broken[fp.Name] {
		return false, errors.New("TypeError: cannot read properties of undefined")
	}
	for _, alt := range strings.Split(fp.Global, "||") {
		if p.globals[strings.TrimSpace(alt)] {
			return true, nil
		}
	}
	return p.selectors[fp.Selector], nil
}

func TestDetectReact(t *testing.T) {
	page := &fakePage{globals: map[string]bool{"window.React": true}}
	assert.Equal(t, []string{"React"}, Detect(context.Background(), page, nil))
}

func TestDetectNothing(t *testing.T) {
	page := &fakePage{}
	got := Detect(context.Background(), page, nil)
	require.NotNil(t, got)
	assert.Empty(t, got)
	assert.Len(t, page.calls, len(Registry()), "every entry must be evaluated exactly once")
}

func TestDetectKeepsRegistryOrder(t *testing.T) {
	page := &fakePage{
		globals:   map[string]bool{"window.jQuery": true, "window.React": true, "window.PrismaClient": true},
		selectors: map[string]bool{"[ng-app]": true},
	}
	assert.Equal(t, []string{"React", "Angular", "jQuery", "Prisma"}, Detect(context.Background(), page, nil))
}

func TestDetectIsolatesFailingProbes(t *testing.T) {
	page := &fakePage{
		globals: map[string]bool{"window.jQuery": true, "window.Chart": true},
		broken:  map[string]bool{"Electron": true, "jQuery": true},
	}
	assert.Equal(t, []string{"Chart.js"}, Detect(context.Background(), page, nil))
}

func TestDetectRecoversFromPanics(t *testing.T) {
	prober := ProberFunc(func(_ context.Context, fp Fingerprint) (bool, error) {
		if fp.Name == "Vue" {
			panic("boom")
		}
		return fp.Name == "Svelte" || fp.Name == "Ember", nil
	})
	assert.Equal(t, []string{"Svelte", "Ember"}, Detect(context.Background(), prober, nil))
}

func TestDetectStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	prober := ProberFunc(func(context.Context, Fingerprint) (bool, error) {
		calls++
		return true, nil
	})
	assert.Empty(t, Detect(ctx, prober, nil))
	assert.Zero(t, calls)
}

func TestRegistryNamesAreUnique(t *testing.T) {
	seen := map[string]bool{}
	for _, fp := range Registry() {
		require.NotEmpty(t, fp.Name)
		require.False(t, seen[fp.Name], "duplicate registry entry %q", fp.Name)
		require.True(t, fp.Global != "" || fp.Selector != "", "entry %q has no check", fp.Name)
		seen[fp.Name] = true
	}
	assert.Len(t, seen, 48)
}

func TestExpression(t *testing.T) {
	fp := Fingerprint{Name: "Angular", Global: "window.angular", Selector: "[ng-app]"}
	assert.Equal(t, `!!((window.angular) || document.querySelector("[ng-app]"))`, fp.Expression())

	selectorOnly := Fingerprint{Name: "Bootstrap", Selector: `[class*="bootstrap"]`}
	assert.Equal(t, `!!(document.querySelector("[class*=\"bootstrap\"]"))`, selectorOnly.Expression())

	assert.Equal(t, "false", Fingerprint{Name: "empty"}.Expression())
}
