// Package fingerprint detects front-end and back-end frameworks from global
// namespace state and DOM markers of a loaded page.
package fingerprint

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// ErrNoRuntime is returned by probers that cannot evaluate JavaScript globals.
var ErrNoRuntime = errors.New("no javascript runtime available")

// Fingerprint is a named presence check. Global is a JavaScript expression
// evaluated against the page's global scope; Selector is a CSS selector
// looked up in the document. Either may be empty; the entry matches when any
// non-empty check is truthy.
type Fingerprint struct {
	Name     string
	Global   string
	Selector string
}

// Prober evaluates a single fingerprint against a page.
type Prober interface {
	Probe(ctx context.Context, fp Fingerprint) (bool, error)
}

// ProberFunc adapts a function to the Prober interface.
type ProberFunc func(ctx context.Context, fp Fingerprint) (bool, error)

// Probe calls f.
func (f ProberFunc) Probe(ctx context.Context, fp Fingerprint) (bool, error) {
	return f(ctx, fp)
}

var registry = []Fingerprint{
	{Name: "React", Global: "window.React || window.__REACT_DEVTOOLS_GLOBAL_HOOK__"},
	{Name: "Angular", Global: "window.angular", Selector: "[ng-app]"},
	{Name: "Vue", Global: "window.Vue", Selector: "[data-v-app]"},
	{Name: "Svelte", Selector: "[data-svelte]"},
	{Name: "Ember", Global: "window.Ember"},
	{Name: "Backbone", Global: "window.Backbone"},
	{Name: "Alpine.js", Global: "window.Alpine"},
	{Name: "jQuery", Global: "window.jQuery"},
	{Name: "Next.js", Global: "window.__NEXT_DATA__"},
	{Name: "Nuxt.js", Global: "window.__NUXT__"},
	{Name: "Express", Global: "window.express"},
	{Name: "Koa", Global: "window.koa"},
	{Name: "NestJS", Global: "window.nest"},
	{Name: "Hapi", Global: "window.hapi"},
	{Name: "Django", Global: "window.django"},
	{Name: "Flask", Global: "window.flask"},
	{Name: "FastAPI", Global: "window.fastapi"},
	{Name: "Laravel", Global: "window.laravel"},
	{Name: "Symfony", Global: "window.symfony"},
	{Name: "Spring", Global: "window.spring"},
	{Name: "ASP.NET", Global: "window.aspnet"},
	{Name: "Rails", Global: "window.rails"},
	{Name: "Gin", Global: "window.gin"},
	{Name: "Fiber", Global: "window.fiber"},
	{Name: "Revel", Global: "window.revel"},
	{Name: "Ionic", Global: "window.Ionic"},
	{Name: "Cordova", Global: "window.cordova"},
	{Name: "Capacitor", Global: "window.Capacitor"},
	{Name: "React Native", Global: "window.ReactNativeWebView"},
	{Name: "Electron", Global: "window.process?.versions?.electron"},
	{Name: "Redux", Global: "window.__REDUX_DEVTOOLS_EXTENSION__"},
	{Name: "jQuery UI", Global: "window.jQuery?.ui"},
	{Name: "Bootstrap", Selector: `[class*="bootstrap"]`},
	{Name: "Tailwind CSS", Selector: `[class*="tw-"]`},
	{Name: "Chart.js", Global: "window.Chart"},
	{Name: "Three.js", Global: "window.THREE"},
	{Name: "GSAP", Global: "window.gsap"},
	{Name: "Anime.js", Global: "window.anime"},
	{Name: "Moment.js", Global: "window.moment"},
	{Name: "D3.js", Global: "window.d3"},
	{Name: "Socket.IO", Global: "window.io"},
	{Name: "Webpack", Global: "window.webpackChunk || window.__webpack_require__"},
	{Name: "Babel", Global: "window.Babel"},
	{Name: "Gulp", Global: "window.gulp"},
	{Name: "Grunt", Global: "window.grunt"},
	{Name: "TypeORM", Global: "window.TypeORM"},
	{Name: "Sequelize", Global: "window.Sequelize"},
	{Name: "Prisma", Global: "window.PrismaClient"},
}

// Registry returns a copy of the fingerprint registry in declaration order.
func Registry() []Fingerprint {
	out := make([]Fingerprint, len(registry))
	copy(out, registry)
	return out
}

// Detect evaluates every registry entry once, in order, and returns the names
// of the detected frameworks. A probe that fails or panics only marks its own
// entry as not detected.
func Detect(ctx context.Context, prober Prober, logger *slog.Logger) []string {
	return DetectWith(ctx, registry, prober, logger)
}

// DetectWith is Detect over an arbitrary fingerprint list.
func DetectWith(ctx context.Context, fps []Fingerprint, prober Prober, logger *slog.Logger) []string {
	logger = orDefault(logger)

	detected := make([]string, 0)
	for _, fp := range fps {
		if ctx.Err() != nil {
			break
		}

		ok, err := safeProbe(ctx, prober, fp)
		if err != nil {
			logger.Debug("fingerprint probe failed", "framework", fp.Name, "error", err)
			continue
		}
		if ok {
			detected = append(detected, fp.Name)
		}
	}
	return detected
}

func safeProbe(ctx context.Context, prober Prober, fp Fingerprint) (ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			err = fmt.Errorf("probe panicked: %v", r)
		}
	}()
	return prober.Probe(ctx, fp)
}

func orDefault(l *slog.Logger) *slog.Logger {
	if l != nil {
		return l
	}
	return slog.Default()
}
