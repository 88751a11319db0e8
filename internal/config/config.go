package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"net/textproto"
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultJSONPath is used when the json output is requested without a path.
const DefaultJSONPath = "recon-results.json"

// FetchMode selects how resources discovered on a rendered page are fetched.
type FetchMode string

const (
	// FetchViaPage issues the fetch from inside the loaded page, sharing its
	// cookies and origin.
	FetchViaPage FetchMode = "page"
	// FetchViaClient uses the Go HTTP client with the configured proxy,
	// cookies and headers.
	FetchViaClient FetchMode = "client"
)

// Header is an extra request header supplied on the command line.
type Header struct {
	Name  string
	Value string
}

// Config contains runtime configuration provided via flags.
type Config struct {
	Input                  string
	Burp                   bool
	Scope                  string
	ScopeIncludeSubdomains bool
	Cookies                string
	Headers                []Header
	Proxy                  string
	Insecure               bool
	Timeout                time.Duration
	Static                 bool
	Fetch                  FetchMode
	Rate                   float64
	Beautify               bool
	NoColor                bool
	Verbose                bool
	ConfigFile             string
	Outputs                []OutputTarget
	GFAll                  bool
	GFPatterns             []string
}

// OutputFormat represents a supported output channel.
type OutputFormat int

const (
	OutputCLI OutputFormat = iota
	OutputHTML
	OutputJSON
	OutputRaw
	OutputGFText
	OutputGFJSON
)

func (f OutputFormat) String() string {
	switch f {
	case OutputCLI:
		return "cli"
	case OutputHTML:
		return "html"
	case OutputJSON:
		return "json"
	case OutputRaw:
		return "raw"
	case OutputGFText:
		return "gf.txt"
	case OutputGFJSON:
		return "gf.json"
	default:
		return "unknown"
	}
}

func (f OutputFormat) requiresPath() bool {
	switch f {
	case OutputHTML, OutputJSON, OutputRaw, OutputGFText, OutputGFJSON:
		return true
	default:
		return false
	}
}

// OutputTarget represents a configured output destination.
type OutputTarget struct {
	Format OutputFormat
	Path   string
}

// ParseFlags parses CLI flags into a Config value. Values from a --config
// YAML file are applied for every flag that was not set explicitly.
func ParseFlags() (Config, error) {
	cfg := Config{Timeout: 10 * time.Second, Fetch: FetchViaPage}

	flag.Usage = func() {
		out := flag.CommandLine.Output()
		fmt.Fprintf(out, "Usage: %s [OPTIONS]\n\n", os.Args[0])
		fmt.Fprintln(out, "Options:")

		printOption(out, "input", "i", "string", "Page URL, list file, local HTML file or glob (e.g. 'pages/*.html') to scan.", "")
		printOption(out, "output", "o", "string", "Configure one or more outputs (e.g. 'cli', 'json=recon-results.json', 'html=report.html'). May be repeated or comma separated.", "cli")
		printOption(out, "static", "", "", "Scan the raw HTML instead of a page rendered in a headless browser.", "")
		printOption(out, "fetch", "", "string", "How rendered-page resources are fetched: 'page' (inside the page) or 'client' (Go HTTP client).", string(cfg.Fetch))
		printOption(out, "scope", "s", "string", "Only fetch resources hosted on the specified domain (e.g. example.com).", "")
		printOption(out, "scope-include-subdomains", "", "", "When used with --scope, also allow subdomains of the provided domain.", "")
		printOption(out, "burp", "b", "", "Treat the input as a Burp Suite XML export of page responses.", "")
		printOption(out, "cookies", "c", "string", "Include cookies when loading pages and fetching resources.", "")
		printOption(out, "header", "H", "string", "Add a request header (e.g. 'Authorization: Bearer x'). May be repeated.", "")
		printOption(out, "proxy", "", "string", "Forward HTTP requests through the provided proxy (e.g. http://127.0.0.1:8080).", "")
		printOption(out, "insecure", "", "", "Skip TLS certificate verification when fetching HTTPS resources.", "")
		printOption(out, "timeout", "t", "duration", "Maximum time to wait for page loads and server responses (e.g. 10s, 1m).", cfg.Timeout.String())
		printOption(out, "rate", "", "float", "Maximum resource fetches per second (0 means unlimited).", "")
		printOption(out, "beautify", "", "", "Beautify JavaScript bodies before extraction.", "")
		printOption(out, "gf", "", "string", "Comma separated list of gf rules located in ~/.gf or 'all' to run every rule.", "")
		printOption(out, "no-color", "", "", "Disable colours in the terminal results panel.", "")
		printOption(out, "verbose", "v", "", "Log skipped resources and failed probes.", "")
		printOption(out, "config", "", "string", "YAML file with default option values.", "")
	}

	flag.StringVar(&cfg.Input, "input", "", "Page URL, list file, local HTML file or glob to scan.")
	registerStringAlias("i", "input", &cfg.Input)

	collector := newOutputCollector(&cfg.Outputs)
	flag.Var(collector, "output", "Configure one or more outputs (e.g. cli, json=recon-results.json). May be repeated or comma separated.")
	flag.Var(collector, "o", "Alias for --output.")

	flag.Var(newOutputAlias(collector, OutputRaw), "raw", "Write the findings grouped by resource to a plaintext file.")
	flag.Var(newOutputAlias(collector, OutputJSON), "json", "Write the scan report to a JSON file.")

	flag.BoolVar(&cfg.Static, "static", false, "Scan the raw HTML instead of a rendered page.")

	fetchMode := string(cfg.Fetch)
	flag.StringVar(&fetchMode, "fetch", fetchMode, "How rendered-page resources are fetched: page or client.")

	flag.StringVar(&cfg.Scope, "scope", "", "Only fetch resources hosted on the specified domain.")
	registerStringAlias("s", "scope", &cfg.Scope)
	flag.BoolVar(&cfg.ScopeIncludeSubdomains, "scope-include-subdomains", false, "When used with --scope, also allow subdomains of the provided domain.")

	flag.BoolVar(&cfg.Burp, "burp", false, "Treat the input as a Burp Suite XML export.")
	registerBoolAlias("b", "burp", &cfg.Burp)

	flag.StringVar(&cfg.Cookies, "cookies", "", "Include cookies when loading pages and fetching resources.")
	registerStringAlias("c", "cookies", &cfg.Cookies)

	headers := newHeaderList(&cfg.Headers)
	flag.Var(headers, "header", "Add a request header. May be repeated.")
	flag.Var(headers, "H", "Alias for --header")

	flag.StringVar(&cfg.Proxy, "proxy", "", "Forward HTTP requests through the provided proxy.")
	flag.BoolVar(&cfg.Insecure, "insecure", false, "Skip TLS certificate verification when fetching HTTPS resources.")

	flag.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "Maximum time to wait for page loads and server responses.")
	registerDurationAlias("t", "timeout", &cfg.Timeout)

	flag.Float64Var(&cfg.Rate, "rate", 0, "Maximum resource fetches per second (0 means unlimited).")
	flag.BoolVar(&cfg.Beautify, "beautify", false, "Beautify JavaScript bodies before extraction.")
	flag.BoolVar(&cfg.NoColor, "no-color", false, "Disable colours in the terminal results panel.")

	flag.BoolVar(&cfg.Verbose, "verbose", false, "Log skipped resources and failed probes.")
	registerBoolAlias("v", "verbose", &cfg.Verbose)

	flag.StringVar(&cfg.ConfigFile, "config", "", "YAML file with default option values.")

	var gfRaw string
	flag.StringVar(&gfRaw, "gf", "", "Comma separated list of gf rules located in ~/.gf or 'all' to run every rule.")

	if err := flag.CommandLine.Parse(os.Args[1:]); err != nil {
		return cfg, err
	}

	cfg.Fetch = FetchMode(strings.ToLower(strings.TrimSpace(fetchMode)))

	if cfg.ConfigFile != "" {
		file, err := loadFile(cfg.ConfigFile)
		if err != nil {
			return cfg, err
		}

		explicit := map[string]bool{}
		flag.Visit(func(f *flag.Flag) {
			explicit[canonicalFlag(f.Name)] = true
		})

		if err := file.apply(&cfg, explicit); err != nil {
			return cfg, err
		}

		if !explicit["output"] {
			for _, entry := range file.Outputs {
				if err := collector.Set(entry); err != nil {
					return cfg, fmt.Errorf("%s: %w", cfg.ConfigFile, err)
				}
			}
		}

		if !explicit["gf"] {
			gfRaw = firstNonEmpty(gfRaw, file.GF)
		}
	}

	if !collector.has(OutputCLI) {
		_ = collector.add(OutputCLI, "")
	}

	gfRaw = strings.TrimSpace(gfRaw)
	if gfRaw != "" {
		if strings.EqualFold(gfRaw, "all") {
			cfg.GFAll = true
		} else {
			cfg.GFPatterns = splitRuleNames(gfRaw)
			if len(cfg.GFPatterns) == 0 {
				return cfg, errors.New("--gf requires at least one rule name or 'all'")
			}
		}
	}

	return cfg, cfg.validate()
}

func (c Config) validate() error {
	if c.Input == "" {
		return errors.New("-i/--input is required")
	}

	switch c.Fetch {
	case FetchViaPage, FetchViaClient:
	default:
		return fmt.Errorf("unsupported --fetch mode %q (want page or client)", c.Fetch)
	}

	if c.Rate < 0 {
		return errors.New("--rate must be at least 0")
	}

	if c.Timeout < 0 {
		return errors.New("--timeout must not be negative")
	}

	if (c.HasOutput(OutputGFText) || c.HasOutput(OutputGFJSON)) && !c.GFAll && len(c.GFPatterns) == 0 {
		return errors.New("gf outputs require --gf")
	}

	return nil
}

// HasOutput reports whether the provided format was configured.
func (c Config) HasOutput(format OutputFormat) bool {
	for _, target := range c.Outputs {
		if target.Format == format {
			return true
		}
	}
	return false
}

func splitRuleNames(raw string) []string {
	parts := strings.Split(raw, ",")
	seen := make(map[string]struct{}, len(parts))
	var names []string
	for _, part := range parts {
		name := strings.TrimSpace(part)
		if name == "" {
			continue
		}
		lname := strings.ToLower(name)
		if _, ok := seen[lname]; ok {
			continue
		}
		seen[lname] = struct{}{}
		names = append(names, name)
	}
	return names
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func registerStringAlias(name, canonical string, target *string) {
	flag.CommandLine.Var(&stringAlias{target: target}, name, fmt.Sprintf("Alias for --%s", canonical))
}

func registerBoolAlias(name, canonical string, target *bool) {
	flag.CommandLine.Var(&boolAlias{target: target}, name, fmt.Sprintf("Alias for --%s", canonical))
}

func registerDurationAlias(name, canonical string, target *time.Duration) {
	flag.CommandLine.Var(&durationAlias{target: target}, name, fmt.Sprintf("Alias for --%s", canonical))
}

func printOption(out io.Writer, primary, alias, value, description, defaultValue string) {
	line := fmt.Sprintf("  -%s", primary)
	if alias != "" {
		line += fmt.Sprintf(" (-%s)", alias)
	}
	if value != "" {
		line += " " + value
	}
	if defaultValue != "" {
		line += fmt.Sprintf(" (default %s)", defaultValue)
	}

	fmt.Fprintln(out, line)
	fmt.Fprintf(out, "        %s\n", description)
}

type stringAlias struct {
	target *string
}

func (s *stringAlias) Set(value string) error {
	*s.target = value
	return nil
}

func (s *stringAlias) String() string {
	if s.target == nil {
		return ""
	}
	return *s.target
}

type boolAlias struct {
	target *bool
}

func (b *boolAlias) Set(value string) error {
	if value == "" {
		*b.target = true
		return nil
	}

	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return err
	}
	*b.target = parsed
	return nil
}

func (b *boolAlias) String() string {
	if b.target == nil {
		return "false"
	}
	return strconv.FormatBool(*b.target)
}

func (b *boolAlias) IsBoolFlag() bool {
	return true
}

type durationAlias struct {
	target *time.Duration
}

func (d *durationAlias) Set(value string) error {
	parsed, err := parseDuration(value)
	if err != nil {
		return err
	}
	*d.target = parsed
	return nil
}

func (d *durationAlias) String() string {
	if d.target == nil {
		return ""
	}
	return d.target.String()
}

// parseDuration accepts Go durations and bare integers meaning seconds.
func parseDuration(value string) (time.Duration, error) {
	if value == "" {
		return 0, errors.New("duration flag requires a value")
	}

	parsed, err := time.ParseDuration(value)
	if err != nil {
		seconds, convErr := strconv.Atoi(value)
		if convErr != nil {
			return 0, err
		}
		return time.Duration(seconds) * time.Second, nil
	}
	return parsed, nil
}

type headerList struct {
	target *[]Header
}

func newHeaderList(target *[]Header) *headerList {
	return &headerList{target: target}
}

func (h *headerList) Set(value string) error {
	header, err := parseHeader(value)
	if err != nil {
		return err
	}
	*h.target = append(*h.target, header)
	return nil
}

func (h *headerList) String() string {
	if h == nil || h.target == nil {
		return ""
	}
	parts := make([]string, 0, len(*h.target))
	for _, header := range *h.target {
		parts = append(parts, header.Name+": "+header.Value)
	}
	return strings.Join(parts, ", ")
}

func parseHeader(value string) (Header, error) {
	idx := strings.Index(value, ":")
	if idx <= 0 {
		return Header{}, fmt.Errorf("invalid header %q (expected 'Name: value')", value)
	}

	name := strings.TrimSpace(value[:idx])
	if name == "" || strings.ContainsAny(name, " \t") {
		return Header{}, fmt.Errorf("invalid header name in %q", value)
	}

	return Header{
		Name:  textproto.CanonicalMIMEHeaderKey(name),
		Value: strings.TrimSpace(value[idx+1:]),
	}, nil
}

type outputCollector struct {
	targets  *[]OutputTarget
	selected map[OutputFormat]string
}

func newOutputCollector(targets *[]OutputTarget) *outputCollector {
	return &outputCollector{targets: targets, selected: make(map[OutputFormat]string)}
}

func (o *outputCollector) Set(value string) error {
	if value == "" {
		return errors.New("output flag requires a value")
	}

	for _, entry := range strings.Split(value, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		format, path, err := parseOutputEntry(entry)
		if err != nil {
			return err
		}

		if err := o.add(format, path); err != nil {
			return err
		}
	}

	return nil
}

func (o *outputCollector) String() string {
	if o == nil || o.targets == nil {
		return ""
	}

	parts := make([]string, 0, len(*o.targets))
	for _, target := range *o.targets {
		parts = append(parts, formatOutputValue(target))
	}

	return strings.Join(parts, ",")
}

func (o *outputCollector) add(format OutputFormat, path string) error {
	if o == nil {
		return errors.New("output collector not initialised")
	}

	if _, exists := o.selected[format]; exists {
		return fmt.Errorf("output %s already specified", format.String())
	}

	if format.requiresPath() && path == "" {
		return fmt.Errorf("output %s requires a file path", format.String())
	}

	if !format.requiresPath() && path != "" {
		return fmt.Errorf("output %s does not accept a file path", format.String())
	}

	*o.targets = append(*o.targets, OutputTarget{Format: format, Path: path})
	o.selected[format] = path
	return nil
}

func (o *outputCollector) has(format OutputFormat) bool {
	if o == nil {
		return false
	}
	_, ok := o.selected[format]
	return ok
}

func (o *outputCollector) pathFor(format OutputFormat) string {
	if o == nil {
		return ""
	}
	return o.selected[format]
}

func formatOutputValue(target OutputTarget) string {
	if target.Format == OutputCLI {
		return target.Format.String()
	}
	return fmt.Sprintf("%s=%s", target.Format.String(), target.Path)
}

func parseOutputEntry(entry string) (OutputFormat, string, error) {
	var formatStr, path string

	if idx := strings.IndexAny(entry, "=:"); idx != -1 {
		formatStr = strings.ToLower(strings.TrimSpace(entry[:idx]))
		path = strings.TrimSpace(entry[idx+1:])
	} else {
		lowered := strings.ToLower(strings.TrimSpace(entry))
		switch lowered {
		case OutputCLI.String():
			formatStr = lowered
		case OutputJSON.String():
			formatStr = lowered
			path = DefaultJSONPath
		default:
			formatStr = OutputJSON.String()
			path = entry
		}
	}

	format, err := parseOutputFormat(formatStr)
	if err != nil {
		return 0, "", err
	}

	if format.requiresPath() && path == "" {
		return 0, "", fmt.Errorf("output %s requires a file path", format.String())
	}

	if !format.requiresPath() && path != "" {
		return 0, "", fmt.Errorf("output %s does not accept a file path", format.String())
	}

	return format, path, nil
}

func parseOutputFormat(value string) (OutputFormat, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case OutputCLI.String():
		return OutputCLI, nil
	case OutputHTML.String():
		return OutputHTML, nil
	case OutputJSON.String():
		return OutputJSON, nil
	case OutputRaw.String():
		return OutputRaw, nil
	case OutputGFText.String():
		return OutputGFText, nil
	case OutputGFJSON.String():
		return OutputGFJSON, nil
	default:
		return 0, fmt.Errorf("unsupported output format %q", value)
	}
}

type outputAlias struct {
	collector *outputCollector
	format    OutputFormat
}

func newOutputAlias(collector *outputCollector, format OutputFormat) flag.Value {
	return &outputAlias{collector: collector, format: format}
}

func (a *outputAlias) Set(value string) error {
	if a.collector == nil {
		return errors.New("output alias not initialised")
	}

	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		if a.format == OutputJSON {
			return a.collector.add(a.format, DefaultJSONPath)
		}
		if a.format.requiresPath() {
			return fmt.Errorf("output %s requires a file path", a.format.String())
		}
		return a.collector.add(a.format, "")
	}

	return a.collector.add(a.format, trimmed)
}

func (a *outputAlias) String() string {
	if a.collector == nil {
		return ""
	}
	return a.collector.pathFor(a.format)
}
