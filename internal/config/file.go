package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// fileConfig mirrors the command line options that may be preset in a YAML
// file passed with --config.
type fileConfig struct {
	Input                  string   `yaml:"input"`
	Outputs                []string `yaml:"outputs"`
	Static                 *bool    `yaml:"static"`
	Fetch                  string   `yaml:"fetch"`
	Scope                  string   `yaml:"scope"`
	ScopeIncludeSubdomains *bool    `yaml:"scope_include_subdomains"`
	Burp                   *bool    `yaml:"burp"`
	Cookies                string   `yaml:"cookies"`
	Headers                []string `yaml:"headers"`
	Proxy                  string   `yaml:"proxy"`
	Insecure               *bool    `yaml:"insecure"`
	Timeout                string   `yaml:"timeout"`
	Rate                   *float64 `yaml:"rate"`
	Beautify               *bool    `yaml:"beautify"`
	GF                     string   `yaml:"gf"`
	NoColor                *bool    `yaml:"no_color"`
	Verbose                *bool    `yaml:"verbose"`
}

var flagAliases = map[string]string{
	"i":    "input",
	"o":    "output",
	"json": "output",
	"raw":  "output",
	"s":    "scope",
	"b":    "burp",
	"c":    "cookies",
	"H":    "header",
	"t":    "timeout",
	"v":    "verbose",
}

func canonicalFlag(name string) string {
	if canonical, ok := flagAliases[name]; ok {
		return canonical
	}
	return name
}

func loadFile(path string) (fileConfig, error) {
	var file fileConfig

	data, err := os.ReadFile(path)
	if err != nil {
		return file, fmt.Errorf("read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &file); err != nil {
		return file, fmt.Errorf("parse config file %s: %w", path, err)
	}

	return file, nil
}

// apply copies file values into cfg for every option not set on the command
// line.
func (f fileConfig) apply(cfg *Config, explicit map[string]bool) error {
	setString := func(name string, dst *string, value string) {
		if !explicit[name] && value != "" {
			*dst = value
		}
	}
	setBool := func(name string, dst *bool, value *bool) {
		if !explicit[name] && value != nil {
			*dst = *value
		}
	}

	setString("input", &cfg.Input, f.Input)
	setString("scope", &cfg.Scope, f.Scope)
	setString("cookies", &cfg.Cookies, f.Cookies)
	setString("proxy", &cfg.Proxy, f.Proxy)

	setBool("static", &cfg.Static, f.Static)
	setBool("scope-include-subdomains", &cfg.ScopeIncludeSubdomains, f.ScopeIncludeSubdomains)
	setBool("burp", &cfg.Burp, f.Burp)
	setBool("insecure", &cfg.Insecure, f.Insecure)
	setBool("beautify", &cfg.Beautify, f.Beautify)
	setBool("no-color", &cfg.NoColor, f.NoColor)
	setBool("verbose", &cfg.Verbose, f.Verbose)

	if !explicit["fetch"] && f.Fetch != "" {
		cfg.Fetch = FetchMode(strings.ToLower(strings.TrimSpace(f.Fetch)))
	}

	if !explicit["rate"] && f.Rate != nil {
		cfg.Rate = *f.Rate
	}

	if !explicit["timeout"] && f.Timeout != "" {
		timeout, err := parseDuration(f.Timeout)
		if err != nil {
			return fmt.Errorf("config file timeout: %w", err)
		}
		cfg.Timeout = timeout
	}

	if !explicit["header"] {
		for _, raw := range f.Headers {
			header, err := parseHeader(raw)
			if err != nil {
				return fmt.Errorf("config file: %w", err)
			}
			cfg.Headers = append(cfg.Headers, header)
		}
	}

	return nil
}
