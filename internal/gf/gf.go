package gf

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/go-json-experiment/json"

	"github.com/lcalzada-xor/GoReconDrop/internal/model"
	"github.com/lcalzada-xor/GoReconDrop/internal/output"
)

// Definition represents a gf rule loaded from disk.
type Definition struct {
	Name     string
	Patterns []*regexp.Regexp
}

// Finding captures a gf match against a value found during a scan.
type Finding struct {
	Page     string         `json:"page"`
	Resource string         `json:"resource"`
	Category model.Category `json:"category"`
	Value    string         `json:"value"`
	Evidence string         `json:"evidence"`
	Rules    []string       `json:"rules"`
}

// LoadDefinitions loads gf rule definitions from the ~/.gf directory.
func LoadDefinitions(names []string, useAll bool) ([]Definition, error) {
	dir, err := defaultDir()
	if err != nil {
		return nil, err
	}

	return loadDefinitionsFromDir(dir, names, useAll)
}

func defaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("unable to resolve user home directory: %w", err)
	}

	dir := filepath.Join(home, ".gf")
	if _, err := os.Stat(dir); err != nil {
		return "", fmt.Errorf("gf directory not found at %s: %w", dir, err)
	}

	return dir, nil
}

func loadDefinitionsFromDir(dir string, names []string, useAll bool) ([]Definition, error) {
	var files []string
	if useAll {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("unable to read gf directory: %w", err)
		}

		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			if !strings.HasSuffix(entry.Name(), ".json") {
				continue
			}
			files = append(files, filepath.Join(dir, entry.Name()))
		}

		if len(files) == 0 {
			return nil, errors.New("no gf rules found in ~/.gf")
		}

		sort.Strings(files)
	} else {
		if len(names) == 0 {
			return nil, errors.New("no gf rule names provided")
		}

		for _, name := range names {
			if name == "" {
				continue
			}

			filename := name
			if !strings.HasSuffix(filename, ".json") {
				filename += ".json"
			}

			path := filepath.Join(dir, filename)
			if _, err := os.Stat(path); err != nil {
				return nil, fmt.Errorf("gf rule %s not found in %s", filename, dir)
			}
			files = append(files, path)
		}

		if len(files) == 0 {
			return nil, errors.New("no gf rule names provided")
		}
	}

	definitions := make([]Definition, 0, len(files))
	for _, file := range files {
		def, err := parseDefinition(file)
		if err != nil {
			return nil, fmt.Errorf("unable to parse %s: %w", filepath.Base(file), err)
		}
		definitions = append(definitions, def)
	}

	sort.Slice(definitions, func(i, j int) bool { return definitions[i].Name < definitions[j].Name })

	return definitions, nil
}

type gfFile struct {
	Pattern  string   `json:"pattern"`
	Patterns []string `json:"patterns"`
	Flags    string   `json:"flags"`
}

func parseDefinition(path string) (Definition, error) {
	var def Definition

	content, err := os.ReadFile(path)
	if err != nil {
		return def, err
	}

	var file gfFile
	if err := json.Unmarshal(content, &file); err != nil {
		return def, err
	}

	var rawPatterns []string
	if file.Pattern != "" {
		rawPatterns = append(rawPatterns, file.Pattern)
	}
	rawPatterns = append(rawPatterns, file.Patterns...)

	if len(rawPatterns) == 0 {
		return def, errors.New("gf rule does not define any patterns")
	}

	ignoreCase := strings.Contains(strings.ToLower(file.Flags), "i")

	compiled := make([]*regexp.Regexp, 0, len(rawPatterns))
	for _, raw := range rawPatterns {
		pattern := raw
		if ignoreCase && !strings.HasPrefix(pattern, "(?i)") {
			pattern = "(?i)" + pattern
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return def, fmt.Errorf("invalid pattern %q: %w", raw, err)
		}
		compiled = append(compiled, re)
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	return Definition{Name: name, Patterns: compiled}, nil
}

// FindInResults runs all gf definitions against every value found on the
// scanned pages and returns the matches, one per distinct evidence.
func FindInResults(results []output.PageResult, defs []Definition) []Finding {
	if len(defs) == 0 {
		return nil
	}

	type key struct {
		page     string
		resource string
		value    string
		evidence string
	}

	findingsByKey := make(map[key]*Finding)

	for _, result := range results {
		for _, found := range result.Findings {
			for _, def := range defs {
				for _, re := range def.Patterns {
					for _, match := range re.FindAllString(found.Value, -1) {
						if match == "" {
							continue
						}

						k := key{page: result.Page, resource: found.Source, value: found.Value, evidence: match}
						finding, ok := findingsByKey[k]
						if !ok {
							finding = &Finding{
								Page:     result.Page,
								Resource: found.Source,
								Category: found.Category,
								Value:    found.Value,
								Evidence: match,
							}
							findingsByKey[k] = finding
						}

						if !containsRule(finding.Rules, def.Name) {
							finding.Rules = append(finding.Rules, def.Name)
						}
					}
				}
			}
		}
	}

	if len(findingsByKey) == 0 {
		return nil
	}

	findings := make([]Finding, 0, len(findingsByKey))
	for _, finding := range findingsByKey {
		sort.Strings(finding.Rules)
		findings = append(findings, *finding)
	}

	sort.Slice(findings, func(i, j int) bool {
		a, b := findings[i], findings[j]
		if a.Page != b.Page {
			return a.Page < b.Page
		}
		if a.Resource != b.Resource {
			return a.Resource < b.Resource
		}
		if a.Value != b.Value {
			return a.Value < b.Value
		}
		if a.Evidence != b.Evidence {
			return a.Evidence < b.Evidence
		}
		return strings.Join(a.Rules, ",") < strings.Join(b.Rules, ",")
	})

	return findings
}

func containsRule(rules []string, rule string) bool {
	for _, existing := range rules {
		if existing == rule {
			return true
		}
	}
	return false
}

// RuleNames extracts the names of the loaded definitions.
func RuleNames(defs []Definition) []string {
	names := make([]string, 0, len(defs))
	for _, def := range defs {
		names = append(names, def.Name)
	}
	sort.Strings(names)
	return names
}
