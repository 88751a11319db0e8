package parser

import "regexp"

type secretPattern struct {
	Name  string
	Regex *regexp.Regexp
}

var secretPatterns = []secretPattern{
	{Name: "stripe-live-key", Regex: regexp.MustCompile(`sk_live_[0-9a-zA-Z]+`)},
	{Name: "google-api-key", Regex: regexp.MustCompile(`AIzaSy[0-9A-Za-z\-_]+`)},
	{Name: "github-pat", Regex: regexp.MustCompile(`ghp_[0-9a-zA-Z]+`)},
	{Name: "jwt", Regex: regexp.MustCompile(`eyJ[0-9a-zA-Z._\-]+`)},
	{Name: "aws-access-key-id", Regex: regexp.MustCompile(`AKIA[0-9A-Z]{16}`)},
	{Name: "slack-token", Regex: regexp.MustCompile(`xox[baprs]-[0-9a-zA-Z]{10,48}`)},
	{Name: "twilio-api-key", Regex: regexp.MustCompile(`SK[0-9a-fA-F]{32}`)},
}

// ExtractSecrets returns every verbatim match of every pattern in the bank,
// pattern by pattern. Overlapping hits from different patterns are all kept.
func ExtractSecrets(text string) []string {
	var results []string
	for _, p := range secretPatterns {
		results = append(results, p.Regex.FindAllString(text, -1)...)
	}
	return results
}
