package output

import "github.com/lcalzada-xor/GoReconDrop/internal/report"

// Section is one titled list of report values.
type Section struct {
	Title  string
	Values []string
}

// Sections lists the report's result lists under their display titles.
func Sections(r report.Report) []Section {
	return []Section{
		{Title: "Paths", Values: r.UniquePaths},
		{Title: "API Endpoints", Values: r.Endpoints},
		{Title: "Secrets", Values: r.Secrets},
		{Title: "Inline Events", Values: r.InlineEvents},
		{Title: "DOM Sinks", Values: r.DOMSinks},
	}
}

// FrameworkSummary joins the detected frameworks, or "None".
func FrameworkSummary(r report.Report) string {
	if len(r.Frameworks) == 0 {
		return "None"
	}
	out := r.Frameworks[0]
	for _, name := range r.Frameworks[1:] {
		out += ", " + name
	}
	return out
}
