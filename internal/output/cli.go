package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Panel renders scan results to a terminal.
type Panel struct {
	out io.Writer

	title   lipgloss.Style
	label   lipgloss.Style
	heading lipgloss.Style
	item    lipgloss.Style
	muted   lipgloss.Style
	failure lipgloss.Style
	box     lipgloss.Style
}

// NewPanel returns a Panel writing to w. With noColor set, or when w is not
// a terminal, the output carries no escape sequences.
func NewPanel(w io.Writer, noColor bool) *Panel {
	renderer := lipgloss.NewRenderer(w)
	if noColor {
		renderer.SetColorProfile(termenv.Ascii)
	}

	primary := lipgloss.Color("#7D56F4")
	muted := lipgloss.Color("#6B7280")

	return &Panel{
		out: w,
		title: renderer.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(primary).
			Padding(0, 1),
		label:   renderer.NewStyle().Bold(true),
		heading: renderer.NewStyle().Foreground(primary).Bold(true).MarginTop(1),
		item:    renderer.NewStyle().PaddingLeft(2),
		muted:   renderer.NewStyle().Foreground(muted).Italic(true),
		failure: renderer.NewStyle().Foreground(lipgloss.Color("#FF3838")).Bold(true),
		box: renderer.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(muted).
			Padding(0, 1),
	}
}

// Print renders one page's results.
func (p *Panel) Print(result PageResult) {
	var b strings.Builder

	b.WriteString(p.title.Render("Recon Results"))
	b.WriteByte('\n')
	b.WriteString(p.muted.Render(result.Page))
	b.WriteByte('\n')

	if result.Err != nil {
		b.WriteString(p.failure.Render("Scan failed: " + result.Err.Error()))
		fmt.Fprintln(p.out, p.box.Render(b.String()))
		return
	}

	b.WriteByte('\n')
	b.WriteString(p.label.Render("Detected Frameworks: "))
	b.WriteString(FrameworkSummary(result.Report))

	for _, section := range Sections(result.Report) {
		b.WriteByte('\n')
		b.WriteString(p.heading.Render(fmt.Sprintf("%s (%d)", section.Title, len(section.Values))))
		if len(section.Values) == 0 {
			b.WriteByte('\n')
			b.WriteString(p.item.Render(p.muted.Render("none")))
			continue
		}
		for _, value := range section.Values {
			b.WriteByte('\n')
			b.WriteString(p.item.Render(value))
		}
	}

	b.WriteString("\n\n")
	b.WriteString(p.muted.Render(fmt.Sprintf("%d resources fetched, session %s", len(result.Scanned), result.SessionID)))

	fmt.Fprintln(p.out, p.box.Render(b.String()))
}
