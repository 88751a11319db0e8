package fingerprint

import (
	"strconv"
	"strings"
)

// Expression renders fp as a single JavaScript expression evaluating to a
// boolean. An exception thrown while evaluating it means "not detected".
func (fp Fingerprint) Expression() string {
	var parts []string
	if g := strings.TrimSpace(fp.Global); g != "" {
		parts = append(parts, "("+g+")")
	}
	if s := strings.TrimSpace(fp.Selector); s != "" {
		parts = append(parts, "document.querySelector("+strconv.Quote(s)+")")
	}
	if len(parts) == 0 {
		return "false"
	}
	return "!!(" + strings.Join(parts, " || ") + ")"
}
