package arbor

import (
	"strings"
	"unicode"
)

// sanitizeTerminal strips unsafe control characters from untrusted content
// before it reaches a terminal. Graph labels, planner answers and tool
// output arrive from the network; this prevents log poisoning and terminal
// corruption via embedded ANSI codes, NULL, BEL, etc. Newline, tab and
// carriage return survive.
func sanitizeTerminal(s string) string {
	// Fast path: if no control chars, return as is.
	clean := true
	for _, r := range s {
		if unicode.IsControl(r) && !isSafeControl(r) {
			clean = false
			break
		}
	}
	if clean {
		return s
	}

	// Slow path: build clean string
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if !unicode.IsControl(r) || isSafeControl(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isSafeControl(r rune) bool {
	return r == '\n' || r == '\t' || r == '\r'
}
