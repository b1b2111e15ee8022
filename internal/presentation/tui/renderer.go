package tui

import (
	"github.com/charmbracelet/glamour"
)

// NewRenderer returns a function that renders final answers (markdown) using
// glamour. It detects the terminal background automatically; when no renderer
// can be constructed (e.g. a dumb terminal), answers pass through unchanged.
func NewRenderer() func(string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return func(markdown string) (string, error) {
			return markdown, nil
		}
	}

	return func(markdown string) (string, error) {
		return r.Render(markdown)
	}
}
