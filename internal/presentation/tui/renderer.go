package tui

import (
	"github.com/charmbracelet/glamour"
)

// DefaultWrap is the column markdown is wrapped at.
const DefaultWrap = 100

// RenderMarkdown renders markdown for the terminal with glamour, wrapping at
// width columns. When no renderer can be built the markdown is returned as-is.
func RenderMarkdown(markdown string, width int) string {
	if width <= 0 {
		width = DefaultWrap
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return markdown
	}
	out, err := r.Render(markdown)
	if err != nil {
		return markdown
	}
	return out
}
