package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the flowspec banner and version to w.
func PrintBanner(w io.Writer, version string) {
	p := termenv.ColorProfile()
	// Using a subtle gradient-like color scheme (Indigo/Violet)
	lines := []struct {
		text  string
		color string
	}{
		{"  __ _                                   ", "#818cf8"},
		{" / _| | _____      _____ _ __   ___  ___ ", "#a78bfa"},
		{"| |_| |/ _ \\ \\ /\\ / / __| '_ \\ / _ \\/ __|", "#c084fc"},
		{"|  _| | (_) \\ V  V /\\__ \\ |_) |  __/ (__ ", "#e879f9"},
		{"|_| |_|\\___/ \\_/\\_/ |___/ .__/ \\___|\\___|", "#f472b6"},
		{"                        |_|              ", "#fb7185"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintf(w, "  %s\n\n", termenv.String(version).Faint())
}
