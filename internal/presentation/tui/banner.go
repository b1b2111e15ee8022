package tui

import (
	"fmt"
	"strings"

	"github.com/muesli/termenv"
)

// PrintBanner outputs an ASCII art banner for Arbor with the running version.
func PrintBanner(version string) {
	p := termenv.ColorProfile()
	// Using a subtle gradient-like color scheme (Indigo/Violet)
	s1 := termenv.String("             _").Foreground(p.Color("#818cf8"))
	s2 := termenv.String("   __ _ _ __| |__   ___  _ __").Foreground(p.Color("#a78bfa"))
	s3 := termenv.String("  / _` | '__| '_ \\ / _ \\| '__|").Foreground(p.Color("#c084fc"))
	s4 := termenv.String(" | (_| | |  | |_) | (_) | |").Foreground(p.Color("#e879f9"))
	s5 := termenv.String("  \\__,_|_|  |_.__/ \\___/|_|").Foreground(p.Color("#f472b6"))

	fmt.Println()
	fmt.Println(s1)
	fmt.Println(s2)
	fmt.Println(s3)
	fmt.Println(s4)
	fmt.Println(s5)
	fmt.Println()

	if v := strings.TrimSpace(version); v != "" {
		fmt.Println(termenv.String(fmt.Sprintf("  v%s", v)).Foreground(p.Color("#fb7185")).Faint())
		fmt.Println()
	}
}
