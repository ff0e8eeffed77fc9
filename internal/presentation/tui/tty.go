package tui

import (
	"fmt"
	"os"

	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// Pretty modes accepted by the --pretty flag.
const (
	PrettyAuto   = "auto"
	PrettyAlways = "always"
	PrettyNever  = "never"
)

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return f != nil && term.IsTerminal(int(f.Fd()))
}

// ResolvePretty decides whether output to f is styled.
func ResolvePretty(mode string, f *os.File) (bool, error) {
	switch mode {
	case PrettyAlways:
		return true, nil
	case PrettyNever:
		return false, nil
	case PrettyAuto, "":
		return IsTerminal(f), nil
	}
	return false, fmt.Errorf("invalid --pretty value %q (want auto, always or never)", mode)
}

// Profile returns the color profile for styled or plain output.
func Profile(pretty bool) termenv.Profile {
	if !pretty {
		return termenv.Ascii
	}
	return termenv.ColorProfile()
}
