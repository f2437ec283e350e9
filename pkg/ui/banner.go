package ui

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/oobkit/oobkit/pkg/defaults"
)

// Version information - these can be overridden at build time via ldflags:
// go build -ldflags "-X github.com/oobkit/oobkit/pkg/ui.Commit=abc123"
var (
	Version   = defaults.Version
	BuildDate = "unknown"
	Commit    = "dev"
)

// Global UI state
var (
	silentMode  bool
	noColorMode bool
	out         io.Writer = os.Stderr
	uiMu        sync.RWMutex
)

// SetSilent enables or disables silent mode (suppresses status lines)
func SetSilent(silent bool) {
	uiMu.Lock()
	defer uiMu.Unlock()
	silentMode = silent
}

// IsSilent returns whether silent mode is enabled
func IsSilent() bool {
	uiMu.RLock()
	defer uiMu.RUnlock()
	return silentMode
}

// SetNoColor disables colored output
func SetNoColor(noColor bool) {
	uiMu.Lock()
	defer uiMu.Unlock()
	noColorMode = noColor
	if noColor {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
}

// IsNoColor returns whether color is disabled
func IsNoColor() bool {
	uiMu.RLock()
	defer uiMu.RUnlock()
	return noColorMode
}

// SetOutput redirects status output (default os.Stderr).
func SetOutput(w io.Writer) {
	uiMu.Lock()
	defer uiMu.Unlock()
	out = w
}

func output() io.Writer {
	uiMu.RLock()
	defer uiMu.RUnlock()
	return out
}

// Minimalist banner (ffuf-style box)
const miniBanner = `________________________________________________

 oobkit v%s
________________________________________________`

// PrintBanner prints the banner with version info.
func PrintBanner() {
	if IsSilent() {
		return
	}
	fmt.Fprintln(output(), BannerStyle.Render(fmt.Sprintf(miniBanner, Version)))
	fmt.Fprintln(output())
}

// VersionString is the one-line version report.
func VersionString() string {
	return fmt.Sprintf("%s %s (commit %s, built %s)", defaults.ToolName, Version, Commit, BuildDate)
}
