package ui

import (
	"fmt"
	"os"

	"golang.org/x/term"
)

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return f != nil && term.IsTerminal(int(f.Fd()))
}

// AutoColor disables colors unless stderr is a terminal and NO_COLOR is
// unset.
func AutoColor() {
	if os.Getenv("NO_COLOR") != "" || os.Getenv("TERM") == "dumb" || !IsTerminal(os.Stderr) {
		SetNoColor(true)
	}
}

// PrintSuccess prints a success message
func PrintSuccess(message string) {
	printLine(PassStyle.Render("[+] " + message))
}

// PrintError prints an error message. It is shown in silent mode too.
func PrintError(message string) {
	fmt.Fprintln(output(), FailStyle.Render("[X] "+message))
}

// PrintWarning prints a warning message
func PrintWarning(message string) {
	printLine(WarnStyle.Render("[!] " + message))
}

// PrintInfo prints an info message
func PrintInfo(message string) {
	printLine(LabelStyle.Render("[*]") + " " + message)
}

// PrintKV prints an aligned "key : value" line.
func PrintKV(key, value string) {
	printLine(fmt.Sprintf(" :: %s : %s", LabelStyle.Render(fmt.Sprintf("%-16s", key)), ValueStyle.Render(value)))
}

// PrintOutcome prints a poll outcome line, e.g. "[confirmed] dns=false http=true".
func PrintOutcome(outcome, detail string) {
	printLine(Bracket(outcome, OutcomeStyle(outcome)) + " " + detail)
}

func printLine(s string) {
	if IsSilent() {
		return
	}
	fmt.Fprintln(output(), s)
}
