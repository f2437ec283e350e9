// Command oobkit generates exploit payloads for out-of-band vulnerability
// detection and checks the callback server for their interactions.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/oobkit/oobkit/pkg/defaults"
	"github.com/oobkit/oobkit/pkg/ui"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	cancel()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		printUsage(stderr)
		return defaults.ExitUserError
	}

	switch args[0] {
	case "validate":
		return runValidate(ctx, args[1:], stdout, stderr)
	case "list", "payloads":
		return runList(ctx, args[1:], stdout, stderr)
	case "generate", "gen":
		return runGenerate(ctx, args[1:], stdout, stderr)
	case "poll":
		return runPoll(ctx, args[1:], stdout, stderr)
	case "uri":
		return runURI(ctx, args[1:], stdout, stderr)
	case "-v", "--version", "version":
		fmt.Fprintln(stdout, ui.VersionString())
		return defaults.ExitSuccess
	case "-h", "--help", "help":
		printUsage(stdout)
		return defaults.ExitSuccess
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n", args[0])
		printUsage(stderr)
		return defaults.ExitUserError
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, `%s - out-of-band payload generation and verification

USAGE:
  oobkit <command> [flags]

COMMANDS:
  validate   Validate a payload catalog and print its fingerprint
  list       List catalog entries
  generate   Generate a payload for a vulnerability request
  poll       Ask the callback server about a secret
  uri        Show the callback URI and polling URL for a secret
  version    Print version information

EXAMPLES:
  oobkit generate -vt REFLECTIVE_RCE -ie LINUX_SHELL -ee EXEC_INTERPRETATION_ENVIRONMENT \
      -callback-address 127.0.0.1 -callback-port 8881 -polling-uri http://127.0.0.1:8880 -wait
  oobkit generate -vt SSRF -ie INTERPRETATION_ANY -ee EXEC_ANY -no-callback -data-file response.html
  oobkit poll -secret 3F2A9C01D4E5B6A7 -config oobkit.yaml
  oobkit validate -catalog ./payloads -format json

Run 'oobkit <command> -h' for command flags.
`, ui.VersionString())
}
