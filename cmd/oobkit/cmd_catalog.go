package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/oobkit/oobkit/pkg/defaults"
	"github.com/oobkit/oobkit/pkg/output"
	"github.com/oobkit/oobkit/pkg/payloads"
	"github.com/oobkit/oobkit/pkg/ui"
)

// =============================================================================
// VALIDATE / LIST COMMANDS - Payload catalog inspection
// =============================================================================

func runValidate(_ context.Context, args []string, stdout, stderr io.Writer) int {
	return runCatalog("validate", false, args, stdout, stderr)
}

func runList(_ context.Context, args []string, stdout, stderr io.Writer) int {
	return runCatalog("list", true, args, stdout, stderr)
}

func runCatalog(name string, withRows bool, args []string, stdout, stderr io.Writer) int {
	a, code := setup(name, args, stdout, stderr, nil)
	if a == nil {
		return code
	}
	defer a.close()

	catalog, source, err := a.loadCatalog()
	if err != nil {
		ui.PrintError(describeCatalogError(source, err))
		return defaults.ExitUserError
	}

	a.logger.Debug("catalog loaded",
		slog.String("source", source),
		slog.Int("payloads", catalog.Len()),
		slog.String("fingerprint", fmt.Sprintf("%08x", catalog.Fingerprint())),
	)

	if err := a.renderer.Render(output.NewCatalogSummary(source, catalog, withRows)); err != nil {
		ui.PrintError(err.Error())
		return defaults.ExitInternalError
	}
	if name == "validate" {
		ui.PrintSuccess(fmt.Sprintf("%d payload definitions are valid", catalog.Len()))
	}
	return defaults.ExitSuccess
}

// describeCatalogError prefixes invariant violations with the offending
// entry; the invariant message itself is kept verbatim.
func describeCatalogError(source string, err error) string {
	var defErr *payloads.DefinitionError
	if errors.As(err, &defErr) {
		entry := fmt.Sprintf("#%d", defErr.Index)
		if defErr.Name != "" {
			entry += " (" + defErr.Name + ")"
		}
		return fmt.Sprintf("%s: entry %s: %s", source, entry, defErr.Error())
	}
	return fmt.Sprintf("%s: %v", source, err)
}
