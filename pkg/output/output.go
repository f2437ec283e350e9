// Package output renders oobkit results as text, JSON, or a user-supplied
// Go template. Templates get the Sprig function library.
package output

import (
	"errors"
	"fmt"
	"io"
	"os"
	"text/template"

	"github.com/Masterminds/sprig/v3"

	"github.com/oobkit/oobkit/pkg/jsonutil"
)

// Format selects how results are rendered.
type Format string

const (
	FormatText     Format = "text"
	FormatJSON     Format = "json"
	FormatTemplate Format = "template"
)

// Sentinel errors for rendering failure modes.
// Callers should use errors.Is() to check for these.
var (
	// ErrUnknownFormat indicates an unsupported output format name.
	ErrUnknownFormat = errors.New("output: unknown format")

	// ErrNoTemplate indicates the template format without a template.
	ErrNoTemplate = errors.New("output: no template specified")

	// ErrUnsupportedValue indicates a value the text format has no layout for.
	ErrUnsupportedValue = errors.New("output: no text layout for value")
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatText, FormatJSON, FormatTemplate:
		return f, nil
	case "":
		return FormatText, nil
	default:
		return "", fmt.Errorf("%w: %q (available: text, json, template)", ErrUnknownFormat, s)
	}
}

// Config configures a Renderer.
type Config struct {
	Format Format

	// Template is an inline template (FormatTemplate).
	Template string

	// TemplatePath is a template file (FormatTemplate); it wins over Template.
	TemplatePath string
}

// Renderer writes results to w. It is not safe for concurrent use.
type Renderer struct {
	w      io.Writer
	format Format
	tmpl   *template.Template
}

// NewRenderer parses the configured template up front so a bad template
// fails before any work is done.
func NewRenderer(w io.Writer, cfg Config) (*Renderer, error) {
	format := cfg.Format
	if format == "" {
		format = FormatText
	}
	r := &Renderer{w: w, format: format}

	switch format {
	case FormatJSON:
		return r, nil
	case FormatText:
		t := template.New("oobkit").Funcs(funcMap())
		for name, body := range builtInTemplates {
			if _, err := t.New(name).Parse(body); err != nil {
				return nil, fmt.Errorf("output: built-in template %s: %w", name, err)
			}
		}
		r.tmpl = t
		return r, nil
	case FormatTemplate:
		body := cfg.Template
		if cfg.TemplatePath != "" {
			content, err := os.ReadFile(cfg.TemplatePath)
			if err != nil {
				return nil, fmt.Errorf("output: reading template: %w", err)
			}
			body = string(content)
		}
		if body == "" {
			return nil, ErrNoTemplate
		}
		t, err := template.New("oobkit").Funcs(funcMap()).Parse(body)
		if err != nil {
			return nil, fmt.Errorf("output: parse template: %w", err)
		}
		r.tmpl = t
		return r, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// Render writes v.
func (r *Renderer) Render(v any) error {
	switch r.format {
	case FormatJSON:
		enc := jsonutil.NewStreamEncoder(r.w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatText:
		name, ok := textTemplateFor(v)
		if !ok {
			return fmt.Errorf("%w: %T", ErrUnsupportedValue, v)
		}
		return r.tmpl.ExecuteTemplate(r.w, name, v)
	default:
		return r.tmpl.Execute(r.w, v)
	}
}

func textTemplateFor(v any) (string, bool) {
	switch v.(type) {
	case GenerationResult, *GenerationResult:
		return "generation", true
	case PollResult, *PollResult:
		return "poll", true
	case URIResult, *URIResult:
		return "uri", true
	case CatalogSummary, *CatalogSummary:
		return "catalog", true
	default:
		return "", false
	}
}

func funcMap() template.FuncMap {
	fm := sprig.TxtFuncMap()
	fm["json"] = tmplToJSON
	fm["prettyJSON"] = tmplPrettyJSON
	return fm
}

func tmplToJSON(v any) string {
	b, err := jsonutil.Marshal(v)
	if err != nil {
		return fmt.Sprintf("error: %v", err)
	}
	return string(b)
}

func tmplPrettyJSON(v any) string {
	b, err := jsonutil.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("error: %v", err)
	}
	return string(b)
}
