package output

// builtInTemplates are the text layouts, keyed by result kind.
var builtInTemplates = map[string]string{
	"generation": `Payload:     {{ .Payload }}
Definition:  {{ .Definition }}
Request:     {{ .VulnerabilityType }} / {{ .InterpretationEnvironment }} / {{ .ExecutionEnvironment }}
Validation:  {{ ternary "callback server" "regex" .UsesCallbackServer }}
Secret:      {{ .Secret }}
{{- if .CBID }}
CBID:        {{ .CBID }}
{{- end }}
ID:          {{ .ID }}
{{- with .Executed }}
Executed:    {{ . }}
{{- end }}
{{- with .Verification }}
Outcome:     {{ .Outcome }}{{ if .Attempts }} after {{ .Attempts }} poll{{ if ne .Attempts 1 }}s{{ end }}{{ end }}
{{- end }}
`,

	"poll": `CBID:        {{ .CBID }}
Outcome:     {{ .Outcome }}
DNS:         {{ .HasDNSInteraction }}
HTTP:        {{ .HasHTTPInteraction }}
{{- if .Attempts }}
Attempts:    {{ .Attempts }}
{{- end }}
{{- if .Error }}
Error:       {{ .Error }}
{{- end }}
`,

	"uri": `Secret:      {{ .Secret }}
CBID:        {{ .CBID }}
Address:     {{ .Authority }} ({{ .AddressKind }})
Callback:    {{ .CallbackURI }}
Poll:        {{ .PollURL }}
Enabled:     {{ .Enabled }}
`,

	"catalog": `Catalog:     {{ .Source }}
Fingerprint: {{ .Fingerprint }}
Payloads:    {{ .Total }} ({{ .Callback }} callback, {{ sub .Total .Callback }} regex)
{{- range .ByVulnerability }}
  {{ printf "%-22s" .VulnerabilityType }} {{ .Count }}
{{- end }}
{{- if .Definitions }}

{{ printf "%-28s %-22s %-32s %s" "NAME" "INTERPRETATION" "EXECUTION" "VULNERABILITIES" }}
{{- range .Definitions }}
{{ printf "%-28s %-22s %-32s %s" .Name .InterpretationEnvironment .ExecutionEnvironment (join "," .VulnerabilityTypes) }}
{{- end }}
{{- end }}
`,
}
