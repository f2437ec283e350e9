package output

import (
	"fmt"
	"sort"

	"github.com/oobkit/oobkit/pkg/metrics"
	"github.com/oobkit/oobkit/pkg/oob"
	"github.com/oobkit/oobkit/pkg/payloadgen"
	"github.com/oobkit/oobkit/pkg/payloads"
)

// GenerationResult describes one generated payload.
type GenerationResult struct {
	ID                        string `json:"id"`
	Definition                string `json:"definition"`
	VulnerabilityType         string `json:"vulnerability_type"`
	InterpretationEnvironment string `json:"interpretation_environment"`
	ExecutionEnvironment      string `json:"execution_environment"`
	Payload                   string `json:"payload"`
	UsesCallbackServer        bool   `json:"uses_callback_server"`
	Secret                    string `json:"secret"`
	CBID                      string `json:"cbid,omitempty"`

	// Executed is set when captured output was checked against the payload.
	Executed *bool `json:"executed,omitempty"`

	// Verification is set when the caller waited for a callback.
	Verification *PollResult `json:"verification,omitempty"`
}

// NewGenerationResult summarises p.
func NewGenerationResult(p *payloadgen.Payload) GenerationResult {
	req := p.Request()
	r := GenerationResult{
		ID:                        p.ID(),
		Definition:                p.DefinitionName(),
		VulnerabilityType:         req.VulnerabilityType.String(),
		InterpretationEnvironment: req.InterpretationEnvironment.String(),
		ExecutionEnvironment:      req.ExecutionEnvironment.String(),
		Payload:                   p.PayloadString(),
		UsesCallbackServer:        p.Attributes().UsesCallbackServer,
		Secret:                    p.Secret(),
	}
	if r.UsesCallbackServer {
		r.CBID = oob.CBID(r.Secret)
	}
	return r
}

// PollResult is the outcome of polling the callback server for one secret.
type PollResult struct {
	CBID               string `json:"cbid"`
	PollURL            string `json:"poll_url,omitempty"`
	Outcome            string `json:"outcome"`
	HasDNSInteraction  bool   `json:"has_dns_interaction"`
	HasHTTPInteraction bool   `json:"has_http_interaction"`
	Attempts           int    `json:"attempts,omitzero"`
	Error              string `json:"error,omitempty"`
}

// NewPollResult describes the last poll for cbid. err is the failure of
// the last poll, nil when it succeeded.
func NewPollResult(cbid, pollURL string, res oob.PollingResult, attempts int, err error) PollResult {
	r := PollResult{
		CBID:               cbid,
		PollURL:            pollURL,
		Outcome:            metrics.OutcomePending,
		HasDNSInteraction:  res.HasDNSInteraction,
		HasHTTPInteraction: res.HasHTTPInteraction,
		Attempts:           attempts,
	}
	switch {
	case res.Interacted():
		r.Outcome = metrics.OutcomeConfirmed
	case err != nil:
		r.Outcome = metrics.OutcomeFailed
		r.Error = err.Error()
	}
	return r
}

// Confirmed reports whether the callback server saw an interaction.
func (r PollResult) Confirmed() bool { return r.Outcome == metrics.OutcomeConfirmed }

// URIResult shows how a secret maps onto the callback server.
type URIResult struct {
	Secret      string `json:"secret"`
	CBID        string `json:"cbid"`
	AddressKind string `json:"address_kind"`
	Authority   string `json:"authority"`
	CallbackURI string `json:"callback_uri"`
	PollURL     string `json:"poll_url"`
	Enabled     bool   `json:"enabled"`
}

// NewURIResult describes secret against client.
func NewURIResult(client *oob.Client, secret string) URIResult {
	e := client.Endpoint()
	return URIResult{
		Secret:      secret,
		CBID:        oob.CBID(secret),
		AddressKind: e.Kind().String(),
		Authority:   e.Authority(),
		CallbackURI: client.CallbackURI(secret),
		PollURL:     client.PollURL(secret),
		Enabled:     client.IsCallbackServerEnabled(),
	}
}

// DefinitionRow is one catalog entry in a listing.
type DefinitionRow struct {
	Name                      string   `json:"name"`
	InterpretationEnvironment string   `json:"interpretation_environment"`
	ExecutionEnvironment      string   `json:"execution_environment"`
	VulnerabilityTypes        []string `json:"vulnerability_types"`
	UsesCallbackServer        bool     `json:"uses_callback_server"`
	ValidationType            string   `json:"validation_type,omitempty"`
}

// VulnerabilityCount is a per-type tally in a catalog summary.
type VulnerabilityCount struct {
	VulnerabilityType string `json:"vulnerability_type"`
	Count             int    `json:"count"`
}

// CatalogSummary describes a validated catalog.
type CatalogSummary struct {
	Source          string               `json:"source"`
	Fingerprint     string               `json:"fingerprint"`
	Total           int                  `json:"total"`
	Callback        int                  `json:"callback"`
	ByVulnerability []VulnerabilityCount `json:"by_vulnerability"`
	Definitions     []DefinitionRow      `json:"definitions,omitempty"`
}

// NewCatalogSummary summarises c. Definitions are listed when withRows is set.
func NewCatalogSummary(source string, c *payloads.Catalog, withRows bool) CatalogSummary {
	defs := c.Definitions()
	stats := payloads.GetStats(defs)

	s := CatalogSummary{
		Source:      source,
		Fingerprint: fmt.Sprintf("%08x", c.Fingerprint()),
		Total:       stats.TotalPayloads,
		Callback:    stats.CallbackPayloads,
	}
	for vt, n := range stats.ByVulnerability {
		s.ByVulnerability = append(s.ByVulnerability, VulnerabilityCount{VulnerabilityType: vt.String(), Count: n})
	}
	sort.Slice(s.ByVulnerability, func(i, j int) bool {
		return s.ByVulnerability[i].VulnerabilityType < s.ByVulnerability[j].VulnerabilityType
	})

	if withRows {
		for _, d := range defs {
			row := DefinitionRow{
				Name:                      d.Name,
				InterpretationEnvironment: d.InterpretationEnvironment.String(),
				ExecutionEnvironment:      d.ExecutionEnvironment.String(),
				UsesCallbackServer:        d.UsesCallbackServer,
			}
			if !d.UsesCallbackServer {
				row.ValidationType = d.ValidationType.String()
			}
			for _, vt := range d.VulnerabilityTypes {
				row.VulnerabilityTypes = append(row.VulnerabilityTypes, vt.String())
			}
			s.Definitions = append(s.Definitions, row)
		}
	}
	return s
}
