package payloads

import (
	"fmt"

	"github.com/spaolacci/murmur3"
	"gopkg.in/yaml.v3"
)

// Catalog is the validated, read-only set of payload definitions shared by
// every generator in the process. It is never mutated after construction,
// so concurrent reads need no synchronisation.
type Catalog struct {
	defs        []Definition
	fingerprint uint32
}

// NewCatalog validates defs and wraps a private copy of them.
func NewCatalog(defs []Definition) (*Catalog, error) {
	if len(defs) == 0 {
		return nil, ErrEmptyCatalog
	}
	if _, err := Validate(defs); err != nil {
		return nil, err
	}

	owned := make([]Definition, len(defs))
	for i, d := range defs {
		owned[i] = d.clone()
	}

	fp, err := fingerprint(owned)
	if err != nil {
		return nil, err
	}
	return &Catalog{defs: owned, fingerprint: fp}, nil
}

// clone returns d with its own VulnerabilityTypes backing array.
func (d Definition) clone() Definition {
	d.VulnerabilityTypes = append([]VulnerabilityType(nil), d.VulnerabilityTypes...)
	return d
}

// Len returns the number of definitions.
func (c *Catalog) Len() int { return len(c.defs) }

// Definitions returns a copy of the definitions in catalog order.
func (c *Catalog) Definitions() []Definition {
	out := make([]Definition, len(c.defs))
	for i, d := range c.defs {
		out[i] = d.clone()
	}
	return out
}

// Find returns the first definition, in catalog order, that satisfies req
// in the given callback mode.
func (c *Catalog) Find(req Request, useCallback bool) (Definition, bool) {
	for i := range c.defs {
		if c.defs[i].Matches(req, useCallback) {
			return c.defs[i].clone(), true
		}
	}
	return Definition{}, false
}

// Fingerprint is a murmur3 hash of the canonical YAML encoding of the
// catalog. Two processes report the same value iff they serve the same
// definitions in the same order.
func (c *Catalog) Fingerprint() uint32 { return c.fingerprint }

// marshalCatalog encodes the document hashed by Fingerprint.
var marshalCatalog = yaml.Marshal

func fingerprint(defs []Definition) (uint32, error) {
	data, err := marshalCatalog(document{Payloads: defs})
	if err != nil {
		return 0, fmt.Errorf("fingerprinting payload catalog: %w", err)
	}
	return murmur3.Sum32(data), nil
}
