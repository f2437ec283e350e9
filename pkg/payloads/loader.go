package payloads

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed payload_definitions.yaml
var defaultCatalog []byte

// document is the on-disk layout of a catalog file.
type document struct {
	Payloads []Definition `yaml:"payloads"`
}

// Parse decodes a YAML catalog document. It does not validate the entries;
// use NewCatalog or Validate for that.
func Parse(data []byte) ([]Definition, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var doc document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("parsing payload catalog: %w", err)
	}
	if len(doc.Payloads) == 0 {
		return nil, ErrEmptyCatalog
	}
	return doc.Payloads, nil
}

// LoadFile reads and validates the catalog stored at path.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	defs, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return NewCatalog(defs)
}

// LoadDefault returns the catalog compiled into the binary.
func LoadDefault() (*Catalog, error) {
	defs, err := Parse(defaultCatalog)
	if err != nil {
		return nil, fmt.Errorf("loading built-in catalog: %w", err)
	}
	return NewCatalog(defs)
}

// Load returns the catalog at path, or the built-in one when path is empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return LoadDefault()
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return NewLoader(path).LoadAll()
	}
	return LoadFile(path)
}

// Loader assembles a catalog from every YAML file under a directory.
// Files are visited in lexical order so catalog order, and therefore
// selection priority, is reproducible.
type Loader struct {
	baseDir string
}

// NewLoader creates a new catalog loader rooted at baseDir.
func NewLoader(baseDir string) *Loader {
	return &Loader{baseDir: baseDir}
}

// LoadAll loads, concatenates and validates all catalog files.
func (l *Loader) LoadAll() (*Catalog, error) {
	var all []Definition

	err := filepath.Walk(l.baseDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !isYAML(info.Name()) {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		defs, err := Parse(data)
		if err != nil {
			return fmt.Errorf("loading %s: %w", path, err)
		}
		all = append(all, defs...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("%s: %w", l.baseDir, ErrEmptyCatalog)
	}

	return NewCatalog(all)
}

func isYAML(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}

// LoadStats summarises a catalog.
type LoadStats struct {
	TotalPayloads    int
	CallbackPayloads int
	ByVulnerability  map[VulnerabilityType]int
}

// GetStats returns statistics about the loaded definitions.
func GetStats(defs []Definition) LoadStats {
	stats := LoadStats{
		TotalPayloads:   len(defs),
		ByVulnerability: make(map[VulnerabilityType]int),
	}
	for _, d := range defs {
		if d.UsesCallbackServer {
			stats.CallbackPayloads++
		}
		for _, vt := range d.VulnerabilityTypes {
			stats.ByVulnerability[vt]++
		}
	}
	return stats
}
