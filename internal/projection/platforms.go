package projection

import (
	_ "embed"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

//go:embed platforms.yaml
var defaultCatalogYAML []byte

// PlatformCatalog maps engine-reported platform labels to canonical names.
// Unknown platforms are never dropped; they pass through with their given
// label, so the catalog only affects normalization, not coverage.
type PlatformCatalog struct {
	Platforms []PlatformEntry `yaml:"platforms"`

	byAlias map[string]string
}

// PlatformEntry is one recognized platform and its label aliases.
type PlatformEntry struct {
	Name    string   `yaml:"name"`
	Aliases []string `yaml:"aliases,omitempty"`
}

// DefaultCatalog returns the embedded platform catalog.
func DefaultCatalog() *PlatformCatalog {
	c, err := parseCatalog(defaultCatalogYAML)
	if err != nil {
		// The embedded catalog is compiled in; a parse failure is a build
		// defect, not a runtime condition.
		panic(err)
	}
	return c
}

// LoadCatalog reads a platform catalog from a YAML file.
func LoadCatalog(path string) (*PlatformCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "projection: read platform catalog %s", path)
	}
	c, err := parseCatalog(data)
	if err != nil {
		return nil, eris.Wrapf(err, "projection: parse platform catalog %s", path)
	}
	return c, nil
}

func parseCatalog(data []byte) (*PlatformCatalog, error) {
	var c PlatformCatalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	c.byAlias = make(map[string]string)
	for _, p := range c.Platforms {
		c.byAlias[strings.ToLower(p.Name)] = p.Name
		for _, a := range p.Aliases {
			c.byAlias[strings.ToLower(a)] = p.Name
		}
	}
	return &c, nil
}

// Canonical resolves a reported platform label to its canonical name.
// Unrecognized labels return lowercased as-is with ok=false.
func (c *PlatformCatalog) Canonical(label string) (string, bool) {
	key := strings.ToLower(strings.TrimSpace(label))
	if name, ok := c.byAlias[key]; ok {
		return name, true
	}
	return key, false
}
