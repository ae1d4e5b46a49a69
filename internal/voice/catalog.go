package voice

import (
	_ "embed"
	"sort"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

//go:embed voices.yaml
var defaultCatalogYAML []byte

type Voice struct {
	Language string `json:"language" yaml:"language"`
	Gender   string `json:"gender" yaml:"gender"`
}

// Catalog maps a voice name to its language and gender.
type Catalog map[string]Voice

func ParseCatalog(raw []byte) (Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, errors.Wrap(err, "parse voice catalog")
	}
	if len(c) == 0 {
		return nil, errors.New("voice catalog is empty")
	}
	for name, v := range c {
		if v.Language == "" {
			return nil, errors.Newf("voice %q has no language", name)
		}
	}
	return c, nil
}

// DefaultCatalog returns the embedded catalog.
func DefaultCatalog() Catalog {
	c, err := ParseCatalog(defaultCatalogYAML)
	if err != nil {
		panic(err)
	}
	return c
}

func (c Catalog) Lookup(name string) (Voice, bool) {
	v, ok := c[name]
	return v, ok
}

func (c Catalog) Names() []string {
	out := make([]string, 0, len(c))
	for name := range c {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
