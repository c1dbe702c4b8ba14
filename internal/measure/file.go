package measure

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/access-cli/internal/impedance"
)

// catalogFile is the on-disk measure catalog format:
//
//	measures:
//	  - name: EXP_0_15
//	    family: negative_exponential
//	    param: 0.15
//	    cutoff: 45   # optional hard cutoff, 0/omitted = none
type catalogFile struct {
	Measures []catalogEntry `yaml:"measures"`
}

type catalogEntry struct {
	Name   string  `yaml:"name"`
	Family string  `yaml:"family"`
	Param  float64 `yaml:"param"`
	Cutoff float64 `yaml:"cutoff"`
}

// LoadFile reads a YAML measure catalog and builds a registry from it.
// All entries are validated; the first invalid entry fails the load.
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "measure: read catalog %s", path)
	}
	return parseCatalog(data)
}

func parseCatalog(data []byte) (*Registry, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrap(err, "measure: parse catalog")
	}
	if len(f.Measures) == 0 {
		return nil, eris.New("measure: catalog contains no measures")
	}

	r := NewRegistry()
	for _, e := range f.Measures {
		// impedance.New rejects unknown families with a precise error, so the
		// raw string passes straight through.
		if err := r.Register(e.Name, impedance.Family(e.Family), e.Param, e.Cutoff); err != nil {
			return nil, eris.Wrapf(err, "measure: catalog entry %q", e.Name)
		}
	}
	return r, nil
}
