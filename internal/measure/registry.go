package measure

import (
	"sort"

	"github.com/sells-group/access-cli/internal/impedance"
)

// Registry is the catalog of configured measures for a run. Registration
// order is preserved; it determines the column order of the output table.
// The registry is not safe for concurrent mutation, but once building is
// done it may be read freely from concurrent workers.
type Registry struct {
	byName map[string]Measure
	order  []string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Measure)}
}

// Register validates parameters and adds a measure under a unique name.
func (r *Registry) Register(name string, family impedance.Family, param, cutoff float64) error {
	if _, exists := r.byName[name]; exists {
		return &DuplicateNameError{Name: name}
	}
	fn, err := impedance.New(family, param)
	if err != nil {
		return err
	}
	m, err := New(name, fn, cutoff)
	if err != nil {
		return err
	}
	r.byName[name] = m
	r.order = append(r.order, name)
	return nil
}

// Resolve returns the measure registered under name.
func (r *Registry) Resolve(name string) (Measure, error) {
	m, ok := r.byName[name]
	if !ok {
		return Measure{}, &UnknownMeasureError{Name: name}
	}
	return m, nil
}

// Names returns measure names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Measures returns all measures in registration order.
func (r *Registry) Measures() []Measure {
	out := make([]Measure, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.byName[name])
	}
	return out
}

// Len returns the number of registered measures.
func (r *Registry) Len() int { return len(r.order) }

// FromPresets builds a registry holding the standard preset catalog,
// sorted by name for a stable column order.
func FromPresets() (*Registry, error) {
	presets := impedance.Presets()
	sort.Slice(presets, func(i, j int) bool { return presets[i].Name < presets[j].Name })

	r := NewRegistry()
	for _, p := range presets {
		if err := r.Register(p.Name, p.Family, p.Param, 0); err != nil {
			return nil, err
		}
	}
	return r, nil
}
