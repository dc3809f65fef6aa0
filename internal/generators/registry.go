// Package generators maps generator names to record factory constructors via
// an explicit registration table built at process startup.
package generators

import (
	"fmt"
	"sort"

	"simtom/internal/generators/bnpl"
	"simtom/internal/models"
)

// Factory synthesizes business fields: entity attributes on first reference
// to a key, and output records for each arrival event.
type Factory interface {
	Name() string
	Entity(key string) (map[string]any, error)
	Record(event models.ArrivalEvent, entity *models.EntityProfile) (models.Record, error)
}

// Constructor builds a factory for one stream.
type Constructor func(cfg models.StreamConfig) (Factory, error)

var table = map[string]Constructor{
	"bnpl": func(cfg models.StreamConfig) (Factory, error) { return bnpl.New(cfg) },
}

// New constructs the named factory for a stream.
func New(name string, cfg models.StreamConfig) (Factory, error) {
	ctor, ok := table[name]
	if !ok {
		return nil, fmt.Errorf("unknown generator: %s", name)
	}
	return ctor(cfg)
}

// Names lists the registered generators in stable order.
func Names() []string {
	names := make([]string, 0, len(table))
	for name := range table {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
