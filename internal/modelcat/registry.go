package modelcat

import (
	"embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed config/*.yaml
var configFiles embed.FS

// Model describes one selectable completion model.
type Model struct {
	ID             string  `yaml:"id" json:"id"`
	Label          string  `yaml:"label" json:"label"`
	MaxTemperature float64 `yaml:"max_temperature" json:"max_temperature"`
	Deprecated     bool    `yaml:"deprecated" json:"deprecated"`
}

// catalog is the YAML document shape.
type catalog struct {
	Models []Model `yaml:"models"`
}

// Option is the label/value pair the model selector consumes.
type Option struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Registry serves the embedded model catalog
type Registry struct {
	models map[string]Model
	order  []string
	mu     sync.RWMutex
}

// NewRegistry creates a new model registry and loads the embedded YAML file
func NewRegistry() (*Registry, error) {
	data, err := configFiles.ReadFile("config/models.yaml")
	if err != nil {
		return nil, fmt.Errorf("failed to read model catalog: %w", err)
	}

	var cat catalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("failed to unmarshal model catalog: %w", err)
	}
	if len(cat.Models) == 0 {
		return nil, fmt.Errorf("model catalog is empty")
	}

	r := &Registry{models: make(map[string]Model)}
	for _, m := range cat.Models {
		r.models[m.ID] = m
		r.order = append(r.order, m.ID)
	}
	return r, nil
}

// Options returns selector options for every non-deprecated model, in
// catalog order.
func (r *Registry) Options() []Option {
	r.mu.RLock()
	defer r.mu.RUnlock()

	options := make([]Option, 0, len(r.order))
	for _, id := range r.order {
		m := r.models[id]
		if m.Deprecated {
			continue
		}
		options = append(options, Option{Label: m.Label, Value: m.ID})
	}
	return options
}

// Get returns the model with the given id
func (r *Registry) Get(id string) (Model, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.models[id]
	return m, ok
}
