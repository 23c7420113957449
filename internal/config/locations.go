package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// TemplateEntry is one location's named template, carrying the metadata
// tags the dispatcher ranks builder candidates against.
type TemplateEntry struct {
	Metadata []string `mapstructure:"metadata"`
}

// LocationEntry is one location's static registry record: which hypervisor
// drives it, its default template, its named templates, and whatever
// hypervisor-specific login fields that hypervisor's builder needs.
type LocationEntry struct {
	Hypervisor      string                   `mapstructure:"hypervisor"`
	DefaultTemplate string                   `mapstructure:"default_template"`
	Templates       map[string]TemplateEntry `mapstructure:"templates"`

	URI        string `mapstructure:"uri"`
	LoginID    string `mapstructure:"login_id"`
	LoginPass  string `mapstructure:"login_pass"`
	XenStorage string `mapstructure:"xen_storage"`
}

// LocationsRegistry is the full set of known locations, keyed by lower-cased
// location ID exactly as the source's ConfigObj-backed locations.conf is.
type LocationsRegistry struct {
	byID map[string]LocationEntry
}

// NewLocationsRegistry returns an empty registry, for callers building one
// programmatically (e.g. overlaying Kubernetes-discovered entries) rather
// than loading it from a file.
func NewLocationsRegistry() *LocationsRegistry {
	return &LocationsRegistry{byID: map[string]LocationEntry{}}
}

// Lookup resolves id case-insensitively, returning ok=false if unknown.
func (r *LocationsRegistry) Lookup(id string) (LocationEntry, bool) {
	e, ok := r.byID[strings.ToLower(id)]
	return e, ok
}

// Set stores entry under id, lower-cased.
func (r *LocationsRegistry) Set(id string, entry LocationEntry) {
	r.byID[strings.ToLower(id)] = entry
}

// IDs returns every registered location ID, lower-cased.
func (r *LocationsRegistry) IDs() []string {
	ids := make([]string, 0, len(r.byID))
	for id := range r.byID {
		ids = append(ids, id)
	}
	return ids
}

// LoadLocationsRegistry reads path into a LocationsRegistry, lower-casing
// every top-level key the way the source's ConfigObj case-folds section
// names.
func LoadLocationsRegistry(path string) (*LocationsRegistry, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: read locations registry %s: %w", path, err)
	}

	var raw map[string]LocationEntry
	if err := v.Unmarshal(&raw); err != nil {
		return nil, fmt.Errorf("config: unmarshal locations registry %s: %w", path, err)
	}

	byID := make(map[string]LocationEntry, len(raw))
	for id, entry := range raw {
		byID[strings.ToLower(id)] = entry
	}
	return &LocationsRegistry{byID: byID}, nil
}
