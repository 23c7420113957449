// Package dispatcher resolves (action, hypervisor, template tags, service)
// tuples to a concrete builder callable. The registry is an explicit,
// statically built list rather than a runtime namespace walk: every
// callable a builder package exposes is added by an explicit Register call
// when the registry is built (environment.New calls stub.Register).
package dispatcher

import (
	"fmt"
	"log/slog"
)

// BuildFunc is the signature every dispatchable builder action has: it
// receives the deployment config name and the affected object's own type,
// left to the caller to type-assert.
type BuildFunc func(configName string, obj interface{}) error

// Candidate is one registered callable with the tags findFunction matches
// and ranks against.
type Candidate struct {
	Name       string
	Action     string
	Hypervisor string   // empty matches any
	Template   []string // empty matches any; non-empty requires intersection
	Service    string   // empty matches any
	Fn         BuildFunc
}

func (c Candidate) matches(hypervisor string, templateTags []string, service string) bool {
	if c.Hypervisor != "" && c.Hypervisor != hypervisor {
		return false
	}
	if len(c.Template) > 0 && !intersects(c.Template, templateTags) {
		return false
	}
	if c.Service != "" && c.Service != service {
		return false
	}
	return true
}

func (c Candidate) specificity(hypervisor string, templateTags []string, service string) int {
	score := 0
	if c.Hypervisor != "" {
		score++
	}
	score += len(intersection(c.Template, templateTags))
	if c.Service != "" {
		score++
	}
	return score
}

func intersects(a, b []string) bool {
	return len(intersection(a, b)) > 0
}

func intersection(a, b []string) []string {
	set := make(map[string]struct{}, len(b))
	for _, v := range b {
		set[v] = struct{}{}
	}
	var out []string
	for _, v := range a {
		if _, ok := set[v]; ok {
			out = append(out, v)
		}
	}
	return out
}

// Registry is a process-wide, order-preserving list of registered builder
// candidates plus the per-object override table loaded from the
// environment's dispatcher override config.
type Registry struct {
	candidates []Candidate
	byName     map[string]Candidate
	overrides  map[string]map[string]string // objectID -> action -> callable name
	log        *slog.Logger
}

// NewRegistry creates an empty registry. Register callables onto it before
// first use; it is not safe for concurrent registration and lookup.
func NewRegistry(log *slog.Logger) *Registry {
	if log == nil {
		log = slog.Default()
	}
	return &Registry{byName: map[string]Candidate{}, overrides: map[string]map[string]string{}, log: log}
}

// Register adds c to the registry. Registration order is preserved and
// used to break specificity ties.
func (r *Registry) Register(c Candidate) {
	r.candidates = append(r.candidates, c)
	r.byName[c.Name] = c
}

// SetOverrides replaces the per-object override table: objectID -> action
// -> registered callable name.
func (r *Registry) SetOverrides(overrides map[string]map[string]string) {
	r.overrides = overrides
}

// Find resolves a callable for (objectID, action, hypervisor, templateTags,
// service). A per-object override, if present, strictly wins. Otherwise
// candidates are filtered by action and tag compatibility, then ranked by
// specificity descending, ties broken by registration order.
func (r *Registry) Find(objectID, action, hypervisor string, templateTags []string, service string) (BuildFunc, error) {
	if byAction, ok := r.overrides[objectID]; ok {
		if name, ok := byAction[action]; ok {
			if c, ok := r.byName[name]; ok {
				return c.Fn, nil
			}
			return nil, fmt.Errorf("dispatcher: override names unknown callable %q for %s/%s", name, objectID, action)
		}
	}

	var best *Candidate
	bestScore := -1
	for i := range r.candidates {
		c := r.candidates[i]
		if c.Action != action || !c.matches(hypervisor, templateTags, service) {
			continue
		}
		score := c.specificity(hypervisor, templateTags, service)
		if score > bestScore {
			bestScore = score
			best = &r.candidates[i]
		}
	}
	if best == nil {
		return nil, fmt.Errorf("dispatcher: no builder for object %q action %q", objectID, action)
	}
	return best.Fn, nil
}
