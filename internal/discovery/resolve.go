package discovery

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tumi8/insalata-go/internal/config"
)

// HypervisorK8s is the locations-registry hypervisor value that triggers
// Kubernetes-backed discovery instead of the static config fields.
const HypervisorK8s = "k8s"

// ResolveLocation returns entry unchanged unless its hypervisor is "k8s", in
// which case it looks up a Service and a Secret both named locationID in
// namespace and overlays URI/LoginID/LoginPass from them. The static config
// path (every other hypervisor) is untouched.
func ResolveLocation(ctx context.Context, c Client, namespace, locationID string, entry config.LocationEntry, log *slog.Logger) (config.LocationEntry, error) {
	if entry.Hypervisor != HypervisorK8s {
		return entry, nil
	}
	if log == nil {
		log = slog.Default()
	}

	svc, err := c.GetService(ctx, namespace, locationID)
	if err != nil {
		return entry, fmt.Errorf("discovery: resolve location %q: %w", locationID, err)
	}
	if len(svc.Spec.Ports) == 0 {
		return entry, fmt.Errorf("discovery: service %s/%s has no ports", namespace, locationID)
	}
	entry.URI = fmt.Sprintf("https://%s:%d", svc.Spec.ClusterIP, svc.Spec.Ports[0].Port)

	secret, err := c.GetSecret(ctx, namespace, locationID)
	if err != nil {
		return entry, fmt.Errorf("discovery: resolve location %q: %w", locationID, err)
	}
	if id, ok := secret.Data["loginId"]; ok {
		entry.LoginID = string(id)
	}
	if pass, ok := secret.Data["loginPass"]; ok {
		entry.LoginPass = string(pass)
	}

	log.Debug("resolved k8s-backed location", "location", locationID, "uri", entry.URI)
	return entry, nil
}

// ResolveRegistry runs ResolveLocation over every entry in reg, returning a
// new registry with k8s-backed entries overlaid and everything else passed
// through. A per-location resolution failure is logged and that location
// keeps its static fields rather than aborting the whole registry load.
func ResolveRegistry(ctx context.Context, c Client, namespace string, reg *config.LocationsRegistry, log *slog.Logger) *config.LocationsRegistry {
	if log == nil {
		log = slog.Default()
	}
	resolved := config.NewLocationsRegistry()
	for _, id := range reg.IDs() {
		entry, _ := reg.Lookup(id)
		updated, err := ResolveLocation(ctx, c, namespace, id, entry, log)
		if err != nil {
			log.Warn("k8s location discovery failed, keeping static config", "location", id, "error", err)
			resolved.Set(id, entry)
			continue
		}
		resolved.Set(id, updated)
	}
	return resolved
}
