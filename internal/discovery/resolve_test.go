package discovery

import (
	"context"
	"testing"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tumi8/insalata-go/internal/config"
)

func TestResolveLocationOverlaysURIAndCredentialsForK8sHypervisor(t *testing.T) {
	clientset := fake.NewSimpleClientset(
		&corev1.Service{
			ObjectMeta: metav1.ObjectMeta{Name: "lab", Namespace: "insalata"},
			Spec: corev1.ServiceSpec{
				ClusterIP: "10.0.0.5",
				Ports:     []corev1.ServicePort{{Port: 443}},
			},
		},
		&corev1.Secret{
			ObjectMeta: metav1.ObjectMeta{Name: "lab", Namespace: "insalata"},
			Data: map[string][]byte{
				"loginId":   []byte("root"),
				"loginPass": []byte("hunter2"),
			},
		},
	)
	c := NewClient(clientset, nil)

	entry := config.LocationEntry{Hypervisor: "k8s"}
	resolved, err := ResolveLocation(context.Background(), c, "insalata", "lab", entry, nil)
	require.NoError(t, err)

	assert.Equal(t, "https://10.0.0.5:443", resolved.URI)
	assert.Equal(t, "root", resolved.LoginID)
	assert.Equal(t, "hunter2", resolved.LoginPass)
}

func TestResolveLocationLeavesNonK8sHypervisorUntouched(t *testing.T) {
	clientset := fake.NewSimpleClientset()
	c := NewClient(clientset, nil)

	entry := config.LocationEntry{Hypervisor: "xen", URI: "https://xen.example:443"}
	resolved, err := ResolveLocation(context.Background(), c, "insalata", "lab", entry, nil)
	require.NoError(t, err)
	assert.Equal(t, entry, resolved)
}

func TestResolveRegistryKeepsStaticEntryWhenDiscoveryFails(t *testing.T) {
	clientset := fake.NewSimpleClientset() // no Service/Secret registered for "lab"
	c := NewClient(clientset, nil)

	reg := config.NewLocationsRegistry()
	reg.Set("lab", config.LocationEntry{Hypervisor: "k8s", URI: "https://stale:443"})

	resolved := ResolveRegistry(context.Background(), c, "insalata", reg, nil)
	entry, ok := resolved.Lookup("lab")
	require.True(t, ok)
	assert.Equal(t, "https://stale:443", entry.URI, "discovery failure must not clobber the static fallback")
}
