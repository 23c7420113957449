// Package discovery resolves a location's connection details from a
// Kubernetes Service/Secret pair instead of the static locations registry:
// an interface plus in-cluster config, narrowed to the one field
// set a location entry needs: a URI and a login identity.
package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
)

// Client is the narrow slice of the Kubernetes API location discovery
// needs: read one Service and one Secret by name.
type Client interface {
	GetService(ctx context.Context, namespace, name string) (*corev1.Service, error)
	GetSecret(ctx context.Context, namespace, name string) (*corev1.Secret, error)
	Health(ctx context.Context) error
}

type client struct {
	clientset kubernetes.Interface
	log       *slog.Logger
}

// NewClient wraps an existing clientset (a fake one in tests, a real one in
// production) as a Client.
func NewClient(clientset kubernetes.Interface, log *slog.Logger) Client {
	if log == nil {
		log = slog.Default()
	}
	return &client{clientset: clientset, log: log}
}

// NewInClusterClient builds a Client from the pod's in-cluster
// ServiceAccount config, the way the daemon runs when deployed alongside
// the infrastructure it manages.
func NewInClusterClient(log *slog.Logger) (Client, error) {
	cfg, err := rest.InClusterConfig()
	if err != nil {
		return nil, fmt.Errorf("discovery: load in-cluster config: %w", err)
	}
	clientset, err := kubernetes.NewForConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("discovery: build clientset: %w", err)
	}
	return NewClient(clientset, log), nil
}

func (c *client) GetService(ctx context.Context, namespace, name string) (*corev1.Service, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	svc, err := c.clientset.CoreV1().Services(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return nil, fmt.Errorf("discovery: get service %s/%s: %w", namespace, name, err)
	}
	return svc, nil
}

func (c *client) GetSecret(ctx context.Context, namespace, name string) (*corev1.Secret, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	secret, err := c.clientset.CoreV1().Secrets(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return nil, fmt.Errorf("discovery: get secret %s/%s: %w", namespace, name, err)
	}
	return secret, nil
}

func (c *client) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := c.clientset.Discovery().ServerVersion(); err != nil {
		return fmt.Errorf("discovery: k8s API unavailable: %w", err)
	}
	if ctx.Err() != nil {
		return fmt.Errorf("discovery: health check timed out: %w", ctx.Err())
	}
	return nil
}
