package token

import (
	"context"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/labels"
	"k8s.io/client-go/kubernetes"
	ctrl "sigs.k8s.io/controller-runtime"
)

const (
	// DefaultSecretName is the Secret written when no name is configured.
	DefaultSecretName = "msauth-tokens"

	// SecretKey is the data key holding the roadtools JSON.
	SecretKey = DefaultRoadtoolsPath
)

// SecretPersister stores snapshots in a Kubernetes Secret so in-cluster
// workloads can mount the current tokens.
type SecretPersister struct {
	client    kubernetes.Interface
	namespace string
	name      string
}

// NewSecretPersister creates a persister writing to namespace/name.
func NewSecretPersister(client kubernetes.Interface, namespace, name string) *SecretPersister {
	if namespace == "" {
		namespace = metav1.NamespaceDefault
	}
	if name == "" {
		name = DefaultSecretName
	}
	return &SecretPersister{client: client, namespace: namespace, name: name}
}

// NewSecretPersisterFromEnvironment builds a clientset from the standard
// kubeconfig / in-cluster discovery.
func NewSecretPersisterFromEnvironment(namespace, name string) (*SecretPersister, error) {
	restConfig, err := ctrl.GetConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to get Kubernetes config: %w", err)
	}

	clientset, err := kubernetes.NewForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kubernetes client: %w", err)
	}

	return NewSecretPersister(clientset, namespace, name), nil
}

// Location implements Persister.
func (p *SecretPersister) Location() string {
	return fmt.Sprintf("secret/%s/%s", p.namespace, p.name)
}

func (p *SecretPersister) labels() labels.Set {
	return labels.Set{
		"app.kubernetes.io/managed-by": "msauth",
		"app.kubernetes.io/component":  "tokens",
	}
}

// Save implements Persister. The Secret is created on first use and updated
// afterwards; other data keys in an existing Secret are left alone.
func (p *SecretPersister) Save(ctx context.Context, snapshot Snapshot) error {
	data, err := MarshalRoadtools(snapshot)
	if err != nil {
		return fmt.Errorf("encode tokens: %w", err)
	}

	secrets := p.client.CoreV1().Secrets(p.namespace)

	existing, err := secrets.Get(ctx, p.name, metav1.GetOptions{})
	if apierrors.IsNotFound(err) {
		secret := &corev1.Secret{
			ObjectMeta: metav1.ObjectMeta{
				Name:      p.name,
				Namespace: p.namespace,
				Labels:    p.labels(),
			},
			Type: corev1.SecretTypeOpaque,
			Data: map[string][]byte{SecretKey: data},
		}
		if _, err := secrets.Create(ctx, secret, metav1.CreateOptions{}); err != nil {
			return fmt.Errorf("create secret: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("get secret: %w", err)
	}

	updated := existing.DeepCopy()
	if updated.Data == nil {
		updated.Data = map[string][]byte{}
	}
	updated.Data[SecretKey] = data
	updated.Labels = labels.Merge(updated.Labels, p.labels())

	if _, err := secrets.Update(ctx, updated, metav1.UpdateOptions{}); err != nil {
		return fmt.Errorf("update secret: %w", err)
	}
	return nil
}
