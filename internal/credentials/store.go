// Package credentials resolves the credentials used by outbound requests and
// implements the host capabilities the request executor borrows.
package credentials

import (
	"context"
	"fmt"
	"os"

	"github.com/go-logr/logr"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/yaml"

	httpv1alpha1 "github.com/konnektr-io/http-request-operator/api/v1alpha1"
	"github.com/konnektr-io/http-request-operator/internal/httprequest"
)

// Store returns the fields of a credential by type.
type Store interface {
	Credentials(ctx context.Context, credentialType string) (httprequest.Credentials, error)
}

// SecretStore resolves credentials from Kubernetes secrets referenced by a resource.
type SecretStore struct {
	Client    client.Client
	Log       logr.Logger
	Namespace string
	Refs      []httpv1alpha1.CredentialRef
}

// NewSecretStore creates a SecretStore for the refs of a resource in namespace.
func NewSecretStore(c client.Client, log logr.Logger, namespace string, refs []httpv1alpha1.CredentialRef) *SecretStore {
	return &SecretStore{
		Client:    c,
		Log:       log,
		Namespace: namespace,
		Refs:      refs,
	}
}

// Credentials reads the secret mapped to credentialType. Every secret key is
// exposed as a field; ref.Keys renames fields to differently named keys.
func (s *SecretStore) Credentials(ctx context.Context, credentialType string) (httprequest.Credentials, error) {
	var ref *httpv1alpha1.CredentialRef
	for i := range s.Refs {
		if s.Refs[i].Type == credentialType {
			ref = &s.Refs[i]
			break
		}
	}
	if ref == nil {
		return nil, fmt.Errorf("no credentials of type '%s' are configured", credentialType)
	}
	log := s.Log.WithValues("credentialType", credentialType, "secret", ref.Name)

	secretNamespace := ref.Namespace
	if secretNamespace == "" {
		secretNamespace = s.Namespace
	}

	secret := &corev1.Secret{}
	if err := s.Client.Get(ctx, types.NamespacedName{Name: ref.Name, Namespace: secretNamespace}, secret); err != nil {
		if apierrors.IsNotFound(err) {
			return nil, fmt.Errorf("credential secret '%s' not found in namespace '%s'", ref.Name, secretNamespace)
		}
		return nil, fmt.Errorf("failed to get credential secret '%s' in namespace '%s': %w", ref.Name, secretNamespace, err)
	}

	creds := make(httprequest.Credentials, len(secret.Data)+len(secret.StringData))
	for k, v := range secret.Data {
		creds[k] = string(v)
	}
	for k, v := range secret.StringData {
		creds[k] = v
	}
	for field, key := range ref.Keys {
		value, ok := creds[key]
		if !ok {
			log.Info("Warning: mapped secret key not found", "field", field, "key", key)
			continue
		}
		creds[field] = value
	}

	log.V(1).Info("Resolved credentials", "fields", len(creds))
	return creds, nil
}

// FileStore holds credentials loaded from a YAML or JSON file of the form
// type -> field -> value.
type FileStore struct {
	creds map[string]httprequest.Credentials
}

// NewFileStore wraps an in-memory credential map.
func NewFileStore(creds map[string]httprequest.Credentials) *FileStore {
	if creds == nil {
		creds = map[string]httprequest.Credentials{}
	}
	return &FileStore{creds: creds}
}

// LoadFileStore reads a credentials file.
func LoadFileStore(path string) (*FileStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}
	var creds map[string]httprequest.Credentials
	if err := yaml.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("failed to parse credentials file: %w", err)
	}
	return NewFileStore(creds), nil
}

// Credentials returns the credential of the given type.
func (s *FileStore) Credentials(_ context.Context, credentialType string) (httprequest.Credentials, error) {
	creds, ok := s.creds[credentialType]
	if !ok {
		return nil, fmt.Errorf("no credentials of type '%s' are configured", credentialType)
	}
	out := make(httprequest.Credentials, len(creds))
	for k, v := range creds {
		out[k] = v
	}
	return out, nil
}
