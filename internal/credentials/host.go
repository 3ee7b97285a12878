package credentials

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-logr/logr"

	"github.com/konnektr-io/http-request-operator/internal/httprequest"
)

// Host implements httprequest.Host on top of a Store and a Registry.
type Host struct {
	Store    Store
	Registry *Registry
	Log      logr.Logger
}

var (
	_ httprequest.Host                  = &Host{}
	_ httprequest.CredentialTypeChecker = &Host{}
)

// NewHost creates a Host. A nil registry means DefaultRegistry.
func NewHost(store Store, registry *Registry, log logr.Logger) *Host {
	if registry == nil {
		registry = DefaultRegistry()
	}
	return &Host{Store: store, Registry: registry, Log: log}
}

// GetCredentials returns the credential of the given type. Credentials do not
// vary per item.
func (h *Host) GetCredentials(ctx context.Context, credentialType string, _ int) (httprequest.Credentials, error) {
	return h.Store.Credentials(ctx, credentialType)
}

// CheckCredentialType reports an unknown predefined credential type as a
// configuration error.
func (h *Host) CheckCredentialType(credentialType string) error {
	return h.checkType(credentialType, -1)
}

func (h *Host) checkType(credentialType string, itemIndex int) error {
	if _, ok := h.Registry.Lookup(credentialType); !ok {
		return &httprequest.ConfigError{
			Field:     "nodeCredentialType",
			ItemIndex: itemIndex,
			Message:   fmt.Sprintf("unknown credential type '%s'", credentialType),
		}
	}
	return nil
}

// AuthenticateRequest injects a predefined credential type into req.
func (h *Host) AuthenticateRequest(ctx context.Context, credentialType string, itemIndex int, req *http.Request) error {
	if err := h.checkType(credentialType, itemIndex); err != nil {
		return err
	}
	t, _ := h.Registry.Lookup(credentialType)
	creds, err := h.Store.Credentials(ctx, credentialType)
	if err != nil {
		return err
	}
	return t.Apply(req, creds)
}

// SendMessageToUI logs a sanitized outbound request at debug verbosity.
func (h *Host) SendMessageToUI(_ context.Context, message any) {
	h.Log.V(1).Info("Outbound request", "request", message)
}
