package httprequest

import (
	"context"
	"net/http"
)

// Credentials are the decrypted fields of one credential.
type Credentials map[string]string

// Host is the set of capabilities borrowed from the runtime that invokes the executor.
type Host interface {
	// GetCredentials returns the credential of the given type for an item.
	GetCredentials(ctx context.Context, credentialType string, itemIndex int) (Credentials, error)
	// AuthenticateRequest injects a predefined credential type into req.
	AuthenticateRequest(ctx context.Context, credentialType string, itemIndex int, req *http.Request) error
	// SendMessageToUI echoes a sanitized outbound request for debugging.
	SendMessageToUI(ctx context.Context, message any)
}

// CredentialTypeChecker is an optional Host capability. When the host
// implements it, an unknown predefined credential type fails the invocation
// before any request is sent.
type CredentialTypeChecker interface {
	CheckCredentialType(credentialType string) error
}
