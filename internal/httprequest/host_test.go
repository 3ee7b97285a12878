package httprequest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"testing"
)

// testHost is an in-memory Host.
type testHost struct {
	mu            sync.Mutex
	creds         map[string]Credentials
	credErr       error
	authenticated []string
	messages      []any
}

func newTestHost(creds map[string]Credentials) *testHost {
	return &testHost{creds: creds}
}

func (h *testHost) GetCredentials(_ context.Context, credentialType string, _ int) (Credentials, error) {
	if h.credErr != nil {
		return nil, h.credErr
	}
	c, ok := h.creds[credentialType]
	if !ok {
		return nil, fmt.Errorf("no credentials of type %s", credentialType)
	}
	return c, nil
}

func (h *testHost) AuthenticateRequest(ctx context.Context, credentialType string, itemIndex int, req *http.Request) error {
	creds, err := h.GetCredentials(ctx, credentialType, itemIndex)
	if err != nil {
		return err
	}
	h.mu.Lock()
	h.authenticated = append(h.authenticated, credentialType)
	h.mu.Unlock()
	req.Header.Set("X-Test-Token", creds["token"])
	return nil
}

func (h *testHost) SendMessageToUI(_ context.Context, message any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages, message)
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Errorf("failed to write response: %v", err)
	}
}

func itemsOf(values ...map[string]any) []Item {
	items := make([]Item, len(values))
	for i, v := range values {
		items[i] = Item{JSON: v}
	}
	return items
}
