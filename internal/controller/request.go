package controller

import (
	"encoding/json"
	"fmt"

	"k8s.io/apimachinery/pkg/runtime"

	httpv1alpha1 "github.com/konnektr-io/http-request-operator/api/v1alpha1"
	"github.com/konnektr-io/http-request-operator/internal/httprequest"
)

// descriptorFromSpec converts the request of a resource into an executor
// descriptor. The CRD types mirror the descriptor's JSON layout.
func descriptorFromSpec(spec *httpv1alpha1.HTTPQueryResourceSpec) (*httprequest.Descriptor, error) {
	raw, err := json.Marshal(spec.Request)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}
	desc := &httprequest.Descriptor{}
	if err := json.Unmarshal(raw, desc); err != nil {
		return nil, &httprequest.ConfigError{Field: "request", ItemIndex: -1, Message: err.Error()}
	}
	desc.ContinueOnFail = spec.ContinueOnFail
	return desc, nil
}

// inputItems decodes the input records. Without inputs a single empty item is used.
func inputItems(inputs []runtime.RawExtension) ([]httprequest.Item, error) {
	if len(inputs) == 0 {
		return []httprequest.Item{{JSON: map[string]any{}}}, nil
	}
	items := make([]httprequest.Item, 0, len(inputs))
	for i, in := range inputs {
		record := map[string]any{}
		if len(in.Raw) > 0 {
			if err := json.Unmarshal(in.Raw, &record); err != nil {
				return nil, &httprequest.ConfigError{
					Field:     "inputs",
					ItemIndex: i,
					Message:   fmt.Sprintf("input must be a JSON object: %v", err),
				}
			}
		}
		if record == nil {
			record = map[string]any{}
		}
		items = append(items, httprequest.Item{JSON: record})
	}
	return items, nil
}
