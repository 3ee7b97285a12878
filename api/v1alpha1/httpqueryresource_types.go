// +kubebuilder:object:generate=true
package v1alpha1

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
)

// CredentialRef maps a credential type to a Secret.
type CredentialRef struct {
	// Type is the credential type, e.g. httpBasicAuth, oAuth2Api or githubApi.
	// +kubebuilder:validation:Required
	Type string `json:"type"`
	// Name of the Secret holding the credential fields.
	// +kubebuilder:validation:Required
	Name string `json:"name"`
	// Namespace of the Secret. Defaults to the namespace of the HTTPQueryResource.
	// +optional
	Namespace string `json:"namespace,omitempty"`
	// Keys renames credential fields to Secret keys, e.g. {"password": "pass"}.
	// Without a mapping every Secret key is used under its own name.
	// +optional
	Keys map[string]string `json:"keys,omitempty"`
}

// RequestParameter is a single name/value pair. Values starting with "=" are templates.
type RequestParameter struct {
	Name string `json:"name"`
	// +optional
	Value string `json:"value"`
}

// BodyParameter is a body field. Multipart bodies may reference a binary attachment.
type BodyParameter struct {
	// +kubebuilder:validation:Enum=formData;formBinaryData
	// +optional
	ParameterType string `json:"parameterType,omitempty"`
	Name          string `json:"name"`
	// +optional
	Value string `json:"value,omitempty"`
	// +optional
	InputDataFieldName string `json:"inputDataFieldName,omitempty"`
}

// BatchingSpec throttles how many inputs are requested at once.
type BatchingSpec struct {
	// +kubebuilder:validation:Minimum=1
	// +optional
	BatchSize int `json:"batchSize,omitempty"`
	// BatchInterval is the pause between batches in milliseconds.
	// +kubebuilder:validation:Minimum=0
	// +optional
	BatchInterval int `json:"batchInterval,omitempty"`
}

// RedirectSpec is the redirect policy.
type RedirectSpec struct {
	// +optional
	FollowRedirects *bool `json:"followRedirects,omitempty"`
	// +kubebuilder:validation:Minimum=1
	// +optional
	MaxRedirects int `json:"maxRedirects,omitempty"`
}

// ResponseSpec controls how responses become output records.
type ResponseSpec struct {
	// +optional
	FullResponse bool `json:"fullResponse,omitempty"`
	// +optional
	NeverError bool `json:"neverError,omitempty"`
	// +kubebuilder:validation:Enum=autodetect;json;text;file
	// +optional
	ResponseFormat string `json:"responseFormat,omitempty"`
	// +optional
	OutputPropertyName string `json:"outputPropertyName,omitempty"`
}

// PaginationParameter is rewritten before every follow-up request.
type PaginationParameter struct {
	// +kubebuilder:validation:Enum=qs;body;headers
	Type  string `json:"type"`
	Name  string `json:"name"`
	Value string `json:"value"`
}

// PaginationSpec describes how follow-up pages are requested and when to stop.
type PaginationSpec struct {
	// +kubebuilder:validation:Enum=off;updateAParameterInEachRequest;responseContainsNextURL
	PaginationMode string `json:"paginationMode"`
	// +optional
	NextURL string `json:"nextURL,omitempty"`
	// +optional
	Parameters []PaginationParameter `json:"parameters,omitempty"`
	// +kubebuilder:validation:Enum=responseIsEmpty;receiveSpecificStatusCodes;other
	// +optional
	PaginationCompleteWhen string `json:"paginationCompleteWhen,omitempty"`
	// StatusCodes on which pagination continues.
	// +optional
	StatusCodes []int `json:"statusCodes,omitempty"`
	// +optional
	CompleteExpression string `json:"completeExpression,omitempty"`
	// +optional
	LimitPagesFetched bool `json:"limitPagesFetched,omitempty"`
	// +optional
	MaxRequests int `json:"maxRequests,omitempty"`
	// RequestInterval is the pause between pages in milliseconds.
	// +optional
	RequestInterval int `json:"requestInterval,omitempty"`
}

// RequestOptionsSpec holds the optional request settings.
type RequestOptionsSpec struct {
	// +optional
	Batching *BatchingSpec `json:"batching,omitempty"`
	// +optional
	AllowUnauthorizedCerts bool `json:"allowUnauthorizedCerts,omitempty"`
	// +kubebuilder:validation:Enum=repeat;brackets;indices
	// +optional
	QueryParameterArrays string `json:"queryParameterArrays,omitempty"`
	// +optional
	LowercaseHeaders *bool `json:"lowercaseHeaders,omitempty"`
	// +optional
	Redirect *RedirectSpec `json:"redirect,omitempty"`
	// +optional
	Response *ResponseSpec `json:"response,omitempty"`
	// +optional
	Proxy string `json:"proxy,omitempty"`
	// Timeout per request in milliseconds. Defaults to 300000.
	// +optional
	Timeout int `json:"timeout,omitempty"`
	// +optional
	Pagination *PaginationSpec `json:"pagination,omitempty"`
}

// HTTPRequestSpec describes the request sent for every input.
type HTTPRequestSpec struct {
	// NodeVersion gates version dependent defaults. Versions 1 and 2 do not follow redirects by default.
	// +optional
	NodeVersion int `json:"nodeVersion,omitempty"`
	// +kubebuilder:validation:Enum=GET;HEAD;POST;PUT;PATCH;DELETE;OPTIONS
	// +kubebuilder:default=GET
	// +optional
	Method string `json:"method,omitempty"`
	// URL of the request. May be a template starting with "=".
	// +kubebuilder:validation:Required
	URL string `json:"url"`

	// +kubebuilder:validation:Enum=none;genericCredentialType;predefinedCredentialType
	// +optional
	Authentication string `json:"authentication,omitempty"`
	// +kubebuilder:validation:Enum=httpBasicAuth;httpDigestAuth;httpHeaderAuth;httpQueryAuth;httpCustomAuth;oAuth1Api;oAuth2Api
	// +optional
	GenericAuthType string `json:"genericAuthType,omitempty"`
	// +optional
	NodeCredentialType string `json:"nodeCredentialType,omitempty"`

	// +optional
	SendQuery bool `json:"sendQuery,omitempty"`
	// +kubebuilder:validation:Enum=keypair;json
	// +optional
	SpecifyQuery string `json:"specifyQuery,omitempty"`
	// +optional
	QueryParameters []RequestParameter `json:"queryParameters,omitempty"`
	// +optional
	JSONQuery string `json:"jsonQuery,omitempty"`

	// +optional
	SendHeaders bool `json:"sendHeaders,omitempty"`
	// +kubebuilder:validation:Enum=keypair;json
	// +optional
	SpecifyHeaders string `json:"specifyHeaders,omitempty"`
	// +optional
	HeaderParameters []RequestParameter `json:"headerParameters,omitempty"`
	// +optional
	JSONHeaders string `json:"jsonHeaders,omitempty"`

	// +optional
	SendBody bool `json:"sendBody,omitempty"`
	// +kubebuilder:validation:Enum=json;form-urlencoded;multipart-form-data;binaryData;raw
	// +optional
	ContentType string `json:"contentType,omitempty"`
	// +kubebuilder:validation:Enum=keypair;json;string
	// +optional
	SpecifyBody string `json:"specifyBody,omitempty"`
	// +optional
	BodyParameters []BodyParameter `json:"bodyParameters,omitempty"`
	// +optional
	JSONBody string `json:"jsonBody,omitempty"`
	// +optional
	Body string `json:"body,omitempty"`
	// +optional
	RawContentType string `json:"rawContentType,omitempty"`
	// +optional
	InputDataFieldName string `json:"inputDataFieldName,omitempty"`

	// ResponsePath is a gjson path to the data inside a JSON response.
	// Example: "data" if the response is {"data": [...]}
	// +optional
	ResponsePath string `json:"responsePath,omitempty"`

	// +optional
	Options *RequestOptionsSpec `json:"options,omitempty"`
}

// HTTPQueryResourceSpec defines the desired state of HTTPQueryResource
// +kubebuilder:deepcopy-gen=true
type HTTPQueryResourceSpec struct {
	// PollInterval defines how often to make the HTTP request and reconcile resources.
	// Format is a duration string like "5m", "1h", "30s".
	// +kubebuilder:validation:Required
	// +kubebuilder:validation:Pattern="^([0-9]+(\\.[0-9]+)?(ns|us|µs|ms|s|m|h))+$"
	PollInterval string `json:"pollInterval"`

	// Request is sent once per input.
	// +kubebuilder:validation:Required
	Request HTTPRequestSpec `json:"request"`

	// Credentials used by the request, by credential type.
	// +optional
	Credentials []CredentialRef `json:"credentials,omitempty"`

	// Inputs are JSON objects available to request templates as .json.
	// Without inputs a single empty input is used.
	// +kubebuilder:pruning:PreserveUnknownFields
	// +optional
	Inputs []runtime.RawExtension `json:"inputs,omitempty"`

	// ContinueOnFail turns failed requests into records carrying an error
	// instead of failing the whole poll.
	// +optional
	ContinueOnFail bool `json:"continueOnFail,omitempty"`

	// Go template string for the Kubernetes resources to be created for each output record.
	// The template receives .Item (the record JSON), .Index, .PairedItem (the input index)
	// and .Error (set when the record describes a failed request).
	// +kubebuilder:validation:Required
	// +kubebuilder:validation:MinLength=1
	Template string `json:"template"`

	// Prune determines if resources previously created by this CR but no longer corresponding
	// to an output record of the latest poll should be deleted. Defaults to true.
	// +optional
	// +kubebuilder:default=true
	Prune *bool `json:"prune,omitempty"`
}

// HTTPQueryResourceStatus defines the observed state of HTTPQueryResource
// +kubebuilder:deepcopy-gen=true
type HTTPQueryResourceStatus struct {
	// Conditions represent the latest available observations of the resource's state.
	// +optional
	Conditions []metav1.Condition `json:"conditions,omitempty"`

	// LastPollTime records when the HTTP endpoint was last successfully queried.
	// +optional
	LastPollTime *metav1.Time `json:"lastPollTime,omitempty"`

	// ManagedResources lists the resources currently managed by this CR.
	// +optional
	ManagedResources []string `json:"managedResources,omitempty"`

	// ObservedGeneration reflects the generation of the CR spec that was last processed.
	// +optional
	ObservedGeneration int64 `json:"observedGeneration,omitempty"`

	// LastOutputCount is the number of output records of the last poll.
	// +optional
	LastOutputCount int `json:"lastOutputCount,omitempty"`
}

//+kubebuilder:object:root=true
//+kubebuilder:subresource:status
//+kubebuilder:printcolumn:name="Interval",type="string",JSONPath=".spec.pollInterval",description="Polling interval"
//+kubebuilder:printcolumn:name="Outputs",type="integer",JSONPath=".status.lastOutputCount",description="Output records of the last poll"
//+kubebuilder:printcolumn:name="Last Poll",type="date",JSONPath=".status.lastPollTime",description="Last successful poll time"
//+kubebuilder:printcolumn:name="Age",type="date",JSONPath=".metadata.creationTimestamp"

// HTTPQueryResource is the Schema for the httpqueryresources API
type HTTPQueryResource struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   HTTPQueryResourceSpec   `json:"spec,omitempty"`
	Status HTTPQueryResourceStatus `json:"status,omitempty"`
}

//+kubebuilder:object:root=true

// HTTPQueryResourceList contains a list of HTTPQueryResource
type HTTPQueryResourceList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []HTTPQueryResource `json:"items"`
}

func init() {
	SchemeBuilder.Register(&HTTPQueryResource{}, &HTTPQueryResourceList{})
}

// GetPrune returns the prune setting, which defaults to true.
func (s *HTTPQueryResourceSpec) GetPrune() bool {
	if s.Prune == nil {
		return true
	}
	return *s.Prune
}
