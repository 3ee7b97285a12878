package httprequest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// AuthMode selects how outgoing requests are authenticated.
type AuthMode string

const (
	AuthNone       AuthMode = "none"
	AuthGeneric    AuthMode = "genericCredentialType"
	AuthPredefined AuthMode = "predefinedCredentialType"
)

// GenericAuthType is the user supplied scheme used when AuthMode is AuthGeneric.
type GenericAuthType string

const (
	GenericBasic  GenericAuthType = "httpBasicAuth"
	GenericDigest GenericAuthType = "httpDigestAuth"
	GenericHeader GenericAuthType = "httpHeaderAuth"
	GenericQuery  GenericAuthType = "httpQueryAuth"
	GenericCustom GenericAuthType = "httpCustomAuth"
	GenericOAuth1 GenericAuthType = "oAuth1Api"
	GenericOAuth2 GenericAuthType = "oAuth2Api"
)

// SpecifyMode tells whether a parameter set is given as a key/value list or as raw text.
type SpecifyMode string

const (
	SpecifyKeypair SpecifyMode = "keypair"
	SpecifyJSON    SpecifyMode = "json"
	SpecifyString  SpecifyMode = "string"
)

// BodyContentType is the encoding of the request body.
type BodyContentType string

const (
	BodyJSON       BodyContentType = "json"
	BodyForm       BodyContentType = "form-urlencoded"
	BodyMultipart  BodyContentType = "multipart-form-data"
	BodyBinaryData BodyContentType = "binaryData"
	BodyRaw        BodyContentType = "raw"
)

// BodyParameterType distinguishes literal multipart fields from binary attachments.
type BodyParameterType string

const (
	FormData       BodyParameterType = "formData"
	FormBinaryData BodyParameterType = "formBinaryData"
)

// ResponseFormat is the hint for how a response body is interpreted.
type ResponseFormat string

const (
	FormatAutodetect ResponseFormat = "autodetect"
	FormatJSON       ResponseFormat = "json"
	FormatText       ResponseFormat = "text"
	FormatFile       ResponseFormat = "file"
)

// ArrayFormat controls how array values are written into the query string.
type ArrayFormat string

const (
	ArrayRepeat   ArrayFormat = "repeat"
	ArrayBrackets ArrayFormat = "brackets"
	ArrayIndices  ArrayFormat = "indices"
)

// PaginationMode selects the pagination protocol.
type PaginationMode string

const (
	PaginationOff             PaginationMode = "off"
	PaginationUpdateParameter PaginationMode = "updateAParameterInEachRequest"
	PaginationNextURL         PaginationMode = "responseContainsNextURL"
)

// CompleteWhen is the predicate that ends a paginated sequence.
type CompleteWhen string

const (
	CompleteResponseIsEmpty CompleteWhen = "responseIsEmpty"
	CompleteStatusCodes     CompleteWhen = "receiveSpecificStatusCodes"
	CompleteOther           CompleteWhen = "other"
)

// ParameterLocation is where a pagination parameter is written.
type ParameterLocation string

const (
	LocationQuery   ParameterLocation = "qs"
	LocationBody    ParameterLocation = "body"
	LocationHeaders ParameterLocation = "headers"
)

const (
	// DefaultTimeout is the per request timeout in milliseconds.
	DefaultTimeout = 300000
	// DefaultMaxRedirects matches the hop limit of the request layer.
	DefaultMaxRedirects = 21
	// DefaultMaxRequests caps pagination when a page limit is enabled without a value.
	DefaultMaxRequests = 100
	// DefaultOutputProperty is the field used for text and file payloads.
	DefaultOutputProperty = "data"
	// redirectDefaultVersion is the first node version that follows redirects unless told otherwise.
	redirectDefaultVersion = 3
)

// Parameter is a single name/value pair.
type Parameter struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// BodyParameter is a body field. For multipart bodies it may reference a binary attachment.
type BodyParameter struct {
	ParameterType      BodyParameterType `json:"parameterType,omitempty"`
	Name               string            `json:"name"`
	Value              string            `json:"value,omitempty"`
	InputDataFieldName string            `json:"inputDataFieldName,omitempty"`
}

// Descriptor is the resolved, immutable request configuration of one invocation.
// String fields beginning with "=" are expressions evaluated per input item.
type Descriptor struct {
	NodeVersion int    `json:"nodeVersion,omitempty"`
	Method      string `json:"method,omitempty"`
	URL         string `json:"url"`

	Authentication     AuthMode        `json:"authentication,omitempty"`
	GenericAuthType    GenericAuthType `json:"genericAuthType,omitempty"`
	NodeCredentialType string          `json:"nodeCredentialType,omitempty"`

	SendQuery       bool        `json:"sendQuery,omitempty"`
	SpecifyQuery    SpecifyMode `json:"specifyQuery,omitempty"`
	QueryParameters []Parameter `json:"queryParameters,omitempty"`
	JSONQuery       string      `json:"jsonQuery,omitempty"`

	SendHeaders      bool        `json:"sendHeaders,omitempty"`
	SpecifyHeaders   SpecifyMode `json:"specifyHeaders,omitempty"`
	HeaderParameters []Parameter `json:"headerParameters,omitempty"`
	JSONHeaders      string      `json:"jsonHeaders,omitempty"`

	SendBody           bool            `json:"sendBody,omitempty"`
	ContentType        BodyContentType `json:"contentType,omitempty"`
	SpecifyBody        SpecifyMode     `json:"specifyBody,omitempty"`
	BodyParameters     []BodyParameter `json:"bodyParameters,omitempty"`
	JSONBody           string          `json:"jsonBody,omitempty"`
	Body               string          `json:"body,omitempty"`
	RawContentType     string          `json:"rawContentType,omitempty"`
	InputDataFieldName string          `json:"inputDataFieldName,omitempty"`

	// ResponsePath is a gjson path selecting the part of a JSON body to emit.
	ResponsePath string `json:"responsePath,omitempty"`

	// ContinueOnFail turns per item request failures into error records.
	ContinueOnFail bool `json:"continueOnFail,omitempty"`

	Options Options `json:"options,omitempty"`
}

// Options holds the optional request settings.
type Options struct {
	Batching               *Batching       `json:"batching,omitempty"`
	AllowUnauthorizedCerts bool            `json:"allowUnauthorizedCerts,omitempty"`
	QueryParameterArrays   ArrayFormat     `json:"queryParameterArrays,omitempty"`
	LowercaseHeaders       *bool           `json:"lowercaseHeaders,omitempty"`
	Redirect               *Redirect       `json:"redirect,omitempty"`
	Response               ResponseOptions `json:"response,omitempty"`
	Proxy                  string          `json:"proxy,omitempty"`
	// Timeout is in milliseconds.
	Timeout    int         `json:"timeout,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

// Batching throttles how many items are sent at once.
type Batching struct {
	Size int `json:"batchSize,omitempty"`
	// Interval is the pause between batches in milliseconds.
	Interval int `json:"batchInterval,omitempty"`
}

// Redirect is the redirect policy.
type Redirect struct {
	FollowRedirects *bool `json:"followRedirects,omitempty"`
	MaxRedirects    int   `json:"maxRedirects,omitempty"`
}

// ResponseOptions controls response normalization.
type ResponseOptions struct {
	FullResponse       bool           `json:"fullResponse,omitempty"`
	NeverError         bool           `json:"neverError,omitempty"`
	ResponseFormat     ResponseFormat `json:"responseFormat,omitempty"`
	OutputPropertyName string         `json:"outputPropertyName,omitempty"`
}

// PaginationParameter is a parameter rewritten before every follow-up request.
type PaginationParameter struct {
	Type  ParameterLocation `json:"type"`
	Name  string            `json:"name"`
	Value string            `json:"value"`
}

// Pagination describes how follow-up pages are requested and when to stop.
type Pagination struct {
	Mode       PaginationMode        `json:"paginationMode"`
	NextURL    string                `json:"nextURL,omitempty"`
	Parameters []PaginationParameter `json:"parameters,omitempty"`

	CompleteWhen CompleteWhen `json:"paginationCompleteWhen,omitempty"`
	// StatusCodes lists the status codes on which pagination continues.
	StatusCodes        []int  `json:"statusCodes,omitempty"`
	CompleteExpression string `json:"completeExpression,omitempty"`

	LimitPagesFetched bool `json:"limitPagesFetched,omitempty"`
	MaxRequests       int  `json:"maxRequests,omitempty"`
	// RequestInterval is the pause between pages in milliseconds.
	RequestInterval int `json:"requestInterval,omitempty"`
}

// Enabled reports whether the descriptor paginates at all.
func (p *Pagination) Enabled() bool {
	return p != nil && p.Mode != "" && p.Mode != PaginationOff
}

// WithDefaults returns a copy of the descriptor with defaults filled in.
// The receiver is left untouched so a descriptor can be shared between runs.
func (d *Descriptor) WithDefaults() *Descriptor {
	out := *d
	if out.Method == "" {
		out.Method = http.MethodGet
	}
	out.Method = strings.ToUpper(strings.TrimSpace(out.Method))
	if out.Authentication == "" {
		out.Authentication = AuthNone
	}
	if out.SpecifyQuery == "" {
		out.SpecifyQuery = SpecifyKeypair
	}
	if out.SpecifyHeaders == "" {
		out.SpecifyHeaders = SpecifyKeypair
	}
	if out.ContentType == "" {
		out.ContentType = BodyJSON
	}
	if out.SpecifyBody == "" {
		out.SpecifyBody = SpecifyKeypair
	}
	if out.Options.Timeout <= 0 {
		out.Options.Timeout = DefaultTimeout
	}
	if out.Options.QueryParameterArrays == "" {
		out.Options.QueryParameterArrays = ArrayBrackets
	}
	if out.Options.LowercaseHeaders == nil {
		lower := true
		out.Options.LowercaseHeaders = &lower
	}

	redirect := Redirect{}
	if out.Options.Redirect != nil {
		redirect = *out.Options.Redirect
	}
	if redirect.FollowRedirects == nil {
		// legacy node versions never followed redirects by default
		follow := out.NodeVersion == 0 || out.NodeVersion >= redirectDefaultVersion
		redirect.FollowRedirects = &follow
	}
	if redirect.MaxRedirects <= 0 {
		redirect.MaxRedirects = DefaultMaxRedirects
	}
	out.Options.Redirect = &redirect

	if out.Options.Response.ResponseFormat == "" {
		out.Options.Response.ResponseFormat = FormatAutodetect
	}
	if out.Options.Response.OutputPropertyName == "" {
		out.Options.Response.OutputPropertyName = DefaultOutputProperty
	}

	if out.Options.Batching != nil {
		b := *out.Options.Batching
		if b.Size < 1 {
			b.Size = 1
		}
		if b.Interval < 0 {
			b.Interval = 0
		}
		out.Options.Batching = &b
	}

	if out.Options.Pagination != nil {
		p := *out.Options.Pagination
		if p.Mode == "" {
			p.Mode = PaginationOff
		}
		if p.CompleteWhen == "" {
			p.CompleteWhen = CompleteResponseIsEmpty
		}
		if p.LimitPagesFetched && p.MaxRequests <= 0 {
			p.MaxRequests = DefaultMaxRequests
		}
		out.Options.Pagination = &p
	}
	return &out
}

// FollowRedirects reports the effective redirect policy.
func (d *Descriptor) FollowRedirects() bool {
	if d.Options.Redirect == nil || d.Options.Redirect.FollowRedirects == nil {
		return d.NodeVersion == 0 || d.NodeVersion >= redirectDefaultVersion
	}
	return *d.Options.Redirect.FollowRedirects
}

// Validate checks the descriptor for configuration errors that do not depend on
// any input item. It expects a descriptor returned by WithDefaults.
func (d *Descriptor) Validate() error {
	if strings.TrimSpace(d.URL) == "" {
		return configErr("url", -1, "URL is required")
	}
	if !isHTTPMethod(d.Method) {
		return configErr("method", -1, fmt.Sprintf("method %q is not supported", d.Method))
	}

	switch d.Authentication {
	case AuthNone:
	case AuthGeneric:
		switch d.GenericAuthType {
		case GenericBasic, GenericDigest, GenericHeader, GenericQuery, GenericCustom, GenericOAuth1, GenericOAuth2:
		case "":
			return configErr("genericAuthType", -1, "a generic auth type must be selected")
		default:
			return configErr("genericAuthType", -1, fmt.Sprintf("unsupported generic auth type %q", d.GenericAuthType))
		}
	case AuthPredefined:
		if strings.TrimSpace(d.NodeCredentialType) == "" {
			return configErr("nodeCredentialType", -1, "a credential type must be selected")
		}
	default:
		return configErr("authentication", -1, fmt.Sprintf("unsupported authentication %q", d.Authentication))
	}

	if d.SendQuery && d.SpecifyQuery == SpecifyJSON {
		if err := validateStaticJSON("jsonQuery", d.JSONQuery, true); err != nil {
			return err
		}
	}
	if d.SendHeaders && d.SpecifyHeaders == SpecifyJSON {
		if err := validateStaticJSON("jsonHeaders", d.JSONHeaders, true); err != nil {
			return err
		}
	}
	if d.SendBody {
		switch d.ContentType {
		case BodyJSON:
			if d.SpecifyBody == SpecifyJSON {
				if err := validateStaticJSON("jsonBody", d.JSONBody, false); err != nil {
					return err
				}
			}
		case BodyForm, BodyRaw:
		case BodyMultipart:
			for _, p := range d.BodyParameters {
				if p.ParameterType == FormBinaryData && strings.TrimSpace(p.InputDataFieldName) == "" {
					return configErr("bodyParameters", -1, fmt.Sprintf("binary field %q needs an input data field name", p.Name))
				}
			}
		case BodyBinaryData:
			if strings.TrimSpace(d.InputDataFieldName) == "" {
				return configErr("inputDataFieldName", -1, "the input data field name is required for binary bodies")
			}
		default:
			return configErr("contentType", -1, fmt.Sprintf("unsupported body content type %q", d.ContentType))
		}
	}

	switch d.Options.Response.ResponseFormat {
	case FormatAutodetect, FormatJSON, FormatText, FormatFile:
	default:
		return configErr("options.response.responseFormat", -1, fmt.Sprintf("unsupported response format %q", d.Options.Response.ResponseFormat))
	}
	switch d.Options.QueryParameterArrays {
	case ArrayRepeat, ArrayBrackets, ArrayIndices:
	default:
		return configErr("options.queryParameterArrays", -1, fmt.Sprintf("unsupported array format %q", d.Options.QueryParameterArrays))
	}

	return d.Options.Pagination.validate()
}

func (p *Pagination) validate() error {
	if !p.Enabled() {
		if p != nil && p.Mode != PaginationOff && p.Mode != "" {
			return configErr("options.pagination.paginationMode", -1, fmt.Sprintf("unsupported pagination mode %q", p.Mode))
		}
		return nil
	}
	switch p.Mode {
	case PaginationUpdateParameter:
		if len(p.Parameters) == 0 {
			return configErr("options.pagination.parameters", -1, "at least one parameter has to be defined")
		}
		for _, param := range p.Parameters {
			if strings.TrimSpace(param.Name) == "" {
				return configErr("options.pagination.parameters", -1, "parameter name must be set")
			}
			if strings.TrimSpace(param.Value) == "" {
				return configErr("options.pagination.parameters", -1,
					fmt.Sprintf("parameter %q has no value, which would request the same page forever", param.Name))
			}
			switch param.Type {
			case LocationQuery, LocationBody, LocationHeaders:
			default:
				return configErr("options.pagination.parameters", -1, fmt.Sprintf("parameter %q has unsupported type %q", param.Name, param.Type))
			}
		}
	case PaginationNextURL:
		if strings.TrimSpace(p.NextURL) == "" {
			return configErr("options.pagination.nextURL", -1, "next URL is required")
		}
	default:
		return configErr("options.pagination.paginationMode", -1, fmt.Sprintf("unsupported pagination mode %q", p.Mode))
	}

	switch p.CompleteWhen {
	case CompleteResponseIsEmpty:
	case CompleteStatusCodes:
		if len(p.StatusCodes) == 0 {
			return configErr("options.pagination.statusCodes", -1, "at least one status code has to be defined")
		}
	case CompleteOther:
		if !IsExpression(p.CompleteExpression) {
			return configErr("options.pagination.completeExpression", -1,
				`the complete expression must be an expression starting with "="`)
		}
	default:
		return configErr("options.pagination.paginationCompleteWhen", -1, fmt.Sprintf("unsupported completion %q", p.CompleteWhen))
	}
	if p.MaxRequests < 0 {
		return configErr("options.pagination.maxRequests", -1, "max requests must not be negative")
	}
	return nil
}

func validateStaticJSON(field, value string, wantObject bool) error {
	if IsExpression(value) || strings.TrimSpace(value) == "" {
		return nil
	}
	_, err := parseJSONParameter(field, value, -1, wantObject)
	return err
}

// parseJSONParameter decodes a raw JSON parameter. Query and header sets must be objects.
func parseJSONParameter(field, value string, itemIndex int, wantObject bool) (any, error) {
	if strings.TrimSpace(value) == "" {
		if wantObject {
			return map[string]any{}, nil
		}
		return nil, nil
	}
	var out any
	if err := json.Unmarshal([]byte(value), &out); err != nil {
		return nil, configErr(field, itemIndex, "JSON parameter needs to be valid JSON")
	}
	if wantObject {
		if _, ok := out.(map[string]any); !ok {
			return nil, configErr(field, itemIndex, "JSON parameter needs to be a JSON object")
		}
	}
	return out, nil
}

func isHTTPMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut,
		http.MethodPatch, http.MethodDelete, http.MethodOptions:
		return true
	}
	return false
}
