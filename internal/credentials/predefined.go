package credentials

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/konnektr-io/http-request-operator/internal/httprequest"
)

const notionVersion = "2022-02-22"

// PredefinedType is a service specific credential type that knows how to
// authenticate a request.
type PredefinedType struct {
	Name string
	// Fields are the credential fields that must be present.
	Fields       []string
	Authenticate func(req *http.Request, creds httprequest.Credentials)
}

// Registry holds the predefined credential types by name.
type Registry struct {
	types map[string]PredefinedType
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{types: map[string]PredefinedType{}}
}

// Register adds or replaces a type.
func (r *Registry) Register(t PredefinedType) {
	r.types[t.Name] = t
}

// Lookup returns the named type.
func (r *Registry) Lookup(name string) (PredefinedType, bool) {
	t, ok := r.types[name]
	return t, ok
}

// Names lists the registered types in order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.types))
	for name := range r.types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Apply authenticates req with creds. Missing required fields are an error.
func (t PredefinedType) Apply(req *http.Request, creds httprequest.Credentials) error {
	var missing []string
	for _, f := range t.Fields {
		if creds[f] == "" {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("credential type '%s' is missing fields: %s", t.Name, strings.Join(missing, ", "))
	}
	t.Authenticate(req, creds)
	return nil
}

func bearer(field string) func(*http.Request, httprequest.Credentials) {
	return func(req *http.Request, creds httprequest.Credentials) {
		req.Header.Set("Authorization", "Bearer "+creds[field])
	}
}

func headerValue(header, prefix, field string) func(*http.Request, httprequest.Credentials) {
	return func(req *http.Request, creds httprequest.Credentials) {
		req.Header.Set(header, prefix+creds[field])
	}
}

// DefaultRegistry returns the built in credential types.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(PredefinedType{
		Name:         "githubApi",
		Fields:       []string{"accessToken"},
		Authenticate: headerValue("Authorization", "token ", "accessToken"),
	})
	r.Register(PredefinedType{
		Name:         "gitlabApi",
		Fields:       []string{"accessToken"},
		Authenticate: headerValue("Private-Token", "", "accessToken"),
	})
	r.Register(PredefinedType{
		Name:   "notionApi",
		Fields: []string{"apiKey"},
		Authenticate: func(req *http.Request, creds httprequest.Credentials) {
			bearer("apiKey")(req, creds)
			req.Header.Set("Notion-Version", notionVersion)
		},
	})
	r.Register(PredefinedType{
		Name:   "openAiApi",
		Fields: []string{"apiKey"},
		Authenticate: func(req *http.Request, creds httprequest.Credentials) {
			bearer("apiKey")(req, creds)
			if org := creds["organizationId"]; org != "" {
				req.Header.Set("OpenAI-Organization", org)
			}
		},
	})
	r.Register(PredefinedType{
		Name:         "pineconeApi",
		Fields:       []string{"apiKey"},
		Authenticate: headerValue("Api-Key", "", "apiKey"),
	})
	r.Register(PredefinedType{
		Name:   "qdrantApi",
		Fields: []string{"apiKey"},
		Authenticate: func(req *http.Request, creds httprequest.Credentials) {
			// qdrant expects the lowercase header name
			req.Header["api-key"] = []string{creds["apiKey"]}
		},
	})
	r.Register(PredefinedType{
		Name:   "supabaseApi",
		Fields: []string{"serviceRole"},
		Authenticate: func(req *http.Request, creds httprequest.Credentials) {
			req.Header.Set("apikey", creds["serviceRole"])
			bearer("serviceRole")(req, creds)
		},
	})
	r.Register(PredefinedType{
		Name:         "zepApi",
		Fields:       []string{"apiKey"},
		Authenticate: headerValue("Authorization", "Api-Key ", "apiKey"),
	})
	r.Register(PredefinedType{
		Name:         "httpBearerAuth",
		Fields:       []string{"token"},
		Authenticate: bearer("token"),
	})
	return r
}
