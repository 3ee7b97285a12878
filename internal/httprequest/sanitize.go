package httprequest

import (
	"fmt"
	"strings"
)

const redactedValue = "**hidden**"

// sensitiveKeys are header, query and body keys whose values are never echoed.
var sensitiveKeys = []string{
	"authorization",
	"proxy-authorization",
	"cookie",
	"x-api-key",
	"api-key",
	"apikey",
	"private-token",
	"password",
	"client_secret",
	"access_token",
	"refresh_token",
	"token",
}

// SanitizedRequest is an outbound request that is safe to log or display.
type SanitizedRequest struct {
	Method  string            `json:"method"`
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers,omitempty"`
	Query   map[string]any    `json:"qs,omitempty"`
	Body    any               `json:"body,omitempty"`
}

// Sanitize redacts credential bearing keys and every occurrence of the given
// secret values.
func Sanitize(opts *RequestOptions, secrets []string) SanitizedRequest {
	if opts == nil {
		return SanitizedRequest{}
	}
	out := SanitizedRequest{
		Method: opts.Method,
		URL:    redactString(opts.URL, secrets),
	}
	if len(opts.Headers) > 0 {
		out.Headers = make(map[string]string, len(opts.Headers))
		for k, v := range opts.Headers {
			if isSensitiveKey(k) {
				out.Headers[k] = redactedValue
				continue
			}
			out.Headers[k] = redactString(v, secrets)
		}
	}
	if opts.basicAuth != nil {
		if out.Headers == nil {
			out.Headers = map[string]string{}
		}
		out.Headers["authorization"] = redactedValue
	}
	if len(opts.Query) > 0 {
		out.Query = redactMap(opts.Query, secrets)
	}

	switch opts.kind {
	case bodyJSON, bodyForm:
		out.Body = redactValue("", opts.Body, secrets)
	case bodyRaw:
		s, _ := opts.Body.(string)
		out.Body = redactString(s, secrets)
	case bodyBinary:
		if opts.binary != nil {
			out.Body = fmt.Sprintf("<binary %s, %d bytes>", opts.binary.MimeType, opts.binary.FileSize)
		}
	case bodyMultipart:
		fields := make(map[string]any, len(opts.multipart))
		for _, f := range opts.multipart {
			if f.Binary != nil {
				fields[f.Name] = fmt.Sprintf("<binary %s, %d bytes>", f.Binary.MimeType, f.Binary.FileSize)
				continue
			}
			fields[f.Name] = redactValue(f.Name, f.Value, secrets)
		}
		out.Body = fields
	}
	return out
}

func isSensitiveKey(key string) bool {
	key = strings.ToLower(key)
	for _, s := range sensitiveKeys {
		if key == s {
			return true
		}
	}
	return false
}

func redactMap(in map[string]any, secrets []string) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = redactValue(k, v, secrets)
	}
	return out
}

func redactValue(key string, v any, secrets []string) any {
	if key != "" && isSensitiveKey(key) {
		return redactedValue
	}
	switch t := v.(type) {
	case string:
		return redactString(t, secrets)
	case map[string]any:
		return redactMap(t, secrets)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = redactValue("", item, secrets)
		}
		return out
	default:
		return v
	}
}

func redactString(s string, secrets []string) string {
	for _, secret := range secrets {
		if len(secret) < 3 {
			continue
		}
		s = strings.ReplaceAll(s, secret, redactedValue)
	}
	return s
}
