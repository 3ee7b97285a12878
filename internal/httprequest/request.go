package httprequest

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	acceptJSON = "application/json,text/*;q=0.99"
	acceptText = "application/json,text/html,application/xhtml+xml,application/xml,text/*;q=0.9, */*;q=0.1"
	acceptAny  = "application/json,text/html,application/xhtml+xml,application/xml,text/*;q=0.9, image/*;q=0.8, */*;q=0.7"
)

// PreparedRequest is the fully resolved request of one input item.
type PreparedRequest struct {
	ItemIndex int
	Options   *RequestOptions
	auth      *requestAuth
	scope     Scope
}

// Sanitized returns the request with credentials redacted.
func (p *PreparedRequest) Sanitized() SanitizedRequest {
	return Sanitize(p.Options, p.auth.secrets)
}

// BuildRequest turns one item and the descriptor into a PreparedRequest.
// The descriptor must have been passed through WithDefaults and Validate.
func (e *Executor) BuildRequest(ctx context.Context, host Host, d *Descriptor, item Item, itemIndex int) (*PreparedRequest, error) {
	scope := Scope{JSON: item.JSON, Binary: item.Binary, ItemIndex: itemIndex}
	resolve := func(field, value string) (string, error) {
		out, err := e.eval.Resolve(value, scope)
		if err != nil {
			return "", configErr(field, itemIndex, err.Error())
		}
		return out, nil
	}

	rawURL, err := resolve("url", d.URL)
	if err != nil {
		return nil, err
	}
	rawURL = strings.TrimSpace(rawURL)
	if u, err := url.Parse(rawURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, configErr("url", itemIndex, fmt.Sprintf("invalid URL %q, it must start with http:// or https://", rawURL))
	}

	opts := &RequestOptions{
		Method:           d.Method,
		URL:              rawURL,
		Headers:          map[string]string{},
		ArrayFormat:      d.Options.QueryParameterArrays,
		LowercaseHeaders: d.Options.LowercaseHeaders != nil && *d.Options.LowercaseHeaders,
		Timeout:          time.Duration(d.Options.Timeout) * time.Millisecond,
		FollowRedirects:  d.FollowRedirects(),
		MaxRedirects:     d.Options.Redirect.MaxRedirects,
		Proxy:            d.Options.Proxy,
		SkipTLSVerify:    d.Options.AllowUnauthorizedCerts,
	}

	if d.SendQuery {
		query, err := e.resolveParameterSet("queryParameters", "jsonQuery", d.SpecifyQuery, d.QueryParameters, d.JSONQuery, scope)
		if err != nil {
			return nil, err
		}
		opts.Query = query
	}

	if d.SendHeaders {
		headers, err := e.resolveParameterSet("headerParameters", "jsonHeaders", d.SpecifyHeaders, d.HeaderParameters, d.JSONHeaders, scope)
		if err != nil {
			return nil, err
		}
		for k, v := range headers {
			opts.setHeader(k, stringify(v))
		}
	}

	if d.SendBody {
		if err := e.buildBody(d, item, scope, opts); err != nil {
			return nil, err
		}
	}

	if _, ok := opts.header("accept"); !ok {
		opts.setHeader("accept", acceptHeader(d.Options.Response.ResponseFormat))
	}

	auth, err := e.resolveAuth(ctx, host, d, opts, itemIndex)
	if err != nil {
		return nil, err
	}

	return &PreparedRequest{ItemIndex: itemIndex, Options: opts, auth: auth, scope: scope}, nil
}

// resolveParameterSet builds a query or header set from either a key/value
// list or a raw JSON object. Repeated names collect into an array.
func (e *Executor) resolveParameterSet(listField, jsonField string, mode SpecifyMode, params []Parameter, raw string, scope Scope) (map[string]any, error) {
	if mode == SpecifyJSON {
		resolved, err := e.eval.Resolve(raw, scope)
		if err != nil {
			return nil, configErr(jsonField, scope.ItemIndex, err.Error())
		}
		parsed, err := parseJSONParameter(jsonField, resolved, scope.ItemIndex, true)
		if err != nil {
			return nil, err
		}
		return parsed.(map[string]any), nil
	}

	out := map[string]any{}
	for _, p := range params {
		name, err := e.eval.Resolve(p.Name, scope)
		if err != nil {
			return nil, configErr(listField, scope.ItemIndex, err.Error())
		}
		if name == "" {
			continue
		}
		value, err := e.eval.Resolve(p.Value, scope)
		if err != nil {
			return nil, configErr(listField, scope.ItemIndex, err.Error())
		}
		addParameter(out, name, value)
	}
	return out, nil
}

func addParameter(m map[string]any, name string, value any) {
	existing, ok := m[name]
	if !ok {
		m[name] = value
		return
	}
	if list, isList := existing.([]any); isList {
		m[name] = append(list, value)
		return
	}
	m[name] = []any{existing, value}
}

func (e *Executor) buildBody(d *Descriptor, item Item, scope Scope, opts *RequestOptions) error {
	idx := scope.ItemIndex
	switch d.ContentType {
	case BodyJSON:
		opts.kind = bodyJSON
		if d.SpecifyBody == SpecifyJSON {
			resolved, err := e.eval.Resolve(d.JSONBody, scope)
			if err != nil {
				return configErr("jsonBody", idx, err.Error())
			}
			body, err := parseJSONParameter("jsonBody", resolved, idx, false)
			if err != nil {
				return err
			}
			opts.Body = body
			return nil
		}
		body, err := e.resolveBodyParameters(d.BodyParameters, scope)
		if err != nil {
			return err
		}
		opts.Body = body

	case BodyForm:
		opts.kind = bodyForm
		if d.SpecifyBody == SpecifyString {
			resolved, err := e.eval.Resolve(d.Body, scope)
			if err != nil {
				return configErr("body", idx, err.Error())
			}
			values, err := url.ParseQuery(resolved)
			if err != nil {
				return configErr("body", idx, "form body needs to be a valid query string")
			}
			body := map[string]any{}
			for k, vs := range values {
				for _, v := range vs {
					addParameter(body, k, v)
				}
			}
			opts.Body = body
			return nil
		}
		body, err := e.resolveBodyParameters(d.BodyParameters, scope)
		if err != nil {
			return err
		}
		opts.Body = body

	case BodyMultipart:
		opts.kind = bodyMultipart
		for _, p := range d.BodyParameters {
			name, err := e.eval.Resolve(p.Name, scope)
			if err != nil {
				return configErr("bodyParameters", idx, err.Error())
			}
			if p.ParameterType == FormBinaryData {
				field, err := e.eval.Resolve(p.InputDataFieldName, scope)
				if err != nil {
					return configErr("bodyParameters", idx, err.Error())
				}
				bin, err := item.AssertBinary(field, idx)
				if err != nil {
					return err
				}
				opts.multipart = append(opts.multipart, multipartField{Name: name, Binary: bin})
				continue
			}
			value, err := e.eval.Resolve(p.Value, scope)
			if err != nil {
				return configErr("bodyParameters", idx, err.Error())
			}
			opts.multipart = append(opts.multipart, multipartField{Name: name, Value: value})
		}

	case BodyBinaryData:
		opts.kind = bodyBinary
		field, err := e.eval.Resolve(d.InputDataFieldName, scope)
		if err != nil {
			return configErr("inputDataFieldName", idx, err.Error())
		}
		bin, err := item.AssertBinary(field, idx)
		if err != nil {
			return err
		}
		opts.binary = bin
		if _, ok := opts.header("content-type"); !ok && bin.MimeType != "" {
			opts.setHeader("content-type", bin.MimeType)
		}
		opts.setHeader("content-length", fmt.Sprint(len(bin.Data)))

	case BodyRaw:
		opts.kind = bodyRaw
		resolved, err := e.eval.Resolve(d.Body, scope)
		if err != nil {
			return configErr("body", idx, err.Error())
		}
		opts.Body = resolved
		opts.contentType = d.RawContentType
		if d.RawContentType != "" {
			opts.setHeader("content-type", d.RawContentType)
		}
	}
	return nil
}

func (e *Executor) resolveBodyParameters(params []BodyParameter, scope Scope) (map[string]any, error) {
	body := map[string]any{}
	for _, p := range params {
		name, err := e.eval.Resolve(p.Name, scope)
		if err != nil {
			return nil, configErr("bodyParameters", scope.ItemIndex, err.Error())
		}
		if name == "" {
			continue
		}
		value, err := e.eval.Resolve(p.Value, scope)
		if err != nil {
			return nil, configErr("bodyParameters", scope.ItemIndex, err.Error())
		}
		addParameter(body, name, value)
	}
	return body, nil
}

func acceptHeader(format ResponseFormat) string {
	switch format {
	case FormatJSON:
		return acceptJSON
	case FormatText:
		return acceptText
	default:
		return acceptAny
	}
}
