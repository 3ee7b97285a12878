package httprequest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

type bodyKind int

const (
	bodyNone bodyKind = iota
	bodyJSON
	bodyForm
	bodyMultipart
	bodyBinary
	bodyRaw
)

type multipartField struct {
	Name   string
	Value  string
	Binary *BinaryData
}

// RequestOptions is the protocol independent form of one outbound request.
// The pagination engine rewrites it between pages before it is encoded.
type RequestOptions struct {
	Method  string
	URL     string
	Query   map[string]any
	Headers map[string]string
	Body    any

	kind        bodyKind
	multipart   []multipartField
	binary      *BinaryData
	contentType string
	basicAuth   *[2]string

	ArrayFormat      ArrayFormat
	LowercaseHeaders bool
	Timeout          time.Duration
	FollowRedirects  bool
	MaxRedirects     int
	Proxy            string
	SkipTLSVerify    bool
}

func (o *RequestOptions) clone() *RequestOptions {
	out := *o
	out.Query = cloneMap(o.Query)
	out.Headers = make(map[string]string, len(o.Headers))
	for k, v := range o.Headers {
		out.Headers[k] = v
	}
	if m, ok := o.Body.(map[string]any); ok {
		out.Body = cloneMap(m)
	}
	out.multipart = append([]multipartField(nil), o.multipart...)
	return &out
}

func cloneMap(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// header returns a header value regardless of key casing.
func (o *RequestOptions) header(name string) (string, bool) {
	for k, v := range o.Headers {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return "", false
}

func (o *RequestOptions) setHeader(name, value string) {
	for k := range o.Headers {
		if strings.EqualFold(k, name) {
			delete(o.Headers, k)
		}
	}
	if o.Headers == nil {
		o.Headers = map[string]string{}
	}
	o.Headers[name] = value
}

// setBodyField writes a top level field into a structured body, creating a
// JSON body when none is configured yet.
func (o *RequestOptions) setBodyField(name string, value any) error {
	switch o.kind {
	case bodyNone:
		o.kind = bodyJSON
		o.Body = map[string]any{name: value}
		return nil
	case bodyJSON, bodyForm:
		m, ok := o.Body.(map[string]any)
		if !ok {
			if o.Body != nil {
				return fmt.Errorf("body is not an object, cannot set %q", name)
			}
			m = map[string]any{}
		}
		m[name] = value
		o.Body = m
		return nil
	case bodyMultipart:
		for i := range o.multipart {
			if o.multipart[i].Name == name && o.multipart[i].Binary == nil {
				o.multipart[i].Value = fmt.Sprint(value)
				return nil
			}
		}
		o.multipart = append(o.multipart, multipartField{Name: name, Value: fmt.Sprint(value)})
		return nil
	default:
		return fmt.Errorf("body of this content type cannot hold %q", name)
	}
}

// newHTTPRequest encodes the options into a request bound to ctx.
func (o *RequestOptions) newHTTPRequest(ctx context.Context) (*http.Request, error) {
	target, err := url.Parse(o.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL %q: %w", o.URL, err)
	}
	if qs := encodeQuery(o.Query, o.ArrayFormat); qs != "" {
		if target.RawQuery != "" {
			target.RawQuery += "&" + qs
		} else {
			target.RawQuery = qs
		}
	}

	body, contentType, err := o.encodeBody()
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, o.Method, target.String(), body)
	if err != nil {
		return nil, err
	}

	for k, v := range o.Headers {
		if strings.EqualFold(k, "content-length") {
			continue
		}
		if o.LowercaseHeaders {
			req.Header[strings.ToLower(k)] = []string{v}
		} else {
			req.Header.Set(k, v)
		}
	}
	if contentType != "" && req.Header.Get("Content-Type") == "" {
		if _, ok := o.header("content-type"); !ok {
			req.Header.Set("Content-Type", contentType)
		}
	}
	if o.basicAuth != nil {
		req.SetBasicAuth(o.basicAuth[0], o.basicAuth[1])
	}
	return req, nil
}

func (o *RequestOptions) encodeBody() (io.Reader, string, error) {
	switch o.kind {
	case bodyJSON:
		if o.Body == nil {
			return nil, "", nil
		}
		data, err := json.Marshal(o.Body)
		if err != nil {
			return nil, "", fmt.Errorf("failed to encode JSON body: %w", err)
		}
		return bytes.NewReader(data), "application/json", nil
	case bodyForm:
		m, _ := o.Body.(map[string]any)
		values := url.Values{}
		for k, v := range m {
			for _, s := range flattenValue(v) {
				values.Add(k, s)
			}
		}
		return strings.NewReader(values.Encode()), "application/x-www-form-urlencoded", nil
	case bodyMultipart:
		return o.encodeMultipart()
	case bodyBinary:
		if o.binary == nil {
			return nil, "", nil
		}
		return bytes.NewReader(o.binary.Data), o.binary.MimeType, nil
	case bodyRaw:
		s, _ := o.Body.(string)
		return strings.NewReader(s), o.contentType, nil
	default:
		return nil, "", nil
	}
}

func (o *RequestOptions) encodeMultipart() (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, field := range o.multipart {
		if field.Binary == nil {
			if err := w.WriteField(field.Name, field.Value); err != nil {
				return nil, "", fmt.Errorf("failed to write form field %q: %w", field.Name, err)
			}
			continue
		}
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field.Name, fileNameOrDefault(field.Binary)))
		h.Set("Content-Type", field.Binary.MimeType)
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", fmt.Errorf("failed to create form file %q: %w", field.Name, err)
		}
		if _, err := part.Write(field.Binary.Data); err != nil {
			return nil, "", fmt.Errorf("failed to write form file %q: %w", field.Name, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

func fileNameOrDefault(b *BinaryData) string {
	if b.FileName != "" {
		return b.FileName
	}
	if b.FileExtension != "" {
		return "file." + b.FileExtension
	}
	return "file"
}

// encodeQuery writes values in key order so requests are reproducible.
func encodeQuery(query map[string]any, format ArrayFormat) string {
	if len(query) == 0 {
		return ""
	}
	keys := make([]string, 0, len(query))
	for k := range query {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var parts []string
	add := func(k, v string) {
		parts = append(parts, url.QueryEscape(k)+"="+url.QueryEscape(v))
	}
	for _, k := range keys {
		list, isList := query[k].([]any)
		if !isList {
			add(k, stringify(query[k]))
			continue
		}
		for i, v := range list {
			switch format {
			case ArrayRepeat:
				add(k, stringify(v))
			case ArrayIndices:
				add(k+"["+strconv.Itoa(i)+"]", stringify(v))
			default:
				add(k+"[]", stringify(v))
			}
		}
	}
	return strings.Join(parts, "&")
}

func flattenValue(v any) []string {
	if list, ok := v.([]any); ok {
		out := make([]string, 0, len(list))
		for _, item := range list {
			out = append(out, stringify(item))
		}
		return out
	}
	return []string{stringify(v)}
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case map[string]any, []any:
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(data)
	default:
		return fmt.Sprint(t)
	}
}
