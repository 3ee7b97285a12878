package httprequest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime"
	"net/url"
	"path"
	"strings"

	"github.com/tidwall/gjson"
)

type payloadKind int

const (
	payloadJSON payloadKind = iota
	payloadText
	payloadFile
)

var binaryTypePrefixes = []string{"image/", "audio/", "video/", "font/"}

var binaryTypes = map[string]bool{
	"application/octet-stream":      true,
	"application/pdf":               true,
	"application/zip":               true,
	"application/gzip":              true,
	"application/x-gzip":            true,
	"application/x-tar":             true,
	"application/x-7z-compressed":   true,
	"application/x-bzip":            true,
	"application/x-bzip2":           true,
	"application/vnd.rar":           true,
	"application/epub+zip":          true,
	"application/msword":            true,
	"application/vnd.ms-excel":      true,
	"application/vnd.ms-fontobject": true,
	"application/vnd.visio":         true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":       true,
	"application/vnd.oasis.opendocument.presentation":                         true,
}

// IsBinaryMediaType reports whether responses of this media type are files.
func IsBinaryMediaType(mediaType string) bool {
	mediaType = strings.ToLower(mediaType)
	for _, prefix := range binaryTypePrefixes {
		if strings.HasPrefix(mediaType, prefix) {
			return true
		}
	}
	return binaryTypes[mediaType]
}

func isJSONMediaType(mediaType string) bool {
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

func classify(format ResponseFormat, mediaType string) payloadKind {
	switch format {
	case FormatJSON:
		return payloadJSON
	case FormatText:
		return payloadText
	case FormatFile:
		return payloadFile
	}
	switch {
	case isJSONMediaType(mediaType):
		return payloadJSON
	case IsBinaryMediaType(mediaType):
		return payloadFile
	default:
		return payloadText
	}
}

// NormalizeResponse converts one response into output records paired to itemIndex.
// Each response is classified on its own, so pages of a paginated sequence may
// mix JSON, text and file payloads.
func NormalizeResponse(d *Descriptor, resp *Response, itemIndex int) ([]OutputItem, error) {
	ro := d.Options.Response
	paired := PairedItem{Item: itemIndex}

	switch classify(ro.ResponseFormat, resp.MediaType()) {
	case payloadFile:
		bin := NewBinaryData(resp.Body, fileNameFromResponse(resp), resp.Headers.Get("Content-Type"))
		record := map[string]any{}
		if ro.FullResponse {
			record = fullResponseRecord(resp, nil)
			delete(record, "body")
		}
		return []OutputItem{{
			JSON:       record,
			Binary:     map[string]*BinaryData{ro.OutputPropertyName: bin},
			PairedItem: paired,
		}}, nil

	case payloadText:
		text := string(resp.Body)
		if ro.FullResponse {
			return []OutputItem{{JSON: fullResponseRecord(resp, text), PairedItem: paired}}, nil
		}
		return []OutputItem{{JSON: map[string]any{ro.OutputPropertyName: text}, PairedItem: paired}}, nil
	}

	value, err := decodeJSONBody(resp.Body, d.ResponsePath, ro.NeverError, itemIndex)
	if err != nil {
		return nil, err
	}
	if ro.FullResponse {
		return []OutputItem{{JSON: fullResponseRecord(resp, value), PairedItem: paired}}, nil
	}

	list, isList := value.([]any)
	if !isList {
		return []OutputItem{{JSON: asRecord(value, ro.OutputPropertyName), PairedItem: paired}}, nil
	}
	out := make([]OutputItem, 0, len(list))
	for _, element := range list {
		out = append(out, OutputItem{JSON: asRecord(element, ro.OutputPropertyName), PairedItem: paired})
	}
	return out, nil
}

// decodeJSONBody parses body, optionally narrowed by a gjson path. An empty
// body decodes to an empty object.
func decodeJSONBody(body []byte, responsePath string, neverError bool, itemIndex int) (any, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return map[string]any{}, nil
	}
	if !json.Valid(body) {
		if neverError {
			return map[string]any{}, nil
		}
		var probe any
		return nil, &ParseError{ItemIndex: itemIndex, Cause: json.Unmarshal(body, &probe)}
	}

	if responsePath != "" && responsePath != "$" {
		result := gjson.GetBytes(body, responsePath)
		if !result.Exists() {
			return nil, &ParseError{ItemIndex: itemIndex, Cause: fmt.Errorf("response path %q not found in response", responsePath)}
		}
		body = []byte(result.Raw)
	}

	var value any
	if err := json.Unmarshal(body, &value); err != nil {
		return nil, &ParseError{ItemIndex: itemIndex, Cause: err}
	}
	return value, nil
}

func asRecord(v any, property string) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return map[string]any{property: v}
}

func fullResponseRecord(resp *Response, body any) map[string]any {
	return map[string]any{
		"body":          body,
		"headers":       resp.flatHeaders(),
		"statusCode":    resp.StatusCode,
		"statusMessage": resp.StatusMessage,
	}
}

// fileNameFromResponse prefers Content-Disposition and falls back to the last URL path segment.
func fileNameFromResponse(resp *Response) string {
	if cd := resp.Headers.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil && params["filename"] != "" {
			return params["filename"]
		}
	}
	u, err := url.Parse(resp.URL)
	if err != nil {
		return ""
	}
	name := path.Base(u.Path)
	if name == "/" || name == "." {
		return ""
	}
	return name
}

// isEmptyBody reports whether a page carries no data: no bytes, an empty
// array, null or an empty string. An empty object still counts as a page.
func isEmptyBody(body []byte) bool {
	switch string(bytes.TrimSpace(body)) {
	case "", "[]", "null", `""`:
		return true
	}
	return false
}
