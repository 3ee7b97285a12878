package httprequest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/tidwall/gjson"
)

const expressionMarker = "="

// IsExpression reports whether a parameter value must be evaluated.
func IsExpression(value string) bool {
	return strings.HasPrefix(value, expressionMarker)
}

// Scope is the data an expression may reference.
type Scope struct {
	JSON      map[string]any
	Binary    map[string]*BinaryData
	ItemIndex int
	PageCount int
	Response  *Response
	Request   *RequestOptions
}

func (s Scope) data() map[string]any {
	data := map[string]any{
		"json":      s.JSON,
		"itemIndex": s.ItemIndex,
		"pageCount": s.PageCount,
	}
	if data["json"] == nil {
		data["json"] = map[string]any{}
	}
	binary := make(map[string]any, len(s.Binary))
	for name, b := range s.Binary {
		if b == nil {
			continue
		}
		binary[name] = map[string]any{
			"mimeType": b.MimeType,
			"fileName": b.FileName,
			"fileSize": b.FileSize,
		}
	}
	data["binary"] = binary
	if s.Response != nil {
		data["response"] = s.Response.scopeData()
	}
	if s.Request != nil {
		data["request"] = map[string]any{
			"method":  s.Request.Method,
			"url":     s.Request.URL,
			"qs":      s.Request.Query,
			"headers": s.Request.Headers,
			"body":    s.Request.Body,
		}
	}
	return data
}

// Evaluator renders "=" prefixed parameters as Go templates with the Sprig
// function map. Parsed templates are cached, so one Evaluator can serve every
// item of an invocation concurrently.
type Evaluator struct {
	cache sync.Map
}

// NewEvaluator creates an Evaluator.
func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

// Resolve evaluates value against scope. Values without the marker are returned as is.
func (e *Evaluator) Resolve(value string, scope Scope) (string, error) {
	if !IsExpression(value) {
		return value, nil
	}
	tmpl, err := e.parse(strings.TrimPrefix(value, expressionMarker))
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, scope.data()); err != nil {
		return "", fmt.Errorf("failed to evaluate expression: %w", err)
	}
	return strings.ReplaceAll(buf.String(), "<no value>", ""), nil
}

// ResolveBool evaluates a boolean expression. Only "true" counts as true.
func (e *Evaluator) ResolveBool(value string, scope Scope) (bool, error) {
	out, err := e.Resolve(value, scope)
	if err != nil {
		return false, err
	}
	return strings.EqualFold(strings.TrimSpace(out), "true"), nil
}

func (e *Evaluator) parse(text string) (*template.Template, error) {
	if cached, ok := e.cache.Load(text); ok {
		return cached.(*template.Template), nil
	}
	tmpl, err := template.New("expression").Funcs(expressionFuncs()).Parse(text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse expression: %w", err)
	}
	e.cache.Store(text, tmpl)
	return tmpl, nil
}

func expressionFuncs() template.FuncMap {
	funcs := sprig.TxtFuncMap()
	funcs["jsonPath"] = jsonPath
	return funcs
}

// jsonPath looks a gjson path up inside any decoded value.
func jsonPath(path string, v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	result := gjson.GetBytes(raw, path)
	if !result.Exists() {
		return nil, nil
	}
	return result.Value(), nil
}
