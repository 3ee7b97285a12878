package httprequest

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"
)

const (
	rateLimitHint   = "Try spacing your requests out using the batching settings under 'Options'"
	parseErrorHint  = "Change the 'Response Format' option to 'Text'"
	maxErrorBodyLen = 512
)

// ConfigError is a deterministic problem with the descriptor or with the
// parameters resolved for one item. It is raised before any request is sent.
type ConfigError struct {
	Field string
	// ItemIndex is -1 when the error does not depend on an item.
	ItemIndex int
	Message   string
}

func (e *ConfigError) Error() string {
	if e.ItemIndex >= 0 {
		return fmt.Sprintf("invalid %s [item %d]: %s", e.Field, e.ItemIndex, e.Message)
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func configErr(field string, itemIndex int, message string) *ConfigError {
	return &ConfigError{Field: field, ItemIndex: itemIndex, Message: message}
}

// RequestError is a failed or rejected outbound request.
type RequestError struct {
	ItemIndex   int
	StatusCode  int
	Message     string
	Description string
	Request     SanitizedRequest
	Cause       error
}

func (e *RequestError) Error() string {
	if e.Description != "" {
		return e.Message + ": " + e.Description
	}
	return e.Message
}

func (e *RequestError) Unwrap() error { return e.Cause }

// ParseError is raised when a body cannot be decoded in the requested format.
type ParseError struct {
	ItemIndex int
	Cause     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("response body is not valid JSON [item %d]: %v. %s", e.ItemIndex, e.Cause, parseErrorHint)
}

func (e *ParseError) Unwrap() error { return e.Cause }

// IsConfigError reports whether err is, or wraps, a ConfigError.
func IsConfigError(err error) bool {
	var cfgErr *ConfigError
	return errors.As(err, &cfgErr)
}

// ErrorKind classifies an error for metrics and status reporting.
func ErrorKind(err error) string {
	var (
		cfgErr   *ConfigError
		parseErr *ParseError
	)
	switch {
	case errors.As(err, &cfgErr):
		return "config"
	case errors.As(err, &parseErr):
		return "parse"
	default:
		return "request"
	}
}

func newTransportError(itemIndex int, req SanitizedRequest, err error) *RequestError {
	return &RequestError{
		ItemIndex: itemIndex,
		Message:   fmt.Sprintf("request to %s failed: %v", req.URL, err),
		Request:   req,
		Cause:     err,
	}
}

func newStatusError(itemIndex int, req SanitizedRequest, resp *Response) *RequestError {
	body := strings.TrimSpace(string(resp.Body))
	if len(body) > maxErrorBodyLen {
		cut := maxErrorBodyLen
		for cut > 0 && !utf8.RuneStart(body[cut]) {
			cut--
		}
		body = body[:cut] + "..."
	}
	if body == "" {
		body = http.StatusText(resp.StatusCode)
	}
	rerr := &RequestError{
		ItemIndex:  itemIndex,
		StatusCode: resp.StatusCode,
		Message:    fmt.Sprintf("%d - %s", resp.StatusCode, body),
		Request:    req,
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		rerr.Description = rateLimitHint
	}
	return rerr
}

// errorItem converts a failure into an output record that keeps its lineage.
func errorItem(err error, itemIndex int) OutputItem {
	return OutputItem{
		JSON:       map[string]any{"error": err.Error()},
		PairedItem: PairedItem{Item: itemIndex},
	}
}
