package httprequest

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/konnektr-io/http-request-operator/internal/metrics"
)

// Response is one received HTTP response with its body fully read.
type Response struct {
	StatusCode    int
	StatusMessage string
	Headers       http.Header
	Body          []byte
	// URL is the final URL after redirects.
	URL string
}

// MediaType returns the lowercased media type of the Content-Type header.
func (r *Response) MediaType() string {
	ct := r.Headers.Get("Content-Type")
	if ct == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(strings.Split(ct, ";")[0]))
	}
	return mt
}

// Success reports whether the status code is 2xx.
func (r *Response) Success() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

func (r *Response) flatHeaders() map[string]any {
	out := make(map[string]any, len(r.Headers))
	for k, v := range r.Headers {
		out[strings.ToLower(k)] = strings.Join(v, ", ")
	}
	return out
}

// scopeData exposes the response to expressions. JSON bodies are decoded.
func (r *Response) scopeData() map[string]any {
	var body any = string(r.Body)
	var decoded any
	if len(r.Body) > 0 && json.Unmarshal(r.Body, &decoded) == nil {
		body = decoded
	}
	return map[string]any{
		"body":          body,
		"headers":       r.flatHeaders(),
		"statusCode":    r.StatusCode,
		"statusMessage": r.StatusMessage,
	}
}

// send encodes opts and performs one request on behalf of prep.
func (e *Executor) send(ctx context.Context, host Host, prep *PreparedRequest, opts *RequestOptions) (*Response, error) {
	sanitized := Sanitize(opts, prep.auth.secrets)
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	req, err := opts.newHTTPRequest(ctx)
	if err != nil {
		return nil, newTransportError(prep.ItemIndex, sanitized, err)
	}
	if prep.auth.predefined != "" {
		if err := host.AuthenticateRequest(ctx, prep.auth.predefined, prep.ItemIndex, req); err != nil {
			return nil, fmt.Errorf("failed to authenticate request with %s [item %d]: %w", prep.auth.predefined, prep.ItemIndex, err)
		}
	}

	client, err := e.client(ctx, prep, opts)
	if err != nil {
		return nil, err
	}

	host.SendMessageToUI(ctx, sanitized)
	e.log.V(1).Info("Sending request", "item", prep.ItemIndex, "method", sanitized.Method, "url", sanitized.URL)

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		metrics.ObserveRequest(opts.Method, 0, time.Since(start))
		if isTimeout(err) {
			err = fmt.Errorf("timeout of %s exceeded: %w", opts.Timeout, err)
		}
		return nil, newTransportError(prep.ItemIndex, sanitized, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	metrics.ObserveRequest(opts.Method, resp.StatusCode, time.Since(start))
	if err != nil {
		return nil, newTransportError(prep.ItemIndex, sanitized, fmt.Errorf("failed to read response body: %w", err))
	}

	return &Response{
		StatusCode:    resp.StatusCode,
		StatusMessage: strings.TrimSpace(strings.TrimPrefix(resp.Status, fmt.Sprint(resp.StatusCode))),
		Headers:       resp.Header,
		Body:          body,
		URL:           resp.Request.URL.String(),
	}, nil
}

type transportKey struct {
	proxy    string
	insecure bool
}

// client assembles an http.Client for one request. Base transports are shared
// per proxy and TLS setting so connections are reused across items.
func (e *Executor) client(ctx context.Context, prep *PreparedRequest, opts *RequestOptions) (*http.Client, error) {
	base, err := e.baseTransport(opts, prep.ItemIndex)
	if err != nil {
		return nil, err
	}
	rt := base
	if prep.auth.wrap != nil {
		rt = prep.auth.wrap(ctx, base)
	}

	follow, limit := opts.FollowRedirects, opts.MaxRedirects
	return &http.Client{
		Transport: rt,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if !follow {
				return http.ErrUseLastResponse
			}
			if len(via) >= limit {
				return fmt.Errorf("stopped after %d redirects", limit)
			}
			return nil
		},
	}, nil
}

func (e *Executor) baseTransport(opts *RequestOptions, itemIndex int) (http.RoundTripper, error) {
	if e.transport != nil {
		return e.transport, nil
	}
	key := transportKey{proxy: opts.Proxy, insecure: opts.SkipTLSVerify}
	if rt, ok := e.transports.Load(key); ok {
		return rt.(http.RoundTripper), nil
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if opts.Proxy != "" {
		proxyURL, err := url.Parse(opts.Proxy)
		if err != nil || proxyURL.Host == "" {
			return nil, configErr("options.proxy", itemIndex, fmt.Sprintf("invalid proxy URL %q", opts.Proxy))
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}
	if opts.SkipTLSVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
	}
	rt, _ := e.transports.LoadOrStore(key, transport)
	return rt.(http.RoundTripper), nil
}

// isTimeout reports whether err was caused by the per request timeout.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}
