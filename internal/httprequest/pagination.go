package httprequest

import (
	"context"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/konnektr-io/http-request-operator/internal/metrics"
)

// runItem performs the request of one item, following pagination when enabled,
// and normalizes every received page.
func (e *Executor) runItem(ctx context.Context, host Host, d *Descriptor, prep *PreparedRequest) ([]OutputItem, error) {
	if !d.Options.Pagination.Enabled() {
		resp, err := e.send(ctx, host, prep, prep.Options)
		if err != nil {
			return nil, err
		}
		if !resp.Success() && !d.Options.Response.NeverError {
			return nil, newStatusError(prep.ItemIndex, prep.Sanitized(), resp)
		}
		return NormalizeResponse(d, resp, prep.ItemIndex)
	}
	return e.Paginate(ctx, host, d, prep)
}

// Paginate issues requests for one item until the completion predicate holds,
// the page cap is reached or no next page can be derived.
func (e *Executor) Paginate(ctx context.Context, host Host, d *Descriptor, prep *PreparedRequest) ([]OutputItem, error) {
	p := d.Options.Pagination
	opts := prep.Options.clone()
	log := e.log.WithValues("item", prep.ItemIndex, "mode", p.Mode)

	var out []OutputItem
	for pages := 0; ; {
		if pages > 0 && p.RequestInterval > 0 {
			if err := e.sleep(ctx, time.Duration(p.RequestInterval)*time.Millisecond); err != nil {
				return nil, err
			}
		}

		resp, err := e.send(ctx, host, prep, opts)
		if err != nil {
			return nil, err
		}
		pages++
		metrics.ObservePage()

		if p.CompleteWhen == CompleteStatusCodes && !slices.Contains(p.StatusCodes, resp.StatusCode) {
			log.V(1).Info("Pagination complete", "pages", pages, "statusCode", resp.StatusCode)
			return out, nil
		}
		// a listed continue code is a page even when it is not a 2xx
		listed := p.CompleteWhen == CompleteStatusCodes
		if !listed && !resp.Success() && !d.Options.Response.NeverError {
			return nil, newStatusError(prep.ItemIndex, Sanitize(opts, prep.auth.secrets), resp)
		}

		items, err := NormalizeResponse(d, resp, prep.ItemIndex)
		if err != nil {
			return nil, err
		}
		out = append(out, items...)

		scope := prep.scope
		scope.PageCount = pages
		scope.Response = resp
		scope.Request = opts

		done, err := e.pageComplete(p, resp, scope)
		if err != nil {
			return nil, err
		}
		if done {
			log.V(1).Info("Pagination complete", "pages", pages)
			return out, nil
		}
		if p.LimitPagesFetched && pages >= p.MaxRequests {
			log.V(1).Info("Pagination stopped at page limit", "pages", pages)
			return out, nil
		}

		more, err := e.advance(p, opts, prep.auth.query, scope)
		if err != nil {
			return nil, err
		}
		if !more {
			log.V(1).Info("Pagination complete, no next URL", "pages", pages)
			return out, nil
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
}

func (e *Executor) pageComplete(p *Pagination, resp *Response, scope Scope) (bool, error) {
	switch p.CompleteWhen {
	case CompleteResponseIsEmpty:
		return isEmptyBody(resp.Body), nil
	case CompleteOther:
		done, err := e.eval.ResolveBool(p.CompleteExpression, scope)
		if err != nil {
			return false, configErr("options.pagination.completeExpression", scope.ItemIndex, err.Error())
		}
		return done, nil
	}
	return false, nil
}

// advance rewrites opts for the next page. It returns false when the
// sequence cannot continue. A next URL replaces the query, except for the
// credential fields in authQuery that the URL does not carry itself.
func (e *Executor) advance(p *Pagination, opts *RequestOptions, authQuery map[string]any, scope Scope) (bool, error) {
	if p.Mode == PaginationNextURL {
		next, err := e.eval.Resolve(p.NextURL, scope)
		if err != nil {
			return false, configErr("options.pagination.nextURL", scope.ItemIndex, err.Error())
		}
		next = strings.TrimSpace(next)
		if next == "" {
			return false, nil
		}
		u, err := url.Parse(next)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return false, configErr("options.pagination.nextURL", scope.ItemIndex, fmt.Sprintf("next URL %q is not a valid http(s) URL", next))
		}
		opts.URL = next
		opts.Query = nil
		present := u.Query()
		for k, v := range authQuery {
			if present.Has(k) {
				continue
			}
			if opts.Query == nil {
				opts.Query = map[string]any{}
			}
			opts.Query[k] = v
		}
		return true, nil
	}

	for _, param := range p.Parameters {
		name, err := e.eval.Resolve(param.Name, scope)
		if err != nil {
			return false, configErr("options.pagination.parameters", scope.ItemIndex, err.Error())
		}
		value, err := e.eval.Resolve(param.Value, scope)
		if err != nil {
			return false, configErr("options.pagination.parameters", scope.ItemIndex, err.Error())
		}
		switch param.Type {
		case LocationQuery:
			if opts.Query == nil {
				opts.Query = map[string]any{}
			}
			opts.Query[name] = value
		case LocationHeaders:
			opts.setHeader(name, value)
		case LocationBody:
			if err := opts.setBodyField(name, value); err != nil {
				return false, configErr("options.pagination.parameters", scope.ItemIndex, err.Error())
			}
		}
	}
	return true, nil
}
