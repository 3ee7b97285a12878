// Package httprequest executes declaratively described HTTP requests for a
// batch of input items. It builds one request per item, authenticates it,
// follows pagination and normalizes the responses into output records that
// stay paired with the item that produced them.
package httprequest

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-logr/logr"

	"github.com/konnektr-io/http-request-operator/internal/metrics"
)

// Executor runs request descriptors. It is safe for concurrent use and keeps
// transports and OAuth2 token sources alive between invocations.
type Executor struct {
	log       logr.Logger
	eval      *Evaluator
	transport http.RoundTripper
	sleep     func(ctx context.Context, d time.Duration) error

	transports   sync.Map
	tokenSources sync.Map
}

// Option configures an Executor.
type Option func(*Executor)

// WithLogger sets the logger.
func WithLogger(log logr.Logger) Option {
	return func(e *Executor) { e.log = log }
}

// WithTransport replaces the base transport of every request. Auth transports still wrap it.
func WithTransport(rt http.RoundTripper) Option {
	return func(e *Executor) { e.transport = rt }
}

// WithSleep replaces the wait used between batches and pages.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(e *Executor) { e.sleep = sleep }
}

// NewExecutor creates an Executor.
func NewExecutor(opts ...Option) *Executor {
	e := &Executor{
		log:   logr.Discard(),
		eval:  NewEvaluator(),
		sleep: sleepContext,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Result holds one group of output records per input item, in item order.
type Result struct {
	Groups [][]OutputItem
}

// Items returns every output record in item order.
func (r *Result) Items() []OutputItem {
	var out []OutputItem
	for _, g := range r.Groups {
		out = append(out, g...)
	}
	return out
}

// Output returns the records arranged by output port. There is a single port.
func (r *Result) Output() [][]OutputItem {
	return [][]OutputItem{r.Items()}
}

// Execute runs desc against items. Configuration errors are always returned.
// Request and parse errors are returned unless desc.ContinueOnFail is set, in
// which case the failing item yields a single {"error": ...} record instead.
func (e *Executor) Execute(ctx context.Context, host Host, desc *Descriptor, items []Item) (*Result, error) {
	d := desc.WithDefaults()
	if err := d.Validate(); err != nil {
		metrics.ObserveItemError(ErrorKind(err))
		return nil, err
	}
	if checker, ok := host.(CredentialTypeChecker); ok && d.Authentication == AuthPredefined {
		if err := checker.CheckCredentialType(d.NodeCredentialType); err != nil {
			metrics.ObserveItemError(ErrorKind(err))
			return nil, err
		}
	}

	result := &Result{Groups: make([][]OutputItem, len(items))}
	size, interval := len(items), time.Duration(0)
	if b := d.Options.Batching; b != nil {
		size, interval = b.Size, time.Duration(b.Interval)*time.Millisecond
	}

	log := e.log.WithValues("method", d.Method, "items", len(items))
	for n, bounds := range batchBounds(len(items), size) {
		if n > 0 && interval > 0 {
			log.V(1).Info("Waiting between batches", "interval", interval)
			if err := e.sleep(ctx, interval); err != nil {
				return nil, err
			}
		}

		// build the whole batch first so configuration errors surface before any request
		prepared := map[int]*PreparedRequest{}
		var pending []int
		for i := bounds[0]; i < bounds[1]; i++ {
			prep, err := e.BuildRequest(ctx, host, d, items[i], i)
			if err != nil {
				if ferr := e.itemFailed(d, result, i, err); ferr != nil {
					return nil, ferr
				}
				continue
			}
			prepared[i] = prep
			pending = append(pending, i)
		}

		errs := settle(ctx, pending, func(ctx context.Context, i int) error {
			out, err := e.runItem(ctx, host, d, prepared[i])
			if err != nil {
				return err
			}
			if out == nil {
				out = []OutputItem{}
			}
			result.Groups[i] = out
			return nil
		})
		for _, i := range pending {
			if err, failed := errs[i]; failed {
				if ferr := e.itemFailed(d, result, i, err); ferr != nil {
					return nil, ferr
				}
			}
		}
	}

	log.V(1).Info("Execution finished", "records", len(result.Items()))
	return result, nil
}

// itemFailed records a failed item. It returns the error when the whole
// invocation has to fail.
func (e *Executor) itemFailed(d *Descriptor, result *Result, itemIndex int, err error) error {
	kind := ErrorKind(err)
	metrics.ObserveItemError(kind)
	if kind == "config" || !d.ContinueOnFail {
		e.log.Error(err, "Request failed", "item", itemIndex, "kind", kind)
		return err
	}
	e.log.V(1).Info("Request failed, continuing", "item", itemIndex, "kind", kind, "error", err.Error())
	result.Groups[itemIndex] = []OutputItem{errorItem(err, itemIndex)}
	return nil
}
