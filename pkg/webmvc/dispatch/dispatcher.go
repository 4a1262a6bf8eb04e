/*
Copyright 2025 The Kubernetes Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package dispatch defines the Dispatcher, the orchestrator of the
// per-request pipeline: flash retrieval, handler resolution, the
// interceptor chain, adapter invocation, async resumption, exception
// resolution and view rendering.
package dispatch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"k8s.io/utils/clock"

	"github.com/zetxqx/webmvc/pkg/webmvc/adapter"
	"github.com/zetxqx/webmvc/pkg/webmvc/async"
	"github.com/zetxqx/webmvc/pkg/webmvc/chain"
	"github.com/zetxqx/webmvc/pkg/webmvc/flash"
	"github.com/zetxqx/webmvc/pkg/webmvc/mapping"
	"github.com/zetxqx/webmvc/pkg/webmvc/metrics"
	"github.com/zetxqx/webmvc/pkg/webmvc/result"
	errutil "github.com/zetxqx/webmvc/pkg/webmvc/util/error"
	logutil "github.com/zetxqx/webmvc/pkg/webmvc/util/logging"
	"github.com/zetxqx/webmvc/pkg/webmvc/view"
)

// ExceptionResolver turns an uncaught handler failure into a renderable
// result. A nil return means the resolver does not claim the error.
type ExceptionResolver interface {
	ResolveException(ctx context.Context, w http.ResponseWriter, r *http.Request, h any, err error) *result.Result
}

// ExceptionResolverFunc adapts a function to the ExceptionResolver interface.
type ExceptionResolverFunc func(ctx context.Context, w http.ResponseWriter, r *http.Request, h any, err error) *result.Result

// ResolveException implements ExceptionResolver.
func (f ExceptionResolverFunc) ResolveException(ctx context.Context, w http.ResponseWriter, r *http.Request, h any, err error) *result.Result {
	return f(ctx, w, r, h, err)
}

// LocaleFunc derives the rendering locale for a request.
type LocaleFunc func(r *http.Request) string

// Dispatcher orchestrates the end-to-end per-request algorithm.
type Dispatcher struct {
	resolvers          mapping.Resolvers
	adapters           *adapter.Registry
	exceptionResolvers []ExceptionResolver
	views              view.Resolvers
	flash              *flash.Manager
	defaultHandler     any
	clock              clock.Clock
	asyncTimeout       time.Duration
	locale             LocaleFunc
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithResolvers registers handler resolvers.
func WithResolvers(rs ...mapping.Resolver) Option {
	return func(d *Dispatcher) { d.resolvers = append(d.resolvers, rs...) }
}

// WithAdapters replaces the adapter registry.
func WithAdapters(reg *adapter.Registry) Option {
	return func(d *Dispatcher) { d.adapters = reg }
}

// WithExceptionResolvers registers exception resolvers, tried in order.
func WithExceptionResolvers(ers ...ExceptionResolver) Option {
	return func(d *Dispatcher) { d.exceptionResolvers = append(d.exceptionResolvers, ers...) }
}

// WithViewResolvers registers view resolvers, tried in order.
func WithViewResolvers(vrs ...view.Resolver) Option {
	return func(d *Dispatcher) { d.views = append(d.views, vrs...) }
}

// WithFlashManager enables cross-redirect flash state.
func WithFlashManager(m *flash.Manager) Option {
	return func(d *Dispatcher) { d.flash = m }
}

// WithDefaultHandler sets the fallback handler used when no resolver
// matches.
func WithDefaultHandler(h any) Option {
	return func(d *Dispatcher) { d.defaultHandler = h }
}

// WithAsyncTimeout bounds asynchronous handler execution. Zero disables
// the deadline.
func WithAsyncTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) { d.asyncTimeout = timeout }
}

// WithClock replaces the wall clock, for tests.
func WithClock(c clock.Clock) Option {
	return func(d *Dispatcher) { d.clock = c }
}

// WithLocaleFunc replaces the locale derivation.
func WithLocaleFunc(fn LocaleFunc) Option {
	return func(d *Dispatcher) { d.locale = fn }
}

// New creates a Dispatcher. Without options it has the default adapter
// registry, no resolvers and no views.
func New(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		adapters: adapter.DefaultRegistry(),
		clock:    clock.RealClock{},
		locale:   acceptLanguageLocale,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func acceptLanguageLocale(r *http.Request) string {
	lang := r.Header.Get("Accept-Language")
	if idx := strings.IndexAny(lang, ",;"); idx >= 0 {
		lang = lang[:idx]
	}
	return strings.TrimSpace(lang)
}

// ServeHTTP makes the Dispatcher a plain http.Handler. Unclaimed failures
// become a generic internal-error response. For requests that started
// asynchronous handling the connection is held open until the resumption
// pass has run, since the response writer dies with this call.
func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rc := NewRequestContext(async.NewExchange(d.clock, d.asyncTimeout))
	ctx := NewContext(r.Context(), rc)
	if err := d.Dispatch(ctx, w, r); err != nil {
		logr.FromContextOrDiscard(r.Context()).Error(err, "dispatch failed", "path", r.URL.Path)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	if rc.Exchange().Started() {
		select {
		case <-rc.Exchange().Completed():
		case <-r.Context().Done():
			// the client went away: drive the resumption with the
			// cancellation and wait it out, since the response writer is
			// invalid once this call returns
			rc.Exchange().Cancel(r.Context().Err())
			<-rc.Exchange().Completed()
		}
	}
}

// Dispatch runs one initial dispatch pass for the request. The returned
// error is an unclaimed failure the transport layer must answer; a nil
// return means the response was produced (including the not-found and
// aborted outcomes, which are normal control flow).
func (d *Dispatcher) Dispatch(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	start := d.clock.Now()
	rc, ok := FromContext(ctx)
	if !ok {
		rc = NewRequestContext(async.NewExchange(d.clock, d.asyncTimeout))
	}

	logger := logr.FromContextOrDiscard(ctx).WithValues(
		"requestID", rc.ID(), "method", r.Method, "path", r.URL.Path)
	ctx = logr.NewContext(NewContext(ctx, rc), logger)

	// 1. Deliver pending flash state before any resolution.
	if d.flash != nil {
		if f := d.flash.RetrieveAndRemove(r); f != nil {
			logger.V(logutil.DEBUG).Info("flash state delivered", "attributes", len(f.Attributes()))
			rc.mergeModel(f.Attributes())
		}
	}

	// 2. Resolve the execution chain. Resolver errors (e.g. ambiguous
	// mapping) are configuration errors and surface immediately; no
	// interceptors were resolved, so none run.
	ch, err := d.resolvers.Resolve(ctx, r)
	if err != nil {
		d.observe(metrics.OutcomeError, metrics.KindInitial, start)
		return err
	}
	if ch == nil {
		if d.defaultHandler == nil {
			logger.V(logutil.DEBUG).Info("no handler found")
			nfErr := errutil.Error{
				Code: errutil.NoHandlerFound,
				Msg:  fmt.Sprintf("no handler for %s %s", r.Method, r.URL.Path),
			}
			if substitute := d.resolveException(ctx, w, r, nil, nfErr); substitute != nil {
				if rerr := d.render(ctx, substitute, r, w); rerr != nil {
					d.observe(metrics.OutcomeError, metrics.KindInitial, start)
					return rerr
				}
			} else {
				http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			}
			d.observe(metrics.OutcomeNoHandler, metrics.KindInitial, start)
			return nil
		}
		ch = chain.New(d.defaultHandler)
	}

	a, err := d.adapters.For(ch.Handler())
	if err != nil {
		d.observe(metrics.OutcomeError, metrics.KindInitial, start)
		return err
	}

	// 3. Freshness probe, before pre-phase and invocation.
	if d.notModified(r, a, ch.Handler()) {
		w.WriteHeader(http.StatusNotModified)
		d.observe(metrics.OutcomeNotModified, metrics.KindInitial, start)
		return nil
	}

	// 4. Pre-phase.
	proceed, err := ch.ApplyPreHandle(ctx, w, r)
	if err != nil {
		return d.finish(ctx, w, r, ch, nil, err, start)
	}
	if !proceed {
		ch.TriggerAfterCompletion(ctx, w, r, nil)
		d.observe(metrics.OutcomeAborted, metrics.KindInitial, start)
		return nil
	}

	// 6 (prepared early). Register the resumption continuation before the
	// handler runs, so a task finishing instantly still finds it. The
	// resumed pass must not die with the initial request context.
	resumeCtx := context.WithoutCancel(ctx)
	rc.Exchange().OnResume(func(o async.Outcome) {
		rc.markResumed()
		resumeStart := d.clock.Now()
		if rerr := ch.ResumeAfterAsync(); rerr != nil {
			logger.Error(rerr, "async resumption rejected")
			return
		}
		if ferr := d.finish(resumeCtx, w, r, ch, o.Result, o.Err, resumeStart); ferr != nil {
			logger.Error(ferr, "async resumption pass failed")
		}
	})

	// 5. Invoke the handler through the adapter.
	res, err := a.Invoke(ctx, w, r, ch.Handler())

	// 6. Suspend on async start: no post-phase, no cleanup on this worker.
	if rc.Exchange().Started() {
		if err == nil {
			logger.V(logutil.DEBUG).Info("async handling started", "exchange", rc.Exchange().ID())
			ch.ApplyAfterAsyncStarted(ctx, w, r)
			d.observe(metrics.OutcomeAsyncStarted, metrics.KindInitial, start)
			rc.Exchange().Release()
			return nil
		}
		// the handler started background work but still failed: the failure
		// is handled synchronously and the pending resumption dropped, so
		// the task goroutine does not wait on a release that never comes
		rc.Exchange().Discard()
	}

	return d.finish(ctx, w, r, ch, res, err, start)
}

// finish runs steps 7-10 of the pipeline: exception resolution, post-phase,
// rendering and the unconditional cleanup phase. It is entered once per
// logical request, by the initiating pass for sync handlers and by the
// resuming pass for async ones.
func (d *Dispatcher) finish(ctx context.Context, w http.ResponseWriter, r *http.Request, ch *chain.Chain, res *result.Result, dispatchErr error, start time.Time) error {
	logger := logr.FromContextOrDiscard(ctx)
	rc, _ := FromContext(ctx)
	kind := metrics.KindInitial
	if rc != nil && rc.Kind() == KindResumed {
		kind = metrics.KindResumed
	}

	// 7. Offer the captured failure to the exception resolvers. A failure
	// on the handler path suppresses the post-phase even when a resolver
	// supplies a substitute result.
	postAllowed := dispatchErr == nil
	if dispatchErr != nil {
		if errutil.IsConfiguration(dispatchErr) {
			ch.Fail()
			ch.TriggerAfterCompletion(ctx, w, r, dispatchErr)
			d.observe(metrics.OutcomeError, kind, start)
			return dispatchErr
		}
		substitute := d.resolveException(ctx, w, r, ch.Handler(), dispatchErr)
		if substitute == nil {
			ch.Fail()
			ch.TriggerAfterCompletion(ctx, w, r, dispatchErr)
			d.observe(metrics.OutcomeError, kind, start)
			return dispatchErr
		}
		logger.V(logutil.DEFAULT).Info("failure resolved to result", "error", dispatchErr.Error())
		res, dispatchErr = substitute, nil
	}

	// 8. Post-phase (only when the handler completed), then render.
	if postAllowed {
		if err := ch.ApplyPostHandle(ctx, w, r, res); err != nil {
			substitute := d.resolveException(ctx, w, r, ch.Handler(), err)
			if substitute == nil {
				ch.TriggerAfterCompletion(ctx, w, r, err)
				d.observe(metrics.OutcomeError, kind, start)
				return err
			}
			res = substitute
		}
	}

	if res != nil && !res.WasHandled() && !res.IsEmpty() {
		if rc != nil {
			for k, v := range rc.InputModel() {
				if _, present := res.Model()[k]; !present {
					res.AddAttribute(k, v)
				}
			}
		}
		ch.Rendering()
		if err := d.render(ctx, res, r, w); err != nil {
			ch.Fail()
			ch.TriggerAfterCompletion(ctx, w, r, err)
			d.observe(metrics.OutcomeError, kind, start)
			return err
		}
	}

	// 9. Cleanup, always.
	ch.Complete()
	ch.TriggerAfterCompletion(ctx, w, r, nil)
	d.observe(metrics.OutcomeCompleted, kind, start)
	logger.V(logutil.VERBOSE).Info("dispatch pass completed", "kind", kind)
	return nil
}

// render resolves the view and renders the result. For a redirect result it
// first saves any attached flash state, strictly before the redirect is
// committed.
func (d *Dispatcher) render(ctx context.Context, res *result.Result, r *http.Request, w http.ResponseWriter) error {
	if target, ok := res.IsRedirect(); ok {
		if d.flash != nil && res.Flash() != nil {
			f := res.Flash()
			if f.TargetPath() == "" {
				if u, err := url.Parse(target); err == nil {
					f.SetTargetPath(u.Path)
				}
			}
			if err := d.flash.SaveOutput(f, r); err != nil {
				return fmt.Errorf("saving flash state: %w", err)
			}
		}
		redirect := view.NewRedirect(target)
		if res.Status() != 0 {
			redirect.Status = res.Status()
		}
		return redirect.Render(ctx, res.Model(), r, w)
	}

	v, err := d.views.ResolveView(res.ViewName(), d.locale(r))
	if err != nil {
		return err
	}
	if v == nil {
		return errutil.Error{
			Code: errutil.BadConfiguration,
			Msg:  fmt.Sprintf("no view resolver claimed %q", res.ViewName()),
		}
	}
	if res.Status() != 0 {
		w.WriteHeader(res.Status())
	}
	return v.Render(ctx, res.Model(), r, w)
}

func (d *Dispatcher) resolveException(ctx context.Context, w http.ResponseWriter, r *http.Request, h any, err error) *result.Result {
	for _, er := range d.exceptionResolvers {
		if res := er.ResolveException(ctx, w, r, h, err); res != nil {
			return res
		}
	}
	return nil
}

// notModified reports whether the freshness probe allows a 304 response.
func (d *Dispatcher) notModified(r *http.Request, a adapter.Adapter, h any) bool {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		return false
	}
	since, err := http.ParseTime(r.Header.Get("If-Modified-Since"))
	if err != nil {
		return false
	}
	lastModified, known := a.LastModified(r, h)
	return known && !lastModified.Truncate(time.Second).After(since)
}

func (d *Dispatcher) observe(outcome, kind string, start time.Time) {
	metrics.RecordDispatch(outcome)
	metrics.ObserveDispatchDuration(kind, d.clock.Since(start))
}
