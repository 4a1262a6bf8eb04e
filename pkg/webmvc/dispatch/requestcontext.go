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

package dispatch

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/zetxqx/webmvc/pkg/webmvc/async"
)

// Kind distinguishes the initial dispatch pass from the resumption pass of
// an async request.
type Kind int

const (
	KindInitial Kind = iota
	KindResumed
)

func (k Kind) String() string {
	if k == KindResumed {
		return "resumed"
	}
	return "initial"
}

// RequestContext is the request-scoped state of one logical dispatch: the
// mutable attribute bag, the flash-derived input model and the async
// exchange. Both passes of an async request share the same instance.
//
// It travels as a context.Context value bound at the start of every pass;
// the context derivation scopes the binding to the pass, so nothing is ever
// left dangling on a pooled worker.
type RequestContext struct {
	id       string
	kind     Kind
	exchange *async.Exchange

	mu    sync.RWMutex
	attrs map[string]any
	model map[string]any
}

// NewRequestContext creates a RequestContext for an initial pass.
func NewRequestContext(exchange *async.Exchange) *RequestContext {
	return &RequestContext{
		id:       uuid.NewString(),
		exchange: exchange,
		attrs:    map[string]any{},
		model:    map[string]any{},
	}
}

// ID returns the logical request id.
func (rc *RequestContext) ID() string { return rc.id }

// Kind returns the current pass kind.
func (rc *RequestContext) Kind() Kind {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	return rc.kind
}

func (rc *RequestContext) markResumed() {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.kind = KindResumed
}

// Exchange returns the async exchange of this request. Handlers call
// Exchange().Start to hand work off to an independent goroutine.
func (rc *RequestContext) Exchange() *async.Exchange { return rc.exchange }

// SetAttribute stores a request-scoped attribute.
func (rc *RequestContext) SetAttribute(name string, value any) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.attrs[name] = value
}

// Attribute returns a request-scoped attribute.
func (rc *RequestContext) Attribute(name string) (any, bool) {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	v, ok := rc.attrs[name]
	return v, ok
}

// RemoveAttribute deletes a request-scoped attribute.
func (rc *RequestContext) RemoveAttribute(name string) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	delete(rc.attrs, name)
}

// mergeModel adds flash-delivered values to the input model.
func (rc *RequestContext) mergeModel(values map[string]any) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	for k, v := range values {
		rc.model[k] = v
	}
}

// InputModel returns a copy of the model values delivered to this request,
// e.g. flash attributes from a preceding redirect.
func (rc *RequestContext) InputModel() map[string]any {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	copied := make(map[string]any, len(rc.model))
	for k, v := range rc.model {
		copied[k] = v
	}
	return copied
}

type contextKey struct{}

// NewContext binds the RequestContext into the context for one dispatch
// pass. The binding is scoped to the derived context, so the previous
// binding (if any) is restored for the caller automatically.
func NewContext(ctx context.Context, rc *RequestContext) context.Context {
	return context.WithValue(ctx, contextKey{}, rc)
}

// FromContext returns the bound RequestContext.
func FromContext(ctx context.Context) (*RequestContext, bool) {
	rc, ok := ctx.Value(contextKey{}).(*RequestContext)
	return rc, ok
}
