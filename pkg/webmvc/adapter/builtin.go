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

package adapter

import (
	"context"
	"net/http"
	"time"

	"github.com/zetxqx/webmvc/pkg/webmvc/handler"
	"github.com/zetxqx/webmvc/pkg/webmvc/result"
)

// DefaultRegistry returns a Registry with the built-in adapters in their
// standard priority order.
func DefaultRegistry() *Registry {
	return NewRegistry(FuncAdapter{}, ControllerAdapter{}, HTTPAdapter{})
}

// FuncAdapter invokes handler.Func handlers.
type FuncAdapter struct{}

// Supports implements Adapter.
func (FuncAdapter) Supports(h any) bool {
	_, ok := h.(handler.Func)
	return ok
}

// Invoke implements Adapter.
func (FuncAdapter) Invoke(ctx context.Context, w http.ResponseWriter, r *http.Request, h any) (*result.Result, error) {
	return h.(handler.Func)(ctx, w, r)
}

// LastModified implements Adapter; plain functions carry no freshness data.
func (FuncAdapter) LastModified(*http.Request, any) (time.Time, bool) {
	return time.Time{}, false
}

// ControllerAdapter invokes handler.Controller handlers and probes the
// optional handler.LastModified capability.
type ControllerAdapter struct{}

// Supports implements Adapter.
func (ControllerAdapter) Supports(h any) bool {
	_, ok := h.(handler.Controller)
	return ok
}

// Invoke implements Adapter.
func (ControllerAdapter) Invoke(ctx context.Context, w http.ResponseWriter, r *http.Request, h any) (*result.Result, error) {
	return h.(handler.Controller).HandleRequest(ctx, w, r)
}

// LastModified implements Adapter.
func (ControllerAdapter) LastModified(r *http.Request, h any) (time.Time, bool) {
	lm, ok := h.(handler.LastModified)
	if !ok {
		return time.Time{}, false
	}
	ts := lm.LastModified(r)
	return ts, !ts.IsZero()
}

// HTTPAdapter invokes plain net/http handlers. The handler writes the
// response itself, so Invoke returns the handled sentinel.
type HTTPAdapter struct{}

// Supports implements Adapter.
func (HTTPAdapter) Supports(h any) bool {
	_, ok := h.(http.Handler)
	return ok
}

// Invoke implements Adapter.
func (HTTPAdapter) Invoke(ctx context.Context, w http.ResponseWriter, r *http.Request, h any) (*result.Result, error) {
	h.(http.Handler).ServeHTTP(w, r.WithContext(ctx))
	return result.Handled(), nil
}

// LastModified implements Adapter.
func (HTTPAdapter) LastModified(*http.Request, any) (time.Time, bool) {
	return time.Time{}, false
}
