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

// Package interceptor defines the cross-cutting callback contract of the
// dispatch pipeline. Interceptors run pre-phase in registration order and
// post/cleanup phase in reverse registration order.
package interceptor

import (
	"context"
	"net/http"

	"github.com/zetxqx/webmvc/pkg/webmvc/result"
)

// Interceptor participates in the dispatch of a request. Embed Base to
// implement only the callbacks you need.
type Interceptor interface {
	// PreHandle runs before the handler. Returning false aborts the chain:
	// the handler is not invoked and no post-phase runs, but AfterCompletion
	// still runs for this and every previously invoked interceptor. An
	// interceptor that fully writes the response and returns false is the
	// documented way to short-circuit.
	PreHandle(ctx context.Context, w http.ResponseWriter, r *http.Request, h any) (bool, error)

	// PostHandle runs after the handler completed successfully, before the
	// result is rendered. It may mutate the result.
	PostHandle(ctx context.Context, w http.ResponseWriter, r *http.Request, h any, res *result.Result) error

	// AfterCompletion runs after the dispatch pass finished, regardless of
	// outcome, for every interceptor whose PreHandle completed. err is the
	// captured failure, if any. Errors returned here are logged, never
	// propagated.
	AfterCompletion(ctx context.Context, w http.ResponseWriter, r *http.Request, h any, err error) error

	// AfterAsyncStarted runs instead of PostHandle/AfterCompletion when the
	// handler started asynchronous processing. The final callbacks run on
	// the resumption pass.
	AfterAsyncStarted(ctx context.Context, w http.ResponseWriter, r *http.Request, h any)
}

// Base provides the default callback bodies: PreHandle proceeds, the rest
// are no-ops.
type Base struct{}

// PreHandle implements Interceptor; the default is to proceed.
func (Base) PreHandle(context.Context, http.ResponseWriter, *http.Request, any) (bool, error) {
	return true, nil
}

// PostHandle implements Interceptor as a no-op.
func (Base) PostHandle(context.Context, http.ResponseWriter, *http.Request, any, *result.Result) error {
	return nil
}

// AfterCompletion implements Interceptor as a no-op.
func (Base) AfterCompletion(context.Context, http.ResponseWriter, *http.Request, any, error) error {
	return nil
}

// AfterAsyncStarted implements Interceptor as a no-op.
func (Base) AfterAsyncStarted(context.Context, http.ResponseWriter, *http.Request, any) {}
