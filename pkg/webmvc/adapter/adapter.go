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

// Package adapter provides the type-erased invocation layer between the
// dispatcher and opaque handlers. Adapters are tried in registration order;
// the first whose Supports returns true invokes the handler.
package adapter

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/zetxqx/webmvc/pkg/webmvc/result"
	errutil "github.com/zetxqx/webmvc/pkg/webmvc/util/error"
)

// Adapter knows how to invoke one shape of handler.
type Adapter interface {
	// Supports is a pure type test for the given handler.
	Supports(h any) bool

	// Invoke executes the handler. A nil Result, or one marked handled,
	// means the handler fully wrote the response.
	Invoke(ctx context.Context, w http.ResponseWriter, r *http.Request, h any) (*result.Result, error)

	// LastModified is an optional freshness probe. The second return is
	// false when the value is unknown.
	LastModified(r *http.Request, h any) (time.Time, bool)
}

// Registry is an ordered adapter list. The registration order is the
// priority order.
type Registry struct {
	adapters []Adapter
}

// NewRegistry creates a Registry with the given adapters.
func NewRegistry(adapters ...Adapter) *Registry {
	return &Registry{adapters: adapters}
}

// Register appends adapters at the lowest priority.
func (reg *Registry) Register(adapters ...Adapter) {
	reg.adapters = append(reg.adapters, adapters...)
}

// For returns the first adapter that supports the handler. No claiming
// adapter is a fatal configuration error, distinct from "no handler
// resolved".
func (reg *Registry) For(h any) (Adapter, error) {
	for _, a := range reg.adapters {
		if a.Supports(h) {
			return a, nil
		}
	}
	return nil, errutil.Error{
		Code: errutil.AdapterNotFound,
		Msg:  fmt.Sprintf("no adapter supports handler of type %T", h),
	}
}
