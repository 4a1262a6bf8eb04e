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

// Package handler defines the handler shapes the built-in adapters know how
// to invoke. A handler is otherwise opaque to the dispatch pipeline.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/zetxqx/webmvc/pkg/webmvc/result"
)

// Func is the plain function handler shape.
type Func func(ctx context.Context, w http.ResponseWriter, r *http.Request) (*result.Result, error)

// Controller is the object handler shape.
type Controller interface {
	HandleRequest(ctx context.Context, w http.ResponseWriter, r *http.Request) (*result.Result, error)
}

// LastModified is an optional freshness probe a Controller may implement.
// The dispatcher evaluates it before invocation to short-circuit to a
// "not modified" response. A zero time means the value is unknown.
type LastModified interface {
	LastModified(r *http.Request) time.Time
}
