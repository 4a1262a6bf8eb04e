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

// Package view is the render boundary of the dispatch pipeline. Template
// engines live behind the View interface; this package only defines the
// resolution chain and the redirect view the orchestrator needs itself.
package view

import (
	"context"
	"encoding/json"
	"net/http"
)

// View renders a model to the response.
type View interface {
	Render(ctx context.Context, model map[string]any, r *http.Request, w http.ResponseWriter) error
}

// Resolver maps a view name and locale to a View. A nil View with a nil
// error means the resolver does not claim the name.
type Resolver interface {
	ResolveView(name string, locale string) (View, error)
}

// Resolvers is a resolver chain; the first non-nil View wins.
type Resolvers []Resolver

// ResolveView implements Resolver over the chain.
func (rs Resolvers) ResolveView(name string, locale string) (View, error) {
	for _, r := range rs {
		v, err := r.ResolveView(name, locale)
		if err != nil {
			return nil, err
		}
		if v != nil {
			return v, nil
		}
	}
	return nil, nil
}

// Func adapts a function to the View interface.
type Func func(ctx context.Context, model map[string]any, r *http.Request, w http.ResponseWriter) error

// Render implements View.
func (f Func) Render(ctx context.Context, model map[string]any, r *http.Request, w http.ResponseWriter) error {
	return f(ctx, model, r, w)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(name string, locale string) (View, error)

// ResolveView implements Resolver.
func (f ResolverFunc) ResolveView(name string, locale string) (View, error) {
	return f(name, locale)
}

// Redirect sends a redirect response. Flash state attached to the Result is
// saved by the orchestrator before this view renders, so the response may
// be committed here.
type Redirect struct {
	Location string
	Status   int
}

// NewRedirect creates a Redirect with the default 303 See Other status.
func NewRedirect(location string) *Redirect {
	return &Redirect{Location: location, Status: http.StatusSeeOther}
}

// Render implements View.
func (v *Redirect) Render(_ context.Context, _ map[string]any, r *http.Request, w http.ResponseWriter) error {
	status := v.Status
	if status == 0 {
		status = http.StatusSeeOther
	}
	http.Redirect(w, r, v.Location, status)
	return nil
}

// JSON renders the model as a JSON document. Handy as a default view for
// API-style handlers; anything richer belongs to an external engine.
type JSON struct{}

// Render implements View.
func (JSON) Render(_ context.Context, model map[string]any, _ *http.Request, w http.ResponseWriter) error {
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(model)
}
