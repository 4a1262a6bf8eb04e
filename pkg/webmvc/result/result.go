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

// Package result defines the outcome of a handler invocation: a render
// target plus named model values, or the "handled directly" sentinel.
package result

import (
	"fmt"

	"github.com/zetxqx/webmvc/pkg/webmvc/flash"
)

// RedirectPrefix marks a view name as a redirect target. The remainder of
// the name is the redirect location.
const RedirectPrefix = "redirect:"

// Result is the outcome of invoking a handler. A nil *Result, or one marked
// handled, signals that the handler fully produced the response itself;
// that is a normal outcome, not an error.
type Result struct {
	viewName string
	model    map[string]any
	status   int
	handled  bool
	flash    *flash.Flash
}

// New creates a Result that renders the named view.
func New(viewName string) *Result {
	return &Result{viewName: viewName, model: map[string]any{}}
}

// Redirect creates a Result that redirects to the given location.
func Redirect(location string) *Result {
	return New(RedirectPrefix + location)
}

// Handled creates the sentinel Result for a handler that already wrote the
// response.
func Handled() *Result {
	return &Result{handled: true}
}

// ViewName returns the render target identifier.
func (r *Result) ViewName() string { return r.viewName }

// SetViewName replaces the render target identifier.
func (r *Result) SetViewName(name string) { r.viewName = name }

// IsRedirect reports whether the view name carries the redirect prefix, and
// returns the target location if so.
func (r *Result) IsRedirect() (string, bool) {
	if len(r.viewName) > len(RedirectPrefix) && r.viewName[:len(RedirectPrefix)] == RedirectPrefix {
		return r.viewName[len(RedirectPrefix):], true
	}
	return "", false
}

// AddAttribute adds a named model value.
func (r *Result) AddAttribute(name string, value any) *Result {
	if r.model == nil {
		r.model = map[string]any{}
	}
	r.model[name] = value
	return r
}

// Model returns the named model values.
func (r *Result) Model() map[string]any {
	if r.model == nil {
		r.model = map[string]any{}
	}
	return r.model
}

// SetStatus sets an explicit response status code.
func (r *Result) SetStatus(status int) *Result {
	r.status = status
	return r
}

// Status returns the explicit status code, or 0 when none was set.
func (r *Result) Status() int { return r.status }

// SetFlash attaches flash state to deliver to the request following a
// redirect. Saved by the orchestrator just before the redirect is written.
func (r *Result) SetFlash(f *flash.Flash) *Result {
	r.flash = f
	return r
}

// Flash returns the attached flash state, if any.
func (r *Result) Flash() *flash.Flash { return r.flash }

// Clear marks the Result as handled directly, discarding view and model.
func (r *Result) Clear() {
	r.viewName = ""
	r.model = nil
	r.handled = true
}

// WasHandled reports whether the handler fully produced the response.
func (r *Result) WasHandled() bool { return r.handled }

// IsEmpty reports whether the Result holds neither a view nor model values.
func (r *Result) IsEmpty() bool {
	return r.viewName == "" && len(r.model) == 0
}

func (r *Result) String() string {
	if r.handled {
		return "Result[handled]"
	}
	return fmt.Sprintf("Result[view=%q, model=%d, status=%d]", r.viewName, len(r.model), r.status)
}
