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

package interceptor

import (
	"github.com/zetxqx/webmvc/pkg/webmvc/condition"
)

// Mapped scopes an Interceptor to request paths by include/exclude
// patterns. Resolvers evaluate Applies against the request path before
// adding the delegate to an execution chain.
type Mapped struct {
	Interceptor
	include []condition.PathPattern
	exclude []condition.PathPattern
}

// NewMapped wraps the delegate with path scoping. With no include patterns
// every path is included, minus the excluded ones.
func NewMapped(delegate Interceptor, include, exclude []string) *Mapped {
	m := &Mapped{Interceptor: delegate}
	for _, p := range include {
		m.include = append(m.include, condition.NewPath(p))
	}
	for _, p := range exclude {
		m.exclude = append(m.exclude, condition.NewPath(p))
	}
	return m
}

// Applies reports whether the delegate should intercept the given path.
func (m *Mapped) Applies(path string) bool {
	for _, p := range m.exclude {
		if p.Matches(path) {
			return false
		}
	}
	if len(m.include) == 0 {
		return true
	}
	for _, p := range m.include {
		if p.Matches(path) {
			return true
		}
	}
	return false
}
