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

package condition

import (
	"net/http"
	"strings"

	"k8s.io/apimachinery/pkg/util/sets"
)

// Methods matches the HTTP method of a request against a set of allowed
// methods. Unlike the name/value conditions, the discrete expressions are
// alternatives: any one of them satisfies the condition.
type Methods struct {
	methods []string
}

// NewMethods builds a Methods condition. Method names are upper-cased.
func NewMethods(methods ...string) Methods {
	seen := sets.New[string]()
	kept := make([]string, 0, len(methods))
	for _, m := range methods {
		m = strings.ToUpper(m)
		if !seen.Has(m) {
			seen.Insert(m)
			kept = append(kept, m)
		}
	}
	return Methods{methods: kept}
}

// Combine returns the union of the two method sets.
func (c Methods) Combine(other Methods) Methods {
	return NewMethods(append(append([]string{}, c.methods...), other.methods...)...)
}

// Matching reduces the condition to the single matched method. A HEAD
// request matches a condition registered for GET. An empty condition
// matches every request.
func (c Methods) Matching(r *http.Request) (Methods, bool) {
	if len(c.methods) == 0 {
		return Methods{}, true
	}
	method := r.Method
	if method == http.MethodHead {
		method = http.MethodGet
	}
	for _, m := range c.methods {
		if m == r.Method || m == method {
			return Methods{methods: []string{m}}, true
		}
	}
	return Methods{}, false
}

// Compare orders two conditions by specificity.
func (c Methods) Compare(other Methods) int {
	return len(other.methods) - len(c.methods)
}

// Len returns the number of discrete methods.
func (c Methods) Len() int { return len(c.methods) }

// IsEmpty reports whether the condition matches every request.
func (c Methods) IsEmpty() bool { return len(c.methods) == 0 }

func (c Methods) String() string { return "[" + strings.Join(c.methods, " || ") + "]" }
