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
)

// Params matches query/form parameters of a request against a set of
// name/value expressions. All expressions must hold (conjunction).
type Params struct {
	expressions []Expression
}

// NewParams builds a Params condition from expression strings such as
// "q", "!debug", "format=json" or "format!=xml".
func NewParams(exprs ...string) Params {
	return Params{expressions: parseExpressions(exprs)}
}

// Combine returns the conjunction of the two conditions. The resulting
// expression set is the union of both inputs'.
func (c Params) Combine(other Params) Params {
	return Params{expressions: unionExpressions(c.expressions, other.expressions)}
}

// Matching reduces the condition against the request. The second return is
// false when any expression fails; otherwise the reduced condition holds the
// positively required expressions that were satisfied.
func (c Params) Matching(r *http.Request) (Params, bool) {
	query := r.URL.Query()
	lookup := func(name string) ([]string, bool) {
		values, ok := query[name]
		return values, ok
	}
	for _, e := range c.expressions {
		if !e.Match(lookup) {
			return Params{}, false
		}
	}
	return Params{expressions: positive(c.expressions)}, true
}

// Compare orders two conditions by specificity: the one with more
// expressions sorts first (negative result means c sorts before other).
func (c Params) Compare(other Params) int {
	return len(other.expressions) - len(c.expressions)
}

// Len returns the number of discrete expressions.
func (c Params) Len() int { return len(c.expressions) }

// IsEmpty reports whether the condition matches every request.
func (c Params) IsEmpty() bool { return len(c.expressions) == 0 }

func (c Params) String() string { return joinExpressions(c.expressions, " && ") }

// Headers matches request headers against a set of name/value expressions.
// Header names are case-insensitive; values are not.
type Headers struct {
	expressions []Expression
}

// NewHeaders builds a Headers condition from expression strings.
func NewHeaders(exprs ...string) Headers {
	return Headers{expressions: parseExpressions(exprs)}
}

// Combine returns the conjunction of the two conditions.
func (c Headers) Combine(other Headers) Headers {
	return Headers{expressions: unionExpressions(c.expressions, other.expressions)}
}

// Matching reduces the condition against the request headers.
func (c Headers) Matching(r *http.Request) (Headers, bool) {
	lookup := func(name string) ([]string, bool) {
		values := r.Header.Values(name)
		return values, len(values) > 0
	}
	for _, e := range c.expressions {
		if !e.Match(lookup) {
			return Headers{}, false
		}
	}
	return Headers{expressions: positive(c.expressions)}, true
}

// Compare orders two conditions by specificity.
func (c Headers) Compare(other Headers) int {
	return len(other.expressions) - len(c.expressions)
}

// Len returns the number of discrete expressions.
func (c Headers) Len() int { return len(c.expressions) }

// IsEmpty reports whether the condition matches every request.
func (c Headers) IsEmpty() bool { return len(c.expressions) == 0 }

func (c Headers) String() string { return joinExpressions(c.expressions, " && ") }
