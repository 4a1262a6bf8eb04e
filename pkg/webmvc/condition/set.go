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

// Package condition implements the request condition algebra used by handler
// resolvers: composable, comparable match predicates over the HTTP method,
// parameters, headers, media types and path of a request.
package condition

import (
	"net/http"
	"strings"
)

// Set is the conjunction of one condition per kind. The zero Set matches
// every request and is the least specific value.
type Set struct {
	Methods  Methods
	Params   Params
	Headers  Headers
	Consumes Consumes
	Produces Produces
	Path     PathPattern
}

// Combine merges a type-level Set with a method-level Set. Each kind is
// combined pairwise; path patterns are joined, every other kind is unioned.
func (s Set) Combine(other Set) Set {
	return Set{
		Methods:  s.Methods.Combine(other.Methods),
		Params:   s.Params.Combine(other.Params),
		Headers:  s.Headers.Combine(other.Headers),
		Consumes: s.Consumes.Combine(other.Consumes),
		Produces: s.Produces.Combine(other.Produces),
		Path:     s.Path.Combine(other.Path),
	}
}

// Matching reduces every kind against the request. The second return is
// false as soon as any kind fails; conjunction semantics across kinds.
func (s Set) Matching(r *http.Request) (Set, bool) {
	methods, ok := s.Methods.Matching(r)
	if !ok {
		return Set{}, false
	}
	params, ok := s.Params.Matching(r)
	if !ok {
		return Set{}, false
	}
	headers, ok := s.Headers.Matching(r)
	if !ok {
		return Set{}, false
	}
	consumes, ok := s.Consumes.Matching(r)
	if !ok {
		return Set{}, false
	}
	produces, ok := s.Produces.Matching(r)
	if !ok {
		return Set{}, false
	}
	path, ok := s.Path.Matching(r)
	if !ok {
		return Set{}, false
	}
	return Set{
		Methods:  methods,
		Params:   params,
		Headers:  headers,
		Consumes: consumes,
		Produces: produces,
		Path:     path,
	}, true
}

// Compare orders two reduced Sets by specificity. The Set with strictly more
// discrete expressions sorts first; ties are broken by path-pattern
// specificity, then kind by kind. Comparisons are only meaningful between
// two Sets reduced via Matching against the same request.
func (s Set) Compare(other Set) int {
	if d := other.ExpressionCount() - s.ExpressionCount(); d != 0 {
		return d
	}
	if d := s.Path.Compare(other.Path); d != 0 {
		return d
	}
	if d := s.Params.Compare(other.Params); d != 0 {
		return d
	}
	if d := s.Headers.Compare(other.Headers); d != 0 {
		return d
	}
	if d := s.Consumes.Compare(other.Consumes); d != 0 {
		return d
	}
	if d := s.Produces.Compare(other.Produces); d != 0 {
		return d
	}
	return s.Methods.Compare(other.Methods)
}

// ExpressionCount returns the total number of discrete expressions across
// all kinds. The path pattern counts as one expression when present.
func (s Set) ExpressionCount() int {
	count := s.Methods.Len() + s.Params.Len() + s.Headers.Len() + s.Consumes.Len() + s.Produces.Len()
	if !s.Path.IsEmpty() {
		count++
	}
	return count
}

// IsEmpty reports whether the Set matches every request.
func (s Set) IsEmpty() bool {
	return s.Methods.IsEmpty() && s.Params.IsEmpty() && s.Headers.IsEmpty() &&
		s.Consumes.IsEmpty() && s.Produces.IsEmpty() && s.Path.IsEmpty()
}

func (s Set) String() string {
	parts := []string{}
	if !s.Path.IsEmpty() {
		parts = append(parts, s.Path.String())
	}
	if !s.Methods.IsEmpty() {
		parts = append(parts, s.Methods.String())
	}
	if !s.Params.IsEmpty() {
		parts = append(parts, "params"+s.Params.String())
	}
	if !s.Headers.IsEmpty() {
		parts = append(parts, "headers"+s.Headers.String())
	}
	if !s.Consumes.IsEmpty() {
		parts = append(parts, "consumes"+s.Consumes.String())
	}
	if !s.Produces.IsEmpty() {
		parts = append(parts, "produces"+s.Produces.String())
	}
	if len(parts) == 0 {
		return "{}"
	}
	return "{" + strings.Join(parts, " ") + "}"
}
