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
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParamsCombine(t *testing.T) {
	a := NewParams("q", "format=json")
	b := NewParams("format=json", "page=2")

	combined := a.Combine(b)
	assert.Equal(t, 3, combined.Len(), "combine must union the expression sets")

	// commutative on the expression sets
	reversed := b.Combine(a)
	assert.Equal(t, combined.Len(), reversed.Len())
	assert.Equal(t, 0, combined.Compare(reversed))
}

func TestParamsMatching(t *testing.T) {
	tests := []struct {
		name      string
		exprs     []string
		target    string
		wantMatch bool
		wantLen   int
	}{
		{
			name:      "all expressions satisfied",
			exprs:     []string{"q", "format=json"},
			target:    "/search?q=go&format=json",
			wantMatch: true,
			wantLen:   2,
		},
		{
			name:      "one required param missing",
			exprs:     []string{"q", "format=json"},
			target:    "/search?q=go",
			wantMatch: false,
		},
		{
			name:      "value mismatch",
			exprs:     []string{"format=json"},
			target:    "/search?format=xml",
			wantMatch: false,
		},
		{
			name:      "negated presence holds",
			exprs:     []string{"q", "!debug"},
			target:    "/search?q=go",
			wantMatch: true,
			wantLen:   1, // the matched condition keeps only positive expressions
		},
		{
			name:      "negated presence violated",
			exprs:     []string{"q", "!debug"},
			target:    "/search?q=go&debug=1",
			wantMatch: false,
		},
		{
			name:      "negated value holds when different",
			exprs:     []string{"format!=xml"},
			target:    "/search?format=json",
			wantMatch: true,
			wantLen:   0,
		},
		{
			name:      "zero expressions match everything",
			exprs:     nil,
			target:    "/anything",
			wantMatch: true,
			wantLen:   0,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", test.target, nil)
			matched, ok := NewParams(test.exprs...).Matching(r)
			assert.Equal(t, test.wantMatch, ok)
			if ok {
				assert.Equal(t, test.wantLen, matched.Len())
			}
		})
	}
}

func TestHeadersMatching(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("X-Requested-With", "XMLHttpRequest")

	_, ok := NewHeaders("X-Requested-With=XMLHttpRequest").Matching(r)
	assert.True(t, ok)

	_, ok = NewHeaders("!X-Requested-With").Matching(r)
	assert.False(t, ok)

	_, ok = NewHeaders("X-Custom").Matching(r)
	assert.False(t, ok)
}

func TestMethodsMatching(t *testing.T) {
	tests := []struct {
		name      string
		methods   []string
		reqMethod string
		wantMatch bool
	}{
		{name: "exact match", methods: []string{"GET", "POST"}, reqMethod: "POST", wantMatch: true},
		{name: "no match", methods: []string{"GET"}, reqMethod: "DELETE", wantMatch: false},
		{name: "HEAD matches GET", methods: []string{"GET"}, reqMethod: "HEAD", wantMatch: true},
		{name: "empty matches everything", methods: nil, reqMethod: "PATCH", wantMatch: true},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			r := httptest.NewRequest(test.reqMethod, "/", nil)
			matched, ok := NewMethods(test.methods...).Matching(r)
			assert.Equal(t, test.wantMatch, ok)
			if ok && len(test.methods) > 0 {
				assert.Equal(t, 1, matched.Len(), "matching reduces to the matched method")
			}
		})
	}
}

func TestMediaMatching(t *testing.T) {
	r := httptest.NewRequest("POST", "/", nil)
	r.Header.Set("Content-Type", "application/json; charset=utf-8")
	r.Header.Set("Accept", "text/html, application/json;q=0.9")

	_, ok := NewConsumes("application/json").Matching(r)
	assert.True(t, ok)
	_, ok = NewConsumes("application/*").Matching(r)
	assert.True(t, ok)
	_, ok = NewConsumes("text/plain").Matching(r)
	assert.False(t, ok)
	_, ok = NewConsumes("!multipart/form-data").Matching(r)
	assert.True(t, ok)

	_, ok = NewProduces("application/json").Matching(r)
	assert.True(t, ok)
	_, ok = NewProduces("image/png").Matching(r)
	assert.False(t, ok)

	// a missing Accept header accepts everything
	noAccept := httptest.NewRequest("GET", "/", nil)
	_, ok = NewProduces("image/png").Matching(noAccept)
	assert.True(t, ok)
}

func TestPathPattern(t *testing.T) {
	tests := []struct {
		pattern string
		path    string
		want    bool
	}{
		{pattern: "/accounts", path: "/accounts", want: true},
		{pattern: "/accounts", path: "/accounts/42", want: false},
		{pattern: "/accounts/{id}", path: "/accounts/42", want: true},
		{pattern: "/accounts/{id}", path: "/accounts", want: false},
		{pattern: "/accounts/*", path: "/accounts/42", want: true},
		{pattern: "/static/**", path: "/static/css/site.css", want: true},
		{pattern: "/static/**", path: "/static", want: true},
		{pattern: "", path: "/anything", want: true},
	}
	for _, test := range tests {
		t.Run(test.pattern+" vs "+test.path, func(t *testing.T) {
			assert.Equal(t, test.want, NewPath(test.pattern).Matches(test.path))
		})
	}
}

func TestPathPatternSpecificity(t *testing.T) {
	exact := NewPath("/accounts/42")
	templated := NewPath("/accounts/{id}")
	wildcard := NewPath("/accounts/**")

	assert.Negative(t, exact.Compare(templated))
	assert.Negative(t, templated.Compare(wildcard))
	assert.Negative(t, exact.Compare(wildcard))
}

func TestPathPatternVariables(t *testing.T) {
	vars := NewPath("/accounts/{id}/orders/{order}").Variables("/accounts/42/orders/7")
	want := map[string]string{"id": "42", "order": "7"}
	if diff := cmp.Diff(want, vars); diff != "" {
		t.Errorf("unexpected variables (-want +got):\n%s", diff)
	}
}

func TestPathPatternCombine(t *testing.T) {
	combined := NewPath("/accounts").Combine(NewPath("/{id}"))
	assert.Equal(t, "/accounts/{id}", combined.Pattern())

	assert.Equal(t, "/solo", NewPath("").Combine(NewPath("/solo")).Pattern())
	assert.Equal(t, "/solo", NewPath("/solo").Combine(NewPath("")).Pattern())
}

func TestSetMatchingAndCompare(t *testing.T) {
	r := httptest.NewRequest("GET", "/accounts/42?verbose=1", nil)

	broad := Set{Path: NewPath("/accounts/{id}")}
	narrow := Set{
		Path:   NewPath("/accounts/{id}"),
		Params: NewParams("verbose"),
	}

	broadMatched, ok := broad.Matching(r)
	require.True(t, ok)
	narrowMatched, ok := narrow.Matching(r)
	require.True(t, ok)

	assert.Negative(t, narrowMatched.Compare(broadMatched),
		"the condition with more satisfied expressions must sort first")

	_, ok = narrow.Matching(httptest.NewRequest("GET", "/accounts/42", nil))
	assert.False(t, ok, "a failing kind fails the whole set")
}

func TestSetCombine(t *testing.T) {
	typeLevel := Set{Path: NewPath("/accounts"), Methods: NewMethods("GET")}
	methodLevel := Set{Path: NewPath("/{id}"), Params: NewParams("verbose")}

	combined := typeLevel.Combine(methodLevel)
	assert.Equal(t, "/accounts/{id}", combined.Path.Pattern())
	assert.Equal(t, 1, combined.Methods.Len())
	assert.Equal(t, 1, combined.Params.Len())

	wildcard := Set{}
	assert.True(t, wildcard.IsEmpty())
	_, ok := wildcard.Matching(httptest.NewRequest("DELETE", "/whatever", nil))
	assert.True(t, ok, "the zero Set is the wildcard condition")
}
