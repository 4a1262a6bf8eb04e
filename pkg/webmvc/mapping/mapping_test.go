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

package mapping

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zetxqx/webmvc/pkg/webmvc/chain"
	"github.com/zetxqx/webmvc/pkg/webmvc/interceptor"
	errutil "github.com/zetxqx/webmvc/pkg/webmvc/util/error"
)

func named(name string) any {
	// distinct pointer per handler so tests can tell them apart
	s := name
	return &s
}

func handlerName(c *chain.Chain) string {
	return *(c.Handler().(*string))
}

func TestConditionMappingResolve(t *testing.T) {
	m := NewConditionMapping("test", 0)
	m.Handle("/accounts", named("list")).Methods("GET")
	m.Handle("/accounts", named("create")).Methods("POST")
	m.Handle("/accounts/{id}", named("show")).Methods("GET")
	m.Handle("/accounts/{id}", named("showVerbose")).Methods("GET").Params("verbose")

	tests := []struct {
		name    string
		method  string
		target  string
		want    string
		wantNil bool
	}{
		{name: "method discriminates", method: "POST", target: "/accounts", want: "create"},
		{name: "template match", method: "GET", target: "/accounts/42", want: "show"},
		{name: "more specific wins", method: "GET", target: "/accounts/42?verbose=1", want: "showVerbose"},
		{name: "no match is not an error", method: "DELETE", target: "/accounts", wantNil: true},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			r := httptest.NewRequest(test.method, test.target, nil)
			c, err := m.Resolve(context.Background(), r)
			require.NoError(t, err)
			if test.wantNil {
				assert.Nil(t, c)
				return
			}
			require.NotNil(t, c)
			assert.Equal(t, test.want, handlerName(c))
		})
	}
}

func TestConditionMappingAmbiguity(t *testing.T) {
	m := NewConditionMapping("test", 0)
	m.Handle("/accounts/{id}", named("a")).Methods("GET").Named("a")
	m.Handle("/accounts/{id}", named("b")).Methods("GET").Named("b")

	r := httptest.NewRequest("GET", "/accounts/42", nil)
	_, err := m.Resolve(context.Background(), r)
	require.Error(t, err)
	assert.Equal(t, errutil.AmbiguousMapping, errutil.CanonicalCode(err))
}

func TestConditionMappingNearMissIsNoMatch(t *testing.T) {
	// a registration whose path matches but whose params do not must not
	// resolve; the request falls through to less specific mappings.
	m := NewConditionMapping("test", 0)
	m.Handle("/search", named("search")).Params("q")

	r := httptest.NewRequest("GET", "/search", nil)
	c, err := m.Resolve(context.Background(), r)
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestConditionMappingInterceptorScoping(t *testing.T) {
	everywhere := &interceptor.Base{}
	apiOnly := interceptor.NewMapped(&interceptor.Base{}, []string{"/api/**"}, nil)

	m := NewConditionMapping("test", 0)
	m.Handle("/api/accounts", named("api"))
	m.Handle("/health", named("health"))
	m.AddInterceptor(everywhere, apiOnly)

	r := httptest.NewRequest("GET", "/api/accounts", nil)
	c, err := m.Resolve(context.Background(), r)
	require.NoError(t, err)
	assert.Len(t, c.Interceptors(), 2)

	r = httptest.NewRequest("GET", "/health", nil)
	c, err = m.Resolve(context.Background(), r)
	require.NoError(t, err)
	assert.Len(t, c.Interceptors(), 1, "a scoped interceptor must not attach outside its paths")
}

func TestConditionMappingTypedName(t *testing.T) {
	var _ NamedResolver = NewConditionMapping("demo", 0)

	m := NewConditionMapping("demo", 0)
	assert.Equal(t, "demo", m.Name())
	assert.Equal(t, ConditionMappingType, m.TypedName().Type)
	assert.Equal(t, "demo/condition-mapping", m.TypedName().String())
}

type stubResolver struct {
	order int
	c     *chain.Chain
	err   error
}

func (s stubResolver) Resolve(context.Context, *http.Request) (*chain.Chain, error) {
	return s.c, s.err
}

func (s stubResolver) Order() int { return s.order }

func TestResolversFirstMatchWins(t *testing.T) {
	low := stubResolver{order: 0, c: chain.New(named("low"))}
	high := stubResolver{order: 10, c: chain.New(named("high"))}

	r := httptest.NewRequest("GET", "/", nil)

	// registration order must not matter, only Order()
	rs := Resolvers{high, low}.Sorted()
	c, err := rs.Resolve(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, "low", handlerName(c))
}

func TestResolversFallThrough(t *testing.T) {
	miss := stubResolver{order: 0}
	hit := stubResolver{order: 10, c: chain.New(named("fallback"))}

	rs := Resolvers{miss, hit}.Sorted()
	c, err := rs.Resolve(context.Background(), httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, "fallback", handlerName(c))
}

func TestResolversNoMatch(t *testing.T) {
	rs := Resolvers{stubResolver{order: 0}}
	c, err := rs.Resolve(context.Background(), httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestResolversErrorAborts(t *testing.T) {
	boom := errutil.Error{Code: errutil.AmbiguousMapping, Msg: "tie"}
	rs := Resolvers{
		stubResolver{order: 0, err: boom},
		stubResolver{order: 10, c: chain.New(named("never"))},
	}.Sorted()

	_, err := rs.Resolve(context.Background(), httptest.NewRequest("GET", "/", nil))
	require.Error(t, err)
	assert.Equal(t, errutil.AmbiguousMapping, errutil.CanonicalCode(err),
		"an ambiguity in an earlier resolver must not fall through to later ones")
}

func TestConditionMappingTypeLevelConditions(t *testing.T) {
	// method-level registrations combine with their own conditions only;
	// verify Combine semantics through the fluent registration.
	m := NewConditionMapping("test", 0)
	m.Handle("/documents", named("upload")).Methods("POST").Consumes("application/json")

	r := httptest.NewRequest("POST", "/documents", nil)
	r.Header.Set("Content-Type", "application/json")
	c, err := m.Resolve(context.Background(), r)
	require.NoError(t, err)
	require.NotNil(t, c)

	r = httptest.NewRequest("POST", "/documents", nil)
	r.Header.Set("Content-Type", "text/plain")
	c, err = m.Resolve(context.Background(), r)
	require.NoError(t, err)
	assert.Nil(t, c)
}
