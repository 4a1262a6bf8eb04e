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

package view

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolversFirstClaimWins(t *testing.T) {
	first := ResolverFunc(func(name, _ string) (View, error) {
		if name == "greeting" {
			return JSON{}, nil
		}
		return nil, nil
	})
	second := ResolverFunc(func(name, _ string) (View, error) {
		return NewRedirect("/fallback"), nil
	})

	chain := Resolvers{first, second}

	v, err := chain.ResolveView("greeting", "en")
	require.NoError(t, err)
	_, ok := v.(JSON)
	assert.True(t, ok, "the first claiming resolver must win")

	v, err = chain.ResolveView("other", "en")
	require.NoError(t, err)
	_, ok = v.(*Redirect)
	assert.True(t, ok, "an unclaimed name falls through to the next resolver")
}

func TestResolversPropagateErrors(t *testing.T) {
	boom := errors.New("template missing")
	chain := Resolvers{ResolverFunc(func(string, string) (View, error) {
		return nil, boom
	})}
	_, err := chain.ResolveView("any", "en")
	assert.ErrorIs(t, err, boom)
}

func TestResolversNoClaim(t *testing.T) {
	v, err := Resolvers{}.ResolveView("any", "en")
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestRedirectRender(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest("POST", "/accounts", nil)

	require.NoError(t, NewRedirect("/accounts/42").Render(context.Background(), nil, r, w))
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/accounts/42", w.Header().Get("Location"))
}

func TestJSONRender(t *testing.T) {
	w := httptest.NewRecorder()
	model := map[string]any{"message": "hello"}

	require.NoError(t, JSON{}.Render(context.Background(), model, httptest.NewRequest("GET", "/", nil), w))
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var got map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "hello", got["message"])
}
