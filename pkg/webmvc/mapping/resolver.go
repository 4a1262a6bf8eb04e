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

// Package mapping resolves an inbound request to an execution chain: the
// matched handler plus the interceptors scoped to it. Resolvers are queried
// in priority order and the first non-nil chain wins; candidates are only
// compared within a single resolver, never across resolvers.
package mapping

import (
	"context"
	"math"
	"net/http"
	"sort"

	"github.com/go-logr/logr"

	"github.com/zetxqx/webmvc/pkg/webmvc/chain"
	logutil "github.com/zetxqx/webmvc/pkg/webmvc/util/logging"
)

// Unordered is the implicit order of resolvers that do not specify one;
// they sort last.
const Unordered = math.MaxInt

// Resolver maps a request to an execution chain. A nil chain with a nil
// error means no match, which is a normal outcome.
type Resolver interface {
	// Resolve returns the chain for the request, or nil.
	Resolve(ctx context.Context, r *http.Request) (*chain.Chain, error)
	// Order is the caller-configured priority; lower sorts first.
	Order() int
}

// TypedName identifies a resolver instance for log correlation, rendered
// as "<name>/<type>". The type names the resolver implementation, the name
// the configured instance.
type TypedName struct {
	Type string
	Name string
}

func (tn TypedName) String() string { return tn.Name + "/" + tn.Type }

// NamedResolver is a Resolver that exposes its identity. The resolver chain
// logs which named resolver produced the winning chain.
type NamedResolver interface {
	Resolver
	TypedName() TypedName
}

// Resolvers is an ordered resolver list.
type Resolvers []Resolver

// Sorted returns the resolvers sorted ascending by Order, stable so equal
// orders keep registration order.
func (rs Resolvers) Sorted() Resolvers {
	sorted := append(Resolvers{}, rs...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Order() < sorted[j].Order()
	})
	return sorted
}

// Resolve queries the resolvers in priority order and returns the first
// non-nil chain. Errors abort the query immediately.
func (rs Resolvers) Resolve(ctx context.Context, r *http.Request) (*chain.Chain, error) {
	logger := logr.FromContextOrDiscard(ctx)
	for _, resolver := range rs.Sorted() {
		ch, err := resolver.Resolve(ctx, r)
		if err != nil {
			return nil, err
		}
		if ch != nil {
			if named, ok := resolver.(NamedResolver); ok {
				logger.V(logutil.TRACE).Info("chain resolved", "resolver", named.TypedName().String())
			}
			return ch, nil
		}
	}
	return nil, nil
}
