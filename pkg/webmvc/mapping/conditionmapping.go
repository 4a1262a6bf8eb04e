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
	"fmt"
	"net/http"
	"sort"

	"github.com/go-logr/logr"

	"github.com/zetxqx/webmvc/pkg/webmvc/chain"
	"github.com/zetxqx/webmvc/pkg/webmvc/condition"
	"github.com/zetxqx/webmvc/pkg/webmvc/interceptor"
	errutil "github.com/zetxqx/webmvc/pkg/webmvc/util/error"
	logutil "github.com/zetxqx/webmvc/pkg/webmvc/util/logging"
)

// ConditionMapping resolves handlers by evaluating a condition Set per
// registration. When several registrations match, the most specific wins;
// two equally specific candidates are an ambiguous-mapping configuration
// error.
type ConditionMapping struct {
	tn            TypedName
	order         int
	registrations []*Registration
	interceptors  []interceptor.Interceptor
}

// ConditionMappingType is the resolver type of ConditionMapping instances.
const ConditionMappingType = "condition-mapping"

// NewConditionMapping creates an empty mapping with the given name and
// priority order.
func NewConditionMapping(name string, order int) *ConditionMapping {
	return &ConditionMapping{
		tn:    TypedName{Type: ConditionMappingType, Name: name},
		order: order,
	}
}

// Registration is one handler registration under construction. The fluent
// setters combine into the registration's condition Set.
type Registration struct {
	name    string
	conds   condition.Set
	handler any
}

// Handle registers a handler for the given path pattern and returns the
// Registration for further condition narrowing.
func (m *ConditionMapping) Handle(pattern string, h any) *Registration {
	reg := &Registration{
		name:    pattern,
		conds:   condition.Set{Path: condition.NewPath(pattern)},
		handler: h,
	}
	m.registrations = append(m.registrations, reg)
	return reg
}

// Methods narrows the registration to the given HTTP methods.
func (reg *Registration) Methods(methods ...string) *Registration {
	reg.conds = reg.conds.Combine(condition.Set{Methods: condition.NewMethods(methods...)})
	return reg
}

// Params narrows the registration with parameter expressions.
func (reg *Registration) Params(exprs ...string) *Registration {
	reg.conds = reg.conds.Combine(condition.Set{Params: condition.NewParams(exprs...)})
	return reg
}

// Headers narrows the registration with header expressions.
func (reg *Registration) Headers(exprs ...string) *Registration {
	reg.conds = reg.conds.Combine(condition.Set{Headers: condition.NewHeaders(exprs...)})
	return reg
}

// Consumes narrows the registration to the given request media types.
func (reg *Registration) Consumes(types ...string) *Registration {
	reg.conds = reg.conds.Combine(condition.Set{Consumes: condition.NewConsumes(types...)})
	return reg
}

// Produces narrows the registration to the given response media types.
func (reg *Registration) Produces(types ...string) *Registration {
	reg.conds = reg.conds.Combine(condition.Set{Produces: condition.NewProduces(types...)})
	return reg
}

// Named sets a display name for the registration.
func (reg *Registration) Named(name string) *Registration {
	reg.name = name
	return reg
}

// AddInterceptor registers interceptors scoped to this mapping. A *Mapped
// interceptor is only attached to chains whose request path it applies to.
func (m *ConditionMapping) AddInterceptor(ics ...interceptor.Interceptor) *ConditionMapping {
	m.interceptors = append(m.interceptors, ics...)
	return m
}

// Order implements Resolver.
func (m *ConditionMapping) Order() int { return m.order }

// Name returns the mapping's name.
func (m *ConditionMapping) Name() string { return m.tn.Name }

// TypedName implements NamedResolver.
func (m *ConditionMapping) TypedName() TypedName { return m.tn }

type candidate struct {
	reg     *Registration
	reduced condition.Set
}

// Resolve implements Resolver. It evaluates every registration's condition
// Set against the request, picks the most specific match and attaches the
// mapping's interceptors scoped to the request path.
func (m *ConditionMapping) Resolve(ctx context.Context, r *http.Request) (*chain.Chain, error) {
	logger := logr.FromContextOrDiscard(ctx)

	var candidates []candidate
	for _, reg := range m.registrations {
		if reduced, ok := reg.conds.Matching(r); ok {
			candidates = append(candidates, candidate{reg: reg, reduced: reduced})
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].reduced.Compare(candidates[j].reduced) < 0
	})
	best := candidates[0]
	if len(candidates) > 1 && best.reduced.Compare(candidates[1].reduced) == 0 {
		return nil, errutil.Error{
			Code: errutil.AmbiguousMapping,
			Msg: fmt.Sprintf("mapping %q: %q and %q are equally specific for %s %s",
				m.tn.Name, best.reg.name, candidates[1].reg.name, r.Method, r.URL.Path),
		}
	}
	logger.V(logutil.DEBUG).Info("handler resolved",
		"mapping", m.tn.String(), "registration", best.reg.name, "conditions", best.reg.conds.String())

	ch := chain.New(best.reg.handler)
	for _, ic := range m.interceptors {
		if mapped, ok := ic.(*interceptor.Mapped); ok && !mapped.Applies(r.URL.Path) {
			continue
		}
		ch.AddInterceptor(ic)
	}
	return ch, nil
}
