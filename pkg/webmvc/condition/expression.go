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
	"strings"

	"k8s.io/apimachinery/pkg/util/sets"
)

// Expression is a single name/value match requirement. It supports four
// spellings: "name" (must be present), "!name" (must be absent),
// "name=value" (must equal) and "name!=value" (must not equal).
type Expression struct {
	Name     string
	Value    string
	HasValue bool
	Negated  bool
}

// ParseExpression parses one expression string.
func ParseExpression(expr string) Expression {
	if idx := strings.Index(expr, "!="); idx >= 0 {
		return Expression{Name: expr[:idx], Value: expr[idx+2:], HasValue: true, Negated: true}
	}
	if idx := strings.Index(expr, "="); idx >= 0 {
		return Expression{Name: expr[:idx], Value: expr[idx+1:], HasValue: true}
	}
	if strings.HasPrefix(expr, "!") {
		return Expression{Name: expr[1:], Negated: true}
	}
	return Expression{Name: expr}
}

// Match evaluates the expression against the values reported by lookup.
// lookup returns the values registered under the expression name and whether
// the name is present at all.
func (e Expression) Match(lookup func(name string) ([]string, bool)) bool {
	values, present := lookup(e.Name)
	var matched bool
	if e.HasValue {
		matched = false
		for _, v := range values {
			if v == e.Value {
				matched = true
				break
			}
		}
	} else {
		matched = present
	}
	if e.Negated {
		return !matched
	}
	return matched
}

func (e Expression) String() string {
	if e.HasValue {
		if e.Negated {
			return e.Name + "!=" + e.Value
		}
		return e.Name + "=" + e.Value
	}
	if e.Negated {
		return "!" + e.Name
	}
	return e.Name
}

// parseExpressions parses the given expression strings, dropping duplicates
// while preserving first-seen order.
func parseExpressions(exprs []string) []Expression {
	seen := sets.New[string]()
	parsed := make([]Expression, 0, len(exprs))
	for _, raw := range exprs {
		e := ParseExpression(raw)
		if seen.Has(e.String()) {
			continue
		}
		seen.Insert(e.String())
		parsed = append(parsed, e)
	}
	return parsed
}

// unionExpressions merges two expression lists, dropping duplicates while
// preserving order. Used by Combine implementations; the union is what makes
// Combine associative and commutative on the expression sets.
func unionExpressions(a, b []Expression) []Expression {
	seen := sets.New[string]()
	merged := make([]Expression, 0, len(a)+len(b))
	for _, e := range a {
		if !seen.Has(e.String()) {
			seen.Insert(e.String())
			merged = append(merged, e)
		}
	}
	for _, e := range b {
		if !seen.Has(e.String()) {
			seen.Insert(e.String())
			merged = append(merged, e)
		}
	}
	return merged
}

// positive returns only the non-negated expressions. A reduced (matched)
// condition carries just the positively required expressions.
func positive(exprs []Expression) []Expression {
	kept := make([]Expression, 0, len(exprs))
	for _, e := range exprs {
		if !e.Negated {
			kept = append(kept, e)
		}
	}
	return kept
}

func joinExpressions(exprs []Expression, infix string) string {
	parts := make([]string, 0, len(exprs))
	for _, e := range exprs {
		parts = append(parts, e.String())
	}
	return "[" + strings.Join(parts, infix) + "]"
}
