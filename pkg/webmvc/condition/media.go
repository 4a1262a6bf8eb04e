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

// MediaExpression is a single media-type requirement such as
// "application/json", "text/*" or "!multipart/form-data".
type MediaExpression struct {
	Type    string
	Negated bool
}

func parseMediaExpressions(types []string) []MediaExpression {
	seen := sets.New[string]()
	parsed := make([]MediaExpression, 0, len(types))
	for _, raw := range types {
		e := MediaExpression{Type: strings.ToLower(raw)}
		if strings.HasPrefix(e.Type, "!") {
			e.Negated = true
			e.Type = e.Type[1:]
		}
		if seen.Has(e.String()) {
			continue
		}
		seen.Insert(e.String())
		parsed = append(parsed, e)
	}
	return parsed
}

func (e MediaExpression) String() string {
	if e.Negated {
		return "!" + e.Type
	}
	return e.Type
}

// compatible reports whether the concrete media type mt falls within the
// (possibly wildcarded) range pattern.
func compatible(pattern, mt string) bool {
	if pattern == "*/*" || pattern == mt {
		return true
	}
	if sub := strings.TrimSuffix(pattern, "/*"); sub != pattern {
		return strings.HasPrefix(mt, sub+"/")
	}
	return false
}

// stripParams removes media type parameters ("; charset=...") and surrounding
// whitespace, lower-casing the remainder.
func stripParams(mt string) string {
	if idx := strings.IndexByte(mt, ';'); idx >= 0 {
		mt = mt[:idx]
	}
	return strings.ToLower(strings.TrimSpace(mt))
}

// Consumes matches the request's Content-Type against a set of media-type
// expressions. All expressions must hold. A request without a Content-Type
// satisfies only negated expressions.
type Consumes struct {
	expressions []MediaExpression
}

// NewConsumes builds a Consumes condition.
func NewConsumes(types ...string) Consumes {
	return Consumes{expressions: parseMediaExpressions(types)}
}

// Combine returns the union of the two conditions' expressions.
func (c Consumes) Combine(other Consumes) Consumes {
	merged := append(append([]MediaExpression{}, c.expressions...), other.expressions...)
	kept := make([]string, 0, len(merged))
	for _, e := range merged {
		kept = append(kept, e.String())
	}
	return NewConsumes(kept...)
}

// Matching reduces the condition against the request's Content-Type.
func (c Consumes) Matching(r *http.Request) (Consumes, bool) {
	contentType := stripParams(r.Header.Get("Content-Type"))
	for _, e := range c.expressions {
		matched := contentType != "" && compatible(e.Type, contentType)
		if e.Negated {
			matched = !matched
		}
		if !matched {
			return Consumes{}, false
		}
	}
	kept := make([]MediaExpression, 0, len(c.expressions))
	for _, e := range c.expressions {
		if !e.Negated {
			kept = append(kept, e)
		}
	}
	return Consumes{expressions: kept}, true
}

// Compare orders two conditions by specificity.
func (c Consumes) Compare(other Consumes) int {
	return len(other.expressions) - len(c.expressions)
}

// Len returns the number of discrete expressions.
func (c Consumes) Len() int { return len(c.expressions) }

// IsEmpty reports whether the condition matches every request.
func (c Consumes) IsEmpty() bool { return len(c.expressions) == 0 }

func (c Consumes) String() string { return mediaString(c.expressions) }

// Produces matches the request's Accept header against a set of media-type
// expressions. An expression holds when any accepted media range is
// compatible with it; a missing Accept header accepts everything.
type Produces struct {
	expressions []MediaExpression
}

// NewProduces builds a Produces condition.
func NewProduces(types ...string) Produces {
	return Produces{expressions: parseMediaExpressions(types)}
}

// Combine returns the union of the two conditions' expressions.
func (c Produces) Combine(other Produces) Produces {
	merged := append(append([]MediaExpression{}, c.expressions...), other.expressions...)
	kept := make([]string, 0, len(merged))
	for _, e := range merged {
		kept = append(kept, e.String())
	}
	return NewProduces(kept...)
}

// Matching reduces the condition against the request's Accept header.
func (c Produces) Matching(r *http.Request) (Produces, bool) {
	accepted := acceptedRanges(r)
	for _, e := range c.expressions {
		matched := false
		for _, rng := range accepted {
			if compatible(rng, e.Type) || compatible(e.Type, rng) {
				matched = true
				break
			}
		}
		if e.Negated {
			matched = !matched
		}
		if !matched {
			return Produces{}, false
		}
	}
	kept := make([]MediaExpression, 0, len(c.expressions))
	for _, e := range c.expressions {
		if !e.Negated {
			kept = append(kept, e)
		}
	}
	return Produces{expressions: kept}, true
}

// Compare orders two conditions by specificity.
func (c Produces) Compare(other Produces) int {
	return len(other.expressions) - len(c.expressions)
}

// Len returns the number of discrete expressions.
func (c Produces) Len() int { return len(c.expressions) }

// IsEmpty reports whether the condition matches every request.
func (c Produces) IsEmpty() bool { return len(c.expressions) == 0 }

func (c Produces) String() string { return mediaString(c.expressions) }

func acceptedRanges(r *http.Request) []string {
	raw := r.Header.Get("Accept")
	if strings.TrimSpace(raw) == "" {
		return []string{"*/*"}
	}
	parts := strings.Split(raw, ",")
	ranges := make([]string, 0, len(parts))
	for _, p := range parts {
		if mt := stripParams(p); mt != "" {
			ranges = append(ranges, mt)
		}
	}
	return ranges
}

func mediaString(exprs []MediaExpression) string {
	parts := make([]string, 0, len(exprs))
	for _, e := range exprs {
		parts = append(parts, e.String())
	}
	return "[" + strings.Join(parts, " && ") + "]"
}
