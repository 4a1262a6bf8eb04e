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
)

// PathPattern matches the request path against a segment pattern. Supported
// forms per segment: a literal, "*" (any one segment) and "{name}" (any one
// segment, named); a trailing "/**" matches any remaining suffix.
type PathPattern struct {
	pattern string
}

// NewPath builds a PathPattern. An empty pattern matches every path.
func NewPath(pattern string) PathPattern {
	return PathPattern{pattern: pattern}
}

// Pattern returns the raw pattern string.
func (p PathPattern) Pattern() string { return p.pattern }

// Combine joins a type-level pattern with a method-level pattern, e.g.
// "/accounts" combined with "/{id}" yields "/accounts/{id}".
func (p PathPattern) Combine(other PathPattern) PathPattern {
	switch {
	case p.pattern == "":
		return other
	case other.pattern == "":
		return p
	}
	return PathPattern{pattern: strings.TrimSuffix(p.pattern, "/") + "/" + strings.TrimPrefix(other.pattern, "/")}
}

// Matches reports whether the given request path satisfies the pattern.
func (p PathPattern) Matches(path string) bool {
	if p.pattern == "" {
		return true
	}
	patSegs := splitPath(p.pattern)
	pathSegs := splitPath(path)
	for i, seg := range patSegs {
		if seg == "**" {
			// valid only as the final segment
			return i == len(patSegs)-1
		}
		if i >= len(pathSegs) {
			return false
		}
		if !segmentMatches(seg, pathSegs[i]) {
			return false
		}
	}
	return len(patSegs) == len(pathSegs)
}

// Matching reduces the condition against the request path.
func (p PathPattern) Matching(r *http.Request) (PathPattern, bool) {
	if p.Matches(r.URL.Path) {
		return p, true
	}
	return PathPattern{}, false
}

// Compare orders two patterns by specificity: fewer wildcards first, then
// the longer pattern. Negative means p sorts before other.
func (p PathPattern) Compare(other PathPattern) int {
	if d := p.wildcards() - other.wildcards(); d != 0 {
		return d
	}
	return len(other.pattern) - len(p.pattern)
}

// Variables extracts the named segment variables from a matching path.
func (p PathPattern) Variables(path string) map[string]string {
	if !p.Matches(path) {
		return nil
	}
	patSegs := splitPath(p.pattern)
	pathSegs := splitPath(path)
	vars := map[string]string{}
	for i, seg := range patSegs {
		if strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}") && i < len(pathSegs) {
			vars[seg[1:len(seg)-1]] = pathSegs[i]
		}
	}
	return vars
}

// IsEmpty reports whether the pattern matches every path.
func (p PathPattern) IsEmpty() bool { return p.pattern == "" }

func (p PathPattern) String() string { return p.pattern }

func (p PathPattern) wildcards() int {
	count := 0
	for _, seg := range splitPath(p.pattern) {
		switch {
		case seg == "**":
			count += 2
		case seg == "*", strings.HasPrefix(seg, "{"):
			count++
		}
	}
	return count
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func segmentMatches(pattern, segment string) bool {
	if pattern == "*" || (strings.HasPrefix(pattern, "{") && strings.HasSuffix(pattern, "}")) {
		return segment != ""
	}
	return pattern == segment
}
