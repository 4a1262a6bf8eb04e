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

// Package flash carries one-shot attributes across a redirect to the next
// request, without query-string exposure. A Flash is saved before the
// redirect response is committed and delivered to exactly one subsequent
// request, selected by target path and target parameter specificity.
package flash

import (
	"encoding/json"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"
)

// Flash is an attribute bag intended for the request that follows a
// redirect. Target path and target parameters narrow which request may
// receive it; expiration is an absolute epoch timestamp in milliseconds,
// started when the Flash is saved.
type Flash struct {
	attributes   map[string]any
	targetPath   string
	targetParams url.Values
	expiresAt    int64
}

// New creates an empty Flash.
func New() *Flash {
	return &Flash{attributes: map[string]any{}, targetParams: url.Values{}}
}

// Put stores an attribute.
func (f *Flash) Put(name string, value any) *Flash {
	f.attributes[name] = value
	return f
}

// Get returns the named attribute.
func (f *Flash) Get(name string) (any, bool) {
	v, ok := f.attributes[name]
	return v, ok
}

// Attributes returns the attribute map.
func (f *Flash) Attributes() map[string]any { return f.attributes }

// IsEmpty reports whether the Flash carries no attributes.
func (f *Flash) IsEmpty() bool { return len(f.attributes) == 0 }

// SetTargetPath provides a URL path to help identify the target request.
// The path may be absolute or relative to the request it is saved from.
func (f *Flash) SetTargetPath(p string) *Flash {
	f.targetPath = p
	return f
}

// TargetPath returns the target URL path, or "" if none was specified.
func (f *Flash) TargetPath() string { return f.targetPath }

// AddTargetParam provides a request parameter identifying the target
// request. Empty names and values are skipped.
func (f *Flash) AddTargetParam(name, value string) *Flash {
	if name != "" && value != "" {
		f.targetParams.Add(name, value)
	}
	return f
}

// TargetParams returns the parameters identifying the target request.
func (f *Flash) TargetParams() url.Values { return f.targetParams }

// StartExpiration starts the expiration period, counted from now.
func (f *Flash) StartExpiration(ttl time.Duration, now time.Time) {
	f.expiresAt = now.Add(ttl).UnixMilli()
}

// ExpiresAt returns the absolute expiration epoch in milliseconds, or 0 if
// the expiration period has not started.
func (f *Flash) ExpiresAt() int64 { return f.expiresAt }

// Expired reports whether the expiration period has elapsed.
func (f *Flash) Expired(now time.Time) bool {
	return f.expiresAt != 0 && now.UnixMilli() > f.expiresAt
}

// MatchesRequest reports whether the incoming request may receive this
// Flash: the target path (when set) must equal the request path and every
// target parameter must be present on the request.
func (f *Flash) MatchesRequest(r *http.Request) bool {
	if f.targetPath != "" && f.targetPath != trimSlash(r.URL.Path) {
		return false
	}
	query := r.URL.Query()
	for name, wanted := range f.targetParams {
		actual := query[name]
		for _, w := range wanted {
			found := false
			for _, a := range actual {
				if a == w {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
	}
	return true
}

// Compare orders two Flash instances by target specificity: one with a
// target path outranks one without; among equal path specificity, more
// target parameters outrank fewer. Negative means f sorts before other.
// Compare both instances only after checking MatchesRequest.
func (f *Flash) Compare(other *Flash) int {
	fPath, oPath := 0, 0
	if f.targetPath != "" {
		fPath = 1
	}
	if other.targetPath != "" {
		oPath = 1
	}
	if fPath != oPath {
		return oPath - fPath
	}
	return len(other.targetParams) - len(f.targetParams)
}

// ResolveTargetPath normalizes the target path against the path of the
// request the Flash is saved from, resolving relative targets.
func (f *Flash) ResolveTargetPath(requestPath string) {
	if f.targetPath == "" || strings.HasPrefix(f.targetPath, "/") {
		f.targetPath = trimSlash(f.targetPath)
		return
	}
	base := path.Dir(requestPath)
	f.targetPath = trimSlash(path.Join(base, f.targetPath))
}

func trimSlash(p string) string {
	if p == "/" {
		return p
	}
	return strings.TrimSuffix(p, "/")
}

// wire is the persisted layout: string-keyed attributes, target path,
// target param multi-map and the absolute expiration epoch in milliseconds.
type wire struct {
	Attributes   map[string]any      `json:"attributes"`
	TargetPath   string              `json:"targetPath,omitempty"`
	TargetParams map[string][]string `json:"targetParams,omitempty"`
	ExpiresAt    int64               `json:"expiresAt"`
}

// MarshalJSON implements json.Marshaler.
func (f *Flash) MarshalJSON() ([]byte, error) {
	return json.Marshal(wire{
		Attributes:   f.attributes,
		TargetPath:   f.targetPath,
		TargetParams: f.targetParams,
		ExpiresAt:    f.expiresAt,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (f *Flash) UnmarshalJSON(data []byte) error {
	var w wire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	f.attributes = w.Attributes
	if f.attributes == nil {
		f.attributes = map[string]any{}
	}
	f.targetPath = w.TargetPath
	f.targetParams = url.Values(w.TargetParams)
	if f.targetParams == nil {
		f.targetParams = url.Values{}
	}
	f.expiresAt = w.ExpiresAt
	return nil
}
