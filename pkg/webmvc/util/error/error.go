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

package error

import (
	"fmt"
)

// Error is an error struct for errors returned by the dispatch pipeline.
type Error struct {
	Code string
	Msg  string
}

const (
	Unknown          = "Unknown"
	Internal         = "Internal"
	NoHandlerFound   = "NoHandlerFound"
	AmbiguousMapping = "AmbiguousMapping"
	AdapterNotFound  = "AdapterNotFound"
	HandlerFailure   = "HandlerFailure"
	AsyncTimeout     = "AsyncTimeout"
	BadConfiguration = "BadConfiguration"
)

// Error returns a string version of the error.
func (e Error) Error() string {
	return fmt.Sprintf("webmvc: %s - %s", e.Code, e.Msg)
}

// CanonicalCode returns the error's ErrorCode.
func CanonicalCode(err error) string {
	e, ok := err.(Error)
	if ok {
		return e.Code
	}
	return Unknown
}

// IsConfiguration reports whether the error is a fatal configuration error,
// i.e. one that must be surfaced immediately instead of being offered to
// exception resolvers.
func IsConfiguration(err error) bool {
	switch CanonicalCode(err) {
	case AmbiguousMapping, AdapterNotFound, BadConfiguration:
		return true
	}
	return false
}
