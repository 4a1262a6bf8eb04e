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

package interceptor

import (
	"context"
	"net/http"

	"github.com/go-logr/logr"
	"golang.org/x/time/rate"

	logutil "github.com/zetxqx/webmvc/pkg/webmvc/util/logging"
)

var _ Interceptor = (*Throttle)(nil)

// Throttle rejects requests above a rate limit during pre-phase, writing a
// 429 response and aborting the chain.
type Throttle struct {
	Base
	limiter *rate.Limiter
}

// NewThrottle creates a Throttle allowing rps requests per second with the
// given burst.
func NewThrottle(rps float64, burst int) *Throttle {
	return &Throttle{limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

// PreHandle implements Interceptor.
func (t *Throttle) PreHandle(ctx context.Context, w http.ResponseWriter, r *http.Request, _ any) (bool, error) {
	if t.limiter.Allow() {
		return true, nil
	}
	logr.FromContextOrDiscard(ctx).V(logutil.DEBUG).Info("request throttled", "path", r.URL.Path)
	http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
	return false, nil
}
