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

// The webmvc command runs a small demonstration server wired through the
// full dispatch pipeline: condition-mapped handlers, interceptors, flash
// state across redirects and asynchronous handling.
package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"
	uberzap "go.uber.org/zap"

	"github.com/zetxqx/webmvc/pkg/webmvc/dispatch"
	"github.com/zetxqx/webmvc/pkg/webmvc/flash"
	"github.com/zetxqx/webmvc/pkg/webmvc/handler"
	"github.com/zetxqx/webmvc/pkg/webmvc/interceptor"
	"github.com/zetxqx/webmvc/pkg/webmvc/mapping"
	"github.com/zetxqx/webmvc/pkg/webmvc/metrics"
	"github.com/zetxqx/webmvc/pkg/webmvc/result"
	logutil "github.com/zetxqx/webmvc/pkg/webmvc/util/logging"
	"github.com/zetxqx/webmvc/pkg/webmvc/view"
)

func main() {
	var (
		listenAddr   string
		flashTTL     time.Duration
		asyncTimeout time.Duration
		throttleRPS  float64
	)
	pflag.StringVar(&listenAddr, "listen-addr", ":8080", "address the demo server listens on")
	pflag.DurationVar(&flashTTL, "flash-ttl", flash.DefaultTTL, "expiration window of saved flash state")
	pflag.DurationVar(&asyncTimeout, "async-timeout", 10*time.Second, "deadline for asynchronous handlers")
	pflag.Float64Var(&throttleRPS, "throttle-rps", 100, "request rate limit")
	pflag.Parse()

	zl, err := uberzap.NewProduction()
	if err != nil {
		panic(err)
	}
	logger := zapr.NewLogger(zl)

	registry := prometheus.NewRegistry()
	metrics.Register(registry)

	store := flash.NewMemoryStore()
	defer store.Close()
	flashMgr := flash.NewManager(store, flash.WithTTL(flashTTL))

	d := dispatch.New(
		dispatch.WithResolvers(buildMapping(throttleRPS)),
		dispatch.WithFlashManager(flashMgr),
		dispatch.WithAsyncTimeout(asyncTimeout),
		dispatch.WithViewResolvers(view.ResolverFunc(func(name, _ string) (view.View, error) {
			// every view renders as JSON in the demo
			return view.JSON{}, nil
		})),
		dispatch.WithExceptionResolvers(dispatch.ExceptionResolverFunc(
			func(_ context.Context, _ http.ResponseWriter, _ *http.Request, _ any, err error) *result.Result {
				return result.New("error").
					AddAttribute("error", err.Error()).
					SetStatus(http.StatusInternalServerError)
			})),
	)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.Handle("/", withLogger(logger, d))

	logger.Info("demo server starting", "addr", listenAddr)
	if err := http.ListenAndServe(listenAddr, mux); err != nil {
		logutil.Fatal(logger, err, "demo server failed")
	}
}

func withLogger(logger logr.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(logr.NewContext(r.Context(), logger)))
	})
}

func buildMapping(throttleRPS float64) *mapping.ConditionMapping {
	m := mapping.NewConditionMapping("demo", 0)
	m.AddInterceptor(interceptor.NewThrottle(throttleRPS, int(throttleRPS)))

	m.Handle("/greeting", handler.Func(greeting)).Methods(http.MethodGet)
	m.Handle("/accounts", handler.Func(createAccount)).Methods(http.MethodPost)
	m.Handle("/accounts/{id}", handler.Func(showAccount)).Methods(http.MethodGet)
	m.Handle("/slow", handler.Func(slow)).Methods(http.MethodGet)
	return m
}

func greeting(_ context.Context, _ http.ResponseWriter, r *http.Request) (*result.Result, error) {
	name := r.URL.Query().Get("name")
	if name == "" {
		name = "world"
	}
	return result.New("greeting").AddAttribute("message", "hello "+name), nil
}

// createAccount demonstrates the Post/Redirect/Get pattern: the confirmation
// message travels to the next request as flash state, not on the URL.
func createAccount(_ context.Context, _ http.ResponseWriter, r *http.Request) (*result.Result, error) {
	id := r.URL.Query().Get("id")
	if id == "" {
		return nil, fmt.Errorf("missing account id")
	}
	return result.Redirect("/accounts/" + id).
		SetFlash(flash.New().Put("notice", "account "+id+" created")), nil
}

func showAccount(ctx context.Context, _ http.ResponseWriter, r *http.Request) (*result.Result, error) {
	res := result.New("account")
	if rc, ok := dispatch.FromContext(ctx); ok {
		for k, v := range rc.InputModel() {
			res.AddAttribute(k, v)
		}
	}
	return res, nil
}

// slow demonstrates asynchronous handling: the request worker is released
// while the work runs, and the pipeline resumes when it completes.
func slow(ctx context.Context, _ http.ResponseWriter, _ *http.Request) (*result.Result, error) {
	rc, ok := dispatch.FromContext(ctx)
	if !ok {
		return nil, fmt.Errorf("no request context bound")
	}
	err := rc.Exchange().Start(ctx, func(context.Context) (*result.Result, error) {
		time.Sleep(2 * time.Second)
		return result.New("slow").AddAttribute("status", "done"), nil
	})
	return nil, err
}
