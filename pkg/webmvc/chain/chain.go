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

// Package chain holds the execution chain resolved for one request: the
// selected handler plus its ordered interceptors, and the per-dispatch
// state machine that enforces the pre/post/cleanup ordering guarantees.
package chain

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-logr/logr"
	"go.uber.org/multierr"

	"github.com/zetxqx/webmvc/pkg/webmvc/interceptor"
	"github.com/zetxqx/webmvc/pkg/webmvc/result"
	logutil "github.com/zetxqx/webmvc/pkg/webmvc/util/logging"
)

// State is the per-dispatch-pass state of a Chain.
type State int

const (
	StateResolved State = iota
	StatePreRunning
	StateHandlerRunning
	StateAsyncStarted
	StatePostRunning
	StateRendering
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateResolved:
		return "resolved"
	case StatePreRunning:
		return "pre-running"
	case StateHandlerRunning:
		return "handler-running"
	case StateAsyncStarted:
		return "async-started"
	case StatePostRunning:
		return "post-running"
	case StateRendering:
		return "rendering"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Chain is a handler and its interceptors, resolved once per request. The
// same instance is reused by the resumption pass of an async request; the
// two passes never run concurrently.
type Chain struct {
	handler      any
	interceptors []interceptor.Interceptor

	// index of the last interceptor whose pre-phase completed; cleanup
	// walks backwards from here.
	preIndex int
	state    State
}

// New creates a Chain for the handler with the given interceptors in
// registration order.
func New(handler any, interceptors ...interceptor.Interceptor) *Chain {
	return &Chain{handler: handler, interceptors: interceptors, preIndex: -1, state: StateResolved}
}

// Handler returns the resolved handler.
func (c *Chain) Handler() any { return c.handler }

// Interceptors returns the interceptor list in registration order.
func (c *Chain) Interceptors() []interceptor.Interceptor { return c.interceptors }

// AddInterceptor appends an interceptor. Only valid before the pre-phase.
func (c *Chain) AddInterceptor(ics ...interceptor.Interceptor) {
	c.interceptors = append(c.interceptors, ics...)
}

// State returns the current dispatch state.
func (c *Chain) State() State { return c.state }

// ApplyPreHandle runs the pre-phase in registration order. It returns false
// when an interceptor aborted the chain; the caller must still trigger
// AfterCompletion. An interceptor that returns false counts as successfully
// completed (it may have written the response); one that returns an error
// does not.
func (c *Chain) ApplyPreHandle(ctx context.Context, w http.ResponseWriter, r *http.Request) (bool, error) {
	if c.state != StateResolved {
		return false, fmt.Errorf("pre-phase entered in state %s", c.state)
	}
	c.state = StatePreRunning
	for i, ic := range c.interceptors {
		proceed, err := ic.PreHandle(ctx, w, r, c.handler)
		if err != nil {
			c.state = StateFailed
			return false, err
		}
		c.preIndex = i
		if !proceed {
			return false, nil
		}
	}
	c.state = StateHandlerRunning
	return true, nil
}

// ApplyPostHandle runs the post-phase in reverse registration order. It
// runs only on a pass that executed the handler to completion.
func (c *Chain) ApplyPostHandle(ctx context.Context, w http.ResponseWriter, r *http.Request, res *result.Result) error {
	c.state = StatePostRunning
	for i := len(c.interceptors) - 1; i >= 0; i-- {
		if err := c.interceptors[i].PostHandle(ctx, w, r, c.handler, res); err != nil {
			c.state = StateFailed
			return err
		}
	}
	return nil
}

// ApplyAfterAsyncStarted marks the chain suspended and notifies the
// interceptors already past pre-phase, in reverse order. Panics are
// contained per interceptor.
func (c *Chain) ApplyAfterAsyncStarted(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	logger := logr.FromContextOrDiscard(ctx)
	c.state = StateAsyncStarted
	for i := c.preIndex; i >= 0; i-- {
		func(ic interceptor.Interceptor) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error(fmt.Errorf("panic: %v", rec), "interceptor afterAsyncStarted panicked")
				}
			}()
			ic.AfterAsyncStarted(ctx, w, r, c.handler)
		}(c.interceptors[i])
	}
}

// ResumeAfterAsync rearms the chain for the resumption pass of an async
// request. Pre-phase state is kept so cleanup still covers every
// interceptor that ran.
func (c *Chain) ResumeAfterAsync() error {
	if c.state != StateAsyncStarted {
		return fmt.Errorf("resumed in state %s", c.state)
	}
	c.state = StateHandlerRunning
	return nil
}

// Rendering transitions the chain into the render step.
func (c *Chain) Rendering() { c.state = StateRendering }

// Complete marks the pass finished.
func (c *Chain) Complete() { c.state = StateCompleted }

// Fail marks the pass failed. Valid from any non-completed state.
func (c *Chain) Fail() { c.state = StateFailed }

// TriggerAfterCompletion runs the cleanup phase: every interceptor whose
// pre-phase completed, in reverse order, receiving the captured failure if
// any. Errors and panics are contained per interceptor and logged once so
// one misbehaving interceptor cannot prevent the others from running.
func (c *Chain) TriggerAfterCompletion(ctx context.Context, w http.ResponseWriter, r *http.Request, dispatchErr error) {
	logger := logr.FromContextOrDiscard(ctx)
	var errs error
	for i := c.preIndex; i >= 0; i-- {
		func(ic interceptor.Interceptor) {
			defer func() {
				if rec := recover(); rec != nil {
					errs = multierr.Append(errs, fmt.Errorf("interceptor %d panicked: %v", i, rec))
				}
			}()
			if err := ic.AfterCompletion(ctx, w, r, c.handler, dispatchErr); err != nil {
				errs = multierr.Append(errs, fmt.Errorf("interceptor %d: %w", i, err))
			}
		}(c.interceptors[i])
	}
	// cleanup never runs twice for the same pass
	c.preIndex = -1
	if errs != nil {
		logger.Error(errs, "afterCompletion callbacks failed")
	}
	logger.V(logutil.TRACE).Info("cleanup phase finished", "state", c.state.String())
}
