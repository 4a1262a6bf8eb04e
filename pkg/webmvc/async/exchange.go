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

// Package async manages the single suspension point of the dispatch
// pipeline: a handler hands its work to an independent goroutine and the
// initiating worker returns; completion, error, timeout or cancellation of
// that work drives exactly one resumption pass.
package async

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"k8s.io/utils/clock"

	"github.com/zetxqx/webmvc/pkg/webmvc/result"
	errutil "github.com/zetxqx/webmvc/pkg/webmvc/util/error"
)

// Outcome is what an async task produced.
type Outcome struct {
	Result *result.Result
	Err    error
}

// Exchange is the per-request async marker. Once Start has been called the
// orchestrator skips post-phase and cleanup on the initiating worker and
// runs them from the registered resume callback instead.
type Exchange struct {
	id      string
	clock   clock.Clock
	timeout time.Duration

	mu        sync.Mutex
	started   bool
	resumed   bool
	discarded bool
	resume    func(Outcome)
	done      chan struct{}

	released    chan struct{}
	releaseOnce sync.Once
	finished    chan struct{}
}

// NewExchange creates an Exchange. A zero timeout disables the deadline.
func NewExchange(clk clock.Clock, timeout time.Duration) *Exchange {
	return &Exchange{
		id:       uuid.NewString(),
		clock:    clk,
		timeout:  timeout,
		done:     make(chan struct{}),
		released: make(chan struct{}),
		finished: make(chan struct{}),
	}
}

// ID returns the exchange id, used for log correlation across passes.
func (e *Exchange) ID() string { return e.id }

// OnResume registers the single resumption callback. The orchestrator
// registers it before the handler is invoked, so a task cannot complete
// ahead of registration.
func (e *Exchange) OnResume(fn func(Outcome)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.resume = fn
}

// Started reports whether asynchronous handling has begun.
func (e *Exchange) Started() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.started
}

// Start marks the request asynchronous and runs the task on its own
// goroutine. The pipeline has exactly one suspension point, so a second
// Start on the same exchange is an error. Task completion, the deadline and
// context cancellation all funnel into one resumption.
func (e *Exchange) Start(ctx context.Context, task func(context.Context) (*result.Result, error)) error {
	e.mu.Lock()
	if e.started {
		e.mu.Unlock()
		return fmt.Errorf("async exchange %s already started", e.id)
	}
	e.started = true
	e.mu.Unlock()

	go func() {
		res, err := task(ctx)
		e.deliver(Outcome{Result: res, Err: err})
	}()
	go e.watch(ctx)
	return nil
}

// Cancel drives the resumption with the given error if the task has not
// completed yet.
func (e *Exchange) Cancel(err error) {
	if err == nil {
		err = errutil.Error{Code: errutil.HandlerFailure, Msg: "async task cancelled"}
	}
	e.deliver(Outcome{Err: err})
}

func (e *Exchange) watch(ctx context.Context) {
	var deadline <-chan time.Time
	var timer clock.Timer
	if e.timeout > 0 {
		timer = e.clock.NewTimer(e.timeout)
		defer timer.Stop()
		deadline = timer.C()
	}
	select {
	case <-e.done:
	case <-deadline:
		e.deliver(Outcome{Err: errutil.Error{
			Code: errutil.AsyncTimeout,
			Msg:  fmt.Sprintf("async task exceeded %s", e.timeout),
		}})
	case <-ctx.Done():
		e.deliver(Outcome{Err: errutil.Error{
			Code: errutil.HandlerFailure,
			Msg:  fmt.Sprintf("async task cancelled: %v", ctx.Err()),
		}})
	}
}

// Release lets the pending resumption proceed. The orchestrator calls it
// when the initiating pass is about to return, so the two passes of one
// request never run concurrently even if the task finishes immediately.
func (e *Exchange) Release() {
	e.releaseOnce.Do(func() { close(e.released) })
}

// Discard drops the pending resumption: any outcome is thrown away and the
// resume callback never runs. The orchestrator calls it when the handler
// started the exchange but the initiating pass still failed synchronously,
// so the task goroutine exits instead of waiting on a release that never
// comes.
func (e *Exchange) Discard() {
	e.mu.Lock()
	if e.discarded {
		e.mu.Unlock()
		return
	}
	e.discarded = true
	inFlight := e.resumed
	e.resumed = true
	if !inFlight {
		close(e.done)
	}
	e.mu.Unlock()

	e.Release()
	// with no delivery in flight nothing else will close finished
	if !inFlight {
		close(e.finished)
	}
}

// deliver invokes the resume callback exactly once, on the goroutine that
// produced the outcome, after the initiating pass has released the
// exchange. Late outcomes are dropped.
func (e *Exchange) deliver(o Outcome) {
	e.mu.Lock()
	if e.resumed {
		e.mu.Unlock()
		return
	}
	e.resumed = true
	fn := e.resume
	close(e.done)
	e.mu.Unlock()

	<-e.released

	e.mu.Lock()
	discarded := e.discarded
	e.mu.Unlock()
	if !discarded && fn != nil {
		fn(o)
	}
	close(e.finished)
}

// Completed returns a channel closed once the resumption pass has run. The
// transport layer can hold the connection open on it for async requests.
func (e *Exchange) Completed() <-chan struct{} { return e.finished }
