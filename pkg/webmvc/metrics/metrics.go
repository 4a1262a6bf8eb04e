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

package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// DispatchSubsystem is the metrics subsystem of the dispatch pipeline.
	DispatchSubsystem = "webmvc"

	// Dispatch outcome label values.
	OutcomeCompleted    = "completed"
	OutcomeNoHandler    = "no_handler"
	OutcomeNotModified  = "not_modified"
	OutcomeAborted      = "aborted"
	OutcomeAsyncStarted = "async_started"
	OutcomeError        = "error"

	// Dispatch pass kind label values.
	KindInitial = "initial"
	KindResumed = "resumed"
)

var (
	dispatchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Subsystem: DispatchSubsystem,
			Name:      "dispatch_total",
			Help:      "Counter of dispatch passes, broken out by outcome.",
		},
		[]string{"outcome"},
	)

	dispatchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Subsystem: DispatchSubsystem,
			Name:      "dispatch_duration_seconds",
			Help:      "Dispatch pass duration distribution, broken out by pass kind.",
			Buckets: []float64{
				0.0001, 0.0005, 0.001, 0.002, 0.005, 0.01, 0.02, 0.05, 0.1,
				0.2, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0, 60.0,
			},
		},
		[]string{"kind"},
	)
)

var registerMetrics sync.Once

// Register registers the dispatch metrics with the given registerer.
func Register(r prometheus.Registerer) {
	registerMetrics.Do(func() {
		r.MustRegister(dispatchTotal)
		r.MustRegister(dispatchDuration)
	})
}

// RecordDispatch counts one finished dispatch pass.
func RecordDispatch(outcome string) {
	dispatchTotal.WithLabelValues(outcome).Inc()
}

// ObserveDispatchDuration records the duration of one dispatch pass.
func ObserveDispatchDuration(kind string, elapsed time.Duration) {
	dispatchDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
}
