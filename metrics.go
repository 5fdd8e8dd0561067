// Copyright 2026 Macrometa Corporation
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package c8

import (
	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// metrics is nil when no registerer was configured; every method is safe to
// call on a nil receiver.
type metrics struct {
	registerer prometheus.Registerer
	inflight  prometheus.Gauge
	queued    prometheus.Gauge
	requests  *prometheus.CounterVec
	retries   prometheus.Counter
	redirects prometheus.Counter
	failovers prometheus.Counter
}

func newMetrics(registerer prometheus.Registerer) (*metrics, error) {
	if registerer == nil {
		return nil, nil //nolint:nilnil
	}
	m := &metrics{
		registerer: registerer,
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "c8", Subsystem: "connection", Name: "inflight_tasks",
			Help: "Requests currently dispatched to a host.",
		}),
		queued: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "c8", Subsystem: "connection", Name: "queued_tasks",
			Help: "Requests waiting for a free slot.",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "c8", Subsystem: "connection", Name: "requests_total",
			Help: "Completed exchanges by outcome.",
		}, []string{"outcome"}),
		retries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "c8", Subsystem: "connection", Name: "retries_total",
			Help: "Requests re-queued after a refused connection.",
		}),
		redirects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "c8", Subsystem: "connection", Name: "redirects_total",
			Help: "Leader redirects followed.",
		}),
		failovers: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "c8", Subsystem: "connection", Name: "failovers_total",
			Help: "Times the active host was moved off a failing host.",
		}),
	}
	for i, collector := range m.collectors() {
		if err := registerer.Register(collector); err != nil {
			for _, registered := range m.collectors()[:i] {
				registerer.Unregister(registered)
			}
			return nil, errors.Wrap(err, "c8: registering metrics")
		}
	}
	return m, nil
}

func (m *metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.inflight, m.queued, m.requests, m.retries, m.redirects, m.failovers,
	}
}

// unregister removes the collectors so the registerer can be reused by
// another connection.
func (m *metrics) unregister() {
	if m == nil {
		return
	}
	for _, collector := range m.collectors() {
		m.registerer.Unregister(collector)
	}
}

func (m *metrics) setQueue(queued, inflight int) {
	if m == nil {
		return
	}
	m.queued.Set(float64(queued))
	m.inflight.Set(float64(inflight))
}

func (m *metrics) observe(o outcome) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(string(o)).Inc()
}

func (m *metrics) retry() {
	if m != nil {
		m.retries.Inc()
	}
}

func (m *metrics) redirect() {
	if m != nil {
		m.redirects.Inc()
	}
}

func (m *metrics) failover() {
	if m != nil {
		m.failovers.Inc()
	}
}
