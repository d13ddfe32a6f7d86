// SPDX-License-Identifier: AGPL-3.0-or-later
// llrpclient - LLRP client for the Zebra FX9600 reader family
// Copyright (C) 2023-2026 Jacob McSwain
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors reporting on session state, tag
// throughput, and reader errors.
type Metrics struct {
	SessionState        *prometheus.GaugeVec
	TagsObservedTotal   prometheus.Counter
	ReconnectsTotal     prometheus.Counter
	ReaderErrorsTotal   *prometheus.CounterVec
	ROSpecStartDuration prometheus.Histogram
}

// NewMetrics constructs and registers the default Prometheus collectors.
func NewMetrics() *Metrics {
	metrics := &Metrics{
		SessionState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "llrp_session_state",
			Help: "1 for the session's current state, 0 for every other known state",
		}, []string{"state"}),
		TagsObservedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "llrp_tags_observed_total",
			Help: "The total number of tag observations received from the reader",
		}),
		ReconnectsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "llrp_reconnects_total",
			Help: "The total number of times the session has reconnected to the reader",
		}),
		ReaderErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "llrp_reader_errors_total",
			Help: "The total number of reader errors, labeled by error kind",
		}, []string{"kind"}),
		ROSpecStartDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "llrp_rospec_start_duration_seconds",
			Help:    "Duration from connect to the ROSpec reaching the running state",
			Buckets: prometheus.DefBuckets,
		}),
	}
	metrics.register()
	return metrics
}

// register registers every collector against the default registry,
// tolerating re-registration of the same collector so tests that
// construct more than one Metrics in a process don't panic.
func (m *Metrics) register() {
	for _, c := range []prometheus.Collector{
		m.SessionState,
		m.TagsObservedTotal,
		m.ReconnectsTotal,
		m.ReaderErrorsTotal,
		m.ROSpecStartDuration,
	} {
		if err := prometheus.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				panic(err)
			}
		}
	}
}

// knownStates lists every session state the gauge reports on, so that
// entering one state explicitly zeroes the rest.
var knownStates = []string{
	"disconnected",
	"connecting",
	"awaiting_capabilities",
	"awaiting_delete_ack",
	"awaiting_add_ack",
	"awaiting_enable_ack",
	"awaiting_start_ack",
	"running",
	"shutting_down",
}

// SetState marks state as the session's current state and zeroes every
// other known state's gauge value.
func (m *Metrics) SetState(state string) {
	for _, s := range knownStates {
		if s == state {
			m.SessionState.WithLabelValues(s).Set(1)
		} else {
			m.SessionState.WithLabelValues(s).Set(0)
		}
	}
}

// RecordTag increments the tag observation counter.
func (m *Metrics) RecordTag() {
	m.TagsObservedTotal.Inc()
}

// RecordReconnect increments the reconnect counter.
func (m *Metrics) RecordReconnect() {
	m.ReconnectsTotal.Inc()
}

// RecordError increments the reader error counter for the given error kind.
func (m *Metrics) RecordError(kind string) {
	m.ReaderErrorsTotal.WithLabelValues(kind).Inc()
}

// RecordROSpecStart observes the duration, in seconds, from connect to the
// ROSpec reaching the running state.
func (m *Metrics) RecordROSpecStart(seconds float64) {
	m.ROSpecStartDuration.Observe(seconds)
}
