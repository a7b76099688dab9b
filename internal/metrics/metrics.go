// Copyright 2024 The HKV Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

// Package metrics exposes Prometheus counters/gauges and HdrHistogram
// latency digests for DB operations. It is purely observational: nothing
// in the core's correctness depends on it.
package metrics

import (
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds one DB instance's operational counters, gauges, and
// latency digests.
type Metrics struct {
	Ops       *prometheus.CounterVec
	Conflicts prometheus.Counter
	LiveIters prometheus.Gauge
	LiveTxns  prometheus.Gauge

	mu    chan struct{} // 1-buffered mutex guarding hist map mutation
	hists map[string]*hdrhistogram.Histogram
}

// New constructs a Metrics registered under the given Prometheus registry.
// namespace is typically the DB's logical name, used to disambiguate
// multiple open stores in one process.
func New(reg prometheus.Registerer, namespace string) *Metrics {
	m := &Metrics{
		Ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hkv_ops_total",
			Help:      "Count of DB operations by kind and outcome.",
		}, []string{"op", "outcome"}),
		Conflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hkv_transaction_conflicts_total",
			Help:      "Count of transaction commits that failed with a conflict.",
		}),
		LiveIters: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "hkv_live_iterators",
			Help:      "Number of currently open iterators.",
		}),
		LiveTxns: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "hkv_live_transactions",
			Help:      "Number of currently open transactions.",
		}),
		mu:    make(chan struct{}, 1),
		hists: make(map[string]*hdrhistogram.Histogram),
	}
	m.mu <- struct{}{}
	if reg != nil {
		reg.MustRegister(m.Ops, m.Conflicts, m.LiveIters, m.LiveTxns)
	}
	return m
}

// ObserveLatency records d against the named operation's HdrHistogram
// digest (1 microsecond to 10 seconds, 3 significant figures), creating it
// on first use.
func (m *Metrics) ObserveLatency(op string, d time.Duration) {
	<-m.mu
	defer func() { m.mu <- struct{}{} }()
	h, ok := m.hists[op]
	if !ok {
		h = hdrhistogram.New(1, (10 * time.Second).Microseconds(), 3)
		m.hists[op] = h
	}
	_ = h.RecordValue(d.Microseconds())
}

// LatencySnapshot returns op's histogram, or nil if no observations have
// been recorded for it yet. Callers must not mutate the result.
func (m *Metrics) LatencySnapshot(op string) *hdrhistogram.Histogram {
	<-m.mu
	defer func() { m.mu <- struct{}{} }()
	return m.hists[op]
}
