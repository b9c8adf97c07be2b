package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// SaleCommitTotal counts sale commit attempts by terminal step and result.
	SaleCommitTotal *prometheus.CounterVec
	// SaleCommitLatency records end-to-end commit latency in milliseconds.
	SaleCommitLatency *prometheus.HistogramVec
	// InvoiceNumbersIssued counts invoice numbers reserved from the counter.
	InvoiceNumbersIssued prometheus.Counter
	// InvoiceNumbersBurned counts reserved numbers lost to failed invoice writes.
	InvoiceNumbersBurned prometheus.Counter
	// StockConflictTotal counts inventory decrements refused at zero quantity.
	StockConflictTotal prometheus.Counter
	// CounterRetryTotal counts retried counter increments by outcome.
	CounterRetryTotal *prometheus.CounterVec
	// SessionSnapshotTotal counts session snapshot operations by kind and result.
	SessionSnapshotTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		SaleCommitTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sale_commit_total",
			Help:      "Count of sale commit attempts by terminal step and result.",
		}, []string{"step", "result"})
		SaleCommitLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sale_commit_duration_ms",
			Help:      "Latency of complete sale commits in milliseconds.",
			Buckets:   []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"result"})
		InvoiceNumbersIssued = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invoice_numbers_issued_total",
			Help:      "Total invoice numbers reserved from the shared counter.",
		})
		InvoiceNumbersBurned = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invoice_numbers_burned_total",
			Help:      "Reserved invoice numbers lost because the invoice write failed.",
		})
		StockConflictTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stock_conflict_total",
			Help:      "Inventory decrements refused because quantity was already zero.",
		})
		CounterRetryTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "counter_retry_total",
			Help:      "Retried invoice counter increments by outcome.",
		}, []string{"result"})
		SessionSnapshotTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_snapshot_total",
			Help:      "Session snapshot cache operations by kind and result.",
		}, []string{"kind", "result"})

		mustRegisterCollector(reg, SaleCommitTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				SaleCommitTotal = v
			}
		})
		mustRegisterCollector(reg, SaleCommitLatency, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.HistogramVec); ok {
				SaleCommitLatency = v
			}
		})
		mustRegisterCollector(reg, InvoiceNumbersIssued, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				InvoiceNumbersIssued = v
			}
		})
		mustRegisterCollector(reg, InvoiceNumbersBurned, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				InvoiceNumbersBurned = v
			}
		})
		mustRegisterCollector(reg, StockConflictTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				StockConflictTotal = v
			}
		})
		mustRegisterCollector(reg, CounterRetryTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CounterRetryTotal = v
			}
		})
		mustRegisterCollector(reg, SessionSnapshotTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				SessionSnapshotTotal = v
			}
		})
	})
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}
