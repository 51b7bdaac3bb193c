package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// CheckoutTotal counts checkout outcomes by result
	// (completed, not_found, out_of_stock, payment_declined, stock_update_failed, error).
	CheckoutTotal *prometheus.CounterVec
	// CheckoutDuration records end-to-end checkout latency in milliseconds.
	CheckoutDuration prometheus.Histogram
	// PaymentAuthorizeTotal counts payment authorization attempts by result.
	PaymentAuthorizeTotal *prometheus.CounterVec
	// PaymentCancelTotal counts compensating cancellation attempts by result.
	PaymentCancelTotal *prometheus.CounterVec
	// CatalogCacheTotal counts catalog cache lookups by result (hit, miss).
	CatalogCacheTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		CheckoutTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_total",
			Help:      "Count of checkout attempts by outcome.",
		}, []string{"result"})
		CheckoutDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "checkout_duration_ms",
			Help:      "End-to-end checkout latency in milliseconds.",
			Buckets:   []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		})
		PaymentAuthorizeTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_authorize_total",
			Help:      "Count of payment authorization attempts by result.",
		}, []string{"result"})
		PaymentCancelTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_cancel_total",
			Help:      "Count of compensating payment cancellations by result.",
		}, []string{"result"})
		CatalogCacheTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_cache_total",
			Help:      "Count of catalog cache lookups by result.",
		}, []string{"result"})

		reg.MustRegister(CheckoutTotal, CheckoutDuration, PaymentAuthorizeTotal, PaymentCancelTotal, CatalogCacheTotal)
	})
}
