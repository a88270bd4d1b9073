package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// OrdersTotal counts order lifecycle transitions by outcome.
	OrdersTotal *prometheus.CounterVec
	// PaymentProcessTotal counts payment processing outcomes per provider.
	PaymentProcessTotal *prometheus.CounterVec
	// CouponRedemptionTotal counts coupon validation and redemption outcomes.
	CouponRedemptionTotal *prometheus.CounterVec
	// DonationsTotal counts donation submissions and settlements by outcome.
	DonationsTotal *prometheus.CounterVec
	// IncentiveCouponsIssued counts incentive coupons minted after settlement.
	IncentiveCouponsIssued prometheus.Counter
	// CheckoutDuration records the latency of the checkout transaction in milliseconds.
	CheckoutDuration prometheus.Histogram
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		OrdersTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_total",
			Help:      "Count of order lifecycle events by transition and result.",
		}, []string{"transition", "result"})
		PaymentProcessTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_process_total",
			Help:      "Count of payment processing outcomes per provider.",
		}, []string{"provider", "result"})
		CouponRedemptionTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "coupon_redemption_total",
			Help:      "Count of coupon validation and redemption outcomes.",
		}, []string{"stage", "result"})
		DonationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "donations_total",
			Help:      "Count of donation submissions and settlements by method and result.",
		}, []string{"method", "result"})
		IncentiveCouponsIssued = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "incentive_coupons_issued_total",
			Help:      "Number of incentive coupons minted after donation settlement.",
		})
		CheckoutDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "checkout_duration_ms",
			Help:      "Latency of the checkout transaction in milliseconds.",
			Buckets:   []float64{10, 25, 50, 100, 250, 500, 1000, 2500},
		})

		mustRegisterCollector(reg, OrdersTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				OrdersTotal = v
			}
		})
		mustRegisterCollector(reg, PaymentProcessTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				PaymentProcessTotal = v
			}
		})
		mustRegisterCollector(reg, CouponRedemptionTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CouponRedemptionTotal = v
			}
		})
		mustRegisterCollector(reg, DonationsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				DonationsTotal = v
			}
		})
		mustRegisterCollector(reg, IncentiveCouponsIssued, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				IncentiveCouponsIssued = v
			}
		})
		mustRegisterCollector(reg, CheckoutDuration, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Histogram); ok {
				CheckoutDuration = v
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
