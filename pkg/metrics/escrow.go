package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

// Operation labels for money-moving transactions.
const (
	OpCheckout          = "checkout"
	OpUpdateStatus      = "update_status"
	OpCompleteMilestone = "complete_milestone"
	OpResolveDispute    = "resolve_dispute"
	OpWithdrawal        = "withdrawal"
)

// EscrowMetrics tracks funds moving through escrow. A nil *EscrowMetrics is
// valid and records nothing.
type EscrowMetrics struct {
	released       *prometheus.CounterVec
	releasedAmount prometheus.Counter
	refunded       prometheus.Counter
	refundedAmount prometheus.Counter
	checkoutOrders prometheus.Counter
	couponRedeemed prometheus.Counter
	txFailures     *prometheus.CounterVec
	txDuration     *prometheus.HistogramVec
}

// NewEscrowMetrics registers the escrow metrics on the provided registerer.
func NewEscrowMetrics(reg prometheus.Registerer) *EscrowMetrics {
	if reg == nil {
		return &EscrowMetrics{}
	}
	m := &EscrowMetrics{
		released: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "escrow_released_total",
			Help: "Escrow releases to sellers, by trigger.",
		}, []string{"source"}),
		releasedAmount: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "escrow_released_amount_total",
			Help: "Net amount released from escrow to sellers.",
		}),
		refunded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "escrow_refunded_total",
			Help: "Escrow refunds to buyers.",
		}),
		refundedAmount: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "escrow_refunded_amount_total",
			Help: "Amount refunded from escrow to buyers.",
		}),
		checkoutOrders: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "checkout_orders_total",
			Help: "Orders created by checkout.",
		}),
		couponRedeemed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "coupon_redemptions_total",
			Help: "Coupons redeemed at checkout.",
		}),
		txFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "money_tx_failures_total",
			Help: "Money-moving transactions that rolled back.",
		}, []string{"operation"}),
		txDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "money_tx_duration_seconds",
			Help:    "Duration of money-moving transactions in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
	}
	reg.MustRegister(
		m.released,
		m.releasedAmount,
		m.refunded,
		m.refundedAmount,
		m.checkoutOrders,
		m.couponRedeemed,
		m.txFailures,
		m.txDuration,
	)
	return m
}

func (m *EscrowMetrics) ObserveRelease(source string, net decimal.Decimal) {
	if m == nil || m.released == nil {
		return
	}
	m.released.WithLabelValues(normalizeLabel(source)).Inc()
	m.releasedAmount.Add(net.InexactFloat64())
}

func (m *EscrowMetrics) ObserveRefund(amount decimal.Decimal) {
	if m == nil || m.refunded == nil {
		return
	}
	m.refunded.Inc()
	m.refundedAmount.Add(amount.InexactFloat64())
}

func (m *EscrowMetrics) ObserveCheckout(orders int, couponRedeemed bool) {
	if m == nil || m.checkoutOrders == nil {
		return
	}
	m.checkoutOrders.Add(float64(orders))
	if couponRedeemed {
		m.couponRedeemed.Inc()
	}
}

// ObserveTx records the duration of a money-moving transaction and counts it
// as a failure when err is non-nil.
func (m *EscrowMetrics) ObserveTx(operation string, started time.Time, err error) {
	if m == nil || m.txDuration == nil {
		return
	}
	op := normalizeLabel(operation)
	m.txDuration.WithLabelValues(op).Observe(time.Since(started).Seconds())
	if err != nil {
		m.txFailures.WithLabelValues(op).Inc()
	}
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
