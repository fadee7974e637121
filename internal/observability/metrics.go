package observability

import (
	"context"
	"fmt"

	"github.com/MarkoPoloResearchLab/teawallet/pkg/wallet"
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "teawallet"

// Metrics counts wallet operations and the cash they move.
type Metrics struct {
	operations *prometheus.CounterVec
	collected  prometheus.Counter
	amounts    *prometheus.HistogramVec
}

// NewMetrics registers the wallet collectors on registerer.
func NewMetrics(registerer prometheus.Registerer) (*Metrics, error) {
	if registerer == nil {
		return nil, fmt.Errorf("%w: metrics registerer is nil", wallet.ErrInvalidServiceConfig)
	}
	metrics := &Metrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "operations_total",
			Help:      "Wallet operations by name and outcome.",
		}, []string{"operation", "status"}),
		collected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "collected_amount_total",
			Help:      "Cash moved into distributor wallets by fresh collects.",
		}),
		amounts: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "operation_amount",
			Help:      "Amounts carried by successful money-moving operations.",
			Buckets:   prometheus.ExponentialBuckets(100, 4, 8),
		}, []string{"operation"}),
	}
	for _, collector := range []prometheus.Collector{metrics.operations, metrics.collected, metrics.amounts} {
		if err := registerer.Register(collector); err != nil {
			return nil, fmt.Errorf("register wallet metrics: %w", err)
		}
	}
	return metrics, nil
}

// LogOperation implements wallet.OperationLogger. Replays are counted but
// never add to the amount series.
func (metrics *Metrics) LogOperation(_ context.Context, entry wallet.OperationLog) {
	status := entry.Status
	if status == "" {
		status = wallet.OperationStatusOK
	}
	metrics.operations.WithLabelValues(entry.Operation, status).Inc()
	if status != wallet.OperationStatusOK || entry.Amount.IsZero() {
		return
	}
	amount := entry.Amount.Decimal().InexactFloat64()
	metrics.amounts.WithLabelValues(entry.Operation).Observe(amount)
	if entry.Operation == wallet.OperationCollect {
		metrics.collected.Add(amount)
	}
}
