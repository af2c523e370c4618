// Package metrics defines the Prometheus collectors exported by the server.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ActionsTotal counts actions applied to the state store.
	ActionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "justsplit_actions_total",
		Help: "Actions applied to the state store, by action type.",
	}, []string{"action"})

	// RemoteWritesTotal counts write operations against the document
	// database.
	RemoteWritesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "justsplit_remote_writes_total",
		Help: "Remote write operations, by operation and result.",
	}, []string{"op", "result"})

	// SubscriptionErrorsTotal counts live queries that failed.
	SubscriptionErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "justsplit_subscription_errors_total",
		Help: "Live query failures, by collection.",
	}, []string{"collection"})

	// ActiveSubscriptions is the number of open remote subscriptions.
	ActiveSubscriptions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "justsplit_active_subscriptions",
		Help: "Open remote subscriptions.",
	})

	// StaleReplacementsTotal counts replacements dropped because they came
	// from a subscription that was already replaced.
	StaleReplacementsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "justsplit_stale_replacements_total",
		Help: "Collection replacements dropped for belonging to an old subscription.",
	})
)

// Write results used as the "result" label of RemoteWritesTotal.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Register adds every collector to reg.
func Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		ActionsTotal,
		RemoteWritesTotal,
		SubscriptionErrorsTotal,
		ActiveSubscriptions,
		StaleReplacementsTotal,
	} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// ObserveWrite records the outcome of a remote write.
func ObserveWrite(op string, err error) {
	result := ResultOK
	if err != nil {
		result = ResultError
	}
	RemoteWritesTotal.WithLabelValues(op, result).Inc()
}
