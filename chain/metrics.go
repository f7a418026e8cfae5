package chain

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var rpcRequests = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "orchestrator",
		Subsystem: "chain",
		Name:      "rpc_requests_total",
		Help:      "Ledger RPC requests by method and outcome.",
	},
	[]string{"method", "outcome"},
)

func observeRPC(method, outcome string) {
	rpcRequests.WithLabelValues(method, outcome).Inc()
}
