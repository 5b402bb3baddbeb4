package rpc

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	upstreamRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gateway",
		Subsystem: "upstream",
		Name:      "requests_total",
		Help:      "Upstream RPC attempts by endpoint, method and outcome.",
	}, []string{"endpoint", "method", "outcome"})

	breakerOpened = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gateway",
		Subsystem: "upstream",
		Name:      "breaker_open_total",
		Help:      "Closed-to-open breaker transitions by endpoint.",
	}, []string{"endpoint"})
)
