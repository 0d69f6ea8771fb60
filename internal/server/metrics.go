package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	eventsRouted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mirrornode_events_routed_total",
		Help: "Events handled by the gateway, by type and terminal status.",
	}, []string{"type", "status"})

	eventsRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mirrornode_events_rejected_total",
		Help: "Events rejected before routing for schema violations.",
	})

	eventsStored = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mirrornode_events_stored_total",
		Help: "Events accepted through the local event store endpoint.",
	})

	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mirrornode_http_requests_total",
		Help: "HTTP requests served, by method and status.",
	}, []string{"method", "status"})
)
