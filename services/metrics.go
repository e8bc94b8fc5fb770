package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var contentMutations = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "blogapi_content_mutations_total",
		Help: "Committed content mutations by entity and action",
	},
	[]string{"entity", "action"},
)

// recordMutation is called only after a transaction committed.
func recordMutation(entity, action string) {
	contentMutations.WithLabelValues(entity, action).Inc()
}
