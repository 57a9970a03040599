// Package metrics holds the prometheus collectors for the core operations.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Verifications counts gate scans by outcome: granted, denied, not_found.
	Verifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gatepass_verifications_total",
		Help: "Gate verification attempts by outcome.",
	}, []string{"result"})

	// CheckIns counts people checked into lobbies.
	CheckIns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gatepass_checkins_total",
		Help: "People checked into lobbies.",
	})

	// BatchExits counts successfully recorded batch exits.
	BatchExits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gatepass_batch_exits_total",
		Help: "Batch exits recorded.",
	})
)
