package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Lookups counts inbound barcode lookups by outcome
	// (ok, not_found, invalid, rate_limited, error).
	Lookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pricefinder",
		Name:      "lookups_total",
		Help:      "Inbound barcode lookups by outcome.",
	}, []string{"outcome"})

	// SourceFailures counts vendor fetches that ended in a recorded error.
	SourceFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pricefinder",
		Name:      "source_failures_total",
		Help:      "Vendor lookups that ended in a recorded error.",
	}, []string{"source"})
)
