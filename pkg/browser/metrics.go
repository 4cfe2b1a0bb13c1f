package browser

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	instancesActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "browser_mcp",
		Subsystem: "instances",
		Name:      "active",
		Help:      "Browser instances currently open.",
	})

	instancesCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "browser_mcp",
		Subsystem: "instances",
		Name:      "created_total",
		Help:      "Browser instances created since start.",
	})

	instancesClosed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "browser_mcp",
		Subsystem: "instances",
		Name:      "closed_total",
		Help:      "Browser instances closed, by reason.",
	}, []string{"reason"})

	launchFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "browser_mcp",
		Subsystem: "instances",
		Name:      "launch_failures_total",
		Help:      "Browser launches that did not produce a usable page.",
	})
)
