package tools

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	executionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "browser_mcp",
		Subsystem: "tools",
		Name:      "executions_total",
		Help:      "Tool executions by tool name and outcome.",
	}, []string{"tool", "status"})

	executionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "browser_mcp",
		Subsystem: "tools",
		Name:      "execution_duration_seconds",
		Help:      "Tool execution latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"tool"})
)

func observeExecution(tool string, success bool, elapsed time.Duration) {
	status := "ok"
	if !success {
		status = "error"
	}
	executionsTotal.WithLabelValues(tool, status).Inc()
	executionDuration.WithLabelValues(tool).Observe(elapsed.Seconds())
}
