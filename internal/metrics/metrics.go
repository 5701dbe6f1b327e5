// Package metrics holds the process-wide Prometheus collectors. Jobs and the
// fetcher record into them directly; the server exposes them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SyncTicks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "konakore_sync_ticks_total",
		Help: "Job ticks by job name and fetch outcome.",
	}, []string{"job", "outcome"})

	PostsSynced = promauto.NewCounter(prometheus.CounterOpts{
		Name: "konakore_posts_synced_total",
		Help: "Posts upserted from the remote catalog.",
	})
)
