// internal/app/store/metrics/collector.go
package metricsstore

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.mongodb.org/mongo-driver/mongo"
)

// Collector exports FetchCounts as Prometheus gauges, counted at scrape
// time.
type Collector struct {
	db      *mongo.Database
	timeout time.Duration

	campaigns    *prometheus.Desc
	active       *prometheus.Desc
	institutions *prometheus.Desc
	surveys      *prometheus.Desc
	runningSyncs *prometheus.Desc
}

// NewCollector returns a Collector reading db. Each scrape is bounded by
// timeout.
func NewCollector(db *mongo.Database, timeout time.Duration) *Collector {
	desc := func(name, help string, labels ...string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName("surveytrack", "registry", name), help, labels, nil)
	}
	return &Collector{
		db:           db,
		timeout:      timeout,
		campaigns:    desc("campaigns", "Campaigns in the registry."),
		active:       desc("active_campaigns", "Campaigns marked active."),
		institutions: desc("institutions", "Institutions in the registry."),
		surveys:      desc("surveys", "Surveys by status.", "status"),
		runningSyncs: desc("running_syncs", "Sync runs recorded as running."),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.campaigns
	ch <- c.active
	ch <- c.institutions
	ch <- c.surveys
	ch <- c.runningSyncs
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	counts := FetchCounts(ctx, c.db)
	ch <- prometheus.MustNewConstMetric(c.campaigns, prometheus.GaugeValue, float64(counts.Campaigns))
	ch <- prometheus.MustNewConstMetric(c.active, prometheus.GaugeValue, float64(counts.ActiveCampaigns))
	ch <- prometheus.MustNewConstMetric(c.institutions, prometheus.GaugeValue, float64(counts.Institutions))
	for st, n := range counts.Surveys {
		ch <- prometheus.MustNewConstMetric(c.surveys, prometheus.GaugeValue, float64(n), string(st))
	}
	ch <- prometheus.MustNewConstMetric(c.runningSyncs, prometheus.GaugeValue, float64(counts.RunningSyncs))
}
