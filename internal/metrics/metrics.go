// Package metrics exposes the bot's Prometheus collectors.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "dash"

// Metrics groups every collector on a private registry so tests can create
// as many instances as they like.
type Metrics struct {
	registry *prometheus.Registry

	ChannelsCreated prometheus.Counter
	CreateRejected  *prometheus.CounterVec
	ChannelsClosed  *prometheus.CounterVec
	ArchiveFailures *prometheus.CounterVec
	Broadcasts      *prometheus.CounterVec
	Summaries       *prometheus.CounterVec
	DirectoryCache  *prometheus.CounterVec
	HandlerDuration *prometheus.HistogramVec
}

// New creates the collectors and registers them.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ChannelsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "channels_created_total",
			Help:      "Temporary channels created.",
		}),
		CreateRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "create_rejected_total",
			Help:      "Channel creation submissions rejected, by reason.",
		}, []string{"reason"}),
		ChannelsClosed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "channels_closed_total",
			Help:      "Channels archived, by the surface the close came from.",
		}, []string{"path"}),
		ArchiveFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "archive_failures_total",
			Help:      "Archive calls that failed, by Slack error code.",
		}, []string{"code"}),
		Broadcasts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcasts_total",
			Help:      "Broadcast submissions, by result.",
		}, []string{"result"}),
		Summaries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "summaries_total",
			Help:      "AI summary requests, by result.",
		}, []string{"result"}),
		DirectoryCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "directory_cache_requests_total",
			Help:      "Directory cache lookups, by hit or miss.",
		}, []string{"result"}),
		HandlerDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "handler_duration_seconds",
			Help:      "Time spent in inbound Slack handlers.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"handler"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.ChannelsCreated,
		m.CreateRejected,
		m.ChannelsClosed,
		m.ArchiveFailures,
		m.Broadcasts,
		m.Summaries,
		m.DirectoryCache,
		m.HandlerDuration,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveHandler records how long a handler ran.
func (m *Metrics) ObserveHandler(handler string, start time.Time) {
	m.HandlerDuration.WithLabelValues(handler).Observe(time.Since(start).Seconds())
}
