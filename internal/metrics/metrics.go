// Package metrics collects and exposes Prometheus counters for the auth
// subsystem.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector counts auth operations by outcome.
type Collector struct {
	registry *prometheus.Registry

	signups   *prometheus.CounterVec
	signins   *prometheus.CounterVec
	callbacks *prometheus.CounterVec
	signouts  prometheus.Counter
}

func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		signups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gittrends_auth_signups_total",
			Help: "Sign-up attempts by outcome.",
		}, []string{"outcome"}),
		signins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gittrends_auth_signins_total",
			Help: "Sign-in attempts by outcome.",
		}, []string{"outcome"}),
		callbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gittrends_auth_oauth_callbacks_total",
			Help: "OAuth callback completions by outcome.",
		}, []string{"outcome"}),
		signouts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gittrends_auth_signouts_total",
			Help: "Sign-out requests.",
		}),
	}

	c.registry.MustRegister(c.signups, c.signins, c.callbacks, c.signouts)
	return c
}

func (c *Collector) RecordSignUp(outcome string)        { c.signups.WithLabelValues(outcome).Inc() }
func (c *Collector) RecordSignIn(outcome string)        { c.signins.WithLabelValues(outcome).Inc() }
func (c *Collector) RecordOAuthCallback(outcome string) { c.callbacks.WithLabelValues(outcome).Inc() }
func (c *Collector) RecordSignOut()                     { c.signouts.Inc() }

// Handler serves the /metrics endpoint for this collector's registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
