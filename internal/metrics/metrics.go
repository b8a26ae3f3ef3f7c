// Package metrics collects and exposes Prometheus metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector registers and records the bot's counters.
type Collector struct {
	commands *prometheus.CounterVec
	busy     prometheus.Counter
	updates  prometheus.Counter
}

// NewCollector creates a Collector and registers its metrics on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reminder_commands_total",
			Help: "Commands processed, by command name and outcome",
		}, []string{"command", "outcome"}),
		busy: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reminder_busy_rejections_total",
			Help: "Commands rejected because the user already had one in flight",
		}),
		updates: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reminder_webhook_updates_total",
			Help: "Webhook updates received",
		}),
	}

	reg.MustRegister(c.commands, c.busy, c.updates)

	return c
}

// RecordCommand counts one processed command with its outcome
// (ok, busy, error).
func (c *Collector) RecordCommand(command, outcome string) {
	c.commands.WithLabelValues(command, outcome).Inc()
}

// RecordBusy counts a busy rejection.
func (c *Collector) RecordBusy() {
	c.busy.Inc()
}

// RecordUpdate counts an inbound webhook update.
func (c *Collector) RecordUpdate() {
	c.updates.Inc()
}

// Handler returns the Prometheus scrape handler for the gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
