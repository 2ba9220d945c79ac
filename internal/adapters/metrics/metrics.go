// Package metrics exposes session counters and gauges to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "seminar"

type Metrics struct {
	reg *prometheus.Registry

	events     *prometheus.CounterVec
	commands   *prometheus.CounterVec
	reconnects prometheus.Counter
	roster     prometheus.Gauge
	elements   prometheus.Gauge
	pending    prometheus.Gauge
	streams    prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "events_total",
			Help: "Inbound channel events by type.",
		}, []string{"type"}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "commands_total",
			Help: "Outbound commands by type and result.",
		}, []string{"type", "result"}),
		reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "reconnect_attempts_total",
			Help: "Channel reconnect attempts.",
		}),
		roster: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "roster_participants",
			Help: "Participants in the local roster.",
		}),
		elements: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "whiteboard_elements",
			Help: "Elements on the whiteboard.",
		}),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "pending_commands",
			Help: "Commands waiting for confirmation.",
		}),
		streams: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "remote_streams",
			Help: "Remote media streams held.",
		}),
	}
	m.reg.MustRegister(
		m.events, m.commands, m.reconnects,
		m.roster, m.elements, m.pending, m.streams,
		collectors.NewGoCollector(),
	)
	return m
}

func (m *Metrics) EventReceived(typ string)           { m.events.WithLabelValues(typ).Inc() }
func (m *Metrics) CommandSent(typ string, res string) { m.commands.WithLabelValues(typ, res).Inc() }
func (m *Metrics) ReconnectAttempt()                  { m.reconnects.Inc() }
func (m *Metrics) SetRosterSize(n int)                { m.roster.Set(float64(n)) }
func (m *Metrics) SetElements(n int)                  { m.elements.Set(float64(n)) }
func (m *Metrics) SetPending(n int)                   { m.pending.Set(float64(n)) }
func (m *Metrics) SetRemoteStreams(n int)             { m.streams.Set(float64(n)) }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}
