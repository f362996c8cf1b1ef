package observability

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// CommandCollector bundles Prometheus metrics for the command surface and
// provides the /metrics handler for the simulator process.
type CommandCollector struct {
	gatherer prometheus.Gatherer

	CommandInvocations *prometheus.CounterVec

	InitializationPhase prometheus.Gauge
	PlacedVolumes       prometheus.Gauge
}

// NewCommandCollector registers command-surface Prometheus metrics against the
// provided registerer, defaulting to the global Prometheus registry when nil.
func NewCommandCollector(reg prometheus.Registerer) (*CommandCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	invocations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "command_invocations_total",
		Help: "Total number of handled configuration commands, labeled by command name and outcome.",
	}, []string{"command", "outcome"})
	invocations, err := registerCounterVec(reg, invocations, "command_invocations_total")
	if err != nil {
		return nil, err
	}

	phase, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "initialization_phase",
		Help: "Current initialization phase ordinal, from 0 (not started) to 4 (running).",
	}), "initialization_phase")
	if err != nil {
		return nil, err
	}
	placed, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "geometry_volumes_placed",
		Help: "Number of volumes the assembler has placed in the engine.",
	}), "geometry_volumes_placed")
	if err != nil {
		return nil, err
	}

	return &CommandCollector{
		gatherer:            gatherer,
		CommandInvocations:  invocations,
		InitializationPhase: phase,
		PlacedVolumes:       placed,
	}, nil
}

// RecordCommand satisfies the command registry's MetricsRecorder interface so
// every Invoke lands here with its outcome label.
func (c *CommandCollector) RecordCommand(name, outcome string) {
	if c == nil || c.CommandInvocations == nil {
		return
	}
	c.CommandInvocations.WithLabelValues(name, outcome).Inc()
}

// SetInitializationPhase updates the phase gauge. Wired as a sequencer
// observer so the gauge tracks every successful transition.
func (c *CommandCollector) SetInitializationPhase(ordinal int) {
	if c == nil || c.InitializationPhase == nil {
		return
	}
	c.InitializationPhase.Set(float64(ordinal))
}

// SetPlacedVolumes updates the placed-volume gauge after assembly.
func (c *CommandCollector) SetPlacedVolumes(count int) {
	if c == nil || c.PlacedVolumes == nil {
		return
	}
	c.PlacedVolumes.Set(float64(count))
}

// Handler exposes a ready-to-use /metrics handler.
func (c *CommandCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
