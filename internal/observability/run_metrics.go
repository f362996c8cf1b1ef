package observability

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// RunCollector exposes beam-run Prometheus metrics.
type RunCollector struct {
	gatherer prometheus.Gatherer

	RunDuration       prometheus.Histogram
	RunsTotal         prometheus.Counter
	PulsesTotal       prometheus.Counter
	NeutronsTotal     prometheus.Counter
	EventsTotal       prometheus.Counter
	OpticsAttachments prometheus.Counter
}

// NewRunCollector registers beam-run metrics against the provided registerer.
func NewRunCollector(reg prometheus.Registerer) (*RunCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "beam_run_duration_seconds",
		Help:    "Duration of complete beam runs, all pulses included.",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 300},
	})
	duration, err := registerHistogram(reg, duration, "beam_run_duration_seconds")
	if err != nil {
		return nil, err
	}

	runs := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "beam_runs_total",
		Help: "Cumulative number of completed beam runs.",
	})
	runs, err = registerCounter(reg, runs, "beam_runs_total")
	if err != nil {
		return nil, err
	}

	pulses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "beam_pulses_total",
		Help: "Cumulative number of simulated beam pulses.",
	})
	pulses, err = registerCounter(reg, pulses, "beam_pulses_total")
	if err != nil {
		return nil, err
	}

	neutrons := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "beam_neutrons_total",
		Help: "Cumulative number of primary neutrons handed to the engine.",
	})
	neutrons, err = registerCounter(reg, neutrons, "beam_neutrons_total")
	if err != nil {
		return nil, err
	}

	events := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "detector_events_total",
		Help: "Cumulative number of detector event records written to output sinks.",
	})
	events, err = registerCounter(reg, events, "detector_events_total")
	if err != nil {
		return nil, err
	}

	optics := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "optics_attachments_total",
		Help: "Cumulative number of optical property tables attached to placed volumes.",
	})
	optics, err = registerCounter(reg, optics, "optics_attachments_total")
	if err != nil {
		return nil, err
	}

	return &RunCollector{
		gatherer:          gatherer,
		RunDuration:       duration,
		RunsTotal:         runs,
		PulsesTotal:       pulses,
		NeutronsTotal:     neutrons,
		EventsTotal:       events,
		OpticsAttachments: optics,
	}, nil
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *RunCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// RecordRun counts a completed run and records its wall-clock duration.
func (c *RunCollector) RecordRun(d time.Duration) {
	if c == nil {
		return
	}
	if c.RunsTotal != nil {
		c.RunsTotal.Inc()
	}
	if c.RunDuration != nil {
		c.RunDuration.Observe(d.Seconds())
	}
}

// AddPulses adds to the simulated pulse counter.
func (c *RunCollector) AddPulses(n int) {
	if c == nil || c.PulsesTotal == nil || n <= 0 {
		return
	}
	c.PulsesTotal.Add(float64(n))
}

// AddNeutrons adds to the primary neutron counter.
func (c *RunCollector) AddNeutrons(n int64) {
	if c == nil || c.NeutronsTotal == nil || n <= 0 {
		return
	}
	c.NeutronsTotal.Add(float64(n))
}

// AddEvents adds to the written event counter.
func (c *RunCollector) AddEvents(n int64) {
	if c == nil || c.EventsTotal == nil || n <= 0 {
		return
	}
	c.EventsTotal.Add(float64(n))
}

// IncOpticsAttachments increments the optics attachment counter.
func (c *RunCollector) IncOpticsAttachments() {
	if c == nil || c.OpticsAttachments == nil {
		return
	}
	c.OpticsAttachments.Inc()
}

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}
