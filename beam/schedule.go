// Package beam derives deterministic pulse schedules for a pulsed
// neutron source: given a flux, a pulse frequency and a time window, it
// produces the ordered list of pulse trigger offsets and the neutron
// count fired in each pulse.
package beam

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrInvalidConfig is returned for non-positive or unschedulable beam
// parameters.
var ErrInvalidConfig = errors.New("invalid beam configuration")

// Config describes the source: continuous-equivalent flux in neutrons
// per second, pulse repetition frequency in Hz, and the emission
// window.
type Config struct {
	FluxPerSecond float64
	FrequencyHz   float64
	Window        time.Duration
}

// Pulse is one source trigger: its offset from the window start and the
// number of neutrons it carries.
type Pulse struct {
	Offset   time.Duration
	Neutrons int
}

// Schedule is the derived pulse train. Offsets are strictly increasing
// and the per-pulse counts sum exactly to Total.
type Schedule struct {
	Pulses []Pulse
	Total  int
	Period time.Duration
}

// Build derives the schedule. The total neutron count is the rounded
// product of flux and window; it is split evenly across the pulses
// fitting in the window, with the round-off remainder assigned to the
// final pulse.
func Build(cfg Config) (*Schedule, error) {
	if cfg.FluxPerSecond <= 0 {
		return nil, fmt.Errorf("%w: flux must be > 0, got %g", ErrInvalidConfig, cfg.FluxPerSecond)
	}
	if cfg.FrequencyHz <= 0 {
		return nil, fmt.Errorf("%w: frequency must be > 0, got %g", ErrInvalidConfig, cfg.FrequencyHz)
	}
	if cfg.Window <= 0 {
		return nil, fmt.Errorf("%w: window must be > 0, got %s", ErrInvalidConfig, cfg.Window)
	}
	// Offsets are scheduled at nanosecond resolution; a period below
	// 1 ns would collapse neighbouring pulses onto the same timestamp.
	if cfg.FrequencyHz > 1e9 {
		return nil, fmt.Errorf("%w: frequency %g Hz exceeds nanosecond scheduling resolution", ErrInvalidConfig, cfg.FrequencyHz)
	}

	seconds := cfg.Window.Seconds()
	total := int(math.Round(cfg.FluxPerSecond * seconds))

	// Pulses trigger at k/frequency for every k with k/frequency
	// inside the window; the epsilon keeps an exact multiple from
	// gaining a phantom trailing pulse.
	fw := cfg.FrequencyHz * seconds
	n := int(math.Ceil(fw - 1e-9))
	if n < 1 {
		n = 1
	}

	base := total / n
	rem := total - base*n

	pulses := make([]Pulse, n)
	for k := 0; k < n; k++ {
		pulses[k] = Pulse{
			Offset:   time.Duration(float64(k) * float64(time.Second) / cfg.FrequencyHz),
			Neutrons: base,
		}
	}
	pulses[n-1].Neutrons += rem

	return &Schedule{
		Pulses: pulses,
		Total:  total,
		Period: time.Duration(float64(time.Second) / cfg.FrequencyHz),
	}, nil
}
