package core

import (
	"errors"
	"fmt"

	"github.com/neutronworks/scintcam-simulator/internal/logging"
)

// ErrSequencingViolation is returned when the bring-up order is broken:
// a phase was entered without completing its predecessor, or a gated
// operation ran in too early a phase. Violations indicate a host
// programming error and are treated as fatal at the process boundary.
var ErrSequencingViolation = errors.New("initialization sequencing violation")

// Phase is one step of the linear bring-up sequence.
type Phase int

const (
	PhaseNotStarted Phase = iota
	PhaseGeometryBuilt
	PhaseEngineInitialized
	PhaseOpticsApplied
	PhaseRunning
)

func (p Phase) String() string {
	switch p {
	case PhaseNotStarted:
		return "NotStarted"
	case PhaseGeometryBuilt:
		return "GeometryBuilt"
	case PhaseEngineInitialized:
		return "EngineInitialized"
	case PhaseOpticsApplied:
		return "OpticsApplied"
	case PhaseRunning:
		return "Running"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// PhaseObserver is notified after every successful transition. Used by
// the observability layer to expose the current phase.
type PhaseObserver func(p Phase)

// Sequencer tracks the bring-up of the simulation as an explicit state
// machine:
//
//	NotStarted -> GeometryBuilt -> EngineInitialized -> OpticsApplied -> Running
//
// Transitions are strictly linear and one-directional; there is no
// reset. It holds no engine references, so ordering logic is testable
// without an engine behind it.
type Sequencer struct {
	phase     Phase
	logger    logging.Logger
	observers []PhaseObserver
}

// NewSequencer creates a sequencer in PhaseNotStarted.
func NewSequencer(logger logging.Logger) *Sequencer {
	if logger == nil {
		logger = logging.Noop()
	}
	return &Sequencer{phase: PhaseNotStarted, logger: logger}
}

// Phase returns the current phase.
func (s *Sequencer) Phase() Phase {
	return s.phase
}

// Observe registers an observer for successful transitions.
func (s *Sequencer) Observe(fn PhaseObserver) {
	if fn != nil {
		s.observers = append(s.observers, fn)
	}
}

func (s *Sequencer) advance(from, to Phase) error {
	if s.phase != from {
		return fmt.Errorf("%w: cannot enter %s from %s (need %s)",
			ErrSequencingViolation, to, s.phase, from)
	}
	s.phase = to
	s.logger.Info("phase transition",
		logging.String("from", from.String()),
		logging.String("to", to.String()))
	for _, fn := range s.observers {
		fn(to)
	}
	return nil
}

// MarkGeometryBuilt records completion of the one-shot geometry
// assembly.
func (s *Sequencer) MarkGeometryBuilt() error {
	return s.advance(PhaseNotStarted, PhaseGeometryBuilt)
}

// MarkEngineInitialized records that the engine reported initialization
// complete. Only legal after the geometry exists.
func (s *Sequencer) MarkEngineInitialized() error {
	return s.advance(PhaseGeometryBuilt, PhaseEngineInitialized)
}

// MarkOpticsApplied records that deferred optical property tables have
// been attached.
func (s *Sequencer) MarkOpticsApplied() error {
	return s.advance(PhaseEngineInitialized, PhaseOpticsApplied)
}

// MarkRunning records the hand-over to the run driver.
func (s *Sequencer) MarkRunning() error {
	return s.advance(PhaseOpticsApplied, PhaseRunning)
}

// RequireAtLeast gates an operation on having reached the given phase.
func (s *Sequencer) RequireAtLeast(p Phase) error {
	if s.phase < p {
		return fmt.Errorf("%w: requires phase %s or later, currently %s",
			ErrSequencingViolation, p, s.phase)
	}
	return nil
}
