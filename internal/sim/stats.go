package sim

import (
	"fmt"
	"sync"
)

// RunStats tracks in-memory counters for simulator activity.
// All counters are concurrency-safe and can be incremented from multiple goroutines.
type RunStats struct {
	mu sync.Mutex

	// Command surface
	NumCommandsApplied uint64
	NumCommandsFailed  uint64

	// Beam runs
	NumRuns     uint64
	NumPulses   uint64
	NumNeutrons uint64
	NumEvents   uint64

	// Deferred material work
	NumOpticsSwaps uint64
}

// NewRunStats creates a RunStats instance with all counters at zero.
func NewRunStats() *RunStats {
	return &RunStats{}
}

// IncCommandsApplied increments the applied-command counter.
func (s *RunStats) IncCommandsApplied() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.NumCommandsApplied++
}

// IncCommandsFailed increments the failed-command counter.
func (s *RunStats) IncCommandsFailed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.NumCommandsFailed++
}

// IncRuns increments the completed-run counter.
func (s *RunStats) IncRuns() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.NumRuns++
}

// AddPulses adds to the simulated-pulse counter.
func (s *RunStats) AddPulses(n int) {
	if n <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.NumPulses += uint64(n)
}

// AddNeutrons adds to the primary-neutron counter.
func (s *RunStats) AddNeutrons(n int64) {
	if n <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.NumNeutrons += uint64(n)
}

// AddEvents adds to the written-event counter.
func (s *RunStats) AddEvents(n int64) {
	if n <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.NumEvents += uint64(n)
}

// IncOpticsSwaps increments the optics-swap counter.
func (s *RunStats) IncOpticsSwaps() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.NumOpticsSwaps++
}

// RunStatsSnapshot is a snapshot of current counter values.
// It's safe to read without holding the mutex.
type RunStatsSnapshot struct {
	NumCommandsApplied uint64
	NumCommandsFailed  uint64
	NumRuns            uint64
	NumPulses          uint64
	NumNeutrons        uint64
	NumEvents          uint64
	NumOpticsSwaps     uint64
}

// Snapshot returns a snapshot of the current counter values.
func (s *RunStats) Snapshot() RunStatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return RunStatsSnapshot{
		NumCommandsApplied: s.NumCommandsApplied,
		NumCommandsFailed:  s.NumCommandsFailed,
		NumRuns:            s.NumRuns,
		NumPulses:          s.NumPulses,
		NumNeutrons:        s.NumNeutrons,
		NumEvents:          s.NumEvents,
		NumOpticsSwaps:     s.NumOpticsSwaps,
	}
}

// String returns a human-readable string representation of the counters.
func (s *RunStats) String() string {
	snap := s.Snapshot()
	return fmt.Sprintf("run stats: commands_ok=%d commands_failed=%d runs=%d pulses=%d neutrons=%d events=%d optics_swaps=%d",
		snap.NumCommandsApplied,
		snap.NumCommandsFailed,
		snap.NumRuns,
		snap.NumPulses,
		snap.NumNeutrons,
		snap.NumEvents,
		snap.NumOpticsSwaps,
	)
}
