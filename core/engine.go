package core

import (
	"context"

	"github.com/neutronworks/scintcam-simulator/model"
)

// PlacementSpec describes one volume registration with the engine: a
// box shape, the material filling it, and a translation relative to the
// parent volume's centre. Parent 0 registers a root (world) volume.
type PlacementSpec struct {
	Name        string
	Shape       Box
	Material    *model.MaterialDefinition
	Translation Vec3
	Parent      model.VolumeID
}

// MaterialRegistry is the engine's built-in material lookup, NIST-style:
// FindOrBuildMaterial returns the definition for a known code, lazily
// constructing it on first use, and fails for codes it does not know.
type MaterialRegistry interface {
	FindOrBuildMaterial(code model.MaterialCode) (*model.MaterialDefinition, error)
}

// VolumePlacer is the engine's volume registry surface. The engine owns
// every placement it accepts; callers hold only VolumeIDs.
type VolumePlacer interface {
	PlaceVolume(spec PlacementSpec) (model.VolumeID, error)

	// SetVolumeMaterial swaps the material filling a placed volume
	// without touching the topology.
	SetVolumeMaterial(id model.VolumeID, def *model.MaterialDefinition) error

	// AttachOpticalProperties attaches (or replaces) the optical table
	// on the material currently filling the volume. Engines accept
	// tables only after Initialize has completed.
	AttachOpticalProperties(id model.VolumeID, table *model.OpticalPropertyTable) error
}

// EventSink receives the detector hit records produced during a run.
// The engine owns the record schema; sinks only transport it. Header is
// delivered once per run before the first Write.
type EventSink interface {
	Header(columns []string) error
	Write(values []string) error
}

// Engine is the external simulation engine boundary: materials, volume
// placement, one-shot initialization and run execution. The
// configuration subsystem consumes this surface and never reimplements
// what lies behind it (transport, tracking, optical photon physics).
type Engine interface {
	MaterialRegistry
	VolumePlacer

	// Initialize performs the engine's one-shot bring-up (geometry
	// closing, physics construction). Completion is the signal that
	// deferred optical property tables may be attached.
	Initialize(ctx context.Context) error

	// BeamOn tracks the given number of neutrons and streams the
	// resulting hit records into sink.
	BeamOn(ctx context.Context, neutrons int, sink EventSink) error
}
