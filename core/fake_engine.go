package core

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"sync"

	"github.com/neutronworks/scintcam-simulator/internal/logging"
	"github.com/neutronworks/scintcam-simulator/model"
)

// FakeEngine is an in-memory Engine double with a seeded NIST-style
// material registry and deterministic hit synthesis. It exists for unit
// tests and for dry runs of the full configuration path without a real
// transport engine linked in.
//
// The fake enforces the same ordering contract as a real engine:
// optical property tables are rejected until Initialize has completed,
// and BeamOn requires a registered world volume. Tests can force
// failures through the Fail* knobs.
type FakeEngine struct {
	mu sync.Mutex

	registry map[model.MaterialCode]*model.MaterialDefinition

	nextID     model.VolumeID
	placements map[model.VolumeID]PlacementSpec
	order      []model.VolumeID

	materials map[model.VolumeID]*model.MaterialDefinition
	optics    map[model.VolumeID]*model.OpticalPropertyTable

	initialized bool
	initCalls   int
	beamCalls   int

	// Failure knobs for tests.
	FailInitialize error
	FailBeamOn     error
	FailPlacement  error
}

// NewFakeEngine creates a fake engine with the common NIST codes
// preloaded.
func NewFakeEngine() *FakeEngine {
	return &FakeEngine{
		registry:   builtinRegistry(),
		nextID:     1,
		placements: make(map[model.VolumeID]PlacementSpec),
		materials:  make(map[model.VolumeID]*model.MaterialDefinition),
		optics:     make(map[model.VolumeID]*model.OpticalPropertyTable),
	}
}

// builtinRegistry seeds the fake's material lookup with the subset of
// the NIST database the detector configuration actually reaches for.
func builtinRegistry() map[model.MaterialCode]*model.MaterialDefinition {
	defs := []*model.MaterialDefinition{
		{
			Code: "G4_AIR", Name: "Air (dry, sea level)", DensityGCM3: 0.0012048,
			Composition: []model.ElementFraction{
				{Symbol: "N", Fraction: 0.7553}, {Symbol: "O", Fraction: 0.2318},
				{Symbol: "Ar", Fraction: 0.0128}, {Symbol: "C", Fraction: 0.0001},
			},
		},
		{
			Code: "G4_GRAPHITE", Name: "Graphite", DensityGCM3: 2.21,
			Composition: []model.ElementFraction{{Symbol: "C", Fraction: 1.0}},
		},
		{
			Code: "G4_WATER", Name: "Water", DensityGCM3: 1.0,
			Composition: []model.ElementFraction{
				{Symbol: "H", Fraction: 0.1119}, {Symbol: "O", Fraction: 0.8881},
			},
		},
		{
			Code: "G4_Al", Name: "Aluminium", DensityGCM3: 2.699,
			Composition: []model.ElementFraction{{Symbol: "Al", Fraction: 1.0}},
		},
		{
			Code: "G4_Fe", Name: "Iron", DensityGCM3: 7.874,
			Composition: []model.ElementFraction{{Symbol: "Fe", Fraction: 1.0}},
		},
		{
			Code: "G4_PLEXIGLASS", Name: "PMMA", DensityGCM3: 1.19,
			Composition: []model.ElementFraction{
				{Symbol: "H", Fraction: 0.0805}, {Symbol: "C", Fraction: 0.5998},
				{Symbol: "O", Fraction: 0.3196},
			},
		},
		{
			Code: "G4_POLYETHYLENE", Name: "Polyethylene", DensityGCM3: 0.94,
			Composition: []model.ElementFraction{
				{Symbol: "H", Fraction: 0.1437}, {Symbol: "C", Fraction: 0.8563},
			},
		},
	}
	out := make(map[model.MaterialCode]*model.MaterialDefinition, len(defs))
	for _, d := range defs {
		out[d.Code] = d
	}
	return out
}

// FindOrBuildMaterial returns a copy of a registered definition.
func (e *FakeEngine) FindOrBuildMaterial(code model.MaterialCode) (*model.MaterialDefinition, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	def, ok := e.registry[code]
	if !ok {
		return nil, fmt.Errorf("material %q not in registry", code)
	}
	return def.Clone(), nil
}

// PlaceVolume registers a placement and returns its ID.
func (e *FakeEngine) PlaceVolume(spec PlacementSpec) (model.VolumeID, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.FailPlacement != nil {
		return 0, e.FailPlacement
	}
	if spec.Name == "" {
		return 0, errors.New("placement needs a name")
	}
	if spec.Parent != 0 {
		if _, ok := e.placements[spec.Parent]; !ok {
			return 0, fmt.Errorf("parent volume %d not registered", spec.Parent)
		}
	}
	id := e.nextID
	e.nextID++
	e.placements[id] = spec
	e.order = append(e.order, id)
	e.materials[id] = spec.Material.Clone()
	return id, nil
}

// SetVolumeMaterial swaps the material filling a placed volume.
func (e *FakeEngine) SetVolumeMaterial(id model.VolumeID, def *model.MaterialDefinition) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.placements[id]; !ok {
		return fmt.Errorf("volume %d not registered", id)
	}
	if def == nil {
		return errors.New("nil material definition")
	}
	e.materials[id] = def.Clone()
	return nil
}

// AttachOpticalProperties stores (replacing, never duplicating) the
// optical table for a volume's material. Rejected before Initialize.
func (e *FakeEngine) AttachOpticalProperties(id model.VolumeID, table *model.OpticalPropertyTable) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.initialized {
		return errors.New("engine not initialized: optical property tables not accepted yet")
	}
	if _, ok := e.placements[id]; !ok {
		return fmt.Errorf("volume %d not registered", id)
	}
	if table == nil {
		return errors.New("nil optical property table")
	}
	e.optics[id] = table.Clone()
	return nil
}

// Initialize marks the engine ready. Idempotent calls are rejected the
// way a real run manager rejects re-initialization.
func (e *FakeEngine) Initialize(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	e.initCalls++
	if e.FailInitialize != nil {
		return e.FailInitialize
	}
	if e.initialized {
		return errors.New("engine already initialized")
	}
	if len(e.placements) == 0 {
		return errors.New("no world volume registered")
	}
	e.initialized = true
	return nil
}

// eventColumns is the fake's hit record schema.
var eventColumns = []string{"neutron_id", "x_mm", "y_mm", "z_mm", "tof_ns", "edep_mev"}

// BeamOn synthesizes one hit record per neutron. Values are derived
// from the neutron index so runs are reproducible.
func (e *FakeEngine) BeamOn(ctx context.Context, neutrons int, sink EventSink) error {
	e.mu.Lock()
	if !e.initialized {
		e.mu.Unlock()
		return errors.New("engine not initialized")
	}
	if e.FailBeamOn != nil {
		err := e.FailBeamOn
		e.mu.Unlock()
		return err
	}
	e.beamCalls++
	call := e.beamCalls
	e.mu.Unlock()

	if neutrons < 0 {
		return fmt.Errorf("negative neutron count %d", neutrons)
	}
	if sink == nil {
		return errors.New("nil event sink")
	}
	if err := sink.Header(append([]string(nil), eventColumns...)); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i := 0; i < neutrons; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		// Spread hits over a 100 mm square with a pseudo-random but
		// reproducible pattern keyed on (call, index).
		phase := float64(call)*1.618 + float64(i)*0.377
		x := 50 * math.Sin(phase*7.93)
		y := 50 * math.Cos(phase*5.41)
		z := 2 * math.Sin(phase*3.77)
		tof := 1000 + 50*math.Sin(phase*2.13)
		edep := 0.5 + 0.45*math.Cos(phase*4.42)
		rec := []string{
			strconv.Itoa(i),
			strconv.FormatFloat(x, 'f', 3, 64),
			strconv.FormatFloat(y, 'f', 3, 64),
			strconv.FormatFloat(z, 'f', 3, 64),
			strconv.FormatFloat(tof, 'f', 3, 64),
			strconv.FormatFloat(edep, 'f', 4, 64),
		}
		if err := sink.Write(rec); err != nil {
			return fmt.Errorf("writing record %d: %w", i, err)
		}
	}
	if log := logging.LoggerFromContext(ctx); log != nil {
		log.Debug("pulse synthesized",
			logging.Int("neutrons", neutrons),
			logging.Int("beam_call", call))
	}
	return nil
}

//
// ---------- Inspection helpers for tests ----------
//

// Initialized reports whether Initialize completed.
func (e *FakeEngine) Initialized() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.initialized
}

// PlacementCount returns how many volumes were registered.
func (e *FakeEngine) PlacementCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.placements)
}

// Placement returns the spec a volume was registered with.
func (e *FakeEngine) Placement(id model.VolumeID) (PlacementSpec, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	spec, ok := e.placements[id]
	return spec, ok
}

// MaterialOf returns the material currently filling a volume.
func (e *FakeEngine) MaterialOf(id model.VolumeID) *model.MaterialDefinition {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.materials[id].Clone()
}

// OpticsOf returns the optical table attached for a volume, nil if none.
func (e *FakeEngine) OpticsOf(id model.VolumeID) *model.OpticalPropertyTable {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.optics[id].Clone()
}

// BeamCalls returns how many BeamOn invocations completed the gate.
func (e *FakeEngine) BeamCalls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.beamCalls
}
