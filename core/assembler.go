package core

import (
	"errors"
	"fmt"

	"github.com/neutronworks/scintcam-simulator/internal/logging"
	"github.com/neutronworks/scintcam-simulator/model"
	"github.com/neutronworks/scintcam-simulator/params"
)

var (
	ErrAlreadyAssembled  = errors.New("geometry already assembled")
	ErrPlacementOverflow = errors.New("placement exceeds parent bounds")
)

// Parameter names the assembler reads at assembly time. All dimensions
// are half extents in millimetres.
const (
	ParamWorldSize        = "worldSize"
	ParamScintSize        = "scintSize"
	ParamScintThickness   = "scintThickness"
	ParamSampleSize       = "sampleSize"
	ParamSampleThickness  = "sampleThickness"
	ParamCoatingThickness = "coatingThickness"
	ParamSamplePosition   = "samplePosition"
	ParamScintPosition    = "scintPosition"
	ParamSampleMaterial   = "sampleMaterial"
	ParamScintillator     = "scintillator"
)

// DeclareGeometryParams registers the geometry and material parameters
// with their defaults. Kept next to the assembler so the reader of a
// dimension lives beside its declaration.
func DeclareGeometryParams(store *params.Store) error {
	decls := []struct {
		name     string
		def      any
		v        params.Validator
		guidance string
	}{
		{ParamWorldSize, 500.0, params.PositiveFloat(), "half extent of the world envelope in mm"},
		{ParamScintSize, 50.0, params.PositiveFloat(), "half width of the square scintillator plate in mm"},
		{ParamScintThickness, 5.0, params.PositiveFloat(), "half thickness of the scintillator plate in mm"},
		{ParamSampleSize, 25.0, params.PositiveFloat(), "half width of the square sample stage in mm"},
		{ParamSampleThickness, 5.0, params.PositiveFloat(), "half thickness of the sample stage in mm"},
		{ParamCoatingThickness, 0.05, params.PositiveFloat(), "half thickness of the reflective coating in mm"},
		{ParamSamplePosition, []float64{0, 0, -150}, params.VectorLen(3), "sample stage centre in the enclosure, mm"},
		{ParamScintPosition, []float64{0, 0, 150}, params.VectorLen(3), "scintillator plate centre in the enclosure, mm"},
		{ParamSampleMaterial, "G4_GRAPHITE", params.NonEmptyString(), "bulk material code for the sample stage"},
		{ParamScintillator, "PVT", params.NonEmptyString(), "scintillator recipe code for the camera plate"},
	}
	for _, d := range decls {
		if err := store.Declare(d.name, d.def, d.v, d.guidance); err != nil {
			return fmt.Errorf("declaring %q: %w", d.name, err)
		}
	}
	return nil
}

// Assembly holds the handles to the reconfigurable volumes after the
// one-shot build. Handles reference engine-owned placements; the
// assembly never destroys them.
type Assembly struct {
	World        model.VolumeHandle
	Enclosure    model.VolumeHandle
	Sample       model.VolumeHandle
	Scintillator model.VolumeHandle
	Coating      model.VolumeHandle
}

// GeometryAssembler builds the detector volume hierarchy exactly once:
// world envelope, L-shaped camera enclosure, then the sample stage,
// scintillator plate and reflective coating inside the main arm. After
// assembly only material swaps and optical attachment remain legal; the
// topology is immutable.
type GeometryAssembler struct {
	engine   VolumePlacer
	resolver *MaterialResolver
	seq      *Sequencer
	store    *params.Store
	logger   logging.Logger

	assembled bool
	assembly  *Assembly
	placed    int
}

// NewGeometryAssembler wires an assembler against the engine's volume
// surface. The store provides dimensions and initial material codes at
// assembly time; the sequencer gates deferred optical attachment.
func NewGeometryAssembler(engine VolumePlacer, resolver *MaterialResolver, seq *Sequencer, store *params.Store, logger logging.Logger) *GeometryAssembler {
	if logger == nil {
		logger = logging.Noop()
	}
	return &GeometryAssembler{
		engine:   engine,
		resolver: resolver,
		seq:      seq,
		store:    store,
		logger:   logger,
	}
}

// Assembled reports whether the one-shot build has happened.
func (g *GeometryAssembler) Assembled() bool {
	return g.assembled
}

// Assembly returns the built assembly, nil before Assemble.
func (g *GeometryAssembler) Assembly() *Assembly {
	return g.assembly
}

// PlacedCount reports how many volumes Assemble registered.
func (g *GeometryAssembler) PlacedCount() int {
	return g.placed
}

// plannedPlacement is one node of the build plan. parent indexes into
// the plan slice; -1 is the root.
type plannedPlacement struct {
	name        string
	shape       Box
	material    *model.MaterialDefinition
	translation Vec3
	parent      int
}

// Assemble performs the one-shot build. Every placement is validated
// against its parent's bounds before anything is registered with the
// engine, so an overflow leaves no volumes behind. A second call fails
// with ErrAlreadyAssembled and registers nothing.
func (g *GeometryAssembler) Assemble() (*Assembly, error) {
	if g.assembled {
		return nil, fmt.Errorf("%w: world %q", ErrAlreadyAssembled, g.assembly.World.Name)
	}

	plan, err := g.buildPlan()
	if err != nil {
		return nil, err
	}
	for _, p := range plan {
		if p.parent < 0 {
			continue
		}
		parent := plan[p.parent]
		if !fitsWithin(p.shape, p.translation, parent.shape) {
			return nil, fmt.Errorf("%w: %q (half %+v at %+v) inside %q (half %+v)",
				ErrPlacementOverflow, p.name, p.shape.Half, p.translation, parent.name, parent.shape.Half)
		}
	}

	ids := make([]model.VolumeID, len(plan))
	for i, p := range plan {
		var parentID model.VolumeID
		if p.parent >= 0 {
			parentID = ids[p.parent]
		}
		id, err := g.engine.PlaceVolume(PlacementSpec{
			Name:        p.name,
			Shape:       p.shape,
			Material:    p.material,
			Translation: p.translation,
			Parent:      parentID,
		})
		if err != nil {
			return nil, fmt.Errorf("placing %q: %w", p.name, err)
		}
		ids[i] = id
		g.logger.Debug("volume placed",
			logging.String("name", p.name),
			logging.Any("id", id),
			logging.String("material", string(p.material.Code)))
	}

	g.assembly = &Assembly{
		World:        model.VolumeHandle{ID: ids[0], Name: plan[0].name},
		Enclosure:    model.VolumeHandle{ID: ids[1], Name: plan[1].name},
		Sample:       model.VolumeHandle{ID: ids[3], Name: plan[3].name},
		Scintillator: model.VolumeHandle{ID: ids[4], Name: plan[4].name},
		Coating:      model.VolumeHandle{ID: ids[5], Name: plan[5].name},
	}
	g.assembled = true
	g.placed = len(plan)
	g.logger.Info("geometry assembled",
		logging.Int("volumes", len(plan)),
		logging.String("sample_material", string(plan[3].material.Code)),
		logging.String("scintillator", string(plan[4].material.Code)))
	return g.assembly, nil
}

// buildPlan computes the placement list from the configured dimensions
// and resolves the initial materials. Plan order: world, enclosure main
// arm, enclosure foot, sample, scintillator, coating.
func (g *GeometryAssembler) buildPlan() ([]plannedPlacement, error) {
	dims := map[string]float64{}
	for _, name := range []string{
		ParamWorldSize, ParamScintSize, ParamScintThickness,
		ParamSampleSize, ParamSampleThickness, ParamCoatingThickness,
	} {
		v, err := g.store.GetFloat(name)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", name, err)
		}
		dims[name] = v
	}
	samplePos, err := g.store.GetFloatVector(ParamSamplePosition)
	if err != nil {
		return nil, fmt.Errorf("reading %q: %w", ParamSamplePosition, err)
	}
	scintPos, err := g.store.GetFloatVector(ParamScintPosition)
	if err != nil {
		return nil, fmt.Errorf("reading %q: %w", ParamScintPosition, err)
	}
	sampleCode, err := g.store.GetString(ParamSampleMaterial)
	if err != nil {
		return nil, fmt.Errorf("reading %q: %w", ParamSampleMaterial, err)
	}
	scintCode, err := g.store.GetString(ParamScintillator)
	if err != nil {
		return nil, fmt.Errorf("reading %q: %w", ParamScintillator, err)
	}

	air, err := g.resolver.ResolveBulk("G4_AIR")
	if err != nil {
		return nil, fmt.Errorf("resolving envelope air: %w", err)
	}
	sampleMat, err := g.resolver.ResolveBulk(model.MaterialCode(sampleCode))
	if err != nil {
		return nil, fmt.Errorf("resolving sample material: %w", err)
	}
	scintBulk, err := g.resolver.ResolveScintillator(model.MaterialCode(scintCode), false)
	if err != nil {
		return nil, fmt.Errorf("resolving scintillator: %w", err)
	}
	coatMat, err := g.resolver.ResolveBulk("G4_Al")
	if err != nil {
		return nil, fmt.Errorf("resolving coating material: %w", err)
	}

	world := dims[ParamWorldSize]
	scintHalf := dims[ParamScintSize]
	scintThick := dims[ParamScintThickness]
	sampleHalf := dims[ParamSampleSize]
	sampleThick := dims[ParamSampleThickness]
	coatThick := dims[ParamCoatingThickness]

	// The enclosure's main arm runs along the beam axis; the foot juts
	// out in +X at the scintillator end to house the camera optics,
	// forming the L.
	mainHalf := Vec3{X: scintHalf + 10, Y: scintHalf + 10, Z: 200}
	footHalf := Vec3{X: 100, Y: scintHalf + 10, Z: 50}
	footCentre := Vec3{X: mainHalf.X + footHalf.X, Y: 0, Z: 150}

	sampleCentre := Vec3{X: samplePos[0], Y: samplePos[1], Z: samplePos[2]}
	scintCentre := Vec3{X: scintPos[0], Y: scintPos[1], Z: scintPos[2]}
	// Coating sits flush on the upstream face of the scintillator.
	coatCentre := Vec3{X: scintCentre.X, Y: scintCentre.Y, Z: scintCentre.Z - scintThick - coatThick}

	plan := []plannedPlacement{
		{name: "world", shape: Box{Half: Vec3{X: world, Y: world, Z: world}}, material: air, parent: -1},
		{name: "enclosure_main", shape: Box{Half: mainHalf}, material: air, translation: Vec3{}, parent: 0},
		{name: "enclosure_foot", shape: Box{Half: footHalf}, material: air, translation: footCentre, parent: 0},
		{name: "sample", shape: Box{Half: Vec3{X: sampleHalf, Y: sampleHalf, Z: sampleThick}}, material: sampleMat, translation: sampleCentre, parent: 1},
		{name: "scintillator", shape: Box{Half: Vec3{X: scintHalf, Y: scintHalf, Z: scintThick}}, material: scintBulk, translation: scintCentre, parent: 1},
		{name: "coating", shape: Box{Half: Vec3{X: scintHalf, Y: scintHalf, Z: coatThick}}, material: coatMat, translation: coatCentre, parent: 1},
	}
	return plan, nil
}

// SetVolumeMaterial swaps the material filling a held volume. Topology
// is untouched; the engine keeps owning the placement.
func (g *GeometryAssembler) SetVolumeMaterial(h model.VolumeHandle, def *model.MaterialDefinition) error {
	if !g.assembled {
		return fmt.Errorf("no assembly: cannot set material on %q", h.Name)
	}
	if err := g.engine.SetVolumeMaterial(h.ID, def); err != nil {
		return fmt.Errorf("swapping material on %q: %w", h.Name, err)
	}
	g.logger.Info("volume material swapped",
		logging.String("volume", h.Name),
		logging.String("material", string(def.Code)))
	return nil
}

// ApplyDeferredOptics resolves the scintillator code with its optical
// table and attaches the table to the held volume's current material.
// Gated on the engine having reported initialization complete; before
// that the call fails and the volume is left untouched. Re-applying is
// legal: the engine replaces the table rather than duplicating it.
func (g *GeometryAssembler) ApplyDeferredOptics(h model.VolumeHandle, code model.MaterialCode) error {
	if err := g.seq.RequireAtLeast(PhaseEngineInitialized); err != nil {
		return fmt.Errorf("optics for %q on %q: %w", code, h.Name, err)
	}
	def, err := g.resolver.ResolveScintillator(code, true)
	if err != nil {
		return fmt.Errorf("optics for %q: %w", h.Name, err)
	}
	if err := g.engine.AttachOpticalProperties(h.ID, def.Optical); err != nil {
		return fmt.Errorf("attaching optics to %q: %w", h.Name, err)
	}
	g.logger.Info("optical properties attached",
		logging.String("volume", h.Name),
		logging.String("code", string(code)),
		logging.Any("yield_per_mev", def.Optical.ScintillationYield))
	return nil
}
