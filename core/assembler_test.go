package core

import (
	"context"
	"errors"
	"testing"

	"github.com/neutronworks/scintcam-simulator/model"
	"github.com/neutronworks/scintcam-simulator/params"
)

// newTestAssembler builds the standard fixture: fake engine, default
// geometry parameters, fresh sequencer.
func newTestAssembler(t *testing.T) (*GeometryAssembler, *FakeEngine, *Sequencer, *params.Store) {
	t.Helper()
	engine := NewFakeEngine()
	store := params.NewStore()
	if err := DeclareGeometryParams(store); err != nil {
		t.Fatalf("DeclareGeometryParams failed: %v", err)
	}
	seq := NewSequencer(nil)
	resolver := NewMaterialResolver(engine, nil)
	ga := NewGeometryAssembler(engine, resolver, seq, store, nil)
	return ga, engine, seq, store
}

func TestAssemble_BuildsHierarchy(t *testing.T) {
	ga, engine, _, _ := newTestAssembler(t)

	asm, err := ga.Assemble()
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	if engine.PlacementCount() != 6 {
		t.Errorf("expected 6 placements (world, 2 enclosure arms, sample, scint, coating), got %d", engine.PlacementCount())
	}
	for _, h := range []struct {
		got  string
		want string
	}{
		{asm.World.Name, "world"},
		{asm.Enclosure.Name, "enclosure_main"},
		{asm.Sample.Name, "sample"},
		{asm.Scintillator.Name, "scintillator"},
		{asm.Coating.Name, "coating"},
	} {
		if h.got != h.want {
			t.Errorf("handle name mismatch: got %q, want %q", h.got, h.want)
		}
	}

	// Initial materials follow the store defaults.
	if got := engine.MaterialOf(asm.Sample.ID); got.Code != "G4_GRAPHITE" {
		t.Errorf("sample material: got %q, want G4_GRAPHITE", got.Code)
	}
	if got := engine.MaterialOf(asm.Scintillator.ID); got.Code != "PVT" {
		t.Errorf("scintillator material: got %q, want PVT", got.Code)
	}
	if got := engine.MaterialOf(asm.Scintillator.ID); got.HasOptics() {
		t.Errorf("scintillator bulk must be placed without optics")
	}
}

// Second Assemble must fail with ErrAlreadyAssembled and register no
// further volumes.
func TestAssemble_SecondCallFails(t *testing.T) {
	ga, engine, _, _ := newTestAssembler(t)

	if _, err := ga.Assemble(); err != nil {
		t.Fatalf("first Assemble failed: %v", err)
	}
	before := engine.PlacementCount()

	_, err := ga.Assemble()
	if !errors.Is(err, ErrAlreadyAssembled) {
		t.Fatalf("expected ErrAlreadyAssembled, got %v", err)
	}
	if engine.PlacementCount() != before {
		t.Errorf("second Assemble registered volumes: %d -> %d", before, engine.PlacementCount())
	}
}

// A component pushed outside its parent must abort the build before
// anything reaches the engine.
func TestAssemble_PlacementOverflow(t *testing.T) {
	ga, engine, _, store := newTestAssembler(t)

	// Thick enough that the plate crosses the enclosure end wall.
	if _, err := store.Set(ParamScintThickness, 60.0); err != nil {
		t.Fatalf("Set(scintThickness) failed: %v", err)
	}

	_, err := ga.Assemble()
	if !errors.Is(err, ErrPlacementOverflow) {
		t.Fatalf("expected ErrPlacementOverflow, got %v", err)
	}
	if engine.PlacementCount() != 0 {
		t.Errorf("overflowing build leaked %d placements into the engine", engine.PlacementCount())
	}
	if ga.Assembled() {
		t.Errorf("failed build must not mark the assembler as assembled")
	}
}

// Optical attachment before the engine reports initialization must fail
// with a sequencing violation and leave the volume untouched.
func TestApplyDeferredOptics_PreInitBlocked(t *testing.T) {
	ga, engine, seq, _ := newTestAssembler(t)

	asm, err := ga.Assemble()
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	if err := seq.MarkGeometryBuilt(); err != nil {
		t.Fatalf("MarkGeometryBuilt failed: %v", err)
	}

	err = ga.ApplyDeferredOptics(asm.Scintillator, "PVT")
	if !errors.Is(err, ErrSequencingViolation) {
		t.Fatalf("expected ErrSequencingViolation, got %v", err)
	}
	if engine.OpticsOf(asm.Scintillator.ID) != nil {
		t.Errorf("optics must not be attached before initialization")
	}
	if got := engine.MaterialOf(asm.Scintillator.ID); got.Code != "PVT" || got.HasOptics() {
		t.Errorf("volume material changed by blocked attach: %+v", got)
	}
}

func TestApplyDeferredOptics_AfterInit(t *testing.T) {
	ga, engine, seq, _ := newTestAssembler(t)

	asm, err := ga.Assemble()
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	if err := seq.MarkGeometryBuilt(); err != nil {
		t.Fatalf("MarkGeometryBuilt failed: %v", err)
	}
	if err := engine.Initialize(context.Background()); err != nil {
		t.Fatalf("engine Initialize failed: %v", err)
	}
	if err := seq.MarkEngineInitialized(); err != nil {
		t.Fatalf("MarkEngineInitialized failed: %v", err)
	}

	if err := ga.ApplyDeferredOptics(asm.Scintillator, "OPSC-100"); err != nil {
		t.Fatalf("ApplyDeferredOptics failed: %v", err)
	}
	table := engine.OpticsOf(asm.Scintillator.ID)
	if table == nil {
		t.Fatalf("expected optical table attached")
	}
	if table.ScintillationYield != 10000 {
		t.Errorf("expected OPSC-100 yield 10000, got %g", table.ScintillationYield)
	}

	// Re-applying replaces, never duplicates, and keeps working in
	// later phases.
	if err := seq.MarkOpticsApplied(); err != nil {
		t.Fatalf("MarkOpticsApplied failed: %v", err)
	}
	if err := ga.ApplyDeferredOptics(asm.Scintillator, "ISC-1000"); err != nil {
		t.Fatalf("re-apply failed: %v", err)
	}
	table = engine.OpticsOf(asm.Scintillator.ID)
	if table.ScintillationYield != 38000 {
		t.Errorf("expected replacement table yield 38000, got %g", table.ScintillationYield)
	}
}

// An unknown scintillator code in the optics path must fail without
// touching the attached table.
func TestApplyDeferredOptics_UnknownCode(t *testing.T) {
	ga, engine, seq, _ := newTestAssembler(t)

	asm, err := ga.Assemble()
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	if err := seq.MarkGeometryBuilt(); err != nil {
		t.Fatalf("MarkGeometryBuilt failed: %v", err)
	}
	if err := engine.Initialize(context.Background()); err != nil {
		t.Fatalf("engine Initialize failed: %v", err)
	}
	if err := seq.MarkEngineInitialized(); err != nil {
		t.Fatalf("MarkEngineInitialized failed: %v", err)
	}
	if err := ga.ApplyDeferredOptics(asm.Scintillator, "PVT"); err != nil {
		t.Fatalf("baseline attach failed: %v", err)
	}

	err = ga.ApplyDeferredOptics(asm.Scintillator, "XYZ-9")
	if !errors.Is(err, ErrUnknownScintillator) {
		t.Fatalf("expected ErrUnknownScintillator, got %v", err)
	}
	table := engine.OpticsOf(asm.Scintillator.ID)
	if table == nil || table.ScintillationYield != 10000 {
		t.Errorf("failed attach must keep the previous table, got %+v", table)
	}
}

func TestSetVolumeMaterial_SwapsInPlace(t *testing.T) {
	ga, engine, _, _ := newTestAssembler(t)

	asm, err := ga.Assemble()
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	resolver := NewMaterialResolver(engine, nil)
	water, err := resolver.ResolveBulk("G4_WATER")
	if err != nil {
		t.Fatalf("ResolveBulk(G4_WATER) failed: %v", err)
	}
	before := engine.PlacementCount()

	if err := ga.SetVolumeMaterial(asm.Sample, water); err != nil {
		t.Fatalf("SetVolumeMaterial failed: %v", err)
	}
	if got := engine.MaterialOf(asm.Sample.ID); got.Code != "G4_WATER" {
		t.Errorf("expected G4_WATER after swap, got %q", got.Code)
	}
	if engine.PlacementCount() != before {
		t.Errorf("material swap changed topology: %d -> %d placements", before, engine.PlacementCount())
	}
}

func TestSetVolumeMaterial_RequiresAssembly(t *testing.T) {
	ga, engine, _, _ := newTestAssembler(t)

	resolver := NewMaterialResolver(engine, nil)
	water, err := resolver.ResolveBulk("G4_WATER")
	if err != nil {
		t.Fatalf("ResolveBulk failed: %v", err)
	}
	if ga.Assembly() != nil {
		t.Fatalf("expected nil assembly before build")
	}
	err = ga.SetVolumeMaterial(model.VolumeHandle{ID: 1, Name: "sample"}, water)
	if err == nil {
		t.Fatalf("expected error when swapping material before assembly")
	}
}
