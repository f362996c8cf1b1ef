package model

// MaterialCode names a material in either the engine's built-in registry
// (e.g. "G4_GRAPHITE") or the scintillator recipe catalog (e.g. "PVT",
// "OPSC-100").
type MaterialCode string

// ElementFraction is one component of a material composition by mass.
type ElementFraction struct {
	Symbol   string  // chemical symbol, e.g. "C"
	Fraction float64 // mass fraction in [0,1]
}

// OpticalSample is one point of a property curve over photon energy.
type OpticalSample struct {
	PhotonEnergyEV float64
	Value          float64
}

// OpticalPropertyTable carries the optical response of a scintillating
// material. It is kept separable from the bulk definition so attachment
// can be deferred until the engine is ready to accept property tables.
type OpticalPropertyTable struct {
	ScintillationYield float64 // photons per MeV deposited
	YieldResolution    float64 // intrinsic resolution scale, 1.0 = Poisson
	FastDecayNS        float64 // dominant decay constant in nanoseconds
	RefractiveIndex    []OpticalSample
	AbsorptionLengthMM []OpticalSample
	EmissionSpectrum   []OpticalSample // relative intensity, unnormalized
}

// Clone returns a deep copy so holders can mutate samples independently.
func (t *OpticalPropertyTable) Clone() *OpticalPropertyTable {
	if t == nil {
		return nil
	}
	out := *t
	out.RefractiveIndex = append([]OpticalSample(nil), t.RefractiveIndex...)
	out.AbsorptionLengthMM = append([]OpticalSample(nil), t.AbsorptionLengthMM...)
	out.EmissionSpectrum = append([]OpticalSample(nil), t.EmissionSpectrum...)
	return &out
}

// MaterialDefinition is the engine-neutral description of a material:
// bulk composition plus, when resolved with optics, the property table.
type MaterialDefinition struct {
	Code        MaterialCode
	Name        string
	DensityGCM3 float64
	Composition []ElementFraction
	Optical     *OpticalPropertyTable // nil unless resolved with optics
}

// Clone returns a deep copy of the definition.
func (m *MaterialDefinition) Clone() *MaterialDefinition {
	if m == nil {
		return nil
	}
	out := *m
	out.Composition = append([]ElementFraction(nil), m.Composition...)
	out.Optical = m.Optical.Clone()
	return &out
}

// HasOptics reports whether an optical table is present.
func (m *MaterialDefinition) HasOptics() bool {
	return m != nil && m.Optical != nil
}
