package core

import "github.com/neutronworks/scintcam-simulator/model"

// builtinScintillators returns the recipe set compiled into the
// resolver: the generic plastic base (PVT) plus the organic (OPSC) and
// inorganic (ISC) catalog entries the camera is routinely operated
// with. Each recipe carries the full optical table; resolution strips
// it when only the bulk definition is wanted.
//
// Photon energy grids are in eV (1239.84 eV nm / wavelength), curves
// sampled coarsely around the emission band.
func builtinScintillators() map[model.MaterialCode]*model.MaterialDefinition {
	defs := []*model.MaterialDefinition{
		{
			Code: "PVT", Name: "Polyvinyltoluene base", DensityGCM3: 1.023,
			Composition: []model.ElementFraction{
				{Symbol: "C", Fraction: 0.9153}, {Symbol: "H", Fraction: 0.0847},
			},
			Optical: &model.OpticalPropertyTable{
				ScintillationYield: 10000, YieldResolution: 1.0, FastDecayNS: 2.1,
				RefractiveIndex: []model.OpticalSample{
					{PhotonEnergyEV: 2.00, Value: 1.58},
					{PhotonEnergyEV: 3.50, Value: 1.58},
				},
				AbsorptionLengthMM: []model.OpticalSample{
					{PhotonEnergyEV: 2.00, Value: 3800},
					{PhotonEnergyEV: 2.92, Value: 3800},
					{PhotonEnergyEV: 3.30, Value: 1200},
				},
				EmissionSpectrum: []model.OpticalSample{
					{PhotonEnergyEV: 2.61, Value: 0.20},
					{PhotonEnergyEV: 2.79, Value: 0.60},
					{PhotonEnergyEV: 2.92, Value: 1.00},
					{PhotonEnergyEV: 2.99, Value: 0.90},
					{PhotonEnergyEV: 3.10, Value: 0.40},
				},
			},
		},
		{
			Code: "OPSC-100", Name: "Organic plastic scintillator, general purpose", DensityGCM3: 1.023,
			Composition: []model.ElementFraction{
				{Symbol: "C", Fraction: 0.9147}, {Symbol: "H", Fraction: 0.0853},
			},
			Optical: &model.OpticalPropertyTable{
				ScintillationYield: 10000, YieldResolution: 1.0, FastDecayNS: 2.1,
				RefractiveIndex: []model.OpticalSample{
					{PhotonEnergyEV: 2.00, Value: 1.58},
					{PhotonEnergyEV: 3.50, Value: 1.58},
				},
				AbsorptionLengthMM: []model.OpticalSample{
					{PhotonEnergyEV: 2.00, Value: 3800},
					{PhotonEnergyEV: 2.92, Value: 3800},
					{PhotonEnergyEV: 3.30, Value: 1500},
				},
				EmissionSpectrum: []model.OpticalSample{
					{PhotonEnergyEV: 2.61, Value: 0.20},
					{PhotonEnergyEV: 2.79, Value: 0.60},
					{PhotonEnergyEV: 2.92, Value: 1.00},
					{PhotonEnergyEV: 2.99, Value: 0.85},
					{PhotonEnergyEV: 3.10, Value: 0.35},
				},
			},
		},
		{
			Code: "OPSC-101", Name: "Organic plastic scintillator, fast timing", DensityGCM3: 1.023,
			Composition: []model.ElementFraction{
				{Symbol: "C", Fraction: 0.9147}, {Symbol: "H", Fraction: 0.0853},
			},
			Optical: &model.OpticalPropertyTable{
				ScintillationYield: 10400, YieldResolution: 1.0, FastDecayNS: 1.8,
				RefractiveIndex: []model.OpticalSample{
					{PhotonEnergyEV: 2.00, Value: 1.58},
					{PhotonEnergyEV: 3.50, Value: 1.58},
				},
				AbsorptionLengthMM: []model.OpticalSample{
					{PhotonEnergyEV: 2.00, Value: 1600},
					{PhotonEnergyEV: 3.04, Value: 1600},
					{PhotonEnergyEV: 3.40, Value: 600},
				},
				EmissionSpectrum: []model.OpticalSample{
					{PhotonEnergyEV: 2.70, Value: 0.20},
					{PhotonEnergyEV: 2.88, Value: 0.55},
					{PhotonEnergyEV: 3.04, Value: 1.00},
					{PhotonEnergyEV: 3.18, Value: 0.50},
				},
			},
		},
		{
			Code: "ISC-1000", Name: "Thallium-doped sodium iodide", DensityGCM3: 3.667,
			Composition: []model.ElementFraction{
				{Symbol: "Na", Fraction: 0.1534}, {Symbol: "I", Fraction: 0.8466},
			},
			Optical: &model.OpticalPropertyTable{
				ScintillationYield: 38000, YieldResolution: 1.0, FastDecayNS: 230,
				RefractiveIndex: []model.OpticalSample{
					{PhotonEnergyEV: 2.00, Value: 1.85},
					{PhotonEnergyEV: 3.50, Value: 1.85},
				},
				AbsorptionLengthMM: []model.OpticalSample{
					{PhotonEnergyEV: 2.00, Value: 4000},
					{PhotonEnergyEV: 2.99, Value: 4000},
					{PhotonEnergyEV: 3.40, Value: 1000},
				},
				EmissionSpectrum: []model.OpticalSample{
					{PhotonEnergyEV: 2.48, Value: 0.15},
					{PhotonEnergyEV: 2.70, Value: 0.50},
					{PhotonEnergyEV: 2.99, Value: 1.00},
					{PhotonEnergyEV: 3.35, Value: 0.30},
				},
			},
		},
		{
			Code: "ISC-1100", Name: "Thallium-doped caesium iodide", DensityGCM3: 4.51,
			Composition: []model.ElementFraction{
				{Symbol: "Cs", Fraction: 0.5115}, {Symbol: "I", Fraction: 0.4885},
			},
			Optical: &model.OpticalPropertyTable{
				ScintillationYield: 54000, YieldResolution: 1.0, FastDecayNS: 1000,
				RefractiveIndex: []model.OpticalSample{
					{PhotonEnergyEV: 1.80, Value: 1.79},
					{PhotonEnergyEV: 3.10, Value: 1.79},
				},
				AbsorptionLengthMM: []model.OpticalSample{
					{PhotonEnergyEV: 1.80, Value: 1000},
					{PhotonEnergyEV: 2.25, Value: 1000},
					{PhotonEnergyEV: 2.90, Value: 350},
				},
				EmissionSpectrum: []model.OpticalSample{
					{PhotonEnergyEV: 2.00, Value: 0.45},
					{PhotonEnergyEV: 2.25, Value: 1.00},
					{PhotonEnergyEV: 2.58, Value: 0.40},
				},
			},
		},
	}
	out := make(map[model.MaterialCode]*model.MaterialDefinition, len(defs))
	for _, d := range defs {
		out[d.Code] = d
	}
	return out
}
