// core/catalog_loader.go
package core

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/neutronworks/scintcam-simulator/model"
)

// MaterialCatalog is a small summary of what a catalog file added.
// It's mainly useful for logging from main().
type MaterialCatalog struct {
	Codes []string
}

// internal JSON shapes - unexported so the file format can evolve
// without touching the resolver API.
type catalogJSON struct {
	Scintillators []scintillatorJSON `json:"scintillators"`
}

type scintillatorJSON struct {
	Code        string        `json:"code"`
	Name        string        `json:"name"`
	DensityGCM3 float64       `json:"density_g_cm3"`
	Composition []elementJSON `json:"composition"`
	Optical     *opticalJSON  `json:"optical"`
}

type elementJSON struct {
	Symbol   string  `json:"symbol"`
	Fraction float64 `json:"fraction"` // mass fraction, must sum to ~1
}

type opticalJSON struct {
	YieldPerMEV        float64      `json:"yield_per_mev"`
	YieldResolution    float64      `json:"yield_resolution"`
	FastDecayNS        float64      `json:"fast_decay_ns"`
	RefractiveIndex    []sampleJSON `json:"refractive_index"`
	AbsorptionLengthMM []sampleJSON `json:"absorption_length_mm"`
	EmissionSpectrum   []sampleJSON `json:"emission_spectrum"`
}

type sampleJSON struct {
	EnergyEV float64 `json:"energy_ev"`
	Value    float64 `json:"value"`
}

// LoadMaterialCatalog reads scintillator recipes from JSON and merges
// them into the resolver's recipe set. Entries are validated up front;
// a bad entry fails the whole load so a half-merged catalog never goes
// unnoticed.
func LoadMaterialCatalog(resolver *MaterialResolver, r io.Reader) (*MaterialCatalog, error) {
	if resolver == nil {
		return nil, fmt.Errorf("LoadMaterialCatalog: resolver is nil")
	}

	var payload catalogJSON
	dec := json.NewDecoder(r)
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("LoadMaterialCatalog: decode failed: %w", err)
	}

	defs := make([]*model.MaterialDefinition, 0, len(payload.Scintillators))
	for _, js := range payload.Scintillators {
		def, err := recipeFromJSON(js)
		if err != nil {
			return nil, fmt.Errorf("LoadMaterialCatalog: %w", err)
		}
		defs = append(defs, def)
	}

	result := &MaterialCatalog{Codes: make([]string, 0, len(defs))}
	for _, def := range defs {
		if err := resolver.AddRecipe(def); err != nil {
			return nil, fmt.Errorf("LoadMaterialCatalog: %w", err)
		}
		result.Codes = append(result.Codes, string(def.Code))
	}
	return result, nil
}

// LoadMaterialCatalogFile is the path-taking convenience wrapper.
func LoadMaterialCatalogFile(resolver *MaterialResolver, path string) (*MaterialCatalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("LoadMaterialCatalog: %w", err)
	}
	defer f.Close()
	return LoadMaterialCatalog(resolver, f)
}

func recipeFromJSON(js scintillatorJSON) (*model.MaterialDefinition, error) {
	if js.Code == "" {
		return nil, fmt.Errorf("scintillator entry with empty code")
	}
	if js.DensityGCM3 <= 0 {
		return nil, fmt.Errorf("scintillator %q: density must be > 0, got %g", js.Code, js.DensityGCM3)
	}
	if len(js.Composition) == 0 {
		return nil, fmt.Errorf("scintillator %q: empty composition", js.Code)
	}
	var sum float64
	comp := make([]model.ElementFraction, 0, len(js.Composition))
	for _, el := range js.Composition {
		if el.Symbol == "" {
			return nil, fmt.Errorf("scintillator %q: element with empty symbol", js.Code)
		}
		if el.Fraction <= 0 || el.Fraction > 1 {
			return nil, fmt.Errorf("scintillator %q: element %q fraction %g outside (0,1]", js.Code, el.Symbol, el.Fraction)
		}
		sum += el.Fraction
		comp = append(comp, model.ElementFraction{Symbol: el.Symbol, Fraction: el.Fraction})
	}
	if math.Abs(sum-1) > 1e-3 {
		return nil, fmt.Errorf("scintillator %q: mass fractions sum to %g, want 1", js.Code, sum)
	}
	if js.Optical == nil {
		return nil, fmt.Errorf("scintillator %q: missing optical block", js.Code)
	}
	opt, err := opticalFromJSON(js.Code, js.Optical)
	if err != nil {
		return nil, err
	}
	return &model.MaterialDefinition{
		Code:        model.MaterialCode(js.Code),
		Name:        js.Name,
		DensityGCM3: js.DensityGCM3,
		Composition: comp,
		Optical:     opt,
	}, nil
}

func opticalFromJSON(code string, js *opticalJSON) (*model.OpticalPropertyTable, error) {
	if js.YieldPerMEV <= 0 {
		return nil, fmt.Errorf("scintillator %q: yield must be > 0, got %g", code, js.YieldPerMEV)
	}
	if js.FastDecayNS <= 0 {
		return nil, fmt.Errorf("scintillator %q: decay constant must be > 0, got %g", code, js.FastDecayNS)
	}
	if len(js.RefractiveIndex) == 0 {
		return nil, fmt.Errorf("scintillator %q: missing refractive index curve", code)
	}
	if len(js.EmissionSpectrum) == 0 {
		return nil, fmt.Errorf("scintillator %q: missing emission spectrum", code)
	}
	res := js.YieldResolution
	if res == 0 {
		res = 1.0
	}
	return &model.OpticalPropertyTable{
		ScintillationYield: js.YieldPerMEV,
		YieldResolution:    res,
		FastDecayNS:        js.FastDecayNS,
		RefractiveIndex:    samplesFromJSON(js.RefractiveIndex),
		AbsorptionLengthMM: samplesFromJSON(js.AbsorptionLengthMM),
		EmissionSpectrum:   samplesFromJSON(js.EmissionSpectrum),
	}, nil
}

func samplesFromJSON(in []sampleJSON) []model.OpticalSample {
	out := make([]model.OpticalSample, 0, len(in))
	for _, s := range in {
		out = append(out, model.OpticalSample{PhotonEnergyEV: s.EnergyEV, Value: s.Value})
	}
	return out
}
