package core

import (
	"errors"
	"fmt"
	"sort"

	"github.com/neutronworks/scintcam-simulator/internal/logging"
	"github.com/neutronworks/scintcam-simulator/model"
)

var (
	ErrUnknownMaterial     = errors.New("unknown material")
	ErrUnknownScintillator = errors.New("unknown scintillator")
	ErrDuplicateRecipe     = errors.New("scintillator recipe already registered")
)

// MaterialResolver turns material codes into engine-neutral
// definitions. Bulk codes go to the engine's registry first, then to
// the local recipe set; scintillator codes resolve strictly against the
// recipe set so an operator typo can never silently select a registry
// material without optical data.
//
// Resolution never mutates detector state. Callers that swap materials
// decide what to do on failure; the documented policy is to log the
// unknown code and keep the previous material.
type MaterialResolver struct {
	registry MaterialRegistry
	logger   logging.Logger
	recipes  map[model.MaterialCode]*model.MaterialDefinition
}

// NewMaterialResolver creates a resolver backed by the engine's
// material registry, with the built-in scintillator recipes loaded.
func NewMaterialResolver(registry MaterialRegistry, logger logging.Logger) *MaterialResolver {
	if logger == nil {
		logger = logging.Noop()
	}
	return &MaterialResolver{
		registry: registry,
		logger:   logger,
		recipes:  builtinScintillators(),
	}
}

// ResolveBulk resolves a code to a bulk material definition, without
// optical data. Engine registry codes (e.g. "G4_GRAPHITE") win;
// scintillator recipe codes are accepted as bulk materials too.
func (r *MaterialResolver) ResolveBulk(code model.MaterialCode) (*model.MaterialDefinition, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: empty code", ErrUnknownMaterial)
	}
	def, err := r.registry.FindOrBuildMaterial(code)
	if err == nil {
		def.Optical = nil
		r.logger.Debug("resolved bulk material from engine registry",
			logging.String("code", string(code)))
		return def, nil
	}
	if recipe, ok := r.recipes[code]; ok {
		out := recipe.Clone()
		out.Optical = nil
		r.logger.Debug("resolved bulk material from recipe set",
			logging.String("code", string(code)))
		return out, nil
	}
	return nil, fmt.Errorf("%w: %q: %v", ErrUnknownMaterial, code, err)
}

// ResolveScintillator resolves a scintillator code against the recipe
// set. With includeOptics the returned definition carries its optical
// property table; without, only the bulk fields are populated so the
// caller can swap the material now and attach optics once the engine
// accepts them.
func (r *MaterialResolver) ResolveScintillator(code model.MaterialCode, includeOptics bool) (*model.MaterialDefinition, error) {
	recipe, ok := r.recipes[code]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownScintillator, code)
	}
	out := recipe.Clone()
	if !includeOptics {
		out.Optical = nil
	}
	r.logger.Debug("resolved scintillator",
		logging.String("code", string(code)),
		logging.Any("optics", includeOptics))
	return out, nil
}

// AddRecipe registers an additional scintillator recipe, typically from
// a material catalog file. Codes are unique across the recipe set.
func (r *MaterialResolver) AddRecipe(def *model.MaterialDefinition) error {
	if def == nil || def.Code == "" {
		return fmt.Errorf("nil or unnamed recipe")
	}
	if _, exists := r.recipes[def.Code]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateRecipe, def.Code)
	}
	r.recipes[def.Code] = def.Clone()
	r.logger.Info("registered scintillator recipe",
		logging.String("code", string(def.Code)),
		logging.String("name", def.Name))
	return nil
}

// Scintillators lists the registered recipe codes, sorted.
func (r *MaterialResolver) Scintillators() []model.MaterialCode {
	out := make([]model.MaterialCode, 0, len(r.recipes))
	for code := range r.recipes {
		out = append(out, code)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
