package sim

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/neutronworks/scintcam-simulator/command"
	"github.com/neutronworks/scintcam-simulator/core"
	"github.com/neutronworks/scintcam-simulator/internal/logging"
	"github.com/neutronworks/scintcam-simulator/model"
	"github.com/neutronworks/scintcam-simulator/params"
)

// Run parameter names shared by the command surface and the store.
const (
	ParamBeamFlux      = "beamFlux"
	ParamBeamFrequency = "beamFrequency"
	ParamBeamWindow    = "beamWindow"
	ParamBatchSize     = "batchSize"
	ParamCSVFilename   = "csvFilename"
)

func declareRunParams(store *params.Store) error {
	decls := []struct {
		name     string
		def      any
		v        params.Validator
		guidance string
	}{
		{ParamBeamFlux, 1.0e4, params.PositiveFloat(), "neutrons per second entering the beam window"},
		{ParamBeamFrequency, 50.0, params.PositiveFloat(), "pulse repetition frequency in Hz"},
		{ParamBeamWindow, time.Second, params.PositiveDuration(), "beam-on window per run"},
		{ParamBatchSize, int64(10000), params.NonNegativeInt(), "records per CSV batch file; 0 writes a single file"},
		{ParamCSVFilename, "sim_data.csv", params.NonEmptyString(), "base name for event CSV files"},
	}
	for _, d := range decls {
		if err := store.Declare(d.name, d.def, d.v, d.guidance); err != nil {
			return fmt.Errorf("declaring %q: %w", d.name, err)
		}
	}
	return nil
}

// registerCommands wires the full operator command set. Defaults mirror
// the store declarations so ApplyDefaults reproduces the declared
// configuration through the same path an operator would use.
func (r *Runtime) registerCommands() error {
	cmds := []command.Command{
		command.String(core.ParamSampleMaterial, "bulk material code for the sample stage", "G4_GRAPHITE", r.setSampleMaterial),
		command.String(core.ParamScintillator, "scintillator recipe code for the camera plate", "PVT", r.setScintillator),
		command.Float(core.ParamScintThickness, "half thickness of the scintillator plate in mm", 5, r.setDimension(core.ParamScintThickness)),
		command.Float(core.ParamSampleThickness, "half thickness of the sample stage in mm", 5, r.setDimension(core.ParamSampleThickness)),
		command.Float(ParamBeamFlux, "neutrons per second entering the beam window", 1e4, r.setFloat(ParamBeamFlux)),
		command.Float(ParamBeamFrequency, "pulse repetition frequency in Hz", 50, r.setFloat(ParamBeamFrequency)),
		command.Duration(ParamBeamWindow, "beam-on window per run", time.Second, r.setDuration(ParamBeamWindow)),
		command.Int(ParamBatchSize, "records per CSV batch file; 0 writes a single file", 10000, r.setInt(ParamBatchSize)),
		command.String(ParamCSVFilename, "base name for event CSV files", "sim_data.csv", r.setString(ParamCSVFilename)),
		command.Action("beamOn", "run the beam for the given number of windows (default 1)", r.beamOn),
		command.Action("help", "list available commands", r.help),
	}
	for _, c := range cmds {
		if err := r.registry.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// setSampleMaterial swaps the sample stage's bulk material. Before
// assembly only the parameter changes; afterwards the placed volume is
// updated too. An unknown code fails before anything mutates, so the
// stage never loses its current material.
func (r *Runtime) setSampleMaterial(code string) error {
	def, err := r.resolver.ResolveBulk(model.MaterialCode(code))
	if err != nil {
		return err
	}
	prev, err := r.store.Set(core.ParamSampleMaterial, code)
	if err != nil {
		return err
	}
	if !r.assembler.Assembled() {
		return nil
	}
	if err := r.assembler.SetVolumeMaterial(r.assembler.Assembly().Sample, def); err != nil {
		r.restoreParam(core.ParamSampleMaterial, prev)
		return err
	}
	return nil
}

// setScintillator swaps the camera plate's recipe. Before engine
// initialization only the bulk material moves; afterwards the matching
// optical table is re-attached in the same invocation.
func (r *Runtime) setScintillator(code string) error {
	mc := model.MaterialCode(code)
	includeOptics := r.seq.Phase() >= core.PhaseEngineInitialized
	if _, err := r.resolver.ResolveScintillator(mc, includeOptics); err != nil {
		return err
	}
	prev, err := r.store.Set(core.ParamScintillator, code)
	if err != nil {
		return err
	}
	if !r.assembler.Assembled() {
		return nil
	}
	if err := r.swapScintillator(mc, includeOptics); err != nil {
		r.restoreParam(core.ParamScintillator, prev)
		if prevCode, ok := prev.(string); ok && prevCode != "" {
			if rerr := r.swapScintillator(model.MaterialCode(prevCode), includeOptics); rerr != nil {
				r.logger.Warn("could not restore previous scintillator",
					logging.String("code", prevCode),
					logging.Any("err", rerr))
			}
		}
		return err
	}
	return nil
}

// swapScintillator replaces the plate's bulk material and, once the
// engine is initialized, re-attaches the matching optical table. The
// engine replaces an existing table rather than stacking a second one,
// so re-applying the current code is harmless.
func (r *Runtime) swapScintillator(code model.MaterialCode, includeOptics bool) error {
	bulk, err := r.resolver.ResolveScintillator(code, false)
	if err != nil {
		return err
	}
	scint := r.assembler.Assembly().Scintillator
	if err := r.assembler.SetVolumeMaterial(scint, bulk); err != nil {
		return err
	}
	if !includeOptics {
		return nil
	}
	if err := r.assembler.ApplyDeferredOptics(scint, code); err != nil {
		return err
	}
	r.stats.IncOpticsSwaps()
	r.runMetrics.IncOpticsAttachments()
	return nil
}

// setDimension guards the frozen-topology rule: dimensions are only
// settable before assembly.
func (r *Runtime) setDimension(name string) func(float64) error {
	return func(v float64) error {
		if r.assembler.Assembled() {
			return fmt.Errorf("%s: geometry already assembled", name)
		}
		_, err := r.store.Set(name, v)
		return err
	}
}

func (r *Runtime) setFloat(name string) func(float64) error {
	return func(v float64) error {
		_, err := r.store.Set(name, v)
		return err
	}
}

func (r *Runtime) setInt(name string) func(int64) error {
	return func(v int64) error {
		_, err := r.store.Set(name, v)
		return err
	}
}

func (r *Runtime) setDuration(name string) func(time.Duration) error {
	return func(v time.Duration) error {
		_, err := r.store.Set(name, v)
		return err
	}
}

func (r *Runtime) setString(name string) func(string) error {
	return func(v string) error {
		_, err := r.store.Set(name, v)
		return err
	}
}

func (r *Runtime) beamOn(raw string) error {
	windows := 1
	if raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("%w: %q is not a window count", command.ErrArgumentParse, raw)
		}
		windows = n
	}
	ctx := r.invokeCtx
	if ctx == nil {
		ctx = context.Background()
	}
	_, err := r.runLocked(ctx, windows)
	return err
}

func (r *Runtime) help(string) error {
	fmt.Fprintln(r.helpOut, "commands:")
	for _, e := range r.registry.List() {
		line := fmt.Sprintf("  %-16s %s", e.Name, e.Guidance)
		if e.Default != "" {
			line += fmt.Sprintf(" (default %s)", e.Default)
		}
		fmt.Fprintln(r.helpOut, line)
	}
	return nil
}

func (r *Runtime) restoreParam(name string, prev any) {
	if _, err := r.store.Set(name, prev); err != nil {
		r.logger.Warn("restoring parameter failed",
			logging.String("param", name),
			logging.Any("err", err))
	}
}
