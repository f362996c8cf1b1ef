// Package sim composes the parameter store, material resolver, geometry
// assembler, initialization sequencer, and command registry into a
// runnable simulator. The Runtime owns the one mutex in the system:
// every command, bootstrap step, and beam run is serialized through it,
// which is what lets the composed packages stay lock-free.
package sim

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/neutronworks/scintcam-simulator/beam"
	"github.com/neutronworks/scintcam-simulator/command"
	"github.com/neutronworks/scintcam-simulator/core"
	"github.com/neutronworks/scintcam-simulator/internal/logging"
	"github.com/neutronworks/scintcam-simulator/internal/observability"
	"github.com/neutronworks/scintcam-simulator/internal/runout"
	"github.com/neutronworks/scintcam-simulator/model"
	"github.com/neutronworks/scintcam-simulator/params"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/neutronworks/scintcam-simulator/internal/sim"

// RunSink is where a beam run writes its event records.
type RunSink interface {
	core.EventSink
	Close() error
	Records() int64
	Files() []string
}

// SinkFactory builds a fresh sink for each beam run from the current
// output parameters.
type SinkFactory func(cfg runout.Config) (RunSink, error)

// Option configures optional runtime collaborators.
type Option func(*Runtime)

// WithCommandCollector attaches Prometheus command-surface metrics.
func WithCommandCollector(c *observability.CommandCollector) Option {
	return func(r *Runtime) { r.commandMetrics = c }
}

// WithRunCollector attaches Prometheus beam-run metrics.
func WithRunCollector(c *observability.RunCollector) Option {
	return func(r *Runtime) { r.runMetrics = c }
}

// WithHelpWriter directs the help command's output. Defaults to stdout.
func WithHelpWriter(w io.Writer) Option {
	return func(r *Runtime) { r.helpOut = w }
}

// WithOutputDir places event CSV files under dir.
func WithOutputDir(dir string) Option {
	return func(r *Runtime) { r.outDir = dir }
}

// WithSinkFactory replaces the default CSV batch writer factory.
func WithSinkFactory(f SinkFactory) Option {
	return func(r *Runtime) { r.sinkFactory = f }
}

// Runtime is the simulator composition root.
type Runtime struct {
	mu sync.Mutex

	logger    logging.Logger
	engine    core.Engine
	store     *params.Store
	resolver  *core.MaterialResolver
	seq       *core.Sequencer
	assembler *core.GeometryAssembler
	registry  *command.Registry
	stats     *RunStats

	commandMetrics *observability.CommandCollector
	runMetrics     *observability.RunCollector
	helpOut        io.Writer
	outDir         string
	sinkFactory    SinkFactory

	// invokeCtx carries the caller's context across the registry's
	// untyped handler boundary while mu is held.
	invokeCtx context.Context
}

// New wires a runtime around the given engine. The returned runtime has
// declared all parameters and registered the full command set but has
// not yet assembled geometry; call Bootstrap for that.
func New(engine core.Engine, logger logging.Logger, opts ...Option) (*Runtime, error) {
	if engine == nil {
		return nil, errors.New("nil engine")
	}
	if logger == nil {
		logger = logging.Noop()
	}
	r := &Runtime{
		logger:  logger,
		engine:  engine,
		store:   params.NewStore(),
		stats:   NewRunStats(),
		helpOut: os.Stdout,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.sinkFactory == nil {
		r.sinkFactory = func(cfg runout.Config) (RunSink, error) {
			return runout.NewBatchWriter(cfg, logger)
		}
	}

	if err := core.DeclareGeometryParams(r.store); err != nil {
		return nil, fmt.Errorf("declare geometry parameters: %w", err)
	}
	if err := declareRunParams(r.store); err != nil {
		return nil, fmt.Errorf("declare run parameters: %w", err)
	}

	r.resolver = core.NewMaterialResolver(engine, logger)
	r.seq = core.NewSequencer(logger)
	r.assembler = core.NewGeometryAssembler(engine, r.resolver, r.seq, r.store, logger)

	var regOpts []command.RegistryOption
	if r.commandMetrics != nil {
		regOpts = append(regOpts, command.WithMetricsRecorder(r.commandMetrics))
		collector := r.commandMetrics
		r.seq.Observe(func(p core.Phase) { collector.SetInitializationPhase(int(p)) })
	}
	r.registry = command.NewRegistry(logger, regOpts...)
	if err := r.registerCommands(); err != nil {
		return nil, fmt.Errorf("register commands: %w", err)
	}
	// Defaults land at composition time, through the same dispatch path
	// an operator uses. Setup macros may then override them before the
	// geometry freezes at Bootstrap.
	if err := r.registry.ApplyDefaults(); err != nil {
		return nil, fmt.Errorf("apply command defaults: %w", err)
	}
	return r, nil
}

// LoadCatalog registers extra scintillator recipes from a material
// catalog file. Catalog codes become swappable like the built-in set.
func (r *Runtime) LoadCatalog(path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	catalog, err := core.LoadMaterialCatalogFile(r.resolver, path)
	if err != nil {
		return err
	}
	r.logger.Info("material catalog loaded",
		logging.String("path", path),
		logging.Int("recipes", len(catalog.Codes)))
	return nil
}

// Bootstrap runs the deferred initialization sequence: geometry is
// assembled from the current parameters, the engine initializes, and
// the scintillator's optical table is attached now that the engine
// accepts one. Afterwards the runtime is in the running phase and beam
// commands become legal.
func (r *Runtime) Bootstrap(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ctx, span := otel.Tracer(tracerName).Start(ctx, "Bootstrap")
	defer span.End()
	if err := r.bootstrapLocked(ctx); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

func (r *Runtime) bootstrapLocked(ctx context.Context) error {
	assembly, err := r.assembler.Assemble()
	if err != nil {
		return err
	}
	if err := r.seq.MarkGeometryBuilt(); err != nil {
		return err
	}

	if err := r.engine.Initialize(ctx); err != nil {
		return fmt.Errorf("engine initialize: %w", err)
	}
	if err := r.seq.MarkEngineInitialized(); err != nil {
		return err
	}

	code, err := r.store.GetString(core.ParamScintillator)
	if err != nil {
		return err
	}
	if err := r.assembler.ApplyDeferredOptics(assembly.Scintillator, model.MaterialCode(code)); err != nil {
		return err
	}
	r.stats.IncOpticsSwaps()
	r.runMetrics.IncOpticsAttachments()
	if err := r.seq.MarkOpticsApplied(); err != nil {
		return err
	}
	if err := r.seq.MarkRunning(); err != nil {
		return err
	}

	r.commandMetrics.SetPlacedVolumes(r.assembler.PlacedCount())
	r.logger.Info("simulator ready",
		logging.String("phase", r.seq.Phase().String()),
		logging.String("scintillator", code),
		logging.Int("volumes", r.assembler.PlacedCount()))
	return nil
}

// InvokeCommand dispatches one command through the registry. ctx bounds
// any beam run the command triggers.
func (r *Runtime) InvokeCommand(ctx context.Context, name, raw string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invokeCtx = ctx
	defer func() { r.invokeCtx = nil }()

	if err := r.registry.Invoke(name, raw); err != nil {
		r.stats.IncCommandsFailed()
		return err
	}
	r.stats.IncCommandsApplied()
	return nil
}

// ContextDispatcher binds a context to the runtime's command surface so
// macro scripts and the console can drive it.
type ContextDispatcher struct {
	ctx context.Context
	rt  *Runtime
}

// Dispatcher returns a dispatcher that invokes commands under ctx.
func (r *Runtime) Dispatcher(ctx context.Context) *ContextDispatcher {
	return &ContextDispatcher{ctx: ctx, rt: r}
}

// Invoke implements the macro package's Dispatcher interface.
func (d *ContextDispatcher) Invoke(name, raw string) error {
	return d.rt.InvokeCommand(d.ctx, name, raw)
}

// RunReport summarizes one completed beam run.
type RunReport struct {
	RunID    string
	Windows  int
	Pulses   int
	Neutrons int64
	Events   int64
	Files    []string
	Elapsed  time.Duration
}

// Run executes the configured pulse schedule for the given number of
// beam windows, streaming hit records into a fresh sink.
func (r *Runtime) Run(ctx context.Context, windows int) (*RunReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.runLocked(ctx, windows)
}

func (r *Runtime) runLocked(ctx context.Context, windows int) (*RunReport, error) {
	ctx, runID := logging.EnsureRunID(ctx)
	ctx, span := otel.Tracer(tracerName).Start(ctx, "BeamRun",
		trace.WithAttributes(
			attribute.Int("beam.windows", windows),
			attribute.String("run_id", runID),
		))
	defer span.End()

	report, err := r.runSchedule(ctx, windows)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("beam.pulses", report.Pulses),
		attribute.Int64("beam.neutrons", report.Neutrons),
		attribute.Int64("beam.events", report.Events),
	)
	return report, nil
}

func (r *Runtime) runSchedule(ctx context.Context, windows int) (*RunReport, error) {
	if err := r.seq.RequireAtLeast(core.PhaseRunning); err != nil {
		return nil, err
	}
	if windows <= 0 {
		return nil, fmt.Errorf("beam windows must be positive, got %d", windows)
	}

	flux, err := r.store.GetFloat(ParamBeamFlux)
	if err != nil {
		return nil, err
	}
	freq, err := r.store.GetFloat(ParamBeamFrequency)
	if err != nil {
		return nil, err
	}
	window, err := r.store.GetDuration(ParamBeamWindow)
	if err != nil {
		return nil, err
	}
	schedule, err := beam.Build(beam.Config{FluxPerSecond: flux, FrequencyHz: freq, Window: window})
	if err != nil {
		return nil, fmt.Errorf("build pulse schedule: %w", err)
	}

	filename, err := r.store.GetString(ParamCSVFilename)
	if err != nil {
		return nil, err
	}
	batch, err := r.store.GetInt(ParamBatchSize)
	if err != nil {
		return nil, err
	}
	sink, err := r.sinkFactory(runout.Config{Dir: r.outDir, Filename: filename, BatchSize: batch})
	if err != nil {
		return nil, fmt.Errorf("open event sink: %w", err)
	}

	ctx, log := logging.WithRunLogger(ctx, r.logger)
	ctx = logging.ContextWithLogger(ctx, log)
	runID := logging.RunIDFromContext(ctx)
	log.Info("beam run starting",
		logging.Int("windows", windows),
		logging.Int("pulses_per_window", len(schedule.Pulses)),
		logging.Int("neutrons_per_window", schedule.Total))

	start := time.Now()
	tagged := &taggedSink{inner: sink}
	var runErr error
loop:
	for w := 0; w < windows; w++ {
		for i, pulse := range schedule.Pulses {
			tagged.window = w
			tagged.pulse = i
			tagged.offsetNS = strconv.FormatInt(pulse.Offset.Nanoseconds(), 10)
			if err := r.engine.BeamOn(ctx, pulse.Neutrons, tagged); err != nil {
				runErr = fmt.Errorf("window %d pulse %d: %w", w, i, err)
				break loop
			}
		}
	}

	closeErr := sink.Close()
	elapsed := time.Since(start)
	if runErr == nil && closeErr != nil {
		runErr = fmt.Errorf("close event sink: %w", closeErr)
	}
	if runErr != nil {
		log.Warn("beam run failed", logging.Any("err", runErr))
		return nil, runErr
	}

	report := &RunReport{
		RunID:    runID,
		Windows:  windows,
		Pulses:   windows * len(schedule.Pulses),
		Neutrons: int64(windows) * int64(schedule.Total),
		Events:   sink.Records(),
		Files:    sink.Files(),
		Elapsed:  elapsed,
	}
	r.stats.IncRuns()
	r.stats.AddPulses(report.Pulses)
	r.stats.AddNeutrons(report.Neutrons)
	r.stats.AddEvents(report.Events)
	r.runMetrics.RecordRun(elapsed)
	r.runMetrics.AddPulses(report.Pulses)
	r.runMetrics.AddNeutrons(report.Neutrons)
	r.runMetrics.AddEvents(report.Events)

	log.Info("beam run complete",
		logging.Int("pulses", report.Pulses),
		logging.Any("neutrons", report.Neutrons),
		logging.Any("events", report.Events),
		logging.String("elapsed", elapsed.String()))
	return report, nil
}

// Stats returns the in-memory run counters.
func (r *Runtime) Stats() *RunStats { return r.stats }

// Phase reports the current initialization phase.
func (r *Runtime) Phase() core.Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.seq.Phase()
}

// Scintillators lists the swappable scintillator codes, sorted.
func (r *Runtime) Scintillators() []model.MaterialCode {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resolver.Scintillators()
}

// taggedSink prefixes every record with window, pulse, and pulse start
// time columns so batch files stay self-describing across pulses.
type taggedSink struct {
	inner    RunSink
	window   int
	pulse    int
	offsetNS string
}

func (s *taggedSink) Header(columns []string) error {
	return s.inner.Header(append([]string{"window", "pulse", "pulse_t_ns"}, columns...))
}

func (s *taggedSink) Write(values []string) error {
	row := make([]string, 0, len(values)+3)
	row = append(row, strconv.Itoa(s.window), strconv.Itoa(s.pulse), s.offsetNS)
	row = append(row, values...)
	return s.inner.Write(row)
}
