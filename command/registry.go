// Package command implements the operator command surface: a registry
// of named commands, each with a typed single-argument handler, a
// guidance string and a default value. Macro scripts and the
// interactive session both dispatch through Invoke; commands are
// independent and never trigger one another.
package command

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/neutronworks/scintcam-simulator/internal/logging"
)

var (
	ErrDuplicateCommand = errors.New("command already registered")
	ErrUnknownCommand   = errors.New("unknown command")
	ErrArgumentParse    = errors.New("argument parse failure")
)

// Invocation outcomes reported to the metrics recorder.
const (
	OutcomeOK         = "ok"
	OutcomeUnknown    = "unknown"
	OutcomeParseError = "parse_error"
	OutcomeError      = "error"
)

// Command is one named operation. The typed constructors (String, Int,
// Float, Duration) build the parse step; handlers receive an already
// typed argument and own all domain validation.
type Command struct {
	Name     string
	Guidance string
	Default  string

	run func(raw string) error
}

// String builds a command whose argument is passed through verbatim.
func String(name, guidance, def string, apply func(string) error) Command {
	return Command{Name: name, Guidance: guidance, Default: def, run: func(raw string) error {
		return apply(raw)
	}}
}

// Int builds a command with a base-10 integer argument.
func Int(name, guidance string, def int64, apply func(int64) error) Command {
	return Command{Name: name, Guidance: guidance, Default: strconv.FormatInt(def, 10), run: func(raw string) error {
		n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return fmt.Errorf("%w: %q is not an integer", ErrArgumentParse, raw)
		}
		return apply(n)
	}}
}

// Float builds a command with a floating-point argument.
func Float(name, guidance string, def float64, apply func(float64) error) Command {
	return Command{Name: name, Guidance: guidance, Default: strconv.FormatFloat(def, 'g', -1, 64), run: func(raw string) error {
		f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return fmt.Errorf("%w: %q is not a number", ErrArgumentParse, raw)
		}
		return apply(f)
	}}
}

// Duration builds a command with a Go duration argument ("250ms", "2s").
func Duration(name, guidance string, def time.Duration, apply func(time.Duration) error) Command {
	return Command{Name: name, Guidance: guidance, Default: def.String(), run: func(raw string) error {
		d, err := time.ParseDuration(strings.TrimSpace(raw))
		if err != nil {
			return fmt.Errorf("%w: %q is not a duration", ErrArgumentParse, raw)
		}
		return apply(d)
	}}
}

// Action builds a command that performs work rather than setting a
// parameter: it has no default and ApplyDefaults skips it. The handler
// receives the raw argument, which may be empty.
func Action(name, guidance string, apply func(raw string) error) Command {
	return Command{Name: name, Guidance: guidance, run: apply}
}

// Entry is the read-only listing view of a registered command.
type Entry struct {
	Name     string
	Guidance string
	Default  string
}

// MetricsRecorder receives one observation per Invoke. Implemented by
// the observability collector; a nil recorder drops observations.
type MetricsRecorder interface {
	RecordCommand(name, outcome string)
}

// RegistryOption configures optional registry collaborators.
type RegistryOption func(*Registry)

// WithMetricsRecorder attaches an invocation metrics recorder.
func WithMetricsRecorder(rec MetricsRecorder) RegistryOption {
	return func(r *Registry) { r.metrics = rec }
}

// Registry holds the command set. Not safe for concurrent use; the
// embedding runtime serializes dispatch.
type Registry struct {
	logger   logging.Logger
	metrics  MetricsRecorder
	commands map[string]Command
	order    []string
}

// NewRegistry creates an empty registry.
func NewRegistry(logger logging.Logger, opts ...RegistryOption) *Registry {
	if logger == nil {
		logger = logging.Noop()
	}
	r := &Registry{
		logger:   logger,
		commands: make(map[string]Command),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a command. Names are unique; a handler is required.
func (r *Registry) Register(cmd Command) error {
	if cmd.Name == "" {
		return fmt.Errorf("command with empty name")
	}
	if cmd.run == nil {
		return fmt.Errorf("command %q has no handler", cmd.Name)
	}
	if _, exists := r.commands[cmd.Name]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateCommand, cmd.Name)
	}
	r.commands[cmd.Name] = cmd
	r.order = append(r.order, cmd.Name)
	return nil
}

// Invoke dispatches one command. An empty argument falls back to the
// registered default. Failed commands leave all state untouched; the
// error wraps the command name for the operator.
func (r *Registry) Invoke(name, raw string) error {
	cmd, ok := r.commands[name]
	if !ok {
		r.record(name, OutcomeUnknown)
		return fmt.Errorf("%w: %q", ErrUnknownCommand, name)
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		raw = cmd.Default
	}
	if err := cmd.run(raw); err != nil {
		outcome := OutcomeError
		if errors.Is(err, ErrArgumentParse) {
			outcome = OutcomeParseError
		}
		r.record(name, outcome)
		r.logger.Warn("command failed",
			logging.String("command", name),
			logging.String("argument", raw),
			logging.Any("err", err))
		return fmt.Errorf("command %q: %w", name, err)
	}
	r.record(name, OutcomeOK)
	r.logger.Debug("command applied",
		logging.String("command", name),
		logging.String("argument", raw))
	return nil
}

// ApplyDefaults invokes every command once with its default value, in
// registration order, so a parameter's default takes effect even if the
// operator never issues the command. Commands registered without a
// default (actions) are skipped.
func (r *Registry) ApplyDefaults() error {
	for _, name := range r.order {
		if r.commands[name].Default == "" {
			continue
		}
		if err := r.Invoke(name, ""); err != nil {
			return fmt.Errorf("applying default: %w", err)
		}
	}
	return nil
}

// Has reports whether a command is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.commands[name]
	return ok
}

// List returns all registered commands sorted by name.
func (r *Registry) List() []Entry {
	out := make([]Entry, 0, len(r.commands))
	for _, cmd := range r.commands {
		out = append(out, Entry{Name: cmd.Name, Guidance: cmd.Guidance, Default: cmd.Default})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (r *Registry) record(name, outcome string) {
	if r.metrics != nil {
		r.metrics.RecordCommand(name, outcome)
	}
}
