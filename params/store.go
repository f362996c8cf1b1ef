// Package params implements the declared-parameter store backing the
// simulator configuration: every tunable (dimensions, material codes,
// beam timing, output batching) is declared once with a default, a
// validator and a guidance string, then mutated through Set and read
// through Get. Validation happens at mutation time only; a value that
// was accepted is never re-validated at the point of use.
package params

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

var (
	ErrDuplicateParameter = errors.New("parameter already declared")
	ErrUnknownParameter   = errors.New("unknown parameter")
	ErrInvalidValue       = errors.New("invalid parameter value")
)

// Kind enumerates the value shapes a parameter can hold.
type Kind int

const (
	KindString Kind = iota
	KindInt
	KindFloat
	KindDuration
	KindBool
	KindFloatVector
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindDuration:
		return "duration"
	case KindBool:
		return "bool"
	case KindFloatVector:
		return "float vector"
	default:
		return "unknown"
	}
}

func kindOf(v any) (Kind, bool) {
	switch v.(type) {
	case string:
		return KindString, true
	case int:
		return KindInt, true
	case int64:
		return KindInt, true
	case float64:
		return KindFloat, true
	case time.Duration:
		return KindDuration, true
	case bool:
		return KindBool, true
	case []float64:
		return KindFloatVector, true
	default:
		return 0, false
	}
}

// normalize widens int to int64 and copies vectors so callers cannot
// alias the stored slice.
func normalize(v any) any {
	switch t := v.(type) {
	case int:
		return int64(t)
	case []float64:
		return append([]float64(nil), t...)
	default:
		return v
	}
}

// Validator checks a candidate value before it is stored. A nil
// Validator accepts everything of the declared kind.
type Validator func(v any) error

// Parameter is the read-only view of one declared parameter.
type Parameter struct {
	Name     string
	Guidance string
	Kind     Kind
	Default  any
	Value    any
}

type entry struct {
	guidance  string
	kind      Kind
	def       any
	value     any
	validator Validator
}

// Store holds declared parameters by name.
//
// NOTE: the Store is not safe for concurrent use. The configuration
// subsystem runs single-threaded; a multi-threaded host serializes all
// access behind the runtime's mutex.
type Store struct {
	entries map[string]*entry
	order   []string
}

// NewStore creates an empty parameter store.
func NewStore() *Store {
	return &Store{entries: make(map[string]*entry)}
}

// Declare registers a parameter with its default value, validator and
// guidance string. The default fixes the parameter's kind; it must
// itself pass the validator.
func (s *Store) Declare(name string, def any, v Validator, guidance string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidValue)
	}
	if _, exists := s.entries[name]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateParameter, name)
	}
	kind, ok := kindOf(def)
	if !ok {
		return fmt.Errorf("%w: %q default has unsupported type %T", ErrInvalidValue, name, def)
	}
	def = normalize(def)
	if v != nil {
		if err := v(def); err != nil {
			return fmt.Errorf("%w: %q default rejected: %v", ErrInvalidValue, name, err)
		}
	}
	s.entries[name] = &entry{
		guidance:  guidance,
		kind:      kind,
		def:       def,
		value:     def,
		validator: v,
	}
	s.order = append(s.order, name)
	return nil
}

// Set validates and stores a new value, returning the previous one so
// callers can report or restore it. On any error the stored value is
// left untouched.
func (s *Store) Set(name string, value any) (previous any, err error) {
	e, ok := s.entries[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownParameter, name)
	}
	kind, ok := kindOf(value)
	if !ok {
		return nil, fmt.Errorf("%w: %q does not accept %T", ErrInvalidValue, name, value)
	}
	if kind != e.kind {
		return nil, fmt.Errorf("%w: %q holds %s, got %s", ErrInvalidValue, name, e.kind, kind)
	}
	value = normalize(value)
	if e.validator != nil {
		if err := e.validator(value); err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrInvalidValue, name, err)
		}
	}
	previous = e.value
	e.value = value
	return previous, nil
}

// Get returns the current value of a declared parameter.
func (s *Store) Get(name string) (any, error) {
	e, ok := s.entries[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownParameter, name)
	}
	return e.value, nil
}

// Has reports whether a parameter was declared.
func (s *Store) Has(name string) bool {
	_, ok := s.entries[name]
	return ok
}

//
// ---------- Typed accessors ----------
//

// GetString returns a string-kind parameter's value.
func (s *Store) GetString(name string) (string, error) {
	v, err := s.Get(name)
	if err != nil {
		return "", err
	}
	t, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: %q holds %T, not string", ErrInvalidValue, name, v)
	}
	return t, nil
}

// GetInt returns an int-kind parameter's value.
func (s *Store) GetInt(name string) (int64, error) {
	v, err := s.Get(name)
	if err != nil {
		return 0, err
	}
	t, ok := v.(int64)
	if !ok {
		return 0, fmt.Errorf("%w: %q holds %T, not int", ErrInvalidValue, name, v)
	}
	return t, nil
}

// GetFloat returns a float-kind parameter's value.
func (s *Store) GetFloat(name string) (float64, error) {
	v, err := s.Get(name)
	if err != nil {
		return 0, err
	}
	t, ok := v.(float64)
	if !ok {
		return 0, fmt.Errorf("%w: %q holds %T, not float", ErrInvalidValue, name, v)
	}
	return t, nil
}

// GetDuration returns a duration-kind parameter's value.
func (s *Store) GetDuration(name string) (time.Duration, error) {
	v, err := s.Get(name)
	if err != nil {
		return 0, err
	}
	t, ok := v.(time.Duration)
	if !ok {
		return 0, fmt.Errorf("%w: %q holds %T, not duration", ErrInvalidValue, name, v)
	}
	return t, nil
}

// GetFloatVector returns a copy of a vector-kind parameter's value.
func (s *Store) GetFloatVector(name string) ([]float64, error) {
	v, err := s.Get(name)
	if err != nil {
		return nil, err
	}
	t, ok := v.([]float64)
	if !ok {
		return nil, fmt.Errorf("%w: %q holds %T, not float vector", ErrInvalidValue, name, v)
	}
	return append([]float64(nil), t...), nil
}

// List returns all declared parameters sorted by name.
func (s *Store) List() []Parameter {
	out := make([]Parameter, 0, len(s.entries))
	for name, e := range s.entries {
		out = append(out, Parameter{
			Name:     name,
			Guidance: e.guidance,
			Kind:     e.kind,
			Default:  e.def,
			Value:    e.value,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
