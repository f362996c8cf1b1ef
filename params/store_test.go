package params

import (
	"errors"
	"testing"
	"time"
)

func declareTestParams(t *testing.T) *Store {
	t.Helper()
	s := NewStore()
	if err := s.Declare("scintThickness", 5.0, PositiveFloat(), "half thickness of the scintillator plate in mm"); err != nil {
		t.Fatalf("Declare(scintThickness) failed: %v", err)
	}
	if err := s.Declare("batchSize", 10000, NonNegativeInt(), "events per output file, 0 for a single file"); err != nil {
		t.Fatalf("Declare(batchSize) failed: %v", err)
	}
	if err := s.Declare("csvFilename", "sim_data.csv", NonEmptyString(), "output file name"); err != nil {
		t.Fatalf("Declare(csvFilename) failed: %v", err)
	}
	if err := s.Declare("beamWindow", time.Second, PositiveDuration(), "beam time window"); err != nil {
		t.Fatalf("Declare(beamWindow) failed: %v", err)
	}
	if err := s.Declare("samplePosition", []float64{0, 0, -100}, VectorLen(3), "sample stage offset in mm"); err != nil {
		t.Fatalf("Declare(samplePosition) failed: %v", err)
	}
	return s
}

// Declaring the same name twice must fail and keep the first declaration.
func TestDeclare_DuplicateFails(t *testing.T) {
	s := declareTestParams(t)

	err := s.Declare("batchSize", 5, nil, "duplicate")
	if !errors.Is(err, ErrDuplicateParameter) {
		t.Fatalf("expected ErrDuplicateParameter, got %v", err)
	}
	v, err := s.GetInt("batchSize")
	if err != nil {
		t.Fatalf("GetInt(batchSize) failed: %v", err)
	}
	if v != 10000 {
		t.Errorf("expected original default 10000, got %d", v)
	}
}

// A valid Set must be returned exactly by a subsequent Get, and Set
// must hand back the previous value.
func TestSetGet_Roundtrip(t *testing.T) {
	s := declareTestParams(t)

	prev, err := s.Set("scintThickness", 7.5)
	if err != nil {
		t.Fatalf("Set(scintThickness) failed: %v", err)
	}
	if prev != 5.0 {
		t.Errorf("expected previous value 5.0, got %v", prev)
	}
	got, err := s.GetFloat("scintThickness")
	if err != nil {
		t.Fatalf("GetFloat failed: %v", err)
	}
	if got != 7.5 {
		t.Errorf("expected 7.5, got %v", got)
	}
}

// A failing Set must leave the prior value observable and report
// ErrInvalidValue.
func TestSet_InvalidValueKeepsPrior(t *testing.T) {
	s := declareTestParams(t)

	if _, err := s.Set("scintThickness", 6.0); err != nil {
		t.Fatalf("valid Set failed: %v", err)
	}
	_, err := s.Set("scintThickness", -1.0)
	if !errors.Is(err, ErrInvalidValue) {
		t.Fatalf("expected ErrInvalidValue, got %v", err)
	}
	got, err := s.GetFloat("scintThickness")
	if err != nil {
		t.Fatalf("GetFloat failed: %v", err)
	}
	if got != 6.0 {
		t.Errorf("expected prior value 6.0 to survive, got %v", got)
	}
}

// Kind is fixed by the default: storing a string into a float parameter
// must fail without touching the value.
func TestSet_KindMismatchFails(t *testing.T) {
	s := declareTestParams(t)

	_, err := s.Set("scintThickness", "thick")
	if !errors.Is(err, ErrInvalidValue) {
		t.Fatalf("expected ErrInvalidValue for kind mismatch, got %v", err)
	}
	got, _ := s.GetFloat("scintThickness")
	if got != 5.0 {
		t.Errorf("expected default 5.0 to survive, got %v", got)
	}
}

func TestSetGet_UnknownParameter(t *testing.T) {
	s := declareTestParams(t)

	if _, err := s.Set("noSuchParam", 1.0); !errors.Is(err, ErrUnknownParameter) {
		t.Fatalf("Set: expected ErrUnknownParameter, got %v", err)
	}
	if _, err := s.Get("noSuchParam"); !errors.Is(err, ErrUnknownParameter) {
		t.Fatalf("Get: expected ErrUnknownParameter, got %v", err)
	}
}

// Plain ints widen to int64 on the way in so callers can pass literals.
func TestSet_IntWidening(t *testing.T) {
	s := declareTestParams(t)

	if _, err := s.Set("batchSize", 2500); err != nil {
		t.Fatalf("Set(batchSize, int) failed: %v", err)
	}
	v, err := s.GetInt("batchSize")
	if err != nil {
		t.Fatalf("GetInt failed: %v", err)
	}
	if v != 2500 {
		t.Errorf("expected 2500, got %d", v)
	}
}

// Vector parameters are copied on Set and Get so callers cannot mutate
// the stored value through an aliased slice.
func TestFloatVector_CopiedNotAliased(t *testing.T) {
	s := declareTestParams(t)

	in := []float64{1, 2, 3}
	if _, err := s.Set("samplePosition", in); err != nil {
		t.Fatalf("Set(samplePosition) failed: %v", err)
	}
	in[0] = 99

	out, err := s.GetFloatVector("samplePosition")
	if err != nil {
		t.Fatalf("GetFloatVector failed: %v", err)
	}
	if out[0] != 1 {
		t.Errorf("stored vector was aliased to caller slice: %v", out)
	}
	out[1] = 42
	again, _ := s.GetFloatVector("samplePosition")
	if again[1] != 2 {
		t.Errorf("returned vector was aliased to stored slice: %v", again)
	}
}

// A default that fails its own validator must be rejected at Declare.
func TestDeclare_DefaultMustPassValidator(t *testing.T) {
	s := NewStore()
	err := s.Declare("beamFlux", -5.0, PositiveFloat(), "neutrons per second")
	if !errors.Is(err, ErrInvalidValue) {
		t.Fatalf("expected ErrInvalidValue for bad default, got %v", err)
	}
	if s.Has("beamFlux") {
		t.Errorf("rejected declaration must not register the parameter")
	}
}

func TestList_SortedWithGuidance(t *testing.T) {
	s := declareTestParams(t)

	list := s.List()
	if len(list) != 5 {
		t.Fatalf("expected 5 parameters, got %d", len(list))
	}
	for i := 1; i < len(list); i++ {
		if list[i-1].Name >= list[i].Name {
			t.Fatalf("List not sorted: %q before %q", list[i-1].Name, list[i].Name)
		}
	}
	for _, p := range list {
		if p.Guidance == "" {
			t.Errorf("parameter %q lost its guidance string", p.Name)
		}
	}
}

func TestValidators(t *testing.T) {
	cases := []struct {
		name    string
		v       Validator
		value   any
		wantErr bool
	}{
		{"nonempty ok", NonEmptyString(), "x", false},
		{"nonempty blank", NonEmptyString(), "  ", true},
		{"positive ok", PositiveFloat(), 1.5, false},
		{"positive zero", PositiveFloat(), 0.0, true},
		{"between ok", FloatBetween(0, 1), 0.5, false},
		{"between high", FloatBetween(0, 1), 1.5, true},
		{"nonneg ok", NonNegativeInt(), int64(0), false},
		{"nonneg bad", NonNegativeInt(), int64(-1), true},
		{"posint bad", PositiveInt(), int64(0), true},
		{"duration ok", PositiveDuration(), time.Millisecond, false},
		{"duration bad", PositiveDuration(), time.Duration(0), true},
		{"veclen ok", VectorLen(3), []float64{1, 2, 3}, false},
		{"veclen bad", VectorLen(3), []float64{1}, true},
		{"all chains", All(PositiveFloat(), FloatBetween(0, 10)), 20.0, true},
	}
	for _, tc := range cases {
		err := tc.v(tc.value)
		if tc.wantErr && err == nil {
			t.Errorf("%s: expected error, got nil", tc.name)
		}
		if !tc.wantErr && err != nil {
			t.Errorf("%s: unexpected error: %v", tc.name, err)
		}
	}
}
