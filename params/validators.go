package params

import (
	"fmt"
	"strings"
	"time"
)

// NonEmptyString rejects empty or all-whitespace strings.
func NonEmptyString() Validator {
	return func(v any) error {
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("want string, got %T", v)
		}
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("must not be empty")
		}
		return nil
	}
}

// PositiveFloat rejects values <= 0.
func PositiveFloat() Validator {
	return func(v any) error {
		f, ok := v.(float64)
		if !ok {
			return fmt.Errorf("want float, got %T", v)
		}
		if f <= 0 {
			return fmt.Errorf("must be > 0, got %g", f)
		}
		return nil
	}
}

// FloatBetween accepts values in the closed interval [lo, hi].
func FloatBetween(lo, hi float64) Validator {
	return func(v any) error {
		f, ok := v.(float64)
		if !ok {
			return fmt.Errorf("want float, got %T", v)
		}
		if f < lo || f > hi {
			return fmt.Errorf("must be in [%g, %g], got %g", lo, hi, f)
		}
		return nil
	}
}

// NonNegativeInt rejects values < 0.
func NonNegativeInt() Validator {
	return func(v any) error {
		n, ok := v.(int64)
		if !ok {
			return fmt.Errorf("want int, got %T", v)
		}
		if n < 0 {
			return fmt.Errorf("must be >= 0, got %d", n)
		}
		return nil
	}
}

// PositiveInt rejects values <= 0.
func PositiveInt() Validator {
	return func(v any) error {
		n, ok := v.(int64)
		if !ok {
			return fmt.Errorf("want int, got %T", v)
		}
		if n <= 0 {
			return fmt.Errorf("must be > 0, got %d", n)
		}
		return nil
	}
}

// PositiveDuration rejects durations <= 0.
func PositiveDuration() Validator {
	return func(v any) error {
		d, ok := v.(time.Duration)
		if !ok {
			return fmt.Errorf("want duration, got %T", v)
		}
		if d <= 0 {
			return fmt.Errorf("must be > 0, got %s", d)
		}
		return nil
	}
}

// VectorLen requires a float vector of exactly n components.
func VectorLen(n int) Validator {
	return func(v any) error {
		vec, ok := v.([]float64)
		if !ok {
			return fmt.Errorf("want float vector, got %T", v)
		}
		if len(vec) != n {
			return fmt.Errorf("want %d components, got %d", n, len(vec))
		}
		return nil
	}
}

// All chains validators, failing on the first violation.
func All(vs ...Validator) Validator {
	return func(v any) error {
		for _, check := range vs {
			if check == nil {
				continue
			}
			if err := check(v); err != nil {
				return err
			}
		}
		return nil
	}
}
