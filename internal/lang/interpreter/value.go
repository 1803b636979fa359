package interpreter

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/rxtech-lab/argo-script/internal/series"
	"github.com/rxtech-lab/argo-script/pkg/errors"
)

// Value is the runtime value model: Number, String, Bool, Series or a
// structured Record of named fields (used for multi-output indicators).
type Value interface {
	// TypeName returns the user-facing name used in fault messages.
	TypeName() string
	// Format renders the value for debug output.
	Format() string
}

// Null is the result of command builtins that exist for their side effect.
type Null struct{}

func (n Null) TypeName() string { return "null" }
func (n Null) Format() string   { return "null" }

// Number is a scalar numeric value.
type Number float64

func (n Number) TypeName() string { return "number" }
func (n Number) Format() string   { return strconv.FormatFloat(float64(n), 'f', -1, 64) }

// String is a string value.
type String string

func (s String) TypeName() string { return "string" }
func (s String) Format() string   { return string(s) }

// Bool is a boolean value.
type Bool bool

func (b Bool) TypeName() string { return "bool" }
func (b Bool) Format() string   { return strconv.FormatBool(bool(b)) }

// SeriesValue wraps a series aligned with the loaded window.
type SeriesValue struct {
	Series series.Series
}

func (s SeriesValue) TypeName() string { return "series" }
func (s SeriesValue) Format() string {
	last, err := s.Series.Last()
	if err != nil {
		return "series(len=0)"
	}

	return fmt.Sprintf("series(len=%d, last=%s)", s.Series.Len(), strconv.FormatFloat(last, 'f', -1, 64))
}

// Record is a structured result with named fields, each itself a Value.
// Records are plain values with no back-references.
type Record struct {
	Fields map[string]Value
}

func (r Record) TypeName() string { return "record" }
func (r Record) Format() string {
	names := make([]string, 0, len(r.Fields))
	for name := range r.Fields {
		names = append(names, name)
	}

	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+"="+r.Fields[name].Format())
	}

	return "{" + strings.Join(parts, ", ") + "}"
}

// Field returns the named field or an unknown-field fault.
func (r Record) Field(name string) (Value, error) {
	v, ok := r.Fields[name]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeUnknownField, "unknown field %q", name)
	}

	return v, nil
}

func asNumber(v Value) (float64, error) {
	n, ok := v.(Number)
	if !ok {
		return 0, errors.Newf(errors.ErrCodeTypeMismatch, "expected number, got %s", v.TypeName())
	}

	return float64(n), nil
}

// asInt converts a number value to an integer, faulting on fractional input.
func asInt(v Value) (int, error) {
	n, err := asNumber(v)
	if err != nil {
		return 0, err
	}

	if n != math.Trunc(n) {
		return 0, errors.Newf(errors.ErrCodeInvalidArgument, "expected integer, got %s", v.Format())
	}

	return int(n), nil
}

func asString(v Value) (string, error) {
	s, ok := v.(String)
	if !ok {
		return "", errors.Newf(errors.ErrCodeTypeMismatch, "expected string, got %s", v.TypeName())
	}

	return string(s), nil
}

func asSeries(v Value) (series.Series, error) {
	s, ok := v.(SeriesValue)
	if !ok {
		return nil, errors.Newf(errors.ErrCodeTypeMismatch, "expected series, got %s", v.TypeName())
	}

	return s.Series, nil
}

// truthy reports whether a value counts as true in an if condition.
// Booleans are themselves; numbers are true when non-zero.
func truthy(v Value) (bool, error) {
	switch val := v.(type) {
	case Bool:
		return bool(val), nil
	case Number:
		return float64(val) != 0, nil
	default:
		return false, errors.Newf(errors.ErrCodeTypeMismatch, "cannot use %s as condition", v.TypeName())
	}
}
