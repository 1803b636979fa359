// Package series implements the vectorized series model: arrays of float64
// values aligned 1:1 with a loaded bar window. Every transform returns a new
// series of the same length as its input; positions before an indicator's
// warm-up period hold NaN.
package series

import (
	"math"

	"github.com/rxtech-lab/argo-script/pkg/errors"
)

// Series is an ordered sequence of numeric values aligned with a bar window.
// Immutable once produced: transforms always allocate a new backing slice.
type Series []float64

// New returns a series of the given length filled with NaN.
func New(length int) Series {
	s := make(Series, length)
	for i := range s {
		s[i] = math.NaN()
	}

	return s
}

// FromValues copies the given values into a new series.
func FromValues(values []float64) Series {
	s := make(Series, len(values))
	copy(s, values)

	return s
}

// Len returns the number of values in the series.
func (s Series) Len() int { return len(s) }

// At returns the value at an absolute window position. Indexing outside
// [0, len) is a defined runtime fault, not undefined behavior.
func (s Series) At(i int) (float64, error) {
	if i < 0 || i >= len(s) {
		return 0, errors.Newf(errors.ErrCodeIndexOutOfRange, "series index %d out of range [0, %d)", i, len(s))
	}

	return s[i], nil
}

// Last returns the final value of the series.
func (s Series) Last() (float64, error) {
	return s.At(len(s) - 1)
}

func checkSameLength(a, b Series) error {
	if len(a) != len(b) {
		return errors.Newf(errors.ErrCodeLengthMismatch, "series length mismatch: %d vs %d", len(a), len(b))
	}

	return nil
}

// Combine applies f element-wise over two equal-length series.
func Combine(a, b Series, f func(x, y float64) float64) (Series, error) {
	if err := checkSameLength(a, b); err != nil {
		return nil, err
	}

	out := make(Series, len(a))
	for i := range a {
		out[i] = f(a[i], b[i])
	}

	return out, nil
}

// Map applies f element-wise over one series.
func Map(s Series, f func(x float64) float64) Series {
	out := make(Series, len(s))
	for i := range s {
		out[i] = f(s[i])
	}

	return out
}

// Shift returns a series where out[i] = s[i-n] for i >= n and NaN before.
func Shift(s Series, n int) (Series, error) {
	if n < 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidArgument, "shift offset must be >= 0, got %d", n)
	}

	out := New(len(s))
	for i := n; i < len(s); i++ {
		out[i] = s[i-n]
	}

	return out, nil
}

// Diff returns the first difference: out[i] = s[i] - s[i-1], NaN at i = 0.
func Diff(s Series) Series {
	out := New(len(s))
	for i := 1; i < len(s); i++ {
		out[i] = s[i] - s[i-1]
	}

	return out
}

// Avg returns the element-wise mean of two equal-length series.
func Avg(a, b Series) (Series, error) {
	return Combine(a, b, func(x, y float64) float64 { return (x + y) / 2 })
}

// Log applies the natural logarithm element-wise.
func Log(s Series) Series {
	return Map(s, math.Log)
}

// Sqrt applies the square root element-wise.
func Sqrt(s Series) Series {
	return Map(s, math.Sqrt)
}
