package interpreter

import (
	"math"

	"github.com/rxtech-lab/argo-script/internal/lang/ast"
	"github.com/rxtech-lab/argo-script/internal/series"
	"github.com/rxtech-lab/argo-script/internal/types"
	"github.com/rxtech-lab/argo-script/pkg/errors"
)

func (it *Interpreter) evalExpression(expr ast.Expression) (Value, error) {
	switch e := expr.(type) {
	case *ast.NumberLiteral:
		return Number(e.Value), nil
	case *ast.StringLiteral:
		return String(e.Value), nil
	case *ast.BoolLiteral:
		return Bool(e.Value), nil
	case *ast.Identifier:
		return it.evalIdentifier(e)
	case *ast.UnaryExpression:
		return it.evalUnary(e)
	case *ast.BinaryExpression:
		return it.evalBinary(e)
	case *ast.IndexExpression:
		return it.evalIndex(e)
	case *ast.MemberExpression:
		return it.evalMember(e)
	case *ast.CallExpression:
		return it.evalCall(e)
	default:
		return nil, errors.Newf(errors.ErrCodeTypeMismatch, "cannot evaluate %s", expr.String())
	}
}

func (it *Interpreter) evalIdentifier(e *ast.Identifier) (Value, error) {
	if v, ok := it.scope.Get(e.Name); ok {
		return v, nil
	}

	// Implicit window series of the primary symbol.
	if s, ok := it.windowSeries(it.window, e.Name); ok {
		return SeriesValue{Series: s}, nil
	}

	return nil, errors.Newf(errors.ErrCodeUnknownIdentifier, "unknown identifier %q", e.Name)
}

// windowSeries materializes a named OHLCV column of a bar window.
func (it *Interpreter) windowSeries(window []types.Bar, name string) (series.Series, bool) {
	var pick func(i int) float64

	switch name {
	case "open":
		pick = func(i int) float64 { return window[i].Open }
	case "high":
		pick = func(i int) float64 { return window[i].High }
	case "low":
		pick = func(i int) float64 { return window[i].Low }
	case "close":
		pick = func(i int) float64 { return window[i].Close }
	case "volume":
		pick = func(i int) float64 { return window[i].Volume }
	default:
		return nil, false
	}

	out := make(series.Series, len(window))
	for i := range window {
		out[i] = pick(i)
	}

	return out, true
}

func (it *Interpreter) evalUnary(e *ast.UnaryExpression) (Value, error) {
	operand, err := it.evalExpression(e.Operand)
	if err != nil {
		return nil, err
	}

	switch e.Operator {
	case "-":
		switch v := operand.(type) {
		case Number:
			return Number(-float64(v)), nil
		case SeriesValue:
			return SeriesValue{Series: series.Map(v.Series, func(x float64) float64 { return -x })}, nil
		default:
			return nil, errors.Newf(errors.ErrCodeTypeMismatch, "cannot negate %s", operand.TypeName())
		}
	case "!":
		b, err := truthy(operand)
		if err != nil {
			return nil, err
		}

		return Bool(!b), nil
	default:
		return nil, errors.Newf(errors.ErrCodeTypeMismatch, "unknown unary operator %q", e.Operator)
	}
}

func (it *Interpreter) evalBinary(e *ast.BinaryExpression) (Value, error) {
	left, err := it.evalExpression(e.Left)
	if err != nil {
		return nil, err
	}

	right, err := it.evalExpression(e.Right)
	if err != nil {
		return nil, err
	}

	return applyBinary(e.Operator, left, right)
}

func applyBinary(op string, left, right Value) (Value, error) {
	// String and bool values support equality only.
	switch l := left.(type) {
	case String:
		r, ok := right.(String)
		if !ok {
			return nil, binaryTypeFault(op, left, right)
		}

		return equalityOnly(op, l == r)
	case Bool:
		r, ok := right.(Bool)
		if !ok {
			return nil, binaryTypeFault(op, left, right)
		}

		return equalityOnly(op, l == r)
	}

	lNum, lIsNum := left.(Number)
	rNum, rIsNum := right.(Number)

	if lIsNum && rIsNum {
		return applyScalarBinary(op, float64(lNum), float64(rNum))
	}

	// At least one side is a series: broadcast scalars element-wise.
	lSeries, err := broadcast(left)
	if err != nil {
		return nil, binaryTypeFault(op, left, right)
	}

	rSeries, err := broadcastTo(right, len(lSeries))
	if err != nil {
		return nil, binaryTypeFault(op, left, right)
	}

	if len(lSeries) == 1 && len(rSeries) > 1 {
		// Left side was the scalar; rebroadcast to the series length.
		lSeries, err = broadcastTo(left, len(rSeries))
		if err != nil {
			return nil, binaryTypeFault(op, left, right)
		}
	}

	return applySeriesBinary(op, lSeries, rSeries)
}

func equalityOnly(op string, equal bool) (Value, error) {
	switch op {
	case "==":
		return Bool(equal), nil
	case "!=":
		return Bool(!equal), nil
	default:
		return nil, errors.Newf(errors.ErrCodeTypeMismatch, "operator %q is not defined for this operand type", op)
	}
}

func binaryTypeFault(op string, left, right Value) error {
	return errors.Newf(errors.ErrCodeTypeMismatch, "operator %q is not defined for %s and %s", op, left.TypeName(), right.TypeName())
}

func applyScalarBinary(op string, x, y float64) (Value, error) {
	switch op {
	case "+":
		return Number(x + y), nil
	case "-":
		return Number(x - y), nil
	case "*":
		return Number(x * y), nil
	case "/":
		if y == 0 {
			return nil, errors.New(errors.ErrCodeDivisionByZero, "division by zero")
		}

		return Number(x / y), nil
	case ">":
		return Bool(x > y), nil
	case "<":
		return Bool(x < y), nil
	case ">=":
		return Bool(x >= y), nil
	case "<=":
		return Bool(x <= y), nil
	case "==":
		return Bool(x == y), nil
	case "!=":
		return Bool(x != y), nil
	default:
		return nil, errors.Newf(errors.ErrCodeTypeMismatch, "unknown operator %q", op)
	}
}

// broadcast converts a value to a series: series pass through, numbers
// become a one-element series widened later by broadcastTo.
func broadcast(v Value) (series.Series, error) {
	switch val := v.(type) {
	case SeriesValue:
		return val.Series, nil
	case Number:
		return series.Series{float64(val)}, nil
	default:
		return nil, errors.Newf(errors.ErrCodeTypeMismatch, "expected number or series, got %s", v.TypeName())
	}
}

func broadcastTo(v Value, length int) (series.Series, error) {
	switch val := v.(type) {
	case SeriesValue:
		return val.Series, nil
	case Number:
		out := make(series.Series, length)
		for i := range out {
			out[i] = float64(val)
		}

		return out, nil
	default:
		return nil, errors.Newf(errors.ErrCodeTypeMismatch, "expected number or series, got %s", v.TypeName())
	}
}

func applySeriesBinary(op string, a, b series.Series) (Value, error) {
	switch op {
	case "+", "-", "*":
		out, err := series.Combine(a, b, func(x, y float64) float64 {
			switch op {
			case "+":
				return x + y
			case "-":
				return x - y
			default:
				return x * y
			}
		})
		if err != nil {
			return nil, err
		}

		return SeriesValue{Series: out}, nil
	case "/":
		if len(a) != len(b) {
			return nil, errors.Newf(errors.ErrCodeLengthMismatch, "series length mismatch: %d vs %d", len(a), len(b))
		}

		out := make(series.Series, len(a))

		for i := range a {
			// NaN operands stay NaN; a defined numerator over a zero
			// denominator is a runtime fault.
			if math.IsNaN(a[i]) || math.IsNaN(b[i]) {
				out[i] = math.NaN()

				continue
			}

			if b[i] == 0 {
				return nil, errors.Newf(errors.ErrCodeDivisionByZero, "division by zero at series index %d", i)
			}

			out[i] = a[i] / b[i]
		}

		return SeriesValue{Series: out}, nil
	case ">", "<", ">=", "<=", "==", "!=":
		out, err := series.Combine(a, b, func(x, y float64) float64 {
			if math.IsNaN(x) || math.IsNaN(y) {
				return math.NaN()
			}

			var holds bool

			switch op {
			case ">":
				holds = x > y
			case "<":
				holds = x < y
			case ">=":
				holds = x >= y
			case "<=":
				holds = x <= y
			case "==":
				holds = x == y
			default:
				holds = x != y
			}

			if holds {
				return 1
			}

			return 0
		})
		if err != nil {
			return nil, err
		}

		return SeriesValue{Series: out}, nil
	default:
		return nil, errors.Newf(errors.ErrCodeTypeMismatch, "unknown operator %q", op)
	}
}

func (it *Interpreter) evalIndex(e *ast.IndexExpression) (Value, error) {
	left, err := it.evalExpression(e.Left)
	if err != nil {
		return nil, err
	}

	s, err := asSeries(left)
	if err != nil {
		return nil, err
	}

	indexValue, err := it.evalExpression(e.Index)
	if err != nil {
		return nil, err
	}

	// Index positions are absolute within the loaded window; scripts use
	// bar_index to address the current step.
	i, err := asInt(indexValue)
	if err != nil {
		return nil, err
	}

	v, err := s.At(i)
	if err != nil {
		return nil, err
	}

	return Number(v), nil
}

func (it *Interpreter) evalMember(e *ast.MemberExpression) (Value, error) {
	object, err := it.evalExpression(e.Object)
	if err != nil {
		return nil, err
	}

	record, ok := object.(Record)
	if !ok {
		return nil, errors.Newf(errors.ErrCodeTypeMismatch, "cannot access field %q on %s", e.Field, object.TypeName())
	}

	return record.Field(e.Field)
}

func (it *Interpreter) evalCall(e *ast.CallExpression) (Value, error) {
	fn, ok := builtins[e.Callee.Name]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeUnknownFunction, "unknown function %q", e.Callee.Name)
	}

	if len(e.Arguments) < fn.minArgs || (fn.maxArgs >= 0 && len(e.Arguments) > fn.maxArgs) {
		return nil, errors.Newf(errors.ErrCodeArityMismatch, "%s expects %s, got %d", e.Callee.Name, fn.arityDescription(), len(e.Arguments))
	}

	args := make([]Value, 0, len(e.Arguments))

	for _, argExpr := range e.Arguments {
		arg, err := it.evalExpression(argExpr)
		if err != nil {
			return nil, err
		}

		args = append(args, arg)
	}

	return fn.fn(it, args)
}
