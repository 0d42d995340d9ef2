// operators.go implements the Value operator semantics shared by the VM's
// arithmetic/logic/bitwise/comparison ops and the compiler's constant-
// expression evaluator (spec.md 4.2.1 and 9's "Constant expressions" note:
// "the operator implementations on Value must be usable at compile time as
// well as runtime").
package objects

import (
	"strings"

	"poise/internal/value"
)

func throwInvalidOperand(msg string) *Exception {
	return NewException(ExcInvalidOperand, msg)
}

// valuesEqual implements cross-type equality: numeric types compare
// numerically regardless of Int/Float mix, strings/bools/none compare by
// value, objects compare by identity except for container kinds (List,
// Tuple, Dict, Set) which compare structurally. Anything else (differing
// categories) is false, never an error.
func valuesEqual(a, b value.Value) bool {
	if a.IsNumeric() && b.IsNumeric() {
		if a.Tag() == value.TagInt && b.Tag() == value.TagInt {
			return a.Int() == b.Int()
		}
		return a.AsFloat64() == b.AsFloat64()
	}
	if a.Tag() != b.Tag() {
		return false
	}
	switch a.Tag() {
	case value.TagNone:
		return true
	case value.TagBool:
		return a.Bool() == b.Bool()
	case value.TagString:
		return a.Str() == b.Str()
	case value.TagObject:
		return objectsEqual(a.Object(), b.Object())
	default:
		return false
	}
}

func objectsEqual(a, b value.Object) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	switch av := a.(type) {
	case *List:
		bv, ok := b.(*List)
		return ok && sliceEqual(av.Values, bv.Values)
	case *Tuple:
		bv, ok := b.(*Tuple)
		return ok && sliceEqual(av.Values, bv.Values)
	case *Dict:
		bv, ok := b.(*Dict)
		return ok && dictEqual(av, bv)
	case *Set:
		bv, ok := b.(*Set)
		return ok && setEqual(av, bv)
	case *Range:
		bv, ok := b.(*Range)
		return ok && av.Start == bv.Start && av.End == bv.End && av.Step == bv.Step && av.Inclusive == bv.Inclusive
	case *Exception:
		bv, ok := b.(*Exception)
		return ok && av.Kind == bv.Kind && av.Message == bv.Message
	default:
		return false
	}
}

func sliceEqual(a, b []value.Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !valuesEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}

func dictEqual(a, b *Dict) bool {
	if a.size != b.size {
		return false
	}
	for i, state := range a.states {
		if state != cellOccupied {
			continue
		}
		pair, _ := AsTuple(a.cells[i].Object())
		bv, err := b.At(pair.Values[0])
		if err != nil || !valuesEqual(pair.Values[1], bv) {
			return false
		}
	}
	return true
}

func setEqual(a, b *Set) bool {
	if a.size != b.size {
		return false
	}
	for i, state := range a.states {
		if state != cellOccupied {
			continue
		}
		if !b.Contains(a.cells[i]) {
			return false
		}
	}
	return true
}

func compareNumeric(a, b value.Value) (int, *Exception) {
	if !a.IsNumeric() || !b.IsNumeric() {
		return 0, throwInvalidOperand("ordering operators require numeric operands")
	}
	af, bf := a.AsFloat64(), b.AsFloat64()
	switch {
	case af < bf:
		return -1, nil
	case af > bf:
		return 1, nil
	default:
		return 0, nil
	}
}

// Equal implements the == operator: never throws.
func Equal(a, b value.Value) value.Value { return value.Bool(valuesEqual(a, b)) }

// NotEqual implements the != operator: never throws.
func NotEqual(a, b value.Value) value.Value { return value.Bool(!valuesEqual(a, b)) }

func LessThan(a, b value.Value) (value.Value, *Exception) {
	c, err := compareNumeric(a, b)
	if err != nil {
		return value.None(), err
	}
	return value.Bool(c < 0), nil
}

func LessEqual(a, b value.Value) (value.Value, *Exception) {
	c, err := compareNumeric(a, b)
	if err != nil {
		return value.None(), err
	}
	return value.Bool(c <= 0), nil
}

func GreaterThan(a, b value.Value) (value.Value, *Exception) {
	c, err := compareNumeric(a, b)
	if err != nil {
		return value.None(), err
	}
	return value.Bool(c > 0), nil
}

func GreaterEqual(a, b value.Value) (value.Value, *Exception) {
	c, err := compareNumeric(a, b)
	if err != nil {
		return value.None(), err
	}
	return value.Bool(c >= 0), nil
}

// LogicOr and LogicAnd are eager: both operands are already evaluated by
// the time the op runs (no short-circuit jump is emitted for them), mirroring
// the reference implementation's Op::LogicOr/Op::LogicAnd.
func LogicOr(a, b value.Value) value.Value  { return value.Bool(a.ToBool() || b.ToBool()) }
func LogicAnd(a, b value.Value) value.Value { return value.Bool(a.ToBool() && b.ToBool()) }

func requireInt(v value.Value) (int64, *Exception) {
	if v.Tag() != value.TagInt {
		return 0, throwInvalidOperand("bitwise/shift operators require integer operands")
	}
	return v.Int(), nil
}

func BitwiseOr(a, b value.Value) (value.Value, *Exception) {
	ai, err := requireInt(a)
	if err != nil {
		return value.None(), err
	}
	bi, err := requireInt(b)
	if err != nil {
		return value.None(), err
	}
	return value.Int(ai | bi), nil
}

func BitwiseXor(a, b value.Value) (value.Value, *Exception) {
	ai, err := requireInt(a)
	if err != nil {
		return value.None(), err
	}
	bi, err := requireInt(b)
	if err != nil {
		return value.None(), err
	}
	return value.Int(ai ^ bi), nil
}

func BitwiseAnd(a, b value.Value) (value.Value, *Exception) {
	ai, err := requireInt(a)
	if err != nil {
		return value.None(), err
	}
	bi, err := requireInt(b)
	if err != nil {
		return value.None(), err
	}
	return value.Int(ai & bi), nil
}

func LeftShift(a, b value.Value) (value.Value, *Exception) {
	ai, err := requireInt(a)
	if err != nil {
		return value.None(), err
	}
	bi, err := requireInt(b)
	if err != nil {
		return value.None(), err
	}
	return value.Int(ai << uint64(bi)), nil
}

func RightShift(a, b value.Value) (value.Value, *Exception) {
	ai, err := requireInt(a)
	if err != nil {
		return value.None(), err
	}
	bi, err := requireInt(b)
	if err != nil {
		return value.None(), err
	}
	return value.Int(ai >> uint64(bi)), nil
}

// Addition: numeric promotes mixed int/float to float; + on a string
// concatenates with the right operand stringified; + on List/Tuple
// concatenates.
func Addition(a, b value.Value) (value.Value, *Exception) {
	if a.Tag() == value.TagString {
		return value.String(a.Str() + b.String()), nil
	}
	if a.IsNumeric() && b.IsNumeric() {
		if a.Tag() == value.TagInt && b.Tag() == value.TagInt {
			return value.Int(a.Int() + b.Int()), nil
		}
		return value.Float(a.AsFloat64() + b.AsFloat64()), nil
	}
	if a.Tag() == value.TagObject && b.Tag() == value.TagObject {
		if al, ok := AsList(a.Object()); ok {
			if bl, ok := AsList(b.Object()); ok {
				return value.FromObject(al.Concat(bl)), nil
			}
		}
		if at, ok := AsTuple(a.Object()); ok {
			if bt, ok := AsTuple(b.Object()); ok {
				return value.FromObject(at.Concat(bt)), nil
			}
		}
	}
	return value.None(), throwInvalidOperand("invalid operands for +")
}

func numericBinOp(a, b value.Value, intOp func(x, y int64) int64, floatOp func(x, y float64) float64) (value.Value, *Exception) {
	if !a.IsNumeric() || !b.IsNumeric() {
		return value.None(), throwInvalidOperand("arithmetic operators require numeric operands")
	}
	if a.Tag() == value.TagInt && b.Tag() == value.TagInt {
		return value.Int(intOp(a.Int(), b.Int())), nil
	}
	return value.Float(floatOp(a.AsFloat64(), b.AsFloat64())), nil
}

func Subtraction(a, b value.Value) (value.Value, *Exception) {
	return numericBinOp(a, b,
		func(x, y int64) int64 { return x - y },
		func(x, y float64) float64 { return x - y })
}

// Multiply: numeric as usual; string * nonnegative int repeats the string;
// List/Tuple * nonnegative int repeats the container.
func Multiply(a, b value.Value) (value.Value, *Exception) {
	if a.Tag() == value.TagString && b.Tag() == value.TagInt {
		if b.Int() < 0 {
			return value.None(), throwInvalidOperand("cannot repeat a string a negative number of times")
		}
		return value.String(strings.Repeat(a.Str(), int(b.Int()))), nil
	}
	if a.Tag() == value.TagObject && b.Tag() == value.TagInt {
		if l, ok := AsList(a.Object()); ok {
			return value.FromObject(l.Repeat(b.Int())), nil
		}
		if t, ok := AsTuple(a.Object()); ok {
			return value.FromObject(t.Repeat(b.Int())), nil
		}
	}
	return numericBinOp(a, b,
		func(x, y int64) int64 { return x * y },
		func(x, y float64) float64 { return x * y })
}

// Divide: integer division by zero throws DivisionByZero; float division by
// zero yields IEEE infinity/NaN.
func Divide(a, b value.Value) (value.Value, *Exception) {
	if !a.IsNumeric() || !b.IsNumeric() {
		return value.None(), throwInvalidOperand("arithmetic operators require numeric operands")
	}
	if a.Tag() == value.TagInt && b.Tag() == value.TagInt {
		if b.Int() == 0 {
			return value.None(), NewException(ExcDivisionByZero, "division by zero")
		}
		return value.Int(a.Int() / b.Int()), nil
	}
	return value.Float(a.AsFloat64() / b.AsFloat64()), nil
}

// Modulus: integer modulo by zero throws DivisionByZero. % on floats is
// left undefined by spec.md's open questions; this implementation raises
// InvalidOperand for a float operand on either side.
func Modulus(a, b value.Value) (value.Value, *Exception) {
	if a.Tag() == value.TagInt && b.Tag() == value.TagInt {
		if b.Int() == 0 {
			return value.None(), NewException(ExcDivisionByZero, "division by zero")
		}
		return value.Int(a.Int() % b.Int()), nil
	}
	return value.None(), throwInvalidOperand("% requires integer operands")
}

func LogicNot(v value.Value) value.Value { return value.Bool(!v.ToBool()) }

func BitwiseNot(v value.Value) (value.Value, *Exception) {
	i, err := requireInt(v)
	if err != nil {
		return value.None(), err
	}
	return value.Int(^i), nil
}

func Negate(v value.Value) (value.Value, *Exception) {
	switch v.Tag() {
	case value.TagInt:
		return value.Int(-v.Int()), nil
	case value.TagFloat:
		return value.Float(-v.Float()), nil
	default:
		return value.None(), throwInvalidOperand("- requires a numeric operand")
	}
}

func Plus(v value.Value) (value.Value, *Exception) {
	if !v.IsNumeric() {
		return value.None(), throwInvalidOperand("unary + requires a numeric operand")
	}
	return v, nil
}
