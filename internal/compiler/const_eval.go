package compiler

import (
	"fmt"

	"poise/internal/objects"
	"poise/internal/scanner"
	"poise/internal/value"
)

// evalConstExpr is the second parser path used only by `const` declarations
// and struct-member defaults: it evaluates literals, unary/binary operators,
// and parenthesized range grouping directly to a Value by applying the same
// operator implementations objects/operators.go exposes to the VM.
// Identifier references are not resolved here; encountering one yields none.
func (c *Compiler) evalConstExpr() value.Value {
	return c.constOr()
}

func (c *Compiler) fail(exc *objects.Exception) value.Value {
	c.errorAtPrevious(fmt.Sprintf("Error evaluating constant expression: %s", exc.Message))
	return value.None()
}

func (c *Compiler) constOr() value.Value {
	left := c.constAnd()
	for c.match(scanner.TokenOr) {
		right := c.constAnd()
		left = objects.LogicOr(left, right)
	}
	return left
}

func (c *Compiler) constAnd() value.Value {
	left := c.constBitwiseOr()
	for c.match(scanner.TokenAnd) {
		right := c.constBitwiseOr()
		left = objects.LogicAnd(left, right)
	}
	return left
}

func (c *Compiler) constBitwiseOr() value.Value {
	left := c.constBitwiseXor()
	for c.match(scanner.TokenPipe) {
		right := c.constBitwiseXor()
		if v, err := objects.BitwiseOr(left, right); err != nil {
			return c.fail(err)
		} else {
			left = v
		}
	}
	return left
}

func (c *Compiler) constBitwiseXor() value.Value {
	left := c.constBitwiseAnd()
	for c.match(scanner.TokenCaret) {
		right := c.constBitwiseAnd()
		if v, err := objects.BitwiseXor(left, right); err != nil {
			return c.fail(err)
		} else {
			left = v
		}
	}
	return left
}

func (c *Compiler) constBitwiseAnd() value.Value {
	left := c.constEquality()
	for c.match(scanner.TokenAmpersand) {
		right := c.constEquality()
		if v, err := objects.BitwiseAnd(left, right); err != nil {
			return c.fail(err)
		} else {
			left = v
		}
	}
	return left
}

func (c *Compiler) constEquality() value.Value {
	left := c.constComparison()
	for {
		if c.match(scanner.TokenEqualEqual) {
			left = objects.Equal(left, c.constComparison())
		} else if c.match(scanner.TokenBangEqual) {
			left = objects.NotEqual(left, c.constComparison())
		} else {
			return left
		}
	}
}

func (c *Compiler) constComparison() value.Value {
	left := c.constShift()
	for {
		var op func(value.Value, value.Value) (value.Value, *objects.Exception)
		switch {
		case c.match(scanner.TokenLess):
			op = objects.LessThan
		case c.match(scanner.TokenLessEqual):
			op = objects.LessEqual
		case c.match(scanner.TokenGreater):
			op = objects.GreaterThan
		case c.match(scanner.TokenGreaterEqual):
			op = objects.GreaterEqual
		default:
			return left
		}
		right := c.constShift()
		v, err := op(left, right)
		if err != nil {
			return c.fail(err)
		}
		left = v
	}
}

func (c *Compiler) constShift() value.Value {
	left := c.constRange()
	for {
		var op func(value.Value, value.Value) (value.Value, *objects.Exception)
		switch {
		case c.match(scanner.TokenLeftShift):
			op = objects.LeftShift
		case c.match(scanner.TokenRightShift):
			op = objects.RightShift
		default:
			return left
		}
		right := c.constRange()
		v, err := op(left, right)
		if err != nil {
			return c.fail(err)
		}
		left = v
	}
}

func (c *Compiler) constRange() value.Value {
	left := c.constTerm()
	inclusive := false
	if c.match(scanner.TokenDotDot) || func() bool { inclusive = c.match(scanner.TokenDotDotEqual); return inclusive }() {
		end := c.constTerm()
		step := int64(1)
		if c.match(scanner.TokenBy) {
			stepVal := c.constTerm()
			if stepVal.Tag() == value.TagInt {
				step = stepVal.Int()
			}
		}
		if left.Tag() != value.TagInt || end.Tag() != value.TagInt {
			c.errorAtPrevious("range bounds must be Int")
			return value.None()
		}
		return value.FromObject(objects.NewRange(left.Int(), end.Int(), step, inclusive))
	}
	return left
}

func (c *Compiler) constTerm() value.Value {
	left := c.constFactor()
	for {
		switch {
		case c.match(scanner.TokenPlus):
			v, err := objects.Addition(left, c.constFactor())
			if err != nil {
				return c.fail(err)
			}
			left = v
		case c.match(scanner.TokenMinus):
			v, err := objects.Subtraction(left, c.constFactor())
			if err != nil {
				return c.fail(err)
			}
			left = v
		default:
			return left
		}
	}
}

func (c *Compiler) constFactor() value.Value {
	left := c.constUnary()
	for {
		switch {
		case c.match(scanner.TokenStar):
			v, err := objects.Multiply(left, c.constUnary())
			if err != nil {
				return c.fail(err)
			}
			left = v
		case c.match(scanner.TokenSlash):
			v, err := objects.Divide(left, c.constUnary())
			if err != nil {
				return c.fail(err)
			}
			left = v
		case c.match(scanner.TokenPercent):
			v, err := objects.Modulus(left, c.constUnary())
			if err != nil {
				return c.fail(err)
			}
			left = v
		default:
			return left
		}
	}
}

func (c *Compiler) constUnary() value.Value {
	switch {
	case c.match(scanner.TokenMinus):
		v, err := objects.Negate(c.constUnary())
		if err != nil {
			return c.fail(err)
		}
		return v
	case c.match(scanner.TokenTilde):
		v, err := objects.BitwiseNot(c.constUnary())
		if err != nil {
			return c.fail(err)
		}
		return v
	case c.match(scanner.TokenBang):
		return objects.LogicNot(c.constUnary())
	case c.match(scanner.TokenPlus):
		v, err := objects.Plus(c.constUnary())
		if err != nil {
			return c.fail(err)
		}
		return v
	default:
		return c.constPrimary()
	}
}

func (c *Compiler) constPrimary() value.Value {
	switch {
	case c.match(scanner.TokenInt):
		return value.Int(parseIntLiteral(c.previous.Text))
	case c.match(scanner.TokenFloat):
		return value.Float(parseFloatLiteral(c.previous.Text))
	case c.match(scanner.TokenString):
		return value.String(unescapeString(c.previous.Text[1 : len(c.previous.Text)-1]))
	case c.match(scanner.TokenTrue):
		return value.Bool(true)
	case c.match(scanner.TokenFalse):
		return value.Bool(false)
	case c.match(scanner.TokenNone):
		return value.None()
	case c.match(scanner.TokenIdentifier):
		// Identifier references are not resolved in constant expressions.
		return value.None()
	case c.match(scanner.TokenLeftParen):
		v := c.evalConstExpr()
		c.consume(scanner.TokenRightParen, "expected ')' after grouped expression")
		return v
	default:
		c.errorAtCurrent("expected a constant expression")
		c.advance()
		return value.None()
	}
}
