package compiler

import (
	"strings"

	"poise/internal/bytecode"
	"poise/internal/objects"
	"poise/internal/scanner"
	"poise/internal/value"
)

// expression parses and emits one full expression, from the lowest
// (assignment) precedence down through primary/postfix. canAssign is true
// only for this outermost entry; every binary level passes false to its
// right-hand operand, so `a = 1` is a valid statement target but `1 + a = 2`
// is not — the identical convention const_eval.go's chain uses for
// precedence, with assignment threaded through exactly as Crafting
// Interpreters' single-pass compilers do.
func (c *Compiler) expression() {
	c.tryExpr(true)
}

// tryExpr: an optional leading `try` wraps the rest of the expression in a
// try-scope. If evaluating it throws, the caught exception value becomes
// the expression's result instead of propagating; there is no catch
// binding at expression level, so the thrown value stays where the handler
// placed it (a statement-level catch with no name pops it instead).
func (c *Compiler) tryExpr(canAssign bool) {
	if c.match(scanner.TokenTry) {
		enterTry := c.emitJump(bytecode.OpEnterTry)
		c.logicOr(false)
		c.emit(bytecode.OpExitTry)
		skip := c.emitJump(bytecode.OpJump)
		c.patchJumpHere(enterTry)
		c.patchJumpHere(skip)
		return
	}
	c.logicOr(canAssign)
}

func (c *Compiler) logicOr(canAssign bool) {
	c.logicAnd(canAssign)
	for c.match(scanner.TokenOr) {
		c.logicAnd(false)
		c.emit(bytecode.OpLogicOr)
	}
}

func (c *Compiler) logicAnd(canAssign bool) {
	c.bitwiseOr(canAssign)
	for c.match(scanner.TokenAnd) {
		c.bitwiseOr(false)
		c.emit(bytecode.OpLogicAnd)
	}
}

func (c *Compiler) bitwiseOr(canAssign bool) {
	c.bitwiseXor(canAssign)
	for c.match(scanner.TokenPipe) {
		c.bitwiseXor(false)
		c.emit(bytecode.OpBitwiseOr)
	}
}

func (c *Compiler) bitwiseXor(canAssign bool) {
	c.bitwiseAnd(canAssign)
	for c.match(scanner.TokenCaret) {
		c.bitwiseAnd(false)
		c.emit(bytecode.OpBitwiseXor)
	}
}

func (c *Compiler) bitwiseAnd(canAssign bool) {
	c.equality(canAssign)
	for c.match(scanner.TokenAmpersand) {
		c.equality(false)
		c.emit(bytecode.OpBitwiseAnd)
	}
}

func (c *Compiler) equality(canAssign bool) {
	c.comparison(canAssign)
	for {
		switch {
		case c.match(scanner.TokenEqualEqual):
			c.comparison(false)
			c.emit(bytecode.OpEqual)
		case c.match(scanner.TokenBangEqual):
			c.comparison(false)
			c.emit(bytecode.OpNotEqual)
		default:
			return
		}
	}
}

func (c *Compiler) comparison(canAssign bool) {
	c.shift(canAssign)
	for {
		switch {
		case c.match(scanner.TokenLess):
			c.shift(false)
			c.emit(bytecode.OpLessThan)
		case c.match(scanner.TokenLessEqual):
			c.shift(false)
			c.emit(bytecode.OpLessEqual)
		case c.match(scanner.TokenGreater):
			c.shift(false)
			c.emit(bytecode.OpGreaterThan)
		case c.match(scanner.TokenGreaterEqual):
			c.shift(false)
			c.emit(bytecode.OpGreaterEqual)
		default:
			return
		}
	}
}

func (c *Compiler) shift(canAssign bool) {
	c.rangeExpr(canAssign)
	for {
		switch {
		case c.match(scanner.TokenLeftShift):
			c.rangeExpr(false)
			c.emit(bytecode.OpLeftShift)
		case c.match(scanner.TokenRightShift):
			c.rangeExpr(false)
			c.emit(bytecode.OpRightShift)
		default:
			return
		}
	}
}

// rangeExpr: `start..end`, `start..=end`, optionally `by step` (default
// step 1), compiled to a runtime ConstructBuiltin(Range, ...) rather than
// evaluated at compile time — the const_eval.go path is only reachable
// from a `const` declaration or struct-member default.
func (c *Compiler) rangeExpr(canAssign bool) {
	c.term(canAssign)
	inclusive := false
	matchedExclusive := c.match(scanner.TokenDotDot)
	matchedInclusive := false
	if !matchedExclusive {
		matchedInclusive = c.match(scanner.TokenDotDotEqual)
		inclusive = matchedInclusive
	}
	if !matchedExclusive && !matchedInclusive {
		return
	}
	c.term(false)
	if !c.match(scanner.TokenBy) {
		c.emitConstant(value.Int(1))
		c.emit(bytecode.OpLoadConstant)
	} else {
		c.term(false)
	}
	c.emitConstant(value.Int(int64(value.TypeRange)))
	c.emitConstant(value.Int(3))
	c.emitConstant(value.Bool(false))
	c.emitConstant(value.Bool(inclusive))
	c.emit(bytecode.OpConstructBuiltin)
}

func (c *Compiler) term(canAssign bool) {
	c.factor(canAssign)
	for {
		switch {
		case c.match(scanner.TokenPlus):
			c.factor(false)
			c.emit(bytecode.OpAddition)
		case c.match(scanner.TokenMinus):
			c.factor(false)
			c.emit(bytecode.OpSubtraction)
		default:
			return
		}
	}
}

func (c *Compiler) factor(canAssign bool) {
	c.unary(canAssign)
	for {
		switch {
		case c.match(scanner.TokenStar):
			c.unary(false)
			c.emit(bytecode.OpMultiply)
		case c.match(scanner.TokenSlash):
			c.unary(false)
			c.emit(bytecode.OpDivide)
		case c.match(scanner.TokenPercent):
			c.unary(false)
			c.emit(bytecode.OpModulus)
		default:
			return
		}
	}
}

func (c *Compiler) unary(canAssign bool) {
	switch {
	case c.match(scanner.TokenMinus):
		c.unary(false)
		c.emit(bytecode.OpNegate)
	case c.match(scanner.TokenTilde):
		c.unary(false)
		c.emit(bytecode.OpBitwiseNot)
	case c.match(scanner.TokenBang):
		c.unary(false)
		c.emit(bytecode.OpLogicNot)
	case c.match(scanner.TokenPlus):
		c.unary(false)
		c.emit(bytecode.OpPlus)
	default:
		c.callOrAccess(canAssign)
	}
}

// callOrAccess parses a primary expression followed by zero or more
// `.member`, `(args)`, `[index]` postfix operators. A `(args)` call
// immediately following `.member` is compiled with dotCall=true; LoadMember
// itself resolves a bound extension-method value when the receiver isn't a
// struct with that field, so the call site needs no separate receiver push.
func (c *Compiler) callOrAccess(canAssign bool) {
	if c.primary(canAssign) {
		return
	}
	dotCall := false
	for {
		switch {
		case c.match(scanner.TokenDot):
			c.consume(scanner.TokenIdentifier, "expected a member name after '.'")
			c.emitConstant(value.Int(int64(internName(c.previous.Text))))
			c.emit(bytecode.OpLoadMember)
			dotCall = true
		case c.match(scanner.TokenLeftParen):
			c.finishCall(dotCall)
			dotCall = false
		case c.match(scanner.TokenLeftBracket):
			dotCall = false
			c.expression()
			c.consume(scanner.TokenRightBracket, "expected ']' after index")
			if canAssign && c.match(scanner.TokenEqual) {
				c.expression()
				c.emit(bytecode.OpAssignIndex)
				return
			}
			c.emit(bytecode.OpLoadIndex)
		default:
			return
		}
	}
}

// finishCall parses a parenthesized argument list whose opening '(' the
// caller already consumed, with an optional trailing `...expr` spread as
// the final argument.
func (c *Compiler) finishCall(dotCall bool) {
	argCount, hasUnpack := c.argumentList(scanner.TokenRightParen)
	c.consume(scanner.TokenRightParen, "expected ')' after arguments")
	c.emitConstant(value.Int(int64(argCount)))
	c.emitConstant(value.Bool(hasUnpack))
	c.emitConstant(value.Bool(dotCall))
	c.emit(bytecode.OpCall)
}

// argumentList parses comma-separated expressions up to (not consuming)
// closeTok, returning how many were pushed and whether the last one was a
// `...`-prefixed spread.
func (c *Compiler) argumentList(closeTok scanner.TokenType) (count int, hasUnpack bool) {
	if c.check(closeTok) {
		return 0, false
	}
	for {
		if c.match(scanner.TokenEllipsis) {
			hasUnpack = true
			c.expression()
			count++
			break
		}
		c.expression()
		count++
		if !c.match(scanner.TokenComma) {
			break
		}
		if c.check(closeTok) {
			break
		}
	}
	return count, hasUnpack
}

// finishConstructorCall compiles `Type(args)` to ConstructBuiltin. Range
// additionally carries an inclusive flag; an explicit `Range(...)` call
// (as opposed to the `a..b` literal) always constructs the exclusive form.
func (c *Compiler) finishConstructorCall(tag value.TypeTag) {
	c.consume(scanner.TokenLeftParen, "expected '(' after type name")
	argCount, hasUnpack := c.argumentList(scanner.TokenRightParen)
	c.consume(scanner.TokenRightParen, "expected ')' after constructor arguments")
	c.emitConstant(value.Int(int64(tag)))
	c.emitConstant(value.Int(int64(argCount)))
	c.emitConstant(value.Bool(hasUnpack))
	if tag == value.TypeRange {
		c.emitConstant(value.Bool(false))
	}
	c.emit(bytecode.OpConstructBuiltin)
}

func (c *Compiler) listLiteral() {
	argCount, hasUnpack := c.argumentList(scanner.TokenRightBracket)
	c.consume(scanner.TokenRightBracket, "expected ']' to close list literal")
	c.emitConstant(value.Int(int64(value.TypeList)))
	c.emitConstant(value.Int(int64(argCount)))
	c.emitConstant(value.Bool(hasUnpack))
	c.emit(bytecode.OpConstructBuiltin)
}

// dictLiteral compiles each `key: value` entry into a 2-element Tuple, then
// collects pairCount of them into a Dict — reusing Tuple construction
// rather than inventing a dedicated pair op.
func (c *Compiler) dictLiteral() {
	pairCount := 0
	if !c.check(scanner.TokenRightBrace) {
		for {
			c.expression()
			c.consume(scanner.TokenColon, "expected ':' after dict key")
			c.expression()
			c.emitConstant(value.Int(int64(value.TypeTuple)))
			c.emitConstant(value.Int(2))
			c.emitConstant(value.Bool(false))
			c.emit(bytecode.OpConstructBuiltin)
			pairCount++
			if !c.match(scanner.TokenComma) {
				break
			}
			if c.check(scanner.TokenRightBrace) {
				break
			}
		}
	}
	c.consume(scanner.TokenRightBrace, "expected '}' to close dict literal")
	c.emitConstant(value.Int(int64(value.TypeDict)))
	c.emitConstant(value.Int(int64(pairCount)))
	c.emitConstant(value.Bool(false))
	c.emit(bytecode.OpConstructBuiltin)
}

// groupingOrTuple parses a parenthesized expression. A trailing comma turns
// it into a Tuple literal (`(a,)` is a one-element tuple; `(a, b)` two);
// without one it's plain grouping.
func (c *Compiler) groupingOrTuple() {
	c.expression()
	if !c.match(scanner.TokenComma) {
		c.consume(scanner.TokenRightParen, "expected ')' after grouped expression")
		return
	}
	count := 1
	for !c.check(scanner.TokenRightParen) {
		c.expression()
		count++
		if !c.match(scanner.TokenComma) {
			break
		}
	}
	c.consume(scanner.TokenRightParen, "expected ')' to close tuple")
	c.emitConstant(value.Int(int64(value.TypeTuple)))
	c.emitConstant(value.Int(int64(count)))
	c.emitConstant(value.Bool(false))
	c.emit(bytecode.OpConstructBuiltin)
}

// lambdaExpr parses `|capture, ...| (params) => expr` or
// `|capture, ...| (params) { block }`. Captures are explicit: each named
// outer local is resolved against the enclosing function before the
// lambda's own funcState is pushed, then CaptureLocal-ed in after
// MakeLambda pushes the clone.
func (c *Compiler) lambdaExpr() {
	var captureNames []string
	var captureIndices []int
	if !c.check(scanner.TokenPipe) {
		for {
			c.consume(scanner.TokenIdentifier, "expected a capture name")
			name := c.previous.Text
			idx, ok := c.resolveLocal(name)
			if !ok {
				c.errorAtPrevious("'" + name + "' is not a local in the enclosing function")
			}
			captureNames = append(captureNames, name)
			captureIndices = append(captureIndices, idx)
			if !c.match(scanner.TokenComma) {
				break
			}
		}
	}
	c.consume(scanner.TokenPipe, "expected closing '|' after lambda captures")

	fn := objects.NewFunction("", c.path, c.namespaceHash)
	c.funcs = append(c.funcs, &funcState{fn: fn, isLambda: true, captures: captureNames})
	c.pushContext(ContextLambda)

	c.consume(scanner.TokenLeftParen, "expected '(' after lambda captures")
	if !c.check(scanner.TokenRightParen) {
		for {
			c.parseParam(fn)
			if !c.match(scanner.TokenComma) {
				break
			}
		}
	}
	c.consume(scanner.TokenRightParen, "expected ')' after lambda parameters")
	fn.Arity = len(c.currentFunc().locals)

	if c.match(scanner.TokenFatArrow) {
		c.expression()
		c.emitConstant(value.Int(0))
		c.emit(bytecode.OpPopLocals)
		c.emit(bytecode.OpReturn)
	} else {
		c.consume(scanner.TokenLeftBrace, "expected '{' or '=>' to begin lambda body")
		c.beginScope()
		for !c.check(scanner.TokenRightBrace) && !c.check(scanner.TokenEOF) {
			c.statement()
		}
		c.consume(scanner.TokenRightBrace, "expected '}' to close lambda body")
		c.endScope()
		c.emitConstant(value.Int(0))
		c.emit(bytecode.OpPopLocals)
		c.emitConstant(value.None())
		c.emit(bytecode.OpLoadConstant)
		c.emit(bytecode.OpReturn)
	}

	c.popContext()
	c.funcs = c.funcs[:len(c.funcs)-1]

	c.emitConstant(value.FromObject(fn))
	c.emit(bytecode.OpMakeLambda)
	for _, idx := range captureIndices {
		c.emitConstant(value.Int(int64(idx)))
		c.emit(bytecode.OpCaptureLocal)
	}
}

// resolveCapture looks up name in the current (innermost) function's
// explicit capture list, used only while compiling a lambda body.
func (c *Compiler) resolveCapture(name string) (int, bool) {
	fs := c.currentFunc()
	for i, n := range fs.captures {
		if n == name {
			return i, true
		}
	}
	return 0, false
}

// primary parses one primary expression. It returns true only when it has
// fully compiled and consumed a bare-identifier assignment (`name = rhs`),
// in which case callOrAccess must not attempt any postfix chaining.
func (c *Compiler) primary(canAssign bool) bool {
	switch {
	case c.match(scanner.TokenInt):
		c.emitConstant(value.Int(parseIntLiteral(c.previous.Text)))
		c.emit(bytecode.OpLoadConstant)
	case c.match(scanner.TokenFloat):
		c.emitConstant(value.Float(parseFloatLiteral(c.previous.Text)))
		c.emit(bytecode.OpLoadConstant)
	case c.match(scanner.TokenString):
		c.emitConstant(value.String(unescapeString(c.previous.Text[1 : len(c.previous.Text)-1])))
		c.emit(bytecode.OpLoadConstant)
	case c.match(scanner.TokenTrue):
		c.emitConstant(value.Bool(true))
		c.emit(bytecode.OpLoadConstant)
	case c.match(scanner.TokenFalse):
		c.emitConstant(value.Bool(false))
		c.emit(bytecode.OpLoadConstant)
	case c.match(scanner.TokenNone):
		c.emitConstant(value.None())
		c.emit(bytecode.OpLoadConstant)
	case c.match(scanner.TokenTypeof):
		c.consume(scanner.TokenLeftParen, "expected '(' after 'typeof'")
		c.expression()
		c.consume(scanner.TokenRightParen, "expected ')' after typeof argument")
		c.emit(bytecode.OpTypeOf)
	case c.match(scanner.TokenLeftBracket):
		c.listLiteral()
	case c.match(scanner.TokenLeftBrace):
		c.dictLiteral()
	case c.match(scanner.TokenPipe):
		c.lambdaExpr()
	case c.match(scanner.TokenLeftParen):
		c.groupingOrTuple()
	case c.isTypeToken():
		c.typePrimary()
	case c.check(scanner.TokenThis) || c.check(scanner.TokenIdentifier):
		return c.identifierPrimary(canAssign)
	default:
		c.errorAtCurrent("expected an expression")
		c.advance()
	}
	return false
}

func (c *Compiler) isTypeToken() bool {
	_, ok := typeTagForToken(c.current.Type)
	return ok
}

func (c *Compiler) typePrimary() {
	tag, _ := typeTagForToken(c.current.Type)
	c.advance()
	if c.check(scanner.TokenLeftParen) {
		c.finishConstructorCall(tag)
		return
	}
	c.emitConstant(value.Int(int64(tag)))
	c.emit(bytecode.OpLoadType)
}

// identifierPrimary resolves `this`, a bare identifier, or a qualified
// `ns::name`, against (in order) the current function's locals, the
// current lambda's explicit captures, and finally the current or a
// named-import namespace's constants/functions/structs.
func (c *Compiler) identifierPrimary(canAssign bool) bool {
	c.advance()
	name := c.previous.Text

	if isNativeName(name) {
		return c.nativeCall(name)
	}

	if c.match(scanner.TokenDoubleColon) {
		nsHash, ok := c.imports[name]
		if !ok {
			c.errorAtPrevious("unknown imported namespace '" + name + "'")
		}
		c.consume(scanner.TokenIdentifier, "expected a name after '::'")
		member := c.previous.Text
		if c.structLiteralFollows(nsHash, member) {
			c.structLiteral(nsHash, member, name)
			return false
		}
		c.loadNamespaceMember(nsHash, member, name)
		return false
	}

	if idx, ok := c.resolveLocal(name); ok {
		if canAssign && c.match(scanner.TokenEqual) {
			c.expression()
			c.emitConstant(value.Int(int64(idx)))
			c.emit(bytecode.OpAssignLocal)
			return true
		}
		c.emitConstant(value.Int(int64(idx)))
		c.emit(bytecode.OpLoadLocal)
		return false
	}

	// Extension functions reach this the same way lambdas do: 'this' is
	// registered as a capture name (see parseParam), never as a local.
	if len(c.currentFunc().captures) > 0 {
		if ci, ok := c.resolveCapture(name); ok {
			c.emitConstant(value.Int(int64(ci)))
			c.emit(bytecode.OpLoadCapture)
			return false
		}
	}

	if c.structLiteralFollows(c.namespaceHash, name) {
		c.structLiteral(c.namespaceHash, name, "")
		return false
	}

	c.loadNamespaceMember(c.namespaceHash, name, "")
	return false
}

// isNativeName reports whether an identifier names a native function,
// addressed at runtime by a 64-bit hash of its `__NATIVE_*` spelling.
func isNativeName(name string) bool {
	return strings.HasPrefix(name, "__NATIVE_")
}

// nativeCall compiles `__NATIVE_NAME(args)`. Native calls carry no
// hasUnpack/dotCall flags of their own — the native table enforces its own
// fixed arity and argument types — and are only reachable from a file
// loaded under the standard path.
func (c *Compiler) nativeCall(name string) bool {
	if !c.stdFile {
		c.errorAtPrevious("native functions may only be called from the standard library")
	}
	c.consume(scanner.TokenLeftParen, "expected '(' after native function name")
	argCount, hasUnpack := c.argumentList(scanner.TokenRightParen)
	c.consume(scanner.TokenRightParen, "expected ')' after native arguments")
	if hasUnpack {
		c.errorAtPrevious("native calls do not support '...' argument spreads")
	}
	_ = argCount
	c.emitConstant(value.Int(int64(internName(name))))
	c.emit(bytecode.OpCallNative)
	return false
}

// loadNamespaceMember resolves name as a constant first (inlined directly
// as a Value constant in the referencing function), falling back to a
// runtime LoadFunctionOrStruct lookup for functions and struct templates.
// nsDisplay is the `ns` text of a qualified `ns::name` reference, or "" for
// a bare same-namespace reference; a non-exported constant/function/struct
// reached through a qualified reference is a compile error (a bare
// reference is always within its own declaring file, so exported-ness
// never applies there), matching
// original_source/Compiler_Expressions.cpp's
// `isExported` check on `namespaceQualifiedCall`.
func (c *Compiler) loadNamespaceMember(nsHash uint64, name string, nsDisplay string) {
	if cst, ok := c.manager.GetConstant(nsHash, name); ok {
		if nsDisplay != "" && !cst.Exported {
			c.errorAtPrevious("constant '" + name + "' in namespace '" + nsDisplay + "' is not exported")
			return
		}
		c.emitConstant(cst.Value)
		c.emit(bytecode.OpLoadConstant)
		return
	}
	if nsDisplay != "" {
		if fn, ok := c.manager.GetFunction(nsHash, internName(name)); ok && !fn.Exported {
			c.errorAtPrevious("function '" + name + "' in namespace '" + nsDisplay + "' is not exported")
			return
		}
		if st, ok := c.manager.GetStruct(nsHash, internName(name)); ok && !st.Exported {
			c.errorAtPrevious("struct '" + name + "' in namespace '" + nsDisplay + "' is not exported")
			return
		}
	}
	c.emitConstant(value.Int(int64(nsHash)))
	c.emitConstant(value.Int(int64(internName(name))))
	c.emit(bytecode.OpLoadFunctionOrStruct)
}

// structLiteralFollows reports whether name, in namespace nsHash, names a
// registered struct template AND the next token opens a brace — the only
// shape that distinguishes `Name { ... }` construction from a bare
// function/struct-template reference.
func (c *Compiler) structLiteralFollows(nsHash uint64, name string) bool {
	if !c.check(scanner.TokenLeftBrace) {
		return false
	}
	_, ok := c.manager.GetStruct(nsHash, internName(name))
	return ok
}

// structLiteral compiles `Name { field: expr, ... }`. The struct's
// constructor value (LoadFunctionOrStruct resolves a struct template to a
// callable the same way it resolves a function) is pushed first, then one
// 2-element (fieldNameHash, value) Tuple per field — the same
// pair-then-collect shape dictLiteral uses for `key: value` entries — and
// finally a Call whose argument count is the field count. The VM's Call
// handler recognizes a struct-template callee and threads the Tuple pairs
// into objects.Instantiate as member overrides. nsDisplay is the `ns` text
// of a qualified `ns::Name { }` construction, or "" for a same-namespace
// one; constructing a non-exported struct through a qualified reference is
// a compile error, same rule loadNamespaceMember applies to functions and
// constants.
func (c *Compiler) structLiteral(nsHash uint64, name string, nsDisplay string) {
	if nsDisplay != "" {
		if st, ok := c.manager.GetStruct(nsHash, internName(name)); ok && !st.Exported {
			c.errorAtPrevious("struct '" + name + "' in namespace '" + nsDisplay + "' is not exported")
		}
	}
	c.emitConstant(value.Int(int64(nsHash)))
	c.emitConstant(value.Int(int64(internName(name))))
	c.emit(bytecode.OpLoadFunctionOrStruct)

	c.consume(scanner.TokenLeftBrace, "expected '{' to begin struct literal")
	fieldCount := 0
	if !c.check(scanner.TokenRightBrace) {
		for {
			c.consume(scanner.TokenIdentifier, "expected a field name")
			fieldName := c.previous.Text
			c.consume(scanner.TokenColon, "expected ':' after field name")
			c.emitConstant(value.Int(int64(internName(fieldName))))
			c.emit(bytecode.OpLoadConstant)
			c.expression()
			c.emitConstant(value.Int(int64(value.TypeTuple)))
			c.emitConstant(value.Int(2))
			c.emitConstant(value.Bool(false))
			c.emit(bytecode.OpConstructBuiltin)
			fieldCount++
			if !c.match(scanner.TokenComma) {
				break
			}
			if c.check(scanner.TokenRightBrace) {
				break
			}
		}
	}
	c.consume(scanner.TokenRightBrace, "expected '}' to close struct literal")

	c.emitConstant(value.Int(int64(fieldCount)))
	c.emitConstant(value.Bool(false))
	c.emitConstant(value.Bool(false))
	c.emit(bytecode.OpCall)
}
