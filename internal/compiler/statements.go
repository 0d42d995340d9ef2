package compiler

import (
	"poise/internal/bytecode"
	"poise/internal/scanner"
	"poise/internal/value"
)

// statement parses one statement: print family, return, throw, try/catch,
// if/else, while, for-in, break, var/final, or an expression statement.
func (c *Compiler) statement() {
	if c.panicMode {
		c.synchronize()
	}
	switch {
	case c.match(scanner.TokenPrint):
		c.printStmt(false, false)
	case c.match(scanner.TokenPrintln):
		c.printStmt(false, true)
	case c.match(scanner.TokenEprint):
		c.printStmt(true, false)
	case c.match(scanner.TokenEprintln):
		c.printStmt(true, true)
	case c.match(scanner.TokenReturn):
		c.returnStmt()
	case c.match(scanner.TokenThrow):
		c.throwStmt()
	case c.match(scanner.TokenTry):
		c.tryStmt()
	case c.match(scanner.TokenIf):
		c.ifStmt()
	case c.match(scanner.TokenWhile):
		c.whileStmt()
	case c.match(scanner.TokenFor):
		c.forStmt()
	case c.match(scanner.TokenBreak):
		c.breakStmt()
	case c.match(scanner.TokenAssert):
		c.assertStmt()
	case c.match(scanner.TokenVar):
		c.varStmt(false)
	case c.match(scanner.TokenFinal):
		c.varStmt(true)
	case c.match(scanner.TokenLeftBrace):
		c.blockStmt()
	default:
		c.exprStmt()
	}
}

func (c *Compiler) printStmt(errStream, newline bool) {
	c.expression()
	c.consume(scanner.TokenSemicolon, "expected ';' after print statement")
	c.emitConstant(value.Bool(errStream))
	c.emitConstant(value.Bool(newline))
	c.emit(bytecode.OpPrint)
}

func (c *Compiler) assertStmt() {
	c.expression()
	c.consume(scanner.TokenSemicolon, "expected ';' after assert statement")
	c.emit(bytecode.OpAssert)
}

func (c *Compiler) returnStmt() {
	if c.check(scanner.TokenSemicolon) {
		c.emitConstant(value.None())
		c.emit(bytecode.OpLoadConstant)
	} else {
		c.expression()
	}
	c.consume(scanner.TokenSemicolon, "expected ';' after return statement")
	c.emitConstant(value.Int(0))
	c.emit(bytecode.OpPopLocals)
	c.emit(bytecode.OpReturn)
}

func (c *Compiler) throwStmt() {
	c.expression()
	c.consume(scanner.TokenSemicolon, "expected ';' after throw statement")
	c.emit(bytecode.OpThrow)
}

func (c *Compiler) blockStmt() {
	c.beginScope()
	for !c.check(scanner.TokenRightBrace) && !c.check(scanner.TokenEOF) {
		c.statement()
	}
	c.consume(scanner.TokenRightBrace, "expected '}' to close block")
	scopeStart := c.endScope()
	c.emitConstant(value.Int(int64(scopeStart)))
	c.emit(bytecode.OpPopLocals)
}

// varStmt parses `var`/`final` declarations: one or more comma-separated
// names with optional type annotations and initializers, or a single
// unpacking declaration `var a, b, c = ...expr;`.
func (c *Compiler) varStmt(final bool) {
	var names []string
	c.consume(scanner.TokenIdentifier, "expected a variable name")
	names = append(names, c.previous.Text)
	if c.match(scanner.TokenColon) {
		c.consumeTypeAnnotation()
	}
	for c.match(scanner.TokenComma) {
		c.consume(scanner.TokenIdentifier, "expected a variable name")
		names = append(names, c.previous.Text)
		if c.match(scanner.TokenColon) {
			c.consumeTypeAnnotation()
		}
	}

	if len(names) > 1 {
		c.consume(scanner.TokenEqual, "multiple variable declarations require an initializer")
		c.consume(scanner.TokenEllipsis, "multiple variable declarations must unpack with '...'")
		c.expression()
		c.emit(bytecode.OpUnpack)
		c.emitConstant(value.Int(int64(len(names))))
		c.emit(bytecode.OpDeclareMultipleLocals)
		for _, n := range names {
			c.currentFunc().locals = append(c.currentFunc().locals, localVar{name: n, depth: c.currentFunc().scopeDepth})
		}
		c.consume(scanner.TokenSemicolon, "expected ';' after variable declaration")
		return
	}

	if c.match(scanner.TokenEqual) {
		c.expression()
	} else {
		if final {
			c.errorAtPrevious("'final' requires an initializer")
		}
		c.emitConstant(value.None())
		c.emit(bytecode.OpLoadConstant)
	}
	c.consume(scanner.TokenSemicolon, "expected ';' after variable declaration")
	c.declareLocal(names[0])
}

func (c *Compiler) exprStmt() {
	c.expression()
	c.consume(scanner.TokenSemicolon, "expected ';' after expression statement")
	c.emit(bytecode.OpPop)
}

// ifStmt: JumpIfFalse never pops its condition itself; the compiler emits
// an explicit Pop on both the fallthrough (true) path and the jump target
// (false) path, per the original's peek-only jump semantics.
func (c *Compiler) ifStmt() {
	c.pushContext(ContextIfStatement)
	defer c.popContext()

	c.expression()
	thenJump := c.emitJump(bytecode.OpJumpIfFalse)
	c.emit(bytecode.OpPop)

	c.consume(scanner.TokenLeftBrace, "expected '{' after if condition")
	c.blockStmt()

	skipJump := c.emitJump(bytecode.OpJump)
	c.patchJumpHere(thenJump)
	c.emit(bytecode.OpPop)

	if c.match(scanner.TokenElse) {
		if c.match(scanner.TokenIf) {
			c.ifStmt()
		} else {
			c.consume(scanner.TokenLeftBrace, "expected '{' after else")
			c.blockStmt()
		}
	}
	c.patchJumpHere(skipJump)
}

func (c *Compiler) whileStmt() {
	fn := c.currentFunc().fn
	loopTopConst, loopTopOp := fn.NextConstIndex(), fn.NextOpIndex()

	c.pushContext(ContextWhileLoop)

	c.expression()
	exitJump := c.emitJump(bytecode.OpJumpIfFalse)
	c.emit(bytecode.OpPop)

	c.consume(scanner.TokenLeftBrace, "expected '{' after while condition")
	c.blockStmt()

	c.emitJumpTo(loopTopConst, loopTopOp)

	c.patchJumpHere(exitJump)
	c.emit(bytecode.OpPop)

	frame := c.popContext()
	for _, p := range frame.loop.breakPatches {
		c.patchJumpHere(p)
	}
}

func (c *Compiler) forStmt() {
	c.beginScope()
	c.pushContext(ContextForLoop)

	c.consume(scanner.TokenIdentifier, "expected a loop variable name")
	firstName := c.previous.Text
	secondName := ""
	if c.match(scanner.TokenComma) {
		c.consume(scanner.TokenIdentifier, "expected a second loop variable name")
		secondName = c.previous.Text
	}
	c.consume(scanner.TokenIn, "expected 'in' after for-loop variables")

	c.emitConstant(value.None())
	c.emit(bytecode.OpLoadConstant)
	firstIdx := c.declareLocal(firstName)
	secondIdx := -1
	if secondName != "" {
		c.emitConstant(value.None())
		c.emit(bytecode.OpLoadConstant)
		secondIdx = c.declareLocal(secondName)
	}

	c.expression()
	c.emitConstant(value.Int(int64(firstIdx)))
	c.emitConstant(value.Int(int64(secondIdx)))
	c.emit(bytecode.OpInitIterator)

	fn := c.currentFunc().fn
	testConst, testOp := fn.NextConstIndex(), fn.NextOpIndex()
	exitJump := c.emitJump(bytecode.OpJumpIfTrue)
	c.emit(bytecode.OpPop)

	c.consume(scanner.TokenLeftBrace, "expected '{' after for-loop header")
	c.blockStmt()

	c.emitConstant(value.Int(int64(firstIdx)))
	c.emitConstant(value.Int(int64(secondIdx)))
	c.emit(bytecode.OpIncrementIterator)
	c.emitJumpTo(testConst, testOp)

	c.patchJumpHere(exitJump)
	c.emit(bytecode.OpPop)

	frame := c.popContext()
	for _, p := range frame.loop.breakPatches {
		c.patchJumpHere(p)
	}

	c.emit(bytecode.OpPopIterator)
	scopeStart := c.endScope()
	c.emitConstant(value.Int(int64(scopeStart)))
	c.emit(bytecode.OpPopLocals)
}

// breakStmt walks the context stack for the nearest enclosing loop and
// reserves a forward jump to be patched once the loop's exit position is
// known.
func (c *Compiler) breakStmt() {
	info, ok := c.enclosingLoop()
	if !ok {
		c.errorAtPrevious("'break' outside of a loop, or a lambda encloses the loop")
		c.consume(scanner.TokenSemicolon, "expected ';' after break")
		return
	}
	c.consume(scanner.TokenSemicolon, "expected ';' after break")
	p := c.emitJump(bytecode.OpJump)
	info.breakPatches = append(info.breakPatches, p)
}

// tryStmt: `try { ... } catch name { ... }` or `try { ... } catch { ... }`.
func (c *Compiler) tryStmt() {
	c.pushContext(ContextTryCatch)
	defer c.popContext()

	enterTry := c.emitJump(bytecode.OpEnterTry)

	c.beginScope()
	c.consume(scanner.TokenLeftBrace, "expected '{' after try")
	for !c.check(scanner.TokenRightBrace) && !c.check(scanner.TokenEOF) {
		c.statement()
	}
	c.consume(scanner.TokenRightBrace, "expected '}' to close try block")
	scopeStart := c.endScope()
	c.emitConstant(value.Int(int64(scopeStart)))
	c.emit(bytecode.OpPopLocals)
	c.emit(bytecode.OpExitTry)
	afterCatch := c.emitJump(bytecode.OpJump)

	c.patchJumpHere(enterTry)

	c.consume(scanner.TokenCatch, "expected 'catch' after try block")
	c.beginScope()
	if c.match(scanner.TokenIdentifier) {
		c.declareLocal(c.previous.Text)
	} else {
		c.emit(bytecode.OpPop)
	}
	c.consume(scanner.TokenLeftBrace, "expected '{' after catch clause")
	for !c.check(scanner.TokenRightBrace) && !c.check(scanner.TokenEOF) {
		c.statement()
	}
	c.consume(scanner.TokenRightBrace, "expected '}' to close catch block")
	catchScopeStart := c.endScope()
	c.emitConstant(value.Int(int64(catchScopeStart)))
	c.emit(bytecode.OpPopLocals)

	c.patchJumpHere(afterCatch)
}
