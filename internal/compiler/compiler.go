// Package compiler implements Poise's single-pass recursive-descent
// compiler: it scans a source file and emits bytecode directly into
// objects.Function code objects as it parses, with no separate AST stage.
package compiler

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"poise/internal/bytecode"
	"poise/internal/intern"
	"poise/internal/namespace"
	"poise/internal/objects"
	"poise/internal/scanner"
	"poise/internal/value"
)

// Result is what compiling one file produces.
type Result struct {
	NamespaceHash uint64
	EntryFunction *objects.Function // non-nil only for the main file, once `main` is found
	HadError      bool

	// EntryOpIndex/EntryConstIndex mark where the VM should start executing
	// within EntryFunction: not op 0 (that's the start of `main`'s own
	// body), but the bootstrap tail synthesizeBootstrap appends after it,
	// which looks `main` up by name and calls it. main's own body is only
	// ever reached by that call, via the ordinary Call protocol.
	EntryOpIndex    int
	EntryConstIndex int
}

// funcState is one entry on the compiler's function-being-built stack: the
// Function currently receiving emitted ops/constants, plus its local-name
// scope.
type funcState struct {
	fn         *objects.Function
	locals     []localVar
	scopeDepth int

	// isLambda and captures are only meaningful while building a lambda:
	// captures lists the outer-local names named in its `|...|` header, in
	// the same order CaptureLocal ops were emitted for them, so the body
	// can resolve a bare identifier to LoadCapture.
	isLambda bool
	captures []string
}

type localVar struct {
	name  string
	depth int
}

// Compiler compiles exactly one source file. Imports spawn a fresh
// Compiler per imported file, sharing the same namespace.Manager and
// std-path configuration.
type Compiler struct {
	path          string
	displayName   string
	namespaceHash uint64
	manager       *namespace.Manager
	stdPath       string

	mainFile      bool
	stdFile       bool
	passedImports bool

	// imports maps an import's alias (or, absent one, the last path
	// segment) to the namespace hash it refers to, for `ns::name`
	// resolution in expressions.
	imports map[string]uint64

	sc       *scanner.Scanner
	previous scanner.Token
	current  scanner.Token

	hadError  bool
	panicMode bool

	funcs    []*funcState
	contexts []ctxFrame

	entryFunction *objects.Function
}

// New constructs a Compiler for one file. mainFile marks the entry file
// (whose `main` becomes the entry function); stdFile marks a file loaded
// from the standard path.
func New(path, displayName string, manager *namespace.Manager, stdPath string, mainFile, stdFile bool) *Compiler {
	return &Compiler{
		path:        path,
		displayName: displayName,
		manager:     manager,
		stdPath:     stdPath,
		mainFile:    mainFile,
		stdFile:     stdFile,
		imports:     make(map[string]uint64),
	}
}

// Compile scans and parses source, registering every top-level function,
// struct, and constant with the namespace manager. On success for the main
// file, it also synthesizes the bootstrap call to `main`.
func (c *Compiler) Compile(source string) Result {
	c.namespaceHash, _ = c.manager.AddNamespace(c.path, c.displayName, 0, false)
	c.sc = scanner.New(c.path, source)
	c.advance()

	c.pushContext(ContextTopLevel)
	for !c.check(scanner.TokenEOF) {
		c.declaration()
	}
	c.popContext()

	var entryOp, entryConst int
	if c.mainFile && !c.hadError && c.entryFunction != nil {
		entryOp = c.entryFunction.NextOpIndex()
		entryConst = c.entryFunction.NextConstIndex()
		c.synthesizeBootstrap()
	}

	return Result{
		NamespaceHash:   c.namespaceHash,
		EntryFunction:   c.entryFunction,
		HadError:        c.hadError,
		EntryOpIndex:    entryOp,
		EntryConstIndex: entryConst,
	}
}

// synthesizeBootstrap emits the fixed op sequence Compiler.cpp::compile uses
// to invoke `main` from the top of the program: load it by name, call with
// zero args, discard the result, exit.
func (c *Compiler) synthesizeBootstrap() {
	fn := c.entryFunction
	nsSlot := fn.EmitConstant(value.Int(int64(c.namespaceHash)))
	_ = nsSlot
	fn.EmitConstant(value.Int(int64(fn.NameHash)))
	fn.EmitOp(bytecode.OpLoadFunctionOrStruct, 0)
	fn.EmitConstant(value.Int(0))
	fn.EmitConstant(value.Bool(false))
	fn.EmitConstant(value.Bool(false))
	fn.EmitOp(bytecode.OpCall, 0)
	fn.EmitOp(bytecode.OpPop, 0)
	fn.EmitOp(bytecode.OpExit, 0)
}

// --- token stream primitives ---

func (c *Compiler) advance() {
	c.previous = c.current
	for {
		c.current = c.sc.Next()
		if c.current.Type != scanner.TokenError {
			break
		}
		c.errorAtCurrent(c.current.Text)
	}
}

func (c *Compiler) check(t scanner.TokenType) bool {
	return c.current.Type == t
}

func (c *Compiler) match(t scanner.TokenType) bool {
	if !c.check(t) {
		return false
	}
	c.advance()
	return true
}

func (c *Compiler) consume(t scanner.TokenType, message string) {
	if c.current.Type == t {
		c.advance()
		return
	}
	c.errorAtCurrent(message)
}

// synchronize skips tokens until a plausible declaration/statement boundary,
// after a parse error, so one mistake doesn't cascade into dozens.
func (c *Compiler) synchronize() {
	c.panicMode = false
	for c.current.Type != scanner.TokenEOF {
		if c.previous.Type == scanner.TokenSemicolon || c.previous.Type == scanner.TokenRightBrace {
			return
		}
		switch c.current.Type {
		case scanner.TokenFunc, scanner.TokenVar, scanner.TokenFinal, scanner.TokenConst,
			scanner.TokenStruct, scanner.TokenImport, scanner.TokenExport,
			scanner.TokenIf, scanner.TokenWhile, scanner.TokenFor, scanner.TokenReturn:
			return
		}
		c.advance()
	}
}

// --- shared helpers ---

func internName(s string) uint64 { return intern.String(s) }

func (c *Compiler) currentFunc() *funcState {
	return c.funcs[len(c.funcs)-1]
}

func (c *Compiler) emit(op bytecode.Op) {
	c.currentFunc().fn.EmitOp(op, c.previous.Line)
}

func (c *Compiler) emitConstant(v value.Value) int {
	return c.currentFunc().fn.EmitConstant(v)
}

// emitJump reserves two constant slots for a forward jump's target and
// returns the patchSite identifying them; it does not emit any Pop — the
// fallthrough-path Pop (for JumpIfFalse/JumpIfTrue) is the caller's job, per
// the original's non-popping jump semantics.
func (c *Compiler) emitJump(op bytecode.Op) patchSite {
	slot := c.emitConstant(value.Int(0))
	c.emitConstant(value.Int(0))
	c.emit(op)
	return patchSite{constSlot: slot}
}

// patchJumpHere backpatches a previously reserved jump target to the
// current op/constant position.
func (c *Compiler) patchJumpHere(p patchSite) {
	fn := c.currentFunc().fn
	fn.PatchConstant(p.constSlot, value.Int(int64(fn.NextConstIndex())))
	fn.PatchConstant(p.constSlot+1, value.Int(int64(fn.NextOpIndex())))
}

// emitJumpTo emits an unconditional Jump whose target is already known
// (used for loop-back edges).
func (c *Compiler) emitJumpTo(constIndex, opIndex int) {
	c.emitConstant(value.Int(int64(constIndex)))
	c.emitConstant(value.Int(int64(opIndex)))
	c.emit(bytecode.OpJump)
}

// --- local variable scope ---

func (c *Compiler) beginScope() {
	c.currentFunc().scopeDepth++
}

// endScope returns the locals-stack length the scope started at, which the
// caller emits as PopLocals' operand.
func (c *Compiler) endScope() int {
	fs := c.currentFunc()
	fs.scopeDepth--
	scopeStart := len(fs.locals)
	for scopeStart > 0 && fs.locals[scopeStart-1].depth > fs.scopeDepth {
		scopeStart--
	}
	fs.locals = fs.locals[:scopeStart]
	return scopeStart
}

// declareLocal registers name at the current scope depth and emits
// DeclareLocal, which moves the value already on top of the data stack into
// the locals vector. Returns the local's index.
func (c *Compiler) declareLocal(name string) int {
	fs := c.currentFunc()
	fs.locals = append(fs.locals, localVar{name: name, depth: fs.scopeDepth})
	c.emit(bytecode.OpDeclareLocal)
	return len(fs.locals) - 1
}

// resolveLocal searches the innermost function's locals for name, from
// most recently declared to least.
func (c *Compiler) resolveLocal(name string) (int, bool) {
	fs := c.currentFunc()
	for i := len(fs.locals) - 1; i >= 0; i-- {
		if fs.locals[i].name == name {
			return i, true
		}
	}
	return 0, false
}

// resolveEnclosingLocal walks outward past the current (innermost lambda)
// function state looking for name as a local in an enclosing function,
// so a lambda body can capture it. Returns the enclosing local's index.
func (c *Compiler) resolveEnclosingLocal(name string) (int, bool) {
	for depth := len(c.funcs) - 2; depth >= 0; depth-- {
		fs := c.funcs[depth]
		for i := len(fs.locals) - 1; i >= 0; i-- {
			if fs.locals[i].name == name {
				return i, true
			}
		}
	}
	return 0, false
}

func parseIntLiteral(text string) int64 {
	n, _ := strconv.ParseInt(text, 10, 64)
	return n
}

func parseFloatLiteral(text string) float64 {
	f, _ := strconv.ParseFloat(text, 64)
	return f
}

// unescapeString interprets the \t \n \r \" \\ escapes the scanner left
// untouched.
func unescapeString(raw string) string {
	var b strings.Builder
	for i := 0; i < len(raw); i++ {
		if raw[i] == '\\' && i+1 < len(raw) {
			i++
			switch raw[i] {
			case 't':
				b.WriteByte('\t')
			case 'n':
				b.WriteByte('\n')
			case 'r':
				b.WriteByte('\r')
			case '"':
				b.WriteByte('"')
			case '\\':
				b.WriteByte('\\')
			default:
				b.WriteByte('\\')
				b.WriteByte(raw[i])
			}
			continue
		}
		b.WriteByte(raw[i])
	}
	return b.String()
}

func namespacedPath(baseDir string, segments []string) string {
	parts := append([]string{baseDir}, segments[:len(segments)-1]...)
	parts = append(parts, segments[len(segments)-1]+".poise")
	return filepath.Join(parts...)
}

func typeTagForToken(t scanner.TokenType) (value.TypeTag, bool) {
	switch t {
	case scanner.TokenBoolType:
		return value.TypeBool, true
	case scanner.TokenFloatType:
		return value.TypeFloat, true
	case scanner.TokenIntType:
		return value.TypeInt, true
	case scanner.TokenNoneType:
		return value.TypeNone, true
	case scanner.TokenStringType:
		return value.TypeString, true
	case scanner.TokenExceptionType:
		return value.TypeException, true
	case scanner.TokenFunctionType:
		return value.TypeFunction, true
	case scanner.TokenListType:
		return value.TypeList, true
	case scanner.TokenRangeType:
		return value.TypeRange, true
	case scanner.TokenTupleType:
		return value.TypeTuple, true
	case scanner.TokenDictType:
		return value.TypeDict, true
	case scanner.TokenSetType:
		return value.TypeSet, true
	default:
		return 0, false
	}
}

func (c *Compiler) errf(format string, args ...interface{}) {
	c.errorAtPrevious(fmt.Sprintf(format, args...))
}
