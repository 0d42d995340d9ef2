package compiler

import (
	"poise/internal/bytecode"
	"poise/internal/objects"
	"poise/internal/scanner"
	"poise/internal/value"
)

// declaration is the top-level grammar: a file is a sequence of
// import/func/const/struct/export-prefixed declarations; var/final are
// errored here (they're only legal as statements inside a function body).
func (c *Compiler) declaration() {
	if c.panicMode {
		c.synchronize()
	}

	exported := c.match(scanner.TokenExport)

	switch {
	case c.match(scanner.TokenImport):
		if exported {
			c.errorAtPrevious("import cannot be exported")
		}
		c.importDecl()
	case c.match(scanner.TokenFunc):
		c.passedImports = true
		c.funcDecl(exported)
	case c.match(scanner.TokenConst):
		c.passedImports = true
		c.constDecl(exported)
	case c.match(scanner.TokenStruct):
		c.passedImports = true
		c.structDecl(exported)
	case c.check(scanner.TokenVar) || c.check(scanner.TokenFinal):
		c.advance()
		c.errorAtPrevious("'var'/'final' are not allowed at top level")
		c.panicMode = true
	default:
		c.errorAtCurrent("expected a declaration")
		c.panicMode = true
		c.advance()
	}

	if c.panicMode {
		c.synchronize()
	}
}

// importDecl parses `import a::b::c;` or `import std::a::b;`, optionally
// followed by `as NAME;`. Imports must precede every other top-level
// declaration; passedImports is set once a func/const/struct has been seen
// (declaration), so an import arriving after one is rejected here.
func (c *Compiler) importDecl() {
	if c.passedImports {
		c.errorAtPrevious("imports must precede all other declarations")
		return
	}

	var segments []string
	c.consume(scanner.TokenIdentifier, "expected a namespace path after 'import'")
	segments = append(segments, c.previous.Text)
	isStd := segments[0] == "std"
	for c.match(scanner.TokenDoubleColon) {
		c.consume(scanner.TokenIdentifier, "expected identifier after '::'")
		segments = append(segments, c.previous.Text)
	}

	var childPath, displayName string
	if isStd {
		if c.stdPath == "" {
			c.errorAtPrevious("no standard library path configured (set POISE_STD_PATH)")
			return
		}
		childPath = namespacedPath(c.stdPath, segments[1:])
		displayName = "std::" + joinSegments(segments[1:])
	} else {
		childPath = namespacedPath(c.baseDir(), segments)
		displayName = joinSegments(segments)
	}

	alias := segments[len(segments)-1]
	if c.match(scanner.TokenAs) {
		c.consume(scanner.TokenIdentifier, "expected identifier after 'as'")
		alias = c.previous.Text
	}
	c.consume(scanner.TokenSemicolon, "expected ';' after import")

	childHash, isNew := c.manager.AddNamespace(childPath, displayName, c.namespaceHash, true)
	c.imports[alias] = childHash
	if isNew {
		sub := New(childPath, displayName, c.manager, c.stdPath, false, isStd)
		source, err := readSourceFile(childPath)
		if err != nil {
			c.errorAtPrevious("could not read imported file: " + childPath)
			return
		}
		result := sub.Compile(source)
		if result.HadError {
			c.hadError = true
		}
	}
}

func joinSegments(segments []string) string {
	out := segments[0]
	for _, s := range segments[1:] {
		out += "::" + s
	}
	return out
}

// funcDecl parses `func NAME(params): Type { ... }` or `=> expr;`.
func (c *Compiler) funcDecl(exported bool) {
	c.consume(scanner.TokenIdentifier, "expected a function name")
	name := c.previous.Text

	fn := objects.NewFunction(name, c.path, c.namespaceHash)
	fn.NameHash = internName(name)
	fn.Exported = exported

	c.funcs = append(c.funcs, &funcState{fn: fn})
	c.pushContext(ContextFunction)

	c.consume(scanner.TokenLeftParen, "expected '(' after function name")
	if !c.check(scanner.TokenRightParen) {
		for {
			c.parseParam(fn)
			if !c.match(scanner.TokenComma) {
				break
			}
		}
	}
	c.consume(scanner.TokenRightParen, "expected ')' after parameters")
	fn.Arity = len(c.currentFunc().locals)

	if c.match(scanner.TokenColon) {
		c.consumeTypeAnnotation()
	}

	if c.match(scanner.TokenFatArrow) {
		c.expression()
		c.consume(scanner.TokenSemicolon, "expected ';' after expression body")
		c.emitConstant(value.Int(0))
		c.emit(bytecode.OpPopLocals)
		c.emit(bytecode.OpReturn)
	} else {
		c.consume(scanner.TokenLeftBrace, "expected '{' or '=>' to begin function body")
		c.beginScope()
		for !c.check(scanner.TokenRightBrace) && !c.check(scanner.TokenEOF) {
			c.statement()
		}
		c.consume(scanner.TokenRightBrace, "expected '}' to close function body")
		c.endScope()
		c.emitConstant(value.Int(0))
		c.emit(bytecode.OpPopLocals)
		c.emitConstant(value.None())
		c.emit(bytecode.OpLoadConstant)
		c.emit(bytecode.OpReturn)
	}

	c.popContext()
	c.funcs = c.funcs[:len(c.funcs)-1]

	c.manager.AddFunction(c.namespaceHash, fn)
	if c.mainFile && name == "main" {
		fn.Exported = true
		c.entryFunction = fn
	}
}

// parseParam parses one parameter: either a leading `this Type1|Type2|...`
// (registering fn as an extension function on each listed type) or an
// ordinary `name(:Type)`, optionally `...`-suffixed to mark it variadic.
func (c *Compiler) parseParam(fn *objects.Function) {
	if c.match(scanner.TokenThis) {
		if c.currentContext() == ContextLambda {
			c.errorAtPrevious("'this' parameters are not allowed in lambdas")
		}
		// 'this' is bound as a capture, not a positional local: the receiver
		// is never counted in arity or passed at the call site, only
		// supplied by LoadMember's Clone()+AddCapture() when it resolves an
		// extension-function dot call.
		fs := c.currentFunc()
		fs.captures = append(fs.captures, "this")
		c.match(scanner.TokenColon)
		tag, ok := typeTagForToken(c.current.Type)
		if ok {
			c.advance()
			fn.ExtendedTypes = append(fn.ExtendedTypes, tag)
		}
		for c.match(scanner.TokenPipe) {
			tag, ok := typeTagForToken(c.current.Type)
			if ok {
				c.advance()
				fn.ExtendedTypes = append(fn.ExtendedTypes, tag)
			}
		}
		return
	}

	c.consume(scanner.TokenIdentifier, "expected a parameter name")
	name := c.previous.Text
	c.declareParam(name)
	if c.match(scanner.TokenColon) {
		c.consumeTypeAnnotation()
	}
	if c.match(scanner.TokenEllipsis) {
		fn.Variadic = true
	}
}

// declareParam registers name as a local at the function's base scope
// without emitting DeclareLocal: call-time argument splicing binds
// parameters directly into the frame's locals, per the VM's call protocol.
func (c *Compiler) declareParam(name string) {
	fs := c.currentFunc()
	fs.locals = append(fs.locals, localVar{name: name, depth: 0})
}

func (c *Compiler) consumeTypeAnnotation() {
	if _, ok := typeTagForToken(c.current.Type); ok {
		c.advance()
		return
	}
	c.consume(scanner.TokenIdentifier, "expected a type annotation")
}

// constDecl parses `const NAME = constExpr;` storing the evaluated Value in
// the namespace's constant table.
func (c *Compiler) constDecl(exported bool) {
	c.consume(scanner.TokenIdentifier, "expected a constant name")
	name := c.previous.Text
	c.consume(scanner.TokenEqual, "expected '=' after constant name")
	v := c.evalConstExpr()
	c.consume(scanner.TokenSemicolon, "expected ';' after constant expression")
	c.manager.AddConstant(c.namespaceHash, name, v, exported)
}

// structDecl parses `struct NAME { member(:Type)(= expr); ... }`.
func (c *Compiler) structDecl(exported bool) {
	c.consume(scanner.TokenIdentifier, "expected a struct name")
	name := c.previous.Text
	tmpl := objects.NewStructTemplate(name, internName(name), exported)
	c.consume(scanner.TokenLeftBrace, "expected '{' after struct name")
	for !c.check(scanner.TokenRightBrace) && !c.check(scanner.TokenEOF) {
		c.consume(scanner.TokenIdentifier, "expected a member name")
		memberName := c.previous.Text
		if c.match(scanner.TokenColon) {
			c.consumeTypeAnnotation()
		}
		def := value.None()
		if c.match(scanner.TokenEqual) {
			def = c.evalConstExpr()
		}
		tmpl.AddMember(memberName, internName(memberName), def)
		c.consume(scanner.TokenSemicolon, "expected ';' after struct member")
	}
	c.consume(scanner.TokenRightBrace, "expected '}' to close struct")
	c.manager.AddStruct(c.namespaceHash, tmpl)
}

func (c *Compiler) baseDir() string {
	return dirOf(c.path)
}
