package compiler

// Context is the kind of construct one frame of the compiler's parsing-mode
// stack represents, so constructs like `break` and `this`-qualified
// parameters can validate where they appear.
type Context int

const (
	ContextTopLevel Context = iota
	ContextFunction
	ContextLambda
	ContextIfStatement
	ContextWhileLoop
	ContextForLoop
	ContextTryCatch
)

func (c Context) String() string {
	switch c {
	case ContextTopLevel:
		return "TopLevel"
	case ContextFunction:
		return "Function"
	case ContextLambda:
		return "Lambda"
	case ContextIfStatement:
		return "IfStatement"
	case ContextWhileLoop:
		return "WhileLoop"
	case ContextForLoop:
		return "ForLoop"
	case ContextTryCatch:
		return "TryCatch"
	default:
		return "Unknown"
	}
}

// patchSite names the constant slot a forward jump's target pair
// (targetConstIndex, targetOpIndex) starts at, reserved by emitJump and
// filled in later by patchJumpHere once the destination is known.
type patchSite struct {
	constSlot int
}

// loopInfo is attached to a WhileLoop/ForLoop context frame: the set of
// break jumps pending patch to just past the loop.
type loopInfo struct {
	breakPatches []patchSite
}

type ctxFrame struct {
	kind Context
	loop *loopInfo
}

func (c *Compiler) pushContext(kind Context) {
	f := ctxFrame{kind: kind}
	if kind == ContextWhileLoop || kind == ContextForLoop {
		f.loop = &loopInfo{}
	}
	c.contexts = append(c.contexts, f)
}

func (c *Compiler) popContext() ctxFrame {
	f := c.contexts[len(c.contexts)-1]
	c.contexts = c.contexts[:len(c.contexts)-1]
	return f
}

func (c *Compiler) currentContext() Context {
	if len(c.contexts) == 0 {
		return ContextTopLevel
	}
	return c.contexts[len(c.contexts)-1].kind
}

// enclosingLoop walks the context stack outward for the nearest
// WhileLoop/ForLoop frame, returning its loopInfo. ok is false if no loop
// encloses, or a Lambda boundary is crossed first (breaking out of a lambda
// enclosing a loop is disallowed per spec.md 4.2.2).
func (c *Compiler) enclosingLoop() (info *loopInfo, ok bool) {
	for i := len(c.contexts) - 1; i >= 0; i-- {
		switch c.contexts[i].kind {
		case ContextWhileLoop, ContextForLoop:
			return c.contexts[i].loop, true
		case ContextLambda:
			return nil, false
		}
	}
	return nil, false
}
