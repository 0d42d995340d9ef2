// Package objects implements the polymorphic heap object hierarchy: the
// concrete types that satisfy value.Object (functions, exceptions, the
// runtime Type reflection object, the iterable and hashable containers, the
// iterator, and user-defined structs), plus the shared value operators that
// both the compiler's constant-expression evaluator and the VM's arithmetic
// ops dispatch through.
package objects

import (
	"fmt"

	"poise/internal/bytecode"
	"poise/internal/value"
)

// Function is a compiled unit of code: either a named top-level function
// (untracked, living in its namespace's constant table) or a lambda clone
// (tracked, created at runtime by MakeLambda and carrying its own captures).
type Function struct {
	value.Header

	Name          string
	NameHash      uint64
	SourcePath    string
	NamespaceHash uint64
	Arity         int
	Variadic      bool
	Exported      bool

	Ops       []bytecode.OpLine
	Constants []value.Value
	Captures  []value.Value

	// ExtendedTypes lists the TypeTags this function is registered as an
	// extension function against (parsed from a leading `this Type1|Type2`
	// parameter); empty for an ordinary function.
	ExtendedTypes []value.TypeTag

	lambdaCounter int
}

// NewFunction creates an untracked, compile-time function object.
func NewFunction(name string, sourcePath string, namespaceHash uint64) *Function {
	f := &Function{
		Name:          name,
		NameHash:      0,
		SourcePath:    sourcePath,
		NamespaceHash: namespaceHash,
	}
	return f
}

func (f *Function) ObjectType() value.ObjectType { return value.ObjFunction }

func (f *Function) String() string {
	if f.Name == "" {
		return "<lambda>"
	}
	return fmt.Sprintf("<function %s>", f.Name)
}

func (f *Function) FindObjectMembers(out *[]value.Value) {
	*out = append(*out, f.Captures...)
}

func (f *Function) RemoveObjectMembers() {
	for i := range f.Captures {
		f.Captures[i].Release()
	}
	f.Captures = nil
}

func (f *Function) AnyMemberMatchesRecursive(target value.Object) bool {
	for _, c := range f.Captures {
		if o := c.Object(); o != nil {
			if o == target || o.AnyMemberMatchesRecursive(target) {
				return true
			}
		}
	}
	return false
}

// EmitOp appends an instruction to this function's code.
func (f *Function) EmitOp(op bytecode.Op, line int) {
	f.Ops = append(f.Ops, bytecode.OpLine{Op: op, Line: line})
}

// EmitConstant appends a constant and returns its index.
func (f *Function) EmitConstant(v value.Value) int {
	f.Constants = append(f.Constants, v)
	return len(f.Constants) - 1
}

// PatchConstant overwrites a previously emitted constant slot; used to back-
// patch jump targets once they are known.
func (f *Function) PatchConstant(slot int, v value.Value) {
	f.Constants[slot] = v
}

// NextOpIndex and NextConstIndex report the positions a jump patched "here"
// would target.
func (f *Function) NextOpIndex() int    { return len(f.Ops) }
func (f *Function) NextConstIndex() int { return len(f.Constants) }

// Clone produces the shallow copy MakeLambda pushes at runtime: same code
// and constants (captures start empty and are filled in by subsequent
// CaptureLocal ops), marked tracked since it is now a first-class runtime
// value rather than a namespace-owned template.
func (f *Function) Clone() *Function {
	name := f.Name
	if f.Name == "" {
		f.lambdaCounter++
		name = fmt.Sprintf("lambda$%d", f.lambdaCounter)
	}
	clone := &Function{
		Name:          name,
		NameHash:      f.NameHash,
		SourcePath:    f.SourcePath,
		NamespaceHash: f.NamespaceHash,
		Arity:         f.Arity,
		Variadic:      f.Variadic,
		Exported:      f.Exported,
		Ops:           f.Ops,
		Constants:     f.Constants,
	}
	clone.SetTracked(true)
	return clone
}

// AddCapture appends a retained copy of v to the clone's capture list.
func (f *Function) AddCapture(v value.Value) {
	f.Captures = append(f.Captures, v.Clone())
}

// GetCapture returns capture i without transferring ownership.
func (f *Function) GetCapture(i int) value.Value {
	return f.Captures[i]
}
