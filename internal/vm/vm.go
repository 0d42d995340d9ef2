// Package vm implements the stack-based bytecode interpreter that executes
// the objects.Function code objects internal/compiler emits: a flat locals
// vector addressed by per-frame offset, a data stack, a call-frame stack,
// and an explicit try-handler stack standing in for host-language
// exceptions (see spec.md's note that only the compiler's constant-folding
// path is allowed that shortcut).
package vm

import (
	"fmt"
	"io"
	"os"

	"poise/internal/bytecode"
	"poise/internal/intern"
	"poise/internal/namespace"
	"poise/internal/objects"
	"poise/internal/value"
)

// RunResult reports how VM.Run ended.
type RunResult int

const (
	// Success means OpExit ran with an empty data stack.
	Success RunResult = iota
	// RuntimeError means an exception propagated past every try handler
	// and was printed as an unhandled-exception backtrace.
	RuntimeError
)

// Frame is one call's execution position: the Function being executed, the
// next op/constant indices within it, the flat-locals offset its locals
// begin at, and the vm.iterStack length in effect when it was pushed (so
// Return can close any for-loop iterator this call's body never got to
// PopIterator itself, e.g. a `return` inside the loop body).
type Frame struct {
	fn         *objects.Function
	opIndex    int
	constIndex int
	localBase  int
	iterBase   int
}

// tryFrame is a snapshot of every stack this VM maintains, taken at
// OpEnterTry, so unwind can roll every one of them back to exactly where
// they stood when the try block began.
type tryFrame struct {
	frameDepth      int
	localsDepth     int
	dataDepth       int
	iterDepth       int
	catchConstIndex int
	catchOpIndex    int
}

// VM is one isolated execution context: one data stack, one locals vector,
// one frame stack, sharing a namespace.Manager with whatever Compiler
// produced the code it runs.
type VM struct {
	manager *namespace.Manager
	types   *objects.TypeRegistry
	natives map[uint64]nativeEntry

	data   []value.Value
	locals []value.Value
	frames []*Frame

	tryStack  []tryFrame
	iterStack []*objects.Iterator

	tracked []value.Object

	Stdout io.Writer
	Stderr io.Writer
}

// NativeFunc is a registered native function's Go implementation: already-
// evaluated arguments in, a Value or a thrown Exception out.
type NativeFunc func(args []value.Value) (value.Value, *objects.Exception)

type nativeEntry struct {
	arity int
	fn    NativeFunc
}

// New constructs a VM sharing manager with the Compiler(s) that produced
// the code it will run, with the builtin TypeRegistry populated and every
// extension function already in manager registered on each of its
// ExtendedTypes.
func New(manager *namespace.Manager) *VM {
	m := &VM{
		manager: manager,
		natives: make(map[uint64]nativeEntry),
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
	}
	m.types = newTypeRegistry(m)
	for _, entry := range manager.Entries() {
		for _, fn := range entry.Functions {
			for _, tag := range fn.ExtendedTypes {
				m.types.TypeObject(tag).AddExtension(fn.NameHash, fn)
			}
		}
	}
	return m
}

// RegisterNative installs fn under fullName (including the `__NATIVE_`
// prefix the compiler requires) with a fixed arity. This is the open
// registration table an external standard-library-loading collaborator
// populates before running user code; the VM itself never imports or
// enumerates native implementations.
func (vm *VM) RegisterNative(fullName string, arity int, fn NativeFunc) {
	vm.natives[intern.String(fullName)] = nativeEntry{arity: arity, fn: fn}
}

// fatal is the panic payload for an invariant failure internal to the VM
// (stack underflow, an unknown op, a malformed ConstructBuiltin tag): these
// are bugs, never user-triggerable, so they abort rather than raise a
// catchable Exception.
type fatal struct{ msg string }

func (vm *VM) fatalf(format string, args ...interface{}) {
	panic(fatal{msg: fmt.Sprintf(format, args...)})
}

// Run executes entryFn starting at (startOp, startConst) — the position
// Result.EntryOpIndex/EntryConstIndex identifies, i.e. the bootstrap tail
// that looks up and calls `main`, not entryFn's own op 0. Run returns once
// OpExit executes or an exception escapes every try handler.
func (vm *VM) Run(entryFn *objects.Function, startOp, startConst int) (result RunResult, err error) {
	vm.frames = []*Frame{{fn: entryFn, opIndex: startOp, constIndex: startConst}}

	defer func() {
		if r := recover(); r != nil {
			if f, ok := r.(fatal); ok {
				result, err = RuntimeError, fmt.Errorf("internal VM error: %s", f.msg)
				return
			}
			panic(r)
		}
	}()

	for {
		if len(vm.frames) == 0 {
			return Success, nil
		}
		frame := vm.frames[len(vm.frames)-1]
		if frame.opIndex >= len(frame.fn.Ops) {
			vm.fatalf("instruction pointer ran past the end of %q with no Exit", frame.fn.Name)
		}
		opLine := frame.fn.Ops[frame.opIndex]
		frame.opIndex++

		if opLine.Op == bytecode.OpExit {
			if len(vm.data) != 0 {
				vm.fatalf("data stack not empty at Exit (depth %d)", len(vm.data))
			}
			return Success, nil
		}

		if exc := vm.step(frame, opLine.Op, opLine.Line); exc != nil {
			if !vm.unwind(value.FromObject(exc)) {
				vm.printBacktrace(exc, opLine.Line)
				return RuntimeError, nil
			}
		}
	}
}

func (vm *VM) printBacktrace(exc *objects.Exception, line int) {
	fmt.Fprintf(vm.Stderr, "Unhandled %s: %s\n", exc.Kind, exc.Message)
	fmt.Fprintf(vm.Stderr, "  at line %d\n", line)
}

// Shutdown walks every runtime-tracked object this VM created, plus every
// function registered in the namespace manager (which can hold a
// self-referential constant, e.g. a recursive lambda template), and
// calls RemoveObjectMembers on each to sever strong references so cyclic
// object graphs don't outlive the process purely on refcounts.
func (vm *VM) Shutdown() {
	for _, obj := range vm.tracked {
		obj.RemoveObjectMembers()
	}
	vm.tracked = nil
	for _, entry := range vm.manager.Entries() {
		for _, fn := range entry.Functions {
			fn.RemoveObjectMembers()
		}
	}
}

// track registers obj with the shutdown sweep. Called for every object the
// VM constructs at runtime (containers, lambdas, struct instances,
// iterators) — never for namespace-owned function/struct templates, which
// the manager itself owns; Shutdown visits its functions separately and
// does not visit struct templates.
func (vm *VM) track(obj value.Object) {
	vm.tracked = append(vm.tracked, obj)
}

func (vm *VM) push(v value.Value) { vm.data = append(vm.data, v) }

func (vm *VM) pop() value.Value {
	if len(vm.data) == 0 {
		vm.fatalf("data stack underflow")
	}
	v := vm.data[len(vm.data)-1]
	vm.data = vm.data[:len(vm.data)-1]
	return v
}

func (vm *VM) peek() value.Value {
	if len(vm.data) == 0 {
		vm.fatalf("data stack underflow")
	}
	return vm.data[len(vm.data)-1]
}

// popN pops n values in the order they were pushed (first pushed first).
func (vm *VM) popN(n int) []value.Value {
	if len(vm.data) < n {
		vm.fatalf("data stack underflow popping %d values", n)
	}
	out := make([]value.Value, n)
	copy(out, vm.data[len(vm.data)-n:])
	vm.data = vm.data[:len(vm.data)-n]
	return out
}

// nextConstant reads the next constant from frame's function and advances
// its constant pointer.
func (vm *VM) nextConstant(frame *Frame) value.Value {
	if frame.constIndex >= len(frame.fn.Constants) {
		vm.fatalf("constant pointer ran past the end of %q", frame.fn.Name)
	}
	v := frame.fn.Constants[frame.constIndex]
	frame.constIndex++
	return v
}
