package vm

import (
	"poise/internal/objects"
	"poise/internal/value"
)

// asIterableObject downcasts v to objects.IterableObject: every container
// kind (List, Tuple, Range, Dict, Set) satisfies this interface structurally.
func asIterableObject(v value.Value) (objects.IterableObject, bool) {
	if v.Tag() != value.TagObject || v.Object() == nil {
		return nil, false
	}
	it, ok := v.Object().(objects.IterableObject)
	return it, ok
}

// opUnpack pops a container and pushes its elements, in order, for a
// following DeclareMultipleLocals (or a multi-assignment, if the language
// grows one) to consume. The caller does not yet know how many names it
// needs to match, so opUnpack itself does no count validation; the length
// is implicit in how many values it leaves on the stack; a shortfall at
// DeclareMultipleLocals time would read past the stack and fatal, so
// construct the (count, hasUnpack) compile-time agreement keeps this from
// ever mismatching for well-formed bytecode.
func (vm *VM) opUnpack() *objects.Exception {
	container := vm.pop()
	iter, ok := asIterableObject(container)
	if !ok {
		container.Release()
		return objects.NewException(objects.ExcInvalidArgument, "value is not unpackable")
	}
	n := iter.Len()
	for i := 0; i < n; i++ {
		vm.push(iter.ElemAt(i).Clone())
	}
	container.Release()
	return nil
}

// opInitIterator pops the iterable expression's value, constructs an
// Iterator over it, pushes it on vm.iterStack (so Return/unwind can close it
// even if the loop body never reaches its own PopIterator — see
// Frame.iterBase and tryFrame.iterDepth), then runs the same test-bind-
// advance step IncrementIterator does for every subsequent pass: the
// surrounding bytecode reuses a single JumpIfTrue test for both the loop's
// entry and its back edge, so both ops must push the identical "done"
// signal.
func (vm *VM) opInitIterator(frame *Frame, firstIdx, secondIdx int) *objects.Exception {
	container := vm.pop()
	source, ok := asIterableObject(container)
	if !ok {
		container.Release()
		return objects.NewException(objects.ExcInvalidArgument, "value is not iterable")
	}
	it := objects.NewIterator(source)
	vm.track(it)
	vm.iterStack = append(vm.iterStack, it)
	container.Release()
	return vm.testBindAdvance(frame, it, firstIdx, secondIdx)
}

func (vm *VM) topIterator() *objects.Iterator {
	if len(vm.iterStack) == 0 {
		vm.fatalf("iterator stack underflow")
	}
	return vm.iterStack[len(vm.iterStack)-1]
}

// opIncrementIterator runs the same test-bind-advance step opInitIterator
// ran for the first pass, against the innermost live iterator.
func (vm *VM) opIncrementIterator(frame *Frame, firstIdx, secondIdx int) *objects.Exception {
	return vm.testBindAdvance(frame, vm.topIterator(), firstIdx, secondIdx)
}

// testBindAdvance returns an InvalidIterator exception if the iterator was
// invalidated, and pushes true (the for-loop's JumpIfTrue target exits the
// loop) if it is exhausted; otherwise it binds firstIdx (and
// secondIdx, for a two-variable loop over a Dict) from the current position,
// advances, and pushes false.
func (vm *VM) testBindAdvance(frame *Frame, it *objects.Iterator, firstIdx, secondIdx int) *objects.Exception {
	if !it.Valid() {
		return objects.NewException(objects.ExcInvalidIterator, "iterator invalidated by a mutation to its source")
	}
	if it.IsAtEnd() {
		vm.push(value.Bool(true))
		return nil
	}
	if secondIdx >= 0 {
		k, v, isPair, exc := it.KeyValue()
		if exc != nil {
			return exc
		}
		vm.assignLocal(frame, firstIdx, k.Clone())
		if isPair {
			vm.assignLocal(frame, secondIdx, v.Clone())
		} else {
			vm.assignLocal(frame, secondIdx, value.None())
		}
	} else {
		v, exc := it.Value()
		if exc != nil {
			return exc
		}
		vm.assignLocal(frame, firstIdx, v.Clone())
	}
	it.Advance()
	vm.push(value.Bool(false))
	return nil
}

// opPopIterator closes and discards the innermost live iterator: ordinary
// loop exit always pops its own iterator before any enclosing loop's, so
// this never needs to identify which iterator belongs to which loop.
func (vm *VM) opPopIterator() {
	if len(vm.iterStack) == 0 {
		vm.fatalf("PopIterator with no live iterator")
	}
	top := vm.iterStack[len(vm.iterStack)-1]
	vm.iterStack = vm.iterStack[:len(vm.iterStack)-1]
	top.Close()
}

// closeItersTo closes and drops every iterator above depth, used when a
// Return or an exception unwind discards a call frame (or a try block)
// whose for-loop never got to run its own PopIterator — e.g. `return` or
// `throw` inside a loop body.
func (vm *VM) closeItersTo(depth int) {
	for i := len(vm.iterStack) - 1; i >= depth; i-- {
		vm.iterStack[i].Close()
	}
	vm.iterStack = vm.iterStack[:depth]
}
