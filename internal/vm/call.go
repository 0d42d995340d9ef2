package vm

import (
	"poise/internal/objects"
	"poise/internal/value"
)

// opLoadFunctionOrStruct resolves a namespace-qualified name to either a
// function template (pushed directly — it is namespace-owned, not runtime-
// tracked) or a struct template (wrapped in an ephemeral constructor Type,
// so Call's ordinary "callee is a Type" dispatch builds the instance without
// a separate struct-literal code path).
func (vm *VM) opLoadFunctionOrStruct(nsHash, nameHash uint64) *objects.Exception {
	if fn, ok := vm.manager.GetFunction(nsHash, nameHash); ok {
		vm.push(value.FromObject(fn))
		return nil
	}
	if tmpl, ok := vm.manager.GetStruct(nsHash, nameHash); ok {
		vm.push(value.FromObject(vm.structConstructor(tmpl)))
		return nil
	}
	return objects.NewException(objects.ExcFunctionNotFound, "function or struct not found")
}

// structConstructor builds a fresh, untracked Type wrapping tmpl: it has no
// members of its own to walk and is never registered in the TypeRegistry, so
// it creates no reference cycle and needs no teardown bookkeeping.
func (vm *VM) structConstructor(tmpl *objects.StructTemplate) *objects.Type {
	return objects.NewType(value.TypeNone, tmpl.Name, func(args []value.Value) (value.Value, *objects.Exception) {
		overrides := make(map[uint64]value.Value, len(args))
		for _, a := range args {
			pair, ok := objects.AsTuple(a.Object())
			if !ok || len(pair.Values) != 2 {
				return value.None(), objects.NewException(objects.ExcInvalidArgument, "struct construction expects name/value field pairs")
			}
			overrides[uint64(pair.Values[0].Int())] = pair.Values[1]
		}
		s := objects.Instantiate(tmpl, overrides)
		vm.track(s)
		for _, a := range args {
			a.Release()
		}
		return value.FromObject(s), nil
	})
}

// opLoadMember pops a receiver and resolves `.name`: a struct field first,
// else an extension function registered against the receiver's runtime type,
// bound to the receiver via Clone+AddCapture so the callee already carries
// its `this` by the time Call executes it.
func (vm *VM) opLoadMember(nameHash uint64) *objects.Exception {
	receiver := vm.pop()
	if obj := receiver.Object(); obj != nil {
		if s, ok := objects.AsStruct(obj); ok {
			if v, found := s.Member(nameHash); found {
				vm.push(v.Clone())
				receiver.Release()
				return nil
			}
			receiver.Release()
			return objects.NewException(objects.ExcInvalidArgument, "no such struct member")
		}
	}
	typeVal := objects.TypeOf(vm.types, receiver)
	if t, ok := objects.AsType(typeVal.Object()); ok {
		if fn, found := t.Extension(nameHash); found {
			clone := fn.Clone()
			clone.AddCapture(receiver)
			vm.track(clone)
			receiver.Release()
			vm.push(value.FromObject(clone))
			return nil
		}
	}
	receiver.Release()
	return objects.NewException(objects.ExcInvalidArgument, "no such member")
}

// opMakeLambda clones the Function template constant passed as template,
// pushing the clone as a first-class runtime value; subsequent CaptureLocal
// ops fill in its Captures.
func (vm *VM) opMakeLambda(template *objects.Function) {
	clone := template.Clone()
	vm.track(clone)
	vm.push(value.FromObject(clone))
}

// opCaptureLocal adds a retained copy of the enclosing frame's local at
// index to the lambda clone sitting on top of the data stack.
func (vm *VM) opCaptureLocal(frame *Frame, index int) {
	v := vm.loadLocal(frame, index)
	top := vm.peek()
	fn := top.Object().(*objects.Function)
	fn.AddCapture(v)
}

// opLoadCapture pushes a retained copy of the current frame's function's
// capture at index (valid for a lambda body or an extension function's
// `this`).
func (vm *VM) opLoadCapture(frame *Frame, index int) {
	vm.push(frame.fn.GetCapture(index).Clone())
}

// resolveArgs pops argCount values, then — if hasUnpack — replaces the last
// one (the trailing `...expr` spread) with however many elements it
// contains, per argumentList's "only as the last argument" contract.
func (vm *VM) resolveArgs(argCount int, hasUnpack bool) ([]value.Value, *objects.Exception) {
	popped := vm.popN(argCount)
	if !hasUnpack {
		return popped, nil
	}
	spread := popped[len(popped)-1]
	iter, ok := asIterableObject(spread)
	if !ok {
		for _, v := range popped {
			v.Release()
		}
		return nil, objects.NewException(objects.ExcInvalidArgument, "'...' spread requires an iterable")
	}
	args := make([]value.Value, 0, len(popped)-1+iter.Len())
	args = append(args, popped[:len(popped)-1]...)
	for i := 0; i < iter.Len(); i++ {
		args = append(args, iter.ElemAt(i).Clone())
	}
	spread.Release()
	return args, nil
}

// opCall implements the unified call protocol: Function, Type (builtin or
// struct constructor). isDotCall is consumed to keep the constant stream
// aligned but otherwise unused — LoadMember already bound `this` before the
// callee reached the stack, so by the time Call runs, a dot-called value is
// indistinguishable from an ordinarily-resolved one.
func (vm *VM) opCall(argCount int, hasUnpack, isDotCall bool) *objects.Exception {
	_ = isDotCall
	args, exc := vm.resolveArgs(argCount, hasUnpack)
	if exc != nil {
		vm.pop().Release()
		return exc
	}
	calleeVal := vm.pop()
	obj := calleeVal.Object()
	if obj == nil {
		releaseAll(args)
		calleeVal.Release()
		return objects.NewException(objects.ExcInvalidType, "value is not callable")
	}
	if fn, ok := obj.(*objects.Function); ok {
		exc := vm.callFunction(fn, args)
		calleeVal.Release()
		return exc
	}
	if t, ok := objects.AsType(obj); ok {
		result, exc := t.Construct(args)
		calleeVal.Release()
		if exc != nil {
			return exc
		}
		vm.push(result)
		return nil
	}
	releaseAll(args)
	calleeVal.Release()
	return objects.NewException(objects.ExcInvalidType, "value is not callable")
}

func releaseAll(vs []value.Value) {
	for _, v := range vs {
		v.Release()
	}
}

// callFunction pushes a new Frame for fn and splices args into the new
// locals region: the first fn.Arity-1 (or all of them, if not variadic)
// bind one-to-one, and for a variadic function every argument from
// Arity-1 onward collapses into a single List bound to the last parameter.
func (vm *VM) callFunction(fn *objects.Function, args []value.Value) *objects.Exception {
	if fn.Variadic {
		if len(args) < fn.Arity-1 {
			releaseAll(args)
			return objects.NewException(objects.ExcIncorrectArgCount, "too few arguments")
		}
	} else if len(args) != fn.Arity {
		releaseAll(args)
		return objects.NewException(objects.ExcIncorrectArgCount, "incorrect argument count")
	}

	localBase := len(vm.locals)
	if fn.Variadic {
		fixed := fn.Arity - 1
		vm.locals = append(vm.locals, args[:fixed]...)
		rest := args[fixed:]
		restList := make([]value.Value, len(rest))
		copy(restList, rest)
		vm.locals = append(vm.locals, value.FromObject(trackedList(vm, restList)))
	} else {
		vm.locals = append(vm.locals, args...)
	}

	vm.frames = append(vm.frames, &Frame{
		fn:        fn,
		localBase: localBase,
		iterBase:  len(vm.iterStack),
	})
	return nil
}

func trackedList(vm *VM, values []value.Value) *objects.List {
	l := objects.NewList(values)
	vm.track(l)
	return l
}

// opReturn pops the current frame and closes any iterator its body left
// live (a `return` inside a for-loop skips straight past that loop's own
// PopIterator). The return value is already sitting on the data stack,
// unaffected by the locals/iterator cleanup below it.
func (vm *VM) opReturn() {
	if len(vm.frames) == 0 {
		vm.fatalf("Return with no active frame")
	}
	frame := vm.frames[len(vm.frames)-1]
	vm.closeItersTo(frame.iterBase)
	vm.frames = vm.frames[:len(vm.frames)-1]
}
